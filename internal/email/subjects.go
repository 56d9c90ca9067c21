package email

const (
	subjectBrokerAssigned   = "New inquiry assigned to you"
	subjectBrokerReassigned = "An inquiry has been reassigned to you"
	subjectAssignmentAlert  = "Inquiry %s needs a broker"
)
