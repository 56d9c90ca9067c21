package validator

import "testing"

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,loosephone"`
	Note  string `json:"note" validate:"required,min=10,max=2000"`
}

func TestFieldErrorsUseJSONNames(t *testing.T) {
	v := New()
	err := v.Struct(sample{Email: "nope", Phone: "12", Note: "short"})
	fields := FieldErrors(err)

	for _, key := range []string{"email", "phone", "note"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected field error for %q, got %v", key, fields)
		}
	}
}

func TestLoosePhone(t *testing.T) {
	v := New()
	valid := []string{"+1 (555) 123-4567", "0612345678", "+31612345678"}
	invalid := []string{"12345", "555-CALL-NOW", "+1 555"}

	for _, p := range valid {
		if err := v.Var(p, "loosephone"); err != nil {
			t.Errorf("expected %q to be valid: %v", p, err)
		}
	}
	for _, p := range invalid {
		if err := v.Var(p, "loosephone"); err == nil {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	if FieldErrors(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
