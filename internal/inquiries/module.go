// Package inquiries provides the inquiry intake bounded context module.
// This file defines the module that encapsulates all inquiries setup and route registration.
package inquiries

import (
	"time"

	"brokerage_intake/internal/events"
	apphttp "brokerage_intake/internal/http"
	"brokerage_intake/internal/inquiries/admission"
	"brokerage_intake/internal/inquiries/assignment"
	"brokerage_intake/internal/inquiries/handler"
	"brokerage_intake/internal/inquiries/intake"
	"brokerage_intake/internal/inquiries/lifecycle"
	"brokerage_intake/internal/inquiries/repository"
	"brokerage_intake/internal/monitoring"
	"brokerage_intake/platform/config"
	"brokerage_intake/platform/logger"
	"brokerage_intake/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the inquiries bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	public     *handler.PublicHandler
	intake     *intake.Service
	assignment *assignment.Service
	lifecycle  *lifecycle.Service
}

// NewModule creates and initializes the inquiries module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.AdmissionConfig, counters *monitoring.Counters, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)
	policy := cfg.GetAdmissionPolicy()

	gate, err := admission.NewGate(val, repo, policy, time.Now)
	if err != nil {
		return nil, err
	}

	engine := assignment.NewEngine(repo, time.Now)
	assignSvc := assignment.NewService(engine, repo, eventBus, counters, log)

	intakeSvc := intake.New(intake.Deps{
		Store:       repo,
		Limiter:     admission.NewRateLimiter(repo, policy, time.Now),
		Gate:        gate,
		Detector:    admission.NewDetector(repo, time.Now),
		Picker:      engine,
		Bus:         eventBus,
		Metrics:     counters,
		Masker:      logger.NewPIIMasker(cfg.GetPIIHashKey()),
		Log:         log,
		PhoneRegion: policy.PhoneRegion,
	})

	lifecycleSvc := lifecycle.New(repo, eventBus, counters, log, time.Now)

	return &Module{
		handler:    handler.New(lifecycleSvc, assignSvc, counters, val),
		public:     handler.NewPublicHandler(intakeSvc),
		intake:     intakeSvc,
		assignment: assignSvc,
		lifecycle:  lifecycleSvc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "inquiries"
}

// IntakeService returns the admission pipeline for external use.
func (m *Module) IntakeService() *intake.Service {
	return m.intake
}

// AssignmentService returns the assignment service for background jobs.
func (m *Module) AssignmentService() *assignment.Service {
	return m.assignment
}

// SetReassignEnqueuer lets the admin reassign route hand work to the job queue.
func (m *Module) SetReassignEnqueuer(q handler.ReassignEnqueuer) {
	m.handler.SetReassignEnqueuer(q)
}

// RegisterRoutes mounts inquiries routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.public.RegisterRoutes(ctx.Public.Group("/inquiries"))
	m.handler.RegisterRoutes(ctx.Protected.Group("/inquiries"))
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
