package scheduler

import (
	"context"
	"fmt"

	"brokerage_intake/internal/events"
	"brokerage_intake/internal/inquiries/assignment"
	"brokerage_intake/platform/config"
	"brokerage_intake/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Reassigner moves the open inquiries of a broker to other brokers.
type Reassigner interface {
	ReassignBroker(ctx context.Context, brokerID uuid.UUID) (assignment.Batch, error)
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	bus        events.Bus
	reassigner Reassigner
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, reassigner Reassigner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(bus, reassigner, log)
	w.server = server
	return w, nil
}

func newWorker(bus events.Bus, reassigner Reassigner, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Discard()
	}
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:        mux,
		bus:        bus,
		reassigner: reassigner,
		log:        log,
	}

	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	mux.HandleFunc(TaskBrokerReassign, w.handleBrokerReassign)
	return w
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  outboxID,
	})
}

func (w *Worker) handleBrokerReassign(ctx context.Context, task *asynq.Task) error {
	if w.reassigner == nil {
		return nil
	}

	payload, err := ParseBrokerReassignPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	brokerID, err := uuid.Parse(payload.BrokerID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	batch, err := w.reassigner.ReassignBroker(ctx, brokerID)
	if err != nil {
		return err
	}

	w.log.Info("broker reassignment finished",
		"brokerId", brokerID.String(),
		"reassigned", batch.Reassigned,
		"unassigned", batch.Unassigned,
		"failed", batch.Failed,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
