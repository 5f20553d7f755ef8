package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/config"
	"github.com/spec-kit/crm-agent/internal/events"
	"github.com/spec-kit/crm-agent/internal/repository"
)

// Notifier is the outbound notification collaborator. The core never
// inspects delivery status beyond the boolean.
type Notifier interface {
	Send(ctx context.Context, to, templateID string, data map[string]any) bool
}

// NotificationService turns status-change events into best-effort creator
// notifications. Delivery runs detached with its own timeout; a failure is
// logged and never surfaced to the mutation that triggered it.
type NotificationService struct {
	dispatcher events.Dispatcher
	persons    repository.PersonRepository
	notifier   Notifier
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, persons repository.PersonRepository, notifier Notifier, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		persons:    persons,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to the status-change event stream.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	go n.DispatchStatusChanged(event.TicketID, payload)
	return nil
}

// DispatchStatusChanged resolves the creator's email and sends the
// status-change notification. All failure modes are recovered locally.
func (n *NotificationService) DispatchStatusChanged(ticketID string, payload events.TicketStatusChangedPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.Timeout())
	defer cancel()

	creator, err := n.persons.GetByID(ctx, payload.CreatedBy)
	if err != nil {
		if err != pgx.ErrNoRows {
			n.logger.Warn("notification skipped: creator lookup failed",
				zap.String("ticket_id", ticketID),
				zap.Error(err))
		}
		return
	}
	if creator.Email == "" {
		return
	}

	data := map[string]any{
		"ticket_id":  ticketID,
		"old_status": payload.OldStatus,
		"new_status": payload.NewStatus,
		"name":       creator.Name,
	}
	if !n.notifier.Send(ctx, creator.Email, n.cfg.StatusChangedTemplateID, data) {
		n.logger.Warn("status change notification not delivered",
			zap.String("ticket_id", ticketID),
			zap.String("to", creator.Email))
	}
}

// LoggingNotifier is the default Notifier: it records the send and reports
// success, standing in for the external delivery transport.
type LoggingNotifier struct {
	Logger *zap.Logger
	From   string
}

// Send logs the outbound notification.
func (l *LoggingNotifier) Send(ctx context.Context, to, templateID string, data map[string]any) bool {
	l.Logger.Info("notification dispatched",
		zap.String("from", l.From),
		zap.String("to", to),
		zap.String("template", templateID),
		zap.Any("data", data))
	return true
}
