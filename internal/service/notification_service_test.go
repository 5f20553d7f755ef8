package service_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/config"
	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/events"
	"github.com/spec-kit/crm-agent/internal/service"
)

type captureNotifier struct {
	mu    sync.Mutex
	sends []capturedSend
	ok    bool
}

type capturedSend struct {
	to       string
	template string
	data     map[string]any
}

func (c *captureNotifier) Send(ctx context.Context, to, templateID string, data map[string]any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, capturedSend{to: to, template: templateID, data: data})
	return c.ok
}

func (c *captureNotifier) sent() []capturedSend {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedSend{}, c.sends...)
}

var _ = Describe("NotificationService", func() {
	var (
		persons  *memPersonRepo
		notifier *captureNotifier
		svc      *service.NotificationService
		cfg      config.NotificationConfig
	)

	payload := events.TicketStatusChangedPayload{
		OldStatus: domain.TicketStatusOpen,
		NewStatus: domain.TicketStatusResolved,
		CreatedBy: "c1",
	}

	BeforeEach(func() {
		persons = &memPersonRepo{persons: map[string]domain.Person{
			"c1": {ID: "c1", Name: "Ada", Email: "ada@example.com"},
			"c2": {ID: "c2", Name: "NoMail"},
		}}
		notifier = &captureNotifier{ok: true}
		cfg = config.NotificationConfig{
			EmailFrom:               "support@example.com",
			StatusChangedTemplateID: "tpl-status-changed",
			TimeoutSeconds:          1,
		}
		svc = service.NewNotificationService(events.NewInMemoryDispatcher(), persons, notifier, zap.NewNop(), cfg)
	})

	It("notifies the ticket creator on a status change", func() {
		svc.DispatchStatusChanged("tk-1", payload)

		sent := notifier.sent()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].to).To(Equal("ada@example.com"))
		Expect(sent[0].template).To(Equal("tpl-status-changed"))
		Expect(sent[0].data).To(HaveKeyWithValue("ticket_id", "tk-1"))
		Expect(sent[0].data).To(HaveKeyWithValue("old_status", domain.TicketStatusOpen))
		Expect(sent[0].data).To(HaveKeyWithValue("new_status", domain.TicketStatusResolved))
	})

	It("skips silently when the creator has no email", func() {
		payload := payload
		payload.CreatedBy = "c2"
		svc.DispatchStatusChanged("tk-1", payload)
		Expect(notifier.sent()).To(BeEmpty())
	})

	It("skips silently when the creator is gone", func() {
		payload := payload
		payload.CreatedBy = "ghost"
		svc.DispatchStatusChanged("tk-1", payload)
		Expect(notifier.sent()).To(BeEmpty())
	})

	It("swallows a delivery failure", func() {
		notifier.ok = false
		Expect(func() {
			svc.DispatchStatusChanged("tk-1", payload)
		}).ToNot(Panic())
		Expect(notifier.sent()).To(HaveLen(1))
	})

	It("delivers through the event stream", func() {
		dispatcher := events.NewInMemoryDispatcher()
		svc = service.NewNotificationService(dispatcher, persons, notifier, zap.NewNop(), cfg)
		svc.RegisterHandlers()

		err := dispatcher.Publish(context.Background(), events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: "tk-1",
			Payload:  payload,
		})
		Expect(err).ToNot(HaveOccurred())
		Eventually(notifier.sent).Should(HaveLen(1))
	})
})
