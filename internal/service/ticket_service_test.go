package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/authz"
	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/events"
	"github.com/spec-kit/crm-agent/internal/service"
	util "github.com/spec-kit/crm-agent/pkg/util"
)

var _ = Describe("TicketService", func() {
	var (
		tickets    *memTicketRepo
		feedback   *memFeedbackRepo
		teams      *memTeamRepo
		dispatcher events.Dispatcher
		rec        *recorder
		svc        *service.TicketService
		ctx        context.Context

		admin    *domain.Person
		employee *domain.Person
		customer *domain.Person
	)

	BeforeEach(func() {
		tickets = newMemTicketRepo()
		feedback = newMemFeedbackRepo()
		teams = &memTeamRepo{members: map[string]bool{}}
		dispatcher = events.NewInMemoryDispatcher()
		rec = &recorder{}
		for _, t := range []events.EventType{
			events.EventTicketCreated,
			events.EventTicketUpdated,
			events.EventTicketStatusChanged,
			events.EventTicketDeleted,
			events.EventFeedbackCreated,
		} {
			dispatcher.Subscribe(t, rec.record)
		}
		svc = service.NewTicketService(service.TicketDependencies{
			TicketRepo:   tickets,
			FeedbackRepo: feedback,
			Authorizer:   authz.NewEngine(teams, zap.NewNop()),
			Dispatcher:   dispatcher,
			Logger:       zap.NewNop(),
		})
		ctx = context.Background()

		admin = &domain.Person{ID: "a1", Role: domain.PersonRoleAdmin}
		employee = &domain.Person{ID: "e1", Role: domain.PersonRoleEmployee}
		customer = &domain.Person{ID: "c1", Role: domain.PersonRoleCustomer}
	})

	Describe("CreateTicket", func() {
		It("applies defaults and stamps the creator", func() {
			ticket, err := svc.CreateTicket(ctx, customer, service.TicketCreateInput{Subject: "printer down"})
			Expect(err).ToNot(HaveOccurred())
			Expect(ticket.Status).To(Equal(domain.TicketStatusOpen))
			Expect(ticket.Priority).To(Equal(domain.TicketPriorityMedium))
			Expect(ticket.Channel).To(Equal("web"))
			Expect(ticket.CreatedBy).To(Equal(customer.ID))
			Expect(ticket.ExternalKey).To(HavePrefix("TCK-"))
			Expect(ticket.ExternalKey).To(HaveLen(12))
		})

		It("publishes a created event", func() {
			ticket, err := svc.CreateTicket(ctx, customer, service.TicketCreateInput{Subject: "printer down"})
			Expect(err).ToNot(HaveOccurred())

			created := rec.ofType(events.EventTicketCreated)
			Expect(created).To(HaveLen(1))
			Expect(created[0].TicketID).To(Equal(ticket.ID))
			Expect(created[0].ActorID).To(Equal(customer.ID))
		})

		It("rejects a blank subject", func() {
			_, err := svc.CreateTicket(ctx, customer, service.TicketCreateInput{Subject: "   "})
			Expect(util.IsCode(err, "VALIDATION_FAILED")).To(BeTrue())
		})

		It("rejects an unknown status", func() {
			_, err := svc.CreateTicket(ctx, customer, service.TicketCreateInput{
				Subject: "x", Status: domain.TicketStatus("escalated"),
			})
			Expect(util.IsCode(err, "VALIDATION_FAILED")).To(BeTrue())
		})

		It("requires an actor", func() {
			_, err := svc.CreateTicket(ctx, nil, service.TicketCreateInput{Subject: "x"})
			Expect(util.IsCode(err, "UNAUTHORIZED")).To(BeTrue())
		})

		It("creates the feedback record for a ticket born resolved", func() {
			ticket, err := svc.CreateTicket(ctx, customer, service.TicketCreateInput{
				Subject: "x", Status: domain.TicketStatusResolved,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(feedback.count()).To(Equal(1))
			fb, err := feedback.GetByTicket(ctx, ticket.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(fb.CreatedBy).To(Equal(customer.ID))
		})

		It("publishes no events when storage fails", func() {
			tickets.failOn = "create"
			_, err := svc.CreateTicket(ctx, customer, service.TicketCreateInput{Subject: "x"})
			Expect(err).To(HaveOccurred())
			Expect(rec.ofType(events.EventTicketCreated)).To(BeEmpty())
		})
	})

	Describe("ApplyUpdate", func() {
		var ticket *domain.Ticket

		BeforeEach(func() {
			var err error
			ticket, err = svc.CreateTicket(ctx, customer, service.TicketCreateInput{Subject: "printer down"})
			Expect(err).ToNot(HaveOccurred())
		})

		It("merges only the provided fields", func() {
			priority := domain.TicketPriorityUrgent
			updated, err := svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Priority: &priority})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Priority).To(Equal(domain.TicketPriorityUrgent))
			Expect(updated.Subject).To(Equal("printer down"))
			Expect(updated.Status).To(Equal(domain.TicketStatusOpen))
		})

		It("fires the status side effects on an actual transition", func() {
			status := domain.TicketStatusResolved
			_, err := svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Status: &status})
			Expect(err).ToNot(HaveOccurred())

			changed := rec.ofType(events.EventTicketStatusChanged)
			Expect(changed).To(HaveLen(1))
			payload, ok := changed[0].Payload.(events.TicketStatusChangedPayload)
			Expect(ok).To(BeTrue())
			Expect(payload.OldStatus).To(Equal(domain.TicketStatusOpen))
			Expect(payload.NewStatus).To(Equal(domain.TicketStatusResolved))
			Expect(payload.CreatedBy).To(Equal(customer.ID))
			Expect(feedback.count()).To(Equal(1))
		})

		It("skips the side effects when the status is set to its current value", func() {
			status := domain.TicketStatusOpen
			_, err := svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Status: &status})
			Expect(err).ToNot(HaveOccurred())
			Expect(rec.ofType(events.EventTicketStatusChanged)).To(BeEmpty())
			Expect(feedback.count()).To(BeZero())
		})

		It("creates at most one feedback record across transitions", func() {
			resolved := domain.TicketStatusResolved
			open := domain.TicketStatusOpen
			closed := domain.TicketStatusClosed

			_, err := svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Status: &resolved})
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Status: &open})
			Expect(err).ToNot(HaveOccurred())
			_, err = svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Status: &closed})
			Expect(err).ToNot(HaveOccurred())

			Expect(feedback.count()).To(Equal(1))
			Expect(rec.ofType(events.EventFeedbackCreated)).To(HaveLen(1))
			Expect(rec.ofType(events.EventTicketStatusChanged)).To(HaveLen(3))
		})

		It("allows any transition between statuses", func() {
			for _, to := range []domain.TicketStatus{
				domain.TicketStatusClosed,
				domain.TicketStatusPending,
				domain.TicketStatusResolved,
				domain.TicketStatusOpen,
			} {
				status := to
				updated, err := svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Status: &status})
				Expect(err).ToNot(HaveOccurred())
				Expect(updated.Status).To(Equal(to))
			}
		})

		It("denies an unrelated actor and leaves the ticket unchanged", func() {
			status := domain.TicketStatusClosed
			_, err := svc.ApplyUpdate(ctx, employee, ticket.ID, domain.TicketPatch{Status: &status})
			Expect(util.IsCode(err, "FORBIDDEN")).To(BeTrue())
			Expect(tickets.stored(ticket.ID).Status).To(Equal(domain.TicketStatusOpen))
			Expect(rec.ofType(events.EventTicketUpdated)).To(BeEmpty())
		})

		It("allows a member of the ticket's team", func() {
			teamID := "team-1"
			teams.members[teamID+"/"+employee.ID] = true
			_, err := svc.ApplyUpdate(ctx, admin, ticket.ID, domain.TicketPatch{TeamID: &teamID})
			Expect(err).ToNot(HaveOccurred())

			subject := "rephrased"
			_, err = svc.ApplyUpdate(ctx, employee, ticket.ID, domain.TicketPatch{Subject: &subject})
			Expect(err).ToNot(HaveOccurred())
			Expect(tickets.stored(ticket.ID).Subject).To(Equal("rephrased"))
		})

		It("rejects an unknown priority before touching storage", func() {
			bad := domain.TicketPriority("blocker")
			_, err := svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Priority: &bad})
			Expect(util.IsCode(err, "VALIDATION_FAILED")).To(BeTrue())
			Expect(tickets.stored(ticket.ID).Priority).To(Equal(domain.TicketPriorityMedium))
		})

		It("returns not found for a missing ticket", func() {
			status := domain.TicketStatusClosed
			_, err := svc.ApplyUpdate(ctx, customer, "nope", domain.TicketPatch{Status: &status})
			Expect(util.IsCode(err, "NOT_FOUND")).To(BeTrue())
		})

		It("is a no-op for an empty patch", func() {
			_, err := svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{})
			Expect(err).ToNot(HaveOccurred())
			Expect(rec.ofType(events.EventTicketUpdated)).To(BeEmpty())
		})

		It("fires no side effects when the write fails", func() {
			tickets.failOn = "update"
			status := domain.TicketStatusResolved
			_, err := svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Status: &status})
			Expect(err).To(HaveOccurred())
			Expect(rec.ofType(events.EventTicketStatusChanged)).To(BeEmpty())
			Expect(feedback.count()).To(BeZero())
		})

		It("still reports success when the feedback insert fails", func() {
			feedback.failing = true
			status := domain.TicketStatusResolved
			updated, err := svc.ApplyUpdate(ctx, customer, ticket.ID, domain.TicketPatch{Status: &status})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(domain.TicketStatusResolved))
			Expect(rec.ofType(events.EventTicketStatusChanged)).To(HaveLen(1))
		})
	})

	Describe("DeleteTicket", func() {
		var ticket *domain.Ticket

		BeforeEach(func() {
			var err error
			ticket, err = svc.CreateTicket(ctx, customer, service.TicketCreateInput{Subject: "printer down"})
			Expect(err).ToNot(HaveOccurred())
		})

		It("allows an admin and publishes the deletion", func() {
			Expect(svc.DeleteTicket(ctx, admin, ticket.ID)).To(Succeed())
			_, err := tickets.GetByID(ctx, ticket.ID)
			Expect(err).To(HaveOccurred())
			Expect(rec.ofType(events.EventTicketDeleted)).To(HaveLen(1))
		})

		It("denies the creator", func() {
			err := svc.DeleteTicket(ctx, customer, ticket.ID)
			Expect(util.IsCode(err, "FORBIDDEN")).To(BeTrue())
			Expect(tickets.stored(ticket.ID).ID).To(Equal(ticket.ID))
		})
	})

	Describe("ticket lifecycle", func() {
		It("walks a ticket from creation through resolution", func() {
			ticket, err := svc.CreateTicket(ctx, admin, service.TicketCreateInput{Subject: "Printer down"})
			Expect(err).ToNot(HaveOccurred())
			Expect(ticket.Status).To(Equal(domain.TicketStatusOpen))

			assignee := employee.ID
			_, err = svc.ApplyUpdate(ctx, admin, ticket.ID, domain.TicketPatch{AssignedTo: &assignee})
			Expect(err).ToNot(HaveOccurred())

			resolved := domain.TicketStatusResolved
			_, err = svc.ApplyUpdate(ctx, employee, ticket.ID, domain.TicketPatch{Status: &resolved})
			Expect(err).ToNot(HaveOccurred())
			fb, err := feedback.GetByTicket(ctx, ticket.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(fb.Rating).To(BeNil())

			_, err = svc.ApplyUpdate(ctx, employee, ticket.ID, domain.TicketPatch{Status: &resolved})
			Expect(err).ToNot(HaveOccurred())
			Expect(feedback.count()).To(Equal(1))

			err = svc.DeleteTicket(ctx, customer, ticket.ID)
			Expect(util.IsCode(err, "FORBIDDEN")).To(BeTrue())
		})
	})

	Describe("GetTicket", func() {
		It("applies the relationship rules to reads", func() {
			ticket, err := svc.CreateTicket(ctx, customer, service.TicketCreateInput{Subject: "x"})
			Expect(err).ToNot(HaveOccurred())

			got, err := svc.GetTicket(ctx, customer, ticket.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(ticket.ID))

			_, err = svc.GetTicket(ctx, employee, ticket.ID)
			Expect(util.IsCode(err, "FORBIDDEN")).To(BeTrue())
		})
	})
})
