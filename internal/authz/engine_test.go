package authz_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/authz"
	"github.com/spec-kit/crm-agent/internal/domain"
)

type membershipStub struct {
	member bool
	err    error
	calls  int
}

func (m *membershipStub) Create(ctx context.Context, t *domain.Team) error { return nil }
func (m *membershipStub) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	return nil, errors.New("not implemented")
}
func (m *membershipStub) GetByIDs(ctx context.Context, ids []string) ([]domain.Team, error) {
	return nil, nil
}
func (m *membershipStub) AddMember(ctx context.Context, teamID, personID string) error { return nil }
func (m *membershipStub) IsMember(ctx context.Context, teamID, personID string) (bool, error) {
	m.calls++
	return m.member, m.err
}

var _ = Describe("Engine", func() {
	var (
		teams  *membershipStub
		engine *authz.Engine
		ctx    context.Context

		admin    *domain.Person
		employee *domain.Person
		customer *domain.Person
	)

	teamID := "team-1"

	BeforeEach(func() {
		teams = &membershipStub{}
		engine = authz.NewEngine(teams, zap.NewNop())
		ctx = context.Background()

		admin = &domain.Person{ID: "a1", Role: domain.PersonRoleAdmin}
		employee = &domain.Person{ID: "e1", Role: domain.PersonRoleEmployee}
		customer = &domain.Person{ID: "c1", Role: domain.PersonRoleCustomer}
	})

	Describe("create", func() {
		It("allows any authenticated actor", func() {
			Expect(engine.CanMutate(ctx, customer, authz.ActionCreate, nil)).To(BeTrue())
			Expect(engine.CanMutate(ctx, employee, authz.ActionCreate, nil)).To(BeTrue())
			Expect(engine.CanMutate(ctx, admin, authz.ActionCreate, nil)).To(BeTrue())
		})

		It("denies a missing actor", func() {
			Expect(engine.CanMutate(ctx, nil, authz.ActionCreate, nil)).To(BeFalse())
		})
	})

	Describe("delete", func() {
		ticket := &domain.Ticket{ID: "t1", CreatedBy: "c1"}

		It("allows admins only", func() {
			Expect(engine.CanMutate(ctx, admin, authz.ActionDelete, ticket)).To(BeTrue())
			Expect(engine.CanMutate(ctx, employee, authz.ActionDelete, ticket)).To(BeFalse())
		})

		It("denies even the creator", func() {
			Expect(engine.CanMutate(ctx, customer, authz.ActionDelete, ticket)).To(BeFalse())
		})
	})

	Describe("update", func() {
		It("allows an admin regardless of relationship", func() {
			ticket := &domain.Ticket{ID: "t1", CreatedBy: "someone-else"}
			Expect(engine.CanMutate(ctx, admin, authz.ActionUpdate, ticket)).To(BeTrue())
		})

		It("allows the assignee", func() {
			assignee := employee.ID
			ticket := &domain.Ticket{ID: "t1", CreatedBy: "c9", AssignedTo: &assignee}
			Expect(engine.CanMutate(ctx, employee, authz.ActionUpdate, ticket)).To(BeTrue())
		})

		It("allows the creator", func() {
			ticket := &domain.Ticket{ID: "t1", CreatedBy: customer.ID}
			Expect(engine.CanMutate(ctx, customer, authz.ActionUpdate, ticket)).To(BeTrue())
		})

		It("allows a member of the assigned team", func() {
			teams.member = true
			ticket := &domain.Ticket{ID: "t1", CreatedBy: "c9", TeamID: &teamID}
			Expect(engine.CanMutate(ctx, employee, authz.ActionUpdate, ticket)).To(BeTrue())
			Expect(teams.calls).To(Equal(1))
		})

		It("denies an unrelated actor", func() {
			ticket := &domain.Ticket{ID: "t1", CreatedBy: "c9", TeamID: &teamID}
			Expect(engine.CanMutate(ctx, employee, authz.ActionUpdate, ticket)).To(BeFalse())
		})

		It("skips the membership lookup when the ticket has no team", func() {
			ticket := &domain.Ticket{ID: "t1", CreatedBy: "c9"}
			Expect(engine.CanMutate(ctx, employee, authz.ActionUpdate, ticket)).To(BeFalse())
			Expect(teams.calls).To(BeZero())
		})

		It("fails closed when the membership lookup errors", func() {
			teams.member = true
			teams.err = errors.New("timeout")
			ticket := &domain.Ticket{ID: "t1", CreatedBy: "c9", TeamID: &teamID}
			Expect(engine.CanMutate(ctx, employee, authz.ActionUpdate, ticket)).To(BeFalse())
		})

		It("denies when the ticket is missing", func() {
			Expect(engine.CanMutate(ctx, admin, authz.ActionUpdate, nil)).To(BeFalse())
		})
	})

	It("denies unknown actions", func() {
		ticket := &domain.Ticket{ID: "t1", CreatedBy: admin.ID}
		Expect(engine.CanMutate(ctx, admin, authz.Action("escalate"), ticket)).To(BeFalse())
	})
})
