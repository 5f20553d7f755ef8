package mention_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/mention"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	calls   [][]string
	err     error
}

func (f *fakeTicketRepo) Create(ctx context.Context, t *domain.Ticket) error { return nil }
func (f *fakeTicketRepo) Update(ctx context.Context, t *domain.Ticket) error { return nil }
func (f *fakeTicketRepo) Delete(ctx context.Context, id string) error        { return nil }
func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTicketRepo) ListByCreator(ctx context.Context, personID string, limit, offset int) ([]domain.Ticket, error) {
	return nil, nil
}
func (f *fakeTicketRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Ticket, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ids)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Ticket
	for _, id := range ids {
		if t, ok := f.tickets[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakePersonRepo struct {
	mu      sync.Mutex
	persons map[string]domain.Person
	calls   [][]string
}

func (f *fakePersonRepo) Create(ctx context.Context, p *domain.Person) error { return nil }
func (f *fakePersonRepo) GetByID(ctx context.Context, id string) (*domain.Person, error) {
	return nil, errors.New("not implemented")
}
func (f *fakePersonRepo) GetByEmail(ctx context.Context, email string) (*domain.Person, error) {
	return nil, errors.New("not implemented")
}
func (f *fakePersonRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Person, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ids)
	f.mu.Unlock()
	var out []domain.Person
	for _, id := range ids {
		if p, ok := f.persons[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeMessageRepo struct{}

func (fakeMessageRepo) Create(ctx context.Context, m *domain.Message) error { return nil }
func (fakeMessageRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Message, error) {
	return nil, nil
}
func (fakeMessageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	return nil, nil
}

type fakeTemplateRepo struct{}

func (fakeTemplateRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.MessageTemplate, error) {
	return nil, nil
}

type fakeTeamRepo struct {
	teams  map[string]domain.Team
	member bool
	err    error
}

func (f *fakeTeamRepo) Create(ctx context.Context, t *domain.Team) error { return nil }
func (f *fakeTeamRepo) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTeamRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Team, error) {
	var out []domain.Team
	for _, id := range ids {
		if t, ok := f.teams[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f *fakeTeamRepo) IsMember(ctx context.Context, teamID, personID string) (bool, error) {
	return f.member, f.err
}
func (f *fakeTeamRepo) AddMember(ctx context.Context, teamID, personID string) error { return nil }

var _ = Describe("Resolver", func() {
	var (
		tickets  *fakeTicketRepo
		persons  *fakePersonRepo
		teams    *fakeTeamRepo
		resolver *mention.Resolver
	)

	BeforeEach(func() {
		tickets = &fakeTicketRepo{tickets: map[string]domain.Ticket{
			"42": {ID: "42", Subject: "printer down", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityHigh, CreatedBy: "c1"},
		}}
		persons = &fakePersonRepo{persons: map[string]domain.Person{
			"c1": {ID: "c1", Name: "Ada", Email: "ada@example.com", Role: domain.PersonRoleCustomer},
			"e1": {ID: "e1", Name: "Grace", Email: "grace@example.com", Role: domain.PersonRoleEmployee},
		}}
		teams = &fakeTeamRepo{teams: map[string]domain.Team{
			"t1": {ID: "t1", Name: "support"},
		}}
		resolver = mention.NewResolver(mention.ResolverDependencies{
			Tickets:   tickets,
			Messages:  fakeMessageRepo{},
			Persons:   persons,
			Templates: fakeTemplateRepo{},
			Teams:     teams,
			Logger:    zap.NewNop(),
		})
	})

	It("resolves ids of every requested kind", func() {
		requests := domain.EntityIDSet{}
		requests.Add(domain.KindTicket, "42")
		requests.Add(domain.KindCustomer, "c1")
		requests.Add(domain.KindTeam, "t1")

		set, err := resolver.Resolve(context.Background(), requests)
		Expect(err).ToNot(HaveOccurred())

		ticket, ok := set.Get(domain.KindTicket, "42")
		Expect(ok).To(BeTrue())
		Expect(ticket.Label).To(Equal("printer down"))
		Expect(string(ticket.Record)).To(ContainSubstring(`"subject":"printer down"`))

		_, ok = set.Get(domain.KindCustomer, "c1")
		Expect(ok).To(BeTrue())
		_, ok = set.Get(domain.KindTeam, "t1")
		Expect(ok).To(BeTrue())
	})

	It("batches each kind into a single repository call", func() {
		requests := domain.EntityIDSet{}
		requests.Add(domain.KindTicket, "42")
		requests.Add(domain.KindTicket, "42")
		requests.Add(domain.KindTicket, "missing")

		_, err := resolver.Resolve(context.Background(), requests)
		Expect(err).ToNot(HaveOccurred())
		Expect(tickets.calls).To(HaveLen(1))
		Expect(tickets.calls[0]).To(ConsistOf("42", "missing"))
	})

	It("drops unresolved ids without error", func() {
		requests := domain.EntityIDSet{}
		requests.Add(domain.KindTicket, "missing")

		set, err := resolver.Resolve(context.Background(), requests)
		Expect(err).ToNot(HaveOccurred())
		_, ok := set.Get(domain.KindTicket, "missing")
		Expect(ok).To(BeFalse())
	})

	It("never exposes credentials in a person record", func() {
		persons.persons["c1"] = domain.Person{
			ID: "c1", Name: "Ada", Email: "ada@example.com",
			PasswordHash: "bcrypt-secret", Role: domain.PersonRoleCustomer,
		}
		requests := domain.EntityIDSet{}
		requests.Add(domain.KindCustomer, "c1")

		set, err := resolver.Resolve(context.Background(), requests)
		Expect(err).ToNot(HaveOccurred())
		person, ok := set.Get(domain.KindCustomer, "c1")
		Expect(ok).To(BeTrue())
		Expect(string(person.Record)).ToNot(ContainSubstring("bcrypt-secret"))
	})

	It("resolves customer and employee kinds against the same store", func() {
		requests := domain.EntityIDSet{}
		requests.Add(domain.KindCustomer, "c1")
		requests.Add(domain.KindEmployee, "e1")

		set, err := resolver.Resolve(context.Background(), requests)
		Expect(err).ToNot(HaveOccurred())

		customer, ok := set.Get(domain.KindCustomer, "c1")
		Expect(ok).To(BeTrue())
		Expect(customer.Label).To(Equal("Ada"))
		employee, ok := set.Get(domain.KindEmployee, "e1")
		Expect(ok).To(BeTrue())
		Expect(employee.Label).To(Equal("Grace"))
	})

	It("propagates a repository failure", func() {
		tickets.err = errors.New("connection reset")
		requests := domain.EntityIDSet{}
		requests.Add(domain.KindTicket, "42")

		_, err := resolver.Resolve(context.Background(), requests)
		Expect(err).To(MatchError(ContainSubstring("connection reset")))
	})

	It("returns an empty set for an empty request", func() {
		set, err := resolver.Resolve(context.Background(), domain.EntityIDSet{})
		Expect(err).ToNot(HaveOccurred())
		Expect(set).To(BeEmpty())
	})
})
