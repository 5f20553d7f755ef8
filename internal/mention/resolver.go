package mention

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-agent/internal/domain"
	"github.com/spec-kit/crm-agent/internal/repository"
)

// Resolved is one materialized entity record keyed by its reference.
type Resolved struct {
	Ref    domain.EntityRef `json:"-"`
	Label  string           `json:"label"`
	Record json.RawMessage  `json:"record"`
}

// Set holds resolution results grouped by kind. Ids that failed to resolve
// are simply absent.
type Set map[domain.EntityKind]map[string]Resolved

// Get looks up one resolved entity.
func (s Set) Get(kind domain.EntityKind, id string) (Resolved, bool) {
	byID, ok := s[kind]
	if !ok {
		return Resolved{}, false
	}
	entity, ok := byID[id]
	return entity, ok
}

func (s Set) put(entity Resolved) {
	byID, ok := s[entity.Ref.Kind]
	if !ok {
		byID = map[string]Resolved{}
		s[entity.Ref.Kind] = byID
	}
	byID[entity.Ref.ID] = entity
}

// lookup resolves a batch of ids of one kind and returns only the found ones.
type lookup func(ctx context.Context, ids []string) ([]Resolved, error)

// Resolver maps typed identifiers to authoritative records for every mention
// kind. One batched lookup per non-empty kind, fanned out concurrently, with
// a short-TTL redis cache in front of the repositories.
type Resolver struct {
	lookups map[domain.EntityKind]lookup
	cache   *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
}

// ResolverDependencies bundles the repositories behind the resolver.
type ResolverDependencies struct {
	Tickets   repository.TicketRepository
	Messages  repository.MessageRepository
	Persons   repository.PersonRepository
	Templates repository.TemplateRepository
	Teams     repository.TeamRepository
	Cache     *redis.Client
	CacheTTL  time.Duration
	Logger    *zap.Logger
}

// NewResolver builds the kind registry. Customer and employee mentions share
// the persons lookup; only the tag kind differs.
func NewResolver(deps ResolverDependencies) *Resolver {
	r := &Resolver{
		lookups: map[domain.EntityKind]lookup{},
		cache:   deps.Cache,
		ttl:     deps.CacheTTL,
		logger:  deps.Logger,
	}
	r.lookups[domain.KindTicket] = ticketLookup(deps.Tickets)
	r.lookups[domain.KindMessage] = messageLookup(deps.Messages)
	r.lookups[domain.KindCustomer] = personLookup(deps.Persons, domain.KindCustomer)
	r.lookups[domain.KindEmployee] = personLookup(deps.Persons, domain.KindEmployee)
	r.lookups[domain.KindTemplate] = templateLookup(deps.Templates)
	r.lookups[domain.KindTeam] = teamLookup(deps.Teams)
	return r
}

// Resolve expands the requested ids into full records, one batched lookup per
// kind, all kinds concurrently. Unknown kinds and unresolved ids are dropped.
func (r *Resolver) Resolve(ctx context.Context, requests domain.EntityIDSet) (Set, error) {
	result := Set{}
	if requests.Empty() {
		return result, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for kind, ids := range requests {
		look, ok := r.lookups[kind]
		if !ok || len(ids) == 0 {
			if !ok && r.logger != nil {
				r.logger.Warn("unknown mention kind requested", zap.String("kind", string(kind)))
			}
			continue
		}
		wg.Add(1)
		go func(kind domain.EntityKind, ids []string, look lookup) {
			defer wg.Done()
			entities, err := r.resolveKind(ctx, kind, dedupe(ids), look)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for _, entity := range entities {
				result.put(entity)
			}
		}(kind, ids, look)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return result, nil
}

func (r *Resolver) resolveKind(ctx context.Context, kind domain.EntityKind, ids []string, look lookup) ([]Resolved, error) {
	resolved, missing := r.readCache(ctx, kind, ids)
	if len(missing) == 0 {
		return resolved, nil
	}

	fetched, err := look(ctx, missing)
	if err != nil {
		return nil, err
	}
	r.writeCache(ctx, fetched)
	return append(resolved, fetched...), nil
}

func (r *Resolver) readCache(ctx context.Context, kind domain.EntityKind, ids []string) (hits []Resolved, missing []string) {
	if r.cache == nil {
		return nil, ids
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(kind, id)
	}
	values, err := r.cache.MGet(ctx, keys...).Result()
	if err != nil {
		// cache misbehaving is not fatal; hit the repositories instead
		return nil, ids
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var entity Resolved
		if err := json.Unmarshal([]byte(raw), &entity); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		entity.Ref = domain.EntityRef{Kind: kind, ID: ids[i]}
		hits = append(hits, entity)
	}
	return hits, missing
}

func (r *Resolver) writeCache(ctx context.Context, entities []Resolved) {
	if r.cache == nil || r.ttl <= 0 {
		return
	}
	for _, entity := range entities {
		payload, err := json.Marshal(entity)
		if err != nil {
			continue
		}
		if err := r.cache.Set(ctx, cacheKey(entity.Ref.Kind, entity.Ref.ID), payload, r.ttl).Err(); err != nil && r.logger != nil {
			r.logger.Debug("mention cache write failed", zap.Error(err))
		}
	}
}

func cacheKey(kind domain.EntityKind, id string) string {
	return fmt.Sprintf("mention:%s:%s", kind, id)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
