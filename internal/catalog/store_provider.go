package catalog

import (
	"context"
	"encoding/json"
	"time"

	"goldhub/internal/cache"

	"go.uber.org/zap"
)

// ChallengeStore is the persistence boundary for admin-defined challenges.
// Implemented by repositories.ChallengeRepository.
type ChallengeStore interface {
	ListChallenges(ctx context.Context) ([]ChallengeDefinition, error)
}

// StoreProvider merges the static definition tables with admin-defined
// challenges from the store. Definitions are cached briefly; the active-now
// window filter is still applied on every read so a cached definition can
// never appear active past its window.
type StoreProvider struct {
	static *StaticProvider
	store  ChallengeStore
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

const challengeCacheKey = "catalog:challenges"

// NewStoreProvider creates a provider backed by the static tables plus the
// challenge store.
func NewStoreProvider(static *StaticProvider, store ChallengeStore, c cache.Cache, ttl time.Duration, logger *zap.Logger) *StoreProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StoreProvider{static: static, store: store, cache: c, ttl: ttl, logger: logger}
}

// ActiveBadges returns the active badge definitions. Badges are static
// only; there is no admin badge store.
func (p *StoreProvider) ActiveBadges(ctx context.Context) ([]BadgeDefinition, error) {
	return p.static.ActiveBadges(ctx)
}

// ActiveChallenges returns static and stored challenges live at now. Stored
// definitions shadow static ones with the same ID.
func (p *StoreProvider) ActiveChallenges(ctx context.Context, now time.Time) ([]ChallengeDefinition, error) {
	stored, err := p.storedChallenges(ctx)
	if err != nil {
		// The static table still works without the store; degrade rather
		// than fail the evaluation that asked.
		p.logger.Warn("Failed to load stored challenges, serving static table only", zap.Error(err))
		stored = nil
	}

	byID := make(map[string]struct{}, len(stored))
	merged := make([]ChallengeDefinition, 0, len(stored)+len(p.static.challenges))
	for _, c := range stored {
		if c.ActiveAt(now) {
			merged = append(merged, c)
		}
		byID[c.ID] = struct{}{}
	}
	for _, c := range p.static.challenges {
		if _, shadowed := byID[c.ID]; shadowed {
			continue
		}
		if c.ActiveAt(now) {
			merged = append(merged, c)
		}
	}
	return merged, nil
}

func (p *StoreProvider) storedChallenges(ctx context.Context) ([]ChallengeDefinition, error) {
	if p.cache != nil {
		if cached, found := p.cache.Get(ctx, challengeCacheKey); found {
			if defs, ok := decodeCachedChallenges(cached); ok {
				return defs, nil
			}
		}
	}

	defs, err := p.store.ListChallenges(ctx)
	if err != nil {
		return nil, err
	}

	// Malformed rows are skipped, never served.
	valid := defs[:0]
	for i := range defs {
		if err := ValidateChallenge(&defs[i]); err != nil {
			p.logger.Warn("Skipping malformed stored challenge",
				zap.String("challenge_id", defs[i].ID),
				zap.Error(err),
			)
			continue
		}
		valid = append(valid, defs[i])
	}

	p.cacheChallenges(ctx, valid)
	return valid, nil
}

// cacheChallenges stores the list in its JSON form. The Redis backend hands
// values back as decoded interface{}, so a typed slice would never survive
// the round trip; a JSON string does with either backend.
func (p *StoreProvider) cacheChallenges(ctx context.Context, defs []ChallengeDefinition) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(defs)
	if err != nil {
		p.logger.Warn("Failed to encode challenges for cache", zap.Error(err))
		return
	}
	if err := p.cache.Set(ctx, challengeCacheKey, string(data), p.ttl); err != nil {
		p.logger.Warn("Failed to cache stored challenges", zap.Error(err))
	}
}

func decodeCachedChallenges(cached interface{}) ([]ChallengeDefinition, bool) {
	var raw []byte
	switch v := cached.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, false
	}
	var defs []ChallengeDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, false
	}
	return defs, true
}

// Invalidate drops the cached challenge list, used after admin edits.
func (p *StoreProvider) Invalidate(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, challengeCacheKey); err != nil {
		p.logger.Warn("Failed to invalidate challenge cache", zap.Error(err))
	}
}

var _ Provider = (*StoreProvider)(nil)
