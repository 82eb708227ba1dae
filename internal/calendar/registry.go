// internal/calendar/registry.go
package calendar

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// Registry holds the versioned event calendar. Cycles never read the registry
// directly: they take a Snapshot at cycle start so mid-cycle updates cannot
// retroactively change results already computed in that cycle.
type Registry struct {
	mu      sync.RWMutex
	version int
	events  map[string]Event
	stateOf func(string) (string, bool)
}

// NewRegistry creates an empty registry. stateOf resolves a city to its state
// for state-scoped events; nil disables state matching.
func NewRegistry(stateOf func(string) (string, bool)) *Registry {
	return &Registry{
		events:  make(map[string]Event),
		stateOf: stateOf,
	}
}

// Upsert adds or replaces an event by name and bumps the registry version.
func (r *Registry) Upsert(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.BaseMultiplier <= 0 {
		log.Warn().Str("event", e.Name).Float64("multiplier", e.BaseMultiplier).
			Msg("calendar: ignoring event with non-positive multiplier")
		return
	}
	r.events[e.Name] = e
	r.version++
}

// Remove deletes an event by name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[name]; ok {
		delete(r.events, name)
		r.version++
	}
}

// Snapshot returns an immutable view of the registry for one cycle.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		events = append(events, e)
	}
	// Stable order keeps provenance lists deterministic across runs.
	sort.Slice(events, func(i, j int) bool { return events[i].Name < events[j].Name })

	return &Snapshot{
		Version: r.version,
		events:  events,
		stateOf: r.stateOf,
	}
}

// Snapshot is a read-only calendar view taken at cycle start.
type Snapshot struct {
	Version int
	events  []Event
	stateOf func(string) (string, bool)
}

// maxComposite is the sanity cap on a composed multiplier. Compositions above
// it almost always mean duplicated or mis-scoped registry data; the factor is
// still served best-effort but flagged as an adjustment conflict.
const maxComposite = 10.0

// FactorFor composes every applicable event multiplier for a (category,
// location, date) by multiplication. Events are treated as independent and
// multiplicative on demand: overlapping festivals of different regions or
// religions in the same window compose, they are never reduced to one.
func (s *Snapshot) FactorFor(category, location string, date time.Time) domain.CompositeFactor {
	factor := domain.CompositeFactor{Multiplier: 1}

	for _, e := range s.events {
		if !e.appliesTo(category, location, s.stateOf) {
			continue
		}
		m := e.MultiplierOn(date)
		if m == 1 {
			continue
		}
		factor.Multiplier *= m
		factor.Provenance = append(factor.Provenance, domain.FactorContribution{
			Event:      e.Name,
			Multiplier: m,
		})
	}

	if factor.Multiplier > maxComposite {
		factor.Conflicting = true
	}

	return factor
}

// Events returns the snapshot's events, for registry introspection endpoints.
func (s *Snapshot) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
