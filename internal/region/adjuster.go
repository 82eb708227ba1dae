// internal/region/adjuster.go
package region

import (
	"sort"
	"sync"
	"time"

	"github.com/mounika-192643/InsightSphere-AI/internal/domain"
)

// NationwideScope is the terminal fallback location.
const NationwideScope = "nationwide"

// states maps known cities to their state. Resolution never interpolates
// between unrelated regions: a city either matches exactly, falls back to its
// state, or to the nationwide default.
var states = map[string]string{
	"Mumbai":     "Maharashtra",
	"Pune":       "Maharashtra",
	"Nagpur":     "Maharashtra",
	"Delhi":      "Delhi",
	"Bengaluru":  "Karnataka",
	"Mysuru":     "Karnataka",
	"Chennai":    "Tamil Nadu",
	"Coimbatore": "Tamil Nadu",
	"Hyderabad":  "Telangana",
	"Kolkata":    "West Bengal",
	"Ahmedabad":  "Gujarat",
	"Surat":      "Gujarat",
	"Jaipur":     "Rajasthan",
	"Lucknow":    "Uttar Pradesh",
	"Kochi":      "Kerala",
}

// StateOf resolves a city to its state.
func StateOf(city string) (string, bool) {
	s, ok := states[city]
	return s, ok
}

type factorKey struct {
	location string
	category string
}

// Adjuster holds versioned regional market factors. One factor is active per
// (location, category) at a time; updates supersede, old versions are kept
// for audit. Cycles read through an immutable Snapshot.
type Adjuster struct {
	mu      sync.RWMutex
	version int
	active  map[factorKey]domain.RegionalFactor
	history map[factorKey][]domain.RegionalFactor
}

// NewAdjuster creates an empty regional adjuster.
func NewAdjuster() *Adjuster {
	return &Adjuster{
		active:  make(map[factorKey]domain.RegionalFactor),
		history: make(map[factorKey][]domain.RegionalFactor),
	}
}

// Upsert supersedes the active factor for (location, category). The previous
// version is retained, never mutated.
func (a *Adjuster) Upsert(f domain.RegionalFactor) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := factorKey{location: f.Location, category: f.Category}
	if prev, ok := a.active[key]; ok {
		a.history[key] = append(a.history[key], prev)
		f.Version = prev.Version + 1
	} else {
		f.Version = 1
	}
	if f.EffectiveAt.IsZero() {
		f.EffectiveAt = time.Now().UTC()
	}
	a.active[key] = f
	a.version++
}

// History returns superseded versions for a (location, category), oldest first.
func (a *Adjuster) History(location, category string) []domain.RegionalFactor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	hist := a.history[factorKey{location: location, category: category}]
	out := make([]domain.RegionalFactor, len(hist))
	copy(out, hist)
	return out
}

// Snapshot returns an immutable view for one cycle.
func (a *Adjuster) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	active := make(map[factorKey]domain.RegionalFactor, len(a.active))
	for k, v := range a.active {
		active[k] = v
	}
	return &Snapshot{Version: a.version, active: active}
}

// Snapshot is a read-only view of the active regional factors.
type Snapshot struct {
	Version int
	active  map[factorKey]domain.RegionalFactor
}

// Resolve returns the active factor for a (location, category) using the
// documented fallback chain: city, then the city's state, then nationwide.
// The boolean is false only when not even a nationwide default exists; the
// caller then uses a neutral factor.
func (s *Snapshot) Resolve(location, category string) (domain.RegionalFactor, bool) {
	if f, ok := s.active[factorKey{location: location, category: category}]; ok {
		return f, true
	}
	if state, ok := StateOf(location); ok {
		if f, ok := s.active[factorKey{location: state, category: category}]; ok {
			return f, true
		}
	}
	if f, ok := s.active[factorKey{location: NationwideScope, category: category}]; ok {
		return f, true
	}
	return domain.RegionalFactor{}, false
}

// Neutral is the identity factor used when no scope matches.
func Neutral(location, category string) domain.RegionalFactor {
	return domain.RegionalFactor{Location: location, Category: category}
}

// Factors lists active factors in deterministic order, for introspection.
func (s *Snapshot) Factors() []domain.RegionalFactor {
	out := make([]domain.RegionalFactor, 0, len(s.active))
	for _, f := range s.active {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].Category < out[j].Category
	})
	return out
}
