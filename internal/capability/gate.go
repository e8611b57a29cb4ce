// Package capability decides whether a field should be attempted on the
// connected hardware: first by the static per-model allow-list, then, when
// the register declares one, by probing the runtime support coil.
package capability

import (
	"context"
	"strings"

	"github.com/tamzrod/bms-poller/internal/cache"
	"github.com/tamzrod/bms-poller/internal/catalog"
	"github.com/tamzrod/bms-poller/internal/field"
)

// BitReader performs one single-bit read on the device being gated.
type BitReader interface {
	ReadCoil(ctx context.Context, address uint16) (bool, error)
}

// ProbeKey identifies a memoized probe result. Session scopes results to
// one connection of one device.
type ProbeKey struct {
	Session   string
	Indicator uint16
}

// Gate is read-only after construction except for its probe cache.
type Gate struct {
	base   string
	sets   map[string]map[field.ID]struct{}
	probes *cache.Cache[ProbeKey, bool]
}

// NewGate builds a gate from per-model allow-lists. base names the generic
// model whose fields every model may expose. An empty base disables the
// allow-list entirely. probes may be nil to disable memoization.
func NewGate(base string, models map[string][]field.ID, probes *cache.Cache[ProbeKey, bool]) *Gate {
	g := &Gate{
		base:   base,
		sets:   make(map[string]map[field.ID]struct{}, len(models)),
		probes: probes,
	}
	for name, ids := range models {
		set := make(map[field.ID]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		g.sets[normalize(name)] = set
	}
	return g
}

// FromCatalog builds a gate from the catalog's model section.
func FromCatalog(c *catalog.Catalog, probes *cache.Cache[ProbeKey, bool]) *Gate {
	return NewGate(c.BaseModel(), c.Models(), probes)
}

func normalize(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}

// IsAllowed reports whether model may expose id. Unknown models, including
// the empty name used before identification, only get the base set.
func (g *Gate) IsAllowed(model string, id field.ID) bool {
	if g.base == "" {
		return true
	}
	if _, ok := g.sets[normalize(g.base)][id]; ok {
		return true
	}
	_, ok := g.sets[normalize(model)][id]
	return ok
}

// KnownModel reports whether model has its own allow-list.
func (g *Gate) KnownModel(model string) bool {
	_, ok := g.sets[normalize(model)]
	return ok
}

// Probe checks the runtime support coil of reg. Registers without an
// indicator are always available. A denied result is memoized like a
// granted one; read failures are not. The second result reports whether
// the answer came from the cache.
func (g *Gate) Probe(ctx context.Context, r BitReader, session string, reg catalog.Register) (bool, bool, error) {
	if !reg.HasIndicator {
		return true, false, nil
	}
	read := func() (bool, error) {
		return r.ReadCoil(ctx, reg.Indicator)
	}
	if g.probes == nil {
		ok, err := read()
		return ok, false, err
	}
	return g.probes.GetOrCompute(ProbeKey{Session: session, Indicator: reg.Indicator}, read)
}

// Forget drops memoized probes of a session.
func (g *Gate) Forget(session string) {
	if g.probes == nil {
		return
	}
	g.probes.InvalidateFunc(func(k ProbeKey) bool { return k.Session == session })
}
