package capability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/bms-poller/internal/cache"
	"github.com/tamzrod/bms-poller/internal/catalog"
	"github.com/tamzrod/bms-poller/internal/field"
)

type fakeBits struct {
	coils map[uint16]bool
	err   error
	calls int
}

func (f *fakeBits) ReadCoil(_ context.Context, addr uint16) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.coils[addr], nil
}

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func testGate(probes *cache.Cache[ProbeKey, bool]) *Gate {
	return NewGate("iRock", map[string][]field.ID{
		"iRock":     {field.ManufacturerID, field.ProtocolVersion, field.HardwareName},
		"iRock 200": {field.Voltage, field.Current},
	}, probes)
}

func TestIsAllowed(t *testing.T) {
	g := testGate(nil)

	assert.True(t, g.IsAllowed("iRock 200", field.Voltage))
	assert.True(t, g.IsAllowed("iRock 200", field.HardwareName), "base fields apply to every model")
	assert.True(t, g.IsAllowed(" irock 200 ", field.Current), "model names are case and space insensitive")
	assert.False(t, g.IsAllowed("iRock 200", field.Temperature4))

	assert.True(t, g.IsAllowed("", field.HardwareName))
	assert.False(t, g.IsAllowed("", field.Voltage))
	assert.False(t, g.IsAllowed("iRock 999", field.Voltage), "unknown models only get the base set")
	assert.True(t, g.IsAllowed("iRock 999", field.ManufacturerID))

	assert.True(t, g.KnownModel("iRock 200"))
	assert.False(t, g.KnownModel("iRock 999"))
}

func TestIsAllowed_NoBaseAllowsAll(t *testing.T) {
	g := NewGate("", nil, nil)
	assert.True(t, g.IsAllowed("anything", field.Temperature4))
}

func TestFromCatalog(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	g := FromCatalog(c, nil)
	assert.True(t, g.IsAllowed("iRock 424", field.Temperature4))
	assert.False(t, g.IsAllowed("iRock 200", field.Temperature4))
	assert.True(t, g.IsAllowed("iRock 200", field.CellVoltage))
}

func TestProbe_NoIndicator(t *testing.T) {
	g := testGate(nil)
	bits := &fakeBits{}

	ok, _, err := g.Probe(context.Background(), bits, "s1", catalog.Register{Field: field.Voltage})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, bits.calls)
}

func TestProbe_CachedUntilTTL(t *testing.T) {
	clk := &stepClock{now: time.Unix(1000, 0)}
	g := testGate(cache.New[ProbeKey, bool](2*time.Minute, clk))
	bits := &fakeBits{coils: map[uint16]bool{0: false}}
	reg := catalog.Register{Field: field.Current, Indicator: 0, HasIndicator: true}

	ok, hit, err := g.Probe(context.Background(), bits, "s1", reg)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, hit)

	// Firmware update enables the feature; the denial holds until expiry.
	bits.coils[0] = true
	ok, hit, err = g.Probe(context.Background(), bits, "s1", reg)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, hit)
	assert.Equal(t, 1, bits.calls)

	clk.now = clk.now.Add(2 * time.Minute)
	ok, _, err = g.Probe(context.Background(), bits, "s1", reg)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, bits.calls)
}

func TestProbe_FailureNotCached(t *testing.T) {
	clk := &stepClock{now: time.Unix(1000, 0)}
	g := testGate(cache.New[ProbeKey, bool](time.Minute, clk))
	bits := &fakeBits{err: errors.New("timeout")}
	reg := catalog.Register{Field: field.SOC, Indicator: 1, HasIndicator: true}

	_, _, err := g.Probe(context.Background(), bits, "s1", reg)
	require.Error(t, err)

	bits.err = nil
	bits.coils = map[uint16]bool{1: true}
	ok, hit, err := g.Probe(context.Background(), bits, "s1", reg)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, hit)
}

func TestForget(t *testing.T) {
	clk := &stepClock{now: time.Unix(1000, 0)}
	g := testGate(cache.New[ProbeKey, bool](time.Minute, clk))
	bits := &fakeBits{coils: map[uint16]bool{3: true}}
	reg := catalog.Register{Field: field.Temperature1, Indicator: 3, HasIndicator: true}

	_, _, _ = g.Probe(context.Background(), bits, "s1", reg)
	g.Forget("s1")
	_, hit, _ := g.Probe(context.Background(), bits, "s1", reg)
	assert.False(t, hit)
	assert.Equal(t, 2, bits.calls)
}
