package poller

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/bms-poller/internal/cache"
	"github.com/tamzrod/bms-poller/internal/capability"
	"github.com/tamzrod/bms-poller/internal/catalog"
	"github.com/tamzrod/bms-poller/internal/codec"
	"github.com/tamzrod/bms-poller/internal/field"
	"github.com/tamzrod/bms-poller/internal/lock"
	"github.com/tamzrod/bms-poller/internal/metrics"
	"github.com/tamzrod/bms-poller/internal/transport"
	"github.com/tamzrod/bms-poller/internal/version"
)

// Defaults for Options.
const (
	DefaultFieldTTL    = time.Second
	DefaultProbeTTL    = 2 * time.Minute
	DefaultMaxFailures = 3
)

// errDenied aborts a cached read when the capability probe says no.
// Being an error, it is never stored as a field value.
var errDenied = errors.New("capability denied")

// fieldKey addresses one memoized field value. Cell is -1 for device-level
// fields. Session scopes the entry to one connection.
type fieldKey struct {
	Session string
	Field   field.ID
	Cell    int
}

// Options is the runtime config the engine needs.
type Options struct {
	Catalog *catalog.Catalog
	Locks   *lock.Registry

	FieldTTL    time.Duration
	ProbeTTL    time.Duration
	MaxFailures int

	Clock   cache.Clock
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Engine answers "read field F (optionally for cell C) of this device" and
// composes whole-device passes from it. One engine serves every device.
type Engine struct {
	catalog  *catalog.Catalog
	gate     *capability.Gate
	locks    *lock.Registry
	fields   *cache.Cache[fieldKey, codec.Value]
	versions *cache.Cache[string, version.Version]

	maxFailures int
	clock       cache.Clock
	log         *slog.Logger
	metrics     *metrics.Metrics
}

// NewEngine creates an engine. Zero options get the defaults.
func NewEngine(o Options) (*Engine, error) {
	if o.Catalog == nil {
		return nil, errors.New("poller: catalog required")
	}
	if o.Locks == nil {
		o.Locks = lock.NewRegistry()
	}
	if o.FieldTTL <= 0 {
		o.FieldTTL = DefaultFieldTTL
	}
	if o.ProbeTTL <= 0 {
		o.ProbeTTL = DefaultProbeTTL
	}
	if o.MaxFailures <= 0 {
		o.MaxFailures = DefaultMaxFailures
	}
	if o.Clock == nil {
		o.Clock = cache.SystemClock
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return &Engine{
		catalog:     o.Catalog,
		gate:        capability.FromCatalog(o.Catalog, cache.New[capability.ProbeKey, bool](o.ProbeTTL, o.Clock)),
		locks:       o.Locks,
		fields:      cache.New[fieldKey, codec.Value](o.FieldTTL, o.Clock),
		versions:    cache.New[string, version.Version](o.ProbeTTL, o.Clock),
		maxFailures: o.MaxFailures,
		clock:       o.Clock,
		log:         o.Logger,
		metrics:     o.Metrics,
	}, nil
}

// ReadField reads a device-level field into the device store. Soft
// failures come back as a Skipped result with a nil error.
func (e *Engine) ReadField(ctx context.Context, d *Device, id field.ID) (Result, error) {
	if !id.Valid() || id.Cell() {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownField, id)
	}

	v, hit, err := e.resolveVersion(ctx, d)
	if err != nil {
		return Result{}, err
	}

	if id == field.ProtocolVersion {
		if !d.fields.Has(id) {
			d.fields.Set(id, codec.VersionValue(v), e.clock.Now())
		}
		if hit {
			return Result{Outcome: Cached}, nil
		}
		return Result{Outcome: Read}, nil
	}

	reg, err := e.catalog.Resolve(v, id)
	if err != nil {
		return e.resolveFailed(v, id, err)
	}
	return e.read(ctx, d, reg, -1, d.fields)
}

// ReadCellField reads a per-cell field into the store of cell.
func (e *Engine) ReadCellField(ctx context.Context, d *Device, id field.ID, cell int) (Result, error) {
	if !id.Valid() || !id.Cell() {
		return Result{}, fmt.Errorf("%w: %s is not a cell field", ErrUnknownField, id)
	}
	store := d.Cell(cell)
	if store == nil {
		return Result{}, fmt.Errorf("%w: %d of %d", ErrCellOutOfRange, cell, d.CellCount())
	}

	v, _, err := e.resolveVersion(ctx, d)
	if err != nil {
		return Result{}, err
	}

	creg, err := e.catalog.ResolveCell(v, id)
	if err != nil {
		return e.resolveFailed(v, id, err)
	}
	return e.read(ctx, d, creg.At(cell), cell, store)
}

// ReadFieldByName resolves an upstream register-table name and reads it.
func (e *Engine) ReadFieldByName(ctx context.Context, d *Device, name string) (Result, error) {
	id, ok := field.Lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return e.ReadField(ctx, d, id)
}

func (e *Engine) resolveFailed(v version.Version, id field.ID, err error) (Result, error) {
	switch {
	case errors.Is(err, catalog.ErrUnsupportedVersion):
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedProtocolVersion, v)
	case errors.Is(err, catalog.ErrNotFound) && e.catalog.Known(id):
		return Result{Outcome: Skipped, Skip: SkipNotInVersion}, nil
	case errors.Is(err, catalog.ErrNotFound):
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownField, id)
	default:
		return Result{}, err
	}
}

// read gates, reads, decodes and stores one resolved register.
func (e *Engine) read(ctx context.Context, d *Device, reg catalog.Register, cell int, store *field.Store) (Result, error) {
	if !e.gate.IsAllowed(d.Model(), reg.Field) {
		return Result{Outcome: Skipped, Skip: SkipUnsupportedByModel}, nil
	}

	session := d.Session()
	key := fieldKey{Session: session, Field: reg.Field, Cell: cell}

	val, hit, err := e.fields.GetOrCompute(key, func() (codec.Value, error) {
		ok, probeHit, err := e.gate.Probe(ctx, coilReader{e: e, d: d}, session, reg)
		if reg.HasIndicator {
			e.metrics.CacheLookup("probe", probeHit)
		}
		if err != nil {
			return codec.Value{}, err
		}
		if !ok {
			return codec.Value{}, errDenied
		}

		raw, err := e.readRegisters(ctx, d, reg.Address, reg.Registers())
		if err != nil {
			return codec.Value{}, err
		}
		v, err := codec.Decode(raw, reg.Type, reg.Count)
		if err != nil {
			e.metrics.DecodeError(d.id)
			e.log.Warn("decode failed",
				"device", d.id, "field", reg.Field.String(), "cell", cell,
				"type", reg.Type.String(), "raw", hex.EncodeToString(raw), "err", err)
			return codec.Value{}, err
		}
		return v, nil
	})
	e.metrics.CacheLookup("field", hit)

	switch {
	case errors.Is(err, errDenied):
		return Result{Outcome: Skipped, Skip: SkipCapabilityDenied}, nil
	case err != nil:
		return Result{}, err
	}

	if hit {
		if !store.Has(reg.Field) {
			store.Set(reg.Field, val, e.clock.Now())
		}
		return Result{Outcome: Cached}, nil
	}

	store.Set(reg.Field, val, e.clock.Now())
	if reg.Field == field.HardwareName && cell < 0 {
		d.setModel(val.String())
	}
	return Result{Outcome: Read}, nil
}

// resolveVersion returns the negotiated version, probing the device once
// per session. The bool result reports that no bus read was needed.
func (e *Engine) resolveVersion(ctx context.Context, d *Device) (version.Version, bool, error) {
	if v, ok := d.Version(); ok {
		return v, true, nil
	}

	session := d.Session()
	v, hit, err := e.versions.GetOrCompute(session, func() (version.Version, error) {
		reg := catalog.ProtocolVersionRegister
		raw, err := e.readRegisters(ctx, d, reg.Address, reg.Registers())
		if err != nil {
			return version.Version{}, err
		}
		val, err := codec.Decode(raw, reg.Type, reg.Count)
		if err != nil {
			e.metrics.DecodeError(d.id)
			e.log.Warn("protocol version decode failed",
				"device", d.id, "raw", hex.EncodeToString(raw), "err", err)
			return version.Version{}, err
		}
		return val.Version(), nil
	})
	e.metrics.CacheLookup("probe", hit)
	if err != nil {
		return version.Version{}, false, err
	}

	if v.Major == 0 || !e.catalog.Supports(v) {
		return v, hit, fmt.Errorf("%w: %s", ErrUnsupportedProtocolVersion, v)
	}

	d.setVersion(v, session)
	if !hit {
		e.log.Info("protocol version resolved", "device", d.id, "version", v.String())
	}
	return v, hit, nil
}

// readRegisters performs one locked register read.
func (e *Engine) readRegisters(ctx context.Context, d *Device, address, quantity uint16) ([]byte, error) {
	var raw []byte
	err := e.locks.WithExclusive(ctx, d.channel, d.address, func() error {
		var err error
		raw, err = d.tr.ReadRegisters(ctx, d.address, address, quantity)
		return err
	})
	if err != nil {
		e.metrics.TransportError(d.channel)
		return nil, &transport.Error{
			Channel:  d.channel,
			Slave:    d.address,
			Op:       "read registers",
			Address:  address,
			Quantity: quantity,
			Err:      err,
		}
	}
	return raw, nil
}

// coilReader lets the capability gate probe through the device locks.
type coilReader struct {
	e *Engine
	d *Device
}

func (c coilReader) ReadCoil(ctx context.Context, address uint16) (bool, error) {
	var on bool
	err := c.e.locks.WithExclusive(ctx, c.d.channel, c.d.address, func() error {
		var err error
		on, err = c.d.tr.ReadCoil(ctx, c.d.address, address)
		return err
	})
	if err != nil {
		c.e.metrics.TransportError(c.d.channel)
		return false, &transport.Error{
			Channel:  c.d.channel,
			Slave:    c.d.address,
			Op:       "read coil",
			Address:  address,
			Quantity: 1,
			Err:      err,
		}
	}
	return on, nil
}

// forget drops every cache entry of an ended session.
func (e *Engine) forget(session string) {
	e.gate.Forget(session)
	e.versions.Invalidate(session)
	e.fields.InvalidateFunc(func(k fieldKey) bool { return k.Session == session })
}
