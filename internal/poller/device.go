package poller

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tamzrod/bms-poller/internal/field"
	"github.com/tamzrod/bms-poller/internal/transport"
	"github.com/tamzrod/bms-poller/internal/version"
)

// DefaultModel names the device before its hardware name is known.
const DefaultModel = "iRock"

// Device is the handle of one slave on one channel. The negotiated version
// is fixed for the lifetime of a session; invalidation starts a new session
// with a fresh id, so every cache entry keyed by the old one is orphaned.
type Device struct {
	id      string
	channel string
	address uint8
	tr      transport.Transport

	mu       sync.RWMutex
	session  string
	version  version.Version
	resolved bool
	model    string
	state    State
	failures int

	fields *field.Store
	cells  []*field.Store
}

// NewDevice creates an unidentified handle for slave address on tr.
func NewDevice(id string, tr transport.Transport, address uint8) *Device {
	return &Device{
		id:      id,
		channel: tr.Channel(),
		address: address,
		tr:      tr,
		session: uuid.NewString(),
		fields:  field.NewStore(),
	}
}

func (d *Device) ID() string { return d.id }
func (d *Device) Channel() string { return d.channel }
func (d *Device) Address() uint8 { return d.address }
func (d *Device) Fields() *field.Store { return d.fields }

func (d *Device) Session() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.session
}

func (d *Device) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Version returns the negotiated version and whether it is known.
func (d *Device) Version() (version.Version, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version, d.resolved
}

// Model returns the hardware model reported by the device, empty before
// identification.
func (d *Device) Model() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.model
}

// CellCount returns the size of the cell array, zero before settings load.
func (d *Device) CellCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.cells)
}

// Cell returns the store of cell i, or nil when out of range.
func (d *Device) Cell(i int) *field.Store {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i < 0 || i >= len(d.cells) {
		return nil
	}
	return d.cells[i]
}

// UniqueIdentifier is the serial number, empty until it has been read.
func (d *Device) UniqueIdentifier() string {
	if e, ok := d.fields.Get(field.SerialNumber); ok {
		return e.Value.String()
	}
	return ""
}

// ProductName is the hardware type, DefaultModel until it has been read.
func (d *Device) ProductName() string {
	if m := d.Model(); m != "" {
		return m
	}
	return DefaultModel
}

// CustomName renders "<hardware name> (<serial number>)".
func (d *Device) CustomName() string {
	return fmt.Sprintf("%s (%s)", d.ProductName(), d.UniqueIdentifier())
}

// Snapshot copies the current device view. Err and At are left to the caller.
func (d *Device) Snapshot() PollResult {
	d.mu.RLock()
	res := PollResult{
		DeviceID: d.id,
		State:    d.state,
		Version:  d.version,
		Model:    d.model,
		Session:  d.session,
	}
	cells := d.cells
	d.mu.RUnlock()

	res.Serial = d.UniqueIdentifier()
	res.Product = d.ProductName()
	res.Name = d.CustomName()
	res.Fields = d.fields.Attributes()
	if len(cells) > 0 {
		res.Cells = make([]map[string]any, len(cells))
		for i, c := range cells {
			res.Cells[i] = c.Attributes()
		}
	}
	return res
}

// ---- state transitions (engine only) ----

// setVersion records the negotiated version unless session has been
// replaced meanwhile or a version is already set.
func (d *Device) setVersion(v version.Version, session string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != session || d.resolved {
		return
	}
	d.version = v
	d.resolved = true
	if d.state < VersionResolved {
		d.state = VersionResolved
	}
}

func (d *Device) setModel(model string) {
	d.mu.Lock()
	d.model = model
	d.mu.Unlock()
}

// setCells creates the cell array once per session.
func (d *Device) setCells(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.cells) == n {
		return
	}
	d.cells = make([]*field.Store, n)
	for i := range d.cells {
		d.cells[i] = field.NewStore()
	}
}

func (d *Device) advance(s State) {
	d.mu.Lock()
	if s > d.state {
		d.state = s
	}
	d.mu.Unlock()
}

func (d *Device) succeeded() {
	d.mu.Lock()
	d.failures = 0
	d.state = Polling
	d.mu.Unlock()
}

// failed counts one failed cycle and returns the consecutive total.
func (d *Device) failed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures++
	return d.failures
}

// invalidate drops everything learned in the current session and returns
// the id of the session that ended.
func (d *Device) invalidate() string {
	d.mu.Lock()
	old := d.session
	d.session = uuid.NewString()
	d.version = version.Version{}
	d.resolved = false
	d.model = ""
	d.state = Unidentified
	d.failures = 0
	d.cells = nil
	d.mu.Unlock()

	d.fields.Reset()
	return old
}
