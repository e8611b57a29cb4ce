// Package catalog holds the immutable, versioned register tables: where each
// field lives for a given protocol version and how to decode it.
package catalog

import (
	"errors"
	"sort"

	"github.com/tamzrod/bms-poller/internal/codec"
	"github.com/tamzrod/bms-poller/internal/field"
	"github.com/tamzrod/bms-poller/internal/version"
)

var (
	// ErrUnsupportedVersion means no table matches the (major, minor) pair.
	ErrUnsupportedVersion = errors.New("catalog: unsupported protocol version")
	// ErrNotFound means the table for the version does not define the field.
	ErrNotFound = errors.New("catalog: field not found")
)

// Register locates one device-level field.
type Register struct {
	Field   field.ID
	Name    string
	Address uint16
	Count   uint16
	Type    codec.Type
	Unit    string

	// Indicator is the coil that tells whether the connected hardware
	// actually carries this field. Only meaningful when HasIndicator is set.
	Indicator    uint16
	HasIndicator bool
}

// Registers returns the number of 16-bit registers the field spans.
func (r Register) Registers() uint16 {
	return codec.Registers(r.Type, r.Count)
}

// CellRegister locates one field inside the repeated per-cell block.
type CellRegister struct {
	Register // Address is the offset inside the cell block

	Base   uint16
	Stride uint16
}

// Address returns the absolute register address of the field for cell.
func (c CellRegister) Address(cell int) uint16 {
	return c.Base + uint16(cell)*c.Stride + c.Register.Address
}

// At returns a device-level Register addressing the field for cell.
func (c CellRegister) At(cell int) Register {
	r := c.Register
	r.Address = c.Address(cell)
	return r
}

// ProtocolVersionRegister is where every protocol version reports itself.
// Its location never changes, so it is readable before any table is chosen.
var ProtocolVersionRegister = Register{
	Field:   field.ProtocolVersion,
	Name:    "Modbus Version",
	Address: 1,
	Count:   16,
	Type:    codec.TypeSemver,
}

type table struct {
	version   version.Version
	registers map[field.ID]Register
	cells     map[field.ID]CellRegister
}

// Catalog is built once and never mutated; it is safe for concurrent reads.
type Catalog struct {
	tables map[version.Key]*table
	known  map[field.ID]struct{}

	baseModel string
	models    map[string][]field.ID
}

// Resolve returns the register of a device-level field.
func (c *Catalog) Resolve(v version.Version, id field.ID) (Register, error) {
	t, ok := c.tables[v.Key()]
	if !ok {
		return Register{}, ErrUnsupportedVersion
	}
	r, ok := t.registers[id]
	if !ok {
		return Register{}, ErrNotFound
	}
	return r, nil
}

// ResolveCell returns the per-cell register of a cell field.
func (c *Catalog) ResolveCell(v version.Version, id field.ID) (CellRegister, error) {
	t, ok := c.tables[v.Key()]
	if !ok {
		return CellRegister{}, ErrUnsupportedVersion
	}
	r, ok := t.cells[id]
	if !ok {
		return CellRegister{}, ErrNotFound
	}
	return r, nil
}

// ResolveName resolves a device-level field by its upstream name.
func (c *Catalog) ResolveName(v version.Version, name string) (Register, error) {
	id, ok := field.Lookup(name)
	if !ok {
		if _, ok := c.tables[v.Key()]; !ok {
			return Register{}, ErrUnsupportedVersion
		}
		return Register{}, ErrNotFound
	}
	return c.Resolve(v, id)
}

// Supports reports whether a table exists for the version.
func (c *Catalog) Supports(v version.Version) bool {
	_, ok := c.tables[v.Key()]
	return ok
}

// Known reports whether any version defines the field.
func (c *Catalog) Known(id field.ID) bool {
	_, ok := c.known[id]
	return ok
}

// Versions returns the table versions, oldest first.
func (c *Catalog) Versions() []version.Version {
	out := make([]version.Version, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t.version)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Major != out[j].Major {
			return out[i].Major < out[j].Major
		}
		return out[i].Minor < out[j].Minor
	})
	return out
}

// Fields returns the device-level fields defined for the version.
func (c *Catalog) Fields(v version.Version) []field.ID {
	t, ok := c.tables[v.Key()]
	if !ok {
		return nil
	}
	out := make([]field.ID, 0, len(t.registers))
	for id := range t.registers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BaseModel returns the name of the generic model.
func (c *Catalog) BaseModel() string { return c.baseModel }

// Models returns a copy of the per-model allow-lists.
func (c *Catalog) Models() map[string][]field.ID {
	out := make(map[string][]field.ID, len(c.models))
	for name, ids := range c.models {
		out[name] = append([]field.ID(nil), ids...)
	}
	return out
}
