package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tamzrod/bms-poller/internal/codec"
	"github.com/tamzrod/bms-poller/internal/field"
	"github.com/tamzrod/bms-poller/internal/version"
)

//go:embed tables/irock.yaml
var defaultTables []byte

// ---- file shape (as emitted by the upstream generator) ----

type fileSchema struct {
	Registers     []registerTable `yaml:"registers"`
	CellRegisters []cellTable     `yaml:"cell_registers"`
	Models        modelsSection   `yaml:"models"`
}

type registerTable struct {
	Version  string                  `yaml:"version"`
	Register map[string]registerEntry `yaml:"register"`
}

type cellTable struct {
	Version  string                  `yaml:"version"`
	Offset   uint16                  `yaml:"offset"`
	Length   uint16                  `yaml:"length"`
	Register map[string]registerEntry `yaml:"register"`
}

type registerEntry struct {
	Name        string  `yaml:"name"`
	Address     uint16  `yaml:"address"`
	Offset      uint16  `yaml:"offset"`
	ArraySize   uint16  `yaml:"array_size"`
	Type        string  `yaml:"type"`
	Description string  `yaml:"description"`
	Unit        *string `yaml:"unit"`
	Indicator   *uint16 `yaml:"hardware_support_register"`
}

type modelsSection struct {
	Base string              `yaml:"base"`
	Sets map[string][]string `yaml:"sets"`
}

// Warning reports a table entry that was skipped.
type Warning struct {
	Version string
	Name    string
	Reason  string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s: %s", w.Version, w.Name, w.Reason)
}

// Load parses register tables. Entries naming unknown fields or types are
// skipped and reported as warnings so newer tables load on older binaries.
func Load(r io.Reader) (*Catalog, []Warning, error) {
	var f fileSchema
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, nil, fmt.Errorf("catalog: parse: %w", err)
	}
	return build(f)
}

// LoadFile parses register tables from path.
func LoadFile(path string) (*Catalog, []Warning, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: %w", err)
	}
	return Load(bytes.NewReader(b))
}

var loadDefault = sync.OnceValues(func() (*Catalog, error) {
	c, _, err := Load(bytes.NewReader(defaultTables))
	return c, err
})

// Default returns the catalog built from the embedded iRock tables.
func Default() (*Catalog, error) {
	return loadDefault()
}

func build(f fileSchema) (*Catalog, []Warning, error) {
	c := &Catalog{
		tables: make(map[version.Key]*table),
		known:  make(map[field.ID]struct{}),
		models: make(map[string][]field.ID),
	}
	var warns []Warning

	// tableFor returns nil for major 0, which no device generation supports.
	tableFor := func(raw string) (*table, error) {
		v, err := version.Coerce(raw)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if v.Major == 0 {
			return nil, nil
		}
		t, ok := c.tables[v.Key()]
		if !ok {
			t = &table{
				version:   v,
				registers: make(map[field.ID]Register),
				cells:     make(map[field.ID]CellRegister),
			}
			c.tables[v.Key()] = t
		}
		return t, nil
	}

	seen := make(map[version.Key]bool)
	for _, rt := range f.Registers {
		t, err := tableFor(rt.Version)
		if err != nil {
			return nil, nil, err
		}
		if t == nil {
			warns = append(warns, Warning{rt.Version, "", "protocol major 0 not supported"})
			continue
		}
		if seen[t.version.Key()] {
			return nil, nil, fmt.Errorf("catalog: duplicate register table for %s", t.version.Key())
		}
		seen[t.version.Key()] = true

		for name, ent := range rt.Register {
			reg, warn := register(rt.Version, name, ent, ent.Address)
			if warn != nil {
				warns = append(warns, *warn)
				continue
			}
			if reg.Field.Cell() {
				warns = append(warns, Warning{rt.Version, name, "cell field in device table"})
				continue
			}
			t.registers[reg.Field] = reg
			c.known[reg.Field] = struct{}{}
		}
	}

	seenCells := make(map[version.Key]bool)
	for _, ct := range f.CellRegisters {
		t, err := tableFor(ct.Version)
		if err != nil {
			return nil, nil, err
		}
		if t == nil {
			warns = append(warns, Warning{ct.Version, "", "protocol major 0 not supported"})
			continue
		}
		if seenCells[t.version.Key()] {
			return nil, nil, fmt.Errorf("catalog: duplicate cell table for %s", t.version.Key())
		}
		seenCells[t.version.Key()] = true
		if ct.Length == 0 {
			return nil, nil, fmt.Errorf("catalog: cell table %s: length must be > 0", ct.Version)
		}

		for name, ent := range ct.Register {
			reg, warn := register(ct.Version, name, ent, ent.Offset)
			if warn != nil {
				warns = append(warns, *warn)
				continue
			}
			if !reg.Field.Cell() {
				warns = append(warns, Warning{ct.Version, name, "device field in cell table"})
				continue
			}
			if reg.Address+reg.Registers() > ct.Length {
				warns = append(warns, Warning{ct.Version, name, "span exceeds cell block"})
				continue
			}
			t.cells[reg.Field] = CellRegister{Register: reg, Base: ct.Offset, Stride: ct.Length}
			c.known[reg.Field] = struct{}{}
		}
	}

	c.baseModel = f.Models.Base
	for model, names := range f.Models.Sets {
		ids := make([]field.ID, 0, len(names))
		for _, name := range names {
			id, ok := field.Lookup(name)
			if !ok {
				warns = append(warns, Warning{"models", model + "/" + name, "unknown field"})
				continue
			}
			ids = append(ids, id)
		}
		c.models[model] = ids
	}
	if c.baseModel != "" {
		if _, ok := c.models[c.baseModel]; !ok {
			return nil, nil, fmt.Errorf("catalog: base model %q has no field set", c.baseModel)
		}
	}

	return c, warns, nil
}

func register(ver, name string, ent registerEntry, addr uint16) (Register, *Warning) {
	id, ok := field.Lookup(name)
	if !ok {
		return Register{}, &Warning{ver, name, "unknown field"}
	}
	typ := codec.ParseType(ent.Type)
	if !typ.Valid() {
		return Register{}, &Warning{ver, name, fmt.Sprintf("unknown type %q", ent.Type)}
	}
	count := ent.ArraySize
	if count == 0 {
		count = 1
	}
	if typ != codec.TypeChar && typ != codec.TypeSemver && count != 1 {
		return Register{}, &Warning{ver, name, fmt.Sprintf("arrays of %s are not supported", typ)}
	}

	reg := Register{
		Field:   id,
		Name:    ent.Name,
		Address: addr,
		Count:   count,
		Type:    typ,
	}
	if ent.Unit != nil {
		reg.Unit = *ent.Unit
	}
	if ent.Indicator != nil {
		reg.Indicator = *ent.Indicator
		reg.HasIndicator = true
	}
	return reg, nil
}
