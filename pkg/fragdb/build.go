package fragdb

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
)

//go:embed data/pos.tsv data/neg.tsv
var builtin embed.FS

// Options control how a database is built.
type Options struct {
	// Tolerance is the default lookup tolerance in ppm (0 = DefaultTolerance).
	Tolerance float64
	// Ranges override the series ranges per chain type.
	Ranges map[string]Range
	// Files are extra definition files appended to the built in ones.
	Files map[core.IonMode][]string
	// Series replaces the built in series of a mode when set.
	Series map[core.IonMode][]Series
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) ranges() map[string]Range {
	ranges := DefaultRanges()
	for k, v := range o.Ranges {
		r := ranges[k]
		if len(v.C) > 0 {
			r.C = v.C
		}
		if len(v.U) > 0 {
			r.U = v.U
		}
		ranges[k] = r
	}
	return ranges
}

// Build constructs the database of one ion mode from the built in
// definitions, the optional extra files and the homolog series.
func Build(mode core.IonMode, opts Options) (*Database, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid ion mode '%s'", mode)
	}
	logger := opts.logger().With("ionmode", string(mode))

	data, err := builtin.ReadFile("data/" + string(mode) + ".tsv")
	if err != nil {
		return nil, fmt.Errorf("failed to read built in fragments: %w", err)
	}
	defs, err := ParseDefinitions(bytes.NewReader(data), mode, logger)
	if err != nil {
		return nil, err
	}
	records := defs.Records
	constraints := defs.Constraints

	for _, path := range opts.Files[mode] {
		extra, err := readDefinitionFile(path, mode, logger)
		if err != nil {
			return nil, err
		}
		records = append(records, extra.Records...)
		for k, v := range extra.Constraints {
			constraints[k] = v
		}
	}

	series := SeriesFor(mode)
	if s, ok := opts.Series[mode]; ok {
		series = s
	}
	ranges := opts.ranges()
	for _, s := range series {
		generated, err := s.Generate(ranges[s.ChainType])
		if err != nil {
			return nil, err
		}
		records = append(records, generated...)
		constraints[s.Name] = s.Constraints
	}

	db := NewDatabase(mode, records, constraints)
	if opts.Tolerance > 0 {
		db.Tolerance = opts.Tolerance
	}
	logger.Debug("fragment database built", "records", db.Len(), "series", len(series))
	return db, nil
}

func readDefinitionFile(path string, mode core.IonMode, logger *slog.Logger) (*Definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fragment file: %w", err)
	}
	defer f.Close()

	defs, err := ParseDefinitions(f, mode, logger.With("file", path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Registry holds the databases of both ion modes. It is built once and
// shared read-only.
type Registry struct {
	dbs map[core.IonMode]*Database
}

// NewRegistry builds the databases of both ion modes.
func NewRegistry(opts Options) (*Registry, error) {
	reg := &Registry{dbs: make(map[core.IonMode]*Database, 2)}
	for _, mode := range []core.IonMode{core.Positive, core.Negative} {
		db, err := Build(mode, opts)
		if err != nil {
			return nil, err
		}
		reg.dbs[mode] = db
	}
	return reg, nil
}

// RegistryOf wraps prebuilt databases, e.g. small ones in tests.
func RegistryOf(dbs ...*Database) *Registry {
	reg := &Registry{dbs: make(map[core.IonMode]*Database, len(dbs))}
	for _, db := range dbs {
		reg.dbs[db.Mode()] = db
	}
	return reg
}

// For returns the database of mode, nil when the registry has none.
func (r *Registry) For(mode core.IonMode) *Database {
	return r.dbs[mode]
}

// Constraints is a shortcut for For(mode).Constraints.
func (r *Registry) Constraints(mode core.IonMode, fragType string) []lipid.FragConstraint {
	if db := r.For(mode); db != nil {
		return db.Constraints(fragType)
	}
	return nil
}
