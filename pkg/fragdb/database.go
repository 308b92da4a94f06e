package fragdb

import (
	"sort"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
	"github.com/ChrisMcGann/LipidKey/pkg/lookup"
)

// DefaultTolerance is the lookup tolerance in ppm used when none is given.
const DefaultTolerance = 50.0

// Database is the fragment table of one ion mode, sorted by mass.
// It is read-only after construction and safe for concurrent use.
type Database struct {
	mode        core.IonMode
	records     []Record
	masses      []float64
	byName      map[string]int
	constraints map[string][]lipid.FragConstraint

	// Tolerance is the default lookup tolerance in ppm.
	Tolerance float64
}

// NewDatabase sorts records by mass and indexes them by name. Constraints
// are keyed by fragment type (series) or fragment name (static rows).
// Later records win on duplicate names.
func NewDatabase(mode core.IonMode, records []Record, constraints map[string][]lipid.FragConstraint) *Database {
	recs := make([]Record, len(records))
	copy(recs, records)
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Mass < recs[j].Mass
	})

	db := &Database{
		mode:        mode,
		records:     recs,
		masses:      make([]float64, len(recs)),
		byName:      make(map[string]int, len(recs)),
		constraints: make(map[string][]lipid.FragConstraint, len(constraints)),
		Tolerance:   DefaultTolerance,
	}
	for i, r := range recs {
		db.masses[i] = r.Mass
		db.byName[r.Name] = i
	}
	for k, v := range constraints {
		db.constraints[k] = v
	}
	return db
}

// Mode returns the ion mode of the database.
func (db *Database) Mode() core.IonMode {
	return db.mode
}

// Len returns the number of records.
func (db *Database) Len() int {
	return len(db.records)
}

// Records returns the records in mass order. The slice must not be modified.
func (db *Database) Records() []Record {
	return db.records
}

func (db *Database) tolerance(tol float64) float64 {
	if tol > 0 {
		return tol
	}
	if db.Tolerance > 0 {
		return db.Tolerance
	}
	return DefaultTolerance
}

// Lookup returns the charged ions (nl false) or neutral losses (nl true)
// within tol ppm of mz, in mass order. A non-positive tol uses the
// database default.
func (db *Database) Lookup(mz float64, nl bool, tol float64) []Record {
	var out []Record
	for _, i := range lookup.FindAll(db.masses, mz, db.tolerance(tol)) {
		if db.records[i].IsNL() == nl {
			out = append(out, db.records[i])
		}
	}
	return out
}

// NeutralLossTolerance rescales a ppm tolerance defined on the observed
// ion mz to the neutral loss precursor - mz.
func NeutralLossTolerance(mz, precursor, tol float64) float64 {
	return tol * mz / (precursor - mz)
}

// LookupNL returns the neutral losses matching precursor - mz. The ppm
// tolerance is rescaled by NeutralLossTolerance. Non-positive losses
// match nothing.
func (db *Database) LookupNL(mz, precursor, tol float64) []Record {
	loss := precursor - mz
	if loss <= 0 {
		return nil
	}
	return db.Lookup(loss, true, NeutralLossTolerance(mz, precursor, db.tolerance(tol)))
}

// Constraints returns the positional constraints of a fragment type.
// An empty result allows any chain position.
func (db *Database) Constraints(fragType string) []lipid.FragConstraint {
	return db.constraints[fragType]
}

// ByName returns a record by its full name, e.g. "PE [P+E] (140.0118)".
func (db *Database) ByName(name string) (Record, bool) {
	i, ok := db.byName[name]
	if !ok {
		return Record{}, false
	}
	return db.records[i], true
}
