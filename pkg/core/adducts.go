package core

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Adduct describes how an ion relates to its neutral molecule.
type Adduct struct {
	Name      string
	MassShift float64 // total ion mass minus neutral mass
	Charge    int
}

// Mode returns the polarity of the adduct.
func (a Adduct) Mode() IonMode {
	if a.Charge < 0 {
		return Negative
	}
	return Positive
}

// NeutralMass converts an observed m/z to the neutral monoisotopic mass.
func (a Adduct) NeutralMass(mz float64) float64 {
	return mz*math.Abs(float64(a.Charge)) - a.MassShift
}

// MZ converts a neutral mass to the m/z of this adduct.
func (a Adduct) MZ(neutral float64) float64 {
	return (neutral + a.MassShift) / math.Abs(float64(a.Charge))
}

// AdductDatabase stores adduct definitions
type AdductDatabase struct {
	adducts map[string]Adduct
}

// NewAdductDatabase creates an empty adduct database
func NewAdductDatabase() *AdductDatabase {
	return &AdductDatabase{
		adducts: make(map[string]Adduct),
	}
}

// LoadFromCSV loads adducts from a CSV file (format: name,massshift,charge)
func (db *AdductDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	scanner.Scan()

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			return fmt.Errorf("line %d: invalid format, expected 3 comma-separated fields", lineNum)
		}

		name := strings.TrimSpace(parts[0])
		shift, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass shift '%s': %w", lineNum, parts[1], err)
		}
		charge, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil || charge == 0 {
			return fmt.Errorf("line %d: invalid charge '%s'", lineNum, parts[2])
		}

		db.Add(name, shift, charge)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// Get returns the adduct definition for a name
func (db *AdductDatabase) Get(name string) (Adduct, bool) {
	a, ok := db.adducts[name]
	return a, ok
}

// Add adds or updates an adduct
func (db *AdductDatabase) Add(name string, shift float64, charge int) {
	db.adducts[name] = Adduct{Name: name, MassShift: shift, Charge: charge}
}

// ToReference converts a precursor m/z observed as adduct name into the
// m/z the same molecule would have as the reference adduct of mode.
func (db *AdductDatabase) ToReference(mz float64, name string, mode IonMode) (float64, error) {
	from, ok := db.Get(name)
	if !ok {
		return 0, fmt.Errorf("unknown adduct '%s'", name)
	}
	ref, ok := db.Get(mode.ReferenceAdduct())
	if !ok {
		return 0, fmt.Errorf("reference adduct '%s' is not defined", mode.ReferenceAdduct())
	}
	return ref.MZ(from.NeutralMass(mz)), nil
}

// Len returns the number of adducts.
func (db *AdductDatabase) Len() int {
	return len(db.adducts)
}

// ionShift is the mass shift of adding (or removing, when negative) the
// formula to the molecule and carrying charge.
func ionShift(plus, minus string, charge int) float64 {
	f := MustParseFormula(plus).Sub(MustParseFormula(minus))
	return f.IonMass(charge)
}

// DefaultAdductDatabase returns an AdductDatabase pre-loaded with the
// adducts common in lipidomics
func DefaultAdductDatabase() *AdductDatabase {
	db := NewAdductDatabase()

	// Positive mode
	db.Add("[M+H]+", ionShift("H", "", 1), 1)
	db.Add("[M+2H]2+", ionShift("H2", "", 2), 2)
	db.Add("[M+NH4]+", ionShift("NH4", "", 1), 1)
	db.Add("[M+Na]+", ionShift("Na", "", 1), 1)
	db.Add("[M+K]+", ionShift("K", "", 1), 1)
	db.Add("[M-H2O+H]+", ionShift("H", "H2O", 1), 1)

	// Negative mode
	db.Add("[M-H]-", ionShift("", "H", -1), -1)
	db.Add("[M-2H]2-", ionShift("", "H2", -2), -2)
	db.Add("[M+HCOO]-", ionShift("CHO2", "", -1), -1)
	db.Add("[M+CH3COO]-", ionShift("C2H3O2", "", -1), -1)
	db.Add("[M+Cl]-", ionShift("Cl", "", -1), -1)
	db.Add("[M-CH3]-", ionShift("", "CH3", -1), -1)

	return db
}
