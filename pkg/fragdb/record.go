// Package fragdb holds the MS2 fragment database: static fragment
// definitions, generated chain fragment series, mass and name lookups and
// per-peak annotation.
package fragdb

import "fmt"

// Record is one fragment of the database.
type Record struct {
	Mass      float64
	Name      string // unique within a database
	FragType  string // series name for chain fragments, ion type for static ones
	ChainType string // FA, FAL or Sph; empty for fragments without a chain
	C, U      int    // chain carbon count and unsaturation
	Charge    int    // 0 for neutral losses
}

// IsNL reports whether the record is a neutral loss.
func (r Record) IsNL() bool {
	return r.Charge == 0
}

// HasChain reports whether the fragment carries an aliphatic chain.
func (r Record) HasChain() bool {
	return r.ChainType != ""
}

func (r Record) String() string {
	if r.HasChain() {
		return fmt.Sprintf("%s %.4f %s %d:%d", r.Name, r.Mass, r.FragType, r.C, r.U)
	}
	return fmt.Sprintf("%s %.4f %s", r.Name, r.Mass, r.FragType)
}

// Annotation is one possible identity of an MS2 peak.
type Annotation struct {
	MZ        float64 // database mass of the matching record
	Name      string
	FragType  string
	ChainType string
	C, U      int
	Charge    int
}

// HasChain reports whether the annotation carries an aliphatic chain.
func (a Annotation) HasChain() bool {
	return a.ChainType != ""
}

func annotationOf(r Record) Annotation {
	return Annotation{
		MZ:        r.Mass,
		Name:      r.Name,
		FragType:  r.FragType,
		ChainType: r.ChainType,
		C:         r.C,
		U:         r.U,
		Charge:    r.Charge,
	}
}
