package fragdb

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
)

// Range lists the carbon counts and unsaturations a series is generated for.
type Range struct {
	C []int
	U []int
}

// Span returns the integers lo..hi inclusive.
func Span(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// ParseIntSet parses lists such as "2-36" or "8,14,16-21" into sorted,
// distinct integers.
func ParseIntSet(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid number '%s' in '%s'", lo, s)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("invalid number '%s' in '%s'", hi, s)
			}
		}
		if b < a || a < 0 {
			return nil, fmt.Errorf("invalid range '%s' in '%s'", part, s)
		}
		out = append(out, Span(a, b)...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// DefaultRanges are the chain ranges series are generated for, keyed by
// chain type.
func DefaultRanges() map[string]Range {
	return map[string]Range{
		lipid.FA:  {C: Span(2, 36), U: Span(0, 6)},
		lipid.FAL: {C: Span(2, 36), U: Span(0, 6)},
		lipid.Sph: {C: []int{8, 14, 16, 17, 18, 19, 20, 21}, U: Span(0, 1)},
	}
}

// Series is a homolog series of chain fragments: one fragment type whose
// formula is the chain's base formula plus and minus fixed deltas.
type Series struct {
	Name        string // fragment type, e.g. "FA-H"
	ChainType   string
	Plus, Minus string
	Charge      int
	Constraints []lipid.FragConstraint
}

// BaseFormula returns the formula a chain contributes to its fragments:
// the free fatty acid, fatty alcohol or sphingoid base.
func BaseFormula(chainType string, c, u int) (core.Formula, error) {
	switch chainType {
	case lipid.FA:
		return core.Formula{"C": c, "H": 2*c - 2*u, "O": 2}, nil
	case lipid.FAL:
		return core.Formula{"C": c, "H": 2*c + 2 - 2*u, "O": 1}, nil
	case lipid.Sph:
		return core.Formula{"C": c, "H": 2*c + 3 - 2*u, "N": 1, "O": 2}, nil
	}
	return nil, fmt.Errorf("unknown chain type '%s'", chainType)
}

// Generate returns the fragments of the series over r. Combinations with
// u > c-1 or a negative element count are skipped.
func (s Series) Generate(r Range) ([]Record, error) {
	plus, err := core.ParseFormula(s.Plus)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", s.Name, err)
	}
	minus, err := core.ParseFormula(s.Minus)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", s.Name, err)
	}

	var out []Record
	for _, c := range r.C {
		for _, u := range r.U {
			if c < 1 || u < 0 || u > c-1 {
				continue
			}
			base, err := BaseFormula(s.ChainType, c, u)
			if err != nil {
				return nil, fmt.Errorf("series %s: %w", s.Name, err)
			}
			f := base.Add(plus).Sub(minus)
			if !nonNegative(f) {
				continue
			}
			out = append(out, Record{
				Mass:      f.IonMass(s.Charge),
				Name:      fmt.Sprintf("%s (%d:%d)", s.Name, c, u),
				FragType:  s.Name,
				ChainType: s.ChainType,
				C:         c,
				U:         u,
				Charge:    s.Charge,
			})
		}
	}
	return out, nil
}

func nonNegative(f core.Formula) bool {
	for _, n := range f {
		if n < 0 {
			return false
		}
	}
	return true
}

var (
	anyFA  = []lipid.FragConstraint{{ChainType: lipid.FA}}
	anySph = []lipid.FragConstraint{{ChainType: lipid.Sph}}
	nAcyl  = []lipid.FragConstraint{
		{Headgroup: "Cer", ChainType: lipid.FA},
		{Headgroup: "SM", ChainType: lipid.FA},
	}
)

func lyso(chainType string, headgroups ...string) []lipid.FragConstraint {
	out := make([]lipid.FragConstraint, len(headgroups))
	for i, hg := range headgroups {
		out[i] = lipid.FragConstraint{Headgroup: hg, ChainType: chainType}
	}
	return out
}

func sulfatide(sub string) []lipid.FragConstraint {
	return []lipid.FragConstraint{{Headgroup: "Cer", Sub: []string{sub}, ChainType: lipid.Sph}}
}

// PositiveSeries are the chain fragment series of positive mode.
var PositiveSeries = []Series{
	{Name: "FA+H", ChainType: lipid.FA, Plus: "H", Charge: 1, Constraints: anyFA},
	{Name: "FA-OH", ChainType: lipid.FA, Minus: "OH", Charge: 1, Constraints: anyFA},
	{Name: "FA-H2O-OH", ChainType: lipid.FA, Minus: "H3O2", Charge: 1, Constraints: anyFA},
	{Name: "FA+Glycerol-OH", ChainType: lipid.FA, Plus: "C3H5O", Charge: 1, Constraints: anyFA},
	{Name: "NL FA", ChainType: lipid.FA, Constraints: anyFA},
	{Name: "NL FA-H2O", ChainType: lipid.FA, Minus: "H2O", Constraints: anyFA},
	{Name: "FA+NH2-O", ChainType: lipid.FA, Plus: "NH2", Minus: "O", Charge: 1, Constraints: nAcyl},
	{Name: "FA+NH+C2H2-OH", ChainType: lipid.FA, Plus: "C2H3N", Minus: "OH", Charge: 1, Constraints: nAcyl},

	{Name: "Sph+H", ChainType: lipid.Sph, Plus: "H", Charge: 1, Constraints: anySph},
	{Name: "Sph-H2O+H", ChainType: lipid.Sph, Plus: "H", Minus: "H2O", Charge: 1, Constraints: anySph},
	{Name: "Sph-2xH2O+H", ChainType: lipid.Sph, Plus: "H", Minus: "H4O2", Charge: 1, Constraints: anySph},
	{Name: "Sph-H2O-H", ChainType: lipid.Sph, Minus: "H3O", Charge: 1, Constraints: anySph},
	{Name: "Sph-2xH2O-H", ChainType: lipid.Sph, Minus: "H5O2", Charge: 1, Constraints: anySph},
	{Name: "Sph-C-2xH2O", ChainType: lipid.Sph, Minus: "CH4O2", Charge: 1, Constraints: anySph},
	{Name: "Sph-C-O-H2O-H", ChainType: lipid.Sph, Minus: "CH3O2", Charge: 1, Constraints: anySph},
	{Name: "Sph-C-O-H2O-NH", ChainType: lipid.Sph, Minus: "CH3NO2", Charge: 1, Constraints: anySph},
	{Name: "Sph-H", ChainType: lipid.Sph, Minus: "H", Charge: 1, Constraints: anySph},
	{Name: "Sph+H2O-H", ChainType: lipid.Sph, Plus: "HO", Charge: 1, Constraints: anySph},
	{Name: "Sph-NH2-H2O-2H", ChainType: lipid.Sph, Minus: "NH6O", Charge: 1, Constraints: anySph},
	{Name: "Sph-2xH2O+CH3", ChainType: lipid.Sph, Plus: "CH3", Minus: "H4O2", Charge: 1, Constraints: anySph},
	{Name: "Sph-O-H2O+CH3+H", ChainType: lipid.Sph, Plus: "CH4", Minus: "H2O2", Charge: 1, Constraints: anySph},
	{Name: "Sph-2xH2O+2xCH3+H", ChainType: lipid.Sph, Plus: "C2H7", Minus: "H4O2", Charge: 1, Constraints: anySph},
	{Name: "Sph-H2O+2xCH3+H", ChainType: lipid.Sph, Plus: "C2H7", Minus: "H2O", Charge: 1, Constraints: anySph},
	{Name: "Sph-H2O+CH3+H", ChainType: lipid.Sph, Plus: "CH4", Minus: "H2O", Charge: 1, Constraints: anySph},
}

// NegativeSeries are the chain fragment series of negative mode.
var NegativeSeries = []Series{
	{Name: "FA-H", ChainType: lipid.FA, Minus: "H", Charge: -1, Constraints: anyFA},
	{Name: "FA-H2O-H", ChainType: lipid.FA, Minus: "H3O", Charge: -1, Constraints: anyFA},
	{Name: "NLFA", ChainType: lipid.FA, Constraints: anyFA},
	{Name: "NLFA_mH2O", ChainType: lipid.FA, Minus: "H2O", Constraints: anyFA},
	{Name: "NLFA_pH2O", ChainType: lipid.FA, Plus: "H2O", Constraints: anyFA},
	{Name: "NLFA_p2xH2O", ChainType: lipid.FA, Plus: "H4O2", Constraints: anyFA},
	{Name: "FA+C2+NH2", ChainType: lipid.FA, Plus: "C2H2N", Charge: -1, Constraints: nAcyl},
	{Name: "FA+C2+NH2-O", ChainType: lipid.FA, Plus: "C2H2N", Minus: "O", Charge: -1, Constraints: nAcyl},
	{Name: "FA+C2H2+NH2", ChainType: lipid.FA, Plus: "C2H4N", Charge: -1, Constraints: nAcyl},
	{Name: "FA+C3H2+NH2", ChainType: lipid.FA, Plus: "C3H4N", Charge: -1, Constraints: nAcyl},
	{Name: "FA+C2+NH2+O", ChainType: lipid.FA, Plus: "C2H2NO", Charge: -1, Constraints: nAcyl},
	{Name: "FA+CH2+NH2+O", ChainType: lipid.FA, Plus: "CH4NO", Charge: -1, Constraints: nAcyl},
	{Name: "FA+C2H2+NH2+O", ChainType: lipid.FA, Plus: "C2H4NO", Charge: -1, Constraints: nAcyl},

	{Name: "LysoPE", ChainType: lipid.FA, Plus: "C5H14NO6P", Minus: "H3O", Charge: -1, Constraints: lyso(lipid.FA, "PE")},
	{Name: "LysoPEAlkyl", ChainType: lipid.FAL, Plus: "C5H14NO6P", Minus: "H3O", Charge: -1, Constraints: lyso(lipid.FAL, "PE")},
	{Name: "LysoPEAlkyl-H2O", ChainType: lipid.FAL, Plus: "C5H14NO6P", Minus: "H5O2", Charge: -1, Constraints: lyso(lipid.FAL, "PE")},
	{Name: "LysoPC", ChainType: lipid.FA, Plus: "C8H20NO6P", Minus: "CH5O", Charge: -1, Constraints: lyso(lipid.FA, "PC")},
	{Name: "LysoPI", ChainType: lipid.FA, Plus: "C9H19O11P", Minus: "H3O", Charge: -1, Constraints: lyso(lipid.FA, "PI")},
	{Name: "LysoPI-H2O", ChainType: lipid.FA, Plus: "C9H19O11P", Minus: "H5O2", Charge: -1, Constraints: lyso(lipid.FA, "PI")},
	{Name: "LysoPS", ChainType: lipid.FA, Plus: "C6H14NO8P", Minus: "H3O", Charge: -1, Constraints: lyso(lipid.FA, "PS")},
	{Name: "LysoPA", ChainType: lipid.FA, Plus: "C3H9O6P", Minus: "H3O", Charge: -1, Constraints: lyso(lipid.FA, "PA", "PS")},
	{Name: "LysoPG", ChainType: lipid.FA, Plus: "C6H15O8P", Minus: "H3O", Charge: -1, Constraints: lyso(lipid.FA, "PG", "BMP")},
	{Name: "LysoPG-H2O", ChainType: lipid.FA, Plus: "C6H15O8P", Minus: "H5O2", Charge: -1, Constraints: lyso(lipid.FA, "PG", "BMP")},

	{Name: "Sph-H", ChainType: lipid.Sph, Minus: "H", Charge: -1, Constraints: anySph},
	{Name: "Sph-C2H4-3H", ChainType: lipid.Sph, Minus: "C2H7", Charge: -1, Constraints: anySph},
	{Name: "Sph-CH2-H2O-H", ChainType: lipid.Sph, Minus: "CH5O", Charge: -1, Constraints: anySph},
	{Name: "Sph-H2O-NH2-2H", ChainType: lipid.Sph, Minus: "NH6O", Charge: -1, Constraints: anySph},
	{Name: "Sph-C2H4-NH2-H2O", ChainType: lipid.Sph, Minus: "C2H8NO", Charge: -1, Constraints: anySph},
	{Name: "Sph-CH2-NH2-4H", ChainType: lipid.Sph, Minus: "CH8N", Charge: -1, Constraints: anySph},
	{Name: "Sph+C6O5H8+SO3", ChainType: lipid.Sph, Plus: "C6H8O8S", Minus: "H", Charge: -1, Constraints: sulfatide("SHex")},
	{Name: "Sph+C6O5H8+SO3+H2O", ChainType: lipid.Sph, Plus: "C6H10O9S", Minus: "H", Charge: -1, Constraints: sulfatide("SHex")},
	{Name: "Sph+C6O5H8+SO3+CO+H2O", ChainType: lipid.Sph, Plus: "C7H10O10S", Minus: "H", Charge: -1, Constraints: sulfatide("SHex")},
	{Name: "Sph+C12O10H18+SO3", ChainType: lipid.Sph, Plus: "C12H18O13S", Minus: "H", Charge: -1, Constraints: sulfatide("SHex2")},
	{Name: "Sph+C12O10H18+SO3+H2O", ChainType: lipid.Sph, Plus: "C12H20O14S", Minus: "H", Charge: -1, Constraints: sulfatide("SHex2")},
	{Name: "Sph+C12O10H18+SO3+CO+H2O", ChainType: lipid.Sph, Plus: "C13H20O15S", Minus: "H", Charge: -1, Constraints: sulfatide("SHex2")},
}

// SeriesFor returns the built in series of an ion mode.
func SeriesFor(mode core.IonMode) []Series {
	if mode == core.Negative {
		return NegativeSeries
	}
	return PositiveSeries
}
