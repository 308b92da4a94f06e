// Package core provides chemistry calculations for lipid ion masses
package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Atomic masses (monoisotopic)
const (
	MassH  = 1.0078250321
	MassC  = 12.0000000000
	MassN  = 14.0030740052
	MassO  = 15.9949146221
	MassS  = 31.9720706900
	MassP  = 30.9737615100
	MassNa = 22.9897692809
	MassK  = 38.9637066900
	MassCl = 34.9688527100

	// Proton and electron masses for charge calculations
	ProtonMass   = 1.00727646688
	ElectronMass = 0.00054857990946

	// MassH2O is the monoisotopic mass of water
	MassH2O = 2*MassH + MassO
)

// ElementMasses maps element symbols to monoisotopic masses
var ElementMasses = map[string]float64{
	"H":  MassH,
	"C":  MassC,
	"N":  MassN,
	"O":  MassO,
	"S":  MassS,
	"P":  MassP,
	"Na": MassNa,
	"K":  MassK,
	"Cl": MassCl,
}

// Formula is an elemental composition; counts may be negative for deltas.
type Formula map[string]int

// ParseFormula parses a formula like "C5H14NO4P" or "C2H5Na".
// An empty string parses to an empty formula.
func ParseFormula(s string) (Formula, error) {
	f := Formula{}
	runes := []rune(strings.TrimSpace(s))
	for i := 0; i < len(runes); {
		if !unicode.IsUpper(runes[i]) {
			return nil, fmt.Errorf("invalid formula %q at position %d", s, i)
		}
		j := i + 1
		for j < len(runes) && unicode.IsLower(runes[j]) {
			j++
		}
		elem := string(runes[i:j])
		if _, ok := ElementMasses[elem]; !ok {
			return nil, fmt.Errorf("unknown element %q in formula %q", elem, s)
		}
		k := j
		for k < len(runes) && unicode.IsDigit(runes[k]) {
			k++
		}
		count := 1
		if k > j {
			n, err := strconv.Atoi(string(runes[j:k]))
			if err != nil {
				return nil, fmt.Errorf("invalid count in formula %q: %w", s, err)
			}
			count = n
		}
		f[elem] += count
		i = k
	}
	return f, nil
}

// MustParseFormula is ParseFormula for compile-time constants; it panics on error.
func MustParseFormula(s string) Formula {
	f, err := ParseFormula(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Add returns the sum of two formulas.
func (f Formula) Add(other Formula) Formula {
	out := make(Formula, len(f)+len(other))
	for e, n := range f {
		out[e] += n
	}
	for e, n := range other {
		out[e] += n
	}
	return out
}

// Sub returns f minus other.
func (f Formula) Sub(other Formula) Formula {
	out := make(Formula, len(f)+len(other))
	for e, n := range f {
		out[e] += n
	}
	for e, n := range other {
		out[e] -= n
	}
	return out
}

// Mass returns the neutral monoisotopic mass.
func (f Formula) Mass() float64 {
	mass := 0.0
	for e, n := range f {
		mass += float64(n) * ElementMasses[e]
	}
	return mass
}

// IonMass returns the mass of the formula carrying the given charge,
// accounting for the missing or extra electrons.
func (f Formula) IonMass(charge int) float64 {
	return f.Mass() - float64(charge)*ElectronMass
}

// String renders the formula in Hill order (C, H, then alphabetical).
func (f Formula) String() string {
	elems := make([]string, 0, len(f))
	for e, n := range f {
		if n != 0 && e != "C" && e != "H" {
			elems = append(elems, e)
		}
	}
	sort.Strings(elems)
	var b strings.Builder
	for _, e := range append([]string{"C", "H"}, elems...) {
		n := f[e]
		if n == 0 {
			continue
		}
		b.WriteString(e)
		if n != 1 {
			b.WriteString(strconv.Itoa(n))
		}
	}
	return b.String()
}

// PPMError returns the relative difference of measured from reference in ppm.
func PPMError(measured, reference float64) float64 {
	return (measured - reference) / reference * 1e6
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
