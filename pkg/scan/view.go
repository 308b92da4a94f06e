package scan

import (
	"math"

	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
	"github.com/ChrisMcGann/LipidKey/pkg/lookup"
)

// Presence is the answer of a query by fragment name: the name may be
// missing from the fragment database.
type Presence int

const (
	Unknown Presence = iota // name not in the fragment database
	Absent
	Present
)

// Bool reports whether the fragment is present.
func (p Presence) Bool() bool {
	return p == Present
}

func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case Present:
		return "present"
	}
	return "unknown"
}

func presence(ok bool) Presence {
	if ok {
		return Present
	}
	return Absent
}

// ChainFragment is one chain carrying annotation of a peak.
type ChainFragment struct {
	C, U      int
	FragType  string
	ChainType string
	Peak      int     // intensity rank of the peak
	Intensity float64 // normalized intensity of the peak
}

// View is a scan seen with its precursor as a given adduct. Neutral
// losses are computed from the precursor converted to the reference
// adduct, so annotations and chain fragments differ between views.
type View struct {
	scan      *Scan
	adduct    string
	precursor float64
	annot     [][]fragdb.Annotation
	chains    []ChainFragment
}

// annotate annotates the peaks and builds the chain list. An unregistered
// view must be annotated while the scan is in intensity order, otherwise
// restoring the order leaves its annotations unpermuted.
func (v *View) annotate() {
	s := v.scan
	defer s.sorted(ByIntensity)()
	v.annot = fragdb.AnnotateAll(s.db, s.mzs, v.precursor, s.tolerance)
	v.chains = nil
	for i, anns := range v.annot {
		for _, a := range anns {
			if a.HasChain() {
				v.chains = append(v.chains, ChainFragment{
					C:         a.C,
					U:         a.U,
					FragType:  a.FragType,
					ChainType: a.ChainType,
					Peak:      i,
					Intensity: s.inorm[i],
				})
			}
		}
	}
}

// Adduct returns the adduct the precursor is assumed to be.
func (v *View) Adduct() string {
	return v.adduct
}

// Precursor returns the precursor m/z as the reference adduct, 0 when
// unknown.
func (v *View) Precursor() float64 {
	return v.precursor
}

// Annotations returns the annotations of peak i.
func (v *View) Annotations(i int) []fragdb.Annotation {
	defer v.scan.sorted(ByIntensity)()
	return v.annot[i]
}

// ChainList returns the chain fragments in intensity order. The slice must
// not be modified.
func (v *View) ChainList() []ChainFragment {
	return v.chains
}

// NeutralLossMZ returns the m/z a neutral loss of mass leaves behind,
// NaN when the precursor is unknown.
func (v *View) NeutralLossMZ(mass float64) float64 {
	if v.precursor <= 0 {
		return math.NaN()
	}
	return v.precursor - mass
}

// MZLookup returns the intensity rank of the peak closest to mz within
// the tolerance.
func (v *View) MZLookup(mz float64) (int, bool) {
	if math.IsNaN(mz) {
		return -1, false
	}
	s := v.scan
	defer s.sorted(ByMZ)()
	i, ok := lookup.Find(s.mzs, mz, s.tolerance)
	if !ok {
		return -1, false
	}
	return s.rank[i], true
}

// HasMZ reports whether a peak matches mz.
func (v *View) HasMZ(mz float64) bool {
	_, ok := v.MZLookup(mz)
	return ok
}

// HasNeutralLoss reports whether a peak matches the neutral loss mass.
func (v *View) HasNeutralLoss(mass float64) bool {
	return v.HasMZ(v.NeutralLossMZ(mass))
}

// fragmentMZ returns the m/z a named fragment is expected at.
func (v *View) fragmentMZ(name string) (float64, bool) {
	rec, ok := v.scan.db.ByName(name)
	if !ok {
		return 0, false
	}
	if rec.IsNL() {
		return v.NeutralLossMZ(rec.Mass), true
	}
	return rec.Mass, true
}

// FragmentLookup returns the intensity rank of the peak matching a named
// fragment or neutral loss.
func (v *View) FragmentLookup(name string) (int, Presence) {
	mz, ok := v.fragmentMZ(name)
	if !ok {
		return -1, Unknown
	}
	i, found := v.MZLookup(mz)
	return i, presence(found)
}

// HasFragment tells whether a named fragment or neutral loss is present.
func (v *View) HasFragment(name string) Presence {
	_, p := v.FragmentLookup(name)
	return p
}

// MostAbundantMZIs reports whether the highest peak matches mz.
func (v *View) MostAbundantMZIs(mz float64) bool {
	return v.MZAmongMostAbundant(mz, 1)
}

// MostAbundantFragmentIs reports whether the highest peak is the named
// fragment.
func (v *View) MostAbundantFragmentIs(name string) Presence {
	return v.FragmentAmongMostAbundant(name, 1)
}

// MZAmongMostAbundant reports whether one of the n highest peaks
// matches mz.
func (v *View) MZAmongMostAbundant(mz float64, n int) bool {
	if math.IsNaN(mz) {
		return false
	}
	s := v.scan
	defer s.sorted(ByIntensity)()
	for i := 0; i < n && i < len(s.mzs); i++ {
		if lookup.Match(s.mzs[i], mz, s.tolerance) {
			return true
		}
	}
	return false
}

// FragmentAmongMostAbundant reports whether the named fragment is among
// the n highest peaks.
func (v *View) FragmentAmongMostAbundant(name string, n int) Presence {
	mz, ok := v.fragmentMZ(name)
	if !ok {
		return Unknown
	}
	return presence(v.MZAmongMostAbundant(mz, n))
}

// MZPercentOfMostAbundant reports whether the peak matching mz has at
// least pct percent of the highest intensity.
func (v *View) MZPercentOfMostAbundant(mz, pct float64) bool {
	i, ok := v.MZLookup(mz)
	if !ok {
		return false
	}
	return v.scan.Normalized(i) >= pct/100
}

// FragmentPercentOfMostAbundant is MZPercentOfMostAbundant by fragment name.
func (v *View) FragmentPercentOfMostAbundant(name string, pct float64) Presence {
	mz, ok := v.fragmentMZ(name)
	if !ok {
		return Unknown
	}
	return presence(v.MZPercentOfMostAbundant(mz, pct))
}

// ChainFragmentTypeIs reports whether any annotation of peak i passes f.
// Out of range peaks never match.
func (v *View) ChainFragmentTypeIs(i int, f ChainFilter) bool {
	if i < 0 || i >= len(v.annot) {
		return false
	}
	for _, a := range v.Annotations(i) {
		if f.Match(a) {
			return true
		}
	}
	return false
}

// FragmentsByChainType returns the intensity ranks of the peaks among the
// first head (all when head <= 0) having an annotation passing f.
func (v *View) FragmentsByChainType(f ChainFilter, head int) []int {
	n := len(v.annot)
	if head > 0 && head < n {
		n = head
	}
	var out []int
	for i := 0; i < n; i++ {
		if v.ChainFragmentTypeIs(i, f) {
			out = append(out, i)
		}
	}
	return out
}

// HighestFragmentByChainType returns the highest peak among the first
// head passing f.
func (v *View) HighestFragmentByChainType(f ChainFilter, head int) (int, bool) {
	n := len(v.annot)
	if head > 0 && head < n {
		n = head
	}
	for i := 0; i < n; i++ {
		if v.ChainFragmentTypeIs(i, f) {
			return i, true
		}
	}
	return -1, false
}

// MostAbundantChain returns the highest peak passing f.
func (v *View) MostAbundantChain(f ChainFilter) (int, bool) {
	return v.HighestFragmentByChainType(f, 0)
}

// ChainFragmentTypeAmongMostAbundant reports whether one of the n highest
// peaks passes f.
func (v *View) ChainFragmentTypeAmongMostAbundant(n int, f ChainFilter) bool {
	if n <= 0 {
		return false
	}
	_, ok := v.HighestFragmentByChainType(f, n)
	return ok
}

// HasChainFragmentType reports whether any peak passes f.
func (v *View) HasChainFragmentType(f ChainFilter) bool {
	_, ok := v.HighestFragmentByChainType(f, 0)
	return ok
}

// ChainAmongMostAbundant reports whether one of the first head peaks
// passes f. Peaks below minMass are not counted, and with skipNonChains
// neither are peaks without any chain annotation.
func (v *View) ChainAmongMostAbundant(head int, f ChainFilter, minMass float64, skipNonChains bool) bool {
	s := v.scan
	defer s.sorted(ByIntensity)()
	seen := 0
	for i := 0; i < len(s.mzs) && seen < head; i++ {
		if s.mzs[i] < minMass || (skipNonChains && !v.isChain(i)) {
			continue
		}
		seen++
		if v.ChainFragmentTypeIs(i, f) {
			return true
		}
	}
	return false
}

func (v *View) isChain(i int) bool {
	for _, a := range v.annot[i] {
		if a.HasChain() {
			return true
		}
	}
	return false
}

// ChainPercentOfMostAbundant reports whether a peak passing f has more
// than pct percent of the highest intensity.
func (v *View) ChainPercentOfMostAbundant(f ChainFilter, pct float64) bool {
	s := v.scan
	defer s.sorted(ByIntensity)()
	for i := 0; i < len(s.inorm) && s.inorm[i] > pct/100; i++ {
		if v.ChainFragmentTypeIs(i, f) {
			return true
		}
	}
	return false
}
