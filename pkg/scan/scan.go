// Package scan holds one annotated MS2 spectrum and answers the fragment
// queries and chain combination searches the class identifiers are built
// from.
package scan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
)

var (
	ErrEmptyScan        = errors.New("scan has no peaks")
	ErrZeroIntensity    = errors.New("scan has no positive intensity")
	ErrLengthMismatch   = errors.New("m/z and intensity arrays differ in length")
	ErrUnknownAdduct    = errors.New("unknown adduct")
	ErrInvalidIntensity = errors.New("non-positive intensity in ratio check")
	ErrChainPosition    = errors.New("no chain at position")
)

// DefaultLogBase is the fold tolerance of chain fragment intensity ratios.
const DefaultLogBase = 1.5

// SortOrder is the current order of the per-peak arrays.
type SortOrder int

const (
	ByIntensity SortOrder = iota // descending intensity, stable
	ByMZ                         // ascending m/z
)

func (o SortOrder) String() string {
	if o == ByMZ {
		return "mz"
	}
	return "intensity"
}

// Info identifies where a scan came from.
type Info struct {
	ScanID   int
	SampleID string
	Source   string
	RT       float64 // minutes
	DeltaRT  float64 // scan RT minus feature RT
}

// Options configure a new Scan.
type Options struct {
	Info
	Precursor float64 // 0 when unknown
	Tolerance float64 // ppm; 0 uses the database default
	// CheckRatioGL and CheckRatioSL turn on the chain intensity ratio
	// check for glycero(phospho)lipids and sphingolipids.
	CheckRatioGL bool
	CheckRatioSL bool
	LogBase      float64
	Adducts      *core.AdductDatabase // nil uses core.DefaultAdductDatabase
}

// Scan is an MS2 spectrum stored as parallel per-peak arrays. Peak
// indices used by the query methods are intensity ranks: 0 is the most
// abundant peak. A Scan is not safe for concurrent use.
type Scan struct {
	View // view of the precursor as the reference adduct

	Info

	db        *fragdb.Database
	mode      core.IonMode
	tolerance float64
	checkGL   bool
	checkSL   bool
	logBase   float64
	adducts   *core.AdductDatabase

	order       SortOrder
	mzs         []float64
	intensities []float64
	inorm       []float64 // intensity relative to the highest peak
	rank        []int     // intensity rank of each peak
	ids         []int     // position of each peak in the input arrays
	toMZ        []int     // permutation from intensity order to m/z order
	toIntensity []int     // inverse of toMZ

	views map[string]*View
}

// New builds a scan from parallel m/z and intensity arrays and annotates
// every peak against db.
func New(mzs, intensities []float64, db *fragdb.Database, opts Options) (*Scan, error) {
	if len(mzs) != len(intensities) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(mzs), len(intensities))
	}
	if len(mzs) == 0 {
		return nil, ErrEmptyScan
	}
	imax := 0.0
	for _, in := range intensities {
		if in > imax {
			imax = in
		}
	}
	if imax <= 0 {
		return nil, ErrZeroIntensity
	}

	n := len(mzs)
	byIntensity := make([]int, n)
	for i := range byIntensity {
		byIntensity[i] = i
	}
	sort.SliceStable(byIntensity, func(a, b int) bool {
		return intensities[byIntensity[a]] > intensities[byIntensity[b]]
	})

	s := &Scan{
		Info:        opts.Info,
		db:          db,
		mode:        db.Mode(),
		tolerance:   opts.Tolerance,
		checkGL:     opts.CheckRatioGL,
		checkSL:     opts.CheckRatioSL,
		logBase:     opts.LogBase,
		adducts:     opts.Adducts,
		order:       ByIntensity,
		mzs:         make([]float64, n),
		intensities: make([]float64, n),
		inorm:       make([]float64, n),
		rank:        make([]int, n),
		ids:         make([]int, n),
		views:       make(map[string]*View),
	}
	if s.tolerance <= 0 {
		s.tolerance = db.Tolerance
	}
	if s.logBase <= 1 {
		s.logBase = DefaultLogBase
	}
	if s.adducts == nil {
		s.adducts = core.DefaultAdductDatabase()
	}
	for r, i := range byIntensity {
		s.mzs[r] = mzs[i]
		s.intensities[r] = intensities[i]
		s.inorm[r] = intensities[i] / imax
		s.rank[r] = r
		s.ids[r] = i
	}

	s.toMZ = make([]int, n)
	for i := range s.toMZ {
		s.toMZ[i] = i
	}
	sort.SliceStable(s.toMZ, func(a, b int) bool {
		return s.mzs[s.toMZ[a]] < s.mzs[s.toMZ[b]]
	})
	s.toIntensity = make([]int, n)
	for j, i := range s.toMZ {
		s.toIntensity[i] = j
	}

	s.View = View{scan: s, adduct: s.mode.ReferenceAdduct(), precursor: opts.Precursor}
	s.View.annotate()
	return s, nil
}

// Len returns the number of peaks.
func (s *Scan) Len() int {
	return len(s.mzs)
}

// Mode returns the ion mode of the scan.
func (s *Scan) Mode() core.IonMode {
	return s.mode
}

// Tolerance returns the MS2 tolerance in ppm.
func (s *Scan) Tolerance() float64 {
	return s.tolerance
}

// Database returns the fragment database the scan is annotated with.
func (s *Scan) Database() *fragdb.Database {
	return s.db
}

// Order returns the current order of the per-peak arrays.
func (s *Scan) Order() SortOrder {
	return s.order
}

// SortMZ orders the peaks by ascending m/z.
func (s *Scan) SortMZ() {
	if s.order == ByMZ {
		return
	}
	s.applyPermutation(s.toMZ)
	s.order = ByMZ
}

// SortIntensity orders the peaks by descending intensity.
func (s *Scan) SortIntensity() {
	if s.order == ByIntensity {
		return
	}
	s.applyPermutation(s.toIntensity)
	s.order = ByIntensity
}

// sorted switches to order and returns a func restoring the previous one.
func (s *Scan) sorted(order SortOrder) func() {
	prev := s.order
	s.setOrder(order)
	return func() { s.setOrder(prev) }
}

func (s *Scan) setOrder(order SortOrder) {
	if order == ByMZ {
		s.SortMZ()
	} else {
		s.SortIntensity()
	}
}

// applyPermutation reorders every per-peak array so that new[k] = old[perm[k]],
// including the annotations of every cached view.
func (s *Scan) applyPermutation(perm []int) {
	s.mzs = permute(s.mzs, perm)
	s.intensities = permute(s.intensities, perm)
	s.inorm = permute(s.inorm, perm)
	s.rank = permute(s.rank, perm)
	s.ids = permute(s.ids, perm)
	s.View.annot = permute(s.View.annot, perm)
	for _, v := range s.views {
		v.annot = permute(v.annot, perm)
	}
}

func permute[T any](in []T, perm []int) []T {
	out := make([]T, len(in))
	for k, i := range perm {
		out[k] = in[i]
	}
	return out
}

// ForAdduct returns the scan seen with the precursor as adduct. The precursor
// is converted to the reference adduct of the ion mode and the peaks are
// annotated again against it; views are cached. An empty name or the
// reference adduct returns the default view.
func (s *Scan) ForAdduct(adduct string) (*View, error) {
	if adduct == "" || adduct == s.mode.ReferenceAdduct() {
		return &s.View, nil
	}
	if v, ok := s.views[adduct]; ok {
		return v, nil
	}
	if _, ok := s.adducts.Get(adduct); !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownAdduct, adduct)
	}

	var precursor float64
	if s.View.precursor > 0 {
		var err error
		precursor, err = s.adducts.ToReference(s.View.precursor, adduct, s.mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownAdduct, err)
		}
	}

	// annotate in intensity order and register the view afterwards, so
	// restoring the caller's order permutes its annotations once
	defer s.sorted(ByIntensity)()
	v := &View{scan: s, adduct: adduct, precursor: precursor}
	v.annotate()
	s.views[adduct] = v
	return v, nil
}

// MZ returns the m/z of peak i.
func (s *Scan) MZ(i int) float64 {
	defer s.sorted(ByIntensity)()
	return s.mzs[i]
}

// Intensity returns the raw intensity of peak i.
func (s *Scan) Intensity(i int) float64 {
	defer s.sorted(ByIntensity)()
	return s.intensities[i]
}

// Normalized returns the intensity of peak i relative to the highest peak.
func (s *Scan) Normalized(i int) float64 {
	defer s.sorted(ByIntensity)()
	return s.inorm[i]
}

// InputIndex returns the position of peak i in the arrays given to New.
func (s *Scan) InputIndex(i int) int {
	defer s.sorted(ByIntensity)()
	return s.ids[i]
}

// Peaks returns copies of the m/z and intensity arrays in the current order.
func (s *Scan) Peaks() (mzs, intensities []float64) {
	mzs = append([]float64(nil), s.mzs...)
	intensities = append([]float64(nil), s.intensities...)
	return mzs, intensities
}
