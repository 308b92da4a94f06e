package scan

import (
	"fmt"
	"math"
	"slices"

	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
)

// CombinationOptions restrict the fragments considered by the chain
// combination search.
type CombinationOptions struct {
	// Head limits the search to the Head highest peaks (0 = all).
	Head int
	// Threshold stops the search at the first fragment below this
	// normalized intensity.
	Threshold float64
	// FragTypes restricts the fragment types allowed at a position. Missing
	// positions allow every type permitted by the constraints.
	FragTypes map[int][]string
	// Expected intensity proportions of the chain fragments. Setting it
	// forces the intensity ratio check.
	Expected         []float64
	NoIntensityCheck bool
}

// ChainDetails tell which peaks a combination was assembled from, one
// entry per chain position. A missing chain has rank -1.
type ChainDetails struct {
	Rank      []int
	Intensity []float64
	FragType  []string
}

// ChainCombination is one chain assignment explaining the record's chain
// summary.
type ChainCombination struct {
	Chains  []lipid.Chain
	Details ChainDetails
}

// fragsForPositions walks the chain list in intensity order and collects
// the fragments each chain position of rec may have produced.
func (v *View) fragsForPositions(rec lipid.Record, opts CombinationOptions) [][]ChainFragment {
	s := v.scan
	buckets := make([][]ChainFragment, rec.ChainSum.Len())
	positions := make(map[string][]int)

	for _, frag := range v.chains {
		if (opts.Head > 0 && frag.Peak >= opts.Head) || frag.Intensity < opts.Threshold {
			break
		}
		pos, ok := positions[frag.FragType]
		if !ok {
			pos = lipid.MatchConstraints(rec, s.db.Constraints(frag.FragType))
			positions[frag.FragType] = pos
		}
		for _, p := range pos {
			if allowed, ok := opts.FragTypes[p]; ok && len(allowed) > 0 && !slices.Contains(allowed, frag.FragType) {
				continue
			}
			buckets[p] = append(buckets[p], frag)
		}
	}
	return buckets
}

// product calls fn with every combination taking one element of each
// bucket, in bucket order. It stops early when fn returns an error.
func product(buckets [][]ChainFragment, fn func([]ChainFragment) error) error {
	for _, b := range buckets {
		if len(b) == 0 {
			return nil
		}
	}
	idx := make([]int, len(buckets))
	comb := make([]ChainFragment, len(buckets))
	for {
		for i, j := range idx {
			comb[i] = buckets[i][j]
		}
		if err := fn(comb); err != nil {
			return err
		}
		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(buckets[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return nil
		}
	}
}

func sums(frags []ChainFragment) (c, u int) {
	for _, f := range frags {
		c += f.C
		u += f.U
	}
	return c, u
}

// ChainCombinations returns every assignment of chain fragments to the
// positions of rec whose carbon counts and unsaturations add up to the
// record's chain summary. Every position needs at least one fragment.
func (v *View) ChainCombinations(rec lipid.Record, opts CombinationOptions) ([]ChainCombination, error) {
	sum := rec.ChainSum
	if sum.Len() == 0 {
		return nil, nil
	}
	buckets := v.fragsForPositions(rec, opts)

	var out []ChainCombination
	err := product(buckets, func(comb []ChainFragment) error {
		if c, u := sums(comb); c != sum.C || u != sum.U {
			return nil
		}
		ok, err := v.intensityCheck(comb, sum, opts)
		if err != nil || !ok {
			return err
		}
		out = append(out, v.combination(comb, sum, -1, lipid.Chain{}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HasChainCombinations reports whether ChainCombinations finds anything.
func (v *View) HasChainCombinations(rec lipid.Record, opts CombinationOptions) (bool, error) {
	combs, err := v.ChainCombinations(rec, opts)
	return len(combs) > 0, err
}

// MissingChain returns the combinations where every position but missing
// is explained by a fragment and the remaining carbon count and
// unsaturation form a valid chain at missing.
func (v *View) MissingChain(rec lipid.Record, missing int, opts CombinationOptions) ([]ChainCombination, error) {
	sum := rec.ChainSum
	if missing < 0 || missing >= sum.Len() {
		return nil, fmt.Errorf("%w %d of %s", ErrChainPosition, missing, rec.SummaryString())
	}
	buckets := v.fragsForPositions(rec, opts)
	buckets = slices.Delete(buckets, missing, missing+1)

	var out []ChainCombination
	err := product(buckets, func(comb []ChainFragment) error {
		c, u := sums(comb)
		mc, mu := sum.C-c, sum.U-u
		if mc < 1 || mu < 0 || mu > mc-1 {
			return nil
		}
		ok, err := v.intensityCheck(comb, sum, opts)
		if err != nil || !ok {
			return err
		}
		chain := lipid.Chain{C: mc, U: mu, Type: sum.Types[missing], Attr: sum.Attr(missing)}
		out = append(out, v.combination(comb, sum, missing, chain))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// combination assembles the chains of comb, inserting chain at position
// missing when missing >= 0.
func (v *View) combination(comb []ChainFragment, sum lipid.ChainSummary, missing int, chain lipid.Chain) ChainCombination {
	n := sum.Len()
	cc := ChainCombination{
		Chains: make([]lipid.Chain, n),
		Details: ChainDetails{
			Rank:      make([]int, n),
			Intensity: make([]float64, n),
			FragType:  make([]string, n),
		},
	}
	j := 0
	for i := 0; i < n; i++ {
		if i == missing {
			cc.Chains[i] = chain
			cc.Details.Rank[i] = -1
			continue
		}
		frag := comb[j]
		j++
		attr := sum.Attr(i)
		cc.Chains[i] = lipid.Chain{
			C:    frag.C,
			U:    frag.U,
			Type: frag.ChainType,
			Attr: lipid.ChainAttr{
				Sph:   attr.Sph,
				Ether: frag.ChainType == lipid.FAL,
				OH:    attr.OH,
			},
		}
		cc.Details.Rank[i] = frag.Peak
		cc.Details.Intensity[i] = frag.Intensity
		cc.Details.FragType[i] = frag.FragType
	}
	return cc
}

func (v *View) intensityCheck(comb []ChainFragment, sum lipid.ChainSummary, opts CombinationOptions) (bool, error) {
	if opts.NoIntensityCheck {
		return true, nil
	}
	s := v.scan
	sph := sum.Len() > 0 && sum.Types[0] == lipid.Sph
	if !(sph && s.checkSL) && !(!sph && s.checkGL) && len(opts.Expected) == 0 {
		return true, nil
	}
	intensities := make([]float64, len(comb))
	peaks := make([]int, len(comb))
	for i, f := range comb {
		intensities[i] = f.Intensity
		peaks[i] = f.Peak
	}
	return IntensityRatios(intensities, peaks, opts.Expected, s.logBase)
}

// IntensityRatios tells whether intensities are even, or follow the
// proportions in expected when given, within one logBase fold. Peaks
// name the peak each intensity comes from; a peak used k times counts
// with 1/k of its intensity. A single value always passes.
func IntensityRatios(intensities []float64, peaks []int, expected []float64, logBase float64) (bool, error) {
	if len(intensities) <= 1 {
		return true, nil
	}
	for _, in := range intensities {
		if in <= 0 {
			return false, fmt.Errorf("%w: %g", ErrInvalidIntensity, in)
		}
	}
	if logBase <= 1 {
		logBase = DefaultLogBase
	}
	if len(peaks) != len(intensities) {
		peaks = make([]int, len(intensities))
		for i := range peaks {
			peaks[i] = i
		}
	}
	count := make(map[int]int, len(peaks))
	for _, p := range peaks {
		count[p]++
	}

	logs := make([]float64, len(intensities))
	for i, in := range intensities {
		corrected := in / float64(count[peaks[i]])
		if i < len(expected) && expected[i] > 0 {
			corrected /= expected[i]
		}
		logs[i] = math.Log(corrected) / math.Log(logBase)
	}
	for i := range logs {
		for j := i + 1; j < len(logs); j++ {
			if math.Abs(logs[i]-logs[j]) > 1 {
				return false, nil
			}
		}
	}
	return true, nil
}

// MatchingChainCombinations returns the chain combinations in which every
// param matches at least one chain. A single param is applied to every
// position of a multi chain record.
func (v *View) MatchingChainCombinations(rec lipid.Record, params []ChainParam, opts CombinationOptions) ([]ChainCombination, error) {
	combs, err := v.ChainCombinations(rec, opts)
	if err != nil || len(params) == 0 {
		return combs, err
	}
	if len(params) == 1 && rec.ChainSum.Len() > 1 {
		p := params[0]
		params = make([]ChainParam, rec.ChainSum.Len())
		for i := range params {
			params[i] = p
		}
	}

	var out []ChainCombination
	for _, cc := range combs {
		if matchesAll(cc, params) {
			out = append(out, cc)
		}
	}
	return out, nil
}

func matchesAll(cc ChainCombination, params []ChainParam) bool {
	for _, p := range params {
		found := false
		for i, ch := range cc.Chains {
			if p.ChainType.Match(ch.Type) &&
				p.FragType.Match(cc.Details.FragType[i]) &&
				p.C.Match(ch.C) &&
				p.U.Match(ch.U) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// HasChainCombination reports whether MatchingChainCombinations finds
// anything.
func (v *View) HasChainCombination(rec lipid.Record, params []ChainParam, opts CombinationOptions) (bool, error) {
	combs, err := v.MatchingChainCombinations(rec, params, opts)
	return len(combs) > 0, err
}
