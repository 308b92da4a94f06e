package scan

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
)

func fa(c, u int, mass float64) fragdb.Record {
	return fragdb.Record{
		Mass:      mass,
		Name:      fmt.Sprintf("FA-H (%d:%d)", c, u),
		FragType:  "FA-H",
		ChainType: lipid.FA,
		C:         c,
		U:         u,
		Charge:    -1,
	}
}

func negativeDB() *fragdb.Database {
	return fragdb.NewDatabase(core.Negative, []fragdb.Record{
		fa(16, 0, 255.2330),
		fa(18, 0, 283.2643),
		fa(18, 1, 281.2486),
		{Mass: 140.0118, Name: "PE [P+E] (140.0118)", FragType: "[M-H]-", Charge: -1},
		{Mass: 141.0191, Name: "NL PE [P+E] (141.0191)", FragType: "NL"},
	}, nil)
}

func pe(c, u int) lipid.Record {
	return lipid.Record{
		Headgroup: lipid.Headgroup{Main: "PE"},
		ChainSum:  lipid.ChainSummary{C: c, U: u, Types: []string{lipid.FA, lipid.FA}},
	}
}

func TestNewErrors(t *testing.T) {
	db := negativeDB()
	tests := []struct {
		name      string
		mzs, ints []float64
		wantErr   error
	}{
		{name: "length mismatch", mzs: []float64{100, 200}, ints: []float64{1}, wantErr: ErrLengthMismatch},
		{name: "empty", wantErr: ErrEmptyScan},
		{name: "zero intensity", mzs: []float64{100, 200}, ints: []float64{0, 0}, wantErr: ErrZeroIntensity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.mzs, tt.ints, db, Options{})
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestSortRoundTrip(t *testing.T) {
	s, err := New(
		[]float64{140.0118, 300, 200, 283.2643},
		[]float64{5, 10, 1, 5},
		negativeDB(),
		Options{Tolerance: 10},
	)
	require.NoError(t, err)

	mzs, ints := s.Peaks()
	assert.Equal(t, []float64{300, 140.0118, 283.2643, 200}, mzs, "stable descending intensity")
	assert.Equal(t, []float64{10, 5, 5, 1}, ints)
	assert.Equal(t, 1, s.InputIndex(0))
	assert.InDelta(t, 0.5, s.Normalized(1), 1e-12)
	require.Len(t, s.Annotations(1), 1)
	assert.Equal(t, "PE [P+E] (140.0118)", s.Annotations(1)[0].Name)

	s.SortMZ()
	assert.Equal(t, ByMZ, s.Order())
	mzs, _ = s.Peaks()
	assert.Equal(t, []float64{140.0118, 200, 283.2643, 300}, mzs)
	// annotations travel with their peaks
	assert.Equal(t, "PE [P+E] (140.0118)", s.View.annot[0][0].Name)
	assert.Equal(t, "FA-H (18:0)", s.View.annot[2][0].Name)
	assert.Equal(t, []int{1, 3, 2, 0}, s.rank)

	s.SortMZ()
	assert.Equal(t, ByMZ, s.Order(), "idempotent")

	// queries answer in intensity ranks and keep the current order
	i, ok := s.MZLookup(283.2643)
	require.True(t, ok)
	assert.Equal(t, 2, i)
	assert.Equal(t, ByMZ, s.Order())

	s.SortIntensity()
	mzs, ints = s.Peaks()
	assert.Equal(t, []float64{300, 140.0118, 283.2643, 200}, mzs)
	assert.Equal(t, []float64{10, 5, 5, 1}, ints)
	assert.Equal(t, []int{0, 1, 2, 3}, s.rank)
}

func TestMostAbundantFragment(t *testing.T) {
	db := fragdb.NewDatabase(core.Positive, []fragdb.Record{
		{Mass: 184.0733, Name: "PC/SM [P+Ch] (184.0733)", FragType: "[M+H]+", Charge: 1},
	}, nil)
	mzs := []float64{184.0734, 86.0964, 104.1069}
	ints := []float64{1000, 200, 50}

	tests := []struct {
		name string
		tol  float64
		want Presence
	}{
		{name: "5 ppm", tol: 5, want: Present},
		{name: "0.1 ppm", tol: 0.1, want: Absent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(mzs, ints, db, Options{Tolerance: tt.tol})
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.MostAbundantFragmentIs("PC/SM [P+Ch] (184.0733)"))
			assert.Equal(t, Unknown, s.MostAbundantFragmentIs("no such fragment"))
		})
	}
}

func TestFragmentQueries(t *testing.T) {
	precursor := 716.5236
	s, err := New(
		[]float64{283.2643, 140.0118, 281.2486, precursor - 141.0191, 196.0380},
		[]float64{1000, 300, 200, 100, 20},
		negativeDB(),
		Options{Precursor: precursor, Tolerance: 10},
	)
	require.NoError(t, err)

	assert.Equal(t, Present, s.HasFragment("PE [P+E] (140.0118)"))
	assert.Equal(t, Present, s.HasFragment("NL PE [P+E] (141.0191)"))
	assert.True(t, s.HasNeutralLoss(141.0191))
	assert.Equal(t, Unknown, s.HasFragment("PI [InsP-H]- (259.02)"))

	i, p := s.FragmentLookup("NL PE [P+E] (141.0191)")
	assert.Equal(t, Present, p)
	assert.Equal(t, 3, i)

	assert.True(t, s.MostAbundantMZIs(283.2643))
	assert.Equal(t, Absent, s.FragmentAmongMostAbundant("PE [P+E] (140.0118)", 1))
	assert.Equal(t, Present, s.FragmentAmongMostAbundant("PE [P+E] (140.0118)", 2))
	assert.True(t, s.MZPercentOfMostAbundant(140.0118, 30))
	assert.False(t, s.MZPercentOfMostAbundant(140.0118, 30.1))
	assert.Equal(t, Absent, s.FragmentPercentOfMostAbundant("PE [P+E] (140.0118)", 50))
	assert.False(t, s.HasMZ(500))
}

func TestChainQueries(t *testing.T) {
	s, err := New(
		[]float64{140.0118, 283.2643, 281.2486, 255.2330},
		[]float64{1000, 500, 100, 40},
		negativeDB(),
		Options{Tolerance: 10},
	)
	require.NoError(t, err)

	require.Len(t, s.ChainList(), 3)
	assert.Equal(t, ChainFragment{C: 18, U: 0, FragType: "FA-H", ChainType: lipid.FA, Peak: 1, Intensity: 0.5}, s.ChainList()[0])

	assert.False(t, s.ChainFragmentTypeIs(0, ChainFilter{}), "non chain annotation")
	assert.True(t, s.ChainFragmentTypeIs(1, FragType("FA-H")))
	assert.False(t, s.ChainFragmentTypeIs(9, FragType("FA-H")), "out of range")
	assert.True(t, s.ChainFragmentTypeIs(2, ChainFilter{U: Not(0)}))
	assert.False(t, s.ChainFragmentTypeIs(1, ChainFilter{U: Not(0)}))
	assert.True(t, s.ChainFragmentTypeIs(3, ChainFilter{C: Is(14, 16), ChainType: Is(lipid.FA)}))

	assert.Equal(t, []int{1, 2, 3}, s.FragmentsByChainType(FragType("FA-H"), 0))
	assert.Equal(t, []int{1}, s.FragmentsByChainType(FragType("FA-H"), 2))

	i, ok := s.HighestFragmentByChainType(ChainFilter{U: Is(1)}, 0)
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = s.MostAbundantChain(FragType("Sph-H"))
	assert.False(t, ok)

	assert.False(t, s.ChainFragmentTypeAmongMostAbundant(1, FragType("FA-H")))
	assert.True(t, s.ChainFragmentTypeAmongMostAbundant(2, FragType("FA-H")))
	assert.True(t, s.HasChainFragmentType(ChainFilter{C: Is(16)}))

	assert.False(t, s.ChainAmongMostAbundant(1, FragType("FA-H"), 0, false))
	assert.True(t, s.ChainAmongMostAbundant(1, FragType("FA-H"), 0, true))
	assert.False(t, s.ChainAmongMostAbundant(1, FragType("FA-H"), 300, false))

	assert.True(t, s.ChainPercentOfMostAbundant(ChainFilter{U: Is(1)}, 5))
	assert.False(t, s.ChainPercentOfMostAbundant(ChainFilter{U: Is(1)}, 10))
}

func TestAdductView(t *testing.T) {
	db := fragdb.NewDatabase(core.Positive, []fragdb.Record{
		{Mass: 141.0191, Name: "NL PE [P+E] (NL 141.0191)", FragType: "NL"},
	}, nil)
	adducts := core.DefaultAdductDatabase()
	nh4, _ := adducts.Get("[M+NH4]+")
	h, _ := adducts.Get("[M+H]+")

	neutral := 717.5309
	precursor := nh4.MZ(neutral)
	fragment := h.MZ(neutral) - 141.0191

	s, err := New([]float64{fragment, 300}, []float64{100, 10}, db, Options{Precursor: precursor, Tolerance: 10})
	require.NoError(t, err)
	assert.Equal(t, Absent, s.HasFragment("NL PE [P+E] (NL 141.0191)"))

	v, err := s.ForAdduct("[M+NH4]+")
	require.NoError(t, err)
	assert.InDelta(t, h.MZ(neutral), v.Precursor(), 1e-6)
	assert.Equal(t, Present, v.HasFragment("NL PE [P+E] (NL 141.0191)"))
	assert.Len(t, v.Annotations(0), 1)
	assert.Empty(t, s.Annotations(0))

	again, err := s.ForAdduct("[M+NH4]+")
	require.NoError(t, err)
	assert.Same(t, v, again)

	ref, err := s.ForAdduct("[M+H]+")
	require.NoError(t, err)
	assert.Same(t, &s.View, ref)

	// cached views follow the sort order too
	s.SortMZ()
	assert.Len(t, v.annot[1], 1)
	s.SortIntensity()
	assert.Len(t, v.annot[0], 1)

	_, err = s.ForAdduct("[M+Xe]+")
	assert.True(t, errors.Is(err, ErrUnknownAdduct))
}

func TestAdductViewKeepsSortOrder(t *testing.T) {
	db := fragdb.NewDatabase(core.Positive, []fragdb.Record{
		{Mass: 141.0191, Name: "NL PE [P+E] (NL 141.0191)", FragType: "NL"},
	}, nil)
	adducts := core.DefaultAdductDatabase()
	nh4, _ := adducts.Get("[M+NH4]+")
	h, _ := adducts.Get("[M+H]+")

	neutral := 717.5309
	fragment := h.MZ(neutral) - 141.0191

	tests := []struct {
		name       string
		order      SortOrder
		fragmentAt int // index of the fragment peak in order
	}{
		{"intensity order", ByIntensity, 0},
		{"mz order", ByMZ, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New([]float64{300, fragment}, []float64{10, 100}, db, Options{Precursor: nh4.MZ(neutral), Tolerance: 10})
			require.NoError(t, err)
			s.setOrder(tt.order)

			v, err := s.ForAdduct("[M+NH4]+")
			require.NoError(t, err)
			assert.Equal(t, tt.order, s.Order())
			assert.Equal(t, Present, v.HasFragment("NL PE [P+E] (NL 141.0191)"))
			assert.Equal(t, tt.order, s.Order())
			assert.Len(t, v.Annotations(0), 1)
			assert.Len(t, v.annot[tt.fragmentAt], 1)
			assert.Empty(t, v.annot[1-tt.fragmentAt])

			s.SortIntensity()
			assert.Len(t, v.annot[0], 1)
			s.SortMZ()
			assert.Len(t, v.annot[1], 1)
		})
	}
}

func TestChainCombinations(t *testing.T) {
	mzs := []float64{283.2643, 281.2486, 255.2330}

	tests := []struct {
		name    string
		ints    []float64
		checkGL bool
		opts    CombinationOptions
		want    int
	}{
		{name: "both orders", ints: []float64{100, 80, 10}, want: 2},
		{name: "head", ints: []float64{100, 80, 10}, opts: CombinationOptions{Head: 1}, want: 0},
		{name: "threshold", ints: []float64{100, 80, 10}, opts: CombinationOptions{Threshold: 0.9}, want: 0},
		{name: "ratio check passes", ints: []float64{100, 80, 10}, checkGL: true, want: 2},
		{name: "ratio check fails", ints: []float64{100, 20, 10}, checkGL: true, want: 0},
		{name: "ratio check bypassed", ints: []float64{100, 20, 10}, checkGL: true, opts: CombinationOptions{NoIntensityCheck: true}, want: 2},
		{name: "expected ratios", ints: []float64{100, 50, 10}, opts: CombinationOptions{Expected: []float64{2, 1}}, want: 1},
		{name: "position frag types", ints: []float64{100, 80, 10}, opts: CombinationOptions{FragTypes: map[int][]string{1: {"LysoPE"}}}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(mzs, tt.ints, negativeDB(), Options{Tolerance: 10, CheckRatioGL: tt.checkGL})
			require.NoError(t, err)
			combs, err := s.ChainCombinations(pe(36, 1), tt.opts)
			require.NoError(t, err)
			assert.Len(t, combs, tt.want)
		})
	}
}

func TestChainCombinationDetails(t *testing.T) {
	s, err := New([]float64{283.2643, 281.2486}, []float64{100, 80}, negativeDB(), Options{Tolerance: 10})
	require.NoError(t, err)

	rec := pe(36, 1)
	combs, err := s.ChainCombinations(rec, CombinationOptions{})
	require.NoError(t, err)
	require.Len(t, combs, 2)

	cc := combs[0]
	assert.Equal(t, "PE(18:0_18:1)", lipid.Species(rec.Headgroup, cc.Chains))
	assert.Equal(t, []int{0, 1}, cc.Details.Rank)
	assert.Equal(t, []string{"FA-H", "FA-H"}, cc.Details.FragType)
	assert.InDelta(t, 0.8, cc.Details.Intensity[1], 1e-12)

	// every combination explains the chain summary
	for _, cc := range combs {
		c, u := 0, 0
		for _, ch := range cc.Chains {
			c += ch.C
			u += ch.U
		}
		assert.Equal(t, 36, c)
		assert.Equal(t, 1, u)
	}

	ok, err := s.HasChainCombinations(pe(34, 1), CombinationOptions{})
	require.NoError(t, err)
	assert.False(t, ok)

	none, err := s.ChainCombinations(lipid.Record{Headgroup: lipid.Headgroup{Main: "VA"}}, CombinationOptions{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEtherAndSphingoidAttributes(t *testing.T) {
	db := fragdb.NewDatabase(core.Positive, []fragdb.Record{
		{Mass: 264.2686, Name: "Sph-2xH2O+H (18:1)", FragType: "Sph-2xH2O+H", ChainType: lipid.Sph, C: 18, U: 1, Charge: 1},
		{Mass: 239.2369, Name: "FA-OH (16:0)", FragType: "FA-OH", ChainType: lipid.FA, C: 16, U: 0, Charge: 1},
	}, map[string][]lipid.FragConstraint{
		"Sph-2xH2O+H": {{ChainType: lipid.Sph}},
		"FA-OH":       {{ChainType: lipid.FA}},
	})
	s, err := New([]float64{264.2686, 239.2369}, []float64{100, 50}, db, Options{Tolerance: 10})
	require.NoError(t, err)

	rec := lipid.Record{
		Headgroup: lipid.Headgroup{Main: "Cer"},
		ChainSum: lipid.ChainSummary{
			C: 34, U: 1,
			Types: []string{lipid.Sph, lipid.FA},
			Attrs: []lipid.ChainAttr{{Sph: "t"}, {OH: []string{"2OH"}}},
		},
	}
	combs, err := s.ChainCombinations(rec, CombinationOptions{})
	require.NoError(t, err)
	require.Len(t, combs, 1, "constraints keep each fragment at its own position")
	assert.Equal(t, "Cer(t18:1/16:0;2OH)", lipid.Species(rec.Headgroup, combs[0].Chains))
}

func TestMissingChain(t *testing.T) {
	s, err := New([]float64{283.2643}, []float64{100}, negativeDB(), Options{Tolerance: 10})
	require.NoError(t, err)

	tests := []struct {
		name  string
		c, u  int
		wantC int
		wantU int
		want  bool
	}{
		{name: "valid", c: 36, u: 1, wantC: 18, wantU: 1, want: true},
		{name: "too unsaturated", c: 19, u: 1},
		{name: "no carbon left", c: 18, u: 0},
		{name: "negative unsaturation", c: 36, u: -1},
		{name: "short chain", c: 20, u: 0, wantC: 2, wantU: 0, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combs, err := s.MissingChain(pe(tt.c, tt.u), 1, CombinationOptions{})
			require.NoError(t, err)
			if !tt.want {
				assert.Empty(t, combs)
				return
			}
			require.Len(t, combs, 1)
			missing := combs[0].Chains[1]
			assert.Equal(t, tt.wantC, missing.C)
			assert.Equal(t, tt.wantU, missing.U)
			assert.Equal(t, lipid.FA, missing.Type)
			assert.Equal(t, []int{0, -1}, combs[0].Details.Rank)
			assert.GreaterOrEqual(t, missing.C, 1)
			assert.LessOrEqual(t, missing.U, missing.C-1)
		})
	}

	_, err = s.MissingChain(pe(36, 1), 2, CombinationOptions{})
	assert.True(t, errors.Is(err, ErrChainPosition))
}

func TestMatchingChainCombinations(t *testing.T) {
	s, err := New([]float64{283.2643, 281.2486}, []float64{100, 80}, negativeDB(), Options{Tolerance: 10})
	require.NoError(t, err)
	rec := pe(36, 1)

	tests := []struct {
		name   string
		params []ChainParam
		want   int
	}{
		{name: "no params", want: 2},
		{name: "single param replicated", params: []ChainParam{{FragType: Is("FA-H")}}, want: 2},
		{name: "each param matches a chain", params: []ChainParam{{U: Is(0)}, {U: Is(1)}}, want: 2},
		{name: "unmatched param", params: []ChainParam{{U: Is(0)}, {C: Is(16)}}, want: 0},
		{name: "wrong chain type", params: []ChainParam{{ChainType: Is(lipid.Sph)}}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combs, err := s.MatchingChainCombinations(rec, tt.params, CombinationOptions{})
			require.NoError(t, err)
			assert.Len(t, combs, tt.want)
			ok, err := s.HasChainCombination(rec, tt.params, CombinationOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want > 0, ok)
		})
	}
}

func TestIntensityRatios(t *testing.T) {
	tests := []struct {
		name        string
		intensities []float64
		peaks       []int
		expected    []float64
		want        bool
	}{
		{name: "single value", intensities: []float64{5}, want: true},
		{name: "even", intensities: []float64{1, 1.4}, want: true},
		{name: "uneven", intensities: []float64{1, 3}, want: false},
		{name: "uneven reversed", intensities: []float64{3, 1}, want: false},
		{name: "expected proportions", intensities: []float64{1, 2}, expected: []float64{1, 2}, want: true},
		{name: "shared peak", intensities: []float64{2, 2, 1}, peaks: []int{0, 0, 1}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := IntensityRatios(tt.intensities, tt.peaks, tt.expected, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	_, err := IntensityRatios([]float64{1, 0}, nil, nil, 1.5)
	assert.True(t, errors.Is(err, ErrInvalidIntensity))
}

func TestAccept(t *testing.T) {
	assert.True(t, Accept[int]{}.Match(3))
	assert.True(t, Is(1, 2).Match(2))
	assert.False(t, Is(1, 2).Match(3))
	assert.True(t, Not(0).Match(1))
	assert.False(t, Not(0).Match(0))
	assert.Equal(t, "*", Accept[string]{}.String())
	assert.Equal(t, "FA-H", Is("FA-H").String())
}

func TestString(t *testing.T) {
	s, err := New([]float64{140.0118, 99.5}, []float64{100, 10}, negativeDB(), Options{Tolerance: 10, Info: Info{ScanID: 42}})
	require.NoError(t, err)

	out := s.String()
	assert.Contains(t, out, "scan 42")
	assert.Contains(t, out, "PE [P+E] (140.0118)")
	assert.Contains(t, out, "Unknown")
	assert.Equal(t, "PE [P+E] (140.0118) (100); Unknown (99.500) (10)", s.FullList())
}
