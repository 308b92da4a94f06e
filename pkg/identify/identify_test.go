package identify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/fragdb"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
	"github.com/ChrisMcGann/LipidKey/pkg/scan"
)

func faFragment(c, u int, mass float64) fragdb.Record {
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

func ion(mass float64, name string, charge int) fragdb.Record {
	return fragdb.Record{Mass: mass, Name: name, FragType: "ion", Charge: charge}
}

func loss(mass float64, name string) fragdb.Record {
	return fragdb.Record{Mass: mass, Name: name, FragType: "NL"}
}

func record(main string, c, u int, types ...string) lipid.Record {
	return lipid.Record{
		Headgroup: lipid.Headgroup{Main: main},
		ChainSum:  lipid.ChainSummary{C: c, U: u, Types: types},
	}
}

func newScan(t *testing.T, db *fragdb.Database, precursor float64, mzs, ints []float64) *scan.Scan {
	t.Helper()
	s, err := scan.New(mzs, ints, db, scan.Options{
		Info:      scan.Info{ScanID: 42, SampleID: "A1"},
		Precursor: precursor,
		Tolerance: 10,
	})
	require.NoError(t, err)
	return s
}

// peNegativeScan: 18:0 and 18:1 carboxylates on top, the PE headgroup
// ion and one glycerophosphoethanolamine fragment.
func peNegativeScan(t *testing.T) *scan.Scan {
	db := fragdb.NewDatabase(core.Negative, []fragdb.Record{
		faFragment(18, 0, 283.2643),
		faFragment(18, 1, 281.2486),
		ion(140.0118, "PE [P+E] (140.0118)", -1),
		ion(196.0380, "PE [G+P+E-H2O] (196.0380)", -1),
		ion(178.0275, "PE [G+P+E] (178.0275)", -1),
	}, nil)
	return newScan(t, db, 0,
		[]float64{140.0118, 196.0380, 281.2486, 283.2643},
		[]float64{30, 20, 80, 100},
	)
}

func defaultTable(t *testing.T) *Table {
	t.Helper()
	table, err := DefaultTable()
	require.NoError(t, err)
	return table
}

func TestRuleScore(t *testing.T) {
	pass := func(*Context) bool { return true }
	fail := func(*Context) bool { return false }

	tests := []struct {
		name      string
		rule      Rule
		wantScore int
		wantMax   int
		optional  bool
	}{
		{
			name: "gate passes",
			rule: Rule{
				Max:            10,
				Gate:           []Check{pass},
				Points:         5,
				Awards:         award(2, pass, fail, pass),
				ChainsOptional: true,
			},
			wantScore: 9, wantMax: 10, optional: true,
		},
		{
			name: "gate fails",
			rule: Rule{
				Max:            10,
				Gate:           []Check{pass, fail},
				Points:         5,
				Awards:         award(2, pass),
				ChainsOptional: true,
			},
			wantScore: 0, wantMax: 10,
		},
		{
			name: "always counts without gate",
			rule: Rule{
				Max:    4,
				Gate:   []Check{fail},
				Points: 5,
				Always: []Award{{Check: pass, Points: -1}, {Check: pass, Points: 3, Max: 3}},
			},
			wantScore: 2, wantMax: 7,
		},
		{
			name:      "empty gate passes",
			rule:      Rule{Max: 3, Points: 3},
			wantScore: 3, wantMax: 3,
		},
		{
			name: "pairs ceiling counts without gate",
			rule: Rule{
				Max:    5,
				Gate:   []Check{fail},
				Points: 5,
				Pairs:  lysoPairs("LysoPE"),
			},
			wantScore: 0, wantMax: 11,
		},
		{
			name:      "default pairs ceiling",
			rule:      Rule{Max: 5, Gate: []Check{fail}, Pairs: &Pairs{}},
			wantScore: 0, wantMax: 11,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Context{}
			score, maxScore := tt.rule.Score(c)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantMax, maxScore)
			assert.Equal(t, tt.optional, c.chainsOptional)
		})
	}
}

func TestPairsPoints(t *testing.T) {
	steep := Pairs{Points: func(n int) int { return n * 4 }, Max: 6}

	tests := []struct {
		name  string
		pairs Pairs
		n     int
		want  int
	}{
		{"default none", Pairs{}, 0, 0},
		{"default two", Pairs{}, 2, 4},
		{"default capped", Pairs{}, 5, 6},
		{"lyso two", *lysoPairs("LysoPI"), 2, 6},
		{"lyso capped", *lysoPairs("LysoPI"), 4, 6},
		{"custom under ceiling", steep, 1, 4},
		{"custom clamped", steep, 2, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.pairs.points(tt.n)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got, tt.pairs.ceiling())
		})
	}
}

func TestPairsWithinClassMax(t *testing.T) {
	for _, cls := range []*Class{peNegative, pcNegative, piNegative, psNegative, pgNegative, bmpNegative} {
		t.Run(cls.Name, func(t *testing.T) {
			rule, ok := cls.Confirm.(Rule)
			require.True(t, ok)
			require.NotNil(t, rule.Pairs)
			assert.Equal(t, 6, rule.Pairs.ceiling())
			// the class checks need a scan
			rule.Gate = []Check{func(*Context) bool { return false }}
			rule.Always = nil
			score, maxScore := rule.Score(&Context{})
			assert.Equal(t, 0, score)
			assert.Equal(t, rule.Max+6, maxScore)
		})
	}
}

func TestSumAndMissingOverride(t *testing.T) {
	c := &Context{missing: []int{0, 1}}
	s := Sum(
		Rule{Max: 5, Points: 5, Missing: []int{1}},
		ScorerFunc(func(*Context) (int, int) { return -2, 3 }),
	)
	score, maxScore := s.Score(c)
	assert.Equal(t, 3, score)
	assert.Equal(t, 8, maxScore)
	assert.Equal(t, []int{1}, c.missing)
}

func TestPercentScore(t *testing.T) {
	tests := []struct {
		score, max, want int
	}{
		{0, 0, 200},
		{5, 0, 200},
		{8, 11, 73},
		{1, 3, 33},
		{-5, 10, 0},
		{12, 10, 100},
		{10, 10, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.score, tt.max), func(t *testing.T) {
			assert.Equal(t, tt.want, percentScore(tt.score, tt.max))
		})
	}
}

func TestIdentityStrings(t *testing.T) {
	id := Identity{
		ScorePct:  85,
		Headgroup: lipid.Headgroup{Main: "PC"},
		ChainSum:  lipid.ChainSummary{C: 36, U: 1, Types: []string{lipid.FA, lipid.FA}},
		Chains: []lipid.Chain{
			{C: 18, U: 0, Type: lipid.FA},
			{C: 18, U: 1, Type: lipid.FA},
		},
		Info: scan.Info{ScanID: 1234, SampleID: "A1", DeltaRT: 0.12},
	}
	assert.Equal(t, "PC(18:0_18:1)", id.String())
	assert.Equal(t, "PC(18:0_18:1)[score=85.0,deltart=0.12,sample=A1,scan=1234]", id.FullString())

	id.SampleID = ""
	assert.Equal(t, "PC(18:0_18:1)[score=85.0,deltart=0.12,scan=1234]", id.FullString())

	chainless := id
	chainless.Chains = nil
	assert.Equal(t, "PC(36:1)", chainless.String())
	assert.NotEqual(t, id.Key(), chainless.Key())
	assert.False(t, id.Equal(chainless))

	other := id
	other.ScorePct = 10
	other.ScanID = 1
	assert.True(t, id.Equal(other), "scores and scans are not structural")
	assert.Equal(t, id.Key(), other.Key())
}

func TestIdentityKeyAttributes(t *testing.T) {
	cer := func(attrs ...lipid.ChainAttr) Identity {
		return Identity{
			Headgroup: lipid.Headgroup{Main: "Cer"},
			ChainSum:  lipid.ChainSummary{C: 42, U: 2, Types: []string{lipid.Sph, lipid.FA}, Attrs: attrs},
		}
	}
	withChains := func(second lipid.ChainAttr) Identity {
		id := cer(lipid.ChainAttr{Sph: "d"}, second)
		id.Chains = []lipid.Chain{
			{C: 18, U: 1, Type: lipid.Sph, Attr: lipid.ChainAttr{Sph: "d"}},
			{C: 24, U: 1, Type: lipid.FA, Attr: second},
		}
		return id
	}

	tests := []struct {
		name string
		a, b Identity
	}{
		{"hydroxyl position", cer(lipid.ChainAttr{Sph: "d", OH: []string{"2OH"}}, lipid.ChainAttr{}), cer(lipid.ChainAttr{Sph: "d"}, lipid.ChainAttr{OH: []string{"2OH"}})},
		{"second position prefix", cer(lipid.ChainAttr{Sph: "d"}, lipid.ChainAttr{}), cer(lipid.ChainAttr{Sph: "d"}, lipid.ChainAttr{Ether: true})},
		{"sphingoid with ether", cer(lipid.ChainAttr{Sph: "d"}), cer(lipid.ChainAttr{Sph: "d", Ether: true})},
		{"chain hydroxyl", withChains(lipid.ChainAttr{}), withChains(lipid.ChainAttr{OH: []string{"2OH"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.False(t, tt.a.Equal(tt.b))
			assert.NotEqual(t, tt.a.Key(), tt.b.Key())
		})
	}

	same := cer(lipid.ChainAttr{Sph: "d"}, lipid.ChainAttr{})
	implicit := cer(lipid.ChainAttr{Sph: "d"})
	assert.True(t, same.Equal(implicit))
	assert.Equal(t, same.Key(), implicit.Key())
}

func TestDefaultTable(t *testing.T) {
	table := defaultTable(t)
	assert.Equal(t, 89, table.Len())
	require.NoError(t, table.Validate())

	tests := []struct {
		name string
		mode core.IonMode
		hg   lipid.Headgroup
		want *Class
	}{
		{"negative PE", core.Negative, hg("PE"), peNegative},
		{"lyso PE shares the class in negative mode", core.Negative, hg("PE", "Lyso"), peNegative},
		{"lyso PE has its own class in positive mode", core.Positive, hg("PE", "Lyso"), lysoPEPositive},
		{"subclass order ignored", core.Positive, hg("Cer", "Lyso", "Hex"), cerPositive},
		{"sphingomyelin negative", core.Negative, hg("SM"), cerNegative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, ok := table.Class(tt.mode, tt.hg)
			require.True(t, ok)
			assert.Same(t, tt.want, cls)
		})
	}

	_, ok := table.Class(core.Negative, hg("Sph", "M1"))
	assert.False(t, ok, "methylated sphingoid bases are positive mode only")
}

func TestTableErrors(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Register(core.Positive, hg("PE"), pePositive))

	err := table.Register(core.Positive, hg("PE"), pePositive)
	assert.True(t, errors.Is(err, ErrDuplicateClass), "got %v", err)

	err = table.Register("both", hg("PC"), pcPositive)
	assert.True(t, errors.Is(err, ErrInvalidMode), "got %v", err)

	require.NoError(t, table.Register(core.Positive, hg("PE", "Hex"), pePositive))
	require.NoError(t, table.Register(core.Positive, hg("Cer", "Lyso", "Hex"), cerPositive))
	err = table.Validate()
	assert.True(t, errors.Is(err, ErrUnhandledSubclass), "got %v", err)
	assert.Contains(t, err.Error(), "PE_Positive")
	assert.NotContains(t, err.Error(), "Cer_Positive")

	assert.Equal(t, []lipid.Headgroup{hg("Cer", "Lyso", "Hex"), hg("PE"), hg("PE", "Hex")}, table.Headgroups(core.Positive))
	assert.Empty(t, table.Headgroups(core.Negative))
}

func TestIdentifyPENegative(t *testing.T) {
	s := peNegativeScan(t)
	e := NewEngine(s, defaultTable(t), nil)

	ids, err := e.Identify(Candidate{Adduct: "[M-H]-", Record: record("PE", 36, 1, lipid.FA, lipid.FA)})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	assert.Equal(t, "PE(18:0_18:1)", ids[0].String())
	assert.Equal(t, "PE(18:1_18:0)", ids[1].String())
	for _, id := range ids {
		// gate 5, one glycerophosphoethanolamine fragment 3, no lyso pairs
		// out of the pairs ceiling 6
		assert.Equal(t, 8, id.Score)
		assert.Equal(t, 17, id.MaxScore)
		assert.Equal(t, 47, id.ScorePct)
		assert.Equal(t, "[M-H]-", id.Adduct)
		assert.Equal(t, 42, id.ScanID)
		require.NotNil(t, id.Details)
	}
	assert.Equal(t, []int{0, 1}, ids[0].Details.Rank)
	assert.Equal(t, []string{"FA-H", "FA-H"}, ids[0].Details.FragType)
}

func TestIdentifyFANegative(t *testing.T) {
	s := peNegativeScan(t)
	e := NewEngine(s, defaultTable(t), nil)

	tests := []struct {
		name     string
		rec      lipid.Record
		want     []string
		wantPct  int
		wantNone bool
	}{
		{name: "top fatty acid", rec: record("FA", 18, 0, lipid.FA), want: []string{"FA(18:0)"}, wantPct: 100},
		// combinations are limited to the most abundant peak
		{name: "second fatty acid", rec: record("FA", 18, 1, lipid.FA), wantNone: true},
		{name: "absent fatty acid", rec: record("FA", 16, 0, lipid.FA), wantNone: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := e.Identify(Candidate{Adduct: "[M-H]-", Record: tt.rec})
			require.NoError(t, err)
			if tt.wantNone {
				assert.Empty(t, ids)
				return
			}
			var got []string
			for _, id := range ids {
				got = append(got, id.String())
				assert.Equal(t, tt.wantPct, id.ScorePct)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLysoConfirmation(t *testing.T) {
	const precursor = 500.0
	db := fragdb.NewDatabase(core.Positive, []fragdb.Record{
		loss(141.0191, "NL PE [P+E] (NL 141.0191)"),
		ion(142.0264, "PE [P+E] (142.0264)", 1),
		{
			Mass:      339.2894,
			Name:      "FA+Glycerol-OH (18:1)",
			FragType:  "FA+Glycerol-OH",
			ChainType: lipid.FA,
			C:         18,
			U:         1,
			Charge:    1,
		},
	}, nil)
	s := newScan(t, db, precursor,
		[]float64{142.0264, 339.2894, precursor - 141.0191},
		[]float64{40, 60, 100},
	)
	table := defaultTable(t)
	pe := Candidate{Adduct: "[M+H]+", Record: record("PE", 36, 1, lipid.FA, lipid.FA)}
	lyso := Candidate{Adduct: "[M+H]+", Record: lipid.Record{
		Headgroup: lipid.Headgroup{Main: "PE", Sub: []string{"Lyso"}},
		ChainSum:  lipid.ChainSummary{C: 18, U: 1, Types: []string{lipid.FA}},
	}}

	alone := NewEngine(s, table, []Candidate{pe})
	score, maxScore := alone.confirm(pePositive, alone.context(pe.Record, ""))
	assert.Equal(t, 20, score)
	assert.Equal(t, 20, maxScore)

	both := NewEngine(s, table, []Candidate{pe, lyso})
	score, maxScore = both.confirm(pePositive, both.context(pe.Record, ""))
	assert.Equal(t, 0, score, "the lyso species explains the headgroup loss")
	assert.Equal(t, 20, maxScore)

	ids, err := IdentifyScan(s, []Candidate{pe, lyso}, table)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "LysoPE(18:1)", ids[0].String())
	assert.Equal(t, []int{1}, ids[0].Details.Rank)
	assert.Equal(t, 15, ids[0].Score)
	assert.Equal(t, 15, ids[0].MaxScore)
}

func TestChainlessIdentity(t *testing.T) {
	db := fragdb.NewDatabase(core.Positive, []fragdb.Record{
		ion(269.2264, "Retinol I (269.2264)", 1),
		ion(213.1637, "Retinol II (213.1637)", 1),
	}, nil)
	s := newScan(t, db, 0, []float64{213.1637, 269.2264}, []float64{10, 100})

	ids, err := NewEngine(s, defaultTable(t), nil).Identify(Candidate{Adduct: "[M+H]+", Record: lipid.Record{
		Headgroup: lipid.Headgroup{Main: "VA"},
	}})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "VA", ids[0].String())
	assert.Nil(t, ids[0].Chains)
	assert.Nil(t, ids[0].Details)
	assert.Equal(t, 6, ids[0].Score)
	assert.Equal(t, 8, ids[0].MaxScore)
	assert.Equal(t, 75, ids[0].ScorePct)
}

func TestIdentifyScan(t *testing.T) {
	s := peNegativeScan(t)
	rec := record("PE", 36, 1, lipid.FA, lipid.FA)
	candidates := []Candidate{
		{Adduct: "[M-H]-", Record: rec},
		{Adduct: "[M+HCOO]-", Record: rec},
		{Adduct: "[M-H]-", Record: record("XYZ", 36, 1, lipid.FA, lipid.FA)},
		{Adduct: "[M-H]-", Record: lipid.Record{}},
	}
	ids, err := IdentifyScan(s, candidates, defaultTable(t))
	require.NoError(t, err)
	require.Len(t, ids, 2)
	for _, id := range ids {
		assert.Equal(t, "[M-H]-", id.Adduct, "the first candidate of a summary wins")
	}
}

func TestIdentifyUnknownAdduct(t *testing.T) {
	db := fragdb.NewDatabase(core.Positive, []fragdb.Record{
		loss(97.9769, "NL [P] (NL 97.9769)"),
	}, nil)
	s := newScan(t, db, 700, []float64{700 - 97.9769}, []float64{100})

	_, err := IdentifyScan(s, []Candidate{
		{Adduct: "[M+Xx]+", Record: record("PA", 36, 1, lipid.FA, lipid.FA)},
	}, defaultTable(t))
	assert.True(t, errors.Is(err, scan.ErrUnknownAdduct), "got %v", err)
}

func TestSphingoidScoreMemo(t *testing.T) {
	calls := 0
	bases := map[string]Scorer{
		"d": ScorerFunc(func(*Context) (int, int) {
			calls++
			return 6, 20
		}),
	}
	c := &Context{}
	for n := 0; n < 3; n++ {
		score, maxScore := c.sphingoidScore(bases, "d")
		assert.Equal(t, 6, score)
		assert.Equal(t, 20, maxScore)
	}
	assert.Equal(t, 1, calls)

	score, maxScore := c.sphingoidScore(bases, "k")
	assert.Zero(t, score)
	assert.Zero(t, maxScore)
}
