package lipid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadgroupString(t *testing.T) {
	tests := []struct {
		name string
		hg   Headgroup
		want string
	}{
		{"plain", Headgroup{Main: "PC"}, "PC"},
		{"lyso", Headgroup{Main: "PE", Sub: []string{"Lyso"}}, "LysoPE"},
		{"hexosyl", Headgroup{Main: "Cer", Sub: []string{"Hex"}}, "HexCer"},
		{"phosphate", Headgroup{Main: "Cer", Sub: []string{"1P"}}, "Cer1P"},
		{"pe ceramide", Headgroup{Main: "Cer", Sub: []string{"PE"}}, "PE-Cer"},
		{"methyl sphingoid", Headgroup{Main: "Sph", Sub: []string{"M2"}}, "M2Sph"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.hg.String())
		})
	}
}

func TestHeadgroupKeyIgnoresOrder(t *testing.T) {
	a := Headgroup{Main: "Cer", Sub: []string{"1P", "Lyso"}}
	b := Headgroup{Main: "Cer", Sub: []string{"Lyso", "1P"}}
	assert.True(t, a.Equal(b))
	assert.Equal(t, "1P,Lyso", a.SubKey())
}

func TestRecordStrings(t *testing.T) {
	types, attrs, err := ParseChainLayout("Sph:d,FA")
	require.NoError(t, err)
	cer := Record{
		Headgroup: Headgroup{Main: "Cer"},
		ChainSum:  ChainSummary{C: 34, U: 1, Types: types, Attrs: attrs},
	}
	assert.Equal(t, "Cer(d34:1)", cer.SummaryString())
	assert.Equal(t, "d", cer.Sph())
	assert.True(t, cer.IsSphingolipid())

	chains := []Chain{
		{C: 18, U: 1, Type: Sph, Attr: ChainAttr{Sph: "d"}},
		{C: 16, U: 0, Type: FA},
	}
	assert.Equal(t, "Cer(d18:1/16:0)", Species(cer.Headgroup, chains))

	pe := Record{
		Headgroup: Headgroup{Main: "PE"},
		ChainSum: ChainSummary{
			C: 34, U: 1,
			Types: []string{FAL, FA},
			Attrs: []ChainAttr{{Ether: true}, {}},
		},
	}
	assert.Equal(t, "PE(O-34:1)", pe.SummaryString())
	assert.Equal(t, "PC(18:0_18:1)", Species(Headgroup{Main: "PC"}, []Chain{
		{C: 18, U: 0, Type: FA}, {C: 18, U: 1, Type: FA},
	}))
}

func TestParseChainLayout(t *testing.T) {
	tests := []struct {
		layout    string
		wantTypes []string
		wantAttrs []ChainAttr
		wantErr   bool
	}{
		{"FA,FA", []string{FA, FA}, []ChainAttr{{}, {}}, false},
		{"FAL,FA", []string{FAL, FA}, []ChainAttr{{Ether: true}, {}}, false},
		{"Sph:t,FA:2OH", []string{Sph, FA}, []ChainAttr{{Sph: "t"}, {OH: []string{"2OH"}}}, false},
		{"Sph", []string{Sph}, []ChainAttr{{Sph: "d"}}, false},
		{"XX,FA", nil, nil, true},
		{"FA:foo", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			types, attrs, err := ParseChainLayout(tt.layout)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTypes, types)
			assert.Equal(t, tt.wantAttrs, attrs)
		})
	}
}

func TestMatchConstraints(t *testing.T) {
	cer := Record{
		Headgroup: Headgroup{Main: "Cer", Sub: []string{"Hex"}},
		ChainSum: ChainSummary{
			C: 42, U: 1,
			Types: []string{Sph, FA},
			Attrs: []ChainAttr{{Sph: "d"}, {}},
		},
	}
	tests := []struct {
		name        string
		constraints []FragConstraint
		want        []int
	}{
		{"none allows all", nil, []int{0, 1}},
		{"zero value allows all", []FragConstraint{{}}, []int{0, 1}},
		{"chain type", []FragConstraint{{ChainType: FA}}, []int{1}},
		{"sphingoid subtype", []FragConstraint{{ChainType: Sph, Sph: "d"}}, []int{0}},
		{"wrong sphingoid subtype", []FragConstraint{{ChainType: Sph, Sph: "t"}}, nil},
		{"wrong headgroup", []FragConstraint{{Headgroup: "PC", ChainType: FA}}, nil},
		{"subclass required", []FragConstraint{{Headgroup: "Cer", Sub: []string{"Hex"}, ChainType: FA}}, []int{1}},
		{"union", []FragConstraint{{Headgroup: "PC"}, {ChainType: Sph}}, []int{0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchConstraints(cer, tt.constraints))
		})
	}
}

func TestParseConstraints(t *testing.T) {
	cs, err := ParseConstraints("Cer,Hex|d;SM")
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, FragConstraint{Headgroup: "Cer", Sub: []string{"Hex"}, Sph: "d"}, cs[0])
	assert.Equal(t, FragConstraint{Headgroup: "SM"}, cs[1])

	cs, err = ParseConstraints("")
	require.NoError(t, err)
	assert.Empty(t, cs)

	_, err = ParseConstraints("Cer|")
	assert.Error(t, err)
}
