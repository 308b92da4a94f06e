package identify

import (
	"strings"

	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
	"github.com/ChrisMcGann/LipidKey/pkg/scan"
)

// ceramideChains scores every explicit and missing chain combination with
// the sphingoid base and N-acyl scorers. Those scores hold for the one
// combination only.
func ceramideChains(bases map[string]Scorer, fattyAcyl func(c *Context, fa lipid.Chain) (int, int)) func(*Context, *Class) ([]Scored, error) {
	return func(c *Context, cls *Class) ([]Scored, error) {
		found, err := explicitChains(c, cls)
		if err != nil {
			return nil, err
		}
		implicit, err := implicitChains(c, cls)
		if err != nil {
			return nil, err
		}
		found = append(found, implicit...)

		sph := c.Record.Sph()
		out := found[:0]
		for _, s := range found {
			if s.Chains[0].Attr.Sph != sph {
				continue
			}
			s.Score, s.Max = c.sphingoidScore(bases, sph)
			if nAcyl(c) {
				a, b := fattyAcyl(c, s.Chains[1])
				s.Score, s.Max = s.Score+a, s.Max+b
			}
			out = append(out, s)
		}
		return out, nil
	}
}

// sphingoidScore runs the scorer of a sphingoid subtype once per context.
// Subtypes without a scorer give (0, 0).
func (c *Context) sphingoidScore(bases map[string]Scorer, sph string) (int, int) {
	if r, ok := c.sphScores[sph]; ok {
		return r[0], r[1]
	}
	var r [2]int
	if b, ok := bases[strings.ToLower(sph)]; ok {
		r[0], r[1] = b.Score(c)
	}
	if c.sphScores == nil {
		c.sphScores = make(map[string][2]int)
	}
	c.sphScores[sph] = r
	return r[0], r[1]
}

func unsaturatedFrag(t string) Filter {
	return fixed(scan.ChainFilter{FragType: scan.Is(t), U: scan.Not(0)})
}

func saturatedFrag(t string) Filter {
	return fixed(scan.ChainFilter{FragType: scan.Is(t), U: scan.Is(0)})
}

// Positive mode

var nonHexosyl = Rule{
	Always: award(-5,
		has("NL [Hexose-H2O] (NL 162.05)"),
		has("NL [Hexose] (NL 180.06)"),
		has("NL [Hexose+H2O] (NL 198.07)"),
		has("NL [2xHexose] (NL 342.1162)"),
		has("NL [2xHexose+H2O] (NL 360.1268)"),
		has("NL [2xHexose-H2O] (NL 324.1056)"),
		has("NL [2xHexose+O] (NL 358.1111)"),
		has("NL [2xHexose+C] (NL 372.1268)"),
		has("NL [S] (NL 79.9568)"),
		has("NL [S+H2O] (97.9674)"),
		has("NL [Hexose+SO3] (NL 242.100)"),
		has("NL [Hexose+SO3+H2O] (NL 260.0202)"),
		has("NL [Hexose+SO3+2xH2O] (NL 278.0308)"),
		has("NL [2xHexose+SO3] (NL 404.0625)"),
		has("NL [2xHexose+SO3+H2O] (NL 422.0730)"),
		has("NL [2xHexose+SO3+2xH2O] (NL 440.0836)"),
	),
}

var smPositive = Rule{
	Max:    47,
	Gate:   []Check{mostAbundant("PC/SM [P+Ch] (184.0733)")},
	Points: 15,
	Awards: append(award(3,
		has("PC/SM [N+3xCH3] (60.0808)"),
		has("PC/SM [Ch] (86.096)"),
		has("PC/SM [Ch+H2O] (104.107)"),
		has("PC/SM [P+Et] (124.9998)"),
		has("PC/SM [Ch-Et] (58.0651)"),
		has("NL PC/SM [P+Ch] (NL 183.066)"),
		has("NL SM [P+Ch] (NL 201.0766)"),
		has("NL SM [N+3xCH3] (77.0841)"),
		has("NL [H2O] (NL 18.0106)"),
	), Award{Check: hasChainType(frag("Sph-2xH2O+H")), Points: 5}),
	ChainsOptional: true,
}

var hexosylChains = combination(0,
	[]string{"Sph-2xH2O+H", "Sph-2xH2O-H", "Sph-H2O+H", "Sph-H2O-H", "Sph-C-2xH2O"},
	[]string{"FA-OH", "NL FA", "FA+NH2-O"},
)

var cerPositiveSub = map[string]Scorer{
	"": nonHexosyl,
	"1P": Sum(Rule{
		Max: 31,
		Always: append([]Award{
			{Check: has("NL [P+H2O] (NL 115.9875)"), Points: 10},
			{Check: chainAmong(3, frag("Sph-2xH2O-H"), false), Points: 10},
			{Check: combination(0,
				[]string{"Sph-2xH2O+H", "Sph-H2O+H", "Sph-H2O-H"},
				[]string{"FA+NH+C2H2-OH"},
			), Points: 5},
		}, award(3,
			has("NL [P] (NL 79.9663)"),
			has("NL [P] (NL 97.9769)"),
		)...),
	}, nonHexosyl),
	"Hex": Rule{
		Max: 14,
		Always: append(award(3,
			has("NL [Hexose-H2O] (NL 162.05)"),
			has("NL [Hexose] (NL 180.06)"),
			has("NL [Hexose+H2O] (NL 198.07)"),
		), Award{Check: hexosylChains, Points: 5}),
	},
	"Hex2": Rule{
		Max: 39,
		Always: concat(
			award(10,
				has("NL [2xHexose] (NL 342.1162)"),
				has("NL [2xHexose+H2O] (NL 360.1268)"),
			),
			award(3,
				has("NL [2xHexose-H2O] (NL 324.1056)"),
				has("NL [2xHexose+O] (NL 358.1111)"),
				has("NL [2xHexose+C] (NL 372.1268)"),
			),
			[]Award{{Check: hexosylChains, Points: 10}},
		),
	},
	"SHex": Rule{
		Max: 25,
		Always: award(5,
			has("NL [S] (NL 79.9568)"),
			has("NL [S+H2O] (97.9674)"),
			has("NL [Hexose+SO3] (NL 242.100)"),
			has("NL [Hexose+SO3+H2O] (NL 260.0202)"),
			has("NL [Hexose+SO3+2xH2O] (NL 278.0308)"),
		),
	},
	"SHex2": Rule{
		Max: 25,
		Always: award(5,
			has("NL [S] (NL 79.9568)"),
			has("NL [S+H2O] (97.9674)"),
			has("NL [2xHexose+SO3] (NL 404.0625)"),
			has("NL [2xHexose+SO3+H2O] (NL 422.0730)"),
			has("NL [2xHexose+SO3+2xH2O] (NL 440.0836)"),
		),
	},
	"PE": Rule{
		Max:    30,
		Gate:   []Check{has("NL PE [P+E] (NL 141.0191)")},
		Points: 15,
		Awards: award(5,
			has("PE [P+E] (142.0264)"),
			has("NL PE [P+E+H2O] (NL 159.0297)"),
			has("NL PE [P+E-H2O] (NL 123.0085)"),
		),
	},
	"M1": Rule{
		Max: 30,
		Always: []Award{
			{Check: has("PC/SM [Ch-Et] (58.0651)"), Points: 10},
			{Check: combination(10, []string{"Sph-2xH2O+CH3", "Sph-O-H2O+CH3+H", "Sph-H2O+CH3+H"}), Points: 20},
			{Check: hasChainType(totals(-1, "Sph-2xH2O+2xCH3+H", "Sph-H2O+2xCH3+H")), Points: -20},
		},
	},
	"M2": Rule{
		Max: 46,
		Always: concat(
			[]Award{
				{Check: has("PC/SM [Ch-Et] (58.0651)"), Points: 10},
				{Check: allOf(unsaturated, has("[C7+NH2] (110.0964)")), Points: 10},
			},
			award(3,
				has("[C5+NH2+2H] (84.0808)"),
				has("[C6+NH2] (96.0808)"),
			),
			[]Award{{
				Check:  combination(0, []string{"Sph-2xH2O+CH3", "Sph-O-H2O+CH3+H", "Sph-2xH2O+2xCH3+H", "Sph-H2O+2xCH3+H"}),
				Points: 20,
			}},
		),
	},
	"M3": Rule{Max: 20, Always: award(20, top("PC/SM [N+3xCH3] (60.0808)", 3))},
	"PC": Rule{Max: 15, Always: award(15, mostAbundant("PC/SM [P+Ch] (184.0733)"))},
}

var sphingoidPositive = map[string]Scorer{
	"d": Rule{
		Max: 20,
		Gate: []Check{
			unsaturated,
			anyOf(
				allOf(nAcyl, chainIs(0, unsaturatedFrag("Sph-2xH2O+H"))),
				allOf(not(nAcyl), chainIs(0, unsaturatedFrag("Sph-H2O+H"))),
				allOf(mainIs("SM"), chainAmong(5, unsaturatedFrag("Sph-2xH2O+H"), true)),
			),
		},
		Points: 6,
		Awards: append(award(2,
			absent("[C2+NH2+O] (60.0444)"),
			has("NL [C+2xH2O] (NL 48.0211)"),
		), Award{
			Check: allOf(
				chainTop(4, unsaturatedFrag("Sph-H2O+H")),
				chainTop(4, unsaturatedFrag("Sph-C-O-H2O-H")),
				chainTop(4, unsaturatedFrag("Sph-2xH2O+H")),
			),
			Points: 10,
		}),
	},
	"dh": Rule{
		Max: 20,
		Always: append(award(1,
			has("[C2+NH2+O] (60.0444)"),
			absent("NL [C+2xH2O] (NL 48.0211)"),
		), award(3,
			chainTop(5, saturatedFrag("Sph-H2O+H")),
			chainTop(5, saturatedFrag("FA+NH2-O")),
			chainTop(10, saturatedFrag("Sph-2xH2O+H")),
			hasChainType(saturatedFrag("Sph-C-O-H2O-H")),
			hasChainType(saturatedFrag("Sph+H")),
			hasChainType(saturatedFrag("Sph-C-O-H2O-NH")),
		)...),
	},
	"t": Rule{
		Max: 20,
		Gate: []Check{
			chainTop(5, frag("Sph-H2O-H")),
			chainTop(10, frag("Sph-2xH2O-H")),
			anyOf(top("[C2+NH2+O] (60.0444)", 2), hasSubclass),
		},
		Points: 9,
		Awards: append(award(1,
			absent("NL [C+2xH2O] (NL 48.0211)"),
			has("NL [3xH2O] (NL 54.0317)"),
		), award(3,
			hasChainType(frag("Sph-C-2xH2O")),
			hasChainType(frag("Sph+H2O-H")),
			chainTop(5, frag("Sph-H")),
		)...),
	},
	"k": Rule{
		Max: 39,
		Always: concat(
			[]Award{{Check: hasChainType(frag("Sph-NH2-H2O-2H")), Points: 15}},
			award(3,
				has("[C2+NH2+O] (60.0444)"),
				has("[C4+NH2+OH] (86.0600)"),
				has("[C6+OH] (99.0804)"),
				has("[C3+NH2] (56.0495)"),
				hasChainType(frag("Sph-C-2xH2O")),
				hasChainType(frag("Sph-H2O-H")),
				hasChainType(frag("Sph-H")),
				chainTop(5, frag("Sph-H")),
			),
		),
	},
}

// fattyAcylPositive penalizes hydroxy acyl chains on a water loss adduct.
func fattyAcylPositive(c *Context, fa lipid.Chain) (int, int) {
	if len(fa.Attr.OH) > 0 && c.Adduct == "[M-H2O+H]+" {
		return -20, 0
	}
	return 0, 0
}

var cerPositive = &Class{
	Name: "Cer_Positive",
	Missing: func(rec lipid.Record) []int {
		if rec.ChainSum.Len() > 1 {
			return []int{1}
		}
		return nil
	},
	IgnoreSub: lysoOnly,
	ByMain: map[string]Scorer{
		"SM": smPositive,
		"Sph": Rule{
			Max: 9,
			Always: award(3,
				has("[C3+NH2] (56.0495)"),
				has("[C2+NH2+O] (60.0444)"),
				has("[C4+NH2+OH] (86.0600)"),
			),
		},
	},
	Confirm: Rule{
		Max: 2,
		Always: award(1,
			has("NL [H2O] (NL 18.0106)"),
			has("NL [2xH2O] (NL 36.0211)"),
		),
	},
	BySub:    cerPositiveSub,
	Explicit: ceramideChains(sphingoidPositive, fattyAcylPositive),
}

// Negative mode

var sphingoidDDH = Rule{
	Max: 20,
	Always: award(20, combination(0,
		[]string{"Sph-H", "Sph-C2H4-3H", "Sph-CH2-H2O-H", "Sph-H2O-NH2-2H", "Sph-C2H4-NH2-H2O"},
		[]string{"FA+C2+NH2", "FA+C2+NH2-O"},
	)),
}

var waterFormaldehydeLoss = onAdduct(has("NL C+H2O (NL 30.0106)"))

var sphingoidNegative = map[string]Scorer{
	"d":  Sum(sphingoidDDH, Rule{Max: 20, Always: award(20, waterFormaldehydeLoss)}),
	"dh": Sum(sphingoidDDH, Rule{Max: -20, Always: award(-20, waterFormaldehydeLoss)}),
	"t": Rule{
		Max: 28,
		Always: []Award{
			{Check: onAdduct(has("NL C+3xH2O (66.0455)")), Points: 5},
			{Check: has("HexCer identity II"), Points: 3},
			{Check: combination(0,
				[]string{"Sph-CH2-NH2-4H"},
				[]string{"FA+C2H2+NH2", "FA+C3H2+NH2"},
			), Points: 20},
			// tells apart hydroxyacyl dCer
			{Check: chainPercent(frag("FA+C2H2+NH2+O", "FA+C2+NH2+O"), 5), Points: -10},
		},
	},
}

// fattyAcylNegative scores hydroxyacyl chains.
func fattyAcylNegative(c *Context, fa lipid.Chain) (int, int) {
	if len(fa.Attr.OH) != 1 {
		return 0, 0
	}
	// the first 20 peaks exclude tCer
	ok := combination(20,
		[]string{"Sph-H", "Sph-C2H4-NH2-H2O"},
		[]string{"FA+C2+NH2+O", "FA+CH2+NH2+O"},
	)(c)
	if ok {
		return 30, 30
	}
	return 0, 30
}

// sulfatide scores sulfohexose ions, then the sphingoid base with the
// sulfohexose still attached paired with the N-acyl loss.
func sulfatide(maxScore int, gate, sphTypes []string, fragments ...Check) Scorer {
	return Sum(
		Rule{
			Max:     maxScore,
			Missing: []int{1},
			Always: append(
				[]Award{{Check: has("Sulphate (96.9601)"), Points: 20}},
				award(10, fragments...)...,
			),
		},
		Rule{
			Gate:   []Check{hasChainType(frag(gate...))},
			Points: 20,
			Awards: award(20, combination(0, sphTypes, []string{"NLFA", "NLFA_mH2O"})),
		},
	)
}

var sulfohexose2 = []string{"Sph+C12O10H18+SO3", "Sph+C12O10H18+SO3+H2O", "Sph+C12O10H18+SO3+CO+H2O"}

var cerNegativeSub = map[string]Scorer{
	"1P": Sum(
		Rule{
			Max:    70,
			Gate:   []Check{anyOf(has("Cer1P/PIP/PL metaphosphate (78.9591)"), has("Cer1P/PI phosphate (96.9696)"))},
			Points: 20,
			Awards: award(10,
				onAdduct(has("NL H2O (NL 18.0106)")),
				onAdduct(hasChainType(frag("NLFA_pH2O", "NLFA_p2xH2O"))),
			),
			ChainsOptional: true,
		},
		Rule{
			Gate:           []Check{mainIs("Sph"), top("Cer1P/PIP/PL metaphosphate (78.9591)", 3)},
			Points:         20,
			Awards:         award(10, has("Cer1P/PI phosphate (96.9696)")),
			ChainsOptional: true,
		},
	),
	"Hex": Rule{
		Max: 90,
		Always: append(award(10,
			top("HexCer identity I", 10),
			top("HexCer identity II", 10),
			top("HexCer identity III", 10),
			has("[Hexose] (179.0561)"),
			has("[Hexose-H2O] (161.0455)"),
			has("[Hexose-HCHO] (149.0455)"),
			has("NL hexose (162.053)"),
			has("NL hexose+H2O (180.063)"),
		), Award{Check: combinations(0), Points: 10}),
	},
	"Hex2": Rule{
		Max: 140,
		Always: append(award(10,
			has("HexCer identity I"),
			has("HexCer identity II"),
			has("HexCer identity III"),
			has("[Hexose] (179.0561)"),
			has("[Hexose-H2O] (161.0455)"),
			has("[Hexose-HCHO] (149.0455)"),
			has("NL hexose (162.053)"),
			has("NL hexose+H2O (180.063)"),
			has("[2xHexose-HCHO] (311.0984)"),
			has("[2xHexose-H2O] (323.0984)"),
			has("[2xHexose] (341.1089)"),
			has("NL 2xHexose (324.106)"),
			has("NL 2xHexose+H2O (342.1162)"),
		), Award{Check: combinations(0), Points: 10}),
	},
	"SHex": sulfatide(100,
		[]string{"Sph+C6O5H8+SO3+H2O", "Sph+C6O5H8+SO3+CO+H2O"},
		[]string{"Sph+C6O5H8+SO3", "Sph+C6O5H8+SO3+H2O", "Sph+C6O5H8+SO3+CO+H2O"},
		has("[Sulfohexose] (259.0129)"),
		has("[Sulfohexose] (256.9972)"),
		has("[Sulfohexose-H2O] (241.0024)"),
		has("[Sulfohexose+Et+N] (300.0395)"),
	),
	"SHex2": sulfatide(140,
		sulfohexose2,
		sulfohexose2,
		has("[Sulfohexose] (259.0129)"),
		has("[Sulfohexose] (256.9972)"),
		has("[Sulfohexose-H2O] (241.0024)"),
		has("[Sulfohexose+Et+N] (300.0395)"),
		has("[2xHexose-H2O+SO3] (403.0552)"),
		has("[2xHexose+SO3] (419.0501)"),
		has("[2xHexose+SO3] (421.0658)"),
		has("[2xHexose+SO3+Et+N] (462.0923)"),
	),
	"PE": Rule{
		Max: 30,
		Always: award(10,
			has("PE [P+E] (140.0118)"),
			has("NL PE [P+E] (141.0191)"),
			has("PE [P+E-H2O] (122.0013)"),
		),
	},
}

var cerNegative = &Class{
	Name:    "Cer_Negative",
	Missing: noMissing,
	ByMain: map[string]Scorer{
		"Cer": Rule{
			Max: 23,
			Always: append(award(3,
				onAdduct(has("NL H2O (NL 18.0106)")),
				onAdduct(has("NL 2xH2O (NL 36.0211)")),
				onAdduct(has("NL C+H2O (NL 30.0106)")),
				onAdduct(has("NL CH2+H2O (NL 32.0262)")),
				onAdduct(has("NL C+2xH2O (NL 48.0211)")),
				onAdduct(has("NL C+3xH2O (66.0455)")),
			), Award{Check: onAdduct(combinations(0)), Points: 5}),
		},
		"SM": Rule{
			Max: 45,
			Gate: []Check{
				onAdduct(top("NL CH2 (NL 14.0157)", 3)),
				top("PC/SM PO4+choline-CH3 (168.0431)", 5),
			},
			Points: 30,
			Awards: award(5,
				has("Cer1P/PIP/PL metaphosphate (78.9591)"),
				onAdduct(has("NL choline+H2O")),
				onAdduct(has("NL choline+H2O-CH3")),
			),
			ChainsOptional: true,
		},
	},
	BySub:    cerNegativeSub,
	Explicit: ceramideChains(sphingoidNegative, fattyAcylNegative),
}

func concat(lists ...[]Award) []Award {
	var out []Award
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
