package identify

import (
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
	"github.com/ChrisMcGann/LipidKey/pkg/scan"
)

var lysoOnly = []string{"Lyso"}

// Fatty acids: the most abundant fragment is the fatty acid itself.

var faNegative = &Class{
	Name:        "FA_Negative",
	Missing:     noMissing,
	Combination: scan.CombinationOptions{Head: 1, FragTypes: map[int][]string{0: {"FA-H"}}},
	Confirm: Rule{
		Max:    10,
		Always: award(10, chainAmong(1, totals(0, "FA-H"), false)),
	},
}

var faPositive = &Class{
	Name:        "FA_Positive",
	Missing:     noMissing,
	Combination: scan.CombinationOptions{Head: 1},
	Confirm: Rule{
		Max:    10,
		Always: award(10, chainAmong(1, totals(0, "FA+H"), false)),
	},
}

// Glycerolipids

var dagRule = Rule{
	Max: 6,
	Always: []Award{
		{Check: combinations(10), Points: 4},
		{Check: combinations(6), Points: 2},
	},
}

var dagPositive = &Class{Name: "DAG_Positive", Missing: noMissing, Confirm: dagRule}

var dagNegative = &Class{Name: "DAG_Negative", Missing: noMissing, Confirm: dagRule}

var tagPositive = &Class{
	Name:    "TAG_Positive",
	Missing: noMissing,
	Confirm: Rule{
		Max: 10,
		Always: []Award{
			{Check: combinations(15), Points: 5},
			{Check: combinations(7), Points: 5},
		},
	},
}

var tagNegative = &Class{
	Name:    "TAG_Negative",
	Missing: noMissing,
	Confirm: Rule{Max: 5, Always: award(5, combinations(0))},
}

var dgts = Rule{
	Max:    30,
	Gate:   []Check{has("DGTS [G+TS] (236.1492)")},
	Points: 10,
	Awards: award(10,
		has("DGTS [TS] (144.1019)"),
		hasChainType(frag("NL FA-H2O")),
	),
}

var glPositive = &Class{
	Name:      "GL_Positive",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	ByMain: map[string]Scorer{
		"DGTS": dgts,
		"DGTA": dgts,
		"DGCC": Rule{
			Max:    20,
			Gate:   []Check{has("PC/SM [Ch+H2O] (104.107)")},
			Points: 10,
			Awards: award(10, has("DGCC [C2+Ch] (132.1388)")),
		},
		"SQDG": Rule{Max: 10, Always: award(10, has("NL [Hexose+SO3+H2O+H] (NL 261.0280)"))},
		"MGDG": Rule{Max: 10, Always: award(10, has("[Hexose+H2O-H] (NL 197.07)"))},
		"DGDG": Rule{Max: 10, Always: award(10, has("NL [2xHexose+H2O-H] (NL 359.1190)"))},
	},
}

var glNegative = &Class{
	Name:      "GL_Negative",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max:    10,
		Always: award(10, combination(0, []string{"FA-H", "FA-"})),
	},
}

// Glycerophospholipids

// fattyAcidFirst: the most abundant peak is a fatty acid carboxylate.
var fattyAcidFirst = chainIs(0, fixed(scan.ChainFilter{ChainType: scan.Is(lipid.FA), FragType: scan.Is("FA-H")}))

var peNegative = &Class{
	Name:      "PE_Negative",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max:    11,
		Gate:   []Check{fattyAcidFirst, has("PE [P+E] (140.0118)")},
		Points: 5,
		Awards: award(3,
			has("PE [G+P+E-H2O] (196.0380)"),
			has("PE [G+P+E] (178.0275)"),
		),
		Pairs: &Pairs{
			First:  []string{"FA-H"},
			Second: []string{"LysoPE", "LysoPEAlkyl", "LysoPEAlkyl-H2O", "FA-H2O-H"},
		},
	},
}

var pePositive = &Class{
	Name:    "PE_Positive",
	Missing: noMissing,
	Confirm: Rule{
		Max:    20,
		Gate:   []Check{has("NL PE [P+E] (NL 141.0191)")},
		Lyso:   true,
		Points: 15,
		Awards: award(5, has("PE [P+E] (142.0264)")),
	},
}

var lysoPEPositive = &Class{
	Name:      "LysoPE_Positive",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max:    15,
		Gate:   []Check{has("NL PE [P+E] (NL 141.0191)")},
		Points: 5,
		Awards: award(5,
			has("PE [P+E] (142.0264)"),
			firstChainIs(totals(0, "FA+Glycerol-OH")),
		),
	},
}

var pcNegative = &Class{
	Name:      "PC_Negative",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max:    11,
		Gate:   []Check{fattyAcidFirst, has("PC/SM PO4+choline-CH3 (168.0431)")},
		Points: 5,
		Awards: award(3,
			has("PE [G+P+E-H2O] (196.0380)"),
			has("PE [G+P+E] (178.0275)"),
		),
		Pairs: &Pairs{
			First:  []string{"FA-H"},
			Second: []string{"LysoPC"},
			Points: func(n int) int {
				if n > 1 {
					return 6
				}
				return 0
			},
			Max: 6,
		},
	},
}

var pcPositive = &Class{
	Name:           "PC_Positive",
	Missing:        noMissing,
	ChainsOptional: true,
	Confirm: Rule{
		Max: 13,
		Gate: []Check{
			percent("PC/SM [P+Ch] (184.0733)", 10),
			has("PC/SM [Ch] (86.096)"),
		},
		Lyso:   true,
		Points: 5,
		Awards: award(2,
			has("PC/SM [Ch+H2O] (104.107)"),
			has("PC/SM [P+Et] (124.9998)"),
			has("PC/SM [N+3xCH3] (60.0808)"),
			has("PC/SM [Ch-Et] (58.0651)"),
		),
	},
}

var lysoPCPositive = &Class{
	Name:           "LysoPC_Positive",
	Missing:        noMissing,
	ChainsOptional: true,
	IgnoreSub:      lysoOnly,
	Confirm: Rule{
		Max: 15,
		Gate: []Check{
			mostAbundant("PC/SM [P+Ch] (184.0733)"),
			has("PC/SM [Ch] (86.096)"),
		},
		Points: 5,
		Awards: award(5,
			has("NL PC/SM [P+Ch] (NL 183.066)"),
			hasChainType(totals(0, "FA+Glycerol-OH", "NL FA-H2O")),
		),
	},
}

func lysoPairs(second ...string) *Pairs {
	return &Pairs{
		First:  []string{"FA-H"},
		Second: second,
		Points: func(n int) int { return min(n, 2) * 3 },
		Max:    6,
	}
}

var piNegative = &Class{
	Name:      "PI_Negative",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max: 13,
		Gate: []Check{
			has("PI [InsP-H2O]- (241.01)"),
			has("PA/PG/PI/PS [G+P] (152.9958)"),
			has("Cer1P/PIP/PL metaphosphate (78.9591)"),
		},
		Points: 5,
		Awards: award(2,
			has("Cer1P/PI phosphate (96.9696)"),
			has("PI [InsP-H]- (259.02)"),
			has("PI [G+P+I] (297.04)"),
			has("PI [InsP-2H2O]- (223.00)"),
		),
		Pairs: lysoPairs("LysoPI", "LysoPI-H2O"),
	},
}

var piPositive = &Class{
	Name:      "PI_Positive",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max:    9,
		Gate:   []Check{combinations(0)},
		Points: 1,
		Awards: award(4,
			has("NL PI [P+Ins] (NL 259.0219)"),
			has("NL PI [P+Ins+NH3] (NL 277.0563)"),
		),
	},
}

var psNegative = &Class{
	Name:      "PS_Negative",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max: 11,
		Gate: []Check{
			combinations(0),
			fattyAcidFirst,
			top("PA/PG/PI/PS [G+P] (152.9958)", 5),
		},
		Points: 5,
		Awards: award(3,
			has("Cer1P/PIP/PL metaphosphate (78.9591)"),
			has("PS [Ser-H2O] (87.0320)"),
		),
		Pairs: lysoPairs("LysoPS", "LysoPA"),
	},
}

var psPositive = &Class{
	Name:      "PS_Positive",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm:   Rule{Max: 5, Always: award(5, top("PS [P+S] (NL 185.0089)", 1))},
}

var pgNegativeRule = Rule{
	Max: 8,
	Gate: []Check{
		combinations(0),
		fattyAcidFirst,
		has("PA/PG/PI/PS [G+P] (152.9958)"),
	},
	Points: 5,
	Awards: award(3, has("PG headgroup (171.0064)")),
	Pairs:  lysoPairs("LysoPG", "LysoPG-H2O"),
}

var pgNegative = &Class{Name: "PG_Negative", Missing: noMissing, IgnoreSub: lysoOnly, Confirm: pgNegativeRule}

// BMP and PG can not be told apart in negative mode.
var bmpNegative = &Class{Name: "BMP_Negative", Missing: noMissing, Confirm: pgNegativeRule}

var pgPositive = &Class{
	Name:      "PG_Positive",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max: 5,
		Always: []Award{
			{Check: mostAbundant("NL PG [G+P+NH3] (NL 189.0402)"), Points: 5},
			{
				Check:  allOf(onlySub("Lyso"), chainTop(1, totals(0, "FA+Glycerol-OH"))),
				Points: 5,
				Max:    5,
			},
		},
	},
}

// bmpPositive: glycerol fatty acid fragments must outweigh the PG
// headgroup loss.
var bmpPositive = &Class{
	Name:    "BMP_Positive",
	Missing: noMissing,
	Confirm: ScorerFunc(func(c *Context) (int, int) {
		const maxScore = 10
		gfa := frag("FA+Glycerol-OH")
		gate := allOf(
			combinations(15),
			chainTop(3, fixed(scan.ChainFilter{ChainType: scan.Is(lipid.FA), FragType: scan.Is("FA+Glycerol-OH")})),
		)
		if !gate(c) {
			return 0, maxScore
		}
		score := 5
		hg, p := c.view.FragmentLookup("NL PG [G+P+NH3] (NL 189.0402)")
		if p != scan.Present {
			return score, maxScore
		}
		i, ok := c.view.HighestFragmentByChainType(gfa(c), 4)
		if !ok {
			return score, maxScore
		}
		if c.Scan.Intensity(i) < c.Scan.Intensity(hg) {
			return 0, maxScore
		}
		return score + 5, maxScore
	}),
}

var paNegative = &Class{
	Name:      "PA_Negative",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max: 25,
		Gate: []Check{
			combinations(0),
			fattyAcidFirst,
			top("PA/PG/PI/PS [G+P] (152.9958)", 10),
			top("Cer1P/PIP/PL metaphosphate (78.9591)", 10),
		},
		Points: 20,
		Awards: award(5, has("Cer1P/PI phosphate (96.9696)")),
	},
}

var paPositive = &Class{
	Name:      "PA_Positive",
	Missing:   noMissing,
	IgnoreSub: lysoOnly,
	Confirm: Rule{
		Max:    20,
		Gate:   []Check{onAdduct(top("NL [P] (NL 97.9769)", 3))},
		Points: 10,
		Awards: award(10, combination(0, []string{"FA+Glycerol-OH", "FA-OH", "FA-H2O-OH"})),
	},
}

// Vitamins

var vaPositive = &Class{
	Name:           "VA_Positive",
	Missing:        noMissing,
	ChainsOptional: true,
	Confirm: Rule{
		Max:    8,
		Gate:   []Check{top("Retinol I (269.2264)", 3)},
		Points: 5,
		Awards: award(1,
			has("Retinol II (213.1637)"),
			has("Retinol III (157.1012)"),
			has("Retinol IV (145.1012)"),
		),
	},
}

var vaNegative = &Class{
	Name:           "VA_Negative",
	Missing:        noMissing,
	ChainsOptional: true,
	Confirm: Rule{
		Max: 8,
		Gate: []Check{
			top("Retinoic acid I (79.0553)", 7),
			top("Retinoic acid II (119.0866)", 7),
			top("Retinoic acid IV (255.2118)", 7),
		},
		Points: 5,
		Awards: award(3, has("Retinoic acid III (125.0608)")),
	},
}
