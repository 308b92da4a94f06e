package identify

import (
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
	"github.com/ChrisMcGann/LipidKey/pkg/scan"
)

// Context is the state of one class confirmation: the scan, the candidate
// record and what the scorers decided along the way.
type Context struct {
	Scan   *scan.Scan
	Record lipid.Record
	Adduct string // empty for the reference adduct

	view   *scan.View // view the checks run against
	engine *Engine

	chainsOptional bool
	missing        []int
	sphScores      map[string][2]int
	err            error
}

// fail keeps the first error raised by a check.
func (c *Context) fail(err error) {
	if err != nil && c.err == nil {
		c.err = err
	}
}

// Check is a predicate over the scan of a Context.
type Check func(c *Context) bool

// Filter builds the chain filter of a chain check, possibly from the
// record under confirmation.
type Filter func(c *Context) scan.ChainFilter

func frag(types ...string) Filter {
	f := scan.FragType(types...)
	return func(*Context) scan.ChainFilter { return f }
}

func fixed(f scan.ChainFilter) Filter {
	return func(*Context) scan.ChainFilter { return f }
}

// totals pins the carbon count (shifted by dc) and unsaturation of the
// filter to the record's chain summary.
func totals(dc int, types ...string) Filter {
	return func(c *Context) scan.ChainFilter {
		f := scan.FragType(types...)
		f.C = scan.Is(c.Record.ChainSum.C + dc)
		f.U = scan.Is(c.Record.ChainSum.U)
		return f
	}
}

func has(name string) Check {
	return func(c *Context) bool { return c.view.HasFragment(name).Bool() }
}

func absent(name string) Check {
	return func(c *Context) bool { return !c.view.HasFragment(name).Bool() }
}

func top(name string, n int) Check {
	return func(c *Context) bool { return c.view.FragmentAmongMostAbundant(name, n).Bool() }
}

func mostAbundant(name string) Check {
	return func(c *Context) bool { return c.view.MostAbundantFragmentIs(name).Bool() }
}

func percent(name string, pct float64) Check {
	return func(c *Context) bool { return c.view.FragmentPercentOfMostAbundant(name, pct).Bool() }
}

func chainIs(i int, f Filter) Check {
	return func(c *Context) bool { return c.view.ChainFragmentTypeIs(i, f(c)) }
}

// firstChainIs tests the peak of the most abundant chain fragment.
func firstChainIs(f Filter) Check {
	return func(c *Context) bool {
		chains := c.view.ChainList()
		return len(chains) > 0 && c.view.ChainFragmentTypeIs(chains[0].Peak, f(c))
	}
}

func chainTop(n int, f Filter) Check {
	return func(c *Context) bool { return c.view.ChainFragmentTypeAmongMostAbundant(n, f(c)) }
}

func chainAmong(head int, f Filter, skipNonChains bool) Check {
	return func(c *Context) bool { return c.view.ChainAmongMostAbundant(head, f(c), 0, skipNonChains) }
}

func hasChainType(f Filter) Check {
	return func(c *Context) bool { return c.view.HasChainFragmentType(f(c)) }
}

func chainPercent(f Filter, pct float64) Check {
	return func(c *Context) bool { return c.view.ChainPercentOfMostAbundant(f(c), pct) }
}

// combinations checks for any chain combination within the first head
// peaks (0 = all).
func combinations(head int) Check {
	return func(c *Context) bool {
		ok, err := c.view.HasChainCombinations(c.Record, scan.CombinationOptions{Head: head})
		c.fail(err)
		return ok
	}
}

// combination checks for a chain combination matching params, each a set
// of fragment types.
func combination(head int, params ...[]string) Check {
	ps := fragParams(params)
	return func(c *Context) bool {
		ok, err := c.view.HasChainCombination(c.Record, ps, scan.CombinationOptions{Head: head})
		c.fail(err)
		return ok
	}
}

func fragParams(params [][]string) []scan.ChainParam {
	ps := make([]scan.ChainParam, len(params))
	for i, types := range params {
		ps[i] = scan.ChainParam{FragType: scan.Is(types...)}
	}
	return ps
}

// onAdduct runs check against the view of the candidate's adduct.
func onAdduct(check Check) Check {
	return func(c *Context) bool {
		v, err := c.Scan.ForAdduct(c.Adduct)
		if err != nil {
			c.fail(err)
			return false
		}
		prev := c.view
		c.view = v
		defer func() { c.view = prev }()
		return check(c)
	}
}

func allOf(checks ...Check) Check {
	return func(c *Context) bool {
		for _, chk := range checks {
			if !chk(c) {
				return false
			}
		}
		return true
	}
}

func anyOf(checks ...Check) Check {
	return func(c *Context) bool {
		for _, chk := range checks {
			if chk(c) {
				return true
			}
		}
		return false
	}
}

func not(check Check) Check {
	return func(c *Context) bool { return !check(c) }
}

func mainIs(main string) Check {
	return func(c *Context) bool { return c.Record.Headgroup.Main == main }
}

func onlySub(sub string) Check {
	return func(c *Context) bool {
		s := c.Record.Headgroup.Sub
		return len(s) == 1 && s[0] == sub
	}
}

func hasSubclass(c *Context) bool {
	return len(c.Record.Headgroup.Sub) > 0
}

func unsaturated(c *Context) bool {
	return c.Record.ChainSum.U > 0
}

// nAcyl tells whether the record has an N-acyl chain next to the
// sphingoid base.
func nAcyl(c *Context) bool {
	return c.Record.ChainSum.Len() > 1
}
