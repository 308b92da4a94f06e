// Package identify scores candidate MS1 records against an annotated MS2
// scan. Every lipid class is a table of rules run by one engine.
package identify

import (
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
	"github.com/ChrisMcGann/LipidKey/pkg/scan"
)

// Class is the identification method of one or more headgroups.
type Class struct {
	Name string

	// Missing returns the chain positions tried as missing when no chain
	// combination explains the record; nil tries every position.
	Missing func(rec lipid.Record) []int
	// ExplicitAndImplicit tries missing chains even when combinations
	// were found.
	ExplicitAndImplicit bool
	Combination         scan.CombinationOptions
	ChainsOptional      bool

	// Confirm runs for every record of the class, ByMain by main
	// headgroup and BySub once per subclass ("" for records without one).
	Confirm   Scorer
	ByMain    map[string]Scorer
	BySub     map[string]Scorer
	IgnoreSub []string

	// Explicit replaces the plain chain combination search.
	Explicit func(c *Context, cls *Class) ([]Scored, error)
}

// Scored is a chain combination with the extra score it earned.
type Scored struct {
	scan.ChainCombination
	Score, Max int
}

func noMissing(lipid.Record) []int { return nil }

func (cls *Class) missing(rec lipid.Record) []int {
	if cls.Missing != nil {
		return cls.Missing(rec)
	}
	out := make([]int, rec.ChainSum.Len())
	for i := range out {
		out[i] = i
	}
	return out
}

// Engine identifies the candidates of one scan.
type Engine struct {
	scan       *scan.Scan
	table      *Table
	candidates []Candidate
}

// NewEngine returns an engine for s. All candidates of the precursor are
// needed as lyso species are confirmed against their own records.
func NewEngine(s *scan.Scan, table *Table, candidates []Candidate) *Engine {
	return &Engine{scan: s, table: table, candidates: candidates}
}

func (e *Engine) context(rec lipid.Record, adduct string) *Context {
	if adduct == e.scan.Mode().ReferenceAdduct() {
		adduct = ""
	}
	return &Context{
		Scan:   e.scan,
		Record: rec,
		Adduct: adduct,
		view:   &e.scan.View,
		engine: e,
	}
}

// confirm runs the class level scorers.
func (e *Engine) confirm(cls *Class, c *Context) (score, maxScore int) {
	c.chainsOptional = cls.ChainsOptional
	c.missing = cls.missing(c.Record)

	add := func(s Scorer) {
		if s == nil {
			return
		}
		a, b := s.Score(c)
		score, maxScore = score+a, maxScore+b
	}
	add(cls.ByMain[c.Record.Headgroup.Main])
	add(cls.Confirm)
	if cls.BySub != nil {
		subs := c.Record.Headgroup.Sub
		if len(subs) == 0 {
			subs = []string{""}
		}
		seen := make(map[string]bool, len(subs))
		for _, sub := range subs {
			if !seen[sub] {
				seen[sub] = true
				add(cls.BySub[sub])
			}
		}
	}
	return score, maxScore
}

// lysoConfirmed confirms the first candidate with the same main headgroup
// and the single subclass Lyso with its own class.
func (c *Context) lysoConfirmed() bool {
	e := c.engine
	for _, cand := range e.candidates {
		hg := cand.Record.Headgroup
		if hg.Main != c.Record.Headgroup.Main || len(hg.Sub) != 1 || hg.Sub[0] != "Lyso" {
			continue
		}
		cls, ok := e.table.Class(e.scan.Mode(), hg)
		if !ok {
			return false
		}
		lc := e.context(cand.Record, "")
		score, _ := e.confirm(cls, lc)
		c.fail(lc.err)
		return score > 5
	}
	return false
}

// Identify runs the class of the candidate's headgroup: class
// confirmation, then the explicit chain combinations, the missing chain
// combinations when none was found, and finally a chainless identity if
// the class allows it. Records without a class give nothing.
func (e *Engine) Identify(cand Candidate) ([]Identity, error) {
	rec := cand.Record
	if rec.Headgroup.Main == "" {
		return nil, nil
	}
	cls, ok := e.table.Class(e.scan.Mode(), rec.Headgroup)
	if !ok {
		return nil, nil
	}

	c := e.context(rec, cand.Adduct)
	score, maxScore := e.confirm(cls, c)
	if c.err != nil {
		return nil, c.err
	}

	var out []Identity
	emit := func(found []Scored) {
		for i := range found {
			s := &found[i]
			out = append(out, e.identity(cand, score+s.Score, maxScore+s.Max, &s.ChainCombination))
		}
	}

	explicit := cls.Explicit
	if explicit == nil {
		explicit = explicitChains
	}
	found, err := explicit(c, cls)
	if err != nil {
		return nil, err
	}
	emit(found)

	if len(found) == 0 || cls.ExplicitAndImplicit {
		found, err = implicitChains(c, cls)
		if err != nil {
			return nil, err
		}
		emit(found)
	}

	if c.err != nil {
		return nil, c.err
	}
	if len(out) == 0 && c.chainsOptional && score != 0 {
		out = append(out, e.identity(cand, score, maxScore, nil))
	}
	return out, nil
}

func (e *Engine) identity(cand Candidate, score, maxScore int, cc *scan.ChainCombination) Identity {
	id := Identity{
		Score:     max(score, 0),
		MaxScore:  maxScore,
		ScorePct:  percentScore(score, maxScore),
		Headgroup: cand.Record.Headgroup,
		ChainSum:  cand.Record.ChainSum,
		Adduct:    cand.Adduct,
		Info:      e.scan.Info,
	}
	if cc != nil {
		id.Chains = cc.Chains
		details := cc.Details
		id.Details = &details
	}
	return id
}

func explicitChains(c *Context, cls *Class) ([]Scored, error) {
	combs, err := c.view.ChainCombinations(c.Record, cls.Combination)
	if err != nil {
		return nil, err
	}
	return scored(combs), nil
}

func implicitChains(c *Context, cls *Class) ([]Scored, error) {
	var out []Scored
	for _, pos := range c.missing {
		combs, err := c.view.MissingChain(c.Record, pos, cls.Combination)
		if err != nil {
			return nil, err
		}
		out = append(out, scored(combs)...)
	}
	return out, nil
}

func scored(combs []scan.ChainCombination) []Scored {
	out := make([]Scored, len(combs))
	for i, cc := range combs {
		out[i] = Scored{ChainCombination: cc}
	}
	return out
}
