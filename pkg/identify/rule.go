package identify

import "github.com/ChrisMcGann/LipidKey/pkg/scan"

// Scorer scores one aspect of a class confirmation. It returns the points
// earned and the maximum achievable.
type Scorer interface {
	Score(c *Context) (score, max int)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(c *Context) (score, max int)

// Score calls f.
func (f ScorerFunc) Score(c *Context) (int, int) {
	return f(c)
}

// Award grants Points when Check passes and raises the maximum by Max.
type Award struct {
	Check  Check
	Points int
	Max    int
}

func award(points int, checks ...Check) []Award {
	out := make([]Award, len(checks))
	for i, chk := range checks {
		out[i] = Award{Check: chk, Points: points}
	}
	return out
}

// Pairs scores the chain combinations pairing a fragment of the first
// type set with one of the second.
type Pairs struct {
	First, Second []string
	// Points maps the number of matching combinations to points; nil
	// uses min(n, 3) * 2.
	Points func(n int) int
	// Max caps Points and is added to the rule maximum. It is required
	// with Points; nil Points is capped at 6.
	Max int
}

const defaultPairsMax = 6

func (p Pairs) ceiling() int {
	if p.Points == nil {
		return defaultPairsMax
	}
	return p.Max
}

// points awards n matching combinations, at most ceiling().
func (p Pairs) points(n int) int {
	if p.Points == nil {
		return min(n, 3) * 2
	}
	return min(p.Points(n), p.Max)
}

func (p Pairs) score(c *Context) int {
	combs, err := c.view.MatchingChainCombinations(c.Record, fragParams([][]string{p.First, p.Second}), scan.CombinationOptions{})
	if err != nil {
		c.fail(err)
		return 0
	}
	return p.points(len(combs))
}

// Rule is a declarative scorer. Points, Awards and Pairs count only when
// every Gate check passes; Always awards count regardless. The maximum is
// Max plus the Pairs ceiling plus the Max of the awards granted.
type Rule struct {
	Max    int
	Gate   []Check
	Points int
	Awards []Award
	Pairs  *Pairs
	Always []Award

	// Lyso gives up when the same mass confirms as the lyso species.
	Lyso bool
	// ChainsOptional allows a chainless identity once the gate passed.
	ChainsOptional bool
	// Missing overrides the chain positions tried as missing.
	Missing []int
}

// Score evaluates the rule.
func (r Rule) Score(c *Context) (int, int) {
	score, max := 0, r.Max
	if r.Pairs != nil {
		max += r.Pairs.ceiling()
	}
	if r.Missing != nil {
		c.missing = r.Missing
	}
	if allOf(r.Gate...)(c) {
		if r.Lyso && c.lysoConfirmed() {
			return 0, max
		}
		if r.ChainsOptional {
			c.chainsOptional = true
		}
		score += r.Points
		s, m := awards(c, r.Awards)
		score, max = score+s, max+m
		if r.Pairs != nil {
			score += r.Pairs.score(c)
		}
	}
	s, m := awards(c, r.Always)
	return score + s, max + m
}

func awards(c *Context, as []Award) (score, max int) {
	for _, a := range as {
		if a.Check(c) {
			score += a.Points
			max += a.Max
		}
	}
	return score, max
}

// Sum adds up the scores of several scorers.
func Sum(scorers ...Scorer) Scorer {
	return ScorerFunc(func(c *Context) (int, int) {
		score, max := 0, 0
		for _, s := range scorers {
			a, b := s.Score(c)
			score, max = score+a, max+b
		}
		return score, max
	})
}
