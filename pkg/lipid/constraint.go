package lipid

import (
	"fmt"
	"strings"
)

// FragConstraint restricts which chain positions of which lipids a fragment
// type may originate from. Empty fields match anything, so the zero value
// matches every position.
type FragConstraint struct {
	Headgroup string
	Sub       []string
	Sph       string
	ChainType string
}

func (c FragConstraint) matchesHeadgroup(h Headgroup) bool {
	if c.Headgroup != "" && c.Headgroup != h.Main {
		return false
	}
	for _, s := range c.Sub {
		if !h.HasSub(s) {
			return false
		}
	}
	return true
}

func (c FragConstraint) matchesPosition(s ChainSummary, i int) bool {
	if c.ChainType != "" && s.Types[i] != c.ChainType {
		return false
	}
	if c.Sph != "" && s.Attr(i).Sph != c.Sph {
		return false
	}
	return true
}

// MatchConstraints returns the ascending chain positions of rec allowed by
// any of the constraints. No constraints allow every position.
func MatchConstraints(rec Record, constraints []FragConstraint) []int {
	n := rec.ChainSum.Len()
	allowed := make([]bool, n)
	if len(constraints) == 0 {
		for i := range allowed {
			allowed[i] = true
		}
	}
	for _, c := range constraints {
		if !c.matchesHeadgroup(rec.Headgroup) {
			continue
		}
		for i := 0; i < n; i++ {
			if c.matchesPosition(rec.ChainSum, i) {
				allowed[i] = true
			}
		}
	}
	var positions []int
	for i, ok := range allowed {
		if ok {
			positions = append(positions, i)
		}
	}
	return positions
}

// ParseConstraints parses the definition file syntax: constraints separated
// by ";", each "headgroup,sub1,sub2" optionally suffixed "|sph".
// An empty string means no constraint.
func ParseConstraints(s string) ([]FragConstraint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []FragConstraint
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		var c FragConstraint
		if hg, sph, ok := strings.Cut(item, "|"); ok {
			item = hg
			c.Sph = strings.TrimSpace(sph)
			if c.Sph == "" {
				return nil, fmt.Errorf("empty sphingoid type in constraint '%s'", s)
			}
		}
		fields := strings.Split(item, ",")
		c.Headgroup = strings.TrimSpace(fields[0])
		for _, sub := range fields[1:] {
			if sub = strings.TrimSpace(sub); sub != "" {
				c.Sub = append(c.Sub, sub)
			}
		}
		out = append(out, c)
	}
	return out, nil
}
