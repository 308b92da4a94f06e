// Package lipid models lipid species as headgroups plus chain compositions
// and renders them in the usual shorthand notation.
package lipid

import (
	"fmt"
	"slices"
	"strings"
)

// Chain types
const (
	FA  = "FA"  // fatty acyl
	FAL = "FAL" // fatty alkyl (ether)
	Sph = "Sph" // sphingoid base
)

// Headgroup is the class-defining part of a lipid: a main class such as
// "PC" or "Cer" and optional subclasses such as "Lyso", "Hex" or "1P".
type Headgroup struct {
	Main string
	Sub  []string
}

// HasSub reports whether s is among the subclasses.
func (h Headgroup) HasSub(s string) bool {
	return slices.Contains(h.Sub, s)
}

// SubKey returns the subclasses sorted and joined by ",".
func (h Headgroup) SubKey() string {
	sub := slices.Clone(h.Sub)
	slices.Sort(sub)
	return strings.Join(sub, ",")
}

// Key identifies the headgroup independent of subclass order.
func (h Headgroup) Key() string {
	return h.Main + "|" + h.SubKey()
}

// Equal compares main class and subclass sets.
func (h Headgroup) Equal(o Headgroup) bool {
	return h.Key() == o.Key()
}

// prefixes are rendered before the main class, in this order.
var prefixes = []string{"Lyso", "M1", "M2", "M3", "Hex", "Hex2", "SHex", "SHex2"}

// String renders e.g. "LysoPC", "HexCer", "Cer1P", "PE-Cer".
func (h Headgroup) String() string {
	var b strings.Builder
	for _, p := range prefixes {
		if h.HasSub(p) {
			b.WriteString(p)
		}
	}
	for _, s := range h.Sub {
		if s == "PE" || s == "PC" {
			b.WriteString(s + "-")
		}
	}
	b.WriteString(h.Main)
	if h.HasSub("1P") {
		b.WriteString("1P")
	}
	for _, s := range h.Sub {
		if !slices.Contains(prefixes, s) && s != "PE" && s != "PC" && s != "1P" {
			b.WriteString(s)
		}
	}
	return b.String()
}

// ChainAttr holds per-position chain attributes.
type ChainAttr struct {
	Sph   string   // sphingoid subtype: d, dh, t, k; empty for non-sphingoid chains
	Ether bool     // alkyl (ether) linkage
	OH    []string // extra hydroxyl tags, e.g. "2OH"
}

func (a ChainAttr) equal(o ChainAttr) bool {
	return a.Sph == o.Sph && a.Ether == o.Ether && slices.Equal(a.OH, o.OH)
}

func (a ChainAttr) prefix() string {
	switch {
	case a.Sph != "":
		return a.Sph
	case a.Ether:
		return "O-"
	}
	return ""
}

func (a ChainAttr) suffix() string {
	if len(a.OH) == 0 {
		return ""
	}
	return ";" + strings.Join(a.OH, ";")
}

// Chain is one resolved chain.
type Chain struct {
	C, U int
	Type string
	Attr ChainAttr
}

// String renders e.g. "d18:1", "O-16:0" or "24:0;2OH".
func (c Chain) String() string {
	return fmt.Sprintf("%s%d:%d%s", c.Attr.prefix(), c.C, c.U, c.Attr.suffix())
}

// Equal compares every field.
func (c Chain) Equal(o Chain) bool {
	return c.C == o.C && c.U == o.U && c.Type == o.Type && c.Attr.equal(o.Attr)
}

// ChainSummary is the total composition of a lipid split across positions.
type ChainSummary struct {
	C, U  int
	Types []string
	Attrs []ChainAttr
}

// Len returns the number of chain positions.
func (s ChainSummary) Len() int {
	return len(s.Types)
}

// Attr returns the attributes of position i, zero when not given.
func (s ChainSummary) Attr(i int) ChainAttr {
	if i < len(s.Attrs) {
		return s.Attrs[i]
	}
	return ChainAttr{}
}

// String renders e.g. "d36:1" or "O-34:1".
func (s ChainSummary) String() string {
	var prefix, suffix string
	var oh []string
	for i := range s.Types {
		a := s.Attr(i)
		if p := a.prefix(); p != "" && prefix == "" {
			prefix = p
		}
		oh = append(oh, a.OH...)
	}
	if len(oh) > 0 {
		suffix = ";" + strings.Join(oh, ";")
	}
	return fmt.Sprintf("%s%d:%d%s", prefix, s.C, s.U, suffix)
}

// Equal compares totals, types and attributes.
func (s ChainSummary) Equal(o ChainSummary) bool {
	if s.C != o.C || s.U != o.U || !slices.Equal(s.Types, o.Types) || s.Len() != o.Len() {
		return false
	}
	for i := range s.Types {
		if !s.Attr(i).equal(o.Attr(i)) {
			return false
		}
	}
	return true
}

// Record is one candidate MS1 identity.
type Record struct {
	Headgroup Headgroup
	ChainSum  ChainSummary
	Chains    []Chain // explicit chains, when known
}

// Sph returns the sphingoid subtype of the first position, if any.
func (r Record) Sph() string {
	if r.ChainSum.Len() > 0 && r.ChainSum.Types[0] == Sph {
		return r.ChainSum.Attr(0).Sph
	}
	return ""
}

// IsSphingolipid reports whether the first chain is a sphingoid base.
func (r Record) IsSphingolipid() bool {
	return r.ChainSum.Len() > 0 && r.ChainSum.Types[0] == Sph
}

// SummaryString renders e.g. "PC(36:1)" or "Cer(d36:1)".
func (r Record) SummaryString() string {
	if r.ChainSum.Len() == 0 {
		return r.Headgroup.String()
	}
	return fmt.Sprintf("%s(%s)", r.Headgroup, r.ChainSum)
}

// Species renders a lipid with resolved chains, e.g. "PC(18:0_18:1)" or
// "Cer(d18:1/16:0)". Sphingolipid chains are joined with "/", others with
// "_" as their positions are not resolved.
func Species(h Headgroup, chains []Chain) string {
	sep := "_"
	if len(chains) > 0 && chains[0].Type == Sph {
		sep = "/"
	}
	parts := make([]string, len(chains))
	for i, c := range chains {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%s(%s)", h, strings.Join(parts, sep))
}
