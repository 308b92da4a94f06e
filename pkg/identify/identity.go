package identify

import (
	"fmt"
	"math"
	"strings"

	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
	"github.com/ChrisMcGann/LipidKey/pkg/scan"
)

// Candidate is one MS1 record the precursor may be.
type Candidate struct {
	Adduct string
	MZ     float64 // theoretical m/z of the record as Adduct
	PPM    float64 // precursor error
	Record lipid.Record
}

// Identity is one proposed species for a scan.
type Identity struct {
	Score    int
	MaxScore int
	ScorePct int // 200 when MaxScore is 0

	Headgroup lipid.Headgroup
	ChainSum  lipid.ChainSummary
	Chains    []lipid.Chain       // nil when identified by the headgroup only
	Details   *scan.ChainDetails // nil without chains
	Adduct    string

	scan.Info
}

// String renders the species, e.g. "PC(18:0_18:1)", or the summary
// "PC(36:1)" without chains.
func (id Identity) String() string {
	if len(id.Chains) > 0 {
		return lipid.Species(id.Headgroup, id.Chains)
	}
	rec := lipid.Record{Headgroup: id.Headgroup, ChainSum: id.ChainSum}
	return rec.SummaryString()
}

// FullString renders e.g.
// "PC(18:0_18:1)[score=85.0,deltart=0.12,sample=A1,scan=1234]".
func (id Identity) FullString() string {
	details := []string{
		fmt.Sprintf("score=%.1f", float64(id.ScorePct)),
		fmt.Sprintf("deltart=%.2f", id.DeltaRT),
	}
	if id.SampleID != "" {
		details = append(details, "sample="+id.SampleID)
	}
	details = append(details, fmt.Sprintf("scan=%d", id.ScanID))
	return fmt.Sprintf("%s[%s]", id, strings.Join(details, ","))
}

// Key identifies the species structurally: headgroup, chain summary and
// chains. Scores and scan details are not part of it. Identities with equal
// keys are Equal.
func (id Identity) Key() string {
	chains := make([]string, len(id.Chains))
	for i, c := range id.Chains {
		chains[i] = fmt.Sprintf("%s:%d:%d:%s", c.Type, c.C, c.U, attrKey(c.Attr))
	}
	return id.Headgroup.Key() + "/" + summaryKey(id.ChainSum) + "/" + strings.Join(chains, ",")
}

func summaryKey(s lipid.ChainSummary) string {
	positions := make([]string, s.Len())
	for i, t := range s.Types {
		positions[i] = t + ":" + attrKey(s.Attr(i))
	}
	return fmt.Sprintf("%d:%d[%s]", s.C, s.U, strings.Join(positions, ","))
}

// attrKey renders every field of the attributes of one position.
func attrKey(a lipid.ChainAttr) string {
	key := a.Sph
	if a.Ether {
		key += "+O"
	}
	if len(a.OH) > 0 {
		key += ";" + strings.Join(a.OH, ";")
	}
	return key
}

// Equal compares identities structurally.
func (id Identity) Equal(o Identity) bool {
	if !id.Headgroup.Equal(o.Headgroup) || !id.ChainSum.Equal(o.ChainSum) || len(id.Chains) != len(o.Chains) {
		return false
	}
	for i := range id.Chains {
		if !id.Chains[i].Equal(o.Chains[i]) {
			return false
		}
	}
	return true
}

// percentScore is the score as a percentage of maxScore, clamped to
// [0, 100]. A zero maximum means nothing could be checked and gives 200.
func percentScore(score, maxScore int) int {
	if maxScore == 0 {
		return 200
	}
	pct := int(math.Round(float64(score) / float64(maxScore) * 100))
	return min(max(pct, 0), 100)
}
