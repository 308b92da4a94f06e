package scan

import (
	"fmt"
	"strings"
)

// String renders the peaks of the default view as a table in intensity
// order, one line per annotation.
func (s *Scan) String() string {
	return s.View.Table()
}

// Table renders the peaks as annotated in this view.
func (v *View) Table() string {
	s := v.scan
	defer s.sorted(ByIntensity)()

	var b strings.Builder
	fmt.Fprintf(&b, "scan %d", s.ScanID)
	if s.SampleID != "" {
		fmt.Fprintf(&b, " sample %s", s.SampleID)
	}
	if v.precursor > 0 {
		fmt.Fprintf(&b, " precursor %.4f %s", v.precursor, v.adduct)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%5s %12s %12s %7s  %-40s %12s\n", "rank", "m/z", "intensity", "rel", "identity", "NL mass")
	b.WriteString(strings.Repeat("=", 94))
	b.WriteString("\n")

	for i := range s.mzs {
		nl := "NA"
		if v.precursor > 0 {
			nl = fmt.Sprintf("%.4f", v.precursor-s.mzs[i])
		}
		names := []string{"Unknown"}
		if len(v.annot[i]) > 0 {
			names = names[:0]
			for _, a := range v.annot[i] {
				names = append(names, a.Name)
			}
		}
		for _, name := range names {
			fmt.Fprintf(&b, "%5d %12.4f %12.0f %7.3f  %-40s %12s\n",
				i, s.mzs[i], s.intensities[i], s.inorm[i], name, nl)
		}
	}
	return b.String()
}

// FullList renders every annotation of every peak on one line, e.g.
// "PC/SM [P+Ch] (184.0733) (1000); Unknown (104.201) (20)".
func (v *View) FullList() string {
	s := v.scan
	defer s.sorted(ByIntensity)()

	var parts []string
	for i := range s.mzs {
		if len(v.annot[i]) == 0 {
			parts = append(parts, fmt.Sprintf("Unknown (%.3f) (%.0f)", s.mzs[i], s.intensities[i]))
			continue
		}
		names := make([]string, len(v.annot[i]))
		for j, a := range v.annot[i] {
			names[j] = fmt.Sprintf("%s (%.0f)", a.Name, s.intensities[i])
		}
		parts = append(parts, strings.Join(names, "/"))
	}
	return strings.Join(parts, "; ")
}
