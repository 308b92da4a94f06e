package fragdb

// Annotate returns the possible identities of a peak. With a known
// precursor (> 0) neutral loss matches come first, followed by the
// charged ion matches; both are kept. No match returns nil.
func Annotate(db *Database, mz, precursor, tol float64) []Annotation {
	var out []Annotation
	if precursor > 0 {
		for _, r := range db.LookupNL(mz, precursor, tol) {
			out = append(out, annotationOf(r))
		}
	}
	for _, r := range db.Lookup(mz, false, tol) {
		out = append(out, annotationOf(r))
	}
	return out
}

// AnnotateAll annotates every peak of mzs.
func AnnotateAll(db *Database, mzs []float64, precursor, tol float64) [][]Annotation {
	out := make([][]Annotation, len(mzs))
	for i, mz := range mzs {
		out[i] = Annotate(db, mz, precursor, tol)
	}
	return out
}
