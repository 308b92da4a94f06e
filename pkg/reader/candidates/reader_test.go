package candidates

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/LipidKey/pkg/core"
	"github.com/ChrisMcGann/LipidKey/pkg/lipid"
)

func lines(rows ...string) string {
	header := strings.Join(Columns, "\t")
	return header + "\n" + strings.Join(rows, "\n") + "\n"
}

func newReader(data string) *Reader {
	r := NewReader(strings.NewReader(data))
	r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return r
}

func TestReadFeatures(t *testing.T) {
	data := lines(
		"F1\t760.5851\t12.3\tpos\t[M+H]+\t760.5851\t0.4\tPC\t\tFA,FA\t34\t1",
		"F1\t760.5851\t12.3\tpos\t[M+Na]+\t760.5856\t-0.3\tPE\t\tFA,FA\t37\t4",
		"# comment",
		"",
		"F2\t728.5832\t\tpos\t[M+H]+\t728.5832\t1.1\tCer\tHex\tSph:d,FA:2OH\t42\t2",
		"F3\t466.3302\tNA\tneg\t[M-H]-\t466.3300\t0.2\tPE\tLyso\tFA\t18\t1",
	)
	features, err := newReader(data).ReadAll()
	require.NoError(t, err)
	require.Len(t, features, 3)

	f1 := features[0]
	assert.Equal(t, "F1", f1.Name)
	assert.Equal(t, 760.5851, f1.MZ)
	assert.Equal(t, 12.3, f1.RT)
	assert.Equal(t, core.Positive, f1.IonMode)
	require.Len(t, f1.Candidates, 2)
	assert.Equal(t, "[M+Na]+", f1.Candidates[1].Adduct)
	assert.Equal(t, -0.3, f1.Candidates[1].PPM)
	assert.Equal(t, "PC(34:1)", f1.Candidates[0].Record.SummaryString())

	f2 := features[1]
	assert.True(t, math.IsNaN(f2.RT))
	rec := f2.Candidates[0].Record
	assert.Equal(t, []string{"Hex"}, rec.Headgroup.Sub)
	assert.Equal(t, []string{lipid.Sph, lipid.FA}, rec.ChainSum.Types)
	assert.Equal(t, "d", rec.Sph())
	assert.Equal(t, []string{"2OH"}, rec.ChainSum.Attr(1).OH)

	f3 := features[2]
	assert.Equal(t, core.Negative, f3.IonMode)
	assert.True(t, f3.Candidates[0].Record.Headgroup.HasSub("Lyso"))
}

func TestMalformedRowsAreSkipped(t *testing.T) {
	data := lines(
		"F1\tabc\t12.3\tpos\t[M+H]+\t760.5851\t0.4\tPC\t\tFA,FA\t34\t1",
		"F1\t760.5851\t12.3\tboth\t[M+H]+\t760.5851\t0.4\tPC\t\tFA,FA\t34\t1",
		"F1\t760.5851\t12.3\tpos\t\t760.5851\t0.4\tPC\t\tFA,FA\t34\t1",
		"F1\t760.5851\t12.3\tpos\t[M+H]+\t760.5851\t0.4\t\t\tFA,FA\t34\t1",
		"F1\t760.5851\t12.3\tpos\t[M+H]+\t760.5851\t0.4\tPC\t\tXX,FA\t34\t1",
		"F1\t760.5851\t12.3\tpos\t[M+H]+\t760.5851\t0.4\tPC\t\t\t34\t1",
		"F1\t760.5851\t12.3\tpos\t[M+H]+\t760.5851\t0.4\tPC\t\tFA,FA\t-2\t1",
		"F1\t760.5851",
		"F1\t760.5851\t12.3\tpos\t[M+H]+\t760.5851\t0.4\tPC\t\tFA,FA\t34\t1",
		"F1\t760.5851\t12.3\tneg\t[M-H]-\t760.5851\t0.4\tPC\t\tFA,FA\t34\t1",
	)
	features, err := newReader(data).ReadAll()
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Len(t, features[0].Candidates, 1)
}

func TestSplitFeatures(t *testing.T) {
	// the same name later in the file starts a new feature
	data := lines(
		"F1\t700\t1\tneg\t[M-H]-\t700\t0\tPE\t\tFA,FA\t34\t1",
		"F2\t800\t1\tneg\t[M-H]-\t800\t0\tPE\t\tFA,FA\t40\t6",
		"F1\t700\t1\tneg\t[M-H]-\t700\t0\tPE\t\tFA,FA\t34\t1",
	)
	r := newReader(data)
	var names []string
	for r.Next() {
		names = append(names, r.Feature().Name)
	}
	require.NoError(t, r.Err())
	assert.Equal(t, []string{"F1", "F2", "F1"}, names)
}

func TestHeader(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr error
	}{
		{"empty input", "", 0, nil},
		{"header only", strings.Join(Columns, "\t") + "\n", 0, nil},
		{"missing columns", "feature\tmz\n", 0, ErrMissingColumn},
		{
			"reordered columns",
			"u\tc\tchains\tsubclasses\theadgroup\tppm\trecord_mz\tadduct\tionmode\trt\tmz\tfeature\n" +
				"1\t34\tFA,FA\t\tPC\t0.4\t760.5851\t[M+H]+\tpos\t12.3\t760.5851\tF1\n",
			1, nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			features, err := newReader(tt.data).ReadAll()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, features, tt.want)
		})
	}
}
