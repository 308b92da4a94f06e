package cmd

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/LipidKey/pkg/config"
)

const testMGF = `BEGIN IONS
TITLE=run.1001.1001.1 scan=1001
PEPMASS=716.5236 5000
CHARGE=1-
RTINSECONDS=612
140.0118 30
281.2486 80
283.2643 100
END IONS
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseSampleArg(t *testing.T) {
	tests := []struct {
		arg      string
		wantID   string
		wantPath string
	}{
		{"S1=data/a.mgf", "S1", "data/a.mgf"},
		{"data/b.mgf", "b", "data/b.mgf"},
		{"c", "c", "c"},
		{"=odd.mgf", "=odd", "=odd.mgf"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			id, path := parseSampleArg(tt.arg)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "line", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
}

func TestOpenSamples(t *testing.T) {
	a := writeTemp(t, "a.mgf", testMGF)
	b := writeTemp(t, "b.mgf", testMGF)
	c := writeTemp(t, "c.mgf", testMGF)

	cfg = config.Default()
	samples, closeAll, err := openSamples([]string{"S1=" + a, "S2=" + b, "S1=" + c}, quietLogger())
	require.NoError(t, err)
	defer closeAll()

	require.Len(t, samples, 2)
	assert.Equal(t, "S1", samples[0].ID)
	assert.Len(t, samples[0].Sources, 2)
	assert.Equal(t, "S2", samples[1].ID)
	assert.Len(t, samples[1].Sources, 1)

	_, _, err = openSamples([]string{filepath.Join(t.TempDir(), "missing.mgf")}, quietLogger())
	assert.Error(t, err)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, percent(0, 0))
	assert.Equal(t, 50.0, percent(1, 2))
}

func TestValidateCommand(t *testing.T) {
	header := "feature\tmz\trt\tionmode\tadduct\trecord_mz\tppm\theadgroup\tsubclasses\tchains\tc\tu\n"
	tsv := writeTemp(t, "features.tsv",
		header+"F1\t716.5236\t10.2\tneg\t[M-H]-\t716.5236\t0.1\tPE\t\tFA,FA\t36\t1\n")
	mgfFile := writeTemp(t, "run.mgf", testMGF)
	empty := writeTemp(t, "empty.tsv", header)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no files", []string{"validate"}, ""},
		{"valid inputs", []string{"validate", tsv, mgfFile}, ""},
		{"empty candidates", []string{"validate", tsv, empty}, "1 of 2 files failed validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(tt.args)
			err := rootCmd.Execute()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
