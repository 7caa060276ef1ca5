package utils

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"blank", "   ", nil},
		{"single", "Software", []string{"Software"}},
		{"ordered", "Software, Financial Services, Payments", []string{"Software", "Financial Services", "Payments"}},
		{"trims elements", " Software ,  Payments", []string{"Software", "Payments"}},
		{"drops empty", "A, , B", []string{"A", "B"}},
		{"comma without space stays together", "A,B", []string{"A,B"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitList(tt.in))
		})
	}
	assert.Equal(t, "A, B", JoinList(SplitList("A, B")))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2021-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2019-07")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2018")
	require.NoError(t, err)
	assert.Equal(t, 2018, d.Year())

	_, err = ParseDate("")
	assert.Error(t, err)
	_, err = ParseDate("yesterday")
	assert.Error(t, err)

	assert.Equal(t, "2021-03-15", FormatDate(time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", FormatDate(time.Time{}))
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("$1,250,000")
	require.NoError(t, err)
	assert.Equal(t, 1250000.0, v)

	v, err = ParseAmount("3000000.5")
	require.NoError(t, err)
	assert.Equal(t, 3000000.5, v)

	_, err = ParseAmount("")
	assert.Error(t, err)
	_, err = ParseAmount("n/a")
	assert.Error(t, err)

	for _, in := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "infinity", "1e400"} {
		_, err = ParseAmount(in)
		assert.Error(t, err, in)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"12", 12, false},
		{"12.0", 12, false},
		{"1,204", 1204, false},
		{"-3", -3, false},
		{"2.5", 0, true},
		{"many", 0, true},
		{"NaN", 0, true},
		{"Inf", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "0.1", FormatFloat(0.1))
	assert.Equal(t, "2500000", FormatFloat(2.5e6))
}

func TestOutputManager(t *testing.T) {
	base := filepath.Join(t.TempDir(), "exports")
	om := NewOutputManager(base)
	require.NoError(t, om.EnsureOutputDirExists())
	assert.DirExists(t, base)

	dir, err := om.CreateRunDir("abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "abc"), dir)
	assert.DirExists(t, dir)

	dir, err = om.RunDir("def")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "def"), dir)
	assert.NoDirExists(t, dir)

	for _, id := range []string{"", ".", "..", "../escape", `a\b`, "a/b"} {
		_, err := om.CreateRunDir(id)
		assert.Error(t, err, id)
	}
}
