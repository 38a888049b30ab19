package flags

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `# source: cod
# exported 2024-11-02
id,is_theoretical,is_high_pressure,is_high_temperature
1000044,False,False,False
1000045,True,False,False
1000046,False,true,False
1000047,False,False,1
`

func TestParse(t *testing.T) {
	byID, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, byID, 4)

	assert.Equal(t, Flags{}, byID["1000044"])
	assert.Equal(t, Flags{Theoretical: true}, byID["1000045"])
	assert.Equal(t, Flags{HighPressure: true}, byID["1000046"])
	assert.Equal(t, Flags{HighTemperature: true}, byID["1000047"])
}

func TestParseMissingColumn(t *testing.T) {
	csv := "#\n#\nid,is_theoretical,is_high_pressure\n1,False,False\n"
	_, err := Parse(strings.NewReader(csv))
	assert.ErrorContains(t, err, "is_high_temperature")
}

func TestParseShortRow(t *testing.T) {
	csv := "#\n#\nid,is_theoretical,is_high_pressure,is_high_temperature\n100,true\n"
	_, err := Parse(strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorContains(t, err, "row 1")
	assert.ErrorContains(t, err, "2 fields")
}

func TestParseTruncatedPreamble(t *testing.T) {
	_, err := Parse(strings.NewReader("# only one line\n"))
	assert.ErrorContains(t, err, "preamble")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cod.csv"), []byte(sampleCSV), 0o644))

	table, err := Load(dir, []string{"cod"})
	require.NoError(t, err)

	f, known := table.Lookup("cod", "1000045")
	assert.True(t, known)
	assert.True(t, f.Disqualified())

	f, known = table.Lookup("cod", "1000044")
	assert.True(t, known)
	assert.False(t, f.Disqualified())

	_, known = table.Lookup("cod", "9999999")
	assert.False(t, known)
	_, known = table.Lookup("icsd", "1000044")
	assert.False(t, known)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir(), []string{"icsd"})
	assert.ErrorContains(t, err, "icsd")
}
