package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	f, err = ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestPrintTable(t *testing.T) {
	data := NewTableData("ID", "TYPE")
	data.AddRow("a1", "submit_form")
	data.AddRow("a2", "weather_request")
	assert.Equal(t, 2, data.Len())

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, data))
	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "submit_form")
	assert.Contains(t, out, "weather_request")
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SimpleTable(&buf, [][2]string{{"Online", "yes"}, {"Queue length", "3"}}))
	assert.Contains(t, buf.String(), "Queue length")
	assert.Contains(t, buf.String(), "yes")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]int{"a": 1}))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(3<<19))
	assert.Equal(t, "2.0 GiB", FormatBytes(2<<30))
}
