package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeText, ParseMode("text"))
	assert.Equal(t, ModeText, ParseMode("table"))
	assert.Equal(t, ModeMarkdown, ParseMode("md"))
	assert.Equal(t, ModeMarkdown, ParseMode("Markdown"))
	assert.Equal(t, ModeJSON, ParseMode("json"))
	assert.Equal(t, ModeAuto, ParseMode(""))
	assert.Equal(t, ModeAuto, ParseMode("bogus"))
}

func TestNewRenderer_AutoFallsBackToMarkdown(t *testing.T) {
	var buf strings.Builder
	r := NewRenderer(&buf, ModeAuto)
	assert.Equal(t, ModeMarkdown, r.Mode())
}

func TestTable_Markdown(t *testing.T) {
	var buf strings.Builder
	r := NewRenderer(&buf, ModeMarkdown)
	require.NoError(t, r.Table([]string{"Name", "Count"}, [][]string{
		{"orders", "12"},
		{"users", "3"},
	}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| Name | Count |", lines[0])
	assert.Equal(t, "| --- | --- |", lines[1])
	assert.Equal(t, "| orders | 12 |", lines[2])
	assert.Equal(t, "| users | 3 |", lines[3])
}

func TestTable_EmptyRows(t *testing.T) {
	var buf strings.Builder
	r := NewRenderer(&buf, ModeMarkdown)
	require.NoError(t, r.Table([]string{"Name"}, nil))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestTable_Text(t *testing.T) {
	var buf strings.Builder
	r := NewRenderer(&buf, ModeText)
	require.NoError(t, r.Table([]string{"Name"}, [][]string{{"orders"}}))
	assert.Contains(t, buf.String(), "orders")
	assert.Contains(t, buf.String(), "NAME")
}

func TestTable_JSON(t *testing.T) {
	var buf strings.Builder
	r := NewRenderer(&buf, ModeJSON)
	require.NoError(t, r.Table([]string{"name", "count"}, [][]string{
		{"orders", "12"},
	}))

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "orders", decoded[0]["name"])
	assert.Equal(t, "12", decoded[0]["count"])
}

func TestPrintln_SuppressedInJSONMode(t *testing.T) {
	var buf strings.Builder
	r := NewRenderer(&buf, ModeJSON)
	r.Println("saved")
	r.Printf("wrote %d\n", 2)
	assert.Empty(t, buf.String())

	text := NewRenderer(&buf, ModeText)
	text.Println("saved")
	assert.Equal(t, "saved\n", buf.String())
}
