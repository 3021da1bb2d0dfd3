package formatters

import (
	"encoding/json"
	"encoding/xml"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testDocument() *Document {
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	return &Document{
		Version:    1,
		ExportedAt: time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC),
		Jobs: []Job{
			{ID: "a1", Name: "data_ingestion", StartTime: start, EndTime: &end, Status: "completed"},
			{ID: "b2", Name: "ml_training", StartTime: start.Add(time.Minute), Status: "running"},
		},
	}
}

func TestJob_DurationSeconds(t *testing.T) {
	doc := testDocument()

	d := doc.Jobs[0].DurationSeconds()
	require.NotNil(t, d)
	assert.InDelta(t, 90.0, *d, 1e-9)

	assert.Nil(t, doc.Jobs[1].DurationSeconds())
}

func TestJSONFormatter(t *testing.T) {
	f := NewJSONFormatter()
	assert.Equal(t, "json", f.Name())
	assert.Equal(t, "application/json", f.ContentType())
	assert.Equal(t, ".json", f.FileExtension())

	out, err := f.Format(testDocument())
	require.NoError(t, err)

	var got jsonDocument
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "2024-01-15T11:00:00Z", got.ExportedAt)
	require.Len(t, got.Jobs, 2)
	assert.Equal(t, "data_ingestion", got.Jobs[0].JobName)
	assert.Equal(t, "2024-01-15T10:31:30Z", got.Jobs[0].EndTime)
	require.NotNil(t, got.Jobs[0].DurationSeconds)
	assert.InDelta(t, 90.0, *got.Jobs[0].DurationSeconds, 1e-9)

	assert.Empty(t, got.Jobs[1].EndTime)
	assert.Nil(t, got.Jobs[1].DurationSeconds)
	assert.NotContains(t, string(out), `"end_time": ""`)
}

func TestJSONFormatter_Compact(t *testing.T) {
	out, err := NewCompactJSONFormatter().Format(testDocument())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "\n")
	assert.True(t, json.Valid(out))
}

func TestJSONFormatter_EmptyDocument(t *testing.T) {
	out, err := NewJSONFormatter().Format(&Document{Version: 1})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"jobs": []`)
}

func TestYAMLFormatter(t *testing.T) {
	f := NewYAMLFormatter()
	assert.Equal(t, "yaml", f.Name())

	out, err := f.Format(testDocument())
	require.NoError(t, err)

	var got yamlDocument
	require.NoError(t, yaml.Unmarshal(out, &got))
	require.Len(t, got.Jobs, 2)
	assert.Equal(t, "a1", got.Jobs[0].ID)
	assert.Equal(t, "running", got.Jobs[1].Status)
	assert.Nil(t, got.Jobs[1].DurationSeconds)
}

func TestTOMLFormatter(t *testing.T) {
	f := NewTOMLFormatter()
	assert.Equal(t, "toml", f.Name())

	out, err := f.Format(testDocument())
	require.NoError(t, err)

	var got tomlDocument
	require.NoError(t, toml.Unmarshal(out, &got))
	assert.Equal(t, 1, got.Version)
	require.Len(t, got.Jobs, 2)
	assert.Equal(t, "ml_training", got.Jobs[1].JobName)
	assert.Empty(t, got.Jobs[1].EndTime)
}

func TestXMLFormatter(t *testing.T) {
	f := NewXMLFormatter()
	assert.Equal(t, "xml", f.Name())

	out, err := f.Format(testDocument())
	require.NoError(t, err)
	assert.Contains(t, string(out), "<batch-jobs")

	var got xmlDocument
	require.NoError(t, xml.Unmarshal(out, &got))
	require.Len(t, got.Jobs, 2)
	assert.Equal(t, "a1", got.Jobs[0].ID)
	assert.Equal(t, "completed", got.Jobs[0].Status)
}
