package oscal

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDoc = `{
  "catalog": {
    "uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47",
    "metadata": {
      "title": "Test Catalog",
      "version": "1.0",
      "last-modified": "2024-03-01T00:00:00Z"
    },
    "groups": [
      {
        "id": "ac",
        "title": "Access Control",
        "controls": [
          {"id": "ac-1", "title": "Policy and Procedures"}
        ]
      }
    ]
  }
}`

func TestParseMinimalDocument(t *testing.T) {
	doc, err := Parse([]byte(minimalDoc))
	require.NoError(t, err)
	require.Len(t, doc.Catalog.Groups, 1)
	assert.Equal(t, "Test Catalog", doc.Catalog.Metadata.Title)
	assert.Equal(t, "ac-1", doc.Catalog.Groups[0].Controls[0].ID)
}

func TestParseRejectsInvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "$", schemaErr.Path)
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		path string
	}{
		{
			name: "missing uuid",
			doc:  `{"catalog": {"metadata": {"title": "T", "version": "1"}, "groups": [{"id": "ac", "title": "AC"}]}}`,
			path: "catalog.uuid",
		},
		{
			name: "malformed uuid",
			doc:  `{"catalog": {"uuid": "not-a-uuid", "metadata": {"title": "T", "version": "1"}, "groups": [{"id": "ac", "title": "AC"}]}}`,
			path: "catalog.uuid",
		},
		{
			name: "missing title",
			doc:  `{"catalog": {"uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47", "metadata": {"version": "1"}, "groups": [{"id": "ac", "title": "AC"}]}}`,
			path: "catalog.metadata.title",
		},
		{
			name: "missing version",
			doc:  `{"catalog": {"uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47", "metadata": {"title": "T"}, "groups": [{"id": "ac", "title": "AC"}]}}`,
			path: "catalog.metadata.version",
		},
		{
			name: "bad last-modified",
			doc:  `{"catalog": {"uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47", "metadata": {"title": "T", "version": "1", "last-modified": "yesterday"}, "groups": [{"id": "ac", "title": "AC"}]}}`,
			path: "catalog.metadata.last-modified",
		},
		{
			name: "no groups",
			doc:  `{"catalog": {"uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47", "metadata": {"title": "T", "version": "1"}, "groups": []}}`,
			path: "catalog.groups",
		},
		{
			name: "group without id",
			doc:  `{"catalog": {"uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47", "metadata": {"title": "T", "version": "1"}, "groups": [{"title": "AC"}]}}`,
			path: "catalog.groups[0].id",
		},
		{
			name: "control without title",
			doc:  `{"catalog": {"uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47", "metadata": {"title": "T", "version": "1"}, "groups": [{"id": "ac", "title": "AC", "controls": [{"id": "ac-1"}]}]}}`,
			path: "catalog.groups[0].controls[0].title",
		},
		{
			name: "param without id",
			doc:  `{"catalog": {"uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47", "metadata": {"title": "T", "version": "1"}, "groups": [{"id": "ac", "title": "AC", "controls": [{"id": "ac-1", "title": "P", "params": [{"label": "x"}]}]}]}}`,
			path: "catalog.groups[0].controls[0].params[0].id",
		},
		{
			name: "part without name",
			doc:  `{"catalog": {"uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47", "metadata": {"title": "T", "version": "1"}, "groups": [{"id": "ac", "title": "AC", "controls": [{"id": "ac-1", "title": "P", "parts": [{"id": "ac-1_smt"}]}]}]}}`,
			path: "catalog.groups[0].controls[0].parts[0].name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tc.path, schemaErr.Path)
		})
	}
}

func TestParseLastModifiedFormats(t *testing.T) {
	for _, value := range []string{
		"2024-03-01T10:30:00.123456Z",
		"2024-03-01T10:30:00Z",
		"2024-03-01",
	} {
		parsed, err := ParseLastModified(value)
		require.NoError(t, err, value)
		assert.Equal(t, 2024, parsed.Year())
		assert.Equal(t, time.March, parsed.Month())
	}

	_, err := ParseLastModified("01/03/2024")
	require.Error(t, err)
}

func TestStatsCountNestedEnhancements(t *testing.T) {
	doc := fmt.Sprintf(`{
  "catalog": {
    "uuid": "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47",
    "metadata": {"title": "T", "version": "1"},
    "groups": [
      {"id": "ac", "title": "AC", "controls": [
        {"id": "ac-1", "title": "One", "controls": [
          {"id": "ac-1.1", "title": "One One"},
          {"id": "ac-1.2", "title": "One Two", "controls": [{"id": "%s", "title": "Deep"}]}
        ]}
      ]},
      {"id": "au", "title": "AU", "controls": [
        {"id": "au-1", "title": "Two"}
      ]}
    ]
  }
}`, "ac-1.3")

	parsed, err := Parse([]byte(doc))
	require.NoError(t, err)
	stats := parsed.Stats()
	assert.Equal(t, 2, stats.Groups)
	assert.Equal(t, 2, stats.Controls)
	assert.Equal(t, 3, stats.Enhancements)
}
