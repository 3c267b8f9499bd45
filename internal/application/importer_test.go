package application

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
	"github.com/FoxxDev-Collab/controlgraph/internal/oscal"
)

const testCatalogUUID = "74c8ba1a-7218-4c99-b1b4-a1b6ef8b1b47"

func parseDoc(t *testing.T, body string) *oscal.Document {
	t.Helper()
	doc, err := oscal.Parse([]byte(body))
	require.NoError(t, err)
	return doc
}

func wrapCatalog(groups string) string {
	return fmt.Sprintf(`{
  "catalog": {
    "uuid": %q,
    "metadata": {"title": "Test Catalog", "version": "5.1.1", "last-modified": "2024-03-01T00:00:00Z"},
    "groups": [%s]
  }
}`, testCatalogUUID, groups)
}

func TestImportFullDocument(t *testing.T) {
	doc := parseDoc(t, wrapCatalog(`
    {"id": "ac", "title": "Access Control", "class": "family", "controls": [
      {"id": "ac-1", "title": "Policy and Procedures",
        "params": [{"id": "ac-1_prm_1", "label": "organization-defined frequency"}],
        "parts": [
          {"id": "ac-1_smt", "name": "statement", "prose": "The organization:", "parts": [
            {"id": "ac-1_smt.a", "name": "item", "prose": "Develops a policy."}
          ]}
        ],
        "links": [
          {"href": "#ac-2", "rel": "related"},
          {"href": "https://example.org/sp800-12", "rel": "reference"}
        ]},
      {"id": "ac-2", "title": "Account Management", "controls": [
        {"id": "ac-2.1", "title": "Automated System Account Management"}
      ]}
    ]},
    {"id": "au", "title": "Audit and Accountability", "controls": [
      {"id": "au-1", "title": "Audit Policy", "links": [{"href": "#ac-2", "rel": "related"}]}
    ]}`))

	repo := newFakeRepo()
	importer := NewImporter(repo, testLogger())

	result, err := importer.Run(context.Background(), doc, "catalog")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Details.Errors)

	assert.Equal(t, domain.ImportStats{
		Groups:       2,
		Controls:     3,
		Enhancements: 1,
		Parts:        2,
		Parameters:   1,
		Links:        3,
	}, result.Details.Stats)
	assert.Equal(t, testCatalogUUID, result.Details.Catalog.ID)
	assert.Equal(t, "5.1.1", result.Details.Catalog.Version)

	// Forward reference within one group, external self-loop, and a
	// cross-group reference resolved through the identifier map.
	assert.Equal(t, []string{
		"ac-1 reference ac-1",
		"ac-1 related ac-2",
		"au-1 related ac-2",
	}, repo.linkStrings())

	enh, err := repo.GetControl(context.Background(), "ac-2.1")
	require.NoError(t, err)
	require.NotNil(t, enh.BaseControlID)
	assert.Equal(t, "ac-2", *enh.BaseControlID)

	parts, err := repo.ListParts(context.Background(), "ac-1")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Nil(t, parts[0].ParentSourceID)
	require.NotNil(t, parts[1].ParentSourceID)
	assert.Equal(t, "ac-1_smt", *parts[1].ParentSourceID)
}

func TestImportCountsEnhancementsSeparately(t *testing.T) {
	doc := parseDoc(t, wrapCatalog(`
    {"id": "ac", "title": "Access Control", "controls": [
      {"id": "ac-1", "title": "Policy", "controls": [{"id": "ac-1.1", "title": "Refinement"}]}
    ]},
    {"id": "au", "title": "Audit", "controls": [
      {"id": "au-1", "title": "Audit Policy", "controls": [{"id": "au-1.1", "title": "Refinement"}]}
    ]}`))

	repo := newFakeRepo()
	result, err := NewImporter(repo, testLogger()).Run(context.Background(), doc, "catalog")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, domain.ImportStats{Groups: 2, Controls: 2, Enhancements: 2}, result.Details.Stats)
}

func TestImportDanglingReferenceIsRecoverable(t *testing.T) {
	doc := parseDoc(t, wrapCatalog(`
    {"id": "ac", "title": "Access Control", "controls": [
      {"id": "ac-1", "title": "Policy", "links": [{"href": "#zz-9", "rel": "related"}]}
    ]}`))

	repo := newFakeRepo()
	result, err := NewImporter(repo, testLogger()).Run(context.Background(), doc, "catalog")
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Details.Errors, 1)
	assert.Equal(t, domain.ImportErrorLink, result.Details.Errors[0].Kind)
	assert.Empty(t, repo.links)

	// The control itself still lands.
	_, err = repo.GetControl(context.Background(), "ac-1")
	assert.NoError(t, err)
}

func TestImportRejectsNestedEnhancements(t *testing.T) {
	doc := parseDoc(t, wrapCatalog(`
    {"id": "ac", "title": "Access Control", "controls": [
      {"id": "ac-1", "title": "Policy", "controls": [
        {"id": "ac-1.1", "title": "Enhancement", "controls": [
          {"id": "ac-1.2", "title": "Too Deep"}
        ]}
      ]}
    ]}`))

	repo := newFakeRepo()
	result, err := NewImporter(repo, testLogger()).Run(context.Background(), doc, "catalog")
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Details.Errors, 1)
	assert.Equal(t, domain.ImportErrorEnhancement, result.Details.Errors[0].Kind)

	_, err = repo.GetControl(context.Background(), "ac-1.1")
	assert.NoError(t, err)
	_, err = repo.GetControl(context.Background(), "ac-1.2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportDuplicateControlIDKeepsFirst(t *testing.T) {
	doc := parseDoc(t, wrapCatalog(`
    {"id": "ac", "title": "Access Control", "controls": [
      {"id": "ac-1", "title": "First"}
    ]},
    {"id": "au", "title": "Audit", "controls": [
      {"id": "ac-1", "title": "Second"}
    ]}`))

	repo := newFakeRepo()
	result, err := NewImporter(repo, testLogger()).Run(context.Background(), doc, "catalog")
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Details.Errors, 1)
	assert.Equal(t, domain.ImportErrorControl, result.Details.Errors[0].Kind)

	control, err := repo.GetControl(context.Background(), "ac-1")
	require.NoError(t, err)
	assert.Equal(t, "First", control.Title)
	assert.Equal(t, 1, result.Details.Stats.Controls)
}

func TestImportContinuesPastFailedGroup(t *testing.T) {
	doc := parseDoc(t, wrapCatalog(`
    {"id": "ac", "title": "Access Control", "controls": [
      {"id": "ac-1", "title": "Policy"}
    ]},
    {"id": "au", "title": "Audit", "controls": [
      {"id": "au-1", "title": "Audit Policy"}
    ]}`))

	repo := newFakeRepo()
	repo.failGroupSourceID = "ac"
	result, err := NewImporter(repo, testLogger()).Run(context.Background(), doc, "catalog")
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Details.Errors, 1)
	assert.Equal(t, domain.ImportErrorGroup, result.Details.Errors[0].Kind)

	// ac rolled back entirely, au intact, catalog row committed up front.
	_, err = repo.GetControl(context.Background(), "ac-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetControl(context.Background(), "au-1")
	assert.NoError(t, err)
	_, err = repo.GetCatalog(context.Background(), testCatalogUUID)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Details.Stats.Groups)
}

func TestImportRolledBackGroupNotCounted(t *testing.T) {
	var controls []string
	for i := 1; i <= 4; i++ {
		controls = append(controls, fmt.Sprintf(`{"id": "ac-%d", "title": "Control %d"}`, i, i))
	}
	doc := parseDoc(t, wrapCatalog(fmt.Sprintf(
		`{"id": "ac", "title": "Access Control", "controls": [%s]}`,
		strings.Join(controls, ","))))

	// The first chunk flushes cleanly before the second one fails; the
	// rollback must take the first chunk's counts with it.
	repo := newFakeRepo()
	repo.failControlID = "ac-3"
	importer := NewImporter(repo, testLogger())
	importer.chunkSize = 2

	result, err := importer.Run(context.Background(), doc, "catalog")
	require.NoError(t, err)
	assert.False(t, result.Success)

	assert.Len(t, repo.controls, 0)
	assert.Equal(t, domain.ImportStats{}, result.Details.Stats)
	require.Len(t, result.Details.Errors, 1)
	assert.Equal(t, domain.ImportErrorGroup, result.Details.Errors[0].Kind)
}

func TestImportChunksLargeGroups(t *testing.T) {
	var controls []string
	for i := 1; i <= 7; i++ {
		controls = append(controls, fmt.Sprintf(`{"id": "ac-%d", "title": "Control %d"}`, i, i))
	}
	doc := parseDoc(t, wrapCatalog(fmt.Sprintf(
		`{"id": "ac", "title": "Access Control", "controls": [%s]}`,
		strings.Join(controls, ","))))

	repo := newFakeRepo()
	importer := NewImporter(repo, testLogger())
	importer.chunkSize = 3

	result, err := importer.Run(context.Background(), doc, "catalog")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 7, result.Details.Stats.Controls)
	assert.Len(t, repo.controls, 7)
}
