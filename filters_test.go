package gisdoc

import (
	"testing"

	"github.com/jupytergis/gisdoc/gisdoc_errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filteredLayer(t *testing.T, doc *Document) string {
	t.Helper()
	sourceID, err := doc.AddSource(testSource(t, doc))
	require.NoError(t, err)
	layerID, err := doc.AddLayer(testLayer(t, doc, sourceID))
	require.NoError(t, err)
	return layerID
}

func TestAddFilter(t *testing.T) {
	doc := newTestDocument(t)
	layerID := filteredLayer(t, doc)

	require.NoError(t, doc.AddFilter(layerID, "all", "class", "==", String("river")))
	ld, _ := doc.GetLayer(layerID)
	filters := ld.Filters()
	require.NotNil(t, filters)
	assert.Equal(t, "all", filters.LogicalOp)
	require.Len(t, filters.AppliedFilters, 1)
	assert.Equal(t, Filter{Feature: "class", Operator: "==", Value: String("river")},
		filters.AppliedFilters[0])

	// a second predicate appends, and the logical operator is
	// layer-global: the new value replaces the old one
	require.NoError(t, doc.AddFilter(layerID, "any", "lanes", ">", Number(2)))
	ld, _ = doc.GetLayer(layerID)
	filters = ld.Filters()
	assert.Equal(t, "any", filters.LogicalOp)
	require.Len(t, filters.AppliedFilters, 2)
	assert.Equal(t, "lanes", filters.AppliedFilters[1].Feature)

	assert.ErrorIs(t, doc.AddFilter("no-such-layer", "all", "f", "==", String("v")),
		gisdoc_errors.ErrLayerNotFound)
}

func TestAddFilterUnsetValue(t *testing.T) {
	doc := newTestDocument(t)
	layerID := filteredLayer(t, doc)

	// an unset value travels as JSON null and must not break the
	// stored layer record
	require.NoError(t, doc.AddFilter(layerID, "all", "class", "==", Scalar{}))

	ld, ok := doc.GetLayer(layerID)
	require.True(t, ok, "the layer must stay readable")
	filters := ld.Filters()
	require.NotNil(t, filters)
	require.Len(t, filters.AppliedFilters, 1)
	assert.True(t, filters.AppliedFilters[0].Value.IsZero())
	assert.Contains(t, doc.SnapshotLayers(), layerID)

	// and later edits still find the layer
	require.NoError(t, doc.AddFilter(layerID, "all", "lanes", ">", Number(2)))
	ld, _ = doc.GetLayer(layerID)
	assert.Len(t, ld.Filters().AppliedFilters, 2)
}

func TestUpdateFilter(t *testing.T) {
	doc := newTestDocument(t)
	layerID := filteredLayer(t, doc)

	// no filter record yet
	assert.ErrorIs(t, doc.UpdateFilter(layerID, "all", "class", "==", String("x")),
		gisdoc_errors.ErrNoFiltersApplied)

	require.NoError(t, doc.AddFilter(layerID, "all", "class", "==", String("river")))
	require.NoError(t, doc.AddFilter(layerID, "all", "class", "==", String("lake")))

	// no such feature: the layer is left untouched
	before, _ := doc.GetLayer(layerID)
	err := doc.UpdateFilter(layerID, "any", "lanes", ">", Number(2))
	assert.ErrorIs(t, err, gisdoc_errors.ErrFeatureNotFound)
	after, _ := doc.GetLayer(layerID)
	assert.Equal(t, before.Filters(), after.Filters())

	// duplicate feature names: only the first match is touched
	require.NoError(t, doc.UpdateFilter(layerID, "any", "class", "==", String("canal")))
	ld, _ := doc.GetLayer(layerID)
	filters := ld.Filters()
	assert.Equal(t, "any", filters.LogicalOp)
	require.Len(t, filters.AppliedFilters, 2)
	assert.Equal(t, String("canal"), filters.AppliedFilters[0].Value)
	assert.Equal(t, String("lake"), filters.AppliedFilters[1].Value)
}

func TestClearFilters(t *testing.T) {
	doc := newTestDocument(t)
	layerID := filteredLayer(t, doc)

	assert.ErrorIs(t, doc.ClearFilters(layerID), gisdoc_errors.ErrNoFiltersApplied)

	require.NoError(t, doc.AddFilter(layerID, "any", "class", "==", String("river")))
	require.NoError(t, doc.ClearFilters(layerID))

	ld, _ := doc.GetLayer(layerID)
	filters := ld.Filters()
	require.NotNil(t, filters, "clearing keeps the filter record")
	assert.Empty(t, filters.AppliedFilters)
	assert.Equal(t, "any", filters.LogicalOp)

	// clearing twice is fine, the empty record is still there
	require.NoError(t, doc.ClearFilters(layerID))
}
