package gisdoc

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentCollector(t *testing.T) {
	doc := newTestDocument(t)
	collector := NewDocumentCollector(doc)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(collector))

	sourceID, err := doc.AddSource(testSource(t, doc))
	require.NoError(t, err)
	_, err = doc.AddLayer(testLayer(t, doc, sourceID))
	require.NoError(t, err)

	// three gauges plus one counter series per distinct operation
	count := testutil.CollectAndCount(collector)
	assert.GreaterOrEqual(t, count, 5)

	problems, err := testutil.CollectAndLint(collector)
	require.NoError(t, err)
	assert.Empty(t, problems)
}
