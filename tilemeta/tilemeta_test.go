package tilemeta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceLayers(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"vector_layers":[{"id":"water"},{"id":"roads"}]}`))
	}))
	defer srv.Close()

	c := NewClient()
	names, err := c.SourceLayers(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"water", "roads"}, names)

	// second lookup is served from the cache
	names, err = c.SourceLayers(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"water", "roads"}, names)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSourceLayersErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/garbage":
			w.Write([]byte("not json"))
		}
	}))
	defer srv.Close()

	c := NewClient()
	_, err := c.SourceLayers(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrBadMetadata)
	_, err = c.SourceLayers(context.Background(), srv.URL+"/garbage")
	assert.ErrorIs(t, err, ErrBadMetadata)
}

func TestSourceLayersEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	names, err := NewClient().SourceLayers(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, names)
}
