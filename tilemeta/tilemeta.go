// Package tilemeta enumerates the named sub-layers a vector tile
// endpoint exposes, by fetching and caching its TileJSON metadata.
package tilemeta

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// Lister reports the sub-layer names available behind a tile URL.
type Lister interface {
	SourceLayers(ctx context.Context, url string) ([]string, error)
}

var ErrBadMetadata = errors.New("tilemeta: bad tile metadata")

const DefaultCacheSize = 256

// Client fetches TileJSON over HTTP. Lookups are cached per URL;
// tile metadata does not change within a session.
type Client struct {
	hc    *http.Client
	cache *lru.Cache[string, []string]
}

func NewClient() *Client {
	cache, _ := lru.New[string, []string](DefaultCacheSize)
	return &Client{
		hc:    &http.Client{Timeout: 30 * time.Second},
		cache: cache,
	}
}

type tileJSON struct {
	VectorLayers []struct {
		ID string `json:"id"`
	} `json:"vector_layers"`
}

func (c *Client) SourceLayers(ctx context.Context, url string) ([]string, error) {
	if names, ok := c.cache.Get(url); ok {
		return names, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching tile metadata from %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrBadMetadata, "%s returned %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var meta tileJSON
	if err = json.Unmarshal(body, &meta); err != nil {
		return nil, errors.Wrapf(ErrBadMetadata, "%s: %v", url, err)
	}
	names := make([]string, 0, len(meta.VectorLayers))
	for _, vl := range meta.VectorLayers {
		names = append(names, vl.ID)
	}
	c.cache.Add(url, names)
	return names, nil
}
