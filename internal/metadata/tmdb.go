package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	id "cinematch/pkg/domain"
	"cinematch/pkg/platform/sentinel"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// TMDBClient fetches movie details from The Movie Database HTTP API.
type TMDBClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewTMDBClient(baseURL, apiKey string, timeout time.Duration) *TMDBClient {
	return &TMDBClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type tmdbMovie struct {
	Title      string `json:"title"`
	Overview   string `json:"overview"`
	PosterPath string `json:"poster_path"`
	Genres     []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

func (c *TMDBClient) Describe(ctx context.Context, item id.ItemID) (Enrichment, error) {
	url := fmt.Sprintf("%s/movie/%d?api_key=%s", c.baseURL, int64(item), c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Enrichment{}, fmt.Errorf("build metadata request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Enrichment{}, fmt.Errorf("fetch metadata for %s: %w", item, errors.Join(sentinel.ErrUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Enrichment{}, fmt.Errorf("movie %s: %w", item, sentinel.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return Enrichment{}, fmt.Errorf("fetch metadata for %s: status %d: %w", item, resp.StatusCode, sentinel.ErrUnavailable)
	}

	var movie tmdbMovie
	if err := json.NewDecoder(resp.Body).Decode(&movie); err != nil {
		return Enrichment{}, fmt.Errorf("decode metadata for %s: %w", item, err)
	}

	enrichment := Enrichment{
		Title:   movie.Title,
		Summary: movie.Overview,
	}
	if movie.PosterPath != "" {
		enrichment.ArtworkURL = posterBaseURL + movie.PosterPath
	}
	for _, g := range movie.Genres {
		enrichment.Tags = append(enrichment.Tags, g.Name)
	}
	return enrichment, nil
}
