package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"castpress/internal/config"
)

const unsplashSearchURL = "https://api.unsplash.com/search/photos"

// UnsplashProvider implements Provider against the Unsplash search API.
type UnsplashProvider struct {
	accessKey string
	client    *http.Client
	perPage   int
}

// NewUnsplashProvider creates an Unsplash photo search provider, or nil when
// no access key is configured so the resolver falls back to category
// defaults.
func NewUnsplashProvider(cfg config.Images) *UnsplashProvider {
	if cfg.AccessKey == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &UnsplashProvider{
		accessKey: cfg.AccessKey,
		client:    &http.Client{Timeout: timeout},
		perPage:   5,
	}
}

// Name returns the name of this provider.
func (p *UnsplashProvider) Name() string {
	return "Unsplash"
}

// SearchPhotos performs a keyword search and returns candidate photos in
// relevance order.
func (p *UnsplashProvider) SearchPhotos(ctx context.Context, query string) ([]Photo, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(p.perPage))
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, unsplashSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unsplash request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+p.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Unsplash request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Unsplash request failed with status: %d", resp.StatusCode)
	}

	var apiResponse struct {
		Results []struct {
			ID          string `json:"id"`
			Description string `json:"description"`
			URLs        struct {
				Raw     string `json:"raw"`
				Full    string `json:"full"`
				Regular string `json:"regular"`
				Small   string `json:"small"`
			} `json:"urls"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse Unsplash response: %w", err)
	}

	photos := make([]Photo, 0, len(apiResponse.Results))
	for _, item := range apiResponse.Results {
		photos = append(photos, Photo{
			ID:          item.ID,
			Description: item.Description,
			URLs: PhotoURLs{
				Raw:     item.URLs.Raw,
				Full:    item.URLs.Full,
				Regular: item.URLs.Regular,
				Small:   item.URLs.Small,
			},
			Photographer: item.User.Name,
		})
	}
	return photos, nil
}
