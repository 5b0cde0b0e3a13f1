// Package images resolves a header image URL for a new article, backed by an
// external photo search with a deterministic category-based fallback chain.
package images

import (
	"context"
	"fmt"
	"strings"

	"castpress/internal/config"
	"castpress/internal/logger"
)

// Display dimensions appended to every resolved photo URL.
const (
	displayWidth  = 800
	displayHeight = 400
)

// Photo represents one candidate result from a photo search provider.
type Photo struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	URLs         PhotoURLs `json:"urls"`
	Photographer string    `json:"photographer"`
}

// PhotoURLs exposes the image URL variants of a photo, highest fidelity
// first.
type PhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
}

// Best returns the highest-fidelity variant available.
func (u PhotoURLs) Best() string {
	for _, v := range []string{u.Raw, u.Full, u.Regular, u.Small} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Provider defines the photo search boundary. Only the first result is
// consumed.
type Provider interface {
	SearchPhotos(ctx context.Context, query string) ([]Photo, error)
	Name() string
}

// Resolver turns AI-suggested search terms (or a category) into a final
// image URL. Resolution never fails: every path ends in some URL.
type Resolver struct {
	provider Provider
	cfg      config.Images
}

// NewResolver creates a Resolver. The provider may be nil when image search
// is disabled or no credential is configured; resolution then always uses
// category defaults.
func NewResolver(provider Provider, cfg config.Images) *Resolver {
	return &Resolver{provider: provider, cfg: cfg}
}

// ImageFor resolves the image URL for an article. Search is attempted only
// when terms are present, search is enabled, and a provider is available;
// any failure or empty result falls back to the category default.
func (r *Resolver) ImageFor(ctx context.Context, searchTerms []string, category string) string {
	if len(searchTerms) == 0 {
		return r.categoryDefault(category)
	}
	if !r.cfg.Enabled || r.provider == nil {
		logger.Debug("image search disabled, using category default", "category", category)
		return r.categoryDefault(category)
	}

	query := strings.Join(searchTerms, " ")
	photos, err := r.provider.SearchPhotos(ctx, query)
	if err != nil {
		logger.Warn("image search failed, using category default",
			"provider", r.provider.Name(), "query", query, "error", err.Error())
		return r.categoryDefault(category)
	}
	if len(photos) == 0 {
		logger.Debug("image search returned no results", "query", query)
		return r.categoryDefault(category)
	}

	url := BuildImageURL(photos[0].URLs.Best())
	if url == "" {
		return r.categoryDefault(category)
	}
	logger.Debug("image resolved", "query", query, "photo_id", photos[0].ID,
		"photographer", photos[0].Photographer)
	return url
}

// BuildImageURL composes the final display URL from a photo's raw variant by
// appending fixed width, height and crop-to-fit parameters. Pure function,
// independent of any network call.
func BuildImageURL(raw string) string {
	if raw == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sw=%d&h=%d&fit=crop", raw, sep, displayWidth, displayHeight)
}

// categoryDefault looks the category up in the configured mapping, falling
// back to the single generic URL when the category is unmapped.
func (r *Resolver) categoryDefault(category string) string {
	if url, ok := r.cfg.CategoryDefaults[category]; ok && url != "" {
		return url
	}
	logger.Warn("no default image configured for category, using generic fallback", "category", category)
	return r.cfg.FallbackURL
}
