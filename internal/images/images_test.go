package images

import (
	"context"
	"strings"
	"testing"

	"castpress/internal/config"
)

var testImagesCfg = config.Images{
	Enabled:     true,
	FallbackURL: "https://img.example/generic",
	CategoryDefaults: map[string]string{
		"Technology": "https://img.example/tech",
		"Business":   "https://img.example/biz",
	},
}

func TestBuildImageURL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"https://images.example/photo-abc", "https://images.example/photo-abc?w=800&h=400&fit=crop"},
		{"https://images.example/photo-abc?ixid=123", "https://images.example/photo-abc?ixid=123&w=800&h=400&fit=crop"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := BuildImageURL(tc.raw); got != tc.want {
			t.Errorf("BuildImageURL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestPhotoURLs_Best(t *testing.T) {
	u := PhotoURLs{Full: "full", Regular: "regular"}
	if got := u.Best(); got != "full" {
		t.Errorf("Best() = %q, want the highest-fidelity variant", got)
	}
	if got := (PhotoURLs{}).Best(); got != "" {
		t.Errorf("Best() on empty = %q, want empty", got)
	}
}

func TestImageFor_NoSearchTermsUsesCategoryDefault(t *testing.T) {
	r := NewResolver(NewMockProvider(Photo{URLs: PhotoURLs{Raw: "https://images.example/raw"}}), testImagesCfg)
	got := r.ImageFor(context.Background(), nil, "Technology")
	if got != "https://img.example/tech" {
		t.Errorf("got %q, want category default", got)
	}
}

func TestImageFor_DisabledSearchUsesCategoryDefault(t *testing.T) {
	cfg := testImagesCfg
	cfg.Enabled = false
	r := NewResolver(NewMockProvider(Photo{URLs: PhotoURLs{Raw: "https://images.example/raw"}}), cfg)
	got := r.ImageFor(context.Background(), []string{"server racks"}, "Business")
	if got != "https://img.example/biz" {
		t.Errorf("got %q, want category default when search disabled", got)
	}
}

func TestImageFor_NilProviderUsesCategoryDefault(t *testing.T) {
	r := NewResolver(nil, testImagesCfg)
	got := r.ImageFor(context.Background(), []string{"server racks"}, "Technology")
	if got != "https://img.example/tech" {
		t.Errorf("got %q, want category default without a provider", got)
	}
}

func TestImageFor_SearchSuccessUsesFirstResult(t *testing.T) {
	provider := NewMockProvider(
		Photo{ID: "first", URLs: PhotoURLs{Raw: "https://images.example/first"}},
		Photo{ID: "second", URLs: PhotoURLs{Raw: "https://images.example/second"}},
	)
	r := NewResolver(provider, testImagesCfg)
	got := r.ImageFor(context.Background(), []string{"server", "racks"}, "Technology")
	if got != "https://images.example/first?w=800&h=400&fit=crop" {
		t.Errorf("got %q, want composed URL of first result", got)
	}
	if provider.LastQuery != "server racks" {
		t.Errorf("query = %q, want terms joined with spaces", provider.LastQuery)
	}
}

func TestImageFor_SearchFailureFallsBack(t *testing.T) {
	r := NewResolver(NewFailingMockProvider("rate limited"), testImagesCfg)
	got := r.ImageFor(context.Background(), []string{"anything"}, "Business")
	if got != "https://img.example/biz" {
		t.Errorf("got %q, want category default on search failure", got)
	}
}

func TestImageFor_EmptyResultsFallBack(t *testing.T) {
	r := NewResolver(NewMockProvider(), testImagesCfg)
	got := r.ImageFor(context.Background(), []string{"anything"}, "Technology")
	if got != "https://img.example/tech" {
		t.Errorf("got %q, want category default on empty results", got)
	}
}

func TestImageFor_UnmappedCategoryUsesGenericFallback(t *testing.T) {
	r := NewResolver(nil, testImagesCfg)
	got := r.ImageFor(context.Background(), nil, "Gardening")
	if got != testImagesCfg.FallbackURL {
		t.Errorf("got %q, want generic fallback", got)
	}
	if !strings.HasPrefix(got, "http") {
		t.Errorf("fallback %q is not an absolute URL", got)
	}
}
