package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"castpress/internal/config"
	"castpress/internal/images"
	"castpress/internal/metadata"
	"castpress/internal/store"
	"castpress/internal/transform"
)

const llmResponse = `{
	"title": "The Future of Edge Computing",
	"category": "Technology",
	"excerpt": "A deep dive into why computation keeps moving closer to the data it serves.",
	"content": "<p>Edge computing has moved from buzzword to baseline. In this episode we unpack the economics, the latency math, and what it means for the next decade of infrastructure.</p>",
	"tags": ["edge", "infrastructure", "latency"],
	"imageSearchTerms": ["server racks"]
}`

// stubCompleter returns a fixed response without touching the network.
type stubCompleter struct {
	response string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return s.response, nil
}

type fixture struct {
	pipeline *Pipeline
	store    *store.Store
	cfg      *config.Config
}

func newFixture(t *testing.T, response string) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Retry: config.Retry{Attempts: 2, BaseDelay: 0, Multiplier: 2.0},
		Store: config.Store{
			File:            filepath.Join(dir, "data", "posts.json"),
			BackupDir:       filepath.Join(dir, "data", "backups"),
			BackupRetention: 5,
		},
		Images: config.Images{
			Enabled:     true,
			FallbackURL: "https://img.example/generic",
			CategoryDefaults: map[string]string{
				"Technology": "https://img.example/tech",
			},
		},
		Articles: config.Articles{
			Categories:      []string{"Technology", "Business", "Culture"},
			DefaultCategory: "Technology",
		},
		Watch: config.Watch{
			InputDir:     filepath.Join(dir, "incoming"),
			ProcessedDir: filepath.Join(dir, "processed"),
			FailedDir:    filepath.Join(dir, "failed"),
			SettleDelay:  time.Millisecond,
		},
		Transcript: config.Transcript{MinLength: 20, MaxLength: 100000},
	}

	st := store.New(cfg.Store, cfg.Articles.Categories)
	if err := st.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	tr := transform.New(&stubCompleter{response: response}, cfg.Articles, cfg.Retry)
	provider := images.NewMockProvider(images.Photo{URLs: images.PhotoURLs{Raw: "https://images.example/photo-1"}})
	resolver := images.NewResolver(provider, cfg.Images)

	return &fixture{
		pipeline: New(cfg, tr, resolver, st),
		store:    st,
		cfg:      cfg,
	}
}

func (f *fixture) dropTranscript(t *testing.T, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(f.cfg.Watch.InputDir, 0o755); err != nil {
		t.Fatalf("creating input dir: %v", err)
	}
	path := filepath.Join(f.cfg.Watch.InputDir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing transcript: %v", err)
	}
	return path
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestHandle_SuccessPublishesAndArchives(t *testing.T) {
	f := newFixture(t, llmResponse)
	path := f.dropTranscript(t, "episode-042.txt", "In this episode we discuss the future of edge computing at length.")

	if err := f.pipeline.Handle(context.Background(), path); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	doc, err := f.store.Read()
	if err != nil {
		t.Fatalf("reading store: %v", err)
	}
	if len(doc.Posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(doc.Posts))
	}
	article := doc.Posts[0]
	if article.ID != "001" {
		t.Errorf("id = %q, want 001", article.ID)
	}
	if article.Slug != "the-future-of-edge-computing" {
		t.Errorf("slug = %q", article.Slug)
	}
	if article.Date != metadata.Today() {
		t.Errorf("date = %q, want today", article.Date)
	}
	if article.Image != "https://images.example/photo-1?w=800&h=400&fit=crop" {
		t.Errorf("image = %q", article.Image)
	}

	// The source file moved to the processed archive under a timestamped name.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("source transcript still present after archiving")
	}
	archived := listDir(t, f.cfg.Watch.ProcessedDir)
	if len(archived) != 1 {
		t.Fatalf("processed dir holds %v, want one archived transcript", archived)
	}
	namePattern := regexp.MustCompile(`^episode-042-\d{8}-\d{6}\.txt$`)
	if !namePattern.MatchString(archived[0]) {
		t.Errorf("archived name %q does not match stem-timestamp form", archived[0])
	}
	if failed := listDir(t, f.cfg.Watch.FailedDir); len(failed) != 0 {
		t.Errorf("failed dir is not empty on success: %v", failed)
	}

	if backups := listDir(t, f.cfg.Store.BackupDir); len(backups) != 1 {
		t.Errorf("got %d backups, want 1", len(backups))
	}
}

func TestHandle_MalformedLLMResponseArchivesAsFailed(t *testing.T) {
	f := newFixture(t, "I could not produce JSON, sorry.")
	path := f.dropTranscript(t, "episode-043.txt", "A transcript that is long enough to pass input validation checks.")

	err := f.pipeline.Handle(context.Background(), path)
	if err == nil {
		t.Fatal("Handle must fail on an unparseable model response")
	}

	doc, readErr := f.store.Read()
	if readErr != nil {
		t.Fatalf("reading store: %v", readErr)
	}
	if len(doc.Posts) != 0 {
		t.Errorf("store was mutated by a failed pipeline: %+v", doc.Posts)
	}

	failed := listDir(t, f.cfg.Watch.FailedDir)
	if len(failed) != 2 {
		t.Fatalf("failed dir holds %v, want transcript plus sidecar", failed)
	}
	var moved, sidecar string
	for _, name := range failed {
		if strings.HasSuffix(name, ".error.txt") {
			sidecar = name
		} else {
			moved = name
		}
	}
	if !strings.Contains(moved, "-FAILED") {
		t.Errorf("archived name %q is missing the FAILED marker", moved)
	}
	if sidecar == "" {
		t.Fatal("no .error.txt sidecar was written")
	}

	detail, err := os.ReadFile(filepath.Join(f.cfg.Watch.FailedDir, sidecar))
	if err != nil {
		t.Fatalf("reading sidecar: %v", err)
	}
	for _, want := range []string{"Original file: episode-043.txt", "Run ID:", "Error:"} {
		if !strings.Contains(string(detail), want) {
			t.Errorf("sidecar is missing %q:\n%s", want, detail)
		}
	}
}

func TestHandle_RejectedTranscriptArchivesAsFailed(t *testing.T) {
	f := newFixture(t, llmResponse)
	path := f.dropTranscript(t, "too-short.txt", "tiny")

	if err := f.pipeline.Handle(context.Background(), path); err == nil {
		t.Fatal("Handle must fail on a transcript below the minimum length")
	}

	failed := listDir(t, f.cfg.Watch.FailedDir)
	if len(failed) != 2 {
		t.Fatalf("failed dir holds %v, want transcript plus sidecar", failed)
	}
	doc, _ := f.store.Read()
	if len(doc.Posts) != 0 {
		t.Errorf("store was mutated by a rejected transcript")
	}
}

func TestHandle_DuplicateEventIsNoOp(t *testing.T) {
	f := newFixture(t, llmResponse)
	path := f.dropTranscript(t, "episode-044.txt", "A transcript that is long enough to pass input validation checks.")

	if !f.pipeline.markInFlight(path) {
		t.Fatal("markInFlight failed on a fresh path")
	}
	if err := f.pipeline.Handle(context.Background(), path); err != nil {
		t.Fatalf("duplicate Handle must be a silent no-op, got: %v", err)
	}

	// The duplicate must not have touched the file or the store.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("transcript was moved by a duplicate event: %v", err)
	}
	doc, _ := f.store.Read()
	if len(doc.Posts) != 0 {
		t.Errorf("store was mutated by a duplicate event")
	}
	f.pipeline.clearInFlight(path)
}

func TestHandle_SequentialFilesGetSequentialIDs(t *testing.T) {
	f := newFixture(t, llmResponse)
	first := f.dropTranscript(t, "ep-1.txt", "A transcript that is long enough to pass input validation checks.")
	second := f.dropTranscript(t, "ep-2.txt", "Another transcript that is long enough to pass input validation.")

	if err := f.pipeline.Handle(context.Background(), first); err != nil {
		t.Fatalf("first Handle failed: %v", err)
	}
	if err := f.pipeline.Handle(context.Background(), second); err != nil {
		t.Fatalf("second Handle failed: %v", err)
	}

	doc, _ := f.store.Read()
	if len(doc.Posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(doc.Posts))
	}
	if doc.Posts[0].ID != "001" || doc.Posts[1].ID != "002" {
		t.Errorf("ids = %q, %q, want 001, 002", doc.Posts[0].ID, doc.Posts[1].ID)
	}
	// Identical titles collide on slug; the second gets a timestamp suffix.
	if doc.Posts[1].Slug == doc.Posts[0].Slug {
		t.Errorf("colliding slug was not disambiguated: %q", doc.Posts[1].Slug)
	}
	if !strings.HasPrefix(doc.Posts[1].Slug, doc.Posts[0].Slug+"-") {
		t.Errorf("second slug = %q, want %q with a timestamp suffix", doc.Posts[1].Slug, doc.Posts[0].Slug)
	}
}