// Package pipeline orchestrates the per-file transcript lifecycle: discover,
// validate, transform, enrich, persist, archive. Each discovered file runs
// its own pipeline; an in-flight set suppresses duplicate events for the
// same path. One file's failure never takes the daemon down.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"castpress/internal/config"
	"castpress/internal/core"
	"castpress/internal/logger"
	"castpress/internal/metadata"
	"castpress/internal/transcript"
)

// Stage names used in per-step log lines.
const (
	StageValidating   = "validating"
	StageTransforming = "transforming"
	StageMetadata     = "metadata"
	StageImaging      = "imaging"
	StagePersisting   = "persisting"
	StageArchiving    = "archiving"
)

// Transformer produces structured article fields from transcript text.
type Transformer interface {
	Transform(ctx context.Context, transcript string) (*core.GeneratedContent, error)
}

// ImageResolver resolves a header image URL; it never fails.
type ImageResolver interface {
	ImageFor(ctx context.Context, searchTerms []string, category string) string
}

// ArticleStore is the persistence boundary the pipeline appends through.
type ArticleStore interface {
	NextArticleID() (string, error)
	Append(article core.Article) error
}

// Pipeline drives the end-to-end processing of discovered transcript files.
type Pipeline struct {
	cfg         *config.Config
	transformer Transformer
	images      ImageResolver
	store       ArticleStore

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New creates a Pipeline with all dependencies injected.
func New(cfg *config.Config, transformer Transformer, images ImageResolver, store ArticleStore) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		transformer: transformer,
		images:      images,
		store:       store,
		inFlight:    make(map[string]struct{}),
	}
}

// Run consumes discovered-file events until the channel closes or the
// context is cancelled. Each file is processed on its own goroutine;
// in-flight pipelines are not awaited on shutdown.
func (p *Pipeline) Run(ctx context.Context, events <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			go func(path string) {
				_ = p.Handle(ctx, path)
			}(path)
		}
	}
}

// Handle runs the full pipeline for one path, including archiving and
// in-flight bookkeeping. A duplicate event for a path already in flight is a
// no-op. The returned error reports the pipeline outcome for one-shot
// callers; the failure side effects (failed archive, sidecar) have already
// happened by the time it returns.
func (p *Pipeline) Handle(ctx context.Context, path string) error {
	if !p.markInFlight(path) {
		logger.Debug("file already in flight, ignoring duplicate event", "file", path)
		return nil
	}
	defer p.clearInFlight(path)

	runID := uuid.NewString()[:8]
	logger.Info("processing transcript", "file", path, "run_id", runID)

	article, err := p.process(ctx, path, runID)
	if err != nil {
		logger.Error("transcript processing failed", err, "file", path, "run_id", runID)
		p.archiveFailed(path, err, runID)
		return err
	}

	logger.Info("article published", "file", path, "run_id", runID,
		"article_id", article.ID, "slug", article.Slug, "category", article.Category)
	p.archiveProcessed(path, runID)
	return nil
}

// process runs the pipeline steps in their documented order and returns the
// appended article.
func (p *Pipeline) process(ctx context.Context, path, runID string) (*core.Article, error) {
	// Settle delay: a freshly created file may still be flushing even after
	// the watcher's stability window.
	if delay := p.cfg.Watch.SettleDelay; delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	text := string(data)

	p.logStage(StageValidating, path, runID)
	limits := transcript.Limits{Min: p.cfg.Transcript.MinLength, Max: p.cfg.Transcript.MaxLength}
	if err := transcript.Validate(text, limits); err != nil {
		return nil, err
	}

	p.logStage(StageTransforming, path, runID)
	generated, err := p.transformer.Transform(ctx, text)
	if err != nil {
		return nil, err
	}

	p.logStage(StageMetadata, path, runID)
	id, err := p.store.NextArticleID()
	if err != nil {
		return nil, fmt.Errorf("determining next article id: %w", err)
	}

	p.logStage(StageImaging, path, runID)
	image := p.images.ImageFor(ctx, generated.ImageSearchTerms, generated.Category)

	article := core.Article{
		ID:       id,
		Title:    generated.Title,
		Slug:     metadata.Slug(generated.Title),
		Date:     metadata.Today(),
		Category: generated.Category,
		Excerpt:  generated.Excerpt,
		Content:  generated.Content,
		Tags:     generated.Tags,
		Author:   core.Author,
		Image:    image,
	}

	p.logStage(StagePersisting, path, runID)
	if err := p.store.Append(article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (p *Pipeline) logStage(stage, path, runID string) {
	logger.Info("pipeline stage", "stage", stage, "file", filepath.Base(path), "run_id", runID)
}

// markInFlight records path as being processed, reporting false when it
// already is.
func (p *Pipeline) markInFlight(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.inFlight[path]; exists {
		return false
	}
	p.inFlight[path] = struct{}{}
	return true
}

func (p *Pipeline) clearInFlight(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, path)
}

// archiveProcessed moves a successfully processed transcript into the
// processed directory under a timestamped name. Archive failures are logged,
// never propagated.
func (p *Pipeline) archiveProcessed(path, runID string) {
	p.logStage(StageArchiving, path, runID)
	dest := archiveName(p.cfg.Watch.ProcessedDir, path, "")
	if err := moveFile(path, dest); err != nil {
		logger.Error("archiving processed transcript failed", err, "file", path, "run_id", runID)
		return
	}
	logger.Info("transcript archived", "file", path, "dest", dest, "run_id", runID)
}

// archiveFailed moves a failed transcript into the failed directory with a
// FAILED marker and writes a sibling .error.txt diagnostic file.
func (p *Pipeline) archiveFailed(path string, cause error, runID string) {
	dest := archiveName(p.cfg.Watch.FailedDir, path, "-FAILED")
	if err := moveFile(path, dest); err != nil {
		logger.Error("archiving failed transcript failed", err, "file", path, "run_id", runID)
		dest = path
	}

	sidecar := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".error.txt"
	detail := fmt.Sprintf("Failure time: %s\nOriginal file: %s\nRun ID: %s\nError: %v\n\nTrace:\n%s",
		time.Now().Format(time.RFC3339), filepath.Base(path), runID, cause, debug.Stack())
	if err := os.WriteFile(sidecar, []byte(detail), 0o644); err != nil {
		logger.Error("writing error sidecar failed", err, "file", sidecar, "run_id", runID)
		return
	}
	logger.Info("transcript moved to failed archive", "file", path, "dest", dest, "run_id", runID)
}

// archiveName builds "<dir>/<base>-<timestamp><marker><ext>" for an archived
// transcript, keeping names collision-free across reruns of the same file.
func archiveName(dir, path, marker string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s%s", stem, ts, marker, ext))
}

// moveFile renames path into place, creating the destination directory
// first.
func moveFile(path, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("moving %s to %s: %w", path, dest, err)
	}
	return nil
}
