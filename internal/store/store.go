// Package store owns the durable JSON article collection: read,
// validate-append, backup, restore, prune-backups and integrity checking.
// All mutations are serialized through an in-process mutex; cross-process
// writers are out of scope.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"castpress/internal/config"
	"castpress/internal/core"
	"castpress/internal/logger"
	"castpress/internal/metadata"
)

// DefaultInstructions is the opaque instructional header preserved at the
// top of the store document for humans editing the file by hand.
const DefaultInstructions = "This file is maintained by the CastPress automation. Posts are appended by the pipeline; edit by hand only when the watcher is stopped."

// Document is the single JSON document holding all articles.
type Document struct {
	Instructions string         `json:"_instructions"`
	Posts        []core.Article `json:"posts"`
}

// ValidationFailedError reports every structural violation of a candidate
// article in one error. The store was not mutated.
type ValidationFailedError struct {
	Violations []string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("article failed validation: %s", strings.Join(e.Violations, "; "))
}

// ErrNoBackups is returned by RestoreLatestBackup when the backup directory
// holds no usable backup.
var ErrNoBackups = fmt.Errorf("no backups available")

var (
	idPattern   = regexp.MustCompile(`^\d{3}$`)
	slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Store manages the article store file and its backups.
type Store struct {
	path       string
	backupDir  string
	retention  int
	categories []string

	mu sync.Mutex

	// writeFile is swappable in tests to simulate write failures.
	writeFile func(name string, data []byte, perm os.FileMode) error
	// now is swappable in tests for deterministic slug suffixes.
	now func() time.Time
}

// New creates a Store over the configured file and backup directory. The
// category set is needed for structural validation.
func New(cfg config.Store, categories []string) *Store {
	return &Store{
		path:       cfg.File,
		backupDir:  cfg.BackupDir,
		retention:  cfg.BackupRetention,
		categories: categories,
		writeFile:  os.WriteFile,
		now:        time.Now,
	}
}

// EnsureExists bootstraps an empty store document when the store file is
// absent. Existing content is never touched.
func (s *Store) EnsureExists() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking store file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	return s.write(&Document{Instructions: DefaultInstructions, Posts: []core.Article{}})
}

// Read loads and parses the store document. A missing or malformed file is
// an error; the store is never silently recreated on the read path.
func (s *Store) Read() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading article store %s: %w", s.path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing article store %s: %w", s.path, err)
	}
	return &doc, nil
}

// write serializes the full document with two-space indentation, overwrites
// the store file, then re-reads and structurally verifies it. Verification
// failure is treated as a write failure. Callers hold the mutex.
func (s *Store) write(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing article store: %w", err)
	}
	data = append(data, '\n')

	if err := s.writeFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing article store %s: %w", s.path, err)
	}
	if err := s.verifyFile(); err != nil {
		return fmt.Errorf("verifying article store after write: %w", err)
	}
	return nil
}

// verifyFile checks that the on-disk document parses and has the expected
// structure: the instructional header and an array of posts.
func (s *Store) verifyFile() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("re-reading store: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("store is not valid JSON: %w", err)
	}
	if _, ok := raw["_instructions"]; !ok {
		return fmt.Errorf("store is missing the _instructions field")
	}
	posts, ok := raw["posts"]
	if !ok {
		return fmt.Errorf("store is missing the posts field")
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(posts, &arr); err != nil {
		return fmt.Errorf("store posts field is not an array: %w", err)
	}
	return nil
}

// Verify exposes the structural integrity check for operator tooling.
func (s *Store) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifyFile()
}

// ValidateArticle checks an article against the full field contract,
// accumulating every violation rather than failing fast.
func (s *Store) ValidateArticle(a core.Article) []string {
	var violations []string

	missing := func(name, value string) bool {
		if value == "" {
			violations = append(violations, fmt.Sprintf("missing required field: %s", name))
			return true
		}
		return false
	}

	if !missing("id", a.ID) && !idPattern.MatchString(a.ID) {
		violations = append(violations, fmt.Sprintf("id %q does not match the %d-digit pattern", a.ID, metadata.IDWidth))
	}
	if !missing("title", a.Title) {
		if n := len(a.Title); n < 10 || n > 100 {
			violations = append(violations, fmt.Sprintf("title length %d outside range [10,100]", n))
		}
	}
	if !missing("slug", a.Slug) && !slugPattern.MatchString(a.Slug) {
		violations = append(violations, fmt.Sprintf("slug %q contains characters outside [a-z0-9-]", a.Slug))
	}
	if !missing("date", a.Date) && !datePattern.MatchString(a.Date) {
		violations = append(violations, fmt.Sprintf("date %q is not in YYYY-MM-DD form", a.Date))
	}
	if !missing("category", a.Category) && !s.validCategory(a.Category) {
		violations = append(violations, fmt.Sprintf("category %q is not in the configured set", a.Category))
	}
	if !missing("excerpt", a.Excerpt) && len(a.Excerpt) < 50 {
		violations = append(violations, fmt.Sprintf("excerpt length %d below minimum 50", len(a.Excerpt)))
	}
	if !missing("content", a.Content) && len(a.Content) < 100 {
		violations = append(violations, fmt.Sprintf("content length %d below minimum 100", len(a.Content)))
	}
	if a.Tags == nil {
		violations = append(violations, "missing required field: tags")
	} else if len(a.Tags) < 3 {
		violations = append(violations, fmt.Sprintf("tags count %d below minimum 3", len(a.Tags)))
	}
	if !missing("author", a.Author) && a.Author != core.Author {
		violations = append(violations, fmt.Sprintf("author %q does not equal %q", a.Author, core.Author))
	}
	if !missing("image", a.Image) && !strings.HasPrefix(a.Image, "http") {
		violations = append(violations, fmt.Sprintf("image %q is not an http URL", a.Image))
	}

	return violations
}

func (s *Store) validCategory(category string) bool {
	for _, c := range s.categories {
		if c == category {
			return true
		}
	}
	return false
}

// Append durably adds one article to the store. Sequence: validate (abort
// without mutation on violations), back up the current store, read, resolve
// slug collisions by suffixing a timestamp, append, write. Backup pruning
// after a successful write is best effort. Any failure after validation
// restores the most recent backup before the original error propagates.
func (s *Store) Append(article core.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if violations := s.ValidateArticle(article); len(violations) > 0 {
		return &ValidationFailedError{Violations: violations}
	}

	backupPath, err := s.createBackup()
	if err != nil {
		return fmt.Errorf("creating pre-write backup: %w", err)
	}

	if err := s.appendAndWrite(article); err != nil {
		if restoreErr := s.restoreLatestBackup(); restoreErr != nil {
			// The restore failure must not mask the original error.
			logger.Error("restoring store from backup failed", restoreErr, "backup", backupPath)
		} else {
			logger.Warn("store restored from backup after failed append", "backup", backupPath)
		}
		return err
	}

	if err := s.cleanOldBackups(); err != nil {
		logger.Warn("pruning old backups failed", "error", err.Error())
	}
	return nil
}

func (s *Store) appendAndWrite(article core.Article) error {
	doc, err := s.Read()
	if err != nil {
		return err
	}

	for _, existing := range doc.Posts {
		if existing.Slug == article.Slug {
			suffixed := fmt.Sprintf("%s-%d", article.Slug, s.now().UnixMilli())
			logger.Info("slug collision, disambiguating with timestamp",
				"slug", article.Slug, "new_slug", suffixed)
			article.Slug = suffixed
			break
		}
	}

	doc.Posts = append(doc.Posts, article)
	return s.write(doc)
}

// NextArticleID scans stored ids for the maximum parseable integer and
// returns it incremented, zero-padded. Non-numeric ids are ignored, not
// fatal. An empty store yields the first identifier.
func (s *Store) NextArticleID() (string, error) {
	doc, err := s.Read()
	if err != nil {
		return "", err
	}

	maxID := ""
	maxValue := 0
	for _, post := range doc.Posts {
		if n, err := strconv.Atoi(post.ID); err == nil && n > maxValue {
			maxValue = n
			maxID = post.ID
		}
	}
	return metadata.NextID(maxID), nil
}
