package core

// Author is the fixed byline stamped on every generated article. The store
// rejects any article whose author field differs from it.
const Author = "CastPress Editorial"

// Article represents one published post in the article store.
type Article struct {
	ID       string   `json:"id"`       // Sequential zero-padded identifier (e.g. "007")
	Title    string   `json:"title"`    // Article headline, 10-100 characters
	Slug     string   `json:"slug"`     // URL-safe identifier derived from the title
	Date     string   `json:"date"`     // Processing date in YYYY-MM-DD form
	Category string   `json:"category"` // One of the configured category set
	Excerpt  string   `json:"excerpt"`  // Short teaser shown in listings
	Content  string   `json:"content"`  // Sanitized HTML body
	Tags     []string `json:"tags"`     // At least three topic tags
	Author   string   `json:"author"`   // Always the Author constant
	Image    string   `json:"image"`    // Absolute URL of the header image
}

// GeneratedContent holds the structured fields the language model produces
// from a transcript, before metadata and image resolution are applied.
type GeneratedContent struct {
	Title            string   `json:"title"`
	Category         string   `json:"category"`
	Excerpt          string   `json:"excerpt"`
	Content          string   `json:"content"`
	Tags             []string `json:"tags"`
	ImageSearchTerms []string `json:"imageSearchTerms"`
}
