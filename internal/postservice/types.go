package postservice

import (
	"database/sql"
	"log/slog"
	"time"
)

type Post struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	// Content is stored in Markdown format.
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Modified reports whether the post changed after it was created.
func (p *Post) Modified() bool {
	return p.UpdatedAt.After(p.CreatedAt)
}

// PostSummary is the projection shown on the home page.
type PostSummary struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	CreatedAt time.Time `json:"created_at"`
}

type PostModel struct {
	db *sql.DB
}

// Invalidator marks the cached render of a route path as stale.
type Invalidator interface {
	Invalidate(path string)
}

type PostService struct {
	m       *PostModel
	views   Invalidator
	logger  *slog.Logger
	timeout time.Duration
}

type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindNotFound    ErrorKind = "not_found"
	KindUnavailable ErrorKind = "store_unavailable"
	KindStoreFault  ErrorKind = "store_fault"
)

// Result is the outcome of a mutation action. Failures are reported here and
// never as a returned error.
type Result struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Kind    ErrorKind         `json:"kind,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Post    *Post             `json:"post,omitempty"`
}
