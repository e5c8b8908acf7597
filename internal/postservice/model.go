package postservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sushihentaime/blogdesk/internal/common"
)

func newPostModel(db *sql.DB) *PostModel {
	return &PostModel{db: db}
}

const postColumns = "id, title, content, published, created_at, updated_at, version"

// postFilter narrows findMany. The zero value matches every post.
type postFilter struct {
	publishedOnly bool
	limit         int
}

func scanPost(row interface{ Scan(...any) error }, p *Post) error {
	return row.Scan(&p.ID, &p.Title, &p.Content, &p.Published, &p.CreatedAt, &p.UpdatedAt, &p.Version)
}

// findMany returns posts newest first. Ties on created_at fall back to the id
// so the order is stable.
func (m *PostModel) findMany(ctx context.Context, f postFilter) ([]Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`
	if f.publishedOnly {
		query += ` WHERE published = true`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var args []any
	if f.limit > 0 {
		query += ` LIMIT $1`
		args = append(args, f.limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.StoreError(err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := scanPost(rows, &p); err != nil {
			return nil, common.StoreError(err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, common.StoreError(err)
	}

	return posts, nil
}

// findSummaries reads only the columns the home list shows. The excerpt is
// cut from content by the caller.
func (m *PostModel) findSummaries(ctx context.Context) ([]PostSummary, error) {
	query := `
		SELECT id, title, content, created_at
		FROM posts
		WHERE published = true
		ORDER BY created_at DESC, id DESC`

	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, common.StoreError(err)
	}
	defer rows.Close()

	summaries := []PostSummary{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.CreatedAt); err != nil {
			return nil, common.StoreError(err)
		}
		summaries = append(summaries, summarize(p))
	}

	if err := rows.Err(); err != nil {
		return nil, common.StoreError(err)
	}

	return summaries, nil
}

func (m *PostModel) findUnique(ctx context.Context, id int) (*Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	var p Post
	err := scanPost(m.db.QueryRowContext(ctx, query, id), &p)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, common.StoreError(err)
		}
	}

	return &p, nil
}

// insert fills in the generated fields of p.
func (m *PostModel) insert(ctx context.Context, p *Post) error {
	query := `
		INSERT INTO posts (title, content, published)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at, version`

	err := m.db.QueryRowContext(ctx, query, p.Title, p.Content, p.Published).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return common.StoreError(err)
	}

	return nil
}

// update overwrites title, content and published of the post with p.ID.
// The timestamp never moves before created_at even if clocks disagree.
func (m *PostModel) update(ctx context.Context, p *Post) error {
	query := `
		UPDATE posts
		SET title = $1, content = $2, published = $3,
			updated_at = GREATEST(now(), created_at), version = version + 1
		WHERE id = $4
		RETURNING created_at, updated_at, version`

	err := m.db.QueryRowContext(ctx, query, p.Title, p.Content, p.Published, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return common.ErrRecordNotFound
		default:
			return common.StoreError(err)
		}
	}

	return nil
}

// togglePublished flips the flag in a single statement so concurrent toggles
// never read a stale value.
func (m *PostModel) togglePublished(ctx context.Context, id int) (*Post, error) {
	query := `
		UPDATE posts
		SET published = NOT published,
			updated_at = GREATEST(now(), created_at), version = version + 1
		WHERE id = $1
		RETURNING ` + postColumns

	var p Post
	err := scanPost(m.db.QueryRowContext(ctx, query, id), &p)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, common.StoreError(err)
		}
	}

	return &p, nil
}

func (m *PostModel) delete(ctx context.Context, id int) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return common.StoreError(err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return common.StoreError(err)
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return common.ErrRecordNotFound
		default:
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return nil
}
