package postservice

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/sushihentaime/blogdesk/internal/common"
	"github.com/sushihentaime/blogdesk/internal/viewcache"
)

const defaultStoreTimeout = 3 * time.Second

const (
	demoPostTitle   = "New Post"
	demoPostContent = "This is a new post."
)

// NewPostService returns a service backed by db. A nil views disables view
// invalidation.
func NewPostService(db *sql.DB, views Invalidator, logger *slog.Logger, timeout time.Duration) *PostService {
	if views == nil {
		views = noopInvalidator{}
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}

	return &PostService{
		m:       newPostModel(db),
		views:   views,
		logger:  logger,
		timeout: timeout,
	}
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(string) {}

func (s *PostService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PostService) invalidate(paths ...string) {
	for _, path := range paths {
		s.views.Invalidate(path)
	}
}

// failure turns err into a soft result. Store faults are logged here since
// the error itself never leaves the action.
func (s *PostService) failure(action, message string, err error) Result {
	res := Result{Success: false, Message: message}

	var validationErr common.ValidationError
	switch {
	case errors.As(err, &validationErr):
		res.Kind = KindValidation
		res.Errors = validationErr.Errors
	case errors.Is(err, common.ErrRecordNotFound):
		res.Kind = KindNotFound
		res.Message = "Blog not found"
	case errors.Is(err, common.ErrStoreUnavailable):
		res.Kind = KindUnavailable
		s.logger.Error("store unavailable", slog.String("action", action), slog.Any("error", err))
	default:
		res.Kind = KindStoreFault
		s.logger.Error("store fault", slog.String("action", action), slog.Any("error", err))
	}

	return res
}

// CreateBlog inserts a post from a submitted form.
func (s *PostService) CreateBlog(ctx context.Context, values url.Values) Result {
	const failed = "Failed to create blog"

	form, err := ParsePostForm(values, false)
	if err != nil {
		return s.failure("create", failed, err)
	}

	post := &Post{Title: form.Title, Content: form.Content, Published: form.Published}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.m.insert(ctx, post); err != nil {
		return s.failure("create", failed, err)
	}

	s.invalidate(viewcache.AdminPath, viewcache.HomePath, viewcache.Demo3Path)

	return Result{Success: true, Message: "Blog created successfully", Post: post}
}

// EditBlog overwrites the title, content and published flag of an existing post.
func (s *PostService) EditBlog(ctx context.Context, values url.Values) Result {
	const failed = "Failed to update blog"

	form, err := ParsePostForm(values, true)
	if err != nil {
		return s.failure("edit", failed, err)
	}

	post := &Post{ID: form.ID, Title: form.Title, Content: form.Content, Published: form.Published}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.m.update(ctx, post); err != nil {
		return s.failure("edit", failed, err)
	}

	s.invalidate(viewcache.AdminPath, viewcache.HomePath, viewcache.PostPath(post.ID), viewcache.Demo3Path)

	return Result{Success: true, Message: "Blog updated successfully", Post: post}
}

// PublishBlog flips the published flag of a post.
func (s *PostService) PublishBlog(ctx context.Context, values url.Values) Result {
	const failed = "Failed to publish blog"

	id, err := ParseIDForm(values)
	if err != nil {
		return s.failure("publish", failed, err)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	post, err := s.m.togglePublished(ctx, id)
	if err != nil {
		return s.failure("publish", failed, err)
	}

	s.invalidate(viewcache.AdminPath, viewcache.HomePath, viewcache.PostPath(id), viewcache.Demo3Path)

	message := "Blog unpublished successfully"
	if post.Published {
		message = "Blog published successfully"
	}

	return Result{Success: true, Message: message, Post: post}
}

func (s *PostService) DeleteBlog(ctx context.Context, values url.Values) Result {
	const failed = "Failed to delete blog"

	id, err := ParseIDForm(values)
	if err != nil {
		return s.failure("delete", failed, err)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.m.delete(ctx, id); err != nil {
		return s.failure("delete", failed, err)
	}

	s.invalidate(viewcache.AdminPath, viewcache.HomePath, viewcache.PostPath(id), viewcache.Demo3Path)

	return Result{Success: true, Message: "Blog deleted successfully"}
}

// AddPost inserts a fixed unpublished placeholder post.
func (s *PostService) AddPost(ctx context.Context) Result {
	const failed = "Failed to add post"

	post := &Post{Title: demoPostTitle, Content: demoPostContent}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	if err := s.m.insert(ctx, post); err != nil {
		return s.failure("add", failed, err)
	}

	s.invalidate(viewcache.Demo3Path, viewcache.AdminPath)

	return Result{Success: true, Message: "Post added successfully", Post: post}
}

// ListPublished returns the home page summaries, newest first.
func (s *PostService) ListPublished(ctx context.Context) ([]PostSummary, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	return s.m.findSummaries(ctx)
}

// ListRecentPublished returns up to limit full published posts, newest first.
func (s *PostService) ListRecentPublished(ctx context.Context, limit int) ([]Post, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	return s.m.findMany(ctx, postFilter{publishedOnly: true, limit: limit})
}

// ListPosts returns every post regardless of status, newest first.
func (s *PostService) ListPosts(ctx context.Context) ([]Post, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	return s.m.findMany(ctx, postFilter{})
}

// GetPost returns a post regardless of status.
func (s *PostService) GetPost(ctx context.Context, id int) (*Post, error) {
	if id < 1 {
		return nil, common.ErrRecordNotFound
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	return s.m.findUnique(ctx, id)
}

// GetPublishedPost returns a post only if it is published. An unpublished
// post is reported as not found.
func (s *PostService) GetPublishedPost(ctx context.Context, id int) (*Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if !post.Published {
		return nil, common.ErrRecordNotFound
	}

	return post, nil
}
