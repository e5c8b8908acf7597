package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/blogdesk/internal/common"
	"github.com/sushihentaime/blogdesk/internal/config"
	"github.com/sushihentaime/blogdesk/internal/postservice"
	"github.com/sushihentaime/blogdesk/internal/userservice"
	"github.com/sushihentaime/blogdesk/internal/viewcache"
)

const (
	adminUsername = "admin"
	adminEmail    = "admin@example.com"
	adminPassword = "Admin_1234!"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Port:             ":0",
		Environment:      "testing",
		Version:          "test",
		BaseURL:          "http://blog.example.com",
		TrustedOrigins:   []string{"http://trusted.example.com"},
		StoreTimeout:     3 * time.Second,
		ViewCacheBackend: viewcache.BackendMemory,
		ViewCacheTTL:     time.Minute,
		LimiterEnabled:   false,
		LimiterRPS:       2,
		LimiterBurst:     4,
	}
}

func newTestApplication(t *testing.T) (*application, *sql.DB) {
	db := common.TestDB("file://../migrations", t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	broker, err := common.NewMessageBroker(common.TestRabbitMQ(t))
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })

	err = common.SetupUserExchange(broker)
	require.NoError(t, err)

	templates, err := newTemplateCache()
	require.NoError(t, err)

	cfg := newTestConfig()
	views := viewcache.NewCache(viewcache.NewMemoryStore(cfg.ViewCacheTTL), logger)

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(db, broker),
		postService: postservice.NewPostService(db, viewcache.NewInvalidator(views, nil, logger), logger, cfg.StoreTimeout),
		broker:      broker,
		views:       views,
		templates:   templates,
		limiter:     newIPRateLimiter(cfg.LimiterRPS, cfg.LimiterBurst),
	}

	return app, db
}

type testServer struct {
	*httptest.Server
}

// newTestServer keeps cookies between requests and never follows redirects.
func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	ts.Client().Jar = jar
	ts.Client().CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &testServer{ts}
}

type response struct {
	status int
	header http.Header
	body   string
}

// envelope decodes the body as JSON.
func (r response) envelope(t *testing.T) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(r.body), &env), r.body)
	return env
}

func (ts *testServer) do(t *testing.T, req *http.Request) response {
	t.Helper()

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return response{status: res.StatusCode, header: res.Header, body: string(body)}
}

func (ts *testServer) get(t *testing.T, path string, header http.Header) response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}

	return ts.do(t, req)
}

func (ts *testServer) postForm(t *testing.T, path string, form url.Values, header http.Header) response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}

	return ts.do(t, req)
}

func (ts *testServer) sendJSON(t *testing.T, method, path string, payload any, token string) response {
	t.Helper()

	b, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return ts.do(t, req)
}

// jsonHeader asks action endpoints for a JSON answer.
func jsonHeader() http.Header {
	return http.Header{"Accept": []string{"application/json"}}
}

// createAdmin creates the admin account and returns a session token for it.
func createAdmin(t *testing.T, app *application) string {
	t.Helper()

	ctx := context.Background()

	_, err := app.userService.CreateAdmin(ctx, adminUsername, adminEmail, adminPassword)
	require.NoError(t, err)

	token, err := app.userService.LoginUser(ctx, adminUsername, adminPassword)
	require.NoError(t, err)

	return token.Plain
}

// loginAdmin creates the admin account and logs the test server's client in.
func loginAdmin(t *testing.T, app *application, ts *testServer) {
	t.Helper()

	_, err := app.userService.CreateAdmin(context.Background(), adminUsername, adminEmail, adminPassword)
	require.NoError(t, err)

	res := ts.postForm(t, "/admin/login", url.Values{"username": {adminUsername}, "password": {adminPassword}}, nil)
	require.Equal(t, http.StatusSeeOther, res.status)
}

func insertPost(t *testing.T, db *sql.DB, title, content string, published bool) int {
	t.Helper()

	var id int
	err := db.QueryRow("INSERT INTO posts (title, content, published) VALUES ($1, $2, $3) RETURNING id", title, content, published).Scan(&id)
	require.NoError(t, err)

	return id
}
