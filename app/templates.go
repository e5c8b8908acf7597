package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sushihentaime/blogdesk/internal/postservice"
)

//go:embed templates/*.html
var templateFS embed.FS

const baseTemplate = "templates/base.html"

// templateCache maps a page file name to its parsed set, base layout included.
type templateCache map[string]*template.Template

// postForm is what a create or edit form shows: the values to prefill and
// the per-field messages of the last attempt.
type postForm struct {
	Action    string
	Heading   string
	Submit    string
	Title     string
	Content   string
	Published bool
	Errors    map[string]string
}

type templateData struct {
	Title       string
	CurrentYear int
	Admin       bool
	Banner      *postservice.Result
	Summaries   []postservice.PostSummary
	Posts       []postservice.Post
	Post        *postservice.Post
	PostHTML    template.HTML
	Form        *postForm
	Username    string
	LoginError  string
	Dump        string
	Status      int
	Message     string
}

var functions = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
}

func newTemplateCache() (templateCache, error) {
	cache := templateCache{}

	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	for _, page := range pages {
		if page == baseTemplate {
			continue
		}

		name := filepath.Base(page)

		ts, err := template.New(name).Funcs(functions).ParseFS(templateFS, baseTemplate, page)
		if err != nil {
			return nil, err
		}

		cache[name] = ts
	}

	return cache, nil
}

func (app *application) newTemplateData(title string) templateData {
	return templateData{
		Title:       title,
		CurrentYear: time.Now().Year(),
	}
}

// execute renders page into a buffer so a template error never leaves a
// half written response behind.
func (app *application) execute(page string, data templateData) (*bytes.Buffer, error) {
	ts, ok := app.templates[page]
	if !ok {
		return nil, fmt.Errorf("the template %s does not exist", page)
	}

	buf := new(bytes.Buffer)
	if err := ts.ExecuteTemplate(buf, "base", data); err != nil {
		return nil, err
	}

	return buf, nil
}

func (app *application) render(w http.ResponseWriter, r *http.Request, status int, page string, data templateData) {
	buf, err := app.execute(page, data)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (app *application) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := app.newTemplateData(http.StatusText(status))
	data.Status = status
	data.Message = message

	buf, err := app.execute("error.html", data)
	if err != nil {
		app.logError(r, err)
		http.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
