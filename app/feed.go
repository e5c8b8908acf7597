package main

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/sushihentaime/blogdesk/internal/postservice"
	"github.com/sushihentaime/blogdesk/internal/viewcache"
)

const feedSize = 20

func (app *application) siteURL(path string) string {
	return strings.TrimRight(app.config.BaseURL, "/") + path
}

// feedHandler serves the newest published posts as RSS 2.0.
func (app *application) feedHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := app.postService.ListRecentPublished(r.Context(), feedSize)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	feed := &feeds.Feed{
		Title:       "blogdesk",
		Link:        &feeds.Link{Href: app.siteURL(viewcache.HomePath)},
		Description: "Latest posts",
		Created:     time.Now(),
	}

	if len(posts) > 0 {
		feed.Updated = posts[0].UpdatedAt
	}

	for _, post := range posts {
		content, err := postservice.RenderMarkdown(post.Content)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		feed.Items = append(feed.Items, &feeds.Item{
			Id:          app.siteURL(viewcache.PostPath(post.ID)),
			Title:       post.Title,
			Link:        &feeds.Link{Href: app.siteURL(viewcache.PostPath(post.ID))},
			Description: postservice.Excerpt(post.Content, postservice.ExcerptWords),
			Created:     post.CreatedAt,
			Updated:     post.UpdatedAt,
			Content:     content,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(rss))
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 urlset"`
	URLs    []sitemapURL `xml:"url"`
}

func (app *application) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := app.postService.ListRecentPublished(r.Context(), 0)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	urls := []sitemapURL{{
		Loc:        app.siteURL(viewcache.HomePath),
		ChangeFreq: "daily",
		Priority:   "1.0",
	}}

	for _, post := range posts {
		urls = append(urls, sitemapURL{
			Loc:        app.siteURL(viewcache.PostPath(post.ID)),
			LastMod:    post.UpdatedAt.Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	out, err := xml.MarshalIndent(sitemapURLSet{URLs: urls}, "", "  ")
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write([]byte(xml.Header))
	w.Write(out)
}
