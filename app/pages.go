package main

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/sushihentaime/blogdesk/internal/common"
	"github.com/sushihentaime/blogdesk/internal/postservice"
)

// Pages served through the view cache must not depend on who is asking.

func (app *application) homeHandler(w http.ResponseWriter, r *http.Request) {
	summaries, err := app.postService.ListPublished(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData("Home")
	data.Summaries = summaries

	app.render(w, r, http.StatusOK, "home.html", data)
}

func (app *application) showPostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	post, err := app.postService.GetPublishedPost(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	html, err := postservice.RenderMarkdown(post.Content)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData(post.Title)
	data.Post = post
	data.PostHTML = template.HTML(html)

	app.render(w, r, http.StatusOK, "post.html", data)
}

func (app *application) adminHandler(w http.ResponseWriter, r *http.Request) {
	app.renderAdmin(w, r, http.StatusOK, nil)
}

// renderAdmin shows the listing of every post, with banner on top when an
// action just ran.
func (app *application) renderAdmin(w http.ResponseWriter, r *http.Request, status int, banner *postservice.Result) {
	posts, err := app.postService.ListPosts(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData("Manage blogs")
	data.Admin = true
	data.Posts = posts
	data.Banner = banner

	app.render(w, r, status, "admin.html", data)
}

func newCreateForm() *postForm {
	return &postForm{
		Action:  "/admin/create-blog",
		Heading: "Create new blog",
		Submit:  "Create blog",
	}
}

func newEditForm(post *postservice.Post) *postForm {
	return &postForm{
		Action:    "/admin/edit/" + strconv.Itoa(post.ID),
		Heading:   "Edit blog post",
		Submit:    "Save changes",
		Title:     post.Title,
		Content:   post.Content,
		Published: post.Published,
	}
}

func (app *application) createPostPageHandler(w http.ResponseWriter, r *http.Request) {
	data := app.newTemplateData("Create new blog")
	data.Admin = true
	data.Form = newCreateForm()

	app.render(w, r, http.StatusOK, "form.html", data)
}

func (app *application) editPostPageHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	post, err := app.postService.GetPost(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	data := app.newTemplateData("Edit blog post")
	data.Admin = true
	data.Form = newEditForm(post)

	app.render(w, r, http.StatusOK, "form.html", data)
}

func (app *application) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	if !app.getUserContext(r).IsAnonymous() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	app.render(w, r, http.StatusOK, "login.html", app.newTemplateData("Log in"))
}

// demo3Handler dumps every post as indented JSON.
func (app *application) demo3Handler(w http.ResponseWriter, r *http.Request) {
	posts, err := app.postService.ListPosts(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	dump, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	data := app.newTemplateData("Posts dump")
	data.Admin = true
	data.Dump = string(dump)

	app.render(w, r, http.StatusOK, "demo3.html", data)
}
