package main

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sushihentaime/blogdesk/internal/common"
	"github.com/sushihentaime/blogdesk/internal/postservice"
	"github.com/sushihentaime/blogdesk/internal/userservice"
)

// writeResult answers a JSON client with the action result. It reports false
// when the caller still has to render a page.
func (app *application) writeResult(w http.ResponseWriter, r *http.Request, res postservice.Result) bool {
	if !app.wantsJSON(r) {
		return false
	}

	err := app.writeJSON(w, resultStatus(res), envelope{"result": res}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}

	return true
}

// refill copies the submitted values back into form after a failed attempt.
func refill(form *postForm, values url.Values, res postservice.Result) {
	form.Title = values.Get("title")
	form.Content = values.Get("content")
	form.Published = values.Get("published") == postservice.PublishedOn
	form.Errors = res.Errors
}

func (app *application) createPostHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.parseForm(w, r); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	res := app.postService.CreateBlog(r.Context(), r.PostForm)
	if app.writeResult(w, r, res) {
		return
	}

	form := newCreateForm()
	if !res.Success {
		refill(form, r.PostForm, res)
	}

	data := app.newTemplateData(form.Heading)
	data.Admin = true
	data.Form = form
	data.Banner = &res

	app.render(w, r, resultStatus(res), "form.html", data)
}

func (app *application) editPostHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	if err := app.parseForm(w, r); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	// The route decides which post is edited, not the body.
	values := r.PostForm
	values.Set("id", strconv.Itoa(id))

	res := app.postService.EditBlog(r.Context(), values)
	if app.writeResult(w, r, res) {
		return
	}

	var form *postForm
	if res.Success {
		form = newEditForm(res.Post)
	} else {
		form = newEditForm(&postservice.Post{ID: id})
		refill(form, values, res)
	}

	data := app.newTemplateData(form.Heading)
	data.Admin = true
	data.Form = form
	data.Banner = &res

	app.render(w, r, resultStatus(res), "form.html", data)
}

func (app *application) publishPostHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.parseForm(w, r); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	res := app.postService.PublishBlog(r.Context(), r.PostForm)
	if app.writeResult(w, r, res) {
		return
	}

	app.renderAdmin(w, r, resultStatus(res), &res)
}

func (app *application) deletePostHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.parseForm(w, r); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	res := app.postService.DeleteBlog(r.Context(), r.PostForm)
	if app.writeResult(w, r, res) {
		return
	}

	app.renderAdmin(w, r, resultStatus(res), &res)
}

// addPostHandler redirects back to the dump so the new post shows up.
func (app *application) addPostHandler(w http.ResponseWriter, r *http.Request) {
	res := app.postService.AddPost(r.Context())
	if app.writeResult(w, r, res) {
		return
	}

	if !res.Success {
		app.renderError(w, r, resultStatus(res), res.Message)
		return
	}

	http.Redirect(w, r, "/demo3", http.StatusSeeOther)
}

func (app *application) loginFormHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.parseForm(w, r); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	username := r.PostForm.Get("username")

	token, err := app.userService.LoginUser(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		data := app.newTemplateData("Log in")
		data.Username = username

		switch {
		case errors.As(err, &common.ValidationError{}):
			data.LoginError = "Username and password must be provided"
			app.render(w, r, http.StatusUnprocessableEntity, "login.html", data)
		case errors.Is(err, userservice.ErrAuthenticationFailure):
			data.LoginError = "Invalid username or password"
			app.render(w, r, http.StatusUnauthorized, "login.html", data)
		case errors.Is(err, userservice.ErrInactiveAccount):
			data.LoginError = "Your account has not been activated yet"
			app.render(w, r, http.StatusForbidden, "login.html", data)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.setSessionCookie(w, token.Plain, token.Expiry)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (app *application) logoutFormHandler(w http.ResponseWriter, r *http.Request) {
	user := app.getUserContext(r)

	err := app.userService.LogoutUser(r.Context(), user.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.clearSessionCookie(w)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}
