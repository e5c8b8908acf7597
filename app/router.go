package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sushihentaime/blogdesk/internal/userservice"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	cached := func(h http.HandlerFunc) http.Handler { return app.views.Handler(h) }
	admin := func(h http.Handler) http.HandlerFunc {
		return app.requirePermission(h, userservice.PermissionWritePosts)
	}

	// public pages
	router.Handler(http.MethodGet, "/", cached(app.homeHandler))
	router.Handler(http.MethodGet, "/blog/:id", app.canonicalPostPath(cached(app.showPostHandler)))
	router.HandlerFunc(http.MethodGet, "/feed", app.feedHandler)
	router.HandlerFunc(http.MethodGet, "/sitemap.xml", app.sitemapHandler)

	// admin session
	router.HandlerFunc(http.MethodGet, "/admin/login", app.loginPageHandler)
	router.HandlerFunc(http.MethodPost, "/admin/login", app.loginFormHandler)
	router.HandlerFunc(http.MethodPost, "/admin/logout", app.requireAuthUser(http.HandlerFunc(app.logoutFormHandler)))

	// admin area
	router.HandlerFunc(http.MethodGet, "/admin", admin(cached(app.adminHandler)))
	router.HandlerFunc(http.MethodGet, "/admin/create-blog", admin(http.HandlerFunc(app.createPostPageHandler)))
	router.HandlerFunc(http.MethodPost, "/admin/create-blog", admin(http.HandlerFunc(app.createPostHandler)))
	router.HandlerFunc(http.MethodGet, "/admin/edit/:id", admin(http.HandlerFunc(app.editPostPageHandler)))
	router.HandlerFunc(http.MethodPost, "/admin/edit/:id", admin(http.HandlerFunc(app.editPostHandler)))
	router.HandlerFunc(http.MethodPost, "/admin/publish", admin(http.HandlerFunc(app.publishPostHandler)))
	router.HandlerFunc(http.MethodPost, "/admin/delete", admin(http.HandlerFunc(app.deletePostHandler)))
	router.HandlerFunc(http.MethodGet, "/demo3", admin(cached(app.demo3Handler)))
	router.HandlerFunc(http.MethodPost, "/demo3/add-post", admin(http.HandlerFunc(app.addPostHandler)))

	// JSON API
	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)
	router.HandlerFunc(http.MethodGet, "/v1/posts", app.listPostsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/posts/:id", app.getPostHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/register", app.registerUserHandler)
	router.HandlerFunc(http.MethodPut, "/v1/users/activate", app.activateUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/login", app.loginUserHandler)
	router.HandlerFunc(http.MethodPost, "/v1/users/logout", app.requireAuthUser(http.HandlerFunc(app.logoutUserHandler)))

	return app.recoverPanic(app.requestID(app.logRequest(app.enableCORS(app.rateLimit(app.authenticate(router))))))
}
