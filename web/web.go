// Package web is the HTTP surface: the public catalogue, the authoring
// wizard, the management pages and the approval queue.
package web

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/standardsmanual/standards/core"
	"github.com/standardsmanual/standards/util"
	"gitlab.com/golang-commonmark/markdown"
)

var markdownParser *markdown.Markdown = markdown.New(markdown.HTML(false), markdown.Linkify(true), markdown.Typographer(true), markdown.MaxNesting(10))

// A Route wraps one request with the CoreDB.
type Route struct {
	*core.Request
	Prefix string // with trailing slash
	db     *core.CoreDB
}

func (r *Route) Approvals() int {
	if !r.IsApprover() {
		return 0
	}
	all, err := r.db.AllStandards()
	if err != nil {
		return 0
	}
	return core.CountByStage(all)[core.StageSubmitted.Title()]
}

func middleware(db *core.CoreDB, prefix string, requireLoggedIn, requireApprover bool, f func(http.ResponseWriter, *http.Request, *Route, httprouter.Params) error) func(http.ResponseWriter, *http.Request, httprouter.Params) {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var r = &Route{
			Prefix:  prefix + "/",
			Request: db.NewRequest(w, req),
			db:      db,
		}
		defer r.Cleanup()

		if requireLoggedIn && !r.LoggedIn() {
			r.SeeOther("/login")
			return
		}

		if requireApprover && !r.IsApprover() {
			r.SeeOther("/")
			return
		}

		if err := f(w, req, r, params); err != nil {
			// probably no template has been executed, so execute error template
			errorTmpl.Execute(w, struct {
				*Route
				Err error
			}{
				Route: r,
				Err:   err,
			})
		}
	}
}

var errorTmpl = tmpl(`
	<div class="alert alert-danger" role="alert">
		{{ .Err }}
	</div>`)

func NewRouter(db *core.CoreDB, prefix string) http.Handler {

	var router = httprouter.New()

	var GETAndPOST = func(path string, handle httprouter.Handle) {
		router.GET(path, handle)
		router.POST(path, handle)
	}

	// public
	router.GET("/", middleware(db, prefix, false, false, home))
	router.GET("/category/:slug", middleware(db, prefix, false, false, category))
	router.GET("/standard/:id", middleware(db, prefix, false, false, standard))
	GETAndPOST("/login", middleware(db, prefix, false, false, login))
	router.GET("/logout", middleware(db, prefix, true, false, logout))

	// authoring
	router.GET("/dashboard", middleware(db, prefix, true, false, dashboard))
	GETAndPOST("/create", middleware(db, prefix, true, false, createBegin))
	GETAndPOST("/create/details", middleware(db, prefix, true, false, createDetails))
	GETAndPOST("/create/categories", middleware(db, prefix, true, false, createCategories))
	GETAndPOST("/create/contacts", middleware(db, prefix, true, false, createContacts))
	router.POST("/create/contacts/remove", middleware(db, prefix, true, false, createContactsRemove))
	GETAndPOST("/create/products", middleware(db, prefix, true, false, createProducts))
	router.POST("/create/products/remove", middleware(db, prefix, true, false, createProductsRemove))
	GETAndPOST("/create/exceptions", middleware(db, prefix, true, false, createExceptions))
	router.POST("/create/exceptions/remove", middleware(db, prefix, true, false, createExceptionsRemove))
	router.GET("/create/review", middleware(db, prefix, true, false, createReview))
	router.POST("/create/submit", middleware(db, prefix, true, false, createSubmit))
	router.GET("/create/resume/:id", middleware(db, prefix, true, false, createResume))
	router.POST("/create/delete", middleware(db, prefix, true, false, createDelete))

	// managing
	router.GET("/manage/:id", middleware(db, prefix, true, false, manage))
	router.POST("/manage/:id/revert", middleware(db, prefix, true, false, manageRevert))
	router.POST("/manage/:id/delete", middleware(db, prefix, true, false, manageDelete))

	// approving
	router.GET("/admin", middleware(db, prefix, true, true, admin))
	GETAndPOST("/admin/review/:id", middleware(db, prefix, true, true, adminReview))
	router.POST("/admin/publish/:id", middleware(db, prefix, true, true, adminPublish))
	GETAndPOST("/admin/users", middleware(db, prefix, true, true, adminUsers))

	return router
}

// Markdown renders trusted prose fields to HTML.
func renderMarkdown(source string) template.HTML {
	return template.HTML(markdownParser.RenderToString([]byte(source)))
}

// MarkdownAnchored additionally turns the first heading of the rendered
// prose into a fragment link, so sections of long standards can be shared by
// URL.
func renderMarkdownAnchored(source, id string) template.HTML {
	rendered := markdownParser.RenderToString([]byte(source))
	anchored, err := io.ReadAll(util.AnchorHeading(
		strings.NewReader(rendered),
		fmt.Sprintf(`<a id="%s" href="#%s">`, id, id),
	))
	if err != nil {
		return template.HTML(rendered)
	}
	return template.HTML(anchored)
}

func tmpl(text string) *template.Template {
	t := template.Must(baseTmpl.Clone())
	t = template.Must(t.Parse(`{{ define "content" }}` + text + `{{ end }}`))
	return t
}

var baseTmpl = template.Must(template.New("base").Funcs(
	template.FuncMap{
		"Markdown":         renderMarkdown,
		"MarkdownAnchored": renderMarkdownAnchored,
		"Trunc":            util.Trunc,
		"StandardLink": func(std *core.Standard) template.HTML {
			return template.HTML(fmt.Sprintf(`<a href="standard/%s">%d: %s</a>`, std.ID, std.Number, std.Title))
		},
		"ManageLink": func(std *core.Standard) template.HTML {
			return template.HTML(fmt.Sprintf(`<a href="manage/%s">%d: %s</a>`, std.ID, std.Number, std.Title))
		},
	},
).Parse(`
<!DOCTYPE html>
<html>
	<head>
		<base href="{{ .Prefix }}">
		<link rel="stylesheet" type="text/css" href="/assets/bootstrap-4.4.1.min.css">
		<meta charset="utf-8">
		<title>Service Standards</title>

		<style>

			body {
				padding-bottom: 1rem;
			}

			h1 {
				font-size: 1.5rem !important;
				margin: 1rem 0 0.7rem !important;
			}

			h2 {
				font-size: 1.3rem !important;
				margin: 0.2rem 0 0.5rem !important;
			}

			table {
				margin-top: 0.5rem;
				border-bottom: 1px solid #dee2e6;
			}

			.timeline-step {
				border-left: 3px solid #dee2e6;
				padding: 0 0 0.8rem 1rem;
			}

			.timeline-step-active {
				border-left-color: #007bff;
			}

		</style>
	</head>
	<body>

		<nav class="navbar navbar-expand-md bg-light">
			<ul class="navbar-nav">
				<li class="nav-item">
					<a class="nav-link" href="/">Standards</a>
				</li>

				{{ if .LoggedIn }}

					<li class="nav-item">
						<a class="nav-link" href="dashboard">My standards</a>
					</li>
					<li class="nav-item">
						<a class="nav-link" href="create">Create</a>
					</li>

					{{ if .IsApprover }}
						<li class="nav-item">
							<a class="nav-link" href="admin">Approvals{{ with .Approvals }} ({{ . }}){{ end }}</a>
						</li>
						<li class="nav-item">
							<a class="nav-link" href="admin/users">Users</a>
						</li>
					{{ end }}

					<li class="nav-item">
						<a class="nav-link" href="logout">Logout ({{ .User.Name }})</a>
					</li>

				{{ else }}

					<li class="nav-item">
						<a class="nav-link" href="login">Login</a>
					</li>

				{{ end }}
			</ul>
		</nav>

		<div class="container pt-3">
			{{ .RenderNotifications }}
			{{ template "content" . }}
		</div>
	</body>
</html>`))
