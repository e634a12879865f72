package web

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/standardsmanual/standards/core"
)

var homeTmpl = tmpl(`<h1>Service Standards</h1>

	<div class="row">
		{{ range .Categories }}
			<div class="col-md-4">
				<div class="card mb-3">
					<div class="card-body">
						<h2><a href="category/{{ .Slug }}">{{ .Title }}</a></h2>
						<p>{{ .Description }}</p>
						<p class="text-muted">{{ index $.Counts .ID }} published</p>
					</div>
				</div>
			</div>
		{{ end }}
	</div>

	<h2>All published standards</h2>

	<table class="table table-sm">
		<thead>
			<tr>
				<th>Number</th>
				<th>Title</th>
				<th>Version</th>
			</tr>
		</thead>
		<tbody>
			{{ range .Standards }}
				<tr>
					<td>{{ .Number }}</td>
					<td><a href="standard/{{ .ID }}">{{ .Title }}</a></td>
					<td>{{ printf "%.1f" .Version }}</td>
				</tr>
			{{ end }}
		</tbody>
	</table>`)

type homeData struct {
	*Route
	Categories []*core.Category
	Counts     map[string]int
	Standards  []*core.Standard
}

func home(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	categories, err := r.db.ActiveCategories()
	if err != nil {
		return err
	}

	published, err := r.db.PublishedStandards()
	if err != nil {
		return err
	}

	return homeTmpl.Execute(w, &homeData{
		Route:      r,
		Categories: categories,
		Counts:     core.CategoryStandardCounts(published),
		Standards:  published,
	})
}

var categoryTmpl = tmpl(`<h1>{{ .Category.Title }}</h1>

	<p>{{ .Category.Description }}</p>

	<table class="table table-sm">
		<thead>
			<tr>
				<th>Number</th>
				<th>Title</th>
				<th>Summary</th>
			</tr>
		</thead>
		<tbody>
			{{ range .Standards }}
				<tr>
					<td>{{ .Number }}</td>
					<td><a href="standard/{{ .ID }}">{{ .Title }}</a></td>
					<td>{{ Trunc .Summary 160 }}</td>
				</tr>
			{{ end }}
		</tbody>
	</table>`)

type categoryData struct {
	*Route
	Category  *core.Category
	Standards []*core.Standard
}

func category(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	cat, err := r.db.CategoryBySlug(params.ByName("slug"))
	if err != nil {
		return err
	}

	published, err := r.db.PublishedStandards()
	if err != nil {
		return err
	}

	var inCategory []*core.Standard
	for _, std := range published {
		for _, catID := range std.Categories {
			if catID == cat.ID {
				inCategory = append(inCategory, std)
				break
			}
		}
	}

	return categoryTmpl.Execute(w, &categoryData{
		Route:     r,
		Category:  cat,
		Standards: inCategory,
	})
}

var standardTmpl = tmpl(`<h1>{{ .Standard.Number }}: {{ .Standard.Title }}</h1>

	<p class="text-muted">Version {{ printf "%.1f" .Standard.Version }}</p>

	<p>{{ .Standard.Summary }}</p>

	<h2 id="purpose">Purpose</h2>
	{{ MarkdownAnchored .Standard.Purpose "purpose-detail" }}

	<h2 id="guidance">Guidance</h2>
	{{ MarkdownAnchored .Standard.Guidance "guidance-detail" }}

	{{ with .Standard.Considerations }}
		<h2 id="considerations">Considerations</h2>
		{{ MarkdownAnchored . "considerations-detail" }}
	{{ end }}

	{{ with .Standard.Templates }}
		<h2 id="templates">Templates</h2>
		{{ MarkdownAnchored . "templates-detail" }}
	{{ end }}

	{{ with .Standard.RelatedGuidance }}
		<h2 id="related-guidance">Related guidance</h2>
		{{ MarkdownAnchored . "related-guidance-detail" }}
	{{ end }}

	{{ if .Approved }}
		<h2>Approved products</h2>
		<table class="table table-sm">
			<thead>
				<tr><th>Product</th><th>Vendor</th><th>Version</th><th>Use case</th></tr>
			</thead>
			<tbody>
				{{ range .Approved }}
					<tr><td>{{ .Name }}</td><td>{{ .Vendor }}</td><td>{{ .Version }}</td><td>{{ .UseCase }}</td></tr>
				{{ end }}
			</tbody>
		</table>
	{{ end }}

	{{ if .Tolerated }}
		<h2>Tolerated products</h2>
		<table class="table table-sm">
			<thead>
				<tr><th>Product</th><th>Vendor</th><th>Version</th><th>Use case</th></tr>
			</thead>
			<tbody>
				{{ range .Tolerated }}
					<tr><td>{{ .Name }}</td><td>{{ .Vendor }}</td><td>{{ .Version }}</td><td>{{ .UseCase }}</td></tr>
				{{ end }}
			</tbody>
		</table>
	{{ end }}

	{{ if .Exceptions }}
		<h2>Exceptions</h2>
		<ul>
			{{ range .Exceptions }}
				{{ if .Active }}
					<li><strong>{{ .Title }}</strong> {{ .Details }}</li>
				{{ end }}
			{{ end }}
		</ul>
	{{ end }}

	{{ if .Owners }}
		<h2>Owners</h2>
		<ul>
			{{ range .Owners }}
				<li>{{ .Name }}</li>
			{{ end }}
		</ul>
	{{ end }}`)

type standardData struct {
	*Route
	Standard   *core.Standard
	Approved   []*core.Product
	Tolerated  []*core.Product
	Exceptions []*core.Exception
	Owners     []*core.Person
}

func standard(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := r.db.GetStandard(params.ByName("id"))
	if err != nil {
		return err
	}

	// unpublished standards are visible to their people only
	if std.Stage != core.StagePublished {
		if !r.LoggedIn() {
			return core.ErrNotFound
		}
		r.SeeOther("/manage/%s", std.ID)
		return nil
	}

	approved, err := r.db.Products(std.ApprovedProducts)
	if err != nil {
		return err
	}
	tolerated, err := r.db.Products(std.ToleratedProducts)
	if err != nil {
		return err
	}
	exceptions, err := r.db.Exceptions(std.Exceptions)
	if err != nil {
		return err
	}
	owners, err := r.db.People(std.Owners)
	if err != nil {
		return err
	}

	return standardTmpl.Execute(w, &standardData{
		Route:      r,
		Standard:   std,
		Approved:   approved,
		Tolerated:  tolerated,
		Exceptions: exceptions,
		Owners:     owners,
	})
}
