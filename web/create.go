package web

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/standardsmanual/standards/core"
)

var dashboardTmpl = tmpl(`<h1>My standards</h1>

	<h2>My drafts</h2>

	{{ if .Drafts }}
		<table class="table table-sm">
			<thead>
				<tr><th>Number</th><th>Title</th><th></th></tr>
			</thead>
			<tbody>
				{{ range .Drafts }}
					<tr>
						<td>{{ .Number }}</td>
						<td>{{ .Title }}</td>
						<td>
							<a class="btn btn-sm btn-primary" href="create/resume/{{ .ID }}">Continue</a>
						</td>
					</tr>
				{{ end }}
			</tbody>
		</table>
	{{ else }}
		<p>You have no drafts. <a href="create">Create a standard</a>.</p>
	{{ end }}

	<h2>Standards I'm involved in</h2>

	<table class="table table-sm">
		<thead>
			<tr><th>Number</th><th>Title</th><th>Stage</th></tr>
		</thead>
		<tbody>
			{{ range .Involved }}
				<tr>
					<td>{{ .Number }}</td>
					<td>{{ ManageLink . }}</td>
					<td>{{ .Stage }}</td>
				</tr>
			{{ end }}
		</tbody>
	</table>`)

type dashboardData struct {
	*Route
	Drafts   []*core.Standard
	Involved []*core.Standard
}

func dashboard(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	drafts, err := r.db.DraftsBy(r.User.Email())
	if err != nil {
		return err
	}

	involved, err := r.db.InvolvedStandards(r.User.Email())
	if err != nil {
		return err
	}

	return dashboardTmpl.Execute(w, &dashboardData{
		Route:    r,
		Drafts:   drafts,
		Involved: involved,
	})
}

var createBeginTmpl = tmpl(`<h1>Create a standard</h1>

	<form method="post">
		<div class="form-group">
			<label>Title</label>
			<input type="text" class="form-control" name="title" value="{{ .Title }}" required autofocus>
		</div>
		<div class="form-group">
			<label>Summary</label>
			<textarea class="form-control" name="summary" rows="3" required>{{ .Summary }}</textarea>
		</div>
		<button type="submit" class="btn btn-primary">Save and continue</button>
	</form>`)

type createBeginData struct {
	*Route
	Title   string
	Summary string
}

func createBegin(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	session := r.Authoring()

	if req.Method == http.MethodPost {

		title := req.PostFormValue("title")
		summary := req.PostFormValue("summary")

		// an already bound draft gets updated instead of duplicated
		if _, err := session.Current(); err == nil {
			if err := session.SetTitle(title); err != nil {
				r.Danger(err)
				goto render
			}
			if err := session.SetSummary(summary); err != nil {
				r.Danger(err)
				goto render
			}
			r.SeeOther("/create/details")
			return nil
		}

		if _, err := session.Begin(title, summary); err != nil {
			r.Danger(err)
			goto render
		}
		r.SeeOther("/create/details")
		return nil
	}

	if std, err := session.Current(); err == nil {
		return createBeginTmpl.Execute(w, &createBeginData{
			Route:   r,
			Title:   std.Title,
			Summary: std.Summary,
		})
	}

render:
	return createBeginTmpl.Execute(w, &createBeginData{
		Route:   r,
		Title:   req.PostFormValue("title"),
		Summary: req.PostFormValue("summary"),
	})
}

// currentDraft loads the bound draft or sends the user back to the start.
func currentDraft(r *Route) (*core.Standard, error) {
	std, err := r.Authoring().Current()
	if errors.Is(err, core.ErrNoActiveDraft) {
		r.Danger(err)
		r.SeeOther("/create")
		return nil, nil
	}
	return std, err
}

var createDetailsTmpl = tmpl(`<h1>{{ .Standard.Title }}: details</h1>

	<form method="post">
		<div class="form-group">
			<label>Purpose</label>
			<textarea class="form-control" name="purpose" rows="5" required>{{ .Standard.Purpose }}</textarea>
		</div>
		<div class="form-group">
			<label>Guidance</label>
			<textarea class="form-control" name="guidance" rows="8" required>{{ .Standard.Guidance }}</textarea>
		</div>
		<div class="form-group">
			<label>Considerations (optional)</label>
			<textarea class="form-control" name="considerations" rows="4">{{ .Standard.Considerations }}</textarea>
		</div>
		<div class="form-group">
			<label>Templates (optional)</label>
			<textarea class="form-control" name="templates" rows="3">{{ .Standard.Templates }}</textarea>
		</div>
		<div class="form-group">
			<label>Related guidance (optional)</label>
			<textarea class="form-control" name="relatedGuidance" rows="3">{{ .Standard.RelatedGuidance }}</textarea>
		</div>
		<button type="submit" class="btn btn-primary">Save and continue</button>
	</form>`)

type draftData struct {
	*Route
	Standard *core.Standard
}

func createDetails(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	session := r.Authoring()

	if req.Method == http.MethodPost {

		if err := session.SetPurpose(req.PostFormValue("purpose")); err != nil {
			r.Danger(err)
		} else if err := session.SetGuidance(req.PostFormValue("guidance")); err != nil {
			r.Danger(err)
		} else if err := session.SetConsiderations(req.PostFormValue("considerations")); err != nil {
			return err
		} else if err := session.SetTemplates(req.PostFormValue("templates")); err != nil {
			return err
		} else if err := session.SetRelatedGuidance(req.PostFormValue("relatedGuidance")); err != nil {
			return err
		} else {
			r.SeeOther("/create/categories")
			return nil
		}

		std, err = session.Current()
		if err != nil {
			return err
		}
	}

	return createDetailsTmpl.Execute(w, &draftData{
		Route:    r,
		Standard: std,
	})
}

var createCategoriesTmpl = tmpl(`<h1>{{ .Standard.Title }}: categories</h1>

	<form method="post">
		<div class="form-group">
			<label>Categories</label>
			{{ range .Categories }}
				<div class="form-check">
					<input class="form-check-input" type="checkbox" name="category" value="{{ .ID }}" {{ if index $.Selected .ID }}checked{{ end }}>
					<label class="form-check-label">{{ .Title }}</label>
				</div>
			{{ end }}
		</div>
		<div class="form-group">
			<label>Sub-categories (optional)</label>
			{{ range .SubCategories }}
				<div class="form-check">
					<input class="form-check-input" type="checkbox" name="subCategory" value="{{ .ID }}" {{ if index $.SelectedSub .ID }}checked{{ end }}>
					<label class="form-check-label">{{ .Title }}</label>
				</div>
			{{ end }}
		</div>
		<button type="submit" class="btn btn-primary">Save and continue</button>
	</form>`)

type createCategoriesData struct {
	*Route
	Standard      *core.Standard
	Categories    []*core.Category
	SubCategories []*core.SubCategory
	Selected      map[string]bool
	SelectedSub   map[string]bool
}

func createCategories(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	session := r.Authoring()

	if req.Method == http.MethodPost {
		req.ParseForm()
		if err := session.SetCategories(req.PostForm["category"]); err != nil {
			r.Danger(err)
		} else if err := session.SetSubCategories(req.PostForm["subCategory"]); err != nil {
			return err
		} else {
			r.SeeOther("/create/contacts")
			return nil
		}
	}

	categories, err := r.db.ActiveCategories()
	if err != nil {
		return err
	}
	subCategories, err := r.db.AllSubCategories()
	if err != nil {
		return err
	}

	selected := make(map[string]bool)
	for _, id := range std.Categories {
		selected[id] = true
	}
	selectedSub := make(map[string]bool)
	for _, id := range std.SubCategories {
		selectedSub[id] = true
	}

	return createCategoriesTmpl.Execute(w, &createCategoriesData{
		Route:         r,
		Standard:      std,
		Categories:    categories,
		SubCategories: subCategories,
		Selected:      selected,
		SelectedSub:   selectedSub,
	})
}

var createContactsTmpl = tmpl(`<h1>{{ .Standard.Title }}: contacts</h1>

	<p>A standard needs at least one owner before it can be submitted.</p>

	<table class="table table-sm">
		<thead>
			<tr><th>Name</th><th>E-Mail</th><th>Role</th><th></th></tr>
		</thead>
		<tbody>
			{{ range .Owners }}
				<tr>
					<td>{{ .Name }}</td>
					<td>{{ .Email }}</td>
					<td>Owner</td>
					<td>
						<form method="post" action="create/contacts/remove">
							<input type="hidden" name="person" value="{{ .ID }}">
							<input type="hidden" name="role" value="Owner">
							<button type="submit" class="btn btn-sm btn-outline-danger">Remove</button>
						</form>
					</td>
				</tr>
			{{ end }}
			{{ range .Contacts }}
				<tr>
					<td>{{ .Name }}</td>
					<td>{{ .Email }}</td>
					<td>General contact</td>
					<td>
						<form method="post" action="create/contacts/remove">
							<input type="hidden" name="person" value="{{ .ID }}">
							<input type="hidden" name="role" value="General contact">
							<button type="submit" class="btn btn-sm btn-outline-danger">Remove</button>
						</form>
					</td>
				</tr>
			{{ end }}
		</tbody>
	</table>

	<form method="post">
		<div class="form-row">
			<div class="col">
				<input type="text" class="form-control" name="name" placeholder="Name" required>
			</div>
			<div class="col">
				<input type="email" class="form-control" name="email" placeholder="E-Mail" required>
			</div>
			<div class="col">
				<select class="form-control" name="role">
					<option>Owner</option>
					<option>General contact</option>
				</select>
			</div>
			<div class="col">
				<button type="submit" class="btn btn-primary">Add</button>
			</div>
		</div>
	</form>

	<p class="mt-3">
		<a class="btn btn-secondary" href="create/products">Continue</a>
	</p>`)

type createContactsData struct {
	*Route
	Standard *core.Standard
	Owners   []*core.Person
	Contacts []*core.Person
}

func createContacts(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	session := r.Authoring()

	if req.Method == http.MethodPost {
		_, err := session.AddContact(req.PostFormValue("name"), req.PostFormValue("email"), req.PostFormValue("role"))
		if err != nil {
			r.Danger(err)
		}
		r.SeeOther("/create/contacts")
		return nil
	}

	owners, err := r.db.People(std.Owners)
	if err != nil {
		return err
	}
	contacts, err := r.db.People(std.TechnicalContacts)
	if err != nil {
		return err
	}

	return createContactsTmpl.Execute(w, &createContactsData{
		Route:    r,
		Standard: std,
		Owners:   owners,
		Contacts: contacts,
	})
}

func createContactsRemove(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	if err := r.Authoring().RemoveContact(req.PostFormValue("person"), req.PostFormValue("role")); err != nil {
		r.Danger(err)
	}
	r.SeeOther("/create/contacts")
	return nil
}

var createProductsTmpl = tmpl(`<h1>{{ .Standard.Title }}: products</h1>

	<h2>Approved products</h2>
	<table class="table table-sm">
		<thead>
			<tr><th>Product</th><th>Vendor</th><th>Version</th><th>Use case</th><th></th></tr>
		</thead>
		<tbody>
			{{ range .Approved }}
				<tr>
					<td>{{ .Name }}</td>
					<td>{{ .Vendor }}</td>
					<td>{{ .Version }}</td>
					<td>{{ .UseCase }}</td>
					<td>
						<form method="post" action="create/products/remove">
							<input type="hidden" name="product" value="{{ .ID }}">
							<input type="hidden" name="kind" value="approved">
							<button type="submit" class="btn btn-sm btn-outline-danger">Remove</button>
						</form>
					</td>
				</tr>
			{{ end }}
		</tbody>
	</table>

	<h2>Tolerated products</h2>
	<table class="table table-sm">
		<thead>
			<tr><th>Product</th><th>Vendor</th><th>Version</th><th>Use case</th><th></th></tr>
		</thead>
		<tbody>
			{{ range .Tolerated }}
				<tr>
					<td>{{ .Name }}</td>
					<td>{{ .Vendor }}</td>
					<td>{{ .Version }}</td>
					<td>{{ .UseCase }}</td>
					<td>
						<form method="post" action="create/products/remove">
							<input type="hidden" name="product" value="{{ .ID }}">
							<input type="hidden" name="kind" value="tolerated">
							<button type="submit" class="btn btn-sm btn-outline-danger">Remove</button>
						</form>
					</td>
				</tr>
			{{ end }}
		</tbody>
	</table>

	<form method="post">
		<div class="form-row">
			<div class="col">
				<input type="text" class="form-control" name="product" placeholder="Product" required>
			</div>
			<div class="col">
				<input type="text" class="form-control" name="vendor" placeholder="Vendor">
			</div>
			<div class="col">
				<input type="text" class="form-control" name="version" placeholder="Version">
			</div>
			<div class="col">
				<input type="text" class="form-control" name="useCase" placeholder="Use case">
			</div>
			<div class="col">
				<select class="form-control" name="kind">
					<option value="approved">Approved</option>
					<option value="tolerated">Tolerated</option>
				</select>
			</div>
			<div class="col">
				<button type="submit" class="btn btn-primary">Add</button>
			</div>
		</div>
	</form>

	<p class="mt-3">
		<a class="btn btn-secondary" href="create/exceptions">Continue</a>
	</p>`)

type createProductsData struct {
	*Route
	Standard  *core.Standard
	Approved  []*core.Product
	Tolerated []*core.Product
}

func createProducts(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	session := r.Authoring()

	if req.Method == http.MethodPost {

		name := req.PostFormValue("product")
		vendor := req.PostFormValue("vendor")
		version := req.PostFormValue("version")
		useCase := req.PostFormValue("useCase")

		var err error
		if req.PostFormValue("kind") == "tolerated" {
			_, err = session.AddToleratedProduct(name, vendor, version, useCase)
		} else {
			_, err = session.AddApprovedProduct(name, vendor, version, useCase)
		}
		if err != nil {
			r.Danger(err)
		}
		r.SeeOther("/create/products")
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

	return createProductsTmpl.Execute(w, &createProductsData{
		Route:     r,
		Standard:  std,
		Approved:  approved,
		Tolerated: tolerated,
	})
}

func createProductsRemove(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	session := r.Authoring()

	var removeErr error
	if req.PostFormValue("kind") == "tolerated" {
		removeErr = session.RemoveToleratedProduct(req.PostFormValue("product"))
	} else {
		removeErr = session.RemoveApprovedProduct(req.PostFormValue("product"))
	}
	if removeErr != nil {
		r.Danger(removeErr)
	}
	r.SeeOther("/create/products")
	return nil
}

var createExceptionsTmpl = tmpl(`<h1>{{ .Standard.Title }}: exceptions</h1>

	<table class="table table-sm">
		<thead>
			<tr><th>Title</th><th>Details</th><th></th></tr>
		</thead>
		<tbody>
			{{ range .Exceptions }}
				<tr>
					<td>{{ .Title }}</td>
					<td>{{ .Details }}</td>
					<td>
						<form method="post" action="create/exceptions/remove">
							<input type="hidden" name="exception" value="{{ .ID }}">
							<button type="submit" class="btn btn-sm btn-outline-danger">Remove</button>
						</form>
					</td>
				</tr>
			{{ end }}
		</tbody>
	</table>

	<form method="post">
		<div class="form-row">
			<div class="col">
				<input type="text" class="form-control" name="title" placeholder="Title" required>
			</div>
			<div class="col">
				<input type="text" class="form-control" name="details" placeholder="Details">
			</div>
			<div class="col">
				<button type="submit" class="btn btn-primary">Add</button>
			</div>
		</div>
	</form>

	<p class="mt-3">
		<a class="btn btn-secondary" href="create/review">Continue</a>
	</p>`)

type createExceptionsData struct {
	*Route
	Standard   *core.Standard
	Exceptions []*core.Exception
}

func createExceptions(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	session := r.Authoring()

	if req.Method == http.MethodPost {
		if _, err := session.AddException(req.PostFormValue("title"), req.PostFormValue("details")); err != nil {
			r.Danger(err)
		}
		r.SeeOther("/create/exceptions")
		return nil
	}

	exceptions, err := r.db.Exceptions(std.Exceptions)
	if err != nil {
		return err
	}

	return createExceptionsTmpl.Execute(w, &createExceptionsData{
		Route:      r,
		Standard:   std,
		Exceptions: exceptions,
	})
}

func createExceptionsRemove(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	if err := r.Authoring().RemoveException(req.PostFormValue("exception")); err != nil {
		r.Danger(err)
	}
	r.SeeOther("/create/exceptions")
	return nil
}

var createReviewTmpl = tmpl(`<h1>{{ .Standard.Number }}: {{ .Standard.Title }}</h1>

	<p class="text-muted">Check your draft, then submit it for approval.</p>

	<p>{{ .Standard.Summary }}</p>

	<h2>Purpose</h2>
	{{ Markdown .Standard.Purpose }}

	<h2>Guidance</h2>
	{{ Markdown .Standard.Guidance }}

	<h2>Owners</h2>
	<ul>
		{{ range .Owners }}
			<li>{{ .Name }} ({{ .Email }})</li>
		{{ else }}
			<li class="text-danger">No owner yet. Add one before submitting.</li>
		{{ end }}
	</ul>

	<form method="post" action="create/submit">
		<button type="submit" class="btn btn-primary">Submit for approval</button>
	</form>

	<form method="post" action="create/delete" class="mt-2">
		<button type="submit" class="btn btn-outline-danger">Discard this draft</button>
	</form>`)

type createReviewData struct {
	*Route
	Standard *core.Standard
	Owners   []*core.Person
}

func createReview(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	owners, err := r.db.People(std.Owners)
	if err != nil {
		return err
	}

	return createReviewTmpl.Execute(w, &createReviewData{
		Route:    r,
		Standard: std,
		Owners:   owners,
	})
}

func createSubmit(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	if err := r.Authoring().Submit(); err != nil {
		r.Danger(err)
		r.SeeOther("/create/review")
		return nil
	}

	r.Success("Standard %d has been submitted for approval", std.Number)
	r.SeeOther("/manage/%s", std.ID)
	return nil
}

func createResume(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	if _, err := r.Authoring().Resume(params.ByName("id")); err != nil {
		r.Danger(err)
		r.SeeOther("/dashboard")
		return nil
	}
	r.SeeOther("/create")
	return nil
}

// createDelete removes the bound draft entirely.
func createDelete(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := currentDraft(r)
	if std == nil {
		return err
	}

	if err := r.db.HardDelete(std.ID, r.Actor()); err != nil {
		r.Danger(err)
		r.SeeOther("/create/review")
		return nil
	}

	r.Authoring().Clear()
	r.Success("Draft discarded")
	r.SeeOther("/dashboard")
	return nil
}
