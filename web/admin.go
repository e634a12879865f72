package web

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/standardsmanual/standards/auth"
	"github.com/standardsmanual/standards/core"
)

var adminTmpl = tmpl(`<h1>Approvals</h1>

	{{ if .Submitted }}
		<table class="table table-sm">
			<thead>
				<tr><th>Number</th><th>Title</th><th>Created by</th><th></th></tr>
			</thead>
			<tbody>
				{{ range .Submitted }}
					<tr>
						<td>{{ .Number }}</td>
						<td>{{ .Title }}</td>
						<td>{{ .Creator }}</td>
						<td>
							<a class="btn btn-sm btn-primary" href="admin/review/{{ .ID }}">Review</a>
						</td>
					</tr>
				{{ end }}
			</tbody>
		</table>
	{{ else }}
		<p>Nothing awaits approval.</p>
	{{ end }}

	{{ if .Approved }}
		<h2>Ready to publish</h2>
		<table class="table table-sm">
			<thead>
				<tr><th>Number</th><th>Title</th><th></th></tr>
			</thead>
			<tbody>
				{{ range .Approved }}
					<tr>
						<td>{{ .Number }}</td>
						<td>{{ ManageLink . }}</td>
						<td>
							<form method="post" action="admin/publish/{{ .ID }}">
								<button type="submit" class="btn btn-sm btn-success">Publish</button>
							</form>
						</td>
					</tr>
				{{ end }}
			</tbody>
		</table>
	{{ end }}`)

type adminData struct {
	*Route
	Submitted []*core.Standard
	Approved  []*core.Standard
}

func admin(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	all, err := r.db.AllStandards()
	if err != nil {
		return err
	}

	var submitted, approved []*core.Standard
	for _, std := range all {
		switch std.Stage {
		case core.StageSubmitted:
			submitted = append(submitted, std)
		case core.StageApproved:
			approved = append(approved, std)
		}
	}

	return adminTmpl.Execute(w, &adminData{
		Route:     r,
		Submitted: submitted,
		Approved:  approved,
	})
}

var adminReviewTmpl = tmpl(`<h1>Review {{ .Standard.Number }}: {{ .Standard.Title }}</h1>

	<p>{{ .Standard.Summary }}</p>

	<h2>Purpose</h2>
	{{ Markdown .Standard.Purpose }}

	<h2>Guidance</h2>
	{{ Markdown .Standard.Guidance }}

	<h2>Owners</h2>
	<ul>
		{{ range .Owners }}
			<li>{{ .Name }} ({{ .Email }})</li>
		{{ end }}
	</ul>

	<form method="post">
		<div class="form-group">
			<label>Reason (required for rejection)</label>
			<textarea class="form-control" name="reason" rows="3"></textarea>
		</div>
		<button type="submit" class="btn btn-success" name="decision" value="approve">Approve</button>
		<button type="submit" class="btn btn-danger" name="decision" value="reject">Reject</button>
	</form>`)

type adminReviewData struct {
	*Route
	Standard *core.Standard
	Owners   []*core.Person
}

func adminReview(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := r.db.GetStandard(params.ByName("id"))
	if err != nil {
		return err
	}

	if req.Method == http.MethodPost {

		switch req.PostFormValue("decision") {
		case "approve":
			if err := r.db.Approve(std.ID, r.Actor()); err != nil {
				r.Danger(err)
			} else {
				r.Success("Standard %d approved", std.Number)
			}
		case "reject":
			if err := r.db.Reject(std.ID, r.Actor(), req.PostFormValue("reason")); err != nil {
				r.Danger(err)
			} else {
				r.Success("Standard %d rejected", std.Number)
			}
		}
		r.SeeOther("/admin")
		return nil
	}

	owners, err := r.db.People(std.Owners)
	if err != nil {
		return err
	}

	return adminReviewTmpl.Execute(w, &adminReviewData{
		Route:    r,
		Standard: std,
		Owners:   owners,
	})
}

func adminPublish(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	id := params.ByName("id")

	if err := r.db.Publish(id, r.Actor()); err != nil {
		r.Danger(err)
	} else {
		r.Success("Published")
	}
	r.SeeOther("/manage/%s", id)
	return nil
}

var adminUsersTmpl = tmpl(`<h1>Users</h1>

	<table class="table table-sm">
		<thead>
			<tr><th>Name</th><th>E-Mail</th><th>Approver</th><th></th></tr>
		</thead>
		<tbody>
			{{ range .Users }}
				<tr>
					<td>{{ .User.Name }}</td>
					<td>{{ .User.Email }}</td>
					<td>{{ if .Approver }}yes{{ end }}</td>
					<td>
						{{ if $.Writeable }}
							<form method="post">
								<input type="hidden" name="user" value="{{ .User.ID }}">
								{{ if .Approver }}
									<button type="submit" class="btn btn-sm btn-outline-secondary" name="action" value="demote">Remove approver</button>
								{{ else }}
									<button type="submit" class="btn btn-sm btn-outline-primary" name="action" value="promote">Make approver</button>
								{{ end }}
							</form>
						{{ end }}
					</td>
				</tr>
			{{ end }}
		</tbody>
	</table>

	{{ if .Writeable }}
		<h2>Add user</h2>
		<form method="post">
			<div class="form-row">
				<div class="col">
					<input type="text" class="form-control" name="name" placeholder="Name" required>
				</div>
				<div class="col">
					<input type="email" class="form-control" name="email" placeholder="E-Mail" required>
				</div>
				<div class="col">
					<button type="submit" class="btn btn-primary" name="action" value="insert">Add</button>
				</div>
			</div>
		</form>
	{{ end }}`)

type adminUserRow struct {
	User     auth.DBUser
	Approver bool
}

type adminUsersData struct {
	*Route
	Users     []adminUserRow
	Writeable bool
}

func adminUsers(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	authDB := r.db.Auth

	if req.Method == http.MethodPost && authDB.UserDB.Writeable() {

		switch req.PostFormValue("action") {

		case "insert":
			if _, err := authDB.InsertUser(req.PostFormValue("name"), req.PostFormValue("email")); err != nil {
				r.Danger(err)
			} else {
				r.Success("User added")
			}

		case "promote", "demote":
			userID, _ := strconv.Atoi(req.PostFormValue("user"))
			u, err := authDB.GetUser(userID)
			if err != nil {
				r.Danger(err)
				break
			}
			group, err := authDB.GetGroupByName(auth.ApproversGroup)
			if err != nil {
				// first promotion creates the group
				if err := authDB.InsertGroup(auth.ApproversGroup); err != nil {
					r.Danger(err)
					break
				}
				group, err = authDB.GetGroupByName(auth.ApproversGroup)
				if err != nil {
					r.Danger(err)
					break
				}
			}
			if req.PostFormValue("action") == "promote" {
				err = authDB.Join(group, u)
			} else {
				err = authDB.Leave(group, u)
			}
			if err != nil {
				r.Danger(err)
			}
		}

		r.SeeOther("/admin/users")
		return nil
	}

	users, err := authDB.GetAllUsers(1000, 0)
	if err != nil {
		return err
	}

	var rows []adminUserRow
	for _, u := range users {
		approver, err := authDB.IsApprover(u)
		if err != nil {
			return err
		}
		rows = append(rows, adminUserRow{User: u, Approver: approver})
	}

	return adminUsersTmpl.Execute(w, &adminUsersData{
		Route:     r,
		Users:     rows,
		Writeable: authDB.UserDB.Writeable(),
	})
}
