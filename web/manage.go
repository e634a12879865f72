package web

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/standardsmanual/standards/core"
)

var manageTmpl = tmpl(`<h1>{{ .Standard.Number }}: {{ .Standard.Title }}</h1>

	<p>
		<span class="badge badge-secondary">{{ .Standard.Stage }}</span>
		{{ if .Standard.Published }}
			<span class="badge badge-success">live</span>
		{{ end }}
		{{ if gt .Standard.Version 0.0 }}
			<span class="text-muted">Version {{ printf "%.1f" .Standard.Version }}</span>
		{{ end }}
	</p>

	{{ with .Rejection }}
		<div class="alert alert-warning" role="alert">
			Rejected by {{ .ActionBy }}: {{ .Comments }}
		</div>
	{{ end }}

	<h2>Timeline</h2>

	{{ range $i, $slot := .Timeline.Slots }}
		<div class="timeline-step {{ if eq $i $.Timeline.LastActiveIndex }}timeline-step-active{{ end }}">
			<strong>{{ $slot.Status }}</strong>
			{{ if $slot.ActionBy }}
				<br>{{ $slot.Action }} by {{ $slot.ActionBy }} on {{ $.FormatDateTime $slot.ActionAt }}
				{{ with $slot.Comments }}<br>{{ . }}{{ end }}
			{{ end }}
		</div>
	{{ end }}

	<h2>Actions</h2>

	{{ if eq .Standard.Stage.Title "Draft" }}
		{{ if .Mine }}
			<a class="btn btn-primary" href="create/resume/{{ .Standard.ID }}">Edit draft</a>
		{{ end }}
	{{ end }}

	{{ if .CanRevert }}
		<form method="post" action="manage/{{ .Standard.ID }}/revert" style="display: inline;">
			<button type="submit" class="btn btn-secondary">Revert to draft</button>
		</form>
	{{ end }}

	{{ if .CanPublish }}
		<form method="post" action="admin/publish/{{ .Standard.ID }}" style="display: inline;">
			<button type="submit" class="btn btn-success">Publish</button>
		</form>
	{{ end }}

	<form method="post" action="manage/{{ .Standard.ID }}/delete" style="display: inline;">
		<button type="submit" class="btn btn-outline-danger">Delete</button>
	</form>

	<h2>History</h2>

	<table class="table table-sm">
		<thead>
			<tr><th>Action</th><th>By</th><th>When</th><th>Comments</th></tr>
		</thead>
		<tbody>
			{{ range .History }}
				<tr>
					<td>{{ .Action }}</td>
					<td>{{ .ActionBy }}</td>
					<td>{{ $.FormatDateTime .ActionAt }}</td>
					<td>{{ .Comments }}</td>
				</tr>
			{{ end }}
		</tbody>
	</table>`)

type manageData struct {
	*Route
	Standard   *core.Standard
	Timeline   *core.Timeline
	History    []core.HistoryEvent
	Rejection  *core.HistoryEvent
	Mine       bool
	CanRevert  bool
	CanPublish bool
}

func manage(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	std, err := r.db.GetStandard(params.ByName("id"))
	if err != nil {
		return err
	}

	timeline, err := r.db.Timeline(std.ID)
	if err != nil {
		return err
	}

	history, err := r.db.History(std.ID)
	if err != nil {
		return err
	}

	var rejection *core.HistoryEvent
	if std.Stage == core.StageRejected {
		rejection, err = r.db.LatestRejection(std.ID)
		if err != nil {
			return err
		}
	}

	canRevert := false
	switch std.Stage {
	case core.StagePublished, core.StageApproved, core.StageRejected:
		canRevert = true
	}

	return manageTmpl.Execute(w, &manageData{
		Route:      r,
		Standard:   std,
		Timeline:   timeline,
		History:    history,
		Rejection:  rejection,
		Mine:       std.Creator == r.User.Email(),
		CanRevert:  canRevert,
		CanPublish: r.IsApprover() && std.Stage == core.StageApproved,
	})
}

func manageRevert(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	id := params.ByName("id")

	if err := r.db.RevertToDraft(id, r.Actor()); err != nil {
		r.Danger(err)
	} else {
		r.Success("Reverted to draft")
	}
	r.SeeOther("/manage/%s", id)
	return nil
}

// manageDelete retires the standard but keeps its record and history.
func manageDelete(w http.ResponseWriter, req *http.Request, r *Route, params httprouter.Params) error {

	id := params.ByName("id")

	if err := r.db.SoftDelete(id, r.Actor()); err != nil {
		r.Danger(err)
		r.SeeOther("/manage/%s", id)
		return nil
	}

	r.Success("Standard deleted")
	r.SeeOther("/dashboard")
	return nil
}
