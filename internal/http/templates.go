package http

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/timeline"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("pages").Funcs(template.FuncMap{
	"eventPath":  eventPath,
	"filterHref": filterHref,
	"joinLabels": func(labels []string) string { return strings.Join(labels, ", ") },
	"clock":      clock,
	"itemForm":   newItemFormView,
}).ParseFS(templateFS, "templates/*.html"))

// pageData is the single model handed to every page template.
type pageData struct {
	Title        string
	Message      string
	Error        string
	Slug         string
	Scope        string
	Unlocked     bool
	Event        application.Event
	View         application.EventView
	ShareURL     string
	QRCode       template.URL
	ViewerHref   string
	PrintHref    string
	CalendarHref string
	APIHref      string
	Emoji        []string
	ContactRows  []contactRow
}

type contactRow struct {
	Index int
	application.Contact
}

// blankContactRows is how many empty rows the editor offers below the
// existing contacts.
const blankContactRows = 3

func contactRows(contacts []application.Contact) []contactRow {
	rows := make([]contactRow, 0, len(contacts)+blankContactRows)
	for i, c := range contacts {
		rows = append(rows, contactRow{Index: i, Contact: c})
	}
	for i := 0; i < blankContactRows; i++ {
		rows = append(rows, contactRow{Index: len(contacts) + i})
	}
	return rows
}

// render executes name into a buffer first so template failures still produce
// a clean 500.
func (r responder) render(ctx context.Context, w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to render page", "template", name, "error", err)
		http.Error(w, localizedStatusMessage(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// eventPath builds /e/{slug}/part/... with every segment escaped. Empty parts
// are skipped, so eventPath(slug, "") is the viewer.
func eventPath(slug string, parts ...string) string {
	var b strings.Builder
	b.WriteString("/e/")
	b.WriteString(url.PathEscape(slug))
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(part))
	}
	return b.String()
}

func apiPath(slug string) string {
	return "/api/events/" + url.PathEscape(slug)
}

// withFilter appends the ?t= query for filter to path.
func withFilter(path string, filter []string) string {
	if query := timeline.FilterQuery(filter); query != "" {
		return path + "?" + query
	}
	return path
}

// filterHref is the viewer link that toggles label in the current filter.
func filterHref(slug string, filter []string, label string) string {
	next := make([]string, 0, len(filter)+1)
	found := false
	for _, f := range filter {
		if f == label {
			found = true
			continue
		}
		next = append(next, f)
	}
	if !found {
		next = append(next, label)
	}
	return withFilter(eventPath(slug), next)
}

// clock renders the HH:MM part of a timestamp. It accepts time.Time and
// *time.Time because announcement timestamps are optional.
func clock(value any) string {
	switch t := value.(type) {
	case time.Time:
		return t.Format("15:04")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("15:04")
	default:
		return ""
	}
}

type materialOption struct {
	ID     string
	Title  string
	Active bool
}

// itemFormView feeds the shared item form used for both new and existing items.
type itemFormView struct {
	Action    string
	Existing  bool
	Start     string
	End       string
	Emoji     string
	Title     string
	Location  string
	Note      string
	SortOrder int
	Targets   []application.LabelView
	Assignees []application.LabelView
	Materials []materialOption
}

func newItemFormView(page pageData, item any) itemFormView {
	form := itemFormView{Action: eventPath(page.Slug, "items")}
	var current application.ItemView
	if iv, ok := item.(application.ItemView); ok {
		current = iv
		form.Action = eventPath(page.Slug, "items", iv.ID)
		form.Existing = true
		form.Start = iv.StartText
		form.End = iv.EndText
		form.Emoji = iv.Emoji
		form.Title = iv.Title
		form.Location = iv.Location
		form.Note = iv.Note
		form.SortOrder = iv.SortOrder
	}

	form.Targets = labelOptions(page.View.Targets, current.Targets)
	form.Assignees = labelOptions(page.View.Assignees, current.Assignees)
	for _, m := range page.View.Materials {
		form.Materials = append(form.Materials, materialOption{
			ID:     m.ID,
			Title:  m.Title,
			Active: contains(current.MaterialIDs, m.ID),
		})
	}
	return form
}

func labelOptions(catalogue []application.LabelView, selected []string) []application.LabelView {
	out := make([]application.LabelView, 0, len(catalogue))
	for _, label := range catalogue {
		out = append(out, application.LabelView{
			Name:   label.Name,
			Color:  label.Color,
			Active: contains(selected, label.Name),
		})
	}
	return out
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
