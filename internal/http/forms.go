package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/schema"

	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/session"
	"github.com/taisuke/takt/internal/timeline"
)

// maxFormBytes bounds form bodies; the largest form is the contacts table.
const maxFormBytes = 64 << 10

var formDecoder = func() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return decoder
}()

// decodeForm parses the request body into dst.
func decodeForm(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return err
	}
	return formDecoder.Decode(dst, r.PostForm)
}

type eventForm struct {
	Slug     string `schema:"slug"`
	Title    string `schema:"title"`
	Date     string `schema:"date"`
	Venue    string `schema:"venue"`
	Password string `schema:"password"`
}

func (f eventForm) createParams() application.CreateEventParams {
	return application.CreateEventParams{
		Slug:     f.Slug,
		Title:    f.Title,
		Date:     f.Date,
		Venue:    f.Venue,
		Password: f.Password,
	}
}

type unlockForm struct {
	Password string `schema:"password"`
	Scope    string `schema:"scope"`
	Remember bool   `schema:"remember"`
}

func (f unlockForm) params(slug string) application.UnlockParams {
	scope := session.ScopeEdit
	if value := strings.TrimSpace(f.Scope); value != "" {
		scope = session.Scope(value)
	}
	return application.UnlockParams{
		Slug:     slug,
		Password: f.Password,
		Scope:    scope,
		Remember: f.Remember,
	}
}

// itemForm carries chip selections in Targets/Assignees plus free text in
// the New* fields, which accept comma-separated labels.
type itemForm struct {
	Start        string   `schema:"start_time"`
	End          string   `schema:"end_time"`
	Title        string   `schema:"title"`
	Location     string   `schema:"location"`
	Note         string   `schema:"note"`
	Targets      []string `schema:"targets"`
	NewTargets   string   `schema:"new_targets"`
	Assignees    []string `schema:"assignees"`
	NewAssignees string   `schema:"new_assignees"`
	Emoji        string   `schema:"emoji"`
	SortOrder    string   `schema:"sort_order"`
	MaterialIDs  []string `schema:"material_ids"`
}

// input reports false when sort_order is not an integer. A blank order is 0.
func (f itemForm) input() (application.ItemInput, bool) {
	sortOrder := 0
	if value := strings.TrimSpace(f.SortOrder); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return application.ItemInput{}, false
		}
		sortOrder = n
	}
	return application.ItemInput{
		Start:       f.Start,
		End:         f.End,
		Title:       f.Title,
		Location:    f.Location,
		Note:        f.Note,
		Targets:     append(append([]string(nil), f.Targets...), timeline.SplitLabels(f.NewTargets)...),
		Assignees:   append(append([]string(nil), f.Assignees...), timeline.SplitLabels(f.NewAssignees)...),
		Emoji:       strings.TrimSpace(f.Emoji),
		SortOrder:   sortOrder,
		MaterialIDs: f.MaterialIDs,
	}, true
}

type materialForm struct {
	Title     string `schema:"title"`
	URL       string `schema:"url"`
	SortOrder string `schema:"sort_order"`
}

func (f materialForm) input() application.MaterialInput {
	return application.MaterialInput{Title: f.Title, URL: f.URL}
}

// sortOrder returns nil when the field was left blank.
func (f materialForm) sortOrder() (*int, bool) {
	value := strings.TrimSpace(f.SortOrder)
	if value == "" {
		return nil, true
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, false
	}
	return &n, true
}

type contactForm struct {
	Role  string `schema:"role"`
	Name  string `schema:"name"`
	Phone string `schema:"phone"`
}

type contactsForm struct {
	Contacts []contactForm `schema:"contacts"`
}

func (f contactsForm) contacts() []application.Contact {
	out := make([]application.Contact, 0, len(f.Contacts))
	for _, c := range f.Contacts {
		out = append(out, application.Contact{Role: c.Role, Name: c.Name, Phone: c.Phone})
	}
	return out
}

type renameLabelForm struct {
	Kind string `schema:"kind"`
	From string `schema:"from"`
	To   string `schema:"to"`
}

type removeLabelForm struct {
	Kind  string `schema:"kind"`
	Label string `schema:"label"`
}

type announcementForm struct {
	Text string `schema:"text"`
}
