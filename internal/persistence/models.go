package persistence

import "time"

// EmergencyContact is one row of an event's ordered contact list.
type EmergencyContact struct {
	Role  string `json:"role"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Event is the root record of a shared schedule. Slug is unique and never changes.
type Event struct {
	ID                    string
	Slug                  string
	Title                 string
	Date                  string
	Venue                 string
	EditPassword          string
	Announcement          *string
	AnnouncementUpdatedAt *time.Time
	EmergencyContacts     []EmergencyContact
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ScheduleItem is one timeline row. Times are stored as HH:MM:SS, Target and
// Assignee as comma-joined label sets, MaterialIDs as comma-joined material ids.
type ScheduleItem struct {
	ID          string
	EventID     string
	StartTime   string
	EndTime     *string
	Title       string
	Location    *string
	Note        *string
	Target      string
	Assignee    *string
	Emoji       string
	SortOrder   int
	MaterialIDs *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EventMaterial is a titled link attached to an event.
type EventMaterial struct {
	ID        string
	EventID   string
	Title     string
	URL       string
	SortOrder int
	CreatedAt time.Time
}
