package application

import "context"

// Change topics published after successful mutations. Viewers refetch the whole
// event regardless of topic; the topic only feeds logs and the broadcast panel.
const (
	TopicEvent        = "event"
	TopicSchedule     = "schedule"
	TopicMaterials    = "materials"
	TopicAnnouncement = "announcement"
	TopicContacts     = "contacts"
)

// ChangeNotifier fans a change out to every open viewer of an event.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, slug, topic string)
}

type noopNotifier struct{}

func (noopNotifier) NotifyChange(context.Context, string, string) {}

func defaultNotifier(notifier ChangeNotifier) ChangeNotifier {
	if notifier == nil {
		return noopNotifier{}
	}
	return notifier
}
