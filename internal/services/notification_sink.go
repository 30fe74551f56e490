package services

// NotificationEvent describes an invitation signal emitted after a grant
// commit. Delivery is fire-and-forget; producers never wait on it.
type NotificationEvent struct {
	Type         string
	UserIDs      []string
	ActorID      string
	ResourceID   string
	ResourceName string
}

// NotificationSink receives propagation events for asynchronous delivery.
// A nil sink is valid and drops events.
type NotificationSink interface {
	Notify(event NotificationEvent)
}

func notify(sink NotificationSink, event NotificationEvent) {
	if sink == nil || len(event.UserIDs) == 0 {
		return
	}
	sink.Notify(event)
}
