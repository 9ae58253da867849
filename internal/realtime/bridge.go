package realtime

import (
	"context"

	"github.com/phishguard/phishguard/internal/alerts"
)

// Bridge forwards alert store and presenter changes to connected dashboards.
type Bridge struct {
	hub *Hub
}

// NewBridge constructs a bridge over the supplied hub.
func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

// OnStoreEvent is an alerts.Observer translating store mutations into
// realtime messages.
func (b *Bridge) OnStoreEvent(event alerts.Event) {
	switch event.Type {
	case alerts.EventAdded:
		b.hub.Broadcast(Message{Event: EventAlertCreated, Data: alertPayload(event)})
	case alerts.EventRead:
		b.hub.Broadcast(Message{Event: EventAlertRead, Data: alertPayload(event)})
	case alerts.EventRemoved:
		b.hub.Broadcast(Message{Event: EventAlertDeleted, Data: removalPayload(event)})
	case alerts.EventCleared:
		b.hub.Broadcast(Message{Event: EventAlertsCleared, Data: removalPayload(event)})
	case alerts.EventSwept:
		b.hub.Broadcast(Message{Event: EventAlertsSwept, Data: removalPayload(event)})
	}
}

// OnPresenterEvent is an alerts.PresenterListener mirroring the transient
// notification surface to dashboards.
func (b *Bridge) OnPresenterEvent(event alerts.PresenterEvent) {
	switch event.Type {
	case alerts.PresenterShown:
		b.hub.Broadcast(Message{Event: EventNotificationShown, Data: event.Notification})
	case alerts.PresenterDismissed:
		b.hub.Broadcast(Message{Event: EventNotificationHidden, Data: event.Notification})
	}
}

func alertPayload(event alerts.Event) map[string]any {
	payload := map[string]any{"unread": event.Unread}
	if event.Record != nil {
		payload["alert"] = event.Record
	}
	return payload
}

func removalPayload(event alerts.Event) map[string]any {
	return map[string]any{
		"removed_ids": event.RemovedIDs,
		"unread":      event.Unread,
	}
}

// HubCue plays the audible alert cue by asking connected dashboards to play
// it. Playback is best effort; a dashboard with no audio permission simply
// ignores the message.
type HubCue struct {
	hub   *Hub
	sound string
}

// NewHubCue constructs a HubCue. The sound name selects the clip on the
// dashboard side.
func NewHubCue(hub *Hub, sound string) *HubCue {
	if sound == "" {
		sound = "alert"
	}
	return &HubCue{hub: hub, sound: sound}
}

// Play implements alerts.Cue.
func (c *HubCue) Play(context.Context) error {
	c.hub.Broadcast(Message{Event: EventCuePlay, Data: map[string]any{"sound": c.sound}})
	return nil
}
