package ws

import "testing"

func TestHubSubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub()

	hub.Subscribe(1, nil, ConnInfo{ConnID: "a", UserID: 10})
	if hub.SubscriberCount(1) != 1 {
		t.Fatalf("expected one subscriber on the room channel")
	}

	hub.Unsubscribe(1, nil)
	if hub.SubscriberCount(1) != 0 {
		t.Fatalf("expected room channel to be empty")
	}
	if len(hub.rooms) != 0 {
		t.Fatalf("expected empty room channel to be dropped")
	}
}

func TestHubUnsubscribeUnknownRoom(t *testing.T) {
	hub := NewHub()

	hub.Unsubscribe(42, nil)
	if hub.SubscriberCount(42) != 0 {
		t.Fatalf("expected no subscribers for an unknown room")
	}
}

func TestHubTracksConnInfoPerRoom(t *testing.T) {
	hub := NewHub()

	hub.Subscribe(1, nil, ConnInfo{ConnID: "a", UserID: 10})
	info, ok := hub.connInfo[1][nil]
	if !ok {
		t.Fatalf("expected connection info to be recorded")
	}
	if info.UserID != 10 {
		t.Fatalf("expected user id 10, got %d", info.UserID)
	}

	hub.Unsubscribe(1, nil)
	if len(hub.connInfo) != 0 {
		t.Fatalf("expected connection info to be dropped with the channel")
	}
}
