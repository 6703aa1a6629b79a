package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/clinicq/clinicq/internal/platform/auth"
)

func newTestClient(channels ...string) *Client {
	return &Client{
		ID:       "test-" + channels[0],
		Channels: channels,
		Send:     make(chan []byte, 8),
	}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := newTestClient(DoctorChannel("d1"))

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.ChannelCount(DoctorChannel("d1")) != 1 {
		t.Errorf("expected 1 subscriber on doctor channel, got %d", hub.ChannelCount(DoctorChannel("d1")))
	}

	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", hub.ClientCount())
	}
	if hub.ChannelCount(DoctorChannel("d1")) != 0 {
		t.Errorf("expected empty doctor channel, got %d", hub.ChannelCount(DoctorChannel("d1")))
	}
}

func TestHub_RegisterIdempotent(t *testing.T) {
	hub := NewHub()
	client := newTestClient(AdminChannel)

	hub.Register(client)
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", hub.ClientCount())
	}

	hub.Unregister(client)
	hub.Unregister(client) // must not panic on closed Send
}

func TestHub_PublishRoutesToChannels(t *testing.T) {
	hub := NewHub()
	doctor := newTestClient(DoctorChannel("d1"))
	patient := newTestClient(PatientChannel("p1"))
	otherPatient := newTestClient(PatientChannel("p2"))
	admin := newTestClient(AdminChannel)
	for _, c := range []*Client{doctor, patient, otherPatient, admin} {
		hub.Register(c)
	}

	err := hub.Publish(context.Background(), Event{
		Type:      "queue.changed",
		Channels:  []string{DoctorChannel("d1"), PatientChannel("p1"), AdminChannel},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, c := range []*Client{doctor, patient, admin} {
		ev := receive(t, c)
		if ev.Type != "queue.changed" {
			t.Errorf("expected queue.changed, got %s", ev.Type)
		}
	}

	select {
	case <-otherPatient.Send:
		t.Error("patient p2 must not receive events for p1")
	default:
	}
}

func TestHub_PublishDedupesOverlappingChannels(t *testing.T) {
	hub := NewHub()
	client := newTestClient(DoctorChannel("d1"), AdminChannel)
	hub.Register(client)

	err := hub.Publish(context.Background(), Event{
		Type:     "queue.changed",
		Channels: []string{DoctorChannel("d1"), AdminChannel},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	receive(t, client)
	select {
	case <-client.Send:
		t.Error("client received duplicate event")
	default:
	}
}

func TestHub_PublishSkipsFullBuffer(t *testing.T) {
	hub := NewHub()
	client := &Client{
		ID:       "slow",
		Channels: []string{AdminChannel},
		Send:     make(chan []byte, 1),
	}
	hub.Register(client)

	for i := 0; i < 3; i++ {
		if err := hub.Publish(context.Background(), Event{
			Type:     "queue.changed",
			Channels: []string{AdminChannel},
		}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	receive(t, client)
	select {
	case <-client.Send:
		t.Error("expected overflow events to be dropped")
	default:
	}
}

func TestHub_PublishPreservesOrder(t *testing.T) {
	hub := NewHub()
	client := newTestClient(PatientChannel("p1"))
	hub.Register(client)

	for i := 0; i < 5; i++ {
		data, _ := json.Marshal(map[string]int{"seq": i})
		if err := hub.Publish(context.Background(), Event{
			Type:     "queue.changed",
			Channels: []string{PatientChannel("p1")},
			Data:     data,
		}); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		ev := receive(t, client)
		var payload map[string]int
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload["seq"] != i {
			t.Fatalf("expected seq %d, got %d", i, payload["seq"])
		}
	}
}

func TestChannelsForIdentity(t *testing.T) {
	tests := []struct {
		role string
		want []string
	}{
		{auth.RolePatient, []string{"patient:u1"}},
		{auth.RoleDoctor, []string{"doctor:u1"}},
		{auth.RoleAdmin, []string{"admin:*"}},
		{"unknown", nil},
	}
	for _, tt := range tests {
		got := ChannelsForIdentity("u1", tt.role)
		if len(got) != len(tt.want) {
			t.Errorf("role %s: expected %v, got %v", tt.role, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("role %s: expected %v, got %v", tt.role, tt.want, got)
			}
		}
	}
}
