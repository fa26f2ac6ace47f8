package http

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gmpapad/phronesis-engine/internal/domain"
)

func TestEventsFeedStreamsBacklogThenLive(t *testing.T) {
	engine := newTestEngine(t)

	// One event already recorded before the client connects.
	engine.recorder.Record(context.Background(), "u1", domain.EventLessonStarted, "understanding-arguments", "what-is-an-argument", nil)

	u := "ws" + engine.server.URL[len("http"):] + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var backlog struct {
		Type    string         `json:"type"`
		Payload []domain.Event `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&backlog); err != nil {
		t.Fatalf("read backlog: %v", err)
	}
	if backlog.Type != "backlog" {
		t.Fatalf("expected backlog first, got %s", backlog.Type)
	}
	if len(backlog.Payload) != 1 || backlog.Payload[0].Type != domain.EventLessonStarted {
		t.Fatalf("unexpected backlog %+v", backlog.Payload)
	}

	engine.recorder.Record(context.Background(), "u2", domain.EventQuizAttempted, "understanding-arguments", "what-is-an-argument", map[string]any{"correct": true})

	var live struct {
		Type    string       `json:"type"`
		Payload domain.Event `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&live); err != nil {
		t.Fatalf("read live event: %v", err)
	}
	if live.Type != "event" {
		t.Fatalf("expected live event, got %s", live.Type)
	}
	if live.Payload.UserID != "u2" || live.Payload.Type != domain.EventQuizAttempted {
		t.Fatalf("unexpected live payload %+v", live.Payload)
	}
}
