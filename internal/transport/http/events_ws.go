package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gmpapad/phronesis-engine/internal/app"
)

const backlogSize = 50

// EventsFeed streams recorded events to analytics consumers: a backlog
// of recent rows first, then live events as the engine records them.
type EventsFeed struct {
	events   *app.Recorder
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

func NewEventsFeed(events *app.Recorder, log *zap.SugaredLogger) *EventsFeed {
	return &EventsFeed{
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type feedMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades the connection and streams events until the client
// hangs up. The feed is read-only; inbound messages are discarded.
func (f *EventsFeed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warnw("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// Subscribe before sending the backlog so an event recorded in
	// between buffers on the channel instead of slipping through.
	updates, cancel := f.events.Subscribe()
	defer cancel()

	backlog, err := f.events.Recent(r.Context(), backlogSize)
	if err != nil {
		_ = conn.WriteJSON(feedMessage{Type: "error", Payload: map[string]string{"message": "backlog unavailable"}})
		return
	}
	if err := conn.WriteJSON(feedMessage{Type: "backlog", Payload: backlog}); err != nil {
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for event := range updates {
			if err := conn.WriteJSON(feedMessage{Type: "event", Payload: event}); err != nil {
				return
			}
		}
	}()

	// Drain the connection to observe the client closing.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	<-writerDone
}
