package server

import (
	"net/http"

	"mediatag/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// positionEvent is one message from the transport layer's position stream.
// Auto distinguishes the automatically advancing cursor from a manual move
// or scrub; Duration, when positive, reports the media length; the control
// events pause/resume auto-advance without moving the cursor.
type positionEvent struct {
	Position float64 `json:"position"`
	Auto     bool    `json:"auto"`
	Duration float64 `json:"duration,omitempty"`
	Event    string  `json:"event,omitempty"` // "", "play", "pause"
}

// PlaybackSocketHandler feeds the item's playback engine from a websocket
// position stream and answers each event with the active segment's display
// text, including skip jumps. The position stream is high-frequency;
// engine updates are idempotent under repeated identical input.
func (h *APIHandler) PlaybackSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	key := mux.Vars(r)["key"]
	connID := uuid.New().String()
	logger.Debug("playback stream opened",
		logger.String("key", key), logger.String("conn", connID))

	for {
		var ev positionEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("playback stream error",
					logger.String("conn", connID), logger.ErrorField(err))
			}
			return
		}

		if ev.Duration > 0 {
			h.catalog.SetMediaDuration(key, ev.Duration)
		}

		switch ev.Event {
		case "play":
			h.catalog.Play(key)
		case "pause":
			h.catalog.Pause(key)
		}

		var update interface{}
		if ev.Auto {
			update = h.catalog.Tick(key, ev.Position)
		} else {
			update = h.catalog.Seek(key, ev.Position)
		}

		if err := conn.WriteJSON(update); err != nil {
			logger.Warn("playback stream write failed",
				logger.String("conn", connID), logger.ErrorField(err))
			return
		}
	}
}
