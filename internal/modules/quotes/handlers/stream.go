package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/niftybulk/papertrade/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
)

const writeWait = 5 * time.Second

// Frame is one message on the quote stream
type Frame struct {
	Type   string              `json:"type"` // snapshot, tick
	Time   time.Time           `json:"time"`
	Quotes []domain.Instrument `json:"quotes"`
}

// HandleStream handles GET /api/quotes/stream (WebSocket).
// Each connection owns one simulator subscription for as long as it is open.
// ?format=msgpack switches from JSON text frames to msgpack binary frames.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	binary := r.URL.Query().Get("format") == "msgpack"

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	// The client never sends; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	// Only the latest snapshot matters; a slow client skips ticks
	updates := make(chan []domain.Instrument, 1)
	unsubscribe := h.simulator.Subscribe(func(items []domain.Instrument) {
		select {
		case updates <- items:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- items:
			default:
			}
		}
	})
	defer unsubscribe()

	h.log.Debug().Bool("msgpack", binary).Msg("Quote stream client connected")

	if err := h.writeFrame(ctx, conn, binary, Frame{Type: "snapshot", Time: time.Now(), Quotes: h.store.Snapshot()}); err != nil {
		h.log.Debug().Err(err).Msg("Failed to send initial snapshot")
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Msg("Quote stream client disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case items := <-updates:
			if err := h.writeFrame(ctx, conn, binary, Frame{Type: "tick", Time: time.Now(), Quotes: items}); err != nil {
				h.log.Debug().Err(err).Msg("Quote stream write failed")
				return
			}
		}
	}
}

func (h *Handler) writeFrame(ctx context.Context, conn *websocket.Conn, binary bool, frame Frame) error {
	msgType := websocket.MessageText
	var data []byte
	var err error

	if binary {
		msgType = websocket.MessageBinary
		data, err = EncodeMsgpack(frame)
	} else {
		data, err = json.Marshal(frame)
	}
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	return conn.Write(writeCtx, msgType, data)
}

// EncodeMsgpack encodes a frame with the same field names as the JSON form
func EncodeMsgpack(frame Frame) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(frame); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMsgpack decodes a frame produced by EncodeMsgpack
func DecodeMsgpack(data []byte) (Frame, error) {
	var frame Frame
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	err := dec.Decode(&frame)
	return frame, err
}
