package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// LogEvent is one program-level log notification from the ledger.
type LogEvent struct {
	Signature string   `json:"signature"`
	Logs      []string `json:"logs"`
}

// Subscription is a live log stream. Logs is closed when the stream
// ends; Err carries the terminal stream error.
type Subscription interface {
	Logs() <-chan LogEvent
	Err() <-chan error
	Close() error
}

// WSSubscriber opens logsSubscribe streams over the ledger's WebSocket
// endpoint.
type WSSubscriber struct {
	wsURL string
}

func NewWSSubscriber(wsURL string) *WSSubscriber {
	return &WSSubscriber{wsURL: wsURL}
}

func (s *WSSubscriber) Subscribe(ctx context.Context, programID string) (Subscription, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("Subscribe: websocket.Dial: %w", err)
	}

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []any{
			map[string]any{"mentions": []string{programID}},
			map[string]any{"commitment": "finalized"},
		},
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("Subscribe: conn.WriteJSON: %w", err)
	}

	sub := &wsSubscription{
		conn: conn,
		logs: make(chan LogEvent),
		errs: make(chan error, 1),
		done: make(chan struct{}),
	}
	go sub.readLoop()

	return sub, nil
}

type wsSubscription struct {
	conn *websocket.Conn
	logs chan LogEvent
	errs chan error

	// done unblocks a pending logs send when the consumer is gone.
	done      chan struct{}
	closeOnce sync.Once
}

func (s *wsSubscription) Logs() <-chan LogEvent { return s.logs }
func (s *wsSubscription) Err() <-chan error     { return s.errs }

func (s *wsSubscription) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.conn.Close()
}

// readLoop decodes notifications until the socket fails. Anything that
// is not a logsNotification (the subscription ack, pings decoded as
// frames) is skipped.
func (s *wsSubscription) readLoop() {
	defer close(s.logs)

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.errs <- fmt.Errorf("readLoop: conn.ReadMessage: %w", err)
			return
		}

		var envelope struct {
			Method string `json:"method"`
			Params struct {
				Result struct {
					Value struct {
						Signature string          `json:"signature"`
						Err       json.RawMessage `json:"err"`
						Logs      []string        `json:"logs"`
					} `json:"value"`
				} `json:"result"`
			} `json:"params"`
		}
		if err := json.Unmarshal(message, &envelope); err != nil {
			log.Printf("readLoop: json.Unmarshal: %v", err)
			continue
		}
		if envelope.Method != "logsNotification" {
			continue
		}

		ev := LogEvent{
			Signature: envelope.Params.Result.Value.Signature,
			Logs:      envelope.Params.Result.Value.Logs,
		}
		select {
		case s.logs <- ev:

		case <-s.done:
			return
		}
	}
}
