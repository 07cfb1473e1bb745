package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/parse"
)

// ConnState is the lifecycle state of the push connection.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Handshake is sent once the push connection opens.
const Handshake = "ready"

// DefaultReconnectDelay is used when no delay is configured.
const DefaultReconnectDelay = 3 * time.Second

// Handler receives push channel events. Calls are made from the Realtime
// goroutine, one at a time.
type Handler interface {
	OnOpen()
	OnMessage(msg model.PushMessage)
	OnMalformed(err error)
	OnClose(err error)
}

// Realtime keeps a websocket connection to the backend push feed open,
// reconnecting after a fixed delay whenever it closes.
type Realtime struct {
	url       string
	reconnect time.Duration
	dialer    *websocket.Dialer
	handler   Handler

	mu    sync.RWMutex
	state ConnState
}

func NewRealtime(url string, reconnect time.Duration, h Handler) *Realtime {
	if reconnect <= 0 {
		reconnect = DefaultReconnectDelay
	}
	return &Realtime{
		url:       url,
		reconnect: reconnect,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   64 * 1024,
		},
		handler: h,
		state:   StateClosed,
	}
}

// State returns the current connection state.
func (r *Realtime) State() ConnState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Realtime) setState(s ConnState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run connects and reconnects until ctx is cancelled. The wait between a
// close and the next attempt is a timer that cancellation interrupts.
func (r *Realtime) Run(ctx context.Context) {
	log.WithField("url", r.url).Info("starting push connection")
	for {
		r.setState(StateConnecting)
		err := r.session(ctx)
		r.setState(StateClosed)
		if ctx.Err() != nil {
			log.Info("push connection shutting down")
			return
		}

		log.WithError(err).Warnf("push connection closed; reconnecting in %s", r.reconnect)
		r.handler.OnClose(err)

		timer := time.NewTimer(r.reconnect)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("push connection shutting down")
			return
		case <-timer.C:
		}
	}
}

func (r *Realtime) session(ctx context.Context) error {
	conn, _, err := r.dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial push channel: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(Handshake)); err != nil {
		return fmt.Errorf("failed to send handshake: %w", err)
	}

	r.setState(StateOpen)
	r.handler.OnOpen()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("push channel read failed: %w", err)
		}

		msg, err := parse.Message(data)
		if err != nil {
			if errors.Is(err, parse.ErrEmptyPayload) {
				continue
			}
			log.WithError(err).Error("malformed push payload")
			r.handler.OnMalformed(err)
			continue
		}
		r.handler.OnMessage(msg)
	}
}
