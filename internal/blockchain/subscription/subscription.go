package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
)

//go:generate mockgen -destination=mocks/mocks.go -package=subscriptionmocks . Subscriber,Subscription

type (
	// Subscriber opens push feeds of ledger events over a websocket.
	Subscriber interface {
		Subscribe(ctx context.Context, eventType string) (Subscription, error)
	}

	// Subscription delivers the events of one type until it is closed or the connection drops.
	// A dropped subscription is not reconnected; Done is closed and Err reports why.
	Subscription interface {
		Events() <-chan *event.RawEvent
		Done() <-chan struct{}
		Err() error
		Close() error
	}

	Dialer interface {
		DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
	}

	Params struct {
		fx.In
		fxparams.Params
		Dialer Dialer `optional:"true"` // Injected by unit test.
	}

	subscriberImpl struct {
		config  *config.SubscriptionConfig
		logger  *zap.Logger
		metrics tally.Scope
		dialer  Dialer
	}

	subscriptionImpl struct {
		logger    *zap.Logger
		conn      *websocket.Conn
		id        uint64
		events    chan *event.RawEvent
		send      chan []byte
		done      chan struct{}
		closeOnce sync.Once
		mu        sync.Mutex
		err       error
		received  tally.Counter
	}

	request struct {
		JSONRPC string `json:"jsonrpc"`
		ID      uint64 `json:"id"`
		Method  string `json:"method"`
		Params  []any  `json:"params"`
	}

	response struct {
		ID     uint64          `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *responseError  `json:"error"`
	}

	responseError struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}

	notification struct {
		Method string `json:"method"`
		Params struct {
			Subscription uint64          `json:"subscription"`
			Result       *event.RawEvent `json:"result"`
		} `json:"params"`
	}

	eventFilter struct {
		MoveEventType string `json:"MoveEventType"`
	}
)

const (
	methodSubscribe   = "suix_subscribeEvent"
	methodUnsubscribe = "suix_unsubscribeEvent"

	subscribeRequestID   = 1
	unsubscribeRequestID = 2

	eventBufferSize  = 64
	writeWait        = 10 * time.Second
	maxMessageSize   = 1 << 20
	defaultHandshake = 10 * time.Second
)

// ErrDisabled is returned when no websocket endpoint is configured.
var ErrDisabled = xerrors.New("subscription endpoint is not configured")

func New(params Params) Subscriber {
	dialer := params.Dialer
	if dialer == nil {
		handshake := params.Config.Ledger.Subscription.HandshakeTimeout
		if handshake <= 0 {
			handshake = defaultHandshake
		}
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshake,
		}
	}

	return &subscriberImpl{
		config:  &params.Config.Ledger.Subscription,
		logger:  log.WithPackage(params.Logger),
		metrics: params.Metrics.SubScope("subscription"),
		dialer:  dialer,
	}
}

func (s *subscriberImpl) Subscribe(ctx context.Context, eventType string) (Subscription, error) {
	if s.config.Url == "" {
		return nil, ErrDisabled
	}

	logger := s.logger.With(zap.String("event_type", eventType))
	conn, _, err := s.dialer.DialContext(ctx, s.config.Url, nil)
	if err != nil {
		s.metrics.Counter("dial_error").Inc(1)
		return nil, xerrors.Errorf("failed to dial %v: %w", eventType, err)
	}

	conn.SetReadLimit(maxMessageSize)
	id, err := handshake(ctx, conn, eventType)
	if err != nil {
		_ = conn.Close()
		return nil, xerrors.Errorf("failed to subscribe to %v: %w", eventType, err)
	}

	sub := &subscriptionImpl{
		logger:   logger.With(zap.Uint64("subscription", id)),
		conn:     conn,
		id:       id,
		events:   make(chan *event.RawEvent, eventBufferSize),
		send:     make(chan []byte, 1),
		done:     make(chan struct{}),
		received: s.metrics.Counter("received"),
	}

	go sub.readPump()
	go sub.writePump(s.config.PingInterval)

	s.metrics.Counter("subscribed").Inc(1)
	sub.logger.Info("subscribed to events")
	return sub, nil
}

func handshake(ctx context.Context, conn *websocket.Conn, eventType string) (uint64, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
		defer func() {
			_ = conn.SetWriteDeadline(time.Time{})
			_ = conn.SetReadDeadline(time.Time{})
		}()
	}

	if err := conn.WriteJSON(&request{
		JSONRPC: "2.0",
		ID:      subscribeRequestID,
		Method:  methodSubscribe,
		Params:  []any{eventFilter{MoveEventType: eventType}},
	}); err != nil {
		return 0, xerrors.Errorf("failed to send subscribe request: %w", err)
	}

	var resp response
	if err := conn.ReadJSON(&resp); err != nil {
		return 0, xerrors.Errorf("failed to read subscribe response: %w", err)
	}

	if resp.Error != nil {
		return 0, xerrors.Errorf("subscribe rejected (code=%v): %v", resp.Error.Code, resp.Error.Message)
	}

	var id uint64
	if err := json.Unmarshal(resp.Result, &id); err != nil {
		return 0, xerrors.Errorf("invalid subscription id %s: %w", resp.Result, err)
	}

	return id, nil
}

func (s *subscriptionImpl) Events() <-chan *event.RawEvent {
	return s.events
}

func (s *subscriptionImpl) Done() <-chan struct{} {
	return s.done
}

func (s *subscriptionImpl) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close unsubscribes and closes the connection. It is safe to call more than once.
func (s *subscriptionImpl) Close() error {
	s.closeOnce.Do(func() {
		data, err := json.Marshal(&request{
			JSONRPC: "2.0",
			ID:      unsubscribeRequestID,
			Method:  methodUnsubscribe,
			Params:  []any{s.id},
		})
		if err == nil {
			select {
			case s.send <- data:
			default:
			}
		}

		s.shutdown(nil)
	})

	return nil
}

func (s *subscriptionImpl) shutdown(err error) {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return
	default:
	}

	s.err = err
	close(s.done)
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("subscription dropped", zap.Error(err))
	}
}

func (s *subscriptionImpl) readPump() {
	defer close(s.events)
	defer func() { _ = s.conn.Close() }()

	for {
		var msg notification
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.shutdown(xerrors.Errorf("failed to read from subscription: %w", err))
			return
		}

		if msg.Method != methodSubscribe || msg.Params.Subscription != s.id || msg.Params.Result == nil {
			continue
		}

		s.received.Inc(1)
		select {
		case s.events <- msg.Params.Result:
		case <-s.done:
			return
		}
	}
}

func (s *subscriptionImpl) writePump(pingInterval time.Duration) {
	var ping <-chan time.Time
	if pingInterval > 0 {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-s.done:
			s.flush()
			_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			_ = s.conn.Close()
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.shutdown(xerrors.Errorf("failed to write to subscription: %w", err))
			}
		case <-ping:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.shutdown(xerrors.Errorf("failed to ping subscription: %w", err))
			}
		}
	}
}

// flush writes a pending unsubscribe request before the connection is closed.
func (s *subscriptionImpl) flush() {
	select {
	case msg := <-s.send:
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = s.conn.WriteMessage(websocket.TextMessage, msg)
	default:
	}
}
