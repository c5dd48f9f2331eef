package events

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jankenlabs/jankenchain/internal/obslog"
)

// EventType labels what happened.
type EventType string

const (
	EventBlockCommit    EventType = "block_commit"
	EventTxExecuted     EventType = "tx_executed"
	EventTokenTransfer  EventType = "token_transfer"
	EventMatchCreated   EventType = "match_created"
	EventMatchJoined    EventType = "match_joined"
	EventMoveCommitted  EventType = "move_committed"
	EventMoveRevealed   EventType = "move_revealed"
	EventMatchFinished  EventType = "match_finished"
	EventPrizeWithdrawn EventType = "prize_withdrawn"
	EventMatchCancelled EventType = "match_cancelled"
)

// Event carries a typed payload emitted after a state change. Match events
// always include the short ID plus the fields the transition changed;
// exactly one event is emitted per successful mutating transaction, none on
// failure (failed transactions are rolled back before emission).
type Event struct {
	Type        EventType      `json:"type"`
	TxID        string         `json:"tx_id"`
	BlockHeight int64          `json:"block_height"`
	Data        map[string]any `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously.
// Each handler is guarded by panic recovery so a misbehaving subscriber
// cannot crash the node or halt block production.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := e.handlers[ev.Type]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					obslog.L().Error("event handler panicked",
						zap.String("event_type", string(ev.Type)),
						zap.Any("panic", r))
				}
			}()
			h(ev)
		}()
	}
}
