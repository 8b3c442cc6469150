package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains candidate_id -> set of watching proctor connections and
// broadcasts ingested events to them. Uses Redis pub/sub for horizontal
// scaling: local broadcast + publish to Redis.
type Hub struct {
	// candidateID -> map[clientID]*Client
	rooms    map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per candidate
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishCandidateEvent(candidateID string, event string, payload []byte) error
}

// RedisSubscriber subscribes to candidate channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeCandidate(candidateID string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a candidate room. Starts the Redis subscription
// for this candidate if it is the first watcher.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.CandidateID] == nil {
		h.rooms[c.CandidateID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeCandidate(c.CandidateID, func(event string, payload []byte) {
				h.broadcastLocal(c.CandidateID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.CandidateID] = cancel
			}
		}
	}
	h.rooms[c.CandidateID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("proctor watching candidate", zap.String("client_id", c.ID), zap.String("candidate_id", c.CandidateID))
}

// Unregister removes a client from a candidate room. Cancels the Redis
// subscription when the last watcher leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.CandidateID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.CandidateID)
			if cancel, ok := h.subs[c.CandidateID]; ok {
				cancel()
				delete(h.subs, c.CandidateID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("proctor stopped watching candidate", zap.String("client_id", c.ID), zap.String("candidate_id", c.CandidateID))
}

func (h *Hub) broadcastLocal(candidateID string, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.rooms[candidateID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToCandidate delivers an event to every watcher of the candidate.
// With Redis configured it publishes only: the subscription callback performs
// the broadcast once per instance, including this one, so local watchers
// never see duplicates. Without Redis it broadcasts locally.
func (h *Hub) BroadcastToCandidate(candidateID string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishCandidateEvent(candidateID, event, data)
		return
	}
	h.broadcastLocal(candidateID, event, json.RawMessage(data))
}

// WatcherCount returns the number of connected watchers for a candidate.
func (h *Hub) WatcherCount(candidateID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[candidateID])
}
