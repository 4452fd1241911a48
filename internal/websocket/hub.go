package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/pkg/session"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Frame is what display clients receive.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// clusterMessage carries a frame between station instances over Redis.
type clusterMessage struct {
	Origin string          `json:"origin"`
	Frame  json.RawMessage `json:"frame"`
}

type Hub struct {
	// Connected display clients keyed by connection id.
	clients map[uuid.UUID]*Client

	register     chan *Client
	unregister   chan *Client
	done         chan struct{}
	redisStopped chan struct{}

	mu sync.RWMutex

	// Latest frame per type, replayed to new clients.
	latest map[string][]byte

	// Optional Redis connection for fan-out across instances.
	rdb      *redis.Client
	channel  string
	instance string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
		redisStopped: make(chan struct{}),
		clients:      make(map[uuid.UUID]*Client),
		latest:       make(map[string][]byte),
		rdb:          rdb,
		channel:      constant.DisplayRedisChannel,
		instance:     uuid.NewString(),
		logger:       log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			for _, frame := range h.latest {
				client.Send <- frame
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info(constant.DisplayLoggerModule, "Display registered", map[string]interface{}{
				"client_id": client.ID,
				"clients":   count,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
				h.logger.Info(constant.DisplayLoggerModule, "Display unregistered", map[string]interface{}{
					"client_id": client.ID,
				})
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastSession is a session.Listener.
func (h *Hub) BroadcastSession(snap session.Snapshot) {
	h.Broadcast(Frame{Type: constant.DisplayFrameTypeSession, Data: snap})
}

// BroadcastTorch is a session.TorchListener.
func (h *Hub) BroadcastTorch(status session.TorchStatus) {
	h.Broadcast(Frame{Type: constant.DisplayFrameTypeTorch, Data: status})
}

// Broadcast sends a frame to every local display and, when Redis is
// configured, to the other station instances.
func (h *Hub) Broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error(constant.DisplayLoggerModule, "Failed to encode frame", map[string]interface{}{
			"type":  frame.Type,
			"error": err.Error(),
		})
		return
	}

	h.deliver(frame.Type, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.instance, Frame: data})
		if err := h.rdb.Publish(context.Background(), h.channel, payload).Err(); err != nil {
			h.logger.Warn(constant.DisplayLoggerModule, "Failed to publish frame to Redis", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

func (h *Hub) deliver(frameType string, data []byte) {
	var slow []*Client

	h.mu.Lock()
	h.latest[frameType] = data
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.Unlock()

	for _, client := range slow {
		h.logger.Warn(constant.DisplayLoggerModule, "Client send buffer full, disconnecting", map[string]interface{}{
			"client_id": client.ID,
		})
		go h.remove(client)
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount reports how many displays are connected to this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	defer close(h.redisStopped)
	pubsub := h.rdb.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	for {
		var msg *redis.Message
		var ok bool
		select {
		case <-ctx.Done():
			return
		case msg, ok = <-messages:
			if !ok {
				return
			}
		}

		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn(constant.DisplayLoggerModule, "Redis message parse error", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		if payload.Origin == h.instance {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(payload.Frame, &frame); err != nil {
			continue
		}
		h.deliver(frame.Type, payload.Frame)
	}
}
