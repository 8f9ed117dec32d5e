package stream

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "trailhunt:"
	channelSuffix = ":events"
)

// Hub fans messages out to websocket clients grouped by topic. With redis
// configured every message goes through redis so each instance delivers it
// exactly once; otherwise delivery is local.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	cancel context.CancelFunc
	ready  chan struct{}
	done   chan struct{}
}

type Client struct {
	Topic string
	Send  chan []byte
	once  sync.Once
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.subscribeRedis(ctx)
	} else {
		close(h.ready)
		close(h.done)
	}
	return h
}

const routeTopicPrefix = "route:"

// RouteTopic is the topic carrying completion events of a route.
func RouteTopic(routeID string) string {
	return routeTopicPrefix + routeID
}

// ValidTopic reports whether clients may subscribe to topic. Only route
// feeds are public.
func ValidTopic(topic string) bool {
	return strings.HasPrefix(topic, routeTopicPrefix) && len(topic) > len(routeTopicPrefix)
}

func (h *Hub) Register(topic string) *Client {
	client := &Client{
		Topic: topic,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = map[*Client]struct{}{}
	}
	h.clients[topic][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if topicClients, ok := h.clients[client.Topic]; ok {
		delete(topicClients, client)
		if len(topicClients) == 0 {
			delete(h.clients, client.Topic)
		}
	}
	h.mu.Unlock()
	client.once.Do(func() { close(client.Send) })
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

func (h *Hub) Broadcast(topic string, payload []byte) {
	if h.redis == nil {
		h.deliver(topic, payload)
		return
	}
	err := h.redis.Publish(context.Background(), redisChannel(topic), payload).Err()
	if err != nil {
		log.Printf("redis publish error: %v", err)
	}
}

func (h *Hub) BroadcastJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(topic, payload)
	return nil
}

// Close stops the redis subscriber and waits for it to exit.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	<-h.done
}

func (h *Hub) deliver(topic string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[topic] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	defer close(h.done)

	pubsub := h.redis.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
	defer pubsub.Close()

	_, err := pubsub.Receive(ctx)
	close(h.ready)
	if err != nil {
		log.Printf("redis subscribe error: %v", err)
		return
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if topic := topicFromChannel(msg.Channel); topic != "" {
				h.deliver(topic, []byte(msg.Payload))
			}
		}
	}
}

func redisChannel(topic string) string {
	return channelPrefix + topic + channelSuffix
}

func topicFromChannel(ch string) string {
	// trailhunt:{topic}:events
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
