package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"backend-trailhunt/internal/completion"

	"github.com/segmentio/kafka-go"
)

const queueSize = 256

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer keyed by route so one route's events stay
// ordered within a partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// Sink forwards completion events to kafka off the request path.
type Sink struct {
	writer    MessageWriter
	queue     chan kafka.Message
	wg        sync.WaitGroup
	closeOnce sync.Once
	timeout   time.Duration
}

func NewSink(w MessageWriter) *Sink {
	s := &Sink{
		writer:  w,
		queue:   make(chan kafka.Message, queueSize),
		timeout: 5 * time.Second,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// OnCompletion enqueues ev; when the queue is full the event is dropped.
func (s *Sink) OnCompletion(_ context.Context, ev completion.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("events: marshal completion %s: %v", ev.ID, err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(ev.RouteID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
		},
		Time: ev.CompletedAt,
	}
	select {
	case s.queue <- msg:
	default:
		log.Printf("events: queue full, dropping completion %s", ev.ID)
	}
}

func (s *Sink) run() {
	defer s.wg.Done()
	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.writer.WriteMessages(ctx, msg); err != nil {
			log.Printf("events: write completion: %v", err)
		}
		cancel()
	}
}

// Close drains queued events and closes the writer.
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.queue)
		s.wg.Wait()
		err = s.writer.Close()
	})
	return err
}
