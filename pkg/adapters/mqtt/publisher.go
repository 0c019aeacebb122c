package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// Publisher is the subset of paho.Client used to emit events.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
}

// Topic suffixes under <base>/<thread_id>/.
const (
	SnapshotTopic = "snapshot"
	ProgressTopic = "progress"
	TurnTopic     = "turn"
)

// EventPublisher turns lifecycle events into MQTT messages.
// Snapshots are retained so late subscribers see the latest thread state;
// progress messages carry only what changed since the previous snapshot.
type EventPublisher struct {
	pub    Publisher
	base   string
	qos    byte
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]*domain.State
}

// PublisherOption configures an EventPublisher.
type PublisherOption func(*EventPublisher)

// WithQoS sets the delivery guarantee (0, 1 or 2). Default is 1.
func WithQoS(qos byte) PublisherOption {
	return func(p *EventPublisher) { p.qos = qos }
}

// WithLogger sets the logger used to report publish failures.
func WithLogger(l *slog.Logger) PublisherOption {
	return func(p *EventPublisher) { p.logger = l }
}

// NewEventPublisher publishes under baseTopic.
func NewEventPublisher(pub Publisher, baseTopic string, opts ...PublisherOption) *EventPublisher {
	p := &EventPublisher{
		pub:    pub,
		base:   strings.TrimRight(baseTopic, "/"),
		qos:    1,
		logger: logging.NewNop(),
		last:   make(map[string]*domain.State),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Topic returns the topic for a thread and suffix.
func (p *EventPublisher) Topic(threadID, suffix string) string {
	return p.base + "/" + threadID + "/" + suffix
}

// Hooks returns lifecycle hooks that publish snapshots and turn summaries.
func (p *EventPublisher) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSnapshot: func(ctx context.Context, s *domain.State) {
			p.publish(p.Topic(s.ThreadID, SnapshotTopic), true, s)
			if d := p.diff(s); d != nil {
				p.publish(p.Topic(s.ThreadID, ProgressTopic), false, d)
			}
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			p.mu.Lock()
			delete(p.last, e.ThreadID)
			p.mu.Unlock()
			p.publish(p.Topic(e.ThreadID, TurnTopic), false, turnPayload(e))
		},
	}
}

// diff returns the change since the previous snapshot of the same turn.
func (p *EventPublisher) diff(s *domain.State) *domain.StateDiff {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := domain.Diff(p.last[s.ThreadID], s)
	p.last[s.ThreadID] = s.Clone()
	return d
}

type turnMessage struct {
	*domain.TurnEvent
	Error string `json:"error,omitempty"`
}

func turnPayload(e *domain.TurnEvent) turnMessage {
	msg := turnMessage{TurnEvent: e}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}
	return msg
}

func (p *EventPublisher) publish(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("mqtt: encode event", "topic", topic, "err", err)
		return
	}
	token := p.pub.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Warn("mqtt: publish failed", "topic", topic, "err", &PublishTimeoutError{Topic: topic})
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Warn("mqtt: publish failed", "topic", topic, "err", err)
	}
}
