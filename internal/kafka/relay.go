// Package kafka relays ticket events published by other instances to the
// websocket subscribers connected to this one.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"google.golang.org/grpc/codes"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/events"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/ws"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/usecase"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/util"
)

const (
	consumeTimeout = 10 * time.Second
	retryDelay     = 5 * time.Second
)

var relayPrincipal = &models.Principal{Username: "event-relay", Role: models.RoleAdmin}

type Relay interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Broadcaster is the live fan-out fed by the relay.
type Broadcaster interface {
	usecase.TicketBroadcaster
	Watchers(uuid string) int
}

type relayEvent struct {
	Type    models.EventType `json:"type"`
	Key     string           `json:"key"`
	Payload struct {
		MessageID string `json:"message_id"`
	} `json:"payload"`
}

type relay struct {
	group   sarama.ConsumerGroup
	topic   string
	groupID string
	tickets usecase.TicketUsecase
	hub     Broadcaster
	metrics *prometheus.HistogramVec

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewRelay joins a consumer group of its own so every instance sees every event.
func NewRelay(cfg *config.Config, tickets usecase.TicketUsecase, hub *ws.Hub) (Relay, error) {
	if !cfg.Kafka.Enabled {
		return noopRelay{}, nil
	}

	sc := sarama.NewConfig()
	sc.ClientID = cfg.Kafka.ClientID
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}

	groupID := fmt.Sprintf("%s-relay-%s", cfg.Kafka.ClientID, events.InstanceID())
	group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, groupID, sc)
	if err != nil {
		return nil, fmt.Errorf("new consumer group: %w", err)
	}
	return newRelay(group, cfg.Kafka.Topic, groupID, tickets, hub)
}

func newRelay(group sarama.ConsumerGroup, topic, groupID string, tickets usecase.TicketUsecase, hub Broadcaster) (*relay, error) {
	metrics, err := util.GetHistogramVec("kafka_messages_consumed", "status", "topic", "group")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}
	return &relay{
		group:   group,
		topic:   topic,
		groupID: groupID,
		tickets: tickets,
		hub:     hub,
		metrics: metrics,
		done:    make(chan struct{}),
	}, nil
}

func StartRelay(lc fx.Lifecycle, r Relay) {
	lc.Append(fx.Hook{
		OnStart: r.Start,
		OnStop:  r.Stop,
	})
}

func (r *relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	log.Infof(ctx, "starting event relay for topic %s", r.topic)
	go r.run(runCtx)
	return nil
}

func (r *relay) run(ctx context.Context) {
	defer close(r.done)
	for ctx.Err() == nil {
		err := r.group.Consume(ctx, []string{r.topic}, r)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return
		}
		if err != nil {
			log.Errorw(ctx, "consume events", "topic", r.topic, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
		}
	}
}

func (r *relay) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil
	}
	r.stopped = true
	log.Infof(ctx, "stopping event relay")

	var err error
	if r.cancel != nil {
		r.cancel()
		select {
		case <-r.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if cerr := r.group.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (r *relay) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (r *relay) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (r *relay) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			r.processMessage(sess.Context(), msg)
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

func (r *relay) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	start := time.Now()
	err := r.handle(ctx, msg)
	code := util.ErrorCode(err)
	r.metrics.WithLabelValues(code.String(), msg.Topic, r.groupID).Observe(time.Since(start).Seconds())

	kv := []any{
		"code", code,
		"duration_ms", time.Since(start).Milliseconds(),
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"lag_ms", start.Sub(msg.Timestamp).Milliseconds(),
		"key", string(msg.Key),
	}
	switch {
	case err == nil:
		log.Debugw(ctx, "event relayed", kv...)
	case code == codes.NotFound || code == codes.Canceled:
		log.Warnw(ctx, err.Error(), kv...)
	default:
		log.Errorw(ctx, err.Error(), kv...)
	}
}

func header(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (r *relay) handle(ctx context.Context, msg *sarama.ConsumerMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			stack := make([]byte, 4096)
			length := runtime.Stack(stack, false)
			err = fmt.Errorf("PANIC RECOVER: %+v / %s", rec, string(stack[:length]))
		}
	}()

	// this instance already broadcast its own events
	if header(msg, events.HeaderOrigin) == events.InstanceID() {
		return nil
	}

	var event relayEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	switch event.Type {
	case models.EventTicketOpened, models.EventTicketMessage, models.EventTicketClosed:
	default:
		return nil
	}
	if r.hub.Watchers(event.Key) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, consumeTimeout)
	defer cancel()
	thread, err := r.tickets.GetThread(ctx, relayPrincipal, event.Key)
	if err != nil {
		return fmt.Errorf("get thread %s: %w", event.Key, err)
	}

	if event.Type != models.EventTicketMessage {
		r.hub.BroadcastStatus(ctx, thread.Session)
		return nil
	}
	for _, m := range thread.Messages {
		if m.ID.String() == event.Payload.MessageID {
			r.hub.BroadcastMessage(ctx, thread.Session, m)
			return nil
		}
	}
	return fmt.Errorf("message %s of %s: %w", event.Payload.MessageID, event.Key, models.ErrNotFound)
}

// noopRelay is used when Kafka is disabled
type noopRelay struct{}

func (noopRelay) Start(ctx context.Context) error {
	log.Infof(ctx, "event relay is disabled")
	return nil
}

func (noopRelay) Stop(context.Context) error { return nil }
