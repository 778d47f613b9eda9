package events

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/goccy/go-json"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev models.Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Type != models.EventTicketOpened || ev.Key != "uuid-1" {
			return errors.New("unexpected event")
		}
		if ev.At.IsZero() {
			return errors.New("timestamp not set")
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewPublisherWithProducer(producer, "agencia.events")
	ctx := context.WithValue(context.Background(), log.RequestIDKey, "req-1")

	require.NoError(t, pub.Publish(ctx, models.Event{Type: models.EventTicketOpened, Key: "uuid-1"}))

	err := pub.Publish(ctx, models.Event{Type: models.EventTicketClosed, Key: "uuid-1"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)

	require.NoError(t, pub.Close())
}

func TestNopPublisher(t *testing.T) {
	pub := NewNop()
	assert.NoError(t, pub.Publish(context.Background(), models.Event{Type: models.EventLeadCreated}))
	assert.NoError(t, pub.Close())
}
