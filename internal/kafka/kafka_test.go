package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecodeBookingEvent(t *testing.T) {
	event := BookingEvent{
		Type:       EventBookingReserved,
		BookingID:  3,
		UserID:     7,
		ProviderID: 2,
		Date:       "1403-01-01",
		Time:       "08:00",
		Service:    "vip",
		OccurredAt: time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	got, err := DecodeBookingEvent(kafka.Message{Value: data})
	require.NoError(t, err)
	assert.Equal(t, event, got)

	_, err = DecodeBookingEvent(kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, nil)
	assert.NotNil(t, p)
	assert.NoError(t, p.Close())
}

func TestConsumer_CloseNil(t *testing.T) {
	var c *Consumer
	assert.NoError(t, c.Close())
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_ConsumeBookingEvents(t *testing.T) {
	good, err := json.Marshal(BookingEvent{Type: EventBookingCancelled, BookingID: 9})
	require.NoError(t, err)

	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte("not json")},
		{Offset: 2, Value: good},
	}}
	c := &Consumer{reader: reader, log: zap.NewNop()}

	var handled []int64
	err = c.ConsumeBookingEvents(context.Background(), func(_ context.Context, e BookingEvent) error {
		handled = append(handled, e.BookingID)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{9}, handled)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumer_HandlerErrorStopsWithoutCommit(t *testing.T) {
	good, err := json.Marshal(BookingEvent{Type: EventBookingReserved, BookingID: 4})
	require.NoError(t, err)

	reader := &fakeReader{msgs: []kafka.Message{{Offset: 7, Value: good}}}
	c := &Consumer{reader: reader, log: zap.NewNop()}

	err = c.ConsumeBookingEvents(context.Background(), func(context.Context, BookingEvent) error {
		return errors.New("down")
	})

	assert.ErrorContains(t, err, "down")
	assert.Empty(t, reader.committed)
}
