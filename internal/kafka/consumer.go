package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BookingEventHandler processes one decoded event. Returning an error stops
// consumption without committing the message.
type BookingEventHandler func(ctx context.Context, event BookingEvent) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
	log    *zap.Logger
}

func NewConsumer(brokers []string, groupID, topic string, log *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			StartOffset:       kafka.FirstOffset,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		log: logger.OrNop(log),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// ConsumeBookingEvents reads booking events until ctx ends. Messages that
// do not decode are logged and committed so they are not redelivered.
func (c *Consumer) ConsumeBookingEvents(ctx context.Context, handle BookingEventHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		event, err := DecodeBookingEvent(msg)
		if err != nil {
			c.log.Warn("skip undecodable booking event",
				zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		} else if err := handle(ctx, event); err != nil {
			return fmt.Errorf("handle %s for booking %d: %w", event.Type, event.BookingID, err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

// DecodeBookingEvent unpacks a message written by Producer.Publish.
func DecodeBookingEvent(msg kafka.Message) (BookingEvent, error) {
	var event BookingEvent
	err := json.Unmarshal(msg.Value, &event)
	return event, err
}
