package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrStopped = errors.New("dispatcher stopped")

type Handler interface {
	Handle(ctx context.Context, upd domain.Update) []domain.Outbound
}

type Sender interface {
	Send(ctx context.Context, msg domain.Outbound) error
}

// Dispatcher fans updates out to a fixed set of workers. All updates of a
// user land on the same worker, so they are handled in arrival order.
type Dispatcher struct {
	handler Handler
	sender  Sender
	queues  []chan domain.Update
	done    chan struct{}
	log     *zap.Logger
}

func New(handler Handler, sender Sender, workers, queueSize int, log *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	queues := make([]chan domain.Update, workers)
	for i := range queues {
		queues[i] = make(chan domain.Update, queueSize)
	}
	return &Dispatcher{
		handler: handler,
		sender:  sender,
		queues:  queues,
		done:    make(chan struct{}),
		log:     logger.OrNop(log),
	}
}

// Submit queues upd on its user's worker. It blocks while that worker is
// busy and gives up when ctx ends or the dispatcher has stopped.
func (d *Dispatcher) Submit(ctx context.Context, upd domain.Update) error {
	select {
	case d.shard(upd.UserID) <- upd:
		return nil
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("submit update for user %d: %w", upd.UserID, ctx.Err())
	}
}

// Run starts the workers and blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)

	g, ctx := errgroup.WithContext(ctx)
	for i, q := range d.queues {
		i, q := i, q
		g.Go(func() error {
			d.work(ctx, i, q)
			return nil
		})
	}
	d.log.Info("dispatcher started", zap.Int("workers", len(d.queues)))
	return g.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int, q <-chan domain.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-q:
			d.process(ctx, id, upd)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id int, upd domain.Update) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panic", zap.Int("worker", id), zap.Int64("user_id", upd.UserID), zap.Any("panic", r))
		}
	}()

	for _, msg := range d.handler.Handle(ctx, upd) {
		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.Warn("send reply", zap.Int("worker", id), zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		}
	}
}

func (d *Dispatcher) shard(userID int64) chan domain.Update {
	n := uint64(len(d.queues))
	return d.queues[uint64(userID)%n]
}
