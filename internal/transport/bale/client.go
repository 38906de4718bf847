package bale

import (
	"context"
	"fmt"

	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sink accepts parsed updates, usually the dispatcher.
type Sink interface {
	Submit(ctx context.Context, upd domain.Update) error
}

type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client talks to the Bale bot API. Bale speaks the Telegram Bot API
// protocol on its own endpoint.
type Client struct {
	bot         *tgbotapi.BotAPI
	api         api
	pollTimeout int
	log         *zap.Logger
}

func New(cfg config.BotConfig, log *zap.Logger) (*Client, error) {
	log = logger.OrNop(log)
	if err := tgbotapi.SetLogger(zap.NewStdLog(log.Named("bale"))); err != nil {
		return nil, fmt.Errorf("set bot logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, cfg.APIEndpoint)
	if err != nil {
		return nil, fmt.Errorf("connect bot api: %w", err)
	}
	bot.Debug = cfg.Debug
	log.Info("bot authorized", zap.String("username", bot.Self.UserName))

	return &Client{bot: bot, api: bot, pollTimeout: cfg.PollTimeout, log: log}, nil
}

// Poll reads updates with long polling until ctx is cancelled.
func (c *Client) Poll(ctx context.Context, sink Sink) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout

	updates := c.bot.GetUpdatesChan(u)
	defer c.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			c.Accept(ctx, upd, sink)
		}
	}
}

// Accept acknowledges what the platform expects an answer for and hands
// the rest to sink.
func (c *Client) Accept(ctx context.Context, upd tgbotapi.Update, sink Sink) {
	if q := upd.PreCheckoutQuery; q != nil {
		if _, err := c.api.Request(tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: q.ID, OK: true}); err != nil {
			c.log.Warn("answer pre-checkout", zap.String("payload", q.InvoicePayload), zap.Error(err))
		}
		return
	}
	if cq := upd.CallbackQuery; cq != nil {
		if _, err := c.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			c.log.Debug("answer callback", zap.Error(err))
		}
	}

	parsed, ok := ToUpdate(upd)
	if !ok {
		c.log.Debug("update ignored", zap.Int("update_id", upd.UpdateID))
		return
	}
	if err := sink.Submit(ctx, parsed); err != nil {
		c.log.Warn("submit update", zap.Int64("user_id", parsed.UserID), zap.Error(err))
	}
}

// Send delivers one outbound message or invoice.
func (c *Client) Send(ctx context.Context, msg domain.Outbound) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(Chattable(msg)); err != nil {
		return fmt.Errorf("send to chat %d: %w", msg.ChatID, err)
	}
	return nil
}
