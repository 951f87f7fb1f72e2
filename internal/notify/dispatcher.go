package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"stockwatch/internal/config"
	"stockwatch/internal/metrics"
)

// Dispatcher fans an alert out to every channel. Delivery counts as a
// success when at least one channel accepted it.
type Dispatcher struct {
	Channels []Channel
	Timeout  time.Duration
	Logger   *zap.Logger
}

func (d *Dispatcher) Name() string {
	if d == nil || len(d.Channels) == 0 {
		return "none"
	}
	names := make([]string, 0, len(d.Channels))
	for _, ch := range d.Channels {
		names = append(names, ch.Name())
	}
	return strings.Join(names, "+")
}

func (d *Dispatcher) Send(ctx context.Context, to Recipient, alert Alert) bool {
	if d == nil || len(d.Channels) == 0 {
		return false
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	delivered := false
	for _, ch := range d.Channels {
		err := d.deliver(ctx, ch, to, alert)
		if err != nil {
			metrics.AlertDeliveries.WithLabelValues(ch.Name(), "failure").Inc()
			logger.Warn("alert delivery failed",
				zap.String("channel", ch.Name()),
				zap.String("symbol", alert.Symbol),
				zap.String("recipient", to.Email),
				zap.Error(err),
			)
			continue
		}
		metrics.AlertDeliveries.WithLabelValues(ch.Name(), "success").Inc()
		logger.Info("alert delivered",
			zap.String("channel", ch.Name()),
			zap.String("symbol", alert.Symbol),
			zap.String("recipient", to.Email),
		)
		delivered = true
	}
	return delivered
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, to Recipient, alert Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	return ch.Deliver(ctx, to, alert)
}

// FromConfig builds a dispatcher for the configured channel names. Any
// channel that cannot be built is an error; the log channel is used only
// when named.
func FromConfig(cfg config.NotifyConfig, timeout time.Duration, logger *zap.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Channels) == 0 {
		return nil, errors.New("notify: no channels configured")
	}
	d := &Dispatcher{Timeout: timeout, Logger: logger}
	var errs []error
	for _, name := range cfg.Channels {
		ch, err := buildChannel(name, cfg, timeout, logger)
		if err != nil {
			errs = append(errs, fmt.Errorf("notify channel %s: %w", name, err))
			continue
		}
		d.Channels = append(d.Channels, ch)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return d, nil
}

func buildChannel(name string, cfg config.NotifyConfig, timeout time.Duration, logger *zap.Logger) (Channel, error) {
	client := &http.Client{Timeout: timeout}
	switch name {
	case "notificationapi":
		c := cfg.NotificationAPI
		if c.ClientID == "" || c.ClientSecret == "" || c.NotificationID == "" {
			return nil, errors.New("client_id, client_secret and notification_id are required")
		}
		if c.Timeout > 0 {
			client.Timeout = c.Timeout
		}
		return &NotificationAPI{
			BaseURL:        c.BaseURL,
			ClientID:       c.ClientID,
			ClientSecret:   c.ClientSecret,
			NotificationID: c.NotificationID,
			HTTP:           client,
		}, nil
	case "telegram":
		if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
			return nil, errors.New("bot_token and chat_id are required")
		}
		api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.BotToken, tgbotapi.APIEndpoint, client)
		if err != nil {
			return nil, err
		}
		return &Telegram{API: api, ChatID: cfg.Telegram.ChatID}, nil
	case "slack":
		if cfg.Slack.WebhookURL == "" {
			return nil, errors.New("webhook_url is required")
		}
		return &Slack{WebhookURL: cfg.Slack.WebhookURL, HTTP: client}, nil
	case "webhook":
		if cfg.Webhook.URL == "" {
			return nil, errors.New("url is required")
		}
		if cfg.Webhook.Timeout > 0 {
			client.Timeout = cfg.Webhook.Timeout
		}
		return &Webhook{URL: cfg.Webhook.URL, HTTP: client}, nil
	case "log":
		return &LogChannel{Logger: logger}, nil
	default:
		return nil, errors.New("unknown channel")
	}
}
