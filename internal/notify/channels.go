package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// NotificationAPI sends through a NotificationAPI template; the merge tags
// fill the template.
type NotificationAPI struct {
	BaseURL        string
	ClientID       string
	ClientSecret   string
	NotificationID string
	HTTP           *http.Client
}

type notificationAPIUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type notificationAPIRequest struct {
	NotificationID string              `json:"notificationId"`
	User           notificationAPIUser `json:"user"`
	MergeTags      map[string]string   `json:"mergeTags"`
}

func (n *NotificationAPI) Name() string { return "notificationapi" }

func (n *NotificationAPI) Deliver(ctx context.Context, to Recipient, alert Alert) error {
	if to.Email == "" {
		return fmt.Errorf("recipient has no email")
	}
	body, err := json.Marshal(notificationAPIRequest{
		NotificationID: n.NotificationID,
		User:           notificationAPIUser{ID: to.ID, Email: to.Email},
		MergeTags:      alert.MergeTags(),
	})
	if err != nil {
		return err
	}
	endpoint := strings.TrimRight(n.BaseURL, "/") + "/" + n.ClientID + "/sender"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(n.ClientID, n.ClientSecret)
	return doJSON(n.HTTP, req, "notificationapi")
}

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts alerts to one chat. The recipient only appears in the text.
type Telegram struct {
	API    telegramAPI
	ChatID int64
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Deliver(ctx context.Context, to Recipient, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := alert.Message()
	if to.Email != "" {
		text += "\nFor: " + to.Email
	}
	_, err := t.API.Send(tgbotapi.NewMessage(t.ChatID, text))
	return err
}

type Slack struct {
	WebhookURL string
	HTTP       *http.Client
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Deliver(ctx context.Context, to Recipient, alert Alert) error {
	text := alert.Message()
	if to.Email != "" {
		text += "\nFor: " + to.Email
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return slack.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, client, &slack.WebhookMessage{Text: text})
}

// Webhook posts a JSON document to an arbitrary endpoint.
type Webhook struct {
	URL  string
	HTTP *http.Client
}

type WebhookPayload struct {
	Event     string            `json:"event"`
	Recipient string            `json:"recipient"`
	Symbol    string            `json:"symbol"`
	MergeTags map[string]string `json:"merge_tags"`
	Message   string            `json:"message"`
	SentAt    time.Time         `json:"sent_at"`
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Deliver(ctx context.Context, to Recipient, alert Alert) error {
	body, err := json.Marshal(WebhookPayload{
		Event:     "ma_alert",
		Recipient: to.Email,
		Symbol:    alert.Symbol,
		MergeTags: alert.MergeTags(),
		Message:   alert.Message(),
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(w.HTTP, req, "webhook")
}

// LogChannel only logs the alert. Useful as a dry run.
type LogChannel struct {
	Logger *zap.Logger
}

func (l *LogChannel) Name() string { return "log" }

func (l *LogChannel) Deliver(_ context.Context, to Recipient, alert Alert) error {
	if l.Logger != nil {
		l.Logger.Info("ma alert",
			zap.String("recipient", to.Email),
			zap.Any("merge_tags", alert.MergeTags()),
		)
	}
	return nil
}

func doJSON(client *http.Client, req *http.Request, name string) error {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s http %d: %s", name, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
