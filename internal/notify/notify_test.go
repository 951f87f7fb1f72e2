package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/config"
)

func TestMergeTagsFormatting(t *testing.T) {
	a := Alert{
		Symbol:       "MSFT",
		Price:        decimal.RequireFromString("95"),
		MA200:        decimal.RequireFromString("100"),
		DistanceToMA: decimal.RequireFromString("-5"),
	}
	tags := a.MergeTags()
	assert.Equal(t, "$95.00", tags["price"])
	assert.Equal(t, "$100.00", tags["ma_200"])
	assert.Equal(t, "-5.00%", tags["distance"])

	sample := SampleAlert().MergeTags()
	assert.Equal(t, "AAPL", sample["symbol"])
	assert.Equal(t, "$184.25", sample["price"])
	assert.Equal(t, "$180.50", sample["ma_200"])
	assert.Equal(t, "2.08%", sample["distance"])
}

func TestNotificationAPIRequest(t *testing.T) {
	var got notificationAPIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/client-1/sender", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-1", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := &NotificationAPI{BaseURL: srv.URL + "/", ClientID: "client-1", ClientSecret: "secret", NotificationID: "ma_alert", HTTP: srv.Client()}
	err := n.Deliver(context.Background(), RecipientForEmail(" alice@example.com "), SampleAlert())
	require.NoError(t, err)
	assert.Equal(t, "ma_alert", got.NotificationID)
	assert.Equal(t, "alice@example.com", got.User.ID)
	assert.Equal(t, "alice@example.com", got.User.Email)
	assert.Equal(t, "$184.25", got.MergeTags["price"])
}

func TestNotificationAPIHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := &NotificationAPI{BaseURL: srv.URL, ClientID: "c", ClientSecret: "s", NotificationID: "n"}
	err := n.Deliver(context.Background(), RecipientForEmail("a@example.com"), SampleAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSlackAndWebhookPost(t *testing.T) {
	hits := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/slack":
			assert.Contains(t, body["text"], "AAPL")
		case "/hook":
			assert.Equal(t, "ma_alert", body["event"])
			assert.Equal(t, "AAPL", body["symbol"])
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	to := RecipientForEmail("a@example.com")
	require.NoError(t, (&Slack{WebhookURL: srv.URL + "/slack"}).Deliver(ctx, to, SampleAlert()))
	require.NoError(t, (&Webhook{URL: srv.URL + "/hook"}).Deliver(ctx, to, SampleAlert()))
	assert.Equal(t, 1, hits["/slack"])
	assert.Equal(t, 1, hits["/hook"])
}

type fakeTelegram struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramSendsToConfiguredChat(t *testing.T) {
	api := &fakeTelegram{}
	tg := &Telegram{API: api, ChatID: 42}
	require.NoError(t, tg.Deliver(context.Background(), RecipientForEmail("a@example.com"), SampleAlert()))
	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.EqualValues(t, 42, msg.ChatID)
	assert.Contains(t, msg.Text, "$184.25")
	assert.Contains(t, msg.Text, "a@example.com")
}

type stubChannel struct {
	name  string
	err   error
	panic bool
	calls int
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Deliver(ctx context.Context, _ Recipient, _ Alert) error {
	s.calls++
	if s.panic {
		panic("channel exploded")
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected a deadline")
	}
	return s.err
}

func TestDispatcherSucceedsWhenAnyChannelDelivers(t *testing.T) {
	bad := &stubChannel{name: "bad", err: errors.New("down")}
	boom := &stubChannel{name: "boom", panic: true}
	good := &stubChannel{name: "good"}
	d := &Dispatcher{Channels: []Channel{bad, boom, good}, Timeout: time.Second}

	assert.True(t, d.Send(context.Background(), RecipientForEmail("a@example.com"), SampleAlert()))
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
	assert.Equal(t, "bad+boom+good", d.Name())
}

func TestDispatcherFailsWhenAllChannelsFail(t *testing.T) {
	d := &Dispatcher{Channels: []Channel{&stubChannel{name: "x", err: errors.New("down")}}, Timeout: time.Second}
	assert.False(t, d.Send(context.Background(), RecipientForEmail("a@example.com"), SampleAlert()))

	var empty *Dispatcher
	assert.False(t, empty.Send(context.Background(), Recipient{}, SampleAlert()))
}

func TestFromConfigRejectsUnbuildableChannels(t *testing.T) {
	d, err := FromConfig(config.NotifyConfig{Channels: []string{"notificationapi"}}, time.Second, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notificationapi")
	assert.Nil(t, d)
	// a nil sink never reports a delivery, so nothing gets latched
	assert.False(t, d.Send(context.Background(), RecipientForEmail("a@example.com"), SampleAlert()))

	d, err = FromConfig(config.NotifyConfig{
		Channels: []string{"webhook", "carrier-pigeon"},
		Webhook:  config.WebhookConfig{URL: "http://127.0.0.1:1/hook"},
	}, time.Second, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
	assert.Nil(t, d)

	_, err = FromConfig(config.NotifyConfig{}, time.Second, nil)
	require.Error(t, err)
}

func TestFromConfigBuildsNamedChannels(t *testing.T) {
	d, err := FromConfig(config.NotifyConfig{
		Channels: []string{"webhook", "slack"},
		Webhook:  config.WebhookConfig{URL: "http://127.0.0.1:1/hook"},
		Slack:    config.SlackConfig{WebhookURL: "http://127.0.0.1:1/slack"},
	}, time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, "webhook+slack", d.Name())

	d, err = FromConfig(config.NotifyConfig{Channels: []string{"log"}}, time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, "log", d.Name())
}
