package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailSenderPostsMessage(t *testing.T) {
	var got emailPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewEmailSender(EmailConfig{BaseURL: srv.URL, APIKey: "key", From: "ops@hostel.test"})
	err := sender.Send(context.Background(), Message{To: "warden@hostel.test", Subject: "Escalation", Body: "review", Priority: "high"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer key", auth)
	assert.Equal(t, []string{"warden@hostel.test"}, got.To)
	assert.Equal(t, "ops@hostel.test", got.From)
	assert.Equal(t, "high", got.Priority)
}

func TestEmailSenderReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sender := NewEmailSender(EmailConfig{BaseURL: srv.URL})
	assert.Error(t, sender.Send(context.Background(), Message{To: "a@b.c"}))
	assert.ErrorIs(t, sender.Send(context.Background(), Message{}), ErrNoAddress)
}

func TestSMSSenderUsesTwilioForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15550100", r.PostForm.Get("To"))
		assert.Equal(t, "+15550199", r.PostForm.Get("From"))
		assert.Equal(t, "Escalation: guest request", r.PostForm.Get("Body"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewSMSSender(SMSConfig{BaseURL: srv.URL, AccountSID: "AC123", AuthToken: "secret", FromNumber: "+15550199"})
	require.NoError(t, sender.Send(context.Background(), Message{To: "+15550100", Subject: "Escalation", Body: "guest request"}))
}

func TestSMSSenderSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	sender := NewSMSSender(SMSConfig{BaseURL: srv.URL, AccountSID: "AC123"})
	err := sender.Send(context.Background(), Message{To: "nope", Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

type publisherStub struct {
	topic   string
	payload []byte
	err     error
}

func (p *publisherStub) Publish(topic string, qos byte, retained bool, payload []byte) error {
	p.topic = topic
	p.payload = payload
	return p.err
}

func TestPushSenderPublishesPerRecipient(t *testing.T) {
	pub := &publisherStub{}
	sender := NewPushSender(pub, "hostel/staff/")
	sender.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, sender.Send(context.Background(), Message{To: "staff-1", Subject: "s", Body: "b", Priority: "urgent"}))

	assert.Equal(t, "hostel/staff/staff-1", pub.topic)
	var payload pushPayload
	require.NoError(t, json.Unmarshal(pub.payload, &payload))
	assert.Equal(t, "urgent", payload.Priority)
	assert.Equal(t, "b", payload.Body)

	pub.err = errors.New("broker gone")
	assert.Error(t, sender.Send(context.Background(), Message{To: "staff-1"}))
}

func TestSenderFunc(t *testing.T) {
	var called bool
	sender := SenderFunc(func(ctx context.Context, msg Message) error {
		called = msg.To == "x"
		return nil
	})
	require.NoError(t, sender.Send(context.Background(), Message{To: "x"}))
	assert.True(t, called)
}
