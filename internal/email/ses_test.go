package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

func mustEmail(t *testing.T, raw string) domain.SubscriberEmail {
	t.Helper()
	e, err := domain.ParseEmail(raw)
	require.NoError(t, err)
	return e
}

func newTestSES(t *testing.T, url string, timeout time.Duration) *SES {
	t.Helper()
	client := sesv2.New(sesv2.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(url),
		Credentials:  credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
		Retryer:      aws.NopRetryer{},
	})
	return NewSESFromClient(client, mustEmail(t, "news@example.com"), timeout, logger.Nop())
}

type sesSendBody struct {
	FromEmailAddress string
	Destination      struct{ ToAddresses []string }
	Content          struct {
		Simple struct {
			Subject struct{ Data, Charset string }
			Body    struct {
				Html struct{ Data, Charset string }
				Text struct{ Data, Charset string }
			}
		}
	}
}

func TestSES_Send(t *testing.T) {
	var got sesSendBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/email/outbound-emails", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Authorization"), "request must be signed")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"MessageId":"ses-message-1"}`))
	}))
	defer srv.Close()

	s := newTestSES(t, srv.URL, time.Second)
	receipt, err := s.Send(context.Background(), Message{
		To:      mustEmail(t, "ursula@example.com"),
		Subject: "Welcome!",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "ses-message-1", receipt.MessageID)
	assert.Equal(t, ProviderSES, receipt.Provider)
	assert.False(t, receipt.SentAt.IsZero())

	assert.Equal(t, "news@example.com", got.FromEmailAddress)
	assert.Equal(t, []string{"ursula@example.com"}, got.Destination.ToAddresses)
	assert.Equal(t, "Welcome!", got.Content.Simple.Subject.Data)
	assert.Equal(t, "<p>hi</p>", got.Content.Simple.Body.Html.Data)
	assert.Equal(t, "hi", got.Content.Simple.Body.Text.Data)
	assert.Equal(t, "UTF-8", got.Content.Simple.Body.Text.Charset)
}

func TestSES_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	_, err := newTestSES(t, srv.URL, time.Second).Send(context.Background(), Message{To: mustEmail(t, "ursula@example.com")})
	require.Error(t, err)

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, ProviderSES, derr.Provider)
	assert.Equal(t, "ursula@example.com", derr.Recipient)
	assert.False(t, derr.Timeout)
	assert.NotContains(t, derr.Error(), "ursula@example.com")
}

func TestSES_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestSES(t, srv.URL, 50*time.Millisecond).Send(context.Background(), Message{To: mustEmail(t, "ursula@example.com")})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}
