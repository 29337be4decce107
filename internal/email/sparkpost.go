package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/httpretry"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

// SparkPost sends emails via the SparkPost Transmissions API.
type SparkPost struct {
	client  httpretry.HTTPDoer
	baseURL string
	apiKey  string
	sender  domain.SubscriberEmail
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// NewSparkPost creates a sender targeting baseURL (for example
// https://api.sparkpost.com/api/v1). client is normally a
// *httpretry.RetryClient.
func NewSparkPost(client httpretry.HTTPDoer, baseURL, apiKey string, sender domain.SubscriberEmail, timeout time.Duration, log zerolog.Logger) *SparkPost {
	return &SparkPost{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		sender:  sender,
		timeout: timeout,
		log:     log.With().Str("component", "sparkpost").Logger(),
		now:     time.Now,
	}
}

type transmission struct {
	Recipients []recipient          `json:"recipients"`
	Content    transmissionContent  `json:"content"`
	Options    *transmissionOptions `json:"options,omitempty"`
}

type recipient struct {
	Address address `json:"address"`
}

type address struct {
	Email string `json:"email"`
}

type transmissionContent struct {
	From    address `json:"from"`
	Subject string  `json:"subject"`
	HTML    string  `json:"html"`
	Text    string  `json:"text"`
}

type transmissionOptions struct {
	Transactional bool `json:"transactional"`
}

type transmissionResponse struct {
	Results struct {
		ID string `json:"id"`
	} `json:"results"`
	Errors []struct {
		Message     string `json:"message"`
		Description string `json:"description"`
	} `json:"errors"`
}

// Send delivers a single email through SparkPost.
func (s *SparkPost) Send(ctx context.Context, msg Message) (Receipt, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(transmission{
		Recipients: []recipient{{Address: address{Email: msg.To.String()}}},
		Content: transmissionContent{
			From:    address{Email: s.sender.String()},
			Subject: msg.Subject,
			HTML:    msg.HTML,
			Text:    msg.Text,
		},
		Options: &transmissionOptions{Transactional: true},
	})
	if err != nil {
		return Receipt{}, &DeliveryError{Recipient: msg.To.String(), Provider: ProviderSparkPost, Err: err}
	}

	receipt, err := s.post(callCtx, payload)
	if err != nil {
		derr := deliveryError(callCtx, ProviderSparkPost, msg.To, err)
		s.log.Warn().
			Str("to", logger.RedactEmail(msg.To.String())).
			Bool("timeout", derr.Timeout).
			Str("error", logger.Redact(err.Error())).
			Msg("send failed")
		return Receipt{}, derr
	}

	s.log.Debug().
		Str("to", logger.RedactEmail(msg.To.String())).
		Str("message_id", receipt.MessageID).
		Msg("sent")
	return receipt, nil
}

func (s *SparkPost) post(ctx context.Context, payload []byte) (Receipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transmissions", bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, err
	}
	req.Header.Set("Authorization", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Receipt{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Receipt{}, fmt.Errorf("read response: %w", err)
	}

	var result transmissionResponse
	_ = json.Unmarshal(body, &result)

	if resp.StatusCode >= 400 {
		if len(result.Errors) > 0 {
			return Receipt{}, fmt.Errorf("status %d: %s", resp.StatusCode, result.Errors[0].Message)
		}
		return Receipt{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	return Receipt{MessageID: result.Results.ID, Provider: ProviderSparkPost, SentAt: s.now()}, nil
}
