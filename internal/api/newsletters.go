package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/httputil"
	"github.com/ignite/newsletter/internal/service/newsletter"
)

const maxIssueBytes = 4 << 20

type newsletterHandlers struct {
	dispatcher *newsletter.Dispatcher
}

type publishRequest struct {
	Title   string `json:"title"`
	Content struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	} `json:"content"`
}

// PublishResponse summarises a fan-out. It carries counts only so subscriber
// addresses never leave the service.
type PublishResponse struct {
	Title     string `json:"title"`
	Delivered int    `json:"delivered"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Unsent    int    `json:"unsent"`
}

func newPublishResponse(r *newsletter.Report) PublishResponse {
	return PublishResponse{
		Title:     r.Title,
		Delivered: len(r.Delivered),
		Skipped:   len(r.Skipped),
		Failed:    len(r.Failed),
		Unsent:    len(r.Unsent),
	}
}

// Publish handles POST /newsletters. The body is decoded before the
// dispatcher runs but a decode failure is only reported once the caller has
// authenticated, so anonymous callers always see 401.
func (h *newsletterHandlers) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	decodeErr := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIssueBytes)).Decode(&req)
	if decodeErr != nil {
		req = publishRequest{}
	}

	issue := domain.NewsletterIssue{Title: req.Title, HTML: req.Content.HTML, Text: req.Content.Text}
	report, err := h.dispatcher.Publish(r.Context(), r.Header.Get("Authorization"), issue)

	var verr *domain.ValidationError
	switch {
	case err == nil:
		httputil.OK(w, r, newPublishResponse(report))
	case decodeErr != nil && errors.As(err, &verr):
		httputil.BadRequest(w, r, "invalid JSON body")
	case errors.Is(err, newsletter.ErrDeliveryFailed):
		hlog.FromRequest(r).Error().Err(err).
			Int("delivered", len(report.Delivered)).
			Int("failed", len(report.Failed)).
			Int("unsent", len(report.Unsent)).
			Msg("newsletter partially delivered")
		httputil.Error(w, r, http.StatusInternalServerError, "newsletter delivery failed")
	default:
		respondError(w, r, err)
	}
}
