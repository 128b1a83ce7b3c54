package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/erpsync/backend/internal/api/dto"
	"github.com/erpsync/backend/internal/webhook"
)

// SignatureHeader carries the HMAC-SHA256 signature of the raw body.
const SignatureHeader = "X-Signature"

// maxWebhookBody caps how much of a webhook payload we will read.
const maxWebhookBody = 1 << 20

// WebhooksHandler receives platform push notifications.
type WebhooksHandler struct {
	*Base
	ingestion *webhook.Ingestion
}

// NewWebhooksHandler creates a new webhooks handler.
func NewWebhooksHandler(ingestion *webhook.Ingestion) *WebhooksHandler {
	return &WebhooksHandler{
		Base:      &Base{},
		ingestion: ingestion,
	}
}

// Orders handles POST /api/webhooks/orders.
func (h *WebhooksHandler) Orders(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("failed to read request body"))
		return
	}

	ack, err := h.ingestion.HandleOrder(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, webhook.ErrBadSignature) {
			h.WriteError(w, http.StatusUnauthorized, dto.UnauthorizedError("invalid webhook signature"))
			return
		}
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.WebhookAckResponse{
		Processed: ack.Processed,
		Created:   ack.Created,
		Reason:    ack.Reason,
	})
}
