package handler

import (
	"context"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/internal/infrastructure/event"
	"github.com/gin-gonic/gin"
)

// OutboxCounter counts outbox entries per delivery status
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// DeliveryStats reports how many events a subscriber has handled
type DeliveryStats interface {
	Stats() event.IdempotencyStats
}

// OutboxHandler exposes the state of asynchronous event delivery
type OutboxHandler struct {
	BaseHandler
	counter OutboxCounter
	notify  DeliveryStats
}

// NewOutboxHandler creates a new outbox handler. notify may be nil.
func NewOutboxHandler(counter OutboxCounter, notify DeliveryStats) *OutboxHandler {
	return &OutboxHandler{counter: counter, notify: notify}
}

// OutboxStatsResponse summarizes outbox and notification delivery
// @name HandlerOutboxStatsResponse
type OutboxStatsResponse struct {
	Pending       int64                   `json:"pending"`
	Processing    int64                   `json:"processing"`
	Sent          int64                   `json:"sent"`
	Failed        int64                   `json:"failed"`
	Dead          int64                   `json:"dead"`
	Notifications *event.IdempotencyStats `json:"notifications,omitempty"`
}

// GetStats godoc
// @ID           getOutboxStats
// @Summary      Get outbox statistics
// @Description  Count outbox entries by status across all tenants
// @Tags         system
// @Produce      json
// @Success      200 {object} Envelope[OutboxStatsResponse]
// @Failure      500 {object} Failure
// @Security     BearerAuth
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	counts, err := h.counter.CountByStatus(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := OutboxStatsResponse{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	if h.notify != nil {
		stats := h.notify.Stats()
		resp.Notifications = &stats
	}
	h.Success(c, resp)
}
