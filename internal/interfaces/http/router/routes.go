package router

import (
	"net/http"

	"github.com/billpay/backend/internal/interfaces/http/handler"
	"github.com/billpay/backend/internal/interfaces/http/middleware"
)

// PayablesHandlers are the handlers served under /payables
type PayablesHandlers struct {
	Payees   *handler.PayeeHandler
	Bills    *handler.BillHandler
	Payments *handler.PaymentHandler
}

// payablesRoutes builds the tenant-scoped payables tree. Tenant resolution
// runs before any handler.
func payablesRoutes(h PayablesHandlers) *group {
	g := newGroup("/payables", middleware.TenantMiddleware(), middleware.SpanAttributes())
	g.resource("/payees", h.Payees)
	g.resource("/bills", h.Bills)
	g.resource("/payments", h.Payments).
		handle(http.MethodPost, "/:id/receipt", h.Payments.RequestReceiptUpload).
		handle(http.MethodGet, "/:id/receipt", h.Payments.GetReceiptDownload)
	return g
}

// systemRoutes builds /system. outbox may be nil.
func systemRoutes(system *handler.SystemHandler, outbox *handler.OutboxHandler) *group {
	g := newGroup("/system").handle(http.MethodGet, "/info", system.GetSystemInfo)
	if outbox != nil {
		g.handle(http.MethodGet, "/outbox/stats", outbox.GetStats)
	}
	return g
}
