package handler

import (
	payablesapp "github.com/billpay/backend/internal/application/payables"
	"github.com/gin-gonic/gin"
)

// PayeeHandler handles payee API endpoints
type PayeeHandler struct {
	BaseHandler
	payeeService *payablesapp.PayeeService
}

// NewPayeeHandler creates a new PayeeHandler
func NewPayeeHandler(payeeService *payablesapp.PayeeService) *PayeeHandler {
	return &PayeeHandler{payeeService: payeeService}
}

// Create godoc
// @ID           createPayee
// @Summary      Create a payee
// @Description  Create a payee in the caller's tenant
// @Tags         payees
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (ignored when the token carries one)"
// @Param        request body payablesapp.CreatePayeeCommand true "Payee"
// @Success      201 {object} Envelope[payablesapp.PayeeResponse]
// @Failure      400 {object} Failure
// @Failure      401 {object} Failure
// @Failure      500 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payees [post]
func (h *PayeeHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	var cmd payablesapp.CreatePayeeCommand
	if !h.bindJSON(c, &cmd) {
		return
	}

	payee, err := h.payeeService.Create(c.Request.Context(), tenantID, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, payee)
}

// GetByID godoc
// @ID           getPayee
// @Summary      Get a payee
// @Tags         payees
// @Produce      json
// @Param        id path string true "Payee ID" format(uuid)
// @Success      200 {object} Envelope[payablesapp.PayeeResponse]
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payees/{id} [get]
func (h *PayeeHandler) GetByID(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	payee, err := h.payeeService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payee)
}

// List godoc
// @ID           listPayees
// @Summary      List payees
// @Description  List payees ordered by name. Without page_size every match is returned.
// @Tags         payees
// @Produce      json
// @Param        search query string false "Case-insensitive name match"
// @Param        category query string false "Category"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(500)
// @Success      200 {object} ListEnvelope[payablesapp.PayeeResponse]
// @Failure      400 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payees [get]
func (h *PayeeHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	var query payablesapp.PayeeListQuery
	if !h.bindQuery(c, &query) {
		return
	}

	result, err := h.payeeService.List(c.Request.Context(), tenantID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, size := pageOf(query.Page, query.PageSize)
	h.Paged(c, result.Items, result.Total, page, size)
}

// Update godoc
// @ID           updatePayee
// @Summary      Update a payee
// @Description  Replace the assignable fields of a payee. A version makes the update conditional.
// @Tags         payees
// @Accept       json
// @Produce      json
// @Param        id path string true "Payee ID" format(uuid)
// @Param        request body payablesapp.UpdatePayeeCommand true "Payee"
// @Success      200 {object} Envelope[payablesapp.PayeeResponse]
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Failure      409 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payees/{id} [put]
func (h *PayeeHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var cmd payablesapp.UpdatePayeeCommand
	if !h.bindJSON(c, &cmd) {
		return
	}

	payee, err := h.payeeService.Update(c.Request.Context(), tenantID, id, cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payee)
}

// Delete godoc
// @ID           deletePayee
// @Summary      Delete a payee
// @Description  Delete a payee. Its bills are kept and lose the reference.
// @Tags         payees
// @Param        id path string true "Payee ID" format(uuid)
// @Success      204
// @Failure      400 {object} Failure
// @Failure      404 {object} Failure
// @Security     BearerAuth
// @Router       /payables/payees/{id} [delete]
func (h *PayeeHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenantOrAbort(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.payeeService.Delete(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
