package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appbilling "github.com/salescost/backend/internal/application/billing"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appbilling.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appbilling.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req appbilling.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// GetByID handles GET /invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetByNumber handles GET /invoices/number/:number
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Invoice number is required")
		return
	}

	invoice, err := h.invoiceService.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter appbilling.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoices, total, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	h.SuccessWithMeta(c, invoices, total, page, pageSize)
}

// Stats handles GET /invoices/stats
func (h *InvoiceHandler) Stats(c *gin.Context) {
	var filter appbilling.StatsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	stats, err := h.invoiceService.Stats(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}

// AddLine handles POST /invoices/:id/lines
func (h *InvoiceHandler) AddLine(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req appbilling.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.AddLine(c.Request.Context(), invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// UpdateLine handles PUT /invoices/:id/lines/:line_id
func (h *InvoiceHandler) UpdateLine(c *gin.Context) {
	lineID, err := uuid.Parse(c.Param("line_id"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	var req appbilling.UpdateLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.invoiceService.UpdateLine(c.Request.Context(), lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// RemoveLine handles DELETE /invoices/:id/lines/:line_id
func (h *InvoiceHandler) RemoveLine(c *gin.Context) {
	lineID, err := uuid.Parse(c.Param("line_id"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	invoice, err := h.invoiceService.RemoveLine(c.Request.Context(), lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Confirm handles POST /invoices/:id/confirm
func (h *InvoiceHandler) Confirm(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := h.invoiceService.Confirm(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Void handles POST /invoices/:id/void
func (h *InvoiceHandler) Void(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	// The reason body is optional
	var req appbilling.VoidInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	invoice, err := h.invoiceService.Void(c.Request.Context(), invoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Delete handles DELETE /invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), invoiceID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
