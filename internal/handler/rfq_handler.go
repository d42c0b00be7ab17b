package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RFQHandler struct {
	rfqService service.RFQService
}

func NewRFQHandler(rfqService service.RFQService) *RFQHandler {
	return &RFQHandler{rfqService: rfqService}
}

func (h *RFQHandler) RegisterRoutes(router *gin.RouterGroup) {
	rfqs := router.Group("/api/rfqs")
	{
		rfqs.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.ListRFQs)
		rfqs.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.CreateRFQ)
		rfqs.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.GetRFQ)
		rfqs.POST("/:id/items", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.LinkRequisitionItems)
		rfqs.POST("/:id/invite", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.InviteSupplier)
	}
	quotes := router.Group("/api/quotes")
	{
		quotes.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.GetQuote)
		quotes.POST("/:id/send", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.SendQuote)
		quotes.POST("/:id/response", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.RecordResponse)
		quotes.POST("/:id/award", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.AwardQuote)
	}
}

// CreateRFQ opens a draft request for quotation
// @Summary      Create RFQ
// @Tags         rfqs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateRFQRequest  true  "RFQ payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/rfqs [post]
func (h *RFQHandler) CreateRFQ(c *gin.Context) {
	var req service.CreateRFQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rfq, err := h.rfqService.CreateRFQ(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rfq))
}

// GetRFQ returns one RFQ with its items
// @Summary      Get RFQ
// @Tags         rfqs
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "RFQ ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/rfqs/{id} [get]
func (h *RFQHandler) GetRFQ(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid rfq id"))
		return
	}

	rfq, err := h.rfqService.GetRFQ(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rfq))
}

// ListRFQs returns paginated RFQs with optional status filter
// @Summary      List RFQs
// @Tags         rfqs
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Param        status  query  string  false  "Filter by status: DRAFT, OPEN, AWARDED, CLOSED"
// @Success      200  {object}  response.Response
// @Router       /api/rfqs [get]
func (h *RFQHandler) ListRFQs(c *gin.Context) {
	params := pagination.Parse(c)
	status := c.Query("status")

	rfqs, total, err := h.rfqService.ListRFQs(c.Request.Context(), middleware.OrgID(c), status, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rfqs, params.Page, params.Limit, total))
}

// LinkRequisitionItems pulls reviewed requisition lines onto the RFQ
// @Summary      Link requisition lines to RFQ
// @Tags         rfqs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                               true  "RFQ ID"
// @Param        payload  body  service.LinkRequisitionItemsRequest  true  "Line IDs to link"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/rfqs/{id}/items [post]
func (h *RFQHandler) LinkRequisitionItems(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid rfq id"))
		return
	}

	var req service.LinkRequisitionItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rfq, err := h.rfqService.LinkRequisitionItems(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rfq))
}

// InviteSupplier creates a draft quote copying the RFQ's items for one vendor
// @Summary      Invite supplier to RFQ
// @Tags         rfqs
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "RFQ ID"
// @Param        payload  body  service.InviteSupplierRequest  true  "Vendor to invite"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/rfqs/{id}/invite [post]
func (h *RFQHandler) InviteSupplier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid rfq id"))
		return
	}

	var req service.InviteSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	quote, err := h.rfqService.InviteSupplier(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, quote))
}

// GetQuote returns one quote with its items
// @Summary      Get quote
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Quote ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/quotes/{id} [get]
func (h *RFQHandler) GetQuote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid quote id"))
		return
	}

	quote, err := h.rfqService.GetQuote(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// SendQuote marks a draft quote as sent to the supplier
// @Summary      Send quote
// @Tags         quotes
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Quote ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/quotes/{id}/send [post]
func (h *RFQHandler) SendQuote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid quote id"))
		return
	}

	quote, err := h.rfqService.SendQuote(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// RecordResponse records the supplier's priced response against a quote
// @Summary      Record supplier response
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Quote ID"
// @Param        payload  body  service.RecordResponseRequest  true  "Supplier response"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/quotes/{id}/response [post]
func (h *RFQHandler) RecordResponse(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid quote id"))
		return
	}

	var req service.RecordResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	quote, err := h.rfqService.RecordResponse(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quote))
}

// AwardQuote awards a received quote, applying threshold rules and writing the
// winning terms back onto the originating requisition lines
// @Summary      Award quote
// @Tags         quotes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                     true  "Quote ID"
// @Param        payload  body  service.AwardQuoteRequest  true  "Award payload with justification when overriding a threshold rule"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/quotes/{id}/award [post]
func (h *RFQHandler) AwardQuote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid quote id"))
		return
	}

	var req service.AwardQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.rfqService.AwardQuote(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
