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

type RequisitionHandler struct {
	requisitionService service.RequisitionService
	sourcingService    service.SourcingService
}

func NewRequisitionHandler(requisitionService service.RequisitionService, sourcingService service.SourcingService) *RequisitionHandler {
	return &RequisitionHandler{
		requisitionService: requisitionService,
		sourcingService:    sourcingService,
	}
}

func (h *RequisitionHandler) RegisterRoutes(router *gin.RouterGroup) {
	prs := router.Group("/api/requisitions")
	{
		prs.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.ListRequisitions)
		prs.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.CreateRequisition)
		prs.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.GetRequisition)
	}
	lines := router.Group("/api/requisition-lines")
	{
		lines.GET("/:id/sourcing", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.ResolveSourcing)
		lines.POST("/:id/review", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.MarkReviewed)
		lines.POST("/:id/accept-sourcing", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.AcceptSourcing)
		lines.POST("/:id/delink-quote", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.DelinkQuote)
	}
}

// CreateRequisition creates a purchase requisition with its lines
// @Summary      Create requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateRequisitionRequest  true  "Requisition payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/requisitions [post]
func (h *RequisitionHandler) CreateRequisition(c *gin.Context) {
	var req service.CreateRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	pr, err := h.requisitionService.CreateRequisition(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, pr))
}

// GetRequisition returns one requisition with its lines
// @Summary      Get requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Requisition ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requisitions/{id} [get]
func (h *RequisitionHandler) GetRequisition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid requisition id"))
		return
	}

	pr, err := h.requisitionService.GetRequisition(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pr))
}

// ListRequisitions returns paginated requisitions with optional status filter
// @Summary      List requisitions
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Param        status  query  string  false  "Filter by status: CREATED, IN_PROCESS, PROCESSED, LINKED"
// @Success      200  {object}  response.Response
// @Router       /api/requisitions [get]
func (h *RequisitionHandler) ListRequisitions(c *gin.Context) {
	params := pagination.Parse(c)
	status := c.Query("status")

	prs, total, err := h.requisitionService.ListRequisitions(c.Request.Context(), middleware.OrgID(c), status, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, prs, params.Page, params.Limit, total))
}

// ResolveSourcing proposes a vendor and price for a line without persisting
// @Summary      Resolve sourcing proposal for a line
// @Tags         sourcing
// @Security     BearerAuth
// @Produce      json
// @Param        id      path   string  true   "Requisition line ID"
// @Param        vendor  query  string  false  "Candidate vendor ID to resolve against"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/requisition-lines/{id}/sourcing [get]
func (h *RequisitionHandler) ResolveSourcing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid line id"))
		return
	}

	var candidate *uuid.UUID
	if v := c.Query("vendor"); v != "" {
		vendorID, parseErr := uuid.Parse(v)
		if parseErr != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid vendor id"))
			return
		}
		candidate = &vendorID
	}

	proposal, err := h.sourcingService.Resolve(c.Request.Context(), middleware.OrgID(c), id, candidate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, proposal))
}

// MarkReviewed moves a pending line to REVIEWED
// @Summary      Mark line reviewed
// @Tags         sourcing
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Requisition line ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requisition-lines/{id}/review [post]
func (h *RequisitionHandler) MarkReviewed(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid line id"))
		return
	}

	line, err := h.sourcingService.MarkReviewed(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, line))
}

// AcceptSourcing confirms a vendor and price on a line, marking it PROCESSED
// @Summary      Accept sourcing for a line
// @Tags         sourcing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                          true  "Requisition line ID"
// @Param        payload  body  service.AcceptSourcingRequest   true  "Accepted vendor and terms"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requisition-lines/{id}/accept-sourcing [post]
func (h *RequisitionHandler) AcceptSourcing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid line id"))
		return
	}

	var req service.AcceptSourcingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	line, err := h.sourcingService.AcceptSourcing(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, line))
}

// DelinkQuote returns a line from RFQ_PROCESS to REVIEWED while its quote is still DRAFT
// @Summary      Delink line from draft quote
// @Tags         sourcing
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Requisition line ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requisition-lines/{id}/delink-quote [post]
func (h *RequisitionHandler) DelinkQuote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid line id"))
		return
	}

	line, err := h.sourcingService.DelinkQuote(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, line))
}
