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

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/purchase-orders")
	{
		orders.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.ListPOs)
		orders.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.CreatePO)
		orders.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.GetPO)
		orders.POST("/:id/link-line", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.LinkLine)
		orders.POST("/:id/link-requisition", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.LinkRequisition)
		orders.POST("/:id/unlink-line", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.UnlinkLine)
		orders.POST("/:id/issue", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.IssuePO)
		orders.POST("/:id/reject", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.RejectPO)
	}
}

type linkLineRequest struct {
	LineID string `json:"line_id" binding:"required"`
}

type linkRequisitionRequest struct {
	RequisitionID string `json:"requisition_id" binding:"required"`
}

type rejectPORequest struct {
	Reason string `json:"reason"`
}

// CreatePO opens an empty purchase order for one vendor
// @Summary      Create purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreatePORequest  true  "Order payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *OrderHandler) CreatePO(c *gin.Context) {
	var req service.CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.orderService.CreatePO(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
}

// GetPO returns one purchase order with its items
// @Summary      Get purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Purchase order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *OrderHandler) GetPO(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid order id"))
		return
	}

	po, err := h.orderService.GetPO(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// ListPOs returns paginated purchase orders with optional filters
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Param        status  query  string  false  "Filter by status: CREATED, ISSUED, REJECTED, RECEIVED, CLOSED"
// @Param        vendor  query  string  false  "Filter by vendor ID"
// @Success      200  {object}  response.Response
// @Router       /api/purchase-orders [get]
func (h *OrderHandler) ListPOs(c *gin.Context) {
	params := pagination.Parse(c)
	status := c.Query("status")

	var vendorID *uuid.UUID
	if v := c.Query("vendor"); v != "" {
		parsed, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid vendor id"))
			return
		}
		vendorID = &parsed
	}

	pos, total, err := h.orderService.ListPOs(c.Request.Context(), middleware.OrgID(c), status, vendorID, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, pos, params.Page, params.Limit, total))
}

// LinkLine consolidates one processed requisition line into the order
// @Summary      Link requisition line to order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string           true  "Purchase order ID"
// @Param        payload  body  linkLineRequest  true  "Line to link"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/link-line [post]
func (h *OrderHandler) LinkLine(c *gin.Context) {
	poID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid order id"))
		return
	}

	var req linkLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	lineID, err := uuid.Parse(req.LineID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid line id"))
		return
	}

	po, err := h.orderService.LinkLine(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), poID, lineID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// LinkRequisition consolidates every eligible line of a requisition into the order
// @Summary      Link whole requisition to order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                  true  "Purchase order ID"
// @Param        payload  body  linkRequisitionRequest  true  "Requisition to link"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/link-requisition [post]
func (h *OrderHandler) LinkRequisition(c *gin.Context) {
	poID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid order id"))
		return
	}

	var req linkRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	prID, err := uuid.Parse(req.RequisitionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid requisition id"))
		return
	}

	po, err := h.orderService.LinkRequisition(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), poID, prID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// UnlinkLine removes a linked line from the order and clears its reference
// @Summary      Unlink requisition line from order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string           true  "Purchase order ID"
// @Param        payload  body  linkLineRequest  true  "Line to unlink"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/unlink-line [post]
func (h *OrderHandler) UnlinkLine(c *gin.Context) {
	poID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid order id"))
		return
	}

	var req linkLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	lineID, err := uuid.Parse(req.LineID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid line id"))
		return
	}

	po, err := h.orderService.UnlinkLine(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), poID, lineID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// IssuePO issues a created order, freezing its item list
// @Summary      Issue purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Purchase order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/issue [post]
func (h *OrderHandler) IssuePO(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid order id"))
		return
	}

	po, err := h.orderService.IssuePO(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// RejectPO rejects an order, reopening it for item changes
// @Summary      Reject purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string           true   "Purchase order ID"
// @Param        payload  body  rejectPORequest  false  "Rejection reason"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/reject [post]
func (h *OrderHandler) RejectPO(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid order id"))
		return
	}

	var req rejectPORequest
	_ = c.ShouldBindJSON(&req)

	po, err := h.orderService.RejectPO(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}
