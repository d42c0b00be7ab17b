package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type PolicyHandler struct {
	policyService service.PolicyService
}

func NewPolicyHandler(policyService service.PolicyService) *PolicyHandler {
	return &PolicyHandler{policyService: policyService}
}

func (h *PolicyHandler) RegisterRoutes(router *gin.RouterGroup) {
	policy := router.Group("/api/policy")
	{
		policy.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.GetPolicy)
		policy.PUT("", middleware.RequireRole(model.RoleAdmin), h.UpdatePolicy)
	}
	notices := router.Group("/api/exception-notices")
	{
		notices.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.ListNotices)
	}
}

// GetPolicy returns the org's threshold policy (defaults when unconfigured)
// @Summary      Get procurement policy
// @Tags         policy
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/policy [get]
func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	policy, err := h.policyService.GetPolicy(c.Request.Context(), middleware.OrgID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, policy))
}

// UpdatePolicy sets the org's award thresholds
// @Summary      Update procurement policy
// @Tags         policy
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.UpdatePolicyRequest  true  "Policy payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/policy [put]
func (h *PolicyHandler) UpdatePolicy(c *gin.Context) {
	var req service.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	policy, err := h.policyService.UpdatePolicy(c.Request.Context(), middleware.OrgID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, policy))
}

// ListNotices returns the org's exception notices, newest first
// @Summary      List exception notices
// @Tags         policy
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/exception-notices [get]
func (h *PolicyHandler) ListNotices(c *gin.Context) {
	params := pagination.Parse(c)

	notices, total, err := h.policyService.ListNotices(c.Request.Context(), middleware.OrgID(c), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, notices, params.Page, params.Limit, total))
}
