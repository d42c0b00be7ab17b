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

type VendorHandler struct {
	vendorService service.VendorService
}

func NewVendorHandler(vendorService service.VendorService) *VendorHandler {
	return &VendorHandler{vendorService: vendorService}
}

func (h *VendorHandler) RegisterRoutes(router *gin.RouterGroup) {
	vendors := router.Group("/api/vendors")
	{
		vendors.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.ListVendors)
		vendors.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.CreateVendor)
		vendors.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.GetVendor)
		vendors.PUT("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.UpdateVendor)
	}
	materials := router.Group("/api/materials")
	{
		materials.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.ListMaterials)
		materials.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.CreateMaterial)
		materials.GET("/:id/sources", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer, model.RoleViewer), h.ListMaterialSources)
		materials.PUT("/:id/sources", middleware.RequireRole(model.RoleAdmin, model.RoleBuyer), h.UpsertMaterialSource)
	}
}

// CreateVendor registers a supplier with a generated vendor code
// @Summary      Create vendor
// @Tags         vendors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateVendorRequest  true  "Vendor payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/vendors [post]
func (h *VendorHandler) CreateVendor(c *gin.Context) {
	var req service.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vendor, err := h.vendorService.CreateVendor(c.Request.Context(), middleware.OrgID(c), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vendor))
}

// GetVendor returns one vendor
// @Summary      Get vendor
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Vendor ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/vendors/{id} [get]
func (h *VendorHandler) GetVendor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid vendor id"))
		return
	}

	vendor, err := h.vendorService.GetVendor(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// ListVendors returns paginated vendors with optional name/code search
// @Summary      List vendors
// @Tags         vendors
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Param        search  query  string  false  "Search by name or vendor code"
// @Success      200  {object}  response.Response
// @Router       /api/vendors [get]
func (h *VendorHandler) ListVendors(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")

	vendors, total, err := h.vendorService.ListVendors(c.Request.Context(), middleware.OrgID(c), search, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, vendors, params.Page, params.Limit, total))
}

// UpdateVendor updates vendor master data
// @Summary      Update vendor
// @Tags         vendors
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Vendor ID"
// @Param        payload  body  service.UpdateVendorRequest  true  "Update payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/vendors/{id} [put]
func (h *VendorHandler) UpdateVendor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid vendor id"))
		return
	}

	var req service.UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	vendor, err := h.vendorService.UpdateVendor(c.Request.Context(), middleware.OrgID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, vendor))
}

// CreateMaterial adds a material master record
// @Summary      Create material
// @Tags         materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateMaterialRequest  true  "Material payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/materials [post]
func (h *VendorHandler) CreateMaterial(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	material, err := h.vendorService.CreateMaterial(c.Request.Context(), middleware.OrgID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, material))
}

// ListMaterials returns paginated materials
// @Summary      List materials
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response
// @Router       /api/materials [get]
func (h *VendorHandler) ListMaterials(c *gin.Context) {
	params := pagination.Parse(c)

	materials, total, err := h.vendorService.ListMaterials(c.Request.Context(), middleware.OrgID(c), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, materials, params.Page, params.Limit, total))
}

// ListMaterialSources returns the vendor sourcing records for a material in priority order
// @Summary      List material sources
// @Tags         materials
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Material ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/materials/{id}/sources [get]
func (h *VendorHandler) ListMaterialSources(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid material id"))
		return
	}

	sources, err := h.vendorService.ListMaterialSources(c.Request.Context(), middleware.OrgID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, sources))
}

// UpsertMaterialSource creates or updates the sourcing record for one vendor on a material
// @Summary      Upsert material source
// @Tags         materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                               true  "Material ID"
// @Param        payload  body  service.UpsertMaterialSourceRequest  true  "Source payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/materials/{id}/sources [put]
func (h *VendorHandler) UpsertMaterialSource(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid material id"))
		return
	}

	var req service.UpsertMaterialSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	source, err := h.vendorService.UpsertMaterialSource(c.Request.Context(), middleware.OrgID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, source))
}
