package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/service"
)

// VendorHandler 供应商与选商处理器
type VendorHandler struct {
	svc *service.VendorService
}

func NewVendorHandler(svc *service.VendorService) *VendorHandler {
	return &VendorHandler{svc: svc}
}

// List GET /vendors
func (h *VendorHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":   c.Query("status"),
		"category": c.Query("category"),
		"search":   c.Query("search"),
	}

	items, total, err := h.svc.ListVendors(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Get GET /vendors/:id
func (h *VendorHandler) Get(c *gin.Context) {
	vendor, err := h.svc.GetVendor(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, vendor)
}

// Create POST /vendors
func (h *VendorHandler) Create(c *gin.Context) {
	var req service.VendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	vendor, err := h.svc.CreateVendor(c.Request.Context(), GetActingIdentity(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, vendor)
}

// Update PUT /vendors/:id
func (h *VendorHandler) Update(c *gin.Context) {
	var req service.VendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	vendor, err := h.svc.UpdateVendor(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, vendor)
}

// SetStatus PUT /vendors/:id/status
func (h *VendorHandler) SetStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	vendor, err := h.svc.SetVendorStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, vendor)
}

// SelectVendor POST /change-requests/:id/select-vendor
func (h *VendorHandler) SelectVendor(c *gin.Context) {
	var req service.SelectVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	cr, err := h.svc.SelectVendor(c.Request.Context(), GetActingIdentity(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, cr)
}
