package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/service"
)

// POChildHandler 采购子单处理器
type POChildHandler struct {
	svc *service.SplitService
}

func NewPOChildHandler(svc *service.SplitService) *POChildHandler {
	return &POChildHandler{svc: svc}
}

// Materialize POST /change-requests/:id/materialize
func (h *POChildHandler) Materialize(c *gin.Context) {
	var req service.MaterializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Materialize(c.Request.Context(), GetActingIdentity(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, result)
}

// ListChildren GET /change-requests/:id/children
func (h *POChildHandler) ListChildren(c *gin.Context) {
	children, err := h.svc.ListChildren(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": children})
}

// SendToTD POST /change-requests/:id/send-to-td
func (h *POChildHandler) SendToTD(c *gin.Context) {
	sent, err := h.svc.SendChildrenToTD(c.Request.Context(), GetActingIdentity(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": sent})
}

// Get GET /po-children/:id
func (h *POChildHandler) Get(c *gin.Context) {
	child, err := h.svc.GetChild(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, child)
}

// PendingTD GET /po-children/pending-td
func (h *POChildHandler) PendingTD(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.ListPendingTD(c.Request.Context(), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Approve POST /po-children/:id/approve
func (h *POChildHandler) Approve(c *gin.Context) {
	var req service.ChildDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	child, err := h.svc.ApprovePOChild(c.Request.Context(), GetActingIdentity(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, child)
}

// Reject POST /po-children/:id/reject
func (h *POChildHandler) Reject(c *gin.Context) {
	var req service.ChildDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	child, err := h.svc.RejectPOChild(c.Request.Context(), GetActingIdentity(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, child)
}

// ReselectVendor POST /po-children/:id/reselect-vendor
func (h *POChildHandler) ReselectVendor(c *gin.Context) {
	var req service.ReselectVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	child, err := h.svc.ReselectChildVendor(c.Request.Context(), GetActingIdentity(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, child)
}

// Complete POST /po-children/:id/complete
func (h *POChildHandler) Complete(c *gin.Context) {
	var req service.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	child, err := h.svc.CompletePurchase(c.Request.Context(), GetActingIdentity(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, child)
}

// Delete DELETE /po-children/:id
func (h *POChildHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteChild(c.Request.Context(), GetActingIdentity(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}
