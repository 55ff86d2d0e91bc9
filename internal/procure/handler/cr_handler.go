package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/service"
)

// CRHandler 申请单处理器
type CRHandler struct {
	svc        *service.ChangeRequestService
	export     *service.ExportService
	attachment *service.AttachmentService
}

func NewCRHandler(svc *service.ChangeRequestService, export *service.ExportService, attachment *service.AttachmentService) *CRHandler {
	return &CRHandler{svc: svc, export: export, attachment: attachment}
}

// List GET /change-requests
func (h *CRHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":       c.Query("status"),
		"boq_id":       c.Query("boq_id"),
		"project_id":   c.Query("project_id"),
		"requester_id": c.Query("requester_id"),
		"pending_for":  c.Query("pending_for"),
	}

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Get GET /change-requests/:id
func (h *CRHandler) Get(c *gin.Context) {
	cr, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, cr)
}

// Create POST /change-requests
func (h *CRHandler) Create(c *gin.Context) {
	var req service.CreateCRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	cr, err := h.svc.Create(c.Request.Context(), GetActingIdentity(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, cr)
}

// SendForReview POST /change-requests/:id/send-for-review
func (h *CRHandler) SendForReview(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	cr, err := h.svc.SendForReview(c.Request.Context(), GetActingIdentity(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, cr)
}

// Approve POST /change-requests/:id/approve
func (h *CRHandler) Approve(c *gin.Context) {
	var req service.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	cr, err := h.svc.Approve(c.Request.Context(), GetActingIdentity(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, cr)
}

// Reject POST /change-requests/:id/reject
func (h *CRHandler) Reject(c *gin.Context) {
	var req service.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "驳回原因不能为空")
		return
	}

	cr, err := h.svc.Reject(c.Request.Context(), GetActingIdentity(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, cr)
}

// History GET /change-requests/:id/history
func (h *CRHandler) History(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.History(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// BOQHistory GET /boqs/:boq_id/history
func (h *CRHandler) BOQHistory(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.BOQHistory(c.Request.Context(), c.Param("boq_id"), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, ListResponse{
		Items:      items,
		Pagination: NewPagination(page, pageSize, total),
	})
}

// Export GET /change-requests/:id/export
func (h *CRHandler) Export(c *gin.Context) {
	f, filename, err := h.export.ExportCR(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

// UploadAttachment POST /change-requests/:id/attachments
func (h *CRHandler) UploadAttachment(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传附件文件")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	cr, err := h.attachment.Upload(c.Request.Context(), GetActingIdentity(c), c.Param("id"),
		file, header.Filename, header.Size, contentType)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, cr)
}

// DownloadAttachment GET /change-requests/:id/attachments/download?path=
func (h *CRHandler) DownloadAttachment(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		BadRequest(c, "附件路径不能为空")
		return
	}

	object, filename, err := h.attachment.Download(c.Request.Context(), c.Param("id"), path)
	if err != nil {
		RespondError(c, err)
		return
	}
	defer object.Close()

	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Type", "application/octet-stream")
	if _, err := io.Copy(c.Writer, object); err != nil {
		InternalError(c, "write file: "+err.Error())
	}
}
