package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/middleware"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/repository"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/service"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/testutil"
	"gorm.io/gorm"
)

// setupProcureAPI wires the full procurement API against an isolated test schema,
// mirroring the route table in cmd/procure.
func setupProcureAPI(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, service.NewDedupCache(nil), nil, "")
	h := NewHandlers(services)

	r := testutil.SetupRouter()
	api := testutil.AuthGroup(r, "/api/v1/procure")

	crs := api.Group("/change-requests")
	{
		crs.GET("", h.CR.List)
		crs.POST("", h.CR.Create)
		crs.GET("/:id", h.CR.Get)
		crs.POST("/:id/send-for-review", h.CR.SendForReview)
		crs.POST("/:id/approve", h.CR.Approve)
		crs.POST("/:id/reject", h.CR.Reject)
		crs.GET("/:id/history", h.CR.History)
		crs.GET("/:id/attachments/download", h.CR.DownloadAttachment)

		crs.POST("/:id/select-vendor", h.Vendor.SelectVendor)
		crs.POST("/:id/materialize", h.POChild.Materialize)
		crs.POST("/:id/send-to-td", h.POChild.SendToTD)
		crs.GET("/:id/children", h.POChild.ListChildren)
	}

	api.GET("/boqs/:boq_id/history", h.CR.BOQHistory)

	vendors := api.Group("/vendors")
	{
		vendors.GET("", h.Vendor.List)
		vendors.POST("", h.Vendor.Create)
		vendors.GET("/:id", h.Vendor.Get)
		vendors.PUT("/:id", h.Vendor.Update)
		vendors.PUT("/:id/status", middleware.RequireRole(entity.RoleBuyer, entity.RoleTechnicalDirector), h.Vendor.SetStatus)
	}

	children := api.Group("/po-children")
	{
		children.GET("/pending-td", h.POChild.PendingTD)
		children.GET("/:id", h.POChild.Get)
		children.POST("/:id/approve", h.POChild.Approve)
		children.POST("/:id/reject", h.POChild.Reject)
		children.POST("/:id/reselect-vendor", h.POChild.ReselectVendor)
		children.POST("/:id/complete", h.POChild.Complete)
		children.DELETE("/:id", h.POChild.Delete)
	}

	return db, r
}

// 审批链测试用户
const (
	seUserID    = "se-001"
	pmUserID    = "pm-001"
	mepUserID   = "mep-001"
	estUserID   = "est-001"
	buyerUserID = "buyer-001"
	tdUserID    = "td-001"
)

func seedApprovalChain(t *testing.T, db *gorm.DB) {
	t.Helper()
	testutil.SeedUser(t, db, seUserID, "王小明", entity.RoleSiteEngineer)
	testutil.SeedUser(t, db, pmUserID, "李项目", entity.RoleProjectManager)
	testutil.SeedUser(t, db, mepUserID, "张机电", entity.RoleMEP)
	testutil.SeedUser(t, db, estUserID, "陈估算", entity.RoleEstimator)
	testutil.SeedUser(t, db, buyerUserID, "刘买手", entity.RoleBuyer)
	testutil.SeedUser(t, db, tdUserID, "赵总监", entity.RoleTechnicalDirector)
}

func tokenFor(role entity.Role) string {
	switch role {
	case entity.RoleSiteEngineer:
		return testutil.GenerateTestToken(seUserID, "王小明", "site_engineer")
	case entity.RoleProjectManager:
		return testutil.GenerateTestToken(pmUserID, "李项目", "project_manager")
	case entity.RoleMEP:
		return testutil.GenerateTestToken(mepUserID, "张机电", "mep")
	case entity.RoleEstimator:
		return testutil.GenerateTestToken(estUserID, "陈估算", "estimator")
	case entity.RoleBuyer:
		return testutil.GenerateTestToken(buyerUserID, "刘买手", "buyer")
	case entity.RoleTechnicalDirector:
		return testutil.GenerateTestToken(tdUserID, "赵总监", "technical_director")
	}
	return ""
}

// createTestCR submits a change request as the site engineer and returns the response data
func createTestCR(t *testing.T, r *gin.Engine, materials []map[string]interface{}) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{
		"boq_id":        "boq-001",
		"project_id":    "proj-001",
		"justification": "现场实际用量超出概算",
		"materials":     materials,
	}
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests", body, tokenFor(entity.RoleSiteEngineer))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for create, got %d: %s", w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)["data"].(map[string]interface{})
}

// TestCRCreateCatalogEnrichment tests catalog line matching, new-material flag and total cost
func TestCRCreateCatalogEnrichment(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)
	testutil.SeedBOQItem(t, db, "item-001", "boq-001", "镀锌钢管DN50", 85, 200)

	data := createTestCR(t, r, []map[string]interface{}{
		{"name": "镀锌钢管DN50", "quantity": 50},
		{"name": "定制风管法兰", "quantity": 10, "unit_price": 30},
	})

	if data["status"] != "pending" {
		t.Fatalf("expected status pending, got %v", data["status"])
	}
	if data["requester_id"] != seUserID {
		t.Fatalf("expected requester %s, got %v", seUserID, data["requester_id"])
	}
	code := data["cr_code"].(string)
	if len(code) == 0 || code[:3] != "CR-" {
		t.Fatalf("unexpected cr code %q", code)
	}
	// 目录行单价85*50 + 新材料30*10
	if data["total_cost"].(float64) != 4550 {
		t.Fatalf("expected total cost 4550, got %v", data["total_cost"])
	}

	materials := data["materials"].([]interface{})
	if len(materials) != 2 {
		t.Fatalf("expected 2 materials, got %d", len(materials))
	}
	for _, raw := range materials {
		m := raw.(map[string]interface{})
		switch m["name"] {
		case "镀锌钢管DN50":
			if m["is_new"].(bool) {
				t.Fatal("catalog material should not be flagged as new")
			}
			if m["unit_price"].(float64) != 85 {
				t.Fatalf("expected catalog unit price 85, got %v", m["unit_price"])
			}
		case "定制风管法兰":
			if !m["is_new"].(bool) {
				t.Fatal("off-catalog material should be flagged as new")
			}
		default:
			t.Fatalf("unexpected material %v", m["name"])
		}
	}

	// 创建动作必须进台账
	crID := data["id"].(string)
	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/procure/change-requests/"+crID+"/history", nil, tokenFor(entity.RoleSiteEngineer))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for history, got %d: %s", w.Code, w.Body.String())
	}
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(items))
	}
	if items[0].(map[string]interface{})["type"] != "create" {
		t.Fatalf("expected create action, got %v", items[0].(map[string]interface{})["type"])
	}
}

// TestCRCreateIdempotent tests that resubmitting the same request returns the existing CR
func TestCRCreateIdempotent(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)

	materials := []map[string]interface{}{
		{"name": "防火涂料", "quantity": 20, "unit_price": 45},
	}
	first := createTestCR(t, r, materials)
	second := createTestCR(t, r, materials)

	if first["id"] != second["id"] {
		t.Fatalf("duplicate submission created a second CR: %v vs %v", first["id"], second["id"])
	}

	var count int64
	db.Model(&entity.ChangeRequest{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 change request in db, got %d", count)
	}
}

// TestCRCreateValidation tests request validation failures
func TestCRCreateValidation(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)
	token := tokenFor(entity.RoleSiteEngineer)

	// 缺少申请理由
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests", map[string]interface{}{
		"boq_id":    "boq-001",
		"materials": []map[string]interface{}{{"name": "水泥", "quantity": 5}},
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing justification, got %d", w.Code)
	}

	// 数量必须为正
	w2 := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests", map[string]interface{}{
		"boq_id":        "boq-001",
		"justification": "测试",
		"materials":     []map[string]interface{}{{"name": "水泥", "quantity": 0}},
	}, token)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero quantity, got %d", w2.Code)
	}

	// 无token
	w3 := testutil.DoRequest(r, http.MethodGet, "/api/v1/procure/change-requests", nil, "")
	if w3.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w3.Code)
	}
}

// TestCRSendForReviewDelegatorRouting tests that a site engineer's CR routes back
// to whoever delegated the BOQ work to them
func TestCRSendForReviewDelegatorRouting(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)

	// 机电负责人把这块BOQ派给了现场工程师
	assignment := &entity.BOQItemAssignment{
		ID:             "ia-001",
		BOQID:          "boq-001",
		AssigneeID:     seUserID,
		AssignedByID:   mepUserID,
		AssignedByName: "张机电",
		AssignedByRole: "mep",
	}
	if err := db.Create(assignment).Error; err != nil {
		t.Fatalf("Failed to seed item assignment: %v", err)
	}

	data := createTestCR(t, r, []map[string]interface{}{
		{"name": "桥架配件", "quantity": 8, "unit_price": 60},
	})
	crID := data["id"].(string)

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/send-for-review",
		map[string]interface{}{}, tokenFor(entity.RoleSiteEngineer))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if resp["status"] != "send_to_mep" {
		t.Fatalf("expected send_to_mep, got %v", resp["status"])
	}
	if resp["approval_required_from"] != "mep" {
		t.Fatalf("expected approval from mep, got %v", resp["approval_required_from"])
	}
	if resp["assigned_mep_id"] != mepUserID {
		t.Fatalf("expected assigned mep %s, got %v", mepUserID, resp["assigned_mep_id"])
	}

	// 只有发起人能推送
	w2 := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/send-for-review",
		map[string]interface{}{}, tokenFor(entity.RoleBuyer))
	if w2.Code != http.StatusConflict && w2.Code != http.StatusForbidden {
		t.Fatalf("expected 403/409 for non-requester, got %d: %s", w2.Code, w2.Body.String())
	}
}

// TestCRSendForReviewProjectFallback tests routing to the project PM when
// no BOQ-level delegation exists
func TestCRSendForReviewProjectFallback(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)
	testutil.SeedProjectAssignment(t, db, "pa-001", "proj-001", entity.RoleProjectManager, pmUserID)

	data := createTestCR(t, r, []map[string]interface{}{
		{"name": "脚手架扣件", "quantity": 100, "unit_price": 3.5},
	})
	crID := data["id"].(string)

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/send-for-review",
		map[string]interface{}{}, tokenFor(entity.RoleSiteEngineer))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if resp["status"] != "send_to_pm" {
		t.Fatalf("expected send_to_pm, got %v", resp["status"])
	}
	if resp["assigned_pm_id"] != pmUserID {
		t.Fatalf("expected assigned pm %s, got %v", pmUserID, resp["assigned_pm_id"])
	}

	// 重复推送被状态机拦住
	w2 := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/send-for-review",
		map[string]interface{}{}, tokenFor(entity.RoleSiteEngineer))
	if w2.Code != http.StatusConflict {
		t.Fatalf("expected 409 for double send, got %d: %s", w2.Code, w2.Body.String())
	}
}

// TestCRApprovalChainThroughEstimator tests the full chain for a CR carrying
// a new material: SE -> PM -> estimator -> buyer
func TestCRApprovalChainThroughEstimator(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)
	testutil.SeedProjectAssignment(t, db, "pa-001", "proj-001", entity.RoleProjectManager, pmUserID)

	data := createTestCR(t, r, []map[string]interface{}{
		{"name": "定制铝板幕墙", "quantity": 12, "unit_price": 800},
	})
	crID := data["id"].(string)

	testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/send-for-review",
		map[string]interface{}{}, tokenFor(entity.RoleSiteEngineer))

	// 新材料默认转估算员
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/approve",
		map[string]interface{}{"comment": "同意，转估算核价"}, tokenFor(entity.RoleProjectManager))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for pm approve, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if resp["status"] != "approved_by_pm" {
		t.Fatalf("expected approved_by_pm, got %v", resp["status"])
	}
	if resp["approval_required_from"] != "estimator" {
		t.Fatalf("expected approval from estimator, got %v", resp["approval_required_from"])
	}

	// 错误角色在估算节点审批被拒
	w2 := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/approve",
		map[string]interface{}{}, tokenFor(entity.RoleBuyer))
	if w2.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong role, got %d: %s", w2.Code, w2.Body.String())
	}

	// 估算员核价通过，必须显式指定买手
	w3 := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/approve",
		map[string]interface{}{}, tokenFor(entity.RoleEstimator))
	if w3.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without buyer id, got %d: %s", w3.Code, w3.Body.String())
	}

	w4 := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/approve",
		map[string]interface{}{"buyer_id": buyerUserID}, tokenFor(entity.RoleEstimator))
	if w4.Code != http.StatusOK {
		t.Fatalf("expected 200 for estimator approve, got %d: %s", w4.Code, w4.Body.String())
	}
	resp4 := testutil.ParseResponse(w4)["data"].(map[string]interface{})
	if resp4["status"] != "send_to_buyer" {
		t.Fatalf("expected send_to_buyer, got %v", resp4["status"])
	}
	if resp4["assigned_buyer_id"] != buyerUserID {
		t.Fatalf("expected assigned buyer %s, got %v", buyerUserID, resp4["assigned_buyer_id"])
	}
	if resp4["vendor_mode"] != true {
		t.Fatal("expected vendor mode after buyer routing")
	}
}

// TestCRApproveDirectToBuyer tests the PM routing directly to a buyer when the
// request contains only catalog materials within budget
func TestCRApproveDirectToBuyer(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)
	testutil.SeedProjectAssignment(t, db, "pa-001", "proj-001", entity.RoleProjectManager, pmUserID)
	testutil.SeedBOQItem(t, db, "item-001", "boq-001", "电缆YJV-4x25", 120, 500)

	data := createTestCR(t, r, []map[string]interface{}{
		{"name": "电缆YJV-4x25", "quantity": 80},
	})
	crID := data["id"].(string)

	testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/send-for-review",
		map[string]interface{}{}, tokenFor(entity.RoleSiteEngineer))

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/approve",
		map[string]interface{}{"buyer_id": buyerUserID}, tokenFor(entity.RoleProjectManager))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if resp["status"] != "assigned_to_buyer" {
		t.Fatalf("expected assigned_to_buyer, got %v", resp["status"])
	}
	if resp["assigned_buyer_id"] != buyerUserID {
		t.Fatalf("expected assigned buyer, got %v", resp["assigned_buyer_id"])
	}
}

// TestCRReject tests rejection at a mid-chain node and terminal state enforcement
func TestCRReject(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)
	testutil.SeedProjectAssignment(t, db, "pa-001", "proj-001", entity.RoleProjectManager, pmUserID)

	data := createTestCR(t, r, []map[string]interface{}{
		{"name": "临时围挡", "quantity": 30, "unit_price": 55},
	})
	crID := data["id"].(string)

	testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/send-for-review",
		map[string]interface{}{}, tokenFor(entity.RoleSiteEngineer))

	// 驳回必须给理由
	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/reject",
		map[string]interface{}{}, tokenFor(entity.RoleProjectManager))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without reason, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/reject",
		map[string]interface{}{"reason": "概算内库存仍可调拨"}, tokenFor(entity.RoleProjectManager))
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for reject, got %d: %s", w2.Code, w2.Body.String())
	}
	resp := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if resp["status"] != "rejected" {
		t.Fatalf("expected rejected, got %v", resp["status"])
	}
	if resp["reject_reason"] != "概算内库存仍可调拨" {
		t.Fatalf("expected reject reason recorded, got %v", resp["reject_reason"])
	}
	if resp["approval_required_from"] != "" {
		t.Fatalf("expected routing cleared, got %v", resp["approval_required_from"])
	}
	if resp["assigned_pm_id"] != nil {
		t.Fatalf("expected assigned pm cleared, got %v", resp["assigned_pm_id"])
	}

	// 终态不可再审批
	w3 := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/approve",
		map[string]interface{}{}, tokenFor(entity.RoleProjectManager))
	if w3.Code != http.StatusConflict {
		t.Fatalf("expected 409 on terminal CR, got %d: %s", w3.Code, w3.Body.String())
	}
}

// TestCRListFilters tests list pagination and status filtering
func TestCRListFilters(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)

	createTestCR(t, r, []map[string]interface{}{{"name": "材料A", "quantity": 1, "unit_price": 10}})
	createTestCR(t, r, []map[string]interface{}{{"name": "材料B", "quantity": 2, "unit_price": 20}})

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/procure/change-requests?status=pending", nil, tokenFor(entity.RoleSiteEngineer))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 pending CRs, got %d", len(items))
	}

	w2 := testutil.DoRequest(r, http.MethodGet, "/api/v1/procure/change-requests?status=rejected", nil, tokenFor(entity.RoleSiteEngineer))
	data2 := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	items2, _ := data2["items"].([]interface{})
	if len(items2) != 0 {
		t.Fatalf("expected 0 rejected CRs, got %d", len(items2))
	}
}

// TestVendorCRUDAndStatusGuard tests vendor management and the role guard on status changes
func TestVendorCRUDAndStatusGuard(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/vendors", map[string]interface{}{
		"name":         "华东钢材供应商",
		"category":     "structural",
		"contact_name": "钱经理",
	}, tokenFor(entity.RoleBuyer))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	vendorID := data["id"].(string)
	if data["status"] != "pending" {
		t.Fatalf("expected pending vendor, got %v", data["status"])
	}
	if data["code"].(string)[:4] != "VEN-" {
		t.Fatalf("unexpected vendor code %v", data["code"])
	}

	// 现场工程师无权调供应商状态
	w2 := testutil.DoRequest(r, http.MethodPut, "/api/v1/procure/vendors/"+vendorID+"/status",
		map[string]interface{}{"status": "active"}, tokenFor(entity.RoleSiteEngineer))
	if w2.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for site engineer, got %d: %s", w2.Code, w2.Body.String())
	}

	w3 := testutil.DoRequest(r, http.MethodPut, "/api/v1/procure/vendors/"+vendorID+"/status",
		map[string]interface{}{"status": "active"}, tokenFor(entity.RoleBuyer))
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	if testutil.ParseResponse(w3)["data"].(map[string]interface{})["status"] != "active" {
		t.Fatal("expected vendor activated")
	}

	// 非法状态值
	w4 := testutil.DoRequest(r, http.MethodPut, "/api/v1/procure/vendors/"+vendorID+"/status",
		map[string]interface{}{"status": "blacklisted"}, tokenFor(entity.RoleBuyer))
	if w4.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d: %s", w4.Code, w4.Body.String())
	}
}

// TestBOQHistoryTimeline tests the BOQ-level ledger timeline across operations
func TestBOQHistoryTimeline(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)
	testutil.SeedProjectAssignment(t, db, "pa-001", "proj-001", entity.RoleProjectManager, pmUserID)

	data := createTestCR(t, r, []map[string]interface{}{
		{"name": "镀锌线管", "quantity": 60, "unit_price": 12},
	})
	crID := data["id"].(string)

	w := testutil.DoRequest(r, http.MethodPost, "/api/v1/procure/change-requests/"+crID+"/send-for-review",
		map[string]interface{}{}, tokenFor(entity.RoleSiteEngineer))
	if w.Code != http.StatusOK {
		t.Fatalf("send-for-review failed: %d %s", w.Code, w.Body.String())
	}

	wh := testutil.DoRequest(r, http.MethodGet, "/api/v1/procure/boqs/boq-001/history", nil, tokenFor(entity.RoleProjectManager))
	if wh.Code != http.StatusOK {
		t.Fatalf("boq history failed: %d %s", wh.Code, wh.Body.String())
	}
	payload := testutil.ParseResponse(wh)["data"].(map[string]interface{})
	items := payload["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(items))
	}
	types := map[string]bool{}
	for _, it := range items {
		types[it.(map[string]interface{})["type"].(string)] = true
	}
	if !types["create"] || !types["send_for_review"] {
		t.Fatalf("expected create and send_for_review entries, got %v", types)
	}
	if payload["pagination"].(map[string]interface{})["total"].(float64) != 2 {
		t.Fatal("expected pagination total 2")
	}
}

// TestDownloadAttachmentLookup tests that only registered attachments resolve
func TestDownloadAttachmentLookup(t *testing.T) {
	db, r := setupProcureAPI(t)
	seedApprovalChain(t, db)

	data := createTestCR(t, r, []map[string]interface{}{
		{"name": "防火涂料", "quantity": 10, "unit_price": 300},
	})
	crID := data["id"].(string)

	atts := entity.JSONBArray{map[string]interface{}{"path": "quotes/q1.pdf", "name": "报价单.pdf"}}
	if err := db.Model(&entity.ChangeRequest{}).Where("id = ?", crID).
		Update("attachments", atts).Error; err != nil {
		t.Fatalf("seed attachments: %v", err)
	}

	// 未登记路径不可下载
	w := testutil.DoRequest(r, http.MethodGet,
		"/api/v1/procure/change-requests/"+crID+"/attachments/download?path=quotes/other.pdf",
		nil, tokenFor(entity.RoleSiteEngineer))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unregistered path, got %d: %s", w.Code, w.Body.String())
	}

	// 已登记路径通过校验，未配置存储时报依赖不可用
	w2 := testutil.DoRequest(r, http.MethodGet,
		"/api/v1/procure/change-requests/"+crID+"/attachments/download?path=quotes/q1.pdf",
		nil, tokenFor(entity.RoleSiteEngineer))
	if w2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without storage, got %d: %s", w2.Code, w2.Body.String())
	}
}
