package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/procerr"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/repository"
	"gorm.io/gorm"
)

// SplitService 申请单拆分与子单生命周期服务
type SplitService struct {
	repos *repository.Repositories
	db    *gorm.DB

	notifier Notifier
}

func NewSplitService(repos *repository.Repositories, db *gorm.DB) *SplitService {
	return &SplitService{repos: repos, db: db}
}

// ListChildren 查询父单的全部子单
func (s *SplitService) ListChildren(ctx context.Context, crID string) ([]entity.POChild, error) {
	if _, err := s.repos.CR.FindByID(ctx, crID); err != nil {
		return nil, err
	}
	return s.repos.POChild.FindByParent(ctx, crID)
}

// GetChild 查询子单详情
func (s *SplitService) GetChild(ctx context.Context, id string) (*entity.POChild, error) {
	return s.repos.POChild.FindByID(ctx, id)
}

// ListPendingTD TD供应商审批队列
func (s *SplitService) ListPendingTD(ctx context.Context, page, pageSize int) ([]entity.POChild, int64, error) {
	return s.repos.POChild.FindPendingTD(ctx, page, pageSize)
}

// MaterializeGroup 一次拆分中的一个分组
// vendor分组的供应商取自各材料的选商记录，组内必须同供应商
type MaterializeGroup struct {
	RoutingType string   `json:"routing_type" binding:"required,oneof=vendor store"`
	Materials   []string `json:"materials" binding:"required,min=1"`
}

// MaterializeRequest 拆分请求
type MaterializeRequest struct {
	Groups  []MaterializeGroup `json:"groups" binding:"required,min=1"`
	Comment string             `json:"comment"`
}

// MaterializeResult 拆分结果
type MaterializeResult struct {
	Created []entity.POChild `json:"created"`
	Merged  []entity.POChild `json:"merged"`
	Dropped []string         `json:"dropped"` // 重复采购保护丢弃的材料
}

// Materialize 把申请单材料拆分为采购子单
//
//	同供应商且TD未终审的既有子单 -> 行项并入（合并规则）
//	已通过/已执行子单覆盖的材料 -> 丢弃并记台账（重复采购保护）
//	store分组 -> 直接进入routed_to_store终态，材料登记为已路由
//
// 子单后缀号取自父单计数器，软删除不回收号段
func (s *SplitService) Materialize(ctx context.Context, actor entity.ActingIdentity, crID string, req *MaterializeRequest) (*MaterializeResult, error) {
	cr, err := s.repos.CR.FindByID(ctx, crID)
	if err != nil {
		return nil, err
	}
	if !canTransition(entity.ActionTypeMaterialize, cr.Status) {
		return nil, procerr.StateConflictf("change request %s is %s, cannot split", cr.CRCode, cr.Status)
	}
	if err := s.checkBuyerOrAdmin(actor, cr); err != nil {
		return nil, err
	}

	approved, err := s.repos.POChild.ApprovedMaterialNames(ctx, cr.ID)
	if err != nil {
		return nil, procerr.Persistencef("approved materials lookup: %v", err)
	}
	selections, err := s.repos.Selection.SelectionMap(ctx, cr.ID)
	if err != nil {
		return nil, procerr.Persistencef("selection lookup: %v", err)
	}

	result := &MaterializeResult{}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, group := range req.Groups {
			if err := s.materializeGroup(tx, cr, actor, group, approved, selections, result); err != nil {
				return err
			}
		}

		if len(result.Created) == 0 && len(result.Merged) == 0 {
			return procerr.StateConflictf("all requested materials are already covered by finalized purchase orders")
		}

		if cr.Status != entity.CRStatusSplitToPO {
			cr.Status = entity.CRStatusSplitToPO
			cr.ApprovalRequiredFrom = ""
		}
		if err := tx.Save(cr).Error; err != nil {
			return err
		}

		var poCodes []string
		for _, c := range result.Created {
			poCodes = append(poCodes, c.POCode)
		}
		for _, c := range result.Merged {
			poCodes = append(poCodes, c.POCode)
		}
		if err := s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:    cr.BOQID,
			CRID:     cr.ID,
			Role:     string(actor.Role()),
			Type:     entity.ActionTypeMaterialize,
			Sender:   actor.Name,
			Status:   cr.Status,
			Comments: req.Comment,
			References: entity.JSONB{
				"cr_code":  cr.CRCode,
				"po_codes": poCodes,
				"dropped":  result.Dropped,
			},
		}); err != nil {
			return err
		}

		// 纯库房路由时父单可能已整体完结
		return s.recomputeParent(tx, cr, actor)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// materializeGroup 处理单个拆分分组，创建/合并子单
func (s *SplitService) materializeGroup(tx *gorm.DB, cr *entity.ChangeRequest, actor entity.ActingIdentity, group MaterializeGroup, approved map[string]bool, selections map[string]entity.VendorSelection, result *MaterializeResult) error {
	// 重复采购保护：已被终审子单覆盖的材料直接丢弃并留痕
	var lines []entity.CRMaterial
	for _, name := range group.Materials {
		material := cr.MaterialByName(name)
		if material == nil {
			return procerr.Validationf("material %q not on change request %s", name, cr.CRCode)
		}
		if approved[name] {
			result.Dropped = append(result.Dropped, name)
			if err := s.repos.History.AppendTx(tx, &entity.HistoryAction{
				BOQID:  cr.BOQID,
				CRID:   cr.ID,
				Role:   string(actor.Role()),
				Type:   entity.ActionTypeDuplicateDropped,
				Sender: actor.Name,
				Status: cr.Status,
				References: entity.JSONB{
					"cr_code":  cr.CRCode,
					"material": name,
				},
			}); err != nil {
				return err
			}
			continue
		}
		lines = append(lines, *material)
	}
	if len(lines) == 0 {
		return nil
	}

	if group.RoutingType == entity.RoutingTypeStore {
		return s.materializeStore(tx, cr, actor, lines, result)
	}
	return s.materializeVendor(tx, cr, actor, lines, selections, result)
}

// materializeVendor 供应商路由分组：同供应商并入既有未终审子单，否则开新子单
func (s *SplitService) materializeVendor(tx *gorm.DB, cr *entity.ChangeRequest, actor entity.ActingIdentity, lines []entity.CRMaterial, selections map[string]entity.VendorSelection, result *MaterializeResult) error {
	var vendorID, vendorName string
	var selectedByID, selectedByName string
	for _, line := range lines {
		sel, ok := selections[line.Name]
		if !ok || sel.Status == entity.SelectionStatusStoreRouted {
			return procerr.Validationf("material %q has no vendor selection", line.Name)
		}
		if vendorID == "" {
			vendorID = sel.VendorID
			vendorName = sel.VendorName
			selectedByID = sel.SelectedByID
			selectedByName = sel.SelectedByName
		} else if sel.VendorID != vendorID {
			return procerr.Validationf("materials in one vendor group must share a vendor, got %s and %s", vendorName, sel.VendorName)
		}
	}

	target, err := s.repos.POChild.FindMergeTargetTx(tx, cr.ID, vendorID)
	if err != nil {
		return err
	}
	if target != nil {
		// 合并规则：并入同供应商未终审子单，同名材料整行刷新（议价/数量以本次为准），
		// 新材料追加，驳回态子单重新排队
		for _, line := range lines {
			if idx := target.ItemIndex(line.Name); idx >= 0 {
				item := &target.Items[idx]
				item.Quantity = line.Quantity
				item.Unit = line.Unit
				item.UnitPrice = line.UnitPrice
				item.TotalPrice = line.TotalPrice
				if err := tx.Save(item).Error; err != nil {
					return err
				}
				continue
			}
			item := newChildItem(target.ID, line, len(target.Items)+1)
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			target.Items = append(target.Items, item)
		}
		target.RecalcTotal()
		target.Status = entity.POChildStatusPendingTD
		target.RejectReason = ""
		target.NotifiedAt = nil
		if err := tx.Save(target).Error; err != nil {
			return err
		}
		result.Merged = append(result.Merged, *target)

		return s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:  cr.BOQID,
			CRID:   cr.ID,
			Role:   string(actor.Role()),
			Type:   entity.ActionTypeMergeChild,
			Sender: actor.Name,
			Status: cr.Status,
			References: entity.JSONB{
				"cr_code":     cr.CRCode,
				"po_code":     target.POCode,
				"vendor_name": vendorName,
			},
		})
	}

	cr.ChildSeq++
	child := &entity.POChild{
		ID:              uuid.New().String()[:32],
		POCode:          fmt.Sprintf("%s.%d", cr.CRCode, cr.ChildSeq),
		CRID:            cr.ID,
		Seq:             cr.ChildSeq,
		RoutingType:     entity.RoutingTypeVendor,
		VendorID:        &vendorID,
		VendorName:      &vendorName,
		Status:          entity.POChildStatusPendingTD,
		SelectionStatus: entity.SelectionStatusPendingTD,
		SelectedByID:    selectedByID,
		SelectedByName:  selectedByName,
	}
	for i, line := range lines {
		child.Items = append(child.Items, newChildItem(child.ID, line, i+1))
	}
	child.RecalcTotal()
	if err := tx.Create(child).Error; err != nil {
		return err
	}
	result.Created = append(result.Created, *child)
	return nil
}

// materializeStore 库房路由分组：子单直接终态，不进入TD审批
func (s *SplitService) materializeStore(tx *gorm.DB, cr *entity.ChangeRequest, actor entity.ActingIdentity, lines []entity.CRMaterial, result *MaterializeResult) error {
	cr.ChildSeq++
	child := &entity.POChild{
		ID:              uuid.New().String()[:32],
		POCode:          fmt.Sprintf("%s.%d", cr.CRCode, cr.ChildSeq),
		CRID:            cr.ID,
		Seq:             cr.ChildSeq,
		RoutingType:     entity.RoutingTypeStore,
		Status:          entity.POChildStatusRoutedToStore,
		SelectionStatus: entity.SelectionStatusStoreRouted,
		SelectedByID:    actor.UserID,
		SelectedByName:  actor.Name,
	}
	for i, line := range lines {
		child.Items = append(child.Items, newChildItem(child.ID, line, i+1))
		if !cr.RoutedMaterials.Contains(line.Name) {
			cr.RoutedMaterials = append(cr.RoutedMaterials, line.Name)
		}
	}
	child.RecalcTotal()
	if err := tx.Create(child).Error; err != nil {
		return err
	}

	// 对应选商记录（如有）标记为库房路由，退出TD审批队列
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		names = append(names, line.Name)
	}
	if err := tx.Model(&entity.VendorSelection{}).
		Where("cr_id = ? AND material_name IN ?", cr.ID, names).
		Update("status", entity.SelectionStatusStoreRouted).Error; err != nil {
		return err
	}

	result.Created = append(result.Created, *child)
	return nil
}

// newChildItem 由申请单行项复制出子单行项
func newChildItem(childID string, line entity.CRMaterial, sortOrder int) entity.POChildItem {
	return entity.POChildItem{
		ID:           uuid.New().String()[:32],
		POChildID:    childID,
		MaterialName: line.Name,
		Quantity:     line.Quantity,
		Unit:         line.Unit,
		UnitPrice:    line.UnitPrice,
		TotalPrice:   line.TotalPrice,
		SortOrder:    sortOrder,
	}
}

// ChildDecisionRequest TD子单审批请求
type ChildDecisionRequest struct {
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}

// ApprovePOChild TD审批通过子单
func (s *SplitService) ApprovePOChild(ctx context.Context, actor entity.ActingIdentity, childID string, req *ChildDecisionRequest) (*entity.POChild, error) {
	child, cr, err := s.loadChildWithParent(ctx, childID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTD(actor); err != nil {
		return nil, err
	}
	if child.Status != entity.POChildStatusPendingTD {
		return nil, procerr.StateConflictf("po child %s is %s, cannot approve", child.POCode, child.Status)
	}

	now := time.Now()
	child.Status = entity.POChildStatusVendorApproved
	child.SelectionStatus = entity.SelectionStatusApproved
	child.ApprovedByID = &actor.UserID
	child.ApprovedAt = &now
	child.RejectReason = ""

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(child).Error; err != nil {
			return err
		}
		if err := s.markSelections(tx, cr.ID, child, entity.SelectionStatusApproved, actor, &now); err != nil {
			return err
		}
		return s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:    cr.BOQID,
			CRID:     cr.ID,
			Role:     string(actor.Role()),
			Type:     entity.ActionTypeChildApprove,
			Sender:   actor.Name,
			Receiver: child.SelectedByName,
			Status:   child.Status,
			Comments: req.Comment,
			References: entity.JSONB{
				"cr_code": cr.CRCode,
				"po_code": child.POCode,
			},
		})
	})
	if err != nil {
		return nil, procerr.Persistencef("approve po child: %v", err)
	}

	s.notifyChildDecision(child, true, req.Comment)
	return child, nil
}

// RejectPOChild TD驳回子单
// 供应商信息清空等待买手重选，选商买手保留用于通知与审计
func (s *SplitService) RejectPOChild(ctx context.Context, actor entity.ActingIdentity, childID string, req *ChildDecisionRequest) (*entity.POChild, error) {
	child, cr, err := s.loadChildWithParent(ctx, childID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTD(actor); err != nil {
		return nil, err
	}
	if child.Status != entity.POChildStatusPendingTD {
		return nil, procerr.StateConflictf("po child %s is %s, cannot reject", child.POCode, child.Status)
	}
	if req.Reason == "" {
		return nil, procerr.Validationf("reject reason is required")
	}

	rejectedVendor := ""
	if child.VendorName != nil {
		rejectedVendor = *child.VendorName
	}
	child.Status = entity.POChildStatusTDRejected
	child.RejectReason = req.Reason
	child.VendorID = nil
	child.VendorName = nil

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(child).Error; err != nil {
			return err
		}
		if err := s.markSelections(tx, cr.ID, child, entity.SelectionStatusRejected, actor, nil); err != nil {
			return err
		}
		return s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:    cr.BOQID,
			CRID:     cr.ID,
			Role:     string(actor.Role()),
			Type:     entity.ActionTypeChildReject,
			Sender:   actor.Name,
			Receiver: child.SelectedByName,
			Status:   child.Status,
			Comments: req.Reason,
			References: entity.JSONB{
				"cr_code":         cr.CRCode,
				"po_code":         child.POCode,
				"rejected_vendor": rejectedVendor,
			},
		})
	})
	if err != nil {
		return nil, procerr.Persistencef("reject po child: %v", err)
	}

	s.notifyChildDecision(child, false, req.Reason)
	return child, nil
}

// ReselectVendorRequest 驳回子单重新选商请求
type ReselectVendorRequest struct {
	VendorID        string   `json:"vendor_id" binding:"required"`
	NegotiatedPrice *float64 `json:"negotiated_price"`
	Notes           string   `json:"notes"`
}

// ReselectChildVendor 买手为驳回子单重选供应商，子单重新排队TD审批
func (s *SplitService) ReselectChildVendor(ctx context.Context, actor entity.ActingIdentity, childID string, req *ReselectVendorRequest) (*entity.POChild, error) {
	child, cr, err := s.loadChildWithParent(ctx, childID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBuyerOrAdmin(actor, cr); err != nil {
		return nil, err
	}
	if child.Status != entity.POChildStatusTDRejected {
		return nil, procerr.StateConflictf("po child %s is %s, only rejected children can be reselected", child.POCode, child.Status)
	}

	vendor, err := s.repos.Vendor.FindByID(ctx, req.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Status != entity.VendorStatusActive {
		return nil, procerr.Validationf("vendor %s is %s, only active vendors can be selected", vendor.Name, vendor.Status)
	}

	child.VendorID = &vendor.ID
	child.VendorName = &vendor.Name
	child.Status = entity.POChildStatusPendingTD
	child.SelectionStatus = entity.SelectionStatusPendingTD
	child.RejectReason = ""
	child.NotifiedAt = nil
	child.SelectedByID = actor.UserID
	child.SelectedByName = actor.Name

	if req.NegotiatedPrice != nil {
		for i := range child.Items {
			child.Items[i].UnitPrice = *req.NegotiatedPrice
			child.Items[i].TotalPrice = child.Items[i].Quantity * *req.NegotiatedPrice
		}
	}
	child.RecalcTotal()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(child).Error; err != nil {
			return err
		}
		for i := range child.Items {
			if err := tx.Save(&child.Items[i]).Error; err != nil {
				return err
			}
		}

		// 同步父单选商记录到新供应商
		for _, item := range child.Items {
			if err := tx.Model(&entity.VendorSelection{}).
				Where("cr_id = ? AND material_name = ?", cr.ID, item.MaterialName).
				Updates(map[string]any{
					"vendor_id":        vendor.ID,
					"vendor_name":      vendor.Name,
					"vendor_contact":   vendor.ContactName,
					"negotiated_price": req.NegotiatedPrice,
					"status":           entity.SelectionStatusPendingTD,
					"selected_by_id":   actor.UserID,
					"selected_by_name": actor.Name,
				}).Error; err != nil {
				return err
			}
		}

		return s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:    cr.BOQID,
			CRID:     cr.ID,
			Role:     string(actor.Role()),
			Type:     entity.ActionTypeChildReselect,
			Sender:   actor.Name,
			Status:   child.Status,
			Comments: req.Notes,
			References: entity.JSONB{
				"cr_code":     cr.CRCode,
				"po_code":     child.POCode,
				"vendor_name": vendor.Name,
			},
		})
	})
	if err != nil {
		return nil, procerr.Persistencef("reselect child vendor: %v", err)
	}

	s.notifyPendingChild(child)
	return child, nil
}

// CompleteRequest 子单执行推进请求
type CompleteRequest struct {
	Notes string `json:"notes"`
}

// CompletePurchase 推进子单执行
// 供应商子单两步走：vendor_approved -> routed_to_store（下发库房）-> purchase_completed
func (s *SplitService) CompletePurchase(ctx context.Context, actor entity.ActingIdentity, childID string, req *CompleteRequest) (*entity.POChild, error) {
	child, cr, err := s.loadChildWithParent(ctx, childID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBuyerOrAdmin(actor, cr); err != nil {
		return nil, err
	}
	if child.RoutingType != entity.RoutingTypeVendor {
		return nil, procerr.StateConflictf("store child %s completes on routing, nothing to advance", child.POCode)
	}

	switch child.Status {
	case entity.POChildStatusVendorApproved:
		child.Status = entity.POChildStatusRoutedToStore
	case entity.POChildStatusRoutedToStore:
		now := time.Now()
		child.Status = entity.POChildStatusCompleted
		child.CompletedAt = &now
		child.CompletionNotes = req.Notes
	default:
		return nil, procerr.StateConflictf("po child %s is %s, cannot advance", child.POCode, child.Status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(child).Error; err != nil {
			return err
		}
		if err := s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:    cr.BOQID,
			CRID:     cr.ID,
			Role:     string(actor.Role()),
			Type:     entity.ActionTypeChildComplete,
			Sender:   actor.Name,
			Status:   child.Status,
			Comments: req.Notes,
			References: entity.JSONB{
				"cr_code": cr.CRCode,
				"po_code": child.POCode,
			},
		}); err != nil {
			return err
		}
		return s.recomputeParent(tx, cr, actor)
	})
	if err != nil {
		return nil, procerr.Persistencef("complete purchase: %v", err)
	}

	return child, nil
}

// DeleteChild 软删除未终审子单，后缀号不回收，终审/已执行子单不可删除
func (s *SplitService) DeleteChild(ctx context.Context, actor entity.ActingIdentity, childID string) error {
	child, cr, err := s.loadChildWithParent(ctx, childID)
	if err != nil {
		return err
	}
	if err := s.checkBuyerOrAdmin(actor, cr); err != nil {
		return err
	}
	if child.IsFinalized() {
		return procerr.StateConflictf("purchase order %s is %s and can no longer be removed", child.POCode, child.Status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repos.POChild.SoftDeleteTx(tx, child.ID); err != nil {
			return err
		}
		if err := s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:  cr.BOQID,
			CRID:   cr.ID,
			Role:   string(actor.Role()),
			Type:   entity.ActionTypeChildDelete,
			Sender: actor.Name,
			Status: cr.Status,
			References: entity.JSONB{
				"cr_code": cr.CRCode,
				"po_code": child.POCode,
			},
		}); err != nil {
			return err
		}
		return s.recomputeParent(tx, cr, actor)
	})
	if err != nil {
		return procerr.Persistencef("delete purchase order: %v", err)
	}
	return nil
}

// SendChildrenToTD 批量送审：未送审的待审子单标记送审时间并通知TD
func (s *SplitService) SendChildrenToTD(ctx context.Context, actor entity.ActingIdentity, crID string) ([]entity.POChild, error) {
	cr, err := s.repos.CR.FindByID(ctx, crID)
	if err != nil {
		return nil, err
	}
	if err := s.checkBuyerOrAdmin(actor, cr); err != nil {
		return nil, err
	}

	children, err := s.repos.POChild.FindByParent(ctx, cr.ID)
	if err != nil {
		return nil, procerr.Persistencef("children lookup: %v", err)
	}

	now := time.Now()
	var sent []entity.POChild
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range children {
			child := &children[i]
			if child.Status != entity.POChildStatusPendingTD || child.NotifiedAt != nil {
				continue
			}
			child.NotifiedAt = &now
			if err := tx.Save(child).Error; err != nil {
				return err
			}
			sent = append(sent, *child)
		}
		if len(sent) == 0 {
			return procerr.StateConflictf("no unsent pending children on %s", cr.CRCode)
		}
		var poCodes []string
		for _, c := range sent {
			poCodes = append(poCodes, c.POCode)
		}
		return s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:  cr.BOQID,
			CRID:   cr.ID,
			Role:   string(actor.Role()),
			Type:   entity.ActionTypeSendToTD,
			Sender: actor.Name,
			Status: cr.Status,
			References: entity.JSONB{
				"cr_code":  cr.CRCode,
				"po_codes": poCodes,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	for i := range sent {
		s.notifyPendingChild(&sent[i])
	}
	return sent, nil
}

// recomputeParent 所有材料拆分完毕且子单全部到达终态时父单完结
func (s *SplitService) recomputeParent(tx *gorm.DB, cr *entity.ChangeRequest, actor entity.ActingIdentity) error {
	var children []entity.POChild
	if err := tx.Preload("Items").Where("cr_id = ?", cr.ID).Find(&children).Error; err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}
	covered := map[string]bool{}
	for i := range children {
		if !children[i].IsTerminal() {
			return nil
		}
		for _, item := range children[i].Items {
			covered[item.MaterialName] = true
		}
	}
	// 尚有材料未拆入任何子单时父单保持拆分态
	for _, m := range cr.Materials {
		if !covered[m.Name] {
			return nil
		}
	}
	if cr.Status == entity.CRStatusComplete {
		return nil
	}

	cr.Status = entity.CRStatusComplete
	cr.ApprovalRequiredFrom = ""
	if err := tx.Save(cr).Error; err != nil {
		return err
	}
	return s.repos.History.AppendTx(tx, &entity.HistoryAction{
		BOQID:  cr.BOQID,
		CRID:   cr.ID,
		Role:   string(actor.Role()),
		Type:   entity.ActionTypeChildComplete,
		Sender: actor.Name,
		Status: cr.Status,
		References: entity.JSONB{
			"cr_code": cr.CRCode,
			"final":   true,
		},
	})
}

// markSelections 按子单行项刷新父单选商记录状态
func (s *SplitService) markSelections(tx *gorm.DB, crID string, child *entity.POChild, status string, actor entity.ActingIdentity, approvedAt *time.Time) error {
	names := make([]string, 0, len(child.Items))
	for _, item := range child.Items {
		names = append(names, item.MaterialName)
	}
	if len(names) == 0 {
		return nil
	}
	updates := map[string]any{"status": status}
	if approvedAt != nil {
		updates["approved_by_id"] = actor.UserID
		updates["approved_by_name"] = actor.Name
		updates["approved_at"] = *approvedAt
	}
	return tx.Model(&entity.VendorSelection{}).
		Where("cr_id = ? AND material_name IN ?", crID, names).
		Updates(updates).Error
}

// loadChildWithParent 加载子单及其父申请单
func (s *SplitService) loadChildWithParent(ctx context.Context, childID string) (*entity.POChild, *entity.ChangeRequest, error) {
	child, err := s.repos.POChild.FindByID(ctx, childID)
	if err != nil {
		return nil, nil, err
	}
	cr, err := s.repos.CR.FindByID(ctx, child.CRID)
	if err != nil {
		return nil, nil, err
	}
	return child, cr, nil
}

// checkTD 校验操作者是否技术总监
func (s *SplitService) checkTD(actor entity.ActingIdentity) error {
	if actor.IsAdmin() || actor.Role() == entity.RoleTechnicalDirector {
		return nil
	}
	return procerr.Permissionf("technical director approval required, got %s", actor.Role())
}

// checkBuyerOrAdmin 校验操作者是否该申请单的买手
func (s *SplitService) checkBuyerOrAdmin(actor entity.ActingIdentity, cr *entity.ChangeRequest) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role() != entity.RoleBuyer {
		return procerr.Permissionf("buyer role required, got %s", actor.Role())
	}
	if cr.AssignedBuyerID != nil && *cr.AssignedBuyerID != actor.UserID {
		return procerr.Permissionf("change request %s is assigned to another buyer", cr.CRCode)
	}
	return nil
}
