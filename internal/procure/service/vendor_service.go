package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/procerr"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/repository"
	"gorm.io/gorm"
)

// VendorService 供应商与选商服务
type VendorService struct {
	repos *repository.Repositories
	db    *gorm.DB

	notifier Notifier
}

func NewVendorService(repos *repository.Repositories, db *gorm.DB) *VendorService {
	return &VendorService{repos: repos, db: db}
}

// ListVendors 查询供应商列表
func (s *VendorService) ListVendors(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Vendor, int64, error) {
	return s.repos.Vendor.FindAll(ctx, page, pageSize, filters)
}

// GetVendor 查询供应商详情
func (s *VendorService) GetVendor(ctx context.Context, id string) (*entity.Vendor, error) {
	return s.repos.Vendor.FindByID(ctx, id)
}

// VendorRequest 供应商创建/更新请求
type VendorRequest struct {
	Name         string `json:"name" binding:"required"`
	ShortName    string `json:"short_name"`
	Category     string `json:"category"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`
	Address      string `json:"address"`
	Notes        string `json:"notes"`
}

// CreateVendor 创建供应商（初始为pending，启用后方可参与选商）
func (s *VendorService) CreateVendor(ctx context.Context, actor entity.ActingIdentity, req *VendorRequest) (*entity.Vendor, error) {
	code, err := s.repos.Vendor.GenerateCode(ctx)
	if err != nil {
		return nil, procerr.Persistencef("generate vendor code: %v", err)
	}
	vendor := &entity.Vendor{
		ID:           uuid.New().String()[:32],
		Code:         code,
		Name:         req.Name,
		ShortName:    req.ShortName,
		Category:     req.Category,
		Status:       entity.VendorStatusPending,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Address:      req.Address,
		Notes:        req.Notes,
		CreatedBy:    actor.UserID,
	}
	if err := s.repos.Vendor.Create(ctx, vendor); err != nil {
		return nil, procerr.Persistencef("create vendor: %v", err)
	}
	return vendor, nil
}

// UpdateVendor 更新供应商资料
func (s *VendorService) UpdateVendor(ctx context.Context, id string, req *VendorRequest) (*entity.Vendor, error) {
	vendor, err := s.repos.Vendor.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	vendor.Name = req.Name
	vendor.ShortName = req.ShortName
	vendor.Category = req.Category
	vendor.ContactName = req.ContactName
	vendor.ContactPhone = req.ContactPhone
	vendor.ContactEmail = req.ContactEmail
	vendor.Address = req.Address
	vendor.Notes = req.Notes
	if err := s.repos.Vendor.Update(ctx, vendor); err != nil {
		return nil, procerr.Persistencef("update vendor: %v", err)
	}
	return vendor, nil
}

// SetVendorStatus 启用/停用供应商
func (s *VendorService) SetVendorStatus(ctx context.Context, id, status string) (*entity.Vendor, error) {
	switch status {
	case entity.VendorStatusActive, entity.VendorStatusInactive:
	default:
		return nil, procerr.Validationf("invalid vendor status %q", status)
	}
	vendor, err := s.repos.Vendor.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	vendor.Status = status
	if err := s.repos.Vendor.Update(ctx, vendor); err != nil {
		return nil, procerr.Persistencef("update vendor status: %v", err)
	}
	return vendor, nil
}

// SelectVendorRequest 材料选商请求
type SelectVendorRequest struct {
	MaterialName    string              `json:"material_name" binding:"required"`
	VendorID        string              `json:"vendor_id" binding:"required"`
	NegotiatedPrice *float64            `json:"negotiated_price"`
	SupplierNotes   string              `json:"supplier_notes"`
	Alternatives    []map[string]any    `json:"alternatives"`
}

// SelectVendor 为单个材料选定供应商
// 每材料每申请单唯一记录，重复选择时整条覆盖；全部未路由材料选定后自动送TD审批，
// 含库房路由材料的混合单除外
func (s *VendorService) SelectVendor(ctx context.Context, actor entity.ActingIdentity, crID string, req *SelectVendorRequest) (*entity.ChangeRequest, error) {
	cr, err := s.repos.CR.FindByID(ctx, crID)
	if err != nil {
		return nil, err
	}
	if !canTransition(entity.ActionTypeSelectVendor, cr.Status) {
		return nil, procerr.StateConflictf("change request %s is %s, vendor selection not open", cr.CRCode, cr.Status)
	}
	if err := s.checkSelector(actor, cr); err != nil {
		return nil, err
	}

	material := cr.MaterialByName(req.MaterialName)
	if material == nil {
		return nil, procerr.Validationf("material %q not on change request %s", req.MaterialName, cr.CRCode)
	}
	if cr.RoutedMaterials.Contains(req.MaterialName) {
		return nil, procerr.StateConflictf("material %q already routed to store", req.MaterialName)
	}

	vendor, err := s.repos.Vendor.FindByID(ctx, req.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Status != entity.VendorStatusActive {
		return nil, procerr.Validationf("vendor %s is %s, only active vendors can be selected", vendor.Name, vendor.Status)
	}

	// 议价价格优先，否则沿用行项单价；行项金额随选商重算
	if req.NegotiatedPrice != nil {
		material.UnitPrice = *req.NegotiatedPrice
	}
	material.TotalPrice = material.Quantity * material.UnitPrice
	cr.RecalcTotal()

	var alternatives entity.JSONBArray
	for _, alt := range req.Alternatives {
		alternatives = append(alternatives, entity.JSONB(alt))
	}

	existing, err := s.repos.Selection.FindByCRAndMaterial(ctx, cr.ID, req.MaterialName)
	if err != nil {
		return nil, procerr.Persistencef("selection lookup: %v", err)
	}

	selection := &entity.VendorSelection{
		ID:              uuid.New().String()[:32],
		CRID:            cr.ID,
		MaterialName:    req.MaterialName,
		VendorID:        vendor.ID,
		VendorName:      vendor.Name,
		VendorContact:   vendor.ContactName,
		NegotiatedPrice: req.NegotiatedPrice,
		SupplierNotes:   req.SupplierNotes,
		Alternatives:    alternatives,
		Status:          entity.SelectionStatusPendingTD,
		SelectedByID:    actor.UserID,
		SelectedByName:  actor.Name,
	}
	// TD亲自选商视同审批通过，无需再过TD队列
	if actor.Role() == entity.RoleTechnicalDirector {
		now := time.Now()
		selection.Status = entity.SelectionStatusApproved
		selection.ApprovedByID = &actor.UserID
		selection.ApprovedByName = actor.Name
		selection.ApprovedAt = &now
	}
	if existing != nil {
		selection.ID = existing.ID
		selection.CreatedAt = existing.CreatedAt
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(selection).Error; err != nil {
			return err
		}
		if err := tx.Save(material).Error; err != nil {
			return err
		}

		if err := s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:    cr.BOQID,
			CRID:     cr.ID,
			Role:     string(actor.Role()),
			Type:     entity.ActionTypeSelectVendor,
			Sender:   actor.Name,
			Status:   cr.Status,
			Comments: req.SupplierNotes,
			References: entity.JSONB{
				"cr_code":     cr.CRCode,
				"material":    req.MaterialName,
				"vendor_id":   vendor.ID,
				"vendor_name": vendor.Name,
			},
		}); err != nil {
			return err
		}

		// 买手节点上未路由材料全部选定后整单进入TD审批；
		// 已有材料走库房路由的混合单不自动送审，须由买手显式拆分子单；
		// 已拆分父单仅作容器，重新议价不再改变其状态
		advanced, err := s.allUnroutedSelected(tx, cr, req.MaterialName)
		if err != nil {
			return err
		}
		atBuyerStage := cr.Status == entity.CRStatusSendToBuyer || cr.Status == entity.CRStatusAssignedToBuyer
		if advanced && atBuyerStage && len(cr.RoutedMaterials) == 0 {
			cr.Status = entity.CRStatusPendingTD
			cr.ApprovalRequiredFrom = string(entity.RoleTechnicalDirector)
			if err := s.repos.History.AppendTx(tx, &entity.HistoryAction{
				BOQID:  cr.BOQID,
				CRID:   cr.ID,
				Role:   string(actor.Role()),
				Type:   entity.ActionTypeSendToTD,
				Sender: actor.Name,
				Status: cr.Status,
				References: entity.JSONB{
					"cr_code": cr.CRCode,
				},
			}); err != nil {
				return err
			}
		}

		return tx.Save(cr).Error
	})
	if err != nil {
		return nil, procerr.Persistencef("select vendor: %v", err)
	}

	if cr.Status == entity.CRStatusPendingTD {
		s.notifyPendingTD(cr, actor)
	}
	return s.repos.CR.FindByID(ctx, cr.ID)
}

// allUnroutedSelected 除本次材料外，其余未路由材料是否都已有未废弃的选商记录
func (s *VendorService) allUnroutedSelected(tx *gorm.DB, cr *entity.ChangeRequest, justSelected string) (bool, error) {
	var selections []entity.VendorSelection
	if err := tx.Where("cr_id = ?", cr.ID).Find(&selections).Error; err != nil {
		return false, err
	}
	chosen := map[string]bool{justSelected: true}
	for _, sel := range selections {
		if sel.Status == entity.SelectionStatusPendingTD || sel.Status == entity.SelectionStatusApproved {
			chosen[sel.MaterialName] = true
		}
	}
	for _, m := range cr.UnroutedMaterials() {
		if !chosen[m.Name] {
			return false, nil
		}
	}
	return true, nil
}

// checkSelector 校验操作者可否为该申请单选商：指派买手、技术总监或管理员
func (s *VendorService) checkSelector(actor entity.ActingIdentity, cr *entity.ChangeRequest) error {
	if actor.IsAdmin() || actor.Role() == entity.RoleTechnicalDirector {
		return nil
	}
	if actor.Role() != entity.RoleBuyer {
		return procerr.Permissionf("vendor selection requires buyer or technical director role, got %s", actor.Role())
	}
	if cr.AssignedBuyerID != nil && *cr.AssignedBuyerID != actor.UserID {
		return procerr.Permissionf("change request %s is assigned to another buyer", cr.CRCode)
	}
	return nil
}
