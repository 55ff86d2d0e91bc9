package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/procerr"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/repository"
	"gorm.io/gorm"
)

// ChangeRequestService 申请单服务
type ChangeRequestService struct {
	repos   *repository.Repositories
	db      *gorm.DB
	dedup   *DedupCache
	routing *RoutingService

	notifier Notifier
	email    EmailSender
}

func NewChangeRequestService(repos *repository.Repositories, db *gorm.DB, dedup *DedupCache, routing *RoutingService) *ChangeRequestService {
	return &ChangeRequestService{
		repos:   repos,
		db:      db,
		dedup:   dedup,
		routing: routing,
		email:   LogEmailSender{},
	}
}

// List 查询申请单列表
func (s *ChangeRequestService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ChangeRequest, int64, error) {
	return s.repos.CR.FindAll(ctx, page, pageSize, filters)
}

// Get 查询申请单详情
func (s *ChangeRequestService) Get(ctx context.Context, id string) (*entity.ChangeRequest, error) {
	return s.repos.CR.FindByID(ctx, id)
}

// History 查询申请单台账时间线
func (s *ChangeRequestService) History(ctx context.Context, crID string, page, pageSize int) ([]entity.HistoryAction, int64, error) {
	if _, err := s.repos.CR.FindByID(ctx, crID); err != nil {
		return nil, 0, err
	}
	return s.repos.History.ListByCR(ctx, crID, page, pageSize)
}

// BOQHistory 查询BOQ维度台账时间线，跨该BOQ下全部申请单
func (s *ChangeRequestService) BOQHistory(ctx context.Context, boqID string, page, pageSize int) ([]entity.HistoryAction, int64, error) {
	return s.repos.History.ListByBOQ(ctx, boqID, page, pageSize)
}

// CreateCRRequest 创建申请单请求
type CreateCRRequest struct {
	BOQID         string                  `json:"boq_id" binding:"required"`
	ProjectID     string                  `json:"project_id"`
	Justification string                  `json:"justification" binding:"required"`
	Materials     []CreateCRMaterialInput `json:"materials" binding:"required,min=1"`
}

// CreateCRMaterialInput 材料行输入
type CreateCRMaterialInput struct {
	Name      string  `json:"name" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
	Notes     string  `json:"notes"`
}

// Create 创建申请单
// 幂等保护：同发起人+同BOQ+同汇总金额在去重窗口内重复提交时返回既有记录
func (s *ChangeRequestService) Create(ctx context.Context, actor entity.ActingIdentity, req *CreateCRRequest) (*entity.ChangeRequest, error) {
	role := actor.Role()
	switch role {
	case entity.RoleSiteEngineer, entity.RoleProjectManager, entity.RoleMEP, entity.RoleAdmin:
	default:
		return nil, procerr.Permissionf("role %s cannot create a change request", role)
	}

	// 组装行项：目录命中则带清单引用和概算数量，否则标记为新材料
	var materials []entity.CRMaterial
	for i, in := range req.Materials {
		unit := in.Unit
		if unit == "" {
			unit = "nos"
		}
		line := entity.CRMaterial{
			ID:        uuid.New().String()[:32],
			Name:      in.Name,
			Quantity:  in.Quantity,
			Unit:      unit,
			UnitPrice: in.UnitPrice,
			SortOrder: i + 1,
			Notes:     in.Notes,
		}

		catItem, err := s.repos.Catalog.LookupMaterial(ctx, req.BOQID, in.Name)
		if err != nil {
			return nil, procerr.Dependencyf("catalog lookup for %s: %v", in.Name, err)
		}
		if catItem == nil {
			line.IsNew = true
		} else {
			line.CatalogItemID = &catItem.ID
			budget := catItem.BudgetQty
			line.BudgetQty = &budget
			if line.UnitPrice == 0 {
				line.UnitPrice = catItem.UnitPrice
			}
			line.CostDelta = (line.UnitPrice - catItem.UnitPrice) * line.Quantity
		}

		line.TotalPrice = line.Quantity * line.UnitPrice
		materials = append(materials, line)
	}

	var totalCost float64
	for _, m := range materials {
		totalCost += m.TotalPrice
	}

	// 幂等检查：先查缓存，再查数据库窗口
	dedupKey := DedupKey(actor.UserID, req.BOQID, totalCost)
	if existingID, ok := s.dedup.Lookup(ctx, dedupKey); ok {
		if existing, err := s.repos.CR.FindByID(ctx, existingID); err == nil {
			log.Printf("[PROCURE] 重复提交命中缓存: %s -> %s", dedupKey[:24], existing.CRCode)
			return existing, nil
		}
	}
	if existing, err := s.repos.CR.FindRecentDuplicate(ctx, actor.UserID, req.BOQID, totalCost, time.Now().Add(-DedupWindow)); err != nil {
		return nil, err
	} else if existing != nil {
		s.dedup.Store(ctx, dedupKey, existing.ID)
		log.Printf("[PROCURE] 重复提交命中窗口查询: %s", existing.CRCode)
		return existing, nil
	}

	code, err := s.repos.CR.GenerateCode(ctx)
	if err != nil {
		return nil, procerr.Persistencef("generate cr code: %v", err)
	}

	cr := &entity.ChangeRequest{
		ID:            uuid.New().String()[:32],
		CRCode:        code,
		BOQID:         req.BOQID,
		ProjectID:     req.ProjectID,
		RequesterID:   actor.UserID,
		RequesterName: actor.Name,
		RequesterRole: string(role),
		Justification: req.Justification,
		Status:        entity.CRStatusPending,
		TotalCost:     totalCost,
	}
	for i := range materials {
		materials[i].CRID = cr.ID
	}
	cr.Materials = materials

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cr).Error; err != nil {
			return err
		}
		return s.repos.History.AppendTx(tx, &entity.HistoryAction{
			BOQID:    cr.BOQID,
			CRID:     cr.ID,
			Role:     string(role),
			Type:     entity.ActionTypeCreate,
			Sender:   actor.Name,
			Status:   cr.Status,
			Comments: req.Justification,
			References: entity.JSONB{
				"cr_code":    cr.CRCode,
				"total_cost": totalCost,
			},
		})
	})
	if err != nil {
		return nil, procerr.Persistencef("create change request: %v", err)
	}

	s.dedup.Store(ctx, dedupKey, cr.ID)
	return cr, nil
}
