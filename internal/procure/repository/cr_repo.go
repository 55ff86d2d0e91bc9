package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/procerr"
	"gorm.io/gorm"
)

// CRRepository 申请单仓库
type CRRepository struct {
	db *gorm.DB
}

func NewCRRepository(db *gorm.DB) *CRRepository {
	return &CRRepository{db: db}
}

// FindAll 查询申请单列表
func (r *CRRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ChangeRequest, int64, error) {
	var items []entity.ChangeRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ChangeRequest{})

	if boqID := filters["boq_id"]; boqID != "" {
		query = query.Where("boq_id = ?", boqID)
	}
	if projectID := filters["project_id"]; projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if requester := filters["requester_id"]; requester != "" {
		query = query.Where("requester_id = ?", requester)
	}
	// 待办队列：某角色当前欠一个决定的申请单，已拆分的容器单永不出现
	if role := filters["pending_for"]; role != "" {
		query = query.Where("approval_required_from = ?", role).
			Where("status NOT IN ?", []string{
				entity.CRStatusSplitToPO,
				entity.CRStatusComplete,
				entity.CRStatusRejected,
			})
	}
	if search := filters["search"]; search != "" {
		query = query.Where("cr_code ILIKE ? OR justification ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找申请单（含行项和选商记录）
func (r *CRRepository) FindByID(ctx context.Context, id string) (*entity.ChangeRequest, error) {
	var cr entity.ChangeRequest
	err := r.db.WithContext(ctx).
		Preload("Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Selections").
		Where("id = ?", id).
		First(&cr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, procerr.NotFoundf("change request %s", id)
		}
		return nil, err
	}
	return &cr, nil
}

// Create 创建申请单
func (r *CRRepository) Create(ctx context.Context, cr *entity.ChangeRequest) error {
	return r.db.WithContext(ctx).Create(cr).Error
}

// Update 更新申请单
func (r *CRRepository) Update(ctx context.Context, cr *entity.ChangeRequest) error {
	return r.db.WithContext(ctx).Save(cr).Error
}

// FindRecentDuplicate 查找去重窗口内的同内容申请单
// 同发起人、同BOQ、同汇总金额，创建时间在since之后
func (r *CRRepository) FindRecentDuplicate(ctx context.Context, requesterID, boqID string, totalCost float64, since time.Time) (*entity.ChangeRequest, error) {
	var cr entity.ChangeRequest
	err := r.db.WithContext(ctx).
		Preload("Materials").
		Where("requester_id = ? AND boq_id = ? AND total_cost = ? AND created_at >= ?",
			requesterID, boqID, totalCost, since).
		Order("created_at DESC").
		First(&cr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cr, nil
}

// GenerateCode 生成申请单编码 CR-{year}-{4位}
func (r *CRRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("CR-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.ChangeRequest{}).
		Select("COALESCE(MAX(cr_code), '')").
		Where("cr_code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "CR-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("CR-%s-%04d", year, seq), nil
}
