package repository

import (
	"context"
	"errors"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/procerr"
	"gorm.io/gorm"
)

// POChildRepository 采购子单仓库
type POChildRepository struct {
	db *gorm.DB
}

func NewPOChildRepository(db *gorm.DB) *POChildRepository {
	return &POChildRepository{db: db}
}

// FindByID 根据ID查找子单（含行项）
func (r *POChildRepository) FindByID(ctx context.Context, id string) (*entity.POChild, error) {
	var child entity.POChild
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&child).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, procerr.NotFoundf("po child %s", id)
		}
		return nil, err
	}
	return &child, nil
}

// FindByParent 查找父申请单的全部未删除子单
func (r *POChildRepository) FindByParent(ctx context.Context, crID string) ([]entity.POChild, error) {
	var children []entity.POChild
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("cr_id = ?", crID).
		Order("seq ASC").
		Find(&children).Error
	return children, err
}

// FindMergeTargetTx 事务内查找同供应商且TD尚未终审的子单（合并目标）
func (r *POChildRepository) FindMergeTargetTx(tx *gorm.DB, crID, vendorID string) (*entity.POChild, error) {
	var child entity.POChild
	err := tx.
		Preload("Items").
		Where("cr_id = ? AND vendor_id = ? AND routing_type = ?", crID, vendorID, entity.RoutingTypeVendor).
		Where("status IN ?", []string{entity.POChildStatusPendingTD, entity.POChildStatusTDRejected}).
		First(&child).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &child, nil
}

// FindPendingTD TD供应商审批队列
// store_routed标记的子单被显式排除
func (r *POChildRepository) FindPendingTD(ctx context.Context, page, pageSize int) ([]entity.POChild, int64, error) {
	var items []entity.POChild
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.POChild{}).
		Where("status = ?", entity.POChildStatusPendingTD).
		Where("selection_status <> ?", entity.SelectionStatusStoreRouted)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Items").
		Order("created_at ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// ApprovedMaterialNames 父单下已审批通过/已执行子单覆盖的材料名集合
// 重复采购保护：这些材料不得再进入未审批子单
func (r *POChildRepository) ApprovedMaterialNames(ctx context.Context, crID string) (map[string]bool, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&entity.POChildItem{}).
		Joins("JOIN procure_po_children ON procure_po_children.id = procure_po_child_items.po_child_id").
		Where("procure_po_children.cr_id = ?", crID).
		Where("procure_po_children.deleted_at IS NULL").
		Where("procure_po_children.status IN ?", []string{
			entity.POChildStatusVendorApproved,
			entity.POChildStatusRoutedToStore,
			entity.POChildStatusCompleted,
		}).
		Pluck("procure_po_child_items.material_name", &names).Error
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// Create 创建子单
func (r *POChildRepository) Create(ctx context.Context, child *entity.POChild) error {
	return r.db.WithContext(ctx).Create(child).Error
}

// Update 更新子单
func (r *POChildRepository) Update(ctx context.Context, child *entity.POChild) error {
	return r.db.WithContext(ctx).Save(child).Error
}

// SoftDeleteTx 事务内软删除子单（后缀号不回收）
func (r *POChildRepository) SoftDeleteTx(tx *gorm.DB, id string) error {
	return tx.Delete(&entity.POChild{}, "id = ?", id).Error
}
