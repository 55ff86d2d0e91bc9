package repository

import (
	"context"
	"errors"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"gorm.io/gorm"
)

// SelectionRepository 选商记录仓库
type SelectionRepository struct {
	db *gorm.DB
}

func NewSelectionRepository(db *gorm.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// FindByCR 查询申请单的全部选商记录
func (r *SelectionRepository) FindByCR(ctx context.Context, crID string) ([]entity.VendorSelection, error) {
	var selections []entity.VendorSelection
	err := r.db.WithContext(ctx).
		Where("cr_id = ?", crID).
		Order("material_name ASC").
		Find(&selections).Error
	return selections, err
}

// FindByCRAndMaterial 查询某材料的选商记录
func (r *SelectionRepository) FindByCRAndMaterial(ctx context.Context, crID, materialName string) (*entity.VendorSelection, error) {
	var sel entity.VendorSelection
	err := r.db.WithContext(ctx).
		Where("cr_id = ? AND material_name = ?", crID, materialName).
		First(&sel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sel, nil
}

// SelectionMap 申请单的选商记录，按材料名索引
func (r *SelectionRepository) SelectionMap(ctx context.Context, crID string) (map[string]entity.VendorSelection, error) {
	selections, err := r.FindByCR(ctx, crID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]entity.VendorSelection, len(selections))
	for _, s := range selections {
		m[s.MaterialName] = s
	}
	return m, nil
}
