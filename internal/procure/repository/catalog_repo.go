package repository

import (
	"context"
	"errors"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"gorm.io/gorm"
)

// CatalogRepository 概算清单目录仓库（单价/预算数量查询）
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// LookupMaterial 按BOQ和材料名查找清单行，不存在返回nil（视为新材料）
func (r *CatalogRepository) LookupMaterial(ctx context.Context, boqID, name string) (*entity.BOQItem, error) {
	var item entity.BOQItem
	err := r.db.WithContext(ctx).
		Where("boq_id = ? AND material_name = ?", boqID, name).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Create 创建清单行
func (r *CatalogRepository) Create(ctx context.Context, item *entity.BOQItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}
