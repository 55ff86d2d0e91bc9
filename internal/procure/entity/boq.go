package entity

import "time"

// BOQItem 概算清单行（目录/价格查询的后端数据）
type BOQItem struct {
	ID    string `json:"id" gorm:"primaryKey;size:32"`
	BOQID string `json:"boq_id" gorm:"size:32;not null;index:idx_boq_material"`

	MaterialName string  `json:"material_name" gorm:"size:200;not null;index:idx_boq_material"`
	Unit         string  `json:"unit" gorm:"size:20;default:nos"`
	UnitPrice    float64 `json:"unit_price" gorm:"type:decimal(12,4);default:0"`
	BudgetQty    float64 `json:"budget_qty" gorm:"type:decimal(10,2);default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BOQItem) TableName() string {
	return "procure_boq_items"
}
