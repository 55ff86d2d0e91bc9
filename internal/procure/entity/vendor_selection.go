package entity

import "time"

// VendorSelection 单材料选商记录（每个申请单每种材料唯一）
// 只被覆盖更新，从不删除，保留评估过的候选供应商快照供后续比价
type VendorSelection struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	CRID         string `json:"cr_id" gorm:"size:32;not null;uniqueIndex:idx_selection_cr_material"`
	MaterialName string `json:"material_name" gorm:"size:200;not null;uniqueIndex:idx_selection_cr_material"`

	// 选定供应商快照
	VendorID      string `json:"vendor_id" gorm:"size:32;not null"`
	VendorName    string `json:"vendor_name" gorm:"size:200"`
	VendorContact string `json:"vendor_contact" gorm:"size:100"`

	// 议价
	NegotiatedPrice *float64 `json:"negotiated_price" gorm:"type:decimal(12,4)"`
	SupplierNotes   string   `json:"supplier_notes" gorm:"type:text"`

	// 评估过的全部候选供应商 [{vendor_id, vendor_name, quoted_price, terms}]
	Alternatives JSONBArray `json:"alternatives" gorm:"type:jsonb"`

	Status string `json:"status" gorm:"size:32;default:pending_td_approval;index"`

	// 审批人
	ApprovedByID   *string    `json:"approved_by_id" gorm:"size:32"`
	ApprovedByName string     `json:"approved_by_name" gorm:"size:100"`
	ApprovedAt     *time.Time `json:"approved_at"`

	SelectedByID   string `json:"selected_by_id" gorm:"size:32"`
	SelectedByName string `json:"selected_by_name" gorm:"size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VendorSelection) TableName() string {
	return "procure_vendor_selections"
}

// 选商状态
const (
	SelectionStatusPendingTD   = "pending_td_approval"
	SelectionStatusApproved    = "approved"
	SelectionStatusRejected    = "rejected"
	SelectionStatusStoreRouted = "store_routed" // 库房路由，排除于一切TD供应商审批查询
)
