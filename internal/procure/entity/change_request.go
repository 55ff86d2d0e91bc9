package entity

import "time"

// ChangeRequest 增补材料申请单（针对已批概算的采购变更）
type ChangeRequest struct {
	ID     string `json:"id" gorm:"primaryKey;size:32"`
	CRCode string `json:"cr_code" gorm:"size:32;uniqueIndex;not null"`

	// 归属
	BOQID     string `json:"boq_id" gorm:"size:32;not null;index"`
	ProjectID string `json:"project_id" gorm:"size:32;index"`

	// 发起人
	RequesterID   string `json:"requester_id" gorm:"size:32;not null"`
	RequesterName string `json:"requester_name" gorm:"size:100"`
	RequesterRole string `json:"requester_role" gorm:"size:32;not null"`

	Justification string `json:"justification" gorm:"type:text"`

	// 审批状态
	Status               string `json:"status" gorm:"size:32;default:pending;index"`
	ApprovalRequiredFrom string `json:"approval_required_from" gorm:"size:32;index"`
	RejectReason         string `json:"reject_reason" gorm:"type:text"`

	// 路由指派
	AssignedPMID    *string `json:"assigned_pm_id" gorm:"size:32"`
	AssignedMEPID   *string `json:"assigned_mep_id" gorm:"size:32"`
	AssignedBuyerID *string `json:"assigned_buyer_id" gorm:"size:32"`

	// 汇总金额（始终等于materials行项total之和）
	TotalCost float64 `json:"total_cost" gorm:"type:decimal(15,2);default:0"`

	// 按材料选商模式
	VendorMode bool `json:"vendor_mode" gorm:"default:false"`

	// 已提交库房路由的材料名（混合路由时阻止父单自动进入TD审批）
	RoutedMaterials StringArray `json:"routed_materials" gorm:"type:jsonb"`

	// PO子单后缀计数器，只增不减（软删除的子单也占号）
	ChildSeq int `json:"child_seq" gorm:"default:0"`

	// 报价附件 [{name, url, size}]
	Attachments JSONBArray `json:"attachments" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Materials  []CRMaterial      `json:"materials,omitempty" gorm:"foreignKey:CRID"`
	Selections []VendorSelection `json:"selections,omitempty" gorm:"foreignKey:CRID"`
	Children   []POChild         `json:"children,omitempty" gorm:"foreignKey:CRID"`
}

func (ChangeRequest) TableName() string {
	return "procure_change_requests"
}

// CR状态
const (
	CRStatusPending         = "pending"
	CRStatusSendToPM        = "send_to_pm"
	CRStatusSendToMEP       = "send_to_mep"
	CRStatusApprovedByPM    = "approved_by_pm"
	CRStatusSendToEst       = "send_to_est"
	CRStatusSendToBuyer     = "send_to_buyer"
	CRStatusAssignedToBuyer = "assigned_to_buyer"
	CRStatusPendingTD       = "pending_td_approval"
	CRStatusSplitToPO       = "split_to_po"
	CRStatusComplete        = "purchase_complete"
	CRStatusRejected        = "rejected"
)

// IsTerminal 是否终态
func IsTerminalCRStatus(status string) bool {
	switch status {
	case CRStatusComplete, CRStatusRejected, CRStatusSplitToPO:
		return true
	}
	return false
}

// RecalcTotal 按行项重算汇总金额
func (cr *ChangeRequest) RecalcTotal() {
	var total float64
	for _, m := range cr.Materials {
		total += m.TotalPrice
	}
	cr.TotalCost = total
}

// MaterialByName 按材料名查找行项
func (cr *ChangeRequest) MaterialByName(name string) *CRMaterial {
	for i := range cr.Materials {
		if cr.Materials[i].Name == name {
			return &cr.Materials[i]
		}
	}
	return nil
}

// UnroutedMaterials 未提交库房路由的材料行项
func (cr *ChangeRequest) UnroutedMaterials() []CRMaterial {
	var out []CRMaterial
	for _, m := range cr.Materials {
		if !cr.RoutedMaterials.Contains(m.Name) {
			out = append(out, m)
		}
	}
	return out
}

// CRMaterial 申请单材料行项
type CRMaterial struct {
	ID   string `json:"id" gorm:"primaryKey;size:32"`
	CRID string `json:"cr_id" gorm:"size:32;not null;index"`

	Name     string  `json:"name" gorm:"size:200;not null"`
	Quantity float64 `json:"quantity" gorm:"type:decimal(10,2);not null"`
	Unit     string  `json:"unit" gorm:"size:20;default:nos"`

	UnitPrice  float64 `json:"unit_price" gorm:"type:decimal(12,4);default:0"`
	TotalPrice float64 `json:"total_price" gorm:"type:decimal(15,2);default:0"`

	// 来源标记
	IsNew         bool     `json:"is_new" gorm:"default:false"`            // 概算清单外新材料
	CatalogItemID *string  `json:"catalog_item_id" gorm:"size:32"`         // 概算清单行引用
	BudgetQty     *float64 `json:"budget_qty" gorm:"type:decimal(10,2)"`   // 原概算数量
	CostDelta     float64  `json:"cost_delta" gorm:"type:decimal(15,2);default:0"` // 相对原单价的金额偏差

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CRMaterial) TableName() string {
	return "procure_cr_materials"
}

// ExceedsBudget 数量是否超出原概算
func (m *CRMaterial) ExceedsBudget() bool {
	return m.BudgetQty != nil && m.Quantity > *m.BudgetQty
}
