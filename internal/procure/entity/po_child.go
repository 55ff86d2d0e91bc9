package entity

import (
	"time"

	"gorm.io/gorm"
)

// POChild 采购子单（申请单按供应商/库房拆分后的执行单元）
type POChild struct {
	ID     string `json:"id" gorm:"primaryKey;size:32"`
	POCode string `json:"po_code" gorm:"size:40;uniqueIndex;not null"` // {cr_code}.{seq}
	CRID   string `json:"cr_id" gorm:"size:32;not null;index"`
	Seq    int    `json:"seq" gorm:"not null"` // 后缀号，父单生命周期内单调递增

	// 路由
	RoutingType string  `json:"routing_type" gorm:"size:10;not null"` // vendor/store
	VendorID    *string `json:"vendor_id" gorm:"size:32;index"`
	VendorName  *string `json:"vendor_name" gorm:"size:200"`

	// 子单独立生命周期
	Status string `json:"status" gorm:"size:32;not null;index"`
	// TD审批队列标记，store_routed不进入任何供应商审批查询
	SelectionStatus string `json:"selection_status" gorm:"size:32;not null"`

	TotalCost float64 `json:"total_cost" gorm:"type:decimal(15,2);default:0"`

	// 选商买手（驳回后保留，用于审计与默认通知对象）
	SelectedByID   string `json:"selected_by_id" gorm:"size:32"`
	SelectedByName string `json:"selected_by_name" gorm:"size:100"`

	// TD决策
	ApprovedByID *string    `json:"approved_by_id" gorm:"size:32"`
	ApprovedAt   *time.Time `json:"approved_at"`
	RejectReason string     `json:"reject_reason" gorm:"type:text"`

	CompletedAt     *time.Time `json:"completed_at"`
	CompletionNotes string     `json:"completion_notes" gorm:"type:text"`

	// 批量送审标记（创建不等于送审）
	NotifiedAt *time.Time `json:"notified_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// 关联
	Items []POChildItem `json:"items,omitempty" gorm:"foreignKey:POChildID"`
}

func (POChild) TableName() string {
	return "procure_po_children"
}

// 路由类型
const (
	RoutingTypeVendor = "vendor"
	RoutingTypeStore  = "store"
)

// 子单状态
const (
	POChildStatusPendingTD      = "pending_td_approval"
	POChildStatusVendorApproved = "vendor_approved"
	POChildStatusTDRejected     = "td_rejected"
	POChildStatusRoutedToStore  = "routed_to_store"
	POChildStatusCompleted      = "purchase_completed"
)

// IsTerminal 子单是否到达终态
// 库房路由子单终态为routed_to_store，供应商路由子单终态为purchase_completed
func (p *POChild) IsTerminal() bool {
	if p.RoutingType == RoutingTypeStore {
		return p.Status == POChildStatusRoutedToStore
	}
	return p.Status == POChildStatusCompleted
}

// IsFinalized TD是否已终审（审批通过或已执行，合并时不可再改）
func (p *POChild) IsFinalized() bool {
	switch p.Status {
	case POChildStatusVendorApproved, POChildStatusRoutedToStore, POChildStatusCompleted:
		return true
	}
	return false
}

// RecalcTotal 按行项重算汇总金额
func (p *POChild) RecalcTotal() {
	var total float64
	for _, item := range p.Items {
		total += item.TotalPrice
	}
	p.TotalCost = total
}

// HasMaterial 子单是否包含指定材料
func (p *POChild) HasMaterial(name string) bool {
	return p.ItemIndex(name) >= 0
}

// ItemIndex 指定材料在行项中的下标，不存在返回-1
func (p *POChild) ItemIndex(name string) int {
	for i, item := range p.Items {
		if item.MaterialName == name {
			return i
		}
	}
	return -1
}

// POChildItem 子单材料行项
type POChildItem struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	POChildID string `json:"po_child_id" gorm:"size:32;not null;index"`

	MaterialName string  `json:"material_name" gorm:"size:200;not null"`
	Quantity     float64 `json:"quantity" gorm:"type:decimal(10,2);not null"`
	Unit         string  `json:"unit" gorm:"size:20;default:nos"`
	UnitPrice    float64 `json:"unit_price" gorm:"type:decimal(12,4);default:0"`
	TotalPrice   float64 `json:"total_price" gorm:"type:decimal(15,2);default:0"`

	SortOrder int       `json:"sort_order" gorm:"default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (POChildItem) TableName() string {
	return "procure_po_child_items"
}
