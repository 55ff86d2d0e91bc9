package entity

import "time"

// Vendor 供应商
type Vendor struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	Code      string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string `json:"name" gorm:"size:200;not null"`
	ShortName string `json:"short_name" gorm:"size:50"`
	Category  string `json:"category" gorm:"size:50"` // civil/electrical/plumbing/hvac/finishes/other
	Status    string `json:"status" gorm:"size:20;default:pending"`

	// 联系方式
	ContactName  string `json:"contact_name" gorm:"size:100"`
	ContactPhone string `json:"contact_phone" gorm:"size:30"`
	ContactEmail string `json:"contact_email" gorm:"size:100"`
	Address      string `json:"address" gorm:"size:500"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Vendor) TableName() string {
	return "procure_vendors"
}

// 供应商状态
const (
	VendorStatusPending  = "pending"
	VendorStatusActive   = "active"
	VendorStatusInactive = "inactive"
)
