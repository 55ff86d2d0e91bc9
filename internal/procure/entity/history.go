package entity

import "time"

// BOQLedger 概算单历史台账（每个BOQ一条，冗余最新动作便于列表展示）
type BOQLedger struct {
	ID    string `json:"id" gorm:"primaryKey;size:32"`
	BOQID string `json:"boq_id" gorm:"size:32;uniqueIndex;not null"`

	// 最新一条动作的冗余字段，追加时刷新
	LastSender   string `json:"last_sender" gorm:"size:100"`
	LastReceiver string `json:"last_receiver" gorm:"size:100"`
	LastComment  string `json:"last_comment" gorm:"type:text"`
	LastStatus   string `json:"last_status" gorm:"size:32"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BOQLedger) TableName() string {
	return "procure_boq_ledgers"
}

// HistoryAction 台账动作记录，只追加不修改
type HistoryAction struct {
	ID    string `json:"id" gorm:"primaryKey;size:32"`
	BOQID string `json:"boq_id" gorm:"size:32;not null;index"`
	CRID  string `json:"cr_id" gorm:"size:32;index"`

	Role     string `json:"role" gorm:"size:32"`
	Type     string `json:"type" gorm:"size:50;not null"`
	Sender   string `json:"sender" gorm:"size:100"`
	Receiver string `json:"receiver" gorm:"size:100"`
	Status   string `json:"status" gorm:"size:32"`
	Comments string `json:"comments" gorm:"type:text"`

	// 关联引用 {po_code, material, ...}
	References JSONB `json:"references" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
}

func (HistoryAction) TableName() string {
	return "procure_history_actions"
}

// 动作类型
const (
	ActionTypeCreate           = "create"
	ActionTypeSendForReview    = "send_for_review"
	ActionTypeApprove          = "approve"
	ActionTypeReject           = "reject"
	ActionTypeSelectVendor     = "select_vendor"
	ActionTypeMaterialize      = "materialize_children"
	ActionTypeMergeChild       = "merge_child"
	ActionTypeDuplicateDropped = "duplicate_dropped"
	ActionTypeChildApprove     = "child_approve"
	ActionTypeChildReject      = "child_reject"
	ActionTypeChildReselect    = "child_reselect_vendor"
	ActionTypeChildComplete    = "child_complete"
	ActionTypeChildDelete      = "child_delete"
	ActionTypeSendToTD         = "send_to_td"
	ActionTypeAttachmentUpload = "attachment_upload"
)
