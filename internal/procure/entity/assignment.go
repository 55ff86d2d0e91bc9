package entity

import "time"

// ProjectAssignment 项目级角色指派（每项目每角色一人）
type ProjectAssignment struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	ProjectID string `json:"project_id" gorm:"size:32;not null;uniqueIndex:idx_project_role"`
	RoleCode  string `json:"role_code" gorm:"size:32;not null;uniqueIndex:idx_project_role"`
	UserID    string `json:"user_id" gorm:"size:32;not null"`
	UserName  string `json:"user_name" gorm:"size:100"`

	AssignedBy string    `json:"assigned_by" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ProjectAssignment) TableName() string {
	return "procure_project_assignments"
}

// BOQItemAssignment BOQ级工作委派记录
// 现场工程师的下一审批人 = 当初给他派活的人
type BOQItemAssignment struct {
	ID    string `json:"id" gorm:"primaryKey;size:32"`
	BOQID string `json:"boq_id" gorm:"size:32;not null;index:idx_boq_assignee"`

	AssigneeID string `json:"assignee_id" gorm:"size:32;not null;index:idx_boq_assignee"`

	AssignedByID   string `json:"assigned_by_id" gorm:"size:32;not null"`
	AssignedByName string `json:"assigned_by_name" gorm:"size:100"`
	AssignedByRole string `json:"assigned_by_role" gorm:"size:32;not null"`

	CreatedAt time.Time `json:"created_at"`
}

func (BOQItemAssignment) TableName() string {
	return "procure_boq_item_assignments"
}
