package entity

import "time"

// User 系统用户（通讯录快照）
type User struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	Username string `json:"username" gorm:"size:100;uniqueIndex"`
	Name     string `json:"name" gorm:"size:100;not null"`
	Email    string `json:"email" gorm:"size:100;index"`
	Role     string `json:"role" gorm:"size:32;index"`
	Status   string `json:"status" gorm:"size:20;default:active"`

	FeishuUserID string `json:"feishu_user_id" gorm:"size:64"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "procure_users"
}
