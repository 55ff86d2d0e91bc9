package repository

import (
	"context"
	"errors"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"gorm.io/gorm"
)

// AssignmentRepository 角色指派仓库
type AssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindItemAssignment BOQ级委派记录（谁给这个人在该BOQ上派的活）
func (r *AssignmentRepository) FindItemAssignment(ctx context.Context, boqID, assigneeID string) (*entity.BOQItemAssignment, error) {
	var a entity.BOQItemAssignment
	err := r.db.WithContext(ctx).
		Where("boq_id = ? AND assignee_id = ?", boqID, assigneeID).
		Order("created_at DESC").
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// FindProjectAssignment 项目级角色指派
func (r *AssignmentRepository) FindProjectAssignment(ctx context.Context, projectID string, role entity.Role) (*entity.ProjectAssignment, error) {
	var a entity.ProjectAssignment
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND role_code = ?", projectID, string(role)).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Create 创建指派记录
func (r *AssignmentRepository) Create(ctx context.Context, a *entity.ProjectAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// CreateItemAssignment 创建BOQ级委派记录
func (r *AssignmentRepository) CreateItemAssignment(ctx context.Context, a *entity.BOQItemAssignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}
