package repository

import (
	"context"
	"errors"

	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/procerr"
	"gorm.io/gorm"
)

// UserRepository 用户仓库（通讯录查询的后端实现）
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID 根据ID查找用户
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Where("id = ? AND status = ?", id, "active").First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, procerr.NotFoundf("user %s", id)
		}
		return nil, err
	}
	return &user, nil
}

// FirstByRole 查找某角色的一个在职用户
func (r *UserRepository) FirstByRole(ctx context.Context, role entity.Role) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND status = ?", string(role), "active").
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}
