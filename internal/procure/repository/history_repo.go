package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/redlitmus-in/MeterSquare-sub001/internal/procure/entity"
	"gorm.io/gorm"
)

// HistoryRepository 历史台账仓库
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AppendTx 在给定事务内追加一条台账动作并刷新台账冗余字段
// 台账写入与其记录的状态变更必须在同一事务提交
func (r *HistoryRepository) AppendTx(tx *gorm.DB, action *entity.HistoryAction) error {
	if action.ID == "" {
		action.ID = uuid.New().String()[:32]
	}

	var ledger entity.BOQLedger
	err := tx.Where("boq_id = ?", action.BOQID).First(&ledger).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		ledger = entity.BOQLedger{
			ID:    uuid.New().String()[:32],
			BOQID: action.BOQID,
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return err
		}
	}

	if err := tx.Create(action).Error; err != nil {
		return err
	}

	// 冗余最新动作
	return tx.Model(&entity.BOQLedger{}).
		Where("id = ?", ledger.ID).
		Updates(map[string]interface{}{
			"last_sender":   action.Sender,
			"last_receiver": action.Receiver,
			"last_comment":  action.Comments,
			"last_status":   action.Status,
		}).Error
}

// ListByBOQ 查询BOQ的台账时间线
func (r *HistoryRepository) ListByBOQ(ctx context.Context, boqID string, page, pageSize int) ([]entity.HistoryAction, int64, error) {
	var items []entity.HistoryAction
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.HistoryAction{}).
		Where("boq_id = ?", boqID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// ListByCR 查询申请单的台账时间线
func (r *HistoryRepository) ListByCR(ctx context.Context, crID string, page, pageSize int) ([]entity.HistoryAction, int64, error) {
	var items []entity.HistoryAction
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.HistoryAction{}).
		Where("cr_id = ?", crID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}
