package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"auth-service/backend/internal/audit/domain"
)

type loginEventModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"index:idx_login_audit_user_ts,priority:1;not null;default:''"`
	Ts        time.Time `gorm:"index:idx_login_audit_user_ts,priority:2,sort:desc;not null"`
	IPAddress string    `gorm:"not null;default:''"`
	UserAgent string    `gorm:"not null;default:''"`
	Result    string    `gorm:"size:16;not null"`
	Reason    string    `gorm:"not null;default:''"`
}

func (loginEventModel) TableName() string { return "login_audit" }

// AutoMigrate creates the login_audit table for the embedded store. SQLite has no
// partitioning; retention there is a plain delete.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&loginEventModel{})
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(gdb *gorm.DB) *GormRepository {
	return &GormRepository{db: gdb}
}

func (r *GormRepository) Append(ctx context.Context, e *domain.LoginEvent) error {
	return r.db.WithContext(ctx).Create(&loginEventModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Ts:        e.Timestamp,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		Result:    string(e.Result),
		Reason:    e.Reason,
	}).Error
}

func (r *GormRepository) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.LoginEvent, int64, error) {
	byUser := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&loginEventModel{}).Where("user_id = ?", userID)
	}
	var total int64
	if err := byUser().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if pastEnd(page, pageSize, total) {
		return nil, total, nil
	}
	var rows []loginEventModel
	err := byUser().Order("ts DESC").Order("id").
		Limit(pageSize).Offset(offset(page, pageSize)).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.LoginEvent, len(rows))
	for i := range rows {
		m := &rows[i]
		out[i] = &domain.LoginEvent{
			ID:        m.ID,
			UserID:    m.UserID,
			Timestamp: m.Ts.UTC(),
			IPAddress: m.IPAddress,
			UserAgent: m.UserAgent,
			Result:    domain.Result(m.Result),
			Reason:    m.Reason,
		}
	}
	return out, total, nil
}

// DeleteBefore removes events older than cutoff. Used by the worker on the embedded store.
func (r *GormRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("ts < ?", cutoff).Delete(&loginEventModel{})
	return res.RowsAffected, res.Error
}
