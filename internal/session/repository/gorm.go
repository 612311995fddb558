package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"auth-service/backend/internal/platform/clock"
	"auth-service/backend/internal/session/domain"
)

// sessionModel is the gorm row for refresh_sessions.
type sessionModel struct {
	ID               string    `gorm:"primaryKey;size:36"`
	UserID           string    `gorm:"index;not null"`
	RefreshTokenHash string    `gorm:"uniqueIndex;not null"`
	Device           string    `gorm:"not null;default:''"`
	IPAddress        string    `gorm:"not null;default:''"`
	UserAgent        string    `gorm:"not null;default:''"`
	ExpiresAt        time.Time `gorm:"index;not null"`
	Revoked          bool      `gorm:"not null;default:false"`
	Version          int64     `gorm:"not null;default:1"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (sessionModel) TableName() string { return "refresh_sessions" }

// AutoMigrate creates or updates the refresh_sessions table for the embedded store.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&sessionModel{})
}

// GormRepository stores sessions through gorm. It has no row locks; rotation safety comes
// from CompareAndRevoke matching on the version column.
type GormRepository struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewGormRepository returns a session repository over gdb, usually a transaction handle.
// gdb must be opened with TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
// clk stamps updated_at on revocation; nil means the system clock.
func NewGormRepository(gdb *gorm.DB, clk clock.Clock) *GormRepository {
	if clk == nil {
		clk = clock.System{}
	}
	return &GormRepository{db: gdb, clock: clk}
}

func (r *GormRepository) Create(ctx context.Context, s *domain.Session) error {
	s.Revoked = false
	s.Version = 1
	m := sessionModel{
		ID:               s.ID,
		UserID:           s.UserID,
		RefreshTokenHash: s.TokenHash,
		Device:           s.Device,
		IPAddress:        s.IPAddress,
		UserAgent:        s.UserAgent,
		ExpiresAt:        s.ExpiresAt,
		Version:          1,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateHash
	}
	return err
}

func (r *GormRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var m sessionModel
	err := r.db.WithContext(ctx).Where("refresh_token_hash = ?", tokenHash).Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m.toDomain(), nil
}

// GetByHashForUpdate is a plain read; callers follow it with CompareAndRevoke.
func (r *GormRepository) GetByHashForUpdate(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return r.GetByHash(ctx, tokenHash)
}

func (r *GormRepository) revoke(ctx context.Context, where string, args ...interface{}) *gorm.DB {
	return r.db.WithContext(ctx).Model(&sessionModel{}).
		Where(where, args...).
		Where("revoked = ?", false).
		Updates(map[string]interface{}{
			"revoked":    true,
			"version":    gorm.Expr("version + 1"),
			"updated_at": r.clock.Now(),
		})
}

func (r *GormRepository) RevokeByID(ctx context.Context, id string) (bool, error) {
	res := r.revoke(ctx, "id = ?", id)
	return res.RowsAffected == 1, res.Error
}

func (r *GormRepository) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	res := r.revoke(ctx, "refresh_token_hash = ?", tokenHash)
	return res.RowsAffected == 1, res.Error
}

func (r *GormRepository) CompareAndRevoke(ctx context.Context, id string, version int64) (bool, error) {
	res := r.revoke(ctx, "id = ? AND version = ?", id, version)
	return res.RowsAffected == 1, res.Error
}

func (r *GormRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	res := r.revoke(ctx, "user_id = ?", userID)
	return res.RowsAffected, res.Error
}

func (r *GormRepository) ListHashesForUser(ctx context.Context, userID string) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("user_id = ?", userID).
		Pluck("refresh_token_hash", &out).Error
	return out, err
}

func (r *GormRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&sessionModel{})
	return res.RowsAffected, res.Error
}

func (m *sessionModel) toDomain() *domain.Session {
	return &domain.Session{
		ID:        m.ID,
		UserID:    m.UserID,
		TokenHash: m.RefreshTokenHash,
		Device:    m.Device,
		IPAddress: m.IPAddress,
		UserAgent: m.UserAgent,
		ExpiresAt: m.ExpiresAt.UTC(),
		Revoked:   m.Revoked,
		Version:   m.Version,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}
