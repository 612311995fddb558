package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"auth-service/backend/internal/platform/clock"
	"auth-service/backend/internal/user/domain"
)

type userModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Login        string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"not null;default:''"`
	LastName     string `gorm:"not null;default:''"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type roleModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string `gorm:"not null;default:''"`
}

func (roleModel) TableName() string { return "roles" }

type userRoleModel struct {
	UserID string `gorm:"primaryKey"`
	RoleID string `gorm:"primaryKey"`
}

func (userRoleModel) TableName() string { return "user_roles" }

// AutoMigrate creates users, roles and user_roles for the embedded store.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&userModel{}, &roleModel{}, &userRoleModel{})
}

type GormRepository struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewGormRepository stamps updated_at from clk; nil means the system clock.
func NewGormRepository(gdb *gorm.DB, clk clock.Clock) *GormRepository {
	if clk == nil {
		clk = clock.System{}
	}
	return &GormRepository{db: gdb, clock: clk}
}

func (r *GormRepository) getOne(ctx context.Context, column, value string) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where(column+" = ?", value).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.User{
		ID:           m.ID,
		Login:        m.Login,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}, nil
}

func (r *GormRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *GormRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.getOne(ctx, "login", login)
}

func (r *GormRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email", email)
}

// Create inserts u. SQLite does not name the violated index in a translatable way, so a
// duplicate is attributed by looking the email up afterwards.
func (r *GormRepository) Create(ctx context.Context, u *domain.User) error {
	err := r.db.WithContext(ctx).Create(&userModel{
		ID:           u.ID,
		Login:        u.Login,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if other, lookupErr := r.GetByEmail(ctx, u.Email); lookupErr == nil && other != nil {
		return ErrEmailTaken
	}
	return ErrLoginTaken
}

func (r *GormRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": hash, "updated_at": r.clock.Now()}).Error
}

func (r *GormRepository) UpdateLogin(ctx context.Context, id, login string) error {
	err := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"login": login, "updated_at": r.clock.Now()}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrLoginTaken
	}
	return err
}

type GormRoleRepository struct {
	db *gorm.DB
}

func NewGormRoleRepository(gdb *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: gdb}
}

func (r *GormRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	var m roleModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.Role{ID: m.ID, Name: m.Name, Description: m.Description}, nil
}

func (r *GormRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	return r.db.WithContext(ctx).Create(&roleModel{ID: role.ID, Name: role.Name, Description: role.Description}).Error
}

func (r *GormRoleRepository) Assign(ctx context.Context, userID, roleID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&userRoleModel{UserID: userID, RoleID: roleID}).Error
}

func (r *GormRoleRepository) NamesForUser(ctx context.Context, userID string) ([]string, error) {
	names := []string{}
	err := r.db.WithContext(ctx).Table("roles").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name").
		Pluck("roles.name", &names).Error
	return names, err
}
