package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/you/scamwatch/domain"
)

// DBUser is the GORM model behind domain.User. The password column name
// predates the rename to PasswordHash and is kept for the schema.
type DBUser struct {
	ID              uint           `gorm:"primaryKey"`
	Email           string         `gorm:"uniqueIndex;size:255"`
	Phone           string         `gorm:"index;size:32"`
	PasswordHash    string         `gorm:"column:password"`
	Role            string         `gorm:"index;size:64"`
	IsActive        bool           `gorm:"index"`
	ContactVerified bool           `gorm:"index"`
	CreatedAt       time.Time      `gorm:"index"`
	UpdatedAt       time.Time      `gorm:"index"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository, backfilling the generated id
// into the domain entity.
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	row := toDBUser(user)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	user.ID = row.ID
	return nil
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByPhone implements domain.UserRepository
func (r *UserRepositoryImpl) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.findOne(ctx, "phone = ?", phone)
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// Update implements domain.UserRepository
func (r *UserRepositoryImpl) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(toDBUser(user)).Error
}

// ActivateContact implements domain.UserRepository. It flips only the
// verification flag so a concurrent profile update cannot be clobbered.
func (r *UserRepositoryImpl) ActivateContact(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&DBUser{}).
		Where("id = ?", userID).
		Update("contact_verified", true).Error
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var row DBUser
	err := r.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return toDomainUser(&row), nil
}

func toDBUser(user *domain.User) *DBUser {
	return &DBUser{
		ID:              user.ID,
		Email:           user.Email,
		Phone:           user.Phone,
		PasswordHash:    user.PasswordHash,
		Role:            user.Role,
		IsActive:        user.IsActive,
		ContactVerified: user.ContactVerified,
	}
}

func toDomainUser(row *DBUser) *domain.User {
	return &domain.User{
		ID:              row.ID,
		Email:           row.Email,
		Phone:           row.Phone,
		PasswordHash:    row.PasswordHash,
		Role:            row.Role,
		IsActive:        row.IsActive,
		ContactVerified: row.ContactVerified,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}
