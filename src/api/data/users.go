package data

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/VyshnaviVunnamatla/DualAgents-AB/src/api/types"
)

var (
	ErrNotFound  = errors.New("data: record not found")
	ErrDuplicate = errors.New("data: duplicate record")
)

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (u *Users) Create(ctx context.Context, user *types.User) error {
	user.Email = normalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = types.RoleUser
	}
	err := u.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	var user types.User
	err := u.db.WithContext(ctx).First(&user, "email = ?", normalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *Users) FindByID(ctx context.Context, id uint64) (*types.User, error) {
	var user types.User
	err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
