package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnershiphub/hub/pkg/db"
)

// UserStore maintains user profiles.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// WithTx returns a UserStore bound to the given transaction.
func (s *UserStore) WithTx(tx *gorm.DB) *UserStore {
	return &UserStore{db: tx}
}

// Get returns a user by ID. Returns nil, nil if absent.
func (s *UserStore) Get(ctx context.Context, id string) (*UserRecord, error) {
	var user UserRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get user", err)
	}
	return &user, nil
}

// FindByEmail returns a user by case-insensitive email. Returns nil, nil if absent.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	var user UserRecord
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("find user by email", err)
	}
	return &user, nil
}

// GetMany returns the users with the given IDs keyed by ID.
func (s *UserStore) GetMany(ctx context.Context, ids []string) (map[string]UserRecord, error) {
	out := make(map[string]UserRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []UserRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, persistenceError("get users", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Ensure returns the profile for an authenticated user, creating it on first
// sight. A profile created by an earlier invite for the same email is
// claimed: its ID and memberships move to the authenticated user ID.
func (s *UserStore) Ensure(ctx context.Context, id, email string) (*UserRecord, error) {
	existing, err := s.Get(ctx, id)
	if err != nil || existing != nil {
		return existing, err
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, invalidInput("email is required to create a profile")
	}

	var user *UserRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := s.WithTx(tx)
		invited, err := txStore.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if invited == nil {
			user = &UserRecord{ID: id, Email: email}
			if err := tx.Create(user).Error; err != nil {
				return persistenceError("create user", err)
			}
			return nil
		}

		if err := tx.Model(&ProjectMemberRecord{}).Where("user_id = ?", invited.ID).
			Update("user_id", id).Error; err != nil {
			return persistenceError("claim invited memberships", err)
		}
		if err := tx.Model(&UserRecord{}).Where("id = ?", invited.ID).
			Update("id", id).Error; err != nil {
			return persistenceError("claim invited profile", err)
		}
		invited.ID = id
		user = invited
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Lost a race with a concurrent first request for the same user.
			return s.Get(ctx, id)
		}
		return nil, err
	}
	return user, nil
}

// CreateInvited creates a placeholder profile for an invited email address.
func (s *UserStore) CreateInvited(ctx context.Context, email, fullName string) (*UserRecord, error) {
	user := &UserRecord{
		ID:       uuid.New().String(),
		Email:    normalizeEmail(email),
		FullName: strings.TrimSpace(fullName),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, persistenceError("create invited user", err)
	}
	return user, nil
}

// UpdateProfile updates the caller's display fields.
func (s *UserStore) UpdateProfile(ctx context.Context, id, fullName, organization string) (*UserRecord, error) {
	result := s.db.WithContext(ctx).Model(&UserRecord{}).Where("id = ?", id).Updates(map[string]any{
		"full_name":    strings.TrimSpace(fullName),
		"organization": strings.TrimSpace(organization),
	})
	if result.Error != nil {
		return nil, persistenceError("update profile", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFound("user")
	}
	return s.Get(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
