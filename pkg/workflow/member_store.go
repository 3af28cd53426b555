package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnershiphub/hub/pkg/authz"
	"github.com/partnershiphub/hub/pkg/db"
)

// MemberStore resolves and maintains project membership. Roles are always
// read from the database; nothing is cached between calls.
type MemberStore struct {
	db *gorm.DB
}

// NewMemberStore creates a new MemberStore.
func NewMemberStore(db *gorm.DB) *MemberStore {
	return &MemberStore{db: db}
}

// WithTx returns a MemberStore bound to the given transaction.
func (s *MemberStore) WithTx(tx *gorm.DB) *MemberStore {
	return &MemberStore{db: tx}
}

type roleHolder struct {
	UserID string
	Role   authz.Role
}

// ResolveApprovers returns the sorted, de-duplicated IDs of users holding any
// of the given roles in the project. A user holding several required roles
// appears once. Every role must be held by at least one member, otherwise
// ErrNoApproversFound is returned.
func (s *MemberStore) ResolveApprovers(ctx context.Context, projectID string, roles []authz.Role) ([]string, error) {
	if len(roles) == 0 {
		return nil, invalidInput("at least one role is required")
	}
	var holders []roleHolder
	err := s.db.WithContext(ctx).Model(&ProjectMemberRecord{}).
		Select("user_id, role").
		Where("project_id = ? AND role IN ?", projectID, roles).
		Find(&holders).Error
	if err != nil {
		return nil, persistenceError("resolve approvers", err)
	}

	covered := mapset.NewThreadUnsafeSet[authz.Role]()
	users := mapset.NewThreadUnsafeSet[string]()
	for _, h := range holders {
		covered.Add(h.Role)
		users.Add(h.UserID)
	}
	if missing := mapset.NewThreadUnsafeSet(roles...).Difference(covered); missing.Cardinality() > 0 {
		return nil, ErrNoApproversFound
	}

	approvers := users.ToSlice()
	sort.Strings(approvers)
	return approvers, nil
}

// RoleOf returns the user's role in the project, or authz.ErrNotMember.
func (s *MemberStore) RoleOf(ctx context.Context, projectID, userID string) (authz.Role, error) {
	var member ProjectMemberRecord
	err := s.db.WithContext(ctx).Where("project_id = ? AND user_id = ?", projectID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authz.ErrNotMember
		}
		return "", persistenceError("resolve role", err)
	}
	return member.Role, nil
}

// MemberWithUser is a membership joined with the member's profile.
type MemberWithUser struct {
	ProjectMemberRecord
	Email        string
	FullName     string
	Organization string
}

// List returns the project's members with their profiles, ordered by role
// then name.
func (s *MemberStore) List(ctx context.Context, projectID string) ([]MemberWithUser, error) {
	var rows []MemberWithUser
	err := s.db.WithContext(ctx).Table("project_members").
		Select("project_members.*, users.email, users.full_name, users.organization").
		Joins("JOIN users ON users.id = project_members.user_id").
		Where("project_members.project_id = ?", projectID).
		Order("project_members.role ASC, users.full_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, persistenceError("list members", err)
	}
	return rows, nil
}

// Get returns one membership in a project. Returns nil, nil if absent.
func (s *MemberStore) Get(ctx context.Context, projectID, memberID string) (*ProjectMemberRecord, error) {
	var member ProjectMemberRecord
	err := s.db.WithContext(ctx).Where("id = ? AND project_id = ?", memberID, projectID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get member", err)
	}
	return &member, nil
}

// Add makes the user a member of the project with the given role.
// Returns ErrAlreadyMember if the user already belongs to the project.
func (s *MemberStore) Add(ctx context.Context, projectID, userID string, role authz.Role) (*ProjectMemberRecord, error) {
	if !role.Valid() {
		return nil, invalidInput("unknown role %q", role)
	}
	member := &ProjectMemberRecord{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyMember
		}
		return nil, persistenceError("add member", err)
	}
	return member, nil
}

// UpdateRole changes a member's role.
func (s *MemberStore) UpdateRole(ctx context.Context, projectID, memberID string, role authz.Role) (*ProjectMemberRecord, error) {
	if !role.Valid() {
		return nil, invalidInput("unknown role %q", role)
	}
	result := s.db.WithContext(ctx).Model(&ProjectMemberRecord{}).
		Where("id = ? AND project_id = ?", memberID, projectID).
		Update("role", role)
	if result.Error != nil {
		return nil, persistenceError("update member role", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFound("member")
	}
	return s.Get(ctx, projectID, memberID)
}

// Remove deletes a membership.
func (s *MemberStore) Remove(ctx context.Context, projectID, memberID string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND project_id = ?", memberID, projectID).
		Delete(&ProjectMemberRecord{})
	if result.Error != nil {
		return persistenceError("remove member", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("member")
	}
	return nil
}

// CountAdmins returns the number of admins in a project.
func (s *MemberStore) CountAdmins(ctx context.Context, projectID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&ProjectMemberRecord{}).
		Where("project_id = ? AND role = ?", projectID, authz.RoleAdmin).Count(&n).Error
	if err != nil {
		return 0, persistenceError("count admins", err)
	}
	return n, nil
}

// ProjectIDsFor returns the IDs of the projects the user belongs to.
func (s *MemberStore) ProjectIDsFor(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&ProjectMemberRecord{}).
		Where("user_id = ?", userID).Pluck("project_id", &ids).Error; err != nil {
		return nil, persistenceError(fmt.Sprintf("list projects for %s", userID), err)
	}
	return ids, nil
}
