package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnershiphub/hub/pkg/authz"
)

// ProjectStore provides operations for projects.
type ProjectStore struct {
	db *gorm.DB
}

// NewProjectStore creates a new ProjectStore.
func NewProjectStore(db *gorm.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// ProjectWithRole is a project together with the caller's role in it.
type ProjectWithRole struct {
	ProjectRecord
	Role authz.Role
}

// ListForUser returns the projects the user is a member of, newest first.
func (s *ProjectStore) ListForUser(ctx context.Context, userID string) ([]ProjectWithRole, error) {
	var rows []ProjectWithRole
	err := s.db.WithContext(ctx).Table("projects").
		Select("projects.*, project_members.role").
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Order("projects.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, persistenceError("list projects", err)
	}
	return rows, nil
}

// Get returns a project by ID. Returns nil, nil if absent.
func (s *ProjectStore) Get(ctx context.Context, projectID string) (*ProjectRecord, error) {
	var p ProjectRecord
	if err := s.db.WithContext(ctx).Where("id = ?", projectID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get project", err)
	}
	return &p, nil
}

// Create inserts a project and makes its creator an admin in the same
// transaction.
func (s *ProjectStore) Create(ctx context.Context, project *ProjectRecord) error {
	project.Name = strings.TrimSpace(project.Name)
	if project.Name == "" {
		return invalidInput("project name is required")
	}
	if project.CreatedBy == "" {
		return invalidInput("project creator is required")
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return invalidInput("project end date is before its start date")
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return persistenceError("create project", err)
		}
		if _, err := NewMemberStore(tx).Add(ctx, project.ID, project.CreatedBy, authz.RoleAdmin); err != nil {
			return err
		}
		return nil
	})
}

// PhaseStore provides operations for project phases.
type PhaseStore struct {
	db *gorm.DB
}

// NewPhaseStore creates a new PhaseStore.
func NewPhaseStore(db *gorm.DB) *PhaseStore {
	return &PhaseStore{db: db}
}

// List returns the project's phases ordered by sort_order.
func (s *PhaseStore) List(ctx context.Context, projectID string) ([]PhaseRecord, error) {
	var phases []PhaseRecord
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("sort_order ASC, created_at ASC").Find(&phases).Error
	if err != nil {
		return nil, persistenceError("list phases", err)
	}
	return phases, nil
}

// Create inserts a phase. A zero SortOrder appends it after the existing phases.
func (s *PhaseStore) Create(ctx context.Context, phase *PhaseRecord) error {
	phase.Name = strings.TrimSpace(phase.Name)
	if phase.Name == "" {
		return invalidInput("phase name is required")
	}
	if phase.StartDate != nil && phase.EndDate != nil && phase.EndDate.Before(*phase.StartDate) {
		return invalidInput("phase end date is before its start date")
	}
	if phase.SortOrder == 0 {
		var maxOrder *int
		err := s.db.WithContext(ctx).Model(&PhaseRecord{}).
			Where("project_id = ?", phase.ProjectID).
			Select("MAX(sort_order)").Scan(&maxOrder).Error
		if err != nil {
			return persistenceError("create phase", err)
		}
		if maxOrder != nil {
			phase.SortOrder = *maxOrder + 1
		} else {
			phase.SortOrder = 1
		}
	}
	if phase.ID == "" {
		phase.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(phase).Error; err != nil {
		return persistenceError("create phase", err)
	}
	return nil
}

// Get returns a phase within a project. Returns nil, nil if absent.
func (s *PhaseStore) Get(ctx context.Context, projectID, phaseID string) (*PhaseRecord, error) {
	var p PhaseRecord
	err := s.db.WithContext(ctx).Where("id = ? AND project_id = ?", phaseID, projectID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get phase", err)
	}
	return &p, nil
}

// ClubStore provides operations for the project's clubs.
type ClubStore struct {
	db *gorm.DB
}

// NewClubStore creates a new ClubStore.
func NewClubStore(db *gorm.DB) *ClubStore {
	return &ClubStore{db: db}
}

// List returns the project's clubs ordered by name.
func (s *ClubStore) List(ctx context.Context, projectID string) ([]ClubRecord, error) {
	var clubs []ClubRecord
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("name ASC").Find(&clubs).Error; err != nil {
		return nil, persistenceError("list clubs", err)
	}
	return clubs, nil
}

// Create inserts a club.
func (s *ClubStore) Create(ctx context.Context, club *ClubRecord) error {
	club.Name = strings.TrimSpace(club.Name)
	if club.Name == "" {
		return invalidInput("club name is required")
	}
	if club.ID == "" {
		club.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(club).Error; err != nil {
		return persistenceError("create club", err)
	}
	return nil
}

// AthleteStore provides operations for the project's athletes.
type AthleteStore struct {
	db *gorm.DB
}

// NewAthleteStore creates a new AthleteStore.
func NewAthleteStore(db *gorm.DB) *AthleteStore {
	return &AthleteStore{db: db}
}

// AthleteWithClub is an athlete joined with its club name.
type AthleteWithClub struct {
	AthleteRecord
	ClubName string
}

// List returns the project's athletes ordered by name, with club names.
func (s *AthleteStore) List(ctx context.Context, projectID string) ([]AthleteWithClub, error) {
	var rows []AthleteWithClub
	err := s.db.WithContext(ctx).Table("athletes").
		Select("athletes.*, clubs.name AS club_name").
		Joins("LEFT JOIN clubs ON clubs.id = athletes.club_id").
		Where("athletes.project_id = ?", projectID).
		Order("athletes.full_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, persistenceError("list athletes", err)
	}
	return rows, nil
}

// Create inserts an athlete. The club, if set, must belong to the same project.
func (s *AthleteStore) Create(ctx context.Context, athlete *AthleteRecord) error {
	athlete.FullName = strings.TrimSpace(athlete.FullName)
	if athlete.FullName == "" {
		return invalidInput("athlete name is required")
	}
	if athlete.ClubID != nil && *athlete.ClubID != "" {
		var count int64
		err := s.db.WithContext(ctx).Model(&ClubRecord{}).
			Where("id = ? AND project_id = ?", *athlete.ClubID, athlete.ProjectID).Count(&count).Error
		if err != nil {
			return persistenceError("create athlete", err)
		}
		if count == 0 {
			return notFound("club")
		}
	} else {
		athlete.ClubID = nil
	}
	if athlete.ID == "" {
		athlete.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(athlete).Error; err != nil {
		return persistenceError("create athlete", err)
	}
	return nil
}
