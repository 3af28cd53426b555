package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/partnershiphub/hub/pkg/authz"
)

// JSONStringSlice is a custom GORM type for []string stored as JSON.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ProjectRecord is a partnership project. Every other entity is scoped to one.
type ProjectRecord struct {
	ID          string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	Name        string     `gorm:"column:name;not null"`
	Description string     `gorm:"column:description"`
	StartDate   *time.Time `gorm:"column:start_date"`
	EndDate     *time.Time `gorm:"column:end_date"`
	CreatedBy   string     `gorm:"column:created_by;type:varchar(36)"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (ProjectRecord) TableName() string { return "projects" }

// UserRecord is a user profile. The ID matches the auth provider's subject.
type UserRecord struct {
	ID           string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Email        string    `gorm:"column:email;type:varchar(320);uniqueIndex;not null"`
	FullName     string    `gorm:"column:full_name"`
	Organization string    `gorm:"column:organization"`
	AvatarURL    string    `gorm:"column:avatar_url"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (UserRecord) TableName() string { return "users" }

// DisplayName returns the full name, falling back to the email address.
func (u *UserRecord) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// ProjectMemberRecord binds a user to a project with exactly one role.
type ProjectMemberRecord struct {
	ID        string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProjectID string     `gorm:"column:project_id;type:varchar(36);uniqueIndex:idx_member_project_user,priority:1;index:idx_member_project_role,priority:1;not null"`
	UserID    string     `gorm:"column:user_id;type:varchar(36);uniqueIndex:idx_member_project_user,priority:2;not null"`
	Role      authz.Role `gorm:"column:role;type:varchar(20);index:idx_member_project_role,priority:2;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (ProjectMemberRecord) TableName() string { return "project_members" }

// PhaseRecord is a dated stage of a project's campaign.
type PhaseRecord struct {
	ID        string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProjectID string     `gorm:"column:project_id;type:varchar(36);index;not null"`
	Name      string     `gorm:"column:name;not null"`
	StartDate *time.Time `gorm:"column:start_date"`
	EndDate   *time.Time `gorm:"column:end_date"`
	SortOrder int        `gorm:"column:sort_order;not null;default:0"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (PhaseRecord) TableName() string { return "phases" }

// ClubRecord is a club that assets and athletes can be tagged with.
type ClubRecord struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProjectID string    `gorm:"column:project_id;type:varchar(36);index;not null"`
	Name      string    `gorm:"column:name;not null"`
	Market    string    `gorm:"column:market"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (ClubRecord) TableName() string { return "clubs" }

// AthleteRecord is an athlete that assets can be tagged with.
type AthleteRecord struct {
	ID           string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProjectID    string     `gorm:"column:project_id;type:varchar(36);index;not null"`
	FullName     string     `gorm:"column:full_name;not null"`
	ClubID       *string    `gorm:"column:club_id;type:varchar(36)"`
	HeadshotURL  string     `gorm:"column:headshot_url"`
	EmbargoUntil *time.Time `gorm:"column:embargo_until"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (AthleteRecord) TableName() string { return "athletes" }

// AssetRecord is a content item moving through the approval workflow.
type AssetRecord struct {
	ID              string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProjectID       string          `gorm:"column:project_id;type:varchar(36);index:idx_asset_project_status,priority:1;not null"`
	PhaseID         *string         `gorm:"column:phase_id;type:varchar(36);index"`
	Title           string          `gorm:"column:title;not null"`
	Description     string          `gorm:"column:description"`
	ContentCategory ContentCategory `gorm:"column:content_category;type:varchar(32);not null"`
	Platforms       JSONStringSlice `gorm:"column:platforms;type:text"`
	Format          AssetFormat     `gorm:"column:format;type:varchar(32)"`
	SourceStation   SourceStation   `gorm:"column:source_station;type:varchar(32)"`
	ExternalURL     string          `gorm:"column:external_url"`
	ThumbnailURL    string          `gorm:"column:thumbnail_url"`
	ApprovalDue     *time.Time      `gorm:"column:approval_due"`
	PublishDate     *time.Time      `gorm:"column:publish_date"`
	Status          AssetStatus     `gorm:"column:status;type:varchar(32);index:idx_asset_project_status,priority:2;not null;default:draft"`
	Version         int             `gorm:"column:version;not null;default:1"`
	CreatedBy       string          `gorm:"column:created_by;type:varchar(36);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (AssetRecord) TableName() string { return "assets" }

// AssetAthleteRecord tags an asset with an athlete.
type AssetAthleteRecord struct {
	AssetID   string `gorm:"primaryKey;column:asset_id;type:varchar(36)"`
	AthleteID string `gorm:"primaryKey;column:athlete_id;type:varchar(36)"`
}

// TableName returns the GORM table name.
func (AssetAthleteRecord) TableName() string { return "asset_athletes" }

// AssetClubRecord tags an asset with a club.
type AssetClubRecord struct {
	AssetID string `gorm:"primaryKey;column:asset_id;type:varchar(36)"`
	ClubID  string `gorm:"primaryKey;column:club_id;type:varchar(36)"`
}

// TableName returns the GORM table name.
func (AssetClubRecord) TableName() string { return "asset_clubs" }

// ApprovalChainRecord maps a (project, content category) to its required roles.
type ApprovalChainRecord struct {
	ID              string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProjectID       string          `gorm:"column:project_id;type:varchar(36);uniqueIndex:idx_chain_project_category,priority:1;not null"`
	ContentCategory ContentCategory `gorm:"column:content_category;type:varchar(32);uniqueIndex:idx_chain_project_category,priority:2;not null"`
	RequiredRoles   JSONStringSlice `gorm:"column:required_roles;type:text;not null"`
	ChainType       ChainType       `gorm:"column:chain_type;type:varchar(16);not null;default:parallel"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (ApprovalChainRecord) TableName() string { return "approval_chains" }

// Roles returns the required roles as typed values.
func (c *ApprovalChainRecord) Roles() []authz.Role {
	roles := make([]authz.Role, len(c.RequiredRoles))
	for i, r := range c.RequiredRoles {
		roles[i] = authz.Role(r)
	}
	return roles
}

// ApprovalRecord is one approver's decision on one version of an asset.
type ApprovalRecord struct {
	ID              string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	AssetID         string         `gorm:"column:asset_id;type:varchar(36);index:idx_approval_asset_version,priority:1;not null"`
	UserID          string         `gorm:"column:user_id;type:varchar(36);index:idx_approval_user_status,priority:1;not null"`
	Status          ApprovalStatus `gorm:"column:status;type:varchar(32);index:idx_approval_user_status,priority:2;not null;default:pending"`
	Comment         string         `gorm:"column:comment"`
	RespondedAt     *time.Time     `gorm:"column:responded_at"`
	VersionReviewed int            `gorm:"column:version_reviewed;index:idx_approval_asset_version,priority:2;not null"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (ApprovalRecord) TableName() string { return "approvals" }

// CommentRecord is a comment on an asset. Replies carry a ParentID.
type CommentRecord struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	AssetID   string    `gorm:"column:asset_id;type:varchar(36);index;not null"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null"`
	ParentID  *string   `gorm:"column:parent_id;type:varchar(36);index"`
	Body      string    `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (CommentRecord) TableName() string { return "comments" }

// ActivityRecord is an append-only activity log entry.
type ActivityRecord struct {
	ID        string         `gorm:"primaryKey;column:id;type:varchar(36)"`
	ProjectID string         `gorm:"column:project_id;type:varchar(36);index:idx_activity_project_time,priority:1;not null"`
	UserID    string         `gorm:"column:user_id;type:varchar(36)"`
	AssetID   *string        `gorm:"column:asset_id;type:varchar(36);index"`
	Action    string         `gorm:"column:action;type:varchar(64);not null"`
	Metadata  datatypes.JSON `gorm:"column:metadata"`
	CreatedAt time.Time      `gorm:"column:created_at;index:idx_activity_project_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (ActivityRecord) TableName() string { return "activity_log" }

// AllModels lists every table managed by the workflow package in
// dependency order.
func AllModels() []any {
	return []any{
		&ProjectRecord{},
		&UserRecord{},
		&ProjectMemberRecord{},
		&PhaseRecord{},
		&ClubRecord{},
		&AthleteRecord{},
		&AssetRecord{},
		&AssetAthleteRecord{},
		&AssetClubRecord{},
		&ApprovalChainRecord{},
		&ApprovalRecord{},
		&CommentRecord{},
		&ActivityRecord{},
	}
}
