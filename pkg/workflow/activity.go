package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/partnershiphub/hub/pkg/authz"
)

// Activity action names.
const (
	ActionUploaded           = "uploaded"
	ActionSubmittedForReview = "submitted_for_review"
	ActionApproved           = "approved"
	ActionChangesRequested   = "changes_requested"
	ActionRejected           = "rejected"
	ActionPublished          = "published"
	ActionCommented          = "commented"
	ActionUserInvited        = "user_invited"
	ActionRoleChanged        = "role_changed"

	statusChangedPrefix = "status_changed_to_"
)

// ActivityDetails is the typed metadata of one activity entry. Each action
// has exactly one details type.
type ActivityDetails interface {
	Action() string
}

// UploadDetails accompanies "uploaded".
type UploadDetails struct {
	AssetTitle string `json:"asset_title"`
}

func (UploadDetails) Action() string { return ActionUploaded }

// SubmissionDetails accompanies "submitted_for_review".
type SubmissionDetails struct {
	AssetTitle string `json:"asset_title"`
	Version    int    `json:"version"`
}

func (SubmissionDetails) Action() string { return ActionSubmittedForReview }

// DecisionDetails accompanies "approved", "changes_requested" and "rejected".
type DecisionDetails struct {
	Decision   ApprovalStatus `json:"-"`
	AssetTitle string         `json:"asset_title"`
	Comment    string         `json:"comment,omitempty"`
}

func (d DecisionDetails) Action() string { return string(d.Decision) }

// StatusChangeDetails accompanies admin transitions: "published" or
// "status_changed_to_<status>".
type StatusChangeDetails struct {
	AssetTitle string      `json:"asset_title"`
	NewStatus  AssetStatus `json:"new_status"`
}

func (d StatusChangeDetails) Action() string {
	if d.NewStatus == AssetPublished {
		return ActionPublished
	}
	return statusChangedPrefix + string(d.NewStatus)
}

// CommentDetails accompanies "commented".
type CommentDetails struct {
	AssetTitle string `json:"asset_title"`
	CommentID  string `json:"comment_id"`
	Reply      bool   `json:"reply,omitempty"`
}

func (CommentDetails) Action() string { return ActionCommented }

// InviteDetails accompanies "user_invited".
type InviteDetails struct {
	InvitedEmail string     `json:"invited_email"`
	Role         authz.Role `json:"role"`
}

func (InviteDetails) Action() string { return ActionUserInvited }

// RoleChangeDetails accompanies "role_changed".
type RoleChangeDetails struct {
	MemberID string     `json:"member_id"`
	NewRole  authz.Role `json:"new_role"`
}

func (RoleChangeDetails) Action() string { return ActionRoleChanged }

// DecodeDetails decodes stored metadata into the details type for action.
func DecodeDetails(action string, raw []byte) (ActivityDetails, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var (
		details ActivityDetails
		err     error
	)
	switch {
	case action == ActionUploaded:
		var d UploadDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case action == ActionSubmittedForReview:
		var d SubmissionDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case action == ActionApproved || action == ActionChangesRequested || action == ActionRejected:
		d := DecisionDetails{Decision: ApprovalStatus(action)}
		err = json.Unmarshal(raw, &d)
		details = d
	case action == ActionPublished || strings.HasPrefix(action, statusChangedPrefix):
		var d StatusChangeDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case action == ActionCommented:
		var d CommentDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case action == ActionUserInvited:
		var d InviteDetails
		err = json.Unmarshal(raw, &d)
		details = d
	case action == ActionRoleChanged:
		var d RoleChangeDetails
		err = json.Unmarshal(raw, &d)
		details = d
	default:
		return nil, fmt.Errorf("unknown activity action %q", action)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", action, err)
	}
	return details, nil
}

// ActivityStore provides append-only operations for the activity log.
type ActivityStore struct {
	db *gorm.DB
}

// NewActivityStore creates a new ActivityStore.
func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// Append records an activity entry. assetID may be empty.
func (s *ActivityStore) Append(ctx context.Context, projectID, userID, assetID string, details ActivityDetails) error {
	metadata, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}
	record := &ActivityRecord{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		UserID:    userID,
		Action:    details.Action(),
		Metadata:  datatypes.JSON(metadata),
	}
	if assetID != "" {
		record.AssetID = &assetID
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return persistenceError("append activity", err)
	}
	return nil
}

// ListByProject returns paginated activity for a project, newest first.
// pageToken is the opaque token returned with the previous page.
func (s *ActivityStore) ListByProject(ctx context.Context, projectID string, pageSize int, pageToken string) ([]ActivityRecord, string, int, error) {
	return s.list(ctx, s.db.WithContext(ctx).Where("project_id = ?", projectID), pageSize, pageToken)
}

// ListByAsset returns paginated activity for an asset, newest first.
func (s *ActivityStore) ListByAsset(ctx context.Context, assetID string, pageSize int, pageToken string) ([]ActivityRecord, string, int, error) {
	return s.list(ctx, s.db.WithContext(ctx).Where("asset_id = ?", assetID), pageSize, pageToken)
}

func (s *ActivityStore) list(ctx context.Context, scope *gorm.DB, pageSize int, pageToken string) ([]ActivityRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	if err := scope.Session(&gorm.Session{}).Model(&ActivityRecord{}).Count(&totalSize).Error; err != nil {
		return nil, "", 0, persistenceError("count activity", err)
	}

	cursor, err := decodePageToken(pageToken)
	if err != nil {
		return nil, "", 0, err
	}
	query := paginate(scope.Session(&gorm.Session{}), ActivityRecord{}.TableName(), cursor).Limit(pageSize + 1)

	var records []ActivityRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, persistenceError("list activity", err)
	}

	var nextToken string
	if len(records) > pageSize {
		last := records[pageSize-1]
		nextToken = encodePageToken(last.CreatedAt, last.ID)
		records = records[:pageSize]
	}
	return records, nextToken, int(totalSize), nil
}

// Recent returns the newest limit entries of a project.
func (s *ActivityStore) Recent(ctx context.Context, projectID string, limit int) ([]ActivityRecord, error) {
	var records []ActivityRecord
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, persistenceError("recent activity", err)
	}
	return records, nil
}

// DeleteOlderThan removes entries created before cutoff and returns the
// number removed.
func (s *ActivityStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&ActivityRecord{})
	if result.Error != nil {
		return 0, persistenceError("delete old activity", result.Error)
	}
	return result.RowsAffected, nil
}
