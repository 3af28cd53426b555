package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalStore materializes and queries the per-version approval records
// of assets.
type ApprovalStore struct {
	db      *gorm.DB
	chains  *ChainStore
	members *MemberStore
	now     func() time.Time
}

// NewApprovalStore creates a new ApprovalStore.
func NewApprovalStore(db *gorm.DB, chains *ChainStore, members *MemberStore) *ApprovalStore {
	return &ApprovalStore{db: db, chains: chains, members: members, now: time.Now}
}

// WithTx returns an ApprovalStore whose reads and writes go through tx.
func (s *ApprovalStore) WithTx(tx *gorm.DB) *ApprovalStore {
	return &ApprovalStore{
		db:      tx,
		chains:  s.chains.WithTx(tx),
		members: s.members.WithTx(tx),
		now:     s.now,
	}
}

// ResolveApprovers resolves the chain for the category and the approvers
// holding its roles. It performs no writes. Returns ErrNotConfigured or
// ErrNoApproversFound when submission must be refused.
func (s *ApprovalStore) ResolveApprovers(ctx context.Context, projectID string, category ContentCategory) ([]string, error) {
	chain, err := s.chains.Resolve(ctx, projectID, category)
	if err != nil {
		return nil, err
	}
	return s.members.ResolveApprovers(ctx, projectID, chain.Roles())
}

// CreateRecords resolves the approvers for the asset's category and inserts
// one pending record per approver stamped with version. If resolution fails
// nothing is written. Deleting records left pending by an earlier version is
// the caller's job.
func (s *ApprovalStore) CreateRecords(ctx context.Context, assetID, projectID string, category ContentCategory, version int) ([]ApprovalRecord, error) {
	approvers, err := s.ResolveApprovers(ctx, projectID, category)
	if err != nil {
		return nil, err
	}
	return s.InsertPending(ctx, assetID, approvers, version)
}

// InsertPending inserts one pending record per approver in a single batch.
func (s *ApprovalStore) InsertPending(ctx context.Context, assetID string, approvers []string, version int) ([]ApprovalRecord, error) {
	records := make([]ApprovalRecord, len(approvers))
	for i, userID := range approvers {
		records[i] = ApprovalRecord{
			ID:              uuid.New().String(),
			AssetID:         assetID,
			UserID:          userID,
			Status:          ApprovalPending,
			VersionReviewed: version,
		}
	}
	if len(records) == 0 {
		return records, nil
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, persistenceError("create approval records", err)
	}
	return records, nil
}

// Get returns an approval record by ID. Returns nil, nil if absent.
func (s *ApprovalStore) Get(ctx context.Context, approvalID string) (*ApprovalRecord, error) {
	var rec ApprovalRecord
	if err := s.db.WithContext(ctx).Where("id = ?", approvalID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get approval", err)
	}
	return &rec, nil
}

// RecordDecision records approverID's decision on the approval record. The
// acting user must own the record; otherwise ErrNotAuthorized is returned
// and nothing changes. A record can be decided once.
func (s *ApprovalStore) RecordDecision(ctx context.Context, approvalID, approverID string, decision ApprovalStatus, comment string) (*ApprovalRecord, error) {
	if !decision.IsDecision() {
		return nil, invalidInput("decision must be approved, changes_requested or rejected")
	}

	rec, err := s.Get(ctx, approvalID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound("approval")
	}
	if rec.UserID != approverID {
		return nil, ErrNotAuthorized
	}
	if rec.Status != ApprovalPending {
		return nil, ErrAlreadyDecided
	}

	respondedAt := s.now().UTC()
	result := s.db.WithContext(ctx).Model(&ApprovalRecord{}).
		Where("id = ? AND user_id = ? AND status = ?", approvalID, approverID, ApprovalPending).
		Updates(map[string]any{
			"status":       decision,
			"comment":      comment,
			"responded_at": respondedAt,
		})
	if result.Error != nil {
		return nil, persistenceError("record decision", result.Error)
	}
	if result.RowsAffected == 0 {
		// Decided concurrently or superseded by a resubmission.
		return nil, ErrAlreadyDecided
	}

	rec.Status = decision
	rec.Comment = comment
	rec.RespondedAt = &respondedAt
	return rec, nil
}

// ListActive returns the records reviewing the given version of the asset.
func (s *ApprovalStore) ListActive(ctx context.Context, assetID string, version int) ([]ApprovalRecord, error) {
	var records []ApprovalRecord
	err := s.db.WithContext(ctx).
		Where("asset_id = ? AND version_reviewed = ?", assetID, version).
		Order("created_at ASC, id ASC").Find(&records).Error
	if err != nil {
		return nil, persistenceError("list active approvals", err)
	}
	return records, nil
}

// ListForAsset returns every record of the asset, newest version first.
func (s *ApprovalStore) ListForAsset(ctx context.Context, assetID string) ([]ApprovalRecord, error) {
	var records []ApprovalRecord
	err := s.db.WithContext(ctx).Where("asset_id = ?", assetID).
		Order("version_reviewed DESC, created_at ASC, id ASC").Find(&records).Error
	if err != nil {
		return nil, persistenceError("list approvals", err)
	}
	return records, nil
}

// HasRecordsAtVersion reports whether any record reviews the given version.
func (s *ApprovalStore) HasRecordsAtVersion(ctx context.Context, assetID string, version int) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&ApprovalRecord{}).
		Where("asset_id = ? AND version_reviewed = ?", assetID, version).Count(&n).Error
	if err != nil {
		return false, persistenceError("count approvals", err)
	}
	return n > 0, nil
}

// PendingApproval is a pending record joined with its asset.
type PendingApproval struct {
	ApprovalRecord
	AssetTitle      string
	AssetStatus     AssetStatus
	ContentCategory ContentCategory
	ApprovalDue     *time.Time
	ProjectID       string
}

// ListPendingForUser returns the user's pending records on current asset
// versions in the project, soonest due first.
func (s *ApprovalStore) ListPendingForUser(ctx context.Context, projectID, userID string) ([]PendingApproval, error) {
	var rows []PendingApproval
	err := s.db.WithContext(ctx).Table("approvals").
		Select("approvals.*, assets.title AS asset_title, assets.status AS asset_status, "+
			"assets.content_category, assets.approval_due, assets.project_id").
		Joins("JOIN assets ON assets.id = approvals.asset_id AND assets.version = approvals.version_reviewed").
		Where("assets.project_id = ? AND approvals.user_id = ? AND approvals.status = ?",
			projectID, userID, ApprovalPending).
		Order("assets.approval_due IS NULL, assets.approval_due ASC, approvals.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, persistenceError("list pending approvals", err)
	}
	return rows, nil
}

// DeletePending removes every pending record of the asset. Decided records
// stay as review history.
func (s *ApprovalStore) DeletePending(ctx context.Context, assetID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("asset_id = ? AND status = ?", assetID, ApprovalPending).
		Delete(&ApprovalRecord{})
	if result.Error != nil {
		return 0, persistenceError("delete pending approvals", result.Error)
	}
	return result.RowsAffected, nil
}
