package workflow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/partnershiphub/hub/pkg/authz"
	"github.com/partnershiphub/hub/pkg/metrics"
	"github.com/partnershiphub/hub/pkg/notify"
)

// Actor is the authenticated user performing an operation, with their role
// in the operation's project.
type Actor struct {
	UserID string
	Role   authz.Role
}

// Service orchestrates the approval workflow over the stores. Activity log
// and notification failures are logged and never fail an operation.
type Service struct {
	db        *gorm.DB
	projects  *ProjectStore
	users     *UserStore
	members   *MemberStore
	chains    *ChainStore
	approvals *ApprovalStore
	assets    *AssetStore
	comments  *CommentStore
	activity  *ActivityStore
	phases    *PhaseStore
	clubs     *ClubStore
	athletes  *AthleteStore
	machine   *LifecycleMachine

	notifier *notify.Notifier
	metrics  *metrics.WorkflowMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a Service over db. notifier and m may be nil.
func NewService(db *gorm.DB, notifier *notify.Notifier, m *metrics.WorkflowMetrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	chains := NewChainStore(db)
	members := NewMemberStore(db)
	return &Service{
		db:        db,
		projects:  NewProjectStore(db),
		users:     NewUserStore(db),
		members:   members,
		chains:    chains,
		approvals: NewApprovalStore(db, chains, members),
		assets:    NewAssetStore(db),
		comments:  NewCommentStore(db),
		activity:  NewActivityStore(db),
		phases:    NewPhaseStore(db),
		clubs:     NewClubStore(db),
		athletes:  NewAthleteStore(db),
		machine:   NewLifecycleMachine(),
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Members exposes the membership store; it implements authz.RoleLookup.
func (s *Service) Members() *MemberStore { return s.members }

// Chains exposes the approval chain registry.
func (s *Service) Chains() *ChainStore { return s.chains }

// Users exposes the user profile store.
func (s *Service) Users() *UserStore { return s.users }

// Activity exposes the activity log.
func (s *Service) Activity() *ActivityStore { return s.activity }

// Submit sends an asset for review. In one transaction the asset moves to
// in_review at its next version, earlier pending records are dropped and
// CreateRecords inserts one pending record per approver. On ErrNotConfigured
// or ErrNoApproversFound the transaction is rolled back and the asset stays
// as it was.
func (s *Service) Submit(ctx context.Context, projectID, actorID, assetID string) (*AssetRecord, []ApprovalRecord, error) {
	asset, err := s.assets.Get(ctx, projectID, assetID)
	if err != nil {
		return nil, nil, err
	}
	if asset == nil {
		return nil, nil, notFound("asset")
	}

	reviewed, err := s.approvals.HasRecordsAtVersion(ctx, asset.ID, asset.Version)
	if err != nil {
		return nil, nil, err
	}
	version, err := NextVersion(asset.Status, asset.Version, reviewed)
	if err != nil {
		s.metrics.IncSubmission("not_allowed")
		return nil, nil, err
	}

	var records []ApprovalRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.assets.WithTx(tx).SetSubmitted(ctx, asset.ID, version); err != nil {
			return err
		}
		txApprovals := s.approvals.WithTx(tx)
		if _, err := txApprovals.DeletePending(ctx, asset.ID); err != nil {
			return err
		}
		records, err = txApprovals.CreateRecords(ctx, asset.ID, projectID, asset.ContentCategory, version)
		return err
	})
	if err != nil {
		s.metrics.IncSubmission(submissionOutcome(err))
		return nil, nil, err
	}
	approvers := make([]string, len(records))
	for i, rec := range records {
		approvers[i] = rec.UserID
	}
	s.metrics.IncSubmission("ok")
	s.metrics.IncStatusChange(string(AssetInReview))

	updated, err := s.Recalculate(ctx, asset.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logActivity(ctx, projectID, actorID, asset.ID, SubmissionDetails{AssetTitle: updated.Title, Version: version})
	s.notifyApprovers(ctx, updated, approvers)

	s.logger.Info("asset submitted for review",
		zap.String("assetId", asset.ID),
		zap.Int("version", version),
		zap.Int("approvers", len(approvers)))
	return updated, records, nil
}

// Decide records actorID's decision on an approval record and recomputes
// the asset's status.
func (s *Service) Decide(ctx context.Context, projectID, actorID, approvalID string, decision ApprovalStatus, comment string) (*ApprovalRecord, *AssetRecord, error) {
	rec, err := s.approvals.Get(ctx, approvalID)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, notFound("approval")
	}
	asset, err := s.assets.Get(ctx, projectID, rec.AssetID)
	if err != nil {
		return nil, nil, err
	}
	if asset == nil {
		return nil, nil, notFound("approval")
	}

	decided, err := s.approvals.RecordDecision(ctx, approvalID, actorID, decision, comment)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.IncDecision(string(decision))

	updated, err := s.Recalculate(ctx, asset.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logActivity(ctx, projectID, actorID, asset.ID, DecisionDetails{
		Decision:   decision,
		AssetTitle: updated.Title,
		Comment:    comment,
	})
	s.notifyCreator(ctx, updated, actorID, decision, comment)
	return decided, updated, nil
}

// Recalculate applies ComputeStatus to the asset's active records and
// persists the result. Draft, published and archived assets are never
// changed, and an empty or undecided record set leaves the status alone.
func (s *Service) Recalculate(ctx context.Context, assetID string) (*AssetRecord, error) {
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, notFound("asset")
	}
	if !recomputable(asset.Status) {
		return asset, nil
	}

	active, err := s.approvals.ListActive(ctx, asset.ID, asset.Version)
	if err != nil {
		return nil, err
	}
	next, changed := ComputeStatus(active)
	if !changed || next == asset.Status {
		return asset, nil
	}
	if err := s.assets.SetStatus(ctx, asset.ID, next, s.now().UTC()); err != nil {
		return nil, err
	}
	s.metrics.IncStatusChange(string(next))
	s.logger.Debug("asset status recomputed",
		zap.String("assetId", asset.ID),
		zap.String("from", string(asset.Status)),
		zap.String("to", string(next)))
	asset.Status = next
	return asset, nil
}

// Transition performs an explicit admin status change validated by the
// lifecycle machine. Publishing stamps the publish date. A transition to
// the current status returns the asset unchanged.
func (s *Service) Transition(ctx context.Context, projectID, actorID, assetID string, to AssetStatus) (*AssetRecord, error) {
	if !ValidAssetStatuses[to] {
		return nil, invalidInput("unknown status %q", to)
	}
	asset, err := s.assets.Get(ctx, projectID, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, notFound("asset")
	}
	if asset.Status == to {
		return asset, nil
	}
	if err := s.machine.ValidateTransition(asset.Status, to); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.assets.SetStatus(ctx, asset.ID, to, now); err != nil {
		return nil, err
	}
	s.metrics.IncStatusChange(string(to))
	asset.Status = to
	if to == AssetPublished {
		asset.PublishDate = &now
	}

	s.logActivity(ctx, projectID, actorID, asset.ID, StatusChangeDetails{AssetTitle: asset.Title, NewStatus: to})
	return asset, nil
}

func (s *Service) logActivity(ctx context.Context, projectID, userID, assetID string, details ActivityDetails) {
	if err := s.activity.Append(ctx, projectID, userID, assetID, details); err != nil {
		s.metrics.IncActivityFailure()
		s.logger.Warn("failed to write activity entry",
			zap.String("action", details.Action()),
			zap.String("projectId", projectID),
			zap.Error(err))
	}
}

func (s *Service) notifyApprovers(ctx context.Context, asset *AssetRecord, approverIDs []string) {
	if s.notifier == nil {
		return
	}
	users, err := s.users.GetMany(ctx, approverIDs)
	if err != nil {
		s.logger.Warn("review notifications skipped", zap.String("assetId", asset.ID), zap.Error(err))
		return
	}
	recipients := make([]notify.Recipient, 0, len(approverIDs))
	for _, id := range approverIDs {
		if u, ok := users[id]; ok {
			recipients = append(recipients, notify.Recipient{Email: u.Email, Name: u.FullName})
		}
	}
	// Failures are already logged and counted by the notifier.
	_ = s.notifier.ReviewRequested(ctx, notifyAsset(asset), recipients)
}

func (s *Service) notifyCreator(ctx context.Context, asset *AssetRecord, approverID string, decision ApprovalStatus, comment string) {
	if s.notifier == nil {
		return
	}
	users, err := s.users.GetMany(ctx, []string{asset.CreatedBy, approverID})
	if err != nil {
		s.logger.Warn("decision notification skipped", zap.String("assetId", asset.ID), zap.Error(err))
		return
	}
	creator, ok := users[asset.CreatedBy]
	if !ok {
		return
	}
	approverName := approverID
	if approver, ok := users[approverID]; ok {
		approverName = approver.DisplayName()
	}
	_ = s.notifier.DecisionMade(ctx, notifyAsset(asset),
		notify.Recipient{Email: creator.Email, Name: creator.FullName},
		approverName, decisionPhrase(decision), comment)
}

func notifyAsset(a *AssetRecord) notify.Asset {
	return notify.Asset{ID: a.ID, ProjectID: a.ProjectID, Title: a.Title, ApprovalDue: a.ApprovalDue}
}

func decisionPhrase(d ApprovalStatus) string {
	switch d {
	case ApprovalChangesRequested:
		return "requested changes on"
	default:
		return string(d)
	}
}

func submissionOutcome(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrNoApproversFound):
		return "no_approvers"
	default:
		return "error"
	}
}
