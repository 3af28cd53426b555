package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/partnershiphub/hub/pkg/authz"
)

// AssetInput describes a new asset.
type AssetInput struct {
	Title           string
	Description     string
	ContentCategory ContentCategory
	Platforms       []string
	Format          AssetFormat
	SourceStation   SourceStation
	ExternalURL     string
	ThumbnailURL    string
	ApprovalDue     *time.Time
	PhaseID         string
	AthleteIDs      []string
	ClubIDs         []string
}

// AssetPatch is a partial asset update. Nil fields are left untouched; a nil
// tag slice leaves those tags as they are and an empty one clears them.
type AssetPatch struct {
	Title            *string
	Description      *string
	ContentCategory  *ContentCategory
	Platforms        []string
	Format           *AssetFormat
	SourceStation    *SourceStation
	ExternalURL      *string
	ThumbnailURL     *string
	ApprovalDue      *time.Time
	ClearApprovalDue bool
	PhaseID          *string
	AthleteIDs       []string
	ClubIDs          []string
}

// AssetDetail is an asset with its tags, review history and comment thread.
type AssetDetail struct {
	Asset      AssetRecord
	AthleteIDs []string
	ClubIDs    []string
	Approvals  []ApprovalRecord
	Comments   []CommentNode
}

// CreateAsset adds a draft asset at version 1 and logs "uploaded".
func (s *Service) CreateAsset(ctx context.Context, projectID string, actor Actor, in AssetInput) (*AssetRecord, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidInput("title is required")
	}
	if !ValidCategories[in.ContentCategory] {
		return nil, invalidInput("unknown content category %q", in.ContentCategory)
	}
	if in.Format != "" && !ValidFormats[in.Format] {
		return nil, invalidInput("unknown format %q", in.Format)
	}
	if in.SourceStation != "" && !ValidStations[in.SourceStation] {
		return nil, invalidInput("unknown source station %q", in.SourceStation)
	}
	phaseID, err := s.checkPhase(ctx, projectID, in.PhaseID)
	if err != nil {
		return nil, err
	}

	asset := &AssetRecord{
		ProjectID:       projectID,
		PhaseID:         phaseID,
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		ContentCategory: in.ContentCategory,
		Platforms:       JSONStringSlice(uniqueStrings(in.Platforms)),
		Format:          in.Format,
		SourceStation:   in.SourceStation,
		ExternalURL:     strings.TrimSpace(in.ExternalURL),
		ThumbnailURL:    strings.TrimSpace(in.ThumbnailURL),
		ApprovalDue:     in.ApprovalDue,
		CreatedBy:       actor.UserID,
	}
	if err := s.assets.Create(ctx, asset, in.AthleteIDs, in.ClubIDs); err != nil {
		return nil, err
	}
	s.logActivity(ctx, projectID, actor.UserID, asset.ID, UploadDetails{AssetTitle: asset.Title})
	return asset, nil
}

// UpdateAsset applies a partial update. Only the creator or a project admin
// may edit an asset.
func (s *Service) UpdateAsset(ctx context.Context, projectID string, actor Actor, assetID string, p AssetPatch) (*AssetRecord, error) {
	asset, err := s.assets.Get(ctx, projectID, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, notFound("asset")
	}
	if asset.CreatedBy != actor.UserID && actor.Role != authz.RoleAdmin {
		return nil, ErrNotAuthorized
	}

	updates := map[string]any{}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, invalidInput("title cannot be empty")
		}
		updates["title"] = title
	}
	if p.Description != nil {
		updates["description"] = strings.TrimSpace(*p.Description)
	}
	if p.ContentCategory != nil {
		if !ValidCategories[*p.ContentCategory] {
			return nil, invalidInput("unknown content category %q", *p.ContentCategory)
		}
		updates["content_category"] = *p.ContentCategory
	}
	if p.Platforms != nil {
		updates["platforms"] = JSONStringSlice(uniqueStrings(p.Platforms))
	}
	if p.Format != nil {
		if *p.Format != "" && !ValidFormats[*p.Format] {
			return nil, invalidInput("unknown format %q", *p.Format)
		}
		updates["format"] = *p.Format
	}
	if p.SourceStation != nil {
		if *p.SourceStation != "" && !ValidStations[*p.SourceStation] {
			return nil, invalidInput("unknown source station %q", *p.SourceStation)
		}
		updates["source_station"] = *p.SourceStation
	}
	if p.ExternalURL != nil {
		updates["external_url"] = strings.TrimSpace(*p.ExternalURL)
	}
	if p.ThumbnailURL != nil {
		updates["thumbnail_url"] = strings.TrimSpace(*p.ThumbnailURL)
	}
	switch {
	case p.ClearApprovalDue:
		updates["approval_due"] = nil
	case p.ApprovalDue != nil:
		updates["approval_due"] = *p.ApprovalDue
	}
	if p.PhaseID != nil {
		phaseID, err := s.checkPhase(ctx, projectID, *p.PhaseID)
		if err != nil {
			return nil, err
		}
		updates["phase_id"] = phaseID
	}

	if err := s.assets.Update(ctx, asset.ID, updates); err != nil {
		return nil, err
	}
	if err := s.assets.SetTags(ctx, asset.ID, p.AthleteIDs, p.ClubIDs); err != nil {
		return nil, err
	}
	return s.assets.Get(ctx, projectID, asset.ID)
}

// DeleteAsset removes an asset and everything attached to it. Admin only.
func (s *Service) DeleteAsset(ctx context.Context, projectID string, actor Actor, assetID string) error {
	if actor.Role != authz.RoleAdmin {
		return ErrNotAuthorized
	}
	return s.assets.Delete(ctx, projectID, assetID)
}

// GetAsset returns an asset with its tags, approvals across all versions and
// comment thread. Roles that cannot view every asset only see assets they
// created or review.
func (s *Service) GetAsset(ctx context.Context, projectID string, actor Actor, assetID string) (*AssetDetail, error) {
	asset, err := s.assets.Get(ctx, projectID, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, notFound("asset")
	}
	approvals, err := s.approvals.ListForAsset(ctx, asset.ID)
	if err != nil {
		return nil, err
	}
	if !s.canSee(actor, asset, approvals) {
		return nil, notFound("asset")
	}
	athleteIDs, clubIDs, err := s.assets.Tags(ctx, asset.ID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListForAsset(ctx, asset.ID)
	if err != nil {
		return nil, err
	}
	return &AssetDetail{
		Asset:      *asset,
		AthleteIDs: athleteIDs,
		ClubIDs:    clubIDs,
		Approvals:  approvals,
		Comments:   BuildThread(comments),
	}, nil
}

// ListApprovals returns the asset's approval records across all versions.
func (s *Service) ListApprovals(ctx context.Context, projectID string, actor Actor, assetID string) ([]ApprovalRecord, error) {
	detail, err := s.GetAsset(ctx, projectID, actor, assetID)
	if err != nil {
		return nil, err
	}
	return detail.Approvals, nil
}

// ListAssets returns a page of the project's assets visible to actor.
func (s *Service) ListAssets(ctx context.Context, projectID string, actor Actor, q AssetQuery) ([]AssetRecord, string, int, error) {
	for _, st := range q.Statuses {
		if !ValidAssetStatuses[st] {
			return nil, "", 0, invalidInput("unknown status %q", st)
		}
	}
	if q.Category != "" && !ValidCategories[q.Category] {
		return nil, "", 0, invalidInput("unknown content category %q", q.Category)
	}
	q.VisibleTo = ""
	if !actor.Role.Can(authz.PermViewAllAssets) {
		q.VisibleTo = actor.UserID
	}
	return s.assets.List(ctx, projectID, q)
}

// Library lists approved, published and archived assets. A status filter
// narrows the library statuses and cannot widen them.
func (s *Service) Library(ctx context.Context, projectID string, actor Actor, q AssetQuery) ([]AssetRecord, string, int, error) {
	statuses := make([]AssetStatus, 0, len(LibraryStatuses))
	for _, ls := range LibraryStatuses {
		if len(q.Statuses) == 0 || containsStatus(q.Statuses, ls) {
			statuses = append(statuses, ls)
		}
	}
	if len(statuses) == 0 {
		return []AssetRecord{}, "", 0, nil
	}
	q.Statuses = statuses
	return s.ListAssets(ctx, projectID, actor, q)
}

// PendingApprovals returns the actor's pending review records in the project.
func (s *Service) PendingApprovals(ctx context.Context, projectID, userID string) ([]PendingApproval, error) {
	return s.approvals.ListPendingForUser(ctx, projectID, userID)
}

// AddComment posts a comment or a reply on an asset and logs "commented".
func (s *Service) AddComment(ctx context.Context, projectID string, actor Actor, assetID, body string, parentID *string) (*CommentRecord, error) {
	asset, err := s.assets.Get(ctx, projectID, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, notFound("asset")
	}
	approvals, err := s.approvals.ListForAsset(ctx, asset.ID)
	if err != nil {
		return nil, err
	}
	if !s.canSee(actor, asset, approvals) {
		return nil, notFound("asset")
	}
	comment, err := s.comments.Add(ctx, asset.ID, actor.UserID, body, parentID)
	if err != nil {
		return nil, err
	}
	s.logActivity(ctx, projectID, actor.UserID, asset.ID, CommentDetails{
		AssetTitle: asset.Title,
		CommentID:  comment.ID,
		Reply:      comment.ParentID != nil,
	})
	return comment, nil
}

// ListComments returns the asset's comment thread.
func (s *Service) ListComments(ctx context.Context, projectID string, actor Actor, assetID string) ([]CommentNode, error) {
	detail, err := s.GetAsset(ctx, projectID, actor, assetID)
	if err != nil {
		return nil, err
	}
	return detail.Comments, nil
}

// DeleteComment removes a comment and its replies. Only the author or a
// project admin may delete.
func (s *Service) DeleteComment(ctx context.Context, projectID string, actor Actor, commentID string) error {
	comment, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return notFound("comment")
	}
	asset, err := s.assets.Get(ctx, projectID, comment.AssetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return notFound("comment")
	}
	if comment.UserID != actor.UserID && actor.Role != authz.RoleAdmin {
		return ErrNotAuthorized
	}
	return s.comments.Delete(ctx, comment.ID)
}

func (s *Service) canSee(actor Actor, asset *AssetRecord, approvals []ApprovalRecord) bool {
	if actor.Role.Can(authz.PermViewAllAssets) || asset.CreatedBy == actor.UserID {
		return true
	}
	for _, a := range approvals {
		if a.UserID == actor.UserID {
			return true
		}
	}
	return false
}

func (s *Service) checkPhase(ctx context.Context, projectID, phaseID string) (*string, error) {
	phaseID = strings.TrimSpace(phaseID)
	if phaseID == "" {
		return nil, nil
	}
	phase, err := s.phases.Get(ctx, projectID, phaseID)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, notFound("phase")
	}
	return &phase.ID, nil
}

func containsStatus(list []AssetStatus, s AssetStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
