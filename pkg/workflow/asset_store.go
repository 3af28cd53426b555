package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnershiphub/hub/pkg/filter"
)

// AssetStore provides CRUD operations for assets and their tags.
type AssetStore struct {
	db *gorm.DB
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(db *gorm.DB) *AssetStore {
	return &AssetStore{db: db}
}

// WithTx returns an AssetStore bound to the given transaction.
func (s *AssetStore) WithTx(tx *gorm.DB) *AssetStore {
	return &AssetStore{db: tx}
}

// assetFilterColumns are the fields accepted in filterQuery expressions.
var assetFilterColumns = filter.Columns{
	"title":           "assets.title",
	"status":          "assets.status",
	"contentCategory": "assets.content_category",
	"format":          "assets.format",
	"sourceStation":   "assets.source_station",
	"phaseId":         "assets.phase_id",
	"version":         "assets.version",
	"createdBy":       "assets.created_by",
	"approvalDue":     "assets.approval_due",
	"publishDate":     "assets.publish_date",
}

// AssetQuery selects assets within a project.
type AssetQuery struct {
	Statuses  []AssetStatus
	Category  ContentCategory
	PhaseID   string
	AthleteID string
	ClubID    string
	Search    string
	// FilterQuery is a filter expression over assetFilterColumns.
	FilterQuery string
	// VisibleTo restricts results to assets the user created or reviews.
	VisibleTo string
	PageSize  int
	PageToken string
}

// Create inserts an asset in draft at version 1 together with its tags.
func (s *AssetStore) Create(ctx context.Context, asset *AssetRecord, athleteIDs, clubIDs []string) error {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	asset.Status = AssetDraft
	asset.Version = 1
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(asset).Error; err != nil {
			return persistenceError("create asset", err)
		}
		return s.WithTx(tx).SetTags(ctx, asset.ID, athleteIDs, clubIDs)
	})
}

// Get retrieves an asset within a project. Returns nil, nil if absent.
func (s *AssetStore) Get(ctx context.Context, projectID, assetID string) (*AssetRecord, error) {
	var asset AssetRecord
	err := s.db.WithContext(ctx).Where("id = ? AND project_id = ?", assetID, projectID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get asset", err)
	}
	return &asset, nil
}

// GetByID retrieves an asset by ID alone. Returns nil, nil if absent.
func (s *AssetStore) GetByID(ctx context.Context, assetID string) (*AssetRecord, error) {
	var asset AssetRecord
	if err := s.db.WithContext(ctx).Where("id = ?", assetID).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get asset", err)
	}
	return &asset, nil
}

// Update applies a column map to the asset.
func (s *AssetStore) Update(ctx context.Context, assetID string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&AssetRecord{}).Where("id = ?", assetID).Updates(updates)
	if result.Error != nil {
		return persistenceError("update asset", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("asset")
	}
	return nil
}

// SetSubmitted moves the asset into review at the given version.
func (s *AssetStore) SetSubmitted(ctx context.Context, assetID string, version int) error {
	return s.Update(ctx, assetID, map[string]any{
		"status":  AssetInReview,
		"version": version,
	})
}

// SetStatus writes a new status. Publishing also stamps the publish date.
func (s *AssetStore) SetStatus(ctx context.Context, assetID string, status AssetStatus, at time.Time) error {
	updates := map[string]any{"status": status}
	if status == AssetPublished {
		updates["publish_date"] = at
	}
	return s.Update(ctx, assetID, updates)
}

// SetTags replaces the asset's athlete and club tags. A nil slice leaves
// that tag kind untouched; an empty slice clears it.
func (s *AssetStore) SetTags(ctx context.Context, assetID string, athleteIDs, clubIDs []string) error {
	tx := s.db.WithContext(ctx)
	if athleteIDs != nil {
		if err := tx.Where("asset_id = ?", assetID).Delete(&AssetAthleteRecord{}).Error; err != nil {
			return persistenceError("clear athlete tags", err)
		}
		if len(athleteIDs) > 0 {
			rows := make([]AssetAthleteRecord, 0, len(athleteIDs))
			for _, id := range uniqueStrings(athleteIDs) {
				rows = append(rows, AssetAthleteRecord{AssetID: assetID, AthleteID: id})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return persistenceError("tag athletes", err)
			}
		}
	}
	if clubIDs != nil {
		if err := tx.Where("asset_id = ?", assetID).Delete(&AssetClubRecord{}).Error; err != nil {
			return persistenceError("clear club tags", err)
		}
		if len(clubIDs) > 0 {
			rows := make([]AssetClubRecord, 0, len(clubIDs))
			for _, id := range uniqueStrings(clubIDs) {
				rows = append(rows, AssetClubRecord{AssetID: assetID, ClubID: id})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return persistenceError("tag clubs", err)
			}
		}
	}
	return nil
}

// Tags returns the athlete and club IDs the asset is tagged with.
func (s *AssetStore) Tags(ctx context.Context, assetID string) (athleteIDs, clubIDs []string, err error) {
	if err := s.db.WithContext(ctx).Model(&AssetAthleteRecord{}).Where("asset_id = ?", assetID).
		Order("athlete_id").Pluck("athlete_id", &athleteIDs).Error; err != nil {
		return nil, nil, persistenceError("list athlete tags", err)
	}
	if err := s.db.WithContext(ctx).Model(&AssetClubRecord{}).Where("asset_id = ?", assetID).
		Order("club_id").Pluck("club_id", &clubIDs).Error; err != nil {
		return nil, nil, persistenceError("list club tags", err)
	}
	return athleteIDs, clubIDs, nil
}

// Delete removes an asset with its tags, approvals and comments.
func (s *AssetStore) Delete(ctx context.Context, projectID, assetID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND project_id = ?", assetID, projectID).Delete(&AssetRecord{})
		if result.Error != nil {
			return persistenceError("delete asset", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("asset")
		}
		for _, model := range []any{&AssetAthleteRecord{}, &AssetClubRecord{}, &ApprovalRecord{}, &CommentRecord{}} {
			if err := tx.Where("asset_id = ?", assetID).Delete(model).Error; err != nil {
				return persistenceError("delete asset children", err)
			}
		}
		return nil
	})
}

// List returns a page of assets, newest first, with the total match count.
// The page token is opaque and encodes the last asset of the previous page.
func (s *AssetStore) List(ctx context.Context, projectID string, q AssetQuery) ([]AssetRecord, string, int, error) {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	base, err := s.scope(ctx, projectID, q)
	if err != nil {
		return nil, "", 0, err
	}

	var totalSize int64
	if err := base.Session(&gorm.Session{}).Model(&AssetRecord{}).Count(&totalSize).Error; err != nil {
		return nil, "", 0, persistenceError("count assets", err)
	}

	cursor, err := decodePageToken(q.PageToken)
	if err != nil {
		return nil, "", 0, err
	}
	query := paginate(base.Session(&gorm.Session{}), "assets", cursor).Limit(pageSize + 1)

	var records []AssetRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, persistenceError("list assets", err)
	}

	var nextToken string
	if len(records) > pageSize {
		last := records[pageSize-1]
		nextToken = encodePageToken(last.CreatedAt, last.ID)
		records = records[:pageSize]
	}
	return records, nextToken, int(totalSize), nil
}

func (s *AssetStore) scope(ctx context.Context, projectID string, q AssetQuery) (*gorm.DB, error) {
	query := s.db.WithContext(ctx).Model(&AssetRecord{}).Where("assets.project_id = ?", projectID)
	if len(q.Statuses) > 0 {
		query = query.Where("assets.status IN ?", q.Statuses)
	}
	if q.Category != "" {
		query = query.Where("assets.content_category = ?", q.Category)
	}
	if q.PhaseID != "" {
		query = query.Where("assets.phase_id = ?", q.PhaseID)
	}
	if q.AthleteID != "" {
		query = query.Where("assets.id IN (?)",
			s.db.Model(&AssetAthleteRecord{}).Select("asset_id").Where("athlete_id = ?", q.AthleteID))
	}
	if q.ClubID != "" {
		query = query.Where("assets.id IN (?)",
			s.db.Model(&AssetClubRecord{}).Select("asset_id").Where("club_id = ?", q.ClubID))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		query = query.Where("LOWER(assets.title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if q.FilterQuery != "" {
		expr, err := filter.Parse(q.FilterQuery)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		clause, args, err := expr.SQL(assetFilterColumns)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		query = query.Where(clause, args...)
	}
	if q.VisibleTo != "" {
		query = query.Where("assets.created_by = ? OR assets.id IN (?)", q.VisibleTo,
			s.db.Model(&ApprovalRecord{}).Select("asset_id").Where("user_id = ?", q.VisibleTo))
	}
	return query, nil
}

// StatusCounts returns the number of assets per status in the project.
func (s *AssetStore) StatusCounts(ctx context.Context, projectID string) (map[AssetStatus]int, error) {
	var rows []struct {
		Status AssetStatus
		Count  int
	}
	err := s.db.WithContext(ctx).Model(&AssetRecord{}).
		Select("status, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status").Scan(&rows).Error
	if err != nil {
		return nil, persistenceError("count assets by status", err)
	}
	counts := make(map[AssetStatus]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountOverdue returns the number of in-review assets past their due date.
func (s *AssetStore) CountOverdue(ctx context.Context, projectID string, now time.Time) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&AssetRecord{}).
		Where("project_id = ? AND status = ? AND approval_due IS NOT NULL AND approval_due < ?",
			projectID, AssetInReview, now).Count(&n).Error
	if err != nil {
		return 0, persistenceError("count overdue assets", err)
	}
	return int(n), nil
}

// CountPublishedSince returns the number of assets published at or after since.
func (s *AssetStore) CountPublishedSince(ctx context.Context, projectID string, since time.Time) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&AssetRecord{}).
		Where("project_id = ? AND status = ? AND publish_date >= ?", projectID, AssetPublished, since).
		Count(&n).Error
	if err != nil {
		return 0, persistenceError("count published assets", err)
	}
	return int(n), nil
}

// PhaseStatusCounts returns asset counts per status for each phase.
func (s *AssetStore) PhaseStatusCounts(ctx context.Context, projectID string) (map[string]map[AssetStatus]int, error) {
	var rows []struct {
		PhaseID string
		Status  AssetStatus
		Count   int
	}
	err := s.db.WithContext(ctx).Model(&AssetRecord{}).
		Select("phase_id, status, COUNT(*) AS count").
		Where("project_id = ? AND phase_id IS NOT NULL", projectID).
		Group("phase_id, status").Scan(&rows).Error
	if err != nil {
		return nil, persistenceError("count assets by phase", err)
	}
	out := make(map[string]map[AssetStatus]int)
	for _, r := range rows {
		if out[r.PhaseID] == nil {
			out[r.PhaseID] = make(map[AssetStatus]int)
		}
		out[r.PhaseID][r.Status] = r.Count
	}
	return out, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
