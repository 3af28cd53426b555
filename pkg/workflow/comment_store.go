package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentStore provides operations for asset comments.
type CommentStore struct {
	db *gorm.DB
}

// NewCommentStore creates a new CommentStore.
func NewCommentStore(db *gorm.DB) *CommentStore {
	return &CommentStore{db: db}
}

// Add creates a comment on an asset. A reply must target a top-level
// comment on the same asset; replies to replies are refused.
func (s *CommentStore) Add(ctx context.Context, assetID, userID, body string, parentID *string) (*CommentRecord, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, invalidInput("comment body is required")
	}
	if parentID != nil && *parentID != "" {
		parent, err := s.Get(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.AssetID != assetID {
			return nil, notFound("parent comment")
		}
		if parent.ParentID != nil {
			return nil, invalidInput("replies can only be made to top-level comments")
		}
	} else {
		parentID = nil
	}

	comment := &CommentRecord{
		ID:       uuid.New().String(),
		AssetID:  assetID,
		UserID:   userID,
		ParentID: parentID,
		Body:     body,
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, persistenceError("add comment", err)
	}
	return comment, nil
}

// Get returns a comment by ID. Returns nil, nil if absent.
func (s *CommentStore) Get(ctx context.Context, commentID string) (*CommentRecord, error) {
	var c CommentRecord
	if err := s.db.WithContext(ctx).Where("id = ?", commentID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get comment", err)
	}
	return &c, nil
}

// ListForAsset returns the asset's comments oldest first.
func (s *CommentStore) ListForAsset(ctx context.Context, assetID string) ([]CommentRecord, error) {
	var comments []CommentRecord
	if err := s.db.WithContext(ctx).Where("asset_id = ?", assetID).
		Order("created_at ASC, id ASC").Find(&comments).Error; err != nil {
		return nil, persistenceError("list comments", err)
	}
	return comments, nil
}

// Delete removes a comment and its replies.
func (s *CommentStore) Delete(ctx context.Context, commentID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", commentID).Delete(&CommentRecord{}).Error; err != nil {
			return persistenceError("delete replies", err)
		}
		result := tx.Where("id = ?", commentID).Delete(&CommentRecord{})
		if result.Error != nil {
			return persistenceError("delete comment", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("comment")
		}
		return nil
	})
}

// CommentNode is a top-level comment with its replies.
type CommentNode struct {
	CommentRecord
	Replies []CommentRecord
}

// BuildThread arranges comments into top-level entries with their replies,
// preserving input order. The first pass collects top-level comments, the
// second attaches each reply to its parent. Replies whose parent is missing
// are dropped.
func BuildThread(comments []CommentRecord) []CommentNode {
	thread := make([]CommentNode, 0, len(comments))
	index := make(map[string]int)
	for _, c := range comments {
		if c.ParentID == nil {
			index[c.ID] = len(thread)
			thread = append(thread, CommentNode{CommentRecord: c})
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		if i, ok := index[*c.ParentID]; ok {
			thread[i].Replies = append(thread[i].Replies, c)
		}
	}
	return thread
}
