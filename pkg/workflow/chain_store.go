package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/partnershiphub/hub/pkg/authz"
)

// ChainStore reads and maintains approval chain configuration.
type ChainStore struct {
	db *gorm.DB
}

// NewChainStore creates a new ChainStore.
func NewChainStore(db *gorm.DB) *ChainStore {
	return &ChainStore{db: db}
}

// WithTx returns a ChainStore bound to the given transaction.
func (s *ChainStore) WithTx(tx *gorm.DB) *ChainStore {
	return &ChainStore{db: tx}
}

// Resolve returns the chain configured for a project and content category.
// Returns ErrNotConfigured when no chain exists for the pair.
func (s *ChainStore) Resolve(ctx context.Context, projectID string, category ContentCategory) (*ApprovalChainRecord, error) {
	var chain ApprovalChainRecord
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND content_category = ?", projectID, category).
		First(&chain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotConfigured, category)
		}
		return nil, persistenceError("resolve approval chain", err)
	}
	return &chain, nil
}

// Get returns a chain by ID within a project. Returns nil, nil if absent.
func (s *ChainStore) Get(ctx context.Context, projectID, chainID string) (*ApprovalChainRecord, error) {
	var chain ApprovalChainRecord
	err := s.db.WithContext(ctx).Where("id = ? AND project_id = ?", chainID, projectID).First(&chain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceError("get approval chain", err)
	}
	return &chain, nil
}

// List returns every chain in a project ordered by category.
func (s *ChainStore) List(ctx context.Context, projectID string) ([]ApprovalChainRecord, error) {
	var chains []ApprovalChainRecord
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("content_category ASC").Find(&chains).Error; err != nil {
		return nil, persistenceError("list approval chains", err)
	}
	return chains, nil
}

// Upsert creates or replaces the chain for the record's (project, category).
// Required roles are validated and de-duplicated before writing.
func (s *ChainStore) Upsert(ctx context.Context, chain *ApprovalChainRecord) (*ApprovalChainRecord, error) {
	if !ValidCategories[chain.ContentCategory] {
		return nil, invalidInput("unknown content category %q", chain.ContentCategory)
	}
	if chain.ChainType == "" {
		chain.ChainType = ChainParallel
	}
	if !chain.ChainType.Valid() {
		return nil, invalidInput("chain type must be parallel or sequential")
	}
	roles, err := normalizeRoles(chain.RequiredRoles)
	if err != nil {
		return nil, err
	}
	chain.RequiredRoles = roles
	if chain.ID == "" {
		chain.ID = uuid.New().String()
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "content_category"}},
		DoUpdates: clause.AssignmentColumns([]string{"required_roles", "chain_type", "updated_at"}),
	}).Create(chain).Error
	if err != nil {
		return nil, persistenceError("upsert approval chain", err)
	}
	return s.Resolve(ctx, chain.ProjectID, chain.ContentCategory)
}

// SetChainType updates the chain type of an existing chain.
func (s *ChainStore) SetChainType(ctx context.Context, projectID, chainID string, chainType ChainType) (*ApprovalChainRecord, error) {
	if !chainType.Valid() {
		return nil, invalidInput("chain type must be parallel or sequential")
	}
	result := s.db.WithContext(ctx).Model(&ApprovalChainRecord{}).
		Where("id = ? AND project_id = ?", chainID, projectID).
		Update("chain_type", chainType)
	if result.Error != nil {
		return nil, persistenceError("update chain type", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFound("approval chain")
	}
	return s.Get(ctx, projectID, chainID)
}

// normalizeRoles validates role names and returns them de-duplicated and sorted.
func normalizeRoles(roles []string) (JSONStringSlice, error) {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, r := range roles {
		if !authz.Role(r).Valid() {
			return nil, invalidInput("unknown role %q", r)
		}
		set.Add(r)
	}
	if set.Cardinality() == 0 {
		return nil, invalidInput("an approval chain requires at least one role")
	}
	out := set.ToSlice()
	sort.Strings(out)
	return out, nil
}

// ChainSeedFile is the top-level structure of the chain seed YAML file.
type ChainSeedFile struct {
	Chains []ChainSeed `yaml:"chains"`
}

// ChainSeed is one chain definition in the seed file.
type ChainSeed struct {
	ProjectID     string          `yaml:"projectId"`
	Category      ContentCategory `yaml:"category"`
	RequiredRoles []string        `yaml:"requiredRoles"`
	ChainType     ChainType       `yaml:"chainType"`
}

// LoadChainSeeds loads chain definitions from a YAML file.
// Returns no seeds if the file does not exist.
func LoadChainSeeds(path string) ([]ChainSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read chain seeds: %w", err)
	}

	var f ChainSeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse chain seeds: %w", err)
	}
	return f.Chains, nil
}

// Seed upserts every seed chain.
func (s *ChainStore) Seed(ctx context.Context, seeds []ChainSeed) error {
	for _, seed := range seeds {
		if _, err := uuid.Parse(seed.ProjectID); err != nil {
			return invalidInput("seed chain for %q: project id must be a UUID", seed.Category)
		}
		_, err := s.Upsert(ctx, &ApprovalChainRecord{
			ProjectID:       seed.ProjectID,
			ContentCategory: seed.Category,
			RequiredRoles:   seed.RequiredRoles,
			ChainType:       seed.ChainType,
		})
		if err != nil {
			return fmt.Errorf("seed chain %s/%s: %w", seed.ProjectID, seed.Category, err)
		}
	}
	return nil
}
