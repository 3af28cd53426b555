package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/partnershiphub/hub/pkg/authz"
	"github.com/partnershiphub/hub/pkg/notify"
)

// testingT is satisfied by *testing.T and by GinkgoT().
type testingT interface {
	require.TestingT
	Helper()
}

// newTestDB creates an in-memory SQLite DB with workflow tables migrated.
func newTestDB(t testingT) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db))
	return db
}

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, m := range s.sent {
		out[i] = m.To
	}
	return out
}

// fixture is a project with a service, members and helpers to build state.
type fixture struct {
	t         testingT
	ctx       context.Context
	db        *gorm.DB
	svc       *Service
	sender    *recordingSender
	projectID string
	admin     string
}

func newFixture(t testingT) *fixture {
	t.Helper()
	db := newTestDB(t)
	sender := &recordingSender{}
	svc := NewService(db, notify.NewNotifier(sender, "https://hub.test", nil, nil), nil, nil)
	f := &fixture{t: t, ctx: context.Background(), db: db, svc: svc, sender: sender}

	f.admin = f.user("admin@example.com", "Ada Admin")
	project, err := svc.CreateProject(f.ctx, f.admin, &ProjectRecord{Name: "Season Launch"})
	require.NoError(t, err)
	f.projectID = project.ID
	return f
}

// user creates a profile and returns its ID.
func (f *fixture) user(email, name string) string {
	f.t.Helper()
	u := &UserRecord{ID: uuid.New().String(), Email: email, FullName: name}
	require.NoError(f.t, f.db.Create(u).Error)
	return u.ID
}

// member creates a user holding role in the fixture project.
func (f *fixture) member(email string, role authz.Role) string {
	f.t.Helper()
	id := f.user(email, "")
	_, err := f.svc.members.Add(f.ctx, f.projectID, id, role)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) chain(category ContentCategory, roles ...string) {
	f.t.Helper()
	_, err := f.svc.PutChain(f.ctx, f.projectID, category, roles, ChainParallel)
	require.NoError(f.t, err)
}

func (f *fixture) draft(title string, category ContentCategory) *AssetRecord {
	f.t.Helper()
	asset, err := f.svc.CreateAsset(f.ctx, f.projectID, f.adminActor(), AssetInput{
		Title:           title,
		ContentCategory: category,
	})
	require.NoError(f.t, err)
	return asset
}

func (f *fixture) adminActor() Actor {
	return Actor{UserID: f.admin, Role: authz.RoleAdmin}
}

func (f *fixture) asset(id string) *AssetRecord {
	f.t.Helper()
	a, err := f.svc.assets.Get(f.ctx, f.projectID, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, a)
	return a
}

// recordFor returns the active record owned by userID.
func recordFor(t *testing.T, records []ApprovalRecord, userID string) ApprovalRecord {
	t.Helper()
	for _, r := range records {
		if r.UserID == userID {
			return r
		}
	}
	t.Fatalf("no approval record for user %s", userID)
	return ApprovalRecord{}
}
