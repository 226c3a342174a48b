//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// IntegrationTestSuite runs the repositories against real Postgres and Redis
type IntegrationTestSuite struct {
	suite.Suite
	db          *gorm.DB
	redis       *redis.Client
	submissions *SubmissionRepository
	schemas     *models.SchemaRegistry
	tenantID    string
}

// SetupSuite runs once before all tests
func (s *IntegrationTestSuite) SetupSuite() {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=product_drafts_test port=5432 sslmode=disable"
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		s.T().Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.DraftSubmission{}); err != nil {
		s.T().Fatalf("Failed to run migrations: %v", err)
	}
	s.db = db
	s.submissions = NewSubmissionRepository(db)

	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/15"
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		s.T().Fatalf("Failed to parse Redis URL: %v", err)
	}
	s.redis = redis.NewClient(opts)
	if err := s.redis.Ping(context.Background()).Err(); err != nil {
		s.T().Fatalf("Failed to connect to Redis: %v", err)
	}

	s.schemas, err = models.DefaultSchemaRegistry(5)
	if err != nil {
		s.T().Fatalf("Failed to build schemas: %v", err)
	}
}

// SetupTest runs before each test
func (s *IntegrationTestSuite) SetupTest() {
	s.tenantID = "test-tenant-" + uuid.New().String()[:8]
}

// TearDownTest runs after each test
func (s *IntegrationTestSuite) TearDownTest() {
	s.db.Exec("DELETE FROM draft_submissions WHERE tenant_id = ?", s.tenantID)
}

// TearDownSuite runs once after all tests
func (s *IntegrationTestSuite) TearDownSuite() {
	s.db.Exec("DELETE FROM draft_submissions WHERE tenant_id LIKE 'test-tenant-%'")
	_ = s.redis.Close()
}

func (s *IntegrationTestSuite) TestSubmissionHistory() {
	ctx := context.Background()
	draftID := uuid.New()
	productID := "665f1c2e"
	errMsg := "Name already exists"

	s.Require().NoError(s.submissions.Create(ctx, &models.DraftSubmission{
		TenantID: s.tenantID, DraftID: draftID, ProductType: models.ProductTypeBracelet,
		Outcome: models.SubmissionFailed, ErrorMessage: &errMsg, CreatedAt: time.Now().Add(-time.Minute),
	}))
	s.Require().NoError(s.submissions.Create(ctx, &models.DraftSubmission{
		TenantID: s.tenantID, DraftID: draftID, ProductType: models.ProductTypeBracelet,
		Outcome: models.SubmissionSucceeded, ProductID: &productID, DraftMode: true,
	}))

	all, total, err := s.submissions.ListByTenant(ctx, s.tenantID, "", "", 10, 0)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Equal(models.SubmissionSucceeded, all[0].Outcome)

	failed, total, err := s.submissions.ListByTenant(ctx, s.tenantID, models.ProductTypeBracelet, models.SubmissionFailed, 10, 0)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(errMsg, *failed[0].ErrorMessage)

	byDraft, err := s.submissions.ListByDraft(ctx, s.tenantID, draftID)
	s.Require().NoError(err)
	s.Len(byDraft, 2)
	s.Equal(models.SubmissionFailed, byDraft[0].Outcome)
}

func (s *IntegrationTestSuite) TestDraftAutosaveRestore() {
	ctx := context.Background()
	logger := logrus.New()

	repo := NewDraftRepository(s.schemas, s.redis, time.Minute, logger)
	session, err := repo.Create(ctx, s.tenantID, "user-1", models.ProductTypeBracelet)
	s.Require().NoError(err)

	store := session.Store
	s.Require().NoError(store.SetScalar("name", "Pyrite"))
	s.Require().NoError(store.SetScalar("price", 1299.99))
	s.Require().NoError(store.AppendItem("sizes", models.SubRecord{"label": "Large", "price": 150, "stockCount": 2}))
	s.Require().NoError(store.AddFiles(draft.NewAttachment("p.png", "image/png", []byte("x"))))
	s.Require().NoError(repo.Save(ctx, session))

	// A second repository has an empty memory map, like a restarted process.
	restarted := NewDraftRepository(s.schemas, s.redis, time.Minute, logger)
	restored, err := restarted.Get(ctx, s.tenantID, "user-1", session.ID())
	s.Require().NoError(err)

	name, _ := restored.Store.Scalar("name")
	s.Equal("Pyrite", name)
	sizes, err := restored.Store.Collection("sizes")
	s.Require().NoError(err)
	s.Len(sizes, 2)
	s.Empty(restored.Store.Attachments())

	_, err = restarted.Get(ctx, s.tenantID, "user-2", session.ID())
	s.ErrorIs(err, ErrDraftNotFound)

	s.Require().NoError(restarted.Delete(ctx, s.tenantID, "user-1", session.ID()))
	_, err = NewDraftRepository(s.schemas, s.redis, time.Minute, logger).Get(ctx, s.tenantID, "user-1", session.ID())
	s.ErrorIs(err, ErrDraftNotFound)
}

func (s *IntegrationTestSuite) TestDraftAutosaveKeepsNewestVersion() {
	ctx := context.Background()
	logger := logrus.New()

	repo := NewDraftRepository(s.schemas, s.redis, time.Minute, logger)
	session, err := repo.Create(ctx, s.tenantID, "user-1", models.ProductTypeBracelet)
	s.Require().NoError(err)
	s.Require().NoError(session.Store.SetScalar("name", "Pyrite"))
	s.Require().NoError(repo.Save(ctx, session))

	// Another replica restores the draft and moves it two versions ahead.
	replica := NewDraftRepository(s.schemas, s.redis, time.Minute, logger)
	ahead, err := replica.Get(ctx, s.tenantID, "user-1", session.ID())
	s.Require().NoError(err)
	s.Require().NoError(ahead.Store.SetScalar("name", "Tiger Eye"))
	s.Require().NoError(ahead.Store.SetScalar("discount", 10))
	s.Require().NoError(replica.Save(ctx, ahead))

	// The first replica's older snapshot does not overwrite it.
	s.Require().NoError(session.Store.SetScalar("name", "Amethyst"))
	s.Require().NoError(repo.Save(ctx, session))

	restored, err := NewDraftRepository(s.schemas, s.redis, time.Minute, logger).Get(ctx, s.tenantID, "user-1", session.ID())
	s.Require().NoError(err)
	name, _ := restored.Store.Scalar("name")
	s.Equal("Tiger Eye", name)
	s.Equal(ahead.Store.Version(), restored.Store.Version())

	// A deleted draft is not brought back by a late save.
	s.Require().NoError(replica.Delete(ctx, s.tenantID, "user-1", session.ID()))
	s.Require().NoError(replica.Save(ctx, ahead))
	_, err = NewDraftRepository(s.schemas, s.redis, time.Minute, logger).Get(ctx, s.tenantID, "user-1", session.ID())
	s.ErrorIs(err, ErrDraftNotFound)
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
