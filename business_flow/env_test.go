package businessflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/services"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/amirphl/Kuruma-no-Ichiba/config"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	testingutil "github.com/amirphl/Kuruma-no-Ichiba/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// env wires every flow against one in-memory database with one actor per role
type env struct {
	db *testingutil.TestDB
	fx *testingutil.TestFixtures

	cars     repository.CarRepository
	inqs     repository.InquiryRepository
	audits   repository.AuditLogRepository
	users    repository.StaffUserRepository
	catalogs repository.FilterCatalogRepository

	sent   *services.RecordingChannel
	tokens services.TokenService

	catalog   businessflow.CatalogFlow
	listings  businessflow.ListingFlow
	inquiries businessflow.InquiryFlow
	search    businessflow.SearchFlow
	reports   businessflow.ReportFlow
	auth      businessflow.StaffAuthFlow

	admin, manager, editor, agent, agent2, customer businessflow.Actor
}

var meta = businessflow.NewClientMetadata("127.0.0.1", "flow-test")

func withEnv(t *testing.T, fn func(e *env)) {
	t.Helper()
	err := testingutil.TestWithDB(func(db *testingutil.TestDB) error {
		fn(newEnv(t, db))
		return nil
	})
	require.NoError(t, err)
}

func newEnv(t *testing.T, db *testingutil.TestDB) *env {
	t.Helper()
	e := &env{
		db:       db,
		fx:       testingutil.NewTestFixtures(db),
		cars:     repository.NewCarRepository(db.DB),
		inqs:     repository.NewInquiryRepository(db.DB),
		audits:   repository.NewAuditLogRepository(db.DB),
		users:    repository.NewStaffUserRepository(db.DB),
		catalogs: repository.NewFilterCatalogRepository(db.DB),
		sent:     &services.RecordingChannel{},
	}

	tokens, err := services.NewTokenService(time.Hour, 24*time.Hour, "test-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)
	e.tokens = tokens

	for role, dst := range map[models.Role]*businessflow.Actor{
		models.RoleAdmin:         &e.admin,
		models.RoleManager:       &e.manager,
		models.RoleContentEditor: &e.editor,
		models.RoleSalesAgent:    &e.agent,
		models.RoleCustomer:      &e.customer,
	} {
		u, err := e.fx.CreateUser(role)
		require.NoError(t, err)
		*dst = actorOf(u)
	}
	u, err := e.fx.CreateUser(models.RoleSalesAgent)
	require.NoError(t, err)
	e.agent2 = actorOf(u)

	_, err = e.fx.SeedCatalog(testingutil.DefaultCatalog())
	require.NoError(t, err)

	logger := zap.NewNop()
	notifier := services.NewNotificationService(e.sent)

	e.catalog = businessflow.NewCatalogFlow(e.catalogs, e.audits, nil, config.CacheConfig{}, logger)
	e.listings = businessflow.NewListingFlow(e.cars, e.inqs, e.catalog, e.audits, notifier, services.NewTemplateSummarizer(), config.CatalogConfig{}, logger)
	e.inquiries = businessflow.NewInquiryFlow(e.inqs, e.cars, businessflow.NewActorResolver(e.users), e.audits, notifier, logger)
	e.search = businessflow.NewSearchFlow(e.cars, config.SearchConfig{}, logger)
	e.reports = businessflow.NewReportFlow(e.cars, e.inqs, e.audits, logger)
	e.auth = businessflow.NewStaffAuthFlow(e.users, tokens, e.audits, logger)
	return e
}

func actorOf(u *models.StaffUser) businessflow.Actor {
	return businessflow.Actor{ID: u.ID, Role: u.Role}
}

func ctx() context.Context {
	return testingutil.CreateTestContext()
}

// validInput is a Tata Nexon 2022 that passes every listing rule against the default catalog
func validInput() dto.ListingInput {
	return dto.ListingInput{
		Brand:        "Tata",
		Model:        "Nexon",
		Year:         2022,
		Price:        900000,
		KmRun:        15000,
		Fuel:         "Petrol",
		Transmission: "Manual",
		Ownership:    1,
		Color:        "Blue",
		EngineCC:     1199,
		Images:       []string{"https://x/1.png"},
	}
}

// createApproved submits a listing as the editor and approves it as the admin
func (e *env) createApproved(t *testing.T, mutate ...func(*dto.ListingInput)) *dto.ListingDTO {
	t.Helper()
	in := validInput()
	for _, m := range mutate {
		m(&in)
	}
	created, err := e.listings.CreateListing(ctx(), &dto.CreateListingRequest{ListingInput: in}, e.editor, meta)
	require.NoError(t, err)
	approved, err := e.listings.TransitionListing(ctx(), &dto.TransitionListingRequest{ID: created.ID, Status: "approved"}, e.admin, meta)
	require.NoError(t, err)
	return approved
}

func (e *env) searchIDs(t *testing.T, req dto.SearchListingsRequest) []uint {
	t.Helper()
	res, err := e.search.SearchListings(ctx(), &req)
	require.NoError(t, err)
	ids := make([]uint, 0, len(res.Items))
	for _, it := range res.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

func assertKind(t *testing.T, err error, kind businessflow.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, businessflow.KindOf(err), "error: %v", err)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var be *businessflow.BusinessError
	require.True(t, errors.As(err, &be), "error %v is not a BusinessError", err)
	assert.Equal(t, code, be.Code)
}
