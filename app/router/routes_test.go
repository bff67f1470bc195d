package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/handlers"
	"github.com/amirphl/Kuruma-no-Ichiba/app/middleware"
	"github.com/amirphl/Kuruma-no-Ichiba/app/router"
	"github.com/amirphl/Kuruma-no-Ichiba/app/services"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/amirphl/Kuruma-no-Ichiba/config"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	testingutil "github.com/amirphl/Kuruma-no-Ichiba/testing"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type server struct {
	t     *testing.T
	app   *fiber.App
	fx    *testingutil.TestFixtures
	users map[models.Role]*models.StaffUser
}

func withServer(t *testing.T, fn func(s *server)) {
	t.Helper()
	err := testingutil.TestWithDB(func(db *testingutil.TestDB) error {
		fn(newServer(t, db))
		return nil
	})
	require.NoError(t, err)
}

func newServer(t *testing.T, db *testingutil.TestDB) *server {
	t.Helper()
	logger := zap.NewNop()

	cars := repository.NewCarRepository(db.DB)
	inqs := repository.NewInquiryRepository(db.DB)
	audits := repository.NewAuditLogRepository(db.DB)
	users := repository.NewStaffUserRepository(db.DB)
	catalogs := repository.NewFilterCatalogRepository(db.DB)

	tokens, err := services.NewTokenService(time.Hour, 24*time.Hour, "test-issuer", "test-audience", false, "", "", "test-secret-key-for-jwt-signing-32-chars")
	require.NoError(t, err)
	notifier := services.NewNotificationService(services.NewLogChannel(logger))

	catalog := businessflow.NewCatalogFlow(catalogs, audits, nil, config.CacheConfig{}, logger)
	listings := businessflow.NewListingFlow(cars, inqs, catalog, audits, notifier, services.NewTemplateSummarizer(), config.CatalogConfig{}, logger)
	inquiries := businessflow.NewInquiryFlow(inqs, cars, businessflow.NewActorResolver(users), audits, notifier, logger)
	search := businessflow.NewSearchFlow(cars, config.SearchConfig{}, logger)
	reports := businessflow.NewReportFlow(cars, inqs, audits, logger)
	auth := businessflow.NewStaffAuthFlow(users, tokens, audits, logger)

	cfg := &config.ProductionConfig{}
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	r := router.NewFiberRouter(cfg, router.Handlers{
		Auth:     handlers.NewAuthHandler(auth, logger),
		Catalog:  handlers.NewCatalogHandler(catalog, logger),
		Listing:  handlers.NewListingHandler(listings, search, logger),
		Inquiry:  handlers.NewInquiryHandler(inquiries, logger),
		Report:   handlers.NewReportHandler(reports, logger),
		AuthGate: middleware.NewAuthMiddleware(tokens),
	}, logger)
	r.SetupRoutes()

	s := &server{t: t, app: r.GetApp(), fx: testingutil.NewTestFixtures(db), users: map[models.Role]*models.StaffUser{}}
	for _, role := range []models.Role{models.RoleAdmin, models.RoleManager, models.RoleContentEditor, models.RoleSalesAgent} {
		u, err := s.fx.CreateUser(role)
		require.NoError(t, err)
		s.users[role] = u
	}
	_, err = s.fx.SeedCatalog(testingutil.DefaultCatalog())
	require.NoError(t, err)
	return s
}

func (s *server) do(method, path string, body any, token string) (*http.Response, envelope) {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(s.t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func (s *server) login(role models.Role) dto.SessionDTO {
	s.t.Helper()
	resp, env := s.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{
		Username: s.users[role].Username,
		Password: testingutil.TestPassword,
	}, "")
	require.Equal(s.t, http.StatusOK, resp.StatusCode, env.Message)

	var out dto.LoginResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out.Session
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func listingBody() dto.CreateListingRequest {
	return dto.CreateListingRequest{ListingInput: dto.ListingInput{
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
		Images:       []string{"https://cdn.example.com/nexon/1.jpg"},
	}}
}

func TestOperationalRoutes(t *testing.T) {
	withServer(t, func(s *server) {
		resp, env := s.do(http.MethodGet, "/api/v1/health", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, env.Success)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

		resp, env = s.do(http.MethodGet, "/api/v1/nowhere", nil, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)

		resp, _ = s.do(http.MethodGet, "/api/v1/docs/swagger.json", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var doc struct {
			BasePath string                    `json:"basePath"`
			Paths    map[string]map[string]any `json:"paths"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Equal(t, "/api/v1", doc.BasePath)
		assert.Contains(t, doc.Paths, "/listings/search")
		assert.Contains(t, doc.Paths["/admin/inquiries/{id}"], "delete")

		resp, _ = s.do(http.MethodGet, "/metrics", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "http_requests_total")
	})
}

func TestAuthenticationGate(t *testing.T) {
	withServer(t, func(s *server) {
		cases := map[string]struct {
			header string
			code   string
		}{
			"missing":       {"", "MISSING_AUTHORIZATION_HEADER"},
			"not bearer":    {"Basic abc", "INVALID_AUTHORIZATION_FORMAT"},
			"garbage token": {"Bearer not-a-jwt", "TOKEN_INVALID"},
		}
		for name, tc := range cases {
			t.Run(name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/listings", nil)
				if tc.header != "" {
					req.Header.Set("Authorization", tc.header)
				}
				resp, err := s.app.Test(req)
				require.NoError(t, err)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

				var env envelope
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
				assert.Equal(t, tc.code, env.Error.Code)
			})
		}

		t.Run("RefreshTokenIsNotAnAccessToken", func(t *testing.T) {
			session := s.login(models.RoleAdmin)
			resp, env := s.do(http.MethodGet, "/api/v1/admin/listings", nil, session.RefreshToken)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "TOKEN_INVALID", env.Error.Code)

			resp, env = s.do(http.MethodPost, "/api/v1/auth/refresh", dto.RefreshSessionRequest{RefreshToken: session.RefreshToken}, "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.NotEmpty(t, decode[dto.SessionDTO](t, env).AccessToken)
		})

		t.Run("LogoutRevokesBothTokens", func(t *testing.T) {
			session := s.login(models.RoleManager)
			resp, env := s.do(http.MethodPost, "/api/v1/auth/logout", dto.LogoutRequest{RefreshToken: session.RefreshToken}, session.AccessToken)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, env.Success)

			resp, env = s.do(http.MethodGet, "/api/v1/admin/listings", nil, session.AccessToken)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "TOKEN_REVOKED", env.Error.Code)

			resp, _ = s.do(http.MethodPost, "/api/v1/auth/refresh", dto.RefreshSessionRequest{RefreshToken: session.RefreshToken}, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			resp, env = s.do(http.MethodPost, "/api/v1/auth/logout", nil, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", env.Error.Code)
		})

		t.Run("BadCredentials", func(t *testing.T) {
			resp, env := s.do(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{Username: "ghost", Password: "whatever1"}, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.False(t, env.Success)

			resp, env = s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "x"}, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
		})
	})
}

func TestListingAndInquiryOverHTTP(t *testing.T) {
	withServer(t, func(s *server) {
		editor := s.login(models.RoleContentEditor).AccessToken
		admin := s.login(models.RoleAdmin).AccessToken
		manager := s.login(models.RoleManager).AccessToken
		agent := s.login(models.RoleSalesAgent).AccessToken

		resp, env := s.do(http.MethodPost, "/api/v1/admin/listings", listingBody(), editor)
		require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
		created := decode[dto.ListingDTO](t, env)
		assert.Equal(t, "pending", created.Status)
		listingPath := fmt.Sprintf("/api/v1/listings/%d", created.ID)

		t.Run("PendingIsHiddenFromThePublic", func(t *testing.T) {
			resp, env := s.do(http.MethodGet, "/api/v1/listings/search", nil, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Zero(t, decode[dto.SearchListingsResponse](t, env).Total)

			resp, _ = s.do(http.MethodGet, listingPath, nil, "")
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)

			resp, _ = s.do(http.MethodGet, listingPath, nil, editor)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})

		t.Run("InvalidListingReportsFields", func(t *testing.T) {
			body := listingBody()
			body.Brand = "Ferrari"
			resp, env := s.do(http.MethodPost, "/api/v1/admin/listings", body, editor)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(env.Error.Details), "brand")
		})

		t.Run("ZeroValuesAreReportedPerField", func(t *testing.T) {
			body := listingBody()
			body.Model = "Nano"
			body.Price = 0
			body.EngineCC = 0
			resp, env := s.do(http.MethodPost, "/api/v1/admin/listings", body, editor)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "INVALID_LISTING", env.Error.Code)

			var fields map[string]string
			require.NoError(t, json.Unmarshal(env.Error.Details, &fields))
			assert.Contains(t, fields, "model")
			assert.Contains(t, fields, "price")
			assert.Contains(t, fields, "engine_cc")

			resp, env = s.do(http.MethodPost, "/api/v1/admin/listings", map[string]any{}, editor)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "INVALID_LISTING", env.Error.Code)
			require.NoError(t, json.Unmarshal(env.Error.Details, &fields))
			for _, key := range []string{"brand", "year", "price", "km_run", "fuel", "transmission", "ownership", "color", "engine_cc"} {
				assert.Contains(t, fields, key)
			}
		})

		t.Run("ApproveNeedsReviewer", func(t *testing.T) {
			path := fmt.Sprintf("/api/v1/admin/listings/%d/transition", created.ID)
			resp, _ := s.do(http.MethodPost, path, dto.TransitionListingRequest{Status: "approved"}, editor)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)

			resp, env := s.do(http.MethodPost, path, dto.TransitionListingRequest{Status: "approved"}, admin)
			require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)

			resp, env = s.do(http.MethodPost, path, dto.TransitionListingRequest{Status: "rejected"}, admin)
			assert.Equal(t, http.StatusConflict, resp.StatusCode)
			assert.False(t, env.Success)
		})

		t.Run("SearchQueryString", func(t *testing.T) {
			resp, env := s.do(http.MethodGet, "/api/v1/listings/search?brands=Tata,Honda&model=Nexon&price_max=900000&q=nexon", nil, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			got := decode[dto.SearchListingsResponse](t, env)
			require.Equal(t, 1, got.Total)
			assert.Equal(t, created.ID, got.Items[0].ID)

			resp, env = s.do(http.MethodGet, "/api/v1/listings/search?price_min=cheap", nil, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "INVALID_QUERY", env.Error.Code)

			resp, _ = s.do(http.MethodGet, "/api/v1/listings/search?sort=random", nil, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			resp, env = s.do(http.MethodGet, listingPath+"?with_summary=true", nil, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.NotNil(t, decode[dto.GetListingResponse](t, env).Summary)
		})

		var inquiry dto.InquiryDTO
		t.Run("AnonymousInquiry", func(t *testing.T) {
			resp, env := s.do(http.MethodPost, "/api/v1/inquiries", dto.CreateInquiryRequest{
				CarID:         created.ID,
				CustomerName:  "Ramesh",
				CustomerPhone: "+919800000000",
			}, "")
			require.Equal(t, http.StatusCreated, resp.StatusCode, env.Message)
			inquiry = decode[dto.InquiryDTO](t, env)
			assert.Equal(t, "new", inquiry.Status)
		})

		t.Run("RoutingAndClosure", func(t *testing.T) {
			base := fmt.Sprintf("/api/v1/admin/inquiries/%d", inquiry.ID)

			resp, _ := s.do(http.MethodPost, base+"/assign", dto.AssignInquiryRequest{AgentID: s.users[models.RoleSalesAgent].ID}, agent)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)

			resp, env := s.do(http.MethodPost, base+"/assign", dto.AssignInquiryRequest{AgentID: s.users[models.RoleContentEditor].ID}, manager)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.False(t, env.Success)

			resp, env = s.do(http.MethodPost, base+"/assign", dto.AssignInquiryRequest{AgentID: s.users[models.RoleSalesAgent].ID}, manager)
			require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
			assert.Equal(t, "contacted", decode[dto.InquiryDTO](t, env).Status)

			resp, _ = s.do(http.MethodPut, base+"/notes", dto.UpdateInquiryNotesRequest{PrivateNotes: "call after 6"}, manager)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			resp, _ = s.do(http.MethodPut, base+"/notes", dto.UpdateInquiryNotesRequest{PrivateNotes: "call after 6"}, agent)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			resp, _ = s.do(http.MethodPost, base+"/status", dto.UpdateInquiryStatusRequest{Status: "closed"}, agent)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			remarks, serious := "booked a test drive", true
			resp, env = s.do(http.MethodPost, base+"/status", dto.UpdateInquiryStatusRequest{Status: "closed", Remarks: &remarks, IsSeriousCustomer: &serious}, agent)
			require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
			closed := decode[dto.InquiryDTO](t, env)
			assert.True(t, closed.IsSeriousCustomer)
			require.NotNil(t, closed.PrivateNotes)
			assert.Equal(t, "call after 6", *closed.PrivateNotes)

			resp, env = s.do(http.MethodGet, base, nil, admin)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Nil(t, decode[dto.InquiryDTO](t, env).PrivateNotes)
		})

		t.Run("Reports", func(t *testing.T) {
			resp, _ := s.do(http.MethodGet, "/api/v1/admin/reports/inquiries.xlsx", nil, agent)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)

			resp, _ = s.do(http.MethodGet, "/api/v1/admin/reports/listings.xlsx?status=approved", nil, manager)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="listings.xlsx"`)
			assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
		})

		t.Run("DeleteCascades", func(t *testing.T) {
			path := fmt.Sprintf("/api/v1/admin/listings/%d", created.ID)
			resp, _ := s.do(http.MethodDelete, path, nil, manager)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)

			resp, env := s.do(http.MethodDelete, path, nil, admin)
			require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
			got := decode[dto.DeleteListingResponse](t, env)
			assert.Equal(t, int64(1), got.InquiriesDeleted)
			assert.True(t, got.ListingWasDeleted)

			resp, _ = s.do(http.MethodDelete, path, nil, admin)
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	})
}

func TestCatalogOverHTTP(t *testing.T) {
	withServer(t, func(s *server) {
		resp, env := s.do(http.MethodGet, "/api/v1/catalog/filters", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		current := decode[dto.FilterCatalogDTO](t, env)
		assert.Equal(t, int64(1), current.Version)

		admin := s.login(models.RoleAdmin).AccessToken
		op := dto.CatalogOperationRequest{Version: 1, Op: dto.CatalogOpAddBrand, Brand: "Kia"}

		resp, env = s.do(http.MethodPost, "/api/v1/admin/catalog/filters/operations", op, admin)
		require.Equal(t, http.StatusOK, resp.StatusCode, env.Message)
		assert.Equal(t, int64(2), decode[dto.FilterCatalogDTO](t, env).Version)

		resp, env = s.do(http.MethodPost, "/api/v1/admin/catalog/filters/operations", op, admin)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "STALE_CATALOG", env.Error.Code)

		editor := s.login(models.RoleContentEditor).AccessToken
		resp, _ = s.do(http.MethodPut, "/api/v1/admin/catalog/filters", dto.UpdateFilterCatalogRequest{Version: 2, Brands: []string{"Kia"}, Years: []int{2024}}, editor)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
