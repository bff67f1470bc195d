package businessflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/services"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/amirphl/Kuruma-no-Ichiba/config"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingCascade struct {
	repository.InquiryRepository
}

func (failingCascade) DeleteByCarID(context.Context, uint) (int64, error) {
	return 0, errors.New("connection reset")
}

// failingCarDelete refuses to delete cars while down is set
type failingCarDelete struct {
	repository.CarRepository
	down bool
}

func (r *failingCarDelete) DeleteByID(ctx context.Context, id uint) (bool, error) {
	if r.down {
		return false, errors.New("connection reset")
	}
	return r.CarRepository.DeleteByID(ctx, id)
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(context.Context, *models.Car) (string, error) {
	return "", errors.New("model unavailable")
}

func TestListingFlowLifecycle(t *testing.T) {
	withEnv(t, func(e *env) {
		var created *dto.ListingDTO

		t.Run("CreateStartsPending", func(t *testing.T) {
			var err error
			created, err = e.listings.CreateListing(ctx(), &dto.CreateListingRequest{ListingInput: validInput()}, e.editor, meta)
			require.NoError(t, err)
			assert.Equal(t, "pending", created.Status)
			assert.Equal(t, e.editor.ID, created.SubmittedBy)
			assert.Contains(t, e.sent.Kinds(), services.NotifyListingNeedsReview)
			assert.Empty(t, e.searchIDs(t, dto.SearchListingsRequest{}))
		})

		t.Run("InvalidInputPersistsNothing", func(t *testing.T) {
			before, err := e.cars.Count(ctx(), models.CarFilter{})
			require.NoError(t, err)

			in := validInput()
			in.Brand = "Kia"
			in.Year = 1979
			in.Price = 0
			in.Fuel = "Hydrogen"
			_, err = e.listings.CreateListing(ctx(), &dto.CreateListingRequest{ListingInput: in}, e.editor, meta)
			assertKind(t, err, businessflow.KindValidation)
			assert.True(t, businessflow.IsInvalidListing(err))
			fields := businessflow.FieldErrors(err)
			for _, f := range []string{"brand", "year", "price", "fuel"} {
				assert.Contains(t, fields, f)
			}

			after, err := e.cars.Count(ctx(), models.CarFilter{})
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})

		t.Run("ModelMustBelongToBrand", func(t *testing.T) {
			in := validInput()
			in.Model = "City"
			_, err := e.listings.CreateListing(ctx(), &dto.CreateListingRequest{ListingInput: in}, e.editor, meta)
			assertKind(t, err, businessflow.KindValidation)
			assert.Contains(t, businessflow.FieldErrors(err), "model")
		})

		t.Run("RegistrationBeforeManufacture", func(t *testing.T) {
			in := validInput()
			in.RegistrationYear = ptr(2021)
			_, err := e.listings.CreateListing(ctx(), &dto.CreateListingRequest{ListingInput: in}, e.editor, meta)
			assert.Contains(t, businessflow.FieldErrors(err), "registration_year")
		})

		t.Run("AgentCannotCreate", func(t *testing.T) {
			_, err := e.listings.CreateListing(ctx(), &dto.CreateListingRequest{ListingInput: validInput()}, e.agent, meta)
			assertKind(t, err, businessflow.KindPermission)
			assert.True(t, businessflow.IsPermissionDenied(err))
		})

		t.Run("EditorCannotReview", func(t *testing.T) {
			_, err := e.listings.TransitionListing(ctx(), &dto.TransitionListingRequest{ID: created.ID, Status: "approved"}, e.editor, meta)
			assertKind(t, err, businessflow.KindPermission)
		})

		t.Run("ManagerApproves", func(t *testing.T) {
			got, err := e.listings.TransitionListing(ctx(), &dto.TransitionListingRequest{ID: created.ID, Status: "approved"}, e.manager, meta)
			require.NoError(t, err)
			assert.Equal(t, "approved", got.Status)
			assert.Equal(t, []uint{created.ID}, e.searchIDs(t, dto.SearchListingsRequest{}))

			last := e.sent.Sent[len(e.sent.Sent)-1]
			assert.Equal(t, services.NotifyListingApproved, last.Kind)
			require.NotNil(t, last.RecipientID)
			assert.Equal(t, e.editor.ID, *last.RecipientID)
		})

		t.Run("ApprovedCannotBeRejected", func(t *testing.T) {
			_, err := e.listings.TransitionListing(ctx(), &dto.TransitionListingRequest{ID: created.ID, Status: "rejected"}, e.admin, meta)
			assertKind(t, err, businessflow.KindConflict)
			assert.True(t, businessflow.IsInvalidTransition(err))
		})

		t.Run("UnknownTargetStatus", func(t *testing.T) {
			_, err := e.listings.TransitionListing(ctx(), &dto.TransitionListingRequest{ID: created.ID, Status: "pending"}, e.admin, meta)
			assertKind(t, err, businessflow.KindValidation)
		})

		t.Run("EditResetsToPendingAndHidesFromSearch", func(t *testing.T) {
			in := validInput()
			in.Price = 850000
			got, err := e.listings.UpdateListing(ctx(), &dto.UpdateListingRequest{ID: created.ID, ListingInput: in}, e.editor, meta)
			require.NoError(t, err)
			assert.Equal(t, "pending", got.Status)
			assert.Equal(t, int64(850000), got.Price)
			assert.Empty(t, e.searchIDs(t, dto.SearchListingsRequest{}))
		})

		t.Run("OtherEditorCannotEdit", func(t *testing.T) {
			other, err := e.fx.CreateUser(models.RoleContentEditor)
			require.NoError(t, err)
			_, err = e.listings.UpdateListing(ctx(), &dto.UpdateListingRequest{ID: created.ID, ListingInput: validInput()}, actorOf(other), meta)
			assertKind(t, err, businessflow.KindPermission)

			_, err = e.listings.UpdateListing(ctx(), &dto.UpdateListingRequest{ID: created.ID, ListingInput: validInput()}, e.admin, meta)
			require.NoError(t, err)
		})

		t.Run("RejectPending", func(t *testing.T) {
			got, err := e.listings.TransitionListing(ctx(), &dto.TransitionListingRequest{ID: created.ID, Status: "rejected"}, e.admin, meta)
			require.NoError(t, err)
			assert.Equal(t, "rejected", got.Status)
			assert.Equal(t, services.NotifyListingRejected, e.sent.Sent[len(e.sent.Sent)-1].Kind)
		})

		t.Run("EditAfterRejectionResubmits", func(t *testing.T) {
			got, err := e.listings.UpdateListing(ctx(), &dto.UpdateListingRequest{ID: created.ID, ListingInput: validInput()}, e.editor, meta)
			require.NoError(t, err)
			assert.Equal(t, "pending", got.Status)
		})

		t.Run("UpdateMissingListing", func(t *testing.T) {
			_, err := e.listings.UpdateListing(ctx(), &dto.UpdateListingRequest{ID: 9999, ListingInput: validInput()}, e.admin, meta)
			assertKind(t, err, businessflow.KindNotFound)
			assert.True(t, businessflow.IsCarNotFound(err))
		})
	})
}

func TestListingFlowApproveNeedsImages(t *testing.T) {
	withEnv(t, func(e *env) {
		in := validInput()
		in.Images = nil
		created, err := e.listings.CreateListing(ctx(), &dto.CreateListingRequest{ListingInput: in}, e.editor, meta)
		require.NoError(t, err)

		_, err = e.listings.TransitionListing(ctx(), &dto.TransitionListingRequest{ID: created.ID, Status: "approved"}, e.admin, meta)
		assertKind(t, err, businessflow.KindValidation)
		assert.ErrorIs(t, err, businessflow.ErrMissingImages)

		car, err := e.cars.ByID(ctx(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CarStatusPending, car.Status)

		rejected, err := e.listings.TransitionListing(ctx(), &dto.TransitionListingRequest{ID: created.ID, Status: "rejected"}, e.admin, meta)
		require.NoError(t, err)
		assert.Equal(t, "rejected", rejected.Status)
	})
}

func TestListingFlowDelete(t *testing.T) {
	withEnv(t, func(e *env) {
		t.Run("CascadesInquiries", func(t *testing.T) {
			listing := e.createApproved(t)
			car, err := e.cars.ByID(ctx(), listing.ID)
			require.NoError(t, err)
			for range 3 {
				_, err := e.fx.CreateInquiry(car)
				require.NoError(t, err)
			}
			untouched, err := e.fx.CreateCar(e.editor.ID, models.CarStatusApproved)
			require.NoError(t, err)
			keep, err := e.fx.CreateInquiry(untouched)
			require.NoError(t, err)

			got, err := e.listings.DeleteListing(ctx(), listing.ID, e.admin, meta)
			require.NoError(t, err)
			assert.Equal(t, int64(3), got.InquiriesDeleted)
			assert.True(t, got.ListingWasDeleted)

			gone, err := e.cars.ByID(ctx(), listing.ID)
			require.NoError(t, err)
			assert.Nil(t, gone)
			left, err := e.inqs.Count(ctx(), models.InquiryFilter{CarID: &listing.ID})
			require.NoError(t, err)
			assert.Zero(t, left)

			other, err := e.inqs.ByID(ctx(), keep.ID)
			require.NoError(t, err)
			assert.NotNil(t, other)
			assert.Equal(t, []uint{untouched.ID}, e.searchIDs(t, dto.SearchListingsRequest{}))
		})

		t.Run("MissingListing", func(t *testing.T) {
			_, err := e.listings.DeleteListing(ctx(), 9999, e.admin, meta)
			assertKind(t, err, businessflow.KindNotFound)
		})

		t.Run("OnlyAdminDeletes", func(t *testing.T) {
			car, err := e.fx.CreateCar(e.editor.ID, models.CarStatusPending)
			require.NoError(t, err)
			for _, actor := range []businessflow.Actor{e.manager, e.editor, e.agent} {
				_, err := e.listings.DeleteListing(ctx(), car.ID, actor, meta)
				assertKind(t, err, businessflow.KindPermission)
			}
		})

		t.Run("CascadeFailureKeepsListing", func(t *testing.T) {
			car, err := e.fx.CreateCar(e.editor.ID, models.CarStatusApproved)
			require.NoError(t, err)

			flow := businessflow.NewListingFlow(e.cars, failingCascade{e.inqs}, e.catalog, e.audits,
				services.NewNotificationService(), nil, config.CatalogConfig{}, zap.NewNop())
			_, err = flow.DeleteListing(ctx(), car.ID, e.admin, meta)
			assertKind(t, err, businessflow.KindCascadeFailed)
			assert.True(t, businessflow.IsCascadeFailed(err))

			still, err := e.cars.ByID(ctx(), car.ID)
			require.NoError(t, err)
			assert.NotNil(t, still)
		})

		t.Run("SecondPhaseFailureIsRetried", func(t *testing.T) {
			car, err := e.fx.CreateCar(e.editor.ID, models.CarStatusApproved)
			require.NoError(t, err)
			for range 2 {
				_, err := e.fx.CreateInquiry(car)
				require.NoError(t, err)
			}

			cars := &failingCarDelete{CarRepository: e.cars, down: true}
			flow := businessflow.NewListingFlow(cars, e.inqs, e.catalog, e.audits,
				services.NewNotificationService(), nil, config.CatalogConfig{}, zap.NewNop())

			_, err = flow.DeleteListing(ctx(), car.ID, e.admin, meta)
			assertKind(t, err, businessflow.KindInternal)
			assertCode(t, err, "DELETE_LISTING_FAILED")
			assert.False(t, businessflow.IsCascadeFailed(err))

			still, err := e.cars.ByID(ctx(), car.ID)
			require.NoError(t, err)
			assert.NotNil(t, still)
			left, err := e.inqs.Count(ctx(), models.InquiryFilter{CarID: &car.ID})
			require.NoError(t, err)
			assert.Zero(t, left)

			cars.down = false
			got, err := flow.DeleteListing(ctx(), car.ID, e.admin, meta)
			require.NoError(t, err)
			assert.Zero(t, got.InquiriesDeleted)
			assert.True(t, got.ListingWasDeleted)

			gone, err := e.cars.ByID(ctx(), car.ID)
			require.NoError(t, err)
			assert.Nil(t, gone)
		})
	})
}

func TestListingFlowCatalogChanges(t *testing.T) {
	withEnv(t, func(e *env) {
		listing := e.createApproved(t)

		_, err := e.catalog.ApplyOperation(ctx(), &dto.CatalogOperationRequest{Version: 1, Op: dto.CatalogOpRemoveBrand, Brand: "Tata"}, e.admin, meta)
		require.NoError(t, err)

		// existing listings survive a catalog change
		assert.Equal(t, []uint{listing.ID}, e.searchIDs(t, dto.SearchListingsRequest{}))

		// but edits are checked against the new catalog
		_, err = e.listings.UpdateListing(ctx(), &dto.UpdateListingRequest{ID: listing.ID, ListingInput: validInput()}, e.editor, meta)
		assertKind(t, err, businessflow.KindValidation)
		assert.Contains(t, businessflow.FieldErrors(err), "brand")
	})
}

func TestListingFlowReads(t *testing.T) {
	withEnv(t, func(e *env) {
		pending, err := e.fx.CreateCar(e.editor.ID, models.CarStatusPending)
		require.NoError(t, err)
		approved, err := e.fx.CreateCar(e.editor.ID, models.CarStatusApproved, func(c *models.Car) {
			c.Badges = models.BadgeSet{models.CarBadgePriceDrop}
		})
		require.NoError(t, err)
		other, err := e.fx.CreateUser(models.RoleContentEditor)
		require.NoError(t, err)
		_, err = e.fx.CreateCar(other.ID, models.CarStatusPending)
		require.NoError(t, err)

		t.Run("PendingHiddenFromPublic", func(t *testing.T) {
			_, err := e.listings.GetListing(ctx(), &dto.GetListingRequest{ID: pending.ID}, businessflow.Anonymous)
			assertKind(t, err, businessflow.KindNotFound)
			_, err = e.listings.GetListing(ctx(), &dto.GetListingRequest{ID: pending.ID}, actorOf(other))
			assertKind(t, err, businessflow.KindNotFound)
		})

		t.Run("OwnerAndReviewerSeePending", func(t *testing.T) {
			for _, actor := range []businessflow.Actor{e.editor, e.manager, e.admin} {
				got, err := e.listings.GetListing(ctx(), &dto.GetListingRequest{ID: pending.ID}, actor)
				require.NoError(t, err)
				assert.Equal(t, "pending", got.Listing.Status)
			}
		})

		t.Run("ApprovedWithSummary", func(t *testing.T) {
			got, err := e.listings.GetListing(ctx(), &dto.GetListingRequest{ID: approved.ID, WithSummary: true}, businessflow.Anonymous)
			require.NoError(t, err)
			require.NotNil(t, got.Summary)
			assert.Contains(t, *got.Summary, "2022 Tata Nexon")
			assert.Contains(t, *got.Summary, "Price recently dropped.")
		})

		t.Run("SummaryFailureIsNotFatal", func(t *testing.T) {
			flow := businessflow.NewListingFlow(e.cars, e.inqs, e.catalog, e.audits,
				services.NewNotificationService(), failingSummarizer{}, config.CatalogConfig{}, zap.NewNop())
			got, err := flow.GetListing(ctx(), &dto.GetListingRequest{ID: approved.ID, WithSummary: true}, businessflow.Anonymous)
			require.NoError(t, err)
			assert.Nil(t, got.Summary)
		})

		t.Run("EditorListsOwnOnly", func(t *testing.T) {
			got, err := e.listings.ListListings(ctx(), &dto.ListListingsRequest{}, e.editor)
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.Pagination.Total)
			for _, it := range got.Items {
				assert.Equal(t, e.editor.ID, it.SubmittedBy)
			}
		})

		t.Run("ManagerListsByStatus", func(t *testing.T) {
			got, err := e.listings.ListListings(ctx(), &dto.ListListingsRequest{Status: ptr("pending")}, e.manager)
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.Pagination.Total)

			_, err = e.listings.ListListings(ctx(), &dto.ListListingsRequest{Status: ptr("sold")}, e.manager)
			assertKind(t, err, businessflow.KindValidation)
		})

		t.Run("AgentCannotList", func(t *testing.T) {
			_, err := e.listings.ListListings(ctx(), &dto.ListListingsRequest{}, e.agent)
			assertKind(t, err, businessflow.KindPermission)
		})
	})
}

func TestListingFlowManufactureYearFloor(t *testing.T) {
	withEnv(t, func(e *env) {
		flow := businessflow.NewListingFlow(e.cars, e.inqs, e.catalog, e.audits,
			services.NewNotificationService(), nil, config.CatalogConfig{MinManufactureYear: 1950}, zap.NewNop())

		in := validInput()
		in.Year = 1975
		_, err := flow.CreateListing(ctx(), &dto.CreateListingRequest{ListingInput: in}, e.editor, meta)
		assertKind(t, err, businessflow.KindValidation)
		assert.Contains(t, businessflow.FieldErrors(err), "year")
	})
}
