package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/services"
	"github.com/amirphl/Kuruma-no-Ichiba/config"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"go.uber.org/zap"
)

// ListingFlow handles the listing lifecycle: submission, review, edits and cascading delete
type ListingFlow interface {
	CreateListing(ctx context.Context, req *dto.CreateListingRequest, actor Actor, metadata *ClientMetadata) (*dto.ListingDTO, error)
	UpdateListing(ctx context.Context, req *dto.UpdateListingRequest, actor Actor, metadata *ClientMetadata) (*dto.ListingDTO, error)
	TransitionListing(ctx context.Context, req *dto.TransitionListingRequest, actor Actor, metadata *ClientMetadata) (*dto.ListingDTO, error)
	DeleteListing(ctx context.Context, id uint, actor Actor, metadata *ClientMetadata) (*dto.DeleteListingResponse, error)
	GetListing(ctx context.Context, req *dto.GetListingRequest, actor Actor) (*dto.GetListingResponse, error)
	ListListings(ctx context.Context, req *dto.ListListingsRequest, actor Actor) (*dto.ListListingsResponse, error)
}

// ListingFlowImpl implements ListingFlow
type ListingFlowImpl struct {
	carRepo     repository.CarRepository
	inquiryRepo repository.InquiryRepository
	catalog     CatalogFlow
	audit       auditor
	notifier    services.NotificationService
	summarizer  services.ListingSummarizer
	minYear     int
	logger      *zap.Logger
}

func NewListingFlow(
	carRepo repository.CarRepository,
	inquiryRepo repository.InquiryRepository,
	catalog CatalogFlow,
	auditRepo repository.AuditLogRepository,
	notifier services.NotificationService,
	summarizer services.ListingSummarizer,
	catalogConfig config.CatalogConfig,
	logger *zap.Logger,
) ListingFlow {
	logger = loggerOrNop(logger)
	minYear := catalogConfig.MinManufactureYear
	if minYear < utils.MinManufactureYear {
		minYear = utils.MinManufactureYear
	}
	return &ListingFlowImpl{
		carRepo:     carRepo,
		inquiryRepo: inquiryRepo,
		catalog:     catalog,
		audit:       newAuditor(auditRepo, logger),
		notifier:    notifier,
		summarizer:  summarizer,
		minYear:     minYear,
		logger:      logger,
	}
}

// transitionCause tells applyCarTransition which rules apply
type transitionCause string

const (
	causeReview transitionCause = "review"
	causeEdit   transitionCause = "edit"
)

func (f *ListingFlowImpl) CreateListing(ctx context.Context, req *dto.CreateListingRequest, actor Actor, metadata *ClientMetadata) (*dto.ListingDTO, error) {
	if err := authorize(actor, access{any: CapListingCreate}); err != nil {
		return nil, err
	}

	car := &models.Car{SubmittedBy: actor.ID, Status: models.CarStatusPending}
	if err := f.fill(ctx, car, &req.ListingInput); err != nil {
		return nil, err
	}

	if err := f.carRepo.Save(ctx, car); err != nil {
		return nil, NewBusinessError("CREATE_LISTING_FAILED", "Failed to save listing", err)
	}

	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionListingCreated,
		entityType: models.AuditEntityCar,
		entityID:   utils.ToPtr(car.ID),
		message:    "Listing submitted for review",
		success:    true,
		details:    map[string]any{"summary": car.Summary()},
	})
	notify(ctx, f.notifier, f.logger, services.Notification{
		Kind:          services.NotifyListingNeedsReview,
		RecipientRole: models.RoleManager.String(),
		Subject:       car.Summary(),
		Fields:        map[string]any{"car_id": car.ID},
	})
	f.logger.Info("listing created", zap.Uint("car_id", car.ID), zap.Stringer("actor", actor))

	out := ToListingDTO(*car)
	return &out, nil
}

// UpdateListing replaces the listing content. Any edit sends the listing back to pending.
func (f *ListingFlowImpl) UpdateListing(ctx context.Context, req *dto.UpdateListingRequest, actor Actor, metadata *ClientMetadata) (*dto.ListingDTO, error) {
	car, err := f.loadCar(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	need := access{any: CapListingUpdateAny, scoped: CapListingUpdateOwn, related: car.SubmittedBy == actor.ID}
	if err := authorize(actor, need); err != nil {
		return nil, err
	}

	if err := f.fill(ctx, car, &req.ListingInput); err != nil {
		return nil, err
	}

	if err := f.applyCarTransition(ctx, car, models.CarStatusPending, causeEdit); err != nil {
		return nil, NewBusinessError("UPDATE_LISTING_FAILED", "Failed to update listing", err)
	}

	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionListingUpdated,
		entityType: models.AuditEntityCar,
		entityID:   utils.ToPtr(car.ID),
		message:    "Listing edited and returned to review",
		success:    true,
	})
	notify(ctx, f.notifier, f.logger, services.Notification{
		Kind:          services.NotifyListingNeedsReview,
		RecipientRole: models.RoleManager.String(),
		Subject:       car.Summary(),
		Fields:        map[string]any{"car_id": car.ID},
	})

	out := ToListingDTO(*car)
	return &out, nil
}

// TransitionListing approves or rejects a pending listing
func (f *ListingFlowImpl) TransitionListing(ctx context.Context, req *dto.TransitionListingRequest, actor Actor, metadata *ClientMetadata) (*dto.ListingDTO, error) {
	if err := authorize(actor, access{any: CapListingReview}); err != nil {
		return nil, err
	}

	to := models.CarStatus(req.Status)
	if to != models.CarStatusApproved && to != models.CarStatusRejected {
		return nil, NewBusinessErrorf("INVALID_STATUS", "Listings can only be approved or rejected, not %q",
			&ValidationError{Err: ErrInvalidTransition, Fields: map[string]string{"status": "must be approved or rejected"}}, req.Status)
	}

	car, err := f.loadCar(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	from := car.Status
	if err := f.applyCarTransition(ctx, car, to, causeReview); err != nil {
		f.audit.record(ctx, actor, metadata, auditEntry{
			action:     reviewAction(to),
			entityType: models.AuditEntityCar,
			entityID:   utils.ToPtr(car.ID),
			message:    fmt.Sprintf("Transition %s -> %s refused", from, to),
			err:        err,
		})
		return nil, err
	}

	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     reviewAction(to),
		entityType: models.AuditEntityCar,
		entityID:   utils.ToPtr(car.ID),
		message:    fmt.Sprintf("Listing %s", to),
		success:    true,
	})

	kind := services.NotifyListingApproved
	if to == models.CarStatusRejected {
		kind = services.NotifyListingRejected
	}
	notify(ctx, f.notifier, f.logger, services.Notification{
		Kind:        kind,
		RecipientID: utils.ToPtr(car.SubmittedBy),
		Subject:     car.Summary(),
		Fields:      map[string]any{"car_id": car.ID},
	})

	out := ToListingDTO(*car)
	return &out, nil
}

func reviewAction(to models.CarStatus) string {
	if to == models.CarStatusApproved {
		return models.AuditActionListingApproved
	}
	return models.AuditActionListingRejected
}

// applyCarTransition is the only place a listing status is written.
// Review moves pending to approved or rejected; approval needs at least one image.
// An edit moves any status to pending and persists the whole listing.
// Concurrent writers race last-write-wins.
func (f *ListingFlowImpl) applyCarTransition(ctx context.Context, car *models.Car, to models.CarStatus, cause transitionCause) error {
	from := car.Status

	switch cause {
	case causeReview:
		if !car.CanTransitionTo(to) {
			return NewBusinessErrorf("INVALID_TRANSITION", "Listing is %s and cannot become %s", ErrInvalidTransition, from, to)
		}
		if to == models.CarStatusApproved && len(car.Images) == 0 {
			return NewBusinessError("MISSING_IMAGES", "A listing needs at least one image to be approved",
				&ValidationError{Err: ErrMissingImages, Fields: map[string]string{"images": "at least one image is required"}})
		}
		if err := f.carRepo.UpdateStatus(ctx, car.ID, to); err != nil {
			return NewBusinessError("TRANSITION_LISTING_FAILED", "Failed to update listing status", err)
		}
		car.Status = to
		car.UpdatedAt = utils.UTCNow()
	case causeEdit:
		if to != models.CarStatusPending {
			return NewBusinessErrorf("INVALID_TRANSITION", "An edit cannot move a listing to %s", ErrInvalidTransition, to)
		}
		car.Status = to
		if err := f.carRepo.Update(ctx, car); err != nil {
			car.Status = from
			return err
		}
	default:
		return fmt.Errorf("unknown transition cause %q", cause)
	}

	if from != to {
		listingTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
		f.logger.Info("listing status changed",
			zap.Uint("car_id", car.ID),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("cause", string(cause)),
		)
	}
	return nil
}

// DeleteListing removes the listing's inquiries first and the listing second.
// If the inquiries cannot be removed the listing is left untouched and CASCADE_FAILED is returned.
// Once the inquiries are gone the listing delete runs to completion even if the caller gave up.
func (f *ListingFlowImpl) DeleteListing(ctx context.Context, id uint, actor Actor, metadata *ClientMetadata) (*dto.DeleteListingResponse, error) {
	if err := authorize(actor, access{any: CapListingDelete}); err != nil {
		return nil, err
	}

	car, err := f.loadCar(ctx, id)
	if err != nil {
		return nil, err
	}

	removed, err := f.inquiryRepo.DeleteByCarID(ctx, car.ID)
	if err != nil {
		f.logger.Error("cascade delete stopped before the listing", zap.Uint("car_id", car.ID), zap.Error(err))
		f.audit.record(ctx, actor, metadata, auditEntry{
			action:     models.AuditActionListingDeleted,
			entityType: models.AuditEntityCar,
			entityID:   utils.ToPtr(car.ID),
			message:    "Inquiries could not be deleted; listing kept",
			err:        err,
		})
		return nil, NewBusinessErrorf("CASCADE_FAILED", "Inquiries of listing %d could not be deleted", fmt.Errorf("%w: %w", ErrCascadeFailed, err), car.ID)
	}

	deleted, err := f.carRepo.DeleteByID(context.WithoutCancel(ctx), car.ID)
	if err != nil {
		return nil, NewBusinessError("DELETE_LISTING_FAILED", "Inquiries were deleted but the listing was not; retry the delete", err)
	}

	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionListingDeleted,
		entityType: models.AuditEntityCar,
		entityID:   utils.ToPtr(car.ID),
		message:    "Listing deleted",
		success:    true,
		details:    map[string]any{"inquiries_deleted": removed, "summary": car.Summary()},
	})
	f.logger.Info("listing deleted",
		zap.Uint("car_id", car.ID),
		zap.Int64("inquiries_deleted", removed),
		zap.Stringer("actor", actor),
	)

	return &dto.DeleteListingResponse{ID: car.ID, InquiriesDeleted: removed, ListingWasDeleted: deleted}, nil
}

// GetListing reads one listing. Listings that are not approved resolve as not found
// for readers who may not see them.
func (f *ListingFlowImpl) GetListing(ctx context.Context, req *dto.GetListingRequest, actor Actor) (*dto.GetListingResponse, error) {
	car, err := f.loadCar(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if !car.IsVisible() {
		need := access{any: CapListingReadAll, scoped: CapListingReadOwn, related: car.SubmittedBy == actor.ID}
		if authorize(actor, need) != nil {
			return nil, NewBusinessError("LISTING_NOT_FOUND", "Listing not found", ErrCarNotFound)
		}
	}

	resp := &dto.GetListingResponse{Listing: ToListingDTO(*car)}
	if req.WithSummary && f.summarizer != nil {
		summary, err := f.summarizer.Summarize(ctx, car)
		if err != nil {
			f.logger.Warn("listing summary unavailable", zap.Uint("car_id", car.ID), zap.Error(err))
		} else {
			resp.Summary = &summary
		}
	}
	return resp, nil
}

func (f *ListingFlowImpl) ListListings(ctx context.Context, req *dto.ListListingsRequest, actor Actor) (resp *dto.ListListingsResponse, err error) {
	// editors only ever see their own submissions
	ownOnly := !actor.Can(CapListingReadAll)
	if err := authorize(actor, access{any: CapListingReadAll, scoped: CapListingReadOwn, related: true}); err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			err = NewBusinessError("LIST_LISTINGS_FAILED", "Failed to list listings", err)
		}
	}()

	page, pageSize, err := pageBounds(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	filter := models.CarFilter{SubmittedBy: req.SubmittedBy}
	if ownOnly {
		filter.SubmittedBy = utils.ToPtr(actor.ID)
	}
	if req.Status != nil {
		status := models.CarStatus(strings.TrimSpace(*req.Status))
		if !status.Valid() {
			return nil, &ValidationError{Err: ErrInvalidListing, Fields: map[string]string{"status": "unknown status"}}
		}
		filter.Status = &status
	}
	filter.Brand = utils.TrimmedPtr(req.Brand)

	total, err := f.carRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows, err := f.carRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ListingDTO, 0, len(rows))
	for _, r := range rows {
		items = append(items, ToListingDTO(*r))
	}
	return &dto.ListListingsResponse{
		Items:      items,
		Pagination: dto.NewPaginationInfo(page, pageSize, total),
	}, nil
}

func (f *ListingFlowImpl) loadCar(ctx context.Context, id uint) (*models.Car, error) {
	car, err := f.carRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LOAD_LISTING_FAILED", "Failed to load listing", err)
	}
	if car == nil {
		return nil, NewBusinessErrorf("LISTING_NOT_FOUND", "Listing %d not found", ErrCarNotFound, id)
	}
	return car, nil
}

// fill validates the input against the current catalog and copies it onto car.
// Nothing is written when validation fails.
func (f *ListingFlowImpl) fill(ctx context.Context, car *models.Car, in *dto.ListingInput) error {
	snapshot, err := f.catalog.Snapshot(ctx)
	if err != nil {
		return NewBusinessError("LOAD_FILTER_CATALOG_FAILED", "Failed to load filter catalog", err)
	}

	next, fields := validateListing(in, snapshot.Document, f.minYear, utils.CurrentYear())
	if len(fields) > 0 {
		return NewBusinessError("INVALID_LISTING", "Listing is invalid", NewInvalidListing(fields))
	}

	car.Brand = next.Brand
	car.Model = next.Model
	car.Year = next.Year
	car.RegistrationYear = next.RegistrationYear
	car.Price = next.Price
	car.KmRun = next.KmRun
	car.Fuel = next.Fuel
	car.Transmission = next.Transmission
	car.Ownership = next.Ownership
	car.Color = next.Color
	car.EngineCC = next.EngineCC
	car.AdditionalDetails = next.AdditionalDetails
	car.Images = next.Images
	car.Badges = next.Badges
	car.InstagramReelURL = next.InstagramReelURL
	return nil
}

// validateListing checks every field and returns the cleaned values with a field-keyed error map
func validateListing(in *dto.ListingInput, catalog models.CatalogDocument, minYear, currentYear int) (models.Car, map[string]string) {
	fields := map[string]string{}
	out := models.Car{
		Brand:             strings.TrimSpace(in.Brand),
		Model:             strings.TrimSpace(in.Model),
		Year:              in.Year,
		RegistrationYear:  in.RegistrationYear,
		Price:             in.Price,
		KmRun:             in.KmRun,
		Fuel:              models.FuelType(in.Fuel),
		Transmission:      models.TransmissionType(in.Transmission),
		Ownership:         in.Ownership,
		Color:             strings.TrimSpace(in.Color),
		EngineCC:          in.EngineCC,
		AdditionalDetails: utils.TrimmedPtr(in.AdditionalDetails),
		InstagramReelURL:  utils.TrimmedPtr(in.InstagramReelURL),
	}

	switch {
	case out.Brand == "":
		fields["brand"] = "brand is required"
	case !catalog.HasBrand(out.Brand):
		fields["brand"] = fmt.Sprintf("unknown brand %q", out.Brand)
	case out.Model == "":
		fields["model"] = "model is required"
	case !catalog.HasModel(out.Brand, out.Model):
		fields["model"] = fmt.Sprintf("unknown model %q for brand %q", out.Model, out.Brand)
	}

	if out.Year < minYear || out.Year > currentYear {
		fields["year"] = fmt.Sprintf("year must be between %d and %d", minYear, currentYear)
	}
	if ry := out.RegistrationYear; ry != nil && (*ry < out.Year || *ry > currentYear) {
		fields["registration_year"] = fmt.Sprintf("registration year must be between the manufacture year and %d", currentYear)
	}
	if out.Price <= 0 {
		fields["price"] = "price must be positive"
	}
	if out.KmRun <= 0 {
		fields["km_run"] = "km run must be positive"
	}
	if !out.Fuel.Valid() {
		fields["fuel"] = "fuel must be Petrol, Diesel or Electric"
	}
	if !out.Transmission.Valid() {
		fields["transmission"] = "transmission must be Automatic or Manual"
	}
	if out.Ownership < 1 {
		fields["ownership"] = "ownership must be at least 1"
	}
	if out.Color == "" {
		fields["color"] = "color is required"
	}
	if out.EngineCC <= 0 {
		fields["engine_cc"] = "engine cc must be positive"
	}

	if len(in.Images) > utils.MaxListingImages {
		fields["images"] = fmt.Sprintf("at most %d images", utils.MaxListingImages)
	}
	out.Images = make(models.StringList, 0, len(in.Images))
	for _, img := range in.Images {
		img = strings.TrimSpace(img)
		if img == "" {
			fields["images"] = "image URLs must not be empty"
			continue
		}
		out.Images = append(out.Images, img)
	}

	badges := make(models.BadgeSet, 0, len(in.Badges))
	for _, b := range in.Badges {
		badge := models.CarBadge(strings.TrimSpace(b))
		if !badge.Valid() {
			fields["badges"] = fmt.Sprintf("unknown badge %q", b)
			continue
		}
		badges = append(badges, badge)
	}
	out.Badges = badges.Normalize()

	return out, fields
}

