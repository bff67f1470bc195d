package handlers

import (
	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ListingHandlerInterface defines the contract for listing handlers
type ListingHandlerInterface interface {
	Search(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Transition(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

// ListingHandler handles the public catalog and the back-office listing table
type ListingHandler struct {
	flow      businessflow.ListingFlow
	search    businessflow.SearchFlow
	validator *validator.Validate
	logger    *zap.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(flow businessflow.ListingFlow, search businessflow.SearchFlow, logger *zap.Logger) *ListingHandler {
	return &ListingHandler{
		flow:      flow,
		search:    search,
		validator: validator.New(),
		logger:    logger,
	}
}

// Search lists approved listings matching the query, newest first by default
// @Summary Search listings
// @Tags Listings
// @Produce json
// @Param brands query string false "Comma separated brands, or repeated"
// @Param model query string false "Model, honoured only with exactly one brand"
// @Param year query int false "Manufacture year"
// @Param registration_year query int false "Registration year"
// @Param price_min query int false "Inclusive lower price bound"
// @Param price_max query int false "Inclusive upper price bound"
// @Param km_min query int false "Inclusive lower odometer bound"
// @Param km_max query int false "Inclusive upper odometer bound"
// @Param color query string false "Color substring"
// @Param q query string false "Free text"
// @Param sort query string false "newest|oldest|price_asc|price_desc|km_asc"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.SearchListingsResponse} "Matching listings"
// @Failure 400 {object} dto.APIResponse "Invalid query"
// @Router /api/v1/listings/search [get]
func (h *ListingHandler) Search(c fiber.Ctx) error {
	q := newQueryParser(c)
	brands := q.list("brands")
	if len(brands) == 0 {
		brands = q.list("brand")
	}
	req := dto.SearchListingsRequest{
		Brands:           brands,
		Model:            q.str("model"),
		Year:             q.int("year"),
		RegistrationYear: q.int("registration_year"),
		PriceMin:         q.int64("price_min"),
		PriceMax:         q.int64("price_max"),
		KmMin:            q.int64("km_min"),
		KmMax:            q.int64("km_max"),
		Color:            q.str("color"),
		FreeText:         q.str("q"),
		Sort:             c.Query("sort"),
		Offset:           q.intOr("offset", 0),
		Limit:            q.intOr("limit", 0),
	}
	if bad, err := q.failed(); bad {
		return err
	}
	if err := h.validator.Struct(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	}

	ctx, cancel := createRequestContext(c, "/api/v1/listings/search")
	defer cancel()

	result, err := h.search.SearchListings(ctx, &req)
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to search listings", "SEARCH_LISTINGS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Listings retrieved successfully", result)
}

// Get returns one listing. Listings that are not approved are only visible to staff who may review or own them.
// @Summary Get listing
// @Tags Listings
// @Produce json
// @Param id path int true "Listing ID"
// @Param with_summary query bool false "Attach a generated summary"
// @Success 200 {object} dto.APIResponse{data=dto.GetListingResponse} "Listing"
// @Failure 404 {object} dto.APIResponse "Listing not found"
// @Router /api/v1/listings/{id} [get]
func (h *ListingHandler) Get(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid listing ID", "INVALID_ID", err.Error())
	}
	q := newQueryParser(c)
	withSummary := q.bool("with_summary")
	if bad, err := q.failed(); bad {
		return err
	}

	req := dto.GetListingRequest{ID: id, WithSummary: withSummary != nil && *withSummary}

	ctx, cancel := createRequestContext(c, "/api/v1/listings/:id")
	defer cancel()

	result, err := h.flow.GetListing(ctx, &req, actor(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to get listing", "GET_LISTING_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Listing retrieved successfully", result)
}

// List returns the back-office listing table. Content editors only see their own submissions.
// @Summary List listings
// @Tags Listings
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending|approved|rejected"
// @Param brand query string false "Brand"
// @Param submitted_by query int false "Submitting staff user"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListListingsResponse} "Listings"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Router /api/v1/admin/listings [get]
func (h *ListingHandler) List(c fiber.Ctx) error {
	req, bad, err := parseListingFilter(c)
	if bad {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/listings")
	defer cancel()

	result, err := h.flow.ListListings(ctx, req, actor(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to list listings", "LIST_LISTINGS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Listings retrieved successfully", result)
}

// Create submits a listing for review
// @Summary Create listing
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateListingRequest true "Listing"
// @Success 201 {object} dto.APIResponse{data=dto.ListingDTO} "Listing created as pending"
// @Failure 400 {object} dto.APIResponse "Invalid listing"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Router /api/v1/admin/listings [post]
func (h *ListingHandler) Create(c fiber.Ctx) error {
	var req dto.CreateListingRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/listings")
	defer cancel()

	result, err := h.flow.CreateListing(ctx, &req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to create listing", "CREATE_LISTING_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Listing created successfully", result)
}

// Update replaces the listing content and sends it back to review
// @Summary Update listing
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Listing ID"
// @Param request body dto.UpdateListingRequest true "Listing"
// @Success 200 {object} dto.APIResponse{data=dto.ListingDTO} "Listing updated and pending"
// @Failure 400 {object} dto.APIResponse "Invalid listing"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 404 {object} dto.APIResponse "Listing not found"
// @Router /api/v1/admin/listings/{id} [put]
func (h *ListingHandler) Update(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid listing ID", "INVALID_ID", err.Error())
	}
	var req dto.UpdateListingRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.ID = id

	ctx, cancel := createRequestContext(c, "/api/v1/admin/listings/:id")
	defer cancel()

	result, err := h.flow.UpdateListing(ctx, &req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to update listing", "UPDATE_LISTING_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Listing updated successfully", result)
}

// Transition approves or rejects a pending listing
// @Summary Review listing
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Listing ID"
// @Param request body dto.TransitionListingRequest true "Target status"
// @Success 200 {object} dto.APIResponse{data=dto.ListingDTO} "Listing reviewed"
// @Failure 400 {object} dto.APIResponse "Listing has no images"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 409 {object} dto.APIResponse "Listing is not pending"
// @Router /api/v1/admin/listings/{id}/transition [post]
func (h *ListingHandler) Transition(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid listing ID", "INVALID_ID", err.Error())
	}
	var req dto.TransitionListingRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.ID = id

	ctx, cancel := createRequestContext(c, "/api/v1/admin/listings/:id/transition")
	defer cancel()

	result, err := h.flow.TransitionListing(ctx, &req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to change listing status", "TRANSITION_LISTING_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Listing status updated successfully", result)
}

// Delete removes a listing together with its inquiries
// @Summary Delete listing
// @Tags Listings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Listing ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteListingResponse} "Listing and inquiries deleted"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 404 {object} dto.APIResponse "Listing not found"
// @Failure 500 {object} dto.APIResponse "Inquiries could not be deleted, listing kept"
// @Router /api/v1/admin/listings/{id} [delete]
func (h *ListingHandler) Delete(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid listing ID", "INVALID_ID", err.Error())
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/listings/:id")
	defer cancel()

	result, err := h.flow.DeleteListing(ctx, id, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to delete listing", "DELETE_LISTING_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Listing deleted successfully", result)
}

func parseListingFilter(c fiber.Ctx) (*dto.ListListingsRequest, bool, error) {
	q := newQueryParser(c)
	req := &dto.ListListingsRequest{
		Status:      q.str("status"),
		Brand:       q.str("brand"),
		SubmittedBy: q.uint("submitted_by"),
		Page:        q.intOr("page", 0),
		PageSize:    q.intOr("page_size", 0),
	}
	bad, err := q.failed()
	return req, bad, err
}
