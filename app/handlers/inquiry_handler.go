package handlers

import (
	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// InquiryHandlerInterface defines the contract for inquiry handlers
type InquiryHandlerInterface interface {
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Assign(c fiber.Ctx) error
	UpdateStatus(c fiber.Ctx) error
	UpdateNotes(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

// InquiryHandler handles customer purchase inquiries and their routing to sales agents
type InquiryHandler struct {
	flow      businessflow.InquiryFlow
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInquiryHandler creates a new inquiry handler
func NewInquiryHandler(flow businessflow.InquiryFlow, logger *zap.Logger) *InquiryHandler {
	return &InquiryHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// Create registers purchase interest in an approved listing. Authentication is optional.
// @Summary Create inquiry
// @Tags Inquiries
// @Accept json
// @Produce json
// @Param request body dto.CreateInquiryRequest true "Inquiry"
// @Success 201 {object} dto.APIResponse{data=dto.InquiryDTO} "Inquiry created"
// @Failure 400 {object} dto.APIResponse "Invalid inquiry"
// @Failure 404 {object} dto.APIResponse "Listing not found"
// @Router /api/v1/inquiries [post]
func (h *InquiryHandler) Create(c fiber.Ctx) error {
	var req dto.CreateInquiryRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/inquiries")
	defer cancel()

	result, err := h.flow.CreateInquiry(ctx, &req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to create inquiry", "CREATE_INQUIRY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, "Inquiry submitted successfully", result)
}

// List returns inquiries visible to the caller. Sales agents only see their assignments.
// @Summary List inquiries
// @Tags Inquiries
// @Produce json
// @Security BearerAuth
// @Param status query string false "new|contacted|closed"
// @Param car_id query int false "Listing ID"
// @Param assigned_to query int false "Agent ID"
// @Param is_serious query bool false "Serious customer flag"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=dto.ListInquiriesResponse} "Inquiries"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Router /api/v1/admin/inquiries [get]
func (h *InquiryHandler) List(c fiber.Ctx) error {
	req, bad, err := parseInquiryFilter(c)
	if bad {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/inquiries")
	defer cancel()

	result, err := h.flow.ListInquiries(ctx, req, actor(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to list inquiries", "LIST_INQUIRIES_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Inquiries retrieved successfully", result)
}

// Get returns one inquiry
// @Summary Get inquiry
// @Tags Inquiries
// @Produce json
// @Security BearerAuth
// @Param id path int true "Inquiry ID"
// @Success 200 {object} dto.APIResponse{data=dto.InquiryDTO} "Inquiry"
// @Failure 404 {object} dto.APIResponse "Inquiry not found"
// @Router /api/v1/admin/inquiries/{id} [get]
func (h *InquiryHandler) Get(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid inquiry ID", "INVALID_ID", err.Error())
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/inquiries/:id")
	defer cancel()

	result, err := h.flow.GetInquiry(ctx, id, actor(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to get inquiry", "GET_INQUIRY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Inquiry retrieved successfully", result)
}

// Assign routes the inquiry to a sales agent
// @Summary Assign inquiry
// @Tags Inquiries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Inquiry ID"
// @Param request body dto.AssignInquiryRequest true "Agent"
// @Success 200 {object} dto.APIResponse{data=dto.InquiryDTO} "Inquiry assigned"
// @Failure 400 {object} dto.APIResponse "Unknown agent"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 409 {object} dto.APIResponse "Inquiry is closed"
// @Router /api/v1/admin/inquiries/{id}/assign [post]
func (h *InquiryHandler) Assign(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid inquiry ID", "INVALID_ID", err.Error())
	}
	var req dto.AssignInquiryRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.ID = id

	ctx, cancel := createRequestContext(c, "/api/v1/admin/inquiries/:id/assign")
	defer cancel()

	result, err := h.flow.AssignInquiry(ctx, &req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to assign inquiry", "ASSIGN_INQUIRY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Inquiry assigned successfully", result)
}

// UpdateStatus moves the inquiry between new, contacted and closed
// @Summary Update inquiry status
// @Tags Inquiries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Inquiry ID"
// @Param request body dto.UpdateInquiryStatusRequest true "Status change"
// @Success 200 {object} dto.APIResponse{data=dto.InquiryDTO} "Inquiry updated"
// @Failure 400 {object} dto.APIResponse "Closing without remarks"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 409 {object} dto.APIResponse "Inquiry is closed"
// @Router /api/v1/admin/inquiries/{id}/status [post]
func (h *InquiryHandler) UpdateStatus(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid inquiry ID", "INVALID_ID", err.Error())
	}
	var req dto.UpdateInquiryStatusRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.ID = id

	ctx, cancel := createRequestContext(c, "/api/v1/admin/inquiries/:id/status")
	defer cancel()

	result, err := h.flow.UpdateInquiryStatus(ctx, &req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to update inquiry status", "UPDATE_INQUIRY_STATUS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Inquiry status updated successfully", result)
}

// UpdateNotes replaces the assignee's private notes
// @Summary Update private notes
// @Tags Inquiries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Inquiry ID"
// @Param request body dto.UpdateInquiryNotesRequest true "Notes"
// @Success 200 {object} dto.APIResponse{data=dto.InquiryDTO} "Notes updated"
// @Failure 403 {object} dto.APIResponse "Only the assignee may edit notes"
// @Router /api/v1/admin/inquiries/{id}/notes [put]
func (h *InquiryHandler) UpdateNotes(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid inquiry ID", "INVALID_ID", err.Error())
	}
	var req dto.UpdateInquiryNotesRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.ID = id

	ctx, cancel := createRequestContext(c, "/api/v1/admin/inquiries/:id/notes")
	defer cancel()

	result, err := h.flow.UpdateInquiryNotes(ctx, &req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to update notes", "UPDATE_INQUIRY_NOTES_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Notes updated successfully", result)
}

// Delete removes an inquiry. The listing is untouched.
// @Summary Delete inquiry
// @Tags Inquiries
// @Produce json
// @Security BearerAuth
// @Param id path int true "Inquiry ID"
// @Success 200 {object} dto.APIResponse "Inquiry deleted"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Failure 404 {object} dto.APIResponse "Inquiry not found"
// @Router /api/v1/admin/inquiries/{id} [delete]
func (h *InquiryHandler) Delete(c fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid inquiry ID", "INVALID_ID", err.Error())
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/inquiries/:id")
	defer cancel()

	if err := h.flow.DeleteInquiry(ctx, id, actor(c), clientMetadata(c)); err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to delete inquiry", "DELETE_INQUIRY_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Inquiry deleted successfully", fiber.Map{"id": id})
}

func parseInquiryFilter(c fiber.Ctx) (*dto.ListInquiriesRequest, bool, error) {
	q := newQueryParser(c)
	req := &dto.ListInquiriesRequest{
		Status:     q.str("status"),
		CarID:      q.uint("car_id"),
		AssignedTo: q.uint("assigned_to"),
		IsSerious:  q.bool("is_serious"),
		Page:       q.intOr("page", 0),
		PageSize:   q.intOr("page_size", 0),
	}
	bad, err := q.failed()
	return req, bad, err
}
