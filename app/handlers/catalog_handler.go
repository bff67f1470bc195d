package handlers

import (
	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// CatalogHandlerInterface defines the contract for filter catalog handlers
type CatalogHandlerInterface interface {
	GetFilters(c fiber.Ctx) error
	UpdateFilters(c fiber.Ctx) error
	ApplyOperation(c fiber.Ctx) error
}

// CatalogHandler serves the versioned brand/model/year vocabulary
type CatalogHandler struct {
	flow      businessflow.CatalogFlow
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogHandler creates a new filter catalog handler
func NewCatalogHandler(flow businessflow.CatalogFlow, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// GetFilters returns the current catalog snapshot
// @Summary Get filter catalog
// @Tags Catalog
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.FilterCatalogDTO} "Current catalog"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/catalog/filters [get]
func (h *CatalogHandler) GetFilters(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/catalog/filters")
	defer cancel()

	result, err := h.flow.GetFilterCatalog(ctx)
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to load filter catalog", "GET_CATALOG_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Filter catalog retrieved successfully", result)
}

// UpdateFilters replaces the whole catalog document at the submitted version
// @Summary Replace filter catalog
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateFilterCatalogRequest true "Catalog document and the version it was read at"
// @Success 200 {object} dto.APIResponse{data=dto.FilterCatalogDTO} "Catalog updated"
// @Failure 400 {object} dto.APIResponse "Invalid catalog"
// @Failure 403 {object} dto.APIResponse "Not allowed to edit the catalog"
// @Failure 409 {object} dto.APIResponse "Stale version"
// @Router /api/v1/admin/catalog/filters [put]
func (h *CatalogHandler) UpdateFilters(c fiber.Ctx) error {
	var req dto.UpdateFilterCatalogRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/catalog/filters")
	defer cancel()

	result, err := h.flow.UpdateFilterCatalog(ctx, &req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to update filter catalog", "UPDATE_CATALOG_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Filter catalog updated successfully", result)
}

// ApplyOperation applies one add/rename/remove operation at the submitted version
// @Summary Apply catalog operation
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CatalogOperationRequest true "Operation"
// @Success 200 {object} dto.APIResponse{data=dto.FilterCatalogDTO} "Catalog updated"
// @Failure 400 {object} dto.APIResponse "Invalid operation"
// @Failure 403 {object} dto.APIResponse "Not allowed to edit the catalog"
// @Failure 409 {object} dto.APIResponse "Stale version"
// @Router /api/v1/admin/catalog/filters/operations [post]
func (h *CatalogHandler) ApplyOperation(c fiber.Ctx) error {
	var req dto.CatalogOperationRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/catalog/filters/operations")
	defer cancel()

	result, err := h.flow.ApplyOperation(ctx, &req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to apply catalog operation", "CATALOG_OPERATION_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, "Catalog operation applied successfully", result)
}
