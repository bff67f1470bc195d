package handlers

import (
	"fmt"

	businessflow "github.com/amirphl/Kuruma-no-Ichiba/business_flow"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandlerInterface defines the contract for report export handlers
type ReportHandlerInterface interface {
	ExportInquiries(c fiber.Ctx) error
	ExportListings(c fiber.Ctx) error
}

// ReportHandler streams spreadsheet exports
type ReportHandler struct {
	flow   businessflow.ReportFlow
	logger *zap.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(flow businessflow.ReportFlow, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{flow: flow, logger: logger}
}

// ExportInquiries downloads the filtered inquiry table. Private notes are never exported.
// @Summary Export inquiries
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "new|contacted|closed"
// @Param car_id query int false "Listing ID"
// @Param assigned_to query int false "Agent ID"
// @Param is_serious query bool false "Serious customer flag"
// @Success 200 {file} file "inquiries.xlsx"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Router /api/v1/admin/reports/inquiries.xlsx [get]
func (h *ReportHandler) ExportInquiries(c fiber.Ctx) error {
	req, bad, err := parseInquiryFilter(c)
	if bad {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/reports/inquiries.xlsx")
	defer cancel()

	name, content, err := h.flow.ExportInquiries(ctx, req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to export inquiries", "EXPORT_INQUIRIES_FAILED")
	}
	return sendSpreadsheet(c, name, content)
}

// ExportListings downloads listings with one sheet per status
// @Summary Export listings
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "pending|approved|rejected"
// @Param brand query string false "Brand"
// @Param submitted_by query int false "Submitting staff user"
// @Success 200 {file} file "listings.xlsx"
// @Failure 403 {object} dto.APIResponse "Forbidden"
// @Router /api/v1/admin/reports/listings.xlsx [get]
func (h *ReportHandler) ExportListings(c fiber.Ctx) error {
	req, bad, err := parseListingFilter(c)
	if bad {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/admin/reports/listings.xlsx")
	defer cancel()

	name, content, err := h.flow.ExportListings(ctx, req, actor(c), clientMetadata(c))
	if err != nil {
		return flowErrorResponse(c, h.logger, err, "Failed to export listings", "EXPORT_LISTINGS_FAILED")
	}
	return sendSpreadsheet(c, name, content)
}

func sendSpreadsheet(c fiber.Ctx, name string, content []byte) error {
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Status(fiber.StatusOK).Send(content)
}
