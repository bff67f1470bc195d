package businessflow

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReportFlow exports back-office tables as XLSX workbooks
type ReportFlow interface {
	ExportInquiries(ctx context.Context, req *dto.ListInquiriesRequest, actor Actor, metadata *ClientMetadata) (string, []byte, error)
	ExportListings(ctx context.Context, req *dto.ListListingsRequest, actor Actor, metadata *ClientMetadata) (string, []byte, error)
}

// ReportFlowImpl implements ReportFlow
type ReportFlowImpl struct {
	carRepo     repository.CarRepository
	inquiryRepo repository.InquiryRepository
	audit       auditor
	logger      *zap.Logger
}

func NewReportFlow(carRepo repository.CarRepository, inquiryRepo repository.InquiryRepository, auditRepo repository.AuditLogRepository, logger *zap.Logger) ReportFlow {
	logger = loggerOrNop(logger)
	return &ReportFlowImpl{
		carRepo:     carRepo,
		inquiryRepo: inquiryRepo,
		audit:       newAuditor(auditRepo, logger),
		logger:      logger,
	}
}

var inquiryReportHeader = []string{
	"id", "uuid", "car_id", "car_summary", "customer_name", "customer_phone", "status",
	"assigned_to", "remarks", "is_serious_customer", "call_preference", "scheduled_call_time", "submitted_at", "updated_at",
}

// ExportInquiries writes every inquiry matching the filter to one sheet. Private notes are never exported.
func (f *ReportFlowImpl) ExportInquiries(ctx context.Context, req *dto.ListInquiriesRequest, actor Actor, metadata *ClientMetadata) (string, []byte, error) {
	if err := authorize(actor, access{any: CapReportExport}); err != nil {
		return "", nil, err
	}

	filter := models.InquiryFilter{CarID: req.CarID, AssignedTo: req.AssignedTo, IsSerious: req.IsSerious}
	if req.Status != nil {
		status := models.InquiryStatus(strings.TrimSpace(*req.Status))
		if !status.Valid() {
			return "", nil, NewBusinessError("INVALID_STATUS", "Unknown inquiry status",
				&ValidationError{Err: ErrInvalidInquiry, Fields: map[string]string{"status": "unknown status"}})
		}
		filter.Status = &status
	}

	rows, err := f.inquiryRepo.ByFilter(ctx, filter, "submitted_at DESC, id DESC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_INQUIRIES_FAILED", "Failed to fetch inquiries", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "inquiries"
	xl.SetSheetName(xl.GetSheetName(0), sheet)
	_ = xl.SetSheetRow(sheet, "A1", &inquiryReportHeader)

	for ri, r := range rows {
		scheduled := ""
		if r.ScheduledCallTime != nil {
			scheduled = r.ScheduledCallTime.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.UUID.String(),
			strconv.FormatUint(uint64(r.CarID), 10),
			r.CarSummary,
			r.CustomerName,
			r.CustomerPhone,
			r.Status.String(),
			optionalID(r.AssignedTo),
			r.Remarks,
			strconv.FormatBool(r.IsSeriousCustomer),
			string(r.CallPreference),
			scheduled,
			r.SubmittedAt.UTC().Format(time.RFC3339),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	f.recordExport(ctx, actor, metadata, "inquiries", len(rows))
	return "inquiries.xlsx", buf.Bytes(), nil
}

var listingReportHeader = []string{
	"id", "uuid", "brand", "model", "year", "registration_year", "price", "km_run", "fuel", "transmission",
	"ownership", "color", "engine_cc", "images", "badges", "status", "submitted_by", "created_at", "updated_at",
}

// ExportListings writes one sheet per listing status, in pending, approved, rejected order
func (f *ReportFlowImpl) ExportListings(ctx context.Context, req *dto.ListListingsRequest, actor Actor, metadata *ClientMetadata) (string, []byte, error) {
	if err := authorize(actor, access{any: CapReportExport}); err != nil {
		return "", nil, err
	}

	filter := models.CarFilter{SubmittedBy: req.SubmittedBy, Brand: utils.TrimmedPtr(req.Brand)}
	if req.Status != nil {
		status := models.CarStatus(strings.TrimSpace(*req.Status))
		if !status.Valid() {
			return "", nil, NewBusinessError("INVALID_STATUS", "Unknown listing status",
				&ValidationError{Err: ErrInvalidListing, Fields: map[string]string{"status": "unknown status"}})
		}
		filter.Status = &status
	}

	rows, err := f.carRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_LISTINGS_FAILED", "Failed to fetch listings", err)
	}

	byStatus := make(map[models.CarStatus][]*models.Car)
	for _, r := range rows {
		byStatus[r.Status] = append(byStatus[r.Status], r)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	order := []models.CarStatus{models.CarStatusPending, models.CarStatusApproved, models.CarStatusRejected}
	for i, status := range order {
		name := status.String()
		if i == 0 {
			// Rename default sheet
			xl.SetSheetName(xl.GetSheetName(0), name)
		} else {
			_, _ = xl.NewSheet(name)
		}
		_ = xl.SetSheetRow(name, "A1", &listingReportHeader)

		for ri, c := range byStatus[status] {
			registration := ""
			if c.RegistrationYear != nil {
				registration = strconv.Itoa(*c.RegistrationYear)
			}
			badges := make([]string, 0, len(c.Badges))
			for _, b := range c.Badges {
				badges = append(badges, string(b))
			}
			record := []any{
				c.ID,
				c.UUID.String(),
				c.Brand,
				c.Model,
				c.Year,
				registration,
				c.Price,
				c.KmRun,
				string(c.Fuel),
				string(c.Transmission),
				c.Ownership,
				c.Color,
				c.EngineCC,
				strings.Join(c.Images, "\n"),
				strings.Join(badges, ","),
				c.Status.String(),
				c.SubmittedBy,
				c.CreatedAt.UTC().Format(time.RFC3339),
				c.UpdatedAt.UTC().Format(time.RFC3339),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			_ = xl.SetSheetRow(name, cellRef, &record)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	f.recordExport(ctx, actor, metadata, "listings", len(rows))
	return "listings.xlsx", buf.Bytes(), nil
}

func (f *ReportFlowImpl) recordExport(ctx context.Context, actor Actor, metadata *ClientMetadata, report string, rows int) {
	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionReportExported,
		entityType: report,
		message:    "Report exported",
		success:    true,
		details:    map[string]any{"rows": rows},
	})
	f.logger.Info("report exported", zap.String("report", report), zap.Int("rows", rows), zap.Stringer("actor", actor))
}

func optionalID(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}
