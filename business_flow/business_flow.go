package businessflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/services"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"go.uber.org/zap"
)

// ClientMetadata holds client information recorded in the audit trail
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToListingDTO converts a car model to its external view
func ToListingDTO(car models.Car) dto.ListingDTO {
	images := make([]string, len(car.Images))
	copy(images, car.Images)
	badges := make([]string, 0, len(car.Badges))
	for _, b := range car.Badges {
		badges = append(badges, string(b))
	}

	return dto.ListingDTO{
		ID:                car.ID,
		UUID:              car.UUID.String(),
		Brand:             car.Brand,
		Model:             car.Model,
		Year:              car.Year,
		RegistrationYear:  car.RegistrationYear,
		Price:             car.Price,
		KmRun:             car.KmRun,
		Fuel:              string(car.Fuel),
		Transmission:      string(car.Transmission),
		Ownership:         car.Ownership,
		Color:             car.Color,
		EngineCC:          car.EngineCC,
		AdditionalDetails: car.AdditionalDetails,
		Images:            images,
		Badges:            badges,
		InstagramReelURL:  car.InstagramReelURL,
		Status:            car.Status.String(),
		SubmittedBy:       car.SubmittedBy,
		CreatedAt:         car.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         car.UpdatedAt.Format(time.RFC3339),
	}
}

// ToInquiryDTO converts an inquiry to its external view as seen by reader.
// Private notes are only exposed to the assignee.
func ToInquiryDTO(inq models.Inquiry, reader Actor) dto.InquiryDTO {
	out := dto.InquiryDTO{
		ID:                inq.ID,
		UUID:              inq.UUID.String(),
		CarID:             inq.CarID,
		CarSummary:        inq.CarSummary,
		CustomerName:      inq.CustomerName,
		CustomerPhone:     inq.CustomerPhone,
		CustomerID:        inq.CustomerID,
		Status:            inq.Status.String(),
		AssignedTo:        inq.AssignedTo,
		Remarks:           inq.Remarks,
		IsSeriousCustomer: inq.IsSeriousCustomer,
		CallPreference:    string(inq.CallPreference),
		SubmittedAt:       inq.SubmittedAt.Format(time.RFC3339),
		UpdatedAt:         inq.UpdatedAt.Format(time.RFC3339),
	}
	if inq.ScheduledCallTime != nil {
		s := inq.ScheduledCallTime.Format(time.RFC3339)
		out.ScheduledCallTime = &s
	}
	if !reader.IsAnonymous() && inq.IsAssignedTo(reader.ID) {
		notes := inq.PrivateNotes
		out.PrivateNotes = &notes
	}
	return out
}

// ToFilterCatalogDTO converts a catalog row to its external view
func ToFilterCatalogDTO(row models.FilterCatalog) dto.FilterCatalogDTO {
	doc := row.Document.Clone()
	out := dto.FilterCatalogDTO{
		Version: row.Version,
		Brands:  doc.Brands,
		Models:  doc.Models,
		Years:   doc.Years,
	}
	if !row.UpdatedAt.IsZero() {
		out.UpdatedAt = row.UpdatedAt.Format(time.RFC3339)
	}
	return out
}

// auditEntry is one audit row before it is written
type auditEntry struct {
	action     string
	entityType string
	entityID   *uint
	message    string
	success    bool
	err        error
	details    map[string]any
}

// auditor records audit rows. A failing audit write never fails the operation.
type auditor struct {
	repo   repository.AuditLogRepository
	logger *zap.Logger
}

func newAuditor(repo repository.AuditLogRepository, logger *zap.Logger) auditor {
	return auditor{repo: repo, logger: logger}
}

func (a auditor) record(ctx context.Context, actor Actor, metadata *ClientMetadata, e auditEntry) {
	if a.repo == nil {
		return
	}

	row := &models.AuditLog{
		Action:      e.action,
		EntityType:  e.entityType,
		EntityID:    e.entityID,
		Description: utils.ToPtr(e.message),
		Success:     utils.ToPtr(e.success),
	}
	if !actor.IsAnonymous() {
		row.ActorID = utils.ToPtr(actor.ID)
		row.ActorRole = utils.ToPtr(actor.Role.String())
	}
	if e.err != nil {
		row.ErrorMessage = utils.ToPtr(e.err.Error())
	}
	if len(e.details) > 0 {
		if raw, err := json.Marshal(e.details); err == nil {
			row.Metadata = raw
		}
	}

	requestID := utils.RequestIDFrom(ctx)
	if metadata != nil {
		if metadata.IPAddress != "" {
			row.IPAddress = utils.ToPtr(metadata.IPAddress)
		}
		if metadata.UserAgent != "" {
			row.UserAgent = utils.ToPtr(metadata.UserAgent)
		}
		if metadata.RequestID != "" {
			requestID = metadata.RequestID
		}
	}
	if requestID != "" {
		row.RequestID = utils.ToPtr(requestID)
	}

	if err := a.repo.Save(ctx, row); err != nil {
		a.logger.Warn("failed to write audit log",
			zap.String("action", e.action),
			zap.String("entity_type", e.entityType),
			zap.Error(err),
		)
	}
}

// notify emits a would-be notification. Delivery problems are logged only.
func notify(ctx context.Context, notifier services.NotificationService, logger *zap.Logger, n services.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		logger.Warn("notification not delivered", zap.String("kind", n.Kind), zap.Error(err))
	}
}

// pageBounds applies the list defaults: page 1, size 20, size at most 100
func pageBounds(page, pageSize int) (int, int, error) {
	if page < 0 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize < 0 || pageSize > utils.MaxPageSize {
		return 0, 0, ErrInvalidPageSize
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = utils.DefaultPageSize
	}
	return page, pageSize, nil
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
