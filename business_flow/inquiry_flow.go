package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Kuruma-no-Ichiba/app/dto"
	"github.com/amirphl/Kuruma-no-Ichiba/app/services"
	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
	"github.com/amirphl/Kuruma-no-Ichiba/utils"
	"go.uber.org/zap"
)

// InquiryFlow routes purchase inquiries from creation to closure
type InquiryFlow interface {
	CreateInquiry(ctx context.Context, req *dto.CreateInquiryRequest, actor Actor, metadata *ClientMetadata) (*dto.InquiryDTO, error)
	AssignInquiry(ctx context.Context, req *dto.AssignInquiryRequest, actor Actor, metadata *ClientMetadata) (*dto.InquiryDTO, error)
	UpdateInquiryStatus(ctx context.Context, req *dto.UpdateInquiryStatusRequest, actor Actor, metadata *ClientMetadata) (*dto.InquiryDTO, error)
	UpdateInquiryNotes(ctx context.Context, req *dto.UpdateInquiryNotesRequest, actor Actor, metadata *ClientMetadata) (*dto.InquiryDTO, error)
	DeleteInquiry(ctx context.Context, id uint, actor Actor, metadata *ClientMetadata) error
	GetInquiry(ctx context.Context, id uint, actor Actor) (*dto.InquiryDTO, error)
	ListInquiries(ctx context.Context, req *dto.ListInquiriesRequest, actor Actor) (*dto.ListInquiriesResponse, error)
}

// InquiryFlowImpl implements InquiryFlow
type InquiryFlowImpl struct {
	inquiryRepo repository.InquiryRepository
	carRepo     repository.CarRepository
	actors      ActorResolver
	audit       auditor
	notifier    services.NotificationService
	logger      *zap.Logger
}

func NewInquiryFlow(
	inquiryRepo repository.InquiryRepository,
	carRepo repository.CarRepository,
	actors ActorResolver,
	auditRepo repository.AuditLogRepository,
	notifier services.NotificationService,
	logger *zap.Logger,
) InquiryFlow {
	logger = loggerOrNop(logger)
	return &InquiryFlowImpl{
		inquiryRepo: inquiryRepo,
		carRepo:     carRepo,
		actors:      actors,
		audit:       newAuditor(auditRepo, logger),
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateInquiry records a customer's interest in a car.
// Visitors without an account act as customers. Customers only reach approved cars.
func (f *InquiryFlowImpl) CreateInquiry(ctx context.Context, req *dto.CreateInquiryRequest, actor Actor, metadata *ClientMetadata) (*dto.InquiryDTO, error) {
	creator := actor
	if creator.IsAnonymous() {
		creator = Actor{Role: models.RoleCustomer}
	}
	if err := authorize(creator, access{any: CapInquiryCreate}); err != nil {
		return nil, err
	}

	inq := &models.Inquiry{
		CarID:             req.CarID,
		CustomerName:      strings.TrimSpace(req.CustomerName),
		CustomerPhone:     strings.TrimSpace(req.CustomerPhone),
		Status:            models.InquiryStatusNew,
		CallPreference:    models.CallPreference(req.CallPreference),
		ScheduledCallTime: utils.TimeToUTCPtr(req.ScheduledCallTime),
	}
	if fields := validateInquiry(inq); len(fields) > 0 {
		return nil, NewBusinessError("INVALID_INQUIRY", "Inquiry is invalid", &ValidationError{Err: ErrInvalidInquiry, Fields: fields})
	}

	car, err := f.carRepo.ByID(ctx, req.CarID)
	if err != nil {
		return nil, NewBusinessError("LOAD_LISTING_FAILED", "Failed to load listing", err)
	}
	if car == nil || (creator.Role == models.RoleCustomer && !car.IsVisible()) {
		return nil, NewBusinessErrorf("LISTING_NOT_FOUND", "Listing %d not found", ErrCarNotFound, req.CarID)
	}

	inq.CarSummary = car.Summary()
	if creator.Role == models.RoleCustomer && !creator.IsAnonymous() {
		inq.CustomerID = utils.ToPtr(creator.ID)
	}

	if err := f.inquiryRepo.Save(ctx, inq); err != nil {
		return nil, NewBusinessError("CREATE_INQUIRY_FAILED", "Failed to save inquiry", err)
	}

	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionInquiryCreated,
		entityType: models.AuditEntityInquiry,
		entityID:   utils.ToPtr(inq.ID),
		message:    "Inquiry submitted",
		success:    true,
		details:    map[string]any{"car_id": car.ID, "car_summary": inq.CarSummary},
	})
	notify(ctx, f.notifier, f.logger, services.Notification{
		Kind:          services.NotifyInquiryCreated,
		RecipientRole: models.RoleAdmin.String(),
		Subject:       inq.CarSummary,
		Fields:        map[string]any{"inquiry_id": inq.ID, "call_preference": string(inq.CallPreference)},
	})

	out := ToInquiryDTO(*inq, actor)
	return &out, nil
}

func validateInquiry(inq *models.Inquiry) map[string]string {
	fields := map[string]string{}
	if inq.CustomerName == "" {
		fields["customer_name"] = "customer name is required"
	}
	if inq.CustomerPhone == "" {
		fields["customer_phone"] = "customer phone is required"
	}
	if inq.CallPreference == "" {
		inq.CallPreference = models.CallPreferenceNow
	}
	switch inq.CallPreference {
	case models.CallPreferenceNow:
		inq.ScheduledCallTime = nil
	case models.CallPreferenceSchedule:
		if inq.ScheduledCallTime == nil {
			fields["scheduled_call_time"] = "a scheduled call needs a time"
		} else if !inq.ScheduledCallTime.After(utils.UTCNow()) {
			fields["scheduled_call_time"] = "scheduled call time must be in the future"
		}
	default:
		fields["call_preference"] = "call preference must be now or schedule"
	}
	return fields
}

// AssignInquiry routes the inquiry to a sales agent. A new inquiry becomes contacted;
// reassignment keeps the status, remarks and notes.
func (f *InquiryFlowImpl) AssignInquiry(ctx context.Context, req *dto.AssignInquiryRequest, actor Actor, metadata *ClientMetadata) (*dto.InquiryDTO, error) {
	if err := authorize(actor, access{any: CapInquiryAssign}); err != nil {
		return nil, err
	}

	inq, err := f.loadInquiry(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	role, err := f.actors.ResolveRole(ctx, req.AgentID)
	if err != nil {
		return nil, NewBusinessError("RESOLVE_AGENT_FAILED", "Failed to resolve agent", err)
	}
	if !RoleHas(role, CapInquiryAssignee) {
		return nil, NewBusinessErrorf("UNKNOWN_AGENT", "Actor %d is not a sales agent", ErrUnknownAgent, req.AgentID)
	}

	to := inq.Status
	if to == models.InquiryStatusNew {
		to = models.InquiryStatusContacted
	}
	previous := inq.AssignedTo
	err = f.applyInquiryTransition(ctx, inq, to, func(i *models.Inquiry) {
		i.AssignedTo = utils.ToPtr(req.AgentID)
	})
	if err != nil {
		return nil, err
	}

	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionInquiryAssigned,
		entityType: models.AuditEntityInquiry,
		entityID:   utils.ToPtr(inq.ID),
		message:    fmt.Sprintf("Inquiry assigned to %d", req.AgentID),
		success:    true,
		details:    map[string]any{"agent_id": req.AgentID, "previous_agent_id": previous},
	})
	notify(ctx, f.notifier, f.logger, services.Notification{
		Kind:        services.NotifyInquiryAssigned,
		RecipientID: utils.ToPtr(req.AgentID),
		Subject:     inq.CarSummary,
		Fields:      map[string]any{"inquiry_id": inq.ID},
	})

	out := ToInquiryDTO(*inq, actor)
	return &out, nil
}

// UpdateInquiryStatus edits status and remarks. Closing requires remarks and is the
// only moment the serious-customer flag can be set.
func (f *InquiryFlowImpl) UpdateInquiryStatus(ctx context.Context, req *dto.UpdateInquiryStatusRequest, actor Actor, metadata *ClientMetadata) (*dto.InquiryDTO, error) {
	to := models.InquiryStatus(req.Status)
	if !to.Valid() {
		return nil, NewBusinessError("INVALID_STATUS", "Unknown inquiry status",
			&ValidationError{Err: ErrInvalidInquiry, Fields: map[string]string{"status": "must be new, contacted or closed"}})
	}

	inq, err := f.loadInquiry(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	assigned := inq.IsAssignedTo(actor.ID)
	need := access{any: CapInquiryStatusEdit, scoped: CapInquiryStatusEditAssigned, related: assigned}
	if to == models.InquiryStatusClosed {
		need = access{any: CapInquiryCloseAny, scoped: CapInquiryCloseAssigned, related: assigned}
	}
	if err := authorize(actor, need); err != nil {
		return nil, err
	}
	if req.PrivateNotes != nil && !assigned {
		return nil, NewBusinessError("PERMISSION_DENIED", "Only the assignee may write private notes", ErrPermissionDenied)
	}
	if req.IsSeriousCustomer != nil && to != models.InquiryStatusClosed {
		return nil, NewBusinessError("INVALID_INQUIRY", "The serious customer flag is set when closing",
			&ValidationError{Err: ErrInvalidInquiry, Fields: map[string]string{"is_serious_customer": "can only be set when closing"}})
	}

	from := inq.Status
	err = f.applyInquiryTransition(ctx, inq, to, func(i *models.Inquiry) {
		if req.Remarks != nil {
			i.Remarks = strings.TrimSpace(*req.Remarks)
		}
		if req.PrivateNotes != nil {
			i.PrivateNotes = *req.PrivateNotes
		}
		if req.IsSeriousCustomer != nil {
			i.IsSeriousCustomer = *req.IsSeriousCustomer
		}
	})
	if err != nil {
		return nil, err
	}

	action := models.AuditActionInquiryStatus
	if to == models.InquiryStatusClosed {
		action = models.AuditActionInquiryClosed
	}
	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     action,
		entityType: models.AuditEntityInquiry,
		entityID:   utils.ToPtr(inq.ID),
		message:    fmt.Sprintf("Inquiry %s -> %s", from, to),
		success:    true,
		details:    map[string]any{"serious": inq.IsSeriousCustomer},
	})
	if to == models.InquiryStatusClosed && inq.IsSeriousCustomer {
		notify(ctx, f.notifier, f.logger, services.Notification{
			Kind:          services.NotifySeriousCustomer,
			RecipientRole: models.RoleManager.String(),
			Subject:       inq.CarSummary,
			Fields:        map[string]any{"inquiry_id": inq.ID, "customer_phone": inq.CustomerPhone},
		})
	}

	out := ToInquiryDTO(*inq, actor)
	return &out, nil
}

// applyInquiryTransition is the only place an inquiry status is written.
// Closed is terminal. Moving to closed needs non-empty remarks after change is applied.
// The whole row is written, so concurrent writers race last-write-wins.
func (f *InquiryFlowImpl) applyInquiryTransition(ctx context.Context, inq *models.Inquiry, to models.InquiryStatus, change func(*models.Inquiry)) error {
	from := inq.Status
	if inq.IsClosed() {
		return NewBusinessErrorf("INQUIRY_CLOSED", "Inquiry %d is closed", ErrInquiryClosed, inq.ID)
	}

	next := *inq
	if change != nil {
		change(&next)
	}
	if to == models.InquiryStatusClosed && strings.TrimSpace(next.Remarks) == "" {
		return NewBusinessError("MISSING_CLOSURE_REPORT", "Remarks are required to close an inquiry",
			&ValidationError{Err: ErrMissingClosureReport, Fields: map[string]string{"remarks": "closure report is required"}})
	}
	next.Status = to

	if err := f.inquiryRepo.Update(ctx, &next); err != nil {
		return NewBusinessError("UPDATE_INQUIRY_FAILED", "Failed to update inquiry", err)
	}
	*inq = next

	if from != to {
		inquiryTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
		f.logger.Info("inquiry status changed",
			zap.Uint("inquiry_id", inq.ID),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return nil
}

// UpdateInquiryNotes replaces the private notes. Only the assignee may do so, at any status.
func (f *InquiryFlowImpl) UpdateInquiryNotes(ctx context.Context, req *dto.UpdateInquiryNotesRequest, actor Actor, metadata *ClientMetadata) (*dto.InquiryDTO, error) {
	inq, err := f.loadInquiry(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, access{scoped: CapInquiryNotes, related: inq.IsAssignedTo(actor.ID)}); err != nil {
		return nil, err
	}

	updated, err := f.inquiryRepo.UpdatePrivateNotes(ctx, inq.ID, req.PrivateNotes)
	if err != nil {
		return nil, NewBusinessError("UPDATE_INQUIRY_NOTES_FAILED", "Failed to update notes", err)
	}
	if !updated {
		return nil, NewBusinessErrorf("INQUIRY_NOT_FOUND", "Inquiry %d not found", ErrInquiryNotFound, inq.ID)
	}
	if inq, err = f.loadInquiry(ctx, req.ID); err != nil {
		return nil, err
	}

	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionInquiryNotes,
		entityType: models.AuditEntityInquiry,
		entityID:   utils.ToPtr(inq.ID),
		message:    "Private notes updated",
		success:    true,
	})

	out := ToInquiryDTO(*inq, actor)
	return &out, nil
}

// DeleteInquiry removes one inquiry independently of its car
func (f *InquiryFlowImpl) DeleteInquiry(ctx context.Context, id uint, actor Actor, metadata *ClientMetadata) error {
	if err := authorize(actor, access{any: CapInquiryDelete}); err != nil {
		return err
	}

	deleted, err := f.inquiryRepo.DeleteByID(ctx, id)
	if err != nil {
		return NewBusinessError("DELETE_INQUIRY_FAILED", "Failed to delete inquiry", err)
	}
	if !deleted {
		return NewBusinessErrorf("INQUIRY_NOT_FOUND", "Inquiry %d not found", ErrInquiryNotFound, id)
	}

	f.audit.record(ctx, actor, metadata, auditEntry{
		action:     models.AuditActionInquiryDeleted,
		entityType: models.AuditEntityInquiry,
		entityID:   utils.ToPtr(id),
		message:    "Inquiry deleted",
		success:    true,
	})
	return nil
}

// GetInquiry reads one inquiry. Agents only reach inquiries assigned to them.
func (f *InquiryFlowImpl) GetInquiry(ctx context.Context, id uint, actor Actor) (*dto.InquiryDTO, error) {
	inq, err := f.loadInquiry(ctx, id)
	if err != nil {
		return nil, err
	}
	need := access{any: CapInquiryReadAll, scoped: CapInquiryReadAssigned, related: inq.IsAssignedTo(actor.ID)}
	if authorize(actor, need) != nil {
		return nil, NewBusinessErrorf("INQUIRY_NOT_FOUND", "Inquiry %d not found", ErrInquiryNotFound, id)
	}

	out := ToInquiryDTO(*inq, actor)
	return &out, nil
}

func (f *InquiryFlowImpl) ListInquiries(ctx context.Context, req *dto.ListInquiriesRequest, actor Actor) (resp *dto.ListInquiriesResponse, err error) {
	assignedOnly := !actor.Can(CapInquiryReadAll)
	if err := authorize(actor, access{any: CapInquiryReadAll, scoped: CapInquiryReadAssigned, related: true}); err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			err = NewBusinessError("LIST_INQUIRIES_FAILED", "Failed to list inquiries", err)
		}
	}()

	page, pageSize, err := pageBounds(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	filter := models.InquiryFilter{
		CarID:      req.CarID,
		AssignedTo: req.AssignedTo,
		IsSerious:  req.IsSerious,
	}
	if assignedOnly {
		filter.AssignedTo = utils.ToPtr(actor.ID)
	}
	if req.Status != nil {
		status := models.InquiryStatus(strings.TrimSpace(*req.Status))
		if !status.Valid() {
			return nil, &ValidationError{Err: ErrInvalidInquiry, Fields: map[string]string{"status": "unknown status"}}
		}
		filter.Status = &status
	}

	total, err := f.inquiryRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows, err := f.inquiryRepo.ByFilter(ctx, filter, "submitted_at DESC, id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	items := make([]dto.InquiryDTO, 0, len(rows))
	for _, r := range rows {
		items = append(items, ToInquiryDTO(*r, actor))
	}
	return &dto.ListInquiriesResponse{
		Items:      items,
		Pagination: dto.NewPaginationInfo(page, pageSize, total),
	}, nil
}

func (f *InquiryFlowImpl) loadInquiry(ctx context.Context, id uint) (*models.Inquiry, error) {
	inq, err := f.inquiryRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("LOAD_INQUIRY_FAILED", "Failed to load inquiry", err)
	}
	if inq == nil {
		return nil, NewBusinessErrorf("INQUIRY_NOT_FOUND", "Inquiry %d not found", ErrInquiryNotFound, id)
	}
	return inq, nil
}
