package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/amirphl/Kuruma-no-Ichiba/repository"
)

// Capability is a named permission held by a role
type Capability string

const (
	CapListingCreate    Capability = "listing.create"
	CapListingUpdateAny Capability = "listing.update.any"
	CapListingUpdateOwn Capability = "listing.update.own"
	CapListingReview    Capability = "listing.review"
	CapListingDelete    Capability = "listing.delete"
	CapListingReadAll   Capability = "listing.read.all"
	CapListingReadOwn   Capability = "listing.read.own"

	CapInquiryCreate             Capability = "inquiry.create"
	CapInquiryAssign             Capability = "inquiry.assign"
	CapInquiryAssignee           Capability = "inquiry.assignee"
	CapInquiryStatusEdit         Capability = "inquiry.status.edit"
	CapInquiryStatusEditAssigned Capability = "inquiry.status.edit.assigned"
	CapInquiryCloseAny           Capability = "inquiry.close.any"
	CapInquiryCloseAssigned      Capability = "inquiry.close.assigned"
	CapInquiryNotes              Capability = "inquiry.notes"
	CapInquiryDelete             Capability = "inquiry.delete"
	CapInquiryReadAll            Capability = "inquiry.read.all"
	CapInquiryReadAssigned       Capability = "inquiry.read.assigned"

	CapCatalogWrite Capability = "catalog.write"
	CapReportExport Capability = "report.export"
)

type capabilitySet map[Capability]struct{}

func caps(cs ...Capability) capabilitySet {
	out := make(capabilitySet, len(cs))
	for _, c := range cs {
		out[c] = struct{}{}
	}
	return out
}

// capabilityTable is the only place where roles are mapped to what they may do
var capabilityTable = map[models.Role]capabilitySet{
	models.RoleAdmin: caps(
		CapListingCreate, CapListingUpdateAny, CapListingUpdateOwn, CapListingReview, CapListingDelete, CapListingReadAll,
		CapInquiryCreate, CapInquiryAssign, CapInquiryStatusEdit, CapInquiryCloseAny, CapInquiryNotes, CapInquiryDelete, CapInquiryReadAll,
		CapCatalogWrite, CapReportExport,
	),
	models.RoleManager: caps(
		CapListingReview, CapListingReadAll,
		CapInquiryCreate, CapInquiryAssign, CapInquiryStatusEdit, CapInquiryNotes, CapInquiryReadAll,
		CapCatalogWrite, CapReportExport,
	),
	models.RoleContentEditor: caps(
		CapListingCreate, CapListingUpdateOwn, CapListingReadOwn,
	),
	models.RoleSalesAgent: caps(
		CapInquiryAssignee, CapInquiryStatusEditAssigned, CapInquiryCloseAssigned, CapInquiryNotes, CapInquiryReadAssigned,
	),
	models.RoleCustomer: caps(
		CapInquiryCreate,
	),
}

// RoleHas reports whether the role holds the capability
func RoleHas(role models.Role, c Capability) bool {
	_, ok := capabilityTable[role][c]
	return ok
}

// Actor is the caller of an operation. Its role is resolved and trusted before the flow runs.
type Actor struct {
	ID   uint
	Role models.Role
}

// Anonymous is the actor of unauthenticated public calls
var Anonymous = Actor{}

func (a Actor) Can(c Capability) bool {
	return RoleHas(a.Role, c)
}

func (a Actor) IsAnonymous() bool {
	return a.ID == 0 || a.Role == ""
}

func (a Actor) String() string {
	if a.IsAnonymous() {
		return "anonymous"
	}
	return fmt.Sprintf("%s#%d", a.Role, a.ID)
}

// access describes what an operation needs: either the unscoped capability,
// or the scoped one when the actor relates to the target (owner or assignee).
type access struct {
	any     Capability
	scoped  Capability
	related bool
}

// authorize is the explicit authorization step each operation runs once
func authorize(actor Actor, need access) error {
	if need.any != "" && actor.Can(need.any) {
		return nil
	}
	if need.scoped != "" && need.related && actor.Can(need.scoped) {
		return nil
	}
	want := need.any
	if want == "" {
		want = need.scoped
	}
	return NewBusinessErrorf("PERMISSION_DENIED", "%s may not %s", ErrPermissionDenied, actor, want)
}

// ActorResolver resolves actor ids to roles
type ActorResolver interface {
	ResolveRole(ctx context.Context, id uint) (models.Role, error)
}

// StaffActorResolver resolves roles from active staff user records
type StaffActorResolver struct {
	users repository.StaffUserRepository
}

func NewActorResolver(users repository.StaffUserRepository) ActorResolver {
	return &StaffActorResolver{users: users}
}

// ResolveRole returns an empty role for unknown or inactive users
func (r *StaffActorResolver) ResolveRole(ctx context.Context, id uint) (models.Role, error) {
	user, err := r.users.ByID(ctx, id)
	if err != nil {
		return "", err
	}
	if user == nil || !user.Active() {
		return "", nil
	}
	return user.Role, nil
}
