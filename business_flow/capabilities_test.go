package businessflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amirphl/Kuruma-no-Ichiba/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role models.Role
		cap  Capability
		want bool
	}{
		{models.RoleAdmin, CapCatalogWrite, true},
		{models.RoleAdmin, CapListingDelete, true},
		{models.RoleAdmin, CapInquiryCloseAny, true},
		{models.RoleAdmin, CapInquiryAssignee, false},
		{models.RoleManager, CapListingReview, true},
		{models.RoleManager, CapCatalogWrite, true},
		{models.RoleManager, CapListingDelete, false},
		{models.RoleManager, CapInquiryCloseAny, false},
		{models.RoleContentEditor, CapListingCreate, true},
		{models.RoleContentEditor, CapListingUpdateOwn, true},
		{models.RoleContentEditor, CapListingUpdateAny, false},
		{models.RoleContentEditor, CapListingReview, false},
		{models.RoleSalesAgent, CapInquiryAssignee, true},
		{models.RoleSalesAgent, CapInquiryCloseAssigned, true},
		{models.RoleSalesAgent, CapInquiryAssign, false},
		{models.RoleSalesAgent, CapListingCreate, false},
		{models.RoleCustomer, CapInquiryCreate, true},
		{models.RoleCustomer, CapInquiryReadAll, false},
		{models.Role(""), CapInquiryCreate, false},
		{models.Role("owner"), CapCatalogWrite, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.role, tc.cap), func(t *testing.T) {
			assert.Equal(t, tc.want, RoleHas(tc.role, tc.cap))
		})
	}
}

func TestAuthorize(t *testing.T) {
	agent := Actor{ID: 7, Role: models.RoleSalesAgent}
	need := access{any: CapInquiryStatusEdit, scoped: CapInquiryStatusEditAssigned}

	err := authorize(agent, need)
	require.Error(t, err)
	assert.Equal(t, KindPermission, KindOf(err))
	assert.Contains(t, err.Error(), "sales-agent#7")

	need.related = true
	assert.NoError(t, authorize(agent, need))
	assert.NoError(t, authorize(Actor{ID: 1, Role: models.RoleAdmin}, need))

	assert.Equal(t, "anonymous", Anonymous.String())
	assert.True(t, Actor{Role: models.RoleCustomer}.IsAnonymous())
}

func TestKindOf(t *testing.T) {
	cases := map[string]struct {
		err  error
		want ErrorKind
	}{
		"nil":               {nil, ""},
		"plain":             {errors.New("boom"), KindInternal},
		"not found":         {NewBusinessError("X", "x", ErrCarNotFound), KindNotFound},
		"wrapped conflict":  {fmt.Errorf("outer: %w", NewBusinessError("X", "x", ErrStaleCatalog)), KindConflict},
		"validation":        {NewBusinessError("X", "x", NewInvalidListing(map[string]string{"year": "bad"})), KindValidation},
		"missing images":    {NewBusinessError("X", "x", &ValidationError{Err: ErrMissingImages}), KindValidation},
		"cascade over kind": {fmt.Errorf("%w: %w", ErrCascadeFailed, ErrCarNotFound), KindCascadeFailed},
		"credentials":       {errors.Join(ErrInvalidCredentials, errors.New("expired")), KindUnauthenticated},
		"permission":        {NewBusinessError("X", "x", ErrPermissionDenied), KindPermission},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewBusinessError("INVALID_LISTING", "Listing is invalid", NewInvalidListing(map[string]string{
		"year":  "too old",
		"brand": "unknown",
	}))
	assert.ErrorIs(t, err, ErrInvalidListing)
	assert.True(t, IsInvalidListing(err))
	assert.Equal(t, map[string]string{"year": "too old", "brand": "unknown"}, FieldErrors(err))
	assert.Contains(t, err.Error(), "brand: unknown; year: too old")
	assert.Nil(t, FieldErrors(errors.New("plain")))
}

func TestPageBounds(t *testing.T) {
	page, size, err := pageBounds(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	_, size, err = pageBounds(2, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, size)
	_, _, err = pageBounds(2, 101)
	assert.ErrorIs(t, err, ErrInvalidPageSize)

	_, _, err = pageBounds(-1, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, _, err = pageBounds(1, -10)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}
