package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestApplicantCapabilities(t *testing.T) {
	caller := Caller{ID: uuid.New(), Role: RoleApplicant}

	assert.True(t, caller.Can(CapApplicationsCreate))
	assert.True(t, caller.Can(CapDocumentsUpload))
	assert.False(t, caller.Can(CapApplicationsChangeStatus))
	assert.False(t, caller.Can(CapDocumentsVerify))
	assert.False(t, caller.IsAdmin())
}

func TestAdminHoldsEveryCapability(t *testing.T) {
	caller := Caller{ID: uuid.New(), Role: RoleAdmin}

	for _, c := range []Capability{
		CapApplicationsCreate, CapApplicationsReadAny, CapApplicationsWriteAny,
		CapApplicationsChangeStatus, CapDocumentsUpload, CapDocumentsReadAny,
		CapDocumentsVerify, CapDocumentsDeleteAny, CapPaymentsCreate,
		CapPaymentsReadAny, CapBiometricsWriteAny, CapBiometricsReadAny,
	} {
		assert.True(t, caller.Can(c), string(c))
	}
}

func TestUnknownRoleHasNothing(t *testing.T) {
	caller := Caller{ID: uuid.New(), Role: Role("officer")}

	assert.False(t, caller.Role.Valid())
	assert.False(t, caller.Can(CapApplicationsCreate))
}

func TestCanAccess(t *testing.T) {
	owner := uuid.New()
	applicant := Caller{ID: owner, Role: RoleApplicant}
	stranger := Caller{ID: uuid.New(), Role: RoleApplicant}
	admin := Caller{ID: uuid.New(), Role: RoleAdmin}

	assert.True(t, applicant.CanAccess(owner, CapApplicationsReadAny))
	assert.False(t, stranger.CanAccess(owner, CapApplicationsReadAny))
	assert.True(t, admin.CanAccess(owner, CapApplicationsReadAny))
	assert.False(t, Caller{}.Owns(uuid.Nil))
}
