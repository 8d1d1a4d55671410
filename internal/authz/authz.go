package authz

import (
	"github.com/google/uuid"
)

// Role is the account role carried in bearer tokens
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleApplicant || r == RoleAdmin
}

// Capability names a permission checked before dispatch or inside services
type Capability string

const (
	CapApplicationsCreate       Capability = "applications:create"
	CapApplicationsReadAny      Capability = "applications:read_any"
	CapApplicationsWriteAny     Capability = "applications:write_any"
	CapApplicationsChangeStatus Capability = "applications:change_status"
	CapDocumentsUpload          Capability = "documents:upload"
	CapDocumentsReadAny         Capability = "documents:read_any"
	CapDocumentsVerify          Capability = "documents:verify"
	CapDocumentsDeleteAny       Capability = "documents:delete_any"
	CapPaymentsCreate           Capability = "payments:create"
	CapPaymentsReadAny          Capability = "payments:read_any"
	CapBiometricsWriteAny       Capability = "biometrics:write_any"
	CapBiometricsReadAny        Capability = "biometrics:read_any"
)

var applicantCapabilities = []Capability{
	CapApplicationsCreate,
	CapDocumentsUpload,
	CapPaymentsCreate,
}

var policy = map[Role]map[Capability]bool{
	RoleApplicant: capabilitySet(applicantCapabilities...),
	RoleAdmin: capabilitySet(append([]Capability{
		CapApplicationsReadAny,
		CapApplicationsWriteAny,
		CapApplicationsChangeStatus,
		CapDocumentsReadAny,
		CapDocumentsVerify,
		CapDocumentsDeleteAny,
		CapPaymentsReadAny,
		CapBiometricsWriteAny,
		CapBiometricsReadAny,
	}, applicantCapabilities...)...),
}

func capabilitySet(caps ...Capability) map[Capability]bool {
	set := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Caller is the authenticated identity attached to a request
type Caller struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// Can reports whether the caller's role grants capability
func (c Caller) Can(capability Capability) bool {
	return policy[c.Role][capability]
}

// Owns reports whether the caller is the owner identified by ownerID
func (c Caller) Owns(ownerID uuid.UUID) bool {
	return c.ID != uuid.Nil && c.ID == ownerID
}

// CanAccess reports whether the caller owns the resource or holds the override capability
func (c Caller) CanAccess(ownerID uuid.UUID, override Capability) bool {
	return c.Owns(ownerID) || c.Can(override)
}

// IsAdmin reports whether the caller has the admin role
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
