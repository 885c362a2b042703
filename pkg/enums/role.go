package enums

import "slices"

// Role drives authorization; see internal/authz for what each may do.
type Role string

const (
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleCustomer   Role = "customer"
)

var roles = []Role{RoleAdmin, RolePharmacist, RoleCustomer}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return slices.Contains(roles, r) }

// IsStaff is true for pharmacy personnel.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RolePharmacist
}

func ParseRole(value string) (Role, error) {
	return parse(roles, "role", value)
}
