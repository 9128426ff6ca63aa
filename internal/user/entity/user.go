package entity

import "time"

// Role names form a closed enumeration.
const (
	RoleAdmin     = "ADMIN"
	RoleDeveloper = "DEVELOPER"
	RoleUser      = "USER"
	RoleInvited   = "INVITED"
)

// Permission names.
const (
	PermCreate   = "CREATE"
	PermRead     = "READ"
	PermUpdate   = "UPDATE"
	PermDelete   = "DELETE"
	PermRefactor = "REFACTOR"
	PermInvited  = "INVITED"
)

// Permission is a flat capability name, usable directly as an authority.
type Permission struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Role is reference data: a name from the enumeration plus its permissions.
type Role struct {
	ID          int64        `db:"id" json:"id"`
	Name        string       `db:"role_name" json:"name"`
	Permissions []Permission `db:"-" json:"permissions"`
}

// Identity is an account row in the `users` table with its roles attached.
type Identity struct {
	ID                    int64      `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	Username              string     `db:"username" json:"username"`
	Email                 string     `db:"email" json:"email"`
	PasswordHash          string     `db:"password" json:"-"`
	Enabled               bool       `db:"is_enabled" json:"enabled"`
	AccountNonExpired     bool       `db:"account_no_expired" json:"accountNonExpired"`
	AccountNonLocked      bool       `db:"account_no_locked" json:"accountNonLocked"`
	CredentialsNonExpired bool       `db:"credential_no_expired" json:"credentialsNonExpired"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
	Roles                 []Role     `db:"-" json:"roles"`
}

// Usable reports whether every account status flag permits sign-in.
func (i *Identity) Usable() bool {
	return i.Enabled && i.AccountNonExpired && i.AccountNonLocked && i.CredentialsNonExpired
}

// Catalog lists the default permissions granted by each role.
var Catalog = map[string][]string{
	RoleAdmin:     {PermCreate, PermRead, PermUpdate, PermDelete},
	RoleDeveloper: {PermCreate, PermRead, PermUpdate, PermDelete, PermRefactor},
	RoleUser:      {PermRead},
	RoleInvited:   {PermInvited},
}

// RoleNames returns the role enumeration in a fixed order.
func RoleNames() []string {
	return []string{RoleAdmin, RoleDeveloper, RoleUser, RoleInvited}
}

// PermissionNames returns every permission referenced by Catalog.
func PermissionNames() []string {
	return []string{PermCreate, PermRead, PermUpdate, PermDelete, PermRefactor, PermInvited}
}
