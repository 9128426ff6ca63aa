package user

import (
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/user/entity"
)

// KnownAuthorities is every authority an identity can hold: ROLE_x for each
// catalog role plus every permission name.
func KnownAuthorities() security.AuthoritySet {
	set := security.NewAuthoritySet(entity.PermissionNames()...)
	for _, role := range entity.RoleNames() {
		set.Add(security.RoleAuthority(role))
	}
	return set
}
