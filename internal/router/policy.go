package router

import (
	"net/http"

	"github.com/ovaphlow/pitchfork/service-bird-api/internal/security"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/user"
	"github.com/ovaphlow/pitchfork/service-bird-api/internal/user/entity"
)

var (
	writers = []string{entity.RoleAdmin, entity.RoleDeveloper}
	readers = []string{entity.RoleAdmin, entity.RoleDeveloper, entity.RoleUser, entity.RoleInvited}
)

// DefaultRules is the access table in evaluation order. Order matters: the
// first rule matching a request decides it.
func DefaultRules() []security.Rule {
	rules := []security.Rule{
		security.Permit(http.MethodPost, "/auth/login"),
		security.Permit(http.MethodPost, "/auth/register"),
		security.Permit(http.MethodGet, "/health"),
		security.HasAnyRole(http.MethodGet, "/auth/userinfo", readers...),

		security.RequireAny(http.MethodGet, "/sightings", entity.PermRead, entity.PermInvited),
		security.HasAnyRole(http.MethodPost, "/sightings", writers...),
		security.HasAnyRole(http.MethodPut, "/sightings/{id}", writers...),
		security.HasAnyRole(http.MethodDelete, "/sightings/{id}", writers...),
		security.HasAnyRole(http.MethodGet, "/sightings/date-range", readers...),
		security.HasAnyRole(http.MethodGet, "/sightings/{id}", readers...),
		security.HasAnyRole(http.MethodGet, "/sightings/birds/{id}/sightings", readers...),
		security.HasAnyRole(http.MethodGet, "/sightings/users/{id}/sightings", readers...),
		security.HasAnyRole(http.MethodGet, "/sightings/countries/{id}/sightings", readers...),
		security.HasAnyRole(http.MethodGet, "/sightings/habitats/{id}/sightings", readers...),
	}
	for _, base := range []string{"/families", "/birds", "/habitats"} {
		rules = append(rules, recordRules(base)...)
	}
	return append(rules,
		security.HasAnyRole("", "/users/**", writers...),
		security.HasAnyRole(http.MethodGet, "/metrics", writers...),
		security.DenyAll("", "/**"),
	)
}

func recordRules(base string) []security.Rule {
	return []security.Rule{
		security.HasAnyRole(http.MethodPost, base, writers...),
		security.HasAnyRole(http.MethodPut, base+"/{id}", writers...),
		security.HasAnyRole(http.MethodDelete, base+"/{id}", writers...),
		security.HasAnyRole(http.MethodGet, base, readers...),
		security.HasAnyRole(http.MethodGet, base+"/by-name", readers...),
		security.HasAnyRole(http.MethodGet, base+"/{id}", readers...),
	}
}

// NewPolicy compiles DefaultRules, checking every required authority
// against the role/permission catalog.
func NewPolicy() (*security.Table, error) {
	return security.NewTable(user.KnownAuthorities(), DefaultRules()...)
}
