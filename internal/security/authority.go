// Package security holds the per-request identity model, the bearer token
// filter and the ordered access policy table evaluated after it.
package security

import (
	"sort"
	"strings"
)

// RolePrefix is prepended to role names to form role authorities.
const RolePrefix = "ROLE_"

// RoleAuthority returns the authority string granted by holding role name.
func RoleAuthority(name string) string {
	return RolePrefix + name
}

// AuthoritySet is an unordered set of authority strings (ROLE_X or a permission name).
type AuthoritySet map[string]struct{}

// NewAuthoritySet builds a set from the given authorities, skipping blanks.
func NewAuthoritySet(authorities ...string) AuthoritySet {
	set := make(AuthoritySet, len(authorities))
	for _, a := range authorities {
		set.Add(a)
	}
	return set
}

// ParseAuthorities splits a comma-joined authority claim.
func ParseAuthorities(joined string) AuthoritySet {
	if joined == "" {
		return AuthoritySet{}
	}
	return NewAuthoritySet(strings.Split(joined, ",")...)
}

// Add inserts a trimmed, non-empty authority.
func (s AuthoritySet) Add(authority string) {
	authority = strings.TrimSpace(authority)
	if authority == "" {
		return
	}
	s[authority] = struct{}{}
}

// Has reports whether authority is in the set.
func (s AuthoritySet) Has(authority string) bool {
	_, ok := s[authority]
	return ok
}

// HasAny reports whether at least one of required is held.
func (s AuthoritySet) HasAny(required ...string) bool {
	for _, r := range required {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Slice returns the authorities sorted.
func (s AuthoritySet) Slice() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// String returns the sorted, comma-joined form carried in tokens.
func (s AuthoritySet) String() string {
	return strings.Join(s.Slice(), ",")
}

// Equal reports whether both sets hold exactly the same authorities.
func (s AuthoritySet) Equal(other AuthoritySet) bool {
	if len(s) != len(other) {
		return false
	}
	for a := range s {
		if !other.Has(a) {
			return false
		}
	}
	return true
}
