package security

import (
	"fmt"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-bird-api/pkg/httpx"
)

// Decision is the outcome of a policy check.
type Decision int

const (
	// Deny means the request may not proceed.
	Deny Decision = iota
	// Allow means the request may proceed.
	Allow
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

type access int

const (
	accessAny access = iota
	accessPermit
	accessDeny
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segVariable
	segSubtree
)

type segment struct {
	kind  segmentKind
	value string
}

// Rule maps a method and path pattern to an access requirement.
// An empty Method matches every method.
type Rule struct {
	Method      string
	Pattern     string
	Authorities []string

	access   access
	segments []segment
}

// Permit grants access to everyone, including anonymous callers.
func Permit(method, pattern string) Rule {
	return Rule{Method: method, Pattern: pattern, access: accessPermit}
}

// DenyAll refuses every caller.
func DenyAll(method, pattern string) Rule {
	return Rule{Method: method, Pattern: pattern, access: accessDeny}
}

// RequireAny allows callers holding at least one of authorities.
func RequireAny(method, pattern string, authorities ...string) Rule {
	return Rule{Method: method, Pattern: pattern, Authorities: authorities, access: accessAny}
}

// HasAnyRole is RequireAny over ROLE_-prefixed role names.
func HasAnyRole(method, pattern string, roles ...string) Rule {
	authorities := make([]string, len(roles))
	for i, r := range roles {
		authorities[i] = RoleAuthority(r)
	}
	return RequireAny(method, pattern, authorities...)
}

func (r Rule) String() string {
	m := r.Method
	if m == "" {
		m = "*"
	}
	return m + " " + r.Pattern
}

func (r Rule) catchAll() bool {
	return r.Method == "" && len(r.segments) == 1 && r.segments[0].kind == segSubtree
}

func (r Rule) matches(method string, segs []string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	for i, p := range r.segments {
		if p.kind == segSubtree {
			return true
		}
		if i >= len(segs) {
			return false
		}
		if p.kind == segLiteral && segs[i] != p.value {
			return false
		}
	}
	return len(segs) == len(r.segments)
}

func (r Rule) decide(authorities AuthoritySet) Decision {
	switch r.access {
	case accessPermit:
		return Allow
	case accessAny:
		if authorities.HasAny(r.Authorities...) {
			return Allow
		}
	}
	return Deny
}

// Table is an ordered, immutable list of rules. The first matching rule
// decides; a request matching nothing is denied.
type Table struct {
	rules []Rule
}

// NewTable compiles rules in declaration order and appends a terminal
// deny-all rule when the caller did not end with one. When known is non-nil,
// every required authority must be a member of it.
func NewTable(known AuthoritySet, rules ...Rule) (*Table, error) {
	compiled := make([]Rule, 0, len(rules)+1)
	for i, r := range rules {
		segs, err := compilePattern(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r, err)
		}
		r.segments = segs
		r.Method = strings.ToUpper(r.Method)
		if r.access == accessAny {
			if len(r.Authorities) == 0 {
				return nil, fmt.Errorf("rule %d (%s): no authorities required", i, r)
			}
			for _, a := range r.Authorities {
				if known != nil && !known.Has(a) {
					return nil, fmt.Errorf("rule %d (%s): unknown authority %q", i, r, a)
				}
			}
		}
		if r.access == accessDeny && r.catchAll() && i != len(rules)-1 {
			return nil, fmt.Errorf("rule %d (%s): catch-all deny must be the last rule", i, r)
		}
		compiled = append(compiled, r)
	}
	if n := len(compiled); n == 0 || !(compiled[n-1].access == accessDeny && compiled[n-1].catchAll()) {
		compiled = append(compiled, Rule{Pattern: "/**", access: accessDeny, segments: []segment{{kind: segSubtree}}})
	}
	return &Table{rules: compiled}, nil
}

// Rules returns a copy of the compiled rules, terminal deny included.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Match returns the first rule matching method and path.
func (t *Table) Match(method, p string) (Rule, bool) {
	segs := splitPath(p)
	for _, r := range t.rules {
		if r.matches(method, segs) {
			return r, true
		}
	}
	return Rule{}, false
}

// Decide evaluates the request against the table.
func (t *Table) Decide(method, p string, authorities AuthoritySet) Decision {
	r, ok := t.Match(method, p)
	if !ok {
		return Deny
	}
	return r.decide(authorities)
}

// Enforce returns middleware that stops denied requests with 403 "access denied".
// It must run after Filter.Middleware.
func (t *Table) Enforce(logger *zap.SugaredLogger, observer Observer) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := AuthenticationFrom(r.Context())
			decision := t.Decide(r.Method, r.URL.Path, auth.Authorities)
			observer.PolicyDecision(decision)
			if decision == Allow {
				next.ServeHTTP(w, r)
				return
			}
			logger.Debugw("access denied",
				"method", r.Method,
				"path", r.URL.Path,
				"principal", auth.Username,
				"source", auth.Source.String(),
			)
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "access denied")
		})
	}
}

func compilePattern(pattern string) ([]segment, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("pattern %q must start with /", pattern)
	}
	parts := splitPath(pattern)
	segs := make([]segment, 0, len(parts))
	for i, part := range parts {
		switch {
		case part == "**":
			if i != len(parts)-1 {
				return nil, fmt.Errorf("pattern %q: ** is only allowed as the last segment", pattern)
			}
			segs = append(segs, segment{kind: segSubtree})
		case part == "*":
			segs = append(segs, segment{kind: segVariable})
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			if len(part) == 2 {
				return nil, fmt.Errorf("pattern %q: empty path variable", pattern)
			}
			segs = append(segs, segment{kind: segVariable, value: part[1 : len(part)-1]})
		case strings.ContainsAny(part, "{}*"):
			return nil, fmt.Errorf("pattern %q: malformed segment %q", pattern, part)
		default:
			segs = append(segs, segment{kind: segLiteral, value: part})
		}
	}
	return segs, nil
}

// splitPath cleans p and returns its segments; the root path has none.
func splitPath(p string) []string {
	if p == "" {
		p = "/"
	}
	p = path.Clean("/" + p)
	if p == "/" {
		return nil
	}
	return strings.Split(p[1:], "/")
}
