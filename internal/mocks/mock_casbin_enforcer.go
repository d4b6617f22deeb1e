package mocks

import (
	"strings"
	"sync"

	"github.com/you/scamwatch/domain"
)

// MockCasbinEnforcer implements domain.CasbinEnforcer over an in-memory
// policy table. Function fields override individual methods; the default
// behavior keeps the table consistent so policy tests can exercise
// add/remove/enforce round trips without a real Casbin model.
type MockCasbinEnforcer struct {
	AddPolicyFunc    func(params ...interface{}) (bool, error)
	RemovePolicyFunc func(params ...interface{}) (bool, error)
	EnforceFunc      func(rvals ...interface{}) (bool, error)
	GetPolicyFunc    func() ([][]string, error)
	SavePolicyFunc   func() error

	mu       sync.Mutex
	policies [][]string
	saves    int
}

// Compile-time interface compliance verification
var _ domain.CasbinEnforcer = (*MockCasbinEnforcer)(nil)

// NewMockCasbinEnforcer seeds the table with the policies the app boots
// with: moderators review reports and policies, members manage their own
// session.
func NewMockCasbinEnforcer() *MockCasbinEnforcer {
	return &MockCasbinEnforcer{
		policies: [][]string{
			{"role_admin", "/admin/*", "(GET|POST|PUT|DELETE)"},
			{"role_moderator", "/admin/policies", "GET"},
			{"role_moderator", "/reports/*", "(GET|PUT)"},
			{"role_user", "/auth/me", "GET"},
			{"role_user", "/auth/logout", "POST"},
		},
	}
}

func asRule(params []interface{}) []string {
	rule := make([]string, 0, len(params))
	for _, p := range params {
		s, ok := p.(string)
		if !ok {
			return nil
		}
		rule = append(rule, s)
	}
	return rule
}

func sameRule(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// matchObj mirrors keyMatch for the single pattern shape the seeded
// policies use: a trailing /* wildcard.
func matchObj(pattern, obj string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(obj, prefix+"/")
	}
	return pattern == obj
}

// matchAct mirrors regexMatch for the (A|B|...) alternation shape.
func matchAct(pattern, act string) bool {
	alts := strings.Trim(pattern, "()")
	for _, alt := range strings.Split(alts, "|") {
		if alt == act {
			return true
		}
	}
	return false
}

// AddPolicy records the rule; false means it was already present.
func (m *MockCasbinEnforcer) AddPolicy(params ...interface{}) (bool, error) {
	if m.AddPolicyFunc != nil {
		return m.AddPolicyFunc(params...)
	}

	rule := asRule(params)
	if len(rule) < 3 {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.policies {
		if sameRule(existing, rule) {
			return false, nil
		}
	}
	m.policies = append(m.policies, rule)
	return true, nil
}

// RemovePolicy drops the rule; false means it was not present.
func (m *MockCasbinEnforcer) RemovePolicy(params ...interface{}) (bool, error) {
	if m.RemovePolicyFunc != nil {
		return m.RemovePolicyFunc(params...)
	}

	rule := asRule(params)
	if len(rule) < 3 {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.policies {
		if sameRule(existing, rule) {
			m.policies = append(m.policies[:i], m.policies[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Enforce evaluates (sub, obj, act) against the table.
func (m *MockCasbinEnforcer) Enforce(rvals ...interface{}) (bool, error) {
	if m.EnforceFunc != nil {
		return m.EnforceFunc(rvals...)
	}

	req := asRule(rvals)
	if len(req) < 3 {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.policies {
		if len(p) >= 3 && p[0] == req[0] && matchObj(p[1], req[1]) && matchAct(p[2], req[2]) {
			return true, nil
		}
	}
	return false, nil
}

// GetPolicy returns a copy of the table.
func (m *MockCasbinEnforcer) GetPolicy() ([][]string, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.policies))
	for i, p := range m.policies {
		out[i] = append([]string(nil), p...)
	}
	return out, nil
}

// SavePolicy counts persistence calls so tests can assert the service
// saved after a mutation.
func (m *MockCasbinEnforcer) SavePolicy() error {
	if m.SavePolicyFunc != nil {
		return m.SavePolicyFunc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return nil
}

// Saves reports how many times SavePolicy ran with the default behavior.
func (m *MockCasbinEnforcer) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
