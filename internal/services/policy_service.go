package services

import (
	"github.com/casbin/casbin/v2"

	"github.com/you/scamwatch/domain"
)

// enforcerAdapter exposes the concrete Casbin enforcer through the
// domain.CasbinEnforcer interface so the policy service stays mockable.
type enforcerAdapter struct {
	enforcer *casbin.Enforcer
}

func (a *enforcerAdapter) AddPolicy(params ...interface{}) (bool, error) {
	return a.enforcer.AddPolicy(params...)
}

func (a *enforcerAdapter) RemovePolicy(params ...interface{}) (bool, error) {
	return a.enforcer.RemovePolicy(params...)
}

func (a *enforcerAdapter) Enforce(rvals ...interface{}) (bool, error) {
	return a.enforcer.Enforce(rvals...)
}

func (a *enforcerAdapter) GetPolicy() ([][]string, error) {
	return a.enforcer.GetPolicy()
}

func (a *enforcerAdapter) SavePolicy() error {
	return a.enforcer.SavePolicy()
}

// PolicyServiceImpl implements domain.PolicyService using Casbin
type PolicyServiceImpl struct {
	enforcer domain.CasbinEnforcer
}

// NewPolicyService creates a new policy service around a live enforcer
func NewPolicyService(enforcer *casbin.Enforcer) domain.PolicyService {
	return &PolicyServiceImpl{enforcer: &enforcerAdapter{enforcer: enforcer}}
}

// NewPolicyServiceWithEnforcer creates a policy service from the interface
// directly (used by tests)
func NewPolicyServiceWithEnforcer(enforcer domain.CasbinEnforcer) domain.PolicyService {
	return &PolicyServiceImpl{enforcer: enforcer}
}

// AddPolicy implements domain.PolicyService
func (p *PolicyServiceImpl) AddPolicy(role, resource, action string) error {
	if _, err := p.enforcer.AddPolicy(role, resource, action); err != nil {
		return err
	}
	return p.enforcer.SavePolicy()
}

// RemovePolicy implements domain.PolicyService
func (p *PolicyServiceImpl) RemovePolicy(role, resource, action string) error {
	if _, err := p.enforcer.RemovePolicy(role, resource, action); err != nil {
		return err
	}
	return p.enforcer.SavePolicy()
}

// CheckPermission implements domain.PolicyService
func (p *PolicyServiceImpl) CheckPermission(role, resource, action string) (bool, error) {
	return p.enforcer.Enforce(role, resource, action)
}

// GetPolicies implements domain.PolicyService
func (p *PolicyServiceImpl) GetPolicies() [][]string {
	policies, _ := p.enforcer.GetPolicy()
	return policies
}
