package rbac

import (
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const (
	RoleStaff   = "STAFF"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// policies grant each resource/action to the lowest role that may use
// it; role inheritance (ADMIN > MANAGER > STAFF) covers the rest.
var policies = [][3]string{
	{RoleStaff, "leave", "apply"},
	{RoleStaff, "leave", "read"},
	{RoleStaff, "balance", "read"},
	{RoleStaff, "leavetype", "read"},
	{RoleStaff, "holiday", "read"},
	{RoleStaff, "notification", "read"},
	{RoleManager, "leave", "approve"},
	{RoleManager, "balance", "read_all"},
	{RoleManager, "report", "read"},
	{RoleAdmin, "balance", "adjust"},
	{RoleAdmin, "balance", "initialize"},
	{RoleAdmin, "leavetype", "create"},
}

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(role, resource, action string) (bool, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.Mutex
}

func NewService() (Service, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	if _, err := enforcer.AddGroupingPolicy(RoleManager, RoleStaff); err != nil {
		return nil, err
	}
	if _, err := enforcer.AddGroupingPolicy(RoleAdmin, RoleManager); err != nil {
		return nil, err
	}

	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return nil, err
		}
	}

	return &service{enforcer: enforcer}, nil
}

func (s *service) Enforce(role, resource, action string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enforcer.Enforce(role, resource, action)
}
