package domain

import (
	"slices"
	"strings"
)

// Resource names a protected entity family.
type Resource string

const (
	ResourceUser          Resource = "user"
	ResourceVendor        Resource = "vendor"
	ResourceProduct       Resource = "product"
	ResourceOrder         Resource = "order"
	ResourcePayment       Resource = "payment"
	ResourceShipping      Resource = "shipping"
	ResourceRole          Resource = "role"
	ResourcePaymentMethod Resource = "payment_method"
)

// Action names an operation on a resource.
type Action string

const (
	ActionCreate     Action = "create"
	ActionView       Action = "view"
	ActionViewOwn    Action = "view_own"
	ActionUpdate     Action = "update"
	ActionUpdateOwn  Action = "update_own"
	ActionDelete     Action = "delete"
	ActionCancel     Action = "cancel"
	ActionCancelOwn  Action = "cancel_own"
	ActionTransition Action = "transition"
	ActionManage     Action = "manage"
	ActionAll        Action = "*"
)

var (
	resources = []Resource{
		ResourceUser, ResourceVendor, ResourceProduct, ResourceOrder,
		ResourcePayment, ResourceShipping, ResourceRole, ResourcePaymentMethod,
	}
	actions = []Action{
		ActionCreate, ActionView, ActionViewOwn, ActionUpdate, ActionUpdateOwn, ActionDelete,
		ActionCancel, ActionCancelOwn, ActionTransition, ActionManage, ActionAll,
	}
)

// Permission is a "resource:action" capability string.
type Permission string

// GetPermission builds the permission for resource and action.
func GetPermission(resource Resource, action Action) Permission {
	return Permission(string(resource) + ":" + string(action))
}

// ParsePermission validates raw against the resource and action enumerations.
func ParsePermission(raw string) (Permission, error) {
	resource, action, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return "", ValidationError("permission %q must have the form resource:action", raw)
	}
	if !slices.Contains(resources, Resource(resource)) {
		return "", ValidationError("unknown permission resource %q", resource)
	}
	if !slices.Contains(actions, Action(action)) {
		return "", ValidationError("unknown permission action %q", action)
	}
	return GetPermission(Resource(resource), Action(action)), nil
}

// ParsePermissions validates every entry of raw.
func ParsePermissions(raw []string) ([]Permission, error) {
	out := make([]Permission, 0, len(raw))
	for _, r := range raw {
		p, err := ParsePermission(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Resource returns the resource half of the permission.
func (p Permission) Resource() Resource {
	r, _, _ := strings.Cut(string(p), ":")
	return Resource(r)
}

// Action returns the action half of the permission.
func (p Permission) Action() Action {
	_, a, _ := strings.Cut(string(p), ":")
	return Action(a)
}

// Wildcard returns the "resource:*" permission covering p.
func (p Permission) Wildcard() Permission {
	return GetPermission(p.Resource(), ActionAll)
}

// Grants reports whether held satisfies p, directly or via its resource wildcard.
func Grants(held []Permission, p Permission) bool {
	wildcard := p.Wildcard()
	for _, h := range held {
		if h == p || h == wildcard {
			return true
		}
	}
	return false
}

// HasRequiredPermissions reports whether every required permission is held.
// An empty requirement is always satisfied.
func HasRequiredPermissions(required, held []Permission) bool {
	for _, r := range required {
		if !Grants(held, r) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether at least one candidate is held.
func HasAnyPermission(candidates, held []Permission) bool {
	for _, c := range candidates {
		if Grants(held, c) {
			return true
		}
	}
	return false
}

// DefaultCustomerPermissions is granted to self-registered accounts.
var DefaultCustomerPermissions = []Permission{
	GetPermission(ResourceUser, ActionViewOwn),
	GetPermission(ResourceUser, ActionUpdateOwn),
	GetPermission(ResourceVendor, ActionCreate),
	GetPermission(ResourceVendor, ActionView),
	GetPermission(ResourceVendor, ActionUpdateOwn),
	GetPermission(ResourceProduct, ActionView),
	GetPermission(ResourceOrder, ActionCreate),
	GetPermission(ResourceOrder, ActionViewOwn),
	GetPermission(ResourceOrder, ActionCancelOwn),
	GetPermission(ResourcePayment, ActionViewOwn),
	GetPermission(ResourceShipping, ActionViewOwn),
	GetPermission(ResourcePaymentMethod, ActionCreate),
	GetPermission(ResourcePaymentMethod, ActionViewOwn),
	GetPermission(ResourcePaymentMethod, ActionUpdateOwn),
	GetPermission(ResourcePaymentMethod, ActionDelete),
}

// DefaultVendorPermissions is added to accounts that own a store.
var DefaultVendorPermissions = []Permission{
	GetPermission(ResourceProduct, ActionCreate),
	GetPermission(ResourceProduct, ActionUpdateOwn),
	GetPermission(ResourceProduct, ActionDelete),
}

// AdminPermissions grants every resource wildcard.
func AdminPermissions() []Permission {
	out := make([]Permission, 0, len(resources))
	for _, r := range resources {
		out = append(out, GetPermission(r, ActionAll))
	}
	return out
}
