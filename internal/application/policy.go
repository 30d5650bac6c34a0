package application

import "fmt"

// Action names an operation checked by the access policy.
type Action string

const (
	ActionView        Action = "view"
	ActionList        Action = "list"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionMarkRead    Action = "mark_read"
	ActionSendEmail   Action = "send_email"
	ActionUploadPhoto Action = "upload_photo"
	ActionExport      Action = "export"
)

// ResourceKind names the kind of record an action targets.
type ResourceKind string

const (
	ResourceMember       ResourceKind = "member"
	ResourceSession      ResourceKind = "session"
	ResourceConvocation  ResourceKind = "convocation"
	ResourceMinutes      ResourceKind = "minutes"
	ResourceNotification ResourceKind = "notification"
	ResourceDashboard    ResourceKind = "dashboard"
)

// Resource describes the target of an action. OwnerID is the member the
// record belongs to, when it has one. Fields lists the attributes an update touches.
type Resource struct {
	Kind    ResourceKind
	OwnerID uint
	Fields  []string
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

// ownerFields lists, per resource kind, the attributes an owner may change on
// their own record.
var ownerFields = map[ResourceKind]map[string]bool{
	ResourceMember:      {"nom": true, "email": true, "fonction": true, "password": true},
	ResourceConvocation: {"statut": true, "reponse": true},
}

// Authorize is the single access policy of the portal. Administrators may do
// anything, members may read everything and act on records they own.
func Authorize(principal Principal, action Action, resource Resource) Decision {
	if !principal.Authenticated() {
		return Decision{Reason: "authentication required"}
	}
	if principal.IsAdmin() {
		return Decision{Allowed: true, Reason: "administrator"}
	}

	switch action {
	case ActionView, ActionList, ActionExport:
		return Decision{Allowed: true, Reason: "read access for members"}
	}

	owns := resource.OwnerID != 0 && resource.OwnerID == principal.MemberID
	switch {
	case resource.Kind == ResourceMember && (action == ActionUpdate || action == ActionUploadPhoto) && owns:
	case resource.Kind == ResourceConvocation && (action == ActionUpdate || action == ActionMarkRead) && owns:
	default:
		return Decision{Reason: fmt.Sprintf("%s on %s is reserved to administrators", action, resource.Kind)}
	}

	allowed := ownerFields[resource.Kind]
	for _, field := range resource.Fields {
		if !allowed[field] {
			return Decision{Reason: fmt.Sprintf("field %s is reserved to administrators", field)}
		}
	}
	return Decision{Allowed: true, Reason: "owner"}
}

// authorize turns a denied decision into an error wrapping ErrUnauthenticated
// or ErrUnauthorized with the policy reason.
func authorize(principal Principal, action Action, resource Resource) error {
	decision := Authorize(principal, action, resource)
	if decision.Allowed {
		return nil
	}
	if !principal.Authenticated() {
		return ErrUnauthenticated
	}
	return fmt.Errorf("%w: %s", ErrUnauthorized, decision.Reason)
}
