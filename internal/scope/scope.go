// Package scope enforces tenant isolation for reporting and billing
// endpoints: every handler resolves the caller's claims plus the optional
// clientId override into exactly one authorized client before querying.
package scope

import "errors"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

var (
	// ErrClientRequired: an admin asked for client-scoped data without
	// naming the client. Maps to 400.
	ErrClientRequired = errors.New("clientId parameter is required for admin requests")
	// ErrNoClient: the caller's identity carries no client binding. Maps to 401.
	ErrNoClient = errors.New("caller is not associated with a client")
	// ErrCrossTenant: a client asked for another client's data. Maps to 403.
	ErrCrossTenant = errors.New("access to the requested client is denied")
	// ErrUnknownRole: the identity carries a role outside admin/client.
	ErrUnknownRole = errors.New("unknown role")
)

// Resolve maps (role, caller's own client, requested client override) to the
// single client the request is authorized to read. Pure function, no
// side effects.
func Resolve(role Role, callerClientID, requestedClientID string) (string, error) {
	switch role {
	case RoleAdmin:
		if requestedClientID == "" {
			return "", ErrClientRequired
		}
		return requestedClientID, nil
	case RoleClient:
		if callerClientID == "" {
			return "", ErrNoClient
		}
		if requestedClientID != "" && requestedClientID != callerClientID {
			return "", ErrCrossTenant
		}
		return callerClientID, nil
	default:
		return "", ErrUnknownRole
	}
}
