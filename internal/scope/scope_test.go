package scope

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		role      Role
		caller    string
		requested string
		want      string
		wantErr   error
	}{
		{"admin with explicit client", RoleAdmin, "", "7", "7", nil},
		{"admin without client", RoleAdmin, "", "", "", ErrClientRequired},
		{"admin ignores own binding", RoleAdmin, "3", "9", "9", nil},
		{"client own scope", RoleClient, "42", "", "42", nil},
		{"client restating own id", RoleClient, "42", "42", "42", nil},
		{"client cross tenant", RoleClient, "42", "43", "", ErrCrossTenant},
		{"client without binding", RoleClient, "", "", "", ErrNoClient},
		{"unknown role", Role("auditor"), "1", "1", "", ErrUnknownRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.role, tt.caller, tt.requested)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("clientID = %q, want %q", got, tt.want)
			}
		})
	}
}
