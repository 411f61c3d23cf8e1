package instance

import "github.com/vaulttrove/labels-backend/pkg/env"

// ID names the running process in logs. Platform dyno names win over the
// container hostname.
func ID() string {
	return env.First("local", "DYNO", "VAULTTROVE_INSTANCE_ID", "HOSTNAME")
}
