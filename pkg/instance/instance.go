package instance

import (
	"os"

	"github.com/angelmondragon/salesorders-backend/pkg/env"
)

// GetID names this process in logs and lock tokens. It prefers an explicit
// id, then the platform dyno name, then the hostname.
func GetID() string {
	if id := env.Get("SALESORDERS_INSTANCE_ID", ""); id != "" {
		return id
	}
	if id := env.Get("DYNO", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
