package env

// Set at build time via -ldflags "-X github.com/ostafen/raidrescue/internal/env.Version=...".
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

const AppName = "raidrescue"
