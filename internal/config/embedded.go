package config

// EmbeddedTMDBKey is injected at build time via ldflags and serves as the
// default API key. Environment variables and the config file override it.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/reelscout/reelscout/internal/config.EmbeddedTMDBKey=xxx'"
var EmbeddedTMDBKey string

// Version is the release version, also set via ldflags.
var Version = "dev"
