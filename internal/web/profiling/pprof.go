// Package profiling mounts the pprof endpoints on the relmap API router.
//
// Profiling endpoints expose goroutine stacks and memory contents. They are
// only mounted when the server is started with --pprof.
package profiling

import (
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"
)

// Config holds profiling configuration
type Config struct {
	// Path is the URL path prefix for profiling endpoints (default: "/debug/pprof")
	Path string

	// BlockRate sets the block profiling rate (0 = disabled)
	BlockRate int

	// MutexFraction sets the mutex profiling fraction (0 = disabled)
	MutexFraction int
}

// DefaultConfig returns default profiling configuration
func DefaultConfig() *Config {
	return &Config{
		Path:          "/debug/pprof",
		BlockRate:     1,
		MutexFraction: 1,
	}
}

// RegisterRoutes registers pprof profiling routes with a router
func RegisterRoutes(router chi.Router, config *Config) {
	if config == nil {
		config = DefaultConfig()
	}

	runtime.SetBlockProfileRate(config.BlockRate)
	runtime.SetMutexProfileFraction(config.MutexFraction)

	router.Route(config.Path, func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)

		for _, profile := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
			r.Handle("/"+profile, pprof.Handler(profile))
		}
	})
}
