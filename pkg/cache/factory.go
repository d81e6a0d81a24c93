package cache

import (
	"fmt"
)

// Options selects and configures a backend for New.
type Options struct {
	Backend string
	Redis   []RedisOption
	Memory  []MemoryOption
	Layered []LayeredOption
}

// New builds the configured backend. BackendNone yields a nil Service and
// no error; callers treat a nil cache as always missing.
func New(opts Options) (Service, error) {
	switch opts.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryCache(opts.Memory...), nil
	case BackendRedis:
		rc, err := NewRedisCache(opts.Redis...)
		if err != nil {
			return nil, err
		}
		return rc, nil
	case BackendLayered:
		rc, err := NewRedisCache(opts.Redis...)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(rc, opts.Layered...), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
