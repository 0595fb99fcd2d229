package config

import (
	"errors"
	"fmt"
	"net"
)

// BasicService is used as a simple base for node services like Health,
// Pprof or Prometheus monitoring.
type BasicService struct {
	Enabled bool `yaml:"Enabled"`
	// Addresses holds the list of bind addresses in the form of "address:port".
	Addresses []string `yaml:"Addresses"`
}

// Validate checks that an enabled service has correct addresses to listen on.
func (s BasicService) Validate() error {
	if !s.Enabled {
		return nil
	}
	if len(s.Addresses) == 0 {
		return errors.New("no bind addresses")
	}
	for _, addr := range s.Addresses {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("failed to parse address %q: %w", addr, err)
		}
	}
	return nil
}

// GetAddresses returns the set of unique (in terms of raw strings) pairs
// host:port for the given basic service.
func (s BasicService) GetAddresses() []string {
	addrs := make([]string, 0, len(s.Addresses))
	seen := make(map[string]bool, len(s.Addresses))
	for _, a := range s.Addresses {
		if !seen[a] {
			seen[a] = true
			addrs = append(addrs, a)
		}
	}
	return addrs
}
