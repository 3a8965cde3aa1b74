package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration returns the duration value of the environment variable named
// by key (time.ParseDuration syntax, e.g. "30m"), or fallback if the variable
// is unset, empty, or not a valid duration.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// ParsePortPool parses a port pool spec: comma-separated entries, each either
// a single port ("41000") or an inclusive range ("41000-41009").
func ParsePortPool(spec string) ([]int, error) {
	var ports []int

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(entry, "-"); ok {
			first, err := parsePort(lo)
			if err != nil {
				return nil, err
			}
			last, err := parsePort(hi)
			if err != nil {
				return nil, err
			}
			if first > last {
				return nil, fmt.Errorf("invalid port range %q", entry)
			}
			for p := first; p <= last; p++ {
				ports = append(ports, p)
			}
			continue
		}

		p, err := parsePort(entry)
		if err != nil {
			return nil, err
		}
		ports = append(ports, p)
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("empty port pool spec %q", spec)
	}
	return ports, nil
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return p, nil
}
