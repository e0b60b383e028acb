package dataaccess

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildBackend returns the primary backend described by dsn. An empty dsn means there is no
// primary backend and documents live in files only.
func BuildBackend(dsn string) (Backend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("error parsing store dsn: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		b, err := NewPostgresBackend(dsn)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "mongodb", "mongodb+srv":
		b, err := NewMongoBackend(dsn)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported store backend scheme: %q", parsed.Scheme)
	}
}
