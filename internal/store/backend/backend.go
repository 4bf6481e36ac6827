// Package backend picks a store.Dialer from a connection target.
package backend

import (
	"fmt"
	"strings"

	"github.com/kastor/polyglot-gateway/internal/store"
	"github.com/kastor/polyglot-gateway/internal/store/mongodb"
	"github.com/kastor/polyglot-gateway/internal/store/sqlite"
)

// NewDialer returns the dialer for target's scheme:
//
//	mongodb://, mongodb+srv://  → MongoDB
//	sqlite://                   → embedded SQLite file
func NewDialer(target string) (store.Dialer, error) {
	switch {
	case mongodb.IsTarget(target):
		return mongodb.NewDialer(target)
	case strings.HasPrefix(target, sqlite.Scheme):
		return sqlite.NewDialer(target)
	default:
		return nil, fmt.Errorf("backend: unsupported store target %q", redact(target))
	}
}

// redact drops everything before '@' so credentials never reach a log line.
func redact(target string) string {
	scheme, rest, ok := strings.Cut(target, "://")
	if !ok {
		return target
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = "***@" + rest[i+1:]
	}
	return scheme + "://" + rest
}
