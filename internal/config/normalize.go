package config

import (
	"git.home.luguber.info/inful/contextfocus/internal/foundation/normalization"
	"git.home.luguber.info/inful/contextfocus/internal/kvstore"
)

var backendNormalizer = normalization.NewNormalizer(map[string]kvstore.Backend{
	"sqlite":    kvstore.BackendSQLite,
	"nats":      kvstore.BackendNATS,
	"jetstream": kvstore.BackendNATS,
	"memory":    kvstore.BackendMemory,
}, kvstore.BackendSQLite)

// NormalizeBackend canonicalizes a storage backend name. Empty selects sqlite;
// unknown values are returned unchanged so validation can report them.
func NormalizeBackend(raw string) kvstore.Backend {
	if raw == "" {
		return kvstore.BackendSQLite
	}
	b, err := backendNormalizer.Parse(raw)
	if err != nil {
		return kvstore.Backend(raw)
	}
	return b
}
