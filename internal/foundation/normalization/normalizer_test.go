package normalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contextfocus/internal/foundation/errors"
)

type backend string

const (
	backendSQLite backend = "sqlite"
	backendNATS   backend = "nats"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(map[string]backend{
		"sqlite":    backendSQLite,
		"nats":      backendNATS,
		"jet_store": backendNATS,
	}, backendSQLite)

	tests := []struct {
		name     string
		input    string
		expected backend
	}{
		{"exact match", "nats", backendNATS},
		{"case insensitive", "NATS", backendNATS},
		{"with spaces", "  sqlite  ", backendSQLite},
		{"dash and underscore fold", "Jet-Store", backendNATS},
		{"unknown falls back", "redis", backendSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestNormalizer_Parse(t *testing.T) {
	n := NewNormalizer(map[string]backend{"nats": backendNATS, "sqlite": backendSQLite}, backendSQLite)

	got, err := n.Parse(" Nats ")
	require.NoError(t, err)
	assert.Equal(t, backendNATS, got)

	_, err = n.Parse("redis")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "options=nats, sqlite")
	assert.Contains(t, err.Error(), "value=redis")

	assert.Equal(t, []string{"nats", "sqlite"}, n.Options())
}

func TestNormalizer_OptionsIsACopy(t *testing.T) {
	n := NewNormalizer(map[string]backend{"nats": backendNATS}, backendSQLite)
	opts := n.Options()
	opts[0] = "mutated"
	assert.Equal(t, []string{"nats"}, n.Options())
}
