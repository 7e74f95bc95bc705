package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generate(t *testing.T) map[string]any {
	t.Helper()

	data, err := NewGenerator().Generate()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	return schema
}

func TestNewGenerator(t *testing.T) {
	g := NewGenerator()
	require.NotNil(t, g)
	require.NotNil(t, g.reflector)
}

func TestGenerator_Generate(t *testing.T) {
	schema := generate(t)

	assert.NotNil(t, schema["$schema"])
	assert.Equal(t, "Token Broker Configuration", schema["title"])
	assert.Equal(t, SchemaID, schema["$id"])
	assert.NotEmpty(t, schema["examples"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "root properties expected")
	for _, prop := range []string{"server", "auth", "store", "resilience", "observability", "log"} {
		assert.Contains(t, props, prop)
	}
}

func TestGenerator_Generate_YAMLPropertyNames(t *testing.T) {
	schema := generate(t)

	defs, ok := schema["$defs"].(map[string]any)
	require.True(t, ok)

	auth, ok := defs["AuthConfig"].(map[string]any)
	require.True(t, ok)
	authProps := auth["properties"].(map[string]any)

	for _, prop := range []string{"client_id", "redirect_uri", "post_logout_redirect_uri", "extra_query_parameter", "renew_timeout"} {
		assert.Contains(t, authProps, prop)
	}
	assert.NotContains(t, authProps, "ClientID")
	assert.Equal(t, []any{"client_id"}, auth["required"])
}

func TestGenerator_Generate_Durations(t *testing.T) {
	schema := generate(t)

	defs := schema["$defs"].(map[string]any)
	auth := defs["AuthConfig"].(map[string]any)
	renew := auth["properties"].(map[string]any)["renew_timeout"].(map[string]any)

	assert.Equal(t, "string", renew["type"])
	assert.NotEmpty(t, renew["pattern"])
}
