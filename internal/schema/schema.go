// Package schema provides JSON Schema generation for configuration.
package schema

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/shoatman/electron-ng2seed/internal/config"
)

// SchemaID identifies the generated schema.
const SchemaID = "https://github.com/shoatman/electron-ng2seed/schemas/config.schema.json"

// Generator generates the JSON schema for token broker configuration files.
type Generator struct {
	reflector *jsonschema.Reflector
}

// NewGenerator creates a new schema generator.
// Property names follow the yaml tags so the schema matches the files viper reads.
func NewGenerator() *Generator {
	r := &jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
		FieldNameTag:               "yaml",
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: "Duration string (e.g., '6s', '2m', '1h')",
					Examples:    []any{"6s", "120s", "5m"},
				}
			}
			return nil
		},
	}

	return &Generator{reflector: r}
}

// Generate generates a JSON schema for the config.
func (g *Generator) Generate() ([]byte, error) {
	schema := g.reflector.Reflect(&config.Config{})

	schema.Title = "Token Broker Configuration"
	schema.Description = "Configuration schema for the token broker.\n\n" +
		"The broker signs a user in with the OAuth2 implicit flow and serves " +
		"cached or silently renewed access tokens to local clients."
	schema.ID = SchemaID

	if auth, ok := schema.Definitions["AuthConfig"]; ok {
		auth.Required = []string{"client_id"}
	}

	schema.Examples = []any{
		map[string]any{
			"server": map[string]any{
				"http_port":     8080,
				"callback_path": "/callback",
			},
			"auth": map[string]any{
				"tenant":       "contoso.onmicrosoft.com",
				"client_id":    "${TB_CLIENT_ID}",
				"redirect_uri": "http://localhost:8080/callback",
			},
			"store": map[string]any{
				"type": "memory",
			},
		},
	}

	return json.MarshalIndent(schema, "", "  ")
}
