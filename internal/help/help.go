// Package help provides help text generation for the token broker.
package help

import (
	"fmt"
	"strings"
)

const width = 80

// AppInfo contains application metadata.
type AppInfo struct {
	Name        string
	Description string
	Version     string
	BuildTime   string
	DocsURL     string
}

// Generator generates help text for the application.
type Generator struct {
	appInfo      AppInfo
	envVarPrefix string
}

// NewGenerator creates a new help generator.
func NewGenerator(appInfo AppInfo, envVarPrefix string) *Generator {
	return &Generator{
		appInfo:      appInfo,
		envVarPrefix: envVarPrefix,
	}
}

// PrintVersion prints version information.
func (g *Generator) PrintVersion() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", g.appInfo.Name, g.appInfo.Version)
	fmt.Fprintf(&sb, "  Build time: %s\n", g.appInfo.BuildTime)
	return sb.String()
}

// PrintUsage prints basic usage information.
func (g *Generator) PrintUsage() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s [OPTIONS]\n\n", g.appInfo.Name)
	fmt.Fprintf(&sb, "%s\n\n", g.appInfo.Description)
	sb.WriteString("Use --help for detailed configuration documentation\n")
	return sb.String()
}

// PrintExtendedHelp prints detailed help with all configuration options.
func (g *Generator) PrintExtendedHelp() string {
	var sb strings.Builder

	sb.WriteString(g.header())
	sb.WriteString("\n")

	sb.WriteString("DESCRIPTION\n")
	fmt.Fprintf(&sb, "    %s\n\n", g.appInfo.Description)

	sb.WriteString("USAGE\n")
	fmt.Fprintf(&sb, "    %s [OPTIONS]\n\n", g.appInfo.Name)

	sb.WriteString("OPTIONS\n")
	sb.WriteString(g.optionsSection())
	sb.WriteString("\n")

	sb.WriteString(separator())
	sb.WriteString("CONFIGURATION\n\n")
	sb.WriteString(g.configSection())
	sb.WriteString("\n")

	sb.WriteString(separator())
	sb.WriteString("ENVIRONMENT VARIABLES\n\n")
	sb.WriteString(g.envVarsSection())
	sb.WriteString("\n")

	sb.WriteString(separator())
	sb.WriteString("HTTP API\n\n")
	sb.WriteString(apiSection())
	sb.WriteString("\n")

	sb.WriteString(separator())
	sb.WriteString("EXAMPLES\n\n")
	sb.WriteString(g.examplesSection())
	sb.WriteString("\n")

	sb.WriteString(separator())
	sb.WriteString("VERSION\n")
	fmt.Fprintf(&sb, "    %s\n", g.appInfo.Version)
	fmt.Fprintf(&sb, "    Built: %s\n\n", g.appInfo.BuildTime)

	if g.appInfo.DocsURL != "" {
		sb.WriteString("DOCUMENTATION\n")
		fmt.Fprintf(&sb, "    %s\n\n", g.appInfo.DocsURL)
	}

	return sb.String()
}

// header generates the header box.
func (g *Generator) header() string {
	title := strings.ToUpper(g.appInfo.Name)
	subtitle := g.appInfo.Description

	if len(subtitle) > width-4 {
		subtitle = subtitle[:width-7] + "..."
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")
	sb.WriteString(centered(title))
	sb.WriteString(centered(subtitle))
	sb.WriteString("+" + strings.Repeat("-", width-2) + "+\n")
	return sb.String()
}

func centered(s string) string {
	pad := (width - 2 - len(s)) / 2
	return "|" + strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-2-pad-len(s)) + "|\n"
}

func separator() string {
	return strings.Repeat("-", width) + "\n\n"
}

func (g *Generator) optionsSection() string {
	return fmt.Sprintf(`    --config <path>       Path to configuration YAML file
                          Env: %s_CONFIG
                          Without a file, defaults and environment are used

    --print-config        Print the effective configuration as YAML and exit
    --schema              Generate JSON Schema and exit
    --schema-output <f>   Write the schema to a file instead of stdout
    --version             Show version information
    --help, -h            Show this help message
`, g.envVarPrefix)
}

func (g *Generator) configSection() string {
	return fmt.Sprintf(`    Configuration is loaded from a YAML file.

    CONFIGURATION FILE STRUCTURE
    ----------------------------
    server:               Local HTTP server (port, callback path, cors)
    auth:                 Client registration (instance, tenant, client_id,
                          redirect_uri, expire_offset, renew_timeout)
    store:                Token store (memory | redis)
    resilience:           Rate limiting, browser launch circuit breaker
    observability:        Metrics, health checks
    log:                  Logging configuration

    CONFIGURATION SOURCES (in order of priority):

    1. ENVIRONMENT VARIABLES
       Pattern: %s_<SECTION>_<KEY>

       Examples:
         %s_AUTH_CLIENT_ID=11111111-2222-3333-4444-555555555555
         %s_STORE_TYPE=redis
         %s_LOG_LEVEL=debug

    2. CONFIGURATION FILE (YAML)
       Base configuration, passed with --config.

    3. .env FILE
       Loaded from the working directory when present.
`, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix, g.envVarPrefix)
}

func (g *Generator) envVarsSection() string {
	return fmt.Sprintf(`    Pattern: %s_<SECTION>_<KEY>

    Notes:
    - All keys are converted to UPPER_SNAKE_CASE
    - Nested keys use underscore as separator
    - Boolean values: true, false, 1, 0
    - Duration values: 6s, 2m, 1h, 100ms

    KEY ENVIRONMENT VARIABLES:
    --------------------------

    [Auth]
      TB_CLIENT_ID                   Application (client) id
      TB_TENANT                      Tenant, e.g. common or contoso.onmicrosoft.com
      TB_INSTANCE                    Authority host
      TB_REDIRECT_URI                Redirect URI registered for the client
      TB_POST_LOGOUT_REDIRECT_URI    Where the logout endpoint sends the user

    [Store]
      TB_STORE                       memory | redis
      REDIS_PASSWORD                 Redis password

    [Server]
      HTTP_PORT                      HTTP listen port

    [Logging]
      LOG_LEVEL                      Log level (debug, info, warn, error)
      DEV_MODE                       Enable development logging
`, g.envVarPrefix)
}

func apiSection() string {
	return `    GET    /callback                 Redirect target; forwards the response
    POST   /callback                 Accepts a posted authorization response
    POST   /login                    Start an interactive login
    POST   /logout                   Clear the cache and sign out
    GET    /api/token?resource=<r>   Cached or silently renewed access token
    GET    /api/user                 Signed-in user
    GET    /api/login-error          Login progress and last login error
    DELETE /api/cache                Clear every cached token
    DELETE /api/cache/<resource>     Clear the token for one resource

    GET    /health                   Liveness probe
    GET    /ready                    Readiness probe
    GET    /metrics                  Prometheus metrics
`
}

func (g *Generator) examplesSection() string {
	name := g.appInfo.Name
	return fmt.Sprintf(`    # Start with config file
    %s --config broker.yaml

    # Start from environment only
    TB_CLIENT_ID=11111111-2222-3333-4444-555555555555 \
    TB_TENANT=contoso.onmicrosoft.com \
    %s

    # Share the token cache between instances
    TB_STORE=redis %s_STORE_REDIS_ADDRESSES=localhost:6379 %s --config broker.yaml

    # Generate JSON schema
    %s --schema > config.schema.json

    # Ask for a token
    curl 'http://localhost:8080/api/token?resource=https%%3A%%2F%%2Fgraph.microsoft.com'
`, name, name, g.envVarPrefix, name, name)
}
