package auth

import (
	"os"
	"strings"

	"github.com/rzn-labs/datasourcer/types"
)

// envFallbacks maps a credential provider to the environment variables
// that can stand in for stored credentials, and the auth field each
// variable fills. Explicit credentials in the store win over these.
var envFallbacks = map[string]map[string]string{
	"tavily":  {"TAVILY_API_KEY": "api_key"},
	"github":  {"GITHUB_TOKEN": "token"},
	"slack":   {"SLACK_TOKEN": "token"},
	"discord": {"DISCORD_TOKEN": "token"},
	"openai":  {"OPENAI_API_KEY": "api_key"},
	"google":  {"GOOGLE_API_KEY": "api_key"},
	"reddit": {
		"REDDIT_CLIENT_ID":     "client_id",
		"REDDIT_CLIENT_SECRET": "client_secret",
	},
}

// EnvFallback builds credentials for a provider from the environment.
// Returns false when no recognized variable is set.
func EnvFallback(provider string) (types.AuthDetails, bool) {
	vars, ok := envFallbacks[provider]
	if !ok {
		return nil, false
	}
	details := types.AuthDetails{}
	for env, field := range vars {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			details[field] = v
		}
	}
	if len(details) == 0 {
		return nil, false
	}
	return details, true
}
