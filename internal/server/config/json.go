package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authbridge/internal/flagx"
	"github.com/dmitrijs2005/authbridge/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// "10s"-style strings or integer nanoseconds. Pointer fields distinguish
// "absent" from zero values so the file only overrides what it names.
type JsonConfig struct {
	EndpointAddrHTTP    *string         `json:"endpoint_addr_http"`
	DatabaseDSN         *string         `json:"database_dsn"`
	CognitoClientID     *string         `json:"cognito_client_id"`
	CognitoClientSecret *string         `json:"cognito_client_secret"`
	CognitoRegion       *string         `json:"cognito_region"`
	CognitoUserPoolID   *string         `json:"cognito_user_pool_id"`
	CognitoBaseEndpoint *string         `json:"cognito_base_endpoint"`
	ProviderTimeout     *timex.Duration `json:"provider_timeout"`
	CookieSecure        *bool           `json:"cookie_secure"`
	CORSAllowedOrigins  []string        `json:"cors_allowed_origins"`
	LogLevel            *string         `json:"log_level"`
	ReconcileInterval   *timex.Duration `json:"reconcile_interval"`
	ReconcileBatchSize  *int            `json:"reconcile_batch_size"`
}

// parseJson overlays values from the file named by -c/-config. Nothing
// happens when no file is given; unreadable or invalid files panic.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.CognitoClientID, c.CognitoClientID)
	setString(&config.CognitoClientSecret, c.CognitoClientSecret)
	setString(&config.CognitoRegion, c.CognitoRegion)
	setString(&config.CognitoUserPoolID, c.CognitoUserPoolID)
	setString(&config.CognitoBaseEndpoint, c.CognitoBaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)

	if c.ProviderTimeout != nil {
		config.ProviderTimeout = c.ProviderTimeout.Duration
	}
	if c.ReconcileInterval != nil {
		config.ReconcileInterval = c.ReconcileInterval.Duration
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	if c.ReconcileBatchSize != nil {
		config.ReconcileBatchSize = *c.ReconcileBatchSize
	}
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
