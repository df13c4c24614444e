package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authbridge/internal/flagx"
)

// parseFlags overlays selected fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-i string   Cognito app client id
//	-s string   Cognito app client secret
//	-g string   Cognito region
//	-l string   Cognito user pool id
//	-e string   Cognito base endpoint override
//	-t int      provider call timeout, seconds
//	-k bool     Secure attribute on session cookies
//	-v string   log level
//	-r int      reconcile interval, seconds
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-i", "-s", "-g", "-l", "-e", "-t", "-k", "-v", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CognitoClientID, "i", config.CognitoClientID, "Cognito app client id")
	fs.StringVar(&config.CognitoClientSecret, "s", config.CognitoClientSecret, "Cognito app client secret")
	fs.StringVar(&config.CognitoRegion, "g", config.CognitoRegion, "Cognito region")
	fs.StringVar(&config.CognitoUserPoolID, "l", config.CognitoUserPoolID, "Cognito user pool id")
	fs.StringVar(&config.CognitoBaseEndpoint, "e", config.CognitoBaseEndpoint, "Cognito base endpoint")
	fs.BoolVar(&config.CookieSecure, "k", config.CookieSecure, "secure session cookies")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	providerTimeout := fs.Int("t", int(config.ProviderTimeout.Seconds()), "provider timeout (in seconds)")
	reconcileInterval := fs.Int("r", int(config.ReconcileInterval.Seconds()), "reconcile interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ProviderTimeout = time.Duration(*providerTimeout) * time.Second
	config.ReconcileInterval = time.Duration(*reconcileInterval) * time.Second
}
