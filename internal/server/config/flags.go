package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/cartkeeper/internal/flagx"
	"github.com/dmitrijs2005/cartkeeper/internal/timex"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-g string   gRPC health bind address (e.g. ":50051")
//	-d string   PostgreSQL DSN
//	-o string   allowed CORS origin(s), comma-separated
//	-m string   runtime mode ("development" or "production")
//	-t string   access token validity ("15m", "1d")
//	-r string   refresh token validity ("10d")
//
// Secrets are deliberately not settable from the command line, where they
// would show up in process listings.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-o", "-m", "-t", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run HTTP server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to run gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CORSOrigin, "o", config.CORSOrigin, "allowed CORS origin(s)")
	fs.StringVar(&config.Mode, "m", config.Mode, "runtime mode")

	accessTTL := fs.String("t", config.AccessTokenValidityDuration.String(), "access token validity")
	refreshTTL := fs.String("r", config.RefreshTokenValidityDuration.String(), "refresh token validity")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = mustParseDuration(*accessTTL)
	config.RefreshTokenValidityDuration = mustParseDuration(*refreshTTL)
}

func mustParseDuration(s string) time.Duration {
	d, err := timex.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}
