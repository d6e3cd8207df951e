package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/blogapi/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":4444")
//	-d string   PostgreSQL DSN
//	-e string   environment (development|production|test)
//	-t string   token TTL shorthand (15m, 2h, 3600)
//	-x          trust X-Forwarded-For from the reverse proxy
//	-u string   upload directory (fs cover store)
//
// The signing secret deliberately has no flag; it arrives via JWT_KEY or the
// JSON file so it never shows up in process listings.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-e", "-t", "-x", "-u"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")
	ttl := fs.String("t", "", "token TTL (15m, 2h, or seconds)")
	fs.BoolVar(&config.TrustProxy, "x", config.TrustProxy, "trust reverse-proxy forwarded address header")
	fs.StringVar(&config.UploadDir, "u", config.UploadDir, "cover upload directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *ttl != "" {
		if d, err := ParseTTL(*ttl); err == nil && d > 0 {
			config.TokenTTL = d
		}
	}
}
