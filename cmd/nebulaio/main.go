package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/piwi3910/nebulaio/internal/config"
	"github.com/piwi3910/nebulaio/internal/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	version = "dev"
	commit  = "none"
)

// stringSlice collects repeated occurrences of a flag, e.g.
// -configure-bucket a -configure-bucket b.
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }
func (s *stringSlice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	dataDir := flag.String("d", "", "Data directory path (required)")
	address := flag.String("a", "", "Address to bind to")
	port := flag.Int("p", 0, "Port to listen on")
	silent := flag.Bool("s", false, "Suppress log output")
	keyFile := flag.String("key", "", "TLS private key file")
	certFile := flag.String("cert", "", "TLS certificate file")
	serviceEndpoint := flag.String("service-endpoint", "", "Virtual-host service endpoint, e.g. amazonaws.com")
	allowMismatchedSignatures := flag.Bool("allow-mismatched-signatures", false, "Accept any well-formed SigV4 signature")
	noVHostBuckets := flag.Bool("no-vhost-buckets", false, "Disable bare-hostname-as-bucket addressing")
	showVersion := flag.Bool("version", false, "Show version information")

	var configureBuckets stringSlice
	flag.Var(&configureBuckets, "configure-bucket", "Preconfigure a bucket at startup: name[,configFile...] (repeatable)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("nebulaio %s (%s)\n", version, commit)
		os.Exit(0)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if *silent {
		zerolog.SetGlobalLevel(zerolog.Disabled)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.Load(config.Options{
		DataDir:                   *dataDir,
		Address:                   *address,
		Port:                      *port,
		Silent:                    *silent,
		CertFile:                  *certFile,
		KeyFile:                   *keyFile,
		ServiceEndpoint:           *serviceEndpoint,
		AllowMismatchedSignatures: *allowMismatchedSignatures,
		NoVHostBuckets:            *noVHostBuckets,
		ConfigureBucketArgs:       configureBuckets,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to start nebulaio")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}

	log.Info().Msg("nebulaio shutdown complete")
}
