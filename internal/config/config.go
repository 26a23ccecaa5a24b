// Package config provides configuration management for the emulator.
//
// Unlike a distributed store, this server has no cluster topology, no
// storage tiers, and no identity provider to configure — its entire
// configuration surface is the command line. Load takes the flags
// already parsed by cmd/nebulaio/main.go, applies defaults, and
// validates the result once, returning an error that causes the caller
// to exit 1 rather than panicking.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the fully resolved, validated configuration for one
// server instance.
type Config struct {
	// DataDir is the root directory the filesystem storage backend
	// writes buckets and objects under. Required.
	DataDir string

	// Address is the interface the HTTP listener binds to.
	Address string
	// Port is the HTTP listener port.
	Port int

	// Silent disables all logging output (maps to zerolog.Disabled).
	Silent bool

	// CertFile and KeyFile enable TLS when both are set. Either both or
	// neither must be present.
	CertFile string
	KeyFile  string

	// ServiceEndpoint is the domain suffix recognized for
	// virtual-host-style bucket addressing, e.g. "amazonaws.com".
	ServiceEndpoint string

	// AllowMismatchedSignatures accepts a well-formed but incorrect
	// SigV4 signature as belonging to the declared account. Tests only.
	AllowMismatchedSignatures bool

	// NoVHostBuckets disables the bare-hostname-as-bucket fallback in
	// the Host/Path router.
	NoVHostBuckets bool

	// ConfigureBuckets preconfigures buckets (and optionally their
	// subresources) at startup, before the listener accepts traffic.
	ConfigureBuckets []BucketPreconfig
}

// BucketPreconfig names a bucket to create at startup and, optionally,
// one or more subresource configuration files (CORS/website/tagging/
// lifecycle XML) to apply to it immediately afterward.
type BucketPreconfig struct {
	Name        string
	ConfigFiles []string
}

// Options are the command-line values gathered by main.go, passed
// through to Load for defaulting and validation.
type Options struct {
	DataDir                   string
	Address                   string
	Port                      int
	Silent                    bool
	CertFile                  string
	KeyFile                   string
	ServiceEndpoint           string
	AllowMismatchedSignatures bool
	NoVHostBuckets            bool
	// ConfigureBucketArgs holds the raw "-configure-bucket" flag values,
	// one entry per occurrence of the flag, each a
	// "name[,configFile...]" string.
	ConfigureBucketArgs []string
}

const (
	// DefaultPort is the listener port used when -p is not given.
	DefaultPort = 9000
	// DefaultAddress is the bind address used when -a is not given.
	DefaultAddress = "0.0.0.0"
	// DefaultServiceEndpoint is the virtual-host domain suffix assumed
	// when --service-endpoint is not given.
	DefaultServiceEndpoint = "amazonaws.com"
)

// Load resolves Options into a validated Config.
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		DataDir:                   opts.DataDir,
		Address:                   opts.Address,
		Port:                      opts.Port,
		Silent:                    opts.Silent,
		CertFile:                  opts.CertFile,
		KeyFile:                   opts.KeyFile,
		ServiceEndpoint:           opts.ServiceEndpoint,
		AllowMismatchedSignatures: opts.AllowMismatchedSignatures,
		NoVHostBuckets:            opts.NoVHostBuckets,
	}

	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ServiceEndpoint == "" {
		cfg.ServiceEndpoint = DefaultServiceEndpoint
	}

	preconfigs, err := parseConfigureBucketArgs(opts.ConfigureBucketArgs)
	if err != nil {
		return nil, err
	}
	cfg.ConfigureBuckets = preconfigs

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data directory is required (-d)")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}

	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("config: --cert and --key must both be set or both be omitted")
	}

	for _, bucket := range c.ConfigureBuckets {
		if bucket.Name == "" {
			return fmt.Errorf("config: --configure-bucket entry is missing a bucket name")
		}
	}

	return nil
}

// parseConfigureBucketArgs parses one or more "-configure-bucket"
// occurrences, each of the form "name[,configFile...]". Config file paths
// are kept as given; a manifest file named here is not expanded (only
// LoadManifest reads manifests).
func parseConfigureBucketArgs(args []string) ([]BucketPreconfig, error) {
	var result []BucketPreconfig
	for _, arg := range args {
		fields := strings.Split(arg, ",")
		name := strings.TrimSpace(fields[0])
		if name == "" {
			return nil, fmt.Errorf("config: --configure-bucket requires a bucket name")
		}

		var files []string
		for _, f := range fields[1:] {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			files = append(files, f)
		}
		result = append(result, BucketPreconfig{Name: name, ConfigFiles: files})
	}
	return result, nil
}

// manifest is the on-disk shape of a bucket preconfiguration bundle: a
// YAML file naming one or more buckets and the subresource config files
// to apply to each. The --configure-bucket argument parser does not read
// manifests; LoadManifest is their only reader.
type manifest struct {
	Buckets []manifestBucket `yaml:"buckets"`
}

type manifestBucket struct {
	Name        string   `yaml:"name"`
	ConfigFiles []string `yaml:"configFiles"`
}

// LoadManifest reads a bucket preconfiguration manifest from path.
func LoadManifest(path string) ([]BucketPreconfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading manifest %s: %w", path, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parsing manifest %s: %w", path, err)
	}

	result := make([]BucketPreconfig, 0, len(m.Buckets))
	for _, b := range m.Buckets {
		if b.Name == "" {
			return nil, fmt.Errorf("config: manifest %s has a bucket entry with no name", path)
		}
		result = append(result, BucketPreconfig{Name: b.Name, ConfigFiles: b.ConfigFiles})
	}
	return result, nil
}
