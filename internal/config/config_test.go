package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(Options{DataDir: "./data"})
	require.NoError(t, err)

	assert.Equal(t, DefaultAddress, cfg.Address)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultServiceEndpoint, cfg.ServiceEndpoint)
}

func TestLoadRequiresDataDir(t *testing.T) {
	_, err := Load(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory")
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	_, err := Load(Options{DataDir: "./data", Port: 70000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestLoadRejectsMismatchedTLSFiles(t *testing.T) {
	_, err := Load(Options{DataDir: "./data", CertFile: "server.crt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--cert and --key")
}

func TestLoadAcceptsCompleteTLSPair(t *testing.T) {
	cfg, err := Load(Options{DataDir: "./data", CertFile: "server.crt", KeyFile: "server.key"})
	require.NoError(t, err)
	assert.Equal(t, "server.crt", cfg.CertFile)
	assert.Equal(t, "server.key", cfg.KeyFile)
}

func TestLoadParsesConfigureBucketArgs(t *testing.T) {
	cfg, err := Load(Options{
		DataDir: "./data",
		ConfigureBucketArgs: []string{
			"my-bucket",
			"other-bucket,cors.xml,website.xml",
		},
	})
	require.NoError(t, err)
	require.Len(t, cfg.ConfigureBuckets, 2)

	assert.Equal(t, "my-bucket", cfg.ConfigureBuckets[0].Name)
	assert.Empty(t, cfg.ConfigureBuckets[0].ConfigFiles)

	assert.Equal(t, "other-bucket", cfg.ConfigureBuckets[1].Name)
	assert.Equal(t, []string{"cors.xml", "website.xml"}, cfg.ConfigureBuckets[1].ConfigFiles)
}

func TestLoadRejectsConfigureBucketWithoutName(t *testing.T) {
	_, err := Load(Options{
		DataDir:              "./data",
		ConfigureBucketArgs: []string{",cors.xml"},
	})
	require.Error(t, err)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.yaml")
	content := `
buckets:
  - name: bucket-one
    configFiles:
      - cors.xml
  - name: bucket-two
`
	require.NoError(t, os.WriteFile(manifestPath, []byte(content), 0o644))

	buckets, err := LoadManifest(manifestPath)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "bucket-one", buckets[0].Name)
	assert.Equal(t, []string{"cors.xml"}, buckets[0].ConfigFiles)
	assert.Equal(t, "bucket-two", buckets[1].Name)
	assert.Empty(t, buckets[1].ConfigFiles)
}

func TestLoadManifestRejectsMissingName(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.yaml")
	content := "buckets:\n  - configFiles: [cors.xml]\n"
	require.NoError(t, os.WriteFile(manifestPath, []byte(content), 0o644))

	_, err := LoadManifest(manifestPath)
	require.Error(t, err)
}
