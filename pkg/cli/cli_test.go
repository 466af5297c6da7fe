package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/bambooslack/pkg/cli"
	"github.com/secmon-lab/bambooslack/pkg/cli/config"
)

func TestRun_SyncCommand_EmptyLedger(t *testing.T) {
	err := cli.Run(context.Background(), []string{
		"bambooslack", "sync",
		"--repository-backend", "memory",
		"--cryptokey", "my-cryptokey",
		"--slack-client-id", "1234.5678",
		"--slack-client-secret", "client-secret",
	}, "test")
	gt.NoError(t, err)
}

func TestRun_SyncCommand_ConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
slack_client_id = "1234.5678"
slack_client_secret = "client-secret"
cryptokey = "my-cryptokey"
`
	gt.NoError(t, os.WriteFile(configPath, []byte(content), 0o600)).Required()

	err := cli.Run(context.Background(), []string{
		"bambooslack", "sync",
		"--repository-backend", "memory",
		"--config", configPath,
	}, "test")
	gt.NoError(t, err)
}

func TestRun_SyncCommand_MissingCryptokey(t *testing.T) {
	err := cli.Run(context.Background(), []string{
		"bambooslack", "sync",
		"--repository-backend", "memory",
		"--slack-client-id", "1234.5678",
		"--slack-client-secret", "client-secret",
	}, "test")
	gt.Error(t, err).Is(config.ErrMissingRequired)
}

func TestRun_SyncCommand_MissingConfigFile(t *testing.T) {
	err := cli.Run(context.Background(), []string{
		"bambooslack", "sync",
		"--repository-backend", "memory",
		"--config", filepath.Join(t.TempDir(), "missing.toml"),
	}, "test")
	gt.Error(t, err).Is(config.ErrConfigNotFound)
}

func TestRun_ServeCommand_HalfTLSPair(t *testing.T) {
	err := cli.Run(context.Background(), []string{
		"bambooslack", "serve",
		"--repository-backend", "memory",
		"--cryptokey", "my-cryptokey",
		"--slack-client-id", "1234.5678",
		"--slack-client-secret", "client-secret",
		"--slack-signing-secret", "signing-secret",
		"--tls-cert", "cert.pem",
	}, "test")
	gt.Error(t, err).Is(config.ErrInvalidConfig)
}

func TestRun_ServeCommand_MissingSigningSecret(t *testing.T) {
	err := cli.Run(context.Background(), []string{
		"bambooslack", "serve",
		"--addr", "127.0.0.1:0",
		"--repository-backend", "memory",
		"--cryptokey", "my-cryptokey",
		"--slack-client-id", "1234.5678",
		"--slack-client-secret", "client-secret",
	}, "test")
	gt.Value(t, err).NotNil()
}
