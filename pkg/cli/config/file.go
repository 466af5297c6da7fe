package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// FileValues are the settings a TOML configuration file may carry.
// A value given by flag or environment variable always wins over the file.
type FileValues struct {
	SlackClientID      string `toml:"slack_client_id"`
	SlackClientSecret  string `toml:"slack_client_secret" masq:"secret"`
	SlackSigningSecret string `toml:"slack_signing_secret" masq:"secret"`
	Cryptokey          string `toml:"cryptokey" masq:"secret"`
	BaseURL            string `toml:"base_url"`
	TLSCert            string `toml:"tls_cert"`
	TLSKey             string `toml:"tls_key"`
}

// File holds the --config flag
type File struct {
	path string
}

func (x *File) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to TOML configuration file",
			Sources:     cli.EnvVars("BAMBOOSLACK_CONFIG"),
			Destination: &x.path,
		},
	}
}

func (x File) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Load reads the configuration file. No --config gives empty values.
func (x *File) Load() (*FileValues, error) {
	if x.path == "" {
		return &FileValues{}, nil
	}
	return LoadFile(x.path)
}

// LoadFile reads and parses a TOML configuration file
func LoadFile(path string) (*FileValues, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "failed to read config file", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var values FileValues
	if err := toml.Unmarshal(data, &values); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path),
			goerr.V("error", err))
	}

	return &values, nil
}

// fill sets *dst to v when *dst is empty
func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
