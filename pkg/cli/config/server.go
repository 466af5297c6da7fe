package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/service/worker"
	"github.com/urfave/cli/v3"
)

// Server holds the HTTP listener and scheduler flags of the serve command
type Server struct {
	addr         string
	baseURL      string
	tlsCert      string
	tlsKey       string
	syncInterval time.Duration
}

func (x *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("BAMBOOSLACK_ADDR"),
			Destination: &x.addr,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL for the application (e.g., https://your-domain.com)",
			Sources:     cli.EnvVars("BAMBOOSLACK_BASE_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "tls-cert",
			Usage:       "TLS certificate file. Serves HTTPS together with --tls-key",
			Category:    "TLS",
			Sources:     cli.EnvVars("BAMBOOSLACK_TLS_CERT"),
			Destination: &x.tlsCert,
		},
		&cli.StringFlag{
			Name:        "tls-key",
			Usage:       "TLS private key file",
			Category:    "TLS",
			Sources:     cli.EnvVars("BAMBOOSLACK_TLS_KEY"),
			Destination: &x.tlsKey,
		},
		&cli.DurationFlag{
			Name:        "sync-interval",
			Usage:       "Interval between status reconciliations",
			Value:       worker.DefaultInterval,
			Sources:     cli.EnvVars("BAMBOOSLACK_SYNC_INTERVAL"),
			Destination: &x.syncInterval,
		},
	}
}

func (x Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", x.addr),
		slog.String("base_url", x.baseURL),
		slog.Bool("tls", x.TLSEnabled()),
		slog.Duration("sync_interval", x.syncInterval),
	)
}

// Fill takes values missing from flags out of the configuration file
func (x *Server) Fill(v *FileValues) {
	fill(&x.baseURL, v.BaseURL)
	fill(&x.tlsCert, v.TLSCert)
	fill(&x.tlsKey, v.TLSKey)
}

// Validate checks the TLS pair is complete
func (x *Server) Validate() error {
	if (x.tlsCert == "") != (x.tlsKey == "") {
		return goerr.Wrap(ErrInvalidConfig, "--tls-cert and --tls-key must be set together")
	}
	return nil
}

func (x *Server) Addr() string                { return x.addr }
func (x *Server) BaseURL() string             { return x.baseURL }
func (x *Server) TLSCert() string             { return x.tlsCert }
func (x *Server) TLSKey() string              { return x.tlsKey }
func (x *Server) SyncInterval() time.Duration { return x.syncInterval }

// TLSEnabled reports whether a certificate and key are configured
func (x *Server) TLSEnabled() bool {
	return x.tlsCert != "" && x.tlsKey != ""
}
