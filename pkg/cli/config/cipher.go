package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/utils/crypt"
	"github.com/urfave/cli/v3"
)

// Cipher holds the process secret protecting the ledger
type Cipher struct {
	cryptokey string
	kdf       string
}

func (x *Cipher) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cryptokey",
			Usage:       "Secret used to encrypt stored tokens",
			Category:    "Storage",
			Sources:     cli.EnvVars("BAMBOOSLACK_CRYPTOKEY"),
			Destination: &x.cryptokey,
		},
		&cli.StringFlag{
			Name:        "cipher-kdf",
			Usage:       "Key derivation for the cryptokey [legacy|hkdf]. hkdf cannot read data written with legacy",
			Category:    "Storage",
			Value:       string(crypt.KDFLegacy),
			Sources:     cli.EnvVars("BAMBOOSLACK_CIPHER_KDF"),
			Destination: &x.kdf,
		},
	}
}

func (x Cipher) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("cryptokey.len", len(x.cryptokey)),
		slog.String("kdf", x.kdf),
	)
}

// Fill takes values missing from flags out of the configuration file
func (x *Cipher) Fill(v *FileValues) {
	fill(&x.cryptokey, v.Cryptokey)
}

// Configure builds the ledger cipher
func (x *Cipher) Configure() (*crypt.Cipher, error) {
	if x.cryptokey == "" {
		return nil, goerr.Wrap(ErrMissingRequired, "cryptokey is required", goerr.V(FlagNameKey, "cryptokey"))
	}

	kdf := crypt.KDF(x.kdf)
	if kdf == "" {
		kdf = crypt.KDFLegacy
	}

	c, err := crypt.New([]byte(x.cryptokey), crypt.WithKDF(kdf))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure cipher", goerr.V(FlagNameKey, "cipher-kdf"))
	}
	return c, nil
}
