package app

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/trialdiary/sponsorportal/pkg/cryptox"
	"github.com/trialdiary/sponsorportal/pkg/jwtx"
)

// initSigningKeys loads the Ed25519 signing key from disk, or generates
// one. With a configured key file the key is created once and reused, so
// sessions survive restarts; without one a fresh ephemeral key means
// every outstanding session token dies with the process.
func initSigningKeys(cfg Config, logger *slog.Logger) (jwtx.Signer, *jwtx.KeySet, jwtx.Verifier, error) {
	var pemKey []byte

	switch {
	case cfg.SigningKeyFile == "":
		var err error
		pemKey, err = cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Warn("no signing key file configured; generated ephemeral key, all existing sessions are now invalid")

	default:
		var err error
		pemKey, err = os.ReadFile(cfg.SigningKeyFile)
		if errors.Is(err, os.ErrNotExist) {
			pemKey, err = cryptox.GenerateEd25519Key()
			if err != nil {
				return nil, nil, nil, err
			}
			if err := os.WriteFile(cfg.SigningKeyFile, pemKey, 0600); err != nil {
				return nil, nil, nil, fmt.Errorf("write signing key: %w", err)
			}
			logger.Info("generated new signing key", "path", cfg.SigningKeyFile)
		} else if err != nil {
			return nil, nil, nil, fmt.Errorf("read signing key: %w", err)
		}
	}

	// The kid is derived from the public key so it stays stable across
	// restarts for a persisted key.
	signer, err := jwtx.NewSignerEdDSA("", pemKey)
	if err != nil {
		return nil, nil, nil, err
	}
	signer, err = jwtx.NewSignerEdDSA(keyID(signer.PublicKey()), pemKey)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := signer.Validate(); err != nil {
		return nil, nil, nil, err
	}

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)

	logger.Info("signing key loaded",
		"alg", signer.Alg(),
		"kid", signer.KID(),
		"issuer", cfg.Issuer,
	)

	return signer, keys, jwtx.NewVerifierEdDSA(keys, cfg.Issuer), nil
}

func keyID(pub []byte) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
