package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
)

var (
	pepper     string
	pepperFile string
)

// SetPepperPath configures where the password pepper is persisted. Call once
// during startup before any hashing happens.
func SetPepperPath(file string) {
	pepperFile = file
}

// GetPepper returns the process-wide pepper, loading it from the configured
// file or generating and persisting a new one on first use. A missing pepper
// is unrecoverable: every stored password hash depends on it.
func GetPepper() string {
	if pepper != "" {
		return pepper
	}

	loaded, err := loadOrGeneratePepper()
	if err != nil {
		slog.Error("failed to load or generate pepper", slog.Any("err", err))
		os.Exit(1)
	}
	pepper = loaded

	return pepper
}

func loadOrGeneratePepper() (string, error) {
	pepperFile = filepath.Clean(pepperFile)
	if err := os.MkdirAll(filepath.Dir(pepperFile), 0750); err != nil {
		return "", err
	}

	if _, err := os.Stat(pepperFile); os.IsNotExist(err) {
		buf := make([]byte, argonKeyLength)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		generated := base64.RawURLEncoding.EncodeToString(buf)

		if err := os.WriteFile(pepperFile, []byte(generated), 0600); err != nil {
			return "", err
		}
		return generated, nil
	}

	existing, err := os.ReadFile(pepperFile)
	if err != nil {
		return "", err
	}
	return string(existing), nil
}
