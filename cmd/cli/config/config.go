package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAPIURL = "http://localhost:8080"
	tokenFileName = ".inventory_token"
)

// Options holds the global flags shared by every command.
type Options struct {
	APIURL string
	Token  string
	JSON   bool
}

// ResolveAPIURL returns the base URL for the inventory API: the --api-url flag,
// then INVENTORY_API_URL, then http://localhost:8080.
func (o *Options) ResolveAPIURL() string {
	if o != nil && o.APIURL != "" {
		return strings.TrimRight(o.APIURL, "/")
	}
	return APIURL()
}

// ResolveToken returns the bearer token: the --token flag, then
// INVENTORY_TOKEN, then the saved token file.
func (o *Options) ResolveToken() (string, error) {
	if o != nil && o.Token != "" {
		return o.Token, nil
	}
	if v := os.Getenv("INVENTORY_TOKEN"); v != "" {
		return v, nil
	}
	tok, err := ReadToken()
	if err != nil {
		return "", errors.New("no API token: pass --token, set INVENTORY_TOKEN or run `invctl token save`")
	}
	return tok, nil
}

// APIURL returns the base URL for the inventory API.
// It can be overridden with the INVENTORY_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("INVENTORY_API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return defaultAPIURL
}

// TokenPath is where the token is saved. INVENTORY_TOKEN_FILE overrides the
// default of ~/.inventory_token.
func TokenPath() (string, error) {
	if v := os.Getenv("INVENTORY_TOKEN_FILE"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, tokenFileName), nil
}

// SaveToken writes the token readable by the current user only.
func SaveToken(token string) error {
	path, err := TokenPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.TrimSpace(token)+"\n"), 0o600)
}

func ReadToken() (string, error) {
	path, err := TokenPath()
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return tok, nil
}

// ClearToken removes the saved token. A missing file is not an error.
func ClearToken() error {
	path, err := TokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
