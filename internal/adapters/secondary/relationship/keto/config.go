package keto

import (
	"errors"
	"strings"
)

// Config points the adapter at a Keto-shaped relationship/permission engine,
// which conventionally splits its read and write APIs across two ports.
type Config struct {
	ReadURL  string
	WriteURL string
}

// Validate checks the configuration and normalizes trailing slashes.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ReadURL) == "" {
		return errors.New("keto: read_url is required")
	}
	if strings.TrimSpace(c.WriteURL) == "" {
		return errors.New("keto: write_url is required")
	}
	c.ReadURL = strings.TrimSuffix(c.ReadURL, "/")
	c.WriteURL = strings.TrimSuffix(c.WriteURL, "/")
	return nil
}
