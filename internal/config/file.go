package config

import (
	"errors"
	"io/fs"
	// Embedded zone database so location names resolve on minimal hosts.
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// YAML renders the effective configuration. The auth secret is never
// rendered.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
