package config

import (
	"bytes"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Read reads a JSON5 config from the given file after substituting environment
// variables. Fields left out keep their defaults. The config is not validated.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf))
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json5")
	}
	cfg.ConfigFilePath = originalPath
	return cfg, nil
}
