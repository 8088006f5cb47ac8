package config

import (
	"github.com/pelletier/go-toml/v2"
)

// TOMLParser implements koanf.Parser on go-toml.
type TOMLParser struct{}

// TOML returns a TOML parser for koanf.
func TOML() *TOMLParser {
	return &TOMLParser{}
}

// Unmarshal parses TOML bytes into a nested map.
func (p *TOMLParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Marshal encodes a nested map as TOML.
func (p *TOMLParser) Marshal(o map[string]interface{}) ([]byte, error) {
	return toml.Marshal(o)
}
