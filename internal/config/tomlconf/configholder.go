package tomlconf

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// ConfigHolder holds the type of an implementation along with its raw config, to be unmarshaled by whatever handles
// that type. It implements interfaces.Unmarshaler
type ConfigHolder struct {
	Type     string                 `toml:"type"`
	RealConf map[string]interface{} `toml:"server"`
}

// Unmarshal decodes the held config into v, which must be a pointer
func (c *ConfigHolder) Unmarshal(v interface{}) error {
	if c.RealConf == nil {
		return fmt.Errorf("no config available for type %q", c.Type)
	}
	return decode(c.RealConf, v)
}

// decode copies the data in a map created by toml.Tree.ToMap into the struct pointed to by out
func decode(in, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      out,
		TagName:     "toml",
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
