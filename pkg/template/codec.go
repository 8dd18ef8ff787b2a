package template

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"photomark/pkg/watermark"
)

// Codec names a settings serialization.
type Codec string

const (
	JSON Codec = "json"
	YAML Codec = "yaml"
)

// CodecFor picks a codec from a file extension; anything but .yaml/.yml is JSON.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// DecodeSettings parses data over watermark.DefaultSettings: keys present in
// data replace defaults, unknown keys are ignored.
func DecodeSettings(data []byte, c Codec) (watermark.Settings, error) {
	return DecodeSettingsOnto(watermark.DefaultSettings(), data, c)
}

// DecodeSettingsOnto is DecodeSettings with an explicit base.
func DecodeSettingsOnto(base watermark.Settings, data []byte, c Codec) (watermark.Settings, error) {
	s := base
	var err error
	switch c {
	case YAML:
		err = yaml.Unmarshal(data, &s)
	default:
		err = sonic.ConfigStd.Unmarshal(data, &s)
	}
	if err != nil {
		return watermark.Settings{}, watermark.NewError(watermark.KindInvalidSettings, "", fmt.Errorf("decode %s settings: %w", c, err))
	}
	return s, nil
}

// EncodeSettings serializes s. JSON output is indented for hand editing.
func EncodeSettings(s watermark.Settings, c Codec) ([]byte, error) {
	switch c {
	case YAML:
		return yaml.Marshal(s)
	default:
		return sonic.ConfigStd.MarshalIndent(s, "", "  ")
	}
}
