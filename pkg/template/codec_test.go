package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photomark/pkg/watermark"
)

func TestCodecFor(t *testing.T) {
	assert.Equal(t, YAML, CodecFor("a/b.yaml"))
	assert.Equal(t, YAML, CodecFor("b.YML"))
	assert.Equal(t, JSON, CodecFor("b.json"))
	assert.Equal(t, JSON, CodecFor("noext"))
}

func TestDecodeYAMLOverlaysDefaults(t *testing.T) {
	data := []byte(`
mode: image
image_path: logo.png
anchor: top-right
image_scale: 0.1
jpeg_background: [0, 0, 0]
`)
	got, err := DecodeSettings(data, YAML)
	require.NoError(t, err)

	want := watermark.DefaultSettings()
	want.Mode = watermark.ModeImage
	want.ImagePath = "logo.png"
	want.Anchor = watermark.TopRight
	want.ImageScale = 0.1
	want.JPEGBackground = watermark.RGB{0, 0, 0}
	assert.Equal(t, want, got)
}

func TestDecodeOntoBase(t *testing.T) {
	base := watermark.DefaultSettings()
	base.Text = "from template"
	base.Margin = 25

	got, err := DecodeSettingsOnto(base, []byte(`{"opacity": 0.2}`), JSON)
	require.NoError(t, err)
	assert.Equal(t, "from template", got.Text)
	assert.Equal(t, 25, got.Margin)
	assert.Equal(t, 0.2, got.Opacity)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := DecodeSettings([]byte(`{"text": `), JSON)
	assert.ErrorIs(t, err, watermark.ErrInvalidSettings)

	_, err = DecodeSettings([]byte("text: [unterminated"), YAML)
	assert.ErrorIs(t, err, watermark.ErrInvalidSettings)
}

func TestEncodeDecodeBothCodecs(t *testing.T) {
	s := watermark.DefaultSettings()
	s.Text = "line one\nline two"
	s.Shadow = true
	s.ShadowOffset = [2]int{-3, 4}
	s.Position = [2]float64{0.1, 0.9}

	for _, c := range []Codec{JSON, YAML} {
		data, err := EncodeSettings(s, c)
		require.NoError(t, err, c)
		got, err := DecodeSettings(data, c)
		require.NoError(t, err, c)
		assert.Equal(t, s, got, c)
	}
}
