package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"photomark/pkg/watermark"
)

// ReadFile decodes the settings file at path over base. The codec follows the
// file extension.
func ReadFile(path string, base watermark.Settings) (watermark.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read settings %s: %w", path, err)
	}
	s, err := DecodeSettingsOnto(base, data, CodecFor(path))
	if err != nil {
		return base, err
	}
	return s, nil
}

// ReadFileIfExists is ReadFile that returns base unchanged when path does
// not exist.
func ReadFileIfExists(path string, base watermark.Settings) (watermark.Settings, error) {
	s, err := ReadFile(path, base)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	return s, err
}

// WriteFile encodes s with the codec matching path's extension and replaces
// path atomically, creating its directory if needed.
func WriteFile(path string, s watermark.Settings) error {
	data, err := EncodeSettings(s, CodecFor(path))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

// writeAtomic writes data to a hidden temporary file next to path and renames
// it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
