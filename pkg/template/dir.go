package template

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"photomark/pkg/watermark"
)

const templateExt = ".json"

// DirStore keeps one JSON file per template in a directory.
type DirStore struct {
	dir    string
	logger *zap.Logger
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates the directory if needed.
func NewDirStore(dir string, logger *zap.Logger) (*DirStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create template dir: %w", err)
	}
	return &DirStore{dir: dir, logger: logger}, nil
}

func (d *DirStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != templateExt {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), templateExt))
	}
	sort.Strings(names)
	return names, nil
}

func (d *DirStore) Load(ctx context.Context, name string) (watermark.Settings, error) {
	return d.LoadOnto(ctx, name, watermark.DefaultSettings())
}

func (d *DirStore) LoadOnto(ctx context.Context, name string, base watermark.Settings) (watermark.Settings, error) {
	if err := CheckName(name); err != nil {
		return watermark.Settings{}, err
	}
	data, err := os.ReadFile(d.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return watermark.Settings{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return watermark.Settings{}, fmt.Errorf("read template %s: %w", name, err)
	}
	return DecodeSettingsOnto(base, data, JSON)
}

// Save writes through a temporary file and a rename.
func (d *DirStore) Save(ctx context.Context, name string, s watermark.Settings) error {
	if err := CheckName(name); err != nil {
		return err
	}
	data, err := EncodeSettings(s, JSON)
	if err != nil {
		return fmt.Errorf("encode template %s: %w", name, err)
	}
	if err := writeAtomic(d.path(name), data); err != nil {
		return fmt.Errorf("save template %s: %w", name, err)
	}
	d.logger.Info("template saved", zap.String("name", name), zap.String("dir", d.dir))
	return nil
}

func (d *DirStore) Delete(ctx context.Context, name string) error {
	if err := CheckName(name); err != nil {
		return err
	}
	err := os.Remove(d.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("delete template %s: %w", name, err)
	}
	d.logger.Info("template deleted", zap.String("name", name))
	return nil
}

func (d *DirStore) path(name string) string {
	return filepath.Join(d.dir, strings.TrimSpace(name)+templateExt)
}
