// Package template stores named watermark settings and converts settings to
// and from their on-disk JSON and YAML forms.
package template

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"photomark/pkg/watermark"
)

// ErrNotFound is returned when a template name does not exist.
var ErrNotFound = errors.New("template not found")

// Store is the template persistence capability.
type Store interface {
	// List returns template names in stable, sorted order.
	List(ctx context.Context) ([]string, error)
	// Load returns the named settings overlaid on watermark.DefaultSettings.
	Load(ctx context.Context, name string) (watermark.Settings, error)
	// LoadOnto returns the named settings overlaid on base. Keys the template
	// does not carry keep base's values.
	LoadOnto(ctx context.Context, name string, base watermark.Settings) (watermark.Settings, error)
	Save(ctx context.Context, name string, s watermark.Settings) error
	Delete(ctx context.Context, name string) error
}

// CheckName rejects names that cannot be stored safely as a file name.
func CheckName(name string) error {
	n := strings.TrimSpace(name)
	switch {
	case n == "":
		return watermark.NewError(watermark.KindInvalidSettings, "", errors.New("template name is empty"))
	case n == "." || n == "..", strings.ContainsAny(n, `/\`), strings.ContainsRune(n, 0):
		return watermark.NewError(watermark.KindInvalidSettings, "", fmt.Errorf("invalid template name %q", name))
	}
	return nil
}
