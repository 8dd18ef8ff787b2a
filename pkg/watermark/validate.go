package watermark

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func settingsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate reports an InvalidSettings error for values that would make every
// file in a batch fail the same way. Out-of-range opacity and position are
// not errors; they are clamped where they are used.
func (s Settings) Validate() error {
	if err := settingsValidator().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return invalidf("%s", strings.Join(msgs, "; "))
		}
		return invalidf("%v", err)
	}
	if s.Anchor != "" {
		if _, err := ParseAnchor(string(s.Anchor)); err != nil {
			return err
		}
	}
	if math.IsNaN(s.Rotation) || math.IsInf(s.Rotation, 0) {
		return invalidf("rotation must be a finite number")
	}
	switch s.Mode {
	case ModeText:
		if strings.TrimSpace(s.Text) == "" {
			return invalidf("text watermark requires non-empty text")
		}
	case ModeImage:
		if strings.TrimSpace(s.ImagePath) == "" {
			return invalidf("image watermark requires image_path")
		}
		if s.UseRelativeScale && !(s.ImageScale > 0) {
			return invalidf("image_scale must be positive, got %v", s.ImageScale)
		}
	}
	if s.FilenameRule != FilenameKeep && s.FilenameAffix == "" {
		return invalidf("filename rule %q requires a non-empty affix", s.FilenameRule)
	}
	return nil
}
