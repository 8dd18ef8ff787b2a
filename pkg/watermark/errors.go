package watermark

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so batch callers can report it without
// inspecting error strings.
type Kind string

const (
	KindImageDecode     Kind = "ImageDecodeError"
	KindFontResolution  Kind = "FontResolutionError"
	KindOverwriteGuard  Kind = "OverwriteGuard"
	KindEncode          Kind = "EncodeError"
	KindInvalidSettings Kind = "InvalidSettings"
	KindRender          Kind = "RenderError"
)

// Error is the error type returned by the render and export pipeline.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrImageDecode     = &Error{Kind: KindImageDecode}
	ErrFontResolution  = &Error{Kind: KindFontResolution}
	ErrOverwriteGuard  = &Error{Kind: KindOverwriteGuard}
	ErrEncode          = &Error{Kind: KindEncode}
	ErrInvalidSettings = &Error{Kind: KindInvalidSettings}
	ErrRender          = &Error{Kind: KindRender}
)

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError wraps err as a failure of the given kind.
func NewError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidSettings, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
