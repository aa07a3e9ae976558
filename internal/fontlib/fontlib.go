// Package fontlib is the boundary to the external font library that owns the
// units-per-em rescaling math. fixupem never touches glyph data itself: it opens
// handles, asks the library to scale them, and saves them.
package fontlib

import (
	"context"
	"errors"
)

// ErrForeignHandle is returned when a handle from one Library is passed to another.
var ErrForeignHandle = errors.New("font handle does not belong to this library")

// Font is a single loaded font.
type Font interface {
	// Save writes the font to path, replacing any existing file.
	Save(ctx context.Context, path string) error
	// Close releases resources held by the handle.
	Close() error
}

// Collection is a loaded font collection with its members in collection order.
type Collection interface {
	Fonts() []Font
	// Save writes the whole collection to path, replacing any existing file.
	Save(ctx context.Context, path string) error
	Close() error
}

// Library loads fonts and rescales them in place.
type Library interface {
	OpenFont(ctx context.Context, path string) (Font, error)
	OpenCollection(ctx context.Context, path string) (Collection, error)
	// ScaleUpem sets the font's units-per-em to upm and rescales every
	// dependent metric and outline.
	ScaleUpem(ctx context.Context, f Font, upm int) error
}
