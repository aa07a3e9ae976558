// Package fontfile classifies font files by extension and reads the few header
// facts fixupem needs (member count, units-per-em, name) with a read-only sfnt parser.
package fontfile

import (
	"path/filepath"
	"strings"
)

// Kind is the container type implied by a font file's extension.
type Kind int

const (
	// KindUnsupported is any file that is not a font this tool handles.
	KindUnsupported Kind = iota
	// KindSingle is a standalone TrueType or OpenType font (.ttf, .otf).
	KindSingle
	// KindCollection is a font collection (.ttc, .otc).
	KindCollection
)

// String returns a short human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "font"
	case KindCollection:
		return "collection"
	default:
		return "unsupported"
	}
}

// KindOf returns the kind for name, matching the extension case-insensitively.
func KindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ttf", ".otf":
		return KindSingle
	case ".ttc", ".otc":
		return KindCollection
	default:
		return KindUnsupported
	}
}

// Supported reports whether name has one of the four handled extensions.
func Supported(name string) bool {
	return KindOf(name) != KindUnsupported
}
