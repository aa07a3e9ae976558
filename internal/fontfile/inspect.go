package fontfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/image/font/sfnt"
)

// ErrNotFont is returned when a file cannot be parsed as an sfnt font or collection.
var ErrNotFont = errors.New("not a valid sfnt font")

// Member describes one font inside a file.
type Member struct {
	Index      int
	UnitsPerEm int
	Name       string
}

// Info describes a font file. A standalone font has exactly one member.
type Info struct {
	Path       string
	Collection bool
	Members    []Member
}

// UnitsPerEm returns the units-per-em shared by all members, or 0 if they differ
// or the file has no members.
func (i *Info) UnitsPerEm() int {
	if len(i.Members) == 0 {
		return 0
	}
	upm := i.Members[0].UnitsPerEm
	for _, m := range i.Members[1:] {
		if m.UnitsPerEm != upm {
			return 0
		}
	}
	return upm
}

// Inspect parses every member of the font file at path.
func Inspect(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return InspectBytes(path, data)
}

// InspectBytes is Inspect for data already in memory. path is only recorded in the result.
func InspectBytes(path string, data []byte) (*Info, error) {
	c, err := sfnt.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFont, err)
	}

	info := &Info{
		Path:       path,
		Collection: KindOf(path) == KindCollection || c.NumFonts() > 1,
		Members:    make([]Member, 0, c.NumFonts()),
	}

	var buf sfnt.Buffer
	for i, n := 0, c.NumFonts(); i < n; i++ {
		f, fontErr := c.Font(i)
		if fontErr != nil {
			return nil, fmt.Errorf("%w: member %d: %w", ErrNotFont, i, fontErr)
		}
		name, nameErr := f.Name(&buf, sfnt.NameIDFull)
		if nameErr != nil {
			name = ""
		}
		info.Members = append(info.Members, Member{
			Index:      i,
			UnitsPerEm: int(f.UnitsPerEm()),
			Name:       name,
		})
	}

	return info, nil
}
