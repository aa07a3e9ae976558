package rescale

import (
	"context"
	"errors"

	"github.com/rshade/fixupem/internal/fontfile"
	"github.com/rshade/fixupem/internal/fontlib"
)

// ProcessFont rescales the font or collection at src to upm and saves it to dst.
// The container type comes from src's extension. Files with any other extension
// are left alone and nothing is written. Errors from the library are returned as is.
func ProcessFont(ctx context.Context, lib fontlib.Library, src, dst string, upm int) (err error) {
	switch fontfile.KindOf(src) {
	case fontfile.KindSingle:
		font, openErr := lib.OpenFont(ctx, src)
		if openErr != nil {
			return openErr
		}
		defer func() { err = errors.Join(err, font.Close()) }()

		if err = lib.ScaleUpem(ctx, font, upm); err != nil {
			return err
		}
		return font.Save(ctx, dst)

	case fontfile.KindCollection:
		coll, openErr := lib.OpenCollection(ctx, src)
		if openErr != nil {
			return openErr
		}
		defer func() { err = errors.Join(err, coll.Close()) }()

		for _, font := range coll.Fonts() {
			if err = lib.ScaleUpem(ctx, font, upm); err != nil {
				return err
			}
		}
		return coll.Save(ctx, dst)

	default:
		return nil
	}
}
