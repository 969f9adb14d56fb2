package domain

import "errors"

var (
	// ErrInvalidRasterData reports a raster that cannot be turned into a mask:
	// band 0 is a bare scalar, dimensions are not positive, or the band length
	// does not match width*height.
	ErrInvalidRasterData = errors.New("invalid raster data")

	// ErrDegenerateBounds reports a bounding box with zero (or negative) width or height.
	ErrDegenerateBounds = errors.New("degenerate bounds")

	// ErrInvalidPixelArea reports a resolution that yields a zero or non-finite pixel area.
	ErrInvalidPixelArea = errors.New("invalid pixel area")

	// ErrInvalidRequest reports an analysis request that cannot be parsed.
	ErrInvalidRequest = errors.New("invalid analysis request")
)
