package qrdecode

import "errors"

var (
	// ErrEncoding is returned when image data is not valid base64
	ErrEncoding = errors.New("invalid image data encoding")

	// ErrImageFormat is returned when image bytes are not a decodable raster container
	ErrImageFormat = errors.New("unrecognized or corrupt image format")
)
