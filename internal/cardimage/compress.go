package cardimage

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

// base64 plus the data URL header inflate the payload by roughly this factor.
const base64Overhead = 1.37

type CompressOptions struct {
	MaxDimension   int
	MaxBytes       int
	InitialQuality int
	MinQuality     int
	QualityStep    int
}

func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		MaxDimension:   2048,
		MaxBytes:       800 * 1024,
		InitialQuality: 80,
		MinQuality:     30,
		QualityStep:    10,
	}
}

// CompressDataURL re-encodes an embedded raster as JPEG, lowering quality
// until the data URL fits the budget or the quality floor is reached.
// Remote URLs and empty values pass through. Any failure returns src.
func CompressDataURL(src string, opts CompressOptions) string {
	if src == "" || IsRemoteURL(src) {
		return src
	}
	img, err := DecodeDataURL(src)
	if err != nil {
		return src
	}

	bounds := img.Bounds()
	if opts.MaxDimension > 0 && (bounds.Dx() > opts.MaxDimension || bounds.Dy() > opts.MaxDimension) {
		img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
	}

	budget := int(float64(opts.MaxBytes) * base64Overhead)
	quality := opts.InitialQuality
	out, err := encodeJPEGDataURL(img, quality)
	if err != nil {
		return src
	}
	for len(out) > budget && quality > opts.MinQuality {
		quality -= opts.QualityStep
		if quality < opts.MinQuality {
			quality = opts.MinQuality
		}
		if out, err = encodeJPEGDataURL(img, quality); err != nil {
			return src
		}
	}
	return out
}

func encodeJPEGDataURL(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return "", err
	}
	return EncodeDataURL("image/jpeg", buf.Bytes()), nil
}
