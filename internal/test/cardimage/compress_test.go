package cardimage_test

import (
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprint-backend/internal/cardimage"
)

func TestCompressDataURL_PassThrough(t *testing.T) {
	opts := cardimage.DefaultCompressOptions()

	assert.Equal(t, "", cardimage.CompressDataURL("", opts))
	assert.Equal(t, "https://cdn.example.com/a.png", cardimage.CompressDataURL("https://cdn.example.com/a.png", opts))
	assert.Equal(t, "data:image/png;base64,AAAA", cardimage.CompressDataURL("data:image/png;base64,AAAA", opts))
}

func TestCompressDataURL_ReencodesAsJPEG(t *testing.T) {
	src, err := cardimage.EncodePNGDataURL(solid(64, 64, color.NRGBA{R: 90, G: 120, B: 200, A: 255}))
	require.NoError(t, err)

	out := cardimage.CompressDataURL(src, cardimage.DefaultCompressOptions())
	assert.True(t, strings.HasPrefix(out, "data:image/jpeg;base64,"))
}

func TestCompressDataURL_FitsMaxDimension(t *testing.T) {
	src, err := cardimage.EncodePNGDataURL(solid(200, 100, color.NRGBA{A: 255}))
	require.NoError(t, err)

	opts := cardimage.DefaultCompressOptions()
	opts.MaxDimension = 50

	img, err := cardimage.DecodeDataURL(cardimage.CompressDataURL(src, opts))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())
}

func TestDataURLHelpers(t *testing.T) {
	assert.True(t, cardimage.IsDataURL("data:image/png;base64,AAAA"))
	assert.False(t, cardimage.IsDataURL("https://x/y.png"))
	assert.True(t, cardimage.IsRemoteURL("http://x/y.png"))
	assert.Equal(t, "jpeg", cardimage.ImageExtension("data:image/jpeg;base64,AAAA"))
	assert.Equal(t, "png", cardimage.ImageExtension("https://x/y"))

	mime, data, err := cardimage.ParseDataURL(cardimage.EncodeDataURL("image/webp", []byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mime)
	assert.Equal(t, []byte("abc"), data)

	_, _, err = cardimage.ParseDataURL("https://x/y.png")
	assert.ErrorIs(t, err, cardimage.ErrNotDataURL)
}

func TestDefaultCompressOptions(t *testing.T) {
	opts := cardimage.DefaultCompressOptions()

	assert.Equal(t, 800*1024, opts.MaxBytes)
	assert.Equal(t, 2048, opts.MaxDimension)
	assert.Equal(t, 80, opts.InitialQuality)
	assert.Equal(t, 30, opts.MinQuality)
}
