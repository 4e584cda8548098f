package handlers_test

import (
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprint-backend/internal/cardimage"
	"cardprint-backend/internal/handlers"
	"cardprint-backend/internal/models"
)

func setupImageRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/images/bleed", handlers.BleedHandler)
	router.POST("/images/mask", handlers.MaskHandler)
	return router
}

func solidDataURL(t *testing.T, w, h int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	out, err := cardimage.EncodePNGDataURL(img)
	require.NoError(t, err)
	return out
}

func decodeImageResponse(t *testing.T, body []byte) image.Image {
	t.Helper()
	var resp models.ImageResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	img, err := cardimage.DecodeDataURL(resp.Image)
	require.NoError(t, err)
	return img
}

func TestBleedHandler(t *testing.T) {
	router := setupImageRouter()
	src := solidDataURL(t, 63, 88, color.NRGBA{R: 255, A: 255})

	body, _ := json.Marshal(models.BleedRequest{Image: src, TrimMM: 2.5, BleedMM: 1.9, HasBleed: true})
	w := postJSON(router, "/images/bleed", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	img := decodeImageResponse(t, w.Body.Bytes())
	assert.Equal(t, 750+2*cardimage.MMToPx(1.9), img.Bounds().Dx())
	assert.Equal(t, 1050+2*cardimage.MMToPx(1.9), img.Bounds().Dy())
}

func TestBleedHandler_Rejects(t *testing.T) {
	router := setupImageRouter()

	w := postJSON(router, "/images/bleed", `{"image":"https://img.test/a.png"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "data URL")

	w = postJSON(router, "/images/bleed", `{"image":"data:image/png;base64,bm90IGFuIGltYWdl"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBleedHandler_OversizedBleed(t *testing.T) {
	router := setupImageRouter()
	src := solidDataURL(t, 8, 8, color.NRGBA{G: 255, A: 255})

	for _, mm := range []float64{3000, -3000, 1e15} {
		body, _ := json.Marshal(models.BleedRequest{Image: src, TrimMM: 2.5, BleedMM: mm, HasBleed: true})
		w := postJSON(router, "/images/bleed", string(body))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "bleed %v", mm)
	}
}

func TestMaskHandler(t *testing.T) {
	router := setupImageRouter()
	src := solidDataURL(t, 4, 4, color.NRGBA{R: 200, G: 200, B: 200, A: 255})

	body, _ := json.Marshal(models.MaskRequest{Image: src, Colors: []string{"#c8c8c8"}})
	w := postJSON(router, "/images/mask", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	img := decodeImageResponse(t, w.Body.Bytes())
	assert.Equal(t, 4, img.Bounds().Dx())
	_, _, _, a := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), a)
}

func TestMaskHandler_Rejects(t *testing.T) {
	router := setupImageRouter()
	src := solidDataURL(t, 2, 2, color.NRGBA{A: 255})

	tests := []struct {
		name string
		req  models.MaskRequest
	}{
		{"not a data URL", models.MaskRequest{Image: "https://img.test/a.png", Colors: []string{"#000000"}}},
		{"no colors", models.MaskRequest{Image: src}},
		{"tolerance too high", models.MaskRequest{Image: src, Colors: []string{"#000000"}, Tolerance: ptrFloat(101)}},
		{"negative tolerance", models.MaskRequest{Image: src, Colors: []string{"#000000"}, Tolerance: ptrFloat(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.req)
			w := postJSON(router, "/images/mask", string(body))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func ptrFloat(v float64) *float64 { return &v }
