package mask

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIsLandPixel(t *testing.T) {
	tests := []struct {
		name string
		c    color.NRGBA
		want bool
	}{
		{"opaque near black", color.NRGBA{10, 10, 10, 255}, true},
		{"white", color.NRGBA{255, 255, 255, 255}, false},
		{"translucent black", color.NRGBA{10, 10, 10, 100}, false},
		{"channel at threshold", color.NRGBA{100, 0, 0, 255}, false},
		{"alpha at threshold", color.NRGBA{0, 0, 0, 200}, false},
		{"just inside", color.NRGBA{99, 99, 99, 201}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLandPixel(tt.c))
		})
	}
}

func TestIsLandScaling(t *testing.T) {
	// left half land, right half water
	img := solidImage(4, 2, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < 2; y++ {
		img.SetNRGBA(0, y, color.NRGBA{0, 0, 0, 255})
		img.SetNRGBA(1, y, color.NRGBA{0, 0, 0, 255})
	}
	m := New(img)

	assert.True(t, m.IsLand(10, 10, 100, 50))
	assert.True(t, m.IsLand(49.9, 49, 100, 50))
	assert.False(t, m.IsLand(50, 10, 100, 50))
	assert.False(t, m.IsLand(99, 10, 100, 50))

	// out of bounds
	assert.False(t, m.IsLand(-1, 10, 100, 50))
	assert.False(t, m.IsLand(10, 50, 100, 50))
	assert.False(t, m.IsLand(100, 10, 100, 50))
	// degenerate surfaces
	assert.False(t, m.IsLand(0, 0, 0, 50))
	assert.False(t, m.IsLand(0, 0, 100, -1))
}

func TestNilMaskIsWater(t *testing.T) {
	var m *Mask
	assert.False(t, m.IsLand(1, 1, 10, 10))
}

func TestDecodeKeepsStraightAlpha(t *testing.T) {
	data := encodePNG(t, solidImage(3, 3, color.NRGBA{10, 10, 10, 100}))
	m, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Width())
	assert.Equal(t, 3, m.Height())
	assert.Equal(t, color.NRGBA{10, 10, 10, 100}, m.At(1, 1))
	assert.False(t, m.IsLand(1, 1, 3, 3))
	assert.Equal(t, color.NRGBA{}, m.At(5, 5))
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode(strings.NewReader("not an image"))
	assert.Error(t, err)
}

func TestDataURIRoundTrip(t *testing.T) {
	data := encodePNG(t, solidImage(2, 2, color.NRGBA{0, 0, 0, 255}))
	uri := EncodeDataURI(data)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"), uri)

	m, err := DecodeDataURI(uri)
	require.NoError(t, err)
	assert.True(t, m.IsLand(0, 0, 2, 2))

	src, err := DataURISource(uri)
	require.NoError(t, err)
	assert.Equal(t, data, src.Data)
}

func TestDataURIRejectsNonImage(t *testing.T) {
	_, err := DecodeDataURI("data:text/plain;base64,aGVsbG8=")
	assert.ErrorIs(t, err, errNotImage)

	_, err = DecodeDataURI("not a uri")
	assert.Error(t, err)
}

func TestDefaultMask(t *testing.T) {
	src := DefaultSource()
	assert.True(t, src.IsDefault())
	m, err := src.Decode()
	require.NoError(t, err)
	assert.Equal(t, 720, m.Width())
	assert.Equal(t, 360, m.Height())

	// Antarctica band at the bottom is land, the mid Pacific is not.
	assert.True(t, m.IsLand(360, 355, 720, 360))
	assert.False(t, m.IsLand(10, 180, 720, 360))
}

func TestSamplerNotReadyIsWater(t *testing.T) {
	var s Sampler
	assert.False(t, s.Ready())
	assert.False(t, s.IsLand(1, 1, 2, 2))
}

func TestSamplerLoad(t *testing.T) {
	var s Sampler
	data := encodePNG(t, solidImage(2, 2, color.NRGBA{0, 0, 0, 255}))

	err := <-s.Load(context.Background(), Source{Name: "black.png", Data: data})
	require.NoError(t, err)
	assert.True(t, s.Ready())
	assert.True(t, s.IsLand(1, 1, 2, 2))
}

func TestSamplerDecodeFailureClearsMask(t *testing.T) {
	var s Sampler
	data := encodePNG(t, solidImage(2, 2, color.NRGBA{0, 0, 0, 255}))
	require.NoError(t, <-s.Load(context.Background(), Source{Name: "black.png", Data: data}))
	require.True(t, s.Ready())

	err := <-s.Load(context.Background(), Source{Name: "broken", Data: []byte("garbage")})
	assert.Error(t, err)
	assert.False(t, s.Ready())
	assert.False(t, s.IsLand(1, 1, 2, 2))
}

func TestSamplerLastLoadWins(t *testing.T) {
	var s Sampler
	black := encodePNG(t, solidImage(2, 2, color.NRGBA{0, 0, 0, 255}))
	white := encodePNG(t, solidImage(2, 2, color.NRGBA{255, 255, 255, 255}))

	first := s.Load(context.Background(), Source{Name: "black", Data: black})
	second := s.Load(context.Background(), Source{Name: "white", Data: white})

	require.NoError(t, <-second)
	err := <-first
	if err != nil {
		assert.ErrorIs(t, err, ErrSuperseded)
	}
	// whatever the scheduling, the later source is the one in use
	assert.False(t, s.IsLand(1, 1, 2, 2))
}

func TestSamplerCanceled(t *testing.T) {
	var s Sampler
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := encodePNG(t, solidImage(2, 2, color.NRGBA{0, 0, 0, 255}))
	err := <-s.Load(ctx, Source{Name: "black", Data: data})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Ready())
}
