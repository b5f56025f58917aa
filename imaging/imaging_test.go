package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func uniform(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestBrightness(t *testing.T) {
	tests := []struct {
		name   string
		img    image.Image
		want   float64
		bright bool
	}{
		{"white", uniform(40, 30, color.White), 1, true},
		{"black", uniform(40, 30, color.Black), 0, false},
		{"dark gray", uniform(64, 64, color.RGBA{R: 60, G: 60, B: 60, A: 255}), 60.0 / 255, false},
		{"light gray", uniform(64, 64, color.RGBA{R: 200, G: 200, B: 200, A: 255}), 200.0 / 255, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Brightness(tt.img)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("Expected brightness %.3f, got %.3f", tt.want, got)
			}
			if IsBright(tt.img, DefaultBrightnessThreshold) != tt.bright {
				t.Errorf("Expected IsBright %v", tt.bright)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	white := uniform(300, 200, color.White)
	black := uniform(100, 100, color.Black)

	if got := Similarity(white, white); math.Abs(got-100) > 0.001 {
		t.Errorf("Expected identical photos to score 100, got %.3f", got)
	}
	if got := Similarity(white, black); math.Abs(got) > 0.001 {
		t.Errorf("Expected white vs black to score 0, got %.3f", got)
	}

	gray := uniform(50, 50, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	got := Similarity(white, gray)
	if got <= 0 || got >= 100 {
		t.Errorf("Expected partial similarity, got %.3f", got)
	}
	if math.Abs(Similarity(gray, white)-got) > 0.001 {
		t.Error("Similarity must be symmetric")
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, uniform(8, 8, color.White)); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}

	img, format, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if format != "png" {
		t.Errorf("Expected png, got %s", format)
	}
	if img.Bounds().Dx() != 8 {
		t.Errorf("Expected width 8, got %d", img.Bounds().Dx())
	}

	if _, err := DecodeBytes([]byte("not an image")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}
