// Package imaging holds the local photo checks: brightness and a
// grayscale similarity score between a reference and a captured photo.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Sizes the photos are scaled to before measuring.
const (
	BrightnessSize = 10
	SimilaritySize = 224
)

// DefaultBrightnessThreshold is the average channel level below which a
// photo counts as too dark.
const DefaultBrightnessThreshold = 0.5

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Decode reads a JPEG, PNG or WebP image.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", ErrUnsupportedFormat
		}
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeBytes is Decode over an in-memory blob.
func DecodeBytes(data []byte) (image.Image, error) {
	img, _, err := Decode(bytes.NewReader(data))
	return img, err
}

func scale(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// Brightness is the mean of all RGB channel values of the photo scaled to
// BrightnessSize squared, in [0, 1].
func Brightness(img image.Image) float64 {
	small := scale(img, BrightnessSize)
	var total float64
	for i := 0; i < len(small.Pix); i += 4 {
		total += float64(small.Pix[i]) + float64(small.Pix[i+1]) + float64(small.Pix[i+2])
	}
	return total / float64(BrightnessSize*BrightnessSize*3*255)
}

// IsBright reports whether Brightness exceeds threshold.
func IsBright(img image.Image, threshold float64) bool {
	return Brightness(img) > threshold
}

func grayscale(img image.Image) []float64 {
	scaled := scale(img, SimilaritySize)
	gray := make([]float64, 0, SimilaritySize*SimilaritySize)
	for i := 0; i < len(scaled.Pix); i += 4 {
		sum := float64(scaled.Pix[i]) + float64(scaled.Pix[i+1]) + float64(scaled.Pix[i+2])
		gray = append(gray, sum/3/255)
	}
	return gray
}

// Similarity compares two photos as normalized grayscale at SimilaritySize
// and maps the mean squared error to a score: 100 is identical, 0 is
// maximally different.
func Similarity(a, b image.Image) float64 {
	ga, gb := grayscale(a), grayscale(b)
	var sum float64
	for i := range ga {
		d := ga[i] - gb[i]
		sum += d * d
	}
	mse := sum / float64(len(ga))
	return 100 - mse*100
}
