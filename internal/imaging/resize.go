package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Lanczos is a 3-lobe windowed sinc kernel. When downscaling, draw stretches
// the support by the scale factor, giving the antialiased result expected
// from a high-quality Lanczos filter.
var Lanczos = &draw.Kernel{
	Support: 3,
	At:      lanczos3,
}

func lanczos3(t float64) float64 {
	if t < 0 {
		t = -t
	}
	if t >= 3 {
		return 0
	}
	return sinc(t) * sinc(t/3)
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	x *= math.Pi
	return math.Sin(x) / x
}

// Resize scales the image to width x height with the Lanczos kernel.
func Resize(src *Image, width, height int) *Image {
	if src.Width == width && src.Height == height {
		return FromImage(src)
	}

	rgba := src.ToRGBA()
	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	Lanczos.Scale(scaled, scaled.Bounds(), rgba, rgba.Bounds(), draw.Src, nil)

	return FromImage(scaled)
}
