package ihc

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// maxIntensity is the 8-bit white level; optical density is measured against it.
const maxIntensity = 255

// Grayscale converts img to 8-bit luminance using ITU-R BT.601 weights
// (0.299*R + 0.587*G + 0.114*B), the same weights OpenCV uses.
//
// The returned image keeps img's bounds, so cell boxes can index it directly.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	// imaging returns an NRGBA image anchored at (0,0) with R=G=B=luminance.
	lum := imaging.Grayscale(img)
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, lum, image.Point{}, draw.Src)
	return gray
}

// AccumulateIOD returns the integrated optical density of the positive cells.
//
// For each cell with a positive grade, every masked pixel inside the image
// contributes (255 - intensity). Negative cells, empty masks and pixels falling
// outside gray contribute nothing.
//
// The per-pixel value is a linear approximation of optical density. It is not a
// calibrated Beer-Lambert measurement (-log10 of transmittance); it only ranks
// stain quantity consistently within one scanner setup.
func AccumulateIOD(gray *image.Gray, cells []Cell) float64 {
	bounds := gray.Bounds()
	var total float64
	for _, c := range cells {
		if !c.Grade.Positive() {
			continue
		}
		var cellIOD int
		for y := 0; y < c.Mask.Height(); y++ {
			for x := 0; x < c.Mask.Width(); x++ {
				if !c.Mask.At(x, y) {
					continue
				}
				p := image.Pt(c.Box.X+x, c.Box.Y+y)
				if !p.In(bounds) {
					continue
				}
				cellIOD += maxIntensity - int(gray.GrayAt(p.X, p.Y).Y)
			}
		}
		total += float64(cellIOD)
	}
	return total
}
