package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

// MaxCropScale is the largest resize factor CropCell accepts.
const MaxCropScale = 16.0

// CropResult contains the cropped image data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`

	// PNG holds the encoded bytes behind ImageBase64.
	PNG []byte `json:"-"`
}

// CropCell extracts a cell's bounding box from a slide as a PNG.
//
// When mask is non-nil, pixels outside the mask are made fully transparent so
// only the segmented cell remains visible. A scale other than 1 resizes the
// crop with a Lanczos filter, which helps when inspecting small cells.
func CropCell(img image.Image, box ihc.BoundingBox, mask *ihc.Mask, scale float64) (*CropResult, error) {
	bounds := img.Bounds()
	rect := box.Rect()
	if box.W <= 0 || box.H <= 0 {
		return nil, fmt.Errorf("invalid cell box: width and height must be > 0")
	}
	if scale > MaxCropScale {
		return nil, fmt.Errorf("invalid scale %g: must be at most %g", scale, MaxCropScale)
	}
	if !rect.In(bounds) {
		return nil, fmt.Errorf("cell box (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	var cropped image.Image = imaging.Crop(img, rect)

	if mask != nil {
		masked := image.NewNRGBA(cropped.Bounds())
		alpha := image.NewAlpha(cropped.Bounds())
		for y := 0; y < box.H; y++ {
			for x := 0; x < box.W; x++ {
				if mask.At(x, y) {
					alpha.SetAlpha(x, y, color.Alpha{A: 255})
				}
			}
		}
		draw.DrawMask(masked, masked.Bounds(), cropped, image.Point{}, alpha, image.Point{}, draw.Src)
		cropped = masked
	}

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 {
			newWidth = 1
		}
		if newHeight < 1 {
			newHeight = 1
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped cell: %w", err)
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		PNG:         buf.Bytes(),
	}, nil
}
