package avatar

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

const jpegQuality = 90

// ResizeFile scales the image at path to a size x size square in place,
// stretching it when the aspect ratio differs. The output keeps the
// decoded format (jpeg, png, gif).
func ResizeFile(path string, size int) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	src, format, err := image.Decode(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := encode(out, dst, format); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return out.Close()
}

func encode(out *os.File, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(out, img)
	case "gif":
		return gif.Encode(out, img, nil)
	default:
		return jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality})
	}
}
