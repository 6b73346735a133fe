package tracemark_test

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/tracemark/tracemark"
)

func Example_watermark() {
	// Create a simple gradient frame (200x200 pixels)
	img := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			r := uint8(x * 255 / 200)
			g := uint8(y * 255 / 200)
			b := uint8((x + y) * 255 / 400)
			img.Set(x, y, color.NRGBA{r, g, b, 255})
		}
	}

	// One Watermarker per recipient; the signature is derived once
	w, err := tracemark.New("recipient-007")
	if err != nil {
		fmt.Printf("Error creating watermarker: %v\n", err)
		return
	}

	// Embed the identity payload into the frame
	ctx := context.Background()
	marked, err := w.EmbedFrame(ctx, img, 0)
	if err != nil {
		fmt.Printf("Error embedding watermark: %v\n", err)
		return
	}

	// Recover it from the marked copy
	p, err := w.ExtractFrame(ctx, marked)
	if err != nil {
		fmt.Printf("Error extracting watermark: %v\n", err)
		return
	}

	fmt.Println(p.Identity)
	fmt.Println(p.FrameIndex)

	// Output:
	// recipient-007
	// 0
}
