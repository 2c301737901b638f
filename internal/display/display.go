// Package display presents the guest framebuffer on the host at a fixed
// cadence. The CPU goroutine and the display goroutine share only the
// framebuffer bytes and the context's cancellation signal.
package display

import (
	"context"
	"image"
	"time"

	"github.com/sivansh11/dem/internal/dev"
)

// FrameInterval is roughly 30 Hz.
const FrameInterval = 33 * time.Millisecond

// Surface receives converted frames.
type Surface interface {
	Present(img *image.RGBA) error
	Close() error
}

// Run copies the framebuffer to the surface on every tick until the
// context is cancelled. A nil surface disables the display.
func Run(ctx context.Context, fb *dev.Framebuffer, surface Surface) error {
	if surface == nil {
		<-ctx.Done()
		return nil
	}
	defer surface.Close()

	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	raw := make([]byte, dev.FBSize)
	img := image.NewRGBA(image.Rect(0, 0, dev.FBWidth, dev.FBHeight))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fb.Snapshot(raw)
			convertFrame(raw, img)
			if err := surface.Present(img); err != nil {
				return err
			}
		}
	}
}

// convertFrame turns guest a8r8g8b8 pixels (byte order B, G, R, A in
// little-endian memory) into an opaque RGBA image.
func convertFrame(raw []byte, img *image.RGBA) {
	for i := 0; i+3 < len(raw) && i+3 < len(img.Pix); i += 4 {
		img.Pix[i+0] = raw[i+2] // R
		img.Pix[i+1] = raw[i+1] // G
		img.Pix[i+2] = raw[i+0] // B
		img.Pix[i+3] = 0xff     // ignore guest alpha
	}
}
