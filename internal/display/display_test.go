package display

import (
	"image"
	"testing"

	"github.com/sivansh11/dem/internal/dev"
)

func TestConvertFrame(t *testing.T) {
	raw := make([]byte, dev.FBSize)
	// One a8r8g8b8 pixel: B=0x10, G=0x20, R=0x30, A=0x00
	raw[0], raw[1], raw[2], raw[3] = 0x10, 0x20, 0x30, 0x00

	img := image.NewRGBA(image.Rect(0, 0, dev.FBWidth, dev.FBHeight))
	convertFrame(raw, img)

	got := img.RGBAAt(0, 0)
	if got.R != 0x30 || got.G != 0x20 || got.B != 0x10 {
		t.Errorf("pixel = %+v, want R=0x30 G=0x20 B=0x10", got)
	}
	if got.A != 0xff {
		t.Errorf("alpha = %#x, want opaque", got.A)
	}
}
