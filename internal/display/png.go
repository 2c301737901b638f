package display

import (
	"image"

	"github.com/fogleman/gg"
)

// PNGSurface writes each presented frame to a PNG file, overwriting the
// previous one. It stands in for a real window on headless hosts.
type PNGSurface struct {
	Path string
}

// NewPNGSurface creates a surface writing frames to path.
func NewPNGSurface(path string) *PNGSurface {
	return &PNGSurface{Path: path}
}

// Present implements Surface.
func (s *PNGSurface) Present(img *image.RGBA) error {
	dc := gg.NewContextForRGBA(img)
	return dc.SavePNG(s.Path)
}

// Close implements Surface.
func (s *PNGSurface) Close() error { return nil }

var _ Surface = (*PNGSurface)(nil)
