package render

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	uv "github.com/charmbracelet/ultraviolet"
)

func TestFramebufferSetGet(t *testing.T) {
	fb := NewFramebuffer(3, 2)
	fb.SetPixel(2, 1, RGB(1, 2, 3))
	if got := fb.GetPixel(2, 1); got != RGB(1, 2, 3) {
		t.Errorf("GetPixel = %v", got)
	}
	// Out of bounds is ignored.
	fb.SetPixel(3, 0, RGB(9, 9, 9))
	fb.SetPixel(-1, 0, RGB(9, 9, 9))
	if got := fb.GetPixel(5, 5); got != (color.RGBA{}) {
		t.Errorf("out of bounds GetPixel = %v, want zero", got)
	}
	if w, h := fb.Size(); w != 3 || h != 2 {
		t.Errorf("Size = %dx%d", w, h)
	}
}

func TestFillCircle(t *testing.T) {
	fb := NewFramebuffer(11, 11)
	bg, fg := RGB(0, 0, 0), RGB(255, 255, 255)
	fb.Clear(bg)
	fb.FillCircle(5.5, 5.5, 2, fg)

	if fb.GetPixel(5, 5) != fg {
		t.Error("center pixel not filled")
	}
	if fb.GetPixel(7, 5) != fg || fb.GetPixel(3, 5) != fg {
		t.Error("pixels at radius 2 should be filled")
	}
	if fb.GetPixel(8, 5) != bg {
		t.Error("pixel beyond radius filled")
	}
	if fb.GetPixel(7, 7) != bg {
		t.Error("corner of bounding square filled")
	}
}

func TestFillCircleTinyAndClipped(t *testing.T) {
	fb := NewFramebuffer(4, 4)
	fb.FillCircle(1.1, 2.9, 0.1, RGB(7, 7, 7))
	if fb.GetPixel(1, 2) != RGB(7, 7, 7) {
		t.Error("tiny disc should mark the pixel under its center")
	}

	// Discs hanging off the edge must not panic.
	fb.FillCircle(-3, -3, 5, RGB(1, 1, 1))
	fb.FillCircle(100, 100, 2, RGB(1, 1, 1))
	if fb.GetPixel(0, 0) != RGB(1, 1, 1) {
		t.Error("clipped disc should still cover the corner")
	}
}

func TestSavePNG(t *testing.T) {
	fb := NewFramebuffer(2, 2)
	fb.Clear(RGB(10, 20, 30))
	fb.SetPixel(1, 1, RGB(200, 100, 50))

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := fb.SavePNG(path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r>>8 != 200 || g>>8 != 100 || b>>8 != 50 {
		t.Errorf("pixel (1,1) = %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestDrawHalfBlocks(t *testing.T) {
	fb := NewFramebuffer(2, 4)
	fb.SetPixel(0, 0, RGB(255, 0, 0))
	fb.SetPixel(0, 1, RGB(0, 0, 255))

	scr := uv.NewScreenBuffer(2, 2)
	fb.Draw(scr, scr.Bounds())

	cell := scr.CellAt(0, 0)
	if cell == nil || cell.Content != "▀" {
		t.Fatalf("cell (0,0) = %+v, want half block", cell)
	}
	if cell.Style.Fg != RGB(255, 0, 0) {
		t.Errorf("fg = %v, want top pixel", cell.Style.Fg)
	}
	if cell.Style.Bg != RGB(0, 0, 255) {
		t.Errorf("bg = %v, want bottom pixel", cell.Style.Bg)
	}
	// Transparent pixels leave the terminal color unset.
	if other := scr.CellAt(1, 1); other == nil || other.Style.Fg != nil {
		t.Errorf("cell (1,1) = %+v, want no foreground", other)
	}
}
