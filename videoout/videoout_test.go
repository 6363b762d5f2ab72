package videoout

import (
	"testing"

	"github.com/thebitculture/ase/system"
)

func TestApplyFrameCopiesPixelsAndResizesOnDimensionChange(t *testing.T) {
	w := New(nil, nil, nil, nil)
	frame := &system.Frame{
		Pixels: make([]uint32, 320*100),
		Width:  320,
		Height: 100,
	}
	for i := range frame.Pixels {
		frame.Pixels[i] = 0xFF00FF00
	}
	w.applyFrame(frame)

	gotW, gotH := w.Layout(0, 0)
	if gotW != 320 || gotH != 100 {
		t.Fatalf("Layout = %d,%d, want 320,100", gotW, gotH)
	}
	if len(w.pixels) != len(frame.Pixels) || w.pixels[0] != 0xFF00FF00 {
		t.Fatal("expected pixels to be copied from the applied frame")
	}
}

func TestApplyFrameReusesBufferWhenDimensionsUnchanged(t *testing.T) {
	w := New(nil, nil, nil, nil)
	first := &system.Frame{Pixels: make([]uint32, 640*200), Width: 640, Height: 200}
	w.applyFrame(first)
	buf := w.pixels

	second := &system.Frame{Pixels: make([]uint32, 640*200), Width: 640, Height: 200}
	second.Pixels[0] = 0xAABBCCDD
	w.applyFrame(second)

	if &w.pixels[0] != &buf[0] {
		t.Fatal("expected the same backing buffer to be reused when dimensions don't change")
	}
	if w.pixels[0] != 0xAABBCCDD {
		t.Fatal("expected the second frame's pixel data to have been copied in")
	}
}
