package frame

import (
	"image/color"
	"testing"
	"time"
)

func TestSizeValid(t *testing.T) {
	cases := []struct {
		size Size
		want bool
	}{
		{Size{Width: 1920, Height: 1080}, true},
		{Size{Width: 0, Height: 1080}, false},
		{Size{Width: 1920, Height: -1}, false},
		{Size{}, false},
	}
	for _, tc := range cases {
		if got := tc.size.Valid(); got != tc.want {
			t.Fatalf("Valid(%s) = %v, want %v", tc.size, got, tc.want)
		}
	}
}

func TestSolidFillsEveryPixel(t *testing.T) {
	c := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	f := Solid(40*time.Millisecond, Size{Width: 8, Height: 6}, c)

	if f.Timestamp != 40*time.Millisecond {
		t.Fatalf("timestamp = %v", f.Timestamp)
	}
	if got := f.Size(); got != (Size{Width: 8, Height: 6}) {
		t.Fatalf("size = %v", got)
	}
	if got := f.Image.RGBAAt(0, 0); got != c {
		t.Fatalf("corner pixel = %v, want %v", got, c)
	}
	if got := f.Image.RGBAAt(7, 5); got != c {
		t.Fatalf("far corner pixel = %v, want %v", got, c)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Solid(0, Size{Width: 4, Height: 4}, color.RGBA{R: 1, A: 255})
	dup := orig.Clone()

	dup.Image.SetRGBA(2, 2, color.RGBA{G: 255, A: 255})
	if got := orig.Image.RGBAAt(2, 2); got != (color.RGBA{R: 1, A: 255}) {
		t.Fatalf("mutating the clone changed the original: %v", got)
	}

	empty := Frame{Timestamp: time.Second}
	if got := empty.Clone(); got.Image != nil || got.Timestamp != time.Second {
		t.Fatalf("clone of empty frame = %+v", got)
	}
}
