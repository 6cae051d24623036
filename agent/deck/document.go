package deck

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange    = errors.New("slide index out of range")
	ErrInvariantViolation = errors.New("deck invariant violation")
)

// ErrLastSlide is returned by DeleteAt when only one slide is left.
var ErrLastSlide = fmt.Errorf("%w: cannot delete the only remaining slide", ErrInvariantViolation)

// Document is an ordered, never-empty sequence of slides with a current-slide pointer.
// It is not safe for concurrent use; callers serialize access.
type Document struct {
	slides  []Slide
	current int
}

func New(seed Slide) *Document {
	return &Document{
		slides: []Slide{seed},
	}
}

func NewWithDefaultSeed() *Document {
	return New(DefaultSeed())
}

func (d *Document) Len() int {
	return len(d.slides)
}

func (d *Document) CurrentIndex() int {
	return d.current
}

func (d *Document) CurrentSlide() Slide {
	return d.slides[d.current]
}

// At returns the slide at index.
func (d *Document) At(index int) (Slide, error) {
	if index < 0 || index >= len(d.slides) {
		return Slide{}, d.rangeErr(index, len(d.slides)-1)
	}
	return d.slides[index], nil
}

// Slides returns a copy of the ordered sequence.
func (d *Document) Slides() []Slide {
	out := make([]Slide, len(d.slides))
	copy(out, d.slides)
	return out
}

// InsertAt inserts s at index, shifting index..end right by one.
// Valid positions are 0..Len(). When the insertion lands at or before the
// current slide, the pointer moves with it so it keeps referring to the same slide.
func (d *Document) InsertAt(index int, s Slide) error {
	if index < 0 || index > len(d.slides) {
		return d.rangeErr(index, len(d.slides))
	}

	d.slides = append(d.slides, Slide{})
	copy(d.slides[index+1:], d.slides[index:])
	d.slides[index] = s

	if index <= d.current {
		d.current++
	}
	return nil
}

// Append inserts s after the last slide. The current pointer never moves
// since it always precedes the new index.
func (d *Document) Append(s Slide) int {
	d.slides = append(d.slides, s)
	return len(d.slides) - 1
}

// UpdateAt merges the non-nil fields of p into the slide at index.
func (d *Document) UpdateAt(index int, p Patch) error {
	if index < 0 || index >= len(d.slides) {
		return d.rangeErr(index, len(d.slides)-1)
	}
	d.slides[index] = p.apply(d.slides[index])
	return nil
}

// DeleteAt removes the slide at index and clamps the current pointer.
func (d *Document) DeleteAt(index int) error {
	if len(d.slides) == 1 {
		return ErrLastSlide
	}
	if index < 0 || index >= len(d.slides) {
		return d.rangeErr(index, len(d.slides)-1)
	}

	d.slides = append(d.slides[:index], d.slides[index+1:]...)

	if index < d.current {
		d.current--
	}
	d.current = clamp(d.current, 0, len(d.slides)-1)
	return nil
}

// Navigate moves the current pointer by delta, clamped to the deck bounds.
// Moving past either end is a no-op at the boundary.
func (d *Document) Navigate(delta int) int {
	d.current = clamp(d.current+delta, 0, len(d.slides)-1)
	return d.current
}

func (d *Document) rangeErr(index, max int) error {
	return fmt.Errorf("%w: index=%d valid=[0,%d]", ErrIndexOutOfRange, index, max)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
