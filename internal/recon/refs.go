package recon

import (
	"github.com/deepteams/yavc/internal/block"
	"github.com/deepteams/yavc/internal/raster"
	"github.com/pkg/errors"
)

// ReferenceList holds the most recent reconstructed frames, newest first, plus
// an optional look-ahead frame.
type ReferenceList struct {
	frames    []*raster.Raster
	LookAhead *raster.Raster
}

// NewReferenceList returns an empty list.
func NewReferenceList() *ReferenceList {
	return &ReferenceList{frames: make([]*raster.Raster, 0, block.MaxReferences)}
}

// Push adds r as the newest reference and drops the oldest one beyond
// block.MaxReferences.
func (l *ReferenceList) Push(r *raster.Raster) {
	if len(l.frames) == block.MaxReferences {
		l.frames = l.frames[:block.MaxReferences-1]
	}
	l.frames = append(l.frames, nil)
	copy(l.frames[1:], l.frames)
	l.frames[0] = r
}

// Len returns the number of stored references, look-ahead excluded.
func (l *ReferenceList) Len() int { return len(l.frames) }

// Frames returns the references newest first. The slice must not be modified.
func (l *ReferenceList) Frames() []*raster.Raster { return l.frames }

// Newest returns the most recent reference or nil.
func (l *ReferenceList) Newest() *raster.Raster {
	if len(l.frames) == 0 {
		return nil
	}
	return l.frames[0]
}

// Resolve maps a vector's reference tag to its frame. Tag r selects entry
// block.MaxReferences-r counting from the newest; block.LookAheadReference
// selects the look-ahead frame.
func (l *ReferenceList) Resolve(r int) (*raster.Raster, error) {
	if r == block.LookAheadReference {
		if l.LookAhead == nil {
			return nil, errors.Wrap(ErrMissingReference, "no look-ahead frame")
		}
		return l.LookAhead, nil
	}
	slot := block.MaxReferences - r
	if slot < 0 || slot >= len(l.frames) || l.frames[slot] == nil {
		return nil, errors.Wrapf(ErrMissingReference, "reference %d with %d frames", r, len(l.frames))
	}
	return l.frames[slot], nil
}
