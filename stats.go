package yavc

import "time"

// FrameStats describes how one frame was coded.
type FrameStats struct {
	Index int
	// Leaves is the number of quadtree leaves of the frame.
	Leaves int
	// Skipped counts leaves the difference gate left out.
	Skipped int
	Vectors int
	Intra   int
	// VectorArea is the number of pixels covered by vectors.
	VectorArea int
	// MeanVectorMSE is the average final MSE of the vectors, or 0.
	MeanVectorMSE float64
	// FilteredEdges counts the edge lines changed by the deblocker.
	FilteredEdges int
	Elapsed       time.Duration
}

// Stats accumulates FrameStats over a stream.
type Stats struct {
	Frames        int
	Leaves        int
	Skipped       int
	Vectors       int
	Intra         int
	VectorArea    int64
	TotalMSE      float64
	FilteredEdges int
	Elapsed       time.Duration
}

func (s *Stats) add(fs FrameStats) {
	s.Frames++
	s.Leaves += fs.Leaves
	s.Skipped += fs.Skipped
	s.Vectors += fs.Vectors
	s.Intra += fs.Intra
	s.VectorArea += int64(fs.VectorArea)
	s.TotalMSE += fs.MeanVectorMSE * float64(fs.Vectors)
	s.FilteredEdges += fs.FilteredEdges
	s.Elapsed += fs.Elapsed
}

// MeanVectorMSE returns the average final MSE over all vectors, or 0.
func (s Stats) MeanVectorMSE() float64 {
	if s.Vectors == 0 {
		return 0
	}
	return s.TotalMSE / float64(s.Vectors)
}
