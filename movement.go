package ridestats

const (
	// movingVelocityMPS is the smoothed speed above which a sample counts as moving
	// when the source carries no explicit moving flag.
	movingVelocityMPS = 1.0
	// riddenVelocityMPS separates riding pace from traffic-light stops.
	riddenVelocityMPS = 2.0
)

// MovingMask holds one entry per sample, true where the athlete was moving.
type MovingMask []bool

// Count returns the number of moving samples.
func (m MovingMask) Count() int {
	n := 0
	for _, moving := range m {
		if moving {
			n++
		}
	}
	return n
}

// ClassifyMovement derives the moving mask for a stream. An explicit moving
// column wins; otherwise smoothed velocity above 1 m/s marks a moving sample.
// Missing cells are never moving.
func ClassifyMovement(s *Stream) MovingMask {
	mask := make(MovingMask, s.Len())
	if col := s.Column(FieldMoving); col != nil {
		for i := range mask {
			v, ok := col.At(i)
			mask[i] = ok && v != 0
		}
		return mask
	}
	col := s.Column(FieldVelocity)
	for i := range mask {
		v, ok := col.At(i)
		mask[i] = ok && v > movingVelocityMPS
	}
	return mask
}
