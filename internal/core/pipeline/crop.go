package pipeline

// Expansion tiers for face crops. Smaller boxes get looser margins so distant
// faces keep enough context for the embedder; the extra downward margin
// captures chins cut off by tight detections.
const (
	smallBoxArea  = 8000
	mediumBoxArea = 25000
)

// ExpandBox widens a detection box by an area-dependent margin and clips the
// result to the frame bounds.
func ExpandBox(b Box, frameW, frameH int) Box {
	w, h := b.Width(), b.Height()
	area := w * h

	var expandX, expandUp, expandDown float64
	switch {
	case area < smallBoxArea:
		expandX, expandUp, expandDown = 0.2, 0.2, 0.3
	case area < mediumBoxArea:
		expandX, expandUp, expandDown = 0.15, 0.15, 0.3
	default:
		expandX, expandUp, expandDown = 0.1, 0.1, 0.1
	}

	expanded := Box{
		X1: b.X1 - int(float64(w)*expandX),
		X2: b.X2 + int(float64(w)*expandX),
		Y1: b.Y1 - int(float64(h)*expandUp),
		Y2: b.Y2 + int(float64(h)*expandDown),
	}

	return clipBox(expanded, frameW, frameH)
}

func clipBox(b Box, frameW, frameH int) Box {
	if b.X1 < 0 {
		b.X1 = 0
	}
	if b.Y1 < 0 {
		b.Y1 = 0
	}
	if b.X2 > frameW {
		b.X2 = frameW
	}
	if b.Y2 > frameH {
		b.Y2 = frameH
	}
	return b
}
