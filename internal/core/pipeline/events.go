package pipeline

import "time"

// UnknownLabel is the sentinel identity for faces that match no gallery entry.
const UnknownLabel = "Unknown"

// KindFaceDetection is the event kind emitted for every qualifying detection.
const KindFaceDetection = "face_detection"

// TimestampLayout is the wire format for event timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Box is a detection bounding box in source-frame pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 int
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Area returns the box area in square pixels.
func (b Box) Area() int { return b.Width() * b.Height() }

// ShorterSide returns the smaller of width and height.
func (b Box) ShorterSide() int {
	if w, h := b.Width(), b.Height(); w < h {
		return w
	}
	return b.Height()
}

// Contains reports whether b fully contains other.
func (b Box) Contains(other Box) bool {
	return b.X1 <= other.X1 && b.Y1 <= other.Y1 && b.X2 >= other.X2 && b.Y2 >= other.Y2
}

// Event is a single face detection produced by a camera worker. It is
// ephemeral: forwarded to the reporting boundary, never persisted here.
// Field names follow the reporting boundary's wire contract.
type Event struct {
	CameraID         string  `json:"camera_id"`
	Kind             string  `json:"type"`
	Label            string  `json:"name"`
	Confidence       float64 `json:"confidence"`
	Timestamp        string  `json:"timestamp"`
	BBox             [4]int  `json:"bbox"`
	EvidenceFilename string  `json:"image_filename,omitempty"`
	SmallFace        bool    `json:"small_face,omitempty"`
}

// NewEvent builds an event for the given detection.
func NewEvent(cameraID, label string, confidence float64, ts time.Time, box Box) Event {
	return Event{
		CameraID:   cameraID,
		Kind:       KindFaceDetection,
		Label:      label,
		Confidence: confidence,
		Timestamp:  ts.Format(TimestampLayout),
		BBox:       [4]int{box.X1, box.Y1, box.X2, box.Y2},
	}
}
