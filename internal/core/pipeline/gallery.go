package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	log "github.com/sirupsen/logrus"
)

// Entry is one known identity in the gallery.
type Entry struct {
	Label     string
	Embedding []float32
}

// Gallery is the immutable reference set of known-identity embeddings.
// It is loaded once at startup and shared read-only across all workers.
type Gallery struct {
	entries   []Entry
	dim       int
	threshold float64
}

type galleryRecord struct {
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
}

// LoadGallery reads the gallery JSON file, validates that all embeddings
// share one dimensionality and unit-normalizes every vector.
func LoadGallery(path string, threshold float64) (*Gallery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery file: %w", err)
	}

	var records []galleryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse gallery file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("gallery file %s contains no entries", path)
	}

	dim := len(records[0].Embedding)
	if dim == 0 {
		return nil, fmt.Errorf("gallery entry %q has an empty embedding", records[0].Name)
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) != dim {
			return nil, fmt.Errorf("gallery entry %q has dimension %d, expected %d",
				rec.Name, len(rec.Embedding), dim)
		}
		entries = append(entries, Entry{
			Label:     rec.Name,
			Embedding: Normalize(rec.Embedding),
		})
	}

	log.Infof("Loaded %d gallery embeddings (dim=%d) from %s", len(entries), dim, path)

	return &Gallery{entries: entries, dim: dim, threshold: threshold}, nil
}

// NewGallery builds a gallery from in-memory entries. Used by tests and by
// callers that load embeddings from elsewhere. Vectors are normalized.
func NewGallery(entries []Entry, threshold float64) (*Gallery, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("gallery must contain at least one entry")
	}
	dim := len(entries[0].Embedding)
	normalized := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if len(e.Embedding) != dim {
			return nil, fmt.Errorf("gallery entry %q has dimension %d, expected %d",
				e.Label, len(e.Embedding), dim)
		}
		normalized = append(normalized, Entry{Label: e.Label, Embedding: Normalize(e.Embedding)})
	}
	return &Gallery{entries: normalized, dim: dim, threshold: threshold}, nil
}

// Size returns the number of gallery entries.
func (g *Gallery) Size() int { return len(g.entries) }

// Dim returns the embedding dimensionality.
func (g *Gallery) Dim() int { return g.dim }

// Match returns the label of the nearest gallery entry and its cosine
// distance. When no entry is within the threshold, or the query is invalid,
// the Unknown sentinel is returned with the best (or maximum) distance.
// Ties resolve to the first entry in gallery order.
func (g *Gallery) Match(vec []float32) (string, float64) {
	if len(vec) != g.dim {
		return UnknownLabel, 1.0
	}

	best := -1
	bestDist := math.MaxFloat64
	for i := range g.entries {
		if d := CosineDistance(vec, g.entries[i].Embedding); d < bestDist {
			best = i
			bestDist = d
		}
	}

	if best < 0 || bestDist >= g.threshold {
		return UnknownLabel, bestDist
	}
	return g.entries[best].Label, bestDist
}

// CosineDistance computes 1 - cosine similarity between two vectors.
// Returns a value in [0, 2]; 2 is returned for invalid or zero input.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to absorb floating point error.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

// Normalize returns v scaled to unit length. Zero vectors pass through
// unchanged so callers see the maximum distance instead of NaN.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
