package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// DescriptorSize is the length of a face descriptor produced by the dlib
// ResNet encoder.
const DescriptorSize = 128

// Descriptor is a face identity vector compared by Euclidean distance.
type Descriptor [DescriptorSize]float64

// NewDescriptor copies values into a Descriptor, rejecting any length other
// than DescriptorSize.
func NewDescriptor(values []float64) (Descriptor, error) {
	var d Descriptor
	if len(values) != DescriptorSize {
		return d, fmt.Errorf("descriptor must have %d elements, got %d", DescriptorSize, len(values))
	}
	copy(d[:], values)
	return d, nil
}

// NewDescriptorFromFloat32 widens a float32 vector, as returned by dlib and
// pgvector, into a Descriptor.
func NewDescriptorFromFloat32(values []float32) (Descriptor, error) {
	var d Descriptor
	if len(values) != DescriptorSize {
		return d, fmt.Errorf("descriptor must have %d elements, got %d", DescriptorSize, len(values))
	}
	for i, v := range values {
		d[i] = float64(v)
	}
	return d, nil
}

// Distance returns the Euclidean distance between two descriptors.
func (d Descriptor) Distance(other Descriptor) float64 {
	var sum float64
	for i := range d {
		diff := d[i] - other[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// ValidTolerance reports whether t can bound a descriptor distance. NaN and
// negative values are rejected; +Inf accepts any finite distance.
func ValidTolerance(t float64) bool {
	return !math.IsNaN(t) && t >= 0
}

// Slice returns a copy of the descriptor as a slice.
func (d Descriptor) Slice() []float64 {
	out := make([]float64, DescriptorSize)
	copy(out, d[:])
	return out
}

// Float32 narrows the descriptor for storage in a pgvector column.
func (d Descriptor) Float32() []float32 {
	out := make([]float32, DescriptorSize)
	for i, v := range d {
		out[i] = float32(v)
	}
	return out
}

// UnmarshalJSON rejects arrays of the wrong length instead of silently
// truncating or zero-filling them.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	parsed, err := NewDescriptor(values)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
