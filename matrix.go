package wheelmatrix

import "fmt"

// VersionRange is the contiguous range of interpreter minor versions the
// project supports, e.g. 3.7 through 3.9.
type VersionRange struct {
	Major    int `yaml:"major"`
	MinMinor int `yaml:"min_minor"`
	MaxMinor int `yaml:"max_minor"`
}

// Validate checks that the range is non-empty and well formed.
func (r VersionRange) Validate() error {
	if r.Major <= 0 {
		return fmt.Errorf("invalid major version %d", r.Major)
	}
	if r.MinMinor < 0 || r.MaxMinor < 0 {
		return fmt.Errorf("minor versions must not be negative (got %d..%d)", r.MinMinor, r.MaxMinor)
	}
	if r.MinMinor > r.MaxMinor {
		return fmt.Errorf("empty version range %d.%d..%d.%d", r.Major, r.MinMinor, r.Major, r.MaxMinor)
	}
	return nil
}

// BuildMatrix returns every InterpreterID the project intends to support.
//
// The result is the cross product of the minor range and Architectures(),
// ordered by minor version ascending and then by architecture, so build logs
// read the same on every run. An invalid range yields nil.
func BuildMatrix(r VersionRange) []InterpreterID {
	if r.Validate() != nil {
		return nil
	}

	archs := Architectures()
	ids := make([]InterpreterID, 0, (r.MaxMinor-r.MinMinor+1)*len(archs))
	for minor := r.MinMinor; minor <= r.MaxMinor; minor++ {
		for _, arch := range archs {
			ids = append(ids, InterpreterID{Major: r.Major, Minor: minor, Arch: arch})
		}
	}
	return ids
}
