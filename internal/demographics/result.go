// Package demographics turns a captured image into counts of men, women and
// children. Callers always receive a usable Result.
package demographics

import (
	"math"
	"strings"
)

const (
	childAgeLimit = 15
	unknownAge    = 30
)

type Result struct {
	Male   int `json:"male"`
	Female int `json:"female"`
	Child  int `json:"child"`
	Total  int `json:"total"`
}

// Default is substituted whenever detection yields nothing usable: one adult
// woman.
func Default() Result {
	return Result{Male: 0, Female: 1, Child: 0, Total: 1}
}

// Normalize replaces an empty or negative result with Default.
func (r Result) Normalize() Result {
	if r.Total <= 0 || r.Male < 0 || r.Female < 0 || r.Child < 0 {
		return Default()
	}
	return r
}

// Face is one detection. Age is nil when the backend could not estimate it.
type Face struct {
	Gender string
	Age    *float64
}

// Tally buckets faces. Anyone under 15 is a child regardless of gender;
// adults with an unresolved gender count as female.
func Tally(faces []Face) Result {
	var r Result
	for _, f := range faces {
		age := float64(unknownAge)
		if f.Age != nil && !math.IsNaN(*f.Age) {
			age = math.Round(*f.Age)
		}

		switch {
		case age < childAgeLimit:
			r.Child++
		case strings.EqualFold(strings.TrimSpace(f.Gender), "male"):
			r.Male++
		default:
			r.Female++
		}
	}
	r.Total = len(faces)
	return r.Normalize()
}
