// Package gradient converts per-segment density sequences into
// rendering-ready color stops. Pure transforms, no state.
package gradient

import "github.com/saferoute/backend/pkg/utils"

// Bucket is a discrete risk color class, lowest to highest
type Bucket int

const (
	BucketLow Bucket = iota
	BucketModerate
	BucketElevated
	BucketSevere
)

func (b Bucket) String() string {
	switch b {
	case BucketSevere:
		return "severe"
	case BucketElevated:
		return "elevated"
	case BucketModerate:
		return "moderate"
	default:
		return "low"
	}
}

// Stop is one gradient stop: a progress fraction along the route in [0, 1]
// and the bucket to render there.
type Stop struct {
	Position float64 `json:"position"`
	Bucket   Bucket  `json:"bucket"`
	Color    string  `json:"color"`
}

var bucketColors = map[Bucket]string{
	BucketLow:      "#2dc937",
	BucketModerate: "#e7b416",
	BucketElevated: "#db7b2b",
	BucketSevere:   "#cc3232",
}

// bucketFor assigns a bucket by density relative to the sequence maximum,
// not by absolute count: a uniformly quiet route still shows gradation and
// a single outlier segment does not wash out the rest.
func bucketFor(density, max float64) Bucket {
	ratio := density / max
	switch {
	case ratio > 0.7:
		return BucketSevere
	case ratio > 0.4:
		return BucketElevated
	case ratio > 0.2:
		return BucketModerate
	default:
		return BucketLow
	}
}

// Encode maps a density sequence to ordered gradient stops. Empty input
// yields a single low-risk stop spanning the whole route; a single segment
// yields matching stops at both ends so the style is never undefined.
func Encode(densities []int) []Stop {
	if len(densities) == 0 {
		return []Stop{{Position: 0, Bucket: BucketLow, Color: bucketColors[BucketLow]}}
	}

	max := 1.0 // floor so an all-zero route maps to the low bucket
	for _, d := range densities {
		if float64(d) > max {
			max = float64(d)
		}
	}

	stops := make([]Stop, 0, len(densities)+1)
	for i, d := range densities {
		b := bucketFor(float64(d), max)
		stops = append(stops, Stop{
			Position: utils.RoundTo(float64(i)/float64(len(densities)), 4),
			Bucket:   b,
			Color:    bucketColors[b],
		})
	}

	// Close the gradient at 1.0 with the final segment's bucket
	last := stops[len(stops)-1]
	stops = append(stops, Stop{Position: 1, Bucket: last.Bucket, Color: last.Color})

	return stops
}
