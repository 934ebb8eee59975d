// Package cluster merges per-frame detections into persistent entities.
//
// Matching is greedy and single pass: each detection joins the nearest
// existing cluster when it is within the threshold, otherwise it starts a new
// one. Clusters are never split, merged or removed, so the result depends on
// arrival order only.
package cluster

import (
	"errors"
	"math"
	"sort"

	"github.com/golang/geo/r2"

	"github.com/travisano/unite-heatmap/types"
)

const (
	DefaultMultiplier = 3.5
	DefaultRadius     = 3.0
)

// Policy decides the match distance for a detection. A positive Fixed
// threshold wins; otherwise the detection's radius (or DefaultRadius when it
// has none) is scaled by Multiplier.
type Policy struct {
	Fixed         float64 `yaml:"fixed"`
	Multiplier    float64 `yaml:"multiplier"`
	DefaultRadius float64 `yaml:"default_radius"`
}

// RadiusPolicy is the radius relative policy used for camps.
func RadiusPolicy() Policy {
	return Policy{Multiplier: DefaultMultiplier, DefaultRadius: DefaultRadius}
}

// FixedPolicy matches anything within distance pixels.
func FixedPolicy(distance float64) Policy {
	return Policy{Fixed: distance}
}

func (p Policy) Validate() error {
	if p.Fixed < 0 {
		return errors.New("fixed threshold must not be negative")
	}
	if p.Fixed == 0 {
		if p.Multiplier <= 0 {
			return errors.New("radius multiplier must be positive")
		}
		if p.DefaultRadius <= 0 {
			return errors.New("default radius must be positive")
		}
	}
	return nil
}

// Threshold returns the match distance for d.
func (p Policy) Threshold(d types.Detection) float64 {
	if p.Fixed > 0 {
		return p.Fixed
	}
	radius := d.Radius
	if radius <= 0 {
		radius = p.DefaultRadius
	}
	return radius * p.Multiplier
}

// Cluster is one persistent entity
type Cluster struct {
	ID       int
	Members  []types.Detection
	Centroid r2.Point

	sum r2.Point
}

func (c *Cluster) add(d types.Detection) {
	c.Members = append(c.Members, d)
	c.sum = c.sum.Add(d.Position)
	c.Centroid = c.sum.Mul(1 / float64(len(c.Members)))
}

// Uptime is the number of member detections, which is seconds at one sample per second.
func (c *Cluster) Uptime() int {
	return len(c.Members)
}

// Frames returns the distinct frame indices the cluster was seen in, ascending.
func (c *Cluster) Frames() []int {
	seen := make(map[int]struct{}, len(c.Members))
	frames := make([]int, 0, len(c.Members))
	for _, m := range c.Members {
		if _, ok := seen[m.Frame]; ok {
			continue
		}
		seen[m.Frame] = struct{}{}
		frames = append(frames, m.Frame)
	}
	sort.Ints(frames)
	return frames
}

// Zone returns the most common non-empty zone among the members.
func (c *Cluster) Zone() string {
	counts := make(map[string]int)
	for _, m := range c.Members {
		if m.Zone != "" {
			counts[m.Zone]++
		}
	}

	best, bestCount := "", 0
	for zone, n := range counts {
		if n > bestCount || (n == bestCount && zone < best) {
			best, bestCount = zone, n
		}
	}
	return best
}

// Clusterer assigns a time ordered stream of detections to clusters
type Clusterer struct {
	policy   Policy
	clusters []*Cluster
}

func New(policy Policy) *Clusterer {
	return &Clusterer{policy: policy}
}

// Add assigns d to the nearest cluster within the threshold or starts a new
// one, and returns the cluster it ended up in.
func (c *Clusterer) Add(d types.Detection) *Cluster {
	threshold := c.policy.Threshold(d)

	var nearest *Cluster
	best := math.Inf(1)
	for _, cl := range c.clusters {
		if dist := cl.Centroid.Sub(d.Position).Norm(); dist < best {
			nearest, best = cl, dist
		}
	}

	if nearest == nil || best > threshold {
		nearest = &Cluster{ID: len(c.clusters)}
		c.clusters = append(c.clusters, nearest)
	}
	nearest.add(d)
	return nearest
}

// Clusters returns the clusters in creation order.
func (c *Clusterer) Clusters() []*Cluster {
	return c.clusters
}

// Run clusters detections after a stable sort by frame index.
func Run(detections []types.Detection, policy Policy) []*Cluster {
	ordered := make([]types.Detection, len(detections))
	copy(ordered, detections)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Frame < ordered[j].Frame })

	c := New(policy)
	for _, d := range ordered {
		c.Add(d)
	}
	return c.Clusters()
}
