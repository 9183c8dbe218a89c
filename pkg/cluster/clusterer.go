// Package cluster groups fleet positions into a small number of fetch
// areas. The clusterer works with a fixed set of radii: it prefers few
// large clusters, but scores clusters that no smaller radius could
// still cover much higher so they are claimed first.
package cluster

import (
	"errors"
	"sort"

	"github.com/gatasproject/gatas-server/pkg/geo"
)

// unavoidableBonus dominates the point count in cluster scoring, so an
// unavoidable cluster always wins over a merely large one.
const unavoidableBonus = 10000

// Cluster is a group of points with their arithmetic mean center and
// the distance to the farthest member.
type Cluster struct {
	Center          geo.LatLon
	Points          []geo.LatLon
	EffectiveRadius float64
}

// FixedRadiusClusterer clusters points using a fixed, descending list
// of radii in meters. Each radius is used at most once per run, the
// smallest radius also serves as the fallback for leftover points.
type FixedRadiusClusterer struct {
	radii []float64 // descending
}

// New returns a clusterer for the given radii in meters.
func New(radii ...float64) (*FixedRadiusClusterer, error) {
	if len(radii) == 0 {
		return nil, errors.New("cluster: at least one radius required")
	}
	sorted := append([]float64(nil), radii...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	return &FixedRadiusClusterer{radii: sorted}, nil
}

// Cluster groups points into clusters. Every input point ends up in
// exactly one cluster; leftovers become fallback clusters around the
// smallest radius, possibly singletons.
func (f *FixedRadiusClusterer) Cluster(points []geo.LatLon) []Cluster {
	remaining := append([]geo.LatLon(nil), points...)
	var clusters []Cluster

	for i, radius := range f.radii {
		if len(remaining) == 0 {
			break
		}
		smaller := f.radii[i+1:]
		best := bestClusterAt(remaining, radius, smaller)
		if len(best.Points) > 1 {
			clusters = append(clusters, best)
			remaining = removePoints(remaining, best.Points)
		}
	}

	// Fallback: everything still unclustered gets grouped around the
	// smallest radius, singletons included.
	smallest := f.radii[len(f.radii)-1]
	for len(remaining) > 0 {
		c := growCluster(remaining[0], remaining, smallest)
		clusters = append(clusters, c)
		remaining = removePoints(remaining, c.Points)
	}
	return clusters
}

// bestClusterAt grows a candidate cluster from every seed and returns
// the highest scoring one. Score is the member count, plus a large
// bonus when the members could not be covered using only the strictly
// smaller radii.
func bestClusterAt(points []geo.LatLon, radius float64, smaller []float64) Cluster {
	var best Cluster
	bestScore := -1
	for _, seed := range points {
		c := growCluster(seed, points, radius)
		score := len(c.Points)
		if !coveredBy(c.Points, smaller) {
			score += unavoidableBonus
		}
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

// growCluster starts at seed and iteratively absorbs all points within
// radius of the current centroid, recomputing the centroid after every
// expansion until it stops moving.
func growCluster(seed geo.LatLon, points []geo.LatLon, radius float64) Cluster {
	members := []geo.LatLon{seed}
	in := map[geo.LatLon]bool{seed: true}
	center := seed

	for {
		grew := false
		for _, p := range points {
			if in[p] {
				continue
			}
			if geo.Haversine(center, p) <= radius {
				members = append(members, p)
				in[p] = true
				grew = true
			}
		}
		if !grew {
			break
		}
		center = centroid(members)
	}

	return Cluster{
		Center:          center,
		Points:          members,
		EffectiveRadius: effectiveRadius(center, members),
	}
}

// coveredBy reports whether points can be fully clustered using only
// the given radii, without the fallback step. Leftover points mean the
// set is not coverable.
func coveredBy(points []geo.LatLon, radii []float64) bool {
	if len(points) == 0 {
		return true
	}
	if len(radii) == 0 {
		return false
	}
	remaining := append([]geo.LatLon(nil), points...)
	for i, radius := range radii {
		if len(remaining) == 0 {
			break
		}
		best := bestClusterAt(remaining, radius, radii[i+1:])
		if len(best.Points) > 1 {
			remaining = removePoints(remaining, best.Points)
		}
	}
	return len(remaining) == 0
}

func centroid(points []geo.LatLon) geo.LatLon {
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return geo.LatLon{Lat: lat / n, Lon: lon / n}
}

func effectiveRadius(center geo.LatLon, points []geo.LatLon) float64 {
	var max float64
	for _, p := range points {
		if d := geo.Haversine(center, p); d > max {
			max = d
		}
	}
	return max
}

func removePoints(points, drop []geo.LatLon) []geo.LatLon {
	del := make(map[geo.LatLon]bool, len(drop))
	for _, p := range drop {
		del[p] = true
	}
	out := points[:0]
	for _, p := range points {
		if !del[p] {
			out = append(out, p)
		}
	}
	return out
}
