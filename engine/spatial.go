package engine

// ============================================================================
// SPATIAL — geolocatable points for hotspot display
// ============================================================================

// Geolocatable returns the records of the view that have both coordinates,
// in view order. No deduplication, clustering or binning is applied.
func Geolocatable(view View) []Point {
	out := []Point{}
	for i := 0; i < view.Len(); i++ {
		r := view.record(i)
		if !r.Geolocatable() {
			continue
		}
		out = append(out, Point{
			Category:    r.PrimaryType,
			Latitude:    r.Latitude.Value,
			Longitude:   r.Longitude.Value,
			Description: r.Description,
		})
	}
	return out
}

// Bounds returns the bounding box of points as (minLat, minLon, maxLat,
// maxLon). ok is false when points is empty.
func Bounds(points []Point) (minLat, minLon, maxLat, maxLon float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, 0, 0, false
	}
	minLat, maxLat = points[0].Latitude, points[0].Latitude
	minLon, maxLon = points[0].Longitude, points[0].Longitude
	for _, p := range points[1:] {
		minLat = min(minLat, p.Latitude)
		maxLat = max(maxLat, p.Latitude)
		minLon = min(minLon, p.Longitude)
		maxLon = max(maxLon, p.Longitude)
	}
	return minLat, minLon, maxLat, maxLon, true
}
