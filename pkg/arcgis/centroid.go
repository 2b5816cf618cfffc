package arcgis

import "github.com/twpayne/go-geom"

// VertexCentroid returns the arithmetic mean of every vertex in ring, each
// vertex given as [x, y, ...] in lon/lat order. This is deliberately the
// vertex average and not the area-weighted polygon centroid; a closing
// vertex that repeats the first one is counted like any other.
func VertexCentroid(ring [][]float64) (Coordinate, bool) {
	flat := make([]float64, 0, len(ring)*2)
	for _, v := range ring {
		if len(v) < 2 {
			continue
		}
		flat = append(flat, v[0], v[1])
	}
	if len(flat) == 0 {
		return Coordinate{}, false
	}

	lr := geom.NewLinearRingFlat(geom.XY, flat)
	n := lr.NumCoords()
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		c := lr.Coord(i)
		sumX += c.X()
		sumY += c.Y()
	}
	return Coordinate{
		Longitude: sumX / float64(n),
		Latitude:  sumY / float64(n),
	}, true
}
