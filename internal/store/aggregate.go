package store

import (
	"math"
	"sort"
)

type cellKey struct {
	x int
	y int
}

type cellAcc struct {
	count     int
	sumLon    float64
	sumLat    float64
	hasActive bool
	total     int
	max       int
	members   []string
}

// AggregatePoints groups properties into square grid cells of gridSize
// degrees and summarizes each occupied cell. Cells are floor-anchored at
// the origin, spanning [k*gridSize, (k+1)*gridSize) per axis; the Postgres
// backend groups by the same floor expression in SQL so both backends
// partition identically. Ghost properties are dropped first; they never
// surface on clustered tiles. Returned rows are ordered by their smallest
// member id so repeated calls over the same data encode identically.
func AggregatePoints(rows []PropertyRow, gridSize float64) []ClusterRow {
	cells := make(map[cellKey]*cellAcc)

	for _, p := range rows {
		if p.IsGhost() {
			continue
		}
		key := cellKey{
			x: int(math.Floor(p.Lon / gridSize)),
			y: int(math.Floor(p.Lat / gridSize)),
		}
		acc := cells[key]
		if acc == nil {
			acc = &cellAcc{}
			cells[key] = acc
		}
		acc.count++
		acc.sumLon += p.Lon
		acc.sumLat += p.Lat
		if p.HasActiveListing {
			acc.hasActive = true
		}
		acc.total += p.ActivityScore
		if p.ActivityScore > acc.max {
			acc.max = p.ActivityScore
		}
		acc.members = append(acc.members, p.ID)
	}

	clusters := make([]ClusterRow, 0, len(cells))
	for _, acc := range cells {
		sort.Strings(acc.members)
		clusters = append(clusters, ClusterRow{
			Lon:           acc.sumLon / float64(acc.count),
			Lat:           acc.sumLat / float64(acc.count),
			Count:         acc.count,
			HasActive:     acc.hasActive,
			TotalActivity: acc.total,
			MaxActivity:   acc.max,
			MemberIDs:     acc.members,
		})
	}
	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].MemberIDs[0] < clusters[j].MemberIDs[0]
	})
	return clusters
}
