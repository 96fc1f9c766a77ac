package labels

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/uber/h3-go/v4"
)

// Coordinate reference systems understood by ClusterID.
const (
	CRSMercator = "mercator" // web mercator meters
	CRSWGS84    = "wgs84"    // lon/lat degrees
	CRSPlanar   = "planar"   // arbitrary units, no ground clustering
)

const maxH3Resolution = 15

// clusterResolution maps a zoom level onto an H3 resolution.
func clusterResolution(zoom float64) int {
	r := int(math.Round(zoom * 0.6))
	return max(0, min(maxH3Resolution, r))
}

// ClusterID groups anchors that are close on the ground at this zoom using
// H3 cells. Planar coordinates, and points H3 rejects, fall back to the grid cell.
func ClusterID(p orb.Point, crs string, zoom float64, cell CellID) string {
	var ll orb.Point
	switch crs {
	case CRSMercator:
		ll = project.Mercator.ToWGS84(p)
	case CRSWGS84:
		ll = p
	default:
		return "cell:" + cell.String()
	}
	if ll[1] >= -90 && ll[1] <= 90 && ll[0] >= -180 && ll[0] <= 180 {
		c, err := h3.LatLngToCell(h3.NewLatLng(ll[1], ll[0]), clusterResolution(zoom))
		if err == nil {
			return "h3:" + c.String()
		}
	}
	return "cell:" + cell.String()
}
