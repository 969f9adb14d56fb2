// Package domain implements hazard impact analysis over a raster hazard mask
// and a set of road polylines.
//
// # Raster masks
//
// A raster arrives as one or more bands plus georeferencing: width, height,
// bounding box [minX, minY, maxX, maxY], resolution (resX, resY) and a free-form
// CRS label. Only band 0 is used. A band 0 that is a bare scalar carries no
// spatial information and is rejected with [ErrInvalidRasterData].
//
// Thresholding is exact equality with the hazard value (default 1):
//
//	1      → hazard-present
//	0      → hazard-absent
//	nodata → hazard-absent
//	0.97   → hazard-absent (fractional confidences are not rounded)
//
// When the resolution is missing, short, or (0, 0), it is approximated as
//
//	((maxX-minX)/W, (maxY-minY)/H)
//
// and the mask reports ResolutionDerived. The approximation assumes uniform
// spacing, and the area estimate inherits its error.
//
// # Pixel mapping
//
//	px = floor((lon - minX) / (maxX - minX) * W)
//	py = floor((1 - (lat - minY) / (maxY - minY)) * H)
//
// Row 0 is the northern edge. Results are not clamped; a vertex exactly on
// maxX maps to column W, which is outside the grid and never a hit.
//
// # Classification
//
// Each road is walked vertex by vertex. Vertices outside the bounding box are
// skipped. A vertex on a hazard cell makes the road in_hazard immediately. A
// vertex with a hazard cell inside the (2r+1)x(2r+1) window around it makes
// the road near_hazard, and later vertices may still upgrade it. With the
// default r = 5 the window is 21x21 cells, so "near" is measured in pixels,
// not meters: on a 10 m raster it is about 50 m, on a 0.001° raster about
// 500 m.
//
// # Area
//
// Total area is hazard pixel count times pixel area. Labels recognised as
// geographic (EPSG:4326 and similar) convert degrees to meters at the box's
// mid latitude:
//
//	metersPerDegLat(φ) = 111132.954 − 559.822·cos(2φ) + 1.175·cos(4φ)
//	metersPerDegLon(φ) = (π/180) · 6378137 · cos(φ)
//
// Every other label, "Unknown" included, is taken as linear meters. This is
// string matching on the label, not a CRS transform.
package domain
