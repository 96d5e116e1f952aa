package contourdem

import (
	"slices"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"seehuhn.de/go/geom/rect"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50

	// queryPadding expands queries so that boxes touching the query
	// boundary are returned.
	queryPadding = 1e-9
)

// An indexEntry is a contour's bounding box stored in the R-tree.
type indexEntry struct {
	geom.Polygon
	id int
}

// A SpatialIndex indexes contour bounding boxes. It is safe for concurrent
// queries once construction is complete.
type SpatialIndex struct {
	tree *rtree.Rtree
	size int
}

// NewSpatialIndex returns a new SpatialIndex containing the bounding boxes of
// all non-empty contours.
func NewSpatialIndex(contours []Contour) *SpatialIndex {
	s := &SpatialIndex{
		tree: rtree.NewTree(rtreeMinChildren, rtreeMaxChildren),
	}
	for i := range contours {
		if contours[i].Empty() {
			continue
		}
		s.Insert(contours[i].ID, contours[i].BBox)
	}
	return s
}

// Insert adds bbox with id to s.
func (s *SpatialIndex) Insert(id int, bbox rect.Rect) {
	s.tree.Insert(&indexEntry{
		Polygon: geom.Polygon{{
			{X: bbox.LLx, Y: bbox.LLy},
			{X: bbox.URx, Y: bbox.LLy},
			{X: bbox.URx, Y: bbox.URy},
			{X: bbox.LLx, Y: bbox.URy},
		}},
		id: id,
	})
	s.size++
}

// Len returns the number of boxes in s.
func (s *SpatialIndex) Len() int {
	return s.size
}

// Query returns the sorted ids of all boxes intersecting r, including boxes
// that only touch r's boundary.
func (s *SpatialIndex) Query(r rect.Rect) []int {
	if s.size == 0 {
		return nil
	}
	results := s.tree.SearchIntersect(&geom.Bounds{
		Min: geom.Point{X: r.LLx - queryPadding, Y: r.LLy - queryPadding},
		Max: geom.Point{X: r.URx + queryPadding, Y: r.URy + queryPadding},
	})
	ids := make([]int, 0, len(results))
	for _, result := range results {
		ids = append(ids, result.(*indexEntry).id)
	}
	slices.Sort(ids)
	return ids
}

// QueryPoint returns the sorted ids of all boxes containing (x, y).
func (s *SpatialIndex) QueryPoint(x, y float64) []int {
	return s.Query(rect.Rect{LLx: x, LLy: y, URx: x, URy: y})
}
