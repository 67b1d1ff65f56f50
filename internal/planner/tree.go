package planner

import (
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/geometry"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/obstacle"
)

// node is one entry in the search-tree arena. Nodes reference their
// parent by index, never by pointer, so the tree is a flat slice with
// no cyclic structures; index 0 is the root (start position).
type node struct {
	pt     orb.Point
	parent int // -1 for the root
	cost   pathCost
}

// searchTree is the RRT* tree: an append-only node arena plus an
// R-tree over node positions for nearest-neighbor queries. A single
// mutex guards growth and rewiring so no reader ever observes a node
// mid-reparent.
type searchTree struct {
	mu    sync.Mutex
	nodes []node
	index *rtreego.Rtree
}

type nodeEntry struct {
	id  int
	loc rtreego.Point
}

func (e *nodeEntry) Bounds() rtreego.Rect { return e.loc.ToRect(1e-9) }

func newSearchTree(root orb.Point) *searchTree {
	t := &searchTree{
		nodes: []node{{pt: root, parent: -1}},
		index: rtreego.NewTree(2, 25, 50),
	}
	t.index.Insert(&nodeEntry{id: 0, loc: rtreego.Point{root[0], root[1]}})
	return t
}

// nearest returns the closest tree node to p.
func (t *searchTree) nearest(p orb.Point) (int, orb.Point, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	item := t.index.NearestNeighbor(rtreego.Point{p[0], p[1]})
	e, ok := item.(*nodeEntry)
	if !ok || e == nil {
		return 0, orb.Point{}, false
	}
	return e.id, t.nodes[e.id].pt, true
}

// size returns the node count.
func (t *searchTree) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// costOf returns a node's accumulated cost.
func (t *searchTree) costOf(id int) pathCost {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodes[id].cost
}

// nearLocked returns ids of nodes within radius of p. Caller holds mu.
func (t *searchTree) nearLocked(p orb.Point, radius float64) []int {
	bbox, err := rtreego.NewRect(
		rtreego.Point{p[0] - radius, p[1] - radius},
		[]float64{2 * radius, 2 * radius},
	)
	if err != nil {
		return nil
	}

	var ids []int
	for _, item := range t.index.SearchIntersect(bbox) {
		e, ok := item.(*nodeEntry)
		if !ok {
			continue
		}
		if geometry.Distance(p, t.nodes[e.id].pt) <= radius {
			ids = append(ids, e.id)
		}
	}
	return ids
}

// isAncestorLocked reports whether anc is on id's parent chain.
// Caller holds mu.
func (t *searchTree) isAncestorLocked(anc, id int) bool {
	for cur := id; cur != -1; cur = t.nodes[cur].parent {
		if cur == anc {
			return true
		}
	}
	return false
}

// extend inserts a node at newPt and rewires its neighborhood, all
// under one lock so insertion and rewiring are atomic. The parent is
// chosen among nearestID and the neighborhood to minimize weighted
// cost; neighbors are reparented through the new node when that
// strictly lowers their cost and stays feasible. Returns -1 when the
// battery budget rules the new node out.
//
// Rewiring leaves descendant costs as recorded under the old parent.
// Those are overestimates after a rewire, which keeps the battery
// check conservative; optimality recovers as search continues.
func (t *searchTree) extend(
	newPt orb.Point,
	nearestID int,
	seg segmentMetrics,
	env Environment,
	cfg Config,
	alt float64,
	dyn []obstacle.Dynamic,
	baseline float64,
) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	neighbors := t.nearLocked(newPt, cfg.NeighborhoodRadius)

	bestParent := nearestID
	bestCost := t.nodes[nearestID].cost.add(seg)
	for _, nb := range neighbors {
		if nb == nearestID {
			continue
		}
		if !env.SegmentFeasible(t.nodes[nb].pt, newPt, alt, cfg, dyn) {
			continue
		}
		c := t.nodes[nb].cost.add(env.evaluateSegment(t.nodes[nb].pt, newPt, dyn))
		if c.weighted(cfg, baseline) < bestCost.weighted(cfg, baseline) {
			bestParent = nb
			bestCost = c
		}
	}

	if cfg.batteryFor(bestCost.dist) > cfg.BatteryCapacity {
		return -1
	}

	newID := len(t.nodes)
	t.nodes = append(t.nodes, node{pt: newPt, parent: bestParent, cost: bestCost})
	t.index.Insert(&nodeEntry{id: newID, loc: rtreego.Point{newPt[0], newPt[1]}})

	for _, nb := range neighbors {
		if nb == bestParent || t.isAncestorLocked(nb, newID) {
			continue
		}
		c := bestCost.add(env.evaluateSegment(newPt, t.nodes[nb].pt, dyn))
		if c.weighted(cfg, baseline) >= t.nodes[nb].cost.weighted(cfg, baseline) {
			continue
		}
		if cfg.batteryFor(c.dist) > cfg.BatteryCapacity {
			continue
		}
		if !env.SegmentFeasible(newPt, t.nodes[nb].pt, alt, cfg, dyn) {
			continue
		}
		t.nodes[nb].parent = newID
		t.nodes[nb].cost = c
	}

	return newID
}

// pathTo reconstructs root -> id by walking parent references and
// reversing, per the arena's back-reference design.
func (t *searchTree) pathTo(id int) []orb.Point {
	t.mu.Lock()
	defer t.mu.Unlock()

	var rev []orb.Point
	for cur := id; cur != -1; cur = t.nodes[cur].parent {
		rev = append(rev, t.nodes[cur].pt)
	}
	out := make([]orb.Point, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}
