// Package systems provides the spatial partition index, the stochastic step
// sampler and the kinetics formulas clouds are built from.
package systems

import (
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// NumPartitions is the fixed number of coarse buckets.
const NumPartitions = 16

// sweepDepth is how many levels of midpoints a segment query samples:
// 1/2 at the first level, then 1/4 and 3/4.
const sweepDepth = 2

// Partitioner maps a point to one of NumPartitions buckets. The x axis is
// split into four ordered bins by X1 < X2 < X3, and y and z each contribute
// one bit for falling below Y and Z.
type Partitioner struct {
	X1, X2, X3 float64
	Y, Z       float64
}

// NewPartitioner places the x thresholds at the quarter points of the bounds
// and the y and z thresholds at its center.
func NewPartitioner(bounds r3.Box) Partitioner {
	c := r3.Scale(0.5, r3.Add(bounds.Min, bounds.Max))
	return Partitioner{
		X1: 0.5 * (bounds.Min.X + c.X),
		X2: c.X,
		X3: 0.5 * (bounds.Max.X + c.X),
		Y:  c.Y,
		Z:  c.Z,
	}
}

// PID returns the partition id of p. Bins are numbered from the +x end.
func (pt Partitioner) PID(p r3.Vec) int {
	var pid int
	switch {
	case p.X > pt.X3:
		pid = 0
	case p.X > pt.X2:
		pid = 1
	case p.X > pt.X1:
		pid = 2
	default:
		pid = 3
	}
	if p.Y < pt.Y {
		pid += 4
	}
	if p.Z < pt.Z {
		pid += 8
	}
	return pid
}

// PartitionIndex tracks which bucket every walker id lives in.
type PartitionIndex struct {
	part    Partitioner
	buckets [NumPartitions][]int
	owner   map[int]int
}

// NewPartitionIndex creates an empty index.
func NewPartitionIndex(part Partitioner) *PartitionIndex {
	return &PartitionIndex{part: part, owner: make(map[int]int)}
}

func (ix *PartitionIndex) Partitioner() Partitioner { return ix.part }

// Insert adds id at position p and returns its partition id. Inserting an
// id that is already present moves it.
func (ix *PartitionIndex) Insert(id int, p r3.Vec) int {
	if _, ok := ix.owner[id]; ok {
		pid, _ := ix.Move(id, p)
		return pid
	}
	pid := ix.part.PID(p)
	ix.buckets[pid] = append(ix.buckets[pid], id)
	ix.owner[id] = pid
	return pid
}

// Remove drops id from the index. It reports whether id was present.
func (ix *PartitionIndex) Remove(id int) bool {
	pid, ok := ix.owner[id]
	if !ok {
		return false
	}
	ix.buckets[pid] = removeID(ix.buckets[pid], id)
	delete(ix.owner, id)
	return true
}

// Move recomputes the bucket of id for position p. It reports the new
// partition id and whether the walker changed bucket.
func (ix *PartitionIndex) Move(id int, p r3.Vec) (int, bool) {
	old, ok := ix.owner[id]
	if !ok {
		return ix.Insert(id, p), true
	}
	pid := ix.part.PID(p)
	if pid == old {
		return pid, false
	}
	ix.buckets[old] = removeID(ix.buckets[old], id)
	ix.buckets[pid] = append(ix.buckets[pid], id)
	ix.owner[id] = pid
	return pid, true
}

// Owner returns the bucket holding id.
func (ix *PartitionIndex) Owner(id int) (int, bool) {
	pid, ok := ix.owner[id]
	return pid, ok
}

// Bucket returns the ids in one partition. The slice must not be modified.
func (ix *PartitionIndex) Bucket(pid int) []int {
	if pid < 0 || pid >= NumPartitions {
		return nil
	}
	return ix.buckets[pid]
}

// Len returns the number of indexed ids.
func (ix *PartitionIndex) Len() int { return len(ix.owner) }

// PIDsAlong returns the partitions sampled along the segment p -> p+dr:
// the start, the end and midpoints down to sweepDepth. A midpoint whose
// partition was already seen is not refined further.
func (ix *PartitionIndex) PIDsAlong(p, dr r3.Vec) []int {
	var seen [NumPartitions]bool
	seen[ix.part.PID(p)] = true
	seen[ix.part.PID(r3.Add(p, dr))] = true
	ix.sweep(p, dr, 0, 1, 0, &seen)

	pids := make([]int, 0, 4)
	for pid, ok := range seen {
		if ok {
			pids = append(pids, pid)
		}
	}
	return pids
}

func (ix *PartitionIndex) sweep(p, dr r3.Vec, lo, hi float64, depth int, seen *[NumPartitions]bool) {
	mid := 0.5 * (lo + hi)
	pid := ix.part.PID(r3.Add(p, r3.Scale(mid, dr)))
	if seen[pid] {
		return
	}
	seen[pid] = true
	if depth+1 < sweepDepth {
		ix.sweep(p, dr, lo, mid, depth+1, seen)
		ix.sweep(p, dr, mid, hi, depth+1, seen)
	}
}

// Query returns the ids of every walker in the partitions swept by the
// segment p -> p+dr, in ascending order.
func (ix *PartitionIndex) Query(p, dr r3.Vec) []int {
	var ids []int
	for _, pid := range ix.PIDsAlong(p, dr) {
		ids = append(ids, ix.buckets[pid]...)
	}
	slices.Sort(ids)
	return ids
}

// Check verifies that every id is in exactly one bucket and that the bucket
// matches its recorded owner. It returns the first offending id, or -1.
func (ix *PartitionIndex) Check() int {
	count := 0
	for pid, bucket := range ix.buckets {
		for _, id := range bucket {
			if owner, ok := ix.owner[id]; !ok || owner != pid {
				return id
			}
			count++
		}
	}
	if count != len(ix.owner) {
		for id := range ix.owner {
			return id
		}
	}
	return -1
}

func removeID(ids []int, id int) []int {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
