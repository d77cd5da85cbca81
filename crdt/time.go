package crdt

import "sync/atomic"

// Time is a logical stamp: a revision number and the id of the
// replica that produced it. This is *log time*, not wall time.
type Time struct {
	Rev int64
	Src uint64
}

var T0 = Time{}

func (t Time) ZipBytes() []byte {
	return ZipIntUint64Pair(t.Rev, t.Src)
}

func TimeFromZipBytes(zip []byte) (t Time) {
	t.Rev, t.Src = UnzipIntUint64Pair(zip)
	return
}

// Less orders stamps: by revision, ties by source.
func (t Time) Less(other Time) bool {
	if t.Rev != other.Rev {
		return t.Rev < other.Rev
	}
	return t.Src < other.Src
}

// Clock issues stamps for local writes and observes remote ones,
// so the next local write always wins over everything seen.
type Clock interface {
	Tick() Time
	See(t Time)
	Src() uint64
}

// LocalClock is shared by every container of a document; stamps are
// minted atomically so concurrent writers never reuse a revision.
type LocalClock struct {
	Source uint64
	last   atomic.Int64
}

func (c *LocalClock) Tick() Time {
	return Time{Rev: c.last.Add(1), Src: c.Source}
}

func (c *LocalClock) See(t Time) {
	for {
		last := c.last.Load()
		if t.Rev <= last || c.last.CompareAndSwap(last, t.Rev) {
			return
		}
	}
}

func (c *LocalClock) Src() uint64 {
	return c.Source
}
