package crdt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZigZag(t *testing.T) {
	for _, i := range []int64{0, 1, -1, 2, -2, 1 << 40, -(1 << 40)} {
		assert.Equal(t, i, ZagZigUint64(ZigZagInt64(i)))
	}
	assert.Equal(t, uint64(1), ZigZagInt64(-1))
	assert.Equal(t, uint64(2), ZigZagInt64(1))
}

func TestZipIntUint64Pair(t *testing.T) {
	for _, pair := range []struct {
		rev int64
		src uint64
	}{
		{0, 0},
		{1, 1},
		{-1, 123},
		{1 << 50, 1 << 60},
	} {
		zip := ZipIntUint64Pair(pair.rev, pair.src)
		rev, src := UnzipIntUint64Pair(zip)
		assert.Equal(t, pair.rev, rev)
		assert.Equal(t, pair.src, src)
	}
	// small pairs stay small
	assert.LessOrEqual(t, len(ZipIntUint64Pair(1, 1)), 2)
}

func TestZipUint64(t *testing.T) {
	for _, u := range []uint64{0, 1, 300, 1 << 63} {
		assert.Equal(t, u, UnzipUint64(ZipUint64(u)))
	}
}

func TestTimeZip(t *testing.T) {
	stamp := Time{Rev: 42, Src: 7}
	assert.Equal(t, stamp, TimeFromZipBytes(stamp.ZipBytes()))
	assert.True(t, Time{Rev: 1, Src: 2}.Less(Time{Rev: 2, Src: 1}))
	assert.True(t, Time{Rev: 2, Src: 1}.Less(Time{Rev: 2, Src: 2}))
	assert.False(t, Time{Rev: 2, Src: 2}.Less(Time{Rev: 2, Src: 2}))
}

func TestLocalClockSee(t *testing.T) {
	clock := LocalClock{Source: 1}
	clock.See(Time{Rev: 10, Src: 2})
	assert.Equal(t, Time{Rev: 11, Src: 1}, clock.Tick())
	clock.See(Time{Rev: 5, Src: 3})
	assert.Equal(t, Time{Rev: 12, Src: 1}, clock.Tick(), "older stamps do not rewind")
}

func TestLocalClockConcurrentTicks(t *testing.T) {
	const writers, ticks = 8, 1000
	clock := LocalClock{Source: 1}

	stamps := make(chan Time, writers*ticks)
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < ticks; i++ {
				stamps <- clock.Tick()
			}
		}()
	}
	wg.Wait()
	close(stamps)

	seen := make(map[Time]bool, writers*ticks)
	for stamp := range stamps {
		assert.False(t, seen[stamp], "duplicate stamp %v", stamp)
		seen[stamp] = true
	}
	assert.Len(t, seen, writers*ticks)
}
