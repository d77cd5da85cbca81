package crdt

import "encoding/binary"

// ZigZagInt64 maps small negative ints to small uints.
func ZigZagInt64(i int64) uint64 {
	return uint64((i >> 63) ^ (i << 1))
}

func ZagZigUint64(u uint64) int64 {
	return int64((u >> 1) ^ -(u & 1))
}

// ZipIntUint64Pair packs a (rev, src) pair into a byte string.
// The smaller the ints, the shorter the string.
func ZipIntUint64Pair(rev int64, src uint64) []byte {
	ret := make([]byte, 0, 2*binary.MaxVarintLen64)
	ret = binary.AppendUvarint(ret, ZigZagInt64(rev))
	ret = binary.AppendUvarint(ret, src)
	return ret
}

func UnzipIntUint64Pair(buf []byte) (rev int64, src uint64) {
	z, n := binary.Uvarint(buf)
	if n <= 0 {
		return
	}
	rev = ZagZigUint64(z)
	src, _ = binary.Uvarint(buf[n:])
	return
}

// ZipUint64 is a plain uvarint.
func ZipUint64(u uint64) []byte {
	return binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64), u)
}

func UnzipUint64(buf []byte) uint64 {
	u, _ := binary.Uvarint(buf)
	return u
}
