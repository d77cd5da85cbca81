package crdt

import (
	"github.com/learn-decentralized-systems/toytlv"
)

// VV is a version vector, max revision seen from each known replica.
type VV map[uint64]int64

func (vv VV) Get(src uint64) int64 {
	return vv[src]
}

// Put the src-rev pair to the VV, returns whether it was
// unseen (i.e. made any difference)
func (vv VV) Put(src uint64, rev int64) bool {
	pre, ok := vv[src]
	if ok && pre >= rev {
		return false
	}
	vv[src] = rev
	return true
}

func (vv VV) PutTime(t Time) bool {
	return vv.Put(t.Src, t.Rev)
}

// Covers tells whether the stamp has already been seen.
func (vv VV) Covers(t Time) bool {
	return vv[t.Src] >= t.Rev
}

func (vv VV) Copy() VV {
	ret := make(VV, len(vv))
	for src, rev := range vv {
		ret[src] = rev
	}
	return ret
}

// TLV form: a 'V' record of (rev, src) pairs.
func (vv VV) TLV() []byte {
	body := make([]byte, 0, len(vv)*4)
	for src, rev := range vv {
		body = append(body, toytlv.TinyRecord('T', ZipIntUint64Pair(rev, src))...)
	}
	return toytlv.Record('V', body)
}

func VVFromTLV(bulk []byte) (vv VV, err error) {
	body, _, err := toytlv.TakeWary('V', bulk)
	if err != nil {
		return nil, err
	}
	vv = make(VV)
	rest := body
	for len(rest) > 0 {
		var pair []byte
		pair, rest, err = toytlv.TakeWary('T', rest)
		if err != nil {
			return nil, err
		}
		rev, src := UnzipIntUint64Pair(pair)
		vv.Put(src, rev)
	}
	return
}
