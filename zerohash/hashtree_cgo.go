//go:build cgo

package zerohash

import (
	"fmt"
	"unsafe"

	"github.com/OffchainLabs/hashtree"
)

// this file mirrors the dynamic-ssz hasher/cgo package: it wires the SIMD
// accelerated hashtree.Hash implementation in as the default batch hasher
// whenever cgo is available. The sparse engine spends nearly all of its
// time hashing 64-byte chunk pairs while descending the validator and
// consolidation data trees, which is exactly the workload hashtree
// accelerates.

func init() {
	batchMutex.Lock()
	batchHash = hashtreeBatch
	batchMutex.Unlock()
}

func hashtreeBatch(dst, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	if len(src)%64 != 0 {
		return fmt.Errorf("zerohash: chunks not multiple of 64 bytes")
	}
	if len(dst) < len(src)/2 {
		return fmt.Errorf("zerohash: digest buffer too small")
	}

	chunks := unsafe.Slice((*[32]byte)(unsafe.Pointer(&src[0])), len(src)/32)
	digests := unsafe.Slice((*[32]byte)(unsafe.Pointer(&dst[0])), len(dst)/32)
	hashtree.Hash(digests, chunks)
	return nil
}
