// Package core: MTRef is a deliberately plain MT19937 stepper.
//
// The recurrences follow the mt19937ar reference implementation by
// Makoto Matsumoto and Takuji Nishimura (2002), kept in the direct
// modular-index form with no loop unrolling.

package core

import (
	"math"
)

// MTRef 是 MT19937 的對照實作：與 MT19937 同一組常數、同一條遞推，
// 但 twist 保持 %624 模運算原式、逐字計算，不做任何展開或重排。
//
// 它存在的唯一理由是當差分驗證的「另一顆腦」：
//   - MT19937（三段展開）與 MTRef（模運算原式）對每個 seed 的每次 draw
//     必須逐位元一致，展開的等價性由這組對照釘住。
//   - 快照版面與 MT19937 相同，驗證時可把引擎狀態搬進對照實作續跑。
//
// 熱路徑請用 MT19937；MTRef 不為速度負責。
type MTRef struct {
	words  [mtN]uint32
	cursor int
}

// NewMTRef 以 32-bit seed 建立並完成播種的對照實例。
func NewMTRef(seed uint32) *MTRef {
	r := &MTRef{}
	r.Seed(seed)
	return r
}

func newMTRefWithSeed(seed int64) *MTRef {
	return NewMTRef(uint32(seed))
}

// Seed 以 32-bit seed 重設全部狀態（與 MT19937.Seed 同一條遞推）。
func (r *MTRef) Seed(seed uint32) {
	r.words[0] = seed
	for i := 1; i < mtN; i++ {
		p := r.words[i-1]
		r.words[i] = mtSeedMult*(p^(p>>30)) + uint32(i)
	}
	r.cursor = mtN
}

//---------------------------------------
// 回傳介面方法
//---------------------------------------

// Uint32 回傳下一個 32-bit 亂數。
func (r *MTRef) Uint32() uint32 {
	if r.cursor >= mtN {
		r.step()
	}
	y := r.words[r.cursor]
	r.cursor++

	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

// Int31 回傳非負 int32 亂數（31 bits），恰好消耗一次 draw。
func (r *MTRef) Int31() int32 {
	return int32(r.Uint32() &^ (1 << 31))
}

// Uint64 回傳非負整數uint64亂數（兩次 draw 拼裝，高位在前）。
func (r *MTRef) Uint64() uint64 {
	return (uint64(r.Uint32()) << 32) | uint64(r.Uint32())
}

// Float64 回傳 [0,1) 的浮點亂數（53-bit 精度，消耗兩次 draw）。
func (r *MTRef) Float64() float64 {
	a := r.Uint32() >> 5
	b := r.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) / 9007199254740992.0
}

// UintN 產出[0,n) 的uint整數，若 max == 0 回傳 0
func (r *MTRef) UintN(max uint) uint {
	if max == 0 {
		return 0
	}
	return uint(r.refBelowUint64(uint64(max)))
}

// IntN 回傳 [0,n) 的亂數；若 n <= 0 回傳 -1。
func (r *MTRef) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	if max <= math.MaxUint32 {
		return int(r.refBelowUint32(uint32(max)))
	}
	return int(r.refBelowUint64(uint64(max)))
}

// Snapshot 取得當下內部狀態（版面與 MT19937.Snapshot 相同）。
func (r *MTRef) Snapshot() ([]byte, error) {
	m := MT19937{words: r.words, cursor: r.cursor}
	return m.Snapshot()
}

// Restore 恢復內部狀態（接受 MT19937/MTRef 任一來源的快照）。
func (r *MTRef) Restore(data []byte) error {
	words, cursor, err := decodeMTSnapshot(data)
	if err != nil {
		return err
	}
	r.words = words
	r.cursor = cursor
	return nil
}

//---------------------------------------
// 內部方法
//---------------------------------------

// step 以模運算原式逐字更新整個狀態緩衝：
//
//	for i = 0..623:
//	  y        = (words[i] & 0x80000000) | (words[(i+1)%624] & 0x7fffffff)
//	  words[i] = words[(i+397)%624] ^ (y >> 1) ^ (y&1 == 1 ? 0x9908b0df : 0)
//
// 由左而右依序覆寫：i+397 在 i < 227 時讀到的是「舊」字、其後讀到的是
// 「本輪已更新」的字，這正是 MT19937 遞推的定義順序。
func (r *MTRef) step() {
	for i := 0; i < mtN; i++ {
		y := (r.words[i] & mtUpperMask) | (r.words[(i+1)%mtN] & mtLowerMask)
		next := r.words[(i+mtM)%mtN] ^ (y >> 1)
		if y&1 == 1 {
			next ^= mtMatrixA
		}
		r.words[i] = next
	}
	r.cursor = 0
}

func (r *MTRef) refBelowUint32(bound uint32) uint32 {
	if bound == 0 {
		return 0
	}
	threshold := uint32((^uint32(0) - bound + 1) % bound)
	for {
		v := r.Uint32()
		if v >= threshold {
			return v % bound
		}
	}
}

func (r *MTRef) refBelowUint64(bound uint64) uint64 {
	if bound == 0 {
		return 0
	}
	threshold := (^uint64(0) - bound + 1) % bound
	for {
		hi := uint64(r.Uint32())
		lo := uint64(r.Uint32())
		v := (hi << 32) | lo
		if v >= threshold {
			return v % bound
		}
	}
}

// MTRefFactory 實作 PRNGFactory。
type MTRefFactory struct{}

// New 滿足合約；seed 取低 32 位播種。
func (f *MTRefFactory) New(seed int64) PRNG {
	return newMTRefWithSeed(seed)
}
