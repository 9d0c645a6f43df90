// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"math/big"

	"github.com/zintix-labs/mtlab/errs"
)

// MT19937 的演算法常數（Matsumoto & Nishimura, 1998）。
//
// 狀態為 624 個 32-bit 字；每 624 次取樣做一次整批狀態更新（twist），
// twist 以第 i 與第 i+1 字拼出 y（高 1 bit + 低 31 bit），右移一位後視奇偶
// XOR 矩陣常數，再 XOR 第 i+397 字。輸出端對字做 tempering 打散。
const (
	mtN         = 624        // 狀態字數
	mtM         = 397        // twist 週期位移
	mtMatrixA   = 0x9908b0df // twist 矩陣常數
	mtUpperMask = 0x80000000 // y 的高 1 bit
	mtLowerMask = 0x7fffffff // y 的低 31 bit
	mtSeedMult  = 1812433253 // 播種遞推乘數（Knuth；0x6c078965）
)

// mtMag 以 y 的最低位選擇 XOR 值，省掉 twist 內層分支。
var mtMag = [2]uint32{0, mtMatrixA}

// MT19937 為 19937-bit 狀態、32-bit 輸出的 Mersenne Twister 產生器。
//
// 這是 mtlab 的主力引擎：所有驗證與基準測試都以它為對象。
//
// 狀態模型：
//   - words：攤平的 624 字狀態緩衝（單一陣列，無指標鏈）。
//   - cursor：下一個輸出位置，值域 [0, 624]；cursor == 624 代表
//     「緩衝已取盡，下次取樣前必先 twist」。Seed 後 cursor 即為 624，
//     因此第一次取樣會先 twist——快照裡的 cursor 能精準還原取樣進度。
//
// 併發語意：MT19937 本身完全不加鎖，單一實例只能被單一 goroutine 使用；
// 需要共享時請透過上層的 Generator（帶鎖）或 GenPool。
//
// 安全性：MT19937 不是密碼學安全的亂數來源——觀察 624 個輸出即可重建
// 完整內部狀態。需要不可預測性時請改用 crypto/rand。
type MT19937 struct {
	words  [mtN]uint32
	cursor int
}

// --------------------------------------
// 提供兩種New方式
// --------------------------------------

func newMT19937() *MT19937 {
	seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	return newMT19937WithSeed(seed.Int64())
}

// newMT19937WithSeed 以 int64 seed 建立實例；MT19937 的種子空間是 32-bit，
// 這裡固定取 seed 的低 32 位（工廠合約要求同 seed 同序列，截位是決定性的）。
func newMT19937WithSeed(seed int64) *MT19937 {
	return NewMT19937(uint32(seed))
}

// NewMT19937 以 32-bit seed 建立並完成播種的實例。
// 沒有「不帶 seed」的建構路徑：未播種的狀態不具意義，也無從審計。
func NewMT19937(seed uint32) *MT19937 {
	r := &MT19937{}
	r.Seed(seed)
	return r
}

// Seed 以 32-bit seed 重設全部狀態。
//
// 遞推式：words[i] = 1812433253 * (words[i-1] ^ (words[i-1] >> 30)) + i，
// 全程 mod 2^32（Go uint32 原生迴繞，不需額外處理溢位）。
// Seed 是完全重設：不殘留任何先前取樣的痕跡，cursor 回到 624 哨兵位。
func (r *MT19937) Seed(seed uint32) {
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
//
// 每 624 次取樣觸發一次 twist；輸出前對狀態字做 tempering：
//
//	y ^= y >> 11
//	y ^= (y << 7)  & 0x9d2c5680
//	y ^= (y << 15) & 0xefc60000
//	y ^= y >> 18
func (r *MT19937) Uint32() uint32 {
	if r.cursor >= mtN {
		r.twist()
	}
	y := r.words[r.cursor]
	r.cursor++

	y ^= y >> 11
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= y >> 18
	return y
}

// Int31 回傳非負 int32 亂數（31 bits）。
// 恰好消耗一次 draw：與 Uint32 交錯呼叫不會改變底層序列。
func (r *MT19937) Int31() int32 {
	return int32(r.Uint32() &^ (1 << 31))
}

// Uint64 回傳非負整數uint64亂數（兩次 draw 拼裝，高位在前）。
func (r *MT19937) Uint64() uint64 {
	return (uint64(r.Uint32()) << 32) | uint64(r.Uint32())
}

// Float64 回傳 [0,1) 的浮點亂數（53-bit 精度，消耗兩次 draw）。
func (r *MT19937) Float64() float64 {
	a := r.Uint32() >> 5
	b := r.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) / 9007199254740992.0
}

// UintN 產出[0,n) 的uint整數，若 max == 0 回傳 0
func (r *MT19937) UintN(max uint) uint {
	if max == 0 {
		return 0
	}
	return uint(r.randBelowUint64(uint64(max)))
}

// IntN 回傳 [0,n) 的亂數；若 n <= 0 回傳 -1。
func (r *MT19937) IntN(max int) int {
	if max <= 0 {
		return -1
	}
	if max <= math.MaxUint32 {
		return int(r.randBelowUint32(uint32(max)))
	}
	return int(r.randBelowUint64(uint64(max)))
}

// Snapshot 取得當下內部狀態。
//
// 版面（固定 2500 bytes，big-endian）：
//
//	words[0..623] (624 × 4 bytes) || cursor (4 bytes)
//
// 與 MTRef 的快照版面相同：同一份狀態可在引擎與對照實作之間搬移，
// 這是差分驗證「中途換腦」檢查的基礎。
func (r *MT19937) Snapshot() ([]byte, error) {
	b := make([]byte, 0, mtSnapLen)
	for i := 0; i < mtN; i++ {
		b = binary.BigEndian.AppendUint32(b, r.words[i])
	}
	b = binary.BigEndian.AppendUint32(b, uint32(r.cursor))
	return b, nil
}

// Restore 恢復內部狀態；長度或 cursor 不合法時回報 Warn 並保持原狀態不變。
func (r *MT19937) Restore(data []byte) error {
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

// twist 對整個狀態緩衝做一輪更新，並把 cursor 歸零。
//
// 邏輯上是 i = 0..623 由左而右的同一條遞推：
//
//	y        = (words[i] & 0x80000000) | (words[(i+1)%624] & 0x7fffffff)
//	words[i] = words[(i+397)%624] ^ (y >> 1) ^ mag[y&1]
//
// 實作拆成三段只是把 %624 攤平（i+1 與 i+397 何時迴繞是可靜態決定的），
// 順序與語意完全不變；等價性由與 MTRef（模運算原式）的差分測試釘住。
func (r *MT19937) twist() {
	var y uint32
	i := 0
	for ; i < mtN-mtM; i++ {
		y = (r.words[i] & mtUpperMask) | (r.words[i+1] & mtLowerMask)
		r.words[i] = r.words[i+mtM] ^ (y >> 1) ^ mtMag[y&1]
	}
	for ; i < mtN-1; i++ {
		y = (r.words[i] & mtUpperMask) | (r.words[i+1] & mtLowerMask)
		r.words[i] = r.words[i+mtM-mtN] ^ (y >> 1) ^ mtMag[y&1]
	}
	y = (r.words[mtN-1] & mtUpperMask) | (r.words[0] & mtLowerMask)
	r.words[mtN-1] = r.words[mtM-1] ^ (y >> 1) ^ mtMag[y&1]
	r.cursor = 0
}

func (r *MT19937) randBelowUint32(bound uint32) uint32 {
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

func (r *MT19937) randBelowUint64(bound uint64) uint64 {
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

//---------------------------------------
// 快照共用
//---------------------------------------

const mtSnapLen = 4*mtN + 4

// decodeMTSnapshot 解析 MT19937/MTRef 共用的快照版面。
func decodeMTSnapshot(data []byte) (words [mtN]uint32, cursor int, err error) {
	if len(data) != mtSnapLen {
		return words, 0, errs.Warnf("mt snapshot length must be %d, got %d", mtSnapLen, len(data))
	}
	for i := 0; i < mtN; i++ {
		words[i] = binary.BigEndian.Uint32(data[4*i:])
	}
	c := binary.BigEndian.Uint32(data[4*mtN:])
	if c > mtN {
		return words, 0, errs.Warnf("mt snapshot cursor out of range: %d", c)
	}
	return words, int(c), nil
}

// MT19937Factory 實作 PRNGFactory。
type MT19937Factory struct{}

// New 滿足合約；seed 取低 32 位播種。
func (f *MT19937Factory) New(seed int64) PRNG {
	return newMT19937WithSeed(seed)
}
