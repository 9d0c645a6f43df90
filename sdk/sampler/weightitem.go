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

// Package sampler 提供一系列高效能的加權抽樣演算法與工具。
//
// 本檔案 (weightitem.go) 提供加權排列：WeightedShuffle 與建在它之上的 Schedule。
//
// AliasTable / LUT 是 iid 抽樣：每一次 Pick 獨立，次數只在期望上符合權重。
// Schedule 走另一條路：把權重展開成固定長度的循環，循環內次數「精確」等於權重，
// 只有順序是隨機的。測速器的混合負載兩種都收（mix_picker: alias / lut / shuffle）。
package sampler

import (
	"cmp"
	"math"
	"slices"

	"github.com/zintix-labs/mtlab/sdk/core"
)

// weightItem 封裝原始索引與計算後的隨機分數，洗牌排序用。
type weightItem struct {
	idx   int
	score float64
}

// WeightedShuffle 加權不放回全排列。
//
// 演算法：Efraimidis-Spirakis（2006, "Weighted random sampling with a reservoir"）。
// 每個元素 i 取分數 Score_i = ExpFloat64 / w_i，按分數由小到大排序；
// 權重越大分數越小，越容易排在前面。
//
// 特殊處理：
//   - 權重 < 0：panic（設定錯誤，不該進到這裡）。
//   - 權重 == 0：分數 +Inf，保證排在最後面。
//
// 複雜度 O(N log N)，空間 O(N)。
func WeightedShuffle(c *core.Core, weights []int) []int {
	n := len(weights)
	if n == 0 {
		return []int{}
	}

	items := make([]weightItem, n)
	for i, w := range weights {
		if w < 0 {
			panic("WeightedShuffle: negative weight")
		}
		if w == 0 {
			items[i] = weightItem{idx: i, score: math.Inf(1)}
			continue
		}
		items[i] = weightItem{idx: i, score: c.ExpFloat64() / float64(w)}
	}

	slices.SortFunc(items, func(a, b weightItem) int {
		return cmp.Compare(a.score, b.score)
	})

	result := make([]int, n)
	for i, item := range items {
		result[i] = item.idx
	}
	return result
}

// Schedule 是加權循環抽樣表。
//
// 把 weights 展開成一個循環（op i 在循環內出現 weights[i] 次），
// 循環內的播放順序由 WeightedShuffle 決定，循環耗盡時重新洗一次。
// 每個完整循環內各 op 的次數精確等於權重，適合要求負載比例固定的量測批。
type Schedule struct {
	ops    []int // 展開後的 op 多重集
	entryW []int // 每個 entry 的洗牌權重（= 所屬 op 的原始權重）
	order  []int // 本循環的播放順序
	pos    int
}

// BuildSchedule 依權重展開循環。權重總和即循環長度。
//
// panic 條件與 BuildLUT 對齊：負權重、全零、展開長度超過容量上限。
func BuildSchedule(weights []int) *Schedule {
	total := 0
	for _, w := range weights {
		if w < 0 {
			panic("BuildSchedule: negative weight")
		}
		total += w
	}
	if total == 0 {
		panic("BuildSchedule: all weights are zero")
	}
	if total > int(maxLUTCap) {
		panic("BuildSchedule: total weight exceeds capacity")
	}

	s := &Schedule{
		ops:    make([]int, 0, total),
		entryW: make([]int, 0, total),
	}
	for i, w := range weights {
		for j := 0; j < w; j++ {
			s.ops = append(s.ops, i)
			s.entryW = append(s.entryW, w)
		}
	}
	return s
}

// Reset 清掉循環進度。下一次 Pick 會重新洗牌；
// 搭配固定 seed 的選擇器可讓每一批重播一模一樣的 op 序列。
func (s *Schedule) Reset() {
	s.order = nil
	s.pos = 0
}

// Pick 回傳循環中的下一個 op；循環耗盡時用 c 重新洗一次順序。
func (s *Schedule) Pick(c *core.Core) int {
	if s.pos >= len(s.order) {
		s.order = WeightedShuffle(c, s.entryW)
		s.pos = 0
	}
	i := s.order[s.pos]
	s.pos++
	return s.ops[i]
}

// CycleLen 回傳一個完整循環的長度（= 權重總和）。
func (s *Schedule) CycleLen() int { return len(s.ops) }
