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

package sampler

import (
	"crypto/rand"
	"math"
	"math/big"
	"testing"

	"github.com/zintix-labs/mtlab/sdk/core"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// assertPanic 驗證函數是否如預期觸發 panic
func assertPanic(t *testing.T, f func(), msg string) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for %s, but got none", msg)
		}
	}()
	f()
}

// checkDistribution 驗證抽樣結果的分佈是否符合預期權重
func checkDistribution(t *testing.T, name string, weights []int, samples []int, tolerance float64) {
	t.Helper()
	totalW := 0
	for _, w := range weights {
		totalW += w
	}
	if totalW == 0 {
		return
	}

	counts := make(map[int]int)
	for _, idx := range samples {
		counts[idx]++
	}

	totalSamples := len(samples)
	for i, w := range weights {
		if w == 0 {
			if counts[i] > 0 {
				t.Errorf("[%s] expected 0 samples for index %d (weight 0), got %d", name, i, counts[i])
			}
			continue
		}
		expectedProb := float64(w) / float64(totalW)
		actualProb := float64(counts[i]) / float64(totalSamples)
		diff := math.Abs(expectedProb - actualProb)

		if diff > tolerance {
			t.Errorf("[%s] index %d: expected prob %.3f, got %.3f (diff %.3f > tol %.3f)",
				name, i, expectedProb, actualProb, diff, tolerance)
		}
	}
}

// -----------------------------------------------------------------------------
// Tests for WeightedShuffle
// -----------------------------------------------------------------------------

// TestWeightedShuffle_Basic 驗證基本的加權洗牌機率分佈
// 檢查項目: 高權重項目排在前面的機率較高
func TestWeightedShuffle_Basic(t *testing.T) {
	c := core.New(core.Default().New(1))
	weights := []int{10, 90} // Index 1 (權重90) 應該有較高機率排在前面
	trials := 10000
	firstIdxCount := 0

	for i := 0; i < trials; i++ {
		res := WeightedShuffle(c, weights)
		if len(res) != 2 {
			t.Fatalf("expected length 2, got %d", len(res))
		}
		if res[0] == 1 {
			firstIdxCount++
		}
	}

	rate := float64(firstIdxCount) / float64(trials)
	// 期望機率約為 0.90
	if rate < 0.85 || rate > 0.95 {
		t.Errorf("WeightedShuffle prob mismatch: expected ~0.90, got %.4f", rate)
	}
}

// TestWeightedShuffleZerosAtEnd 驗證權重為 0 的項目是否被排在最後
// 檢查項目: 權重 0 的項目應出現在非 0 權重項目之後
func TestWeightedShuffleZerosAtEnd(t *testing.T) {
	c := core.New(core.Default().New(1))
	weights := []int{0, 3, 0, 2}

	got := WeightedShuffle(c, weights)
	if len(got) != len(weights) {
		t.Fatalf("length mismatch, got %d want %d", len(got), len(weights))
	}

	seen := map[int]bool{}
	for _, idx := range got {
		if idx < 0 || idx >= len(weights) {
			t.Fatalf("index out of range: %d", idx)
		}
		if seen[idx] {
			t.Fatalf("duplicate index: %d", idx)
		}
		seen[idx] = true
	}

	// 前 2 個元素應該是正權重項目 (index 1 和 3)
	prefixLen := 2
	prefix := got[:prefixLen]
	for _, idx := range prefix {
		if idx == 0 || idx == 2 {
			t.Fatalf("zero-weight index appeared before positives: %v", got)
		}
	}
	// 後 2 個元素應該是零權重項目 (index 0 和 2)
	suffix := got[prefixLen:]
	for _, idx := range suffix {
		if idx != 0 && idx != 2 {
			t.Fatalf("positive index appeared after zeros: %v", got)
		}
	}
}

// TestWeightedShuffle_NegativePanic 驗證負權重是否觸發 panic
// 檢查項目: 輸入負權重應導致 panic
func TestWeightedShuffle_NegativePanic(t *testing.T) {
	rd, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	c := core.New(core.Default().New(rd.Int64()))
	assertPanic(t, func() {
		WeightedShuffle(c, []int{10, -1})
	}, "Negative Weight")
}

// -----------------------------------------------------------------------------
// Tests for AliasTable
// -----------------------------------------------------------------------------

// TestAliasTable_Distribution 驗證 Alias Table 的抽樣分佈
// 檢查項目: 大量抽樣結果應符合權重比例
func TestAliasTable_Distribution(t *testing.T) {
	seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	c := core.New(core.Default().New(seed.Int64()))
	weights := []int{10, 20, 70}
	at := BuildAliasTable(weights)

	trials := 100000
	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		samples[i] = at.Pick(c)
	}
	checkDistribution(t, "AliasTable", weights, samples, 0.01)
}

// TestAliasTable_Panics 驗證 Alias Table 的各種錯誤情境
// 檢查項目: 全零權重、負權重、總權重溢位應觸發 panic
func TestAliasTable_Panics(t *testing.T) {
	// All zero
	assertPanic(t, func() {
		BuildAliasTable([]int{0, 0, 0})
	}, "All zero weights")

	// Negative
	assertPanic(t, func() {
		BuildAliasTable([]int{10, -1})
	}, "Negative weight")

	// Total overflow check
	assertPanic(t, func() {
		BuildAliasTable([]int{math.MaxInt, 1})
	}, "Total overflow")
}

// -----------------------------------------------------------------------------
// Tests for Look-Up Table (LUT)
// -----------------------------------------------------------------------------

// TestLUT_Distribution 驗證 LUT 的抽樣分佈
// 檢查項目: 大量抽樣結果應符合權重比例
func TestLUT_Distribution(t *testing.T) {
	seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	c := core.New(core.Default().New(seed.Int64()))
	weights := []int{1, 2, 7} // 適合 LUT 的小權重
	lut := BuildLUT(weights)

	trials := 10000
	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		samples[i] = lut.Pick(c)
	}
	checkDistribution(t, "LUT", weights, samples, 0.015)
}

// TestLUT_Panics 驗證 LUT 的各種錯誤情境
// 檢查項目: 超過容量上限、負權重、全零權重應觸發 panic
func TestLUT_Panics(t *testing.T) {
	// Capacity Limit
	assertPanic(t, func() {
		// 模擬超過 MaxLUTCapacity
		weights := []int{int(maxLUTCap) + 1}
		BuildLUT(weights)
	}, "Exceed MaxLUTCapacity")

	// Negative
	assertPanic(t, func() {
		BuildLUT([]int{10, -10})
	}, "Negative weight")

	// All zero
	assertPanic(t, func() {
		BuildLUT([]int{0, 0})
	}, "All zero weights")
}

// -----------------------------------------------------------------------------
// Tests for Schedule
// -----------------------------------------------------------------------------

// TestScheduleExactCycleCounts 驗證加權循環的次數精確性
// 檢查項目: 每個完整循環內各 op 的出現次數精確等於權重（不是期望值）
func TestScheduleExactCycleCounts(t *testing.T) {
	c := core.New(core.Default().New(3))
	weights := []int{6, 2, 0, 1}
	s := BuildSchedule(weights)

	if s.CycleLen() != 9 {
		t.Fatalf("cycle length = %d, want 9", s.CycleLen())
	}

	// 連跑 5 個完整循環，每個循環逐一驗證次數。
	for cycle := 0; cycle < 5; cycle++ {
		counts := make([]int, len(weights))
		for i := 0; i < s.CycleLen(); i++ {
			op := s.Pick(c)
			if op < 0 || op >= len(weights) {
				t.Fatalf("op out of range: %d", op)
			}
			counts[op]++
		}
		for i, w := range weights {
			if counts[i] != w {
				t.Fatalf("cycle %d: op %d count = %d, want exactly %d", cycle, i, counts[i], w)
			}
		}
	}
}

// TestScheduleDeterministicReplay 驗證固定 seed 下的可重放性
// 檢查項目: 相同 seed 的兩條 Schedule 應產生一模一樣的 op 序列
func TestScheduleDeterministicReplay(t *testing.T) {
	weights := []int{3, 1, 2}
	s1 := BuildSchedule(weights)
	s2 := BuildSchedule(weights)
	c1 := core.New(core.Default().New(42))
	c2 := core.New(core.Default().New(42))

	for i := 0; i < 60; i++ {
		if a, b := s1.Pick(c1), s2.Pick(c2); a != b {
			t.Fatalf("pick %d diverged: %d vs %d", i, a, b)
		}
	}

	// Reset 後配上同 seed 的選擇器，序列必須從頭重播。
	s1.Reset()
	first := make([]int, 12)
	c3 := core.New(core.Default().New(7))
	for i := range first {
		first[i] = s1.Pick(c3)
	}
	s1.Reset()
	c4 := core.New(core.Default().New(7))
	for i := range first {
		if got := s1.Pick(c4); got != first[i] {
			t.Fatalf("replay after reset diverged at %d: %d vs %d", i, got, first[i])
		}
	}
}

// TestScheduleDistribution 驗證長期分佈
// 檢查項目: 大量抽樣結果應符合權重比例（循環抽樣天生精確，容差收到很緊）
func TestScheduleDistribution(t *testing.T) {
	seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	c := core.New(core.Default().New(seed.Int64()))
	weights := []int{6, 2, 1, 1}
	s := BuildSchedule(weights)

	trials := 10000
	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		samples[i] = s.Pick(c)
	}
	checkDistribution(t, "Schedule", weights, samples, 0.001)
}

// TestSchedulePanics 驗證建表的拒收行為
// 檢查項目: 負權重、全零權重、展開長度超過容量上限應觸發 panic
func TestSchedulePanics(t *testing.T) {
	assertPanic(t, func() {
		BuildSchedule([]int{1, -1})
	}, "Negative weight")

	assertPanic(t, func() {
		BuildSchedule([]int{0, 0})
	}, "All zero weights")

	assertPanic(t, func() {
		BuildSchedule([]int{int(maxLUTCap) + 1})
	}, "Exceed capacity")
}
