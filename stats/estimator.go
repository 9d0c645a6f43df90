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

package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// 卡方檢定的顯著水準
const qualityAlpha float64 = 0.01

// ============================================================
// ** 結構宣告 **
// ============================================================

// 抽樣品質評估
type QualityReport struct {
	BitStat    BitStat
	BucketStat BucketStat
	RangeStat  RangeStat
}

// Monobit 敘事
type BitStat struct {
	Draws    int64     // 參與統計的取值數
	Hat      []float64 // 各位元的set比例
	HatCI    []CI      // 各位元的CP信賴區間
	Worst    PointStat // 偏差最大的位元
	WorstBit int
	Covered  int  // CI涵蓋0.5的位元數
	Passed   bool // 所有位元的CI均涵蓋0.5
}

// 分桶敘事: 取值落入等寬值域分桶是否均勻
type BucketStat struct {
	BucketLable []string    // 分桶標籤
	BucketHat   []PointStat // 分桶占比點估計
	ChiSquare   float64
	DF          int
	PValue      float64
	Passed      bool // p-value >= 顯著水準
}

// 值域敘事
type RangeStat struct {
	MinDraw  uint32
	MaxDraw  uint32
	Coverage float64 // (max-min) / (2^32-1)
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64
	CI  CI
}

// ============================================================
// ** 對外 : 抽樣品質評估 **
// ============================================================

// EstimatorDrawQuality 抽樣品質評估
//
// 1. Monobit 敘事 : 描述每個位元位置的set比例是否貼近0.5
//
// 2. Bucket 敘事 : 描述取值落入等寬值域分桶的均勻程度(卡方檢定)
//
// 3. Range 敘事 : 描述觀察到的極值與值域涵蓋率
func EstimatorDrawQuality(rep *VerifyReport) *QualityReport {
	// 0. 防禦：空輸入
	out := &QualityReport{}
	if rep == nil || rep.Bits == nil || rep.Dist == nil {
		return out
	}
	n := rep.Bits.Draws

	// ------------------------------------------------------------
	// 1) Monobit 敘事：每個位元位置的set比例 + CP 95% CI
	// ------------------------------------------------------------
	bits := len(rep.Bits.BitOnes)
	hat := make([]float64, bits)
	hatCI := make([]CI, bits)
	covered := 0
	worstBit := 0
	worstBias := -1.0
	for i, ones := range rep.Bits.BitOnes {
		h, ci := proportionCICP(int(ones), int(n), 0.95)
		hat[i] = h
		hatCI[i] = ci
		if ci.Lo <= 0.5 && 0.5 <= ci.Hi {
			covered++
		}
		if bias := math.Abs(h - 0.5); bias > worstBias {
			worstBias = bias
			worstBit = i
		}
	}

	out.BitStat = BitStat{
		Draws:    n,
		Hat:      hat,
		HatCI:    hatCI,
		WorstBit: worstBit,
		Covered:  covered,
		Passed:   bits > 0 && covered == bits,
	}
	if bits > 0 {
		out.BitStat.Worst = PointStat{Hat: hat[worstBit], CI: hatCI[worstBit]}
	}

	// ------------------------------------------------------------
	// 2) Bucket 敘事：分桶占比 + 均勻假設卡方檢定
	// ------------------------------------------------------------
	labels := rep.Dist.ValueBucket
	counts := rep.Dist.ValueCollect
	L := len(labels)
	bucketHat := make([]PointStat, L)
	for bi := 0; bi < L; bi++ {
		cnt := int64(0)
		if bi < len(counts) {
			cnt = counts[bi]
		}
		h, ci := proportionCICP(int(cnt), int(n), 0.95)
		bucketHat[bi] = PointStat{Hat: h, CI: ci}
	}
	x2, df, pv := chiSquareUniform(counts)

	out.BucketStat = BucketStat{
		BucketLable: labels,
		BucketHat:   bucketHat,
		ChiSquare:   x2,
		DF:          df,
		PValue:      pv,
		Passed:      n > 0 && df > 0 && pv >= qualityAlpha,
	}

	// ------------------------------------------------------------
	// 3) Range 敘事：極值與涵蓋率
	// ------------------------------------------------------------
	coverage := 0.0
	if n > 0 && rep.Dist.MaxDraw >= rep.Dist.MinDraw {
		coverage = float64(rep.Dist.MaxDraw-rep.Dist.MinDraw) / float64(math.MaxUint32)
	}
	out.RangeStat = RangeStat{
		MinDraw:  rep.Dist.MinDraw,
		MaxDraw:  rep.Dist.MaxDraw,
		Coverage: coverage,
	}

	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

// 均勻假設下的適合度卡方檢定：每桶期望數 = n/k
// 回傳 (x2, df, pValue)
func chiSquareUniform(counts []int64) (float64, int, float64) {
	k := len(counts)
	if k < 2 {
		return 0, 0, 1
	}
	n := int64(0)
	for _, c := range counts {
		n += c
	}
	df := k - 1
	if n == 0 {
		return 0, df, 1
	}
	expect := float64(n) / float64(k)
	x2 := 0.0
	for _, c := range counts {
		d := float64(c) - expect
		x2 += d * d / expect
	}
	chi := distuv.ChiSquared{K: float64(df)}
	p := 1.0 - chi.CDF(x2)
	return x2, df, p
}

// 想估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	// 以 CP 思想反推 p 範圍
	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}

// quantilePoint returns the empirical quantile point estimate at q.
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	// 最近秩法
	idx := int(q * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return cp[idx]
}

// ============================================================
// ** 輸出函數 **
// ============================================================

func (est *QualityReport) Out() {
	// 1) Monobit
	fmt.Println("=== Monobit (bit set ratio) ===")
	for i, h := range est.BitStat.Hat {
		fmt.Printf("bit %02d : %s\n", i, fmtHatCIpct01(h, est.BitStat.HatCI[i]))
	}
	bitKeys := []string{"Draws", "Worst Bit", "Worst Ratio", "CI Covered", "Result"}
	bitMsg := map[string]string{
		"Draws":       fmt.Sprintf("%d", est.BitStat.Draws),
		"Worst Bit":   fmt.Sprintf("#%d", est.BitStat.WorstBit),
		"Worst Ratio": fmtHatCIpct01(est.BitStat.Worst.Hat, est.BitStat.Worst.CI),
		"CI Covered":  fmt.Sprintf("%d / %d", est.BitStat.Covered, len(est.BitStat.Hat)),
		"Result":      passStr(est.BitStat.Passed),
	}
	printTable("Monobit Summary", bitKeys, bitMsg)

	// 2) Value buckets
	fmt.Println("\n=== Value Buckets (uniformity) ===")
	for i, label := range est.BucketStat.BucketLable {
		ps := est.BucketStat.BucketHat[i]
		fmt.Printf("%-26s : %s\n", label, fmtHatCIpct01(ps.Hat, ps.CI))
	}
	bucketKeys := []string{"Chi-Square", "DF", "P-Value", "Result"}
	bucketMsg := map[string]string{
		"Chi-Square": fmt.Sprintf("%.4f", est.BucketStat.ChiSquare),
		"DF":         fmt.Sprintf("%d", est.BucketStat.DF),
		"P-Value":    fmt.Sprintf("%.6f", est.BucketStat.PValue),
		"Result":     passStr(est.BucketStat.Passed),
	}
	printTable("Chi-Square Summary", bucketKeys, bucketMsg)

	// 3) Range
	fmt.Println("\n=== Value Range ===")
	rangeKeys := []string{"Min Draw", "Max Draw", "Coverage"}
	rangeMsg := map[string]string{
		"Min Draw": fmt.Sprintf("0x%08x", est.RangeStat.MinDraw),
		"Max Draw": fmt.Sprintf("0x%08x", est.RangeStat.MaxDraw),
		"Coverage": fmtPct01(est.RangeStat.Coverage),
	}
	printTable("Value Range", rangeKeys, rangeMsg)
}

func printTable(title string, keys []string, msg map[string]string) {
	fmt.Println(title)
	maxKeyLen := 0
	for _, k := range keys {
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}
	for _, k := range keys {
		fmt.Printf("  %-*s : %s\n", maxKeyLen, k, msg[k])
	}
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct01(hat float64, ci CI) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(hat), fmtPct01(ci.Lo), fmtPct01(ci.Hi))
}

func passStr(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}
