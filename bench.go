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

package mtlab

import (
	"crypto/rand"
	"io"
	"math"
	"math/big"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/sdk/sampler"
	"github.com/zintix-labs/mtlab/spec"
	"github.com/zintix-labs/mtlab/stats"
)

const (
	// primeStride：prime pass 每抽這麼多筆看一次錶，避免熱迴圈裡頻繁讀時鐘。
	primeStride = 10_000
	// minBatchDraws：單批下限；批太小會量到 timer 粒度而不是引擎速度。
	minBatchDraws = 100_000
	// mixSelectorSeed：op 選擇器的固定 seed。
	// 受測批與基準批必須吃到一模一樣的 op 序列，比較才公平。
	mixSelectorSeed int64 = 1
)

// 混合工作負載的 op 種類；權重順序與 benchMix 欄位一致。
const (
	opU32 = iota // 原生 u32（1 draw）
	opI31        // 去符號位（1 draw）
	opU64        // 64 位拼裝（2 draws）
	opF64        // 53 位浮點（2 draws）
)

// opPicker 統一 sampler 的抽法：AliasTable（O(1) 兩次取樣）、LUT（權重展開查表）
// 與 Schedule（加權循環，循環內次數精確等於權重）。
type opPicker interface {
	Pick(c *core.Core) int
}

// benchMix 是 bench 套件 fixed 區塊的參數：混合工作負載的 op 權重與抽法。
//
// 權重全為 0（或 fixed 缺省）時走純 u32 緊迴圈；
// 任一權重 > 0 時，批次改為依權重混抽 u32/i31/u64/f64。
type benchMix struct {
	U32    int    `yaml:"mix_u32"`
	I31    int    `yaml:"mix_i31"`
	U64    int    `yaml:"mix_u64"`
	F64    int    `yaml:"mix_f64"`
	Picker string `yaml:"mix_picker"` // alias（預設）/ lut / shuffle
}

// Bencher 用於吞吐量測：先以 prime pass 估引擎速率，再以其倍數決定批量跑計時批次。
//
// 計量單位一律是「底層 u32 draw」：u32/i31 每筆 1 draw，u64/f64 每筆 2 draws。
// 速率（draws/sec）因此在不同寬度與引擎之間可直接比較。
//
// XorFold 是整批輸出的 XOR 摺疊：批量取決於當機估速，摺疊值不跨機器重現，
// 但在單次執行內是「引擎真的抽了這些數」的輕量存證。
type Bencher struct {
	SuiteName string             // 套件名稱
	SuiteId   spec.SID           // 套件編號
	ss        *spec.SuiteSetting // 批次數、規模倍數、基準引擎
	engF      core.PRNGFactory   // 受測引擎工廠
	baseF     core.PRNGFactory   // 基準引擎工廠（未設定基準時為 nil）
	selF      core.PRNGFactory   // op 選擇器工廠（固定 PCG64，與受測引擎無關）
	mix       *benchMix          // 混合工作負載參數（nil = 純 u32）
	picker    opPicker           // 依權重抽 op 的抽樣表（nil = 純 u32）
	initSeed  int64              // 引擎出生 seed（釘住 seed 時批次輸出可重放）
}

func newBencher(ss *spec.SuiteSetting, reg *core.EngineRegistry) (*Bencher, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return newBencherWithSeed(ss, reg, seed.Int64())
}

func newBencherWithSeed(ss *spec.SuiteSetting, reg *core.EngineRegistry, seed int64) (*Bencher, error) {
	if !ss.Bench.Enabled() {
		return nil, errs.Warnf("suite %s: bench is not enabled (bench_setting.prime_ms must > 0)", ss.SuiteName)
	}
	engF, ok := reg.Get(ss.Engine)
	if !ok {
		return nil, errs.Fatalf("engine is not exist: %s", ss.Engine)
	}
	var baseF core.PRNGFactory
	if ss.Bench.Baseline != "" {
		bf, ok := reg.Get(ss.Bench.Baseline)
		if !ok {
			return nil, errs.Fatalf("baseline engine is not exist: %s", ss.Bench.Baseline)
		}
		baseF = bf
	}

	b := &Bencher{
		SuiteName: ss.SuiteName,
		SuiteId:   ss.SuiteID,
		ss:        ss,
		engF:      engF,
		baseF:     baseF,
		selF:      &core.PCG64Factory{},
		mix:       nil,
		picker:    nil,
		initSeed:  seed,
	}

	if len(ss.Fixed) != 0 {
		var m benchMix
		if err := spec.DecodeFixed(ss, &m); err != nil {
			return nil, errs.Wrap(err, "decode bench fixed params failed")
		}
		if err := b.applyMix(&m); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// applyMix 校驗權重並建好抽樣表；全零權重視為未啟用混合。
func (b *Bencher) applyMix(m *benchMix) error {
	weights := []int{m.U32, m.I31, m.U64, m.F64}
	total := 0
	for _, w := range weights {
		if w < 0 {
			return errs.Warnf("bench mix weight must >= 0, got %d", w)
		}
		total += w
	}
	if total == 0 {
		return nil
	}

	switch m.Picker {
	case "", "alias":
		b.picker = sampler.BuildAliasTable(weights)
	case "lut":
		b.picker = sampler.BuildLUT(weights)
	case "shuffle":
		// 加權循環：每個循環內各 op 次數精確等於權重，只有順序隨機。
		b.picker = sampler.BuildSchedule(weights)
	default:
		return errs.Warnf("unknown mix_picker: %q (want alias, lut or shuffle)", m.Picker)
	}
	b.mix = m
	return nil
}

// Bench 執行完整量測並回傳統計結果與用時。
//
// 流程：
//  1. prime pass：以純 u32 連抽 prime_ms 毫秒估出 calls/sec（每 primeStride 筆看一次錶）。
//  2. 每個 scale：批量 = 估速 x scale（下限 minBatchDraws），連跑 batches 個計時批。
//  3. 有設基準引擎時，同批量再跑一輪基準，報表回填 BaselineMean 與 Speedup。
//
// 回傳的用時涵蓋計時批次（prime pass 的時長就是 prime_ms，報表另列）。
func (b *Bencher) Bench(showpb bool) (*stats.BenchReport, time.Duration, error) {
	bs := b.ss.Bench

	// 1. prime pass
	est := primeRate(b.engF.New(b.initSeed), bs.PrimeMS)
	if est < minBatchDraws {
		est = minBatchDraws
	}

	totalBatches := len(bs.Scales) * bs.Batches
	if b.baseF != nil {
		totalBatches *= 2
	}

	report := &stats.BenchReport{
		SuiteName: b.SuiteName,
		SuiteId:   b.SuiteId,
		Engine:    b.ss.Engine,
		Baseline:  bs.Baseline,
		PrimeMS:   bs.PrimeMS,
		Scales:    make([]*stats.ScaleReport, 0, len(bs.Scales)),
	}

	bar := pb.StartNew(totalBatches)
	if !showpb {
		bar.SetWriter(io.Discard)
	}

	for _, scale := range bs.Scales {
		drawsPerBatch := int(est * scale)
		if drawsPerBatch < minBatchDraws {
			drawsPerBatch = minBatchDraws
		}
		sc := &stats.ScaleReport{
			Scale:         scale,
			DrawsPerBatch: drawsPerBatch,
			Batches:       bs.Batches,
			Rates:         make([]float64, 0, bs.Batches),
		}

		// 2. 受測引擎計時批
		eng := b.engF.New(b.initSeed)
		for i := 0; i < bs.Batches; i++ {
			rate, fold := b.runBatch(eng, drawsPerBatch)
			sc.Rates = append(sc.Rates, rate)
			sc.XorFold ^= fold
			bar.Increment()
		}

		// 3. 基準引擎計時批（同批量同 op 序列）
		if b.baseF != nil {
			base := b.baseF.New(b.initSeed)
			var sum float64
			for i := 0; i < bs.Batches; i++ {
				rate, _ := b.runBatch(base, drawsPerBatch)
				sum += rate
				bar.Increment()
			}
			sc.BaselineMean = sum / float64(bs.Batches)
		}

		report.Scales = append(report.Scales, sc)
	}
	used := time.Since(bar.StartTime())
	bar.Finish()

	report.Done()
	return report, used, nil
}

// runBatch 跑一個計時批：有混合參數走混抽，否則走純 u32 緊迴圈。
func (b *Bencher) runBatch(rng core.RAND, draws int) (float64, uint32) {
	if b.picker != nil {
		return b.runBatchMix(rng, draws)
	}
	return runBatchU32(rng, draws)
}

// runBatchU32 純 u32 緊迴圈；headline 數字一律來自這裡。
func runBatchU32(rng core.RAND, draws int) (float64, uint32) {
	var fold uint32
	start := time.Now()
	for i := 0; i < draws; i++ {
		fold ^= rng.Uint32()
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	return float64(draws) / elapsed.Seconds(), fold
}

// runBatchMix 依權重混抽，直到吃滿 draws 個底層 u32 draw。
//
// op 序列由獨立的 PCG64 選擇器驅動（每批重播同一條），與受測引擎互不干擾；
// 量到的是「帶選擇器的消費端剖面」，與純 u32 批的數字不可直接互比。
func (b *Bencher) runBatchMix(rng core.RAND, draws int) (float64, uint32) {
	sel := core.New(b.selF.New(mixSelectorSeed))
	// 循環抽樣表（shuffle 模式）帶狀態；每批歸零，受測批與基準批才吃同一條序列。
	if sch, ok := b.picker.(interface{ Reset() }); ok {
		sch.Reset()
	}
	var fold uint32
	consumed := 0
	start := time.Now()
	for consumed < draws {
		switch b.picker.Pick(sel) {
		case opU32:
			fold ^= rng.Uint32()
			consumed++
		case opI31:
			fold ^= uint32(rng.Int31())
			consumed++
		case opU64:
			v := rng.Uint64()
			fold ^= uint32(v) ^ uint32(v>>32)
			consumed += 2
		default: // opF64
			bits := math.Float64bits(rng.Float64())
			fold ^= uint32(bits) ^ uint32(bits>>32)
			consumed += 2
		}
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	return float64(consumed) / elapsed.Seconds(), fold
}

// primeRate 以純 u32 連抽估算引擎速率（draws/sec）。
func primeRate(rng core.RAND, primeMS int) float64 {
	deadline := time.Now().Add(time.Duration(primeMS) * time.Millisecond)
	var n int64
	start := time.Now()
	for {
		for i := 0; i < primeStride; i++ {
			rng.Uint32()
		}
		n += primeStride
		if !time.Now().Before(deadline) {
			break
		}
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	return float64(n) / elapsed.Seconds()
}
