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

package stats_test

import (
	"math"
	"testing"

	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
	"github.com/zintix-labs/mtlab/stats"
)

// buildVerifyReport constructs a VerifyReport from raw u32 draws with a
// 16-way value bucket. Every draw counts as one comparison; mismatches
// marks how many of them disagreed.
func buildVerifyReport(draws []uint32, mismatches int64) *stats.VerifyReport {
	bucket := stats.Buckets.GetBucketByCount(16)
	collect := make([]int64, bucket.Count())
	ones := make([]int64, 32)
	fold := uint32(0)
	minDraw := uint32(math.MaxUint32)
	maxDraw := uint32(0)
	for _, v := range draws {
		collect[bucket.Index(v)]++
		for b := 0; b < 32; b++ {
			if v>>uint(b)&1 == 1 {
				ones[b]++
			}
		}
		fold ^= v
		if v < minDraw {
			minDraw = v
		}
		if v > maxDraw {
			maxDraw = v
		}
	}

	report := &stats.VerifyReport{
		Summary: &stats.SummaryReport{
			SuiteName:     "TestSuite",
			SuiteId:       spec.SID(0),
			Engine:        core.EngineMT19937,
			Reference:     core.EngineMTRef,
			SeedLo:        0,
			SeedHi:        0,
			Seeds:         1,
			DrawsPerSeed:  len(draws),
			DrawsCompared: int64(len(draws)),
			Mismatches:    mismatches,
			XorFold:       fold,
		},
		Bits: &stats.BitReport{
			Draws:   int64(len(draws)),
			BitOnes: ones,
		},
		Dist: &stats.DistReport{
			ValueBucket:  bucket.Labels(),
			ValueCollect: collect,
			MinDraw:      minDraw,
			MaxDraw:      maxDraw,
		},
		Capture: &stats.CaptureReport{},
	}
	report.Done()
	return report
}

func TestVerifyReportCoreMetrics(t *testing.T) {
	rep := buildVerifyReport([]uint32{0x00000000, 0xFFFFFFFF}, 0)

	if got := rep.MatchRate(); got != 1.0 {
		t.Fatalf("match rate got %.12f want 1.0", got)
	}
	if !rep.Summary.Passed {
		t.Fatalf("expected passed verify")
	}
	if rep.Summary.XorFold != 0xFFFFFFFF {
		t.Fatalf("xor fold got %08x want ffffffff", rep.Summary.XorFold)
	}
	if rep.Summary.XorFoldHex != "ffffffff" {
		t.Fatalf("xor fold hex got %q", rep.Summary.XorFoldHex)
	}

	// 0x00000000 and 0xFFFFFFFF set every bit exactly once
	for i, r := range rep.Bits.BitRatio {
		if r != 0.5 {
			t.Fatalf("bit %d ratio got %v want 0.5", i, r)
		}
	}
	if rep.Bits.MaxBitBias != 0 {
		t.Fatalf("max bit bias got %v want 0", rep.Bits.MaxBitBias)
	}

	// one draw in the lowest bucket, one in the highest
	if rep.Dist.ValueCollect[0] != 1 || rep.Dist.ValueCollect[15] != 1 {
		t.Fatalf("bucket collect got %v", rep.Dist.ValueCollect)
	}
	total := int64(0)
	for _, c := range rep.Dist.ValueCollect {
		total += c
	}
	if total != rep.Summary.DrawsCompared {
		t.Fatalf("bucket total %d != draws %d", total, rep.Summary.DrawsCompared)
	}

	rep.Done() // idempotent
	if rep.MatchRate() != 1.0 {
		t.Fatalf("match rate changed after second Done")
	}
}

func TestVerifyReportMismatch(t *testing.T) {
	rep := buildVerifyReport([]uint32{1, 2, 3, 4}, 1)

	if rep.Summary.Passed {
		t.Fatalf("expected failed verify")
	}
	want := 0.75
	if got := rep.MatchRate(); math.Abs(got-want) > 1e-12 {
		t.Fatalf("match rate got %.12f want %.12f", got, want)
	}
	ci := rep.Summary.MatchCI
	if ci.Lo > want || ci.Hi < want {
		t.Fatalf("match CI [%v,%v] does not cover %v", ci.Lo, ci.Hi, want)
	}
	if ci.Lo < 0 || ci.Hi > 1 {
		t.Fatalf("match CI [%v,%v] out of [0,1]", ci.Lo, ci.Hi)
	}
}

func TestDrawBucketIndex(t *testing.T) {
	b := stats.Buckets.GetBucketByCount(16)
	if b.Count() != 16 {
		t.Fatalf("count got %d want 16", b.Count())
	}
	if len(b.Labels()) != 16 {
		t.Fatalf("labels got %d want 16", len(b.Labels()))
	}

	cases := []struct {
		v    uint32
		want int
	}{
		{0x00000000, 0},
		{0x0FFFFFFF, 0},
		{0x10000000, 1},
		{0x7FFFFFFF, 7},
		{0x80000000, 8},
		{0xF0000000, 15},
		{0xFFFFFFFF, 15},
	}
	for _, c := range cases {
		if got := b.Index(c.v); got != c.want {
			t.Fatalf("Index(%08x) got %d want %d", c.v, got, c.want)
		}
	}

	if again := stats.Buckets.GetBucketByCount(16); again != b {
		t.Fatalf("bucket cache should return the same instance")
	}

	full := stats.Buckets.GetBucketByCount(256)
	for _, v := range []uint32{0, 0x12345678, 0xFFFFFFFF} {
		if got, want := full.Index(v), int(v>>24); got != want {
			t.Fatalf("256-way Index(%08x) got %d want %d", v, got, want)
		}
	}
}

func TestDrawBucketBadCountPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for non-divisor bucket count")
		}
	}()
	stats.Buckets.GetBucketByCount(3)
}

func TestEstimatorDrawQuality(t *testing.T) {
	// 128 complement pairs: every bit is set exactly half the time and
	// every top byte shows up exactly once.
	draws := make([]uint32, 0, 256)
	for j := uint32(0); j < 128; j++ {
		v := j << 24
		draws = append(draws, v, ^v)
	}
	rep := buildVerifyReport(draws, 0)
	q := stats.EstimatorDrawQuality(rep)

	if !q.BitStat.Passed {
		t.Fatalf("monobit expected pass, CI covered %d / %d", q.BitStat.Covered, len(q.BitStat.Hat))
	}
	for i, h := range q.BitStat.Hat {
		if h != 0.5 {
			t.Fatalf("bit %d hat got %v want 0.5", i, h)
		}
	}
	if q.BucketStat.ChiSquare != 0 {
		t.Fatalf("chi-square got %v want 0", q.BucketStat.ChiSquare)
	}
	if q.BucketStat.DF != 15 {
		t.Fatalf("df got %d want 15", q.BucketStat.DF)
	}
	if q.BucketStat.PValue < 0.999 {
		t.Fatalf("p-value got %v want ~1", q.BucketStat.PValue)
	}
	if !q.BucketStat.Passed {
		t.Fatalf("chi-square expected pass")
	}
	if q.RangeStat.MinDraw != 0 || q.RangeStat.MaxDraw != 0xFFFFFFFF {
		t.Fatalf("range got [%08x,%08x]", q.RangeStat.MinDraw, q.RangeStat.MaxDraw)
	}
	if q.RangeStat.Coverage != 1.0 {
		t.Fatalf("coverage got %v want 1", q.RangeStat.Coverage)
	}
}

func TestEstimatorDrawQualitySkewed(t *testing.T) {
	// every draw identical: monobit and uniformity must both fail
	draws := make([]uint32, 64)
	rep := buildVerifyReport(draws, 0)
	q := stats.EstimatorDrawQuality(rep)

	if q.BitStat.Passed {
		t.Fatalf("monobit expected fail for constant draws")
	}
	if q.BucketStat.Passed {
		t.Fatalf("chi-square expected fail for constant draws")
	}
	if q.BucketStat.PValue > 1e-9 {
		t.Fatalf("p-value got %v want ~0", q.BucketStat.PValue)
	}
}

func TestBenchReportDone(t *testing.T) {
	rep := &stats.BenchReport{
		SuiteName: "bench",
		SuiteId:   spec.SID(2),
		Engine:    core.EngineMT19937,
		Baseline:  core.EnginePCG32,
		Scales: []*stats.ScaleReport{
			{
				Scale:         1.0,
				DrawsPerBatch: 1000,
				Batches:       3,
				Rates:         []float64{1e6, 3e6, 2e6},
				BaselineMean:  1e6,
				XorFold:       0xA1B2C3D4,
			},
		},
	}
	rep.Done()

	sc := rep.Scales[0]
	if math.Abs(sc.Mean-2e6) > 1e-6 {
		t.Fatalf("mean got %v want 2e6", sc.Mean)
	}
	if math.Abs(sc.Std-1e6) > 1e-6 {
		t.Fatalf("std got %v want 1e6", sc.Std)
	}
	if sc.Best != 3e6 || sc.Worst != 1e6 {
		t.Fatalf("best/worst got %v/%v", sc.Best, sc.Worst)
	}
	if sc.Median.Hat != 2e6 {
		t.Fatalf("median got %v want 2e6", sc.Median.Hat)
	}
	if math.Abs(sc.Speedup-2.0) > 1e-12 {
		t.Fatalf("speedup got %v want 2.0", sc.Speedup)
	}
	if sc.XorFoldHex != "a1b2c3d4" {
		t.Fatalf("xor fold hex got %q", sc.XorFoldHex)
	}

	rep.Done() // idempotent
	if sc.Mean != 2e6 {
		t.Fatalf("mean changed after second Done")
	}
}
