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

package recorder

import (
	"fmt"
	"math"

	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
	"github.com/zintix-labs/mtlab/stats"
)

// 值域分桶數量
const qualityBuckets int = 16

// 每筆u32取值的位元數
const drawBits int = 32

// DrawRecorder 比對紀錄員
//
// DrawRecorder 負責紀錄引擎與參考實作的逐筆比對結果，並透過Done輸出統計報表
type DrawRecorder struct {
	SuiteName    string
	SuiteId      spec.SID
	Engine       core.EngineKey
	Reference    core.EngineKey
	SeedLo       uint32
	SeedHi       uint32
	DrawsPerSeed int
	CheckI31     bool
	Basic        *BasicRecord
	Bits         *BitRecord
	Dist         *DistRecord
	Capture      *CaptureRecord
}

// BasicRecord 基本比對資料紀錄
type BasicRecord struct {
	Seeds      int
	U32Draws   int64
	I31Draws   int64
	Mismatches int64
	XorFold    uint32
}

// BitRecord 位元落點統計
//
// 紀錄時只累積set計數
type BitRecord struct {
	Ones []int64
}

// DistRecord 值域區間落點統計
type DistRecord struct {
	Bucket       *stats.DrawBucket
	ValueCollect []int64
	MinDraw      uint32
	MaxDraw      uint32
}

// CaptureRecord 不一致樣本收集
type CaptureRecord struct {
	Limit int
	Items []stats.Mismatch
}

func NewDrawRecorder(name string, id spec.SID, engine core.EngineKey, reference core.EngineKey, vs *spec.VerifySetting) (*DrawRecorder, error) {
	s := new(DrawRecorder)

	if name == "" {
		return s, errs.NewFatal("suite name is required")
	}

	if engine == "" || reference == "" {
		return s, errs.NewFatal(fmt.Sprintf("engine pair err %s vs %s", engine, reference))
	}

	if vs == nil || !vs.Enabled() {
		return s, errs.NewFatal("verify setting err: draws must be positive")
	}

	if vs.Capture < 0 {
		return s, errs.NewFatal(fmt.Sprintf("capture must not negative integer, got: %d", vs.Capture))
	}
	// 通過valid
	s.SuiteName = name
	s.SuiteId = id
	s.Engine = engine
	s.Reference = reference
	s.SeedLo = vs.SeedLo
	s.SeedHi = vs.SeedHi
	s.DrawsPerSeed = vs.Draws
	s.CheckI31 = vs.CheckI31
	s.Basic = new(BasicRecord)
	s.Bits = newBitRecord()
	s.Dist = newDistRecord()
	s.Capture = newCaptureRecord(vs.Capture)

	return s, nil
}

func MergeDrawRecorder(r []*DrawRecorder) (*DrawRecorder, error) {
	r0 := r[0]
	vs := &spec.VerifySetting{
		SeedLo:   r0.SeedLo,
		SeedHi:   r0.SeedHi,
		Draws:    r0.DrawsPerSeed,
		Capture:  r0.Capture.Limit,
		CheckI31: r0.CheckI31,
	}
	s, err := NewDrawRecorder(r0.SuiteName, r0.SuiteId, r0.Engine, r0.Reference, vs)
	if err != nil {
		return s, err
	}
	for _, v := range r {
		if v.SuiteName != r0.SuiteName {
			return s, errs.NewFatal("merge draw record err : different suite name")
		}
		if v.Engine != r0.Engine || v.Reference != r0.Reference {
			return s, errs.NewFatal("merge draw record err : different engine pair")
		}
		if v.SeedLo != r0.SeedLo || v.SeedHi != r0.SeedHi {
			return s, errs.NewFatal("merge draw record err : different seed range")
		}
		if v.DrawsPerSeed != r0.DrawsPerSeed {
			return s, errs.NewFatal("merge draw record err : different draws per seed")
		}
		if v.CheckI31 != r0.CheckI31 {
			return s, errs.NewFatal("merge draw record err : different i31 check")
		}
		if v.Capture.Limit != r0.Capture.Limit {
			return s, errs.NewFatal("merge draw record err : different capture limit")
		}
		s.Basic.Seeds += v.Basic.Seeds
		s.Basic.U32Draws += v.Basic.U32Draws
		s.Basic.I31Draws += v.Basic.I31Draws
		s.Basic.Mismatches += v.Basic.Mismatches
		s.Basic.XorFold ^= v.Basic.XorFold

		// 整合Bits
		for i := range len(v.Bits.Ones) {
			s.Bits.Ones[i] += v.Bits.Ones[i]
		}

		// 整合Dist
		for i := range len(v.Dist.ValueCollect) {
			s.Dist.ValueCollect[i] += v.Dist.ValueCollect[i]
		}
		if v.Dist.MinDraw < s.Dist.MinDraw {
			s.Dist.MinDraw = v.Dist.MinDraw
		}
		if v.Dist.MaxDraw > s.Dist.MaxDraw {
			s.Dist.MaxDraw = v.Dist.MaxDraw
		}

		// 整合Capture
		for _, m := range v.Capture.Items {
			if len(s.Capture.Items) >= s.Capture.Limit {
				break
			}
			s.Capture.Items = append(s.Capture.Items, m)
		}
	}
	return s, nil
}

// Record 以單筆 u32 比對結果更新統計
func (s *DrawRecorder) Record(seed uint32, idx int, got uint32, want uint32) {
	s.recordBasic(seed, idx, got, want) // Basic
	s.recordBits(got)                   // Bits
	s.recordDist(got)                   // Dist
}

// RecordI31 以單筆 i31 比對結果更新統計
//
// i31 取值只有31個有效位元，不參與位元與值域統計
func (s *DrawRecorder) RecordI31(seed uint32, idx int, got int32, want int32) {
	s.Basic.I31Draws++
	if got != want {
		s.Basic.Mismatches++
		s.capture(seed, idx, uint32(got), uint32(want), spec.WidthI31.String())
	}
}

// EndSeed 通知一個種子的所有比對已經完成
func (s *DrawRecorder) EndSeed() {
	s.Basic.Seeds++
}

func (s *DrawRecorder) Done() *stats.VerifyReport {
	report := &stats.VerifyReport{
		Summary: &stats.SummaryReport{
			SuiteName:     s.SuiteName,
			SuiteId:       s.SuiteId,
			Engine:        s.Engine,
			Reference:     s.Reference,
			SeedLo:        s.SeedLo,
			SeedHi:        s.SeedHi,
			Seeds:         s.Basic.Seeds,
			DrawsPerSeed:  s.DrawsPerSeed,
			DrawsCompared: s.Basic.U32Draws + s.Basic.I31Draws,
			I31Draws:      s.Basic.I31Draws,
			Mismatches:    s.Basic.Mismatches,
			MatchRate:     s.matchRate(),
			XorFold:       s.Basic.XorFold,
		},
		Bits: &stats.BitReport{
			Draws:   s.Basic.U32Draws,
			BitOnes: append([]int64(nil), s.Bits.Ones...),
		},
		Dist: &stats.DistReport{
			ValueBucket:  s.Dist.Bucket.Labels(),
			ValueCollect: append([]int64(nil), s.Dist.ValueCollect...),
			ValueDist:    nil,
			MinDraw:      s.Dist.MinDraw,
			MaxDraw:      s.Dist.MaxDraw,
		},
		Capture: &stats.CaptureReport{
			Limit: s.Capture.Limit,
			Items: append([]stats.Mismatch(nil), s.Capture.Items...),
		},
	}

	length := len(report.Dist.ValueBucket)

	valueF := make([]float64, length)
	uf := float64(report.Bits.Draws)
	if uf > 0 {
		for i := range length {
			valueF[i] = float64(report.Dist.ValueCollect[i]) / uf
		}
	}
	report.Dist.ValueDist = valueF

	// 沒有u32取值時極值欄位歸零
	if s.Basic.U32Draws == 0 {
		report.Dist.MinDraw = 0
		report.Dist.MaxDraw = 0
	}

	return report
}

func (s *DrawRecorder) matchRate() float64 {
	compared := s.Basic.U32Draws + s.Basic.I31Draws
	if compared == 0 {
		return 0
	}
	return 1.0 - (float64(s.Basic.Mismatches) / float64(compared))
}

func (s *DrawRecorder) recordBasic(seed uint32, idx int, got uint32, want uint32) {
	s.Basic.U32Draws++
	s.Basic.XorFold ^= got
	if got != want {
		s.Basic.Mismatches++
		s.capture(seed, idx, got, want, spec.WidthU32.String())
	}
}

func (s *DrawRecorder) recordBits(got uint32) {
	for i := 0; i < drawBits; i++ {
		if got>>uint(i)&1 == 1 {
			s.Bits.Ones[i]++
		}
	}
}

func (s *DrawRecorder) recordDist(got uint32) {
	d := s.Dist

	d.ValueCollect[d.Bucket.Index(got)]++
	if got < d.MinDraw {
		d.MinDraw = got
	}
	if got > d.MaxDraw {
		d.MaxDraw = got
	}
}

func (s *DrawRecorder) capture(seed uint32, idx int, got uint32, want uint32, kind string) {
	if len(s.Capture.Items) >= s.Capture.Limit {
		return
	}
	s.Capture.Items = append(s.Capture.Items, stats.Mismatch{
		Seed:  seed,
		Index: idx,
		Got:   got,
		Want:  want,
		Kind:  kind,
	})
}

func newBitRecord() *BitRecord {
	b := new(BitRecord)
	b.Ones = make([]int64, drawBits)
	return b
}

func newDistRecord() *DistRecord {
	d := new(DistRecord)
	d.Bucket = stats.Buckets.GetBucketByCount(qualityBuckets)
	d.ValueCollect = make([]int64, qualityBuckets)
	d.MinDraw = math.MaxUint32
	d.MaxDraw = 0
	return d
}

func newCaptureRecord(limit int) *CaptureRecord {

	c := new(CaptureRecord)

	c.Limit = limit
	c.Items = make([]stats.Mismatch, 0, limit)

	return c
}
