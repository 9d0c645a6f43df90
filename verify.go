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
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/recorder"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
	"github.com/zintix-labs/mtlab/stats"
)

const capPrepare int = 100

// Verifier 用於差分驗證：把受測引擎與對照引擎以相同 seed 並排推進，逐筆比對輸出。
//
// 比對單位是 seed：每個 seed 兩顆引擎都重新出生，各走 draws 筆；
// 任何一筆不符都會被紀錄員收進報表（含前 N 筆逐案捕捉），不會中斷整趟掃描。
type Verifier struct {
	SuiteName string                   // 套件名稱
	SuiteId   spec.SID                 // 套件編號
	ss        *spec.SuiteSetting       // 方便重用建立紀錄員
	engF      core.PRNGFactory         // 受測引擎工廠
	refF      core.PRNGFactory         // 對照引擎工廠
	rBuf      []*recorder.DrawRecorder // 併發抽號紀錄員
}

func newVerifier(ss *spec.SuiteSetting, reg *core.EngineRegistry) (*Verifier, error) {
	if !ss.Verify.Enabled() {
		return nil, errs.Warnf("suite %s: verify is not enabled (verify_setting.draws must > 0)", ss.SuiteName)
	}
	engF, ok := reg.Get(ss.Engine)
	if !ok {
		return nil, errs.Fatalf("engine is not exist: %s", ss.Engine)
	}
	refF, ok := reg.Get(ss.Reference)
	if !ok {
		return nil, errs.Fatalf("reference engine is not exist: %s", ss.Reference)
	}
	v := &Verifier{
		SuiteName: ss.SuiteName,
		SuiteId:   ss.SuiteID,
		ss:        ss,
		engF:      engF,
		refF:      refF,
		rBuf:      make([]*recorder.DrawRecorder, 0, capPrepare),
	}
	return v, nil
}

// Verify 單線檢定：依套件設定掃 [seed_lo, seed_hi]，回傳統計結果與用時。
func (v *Verifier) Verify(showpb bool) (*stats.VerifyReport, time.Duration, error) {
	return v.span(v.ss.Verify.SeedLo, v.ss.Verify.SeedHi, v.ss.Verify.Draws, 1, showpb)
}

// VerifyMP 平行檢定：mp 個 worker 分食 seed 範圍，合併統計結果後回傳。
//
// mp <= 0 時依序退回 verify_setting.workers、GOMAXPROCS。
func (v *Verifier) VerifyMP(mp int, showpb bool) (*stats.VerifyReport, time.Duration, error) {
	if mp <= 0 {
		mp = v.ss.Verify.Workers
	}
	if mp <= 0 {
		mp = runtime.GOMAXPROCS(0)
	}
	return v.span(v.ss.Verify.SeedLo, v.ss.Verify.SeedHi, v.ss.Verify.Draws, mp, showpb)
}

// VerifySpan 以指定範圍覆蓋套件設定執行檢定。
//
// CLI 旗標覆蓋與開發面板都走這個入口；capture/check_i31 等其餘參數仍沿用套件設定。
func (v *Verifier) VerifySpan(seedLo uint32, seedHi uint32, draws int, mp int, showpb bool) (*stats.VerifyReport, time.Duration, error) {
	if mp <= 0 {
		mp = 1
	}
	return v.span(seedLo, seedHi, draws, mp, showpb)
}

func (v *Verifier) span(seedLo uint32, seedHi uint32, draws int, mp int, showpb bool) (*stats.VerifyReport, time.Duration, error) {
	defer v.reset()
	if seedHi < seedLo {
		return nil, 0, errs.NewWarn("seed_hi must >= seed_lo")
	}
	if draws < 1 {
		return nil, 0, errs.NewWarn("draws must > 0")
	}
	if mp < 1 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}

	// 以覆蓋後的範圍重建一份全新的 VerifySetting，紀錄員與報表都以它為準。
	// 不能直接複製 v.ss.Verify：它已經 Init 過，直接改欄位不會重算 SeedCount。
	vs := spec.VerifySetting{
		SeedLo:   seedLo,
		SeedHi:   seedHi,
		Draws:    draws,
		Workers:  v.ss.Verify.Workers,
		Capture:  v.ss.Verify.Capture,
		CheckI31: v.ss.Verify.CheckI31,
	}
	if err := vs.Init(); err != nil {
		return nil, 0, err
	}

	for len(v.rBuf) < mp {
		r, err := recorder.NewDrawRecorder(v.SuiteName, v.SuiteId, v.ss.Engine, v.ss.Reference, &vs)
		if err != nil {
			return nil, 0, err
		}
		v.rBuf = append(v.rBuf, r)
	}

	// 作一個2048大小的緩衝channel 使seed依序分派給空出來的worker
	jobs := make(chan uint32, 2048)

	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(vs.SeedCount)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for w := 0; w < mp; w++ {
		go verify(wg, v.engF, v.refF, v.rBuf[w], jobs, draws, vs.CheckI31, bar)
	}

	// 塞進 seed，開始掃描；seedHi == MaxUint32 時 s++ 會繞回，因此用塞完即break的寫法
	for s := seedLo; ; s++ {
		jobs <- s
		if s == seedHi {
			break
		}
	}
	close(jobs) // seed 送完關閉通道 通知所有worker不會再有新資料
	wg.Wait()   // 等待worker都執行完任務
	used := time.Since(bar.StartTime())
	bar.Finish()

	rec, err := recorder.MergeDrawRecorder(v.rBuf)
	if err != nil {
		return nil, 0, err
	}
	result := rec.Done()
	result.Done()

	return result, used, nil
}

// verify 是檢定worker：從 jobs 取 seed，跑完該 seed 的比對後回報進度。
func verify(wg *sync.WaitGroup, engF core.PRNGFactory, refF core.PRNGFactory, rec *recorder.DrawRecorder, jobs chan uint32, draws int, checkI31 bool, bar *pb.ProgressBar) {
	defer wg.Done()
	for seed := range jobs { // seed := <- jobs
		verifySeed(engF, refF, rec, seed, draws, checkI31)
		bar.Increment()
	}
}

// verifySeed 對單一 seed 執行差分比對。
//
// 第一道：兩顆引擎同 seed 出生，逐筆比對原生 u32 輸出。
// 第二道（CheckI31 開啟時）：受測引擎走 Int31，對照引擎走 Uint32 再遮最高位。
// 對照側每筆只推進一步，受測側的 Int31 若多吃或少吃 draw，序列立刻錯位，
// 「Int31 恰好消耗一次 draw」的節奏合約因此被釘死。
func verifySeed(engF core.PRNGFactory, refF core.PRNGFactory, rec *recorder.DrawRecorder, seed uint32, draws int, checkI31 bool) {
	eng := engF.New(int64(seed))
	ref := refF.New(int64(seed))
	for i := 0; i < draws; i++ {
		rec.Record(seed, i, eng.Uint32(), ref.Uint32())
	}

	if checkI31 {
		eng = engF.New(int64(seed))
		ref = refF.New(int64(seed))
		for i := 0; i < draws; i++ {
			got := eng.Int31()
			want := int32(ref.Uint32() &^ (1 << 31))
			rec.RecordI31(seed, i, got, want)
		}
	}

	rec.EndSeed()
}

func (v *Verifier) reset() {
	v.rBuf = v.rBuf[:0]
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫（例如 GenPool 的重建路徑）。
// 因此 state 的推進必須是原子的：
//   - 使用 CAS（Compare-And-Swap）迴圈確保每次呼叫都會取得唯一的下一個 state。
//   - 回傳值使用推進後的 state 經 mix63 打散後的結果。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
