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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/mtlab/dto"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

const verifySuiteYAML = `
suite_name: unit_verify
suite_id: 77
engine: mt19937
reference: mt19937ref
verify_setting:
  seed_lo: 0
  seed_hi: 3
  draws: 200
  workers: 2
  capture: 8
  check_i31: true
draw_setting:
  max_draws: 50000
  default_width: u32
`

const benchSuiteYAML = `
suite_name: unit_bench
suite_id: 88
engine: mt19937
bench_setting:
  prime_ms: 1
  batches: 2
  scales: [0.000001]
  baseline: pcg32
draw_setting:
  max_draws: 1000
`

const benchMixSuiteYAML = `
suite_name: unit_bench_mix
suite_id: 89
engine: mt19937
bench_setting:
  prime_ms: 1
  batches: 2
  scales: [0.000001]
fixed:
  mix_u32: 6
  mix_i31: 2
  mix_u64: 1
  mix_f64: 1
  mix_picker: alias
draw_setting:
  max_draws: 1000
`

const drawSuiteYAML = `
suite_name: unit_draw
suite_id: 5
engine: mt19937
draw_setting:
  max_draws: 4096
  pool: 3
`

// loadSuite 由 YAML 字面值解析出套件設定
func loadSuite(t *testing.T, raw string) *spec.SuiteSetting {
	t.Helper()
	ss, err := spec.GetSuiteSettingByYAML([]byte(raw))
	if err != nil {
		t.Fatalf("parse suite yaml failed: %v", err)
	}
	return ss
}

// newTestGen 以固定 seed 建一台 Generator（不掛金樣）
func newTestGen(t *testing.T, ss *spec.SuiteSetting, seed int64) *Generator {
	t.Helper()
	g, err := newGeneratorWithSeed(ss, core.BuiltinEngines(), seed, nil)
	if err != nil {
		t.Fatalf("build generator failed: %v", err)
	}
	return g
}

// drawReq 組出符合套件身分的抽號請求
func drawReq(ss *spec.SuiteSetting, count int, width string) *dto.DrawRequest {
	return &dto.DrawRequest{
		SuiteName: ss.SuiteName,
		SuiteId:   ss.SuiteID,
		Count:     count,
		Width:     width,
	}
}

// goldenMapFS 把向量書打包成記憶體 FS，同內容提供 .json 與 .json.zst 兩個檔
func goldenMapFS(t *testing.T, book GoldenBook) fstest.MapFS {
	t.Helper()
	raw, err := json.Marshal(book)
	if err != nil {
		t.Fatalf("marshal golden book failed: %v", err)
	}

	var zbuf bytes.Buffer
	zw, err := zstd.NewWriter(&zbuf)
	if err != nil {
		t.Fatalf("new zstd writer failed: %v", err)
	}
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("compress golden book failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zstd writer failed: %v", err)
	}

	return fstest.MapFS{
		"book.json":     &fstest.MapFile{Data: raw},
		"book.json.zst": &fstest.MapFile{Data: zbuf.Bytes()},
	}
}

// wantErrLike 驗證錯誤存在且訊息含指定片段
func wantErrLike(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", sub)
	}
	if !strings.Contains(err.Error(), sub) {
		t.Fatalf("expected error containing %q, got: %v", sub, err)
	}
}

// -----------------------------------------------------------------------------
// Tests for Generator
// -----------------------------------------------------------------------------

// TestGeneratorDrawContinuesStream 驗證批次抽號與流水接續
// 檢查項目: 預設寬度、批次欄位、XorFold、下一批起點 == 上一批終點
func TestGeneratorDrawContinuesStream(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	g := newTestGen(t, ss, 42)

	first, err := g.Draw(drawReq(ss, 16, ""))
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if first.Width != "u32" {
		t.Fatalf("expected default width u32, got %q", first.Width)
	}
	if first.Count != 16 || len(first.U32s) != 16 {
		t.Fatalf("expected 16 u32 draws, got count=%d len=%d", first.Count, len(first.U32s))
	}
	if len(first.I31s) != 0 || len(first.F64s) != 0 {
		t.Fatalf("u32 batch must not carry i31/f64 payloads")
	}
	if first.State.StartCoreSnapB64U == "" || first.State.AfterCoreSnapB64U == "" {
		t.Fatal("start/after snapshots are required")
	}
	if first.State.StartCoreSnapB64U == first.State.AfterCoreSnapB64U {
		t.Fatal("after snapshot must differ from start after 16 draws")
	}

	var fold uint32
	for _, v := range first.U32s {
		fold ^= v
	}
	if want := fmt.Sprintf("%08x", fold); first.XorFold != want {
		t.Fatalf("xorfold mismatch: got %s want %s", first.XorFold, want)
	}

	second, err := g.Draw(drawReq(ss, 16, ""))
	if err != nil {
		t.Fatalf("second draw failed: %v", err)
	}
	if second.State.StartCoreSnapB64U != first.State.AfterCoreSnapB64U {
		t.Fatal("second batch must start where the first batch ended")
	}
	if slices.Equal(first.U32s, second.U32s) {
		t.Fatal("consecutive batches produced identical output")
	}
}

// TestGeneratorReplayFromSnapshot 驗證快照回放
// 檢查項目: 回放輸出與原批一致，且回放不干擾即時流水
func TestGeneratorReplayFromSnapshot(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	g := newTestGen(t, ss, 314)

	first, err := g.Draw(drawReq(ss, 8, "u32"))
	if err != nil {
		t.Fatalf("first draw failed: %v", err)
	}
	second, err := g.Draw(drawReq(ss, 8, "u32"))
	if err != nil {
		t.Fatalf("second draw failed: %v", err)
	}

	replay := drawReq(ss, 8, "u32")
	replay.StartState = &dto.StartState{StartCoreSnapB64U: first.State.StartCoreSnapB64U}
	rep, err := g.Draw(replay)
	if err != nil {
		t.Fatalf("replay draw failed: %v", err)
	}
	if !slices.Equal(rep.U32s, first.U32s) {
		t.Fatalf("replay output mismatch: got %v want %v", rep.U32s, first.U32s)
	}
	if rep.State.StartCoreSnapB64U != first.State.StartCoreSnapB64U {
		t.Fatal("replay must echo the requested start snapshot")
	}
	if rep.State.AfterCoreSnapB64U != first.State.AfterCoreSnapB64U {
		t.Fatal("replay after-snapshot must match the original batch")
	}

	// 回放結束後即時流水必須完全沒被動過
	third, err := g.Draw(drawReq(ss, 8, "u32"))
	if err != nil {
		t.Fatalf("third draw failed: %v", err)
	}
	if third.State.StartCoreSnapB64U != second.State.AfterCoreSnapB64U {
		t.Fatal("replay perturbed the live stream")
	}
}

// TestGeneratorWidths 驗證三種輸出寬度的取值關係
// 檢查項目: i31 為 u32 遮最高位；f64 由兩筆 u32 組 53-bit 尾數
func TestGeneratorWidths(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	const seed = 7

	us, err := newTestGen(t, ss, seed).Draw(drawReq(ss, 12, "u32"))
	if err != nil {
		t.Fatalf("u32 draw failed: %v", err)
	}
	is, err := newTestGen(t, ss, seed).Draw(drawReq(ss, 12, "i31"))
	if err != nil {
		t.Fatalf("i31 draw failed: %v", err)
	}
	fs, err := newTestGen(t, ss, seed).Draw(drawReq(ss, 6, "f64"))
	if err != nil {
		t.Fatalf("f64 draw failed: %v", err)
	}

	if is.Width != "i31" || len(is.I31s) != 12 || len(is.U32s) != 0 {
		t.Fatalf("i31 batch shape wrong: width=%s i31s=%d u32s=%d", is.Width, len(is.I31s), len(is.U32s))
	}
	for k, v := range is.I31s {
		if v < 0 {
			t.Fatalf("i31 draw[%d] is negative: %d", k, v)
		}
		if want := int32(us.U32s[k] &^ (1 << 31)); v != want {
			t.Fatalf("i31 draw[%d] mismatch: got %d want %d", k, v, want)
		}
	}

	if fs.Width != "f64" || len(fs.F64s) != 6 {
		t.Fatalf("f64 batch shape wrong: width=%s f64s=%d", fs.Width, len(fs.F64s))
	}
	for k, f := range fs.F64s {
		if f < 0 || f >= 1 {
			t.Fatalf("f64 draw[%d] out of [0,1): %v", k, f)
		}
		a := float64(us.U32s[2*k] >> 5)
		b := float64(us.U32s[2*k+1] >> 6)
		if want := (a*67108864.0 + b) / 9007199254740992.0; f != want {
			t.Fatalf("f64 draw[%d] mismatch: got %v want %v", k, f, want)
		}
	}
}

// TestGeneratorDrawBudget 驗證抽號預算按底層 draw 數收費
// 檢查項目: f64 每筆計兩個 draw；剛好到頂不算超標
func TestGeneratorDrawBudget(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	g := newTestGen(t, ss, 1)

	_, err := g.Draw(drawReq(ss, 30000, "f64")) // 60000 draws > 50000
	wantErrLike(t, err, "draw budget exceeded")

	if _, err := g.Draw(drawReq(ss, 50000, "u32")); err != nil {
		t.Fatalf("budget boundary draw should pass: %v", err)
	}
}

// TestGeneratorValidRejects 驗證請求合法性校驗
// 檢查項目: 名稱/編號/筆數與寬度字串的拒收行為
func TestGeneratorValidRejects(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	g := newTestGen(t, ss, 1)

	bad := drawReq(ss, 4, "")
	bad.SuiteId = 999
	_, err := g.Draw(bad)
	wantErrLike(t, err, "suite id is not matched")

	bad = drawReq(ss, 4, "")
	bad.SuiteName = "other_suite"
	_, err = g.Draw(bad)
	wantErrLike(t, err, "suite name is not matched")

	_, err = g.Draw(drawReq(ss, 0, ""))
	wantErrLike(t, err, "draw count must > 0")

	if _, err = g.Draw(drawReq(ss, 4, "u128")); err == nil {
		t.Fatal("unknown width must be rejected")
	}
}

// TestGeneratorSnapshotRoundTrip 驗證快照/恢復合約
// 檢查項目: 快照長度固定、恢復後輸出可重現、壞快照拒收
func TestGeneratorSnapshotRoundTrip(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	g := newTestGen(t, ss, 9)

	snap, err := g.SnapshotCore()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if len(snap) != 2500 {
		t.Fatalf("mt19937 snapshot must be 2500 bytes, got %d", len(snap))
	}

	a := append([]uint32(nil), g.DrawInternal(5, spec.WidthU32).U32s...)
	if err := g.RestoreCore(snap); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	b := g.DrawInternal(5, spec.WidthU32).U32s
	if !slices.Equal(a, b) {
		t.Fatalf("restore did not rewind the stream: %v vs %v", a, b)
	}

	if err := g.RestoreCore([]byte{1, 2, 3}); err == nil {
		t.Fatal("truncated snapshot must be rejected")
	}
}

// -----------------------------------------------------------------------------
// Tests for Golden Self-Check
// -----------------------------------------------------------------------------

// TestGoldenSelfCheckPasses 驗證金樣自檢通關
// 檢查項目: 逐筆 / 位移 / 摺疊三種向量，.json 與 .json.zst 兩種載體
func TestGoldenSelfCheckPasses(t *testing.T) {
	book := GoldenBook{
		Engine: core.EngineMT19937,
		Source: "mt19937ar reference run",
		Vectors: []GoldenVector{
			{Seed: 5489, Draws: []string{"d091bb5c", "22ae9ef6", "e7e1faee", "d5c31f79"}},
			{Seed: 5489, Start: 9999, Draws: []string{"f5ca0edb"}},
			{Seed: 0, FoldDraws: 65536, Fold: "10a1e435"},
		},
	}
	fsys := goldenMapFS(t, book)

	ss := loadSuite(t, verifySuiteYAML)
	ss.Golden.SelfCheck = true
	ss.Golden.Vectors = []string{"book.json", "book.json.zst"}

	g, err := newGeneratorWithSeed(ss, core.BuiltinEngines(), 1, fsys)
	if err != nil {
		t.Fatalf("self-check should pass: %v", err)
	}
	if g == nil {
		t.Fatal("generator is nil")
	}
}

// TestGoldenSelfCheckCatchesCorruption 驗證金樣自檢攔截偏差
// 檢查項目: 單一 bit 偏差與摺疊偏差都必須擋下建機
func TestGoldenSelfCheckCatchesCorruption(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	ss.Golden.SelfCheck = true
	ss.Golden.Vectors = []string{"book.json"}

	badDraw := goldenMapFS(t, GoldenBook{
		Engine:  core.EngineMT19937,
		Vectors: []GoldenVector{{Seed: 5489, Draws: []string{"d091bb5d"}}},
	})
	_, err := newGeneratorWithSeed(ss, core.BuiltinEngines(), 1, badDraw)
	wantErrLike(t, err, "golden mismatch")

	badFold := goldenMapFS(t, GoldenBook{
		Engine:  core.EngineMT19937,
		Vectors: []GoldenVector{{Seed: 0, FoldDraws: 65536, Fold: "10a1e436"}},
	})
	_, err = newGeneratorWithSeed(ss, core.BuiltinEngines(), 1, badFold)
	wantErrLike(t, err, "golden fold mismatch")
}

// TestGoldenBookValidation 驗證向量書載入期的各種擋下
// 檢查項目: 引擎不符、檔案缺失、壞 hex、空向量、缺 FS
func TestGoldenBookValidation(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	ss.Golden.SelfCheck = true
	ss.Golden.Vectors = []string{"book.json"}

	wrongEngine := goldenMapFS(t, GoldenBook{
		Engine:  core.EnginePCG32,
		Vectors: []GoldenVector{{Seed: 1, FoldDraws: 4, Fold: "00000000"}},
	})
	_, err := newGeneratorWithSeed(ss, core.BuiltinEngines(), 1, wrongEngine)
	wantErrLike(t, err, "targets engine")

	badHex := goldenMapFS(t, GoldenBook{
		Engine:  core.EngineMT19937,
		Vectors: []GoldenVector{{Seed: 1, Draws: []string{"zzzz"}}},
	})
	_, err = newGeneratorWithSeed(ss, core.BuiltinEngines(), 1, badHex)
	wantErrLike(t, err, "bad draw hex")

	emptyVec := goldenMapFS(t, GoldenBook{
		Engine:  core.EngineMT19937,
		Vectors: []GoldenVector{{Seed: 1}},
	})
	_, err = newGeneratorWithSeed(ss, core.BuiltinEngines(), 1, emptyVec)
	wantErrLike(t, err, "draws or fold required")

	ss.Golden.Vectors = []string{"absent.json"}
	_, err = newGeneratorWithSeed(ss, core.BuiltinEngines(), 1, goldenMapFS(t, GoldenBook{
		Engine:  core.EngineMT19937,
		Vectors: []GoldenVector{{Seed: 1, FoldDraws: 1, Fold: "00000000"}},
	}))
	wantErrLike(t, err, "load golden book")

	ss.Golden.Vectors = []string{"book.json"}
	_, err = newGeneratorWithSeed(ss, core.BuiltinEngines(), 1, nil)
	wantErrLike(t, err, "goldenFS is nil")
}

// -----------------------------------------------------------------------------
// Tests for Verifier
// -----------------------------------------------------------------------------

// TestVerifierPassesAgainstReference 驗證展開引擎對模運算參考實作的全段一致
// 檢查項目: 計數欄位、i31 第二道、XorFold 釘值（seeds 0..3 x 200 = 0fdb02aa）
func TestVerifierPassesAgainstReference(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	v, err := newVerifier(ss, core.BuiltinEngines())
	if err != nil {
		t.Fatalf("build verifier failed: %v", err)
	}

	rep, used, err := v.Verify(false)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if used <= 0 {
		t.Fatal("elapsed time must be positive")
	}

	sum := rep.Summary
	if !sum.Passed || sum.Mismatches != 0 {
		t.Fatalf("expected clean pass, got passed=%v mismatches=%d", sum.Passed, sum.Mismatches)
	}
	if sum.Seeds != 4 || sum.DrawsPerSeed != 200 {
		t.Fatalf("seed accounting wrong: seeds=%d drawsPerSeed=%d", sum.Seeds, sum.DrawsPerSeed)
	}
	if sum.DrawsCompared != 1600 || sum.I31Draws != 800 {
		t.Fatalf("draw accounting wrong: compared=%d i31=%d", sum.DrawsCompared, sum.I31Draws)
	}
	if sum.MatchRate != 1.0 {
		t.Fatalf("match rate must be 1.0, got %v", sum.MatchRate)
	}
	if sum.XorFoldHex != "0fdb02aa" {
		t.Fatalf("xorfold mismatch: got %s want 0fdb02aa", sum.XorFoldHex)
	}
	if rep.Bits.Draws != 800 {
		t.Fatalf("bit stats must only count u32 draws: got %d", rep.Bits.Draws)
	}
	if len(rep.Capture.Items) != 0 {
		t.Fatalf("clean pass must not capture mismatches, got %d", len(rep.Capture.Items))
	}
}

// TestVerifierParallelMatchesSerial 驗證平行掃描與單線結果一致
// 檢查項目: 合併後的計數與 XorFold 不受 worker 數影響
func TestVerifierParallelMatchesSerial(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	v, err := newVerifier(ss, core.BuiltinEngines())
	if err != nil {
		t.Fatalf("build verifier failed: %v", err)
	}

	serial, _, err := v.Verify(false)
	if err != nil {
		t.Fatalf("serial verify failed: %v", err)
	}
	parallel, _, err := v.VerifyMP(3, false)
	if err != nil {
		t.Fatalf("parallel verify failed: %v", err)
	}

	if serial.Summary.Seeds != parallel.Summary.Seeds ||
		serial.Summary.DrawsCompared != parallel.Summary.DrawsCompared ||
		serial.Summary.Mismatches != parallel.Summary.Mismatches ||
		serial.Summary.XorFold != parallel.Summary.XorFold {
		t.Fatalf("parallel result diverged from serial: %+v vs %+v", serial.Summary, parallel.Summary)
	}
}

// TestVerifierCatchesDivergence 驗證不同引擎立即失配
// 檢查項目: Passed=false、捕捉樣本數受 capture 上限截斷
func TestVerifierCatchesDivergence(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	ss.Reference = core.EnginePCG32
	v, err := newVerifier(ss, core.BuiltinEngines())
	if err != nil {
		t.Fatalf("build verifier failed: %v", err)
	}

	rep, _, err := v.VerifySpan(0, 0, 50, 1, false)
	if err != nil {
		t.Fatalf("verify span failed: %v", err)
	}
	if rep.Summary.Passed {
		t.Fatal("mt19937 vs pcg32 must not pass")
	}
	if rep.Summary.Mismatches == 0 {
		t.Fatal("expected mismatches between different engines")
	}
	if rep.Capture.Limit != 8 || len(rep.Capture.Items) != 8 {
		t.Fatalf("capture must stop at the limit: limit=%d items=%d", rep.Capture.Limit, len(rep.Capture.Items))
	}
	for _, m := range rep.Capture.Items {
		if m.Seed != 0 {
			t.Fatalf("capture item carries wrong seed: %d", m.Seed)
		}
		if m.Kind != "u32" && m.Kind != "i31" {
			t.Fatalf("capture item carries unknown kind: %q", m.Kind)
		}
	}
}

// TestVerifySpanOverrides 驗證範圍覆蓋入口
// 檢查項目: 報表反映覆蓋後的 seed 範圍與 draw 數
func TestVerifySpanOverrides(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	v, err := newVerifier(ss, core.BuiltinEngines())
	if err != nil {
		t.Fatalf("build verifier failed: %v", err)
	}

	rep, _, err := v.VerifySpan(10, 12, 37, 2, false)
	if err != nil {
		t.Fatalf("verify span failed: %v", err)
	}
	sum := rep.Summary
	if sum.SeedLo != 10 || sum.SeedHi != 12 {
		t.Fatalf("seed range wrong: [%d, %d]", sum.SeedLo, sum.SeedHi)
	}
	if sum.Seeds != 3 || sum.DrawsPerSeed != 37 {
		t.Fatalf("span accounting wrong: seeds=%d drawsPerSeed=%d", sum.Seeds, sum.DrawsPerSeed)
	}
	if want := int64(3 * 37 * 2); sum.DrawsCompared != want { // check_i31 雙道
		t.Fatalf("draws compared wrong: got %d want %d", sum.DrawsCompared, want)
	}
	if !sum.Passed {
		t.Fatal("reference pair must pass on any span")
	}
}

// TestVerifierRejects 驗證建構與參數的拒收行為
// 檢查項目: 未啟用 verify、倒置範圍、非法 draw 數、未註冊引擎
func TestVerifierRejects(t *testing.T) {
	bench := loadSuite(t, benchSuiteYAML)
	_, err := newVerifier(bench, core.BuiltinEngines())
	wantErrLike(t, err, "verify is not enabled")

	ss := loadSuite(t, verifySuiteYAML)
	v, err := newVerifier(ss, core.BuiltinEngines())
	if err != nil {
		t.Fatalf("build verifier failed: %v", err)
	}
	_, _, err = v.VerifySpan(5, 4, 10, 1, false)
	wantErrLike(t, err, "seed_hi must >= seed_lo")
	_, _, err = v.VerifySpan(0, 0, 0, 1, false)
	wantErrLike(t, err, "draws must > 0")

	ss = loadSuite(t, verifySuiteYAML)
	ss.Engine = "nope"
	_, err = newVerifier(ss, core.BuiltinEngines())
	wantErrLike(t, err, "engine is not exist")

	ss = loadSuite(t, verifySuiteYAML)
	ss.Reference = "nope"
	_, err = newVerifier(ss, core.BuiltinEngines())
	wantErrLike(t, err, "reference engine is not exist")
}

// -----------------------------------------------------------------------------
// Tests for Bencher
// -----------------------------------------------------------------------------

// TestBenchPinnedFold 驗證吞吐量測的輸出完整性
// 檢查項目: 批量下限鉗制、速率欄位、基準倍率、XorFold 釘值
// （seed 5489 連抽 200,000 筆的摺疊 = 08bd43fa）
func TestBenchPinnedFold(t *testing.T) {
	ss := loadSuite(t, benchSuiteYAML)
	b, err := newBencherWithSeed(ss, core.BuiltinEngines(), 5489)
	if err != nil {
		t.Fatalf("build bencher failed: %v", err)
	}

	rep, used, err := b.Bench(false)
	if err != nil {
		t.Fatalf("bench failed: %v", err)
	}
	if used <= 0 {
		t.Fatal("elapsed time must be positive")
	}
	if rep.Engine != core.EngineMT19937 || rep.Baseline != core.EnginePCG32 {
		t.Fatalf("engine labels wrong: engine=%s baseline=%s", rep.Engine, rep.Baseline)
	}
	if len(rep.Scales) != 1 {
		t.Fatalf("expected 1 scale report, got %d", len(rep.Scales))
	}

	sc := rep.Scales[0]
	if sc.DrawsPerBatch != minBatchDraws {
		t.Fatalf("tiny scale must clamp to the batch floor: got %d want %d", sc.DrawsPerBatch, minBatchDraws)
	}
	if sc.Batches != 2 || len(sc.Rates) != 2 {
		t.Fatalf("batch accounting wrong: batches=%d rates=%d", sc.Batches, len(sc.Rates))
	}
	if sc.Mean <= 0 || sc.Best < sc.Worst {
		t.Fatalf("rate summary wrong: mean=%v best=%v worst=%v", sc.Mean, sc.Best, sc.Worst)
	}
	if sc.BaselineMean <= 0 || sc.Speedup <= 0 {
		t.Fatalf("baseline summary missing: baselineMean=%v speedup=%v", sc.BaselineMean, sc.Speedup)
	}
	if sc.XorFoldHex != "08bd43fa" {
		t.Fatalf("bench fold mismatch: got %s want 08bd43fa", sc.XorFoldHex)
	}
}

// TestBenchMixedWorkload 驗證混合負載量測
// 檢查項目: fixed 參數解碼、抽樣表建立、固定 seed 下摺疊可重放
func TestBenchMixedWorkload(t *testing.T) {
	ss := loadSuite(t, benchMixSuiteYAML)
	b1, err := newBencherWithSeed(ss, core.BuiltinEngines(), 11)
	if err != nil {
		t.Fatalf("build mixed bencher failed: %v", err)
	}
	if b1.mix == nil || b1.picker == nil {
		t.Fatal("mixed workload params must be decoded and armed")
	}

	rep1, _, err := b1.Bench(false)
	if err != nil {
		t.Fatalf("mixed bench failed: %v", err)
	}
	b2, err := newBencherWithSeed(loadSuite(t, benchMixSuiteYAML), core.BuiltinEngines(), 11)
	if err != nil {
		t.Fatalf("build second bencher failed: %v", err)
	}
	rep2, _, err := b2.Bench(false)
	if err != nil {
		t.Fatalf("second mixed bench failed: %v", err)
	}
	if rep1.Scales[0].XorFold != rep2.Scales[0].XorFold {
		t.Fatalf("same seed must fold identically: %08x vs %08x", rep1.Scales[0].XorFold, rep2.Scales[0].XorFold)
	}
	if rep1.Scales[0].DrawsPerBatch != minBatchDraws {
		t.Fatalf("mixed batch must clamp to the floor: got %d", rep1.Scales[0].DrawsPerBatch)
	}

	// lut 與 alias 同權重應是同分布的另一種抽樣表
	lutSS := loadSuite(t, benchMixSuiteYAML)
	lutSS.Fixed["mix_picker"] = "lut"
	bl, err := newBencherWithSeed(lutSS, core.BuiltinEngines(), 11)
	if err != nil {
		t.Fatalf("build lut bencher failed: %v", err)
	}
	if bl.picker == nil {
		t.Fatal("lut picker must be armed")
	}

	// shuffle 模式：加權循環抽樣表也要能走完整個量測
	shSS := loadSuite(t, benchMixSuiteYAML)
	shSS.Fixed["mix_picker"] = "shuffle"
	bs1, err := newBencherWithSeed(shSS, core.BuiltinEngines(), 11)
	if err != nil {
		t.Fatalf("build shuffle bencher failed: %v", err)
	}
	if bs1.picker == nil {
		t.Fatal("shuffle picker must be armed")
	}
	repS1, _, err := bs1.Bench(false)
	if err != nil {
		t.Fatalf("shuffle bench failed: %v", err)
	}
	shSS2 := loadSuite(t, benchMixSuiteYAML)
	shSS2.Fixed["mix_picker"] = "shuffle"
	bs2, err := newBencherWithSeed(shSS2, core.BuiltinEngines(), 11)
	if err != nil {
		t.Fatalf("build second shuffle bencher failed: %v", err)
	}
	repS2, _, err := bs2.Bench(false)
	if err != nil {
		t.Fatalf("second shuffle bench failed: %v", err)
	}
	if repS1.Scales[0].XorFold != repS2.Scales[0].XorFold {
		t.Fatalf("shuffle mode must fold identically under the same seed: %08x vs %08x",
			repS1.Scales[0].XorFold, repS2.Scales[0].XorFold)
	}
}

// TestBenchRejects 驗證量測建構的拒收行為
// 檢查項目: 未啟用 bench、未註冊引擎/基準、壞 mix 參數
func TestBenchRejects(t *testing.T) {
	verifyOnly := loadSuite(t, verifySuiteYAML)
	_, err := newBencherWithSeed(verifyOnly, core.BuiltinEngines(), 1)
	wantErrLike(t, err, "bench is not enabled")

	ss := loadSuite(t, benchSuiteYAML)
	ss.Engine = "nope"
	_, err = newBencherWithSeed(ss, core.BuiltinEngines(), 1)
	wantErrLike(t, err, "engine is not exist")

	ss = loadSuite(t, benchSuiteYAML)
	ss.Bench.Baseline = "nope"
	_, err = newBencherWithSeed(ss, core.BuiltinEngines(), 1)
	wantErrLike(t, err, "baseline engine is not exist")

	ss = loadSuite(t, benchMixSuiteYAML)
	ss.Fixed["mix_picker"] = "dice"
	_, err = newBencherWithSeed(ss, core.BuiltinEngines(), 1)
	wantErrLike(t, err, "unknown mix_picker")

	ss = loadSuite(t, benchMixSuiteYAML)
	ss.Fixed["mix_u32"] = -1
	_, err = newBencherWithSeed(ss, core.BuiltinEngines(), 1)
	wantErrLike(t, err, "must >= 0")
}

// -----------------------------------------------------------------------------
// Tests for GenPool
// -----------------------------------------------------------------------------

// TestGenPoolReplayIsPortable 驗證快照跨機台回放
// 檢查項目: 任一台池內機台都能重現其他機台記錄的批次
func TestGenPoolReplayIsPortable(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	p, err := newGenPool(2, ss, core.BuiltinEngines(), 1234, nil)
	if err != nil {
		t.Fatalf("build pool failed: %v", err)
	}
	defer p.Close()

	// 拿一台獨立機台錄一批
	g := newTestGen(t, ss, 99)
	first, err := g.Draw(drawReq(ss, 8, "u32"))
	if err != nil {
		t.Fatalf("direct draw failed: %v", err)
	}

	replay := drawReq(ss, 8, "u32")
	replay.StartState = &dto.StartState{StartCoreSnapB64U: first.State.StartCoreSnapB64U}
	res, err := p.Draw(context.Background(), replay)
	if err != nil {
		t.Fatalf("pool replay failed: %v", err)
	}
	if !slices.Equal(res.U32s, first.U32s) {
		t.Fatalf("pool replay mismatch: got %v want %v", res.U32s, first.U32s)
	}
}

// TestGenPoolMetricsAndClose 驗證池的觀測與關閉行為
// 檢查項目: 容量/歸還計數、關閉原因、關閉後與取消後的 Draw 拒收
func TestGenPoolMetricsAndClose(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	p, err := newGenPool(2, ss, core.BuiltinEngines(), 55, nil)
	if err != nil {
		t.Fatalf("build pool failed: %v", err)
	}

	if p.PoolSize() != 2 {
		t.Fatalf("pool size wrong: %d", p.PoolSize())
	}
	if _, err := p.Draw(context.Background(), drawReq(ss, 4, "")); err != nil {
		t.Fatalf("pool draw failed: %v", err)
	}
	if p.Available() != 2 || p.Inflight() != 0 {
		t.Fatalf("machine not returned: avail=%d inflight=%d", p.Available(), p.Inflight())
	}

	m := p.Metrics()
	if m.SuiteName != "unit_verify" || m.PoolSize != 2 || m.Closed {
		t.Fatalf("metrics wrong: %+v", m)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Draw(ctx, drawReq(ss, 4, ""))
	wantErrLike(t, err, "draw canceled/timeout")

	p.Close()
	if !p.Closed() || p.ClosedReason() != "closed" {
		t.Fatalf("close state wrong: closed=%v reason=%q", p.Closed(), p.ClosedReason())
	}
	_, err = p.Draw(context.Background(), drawReq(ss, 4, ""))
	wantErrLike(t, err, "generator pool closed")

	p.Close() // 重入關閉必須無害
	if got := p.Metrics(); !got.Closed || got.CloseReason != "closed" {
		t.Fatalf("closed metrics wrong: %+v", got)
	}
}

// TestGenPoolValidationKeepsMachine 驗證一般請求錯誤不淘汰機台
// 檢查項目: 連續壞請求後池容量不變、無補機紀錄
func TestGenPoolValidationKeepsMachine(t *testing.T) {
	ss := loadSuite(t, verifySuiteYAML)
	p, err := newGenPool(1, ss, core.BuiltinEngines(), 77, nil)
	if err != nil {
		t.Fatalf("build pool failed: %v", err)
	}
	defer p.Close()

	for i := 0; i < 3; i++ {
		if _, err := p.Draw(context.Background(), drawReq(ss, 0, "")); err == nil {
			t.Fatal("zero count must be rejected")
		}
	}
	if p.Available() != 1 || p.ReBuild() != 0 || p.Fatals() != 0 {
		t.Fatalf("validation error must not burn machines: avail=%d rebuild=%d fatals=%d",
			p.Available(), p.ReBuild(), p.Fatals())
	}
	// 機台仍健康可用
	if _, err := p.Draw(context.Background(), drawReq(ss, 4, "")); err != nil {
		t.Fatalf("pool draw after bad requests failed: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Tests for Lab / Runtime
// -----------------------------------------------------------------------------

// TestLabRuntimeDrawAcrossSuites 驗證組裝層到資料面的整條路
// 檢查項目: 註冊/摘要/池覆蓋/多套件 Draw/關閉行為
func TestLabRuntimeDrawAcrossSuites(t *testing.T) {
	cfgFS := fstest.MapFS{
		"unit_verify.yaml": &fstest.MapFile{Data: []byte(verifySuiteYAML)},
		"unit_draw.yaml":   &fstest.MapFile{Data: []byte(drawSuiteYAML)},
	}
	lab, err := NewAuto(Engines(core.BuiltinEngines()), Configs(cfgFS), nil)
	if err != nil {
		t.Fatalf("build lab failed: %v", err)
	}

	sum, err := lab.Summary()
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if len(sum) != 2 || sum[0].SID != 5 || sum[1].SID != 77 {
		t.Fatalf("summary order wrong: %+v", sum)
	}
	if !slices.Equal(sum[0].Workloads, []string{"draw"}) {
		t.Fatalf("draw-only workloads wrong: %v", sum[0].Workloads)
	}
	if !slices.Equal(sum[1].Workloads, []string{"verify", "draw"}) {
		t.Fatalf("verify workloads wrong: %v", sum[1].Workloads)
	}

	rt, err := lab.BuildRuntime(2)
	if err != nil {
		t.Fatalf("build runtime failed: %v", err)
	}
	if ids := rt.IDs(); len(ids) != 2 || ids[0] != 5 || ids[1] != 77 {
		t.Fatalf("runtime ids wrong: %v", ids)
	}

	res, err := rt.Draw(context.Background(), &dto.DrawRequest{SuiteName: "unit_verify", SuiteId: 77, Count: 4})
	if err != nil {
		t.Fatalf("draw suite 77 failed: %v", err)
	}
	if res.SuiteID != 77 || len(res.U32s) != 4 {
		t.Fatalf("suite 77 result wrong: %+v", res)
	}
	if _, err := rt.Draw(context.Background(), &dto.DrawRequest{SuiteName: "unit_draw", SuiteId: 5, Count: 4}); err != nil {
		t.Fatalf("draw suite 5 failed: %v", err)
	}
	_, err = rt.Draw(context.Background(), &dto.DrawRequest{SuiteName: "ghost", SuiteId: 999, Count: 4})
	wantErrLike(t, err, "suite id not found")

	ms := rt.Metrics()
	if len(ms) != 2 {
		t.Fatalf("expected 2 pool metrics, got %d", len(ms))
	}
	for _, m := range ms {
		switch m.SuiteID {
		case 5:
			if m.PoolSize != 3 { // 套件層 pool 覆蓋預設
				t.Fatalf("suite 5 pool override ignored: %d", m.PoolSize)
			}
		case 77:
			if m.PoolSize != 2 {
				t.Fatalf("suite 77 pool default wrong: %d", m.PoolSize)
			}
		default:
			t.Fatalf("unexpected suite in metrics: %d", m.SuiteID)
		}
	}

	rt.Close()
	if !rt.Closed() || rt.ClosedReason() != "closed" {
		t.Fatalf("runtime close state wrong: closed=%v reason=%q", rt.Closed(), rt.ClosedReason())
	}
	_, err = rt.Draw(context.Background(), &dto.DrawRequest{SuiteName: "unit_verify", SuiteId: 77, Count: 4})
	wantErrLike(t, err, "draw runtime closed")
}

// TestLabRegisterAllFailFast 驗證註冊期的逐項擋下
// 檢查項目: 重複編號/名稱、未註冊引擎、缺金樣 FS、非扁平來源、壞設定檔
func TestLabRegisterAllFailFast(t *testing.T) {
	build := func(files map[string]string) error {
		m := fstest.MapFS{}
		for name, raw := range files {
			m[name] = &fstest.MapFile{Data: []byte(raw)}
		}
		_, err := NewAuto(Engines(core.BuiltinEngines()), Configs(m), nil)
		return err
	}

	dup := strings.Replace(verifySuiteYAML, "unit_verify", "unit_other", 1)
	wantErrLike(t, build(map[string]string{
		"a.yaml": verifySuiteYAML,
		"b.yaml": dup,
	}), "duplicate suite id")

	renamed := strings.Replace(verifySuiteYAML, "suite_id: 77", "suite_id: 78", 1)
	renamed = strings.Replace(renamed, "unit_verify", "Unit_Verify", 1)
	wantErrLike(t, build(map[string]string{
		"a.yaml": verifySuiteYAML,
		"b.yaml": renamed,
	}), "duplicate suite name")

	wantErrLike(t, build(map[string]string{
		"a.yaml": strings.Replace(verifySuiteYAML, "engine: mt19937\n", "engine: warp\n", 1),
	}), "engine not registered")

	wantErrLike(t, build(map[string]string{
		"a.yaml": verifySuiteYAML + "\ngolden_setting:\n  self_check: true\n  vectors: [book.json]\n",
	}), "golden fs required")

	wantErrLike(t, build(map[string]string{
		"sub/a.yaml": verifySuiteYAML,
	}), "must be flat")

	// verify 啟用卻沒給 reference：設定檔本身不合法
	wantErrLike(t, build(map[string]string{
		"a.yaml": strings.Replace(verifySuiteYAML, "reference: mt19937ref\n", "", 1),
	}), "parse suitesetting failed")

	wantErrLike(t, build(map[string]string{}), "no config files found")
}

// TestLabByYAMLFactories 驗證以設定文本建機的複驗
// 檢查項目: 已註冊套件放行；未註冊/身分不符/壞引擎擋下
func TestLabByYAMLFactories(t *testing.T) {
	cfgFS := fstest.MapFS{
		"unit_verify.yaml": &fstest.MapFile{Data: []byte(verifySuiteYAML)},
	}
	lab, err := NewAuto(Engines(core.BuiltinEngines()), Configs(cfgFS), nil)
	if err != nil {
		t.Fatalf("build lab failed: %v", err)
	}

	g, err := lab.NewGeneratorByYAML([]byte(verifySuiteYAML), 3)
	if err != nil {
		t.Fatalf("byYAML generator failed: %v", err)
	}
	if _, err := g.Draw(drawReq(g.setting, 4, "")); err != nil {
		t.Fatalf("byYAML generator draw failed: %v", err)
	}

	_, err = lab.NewGeneratorByYAML([]byte(strings.Replace(verifySuiteYAML, "suite_id: 77", "suite_id: 1", 1)), 3)
	wantErrLike(t, err, "sid not exist")

	_, err = lab.NewGeneratorByYAML([]byte(strings.Replace(verifySuiteYAML, "unit_verify", "ghost", 1)), 3)
	wantErrLike(t, err, "suite name not exist")

	_, err = lab.NewGeneratorByYAML([]byte(strings.Replace(verifySuiteYAML, "engine: mt19937\n", "engine: warp\n", 1)), 3)
	wantErrLike(t, err, "engine not exist")

	if _, err := lab.NewVerifierByYAML([]byte(verifySuiteYAML)); err != nil {
		t.Fatalf("byYAML verifier failed: %v", err)
	}
	if _, err := lab.NewVerifier(77); err != nil {
		t.Fatalf("verifier by id failed: %v", err)
	}
	if _, err := lab.NewBencher(77); err == nil {
		t.Fatal("bench on verify-only suite must fail")
	}
}

// TestLabSummaryRequiresFreeze 驗證摘要必須在凍結後取得
// 檢查項目: 未凍結時擋下、凍結後可重複取得
func TestLabSummaryRequiresFreeze(t *testing.T) {
	cfgFS := fstest.MapFS{
		"unit_verify.yaml": &fstest.MapFile{Data: []byte(verifySuiteYAML)},
	}
	lab, err := New(Engines(core.BuiltinEngines()), Configs(cfgFS), nil)
	if err != nil {
		t.Fatalf("build lab failed: %v", err)
	}
	if err := lab.RegisterAll(); err != nil {
		t.Fatalf("register all failed: %v", err)
	}

	_, err = lab.Summary()
	wantErrLike(t, err, "not frozen")

	lab.Freeze()
	if _, err := lab.Summary(); err != nil {
		t.Fatalf("summary after freeze failed: %v", err)
	}
}

// -----------------------------------------------------------------------------
// Tests for DevLab
// -----------------------------------------------------------------------------

// TestDevLab 驗證開發面板的完整循環
// 檢查項目: 抽號報表、快照回放、出生重置、單 seed 檢定、快照檢視
func TestDevLab(t *testing.T) {
	cfgFS := fstest.MapFS{
		"unit_verify.yaml": &fstest.MapFile{Data: []byte(verifySuiteYAML)},
	}
	lab, err := NewAuto(Engines(core.BuiltinEngines()), Configs(cfgFS), nil)
	if err != nil {
		t.Fatalf("build lab failed: %v", err)
	}

	d, err := lab.NewDevLab(77, 321)
	if err != nil {
		t.Fatalf("build devlab failed: %v", err)
	}

	rep, err := d.Draws("u32", 12)
	if err != nil {
		t.Fatalf("devlab draws failed: %v", err)
	}
	if rep.Count != 12 || rep.Width != "u32" || len(rep.Result.U32s) != 12 {
		t.Fatalf("draw report shape wrong: %+v", rep)
	}
	if rep.Before == "" || rep.After == "" || rep.Before == rep.After {
		t.Fatal("draw report must carry distinct start/after snapshots")
	}
	if rep.Min > rep.Mean || rep.Mean > rep.Max {
		t.Fatalf("summary stats out of order: min=%v mean=%v max=%v", rep.Min, rep.Mean, rep.Max)
	}
	if rep.Before != d.BirthSnapshot() {
		t.Fatal("first batch must start at the birth snapshot")
	}

	// 帶著出生快照回放同一批
	again, err := d.RestoreDraws(rep.Before, "u32", 12)
	if err != nil {
		t.Fatalf("restore draws failed: %v", err)
	}
	if !slices.Equal(again.Result.U32s, rep.Result.U32s) {
		t.Fatal("restore draws did not reproduce the batch")
	}

	// Reset 回出生點後重抽也要逐筆一致
	if err := d.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	rewound, err := d.Draws("u32", 12)
	if err != nil {
		t.Fatalf("draws after reset failed: %v", err)
	}
	if !slices.Equal(rewound.Result.U32s, rep.Result.U32s) {
		t.Fatal("reset did not rewind to birth snapshot")
	}

	vrep, err := d.Verify(100)
	if err != nil {
		t.Fatalf("devlab verify failed: %v", err)
	}
	if vrep.Seed != 321 || vrep.Draws != 100 {
		t.Fatalf("devlab verify header wrong: %+v", vrep)
	}
	if !vrep.Stat.Summary.Passed || vrep.Stat.Summary.Seeds != 1 {
		t.Fatalf("devlab verify must pass on one seed: %+v", vrep.Stat.Summary)
	}
	if vrep.Stat.Summary.SeedLo != 321 || vrep.Stat.Summary.SeedHi != 321 {
		t.Fatalf("devlab verify must pin its own seed: %+v", vrep.Stat.Summary)
	}

	insp, err := d.Inspect("")
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if insp.Engine != core.EngineMT19937 || insp.Bytes != 2500 || insp.SnapB64U == "" {
		t.Fatalf("inspect result wrong: engine=%s bytes=%d", insp.Engine, insp.Bytes)
	}

	if _, err := d.Draws("u32", 0); err == nil {
		t.Fatal("zero count must be rejected")
	}
	if _, err := d.Draws("u32", 5001); err == nil {
		t.Fatal("oversized count must be rejected")
	}
	if _, err := d.RestoreDraws("!!!", "u32", 4); err == nil {
		t.Fatal("bad snapshot string must be rejected")
	}
}

// -----------------------------------------------------------------------------
// Tests for seedMaker
// -----------------------------------------------------------------------------

// TestSeedMakerDeterministicAndDistinct 驗證補機 seed 流水
// 檢查項目: 同起點同序列、輸出皆非負且不重複
func TestSeedMakerDeterministicAndDistinct(t *testing.T) {
	s1 := newSeedMaker(123)
	s2 := newSeedMaker(123)

	seen := make(map[int64]bool, 1000)
	for i := 0; i < 1000; i++ {
		a := s1.next()
		b := s2.next()
		if a != b {
			t.Fatalf("seed stream diverged at %d: %d vs %d", i, a, b)
		}
		if a < 0 {
			t.Fatalf("seed must be non-negative, got %d", a)
		}
		if seen[a] {
			t.Fatalf("seed repeated at %d: %d", i, a)
		}
		seen[a] = true
	}
}
