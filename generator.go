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
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/zintix-labs/mtlab/dto"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/sdk/buf"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
)

// Generator 封裝一台「可對外提供 Draw」的抽號機。
//
// 你可以把 Generator 視為引擎的「外殼（shell）」：
//   - 對外：提供 Draw 入口（HTTP/檢定器通常只操作 Generator）。
//   - 對內：持有 RNG（Core）與套件設定（輸出寬度、批次預算、黃金向量）。
//
// 並發語意：
//   - Generator 預設不是 lock-free 結構；它內含可重用的 request/result buffer（熱路徑），
//     因此同一台 Generator 不應被多 goroutine 同時 Draw。
//   - 若要併發服務，由更高層建立多台 Generator 分散到不同 worker 並管理其生命週期（見 GenPool）。
//
// Buffer 語意（非常重要，影響 DX 與正確性）：
//   - DrawRequest / DrawResult 會被重用（避免 GC），每次 Draw 會覆寫內容。
//   - 你若需要在 Draw 後保留結果，請在離開臨界區前轉成 DTO（或自行 copy 你需要的欄位）。
//
// initseed 用於記錄出生時的 seed（追溯/重現的基礎資訊）；完整審計仍以 Core 的 Snapshot/Restore 為準。
type Generator struct {
	suiteName   string             // 套件名稱（來自 SuiteSetting.SuiteName，主要用於觀測/日誌）
	suiteId     spec.SID           // 套件 ID（Catalog 內唯一；用於路由與查表）
	core        *core.Core         // RNG 核心（PRNG + Snapshot/Restore 合約；熱路徑會頻繁取樣）
	setting     *spec.SuiteSetting // 套件設定（輸出寬度預設、draw 預算、黃金向量清單）
	DrawRequest *buf.DrawRequest   // 可重用的請求 buffer（每次 Draw 會覆寫/填充）
	DrawResult  *buf.DrawResult    // 可重用的結果 buffer（熱路徑；每次 Draw 會覆寫）
	mu          sync.Mutex         // 防併發鎖：保護可重用 buffers 與核心狀態一致性
	initseed    int64              // 出生 seed（便於追溯；完整重現請用 Snapshot/Restore）
}

// newGenerator 以「隨機 seed」建立 Generator。
//
// 這裡使用 crypto/rand 產生 seed 是為了：
//   - 在對外服務情境避免可預測的抽號起點
//   - 同時保留可追溯性（seed 會被記錄在 Generator.initseed）
//
// seed 只保證了新建 Generator 的起點，如果需要在任意批後將機台"重設"到任意 Core 節點，
// 請利用 Snapshot / Restore 來操作。
func newGenerator(ss *spec.SuiteSetting, reg *core.EngineRegistry, goldenFS fs.FS) (*Generator, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return newGeneratorWithSeed(ss, reg, seed.Int64(), goldenFS)
}

// newGeneratorWithSeed 以指定 seed 建立 Generator。
//
// 這是最常用的「可重現」入口：同一份 SuiteSetting + 同一個 seed，必得一致的輸出序列。
//
// 建立流程（概念）：
//  1. reg.Build(ss.Engine, seed) 依套件指定引擎建出 PRNG，包進 core.New
//  2. 初始化 Generator 需要的 buffers（DrawRequest/DrawResult）
//  3. 如果啟用黃金自檢（SelfCheck = true），從 goldenFS 加載向量並逐筆重放比對；
//     任何一筆不符就拒絕出廠——寧可建不起來，也不要帶著壞引擎上線。
func newGeneratorWithSeed(ss *spec.SuiteSetting, reg *core.EngineRegistry, seed int64, goldenFS fs.FS) (*Generator, error) {
	rng, err := reg.Build(ss.Engine, seed)
	if err != nil {
		return nil, err
	}
	g := &Generator{
		suiteName:   ss.SuiteName,
		suiteId:     ss.SuiteID,
		core:        core.New(rng),
		setting:     ss,
		DrawRequest: nil,
		DrawResult:  nil,
		initseed:    seed,
	}
	g.DrawRequest = &buf.DrawRequest{}
	g.DrawResult = buf.NewDrawResult(ss)

	// 如果啟用黃金自檢，加載向量並重放
	if ss.Golden.SelfCheck {
		if err := runGoldenSelfCheck(ss, reg, goldenFS); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Draw 為主要公開入口，會驗證抽號請求，執行抽號並回傳批次結果。
func (g *Generator) Draw(r *dto.DrawRequest) (dto.DrawResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	// 1. 校驗請求合法性
	if err := g.valid(r); err != nil {
		return dto.DrawResult{}, err
	}
	// 2. parse dto to inner draw request
	req, err := r.Parse()
	if err != nil {
		return dto.DrawResult{}, err
	}

	// 2.5. 補寬度預設並檢查 draw 預算：留空走套件預設；
	// f64 每筆吃兩個 u32 draw，預算以底層 draw 數計。
	if req.WidthStr == "" {
		req.Width = g.setting.Draw.DefaultWidth
	}
	if cost := req.Count * req.Width.DrawCost(); cost > g.setting.Draw.MaxDraws {
		return dto.DrawResult{}, errs.Warnf("draw budget exceeded: %d x %s costs %d draws (max %d)",
			req.Count, req.Width, cost, g.setting.Draw.MaxDraws)
	}

	// 3. get start snapshot
	startsnap, err := g.SnapshotCore()
	if err != nil {
		return dto.DrawResult{}, errs.NewFatal("before snapshot error " + err.Error())
	}
	rem := startsnap
	if req.StartState.HasPayload() {
		startsnap = req.StartState.StartCoreSnap
		if err := g.RestoreCore(req.StartState.StartCoreSnap); err != nil {
			return dto.DrawResult{}, errs.NewWarn("restore core err " + err.Error())
		}
	}

	// 4. get inner drawResult
	dr := g.executeDraws(req)

	// 5. get after snapshot
	aftersnap, err := g.SnapshotCore()
	if err != nil {
		if e := g.RestoreCore(rem); e != nil {
			return dto.DrawResult{}, errs.NewFatal("fall back err " + e.Error())
		}
		return dto.DrawResult{}, errs.NewWarn("after snapshot error " + err.Error())
	}
	dr.State.StartCoreSnap = startsnap
	dr.State.AfterCoreSnap = aftersnap

	// 6. restore if needed
	if req.StartState.HasPayload() {
		if err := g.RestoreCore(rem); err != nil {
			return dto.DrawResult{}, errs.NewFatal("restore core back err " + err.Error())
		}
	}

	// 7. dto
	return dto.NewDrawResultDTO(dr)
}

// DrawInternal 直接取得內部 DrawResult；常用於檢定器、開發面板或測試
//
// 請勿在正式環境使用
//
// 此行為跳過所有檢查與快照流程，直接以指定寬度連續抽號。
func (g *Generator) DrawInternal(count int, width spec.DrawWidth) *buf.DrawResult {
	g.DrawRequest.Count = count
	g.DrawRequest.Width = width
	g.DrawRequest.Session = 0
	return g.executeDraws(g.DrawRequest)
}

// executeDraws 依寬度把 count 筆輸出累積進可重用的 DrawResult。
func (g *Generator) executeDraws(req *buf.DrawRequest) *buf.DrawResult {
	dr := g.DrawResult
	dr.Reset()
	dr.Width = req.Width
	dr.Session = req.Session

	switch req.Width {
	case spec.WidthF64:
		for i := 0; i < req.Count; i++ {
			dr.AppendF64(g.core.Float64())
		}
	case spec.WidthI31:
		for i := 0; i < req.Count; i++ {
			dr.AppendU32(uint32(g.core.Int31()))
		}
	default:
		for i := 0; i < req.Count; i++ {
			dr.AppendU32(g.core.Uint32())
		}
	}

	dr.End()
	return dr
}

func (g *Generator) valid(req *dto.DrawRequest) error {
	if g.suiteId != req.SuiteId {
		return errs.NewWarn("suite id is not matched")
	}
	if g.suiteName != req.SuiteName {
		return errs.NewWarn("suite name is not matched")
	}
	if req.Count <= 0 {
		return errs.NewWarn("draw count must > 0")
	}
	return nil
}

// SnapshotCore 取得Core狀態暫存 當前僅提供取得Core狀態
//
// 之後要實作斷線重連時候提供checkpoint加入必要恢復資訊時實作
// SnapShot() <- 保留語意
func (g *Generator) SnapshotCore() ([]byte, error) {
	return g.core.Snapshot()
}

// RestoreCore 恢復Core狀態暫存 當前僅提供恢復Core狀態
//
// 之後要實作斷線重連時候提供checkpoint加入必要恢復資訊時實作
// Restore() <- 保留語意
func (g *Generator) RestoreCore(src []byte) error {
	return g.core.Restore(src)
}

// GoldenBook 表示一份釘死的參考向量集（.json 或 .json.zst 格式）。
//
// 向量字面值取自 mt19937ar 的參考執行，不由本倉實作自產（自產自驗沒有意義）。
// 每個 vector 是「seed + 起始位移 + 期望輸出」或「seed + XOR 摺疊檢查」其中一種。
type GoldenBook struct {
	Engine  core.EngineKey `json:"engine"`           // 向量針對的引擎
	Source  string         `json:"source,omitempty"` // 參考執行來源（人讀用）
	Vectors []GoldenVector `json:"vectors"`          // 向量清單
}

// GoldenVector 是單一筆釘死向量。
//
// 兩種形態：
//   - 逐筆比對：Draws 非空，從 draw[Start] 起逐筆核對（hex 字串）。
//   - 摺疊比對：FoldDraws > 0，前 FoldDraws 筆的 XOR 摺疊必須等於 Fold；
//     一條向量釘住一大段序列，檔案卻只要一行。
type GoldenVector struct {
	Seed      uint32   `json:"seed"`
	Start     int      `json:"start,omitempty"`
	Draws     []string `json:"draws,omitempty"`
	FoldDraws int      `json:"fold_draws,omitempty"`
	Fold      string   `json:"fold,omitempty"`

	draws []uint32 // 解析後的 Draws
	fold  uint32   // 解析後的 Fold
}

// compile 先把 hex 字面值解析成 uint32，載入期一次做完，重放期零解析成本。
func (v *GoldenVector) compile() error {
	if v.Start < 0 {
		return errs.Warnf("golden vector seed=%d: start must >= 0", v.Seed)
	}
	if len(v.Draws) == 0 && v.FoldDraws <= 0 {
		return errs.Warnf("golden vector seed=%d: draws or fold required", v.Seed)
	}
	v.draws = make([]uint32, len(v.Draws))
	for i, s := range v.Draws {
		u, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return errs.Wrap(err, fmt.Sprintf("golden vector seed=%d: bad draw hex %q", v.Seed, s))
		}
		v.draws[i] = uint32(u)
	}
	if v.FoldDraws > 0 {
		u, err := strconv.ParseUint(v.Fold, 16, 32)
		if err != nil {
			return errs.Wrap(err, fmt.Sprintf("golden vector seed=%d: bad fold hex %q", v.Seed, v.Fold))
		}
		v.fold = uint32(u)
	}
	return nil
}

// Check 以全新引擎逐向量重放並比對。
//
// 任何一筆不符都視為 Fatal：引擎實作壞了，這台機器不能用。
func (b *GoldenBook) Check(reg *core.EngineRegistry) error {
	for i := range b.Vectors {
		v := &b.Vectors[i]

		if len(v.draws) > 0 {
			r, err := reg.Build(b.Engine, int64(v.Seed))
			if err != nil {
				return err
			}
			for k := 0; k < v.Start; k++ {
				r.Uint32()
			}
			for k, want := range v.draws {
				if got := r.Uint32(); got != want {
					return errs.Fatalf("golden mismatch: engine=%s seed=%d draw[%d]: got=0x%08X, want=0x%08X",
						b.Engine, v.Seed, v.Start+k, got, want)
				}
			}
		}

		if v.FoldDraws > 0 {
			r, err := reg.Build(b.Engine, int64(v.Seed))
			if err != nil {
				return err
			}
			var h uint32
			for k := 0; k < v.FoldDraws; k++ {
				h ^= r.Uint32()
			}
			if h != v.fold {
				return errs.Fatalf("golden fold mismatch: engine=%s seed=%d draws=%d: got=0x%08X, want=0x%08X",
					b.Engine, v.Seed, v.FoldDraws, h, v.fold)
			}
		}
	}
	return nil
}

// loadGoldenBook 從 goldenFS 加載向量檔：
// 副檔名 .zst 走 zstd 解壓（出廠內嵌格式），其餘視為未壓縮 JSON（開發期覆蓋用）。
func loadGoldenBook(goldenFS fs.FS, path string) (*GoldenBook, error) {
	if goldenFS == nil {
		return nil, errs.NewWarn("goldenFS is nil")
	}
	if path == "" {
		return nil, errs.NewWarn("golden vector path is empty")
	}

	raw, err := fs.ReadFile(goldenFS, path)
	if err != nil {
		return nil, errs.Wrap(err, "read golden file failed")
	}

	// 解壓 zstd
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, errs.Wrap(err, "create zstd reader failed")
		}
		raw, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, errs.Wrap(err, "read decompressed data failed")
		}
	}

	// 解析 JSON
	var book GoldenBook
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, errs.Wrap(err, "unmarshal golden json failed")
	}

	// 驗證
	if book.Engine == "" {
		return nil, errs.Warnf("golden book: engine is required")
	}
	if len(book.Vectors) == 0 {
		return nil, errs.Warnf("golden book: vectors is empty")
	}
	for i := range book.Vectors {
		if err := book.Vectors[i].compile(); err != nil {
			return nil, err
		}
	}

	return &book, nil
}

// runGoldenSelfCheck 逐檔加載套件指定的向量並重放。
//
// 校驗：向量檔標的引擎必須等於套件引擎；拿 pcg 的套件配 mt 的向量是設定錯誤，直接擋下。
func runGoldenSelfCheck(ss *spec.SuiteSetting, reg *core.EngineRegistry, goldenFS fs.FS) error {
	for _, path := range ss.Golden.Vectors {
		book, err := loadGoldenBook(goldenFS, path)
		if err != nil {
			return errs.Wrap(err, fmt.Sprintf("load golden book (%s) failed", path))
		}
		if book.Engine != ss.Engine {
			return errs.Warnf("golden book %s targets engine %s, but suite engine is %s", path, book.Engine, ss.Engine)
		}
		if err := book.Check(reg); err != nil {
			return errs.Wrap(err, fmt.Sprintf("golden self-check (%s) failed", path))
		}
	}
	return nil
}
