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

// Package mtlab 提供亂數實驗室的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// 你可以把 Lab 視為一個「可被後端/驗證器/測速器使用的 runtime」，它負責把下列三個必需的地基組裝在一起，並提供建立 Generator 的入口：
//  1. Catalog：套件目錄（Single Source of Truth / SSOT），定義有哪些實驗套件、各自對應的設定檔名稱（ConfigName）。
//  2. EngineRegistry：引擎註冊表，提供「如何依據設定（EngineKey）建出亂數引擎」的 factories。
//  3. Golden FS：金樣向量來源（選用），套件啟用 self_check 時用來做建機自檢。
//
// 設計重點：
//   - Lab 本身不綁定任何「檔案路徑」概念：設定檔與金樣來源一律以 fs.FS 的形式注入。
//   - Lab 會持有一份 Catalog（你要跑哪一批套件/設定檔）與一份 EngineRegistry（你支援哪些引擎）。
//   - Generator 是對外提供 Draw 的最小單位；Verifier 與 Bencher 分別承擔等價驗證與吞吐測試。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Lab 建立 Runtime，Runtime 以套件池對外提供 Draw。
//   - 驗證/測速（CLI）：由 Lab 建立 Verifier / Bencher 進行大量比對與測速。
//
// 注意：此套實驗室目前以 MT19937 族引擎為中心（Draw -> Result），不是泛用亂數框架。
package mtlab

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/mtlab/catalog"
	"github.com/zintix-labs/mtlab/corefmt"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 為什麼是 fs.FS：
//   - 你可以用 go:embed 把 configs 直接編進 binary（部署最穩定，不依賴工作目錄）。
//   - 也可以用 os.DirFS 在本機開發時讀取目錄。
//   - 甚至可以用自製的 MultiFS 來合併多個來源。
//
// Lab 不解析「路徑」：它只依賴 fs.FS + ConfigName（檔名）來取得設定內容。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Engines 用來把一或多個引擎註冊表（EngineRegistry）打包成 New() 需要的參數。
//
// 一個 EngineRegistry 代表「一組引擎」提供的 factories 集合。
// 例如：
//   - core.BuiltinEngines() 提供 mt19937 / mtref / pcg64 / splitmix64
//   - 自訂 registry 可以再掛上實驗性引擎
//
// New() 會把多個 registries 合併成單一 registry；若出現重複 EngineKey，會以 error 直接失敗（避免行為不確定）。
func Engines(regs ...*core.EngineRegistry) []*core.EngineRegistry {
	return regs
}

// Lab 是「組裝器（assembler）」與「運行入口（runtime entry）」：
//
// 它把三個必需的地基組合起來：
//  1. Catalog：套件目錄（Single Source of Truth / SSOT），定義有哪些套件、各自對應的設定檔名稱。
//  2. EngineRegistry：引擎註冊表，提供「如何依據設定（EngineKey）建出亂數引擎」的 factories。
//  3. Golden FS：金樣向量來源，套件啟用 self_check 時每次建 Generator 都會重放比對。
//
// Lab 本身不綁定任何「檔案路徑」概念：設定檔與金樣來源一律由 fs.FS 提供。
//
// 使用流程通常分成兩階段：
//   - 註冊/組裝階段（registration/build）：建立 catalog、合併 registries、檢查重複與缺漏。
//   - 執行階段（runtime）：依據套件 ID 產生 Generator / Verifier / Bencher，或建立 Runtime 對外服務。
//
// 重要設計原則：
//   - Catalog 的 ID 唯一性只保證在「同一個 Lab instance」內（不同 Lab 之間不做全域保證）。
//   - 你要跑哪一批套件、哪一套設定檔、哪一批引擎，必須由 New() 的參數明確決定。
//   - runtime 一旦開始（例如已建立 Runtime 並對外服務），不建議再變更 Catalog/Registry（避免非預期行為）。
//
// 實務例子（概念示意，細節依你的實作為準）：
//
//	// 1) 準備 configs（通常是 go:embed 或 DirFS）
//	// 2) 準備一或多個 EngineRegistry（內建引擎 + 自訂引擎）
//	// 3) 組裝 Lab，取得可建立 Generator 的入口
//	//	lab, _ := mtlab.New(mtlab.Engines(reg), mtlab.Configs(cfgFS), goldenFS)
//	//	g, _ := lab.NewGenerator(1)
//	//	// g.Draw(...) -> 取得結果（通常再轉成 DTO 回傳）
type Lab struct {
	cat    *catalog.Catalog
	reg    *core.EngineRegistry
	golden fs.FS
	sum    []catalog.Summary
}

// New 建立一個 Lab instance。
//
// 這是「組裝階段（registration/build）」的入口：
//   - 會建立 Catalog（通常同時做檔名存在性/重複性檢查，避免 runtime 才爆）。
//   - 會合併多個 EngineRegistry 成為單一 registry（重複 EngineKey 直接視為錯誤）。
//   - 會保存 golden fs.FS，確保由這個 Lab 建出來的 Generator 在自檢行為上具有一致性。
//
// 參數要求（是合約的一部分）：
//   - engines 至少一個：沒有引擎 factories，就算解析出設定也建不出可執行的亂數核心。
//   - cfgs 至少一個：沒有設定檔來源，Catalog 無法解析 SuiteSetting。
//   - golden 可以為 nil：只有套件開啟 golden_setting.self_check 時才需要。
//
// 回傳的 Lab 會持有：cat（目錄）、reg（合併後 registry）、golden（金樣來源）。
func New(engines []*core.EngineRegistry, cfgs []fs.FS, golden fs.FS) (*Lab, error) {
	if len(engines) == 0 {
		return nil, errs.NewFatal("engine registry required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	reg, err := core.MergeEngineRegistry(engines...)
	if err != nil {
		return nil, err
	}
	lab := &Lab{
		cat:    cata,
		reg:    reg,
		golden: golden,
	}
	return lab, nil
}

// NewAuto 建立一個直接進入執行階段的 Lab instance。
//
// 回傳的 Lab 會持有：cat（目錄）、reg（合併後 registry）、golden（金樣來源）。
func NewAuto(engines []*core.EngineRegistry, cfgs []fs.FS, golden fs.FS) (*Lab, error) {
	lab, err := New(engines, cfgs, golden)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (p *Lab) Register(ents ...catalog.Entry) error {
	return p.cat.Register(ents...)
}

// RegisterAll
//
// 會掃描 catalog 持有的設定檔來源（fs.FS），把所有可辨識的設定檔（.yaml/.yml/.json）嘗試解析成
// *spec.SuiteSetting，並用設定檔內宣告的 SuiteID/SuiteName 產生對應的 catalog.Entry 來批次註冊。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，都會立刻回傳 error（不會忽略、也不會繼續掃完）。
//  2. 原子性：只有當「全部檔案」都成功解析並通過基本檢查時，才會呼叫 Register(...) 一次性寫入。
//     因此不會出現只註冊了一半、導致 catalog 處於半完成狀態的情況。
//  3. 穩定性：會依檔名排序後再處理，確保行為 determinism（方便重現與除錯）。
//
// 注意：
//   - RegisterAll 只負責「把設定檔宣告的套件資訊放進 Catalog」。
//
// 引擎鍵（engine / reference / baseline）是否真的能建出核心，在這裡對著 EngineRegistry 先檢查一次，
// 建 Generator 時還會再各自把關一次。
func (p *Lab) RegisterAll() error {
	cfgs := p.cat.Cfg()
	sources := cfgs.Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 64)
	seenID := map[spec.SID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}

			base := filepath.Base(path)
			if strings.Contains(path, "/") && path != base {
				return errs.NewFatal(fmt.Sprintf("configs must be flat (nested path): %q", path))
			}
			if strings.HasPrefix(base, ".") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}

			var (
				ss   *spec.SuiteSetting
				serr error
			)
			switch ext {
			case ".yaml", ".yml":
				ss, serr = spec.GetSuiteSettingByYAML(raw)
			case ".json":
				ss, serr = spec.GetSuiteSettingByJSON(raw)
			default:
				return errs.NewFatal(fmt.Sprintf("unsupported config format: %q", base))
			}
			if serr != nil {
				return errs.NewFatal(fmt.Sprintf("parse suitesetting failed: %s", base))
			}

			name := strings.TrimSpace(ss.SuiteName)
			if name == "" {
				return errs.NewFatal(fmt.Sprintf("suite name required: %s", base))
			}

			id := ss.SuiteID
			if prev, ok := seenID[id]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate suite id: %d (config=%s and %s)", id, prev, base))
			}
			if _, ok := p.cat.GetByID(id); ok {
				return errs.NewFatal(fmt.Sprintf("suite id already registered: %d (config=%s)", id, base))
			}
			seenID[id] = base

			nameKey := strings.ToLower(name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate suite name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := p.cat.GetByName(name); ok {
				return errs.NewFatal(fmt.Sprintf("suite name already registered: %s (config=%s)", name, base))
			}
			seenName[nameKey] = base

			if !p.reg.IsExist(ss.Engine) {
				return errs.NewFatal(fmt.Sprintf("engine not registered: engine=%s (config=%s)", ss.Engine, base))
			}
			if ss.Verify.Enabled() && !p.reg.IsExist(ss.Reference) {
				return errs.NewFatal(fmt.Sprintf("reference not registered: reference=%s (config=%s)", ss.Reference, base))
			}
			if ss.Bench.Enabled() && ss.Bench.Baseline != "" && !p.reg.IsExist(ss.Bench.Baseline) {
				return errs.NewFatal(fmt.Sprintf("baseline not registered: baseline=%s (config=%s)", ss.Bench.Baseline, base))
			}
			if ss.Golden.SelfCheck {
				if p.golden == nil {
					return errs.NewFatal(fmt.Sprintf("golden fs required: self_check enabled (config=%s)", base))
				}
				for _, vec := range ss.Golden.Vectors {
					if _, verr := fs.Stat(p.golden, vec); verr != nil {
						return errs.NewFatal(fmt.Sprintf("golden vector not found: %s (config=%s)", vec, base))
					}
				}
			}

			entries = append(entries, catalog.Entry{
				SID:        id,
				Name:       name,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	return p.cat.Register(entries...)
}

func (p *Lab) Freeze() {
	p.cat.Freeze()
}

func (p *Lab) EntryById(id spec.SID) (catalog.Entry, bool) {
	return p.cat.GetByID(id)
}

func (p *Lab) EntryByName(name string) (catalog.Entry, bool) {
	return p.cat.GetByName(name)
}

func (p *Lab) IDs() []spec.SID {
	return p.cat.IDs()
}

func (p *Lab) All() []catalog.Entry {
	return p.cat.All()
}

// SuiteSettingById 取出套件設定（已 Freeze 後才可讀）。
// 回傳的是解析後的設定副本入口，呼叫端不應該改寫它。
func (p *Lab) SuiteSettingById(id spec.SID) (*spec.SuiteSetting, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return p.cat.SuiteSettingById(id)
}

func (p *Lab) Summary() ([]catalog.Summary, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if p.sum != nil {
		return p.sum, nil
	}
	ids := p.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ss, err := p.cat.SuiteSettingById(id)
		if err != nil {
			return nil, errs.NewFatal("parse suite setting failed")
		}
		s := catalog.Summary{
			SID:       id,
			Name:      ss.SuiteName,
			Engine:    ss.Engine,
			Reference: ss.Reference,
			Workloads: workloads(ss),
		}
		cs = append(cs, s)
	}
	p.sum = cs
	return p.sum, nil
}

// workloads 列出套件啟用的工作負載；draw 永遠在列（max_draws 是必填）。
func workloads(ss *spec.SuiteSetting) []string {
	ws := make([]string, 0, 3)
	if ss.Verify.Enabled() {
		ws = append(ws, "verify")
	}
	if ss.Bench.Enabled() {
		ws = append(ws, "bench")
	}
	ws = append(ws, "draw")
	return ws
}

// NewGenerator 依據 Catalog 內的套件 ID 建立一台 Generator。
//
// 行為：
//  1. 由 Catalog 取得對應的 SuiteSetting（通常來自 fs.FS 內的 YAML/JSON）。
//  2. 以 EngineRegistry 產生亂數核心（seed 由 crypto/rand 產生）。
//  3. 若套件開啟 golden_setting.self_check，建機時會先重放金樣向量做比對。
//
// 注意：seed 會被記錄在 Generator 內（initseed），用於追溯/重現；真正的可審計能力以 Core 的 Snapshot/Restore 合約為準。
func (p *Lab) NewGenerator(id spec.SID) (*Generator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ss, err := p.cat.SuiteSettingById(id)
	if err != nil {
		return nil, err
	}
	return newGenerator(ss, p.reg, p.golden)
}

// NewGeneratorWithSeed 與 NewGenerator 相同，但由呼叫端指定初始 seed。
//
// 使用情境：
//   - 可重現的測試：同一份設定 + 同一個 seed，應產生一致的隨機序列（取決於 Core 實作）。
//
// 注意：seed 只是「出生入口」。若要在任意時間點完整重現，請使用 Core 的 Snapshot/Restore（以 []byte 交換狀態）。
func (p *Lab) NewGeneratorWithSeed(id spec.SID, seed int64) (*Generator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ss, err := p.cat.SuiteSettingById(id)
	if err != nil {
		return nil, err
	}
	return newGeneratorWithSeed(ss, p.reg, seed, p.golden)
}

func (p *Lab) NewGeneratorByJSON(raw []byte, seed int64) (*Generator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSuiteSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newGeneratorWithSeed(cfg, p.reg, seed, p.golden)
}

func (p *Lab) NewGeneratorByYAML(raw []byte, seed int64) (*Generator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSuiteSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newGeneratorWithSeed(cfg, p.reg, seed, p.golden)
}

func (p *Lab) validCfg(cfg *spec.SuiteSetting) error {
	ent, ok := p.cat.GetByID(cfg.SuiteID)
	if !ok {
		return errs.NewWarn("sid not exist")
	}
	ent2, ok := p.cat.GetByName(cfg.SuiteName)
	if !ok {
		return errs.NewWarn("suite name not exist")
	}
	if ent.SID != ent2.SID {
		return errs.NewWarn("suite id is not matched suite name")
	}
	if !p.reg.IsExist(cfg.Engine) {
		return errs.NewWarn("engine not exist")
	}
	return nil
}

func (p *Lab) NewVerifier(id spec.SID) (*Verifier, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ss, err := p.cat.SuiteSettingById(id)
	if err != nil {
		return nil, err
	}
	return newVerifier(ss, p.reg)
}

func (p *Lab) NewVerifierByJSON(raw []byte) (*Verifier, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSuiteSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newVerifier(cfg, p.reg)
}

func (p *Lab) NewVerifierByYAML(raw []byte) (*Verifier, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSuiteSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newVerifier(cfg, p.reg)
}

func (p *Lab) NewBencher(id spec.SID) (*Bencher, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ss, err := p.cat.SuiteSettingById(id)
	if err != nil {
		return nil, err
	}
	return newBencher(ss, p.reg)
}

func (p *Lab) NewBencherWithSeed(id spec.SID, seed int64) (*Bencher, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ss, err := p.cat.SuiteSettingById(id)
	if err != nil {
		return nil, err
	}
	return newBencherWithSeed(ss, p.reg, seed)
}

func (p *Lab) NewBencherByJSON(raw []byte, seed int64) (*Bencher, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSuiteSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newBencherWithSeed(cfg, p.reg, seed)
}

func (p *Lab) NewBencherByYAML(raw []byte, seed int64) (*Bencher, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetSuiteSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newBencherWithSeed(cfg, p.reg, seed)
}

func (p *Lab) BuildRuntime(poolSize int) (*Runtime, error) {
	// 1. 進入 runtime 前，catalog 必須 Freeze
	p.Freeze()

	ids := p.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no suites registered")
	}

	rt := &Runtime{
		lab:      p,
		pools:    make(map[spec.SID]*GenPool, len(ids)),
		ids:      ids,
		done:     make(chan struct{}),
		poolSize: max(1, poolSize),
	}
	rt.reason.Store("")

	// 2. 先全建好（fail-fast + cleanup）
	for _, id := range ids {
		ss, err := p.cat.SuiteSettingById(id)
		if err != nil {
			return nil, err
		}

		n := rt.poolSize
		if ss.Draw.Pool > 0 {
			n = ss.Draw.Pool
		}
		seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		gp, err := newGenPool(n, ss, p.reg, seed.Int64(), p.golden)
		if err != nil {
			return nil, err
		}
		rt.pools[id] = gp
	}
	return rt, nil
}

// NewDevLab
//
// 注意只能由 Lab 起
// 只提供給 Dev 模式使用的實驗台，重點是保持單機台模式所以保持可重現性
func (p *Lab) NewDevLab(id spec.SID, seed int64) (*DevLab, error) {
	ss, err := p.cat.SuiteSettingById(id)
	if err != nil {
		return nil, err
	}
	g, err := p.NewGeneratorWithSeed(id, seed)
	if err != nil {
		return nil, err
	}
	g2, err := newGeneratorWithSeed(ss, p.reg, seed, p.golden)
	if err != nil {
		return nil, err
	}
	gBe, err := g.SnapshotCore()
	if err != nil {
		return nil, err
	}
	g2Be, err := g2.SnapshotCore()
	if err != nil {
		return nil, err
	}
	gBe64 := base64.StdEncoding.EncodeToString(gBe)
	g2Be64 := base64.StdEncoding.EncodeToString(g2Be)
	if gBe64 != g2Be64 {
		return nil, errs.NewFatal("seeds are not equal")
	}

	var v *Verifier
	if ss.Verify.Enabled() {
		v, err = p.NewVerifier(id)
		if err != nil {
			return nil, err
		}
	}
	dev := &DevLab{
		g:        g,
		v:        v,
		seed:     seed,
		before:   gBe,
		before64: corefmt.EncodeBase64URL(gBe),
	}
	return dev, nil
}
