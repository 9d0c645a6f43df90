package core

import (
	"fmt"
	"slices"

	"github.com/zintix-labs/mtlab/errs"
)

// EngineKey 識別一個已註冊的亂數引擎（設定檔以此字串指定引擎）。
type EngineKey string

const (
	EngineMT19937 EngineKey = "mt19937"    // 主力引擎（三段展開 twist）
	EngineMTRef   EngineKey = "mt19937ref" // 差分對照（模運算原式）
	EnginePCG32   EngineKey = "pcg32"      // 基準對照（32-bit 原生）
	EnginePCG64   EngineKey = "pcg64"      // 基準對照（64-bit 原生）
)

// EngineRegistry 管理「引擎名稱 -> PRNGFactory」的對應。
//
// 與設定檔的關係：SuiteSetting 以字串指定 engine / reference，
// Lab 組裝時透過本表把字串換成工廠；查無此名是組裝期錯誤，不會拖到執行期。
type EngineRegistry struct {
	factories map[EngineKey]PRNGFactory
}

func NewEngineRegistry() *EngineRegistry {
	return &EngineRegistry{
		factories: make(map[EngineKey]PRNGFactory, 8),
	}
}

func (r *EngineRegistry) Register(key EngineKey, f PRNGFactory) error {
	if key == "" {
		return errs.NewFatal("engine key required")
	}
	if f == nil {
		return errs.NewFatal("engine factory required")
	}
	if _, ok := r.factories[key]; ok {
		return errs.Fatalf("duplicate engine factory: %s", key)
	}
	r.factories[key] = f
	return nil
}

// Get 取得指定引擎的工廠。
func (r *EngineRegistry) Get(key EngineKey) (PRNGFactory, bool) {
	f, ok := r.factories[key]
	return f, ok
}

// Build 以指定引擎與 seed 直接建出 PRNG。
func (r *EngineRegistry) Build(key EngineKey, seed int64) (PRNG, error) {
	f, ok := r.factories[key]
	if !ok {
		return nil, errs.NewFatal(fmt.Sprintf("engine is not exist: %s", key))
	}
	return f.New(seed), nil
}

func (r *EngineRegistry) IsExist(key EngineKey) bool {
	_, ok := r.factories[key]
	return ok
}

// Keys 回傳已排序的引擎名稱列表（排序確保列舉行為 determinism）。
func (r *EngineRegistry) Keys() []EngineKey {
	ks := make([]EngineKey, 0, len(r.factories))
	for k := range r.factories {
		ks = append(ks, k)
	}
	slices.Sort(ks)
	return ks
}

// MergeEngineRegistry 合併多份註冊表為新表。
//
// 工廠值無法比較（function/struct 指標），重複 key 一律視為錯誤，
// 避免「後者蓋前者」造成不確定行為。
func MergeEngineRegistry(regs ...*EngineRegistry) (*EngineRegistry, error) {
	er := NewEngineRegistry()

	origin := make(map[EngineKey]int, 8)

	for i, r := range regs {
		if r == nil {
			continue
		}
		for key, f := range r.factories {
			if _, ok := er.factories[key]; ok {
				prev := origin[key]
				return nil, errs.NewFatal(fmt.Sprintf("duplicate engine key %s (registry #%d and #%d)", key, prev, i))
			}
			er.factories[key] = f
			origin[key] = i
		}
	}

	return er, nil
}

// BuiltinEngines 回傳內建四顆引擎的註冊表；一般情境用這個就夠了。
func BuiltinEngines() *EngineRegistry {
	r := NewEngineRegistry()
	_ = r.Register(EngineMT19937, &MT19937Factory{})
	_ = r.Register(EngineMTRef, &MTRefFactory{})
	_ = r.Register(EnginePCG32, &PCG32Factory{})
	_ = r.Register(EnginePCG64, &PCG64Factory{})
	return r
}
