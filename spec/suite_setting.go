package spec

import (
	"fmt"

	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/sdk/core"
)

// SID 是套件（suite）在 catalog 內的唯一編號。
type SID uint

// SuiteSetting 包含啟動一個實驗套件所需的所有高階設定。
//
// 一個套件綁定一顆引擎（engine）與一顆參考引擎（reference），
// 並描述三種工作負載的參數：驗證（verify）、吞吐測試（bench）、抽號服務（draw）。
type SuiteSetting struct {
	SuiteName string         `yaml:"suite_name"      json:"suite_name"`
	SuiteID   SID            `yaml:"suite_id"        json:"suite_id"`
	Engine    core.EngineKey `yaml:"engine"          json:"engine"`
	Reference core.EngineKey `yaml:"reference"       json:"reference"`
	Verify    VerifySetting  `yaml:"verify_setting"  json:"verify_setting"`
	Bench     BenchSetting   `yaml:"bench_setting"   json:"bench_setting"`
	Draw      DrawSetting    `yaml:"draw_setting"    json:"draw_setting"`
	Golden    GoldenSetting  `yaml:"golden_setting"  json:"golden_setting"`
	Fixed     map[string]any `yaml:"fixed"           json:"fixed"`
}

// init
func (ss *SuiteSetting) init() error {
	if err := ss.Verify.Init(); err != nil {
		return err
	}
	if err := ss.Bench.Init(); err != nil {
		return err
	}
	if err := ss.Draw.Init(); err != nil {
		return err
	}
	if err := ss.Golden.valid(); err != nil {
		return err
	}
	return ss.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
func (ss *SuiteSetting) valid() error {

	if ss.SuiteName == "" {
		return errs.NewFatal("empty suite_name")
	}

	// valid Engine
	if ss.Engine == "" {
		return errs.NewFatal(fmt.Sprintf("suite_name: %s err:empty engine", ss.SuiteName))
	}

	// 驗證套件必須指定參考引擎，否則沒有可比對的對象。
	// 引擎鍵是否真的註冊過，由上層（Lab）對著 EngineRegistry 檢查。
	if ss.Verify.Enabled() && ss.Reference == "" {
		return errs.NewFatal(fmt.Sprintf("suite_name: %s err:verify enabled but empty reference", ss.SuiteName))
	}
	if ss.Verify.Enabled() && ss.Reference == ss.Engine {
		return errs.NewFatal(fmt.Sprintf("suite_name: %s err:reference must differ from engine", ss.SuiteName))
	}

	return nil
}
