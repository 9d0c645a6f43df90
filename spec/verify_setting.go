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

package spec

import "github.com/zintix-labs/mtlab/errs"

// VerifySetting 描述差分驗證（引擎 vs 參考引擎）的掃描範圍。
//
// Fields:
//   - SeedLo / SeedHi: 種子掃描範圍（含兩端）
//   - Draws: 每顆種子比對的抽號筆數
//   - Workers: 平行工作者數量；0 代表交由執行端決定
//   - Capture: 每次掃描最多留存的不符樣本數；0 代表交由執行端決定
//   - CheckI31: 是否加驗 i31 視角的抽號節奏（確認遮罩不影響底層流水）
//
// Draws 為 0 代表此套件不啟用驗證（例如純 bench 套件）。
type VerifySetting struct {
	SeedLo    uint32 `yaml:"seed_lo"   json:"seed_lo"`
	SeedHi    uint32 `yaml:"seed_hi"   json:"seed_hi"`
	Draws     int    `yaml:"draws"     json:"draws"`
	Workers   int    `yaml:"workers"   json:"workers"`
	Capture   int    `yaml:"capture"   json:"capture"`
	CheckI31  bool   `yaml:"check_i31" json:"check_i31"`
	SeedCount int    `yaml:"-"         json:"-"`
	initFlag  bool
}

// Enabled 回傳此套件是否啟用驗證。
func (vs *VerifySetting) Enabled() bool {
	return vs.Draws > 0
}

// Init 檢查不合法的設定
func (vs *VerifySetting) Init() error {
	// 檢查初始化旗標
	if vs.initFlag {
		return nil
	}
	if !vs.Enabled() {
		vs.initFlag = true
		return nil
	}
	// 檢查合法性
	if vs.SeedHi < vs.SeedLo {
		return errs.NewFatal("verify_setting: seed_hi < seed_lo")
	}
	if vs.Workers < 0 {
		return errs.NewFatal("verify_setting: negative workers")
	}
	if vs.Capture < 0 {
		return errs.NewFatal("verify_setting: negative capture")
	}
	vs.SeedCount = int(uint64(vs.SeedHi-vs.SeedLo) + 1)
	vs.initFlag = true
	return nil
}
