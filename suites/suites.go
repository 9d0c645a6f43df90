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

// Package suites 打包本倉內建的預設套件：
//   - suite_configs：套件設定 YAML（go:embed）
//   - golden：mt19937ar 參考向量（zstd JSON，go:embed）
//
// CLI 與 server 入口用這裡的組裝函式即可直接起一個完整的 Lab。
package suites

import (
	"github.com/zintix-labs/mtlab"
	"github.com/zintix-labs/mtlab/catalog"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/server/logger"
	"github.com/zintix-labs/mtlab/server/svrcfg"
	"github.com/zintix-labs/mtlab/suites/golden"
	"github.com/zintix-labs/mtlab/suites/suite_configs"
)

func New() (*catalog.Catalog, error) {
	return catalog.New(suite_configs.FS)
}

func NewServerConfig() (*svrcfg.SvrCfg, error) {
	lab, err := mtlab.NewAuto(
		mtlab.Engines(core.BuiltinEngines()),
		mtlab.Configs(suite_configs.FS),
		golden.FS,
	)
	if err != nil {
		return nil, errs.NewFatal("new mtlab failed:" + err.Error())
	}
	scfg := &svrcfg.SvrCfg{
		Log:      logger.NewDefaultAsyncLogger(logger.ModeDev),
		PoolSize: 1,
		Lab:      lab,
	}
	return scfg, nil
}

func NewLab() (*mtlab.Lab, error) {
	return mtlab.NewAuto(
		mtlab.Engines(core.BuiltinEngines()),
		mtlab.Configs(suite_configs.FS),
		golden.FS,
	)
}
