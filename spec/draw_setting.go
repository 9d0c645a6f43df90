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

// DrawSetting 描述抽號服務端的限制。
//
// Fields:
//   - MaxDraws: 單一請求最多可取的筆數（防止超大 request 拖垮服務）
//   - Pool: 產生器池大小；0 代表交由執行端決定
//   - DefaultWidthStr: 請求未指定寬度時的預設輸出形態（u32 / i31 / f64）
type DrawSetting struct {
	MaxDraws        int       `yaml:"max_draws"     json:"max_draws"`
	Pool            int       `yaml:"pool"          json:"pool"`
	DefaultWidthStr string    `yaml:"default_width" json:"default_width"`
	DefaultWidth    DrawWidth `yaml:"-"             json:"-"`
	initFlag        bool
}

// Init 檢查設定並賦值
func (ds *DrawSetting) Init() error {
	// 檢查初始化旗標
	if ds.initFlag {
		return nil
	}
	// 檢查合法性
	if ds.MaxDraws <= 0 {
		return errs.NewFatal("draw_setting: max_draws must be positive")
	}
	if ds.Pool < 0 {
		return errs.NewFatal("draw_setting: negative pool")
	}
	// 解析預設寬度；留空視為 u32
	if ds.DefaultWidthStr == "" {
		ds.DefaultWidth = WidthU32
	} else {
		w, ok := ParseDrawWidth(ds.DefaultWidthStr)
		if !ok {
			return errs.Fatalf("draw_setting: unknown default_width %q", ds.DefaultWidthStr)
		}
		ds.DefaultWidth = w
	}
	ds.initFlag = true
	return nil
}
