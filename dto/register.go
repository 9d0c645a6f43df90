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

package dto

import (
	"github.com/zintix-labs/mtlab/corefmt"
	"github.com/zintix-labs/mtlab/sdk/core"
)

var snapRenders = map[core.EngineKey]func([]byte) any{}

// RegisterSnapRender 註冊引擎快照的檢視函數。
// fn 收到 raw snapshot bytes，回傳可 JSON 序列化的檢視結構 (不傳函數會panic)
func RegisterSnapRender(key core.EngineKey, fn func([]byte) any) {
	if fn == nil {
		panic("RegisterSnapRender 必須傳入 渲染函數")
	}
	snapRenders[key] = fn
}

func renderSnapshot(key core.EngineKey, snap []byte) any {
	if fn, ok := snapRenders[key]; ok {
		return fn(snap)
	}
	return nil
}

// SnapInspect 是快照的對外檢視結構（dev/審計用）。
type SnapInspect struct {
	Engine   core.EngineKey `json:"engine"`
	Bytes    int            `json:"bytes"`
	SnapB64U string         `json:"snap_b64u"`
	View     any            `json:"view,omitempty"` // 引擎註冊的內部檢視（例如 MT 的 cursor 位置）
}

// NewSnapInspectDTO 把 raw snapshot 包成可對外輸出的檢視結構。
// 引擎若有註冊 snap render，View 會帶出內部狀態摘要。
func NewSnapInspectDTO(key core.EngineKey, snap []byte) SnapInspect {
	return SnapInspect{
		Engine:   key,
		Bytes:    len(snap),
		SnapB64U: corefmt.EncodeBase64URL(snap),
		View:     renderSnapshot(key, snap),
	}
}
