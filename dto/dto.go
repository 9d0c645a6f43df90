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
	"fmt"

	"github.com/zintix-labs/mtlab/corefmt"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/sdk/buf"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
)

type DrawResult struct {
	SuiteName string         `json:"suite"`          // 套件名稱
	SuiteID   spec.SID       `json:"sid"`            // 套件編號
	Engine    core.EngineKey `json:"engine"`         // 產出本批的引擎
	Width     string         `json:"width"`          // 輸出形態(u32/i31/f64)
	Session   int            `json:"session"`        // 第幾段會話
	Count     int            `json:"count"`          // 本批筆數
	U32s      []uint32       `json:"u32s,omitempty"` // 32 位元輸出
	I31s      []int32        `json:"i31s,omitempty"` // 去符號位輸出
	F64s      []float64      `json:"f64s,omitempty"` // 浮點輸出
	XorFold   string         `json:"xorfold"`        // 全批 XOR 摺疊（8 位十六進位）
	State     DrawState      `json:"draw_state"`     // 批次狀態
}

type DrawState struct {
	StartCoreSnapB64U string `json:"start_b64u"` // 必回
	AfterCoreSnapB64U string `json:"after_b64u"` // 必回
}

// NewDrawResultDTO 把內部 DrawResult 轉成對外輸出結構。
//
// buf.DrawResult 是會被重用的 buffer，這裡必須深拷貝切片內容，
// DTO 一旦建出就與 buffer 完全脫鉤（呼叫端可安心把 buffer 還回池中）。
func NewDrawResultDTO(dr *buf.DrawResult) (DrawResult, error) {
	if dr == nil {
		return DrawResult{}, errs.NewWarn("draw result is nil")
	}
	state := DrawState{
		StartCoreSnapB64U: corefmt.EncodeBase64URL(dr.State.StartCoreSnap),
		AfterCoreSnapB64U: corefmt.EncodeBase64URL(dr.State.AfterCoreSnap),
	}

	dto := DrawResult{
		SuiteName: dr.SuiteName,
		SuiteID:   dr.SuiteId,
		Engine:    dr.Engine,
		Width:     dr.Width.String(),
		Session:   dr.Session,
		Count:     dr.DrawCount,
		XorFold:   foldHex(dr.XorFold),
		State:     state,
	}

	switch dr.Width {
	case spec.WidthI31:
		// i31 視角：U32s 內存的是遮罩後的值，轉成有號輸出
		if len(dr.U32s) > 0 {
			dto.I31s = make([]int32, len(dr.U32s))
			for i, v := range dr.U32s {
				dto.I31s[i] = int32(v)
			}
		}
	case spec.WidthF64:
		if len(dr.F64s) > 0 {
			dto.F64s = append([]float64(nil), dr.F64s...)
		}
	default:
		if len(dr.U32s) > 0 {
			dto.U32s = append([]uint32(nil), dr.U32s...)
		}
	}

	return dto, nil
}

// foldHex 以固定 8 位十六進位輸出 XOR 摺疊值（審計紀錄對齊用）。
func foldHex(v uint32) string {
	return fmt.Sprintf("%08x", v)
}
