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

// DrawWidth 定義抽號輸出形態
type DrawWidth int

const (
	WidthU32 DrawWidth = iota // 原生 32 位元輸出
	WidthI31                  // 去符號位輸出（libc 視角，每筆仍消耗一個 32 位元抽號）
	WidthF64                  // [0,1) 浮點輸出（53 位精度，每筆消耗兩個 32 位元抽號）
)

var drawWidthMap = map[string]DrawWidth{
	"u32": WidthU32,
	"i31": WidthI31,
	"f64": WidthF64,
}

var drawWidthNames = map[DrawWidth]string{
	WidthU32: "u32",
	WidthI31: "i31",
	WidthF64: "f64",
}

func ParseDrawWidth(s string) (DrawWidth, bool) {
	w, ok := drawWidthMap[s]
	return w, ok
}

// String 回傳設定檔使用的寬度字串；未知值回傳空字串。
func (w DrawWidth) String() string {
	return drawWidthNames[w]
}

// DrawCost 回傳每筆輸出消耗幾個底層 32 位元抽號。
func (w DrawWidth) DrawCost() int {
	if w == WidthF64 {
		return 2
	}
	return 1
}
