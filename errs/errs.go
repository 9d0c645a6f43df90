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

// Package errs 提供 mtlab 全倉共用的分級錯誤型別。
//
// 設計動機：
//   - 驗證/基準/服務三條路徑都需要把「嚴重程度」往上傳遞：
//     參數不合法（Warn）與內部狀態毀損（Fatal）對呼叫端的意義完全不同。
//   - HTTP 層（server/httperr）依 Level 決定狀態碼；CLI 依 Level 決定退出碼。
//   - 因此錯誤在建立當下就定級，wrap 時沿用原級別，不在上層重新猜測。
package errs

import (
	"errors"
	"fmt"
)

// Level 標示錯誤嚴重程度，讓最上層不必解析訊息就能分流。
type Level uint8

const (
	None Level = iota
	Fatal
	Warn
	Log
)

// String 回傳級別的小寫名稱；未知級別回傳空字串。
func (l Level) String() string {
	switch l {
	case Fatal:
		return "fatal"
	case Warn:
		return "warn"
	case Log:
		return "log"
	default:
		return ""
	}
}

// E 是 mtlab 的統一錯誤型別。
//
// Message 為主訊息；Cause 串接底層錯誤（wrap）；Lv 為嚴重程度。
// 約定：
//   - Fatal：內部不變量被破壞（快照長度不符、目錄半完成等），呼叫端應中止。
//   - Warn：輸入可預期地不合法（seed 範圍顛倒、寬度未知等），呼叫端可修正重試。
//   - Log：只需記錄、不影響結果的情況。
type E struct {
	Message string
	Cause   error
	Lv      Level
}

// Error 實作 error 介面。
func (e *E) Error() string {
	s := fmt.Sprintf("errlv=%s %s", e.Lv.String(), e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(" (cause: %v)", e.Cause)
	}
	return s
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// New 以指定級別建立錯誤。
func New(lv Level, msg string) *E {
	return &E{Message: msg, Lv: lv}
}

func NewFatal(msg string) *E { return New(Fatal, msg) }

func NewWarn(msg string) *E { return New(Warn, msg) }

func NewLog(msg string) *E { return New(Log, msg) }

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

func Logf(format string, a ...any) *E {
	return NewLog(fmt.Sprintf(format, a...))
}

// Wrap 以給定訊息包裝底層錯誤。
//
// Level 規則：
//   - cause 已是 *E 時沿用其級別（嚴重度在最接近現場處定案，不在上層改寫）。
//   - cause 來自標準庫或三方依賴時一律視為 Fatal：未定級的錯誤不應被默默降級。
//
// 若該情境其實「可預期且可處理」，請直接用 NewWarn / Warnf 建立新錯誤，
// 而不是 Wrap 一個三方錯誤再期待上層把它當 Warn。
func Wrap(cause error, msg string) *E {
	lv := Fatal
	var e *E
	if errors.As(cause, &e) {
		lv = e.Lv
	}
	r := New(lv, msg)
	r.Cause = cause
	return r
}

// Wrapf 與 Wrap 相同，但訊息使用樣板格式化。
func Wrapf(cause error, format string, a ...any) *E {
	return Wrap(cause, fmt.Sprintf(format, a...))
}

// AsErr 嘗試把任意 error 還原成 *E。
func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return e, false
}
