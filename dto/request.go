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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/mtlab/corefmt"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/sdk/buf"
	"github.com/zintix-labs/mtlab/spec"
)

type DrawRequest struct {
	UID       string   `json:"uid"`             // 唯一識別碼
	SuiteName string   `json:"suite"`           // 要抽號的套件
	SuiteId   spec.SID `json:"sid"`             // 套件編號
	Count     int      `json:"count"`           // 本批要抽幾筆
	Width     string   `json:"width,omitempty"` // 輸出形態(u32/i31/f64)；留空走套件預設
	Session   int      `json:"session"`         // 第幾段會話
	// StartState：由業務端帶入的引擎狀態（nil=新批；帶 start_b64u=回放/續抽）。
	StartState *StartState `json:"start_state,omitempty"`
}

// DecodeDrawRequest 會把 HTTP 請求解碼成 DrawRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（uid/suite/sid/count/width/session）。
//     注意：GET 建議僅用於「新批」或簡單測試；巢狀狀態（start_state）請使用 POST。
//   - POST：從 JSON body 反序列化（支援 start_state）。
//
// StartState（start_state）語意：
//   - start_state 缺省 / 為 null / 為空物件：視為「新批」。
//   - start_state.start_b64u 有值：視為「回放（replay）/ 續抽（resume/continue）」：
//   - 回放：帶入當初記錄的 start_b64u，可在相同輸入條件下重現該批輸出。
//   - 續抽：帶入上一批回傳的 after_b64u 作為新的 start_b64u，以延續 RNG 流水。
//   - 引擎的輸入只接受 start_b64u（Start）；after_b64u 只會出現在回應（DrawState），請求端不得自行填寫 after。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換，不做任何套件合法性校驗；
//     合法性（例如該 SID 是否存在、count 是否超限）應由上層（Generator/Runtime）決定。
//   - 為避免過大 body 影響服務，POST 會對 body 做大小限制（預設 1MiB）。
//   - POST 會開啟 DisallowUnknownFields()，對未知欄位採用嚴格拒絕，以避免靜默丟資料。
func DecodeDrawRequest(r *http.Request) (*DrawRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(DrawRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.UID = q.Get("uid")
		req.SuiteName = q.Get("suite")

		if s := q.Get("sid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 0)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid sid: %v", err))
			}
			req.SuiteId = spec.SID(u)
		}

		if s := q.Get("count"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid count: %v", err))
			}
			req.Count = v
		}

		req.Width = q.Get("width")

		if s := q.Get("session"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid session: %v", err))
			}
			req.Session = v
		}

		return req, nil

	case http.MethodPost:
		// 防止 body 過大（預設 1MiB）
		const maxBody = 1 << 20
		body := io.LimitReader(r.Body, maxBody)
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(req); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return req, nil

	default:
		return nil, fmt.Errorf("method not allowed")
	}
}

// StartState 是由業務端帶入的「引擎可恢復狀態」（可選）。
//
// 設計目標：
//   - 讓引擎維持純計算器（stateless / deterministic），而「可回放/可續抽」所需的狀態由業務端保存與回送。
//   - 新批：start_state 缺省即可；引擎以當下狀態續抽並在回應中回傳 Start/After。
//   - 回放（Replay）：業務端帶入當初記錄的 start_b64u，即可在相同輸入條件下重現該批輸出。
//   - 續抽（Resume/Continue，多段流程）：業務端把上一批回應的 after_b64u 當作下一批的 start_b64u 送入。
//
// 重要約束：
//   - Request 只允許提供 Start（start_b64u）；After（after_b64u）只會由引擎在 Response 回傳。
type StartState struct {
	// StartCoreSnapB64U：引擎的「起始快照」Base64URL（URL-safe base64）字串。
	//   - 缺省：視為新批（引擎沿用當下狀態）。
	//   - 有值：視為回放/續抽（引擎從該快照 restore）。
	// 注意：請求端不得提供 After；After 由引擎在回應中回傳，用於下一批續抽或審計存證。
	StartCoreSnapB64U string `json:"start_b64u,omitempty"`
}

func (ss *StartState) HasPayload() bool {
	if ss == nil {
		return false
	}
	return ss.StartCoreSnapB64U != ""
}

// Parse 把 wire 形式的 DrawRequest 轉成內部請求（base64url 快照解碼成 raw bytes）。
func (dr *DrawRequest) Parse() (*buf.DrawRequest, error) {
	var state *buf.StartState
	start := dr.StartState
	if start.HasPayload() {
		snap, err := corefmt.DecodeBase64URL(start.StartCoreSnapB64U)
		if err != nil {
			return nil, errs.NewWarn("core snap decode failed " + err.Error())
		}
		state = &buf.StartState{StartCoreSnap: snap}
	}

	req := &buf.DrawRequest{
		UID:        dr.UID,
		SuiteName:  dr.SuiteName,
		SuiteId:    dr.SuiteId,
		Count:      dr.Count,
		WidthStr:   dr.Width,
		Session:    dr.Session,
		StartState: state,
	}
	if dr.Width != "" {
		w, ok := spec.ParseDrawWidth(dr.Width)
		if !ok {
			return nil, errs.NewWarn(fmt.Sprintf("invalid width: %q", dr.Width))
		}
		req.Width = w
	}
	return req, nil
}
