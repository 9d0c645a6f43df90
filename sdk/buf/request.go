package buf

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/spec"
)

type DrawRequest struct {
	UID       string         `json:"uid"`     // 唯一識別碼
	SuiteName string         `json:"suite"`   // 要抽號的套件
	SuiteId   spec.SID       `json:"sid"`     // 套件編號
	Count     int            `json:"count"`   // 本批要抽幾筆
	WidthStr  string         `json:"width"`   // 輸出形態(u32/i31/f64)；留空走套件預設
	Session   int            `json:"session"` // 第幾段會話
	Width     spec.DrawWidth `json:"-"`       // 由解碼層解析（WidthStr 為空時由 Generator 補套件預設）
	// StartState 僅由 dto 解碼層填入（wire 形式為 base64url 字串）。
	// 這裡的簡易解碼器只處理平面欄位；帶快照的請求請走 POST + dto。
	StartState *StartState `json:"-"`
}

// StartState 是由業務端帶入的「引擎可恢復狀態」（可選）。
//
//   - 新批：StartState 缺省即可；Generator 以引擎當下狀態續抽，
//     並在回應中回傳 Start/After 快照。
//   - 回放（Replay）：帶入當初記錄的 start 快照，可在相同輸入條件下重現該批輸出。
//   - 續抽（Resume/Continue）：帶入上一批回應的 after 快照作為新的 start，
//     以延續同一條 RNG 流水。
type StartState struct {
	StartCoreSnap []byte // 解碼後的引擎快照（MT19937 為 2500 bytes）
}

func (ss *StartState) HasPayload() bool {
	if ss == nil {
		return false
	}
	return len(ss.StartCoreSnap) != 0
}

// DecodeDrawRequest 會把 HTTP 請求解碼成 DrawRequest。
//
// 支援：
//   - GET：從 query string 讀取參數（uid/suite/sid/count/width/session)。
//   - POST：從 JSON body 反序列化。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換，不做任何套件合法性校驗；
//     合法性（例如該 SID 是否存在、count 是否超限）應由上層（Generator/Runtime）決定。
//   - 為避免過大 body 影響服務，POST 會對 body 做大小限制（預設 1MiB）。
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

		req.WidthStr = q.Get("width")

		if s := q.Get("session"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid session: %v", err))
			}
			req.Session = v
		}

		if err := req.parseWidth(); err != nil {
			return nil, err
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
		if err := req.parseWidth(); err != nil {
			return nil, err
		}
		return req, nil

	default:
		return nil, fmt.Errorf("method not allowed")
	}
}

// parseWidth 解析 WidthStr；留空不動作（由 Generator 決定套件預設）。
func (dr *DrawRequest) parseWidth() error {
	if dr.WidthStr == "" {
		return nil
	}
	w, ok := spec.ParseDrawWidth(dr.WidthStr)
	if !ok {
		return errs.NewWarn(fmt.Sprintf("invalid width: %q", dr.WidthStr))
	}
	dr.Width = w
	return nil
}
