package v1

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strconv"

	"github.com/zintix-labs/mtlab"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/server/httperr"
	"github.com/zintix-labs/mtlab/spec"
	"github.com/zintix-labs/mtlab/stats"
)

type LabHandler struct {
	Lab *mtlab.Lab
}

func NewLabHandler(lab *mtlab.Lab) (*LabHandler, error) {
	return &LabHandler{Lab: lab}, nil
}

func (lh *LabHandler) Verify(w http.ResponseWriter, q *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type VerifyRequestBody struct {
		SID     spec.SID `json:"sid"`
		SeedLo  *uint32  `json:"seed_lo,omitempty"`
		SeedHi  *uint32  `json:"seed_hi,omitempty"`
		Draws   *int     `json:"draws,omitempty"`
		Workers int      `json:"workers"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type VerifyResponse struct {
		Stats    *stats.VerifyReport  `json:"stats"`
		Quality  *stats.QualityReport `json:"quality"`
		UsedTime int64                `json:"used_ms"`
	}
	// ---
	req := new(VerifyRequestBody)
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if q.Method == http.MethodGet {
		// sid
		if s := q.URL.Query().Get("sid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("sid must be non-negative integer"))
				return
			}
			req.SID = spec.SID(u)
		} else {
			// 直接空值
			httperr.Errs(w, errs.NewWarn("sid is required"))
			return
		}

		// seed_lo / seed_hi
		if s := q.URL.Query().Get("seed_lo"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed_lo must be uint32"))
				return
			}
			v := uint32(u)
			req.SeedLo = &v
		}
		if s := q.URL.Query().Get("seed_hi"); s != "" {
			u, err := strconv.ParseUint(s, 10, 32)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed_hi must be uint32"))
				return
			}
			v := uint32(u)
			req.SeedHi = &v
		}

		// draws
		if s := q.URL.Query().Get("draws"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("draws must be integer"))
				return
			}
			v := int(u)
			req.Draws = &v
		}

		// workers
		if s := q.URL.Query().Get("workers"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("workers must be integer"))
				return
			}
			req.Workers = int(u)
		}
	}
	if q.Method == http.MethodPost {
		if err := json.NewDecoder(q.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務檢驗
	_, ok := lh.Lab.EntryById(req.SID)
	if !ok {
		httperr.Errs(w, errs.NewWarn("sid not found"))
		return
	}
	if req.Workers < 0 {
		httperr.Errs(w, errs.NewWarn("workers must be non-negative integer"))
		return
	}
	// 覆蓋範圍必須成對；單邊覆蓋會讓另一邊靜默沿用套件設定造成誤會
	if (req.SeedLo == nil) != (req.SeedHi == nil) {
		httperr.Errs(w, errs.NewWarn("seed_lo and seed_hi must be provided together"))
		return
	}
	if req.Draws != nil && (*req.Draws < 1 || *req.Draws > 1000000) {
		httperr.Errs(w, errs.NewWarn("draws must be between 1 to 1,000,000"))
		return
	}

	v, err := lh.Lab.NewVerifier(req.SID)
	if err != nil {
		// 這裡的錯誤是來自mtlab 尊重錯誤分級
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build verifier err: %d", req.SID)))
		return
	}

	var (
		st   *stats.VerifyReport
		used = int64(0)
	)
	if req.SeedLo != nil || req.Draws != nil {
		// 任一覆蓋參數出現就走 span 入口；缺的參數補套件設定值
		ss, serr := lh.Lab.SuiteSettingById(req.SID)
		if serr != nil {
			httperr.Errs(w, serr)
			return
		}
		lo, hi := ss.Verify.SeedLo, ss.Verify.SeedHi
		if req.SeedLo != nil {
			lo, hi = *req.SeedLo, *req.SeedHi
		}
		draws := ss.Verify.Draws
		if req.Draws != nil {
			draws = *req.Draws
		}
		rep, ut, verr := v.VerifySpan(lo, hi, draws, req.Workers, false)
		if verr != nil {
			httperr.Errs(w, errs.Wrap(verr, "verify err"))
			return
		}
		st, used = rep, ut.Milliseconds()
	} else {
		rep, ut, verr := v.VerifyMP(req.Workers, false)
		if verr != nil {
			httperr.Errs(w, errs.Wrap(verr, "verify err"))
			return
		}
		st, used = rep, ut.Milliseconds()
	}

	resp := VerifyResponse{
		Stats:    st,
		Quality:  stats.EstimatorDrawQuality(st),
		UsedTime: used,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (lh *LabHandler) Bench(w http.ResponseWriter, r *http.Request) {
	// 內部結構 不影響外部 也不被外部使用
	type BenchRequestBody struct {
		SID  spec.SID `json:"sid"`
		Seed *int64   `json:"seed,omitempty"`
	}
	// 內部結構 不影響外部 也不被外部使用
	type BenchResponse struct {
		Report   *stats.BenchReport `json:"report"`
		UsedTime int64              `json:"used_ms"`
	}
	// ---
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req := new(BenchRequestBody)
	if r.Method == http.MethodGet {
		// sid
		if s := r.URL.Query().Get("sid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("sid must be non-negative integer"))
				return
			}
			req.SID = spec.SID(u)
		} else {
			httperr.Errs(w, errs.NewWarn("sid is required"))
			return
		}

		// seed
		if s := r.URL.Query().Get("seed"); s != "" {
			u, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httperr.Errs(w, errs.NewWarn("seed must be int64"))
				return
			}
			v := u
			req.Seed = &v
		}
	}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
	}
	// 業務邏輯判斷
	if _, ok := lh.Lab.EntryById(req.SID); !ok {
		httperr.Errs(w, errs.NewWarn("sid not found"))
		return
	}
	if req.Seed == nil {
		rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			httperr.Errs(w, errs.NewWarn("seed generate failed"))
			return
		}
		v := rnd.Int64()
		req.Seed = &v
	}
	// 取得bencher
	b, err := lh.Lab.NewBencherWithSeed(req.SID, *req.Seed)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("build bencher err: %d", req.SID)))
		return
	}
	rep, used, err := b.Bench(false)
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, fmt.Sprintf("bench err: %d", req.SID)))
		return
	}
	resp := &BenchResponse{
		Report:   rep,
		UsedTime: used.Milliseconds(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
