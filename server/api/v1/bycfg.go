package v1

import (
	"crypto/rand"
	"encoding/json"
	"math"
	"math/big"
	"net/http"

	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/server/httperr"
	"github.com/zintix-labs/mtlab/stats"
)

// VerifyByCfg 傳入 JSON 套件設定 直接依設定內的 verify_setting 跑等價檢定
func (lh *LabHandler) VerifyByCfg(w http.ResponseWriter, r *http.Request) {
	type VerifyRequestByJson struct {
		SuiteSetting json.RawMessage `json:"cfg"`
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. decode request
	req := new(VerifyRequestByJson)
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20) // 5MB
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.Wrap(err, "json decode failed"))
		return
	}

	// 2. NewVerifier
	v, err := lh.Lab.NewVerifierByJSON(req.SuiteSetting)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	rep, _, err := v.VerifyMP(0, false)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// 3. 回傳Json
	type VerifyByCfgResponse struct {
		Stats   *stats.VerifyReport  `json:"stats"`
		Quality *stats.QualityReport `json:"quality"`
	}
	resp := VerifyByCfgResponse{
		Stats:   rep,
		Quality: stats.EstimatorDrawQuality(rep),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// BenchByCfg 傳入 JSON 套件設定 直接依設定內的 bench_setting 測速
func (lh *LabHandler) BenchByCfg(w http.ResponseWriter, r *http.Request) {
	type BenchRequestByJson struct {
		SuiteSetting json.RawMessage `json:"cfg"`
		Seed         *int64          `json:"seed,omitempty"`
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. decode request
	req := new(BenchRequestByJson)
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20) // 5MB
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httperr.Errs(w, errs.Wrap(err, "json decode failed"))
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

	// 2. NewBencher
	b, err := lh.Lab.NewBencherByJSON(req.SuiteSetting, *req.Seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	rep, _, err := b.Bench(false)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// 3. 回傳Json
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}
