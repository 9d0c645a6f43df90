package v1

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/mtlab/recorder"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/stats"
)

type DrawQuality struct {
	Name string `json:"name"`
	// 二選一：十進位u32 或 8位hex字串
	Draws    []uint32 `json:"draws"`
	HexDraws []string `json:"hex_draws"`
}

func Quality(w http.ResponseWriter, r *http.Request) {
	// Post方法限定
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// 嘗試解析
	dq := new(DrawQuality)
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20) // 5MB
	if err := json.NewDecoder(r.Body).Decode(dq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// 對齊取值來源
	draws := dq.Draws
	if len(draws) == 0 && len(dq.HexDraws) > 0 {
		draws = make([]uint32, 0, len(dq.HexDraws))
		for _, h := range dq.HexDraws {
			u, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(h), "0x"), 16, 32)
			if err != nil {
				http.Error(w, "hex_draws must be 32-bit hex strings", http.StatusBadRequest)
				return
			}
			draws = append(draws, uint32(u))
		}
	}
	if len(draws) < 1 {
		http.Error(w, "draws must > 0", http.StatusBadRequest)
		return
	}
	if dq.Name == "" {
		dq.Name = "adhoc"
	}

	// 繞過New方法，自己構造 DrawRecorder (否則會出錯)
	rec := &recorder.DrawRecorder{
		SuiteName:    dq.Name,
		Engine:       core.EngineKey("external"),
		Reference:    core.EngineKey("external"),
		DrawsPerSeed: len(draws),
		Basic:        new(recorder.BasicRecord),
		Bits:         &recorder.BitRecord{Ones: make([]int64, 32)},
		Dist:         new(recorder.DistRecord),
		Capture:      &recorder.CaptureRecord{Items: make([]stats.Mismatch, 0)},
	}
	rec.Dist.Bucket = stats.Buckets.GetBucketByCount(16)
	rec.Dist.ValueCollect = make([]int64, 16)
	rec.Dist.MinDraw = math.MaxUint32

	for i, d := range draws {
		// 沒有參考序列可比 got==want 只累積品質統計
		rec.Record(0, i, d, d)
	}
	rec.EndSeed()
	st := rec.Done()
	st.Done()

	type QualityResponse struct {
		Stats   *stats.VerifyReport  `json:"stats"`
		Quality *stats.QualityReport `json:"quality"`
	}
	resp := QualityResponse{
		Stats:   st,
		Quality: stats.EstimatorDrawQuality(st),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
}
