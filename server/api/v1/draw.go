package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zintix-labs/mtlab"
	"github.com/zintix-labs/mtlab/dto"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/server/httperr"
	"github.com/zintix-labs/mtlab/server/svrcfg"
)

func (c *DrawHandler) Draw(w http.ResponseWriter, q *http.Request) {
	// 請求方法、結構體校驗
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeDrawRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// 請求解析完成，設置超時 context
	ctx := q.Context()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 開始 Draw
	result, err := c.rt.Draw(ctx, req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// Metrics 回報各套件 Generator 池的運行指標（池大小、在途、重建、panic 次數）。
func (c *DrawHandler) Metrics(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(c.rt.Metrics())
}

// ============================================================
// ** DrawHandler **
// ============================================================

type DrawHandler struct {
	rt *mtlab.Runtime
}

func NewDrawHandler(sCfg *svrcfg.SvrCfg) (*DrawHandler, error) {
	rt, err := sCfg.Lab.BuildRuntime(sCfg.PoolSize)
	if err != nil {
		return nil, errs.Wrap(err, "build draw handler error")
	}
	return &DrawHandler{rt: rt}, nil
}
