package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/server/httperr"
)

// Suites 列出目錄內所有套件的摘要（引擎、參考實作、啟用的工作負載）
func (lh *LabHandler) Suites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sum, err := lh.Lab.Summary()
	if err != nil {
		httperr.Errs(w, errs.Wrap(err, "summary err"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sum)
}
