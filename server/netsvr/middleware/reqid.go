package middleware

import (
	"net/http"
	"strings"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// RequestID 沿用 chi 的請求編號。抽號請求量大，access log 只記編號的數字尾段。
func RequestID(next http.Handler) http.Handler {
	return chimid.RequestID(next)
}

func GetReqId(r *http.Request) string {
	return chimid.GetReqID(r.Context())
}

// GetReqIdNumPart 取請求編號最後一段，給 access log 當 req_id 用。
func GetReqIdNumPart(r *http.Request) string {
	str := chimid.GetReqID(r.Context())
	if len(str) == 0 {
		return ""
	}
	i := strings.LastIndex(str, "-")
	if i < 0 || i+1 >= len(str) {
		return str
	}
	return str[i+1:]
}
