package middleware

import (
	"net/http"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// Recover 攔截 handler panic 回 500。
// 抽號 handler 不該 panic；會走到這裡的多半是引擎註冊設定錯誤。
func Recover(next http.Handler) http.Handler {
	return chimid.Recoverer(next)
}
