package router

import (
	"net/http"
	"strings"

	"receitas-ai/internal/pkg/common"

	"go.uber.org/zap"
)

// responseWriter 響應記錄器
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

// WriteHeader 實現 http.ResponseWriter 介面
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write 實現 http.ResponseWriter 介面
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// NormalizePath 去除結尾斜線；空路徑視為 "/"
func NormalizePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

// Wrap 在路由前正規化路徑，並攔截路由層以外的 panic
func Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		defer func() {
			if err := recover(); err != nil {
				common.LogError("Server panic recovered",
					zap.Any("error", err),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
				)
				if rw.wroteHeader {
					return
				}
				h := rw.Header()
				h.Set("Access-Control-Allow-Origin", "*")
				h.Set("Access-Control-Allow-Headers", "content-type,authorization")
				h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				common.WriteErrorResponse(rw, common.ErrInternalError)
			}
		}()

		if p := NormalizePath(r.URL.Path); p != r.URL.Path {
			r2 := r.Clone(r.Context())
			r2.URL.Path = p
			r2.URL.RawPath = ""
			r = r2
		}

		next.ServeHTTP(rw, r)
	})
}
