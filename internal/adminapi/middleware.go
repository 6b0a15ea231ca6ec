package adminapi

import (
	"net/http"
	"time"

	"github.com/ryxu-xo/euralink/internal/ids"
	"github.com/ryxu-xo/euralink/logger"
)

// requestLogMiddleware stamps every request with a short correlation id
// and logs method, path and latency once it completes.
func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := ids.Short()
		logger.Info("adminapi: request started",
			logger.String("reqId", reqID),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path))

		next.ServeHTTP(w, r)

		logger.Info("adminapi: request completed",
			logger.String("reqId", reqID),
			logger.Duration("latency", time.Since(start)))
	})
}
