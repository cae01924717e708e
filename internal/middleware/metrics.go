package middleware

import "net/http"

// StatusObserver はレスポンスのステータスコードを受け取るインターフェース。
// metrics.Collectorが実装する。
type StatusObserver interface {
	RecordHTTPStatus(statusCode int)
}

// NewMetricsMiddleware はレスポンスのステータスコードをobserverに記録するミドルウェアを返す。
func NewMetricsMiddleware(observer StatusObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			observer.RecordHTTPStatus(rec.statusCode)
		})
	}
}
