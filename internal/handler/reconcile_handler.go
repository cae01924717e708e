package handler

import (
	"context"
	"encoding/json"
	"net/http"
)

// Triggerer は調整処理の実行要求を受け付けるインターフェース。
// reconcile.Schedulerが実装する。
type Triggerer interface {
	// Trigger は次の実行を要求する。既に要求が保留中の場合はfalseを返す。
	Trigger() bool
}

// Pinger はストアの疎通確認インターフェース。*sql.DBが実装する。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ReconcileHandler はワーカーのHTTPハンドラー。
type ReconcileHandler struct {
	trigger Triggerer
	db      Pinger
}

// NewReconcileHandler はReconcileHandlerを生成する。
func NewReconcileHandler(trigger Triggerer, db Pinger) *ReconcileHandler {
	return &ReconcileHandler{
		trigger: trigger,
		db:      db,
	}
}

type reconcileResponse struct {
	Status string `json:"status"`
}

// Reconcile は調整処理の早期実行を要求する。実行は非同期に行われる。
// POST /reconcile
func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	status := "queued"
	if !h.trigger.Trigger() {
		status = "already_queued"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(reconcileResponse{Status: status})
}

// Health はストアへの疎通を確認する。
// GET /health
func (h *ReconcileHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	writeJSONStatus(w, http.StatusOK, "ok")
}

func writeJSONStatus(w http.ResponseWriter, statusCode int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
