/*
Package health implements HTTP endpoints reporting the indexer state.
*/
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mptindexer/mpt-indexer/pkg/config"
	"github.com/mptindexer/mpt-indexer/pkg/services/metrics"
	"github.com/mptindexer/mpt-indexer/pkg/util"
	json "github.com/nspcc-dev/go-ordered-json"
	"go.uber.org/zap"
)

// Endpoint paths.
const (
	HealthPath = "/health"
	RootPath   = "/root"
)

// StatusOK is the status of a healthy node.
const StatusOK = "ok"

// Source is the indexer state provider.
type Source interface {
	StateRoot() (util.Uint256, error)
	Len() int
}

// Status is the response of the health endpoint.
type Status struct {
	Status string       `json:"status"`
	Root   util.Uint256 `json:"root"`
	Keys   int          `json:"keys"`
	Error  string       `json:"error,omitempty"`
}

// RootResponse is the response of the root endpoint.
type RootResponse struct {
	Root util.Uint256 `json:"root"`
}

type handler struct {
	src Source
	log *zap.Logger
}

// NewHandler returns a handler serving health endpoints for src.
func NewHandler(src Source, log *zap.Logger) http.Handler {
	h := &handler{src: src, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc(HealthPath, h.onlyGet(h.health))
	mux.HandleFunc(RootPath, h.onlyGet(h.root))
	return mux
}

// NewService creates a health service listening on all configured addresses.
func NewService(cfg config.BasicService, src Source, log *zap.Logger) *metrics.Service {
	if log == nil {
		return nil
	}
	handler := NewHandler(src, log)
	addrs := cfg.GetAddresses()
	srvs := make([]*http.Server, len(addrs))
	for i, addr := range addrs {
		srvs[i] = &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return metrics.NewService("Health", srvs, cfg, log)
}

func (h *handler) onlyGet(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		f(w, r)
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	root, err := h.src.StateRoot()
	if err != nil {
		h.log.Warn("failed to get state root", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, Status{Status: "error", Error: err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, Status{Status: StatusOK, Root: root, Keys: h.src.Len()})
}

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	root, err := h.src.StateRoot()
	if err != nil {
		h.log.Warn("failed to get state root", zap.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.writeJSON(w, http.StatusOK, RootResponse{Root: root})
}

func (h *handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Debug("failed to write response", zap.Error(err))
	}
}

// Probe requests the health endpoint at url and returns the reported status.
// Any status other than StatusOK is an error.
func Probe(ctx context.Context, url string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	s := new(Status)
	if err := json.Unmarshal(body, s); err != nil {
		return nil, fmt.Errorf("bad response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || s.Status != StatusOK {
		return s, fmt.Errorf("node is unhealthy (HTTP %d): %s", resp.StatusCode, s.Error)
	}
	return s, nil
}
