package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/finflow/finflow/kit"
)

// Routes returns the HTTP API for the pipeline.
func (p *Pipeline) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(p.requestID)

	r.Get("/healthz", p.handleHealthz)
	r.Post("/v1/query", p.handleQuery)
	r.Post("/v1/metrics", p.handleMetrics)
	r.Post("/v1/compare", p.handleCompare)
	r.Delete("/v1/index", p.handleDropIndex)

	return r
}

func (p *Pipeline) handleHealthz(w http.ResponseWriter, r *http.Request) {
	n, err := p.getStore().Count(r.Context())
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok", "indexed_chunks": n})
}

type queryRequest struct {
	File   string `json:"file,omitempty"`
	Source string `json:"source"`
	Q      string `json:"q"`
}

func (req *queryRequest) validate() error {
	if strings.TrimSpace(req.Source) == "" && strings.TrimSpace(req.File) == "" {
		return errors.New("source or file is required")
	}
	if strings.TrimSpace(req.Source) == "" {
		req.Source = req.File
	}
	return nil
}

func (p *Pipeline) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, 400, err)
		return
	}
	if strings.TrimSpace(req.Q) == "" {
		writeError(w, 400, errors.New("q is required"))
		return
	}

	st, err := p.QuerySingle(r.Context(), SourceRef{File: req.File, Source: req.Source}, req.Q)
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]any{
		"answer_md": st.AnswerMD,
		"metrics":   st.Extracted,
		"retrieved": len(st.Retrieved),
		"index_ok":  st.IndexOK,
	})
}

func (p *Pipeline) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, 400, err)
		return
	}

	m, err := p.Metrics(r.Context(), SourceRef{File: req.File, Source: req.Source})
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, m)
}

type compareRequest struct {
	FileA   string `json:"file_a,omitempty"`
	SourceA string `json:"source_a"`
	FileB   string `json:"file_b,omitempty"`
	SourceB string `json:"source_b"`
}

func (p *Pipeline) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err)
		return
	}
	if (req.SourceA == "" && req.FileA == "") || (req.SourceB == "" && req.FileB == "") {
		writeError(w, 400, errors.New("source_a and source_b are required"))
		return
	}
	if req.SourceA == "" {
		req.SourceA = req.FileA
	}
	if req.SourceB == "" {
		req.SourceB = req.FileB
	}

	res, err := p.Compare(r.Context(),
		SourceRef{File: req.FileA, Source: req.SourceA},
		SourceRef{File: req.FileB, Source: req.SourceB})
	if err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, res)
}

func (p *Pipeline) handleDropIndex(w http.ResponseWriter, r *http.Request) {
	if err := p.DropIndex(r.Context()); err != nil {
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "dropped"})
}

// requestID tags each request with a correlation id (honoring an inbound
// X-Request-ID) and the transport, and echoes the id on the response.
func (p *Pipeline) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = newRequestID()
		}
		ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)
		w.Header().Set("X-Request-ID", id)

		next.ServeHTTP(w, r.WithContext(ctx))

		p.logger.Debug("request served",
			"id", kit.GetRequestID(ctx),
			"transport", kit.GetTransport(ctx),
			"method", r.Method,
			"path", r.URL.Path)
	})
}

func newRequestID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
