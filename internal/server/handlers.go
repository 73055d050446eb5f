package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/bunrui/internal/cluster"
	"github.com/hyperjump/bunrui/internal/models"
	"github.com/hyperjump/bunrui/internal/normalize"
	"github.com/hyperjump/bunrui/internal/pooling"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	e := s.Extractor()
	opts := e.Options()
	resp := map[string]interface{}{
		"pooling":              string(e.Strategy()),
		"normalization":        string(e.Law()),
		"dimensions":           e.Dimensions(),
		"workers":              e.Workers(),
		"new_min":              opts.NewMin,
		"new_max":              opts.NewMax,
		"max_decimal_exponent": opts.MaxExponent,
		"text_input":           s.embedder != nil,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	var req models.PoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	strategy := s.Extractor().Strategy()
	if req.Strategy != "" {
		parsed, err := pooling.ParseStrategy(req.Strategy)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		strategy = parsed
	}
	s.logger.Debug("pool request", zap.String("strategy", string(strategy)), zap.Int("documents", len(req.Matrices)))
	vectors, err := pooling.Pool(req.Matrices, strategy)
	if err != nil {
		s.respondComputeError(w, r, "pooling failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.VectorsResponse{Vectors: vectors})
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req models.NormalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e := s.Extractor()
	law := e.Law()
	if req.Law != "" {
		parsed, err := normalize.ParseLaw(req.Law)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		law = parsed
	}
	opts := e.Options()
	if req.NewMin != nil || req.NewMax != nil {
		opts.NewMin, opts.NewMax = 0, 1
		if req.NewMin != nil {
			opts.NewMin = *req.NewMin
		}
		if req.NewMax != nil {
			opts.NewMax = *req.NewMax
		}
	}
	s.logger.Debug("normalize request", zap.String("law", string(law)), zap.Int("vectors", len(req.Vectors)))
	res, err := normalize.Apply(req.Vectors, law, opts)
	if err != nil {
		s.respondComputeError(w, r, "normalization failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.VectorsResponse{Vectors: res.Vectors, Divisors: res.Divisors})
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	var req models.FeatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	e := s.Extractor()
	var (
		set *models.FeatureSet
		err error
	)
	if len(req.Texts) > 0 {
		if s.embedder == nil {
			s.respondError(w, http.StatusNotImplemented, "text input not enabled")
			return
		}
		set, err = e.ExtractTexts(r.Context(), s.embedder, req.Texts)
	} else if req.Masks != nil {
		set, err = e.ExtractMasked(r.Context(), req.Matrices, req.Masks)
	} else {
		set, err = e.Extract(r.Context(), req.Matrices)
	}
	if err != nil {
		s.respondComputeError(w, r, "feature extraction failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, set)
}

func (s *Server) handleVariance(w http.ResponseWriter, r *http.Request) {
	var req models.VarianceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Cluster != nil {
		v, err := cluster.Variance(req.Vectors, req.Labels, req.Centers, *req.Cluster)
		if err != nil {
			s.respondComputeError(w, r, "cluster variance failed", err)
			return
		}
		s.respondJSON(w, http.StatusOK, models.VarianceResponse{Cluster: req.Cluster, Variance: &v})
		return
	}
	vs, err := cluster.Variances(req.Vectors, req.Labels, req.Centers)
	if err != nil {
		s.respondComputeError(w, r, "cluster variance failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.VarianceResponse{Variances: vs})
}

func (s *Server) handleOptimalK(w http.ResponseWriter, r *http.Request) {
	var req models.OptimalKRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sel, err := cluster.SelectK(req.Candidates, req.Silhouettes, req.VP)
	if err != nil {
		s.respondComputeError(w, r, "optimal k failed", err)
		return
	}
	s.logger.Debug("optimal k selected", zap.Int("index", sel.Index), zap.Int("k", sel.K), zap.Float64("gap", sel.Gap))
	s.respondJSON(w, http.StatusOK, sel)
}

// respondComputeError maps input taxonomy errors to 422 and anything else to 500.
func (s *Server) respondComputeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	reqID := middleware.GetReqID(r.Context())
	if models.IsInputError(err) {
		s.logger.Debug(msg, zap.String("request_id", reqID), zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.Error(msg, zap.String("request_id", reqID), zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Int("status", status), zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
