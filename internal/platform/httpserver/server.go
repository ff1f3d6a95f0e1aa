package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	codeindex "daedalus/contexts/code-distribution/code-index"
	codeindexerrors "daedalus/contexts/code-distribution/code-index/domain/errors"
	codeindexhttp "daedalus/contexts/code-distribution/code-index/transport/http"
	distributor "daedalus/contexts/code-distribution/distributor"
	distributorerrors "daedalus/contexts/code-distribution/distributor/domain/errors"
	distributorhttp "daedalus/contexts/code-distribution/distributor/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "daedalus/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	codeIndex   codeindex.Module
	distributor distributor.Module
}

func New(
	codeIndexModule codeindex.Module,
	distributorModule distributor.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		codeIndex:   codeIndexModule,
		distributor: distributorModule,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/code-index/artifacts", s.handleRegisterArtifact)
	s.mux.HandleFunc("GET /v1/code-index/artifacts", s.handleListArtifacts)
	s.mux.HandleFunc("GET /v1/code-index/artifacts/{fingerprint}", s.handleGetArtifact)

	s.mux.HandleFunc("GET /v1/distributions", s.handleListDistributions)
	s.mux.HandleFunc("POST /v1/distributions", s.handleAddDistribution)
	s.mux.HandleFunc("GET /v1/distributions/{distributors_id}", s.handleGetDistribution)
	s.mux.HandleFunc("DELETE /v1/distributions/{distributors_id}", s.handleRemoveDistribution)
	s.mux.HandleFunc("POST /v1/distributions/{distributors_id}/instantiate", s.handleInstantiate)

	s.mux.HandleFunc("POST /v1/hooks/before-call", s.handleBeforeCall)
	s.mux.HandleFunc("POST /v1/hooks/after-call", s.handleAfterCall)

	s.mux.HandleFunc("GET /v1/instances/{address}", s.handleGetInstance)
}

func (s *Server) handleRegisterArtifact(w http.ResponseWriter, r *http.Request) {
	var req codeindexhttp.RegisterArtifactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCodeIndexError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.codeIndex.Handler.RegisterArtifactHandler(r.Context(), req)
	if err != nil {
		writeCodeIndexDomainError(w, err)
		return
	}
	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	offset := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeCodeIndexError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	if offsetRaw := query.Get("offset"); offsetRaw != "" {
		parsed, err := strconv.Atoi(offsetRaw)
		if err != nil {
			writeCodeIndexError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		offset = parsed
	}
	resp, err := s.codeIndex.Handler.ListArtifactsHandler(r.Context(), limit, offset)
	if err != nil {
		writeCodeIndexDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	resp, err := s.codeIndex.Handler.GetArtifactHandler(r.Context(), r.PathValue("fingerprint"))
	if err != nil {
		writeCodeIndexDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	resp, err := s.distributor.Handler.ListDistributionsHandler(r.Context())
	if err != nil {
		writeDistributorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddDistribution(w http.ResponseWriter, r *http.Request) {
	var req distributorhttp.AddDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.distributor.Handler.AddDistributionHandler(r.Context(), req)
	if err != nil {
		writeDistributorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetDistribution(w http.ResponseWriter, r *http.Request) {
	resp, err := s.distributor.Handler.GetDistributionHandler(r.Context(), r.PathValue("distributors_id"))
	if err != nil {
		writeDistributorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveDistribution(w http.ResponseWriter, r *http.Request) {
	if err := s.distributor.Handler.RemoveDistributionHandler(r.Context(), r.PathValue("distributors_id")); err != nil {
		writeDistributorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleInstantiate(w http.ResponseWriter, r *http.Request) {
	var req distributorhttp.InstantiateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDistributorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	resp, err := s.distributor.Handler.InstantiateHandler(r.Context(), r.PathValue("distributors_id"), req)
	if err != nil {
		writeInstantiateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleBeforeCall(w http.ResponseWriter, r *http.Request) {
	var req distributorhttp.CallCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.distributor.Handler.BeforeCallHandler(r.Context(), req)
	if err != nil {
		writeDistributorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAfterCall(w http.ResponseWriter, r *http.Request) {
	var req distributorhttp.AfterCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributorError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.distributor.Handler.AfterCallHandler(r.Context(), req)
	if err != nil {
		writeDistributorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.distributor.Handler.GetInstanceHandler(r.Context(), r.PathValue("address"))
	if err != nil {
		writeDistributorDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeCodeIndexDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, codeindexerrors.ErrArtifactNotFound):
		writeCodeIndexError(w, http.StatusNotFound, "artifact_not_found", err.Error())
	case errors.Is(err, codeindexerrors.ErrFingerprintConflict):
		writeCodeIndexError(w, http.StatusConflict, "fingerprint_conflict", err.Error())
	case errors.Is(err, codeindexerrors.ErrInvalidArtifactInput):
		writeCodeIndexError(w, http.StatusBadRequest, "invalid_artifact_input", err.Error())
	default:
		writeCodeIndexError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDistributorDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, distributorerrors.ErrDistributionNotFound),
		errors.Is(err, distributorerrors.ErrInstanceNotFound):
		writeDistributorError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, distributorerrors.ErrDistributionExists),
		errors.Is(err, distributorerrors.ErrInstanceExists):
		writeDistributorError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, distributorerrors.ErrInvalidInstance):
		writeDistributorError(w, http.StatusForbidden, "invalid_instance", err.Error())
	case errors.Is(err, distributorerrors.ErrInitializerNotFound),
		errors.Is(err, distributorerrors.ErrModuleNotHosted):
		writeDistributorError(w, http.StatusUnprocessableEntity, "unresolvable_reference", err.Error())
	case errors.Is(err, distributorerrors.ErrInvalidDistributorInput):
		writeDistributorError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeDistributorError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// writeInstantiateError keeps initializer failure reasons visible to callers
// instead of collapsing them into a generic internal error.
func writeInstantiateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, distributorerrors.ErrDistributionNotFound),
		errors.Is(err, distributorerrors.ErrInstanceExists),
		errors.Is(err, distributorerrors.ErrInitializerNotFound),
		errors.Is(err, distributorerrors.ErrModuleNotHosted),
		errors.Is(err, distributorerrors.ErrInvalidDistributorInput):
		writeDistributorDomainError(w, err)
	default:
		writeDistributorError(w, http.StatusUnprocessableEntity, "instantiation_failed", err.Error())
	}
}

func writeCodeIndexError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, codeindexhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeDistributorError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, distributorhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
