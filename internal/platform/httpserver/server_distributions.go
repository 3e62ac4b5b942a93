package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	distributionerrors "midas/contexts/treasury-core/claim-distribution/domain/errors"
	distributionhttp "midas/contexts/treasury-core/claim-distribution/transport/http"
)

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var req distributionhttp.DistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.distribution.Handler.DistributeHandler(r.Context(), req)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreviewDistribution(w http.ResponseWriter, r *http.Request) {
	var req distributionhttp.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDistributionError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.distribution.Handler.PreviewHandler(r.Context(), req)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRetryDistribution(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batch_id")
	resp, err := s.distribution.Handler.RetryHandler(r.Context(), batchID)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDistribution(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batch_id")
	resp, err := s.distribution.Handler.GetBatchHandler(r.Context(), batchID)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := distributionhttp.ListBatchesRequest{}
	if limitRaw := query.Get("limit"); limitRaw != "" {
		limit, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeDistributionError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		req.Limit = limit
	}
	if offsetRaw := query.Get("offset"); offsetRaw != "" {
		offset, err := strconv.Atoi(offsetRaw)
		if err != nil {
			writeDistributionError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		req.Offset = offset
	}

	resp, err := s.distribution.Handler.ListBatchesHandler(r.Context(), req)
	if err != nil {
		writeDistributionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeDistributionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, distributionerrors.ErrAlreadyProcessed):
		writeDistributionError(w, http.StatusConflict, "already_processed", err.Error())
	case errors.Is(err, distributionerrors.ErrBelowMinimumClaim):
		writeDistributionError(w, http.StatusUnprocessableEntity, "below_minimum_claim", err.Error())
	case errors.Is(err, distributionerrors.ErrNoEligibleRecipients):
		writeDistributionError(w, http.StatusUnprocessableEntity, "no_eligible_recipients", err.Error())
	case errors.Is(err, distributionerrors.ErrBatchNotFound):
		writeDistributionError(w, http.StatusNotFound, "batch_not_found", err.Error())
	case errors.Is(err, distributionerrors.ErrAllocationNotFound):
		writeDistributionError(w, http.StatusNotFound, "allocation_not_found", err.Error())
	case errors.Is(err, distributionerrors.ErrInvalidDistributeInput):
		writeDistributionError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeDistributionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDistributionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, distributionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
