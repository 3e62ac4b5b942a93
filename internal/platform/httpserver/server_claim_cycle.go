package httpserver

import (
	"errors"
	"net/http"

	claimererrors "midas/contexts/treasury-core/fee-claimer/domain/errors"
	claimerhttp "midas/contexts/treasury-core/fee-claimer/transport/http"
)

func (s *Server) handleRunClaimCycle(w http.ResponseWriter, r *http.Request) {
	resp, err := s.claimer.Handler.RunCycleHandler(r.Context())
	if err != nil {
		writeClaimerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeClaimerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, claimererrors.ErrCycleAlreadyRunning):
		writeClaimerError(w, http.StatusConflict, "cycle_already_running", err.Error())
	case errors.Is(err, claimererrors.ErrMasterKeyUnavailable):
		writeClaimerError(w, http.StatusServiceUnavailable, "master_key_unavailable", err.Error())
	default:
		writeClaimerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeClaimerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, claimerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
