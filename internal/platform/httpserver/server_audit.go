package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	auditentities "midas/contexts/wallet-security/audit-log/domain/entities"
	auditerrors "midas/contexts/wallet-security/audit-log/domain/errors"
)

type auditEntryDTO struct {
	ID          string         `json:"id"`
	Timestamp   string         `json:"timestamp"`
	Operation   string         `json:"operation"`
	Amount      uint64         `json:"amount"`
	Destination string         `json:"destination,omitempty"`
	TxID        string         `json:"tx_id,omitempty"`
	Caller      string         `json:"caller,omitempty"`
	Success     bool           `json:"success"`
	ErrorText   string         `json:"error_text,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type auditListResponse struct {
	Status string          `json:"status"`
	Data   []auditEntryDTO `json:"data"`
}

type auditErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind := auditentities.OperationKind(query.Get("operation"))

	limit := 0
	offset := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeAuditError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	if offsetRaw := query.Get("offset"); offsetRaw != "" {
		parsed, err := strconv.Atoi(offsetRaw)
		if err != nil {
			writeAuditError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		offset = parsed
	}

	entries, err := s.audit.Service.History(r.Context(), kind, limit, offset)
	if err != nil {
		if errors.Is(err, auditerrors.ErrInvalidOperationKind) {
			writeAuditError(w, http.StatusBadRequest, "invalid_operation", err.Error())
			return
		}
		writeAuditError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	resp := auditListResponse{
		Status: "success",
		Data:   make([]auditEntryDTO, 0, len(entries)),
	}
	for _, entry := range entries {
		resp.Data = append(resp.Data, auditEntryDTO{
			ID:          entry.ID,
			Timestamp:   entry.Timestamp.UTC().Format(time.RFC3339),
			Operation:   string(entry.Operation),
			Amount:      entry.Amount,
			Destination: entry.Destination,
			TxID:        entry.TxID,
			Caller:      entry.Caller,
			Success:     entry.Success,
			ErrorText:   entry.ErrorText,
			Metadata:    entry.Metadata,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeAuditError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, auditErrorResponse{
		Code:    code,
		Message: message,
	})
}
