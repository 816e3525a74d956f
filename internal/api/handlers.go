package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arbor/internal/ports"
)

// maxBodyBytes bounds a request body; saved node content is the largest.
const maxBodyBytes = 8 << 20

// ErrorResponse is returned when a request does not reach the authority
// or the authority fails to complete it.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// operation decodes a request body and runs it against an authority.
type operation func(ctx context.Context, a ports.Authority, body []byte) (any, error)

// bind adapts an Authority method expression to an operation.
func bind[Req, Res any](call func(ports.Authority, context.Context, Req) (*Res, error)) operation {
	return func(ctx context.Context, a ports.Authority, body []byte) (any, error) {
		var req Req
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, &decodeError{err: err}
			}
		}
		return call(a, ctx, req)
	}
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return fmt.Sprintf("invalid request body: %v", e.err) }

var operations = map[string]operation{
	ports.OpRenderNode:        bind(ports.Authority.RenderNode),
	ports.OpInsertNode:        bind(ports.Authority.InsertNode),
	ports.OpCreateSubNode:     bind(ports.Authority.CreateSubNode),
	ports.OpDeleteNodes:       bind(ports.Authority.DeleteNodes),
	ports.OpMoveNodes:         bind(ports.Authority.MoveNodes),
	ports.OpSetNodePosition:   bind(ports.Authority.SetNodePosition),
	ports.OpSplitNode:         bind(ports.Authority.SplitNode),
	ports.OpSelectAllNodes:    bind(ports.Authority.SelectAllNodes),
	ports.OpInsertBook:        bind(ports.Authority.InsertBook),
	ports.OpInitNodeEdit:      bind(ports.Authority.InitNodeEdit),
	ports.OpSaveNode:          bind(ports.Authority.SaveNode),
	ports.OpSetNodeType:       bind(ports.Authority.SetNodeType),
	ports.OpDeleteProperty:    bind(ports.Authority.DeleteProperty),
	ports.OpGetNodePrivileges: bind(ports.Authority.GetNodePrivileges),
	ports.OpAddPrivilege:      bind(ports.Authority.AddPrivilege),
	ports.OpRemovePrivilege:   bind(ports.Authority.RemovePrivilege),
	ports.OpSetCipherKey:      bind(ports.Authority.SetCipherKey),
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// handleOperation runs one authority operation. Rejections by the
// authority are ordinary 200 responses with success=false.
func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "operation")
	op, ok := operations[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_operation", fmt.Sprintf("Unknown operation %q", name))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "Request body too large")
		return
	}

	user := userFrom(r.Context())
	res, err := op(r.Context(), s.authority.As(user), body)
	if err != nil {
		var de *decodeError
		if errors.As(err, &de) {
			writeError(w, http.StatusBadRequest, "invalid_request", de.Error())
			return
		}
		s.logger.Error("operation failed", "operation", name, "user", user, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "The operation could not be completed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
