package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/ewd00010/bezout/pkg/euclid"
	"github.com/ewd00010/bezout/pkg/telemetry"
)

// strategyBoth asks for both variants in one response. It is the
// default: disagreement between the variants would be a defect, and
// running both surfaces that property on every request.
const strategyBoth = "both"

// computeRequest is the POST body. Operands travel as decimal strings
// because JSON numbers cannot carry the full uint64 range.
type computeRequest struct {
	A        string `json:"a"`
	B        string `json:"b"`
	Strategy string `json:"strategy,omitempty"`
}

// resultPayload carries one variant's triple. Gcd is a decimal string
// for the same reason the operands are.
type resultPayload struct {
	Gcd string `json:"gcd"`
	X   int64  `json:"x"`
	Y   int64  `json:"y"`
}

type computeResponse struct {
	A          string         `json:"a"`
	B          string         `json:"b"`
	Strategy   string         `json:"strategy"`
	Result     *resultPayload `json:"result,omitempty"`
	Iterative  *resultPayload `json:"iterative,omitempty"`
	Recursive  *resultPayload `json:"recursive,omitempty"`
	Equivalent *bool          `json:"equivalent,omitempty"`
	RequestID  string         `json:"request_id"`
}

// ErrorResponse defines the standard JSON error model returned by the API.
// It provides a stable machine-readable code alongside a human-readable
// message and the request correlation ID.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// handleExtGCD serves GET and POST /v1/extgcd.
func (s *Server) handleExtGCD(w http.ResponseWriter, r *http.Request) {
	requestID := extractRequestID(r)
	w.Header().Set("X-Request-ID", requestID)

	var rawA, rawB, rawStrategy string
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		rawA, rawB, rawStrategy = q.Get("a"), q.Get("b"), q.Get("strategy")
	case http.MethodPost:
		var req computeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be a JSON object", requestID)
			return
		}
		rawA, rawB, rawStrategy = req.A, req.B, req.Strategy
	default:
		w.Header().Set("Allow", "GET, POST")
		s.writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Use GET or POST", requestID)
		return
	}

	a, err := strconv.ParseUint(rawA, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_OPERAND", fmt.Sprintf("Operand a: %v", err), requestID)
		return
	}
	b, err := strconv.ParseUint(rawB, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_OPERAND", fmt.Sprintf("Operand b: %v", err), requestID)
		return
	}

	resp := computeResponse{
		A:         rawA,
		B:         rawB,
		RequestID: requestID,
	}

	norm := strings.TrimSpace(strings.ToLower(rawStrategy))
	switch norm {
	case "", strategyBoth:
		resp.Strategy = strategyBoth
		iter := s.computeOne(r, euclid.StrategyIterative, a, b)
		rec := s.computeOne(r, euclid.StrategyRecursive, a, b)
		equivalent := iter == rec
		if !equivalent {
			s.metrics.RecordMismatch()
			s.logger.Error("Variant mismatch",
				"a", rawA, "b", rawB,
				"iterative", iter, "recursive", rec,
				"request_id", requestID)
		}
		resp.Iterative = &iter
		resp.Recursive = &rec
		resp.Equivalent = &equivalent
	default:
		strategy, perr := euclid.ParseStrategy(norm)
		if perr != nil {
			s.writeError(w, http.StatusBadRequest, "INVALID_STRATEGY",
				fmt.Sprintf("Strategy %q is not one of iterative, recursive, both", rawStrategy), requestID)
			return
		}
		resp.Strategy = string(strategy)
		result := s.computeOne(r, strategy, a, b)
		resp.Result = &result
	}

	s.logger.Debug("Computed extended gcd",
		"a", rawA, "b", rawB, "strategy", resp.Strategy, "request_id", requestID)

	s.writeJSON(w, http.StatusOK, resp)
}

// computeOne runs a single variant and records its telemetry.
func (s *Server) computeOne(r *http.Request, strategy euclid.Strategy, a, b uint64) resultPayload {
	ctx := r.Context()

	start := time.Now()
	gcd, x, y := strategy.Compute(a, b)
	elapsed := time.Since(start)

	s.metrics.RecordComputation(string(strategy), "success", elapsed)
	telemetry.RecordCompute(ctx, telemetry.ComputeMetrics{
		Strategy: string(strategy),
		Source:   "http",
		Duration: elapsed,
	})
	telemetry.RecordComputeResult(trace.SpanFromContext(ctx), string(strategy), a, b, gcd, x, y)

	return resultPayload{
		Gcd: strconv.FormatUint(gcd, 10),
		X:   x,
		Y:   y,
	}
}

// extractRequestID extracts or generates a request ID with the following precedence:
// 1. X-Request-ID header
// 2. Generate new UUIDv4
func extractRequestID(r *http.Request) string {
	if headerID := r.Header.Get("X-Request-ID"); headerID != "" {
		return headerID
	}
	return uuid.New().String()
}

// writeJSON writes a JSON success response.
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, statusCode int, code, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: requestID,
	}); err != nil {
		s.logger.Error("failed to encode error response", "error", err)
	}
}
