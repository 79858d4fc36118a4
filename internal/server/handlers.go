package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tabclean-cli/internal/analysis"
	"github.com/KaramelBytes/tabclean-cli/internal/logging"
	"github.com/KaramelBytes/tabclean-cli/internal/reader"
	"github.com/KaramelBytes/tabclean-cli/internal/utils"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleClean reads a delimited table from the body and returns the
// pipeline result. Query parameters: name (table identifier), delimiter
// (one character or "tab") and format ("json" or "markdown").
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context(), s.log)
	q := r.URL.Query()

	ropt := s.cfg.Read
	if d := q.Get("delimiter"); d != "" {
		c, err := parseDelimiter(d)
		if err != nil {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		ropt.Delimiter = c
	}
	format := q.Get("format")
	switch format {
	case "", "json", "markdown", "md":
	default:
		s.respondError(w, r, fmt.Errorf("unsupported format: %s (use json or markdown)", format), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, fmt.Errorf("request body exceeds %d bytes", tooBig.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("read body: %w", err), http.StatusBadRequest)
		return
	}

	t, err := reader.ReadDelimited(bytes.NewReader(body), ropt)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	name := "table"
	if n := q.Get("name"); n != "" {
		name = utils.Slug(n)
	}
	copt := s.cfg.Clean
	copt.Logger = log
	res, err := analysis.Clean(name, t, copt)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	log.Info("table cleaned",
		zap.String("table", name),
		zap.Int("rows_in", res.RowsIn),
		zap.Int("rows_out", res.Table.NumRows()),
		zap.Int("actions", len(res.Actions)),
	)

	if format == "markdown" || format == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, res.Markdown())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func parseDelimiter(d string) (rune, error) {
	if d == "tab" || d == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("invalid delimiter: %q (use one character or 'tab')", d)
	}
	c, _ := utf8.DecodeRuneInString(d)
	if c == '"' || c == '\r' || c == '\n' {
		return 0, fmt.Errorf("invalid delimiter: %q", d)
	}
	return c, nil
}

// respondError logs the failure and writes a JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	logging.FromContext(r.Context(), s.log).Warn("request error",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	respondJSON(w, status, ErrorResponse{Error: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
