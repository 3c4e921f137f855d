// Package handler exposes the tournament service over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"casino-tournaments/internal/game"
	"casino-tournaments/internal/service"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("body must not be larger than %d bytes", maxBodyBytes)
		}
		return nil, err
	}
	return data, nil
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var typeError *json.UnmarshalTypeError
		var tooLarge *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &typeError):
			if typeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", typeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", typeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return fmt.Errorf("body contains unknown key %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		case errors.As(err, &tooLarge):
			return fmt.Errorf("body must not be larger than %d bytes", maxBodyBytes)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	js = append(js, '\n')

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(js); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func errorResponse(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: message, Kind: kind})
}

func badRequestResponse(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, "invalid_input", err.Error())
}

// serviceErrorResponse maps a service error to its status code by kind.
func serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var decodeErr *game.DecodeError
	if errors.As(err, &decodeErr) {
		badRequestResponse(w, err)
		return
	}

	kind := service.Kind(err)
	var status int
	switch kind {
	case "not_found":
		status = http.StatusNotFound
	case "invalid_input":
		status = http.StatusBadRequest
	case "invalid_state", "conflict":
		status = http.StatusConflict
	case "transient":
		status = http.StatusServiceUnavailable
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Internal server error")
		errorResponse(w, http.StatusInternalServerError, kind,
			"the server encountered a problem and could not process your request")
		return
	}

	if status == http.StatusServiceUnavailable {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Transient failure")
	}
	errorResponse(w, status, kind, err.Error())
}
