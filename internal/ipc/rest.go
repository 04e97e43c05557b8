/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package ipc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/playcore/internal/apierr"
)

type commandRequest struct {
	Command []any `json:"command"`
}

type propertyRequest struct {
	Data any `json:"data"`
}

// reply is the body of every API response. Error carries the error text,
// "success" included.
type reply struct {
	Error string `json:"error"`
	Data  any    `json:"data,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.engine.Done():
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "terminated"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Command) == 0 {
		writeCode(w, apierr.InvalidParameter, nil)
		return
	}
	args, err := commandArgs(req.Command)
	if err != nil {
		writeCode(w, apierr.InvalidParameter, nil)
		return
	}
	res, err := s.rest.Command(r.Context(), args...)
	writeCode(w, apierr.From(err, apierr.Command), res)
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	v, err := s.rest.GetProperty(r.Context(), chi.URLParam(r, "name"))
	writeCode(w, apierr.From(err, apierr.PropertyError), v)
}

func (s *Server) handleSetProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, apierr.InvalidParameter, nil)
		return
	}
	err := s.rest.SetProperty(r.Context(), chi.URLParam(r, "name"), req.Data)
	writeCode(w, apierr.From(err, apierr.PropertyError), nil)
}

func statusFor(code apierr.Code) int {
	switch code {
	case apierr.Success:
		return http.StatusOK
	case apierr.PropertyNotFound, apierr.OptionNotFound:
		return http.StatusNotFound
	case apierr.PropertyUnavailable:
		return http.StatusConflict
	case apierr.Uninitialized:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

func writeCode(w http.ResponseWriter, code apierr.Code, data any) {
	writeJSON(w, statusFor(code), reply{Error: apierr.String(code), Data: data})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

var errArgType = errors.New("command arguments must be scalars")

// commandArgs renders JSON arguments the way they would be typed.
func commandArgs(raw []any) ([]string, error) {
	args := make([]string, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case string:
			args[i] = x
		case bool:
			if x {
				args[i] = "yes"
			} else {
				args[i] = "no"
			}
		case float64:
			b, _ := json.Marshal(x)
			args[i] = string(b)
		default:
			return nil, errArgType
		}
	}
	return args, nil
}
