// Package web serves the landing page and the booking form, both as
// server-rendered HTML and as a small JSON API for scripted clients.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/lightbounty/booking-site/internal/session"
	"github.com/lightbounty/booking-site/internal/submission"
	"github.com/lightbounty/booking-site/pkg/logging"
)

const (
	bookingAnchor = "/#booking"
	maxBodyBytes  = 64 << 10
)

// Controller is the part of submission.Controller the handlers drive.
type Controller interface {
	Current(ctx context.Context, sessionID string) (submission.State, error)
	UpdateField(ctx context.Context, sessionID, name, value string) (submission.State, error)
	Dismiss(ctx context.Context, sessionID string) (submission.State, error)
	Submit(ctx context.Context, sessionID string, edits ...submission.FieldEdit) (submission.State, error)
}

// Handler serves the booking site.
type Handler struct {
	ctrl       Controller
	contactURL string
	logger     *logging.Logger
}

// NewHandler creates a handler. contactURL is the Instagram link offered in
// the confirmation dialog.
func NewHandler(ctrl Controller, contactURL string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(contactURL) == "" {
		contactURL = defaultContactURL
	}
	return &Handler{ctrl: ctrl, contactURL: contactURL, logger: logger}
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Page renders the landing page for the visitor's current state.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	st, err := h.ctrl.Current(r.Context(), id)
	if err != nil {
		h.internalError(w, "load booking state", id, err)
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "index.html", newPageData(st, h.contactURL)); err != nil {
		h.internalError(w, "render page", id, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// SubmitForm handles the HTML form post and redirects back to the form.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if _, err := h.ctrl.Submit(r.Context(), id, formEdits(r)...); err != nil {
		h.internalError(w, "submit booking", id, err)
		return
	}
	http.Redirect(w, r, bookingAnchor, http.StatusSeeOther)
}

// DismissForm closes the confirmation dialog.
func (h *Handler) DismissForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if _, err := h.ctrl.Dismiss(r.Context(), id); err != nil {
		h.internalError(w, "dismiss confirmation", id, err)
		return
	}
	http.Redirect(w, r, bookingAnchor, http.StatusSeeOther)
}

// GetState returns the visitor's state as JSON.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	st, err := h.ctrl.Current(r.Context(), id)
	if err != nil {
		h.internalError(w, "load booking state", id, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PatchField updates one field from a {"name","value"} body.
func (h *Handler) PatchField(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var edit submission.FieldEdit
	if err := decodeJSON(w, r, &edit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if !knownField(edit.Name) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown field: " + edit.Name})
		return
	}
	st, err := h.ctrl.UpdateField(r.Context(), id, edit.Name, edit.Value)
	if err != nil {
		h.internalError(w, "update field", id, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type submitBody struct {
	Edits []submission.FieldEdit `json:"edits"`
}

// SubmitJSON submits the form, optionally applying edits first, and returns
// the settled state. An empty body submits the stored fields as they are.
func (h *Handler) SubmitJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var body submitBody
	if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	st, err := h.ctrl.Submit(r.Context(), id, body.Edits...)
	if err != nil {
		h.internalError(w, "submit booking", id, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := session.IDFromContext(r.Context())
	if !ok {
		h.logger.Error("request reached booking handler without a session")
		http.Error(w, "session required", http.StatusInternalServerError)
		return "", false
	}
	return id, true
}

func (h *Handler) internalError(w http.ResponseWriter, op, sessionID string, err error) {
	h.logger.Error("booking handler failed", "op", op, "session_id", sessionID, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// formEdits turns posted fields into edits. Fields absent from the post are
// left alone.
func formEdits(r *http.Request) []submission.FieldEdit {
	edits := make([]submission.FieldEdit, 0, len(submission.FieldNames))
	for _, name := range submission.FieldNames {
		if vals, ok := r.PostForm[name]; ok && len(vals) > 0 {
			edits = append(edits, submission.FieldEdit{Name: name, Value: vals[0]})
		}
	}
	return edits
}

func knownField(name string) bool {
	for _, f := range submission.FieldNames {
		if f == name {
			return true
		}
	}
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
