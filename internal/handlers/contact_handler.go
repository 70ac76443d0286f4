package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/serenablake/practice-site/internal/metrics"
	"github.com/serenablake/practice-site/internal/models"
	"github.com/serenablake/practice-site/internal/services"
)

// ContactHandler exposes visitor form sessions to a client-side renderer,
// which calls SetField on every change and re-renders from the returned
// state.
type ContactHandler struct {
	sessions *services.ContactSessions
	metrics  *metrics.Metrics
	captcha  captchaGate
	logger   logrus.FieldLogger
}

func NewContactHandler(sessions *services.ContactSessions, recaptcha *services.RecaptchaVerifier, m *metrics.Metrics, logger logrus.FieldLogger) *ContactHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "contact")
	return &ContactHandler{
		sessions: sessions,
		metrics:  m,
		captcha:  captchaGate{verifier: recaptcha, metrics: m, logger: logger},
		logger:   logger,
	}
}

func (h *ContactHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, form := h.sessions.Create()
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(models.ContactSessionResponse{
		ID:   id,
		Form: form.State(),
	}))
}

func (h *ContactHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, form, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.ContactSessionResponse{
		ID:   id,
		Form: form.State(),
	}))
}

func (h *ContactHandler) SetField(w http.ResponseWriter, r *http.Request) {
	id, form, ok := h.lookup(w, r)
	if !ok {
		return
	}

	field, known := models.ParseContactField(chi.URLParam(r, "field"))
	if !known {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Unknown field"))
		return
	}

	var req models.SetFieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if err := form.SetField(field, req.Value); err != nil {
		switch {
		case errors.Is(err, services.ErrFieldType):
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid value for "+string(field)))
		case errors.Is(err, services.ErrFormClosed):
			writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Session not found"))
		default:
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update field"))
		}
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.ContactSessionResponse{
		ID:   id,
		Form: form.State(),
	}))
}

func (h *ContactHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, form, ok := h.lookup(w, r)
	if !ok {
		return
	}

	valid := form.Validate()
	h.metrics.ObserveValidation(valid)

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.ContactSessionResponse{
		ID:    id,
		Valid: &valid,
		Form:  form.State(),
	}))
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, form, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req models.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}
	// The token is single use, so it is only verified for a form that
	// would be accepted.
	accepted, err := form.Precheck()
	if err == nil && accepted {
		if !h.captcha.check(w, r, req.RecaptchaToken) {
			return
		}
		accepted, err = form.Submit()
	}
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	h.metrics.ObserveValidation(accepted)
	state := form.State()
	resp := models.ContactSessionResponse{ID: id, Valid: &accepted, Form: state}
	if !accepted {
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(state.Errors.Strings(), resp))
		return
	}

	h.metrics.ObserveSubmission(metrics.OutcomeAccepted)
	h.logger.WithField("session_id", id).Info("contact session submitted")
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(resp))
}

func (h *ContactHandler) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSubmissionInProgress):
		h.metrics.ObserveSubmission(metrics.OutcomeInProgress)
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("Submission already in progress"))
	case errors.Is(err, services.ErrFormClosed):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Session not found"))
	default:
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to submit"))
	}
}

func (h *ContactHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if err := h.sessions.Delete(id); err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Session not found"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"message": "Session closed"}))
}

func (h *ContactHandler) lookup(w http.ResponseWriter, r *http.Request) (string, *services.ContactForm, bool) {
	id := chi.URLParam(r, "sessionId")
	form, err := h.sessions.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse("Session not found"))
		return "", nil, false
	}
	return id, form, true
}
