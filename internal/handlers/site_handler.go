package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/serenablake/practice-site/internal/metrics"
	"github.com/serenablake/practice-site/internal/models"
	"github.com/serenablake/practice-site/internal/services"
)

const sessionCookie = "contact_session"

// SiteHandler renders the practice page. The contact form on it posts back
// to SubmitContact, so the page works without JavaScript; the visitor's
// form state lives in a session named by a cookie.
type SiteHandler struct {
	content   *services.ContentService
	sessions  *services.ContactSessions
	templates *template.Template
	metrics   *metrics.Metrics
	captcha   captchaGate
	siteKey   string
	logger    logrus.FieldLogger
}

func NewSiteHandler(content *services.ContentService, sessions *services.ContactSessions, templates *template.Template, recaptcha *services.RecaptchaVerifier, m *metrics.Metrics, logger logrus.FieldLogger) *SiteHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "site")
	h := &SiteHandler{
		content:   content,
		sessions:  sessions,
		templates: templates,
		metrics:   m,
		captcha:   captchaGate{verifier: recaptcha, metrics: m, logger: logger},
		logger:    logger,
	}
	if recaptcha.Enabled() {
		h.siteKey = recaptcha.SiteKey
	}
	return h
}

type pageView struct {
	Content          models.SiteContent
	Form             models.ContactFormState
	Notice           string
	RecaptchaSiteKey string
	ResetSeconds     int
	Year             int
}

// Page renders the site with the visitor's current form state.
func (h *SiteHandler) Page(w http.ResponseWriter, r *http.Request) {
	state := models.ContactFormState{Errors: models.FieldErrors{}, State: models.StateIdle}
	if c, err := r.Cookie(sessionCookie); err == nil {
		if form, err := h.sessions.Get(c.Value); err == nil {
			state = form.State()
		}
	}
	h.render(w, http.StatusOK, state, "")
}

// SubmitContact handles the form post: every field is set from the body and
// the form is submitted.
func (h *SiteHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	var existing string
	if c, err := r.Cookie(sessionCookie); err == nil {
		existing = c.Value
	}
	id, form := h.sessions.GetOrCreate(existing)
	if id != existing {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   r.TLS != nil,
		})
	}

	for _, f := range models.ContactFieldOrder {
		var v interface{} = r.PostForm.Get(string(f))
		if f == models.FieldConsent {
			v = r.PostForm.Get(string(f)) != ""
		}
		if err := form.SetField(f, v); err != nil {
			h.logger.WithError(err).Error("set field from form post")
			http.Error(w, "failed to read form", http.StatusInternalServerError)
			return
		}
	}

	accepted, err := form.Precheck()
	if err == nil && accepted {
		if status, msg := h.captcha.verify(r, r.PostForm.Get("g-recaptcha-response")); status != 0 {
			h.render(w, status, form.State(), msg)
			return
		}
		accepted, err = form.Submit()
	}
	switch {
	case errors.Is(err, services.ErrSubmissionInProgress):
		h.metrics.ObserveSubmission(metrics.OutcomeInProgress)
		h.render(w, http.StatusConflict, form.State(), "Your message is already on its way.")
		return
	case err != nil:
		h.logger.WithError(err).Error("contact form submit")
		h.render(w, http.StatusInternalServerError, form.State(), "Something went wrong, please try again.")
		return
	}

	h.metrics.ObserveValidation(accepted)
	if !accepted {
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		h.render(w, http.StatusUnprocessableEntity, form.State(), "")
		return
	}
	h.metrics.ObserveSubmission(metrics.OutcomeAccepted)
	h.logger.WithField("session_id", id).Info("contact form posted")
	h.render(w, http.StatusOK, form.State(), "")
}

// Content returns the page content as JSON.
func (h *SiteHandler) Content(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(h.content.Content()))
}

func (h *SiteHandler) render(w http.ResponseWriter, status int, state models.ContactFormState, notice string) {
	view := pageView{
		Content:          h.content.Content(),
		Form:             state,
		Notice:           notice,
		RecaptchaSiteKey: h.siteKey,
		ResetSeconds:     int(services.ContactResetDelay / time.Second),
		Year:             time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "index.html", view); err != nil {
		h.logger.WithError(err).Error("render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
