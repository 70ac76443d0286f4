package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/serenablake/practice-site/internal/metrics"
	"github.com/serenablake/practice-site/internal/models"
	"github.com/serenablake/practice-site/internal/services"
)

// InquiryDelivery hands an accepted inquiry to the practice under ticket.
type InquiryDelivery func(ticket string, payload models.ContactFields)

// InquiryHandler accepts a complete form in one request, for clients that
// keep the form state themselves.
type InquiryHandler struct {
	deliver InquiryDelivery
	metrics *metrics.Metrics
	captcha captchaGate
	logger  logrus.FieldLogger
}

func NewInquiryHandler(deliver InquiryDelivery, recaptcha *services.RecaptchaVerifier, m *metrics.Metrics, logger logrus.FieldLogger) *InquiryHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "inquiry")
	return &InquiryHandler{
		deliver: deliver,
		metrics: m,
		captcha: captchaGate{verifier: recaptcha, metrics: m, logger: logger},
		logger:  logger,
	}
}

func (h *InquiryHandler) SubmitInquiry(w http.ResponseWriter, r *http.Request) {
	var req models.InquiryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	ticket := services.NewInquiryTicket()
	form := services.NewContactForm(services.WithSink(services.SinkFunc(func(p models.ContactFields) {
		if h.deliver != nil {
			h.deliver(ticket, p)
		}
	})))
	defer form.Close()

	for _, f := range models.ContactFieldOrder {
		var v interface{} = req.Text(f)
		if f == models.FieldConsent {
			v = req.Consent
		}
		if err := form.SetField(f, v); err != nil {
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to read form"))
			return
		}
	}

	valid := form.Validate()
	h.metrics.ObserveValidation(valid)
	if !valid {
		h.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		state := form.State()
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(state.Errors.Strings(), nil))
		return
	}

	if !h.captcha.check(w, r, req.RecaptchaToken) {
		return
	}

	if accepted, err := form.Submit(); err != nil || !accepted {
		h.logger.WithError(err).WithField("ticket", ticket).Error("inquiry submit failed after validation")
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to send inquiry"))
		return
	}

	h.metrics.ObserveSubmission(metrics.OutcomeAccepted)
	h.logger.WithField("ticket", ticket).Info("inquiry accepted")
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.InquiryResponse{Ticket: ticket}))
}
