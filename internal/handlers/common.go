package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/serenablake/practice-site/internal/metrics"
	"github.com/serenablake/practice-site/internal/middleware"
	"github.com/serenablake/practice-site/internal/models"
	"github.com/serenablake/practice-site/internal/services"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads an optional JSON body; an empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}

func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// captchaGate checks reCAPTCHA tokens on submit paths when a secret is
// configured, and lets everything through otherwise.
type captchaGate struct {
	verifier *services.RecaptchaVerifier
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
}

// verify returns a non-zero status and a message when the token is
// rejected.
func (g captchaGate) verify(r *http.Request, token string) (int, string) {
	if !g.verifier.Enabled() {
		return 0, ""
	}
	remoteIP := middleware.ClientIP(r)

	ctx, cancel := contextWithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	ok, reason, err := g.verifier.VerifyV2(ctx, token, remoteIP)
	if err != nil {
		g.logger.WithError(err).WithField("remote_ip", remoteIP).Error("recaptcha error")
		return http.StatusInternalServerError, "Failed to verify reCAPTCHA"
	}
	if !ok {
		g.metrics.ObserveSubmission(metrics.OutcomeCaptchaFailed)
		g.logger.WithFields(logrus.Fields{"remote_ip": remoteIP, "reason": reason}).Warn("recaptcha failed")
		return http.StatusForbidden, "reCAPTCHA verification failed"
	}
	return 0, ""
}

// check writes the JSON error and returns false when the token is rejected.
func (g captchaGate) check(w http.ResponseWriter, r *http.Request, token string) bool {
	if status, msg := g.verify(r, token); status != 0 {
		writeJSON(w, status, models.NewErrorResponse(msg))
		return false
	}
	return true
}
