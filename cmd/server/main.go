package main

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/serenablake/practice-site/internal/config"
	"github.com/serenablake/practice-site/internal/handlers"
	"github.com/serenablake/practice-site/internal/logging"
	"github.com/serenablake/practice-site/internal/metrics"
	appMiddleware "github.com/serenablake/practice-site/internal/middleware"
	"github.com/serenablake/practice-site/internal/models"
	"github.com/serenablake/practice-site/internal/services"
	"github.com/serenablake/practice-site/internal/web"
)

type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	content   *services.ContentService
	sessions  *services.ContactSessions
	mail      *services.MailSink
	recaptcha *services.RecaptchaVerifier
	templates *template.Template
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	a.sessions.Start()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      a.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.ServerAddress).Info("practice site listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := a.shutdown(ctx, srv); err != nil {
		logger.WithError(err).Error("graceful shutdown incomplete")
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newApp(cfg *config.Config, logger *logrus.Logger) (*app, error) {
	content, err := services.NewContentService(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	templates, err := web.Templates()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		content:   content,
		recaptcha: services.NewRecaptchaVerifier(cfg.RecaptchaSecret, cfg.RecaptchaSiteKey),
		templates: templates,
	}

	mailer := services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.ContactFromEmail, cfg.ContactToEmail)
	if mailer.Configured() {
		a.mail = services.NewMailSink(mailer, logger.WithField("component", "mail"))
	} else {
		logger.Warn("SendGrid not configured, inquiries are only logged")
	}

	sink := services.MultiSink{services.LogSink{Logger: logger.WithField("component", "submissions")}}
	if a.mail != nil {
		sink = append(sink, a.mail)
	}
	a.sessions = services.NewContactSessions(cfg.SessionTTL, logger, services.WithSink(sink))
	a.metrics = metrics.New(func() float64 { return float64(a.sessions.Len()) })
	if a.mail != nil {
		a.mail.OnSent(a.metrics.ObserveDelivery)
	}
	return a, nil
}

// deliverInquiry logs and mails a one-shot inquiry under its ticket.
func (a *app) deliverInquiry(ticket string, payload models.ContactFields) {
	a.logger.WithField("ticket", ticket).WithField("email", payload.Email).Info("inquiry received")
	if a.mail != nil {
		a.mail.Deliver(ticket, payload)
	}
}

func (a *app) router() http.Handler {
	siteHandler := handlers.NewSiteHandler(a.content, a.sessions, a.templates, a.recaptcha, a.metrics, a.logger)
	contactHandler := handlers.NewContactHandler(a.sessions, a.recaptcha, a.metrics, a.logger)
	inquiryHandler := handlers.NewInquiryHandler(a.deliverInquiry, a.recaptcha, a.metrics, a.logger)

	limiter := appMiddleware.NewRateLimiter(a.cfg.SubmitRatePerMinute, a.cfg.SubmitBurst)
	limitSubmits := limiter.Limit(func(*http.Request) {
		a.metrics.ObserveSubmission(metrics.OutcomeRateLimited)
	})

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if a.cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(appMiddleware.RequestLogger(a.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", a.metrics.Handler())

	r.Get("/", siteHandler.Page)
	r.With(limitSubmits).Post("/contact", siteHandler.SubmitContact)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders: []string{"Link"},
			MaxAge:         300,
		}))

		r.Get("/site", siteHandler.Content)
		r.With(limitSubmits).Post("/inquiries", inquiryHandler.SubmitInquiry)

		r.Route("/contact/sessions", func(r chi.Router) {
			r.Post("/", contactHandler.CreateSession)

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", contactHandler.GetSession)
				r.Delete("/", contactHandler.DeleteSession)
				r.Put("/fields/{field}", contactHandler.SetField)
				r.Post("/validate", contactHandler.Validate)
				r.With(limitSubmits).Post("/submit", contactHandler.Submit)
			})
		})
	})

	return r
}

func (a *app) shutdown(ctx context.Context, srv *http.Server) error {
	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.sessions.Stop()
	if a.mail != nil {
		if err := a.mail.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
