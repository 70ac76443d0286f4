package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/sirupsen/logrus"
)

var ErrSessionNotFound = errors.New("contact session not found")

// ContactSessions keeps one ContactForm per visitor. A session expires
// after ttl without access; expiry and Delete both close the form, which
// cancels its pending success reset.
type ContactSessions struct {
	cache    *ttlcache.Cache[string, *ContactForm]
	newForm  func() *ContactForm
	logger   logrus.FieldLogger
	unsubscr func()
	started  atomic.Bool
}

// NewContactSessions builds forms with opts for every new session.
func NewContactSessions(ttl time.Duration, logger logrus.FieldLogger, opts ...ContactFormOption) *ContactSessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cache := ttlcache.New[string, *ContactForm](
		ttlcache.WithTTL[string, *ContactForm](ttl),
	)
	s := &ContactSessions{
		cache:   cache,
		newForm: func() *ContactForm { return NewContactForm(opts...) },
		logger:  logger,
	}
	s.unsubscr = cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *ContactForm]) {
		item.Value().Close()
		if reason == ttlcache.EvictionReasonExpired {
			s.logger.WithField("session_id", item.Key()).Debug("contact session expired")
		}
	})
	return s
}

// Start launches the expiry loop in the background.
func (s *ContactSessions) Start() {
	if s.started.CompareAndSwap(false, true) {
		go s.cache.Start()
	}
}

// Stop ends the expiry loop and closes every remaining form.
func (s *ContactSessions) Stop() {
	if s.started.CompareAndSwap(true, false) {
		s.cache.Stop()
	}
	for _, item := range s.cache.Items() {
		item.Value().Close()
	}
	s.cache.DeleteAll()
	if s.unsubscr != nil {
		s.unsubscr()
	}
}

// Create opens a new session.
func (s *ContactSessions) Create() (string, *ContactForm) {
	id := uuid.NewString()
	form := s.newForm()
	s.cache.Set(id, form, ttlcache.DefaultTTL)
	s.logger.WithField("session_id", id).Debug("contact session created")
	return id, form
}

// Get returns the session's form and extends its lifetime.
func (s *ContactSessions) Get(id string) (*ContactForm, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, ErrSessionNotFound
	}
	form := item.Value()
	if form.Closed() {
		return nil, ErrSessionNotFound
	}
	return form, nil
}

// GetOrCreate returns the form for id, opening a new session when id is
// unknown or expired.
func (s *ContactSessions) GetOrCreate(id string) (string, *ContactForm) {
	if id != "" {
		if form, err := s.Get(id); err == nil {
			return id, form
		}
	}
	return s.Create()
}

// Delete tears the session down.
func (s *ContactSessions) Delete(id string) error {
	item := s.cache.Get(id)
	if item == nil {
		return ErrSessionNotFound
	}
	item.Value().Close()
	s.cache.Delete(id)
	return nil
}

// Len is the number of live sessions.
func (s *ContactSessions) Len() int {
	return s.cache.Len()
}
