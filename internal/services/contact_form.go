package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/serenablake/practice-site/internal/models"
)

// ContactResetDelay is how long the success message stays up before the
// form is cleared.
const ContactResetDelay = 3000 * time.Millisecond

var (
	ErrUnknownField         = errors.New("unknown contact field")
	ErrFieldType            = errors.New("wrong value type for contact field")
	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrFormClosed           = errors.New("contact form closed")
)

// SubmissionSink receives a validated payload. Delivery is fire-and-forget.
type SubmissionSink interface {
	Accept(payload models.ContactFields)
}

// SinkFunc adapts a function to SubmissionSink.
type SinkFunc func(payload models.ContactFields)

func (f SinkFunc) Accept(payload models.ContactFields) { f(payload) }

// MultiSink hands the payload to every sink in order.
type MultiSink []SubmissionSink

func (m MultiSink) Accept(payload models.ContactFields) {
	for _, s := range m {
		if s != nil {
			s.Accept(payload)
		}
	}
}

// StateObserver is notified with a snapshot after every mutation.
type StateObserver func(state models.ContactFormState)

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type ContactFormOption func(*ContactForm)

// WithSink sets where validated submissions are delivered.
func WithSink(sink SubmissionSink) ContactFormOption {
	return func(c *ContactForm) { c.sink = sink }
}

// WithObserver registers a state observer.
func WithObserver(obs StateObserver) ContactFormOption {
	return func(c *ContactForm) {
		if obs != nil {
			c.observers = append(c.observers, obs)
		}
	}
}

// WithScheduler replaces time.AfterFunc for the success reset.
func WithScheduler(s Scheduler) ContactFormOption {
	return func(c *ContactForm) {
		if s != nil {
			c.schedule = s
		}
	}
}

// ContactForm owns the fields, errors and submission state of one visitor's
// consultation request. All methods are safe for concurrent use.
type ContactForm struct {
	mu     sync.Mutex
	fields models.ContactFields
	errors models.FieldErrors
	state  models.SubmissionState

	// reset is the pending success reset; gen invalidates callbacks that
	// fire after the timer they belong to was replaced or stopped.
	reset  Timer
	gen    uint64
	closed bool

	sink      SubmissionSink
	observers []StateObserver
	schedule  Scheduler
}

func NewContactForm(opts ...ContactFormOption) *ContactForm {
	c := &ContactForm{
		errors:   models.FieldErrors{},
		state:    models.StateIdle,
		schedule: afterFunc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetField overwrites one field and drops any error recorded for it
// without re-checking the new value. Text fields take a string, consent
// takes a bool.
func (c *ContactForm) SetField(field models.ContactField, value interface{}) error {
	if _, ok := models.ParseContactField(string(field)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrFormClosed
	}
	if field.IsText() {
		s, ok := value.(string)
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s expects text", ErrFieldType, field)
		}
		c.fields.SetText(field, s)
	} else {
		b, ok := value.(bool)
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s expects a boolean", ErrFieldType, field)
		}
		c.fields.Consent = b
	}
	delete(c.errors, field)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// Validate recomputes the errors from the current fields, publishes them
// and reports whether the form is valid. A closed form reports false and
// is left untouched.
func (c *ContactForm) Validate() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	valid := c.validateLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return valid
}

// Precheck runs the checks Submit starts with, without submitting: it
// fails with ErrFormClosed or ErrSubmissionInProgress, and otherwise
// validates like Validate. Callers use it to reject a submit before
// spending anything on it, such as a single-use captcha token.
func (c *ContactForm) Precheck() (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrFormClosed
	}
	if c.state == models.StateShowingSuccess {
		c.mu.Unlock()
		return false, ErrSubmissionInProgress
	}
	valid := c.validateLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return valid, nil
}

func (c *ContactForm) validateLocked() bool {
	c.errors = c.fields.Validate()
	return len(c.errors) == 0
}

// Submit validates the form. A valid form switches to the success state,
// is handed to the sink and is cleared after ContactResetDelay. It returns
// false with a nil error when validation failed. A submit while the
// success message is showing is rejected with ErrSubmissionInProgress.
func (c *ContactForm) Submit() (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrFormClosed
	}
	if c.state == models.StateShowingSuccess {
		c.mu.Unlock()
		return false, ErrSubmissionInProgress
	}

	if !c.validateLocked() {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return false, nil
	}

	c.state = models.StateShowingSuccess
	payload := c.fields
	c.gen++
	gen := c.gen
	c.reset = c.schedule(ContactResetDelay, func() { c.resetAfterSuccess(gen) })
	snap := c.snapshotLocked()
	sink := c.sink
	c.mu.Unlock()

	c.notify(snap)
	if sink != nil {
		sink.Accept(payload)
	}
	return true, nil
}

func (c *ContactForm) resetAfterSuccess(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.fields = models.ContactFields{}
	c.errors = models.FieldErrors{}
	c.state = models.StateIdle
	c.reset = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// State returns a snapshot of the form.
func (c *ContactForm) State() models.ContactFormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close tears the form down and cancels a pending reset. Further calls to
// SetField and Submit fail with ErrFormClosed. Close is idempotent.
func (c *ContactForm) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	if c.reset != nil {
		c.reset.Stop()
		c.reset = nil
	}
}

// Closed reports whether Close has been called.
func (c *ContactForm) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *ContactForm) snapshotLocked() models.ContactFormState {
	return models.ContactFormState{
		Fields: c.fields,
		Errors: c.errors.Clone(),
		State:  c.state,
	}
}

func (c *ContactForm) notify(snap models.ContactFormState) {
	for _, obs := range c.observers {
		obs(snap)
	}
}
