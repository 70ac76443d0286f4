package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/serenablake/practice-site/internal/models"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeClock records scheduled callbacks so tests can fire them by hand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) schedule(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last(t *testing.T) *fakeTimer {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		t.Fatal("no timer scheduled")
	}
	return c.timers[len(c.timers)-1]
}

type recordingSink struct {
	mu       sync.Mutex
	payloads []models.ContactFields
}

func (s *recordingSink) Accept(p models.ContactFields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
}

func (s *recordingSink) got() []models.ContactFields {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ContactFields(nil), s.payloads...)
}

var janeDoe = models.ContactFields{
	Name:          "Jane Doe",
	Phone:         "(323) 555-0100",
	Email:         "jane@example.com",
	Message:       "Anxiety at work",
	PreferredTime: "Weekday mornings",
	Consent:       true,
}

func fill(t *testing.T, form *ContactForm, fields models.ContactFields) {
	t.Helper()
	for _, f := range models.ContactFieldOrder {
		var v interface{} = fields.Text(f)
		if f == models.FieldConsent {
			v = fields.Consent
		}
		if err := form.SetField(f, v); err != nil {
			t.Fatalf("SetField(%s): %v", f, err)
		}
	}
}

func TestContactFormInitialState(t *testing.T) {
	form := NewContactForm()
	want := models.ContactFormState{Errors: models.FieldErrors{}, State: models.StateIdle}
	if diff := cmp.Diff(want, form.State()); diff != "" {
		t.Fatalf("initial state mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitValidFormShowsSuccessAndResets(t *testing.T) {
	clock := &fakeClock{}
	sink := &recordingSink{}
	form := NewContactForm(WithSink(sink), WithScheduler(clock.schedule))
	fill(t, form, janeDoe)

	ok, err := form.Submit()
	if err != nil || !ok {
		t.Fatalf("Submit() = %v, %v; want true, nil", ok, err)
	}

	state := form.State()
	if state.State != models.StateShowingSuccess {
		t.Fatalf("state = %q, want %q", state.State, models.StateShowingSuccess)
	}
	if len(state.Errors) != 0 {
		t.Fatalf("errors = %v, want none", state.Errors)
	}
	if diff := cmp.Diff([]models.ContactFields{janeDoe}, sink.got()); diff != "" {
		t.Fatalf("sink payloads mismatch (-want +got):\n%s", diff)
	}

	timer := clock.last(t)
	if timer.delay != 3000*time.Millisecond {
		t.Fatalf("reset delay = %v, want 3s", timer.delay)
	}
	timer.fn()

	want := models.ContactFormState{Errors: models.FieldErrors{}, State: models.StateIdle}
	if diff := cmp.Diff(want, form.State()); diff != "" {
		t.Fatalf("state after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitInvalidFormReportsEveryError(t *testing.T) {
	clock := &fakeClock{}
	sink := &recordingSink{}
	form := NewContactForm(WithSink(sink), WithScheduler(clock.schedule))
	if err := form.SetField(models.FieldEmail, "bad"); err != nil {
		t.Fatal(err)
	}

	ok, err := form.Submit()
	if err != nil || ok {
		t.Fatalf("Submit() = %v, %v; want false, nil", ok, err)
	}

	want := models.FieldErrors{
		models.FieldName:          "Name is required",
		models.FieldPhone:         "Phone is required",
		models.FieldEmail:         "Email format is invalid",
		models.FieldMessage:       "Please tell us what brings you here",
		models.FieldPreferredTime: "Preferred time is required",
		models.FieldConsent:       "You must agree to be contacted",
	}
	state := form.State()
	if diff := cmp.Diff(want, state.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if state.State != models.StateIdle {
		t.Fatalf("state = %q, want idle", state.State)
	}
	if len(sink.got()) != 0 {
		t.Fatalf("sink called for invalid form")
	}
	if len(clock.timers) != 0 {
		t.Fatalf("reset scheduled for invalid form")
	}
}

func TestSetFieldClearsOnlyThatError(t *testing.T) {
	form := NewContactForm()
	if form.Validate() {
		t.Fatal("empty form validated")
	}
	if err := form.SetField(models.FieldEmail, "still bad"); err != nil {
		t.Fatal(err)
	}

	errs := form.State().Errors
	if _, ok := errs[models.FieldEmail]; ok {
		t.Fatalf("email error kept after edit: %v", errs)
	}
	if len(errs) != 5 {
		t.Fatalf("got %d errors, want 5: %v", len(errs), errs)
	}

	// The new value is not checked until the next validation.
	if form.Validate() {
		t.Fatal("form validated")
	}
	if got := form.State().Error("email"); got != "Email format is invalid" {
		t.Fatalf("email error = %q", got)
	}
}

func TestValidateRecomputesErrors(t *testing.T) {
	form := NewContactForm()
	form.Validate()
	fill(t, form, janeDoe)
	if !form.Validate() {
		t.Fatalf("valid form rejected: %v", form.State().Errors)
	}
	if n := len(form.State().Errors); n != 0 {
		t.Fatalf("got %d errors after valid validation", n)
	}
}

func TestSetFieldRejectsBadInput(t *testing.T) {
	form := NewContactForm()
	tests := []struct {
		name  string
		field models.ContactField
		value interface{}
		want  error
	}{
		{"unknown field", models.ContactField("age"), "42", ErrUnknownField},
		{"consent as text", models.FieldConsent, "yes", ErrFieldType},
		{"name as bool", models.FieldName, true, ErrFieldType},
		{"phone as nil", models.FieldPhone, nil, ErrFieldType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := form.SetField(tt.field, tt.value); !errors.Is(err, tt.want) {
				t.Fatalf("SetField() error = %v, want %v", err, tt.want)
			}
		})
	}
	if diff := cmp.Diff(models.ContactFields{}, form.State().Fields); diff != "" {
		t.Fatalf("fields changed by rejected input (-want +got):\n%s", diff)
	}
}

func TestSubmitWhileShowingSuccessIsRejected(t *testing.T) {
	clock := &fakeClock{}
	sink := &recordingSink{}
	form := NewContactForm(WithSink(sink), WithScheduler(clock.schedule))
	fill(t, form, janeDoe)

	if ok, err := form.Submit(); !ok || err != nil {
		t.Fatalf("first Submit() = %v, %v", ok, err)
	}
	if _, err := form.Submit(); !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("second Submit() error = %v, want ErrSubmissionInProgress", err)
	}
	if n := len(sink.got()); n != 1 {
		t.Fatalf("sink called %d times, want 1", n)
	}
	if n := len(clock.timers); n != 1 {
		t.Fatalf("%d resets scheduled, want 1", n)
	}

	clock.last(t).fn()
	fill(t, form, janeDoe)
	if ok, err := form.Submit(); !ok || err != nil {
		t.Fatalf("Submit() after reset = %v, %v", ok, err)
	}
}

func TestCloseCancelsPendingReset(t *testing.T) {
	clock := &fakeClock{}
	form := NewContactForm(WithScheduler(clock.schedule))
	fill(t, form, janeDoe)
	if ok, _ := form.Submit(); !ok {
		t.Fatal("Submit() rejected valid form")
	}

	form.Close()
	form.Close()

	timer := clock.last(t)
	if !timer.stopped {
		t.Fatal("reset timer not stopped")
	}
	// A callback that already fired must not touch a closed form.
	timer.fn()
	state := form.State()
	if state.State != models.StateShowingSuccess || state.Fields != janeDoe {
		t.Fatalf("closed form was reset: %+v", state)
	}

	if err := form.SetField(models.FieldName, "x"); !errors.Is(err, ErrFormClosed) {
		t.Fatalf("SetField() after Close error = %v", err)
	}
	if _, err := form.Submit(); !errors.Is(err, ErrFormClosed) {
		t.Fatalf("Submit() after Close error = %v", err)
	}
	if !form.Closed() {
		t.Fatal("Closed() = false")
	}
}

func TestValidateOnClosedFormIsNoop(t *testing.T) {
	notified := 0
	form := NewContactForm(WithObserver(func(models.ContactFormState) { notified++ }))
	form.Close()

	if form.Validate() {
		t.Fatal("Validate() on closed form = true")
	}
	if notified != 0 {
		t.Fatalf("observer notified %d times after Close", notified)
	}
	if n := len(form.State().Errors); n != 0 {
		t.Fatalf("closed form recomputed %d errors", n)
	}
}

func TestPrecheck(t *testing.T) {
	clock := &fakeClock{}
	sink := &recordingSink{}
	form := NewContactForm(WithSink(sink), WithScheduler(clock.schedule))

	ok, err := form.Precheck()
	if ok || err != nil {
		t.Fatalf("Precheck() on empty form = %v, %v; want false, nil", ok, err)
	}
	if n := len(form.State().Errors); n != 6 {
		t.Fatalf("Precheck() published %d errors, want 6", n)
	}

	fill(t, form, janeDoe)
	if ok, err := form.Precheck(); !ok || err != nil {
		t.Fatalf("Precheck() on valid form = %v, %v", ok, err)
	}
	if got := form.State().State; got != models.StateIdle {
		t.Fatalf("Precheck() changed state to %q", got)
	}
	if len(sink.got()) != 0 || len(clock.timers) != 0 {
		t.Fatal("Precheck() submitted the form")
	}

	form.Submit()
	if _, err := form.Precheck(); !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("Precheck() while showing success error = %v", err)
	}

	form.Close()
	if _, err := form.Precheck(); !errors.Is(err, ErrFormClosed) {
		t.Fatalf("Precheck() after Close error = %v", err)
	}
}

func TestStaleResetIsIgnored(t *testing.T) {
	clock := &fakeClock{}
	form := NewContactForm(WithScheduler(clock.schedule))
	fill(t, form, janeDoe)
	form.Submit()
	first := clock.last(t)
	first.fn()

	fill(t, form, janeDoe)
	form.Submit()

	// The first reset already ran; firing it again must not clear the
	// second submission early.
	first.fn()
	if got := form.State().State; got != models.StateShowingSuccess {
		t.Fatalf("state = %q, want showingSuccess", got)
	}
}

func TestObserversSeeEveryMutation(t *testing.T) {
	clock := &fakeClock{}
	var states []models.SubmissionState
	var emails []string
	form := NewContactForm(
		WithScheduler(clock.schedule),
		WithObserver(func(s models.ContactFormState) {
			states = append(states, s.State)
			emails = append(emails, s.Fields.Email)
		}),
	)
	fill(t, form, janeDoe)
	form.Submit()
	clock.last(t).fn()

	// Six field updates, the submit, then the reset.
	wantStates := []models.SubmissionState{
		models.StateIdle, models.StateIdle, models.StateIdle,
		models.StateIdle, models.StateIdle, models.StateIdle,
		models.StateShowingSuccess, models.StateIdle,
	}
	if diff := cmp.Diff(wantStates, states); diff != "" {
		t.Fatalf("observed states mismatch (-want +got):\n%s", diff)
	}
	if emails[len(emails)-1] != "" {
		t.Fatalf("reset did not clear email: %q", emails[len(emails)-1])
	}
}

func TestStateIsASnapshot(t *testing.T) {
	form := NewContactForm()
	form.Validate()
	snap := form.State()
	snap.Errors[models.FieldName] = "tampered"
	delete(snap.Errors, models.FieldPhone)

	got := form.State()
	if got.Error("name") != "Name is required" || got.Error("phone") != "Phone is required" {
		t.Fatalf("snapshot shares storage with form: %v", got.Errors)
	}
}

func TestMultiSinkDeliversInOrder(t *testing.T) {
	var order []string
	sink := MultiSink{
		SinkFunc(func(models.ContactFields) { order = append(order, "log") }),
		nil,
		SinkFunc(func(models.ContactFields) { order = append(order, "mail") }),
	}
	sink.Accept(janeDoe)
	if diff := cmp.Diff([]string{"log", "mail"}, order); diff != "" {
		t.Fatalf("delivery order mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitResetsWithRealTimer(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the reset delay")
	}
	done := make(chan struct{})
	var once sync.Once
	form := NewContactForm(WithObserver(func(s models.ContactFormState) {
		if s.State == models.StateIdle && s.Fields == (models.ContactFields{}) {
			once.Do(func() { close(done) })
		}
	}))
	fill(t, form, janeDoe)
	start := time.Now()
	if ok, _ := form.Submit(); !ok {
		t.Fatal("Submit() rejected valid form")
	}

	select {
	case <-done:
	case <-time.After(ContactResetDelay + 2*time.Second):
		t.Fatal("form was not reset")
	}
	if elapsed := time.Since(start); elapsed < ContactResetDelay {
		t.Fatalf("reset after %v, want at least %v", elapsed, ContactResetDelay)
	}
}
