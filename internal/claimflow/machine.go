// Package claimflow drives a visitor's voucher claim from the form to the
// inbox:
//
//	idle -> submitting -> processing -> success | failed-delivery | timed-out
//	                   \-> already-claimed | expired | error
//
// The POST and the delivery-status watch are sequential. The watch runs
// under its own deadline and is cancelled by Reset and Close.
package claimflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voucherverse/storefront-api/internal/client"
	"github.com/voucherverse/storefront-api/internal/domain"
)

// State is a step of the claim flow.
type State string

const (
	Idle           State = "idle"
	Submitting     State = "submitting"
	Processing     State = "processing"
	Success        State = "success"
	AlreadyClaimed State = "already-claimed"
	Expired        State = "expired"
	Error          State = "error"
	FailedDelivery State = "failed-delivery"
	TimedOut       State = "timed-out"
)

// Finished reports whether s ends a submission.
func (s State) Finished() bool {
	switch s {
	case Success, AlreadyClaimed, Expired, Error, FailedDelivery, TimedOut:
		return true
	}
	return false
}

// Defaults.
const (
	DefaultProcessingTimeout = 60 * time.Second
	DefaultResetDelay        = 300 * time.Millisecond
	DefaultWatchRetry        = time.Second
)

// Messages shown for states the server does not describe.
const (
	MsgExpired        = "This voucher has expired."
	MsgDelivered      = "Your voucher is on its way to your inbox."
	MsgFailedDelivery = "We couldn't deliver your voucher. Please check your email address."
	MsgTimedOut       = "We're still sending your voucher. Check your email later."
	MsgGeneric        = "Something went wrong. Please try again."
)

var (
	ErrBusy   = errors.New("claim already in progress")
	ErrClosed = errors.New("claim flow closed")
)

// Snapshot is the observable state of the flow.
type Snapshot struct {
	State     State
	VoucherID uint
	Email     string
	EmailID   string
	Delivery  domain.ClaimStatus
	Message   string
}

// Claimer submits a claim.
type Claimer interface {
	ClaimVoucher(ctx context.Context, req client.ClaimRequest) (*client.ClaimResponse, error)
}

// StatusWatcher reports a claim's delivery statuses until a terminal one.
type StatusWatcher interface {
	WatchClaim(ctx context.Context, emailID string, fn func(domain.ClaimStatus)) error
}

// Option configures a Machine.
type Option func(*Machine)

// WithProcessingTimeout bounds the wait for a terminal delivery status.
func WithProcessingTimeout(d time.Duration) Option { return func(m *Machine) { m.timeout = d } }

// WithResetDelay sets how long Reset waits before returning to idle.
func WithResetDelay(d time.Duration) Option { return func(m *Machine) { m.resetDelay = d } }

// WithWatchRetry sets the pause before reopening a broken status watch.
func WithWatchRetry(d time.Duration) Option { return func(m *Machine) { m.retry = d } }

// WithTimezone forwards the visitor's zone so the email shows local dates.
func WithTimezone(tz string) Option { return func(m *Machine) { m.timezone = tz } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(m *Machine) { m.log = l } }

// OnDelivered registers fn to run after the success transition, typically
// to refresh the product listing.
func OnDelivered(fn func(Snapshot)) Option { return func(m *Machine) { m.onDelivered = fn } }

// Machine is the claim flow of one voucher form.
type Machine struct {
	claims     Claimer
	watcher    StatusWatcher
	businessID uint

	timeout     time.Duration
	resetDelay  time.Duration
	retry       time.Duration
	timezone    string
	now         func() time.Time
	log         zerolog.Logger
	onDelivered func(Snapshot)

	life   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	snap        Snapshot
	gen         uint64
	watchCancel context.CancelFunc
	closed      bool
	subs        map[int]func(Snapshot)
	nextSub     int

	// serializes observer calls in transition order
	emitMu sync.Mutex
}

// New returns an idle machine for businessID.
func New(claims Claimer, watcher StatusWatcher, businessID uint, opts ...Option) *Machine {
	m := &Machine{
		claims:     claims,
		watcher:    watcher,
		businessID: businessID,
		timeout:    DefaultProcessingTimeout,
		resetDelay: DefaultResetDelay,
		retry:      DefaultWatchRetry,
		now:        time.Now,
		log:        zerolog.Nop(),
		snap:       Snapshot{State: Idle},
		subs:       make(map[int]func(Snapshot)),
	}
	for _, o := range opts {
		o(m)
	}
	m.life, m.cancel = context.WithCancel(context.Background())
	return m
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Subscribe registers fn for every transition. Observers run one at a time
// in transition order and must not call back into the machine (Snapshot
// included) on the calling goroutine; use the snapshot they are given.
func (m *Machine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// transition sets the snapshot and notifies observers. mu must be held; it
// is released on return.
func (m *Machine) transition(s Snapshot) {
	m.snap = s
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.emitMu.Lock()
	m.mu.Unlock()
	defer m.emitMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// Submit claims voucher v for email. It is accepted from idle or a finished
// state; the outcome is reported through the state, not the error.
func (m *Machine) Submit(ctx context.Context, v domain.Voucher, email string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if st := m.snap.State; st != Idle && !st.Finished() {
		m.mu.Unlock()
		return ErrBusy
	}
	m.stopWatchLocked()
	m.gen++
	gen := m.gen
	email = strings.TrimSpace(email)

	if v.ExpiredAt(m.now()) {
		m.transition(Snapshot{State: Expired, VoucherID: v.ID, Email: email, Message: MsgExpired})
		return nil
	}
	m.transition(Snapshot{State: Submitting, VoucherID: v.ID, Email: email})

	resp, err := m.claims.ClaimVoucher(ctx, client.ClaimRequest{
		VoucherID:  v.ID,
		UserEmail:  email,
		BusinessID: m.businessID,
		Timezone:   m.timezone,
	})

	m.mu.Lock()
	if m.gen != gen || m.closed {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		st, msg := classify(err)
		m.log.Debug().Err(err).Str("state", string(st)).Uint("voucher_id", v.ID).Msg("claim rejected")
		m.transition(Snapshot{State: st, VoucherID: v.ID, Email: email, Message: msg})
		return nil
	}

	wctx, cancel := context.WithTimeout(m.life, m.timeout)
	m.watchCancel = cancel
	m.wg.Add(1)
	go m.watch(wctx, gen, resp.EmailID)
	m.transition(Snapshot{
		State: Processing, VoucherID: v.ID, Email: email, EmailID: resp.EmailID,
		Delivery: resp.Status, Message: resp.Message,
	})
	return nil
}

// classify maps a rejected claim to a finished state and its message.
func classify(err error) (State, string) {
	var ae *client.APIError
	if !errors.As(err, &ae) {
		return Error, MsgGeneric
	}
	switch {
	case ae.Code == "already_claimed" || strings.Contains(strings.ToLower(ae.Message), "already claimed"):
		return AlreadyClaimed, ae.Message
	case ae.Code == "voucher_not_active":
		return Expired, ae.Message
	case ae.Message != "" && ae.Status < 500:
		return Error, ae.Message
	}
	return Error, MsgGeneric
}

// watch follows the claim until a terminal status or the deadline, reopening
// the stream when it breaks.
func (m *Machine) watch(ctx context.Context, gen uint64, emailID string) {
	defer m.wg.Done()
	for ctx.Err() == nil {
		err := m.watcher.WatchClaim(ctx, emailID, func(st domain.ClaimStatus) { m.delivery(gen, st) })
		if err == nil || ctx.Err() != nil || !m.current(gen) {
			break
		}
		m.log.Warn().Err(err).Str("email_id", emailID).Msg("claim watch broken, retrying")
		select {
		case <-ctx.Done():
		case <-time.After(m.retry):
		}
	}

	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return
	}
	m.mu.Lock()
	if m.gen != gen || m.snap.State != Processing {
		m.mu.Unlock()
		return
	}
	s := m.snap
	s.State, s.Message = TimedOut, MsgTimedOut
	m.stopWatchLocked()
	m.transition(s)
}

func (m *Machine) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen && m.snap.State == Processing
}

// delivery applies a status reported by the watch.
func (m *Machine) delivery(gen uint64, st domain.ClaimStatus) {
	m.mu.Lock()
	if m.gen != gen || m.snap.State != Processing {
		m.mu.Unlock()
		return
	}
	s := m.snap
	s.Delivery = st
	switch {
	case st == domain.ClaimDelivered:
		s.State, s.Message = Success, MsgDelivered
	case st.IsFailure():
		s.State, s.Message = FailedDelivery, MsgFailedDelivery
	default:
		m.snap = s
		m.mu.Unlock()
		return
	}
	m.stopWatchLocked()
	m.transition(s)

	if s.State == Success && m.onDelivered != nil {
		m.onDelivered(s)
	}
}

// stopWatchLocked cancels the running watch. mu must be held.
func (m *Machine) stopWatchLocked() {
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
}

// Reset cancels the watch and returns to idle after the reset delay. After
// a failed delivery the email is kept so the visitor can correct it.
func (m *Machine) Reset(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.stopWatchLocked()
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	if m.resetDelay > 0 {
		t := time.NewTimer(m.resetDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	m.mu.Lock()
	if m.gen != gen || m.closed {
		m.mu.Unlock()
		return nil
	}
	next := Snapshot{State: Idle}
	if m.snap.State == FailedDelivery {
		next.Email = m.snap.Email
	}
	m.transition(next)
	return nil
}

// Close cancels any watch and waits for it to stop. The machine accepts no
// further submissions.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.gen++
	m.stopWatchLocked()
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}
