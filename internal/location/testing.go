package location

import (
	"context"
	"errors"
	"sync"
)

// ScriptedProvider is a Provider whose samples are pushed by the caller.
// This is only intended for use in tests.
type ScriptedProvider struct {
	mu      sync.Mutex
	perm    Permission
	request Permission
	subErr  error
	subs    []*scriptedSub
}

// NewScriptedProvider returns a provider reporting perm from Permission and
// request from RequestPermission.
func NewScriptedProvider(perm, request Permission) *ScriptedProvider {
	return &ScriptedProvider{perm: perm, request: request}
}

// FailSubscribe makes the next Subscribe calls return err.
func (p *ScriptedProvider) FailSubscribe(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subErr = err
}

func (p *ScriptedProvider) Permission(ctx context.Context) (Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perm, nil
}

func (p *ScriptedProvider) RequestPermission(ctx context.Context) (Permission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.perm = p.request
	return p.request, nil
}

func (p *ScriptedProvider) Subscribe(ctx context.Context, opts Options) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.subErr != nil {
		return nil, p.subErr
	}
	sub := &scriptedSub{
		samples: make(chan Sample),
		errs:    make(chan error, 8),
		closed:  make(chan struct{}),
	}
	p.subs = append(p.subs, sub)
	return sub, nil
}

// Subscriptions returns how many times Subscribe succeeded.
func (p *ScriptedProvider) Subscriptions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Subscribed reports whether the latest subscription is still open.
func (p *ScriptedProvider) Subscribed() bool {
	sub := p.latest()
	return sub != nil && !sub.isClosed()
}

// ErrNoSubscriber is returned by Push when nothing is subscribed.
var ErrNoSubscriber = errors.New("no open subscription")

// Push delivers s to the latest subscription and blocks until it is read.
func (p *ScriptedProvider) Push(ctx context.Context, s Sample) error {
	sub := p.latest()
	if sub == nil {
		return ErrNoSubscriber
	}
	return sub.push(ctx, s)
}

// PushError reports a transient error on the latest subscription.
func (p *ScriptedProvider) PushError(err error) error {
	sub := p.latest()
	if sub == nil {
		return ErrNoSubscriber
	}
	select {
	case sub.errs <- err:
		return nil
	default:
		return errors.New("error buffer full")
	}
}

func (p *ScriptedProvider) latest() *scriptedSub {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.subs) == 0 {
		return nil
	}
	return p.subs[len(p.subs)-1]
}

type scriptedSub struct {
	mu      sync.Mutex
	samples chan Sample
	errs    chan error
	closed  chan struct{}
	once    sync.Once
}

func (s *scriptedSub) Samples() <-chan Sample { return s.samples }
func (s *scriptedSub) Errors() <-chan error   { return s.errs }

func (s *scriptedSub) Close() error {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		close(s.samples)
		s.mu.Unlock()
	})
	return nil
}

func (s *scriptedSub) push(ctx context.Context, sample Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closed:
		return ErrNoSubscriber
	default:
	}
	select {
	case s.samples <- sample:
		return nil
	case <-s.closed:
		return ErrNoSubscriber
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *scriptedSub) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
