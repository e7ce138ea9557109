// Package dispatch implements the request dispatcher (spec.md's C4): tag
// allocation, a priority queue (AUTH/ENCRYPT/PING and reauth-requeued
// commands jump the line), per-command timeout tracking with bounded
// retries, and handing confirmed-banned commands back to the caller.
// Grounded on adbb/link.py's send loop and adbb/commands.py's
// Command.handle_timeout (retries=2).
package dispatch

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/snapetech/anidbclient/internal/anierrors"
	"github.com/snapetech/anidbclient/internal/anilog"
	"github.com/snapetech/anidbclient/internal/pacer"
	"github.com/snapetech/anidbclient/internal/wire"
)

// DefaultMaxRetries matches adbb/commands.py's Command.handle_timeout.
const DefaultMaxRetries = 2

// DefaultTimeout is how long a dispatcher waits for a tagged response
// before treating the command as timed out.
const DefaultTimeout = 20 * time.Second

// SendFunc transmits an encoded command over the wire.
type SendFunc func(tag string, cmd *wire.Command) error

// Result is delivered to the caller once a tagged command resolves,
// either with a response or a terminal error.
type Result struct {
	Response *wire.Response
	Err      error
}

type pending struct {
	tag      string
	cmd      *wire.Command
	attempts int
	resultCh chan Result
	timer    *time.Timer
}

// Dispatcher owns the outgoing queue and the in-flight tag table.
type Dispatcher struct {
	mu sync.Mutex

	tags     *wire.TagAllocator
	queue    *list.List // front = priority, back = normal; elements are *pending
	inFlight map[string]*pending

	send       SendFunc
	pacer      *pacer.Pacer
	maxRetries int
	timeout    time.Duration
	log        *anilog.Logger

	wake chan struct{}

	gated bool
}

// New returns a Dispatcher. tagPrefix is passed to wire.NewTagAllocator.
func New(tagPrefix string, send SendFunc, p *pacer.Pacer, log *anilog.Logger) *Dispatcher {
	if log == nil {
		log = anilog.New(nil, "dispatch")
	}
	return &Dispatcher{
		tags:       wire.NewTagAllocator(tagPrefix),
		queue:      list.New(),
		inFlight:   map[string]*pending{},
		send:       send,
		pacer:      p,
		maxRetries: DefaultMaxRetries,
		timeout:    DefaultTimeout,
		log:        log,
		wake:       make(chan struct{}, 1),
	}
}

// Enqueue allocates a tag for cmd and places it on the queue. priority
// commands (AUTH, ENCRYPT, PING, and reauth-requeued commands) jump to
// the front of the line ahead of ordinary traffic (spec.md §4.4).
func (d *Dispatcher) Enqueue(cmd *wire.Command, priority bool) (<-chan Result, string) {
	d.mu.Lock()
	tag := d.tags.Next()
	p := &pending{tag: tag, cmd: cmd, resultCh: make(chan Result, 1)}
	d.inFlight[tag] = p
	if priority {
		d.queue.PushFront(p)
	} else {
		d.queue.PushBack(p)
	}
	d.mu.Unlock()
	d.kick()
	return p.resultCh, tag
}

// Requeue reinserts an already-tagged command at the front of the queue,
// used when a reauth trigger (spec.md §4.5) forces a retry.
func (d *Dispatcher) Requeue(tag string) {
	d.mu.Lock()
	p, ok := d.inFlight[tag]
	if ok {
		d.queue.PushFront(p)
	}
	d.mu.Unlock()
	if ok {
		d.kick()
	}
}

func (d *Dispatcher) kick() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Gate starves ordinary traffic: Run will not pop or send any command
// other than ENCRYPT/AUTH until Release is called. Used while a reauth
// handshake is in flight (spec.md §4.4's "if unauthenticated and
// command requires session, await auth" sender-loop rule).
func (d *Dispatcher) Gate() {
	d.mu.Lock()
	d.gated = true
	d.mu.Unlock()
}

// Release lifts a gate set by Gate, letting queued ordinary commands
// send again.
func (d *Dispatcher) Release() {
	d.mu.Lock()
	d.gated = false
	d.mu.Unlock()
	d.kick()
}

// Gated reports whether the dispatcher is currently starving ordinary
// traffic for an in-flight reauth.
func (d *Dispatcher) Gated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gated
}

func isHandshake(name string) bool {
	return name == "AUTH" || name == "ENCRYPT"
}

// Run drains the queue until ctx is cancelled, pacing each send through
// p and arming a timeout for each outgoing command.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item := d.popFront()
		if item == nil {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
				continue
			case <-time.After(time.Second):
				continue
			}
		}

		if err := d.pacer.Wait(ctx); err != nil {
			d.resolve(item.tag, Result{Err: err})
			continue
		}
		if err := d.send(item.tag, item.cmd); err != nil {
			d.resolve(item.tag, Result{Err: fmt.Errorf("dispatch: send: %w", err)})
			continue
		}
		d.armTimeout(item)
	}
}

func (d *Dispatcher) popFront() *pending {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.queue.Front()
	if e == nil {
		return nil
	}
	p := e.Value.(*pending)
	if d.gated && !isHandshake(p.cmd.Name) {
		return nil
	}
	d.queue.Remove(e)
	return p
}

func (d *Dispatcher) armTimeout(p *pending) {
	d.mu.Lock()
	p.timer = time.AfterFunc(d.timeout, func() { d.handleTimeout(p.tag) })
	d.mu.Unlock()
}

func (d *Dispatcher) handleTimeout(tag string) {
	d.mu.Lock()
	p, ok := d.inFlight[tag]
	if !ok {
		d.mu.Unlock()
		return
	}
	p.attempts++
	if p.attempts > d.maxRetries {
		delete(d.inFlight, tag)
		d.mu.Unlock()
		d.pacer.SetBanned()
		p.resultCh <- Result{Err: &anierrors.Banned{Code: 0}}
		return
	}
	d.queue.PushFront(p)
	d.mu.Unlock()
	d.log.Printf("command %s timed out, retry %d/%d", tag, p.attempts, d.maxRetries)
	d.kick()
}

// Resolve delivers a parsed response to the command waiting on tag. It
// is called by the response router once it has matched a reply to a
// pending tag.
func (d *Dispatcher) Resolve(tag string, resp *wire.Response) {
	d.resolve(tag, Result{Response: resp})
}

// ResolveErr delivers a terminal error to the command waiting on tag.
func (d *Dispatcher) ResolveErr(tag string, err error) {
	d.resolve(tag, Result{Err: err})
}

func (d *Dispatcher) resolve(tag string, res Result) {
	d.mu.Lock()
	p, ok := d.inFlight[tag]
	if ok {
		delete(d.inFlight, tag)
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	d.mu.Unlock()
	if ok {
		p.resultCh <- res
	}
}

// OnlyLogoutQueued reports whether the only command still in flight or
// queued is a LOGOUT, used by the session manager to decide whether a
// 598 (encrypted session lost) response should force reauth (spec.md
// §4.5).
func (d *Dispatcher) OnlyLogoutQueued() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.inFlight) == 0 {
		return true
	}
	for _, p := range d.inFlight {
		if p.cmd.Name != "LOGOUT" {
			return false
		}
	}
	return true
}
