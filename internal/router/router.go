// Package router implements the response router (spec.md's C5): a UDP
// listener that decompresses and parses each datagram, then dispatches
// it to the waiting tag in its own goroutine. Grounded on
// adbb/link.py's AniDBListener and the teacher's UDP read loop in
// internal/hdhomerun/discover.go (SetReadDeadline + ReadFromUDP).
package router

import (
	"context"
	"net"
	"time"

	"github.com/snapetech/anidbclient/internal/anilog"
	"github.com/snapetech/anidbclient/internal/dispatch"
	"github.com/snapetech/anidbclient/internal/session"
	"github.com/snapetech/anidbclient/internal/wire"
)

// Untagged ban/server-status codes that arrive without a correlating
// tag (spec.md §4.5): 600 unknown command, 601 internal server error,
// 602 anidb out of service, 604 server busy.
const (
	CodeUnknownCommand      = 600
	CodeInternalServerError = 601
	CodeOutOfService        = 602
	CodeServerBusy          = 604
)

func isUntaggedBan(code int) bool {
	switch code {
	case CodeUnknownCommand, CodeInternalServerError, CodeOutOfService, CodeServerBusy:
		return true
	}
	return false
}

// Decrypter decrypts an inbound payload using the session key, when the
// session is running encrypted.
type Decrypter func(ciphertext []byte) ([]byte, error)

// Router owns the UDP socket the dispatcher's SendFunc writes to and
// delivers parsed responses back to it.
type Router struct {
	conn       *net.UDPConn
	dispatcher *dispatch.Dispatcher
	sess       *session.Session
	decrypt    Decrypter
	log        *anilog.Logger

	onBan    func(code int)
	onReauth func()
}

// New wraps an already-bound UDP connection.
func New(conn *net.UDPConn, d *dispatch.Dispatcher, sess *session.Session, log *anilog.Logger) *Router {
	if log == nil {
		log = anilog.New(nil, "router")
	}
	return &Router{conn: conn, dispatcher: d, sess: sess, log: log}
}

// SetDecrypter installs the function used to decrypt inbound payloads
// once the session has negotiated an AES key.
func (r *Router) SetDecrypter(d Decrypter) { r.decrypt = d }

// OnBan installs a callback invoked whenever an untagged ban or
// server-status code (600/601/602/604) arrives (spec.md §4.5).
func (r *Router) OnBan(f func(code int)) { r.onBan = f }

// OnReauth installs the callback that re-runs the AUTH (and, if the
// cipher itself was lost, ENCRYPT) handshake after a reauth trigger.
// Called with the dispatcher already gated (spec.md §4.4's "await auth"
// rule), so ordinary commands stay queued until it returns and releases
// the gate.
func (r *Router) OnReauth(f func()) { r.onReauth = f }

// Run reads datagrams until ctx is cancelled, handing each to a fresh
// goroutine for parsing and dispatch so a slow handler never blocks the
// socket read loop.
func (r *Router) Run(ctx context.Context) error {
	buf := make([]byte, 65535)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
			return err
		}
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		raw := make([]byte, n)
		copy(raw, buf[:n])
		go r.handle(raw)
	}
}

func (r *Router) handle(raw []byte) {
	payload := raw
	if r.decrypt != nil && r.sess.Salt() != "" {
		if dec, err := r.decrypt(raw); err == nil {
			payload = dec
		}
	}
	inflated, err := wire.Decompress(payload)
	if err != nil {
		r.log.Printf("decompress: %v", err)
		return
	}
	resp, err := wire.Parse(inflated)
	if err != nil {
		r.log.Printf("parse: %v", err)
		return
	}

	if resp.Tag == "" || isUntaggedBan(resp.Code) {
		r.log.Printf("untagged response, code %d", resp.Code)
		if isUntaggedBan(resp.Code) && r.onBan != nil {
			r.onBan(resp.Code)
		}
		return
	}

	switch {
	case session.IsLoginSuccess(resp.Code):
		r.log.Debugf("login accepted, tag %s", resp.Tag)
	case r.sess.RequiresReauth(resp.Code, r.dispatcher.OnlyLogoutQueued()):
		r.log.Printf("reauth triggered by code %d on tag %s", resp.Code, resp.Tag)
		if resp.Code == session.CodeEncryptedLostSess {
			r.sess.InvalidateCipher()
		} else {
			r.sess.InvalidateSession()
		}
		r.dispatcher.Gate()
		r.dispatcher.Requeue(resp.Tag)
		if r.onReauth != nil {
			go r.onReauth()
		}
		return
	}

	r.dispatcher.Resolve(resp.Tag, resp)
}
