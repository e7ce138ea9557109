package router

import (
	"context"
	"testing"
	"time"

	"github.com/snapetech/anidbclient/internal/dispatch"
	"github.com/snapetech/anidbclient/internal/pacer"
	"github.com/snapetech/anidbclient/internal/session"
	"github.com/snapetech/anidbclient/internal/wire"
)

func TestHandleResolvesTaggedResponse(t *testing.T) {
	d := dispatch.New("T", func(string, *wire.Command) error { return nil }, pacer.New(0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	ch, tag := d.Enqueue(wire.NewCommand("PING"), false)

	r := New(nil, d, session.New("", 0, nil), nil)
	r.handle([]byte(tag + " 300 PONG\n"))

	select {
	case res := <-ch:
		if res.Err != nil || res.Response.Code != 300 {
			t.Fatalf("unexpected result: %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("tagged response was never resolved")
	}
}

func TestHandleUntaggedBanInvokesOnBan(t *testing.T) {
	d := dispatch.New("T", func(string, *wire.Command) error { return nil }, pacer.New(0), nil)
	r := New(nil, d, session.New("", 0, nil), nil)

	var gotCode int
	r.OnBan(func(code int) { gotCode = code })
	r.handle([]byte("601 INTERNAL SERVER ERROR\n"))

	if gotCode != CodeInternalServerError {
		t.Fatalf("onBan code = %d, want %d", gotCode, CodeInternalServerError)
	}
}

func TestHandleReauthInvalidatesGatesAndRequeues(t *testing.T) {
	d := dispatch.New("T", func(string, *wire.Command) error { return nil }, pacer.New(0), nil)
	_, tag := d.Enqueue(wire.NewCommand("FILE"), false)

	sess := session.New("apikey", 0, nil)
	sess.BeginEncrypted("saltvalue")
	sess.Authenticate("sesskey", 0)

	r := New(nil, d, sess, nil)

	reauthCh := make(chan struct{}, 1)
	r.OnReauth(func() { reauthCh <- struct{}{} })

	r.handle([]byte(tag + " 501 LOGIN FIRST\n"))

	if sess.Key() != "" {
		t.Fatalf("session key = %q, want cleared after invalidate", sess.Key())
	}
	if sess.Salt() != "saltvalue" {
		t.Fatalf("Salt() = %q, want cipher preserved for a 501 (session-only) reauth", sess.Salt())
	}
	if !d.Gated() {
		t.Fatal("dispatcher not gated after reauth trigger")
	}

	select {
	case <-reauthCh:
	case <-time.After(time.Second):
		t.Fatal("onReauth callback was never invoked")
	}
}

func TestHandleEncryptedSessionLostResetsCipher(t *testing.T) {
	d := dispatch.New("T", func(string, *wire.Command) error { return nil }, pacer.New(0), nil)
	_, tag := d.Enqueue(wire.NewCommand("FILE"), false)

	sess := session.New("apikey", 0, nil)
	sess.BeginEncrypted("saltvalue")
	sess.Authenticate("sesskey", 0)

	r := New(nil, d, sess, nil)
	r.handle([]byte(tag + " 598 SESSION GONE\n"))

	if sess.Salt() != "" {
		t.Fatalf("Salt() = %q, want cleared after a 598 (encrypted session lost)", sess.Salt())
	}
	if sess.State() != session.Unauth {
		t.Fatalf("State() = %v, want Unauth so the next login renegotiates ENCRYPT", sess.State())
	}
}

func TestHandleResolvesLoginAccepted(t *testing.T) {
	d := dispatch.New("T", func(string, *wire.Command) error { return nil }, pacer.New(0), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	ch, tag := d.Enqueue(wire.NewCommand("AUTH"), true)

	r := New(nil, d, session.New("", 0, nil), nil)
	r.handle([]byte(tag + " 200 sesskey LOGIN ACCEPTED\n"))

	select {
	case res := <-ch:
		if res.Response.Code != 200 {
			t.Fatalf("Code = %d, want 200", res.Response.Code)
		}
	case <-time.After(time.Second):
		t.Fatal("login-accepted response was never resolved")
	}
}
