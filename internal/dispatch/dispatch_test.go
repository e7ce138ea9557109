package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/snapetech/anidbclient/internal/pacer"
	"github.com/snapetech/anidbclient/internal/wire"
)

func TestEnqueueResolveDeliversResponse(t *testing.T) {
	sent := make(chan string, 1)
	d := New("T", func(tag string, cmd *wire.Command) error {
		sent <- tag
		return nil
	}, pacer.New(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	ch, tag := d.Enqueue(wire.NewCommand("PING"), false)

	select {
	case got := <-sent:
		if got != tag {
			t.Fatalf("send() got tag %q, want %q", got, tag)
		}
	case <-time.After(time.Second):
		t.Fatal("command was never sent")
	}

	d.Resolve(tag, &wire.Response{Tag: tag, Code: 300})

	select {
	case res := <-ch:
		if res.Err != nil || res.Response.Code != 300 {
			t.Fatalf("unexpected result: %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatal("result never delivered")
	}
}

func TestPriorityJumpsAheadOfNormal(t *testing.T) {
	var order []string
	done := make(chan struct{}, 2)
	d := New("T", func(tag string, cmd *wire.Command) error {
		order = append(order, cmd.Name)
		done <- struct{}{}
		return nil
	}, pacer.New(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Enqueue a normal command first, then start the loop so both the
	// normal and priority commands are queued before any send happens.
	_, _ = d.Enqueue(wire.NewCommand("FILE"), false)
	_, _ = d.Enqueue(wire.NewCommand("AUTH"), true)

	go d.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("commands were never sent")
		}
	}
	if len(order) != 2 || order[0] != "AUTH" {
		t.Fatalf("send order = %v, want AUTH first", order)
	}
}

func TestGateStarvesOrdinaryTrafficButLetsHandshakeThrough(t *testing.T) {
	sent := make(chan string, 2)
	d := New("T", func(tag string, cmd *wire.Command) error {
		sent <- cmd.Name
		return nil
	}, pacer.New(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Gate()
	_, _ = d.Enqueue(wire.NewCommand("FILE"), false)

	select {
	case name := <-sent:
		t.Fatalf("gated dispatcher sent %q, want nothing", name)
	case <-time.After(100 * time.Millisecond):
	}

	_, _ = d.Enqueue(wire.NewCommand("ENCRYPT"), true)
	select {
	case name := <-sent:
		if name != "ENCRYPT" {
			t.Fatalf("send() got %q, want ENCRYPT to pass the gate", name)
		}
	case <-time.After(time.Second):
		t.Fatal("handshake command was never sent while gated")
	}

	d.Release()
	select {
	case name := <-sent:
		if name != "FILE" {
			t.Fatalf("send() got %q, want FILE released after Release()", name)
		}
	case <-time.After(time.Second):
		t.Fatal("queued command was never sent after Release()")
	}
}

func TestOnlyLogoutQueuedTrueWhenEmpty(t *testing.T) {
	d := New("T", func(string, *wire.Command) error { return nil }, pacer.New(0), nil)
	if !d.OnlyLogoutQueued() {
		t.Fatal("OnlyLogoutQueued() = false with nothing in flight")
	}
	_, tag := d.Enqueue(wire.NewCommand("LOGOUT"), true)
	if !d.OnlyLogoutQueued() {
		t.Fatal("OnlyLogoutQueued() = false with only LOGOUT in flight")
	}
	d.ResolveErr(tag, nil)

	_, _ = d.Enqueue(wire.NewCommand("FILE"), false)
	if d.OnlyLogoutQueued() {
		t.Fatal("OnlyLogoutQueued() = true with a non-LOGOUT command queued")
	}
}
