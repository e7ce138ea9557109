package client

import (
	"context"
	"testing"
	"time"

	"github.com/snapetech/anidbclient/internal/anierrors"
	"github.com/snapetech/anidbclient/internal/dispatch"
	"github.com/snapetech/anidbclient/internal/metrics"
	"github.com/snapetech/anidbclient/internal/pacer"
	"github.com/snapetech/anidbclient/internal/session"
	"github.com/snapetech/anidbclient/internal/wire"
)

// newTestClient wires a Client whose dispatcher immediately resolves
// every sent command with respCode, so Vote/sendCommand can be
// exercised without a real UDP socket.
func newTestClient(t *testing.T, respCode int) *Client {
	t.Helper()
	var d *dispatch.Dispatcher
	d = dispatch.New("T", func(tag string, cmd *wire.Command) error {
		d.Resolve(tag, &wire.Response{Tag: tag, Code: respCode})
		return nil
	}, pacer.New(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)

	return &Client{
		disp:    d,
		sess:    session.New("", 0, nil),
		Metrics: metrics.New(nil),
	}
}

func TestParseAuthMessageWithNAT(t *testing.T) {
	key, ip, port := parseAuthMessage("abc123 1.2.3.4:9001 LOGIN ACCEPTED")
	if key != "abc123" || ip != "1.2.3.4" || port != 9001 {
		t.Fatalf("got (%q, %q, %d)", key, ip, port)
	}
}

func TestParseAuthMessageWithoutNAT(t *testing.T) {
	key, ip, port := parseAuthMessage("abc123 LOGIN ACCEPTED")
	if key != "abc123" || ip != "" || port != 0 {
		t.Fatalf("got (%q, %q, %d)", key, ip, port)
	}
}

func TestHexMaskWidth(t *testing.T) {
	if got := hexMask(uint64(requestFMask), 5); len(got) != 10 {
		t.Fatalf("hexMask width = %d, want 10", len(got))
	}
	if got := hexMask(uint64(requestAMask), 4); len(got) != 8 {
		t.Fatalf("hexMask width = %d, want 8", len(got))
	}
}

func TestClassifyErrorNotFound(t *testing.T) {
	err := classifyError("ANIME", &wire.Response{Code: 320})
	if _, ok := err.(*anierrors.NotFound); !ok {
		t.Fatalf("classifyError(320) = %v, want *anierrors.NotFound", err)
	}
}

func TestClassifyErrorSuccess(t *testing.T) {
	if err := classifyError("ANIME", &wire.Response{Code: 230}); err != nil {
		t.Fatalf("classifyError(230) = %v, want nil", err)
	}
}

func TestVoteAcceptsFreshAndUpdatedCodes(t *testing.T) {
	for _, code := range []int{codeVoted, codeVoteUpdated} {
		c := newTestClient(t, code)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := c.Vote(ctx, "1", 123, 8, ""); err != nil {
			t.Fatalf("Vote with response code %d: %v", code, err)
		}
	}
}

func TestVoteRejectsUnexpectedCode(t *testing.T) {
	c := newTestClient(t, 399)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := c.Vote(ctx, "1", 123, 8, "")
	if _, ok := err.(*anierrors.ProtocolViolation); !ok {
		t.Fatalf("Vote: err = %v, want *anierrors.ProtocolViolation", err)
	}
}

func TestFirstField(t *testing.T) {
	if got := firstField("  salt123 extra stuff "); got != "salt123" {
		t.Fatalf("firstField = %q", got)
	}
	if got := firstField(""); got != "" {
		t.Fatalf("firstField(\"\") = %q, want empty", got)
	}
}
