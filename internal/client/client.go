// Package client wires the wire/pacer/session/dispatch/router/store
// stack together into the single public entry point spec.md's §4
// package layout calls the Client: it owns the UDP socket, drives the
// AUTH/ENCRYPT handshake, runs the keepalive loop, and implements the
// Fetcher interfaces the anime/episode/file/group domain packages
// depend on plus mylist.API. Grounded on adbb/link.py's AniDBLink,
// which plays the same "one object owns the socket and the session"
// role.
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/snapetech/anidbclient/internal/anierrors"
	"github.com/snapetech/anidbclient/internal/anilog"
	"github.com/snapetech/anidbclient/internal/catalog"
	"github.com/snapetech/anidbclient/internal/config"
	"github.com/snapetech/anidbclient/internal/dispatch"
	"github.com/snapetech/anidbclient/internal/metrics"
	"github.com/snapetech/anidbclient/internal/netrc"
	"github.com/snapetech/anidbclient/internal/pacer"
	"github.com/snapetech/anidbclient/internal/router"
	"github.com/snapetech/anidbclient/internal/session"
	"github.com/snapetech/anidbclient/internal/store"
	"github.com/snapetech/anidbclient/internal/wire"
)

// ProtoVer and ClientName/ClientVer identify this library to the AUTH
// command, the same way adbb.AuthCommand's client/clientver parameters
// do.
const (
	ProtoVer   = "3"
	ClientName = "anidbclient"
	ClientVer  = "1"
)

// Client is the top-level handle spec.md's package layout calls the
// Client: construct with New, call Start to open the socket and log in,
// and Close to log out and release resources.
type Client struct {
	cfg *config.Config
	log *anilog.Logger

	Store   *store.Store
	Catalog *catalog.Catalog
	Metrics *metrics.Metrics

	conn  *net.UDPConn
	sess  *session.Session
	pacer *pacer.Pacer
	disp  *dispatch.Dispatcher
	rtr   *router.Router

	mu        sync.Mutex
	user      string
	pass      string
	loggedOut bool

	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

// New constructs a Client from cfg but performs no network I/O; call
// Start to connect and log in.
func New(cfg *config.Config) (*Client, error) {
	log := anilog.New(nil, "client")
	anilog.Debug = cfg.Debug

	dbPath := strings.TrimPrefix(cfg.StorageURL, "sqlite://")
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("client: open store: %w", err)
	}

	user, pass := netrc.ApplyCredentials(cfg.NetrcFile, cfg.ServerHost, cfg.APIUser, cfg.APIPass)

	cat := catalog.New(cfg.CatalogDir, anilog.New(nil, "catalog"))
	cat.SetFreshInterval(cfg.CatalogMinInterval)

	c := &Client{
		cfg:     cfg,
		log:     log,
		Store:   s,
		Catalog: cat,
		Metrics: metrics.New(nil),
		sess:    session.New(cfg.APIKey, cfg.OutgoingUDPPort, anilog.New(nil, "session")),
		pacer:   pacer.New(time.Duration(cfg.BanCap) * time.Second),
		user:    user,
		pass:    pass,
	}
	return c, nil
}

// Start binds the UDP socket, launches the dispatcher/router goroutines
// and the keepalive loop, then runs the ENCRYPT (if configured)/AUTH
// handshake (spec.md §4.3).
func (c *Client) Start(ctx context.Context) error {
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", c.cfg.ServerHost, c.cfg.ServerPort))
	if err != nil {
		return fmt.Errorf("client: resolve %s: %w", c.cfg.ServerHost, err)
	}
	laddr := &net.UDPAddr{Port: c.cfg.OutgoingUDPPort}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return fmt.Errorf("client: dial: %w", err)
	}
	c.conn = conn

	runCtx, cancel := context.WithCancel(ctx)
	c.runCancel = cancel

	c.disp = dispatch.New(c.cfg.TagPrefix, c.send, c.pacer, anilog.New(nil, "dispatch"))
	c.rtr = router.New(conn, c.disp, c.sess, anilog.New(nil, "router"))
	c.rtr.SetDecrypter(func(ct []byte) ([]byte, error) { return c.decryptPayload(ct) })
	c.rtr.OnBan(func(code int) {
		c.pacer.SetBanned()
		c.Metrics.BansEntered.Inc()
	})
	c.rtr.OnReauth(func() {
		reauthCtx, cancel := context.WithTimeout(runCtx, 30*time.Second)
		defer cancel()
		if err := c.login(reauthCtx); err != nil {
			c.log.Printf("reauth failed: %v", err)
		}
		c.disp.Release()
	})

	c.wg.Add(2)
	go func() { defer c.wg.Done(); c.disp.Run(runCtx) }()
	go func() { defer c.wg.Done(); _ = c.rtr.Run(runCtx) }()

	if err := c.login(runCtx); err != nil {
		cancel()
		return err
	}
	c.log.Printf("logged in as %s, state %s", c.user, c.sess.State())

	c.wg.Add(1)
	go func() { defer c.wg.Done(); c.keepaliveLoop(runCtx) }()
	return nil
}

// Close logs out (unless the session is already known gone
// server-side), stops the background goroutines, and closes the store
// and socket.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	loggedOut := c.loggedOut
	c.mu.Unlock()

	if !loggedOut && c.sess.State() == session.Authed {
		logoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, _ = c.sendCommand(logoutCtx, wire.NewCommand("LOGOUT"), true)
		cancel()
	}
	if c.runCancel != nil {
		c.runCancel()
	}
	c.wg.Wait()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	return c.Store.Close()
}

// commandNeedsSession reports whether cmd must carry the s=<sesskey>
// parameter AniDB requires on every command except the handshake
// commands that establish the session in the first place.
func commandNeedsSession(name string) bool {
	switch name {
	case "AUTH", "ENCRYPT", "PING":
		return false
	}
	return true
}

func (c *Client) send(tag string, cmd *wire.Command) error {
	if commandNeedsSession(cmd.Name) {
		if key := c.sess.Key(); key != "" {
			cmd.Set("s", key)
		}
	}
	line := cmd.Encode(tag)
	payload := []byte(line)
	if salt := c.sess.Salt(); salt != "" {
		enc, err := wire.Encrypt(wire.SessionKey(c.cfg.APIKey, salt), payload)
		if err != nil {
			return err
		}
		payload = enc
	}
	c.Metrics.CommandsSent.WithLabelValues(cmd.Name).Inc()
	_, err := c.conn.Write(payload)
	return err
}

func (c *Client) decryptPayload(ciphertext []byte) ([]byte, error) {
	key := wire.SessionKey(c.cfg.APIKey, c.sess.Salt())
	return wire.Decrypt(key, ciphertext)
}

// sendCommand enqueues cmd, waits for its result, and translates the
// not-found codes (320/330/340/350) into anierrors.NotFound; every other
// response code comes back with a nil error for the caller to inspect.
func (c *Client) sendCommand(ctx context.Context, cmd *wire.Command, priority bool) (*wire.Response, error) {
	ch, tag := c.disp.Enqueue(cmd, priority)
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		c.sess.Touch()
		return res.Response, classifyError(cmd.Name, res.Response)
	case <-ctx.Done():
		return nil, &anierrors.Timeout{Command: cmd.Name, Tag: tag}
	}
}

func classifyError(command string, resp *wire.Response) error {
	switch {
	case resp.Code == 320 || resp.Code == 330 || resp.Code == 340 || resp.Code == 350:
		return &anierrors.NotFound{Entity: command, Code: resp.Code}
	case resp.Code >= 200 && resp.Code < 400:
		return nil
	case resp.Code == 312 || resp.Code == 311:
		return nil // multi-entry add, handled by the caller via AddResult.Entries
	default:
		return nil
	}
}

func (c *Client) login(ctx context.Context) error {
	if c.sess.NeedsEncrypt() {
		enc := wire.NewCommand("ENCRYPT").Set("user", strings.ToLower(c.user)).Set("type", "1")
		resp, err := c.sendCommand(ctx, enc, true)
		if err != nil {
			return fmt.Errorf("client: encrypt: %w", err)
		}
		salt := firstField(resp.Message)
		c.sess.BeginEncrypted(salt)
	}

	auth := wire.NewCommand("AUTH").
		Set("user", c.user).
		Set("pass", c.pass).
		Set("protover", ProtoVer).
		Set("client", ClientName).
		Set("clientver", ClientVer).
		Set("nat", "1").
		Set("comp", "1").
		Set("enc", "UTF8")
	resp, err := c.sendCommand(ctx, auth, true)
	if err != nil {
		return fmt.Errorf("client: auth: %w", err)
	}
	if !session.IsLoginSuccess(resp.Code) {
		return fmt.Errorf("client: auth failed: code %d %s", resp.Code, resp.Message)
	}
	key, ip, port := parseAuthMessage(resp.Message)
	_ = ip
	c.sess.Authenticate(key, port)
	return nil
}

// keepaliveLoop sends PING (NAT-detected sessions) or UPTIME (idle
// sessions) at the cadence config.KeepaliveInterval/IdleUptimeAfter
// specify (spec.md §4.3).
func (c *Client) keepaliveLoop(ctx context.Context) {
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if c.sess.NATDetected() && c.pacer.Idle(c.cfg.KeepaliveInterval) {
				_, _ = c.sendCommand(ctx, wire.NewCommand("PING"), true)
				continue
			}
			if c.pacer.Idle(c.cfg.IdleUptimeAfter) {
				_, _ = c.sendCommand(ctx, wire.NewCommand("UPTIME"), false)
			}
		}
	}
}

// firstField returns the first whitespace-delimited token of s.
func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// parseAuthMessage extracts the session key and, if the server echoed
// its view of our address (NAT detection, spec.md §4.3), the port.
// The AUTH 200/201 resstr is "<sesskey> LOGIN ACCEPTED" normally, or
// "<sesskey> LOGIN ACCEPTED - NEW VERSION AVAILABLE"; with nat=1 it's
// "<sesskey> <ip>:<port> LOGIN ACCEPTED".
func parseAuthMessage(msg string) (key, ip string, port int) {
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return "", "", 0
	}
	key = fields[0]
	if len(fields) > 1 && strings.Contains(fields[1], ":") {
		parts := strings.SplitN(fields[1], ":", 2)
		ip = parts[0]
		port, _ = strconv.Atoi(parts[1])
	}
	return key, ip, port
}

