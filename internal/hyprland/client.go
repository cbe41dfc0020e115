// Package hyprland provides a client for Hyprland's request socket
// (.socket.sock), used to list windows, close them, show notifications and
// end the session.
//
// The [Client] type owns the discovered socket path and request framing.
// Every request opens its own connection because Hyprland closes the socket
// after each reply. Socket discovery is handled by conn_unix.go and the
// compositor-exit [Watcher] by watcher.go.
package hyprland

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"tools.zach/dev/hyprshutdown/internal/logger"
	"tools.zach/dev/hyprshutdown/internal/paths"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrNotConnected is returned when a request is made on a closed client.
var ErrNotConnected = errors.New("not connected")

// ///////////////////////////////////////////////
// Data Types
// ///////////////////////////////////////////////

// WorkspaceRef identifies the workspace a window lives on.
type WorkspaceRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Window is one entry of the j/clients reply. Only the fields used for
// closing and logging are decoded.
type Window struct {
	Address      string       `json:"address"`
	Mapped       bool         `json:"mapped"`
	Hidden       bool         `json:"hidden"`
	Workspace    WorkspaceRef `json:"workspace"`
	Class        string       `json:"class"`
	Title        string       `json:"title"`
	InitialClass string       `json:"initialClass"`
	PID          int          `json:"pid"`
	XWayland     bool         `json:"xwayland"`
}

// VersionInfo is the j/version reply.
type VersionInfo struct {
	Branch  string `json:"branch"`
	Commit  string `json:"commit"`
	Version string `json:"version"`
	Dirty   bool   `json:"dirty"`
	Tag     string `json:"tag"`
}

// Icon selects the notification icon.
type Icon int

// Notification icons, in Hyprland's numbering.
const (
	IconNone     Icon = -1
	IconWarning  Icon = 0
	IconInfo     Icon = 1
	IconHint     Icon = 2
	IconError    Icon = 3
	IconConfused Icon = 4
	IconOK       Icon = 5
)

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// DefaultTimeout bounds a single request when the context has no earlier
// deadline.
const DefaultTimeout = 5 * time.Second

// Client sends requests to one Hyprland instance.
type Client struct {
	// mu protects socket.
	mu sync.Mutex
	// socket is the request socket path, or empty once closed.
	socket string
	// timeout bounds each request.
	timeout time.Duration
	// log receives request traces.
	log *slog.Logger
}

// NewClient creates a client for a known socket path.
func NewClient(socket string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{socket: socket, timeout: DefaultTimeout, log: log}
}

// Dial finds the request socket for inst and returns a client for it.
// It returns an error wrapping [ErrIPCNotAvailable] when no candidate socket
// accepts connections.
func Dial(inst paths.Instance, log *slog.Logger) (*Client, error) {
	socket, err := findSocket(inst.SocketCandidates())
	if err != nil {
		return nil, err
	}
	return NewClient(socket, log), nil
}

// Socket returns the socket path in use, or "" when closed.
func (c *Client) Socket() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socket
}

// Connected reports whether the client can still send requests.
func (c *Client) Connected() bool {
	return c.Socket() != ""
}

// Close marks the client closed. There is no persistent connection to tear
// down, so Close never fails.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.socket = ""
	return nil
}

// Request sends a raw, already encoded request and returns the reply.
func (c *Client) Request(ctx context.Context, req string) ([]byte, error) {
	socket := c.Socket()
	if socket == "" {
		return nil, ErrNotConnected
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", socket, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}
	if _, err := conn.Write([]byte(req)); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		_ = uc.CloseWrite()
	}

	reply, err := ReadResponse(conn)
	if err != nil {
		return nil, err
	}
	logger.Trace(c.log, "hyprland request", "request", req, "reply_bytes", len(reply))
	return reply, nil
}

// command encodes and sends a single command.
func (c *Client) command(ctx context.Context, flags, command string) ([]byte, error) {
	req, err := EncodeRequest(flags, command)
	if err != nil {
		return nil, err
	}
	return c.Request(ctx, req)
}

// dispatch sends a single dispatcher call and checks for "ok".
func (c *Client) dispatch(ctx context.Context, args string) error {
	reply, err := c.command(ctx, "", "dispatch "+args)
	if err != nil {
		return err
	}
	return CheckOK(reply, 1)
}

// Version returns the running compositor's version.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	reply, err := c.command(ctx, FlagJSON, "version")
	if err != nil {
		return nil, err
	}
	var v VersionInfo
	if err := json.Unmarshal(reply, &v); err != nil {
		return nil, fmt.Errorf("parsing version reply: %w", err)
	}
	return &v, nil
}

// Clients returns every window known to the compositor.
func (c *Client) Clients(ctx context.Context) ([]Window, error) {
	reply, err := c.command(ctx, FlagJSON, "clients")
	if err != nil {
		return nil, err
	}
	var ws []Window
	if err := json.Unmarshal(reply, &ws); err != nil {
		return nil, fmt.Errorf("parsing clients reply: %w", err)
	}
	return ws, nil
}

// closeArgs builds the dispatcher arguments targeting one window.
func closeArgs(dispatcher, address string) string {
	return dispatcher + " address:" + address
}

// CloseWindow asks one window to close, as if the user closed it.
func (c *Client) CloseWindow(ctx context.Context, address string) error {
	return c.dispatch(ctx, closeArgs("closewindow", address))
}

// KillWindow kills one window's client.
func (c *Client) KillWindow(ctx context.Context, address string) error {
	return c.dispatch(ctx, closeArgs("killwindow", address))
}

// CloseWindows asks every listed window to close using as few batched
// requests as fit. It stops at the first failing batch.
func (c *Client) CloseWindows(ctx context.Context, addresses []string) error {
	return c.batchDispatch(ctx, "closewindow", addresses)
}

// KillWindows kills every listed window using batched requests.
func (c *Client) KillWindows(ctx context.Context, addresses []string) error {
	return c.batchDispatch(ctx, "killwindow", addresses)
}

// batchDispatch sends one dispatcher per address in batches.
func (c *Client) batchDispatch(ctx context.Context, dispatcher string, addresses []string) error {
	if len(addresses) == 0 {
		return nil
	}
	cmds := make([]string, len(addresses))
	for i, a := range addresses {
		cmds[i] = "dispatch " + closeArgs(dispatcher, a)
	}
	for _, group := range SplitBatches(cmds) {
		req, err := EncodeBatch(group)
		if err != nil {
			return err
		}
		reply, err := c.Request(ctx, req)
		if err != nil {
			return err
		}
		if err := CheckOK(reply, len(group)); err != nil {
			return fmt.Errorf("%s batch of %d: %w", dispatcher, len(group), err)
		}
	}
	return nil
}

// Notify shows a notification for dur. An empty color or "0" uses the
// compositor default.
func (c *Client) Notify(ctx context.Context, icon Icon, dur time.Duration, color, msg string) error {
	if color == "" {
		color = "0"
	}
	ms := strconv.FormatInt(dur.Milliseconds(), 10)
	reply, err := c.command(ctx, "", "notify "+strconv.Itoa(int(icon))+" "+ms+" "+color+" "+msg)
	if err != nil {
		return err
	}
	return CheckOK(reply, 1)
}

// Exit ends the Hyprland session.
func (c *Client) Exit(ctx context.Context) error {
	return c.dispatch(ctx, "exit")
}
