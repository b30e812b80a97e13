// Package session turns gateway events into the application's view of
// discovered devices, the single active connection and the session log.
//
// All state is owned by one goroutine, Controller.Run. Gateway events and
// user commands are both processed there one at a time, so handlers never
// run concurrently and need no locking.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chaz8081/bleterm/internal/ble"
	"github.com/chaz8081/bleterm/internal/registry"
	"github.com/chaz8081/bleterm/internal/sessionlog"
)

// State is the controller's connection state, derived from its fields.
type State int

const (
	Idle State = iota
	Scanning
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "idle"
	}
}

// Options configures the controller behavior.
type Options struct {
	CommandBuffer int  // capacity of the command queue
	AutoStart     bool // start scanning when the adapter powers on
	// ClearOnDrop clears the connected flag and the active session when a
	// Disconnected event arrives for the active device without a prior
	// Disconnect call.
	ClearOnDrop bool
	// HexFallback appends a hex dump of undecodable payloads to the
	// "not UTF-8" log line.
	HexFallback bool
	Now         func() time.Time // log clock; time.Now when nil
}

// DefaultOptions returns the defaults used by bleterm.
func DefaultOptions() Options {
	return Options{
		CommandBuffer: 16,
		AutoStart:     true,
		ClearOnDrop:   true,
	}
}

// Snapshot is the controller state at one point, for presentation.
// Log shares storage with the session log and must be treated as read-only.
type Snapshot struct {
	Devices  []registry.Device
	Scanning bool
	State    State
	ActiveID string
	Log      []sessionlog.Entry
	Error    ErrorState
}

// Controller is the connection session state machine.
type Controller struct {
	gw   ble.Gateway
	opts Options
	cmds chan func()
	done chan struct{}

	// Owned by the Run goroutine.
	devices   *registry.Registry
	log       *sessionlog.Log
	scanning  bool
	pendingID string
	activeID  string
	errState  ErrorState

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
	last    Snapshot
}

// NewController creates a controller driving gw. Call Run to start it.
func NewController(gw ble.Gateway, opts Options) *Controller {
	if opts.CommandBuffer <= 0 {
		opts.CommandBuffer = 16
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		gw:      gw,
		opts:    opts,
		cmds:    make(chan func(), opts.CommandBuffer),
		done:    make(chan struct{}),
		devices: registry.New(),
		log:     sessionlog.NewWithClock(now),
		subs:    make(map[int]chan Snapshot),
	}
	c.last = c.snapshot()
	return c
}

// Run processes gateway events and commands until ctx is done or the event
// stream is closed.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	events := c.gw.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				slog.Info("[session] gateway event stream closed")
				return nil
			}
			c.handle(ev)
		case fn := <-c.cmds:
			fn()
		}
		c.publish()
	}
}

// Initialize acquires the radio through the gateway. An unavailable adapter
// is surfaced once through the error state.
func (c *Controller) Initialize() error {
	err := c.gw.Initialize()
	if err != nil {
		c.post(func() {
			c.fail(&Failure{Kind: AdapterUnavailable, Err: err}, "Bluetooth is not available: %v", err)
			c.errState = ErrorState{Present: true, Message: err.Error()}
		})
		return fmt.Errorf("session: initialize gateway: %w", err)
	}
	return nil
}

// StartScanning clears devices and the log and starts discovery.
func (c *Controller) StartScanning() { c.post(c.startScanning) }

// StopScanning stops discovery and discards discovered devices.
func (c *Controller) StopScanning() { c.post(c.stopScanning) }

// ConnectToDevice starts connecting to a discovered device.
func (c *Controller) ConnectToDevice(id string) { c.post(func() { c.connectToDevice(id) }) }

// Disconnect tears down the active session, if any.
func (c *Controller) Disconnect() { c.post(c.disconnect) }

// DismissError clears the user-facing error.
func (c *Controller) DismissError() {
	c.post(func() { c.errState = ErrorState{} })
}

// Snapshot returns the state after every previously posted command has run.
// Once Run has returned it returns the last published state.
func (c *Controller) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !c.post(func() { reply <- c.snapshot() }) {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		return c.last
	}
	select {
	case s := <-reply:
		return s
	case <-c.done:
		c.subMu.Lock()
		defer c.subMu.Unlock()
		return c.last
	}
}

// Subscribe returns a channel that always holds the most recent snapshot not
// yet received; older unread snapshots are replaced. cancel closes it.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.last
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// post queues fn for the Run goroutine. It reports false when Run has exited.
func (c *Controller) post(fn func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.cmds <- fn:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) publish() {
	snap := c.snapshot()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.last = snap
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		Devices:  c.devices.Devices(),
		Scanning: c.scanning,
		State:    c.state(),
		ActiveID: c.activeID,
		Log:      c.log.View(),
		Error:    c.errState,
	}
}

func (c *Controller) state() State {
	switch {
	case c.activeID != "":
		return Connected
	case c.pendingID != "":
		return Connecting
	case c.scanning:
		return Scanning
	default:
		return Idle
	}
}
