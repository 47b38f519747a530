package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ipcMessage covers both halves of the mpv IPC protocol: command replies
// (request_id + error) and asynchronous events (event + payload fields).
type ipcMessage struct {
	RequestID int64           `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

var errIPCClosed = errors.New("mpv ipc connection closed")

// ipcClient multiplexes commands and events over one unix socket. Replies
// are routed by request_id; events are fanned out on a buffered channel.
type ipcClient struct {
	conn   net.Conn
	nextID atomic.Int64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan ipcMessage
	closed  bool

	events chan ipcMessage
}

// dialIPC connects to the mpv socket, retrying until the deadline: mpv
// creates the socket some time after process start.
func dialIPC(ctx context.Context, socketPath string, timeout time.Duration) (*ipcClient, error) {
	deadline := time.Now().Add(timeout)
	var conn net.Conn
	var err error
	for {
		conn, err = net.DialTimeout("unix", socketPath, time.Second)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("dial mpv socket %q: %w", socketPath, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	c := &ipcClient{
		conn:    conn,
		pending: make(map[int64]chan ipcMessage),
		events:  make(chan ipcMessage, 32),
	}
	go c.readLoop()
	return c, nil
}

func (c *ipcClient) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Event != "" {
			select {
			case c.events <- msg:
			default:
				// A stalled consumer must not wedge the socket reader.
			}
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		if ok {
			delete(c.pending, msg.RequestID)
		}
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
	c.close()
}

// command sends one command and waits for its reply.
func (c *ipcClient) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	reply := make(chan ipcMessage, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errIPCClosed
	}
	c.pending[id] = reply
	c.mu.Unlock()

	payload, err := json.Marshal(ipcRequest{Command: args, RequestID: id})
	if err != nil {
		return nil, err
	}
	payload = append(payload, '\n')

	c.writeMu.Lock()
	_, err = c.conn.Write(payload)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("write mpv command: %w", err)
	}

	select {
	case msg, ok := <-reply:
		if !ok {
			return nil, errIPCClosed
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", msg.Error)
		}
		return msg.Data, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *ipcClient) setProperty(ctx context.Context, name string, value any) error {
	_, err := c.command(ctx, "set_property", name, value)
	return err
}

func (c *ipcClient) getFloat(ctx context.Context, name string) (float64, error) {
	data, err := c.command(ctx, "get_property", name)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("property %s: %w", name, err)
	}
	return v, nil
}

func (c *ipcClient) observeProperty(ctx context.Context, id int64, name string) error {
	_, err := c.command(ctx, "observe_property", id, name)
	return err
}

// shutdown closes the socket. The read loop notices and runs the full
// cleanup, so the events channel is only ever closed from one place.
func (c *ipcClient) shutdown() {
	_ = c.conn.Close()
}

// close tears the connection down and fails every waiter.
func (c *ipcClient) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = map[int64]chan ipcMessage{}
	c.mu.Unlock()

	_ = c.conn.Close()
	for _, ch := range pending {
		close(ch)
	}
	close(c.events)
}
