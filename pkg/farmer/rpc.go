package farmer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/cuemby/spartan-farmer/pkg/metrics"
	"github.com/cuemby/spartan-farmer/pkg/piece"
)

const (
	subscribeMethod   = "poc_subscribeSlotInfo"
	unsubscribeMethod = "poc_unsubscribeSlotInfo"
	proposeMethod     = "poc_proposeProofOfSpace"
)

// SlotInfo is one slot-notification payload pushed by the consensus
// node's poc_subscribeSlotInfo subscription.
type SlotInfo struct {
	SlotNumber     uint64    `json:"slot_number"`
	Challenge      [8]byte   `json:"challenge"`
	Salt           [32]byte  `json:"salt"`
	NextSalt       *[32]byte `json:"next_salt"`
	SolutionRange  uint64    `json:"solution_range"`
}

// Solution is the farmer's answer to one slot, or nil when no candidate
// piece fell inside the slot's range.
type Solution struct {
	PublicKey [32]byte     `json:"public_key"`
	Nonce     uint64       `json:"nonce"`
	Encoding  piece.Piece  `json:"encoding"`
	Signature [64]byte     `json:"signature"`
	Tag       [8]byte      `json:"tag"`
}

type proposeResponse struct {
	SlotNumber uint64    `json:"slot_number"`
	Solution   *Solution `json:"solution"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcEnvelope struct {
	ID     *uint64         `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type pendingReply struct {
	result json.RawMessage
	err    *rpcError
}

// Client speaks the consensus node's JSON-RPC 2.0-over-WebSocket
// proof-of-space protocol: one subscription (poc_subscribeSlotInfo)
// delivering a stream of SlotInfo notifications, and one request method
// (poc_proposeProofOfSpace) used to answer each slot.
type Client struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	nextID  uint64

	pendingMu sync.Mutex
	pending   map[uint64]chan pendingReply

	notifications chan SlotInfo
	readErr       chan error

	subscriptionID string
}

// Dial opens a WebSocket connection to the consensus node at url.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		metrics.FarmerRPCErrorsTotal.WithLabelValues("dial").Inc()
		return nil, fmt.Errorf("dial consensus node %s: %w", url, err)
	}

	c := &Client{
		conn:          conn,
		pending:       make(map[uint64]chan pendingReply),
		notifications: make(chan SlotInfo, 16),
		readErr:       make(chan error, 1),
	}
	go c.readLoop()

	return c, nil
}

// Notifications returns the channel of incoming slot notifications. It
// is closed when the connection's read loop exits.
func (c *Client) Notifications() <-chan SlotInfo {
	return c.notifications
}

// ReadErr returns a channel that receives the error which terminated
// the connection's read loop, exactly once.
func (c *Client) ReadErr() <-chan error {
	return c.readErr
}

// Subscribe registers for slot notifications.
func (c *Client) Subscribe(ctx context.Context) error {
	result, err := c.call(ctx, subscribeMethod, []any{})
	if err != nil {
		return err
	}
	var id string
	if err := json.Unmarshal(result, &id); err == nil {
		c.subscriptionID = id
	}
	return nil
}

// Unsubscribe ends the slot notification subscription.
func (c *Client) Unsubscribe(ctx context.Context) error {
	_, err := c.call(ctx, unsubscribeMethod, []any{c.subscriptionID})
	return err
}

// ProposeSolution answers the given slot with solution, which may be
// nil when the farmer found no candidate piece.
func (c *Client) ProposeSolution(ctx context.Context, slotNumber uint64, solution *Solution) error {
	_, err := c.call(ctx, proposeMethod, []any{proposeResponse{SlotNumber: slotNumber, Solution: solution}})
	return err
}

// Close closes the underlying connection, terminating the read loop.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := atomic.AddUint64(&c.nextID, 1)
	replyCh := make(chan pendingReply, 1)

	c.pendingMu.Lock()
	c.pending[id] = replyCh
	c.pendingMu.Unlock()

	data, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		c.forgetPending(id)
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	c.writeMu.Lock()
	err = c.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.forgetPending(id)
		metrics.FarmerRPCErrorsTotal.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("write %s request: %w", method, err)
	}

	select {
	case reply := <-replyCh:
		if reply.err != nil {
			metrics.FarmerRPCErrorsTotal.WithLabelValues(method).Inc()
			return nil, fmt.Errorf("%s: %w", method, reply.err)
		}
		return reply.result, nil
	case <-ctx.Done():
		c.forgetPending(id)
		return nil, ctx.Err()
	case err := <-c.readErr:
		c.readErr <- err
		return nil, fmt.Errorf("%s: connection closed: %w", method, err)
	}
}

func (c *Client) forgetPending(id uint64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// readLoop is the connection's sole reader, dispatching each inbound
// frame either to a pending call's reply channel (by id) or, for
// subscription push frames, onto the notifications channel. Frames that
// do not parse, or carry another method, are skipped, and a notification
// that arrives while the notifications buffer is full is dropped.
func (c *Client) readLoop() {
	defer close(c.notifications)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.readErr <- err
			return
		}

		var envelope rpcEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}

		if envelope.ID != nil {
			c.pendingMu.Lock()
			ch, ok := c.pending[*envelope.ID]
			if ok {
				delete(c.pending, *envelope.ID)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- pendingReply{result: envelope.Result, err: envelope.Error}
			}
			continue
		}

		if envelope.Method == subscribeMethod {
			var info SlotInfo
			if err := json.Unmarshal(envelope.Params.Result, &info); err != nil {
				continue
			}
			select {
			case c.notifications <- info:
			default:
			}
		}
	}
}
