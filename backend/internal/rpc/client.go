package rpc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

const DefaultTimeout = 5 * time.Second

// ErrTimeout：在截止时间内没有等到相关回复。调用方据此和后端业务失败区分开。
var ErrTimeout = errors.New("rpc: request timed out")

// Request：一次请求在传输层的形态。
// Pattern 标识远端操作（如 "room.create"），CorrelationID 用于匹配回复，
// ReplyTopic 为空表示 fire-and-forget（不期待回复）。
type Request struct {
	Pattern       string
	CorrelationID string
	ReplyTopic    string
	Payload       []byte
}

// Transport：把请求投递到异步通道。具体实现见 kafka.go。
type Transport interface {
	SendRequest(ctx context.Context, req *Request) error
}

// Client：请求/回复协议的客户端。
// 发送时登记一个以 correlation id 为键的 waiter，
// 回复消费循环收到消息后调用 HandleReply 唤醒对应 waiter；
// 超时后 waiter 被移除，迟到的回复直接丢弃。
type Client struct {
	transport  Transport
	replyTopic string

	mu      sync.Mutex
	pending map[string]chan Response
}

func NewClient(transport Transport, replyTopic string) *Client {
	return &Client{
		transport:  transport,
		replyTopic: replyTopic,
		pending:    make(map[string]chan Response),
	}
}

// Send：发送请求并等待相关回复。timeout <= 0 时用 DefaultTimeout。
// 返回的 error 只代表传输层失败（通道错误 / 超时 / ctx 取消）；
// 后端报告的失败体现在 Response.Success=false 里。
func (c *Client) Send(ctx context.Context, pattern string, payload any, timeout time.Duration) (Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("rpc: marshal payload for %q: %w", pattern, err)
	}

	id, err := newCorrelationID()
	if err != nil {
		return Response{}, err
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := &Request{
		Pattern:       pattern,
		CorrelationID: id,
		ReplyTopic:    c.replyTopic,
		Payload:       body,
	}
	if err := c.transport.SendRequest(ctx, req); err != nil {
		return Response{}, fmt.Errorf("rpc: send %q: %w", pattern, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		return Response{}, fmt.Errorf("rpc: %q after %s: %w", pattern, timeout, ErrTimeout)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Emit：fire-and-forget，不登记 waiter、不期待回复。
func (c *Client) Emit(ctx context.Context, pattern string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("rpc: marshal payload for %q: %w", pattern, err)
	}
	id, err := newCorrelationID()
	if err != nil {
		return err
	}
	req := &Request{
		Pattern:       pattern,
		CorrelationID: id,
		Payload:       body,
	}
	if err := c.transport.SendRequest(ctx, req); err != nil {
		return fmt.Errorf("rpc: emit %q: %w", pattern, err)
	}
	return nil
}

// HandleReply：回复消费循环的入口。
// 没有匹配 waiter 的回复（已超时或不属于本实例）静默丢弃。
func (c *Client) HandleReply(correlationID string, resp Response) {
	c.mu.Lock()
	ch, ok := c.pending[correlationID]
	if ok {
		delete(c.pending, correlationID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	// waiter channel 带缓冲，不会阻塞
	ch <- resp
}

func newCorrelationID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("rpc: generate correlation id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
