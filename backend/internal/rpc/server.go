package rpc

import (
	"context"
	"encoding/json"
	"log"

	"github.com/IBM/sarama"
)

// HandlerFunc：处理一个 pattern 的请求，返回响应信封。
// 业务失败通过 Fail(...) 返回，不要 panic。
type HandlerFunc func(ctx context.Context, payload []byte) Response

// Server：队列侧的请求分发器（Room Backend 进程用）。
// 消费请求 topic，按 pattern 头分发到注册的 handler，
// 把响应发回请求方指定的 reply topic（带相同 correlation id）。
// 消费组先 Mark 后处理由 sarama 自动提交，语义为 at-least-once。
type Server struct {
	producer sarama.SyncProducer
	group    sarama.ConsumerGroup
	topic    string
	handlers map[string]HandlerFunc
}

var _ sarama.ConsumerGroupHandler = (*Server)(nil)

func NewServer(producer sarama.SyncProducer, group sarama.ConsumerGroup, topic string) *Server {
	return &Server{
		producer: producer,
		group:    group,
		topic:    topic,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle 注册 pattern 对应的 handler。必须在 Run 之前调用完。
func (s *Server) Handle(pattern string, fn HandlerFunc) {
	s.handlers[pattern] = fn
}

func (s *Server) Run(ctx context.Context) error {
	for {
		if err := s.group.Consume(ctx, []string{s.topic}, s); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Server) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (s *Server) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (s *Server) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		pattern := headerValue(msg.Headers, headerPattern)
		correlationID := headerValue(msg.Headers, headerCorrelationID)
		replyTo := headerValue(msg.Headers, headerReplyTo)

		resp := s.dispatch(sess.Context(), pattern, msg.Value)

		// replyTo 为空是 emit（fire-and-forget），只处理不回复
		if replyTo != "" {
			if err := s.reply(replyTo, correlationID, resp); err != nil {
				log.Printf("rpc: reply %s corr=%s failed: %v", pattern, correlationID, err)
			}
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (s *Server) dispatch(ctx context.Context, pattern string, payload []byte) Response {
	fn, ok := s.handlers[pattern]
	if !ok {
		return Fail("unknown pattern: " + pattern)
	}
	return fn(ctx, payload)
}

func (s *Server) reply(topic, correlationID string, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(correlationID),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerCorrelationID), Value: []byte(correlationID)},
		},
	}
	_, _, err = s.producer.SendMessage(msg)
	return err
}
