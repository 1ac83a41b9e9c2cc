package rpc

import (
	"context"
	"encoding/json"
	"log"

	"github.com/IBM/sarama"
)

// kafka 消息头
const (
	headerPattern       = "pattern"
	headerCorrelationID = "correlation_id"
	headerReplyTo       = "reply_to"
)

// KafkaTransport：把 Request 发布到请求 topic。
// 以 pattern 作为分区键，同一操作的请求落到同一分区。
type KafkaTransport struct {
	producer     sarama.SyncProducer
	requestTopic string
}

var _ Transport = (*KafkaTransport)(nil)

func NewKafkaTransport(producer sarama.SyncProducer, requestTopic string) *KafkaTransport {
	return &KafkaTransport{producer: producer, requestTopic: requestTopic}
}

func (t *KafkaTransport) SendRequest(ctx context.Context, req *Request) error {
	msg := &sarama.ProducerMessage{
		Topic: t.requestTopic,
		Key:   sarama.StringEncoder(req.Pattern),
		Value: sarama.ByteEncoder(req.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerPattern), Value: []byte(req.Pattern)},
			{Key: []byte(headerCorrelationID), Value: []byte(req.CorrelationID)},
			{Key: []byte(headerReplyTo), Value: []byte(req.ReplyTopic)},
		},
	}
	_, _, err := t.producer.SendMessage(msg)
	return err
}

// ReplyConsumer：消费回复 topic，把回复路由给 Client 的 waiter。
// 实现 sarama.ConsumerGroupHandler。
type ReplyConsumer struct {
	client *Client
	group  sarama.ConsumerGroup
	topic  string
}

var _ sarama.ConsumerGroupHandler = (*ReplyConsumer)(nil)

func NewReplyConsumer(client *Client, group sarama.ConsumerGroup, topic string) *ReplyConsumer {
	return &ReplyConsumer{client: client, group: group, topic: topic}
}

// Run：阻塞消费循环。rebalance 后 Consume 会返回，需要循环重进。
func (rc *ReplyConsumer) Run(ctx context.Context) error {
	for {
		if err := rc.group.Consume(ctx, []string{rc.topic}, rc); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (rc *ReplyConsumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (rc *ReplyConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (rc *ReplyConsumer) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		id := headerValue(msg.Headers, headerCorrelationID)
		if id == "" {
			// 没有 correlation id 的消息无法路由
			sess.MarkMessage(msg, "")
			continue
		}
		var resp Response
		if err := json.Unmarshal(msg.Value, &resp); err != nil {
			log.Printf("rpc: drop malformed reply corr=%s err=%v", id, err)
			sess.MarkMessage(msg, "")
			continue
		}
		rc.client.HandleReply(id, resp)
		sess.MarkMessage(msg, "")
	}
	return nil
}

func headerValue(headers []*sarama.RecordHeader, key string) string {
	for _, h := range headers {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}
