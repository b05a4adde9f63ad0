// Package events announces applied dataset changes on a Kafka topic so
// downstream consumers (digests, dashboards) can react without polling the
// record store.
package events

import (
	"context"
	"encoding/json"

	"github.com/gartstein/scout/internal/scout/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CompanyFunding   EventType = "company_funding"
	CompanyAcquired  EventType = "company_acquired"
	CompanyIPO       EventType = "company_ipo"
	CompanyMilestone EventType = "company_milestone"
	CompanyInserted  EventType = "company_inserted"
)

type Event struct {
	Type    EventType
	Company *models.Company
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer ships events asynchronously through a buffered channel; when the
// buffer is full the event is dropped with a warning rather than blocking an
// enrichment run.
type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	topicConfigs := []kafka.TopicConfig{
		{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
	}
	if err := conn.CreateTopics(topicConfigs...); err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	p := &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
			Topic:    topic,
		},
		events:    make(chan Event, 1000),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}

	go p.eventLoop()
	return p, nil
}

func (p *Producer) Produce(eventType EventType, company *models.Company) {
	select {
	case p.events <- Event{Type: eventType, Company: company}:
	default:
		p.logger.Warn("producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("company", company.Name),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("failed to serialize event",
			zap.Error(err),
			zap.String("company", event.Company.Name),
		)
		return
	}
	// Keyed by name: record ids are reassigned on every mutating run and
	// cannot partition a stream.
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Company.Name),
		Value: value,
	})
	if err != nil {
		p.logger.Error("failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("company", event.Company.Name),
		)
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("failed to close Kafka writer", zap.Error(err))
	}
}
