package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/floodwatch/flood-trigger-service/internal/config"
	"github.com/floodwatch/flood-trigger-service/internal/domain"
	"github.com/floodwatch/flood-trigger-service/internal/engine"
)

// Publisher produces trigger records and activation decisions to their Kafka
// topics. It implements engine.ResultSink.
type Publisher struct {
	records     *kafkago.Writer
	activations *kafkago.Writer
	logger      *slog.Logger
}

// NewPublisher creates Kafka producers for the records and alerts topics.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	newWriter := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.KafkaBrokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
		}
	}
	return &Publisher{
		records:     newWriter(cfg.KafkaRecordsTopic),
		activations: newWriter(cfg.KafkaAlertsTopic),
		logger:      logger,
	}
}

// Consume publishes every trigger record and activation decision of the
// result. Records go out in a single WriteMessages call per topic; message
// keys repeat deterministically across passes so compacted topics converge.
func (p *Publisher) Consume(ctx context.Context, result *engine.CountryResult) error {
	var msgs []kafkago.Message
	var buildErr error
	result.Records(func(rec domain.TriggerRecord) {
		if buildErr != nil {
			return
		}
		msg, err := recordMessage(rec)
		if err != nil {
			buildErr = err
			return
		}
		msgs = append(msgs, msg)
	})
	if buildErr != nil {
		return buildErr
	}
	if len(msgs) > 0 {
		if err := p.records.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish trigger records: %w", err)
		}
	}

	actMsgs := make([]kafkago.Message, 0, len(result.Activations))
	for _, d := range result.Activations {
		msg, err := activationMessage(d)
		if err != nil {
			return err
		}
		actMsgs = append(actMsgs, msg)
	}
	if len(actMsgs) > 0 {
		if err := p.activations.WriteMessages(ctx, actMsgs...); err != nil {
			return fmt.Errorf("publish activation decisions: %w", err)
		}
	}

	p.logger.Info("results published",
		"country_code", result.CountryCode,
		"records", len(msgs),
		"activations", len(actMsgs),
	)
	return nil
}

// Close shuts down both producers.
func (p *Publisher) Close() error {
	return errors.Join(p.records.Close(), p.activations.Close())
}

// recordMessage marshals a TriggerRecord into a Kafka message keyed by
// station and forecast date.
func recordMessage(rec domain.TriggerRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize trigger record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.StationID + "|" + rec.ForecastDate),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_status", Value: []byte(rec.AlertStatus)},
			{Key: "country_code", Value: []byte(rec.CountryCode)},
		},
	}, nil
}

// activationMessage marshals an ActivationDecision keyed by country and
// forecast date.
func activationMessage(d engine.ActivationDecision) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize activation decision: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(d.CountryCode + "|" + d.ForecastDate),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_status", Value: []byte(d.AlertStatus)},
		},
	}, nil
}
