package publish

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shortontech/botmeter/internal/detect"
	"github.com/shortontech/botmeter/internal/logparse"
	"github.com/shortontech/botmeter/internal/record"
)

func TestLogPublisherEmitsRecordFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	if p.Name() != "log" {
		t.Errorf("Name = %q", p.Name())
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	rec := record.New("example.com",
		logparse.Entry{IP: "1.2.3.4", Path: "/feed", Bytes: 4096, UserAgent: "GPTBot/1.0"},
		detect.Result{IsBot: true, BotName: "GPTBot", Category: detect.CategoryAITraining, Confidence: 0.95},
	)
	if err := p.Publish(context.Background(), rec); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["site"] != "example.com" {
		t.Errorf("site field = %v", fields["site"])
	}
	if fields["bot_name"] != "GPTBot" {
		t.Errorf("bot_name field = %v", fields["bot_name"])
	}
	if fields["id"] != rec.ID {
		t.Errorf("id field = %v, want %s", fields["id"], rec.ID)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestKafkaPublisherDefaults(t *testing.T) {
	p := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, zaptest.NewLogger(t))
	if p.config.Topic != "botmeter.records" {
		t.Errorf("default topic = %q", p.config.Topic)
	}
	if p.config.Acks != "all" {
		t.Errorf("default acks = %q", p.config.Acks)
	}
	if p.Name() != "kafka" {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestKafkaPublishRequiresStart(t *testing.T) {
	p := NewKafkaPublisher(KafkaConfig{}, zaptest.NewLogger(t))
	err := p.Publish(context.Background(), record.Record{ID: "x"})
	if err == nil {
		t.Fatal("publishing before Start should fail")
	}
}

func TestKafkaCloseBeforeStartIsNoop(t *testing.T) {
	p := NewKafkaPublisher(KafkaConfig{}, zaptest.NewLogger(t))
	if err := p.Close(); err != nil {
		t.Errorf("Close before Start: %v", err)
	}
}
