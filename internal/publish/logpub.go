package publish

import (
	"context"

	"go.uber.org/zap"

	"github.com/shortontech/botmeter/internal/record"
)

// LogPublisher writes every record to the structured log. Useful in dev and
// as a fallback when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Name() string                    { return "log" }
func (p *LogPublisher) Start(ctx context.Context) error { return nil }
func (p *LogPublisher) Close() error                    { return nil }

func (p *LogPublisher) Publish(ctx context.Context, r record.Record) error {
	p.log.Info("record",
		zap.String("id", r.ID),
		zap.String("site", r.Site),
		zap.String("ip", r.Entry.IP),
		zap.String("path", r.Entry.Path),
		zap.Int64("bytes", r.Entry.Bytes),
		zap.Bool("is_bot", r.Result.IsBot),
		zap.String("bot_name", r.Result.BotName),
		zap.String("category", string(r.Result.Category)),
		zap.Float64("confidence", r.Result.Confidence),
	)
	return nil
}
