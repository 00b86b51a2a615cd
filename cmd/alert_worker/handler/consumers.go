package handler

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Arletteportilla/vivero-alerts/pkg/alerting"
	"github.com/Arletteportilla/vivero-alerts/pkg/kafka"
	"github.com/Arletteportilla/vivero-alerts/pkg/models"
	"github.com/Arletteportilla/vivero-alerts/pkg/repositories"
	"github.com/Arletteportilla/vivero-alerts/pkg/rules"
	"github.com/Arletteportilla/vivero-alerts/pkg/types"
)

// HandleRecordCreated consumes record-created events from the tracking
// modules, mirrors the record locally, and generates its alerts. The
// feed is at-least-once; the generator's guard absorbs replays.
func HandleRecordCreated(
	ctx context.Context,
	topic string,
	groupID string,
	gen *alerting.Generator,
	records *repositories.SourceRecordRepository,
	logger *zap.Logger,
	tracer trace.Tracer,
) {
	c := kafka.NewConsumerFromEnv(topic, groupID)
	defer c.Close()

	logger.Info("Starting record-created consumer", zap.String("topic", topic), zap.String("group", groupID))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down record-created consumer", zap.String("topic", topic))
			return

		default:
			m, err := c.ReadFromKafka(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("Error reading Kafka message", zap.String("topic", topic), zap.Error(err))
				continue
			}

			msgCtx, span := tracer.Start(ctx, "handle-record-created")
			func() {
				defer span.End()

				var event types.RecordCreatedEvent
				if err := json.Unmarshal(m.Value, &event); err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, "failed to unmarshal record event")
					logger.Error("Failed to unmarshal record event",
						zap.ByteString("raw", m.Value),
						zap.Error(err),
					)
					return
				}
				if event.Kind != models.KindPollination && event.Kind != models.KindGermination {
					logger.Warn("Dropping event with unknown record kind",
						zap.String("kind", string(event.Kind)),
						zap.String("record_id", event.ID.String()),
					)
					return
				}

				if err := records.Upsert(&models.SourceRecord{
					ID:                event.ID,
					Kind:              event.Kind,
					RecordedAt:        event.CreatedAt,
					ResponsibleUserID: event.ResponsibleUserID,
					MilestoneDate:     event.MilestoneDate,
					DisplayName:       event.DisplayName,
				}); err != nil {
					span.RecordError(err)
					logger.Error("Failed to mirror source record",
						zap.String("record_id", event.ID.String()),
						zap.Error(err),
					)
					return
				}

				res, err := gen.GenerateForEvent(msgCtx, rules.EventRecord{
					ID:                event.ID,
					Kind:              event.Kind,
					CreatedAt:         event.CreatedAt,
					ResponsibleUserID: event.ResponsibleUserID,
					MilestoneDate:     event.MilestoneDate,
					DisplayName:       event.DisplayName,
				})
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, "alert generation failed")
					logger.Error("Alert generation failed",
						zap.String("record_id", event.ID.String()),
						zap.Error(err),
					)
					return
				}

				logger.Info("Alerts generated for record",
					zap.String("record_id", event.ID.String()),
					zap.String("kind", string(event.Kind)),
					zap.Int("created", res.Created),
					zap.Bool("skipped", res.Skipped),
				)
			}()
		}
	}
}
