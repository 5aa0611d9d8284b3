package handlers

import (
	"encoding/base64"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/logger"
)

// publish emits an event after the row is committed. A failed publish is only logged:
// the backfill command re-emits events for rows the pipeline never reached.
func publish(c *fiber.Ctx, publisher dispatch.Publisher, log *zap.Logger, name string, payload any) {
	ev, err := dispatch.NewEvent(name, payload)
	if err != nil {
		log.Error("failed to build event", zap.String(logger.FieldEventName, name), zap.Error(err))
		return
	}

	if err := publisher.Publish(c.UserContext(), ev); err != nil {
		log.Error("failed to publish event", append(logger.EventFields(ev.ID, ev.Name, ev.Attempt), zap.Error(err))...)
		return
	}

	log.Info("event emitted", logger.EventFields(ev.ID, ev.Name, ev.Attempt)...)
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
