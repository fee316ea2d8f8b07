package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/event"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/pkg/events"
	pkgkafka "github.com/bibbank/bureau-service/pkg/kafka"
)

// ConsentPoller is satisfied by *usecase.PollConsentUseCase.
type ConsentPoller interface {
	Execute(ctx context.Context, req dto.PollConsentRequest) (dto.ConsentResponse, error)
}

// ConsentPollHandler runs the consent poller for every
// bureau.consent.polling_started event and ignores all other events.
type ConsentPollHandler struct {
	poller ConsentPoller
	logger *slog.Logger
}

func NewConsentPollHandler(poller ConsentPoller, logger *slog.Logger) *ConsentPollHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsentPollHandler{poller: poller, logger: logger}
}

// Handle is a pkgkafka.Handler. Undecodable messages and domain failures
// are logged and acknowledged; infrastructure errors are returned so the
// message stays uncommitted.
func (h *ConsentPollHandler) Handle(ctx context.Context, msg pkgkafka.Message) error {
	if t := msg.Headers[HeaderEventType]; t != "" && t != event.TypePollingStarted {
		return nil
	}

	var env events.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		h.logger.ErrorContext(ctx, "discarding undecodable event", "error", err)
		return nil
	}
	if env.EventType != event.TypePollingStarted {
		return nil
	}
	var payload struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := env.DecodePayload(&payload); err != nil {
		h.logger.ErrorContext(ctx, "discarding undecodable event", "event_id", env.EventID, "error", err)
		return nil
	}
	txn := payload.TransactionID
	if txn == "" {
		txn = env.AggregateID
	}

	log := h.logger.With("transaction_id", txn, "event_id", env.EventID)
	resp, err := h.poller.Execute(ctx, dto.PollConsentRequest{TransactionID: txn})
	if err != nil {
		if reason, ok := model.ReasonOf(err); ok {
			log.WarnContext(ctx, "consent poll ended with a failure", "reason", reason.String(), "error", err)
			return nil
		}
		return fmt.Errorf("poll consent %s: %w", txn, err)
	}
	log.InfoContext(ctx, "consent poll finished", "status", resp.Status, "attempts", resp.Attempts)
	return nil
}
