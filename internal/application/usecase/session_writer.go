package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// sessionWriter persists a session transition and then publishes the events
// the transition raised.
type sessionWriter struct {
	store     port.SessionStore
	publisher port.EventPublisher
	logger    *slog.Logger
}

func (w sessionWriter) save(ctx context.Context, session model.BureauSession, expectedVersion int) error {
	if err := w.store.Save(ctx, session, expectedVersion); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if evts := session.DomainEvents(); len(evts) > 0 {
		if err := w.publisher.Publish(ctx, evts...); err != nil {
			w.logger.WarnContext(ctx, "publish session events failed",
				"transaction_id", session.TransactionID(), "error", err)
		}
	}
	return nil
}

func (w sessionWriter) find(ctx context.Context, transactionID string) (model.BureauSession, error) {
	session, err := w.store.FindByTransactionID(ctx, transactionID)
	if errors.Is(err, port.ErrSessionNotFound) {
		return model.BureauSession{}, model.NewPipelineError(valueobject.ReasonIdentityNotFound,
			"unknown or expired transaction id", err)
	}
	if err != nil {
		return model.BureauSession{}, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

// terminalResponse replays the stored outcome of a finished session.
func terminalResponse(
	ctx context.Context,
	session model.BureauSession,
	records port.CreditRecordRepository,
	matcher *MatchLendersUseCase,
) (dto.ConsentResponse, error) {
	resp := dto.ConsentResponse{
		TransactionID: session.TransactionID(),
		Message:       session.Message(),
	}
	switch {
	case session.State().Equal(valueobject.SessionStateExpired):
		resp.Status = dto.StatusExpired
		return resp, nil
	case session.State().Equal(valueobject.SessionStateFailed):
		resp.Status = dto.StatusFailed
		return resp, nil
	}

	score, _ := session.Score()
	source := session.Provider().ScoreSource()
	if record, err := records.FindLatestByPAN(ctx, session.Identity().PAN()); err == nil && record.Score != nil {
		if s, err := valueobject.NewScoreSource(record.ScoreSource); err == nil {
			score, source = *record.Score, s
		}
	}
	lenders, err := matcher.MatchForScore(ctx, score, source, session.Loan())
	if err != nil {
		return dto.ConsentResponse{}, err
	}
	resp.Status = dto.StatusCompleted
	resp.Score = &score
	resp.ScoreSource = source.String()
	resp.Lenders = &lenders
	return resp, nil
}
