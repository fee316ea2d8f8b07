package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bibbank/bureau-service/internal/application/dto"
	"github.com/bibbank/bureau-service/internal/domain/model"
	"github.com/bibbank/bureau-service/internal/domain/port"
	"github.com/bibbank/bureau-service/internal/domain/valueobject"
)

// consentCompleter applies the terminal transitions shared by OTP
// verification and consent polling.
type consentCompleter struct {
	sessions sessionWriter
	recorder *ProfileRecorder
}

// complete records profile against session and returns the completed
// response. A concurrent writer that already finished the session wins; its
// result is replayed.
func (c consentCompleter) complete(
	ctx context.Context,
	session model.BureauSession,
	profile model.CreditProfile,
) (dto.ConsentResponse, error) {
	score, _ := profile.Score()
	next, err := session.Complete(score, profile.RawPayload(), time.Now().UTC())
	if err != nil {
		return dto.ConsentResponse{}, fmt.Errorf("complete session: %w", err)
	}
	if err := c.sessions.save(ctx, next, session.Version()); err != nil {
		return c.replayOnConflict(ctx, session.TransactionID(), err)
	}

	lenders, err := c.recorder.Record(ctx, profile, session.Loan())
	if err != nil {
		return dto.ConsentResponse{}, err
	}
	return dto.ConsentResponse{
		Status:        dto.StatusCompleted,
		TransactionID: session.TransactionID(),
		Message:       next.Message(),
		Score:         &score,
		ScoreSource:   profile.ScoreSource().String(),
		Lenders:       &lenders,
	}, nil
}

// fail moves session to FAILED.
func (c consentCompleter) fail(ctx context.Context, session model.BureauSession, reason string) error {
	next, err := session.Fail(reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("fail session: %w", err)
	}
	if err := c.sessions.save(ctx, next, session.Version()); err != nil && !errors.Is(err, port.ErrSessionConflict) {
		return err
	}
	return nil
}

func (c consentCompleter) replay(ctx context.Context, session model.BureauSession) (dto.ConsentResponse, error) {
	return terminalResponse(ctx, session, c.recorder.records, c.recorder.matcher)
}

func (c consentCompleter) replayOnConflict(ctx context.Context, transactionID string, saveErr error) (dto.ConsentResponse, error) {
	if !errors.Is(saveErr, port.ErrSessionConflict) {
		return dto.ConsentResponse{}, saveErr
	}
	current, err := c.sessions.find(ctx, transactionID)
	if err != nil {
		return dto.ConsentResponse{}, err
	}
	switch {
	case current.State().IsTerminal():
		return c.replay(ctx, current)
	case current.State().Equal(valueobject.SessionStatePolling):
		return dto.ConsentResponse{Status: dto.StatusPolling, TransactionID: transactionID, Message: current.Message()}, nil
	}
	return dto.ConsentResponse{}, saveErr
}
