package services

import (
	stderrors "errors"

	"github.com/vytor/slangflash/internal/errors"
	"github.com/vytor/slangflash/internal/repository"
	"github.com/vytor/slangflash/internal/session"
)

func storeError(err error) *errors.AppError {
	if stderrors.Is(err, repository.ErrTransient) {
		return errors.NewStoreUnavailableError(err)
	}
	return errors.NewInternalError(err)
}

func sessionError(err error, sessionID string, flashcardID int64) *errors.AppError {
	switch {
	case stderrors.Is(err, session.ErrSessionNotFound):
		return errors.NewNotFoundError("session", sessionID)
	case stderrors.Is(err, session.ErrSessionComplete):
		return errors.NewSessionCompleteError(sessionID)
	case stderrors.Is(err, session.ErrNotInSession):
		return errors.NewNotInSessionError(sessionID, flashcardID)
	default:
		return errors.NewInternalError(err)
	}
}
