package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/ledgerbook/internal/core/domain"
	"github.com/SscSPs/ledgerbook/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	// Now returns the current time used for audit stamps.
	Now func() time.Time
}

func newBaseService() BaseService {
	return BaseService{Now: func() time.Time { return time.Now().UTC() }}
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	logger := middleware.GetLoggerFromCtx(ctx)
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogWarn logs a rejected request. Business-rule rejections are not errors.
func (s *BaseService) LogWarn(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("reason", err.Error()))
	args = append(args, keyvals...)
	logger.Warn(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	logger.Debug(msg, keyvals...)
}

// RequireActor rejects mutating calls that carry no acting user.
func (s *BaseService) RequireActor(userID string) error {
	if userID == "" {
		return domain.ErrUnauthorized
	}
	return nil
}
