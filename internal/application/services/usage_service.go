package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/land-registry-gateway/internal/core/domain/usage"
	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

const recordTimeout = 5 * time.Second

type UsageService struct {
	repo   ports.UsageRepository
	logger *logrus.Logger
	async bool
}

func NewUsageService(repo ports.UsageRepository, logger *logrus.Logger) *UsageService {
	return &UsageService{
		repo:   repo,
		logger: logger,
		async:  true,
	}
}

// Record persists one upstream call. The write is detached from the
// caller's cancellation and never delays the gateway response; failures are
// only logged.
func (s *UsageService) Record(ctx context.Context, call *usage.Call) {
	write := func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := s.repo.Create(wctx, call); err != nil {
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"operation": call.Operation, "path": call.Path}).WithError(err).Error("failed to persist upstream call")
			}
			return
		}
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"operation": call.Operation, "success": call.Success}).Debug("upstream call persisted")
		}
	}
	if s.async {
		go write()
		return
	}
	write()
}

func (s *UsageService) GetCalls(ctx context.Context, filter *usage.CallFilter) ([]*usage.Call, int, error) {
	calls, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return calls, total, nil
}

func (s *UsageService) Summarize(ctx context.Context, filter *usage.CallFilter) ([]usage.OperationCount, error) {
	return s.repo.CountByOperation(ctx, filter)
}

var _ ports.UsageService = (*UsageService)(nil)
