package mocks

import (
	"context"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/stretchr/testify/mock"
)

// TestifyMockUsageSink is a testify mock of promptversion.UsageSink.
type TestifyMockUsageSink struct {
	mock.Mock
}

// Record implements promptversion.UsageSink
func (m *TestifyMockUsageSink) Record(ctx context.Context, entry *domain.PromptUsageLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
