package mocks

import (
	"context"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/pipeline"
	"github.com/stretchr/testify/mock"
)

// MockRunner is a mock implementation of web.Runner interface.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, input pipeline.RunInput) (*pipeline.Outcome, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*pipeline.Outcome), args.Error(1)
}

func (m *MockRunner) Settings() config.Settings {
	args := m.Called()

	return args.Get(0).(config.Settings)
}
