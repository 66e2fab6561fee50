package mocks

import (
	"context"
	"sync"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/datasource"
	"github.com/dukex/datapilot/pkg/llm"
	"github.com/dukex/datapilot/pkg/mail"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockTranslator is a mock implementation of pipeline.Translator interface.
type MockTranslator struct {
	mock.Mock
}

func (m *MockTranslator) Name() string {
	args := m.Called()

	return args.String(0)
}

func (m *MockTranslator) Translate(ctx context.Context, request llm.TranslationRequest) (string, error) {
	args := m.Called(ctx, request)

	return args.String(0), args.Error(1)
}

// MockSourceOpener is a mock implementation of pipeline.SourceOpener interface.
type MockSourceOpener struct {
	mock.Mock
}

func (m *MockSourceOpener) Open(ctx context.Context, cfg config.DataSource) (datasource.Source, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(datasource.Source), args.Error(1)
}

func (m *MockSourceOpener) OpenDocuments(ctx context.Context, cfg config.DataSource) (datasource.DocumentSource, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(datasource.DocumentSource), args.Error(1)
}

// MockSource is a mock implementation of datasource.Source interface.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Query(ctx context.Context, query string, limit int) ([]models.Row, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Row), args.Error(1)
}

func (m *MockSource) Columns(ctx context.Context, table string) ([]models.Column, error) {
	args := m.Called(ctx, table)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Column), args.Error(1)
}

func (m *MockSource) Close() error {
	args := m.Called()

	return args.Error(0)
}

// MockDocumentSource is a mock implementation of datasource.DocumentSource interface.
type MockDocumentSource struct {
	mock.Mock
}

func (m *MockDocumentSource) Sample(ctx context.Context, limit int) ([]models.Row, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Row), args.Error(1)
}

func (m *MockDocumentSource) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockMailSender is a mock implementation of pipeline.MailSender interface.
type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) Send(ctx context.Context, message mail.Message) (mail.Delivery, error) {
	args := m.Called(ctx, message)

	return args.Get(0).(mail.Delivery), args.Error(1)
}

// MockArtifactPublisher is a mock implementation of pipeline.ArtifactPublisher interface.
type MockArtifactPublisher struct {
	mock.Mock
}

func (m *MockArtifactPublisher) Publish(ctx context.Context, runID string, artifacts models.Artifacts) (map[models.ArtifactKind]string, error) {
	args := m.Called(ctx, runID, artifacts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[models.ArtifactKind]string), args.Error(1)
}

// RecordedEvent is one call captured by RecordingSink.
type RecordedEvent struct {
	RunID string
	Level string
	Node  string
	Event string
	Data  map[string]any
}

// RecordingSink keeps every recorded event in memory.
type RecordingSink struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func (s *RecordingSink) Record(_ context.Context, runID, level, node, event string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, RecordedEvent{RunID: runID, Level: level, Node: node, Event: event, Data: data})
}

// Events returns a copy of the recorded events.
func (s *RecordingSink) Events() []RecordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedEvent(nil), s.events...)
}

// Find returns the first event recorded for node and event.
func (s *RecordingSink) Find(node, event string) (RecordedEvent, bool) {
	for _, recorded := range s.Events() {
		if recorded.Node == node && recorded.Event == event {
			return recorded, true
		}
	}

	return RecordedEvent{}, false
}
