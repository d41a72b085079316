package testutils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shubham-shewale/fx-platform/cmd/streamer/internal/alerts"
	"github.com/shubham-shewale/fx-platform/pkg/models"
)

// MockPriceSource returns Snapshot, or Err when set.
type MockPriceSource struct {
	Mu       sync.Mutex
	Snapshot models.PriceSnapshot
	Err      error
	Calls    int
}

func (m *MockPriceSource) Fetch(ctx context.Context) (models.PriceSnapshot, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Snapshot, nil
}

func (m *MockPriceSource) CallCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Calls
}

type MockInstruments struct {
	Index map[string]int64
	Err   error
}

func (m *MockInstruments) SymbolIndex(ctx context.Context) (map[string]int64, error) {
	return m.Index, m.Err
}

type MockConfigs struct {
	Configs []models.UserConfiguration
	Err     error
}

func (m *MockConfigs) ActiveWithTarget(ctx context.Context) ([]models.UserConfiguration, error) {
	return m.Configs, m.Err
}

// MockNotifications stores created notifications; FailUser makes creation fail for one user.
type MockNotifications struct {
	Mu       sync.Mutex
	Created  []models.Notification
	FailUser int64
	nextID   int64
}

func (m *MockNotifications) Create(ctx context.Context, userID int64, ntype models.NotificationType, title, message string) (models.Notification, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.FailUser != 0 && userID == m.FailUser {
		return models.Notification{}, errors.New("insert failed")
	}
	m.nextID++
	n := models.Notification{
		ID:        m.nextID,
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	m.Created = append(m.Created, n)
	return n, nil
}

type MockPublisher struct {
	Mu        sync.Mutex
	Published []alerts.Alert
	Err       error
}

func (m *MockPublisher) Publish(ctx context.Context, a []alerts.Alert) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Published = append(m.Published, a...)
	return nil
}

type MockKafkaWriter struct {
	Messages   []kafka.Message
	Mu         sync.Mutex
	ShouldFail bool
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return errors.New("kafka error")
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockKafkaWriter) Close() error { return nil }

type MockClock struct {
	Slept time.Duration
}

func (m *MockClock) Sleep(d time.Duration) { m.Slept += d }

type MockKafkaConn struct {
	CreatedTopics []string
	Partitions    []kafka.Partition
}

func (m *MockKafkaConn) Controller() (kafka.Broker, error) {
	return kafka.Broker{Host: "localhost", Port: 9092}, nil
}
func (m *MockKafkaConn) Close() error { return nil }
func (m *MockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	for _, t := range topics {
		m.CreatedTopics = append(m.CreatedTopics, t.Topic)
	}
	return nil
}
func (m *MockKafkaConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	return m.Partitions, nil
}

// MockKafkaDialer fails for every address in Down and hands out ConnSpy otherwise.
type MockKafkaDialer struct {
	ConnSpy *MockKafkaConn
	Down    map[string]bool
	Dialed  []string
}

func (m *MockKafkaDialer) DialContext(ctx context.Context, network, address string) (alerts.KafkaConn, error) {
	m.Dialed = append(m.Dialed, address)
	if m.Down[address] {
		return nil, errors.New("connection refused")
	}
	if m.ConnSpy == nil {
		m.ConnSpy = &MockKafkaConn{Partitions: []kafka.Partition{{ID: 0}}}
	}
	return m.ConnSpy, nil
}
