package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/shubham-shewale/fx-platform/pkg/configuration"
	"github.com/shubham-shewale/fx-platform/pkg/models"
)

// MockSaver records batches and returns Result, or panics when Panic is set.
type MockSaver struct {
	Mu      sync.Mutex
	Batches [][]configuration.Entry
	Result  configuration.BatchResult
	Panic   bool
}

func (m *MockSaver) SaveBatch(ctx context.Context, userID int64, entries []configuration.Entry) configuration.BatchResult {
	if m.Panic {
		panic("database handle is nil")
	}
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Batches = append(m.Batches, entries)
	return m.Result
}

func (m *MockSaver) Calls() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Batches)
}

type BatchNotice struct {
	UserID   int64
	ErrCount int
	Suffix   string
}

type MockNotifier struct {
	Mu      sync.Mutex
	Notices []BatchNotice
	Fail    bool
}

func (m *MockNotifier) BatchSaved(ctx context.Context, userID int64, errCount int, suffix string) (models.Notification, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Fail {
		return models.Notification{}, errors.New("insert failed")
	}
	m.Notices = append(m.Notices, BatchNotice{UserID: userID, ErrCount: errCount, Suffix: suffix})
	return models.Notification{ID: int64(len(m.Notices)), UserID: userID}, nil
}
