package sekura_test

import (
	"context"
	"sync"

	sekura "github.com/sekurapp/go-sekura"
	"github.com/stretchr/testify/mock"
)

// MockCredentialStore implements sekura.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCredentialStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCredentialStore) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockAuthService implements sekura.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*sekura.AuthPayload, error) {
	args := m.Called(ctx, email, password)
	if payload := args.Get(0); payload != nil {
		return payload.(*sekura.AuthPayload), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (*sekura.AuthPayload, error) {
	args := m.Called(ctx, username, email, password)
	if payload := args.Get(0); payload != nil {
		return payload.(*sekura.AuthPayload), args.Error(1)
	}
	return nil, args.Error(1)
}

// recordingNavigator captures every redirect the guard issues.
type recordingNavigator struct {
	mu        sync.Mutex
	redirects []sekura.Area
}

func (n *recordingNavigator) Replace(area sekura.Area) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, area)
}

func (n *recordingNavigator) all() []sekura.Area {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sekura.Area, len(n.redirects))
	copy(out, n.redirects)
	return out
}

// blockingStore wraps a CredentialStore and counts read sequences, gating
// the first read on a channel so tests can hold a restore in flight.
type blockingStore struct {
	inner   sekura.CredentialStore
	mu      sync.Mutex
	reads   int
	release chan struct{}
}

func newBlockingStore(inner sekura.CredentialStore) *blockingStore {
	return &blockingStore{inner: inner, release: make(chan struct{})}
}

func (s *blockingStore) Get(ctx context.Context, key string) (string, error) {
	if key == sekura.KeyToken {
		s.mu.Lock()
		s.reads++
		s.mu.Unlock()
		<-s.release
	}
	return s.inner.Get(ctx, key)
}

func (s *blockingStore) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, key, value)
}

func (s *blockingStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

func (s *blockingStore) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// stubDeviceInfo implements sekura.DeviceInfoProvider.
type stubDeviceInfo struct {
	info sekura.DeviceInfo
}

func (s stubDeviceInfo) DeviceInfo() sekura.DeviceInfo { return s.info }
