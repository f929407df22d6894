package enrichment

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	txHash = "0xabc0000000000000000000000000000000000000000000000000000000000001"
	token  = "0x4444444444444444444444444444444444444444"
)

// MockExplorer is a mock implementation of LogFetcher and TokenFetcher
type MockExplorer struct {
	mock.Mock
}

func (m *MockExplorer) GetTransactionLogs(ctx context.Context, hash string) ([]entity.TxLog, error) {
	args := m.Called(ctx, hash)
	logs, _ := args.Get(0).([]entity.TxLog)
	return logs, args.Error(1)
}

func (m *MockExplorer) GetToken(ctx context.Context, address string) (entity.TokenInfo, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(entity.TokenInfo), args.Error(1)
}

// MockReceiptService is a mock implementation of ReceiptService
type MockReceiptService struct {
	mock.Mock
	connected bool
}

func (m *MockReceiptService) Connect(ctx context.Context) error {
	return nil
}

func (m *MockReceiptService) Disconnect() error {
	return nil
}

func (m *MockReceiptService) IsConnected() bool {
	return m.connected
}

func (m *MockReceiptService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockReceiptService) GetReceiptLogs(ctx context.Context, hash string) ([]entity.TxLog, error) {
	args := m.Called(ctx, hash)
	logs, _ := args.Get(0).([]entity.TxLog)
	return logs, args.Error(1)
}

func (m *MockReceiptService) GetTokenMetadata(ctx context.Context, address string) (entity.TokenInfo, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(entity.TokenInfo), args.Error(1)
}

// MockStore is a mock implementation of EnrichmentCacheRepository
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetLogs(ctx context.Context, hash string) ([]entity.TxLog, bool, error) {
	args := m.Called(ctx, hash)
	logs, _ := args.Get(0).([]entity.TxLog)
	return logs, args.Bool(1), args.Error(2)
}

func (m *MockStore) SaveLogs(ctx context.Context, hash string, logs []entity.TxLog) error {
	return m.Called(ctx, hash, logs).Error(0)
}

func (m *MockStore) GetTokenInfo(ctx context.Context, address string) (entity.TokenInfo, bool, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(entity.TokenInfo), args.Bool(1), args.Error(2)
}

func (m *MockStore) SaveTokenInfo(ctx context.Context, info entity.TokenInfo) error {
	return m.Called(ctx, info).Error(0)
}

func cacheConfig() *config.CacheConfig {
	return &config.CacheConfig{Size: 16, LogsTTL: time.Minute, TokenInfoTTL: time.Minute}
}

func sampleLogs() []entity.TxLog {
	return []entity.TxLog{{Address: token, Topics: []string{"0xddf2"}, Data: "0x"}}
}

func TestFetchLogs_CachesExplorerResult(t *testing.T) {
	explorer := &MockExplorer{}
	explorer.On("GetTransactionLogs", mock.Anything, txHash).Return(sampleLogs(), nil).Once()

	p := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		logs, err := p.FetchLogs(context.Background(), txHash)
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	}
	explorer.AssertNumberOfCalls(t, "GetTransactionLogs", 1)
}

func TestFetchLogs_EmptyIsNotCached(t *testing.T) {
	explorer := &MockExplorer{}
	explorer.On("GetTransactionLogs", mock.Anything, txHash).Return([]entity.TxLog{}, nil)

	p := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger())

	for i := 0; i < 2; i++ {
		logs, err := p.FetchLogs(context.Background(), txHash)
		require.NoError(t, err)
		assert.Empty(t, logs)
	}
	explorer.AssertNumberOfCalls(t, "GetTransactionLogs", 2)
}

func TestFetchLogs_FailureIsNoSignal(t *testing.T) {
	explorer := &MockExplorer{}
	explorer.On("GetTransactionLogs", mock.Anything, txHash).
		Return(nil, errors.NewUpstreamError("restv2", stderrors.New("timeout")))

	p := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger())

	logs, err := p.FetchLogs(context.Background(), txHash)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestFetchLogs_RPCFallbackAndStore(t *testing.T) {
	explorer := &MockExplorer{}
	rpc := &MockReceiptService{connected: true}
	store := &MockStore{}

	store.On("GetLogs", mock.Anything, txHash).Return(nil, false, nil)
	explorer.On("GetTransactionLogs", mock.Anything, txHash).Return([]entity.TxLog{}, nil)
	rpc.On("GetReceiptLogs", mock.Anything, txHash).Return(sampleLogs(), nil)
	store.On("SaveLogs", mock.Anything, txHash, sampleLogs()).Return(nil)

	p := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger(), WithStore(store), WithRPC(rpc))

	logs, err := p.FetchLogs(context.Background(), txHash)
	require.NoError(t, err)
	assert.Equal(t, sampleLogs(), logs)
	store.AssertExpectations(t)
	rpc.AssertExpectations(t)
}

func TestFetchLogs_StoreHitSkipsUpstream(t *testing.T) {
	explorer := &MockExplorer{}
	store := &MockStore{}
	store.On("GetLogs", mock.Anything, txHash).Return(sampleLogs(), true, nil)

	p := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger(), WithStore(store))

	logs, err := p.FetchLogs(context.Background(), txHash)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	explorer.AssertNotCalled(t, "GetTransactionLogs", mock.Anything, mock.Anything)
}

func TestFetchLogs_Cancelled(t *testing.T) {
	explorer := &MockExplorer{}
	explorer.On("GetTransactionLogs", mock.Anything, txHash).Return(nil, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger())
	_, err := p.FetchLogs(ctx, txHash)
	assert.True(t, errors.IsCancelled(err))
}

func TestFetchTokenInfo_MergesRPCProbe(t *testing.T) {
	explorer := &MockExplorer{}
	rpc := &MockReceiptService{connected: true}

	explorer.On("GetToken", mock.Anything, token).Return(entity.TokenInfo{Address: token, Name: "Zen Domains"}, nil).Once()
	rpc.On("GetTokenMetadata", mock.Anything, token).
		Return(entity.TokenInfo{Address: token, Name: "ignored", Symbol: "ZNS", Type: entity.StandardERC721}, nil).Once()

	p := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger(), WithRPC(rpc))

	for i := 0; i < 2; i++ {
		info, err := p.FetchTokenInfo(context.Background(), "0x4444444444444444444444444444444444444444")
		require.NoError(t, err)
		assert.Equal(t, "Zen Domains", info.Name)
		assert.Equal(t, "ZNS", info.Symbol)
		assert.Equal(t, entity.StandardERC721, info.Type)
	}
	explorer.AssertExpectations(t)
	rpc.AssertExpectations(t)
}

func TestFetchTokenInfo_DisconnectedRPCIsSkipped(t *testing.T) {
	explorer := &MockExplorer{}
	rpc := &MockReceiptService{connected: false}
	explorer.On("GetToken", mock.Anything, token).Return(entity.TokenInfo{}, errors.NewUpstreamError("restv2", stderrors.New("502")))

	p := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger(), WithRPC(rpc))

	info, err := p.FetchTokenInfo(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, token, info.Address)
	assert.True(t, info.IsEmpty())
	rpc.AssertNotCalled(t, "GetTokenMetadata", mock.Anything, mock.Anything)
}

func TestFetchLogs_MalformedHashSkipsUpstream(t *testing.T) {
	explorer := &MockExplorer{}
	p := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger())

	for _, hash := range []string{"", "0x", "0xo1", "abc0000000000000000000000000000000000000000000000000000000000001"} {
		logs, err := p.FetchLogs(context.Background(), hash)
		require.NoError(t, err)
		assert.Empty(t, logs)
	}
	explorer.AssertNotCalled(t, "GetTransactionLogs", mock.Anything, mock.Anything)
}

func TestCaches_SharedAndSeparateScopes(t *testing.T) {
	explorer := &MockExplorer{}
	explorer.On("GetTransactionLogs", mock.Anything, txHash).Return(sampleLogs(), nil)

	shared := NewCaches(cacheConfig())
	first := NewProvider(explorer, explorer, shared, logger.NewNopLogger())
	second := NewProvider(explorer, explorer, shared, logger.NewNopLogger())
	isolated := NewProvider(explorer, explorer, NewCaches(cacheConfig()), logger.NewNopLogger())

	for _, p := range []*Provider{first, second} {
		logs, err := p.FetchLogs(context.Background(), txHash)
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	}
	explorer.AssertNumberOfCalls(t, "GetTransactionLogs", 1)

	_, err := isolated.FetchLogs(context.Background(), txHash)
	require.NoError(t, err)
	explorer.AssertNumberOfCalls(t, "GetTransactionLogs", 2)
	assert.Equal(t, 1, shared.Logs.Len())
}
