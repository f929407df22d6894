package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/internal/infrastructure/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const providerRPC = "rpc"

// ERC-165 interface ids
var (
	interfaceERC721  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	interfaceERC1155 = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
)

const tokenABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"supportsInterface","stateMutability":"view","inputs":[{"name":"interfaceId","type":"bytes4"}],"outputs":[{"name":"","type":"bool"}]}
]`

var tokenABI = mustParseABI(tokenABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid token abi: %v", err))
	}
	return parsed
}

// Errors
var (
	ErrNotConnected = errors.New("not connected to blockchain node")
	ErrEmptyResult  = errors.New("empty call result")
)

// EthereumService implements ReceiptService over JSON-RPC
type EthereumService struct {
	mu          sync.RWMutex
	client      *ethclient.Client
	config      *config.RPCConfig
	logger      *logger.Logger
	isConnected bool
}

var _ service.ReceiptService = (*EthereumService)(nil)

// NewEthereumService creates new Ethereum service
func NewEthereumService(cfg *config.RPCConfig, logger *logger.Logger) *EthereumService {
	return &EthereumService{
		config: cfg,
		logger: logger.WithComponent("ethereum-service"),
	}
}

// Connect connects to Ethereum node
func (s *EthereumService) Connect(ctx context.Context) error {
	if !s.config.Enabled || s.config.URL == "" {
		s.logger.Info("RPC fallback is disabled, skipping connection")
		return nil
	}

	s.logger.Info("Connecting to Ethereum node", zap.String("rpc_url", s.config.URL))

	client, err := ethclient.DialContext(ctx, s.config.URL)
	if err != nil {
		s.logger.Error("Failed to connect to Ethereum node", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.client = client
	s.isConnected = true
	s.mu.Unlock()

	s.logger.Info("Successfully connected to Ethereum node")
	return nil
}

// Disconnect disconnects from Ethereum node
func (s *EthereumService) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	s.isConnected = false
	s.logger.Info("Disconnected from Ethereum node")
	return nil
}

// IsConnected checks if connected to Ethereum node
func (s *EthereumService) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isConnected && s.client != nil
}

func (s *EthereumService) getClient() (*ethclient.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isConnected || s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

func (s *EthereumService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.RequestTimeout)
}

// GetReceiptLogs gets the logs of a transaction receipt
func (s *EthereumService) GetReceiptLogs(ctx context.Context, txHash string) ([]entity.TxLog, error) {
	client, err := s.getClient()
	if err != nil {
		return nil, err
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	receipt, err := client.TransactionReceipt(callCtx, common.HexToHash(txHash))
	metrics.UpstreamLatency.WithLabelValues(providerRPC).Observe(time.Since(start).Seconds())
	if errors.Is(err, ethereum.NotFound) {
		metrics.UpstreamRequests.WithLabelValues(providerRPC, "not_found").Inc()
		return []entity.TxLog{}, nil
	}
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(providerRPC, "error").Inc()
		return nil, err
	}
	metrics.UpstreamRequests.WithLabelValues(providerRPC, "ok").Inc()

	logs := make([]entity.TxLog, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		topics := make([]string, 0, len(l.Topics))
		for _, t := range l.Topics {
			topics = append(topics, strings.ToLower(t.Hex()))
		}
		logs = append(logs, entity.TxLog{
			Address: strings.ToLower(l.Address.Hex()),
			Topics:  topics,
			Data:    hexutil.Encode(l.Data),
		})
	}
	return logs, nil
}

// GetTokenMetadata reads name/symbol and probes ERC-165 to decide the token standard.
// Missing methods leave the corresponding field empty.
func (s *EthereumService) GetTokenMetadata(ctx context.Context, address string) (entity.TokenInfo, error) {
	info := entity.TokenInfo{Address: strings.ToLower(address)}

	client, err := s.getClient()
	if err != nil {
		return info, err
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	to := common.HexToAddress(address)

	if out, err := s.call(callCtx, client, to, "name"); err == nil {
		info.Name, _ = out[0].(string)
	}
	if out, err := s.call(callCtx, client, to, "symbol"); err == nil {
		info.Symbol, _ = out[0].(string)
	}

	switch {
	case s.supports(callCtx, client, to, interfaceERC721):
		info.Type = entity.StandardERC721
	case s.supports(callCtx, client, to, interfaceERC1155):
		info.Type = entity.StandardERC1155
	default:
		if _, err := s.call(callCtx, client, to, "decimals"); err == nil {
			info.Type = entity.StandardERC20
		}
	}

	if ctx.Err() != nil {
		return info, ctx.Err()
	}
	return info, nil
}

func (s *EthereumService) supports(ctx context.Context, client *ethclient.Client, to common.Address, id [4]byte) bool {
	out, err := s.call(ctx, client, to, "supportsInterface", id)
	if err != nil {
		return false
	}
	ok, _ := out[0].(bool)
	return ok
}

func (s *EthereumService) call(ctx context.Context, client *ethclient.Client, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(providerRPC, "error").Inc()
		s.logger.Debug("Contract call failed",
			zap.String("contract", to.Hex()),
			zap.String("method", method),
			zap.Error(err))
		return nil, err
	}
	metrics.UpstreamRequests.WithLabelValues(providerRPC, "ok").Inc()
	if len(out) == 0 {
		return nil, ErrEmptyResult
	}

	values, err := tokenABI.Unpack(method, out)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrEmptyResult
	}
	return values, nil
}

// HealthCheck performs health check
func (s *EthereumService) HealthCheck(ctx context.Context) error {
	client, err := s.getClient()
	if err != nil {
		return err
	}
	_, err = client.BlockNumber(ctx)
	return err
}
