package blockchain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers eth_call by 4-byte selector and returns null receipts
func fakeNode(t *testing.T, answers map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}

		switch req.Method {
		case "eth_call":
			var msg struct {
				Data  string `json:"data"`
				Input string `json:"input"`
			}
			require.NoError(t, json.Unmarshal(req.Params[0], &msg))
			data := msg.Input
			if data == "" {
				data = msg.Data
			}
			out, ok := answers[strings.ToLower(data)[:10]]
			if !ok {
				resp["error"] = map[string]interface{}{"code": -32000, "message": "execution reverted"}
			} else {
				resp["result"] = hexutil.Encode(out)
			}
		case "eth_getTransactionReceipt":
			resp["result"] = nil
		case "eth_blockNumber":
			resp["result"] = "0x10"
		default:
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func selector(t *testing.T, method string, args ...interface{}) string {
	t.Helper()
	packed, err := tokenABI.Pack(method, args...)
	require.NoError(t, err)
	return hexutil.Encode(packed[:4])
}

func encodeOutput(t *testing.T, method string, v ...interface{}) []byte {
	t.Helper()
	out, err := tokenABI.Methods[method].Outputs.Pack(v...)
	require.NoError(t, err)
	return out
}

func connectedService(t *testing.T, srv *httptest.Server) *EthereumService {
	t.Helper()
	svc := NewEthereumService(&config.RPCConfig{Enabled: true, URL: srv.URL, RequestTimeout: time.Second}, logger.NewNopLogger())
	require.NoError(t, svc.Connect(context.Background()))
	t.Cleanup(func() { svc.Disconnect() })
	return svc
}

func TestGetTokenMetadata_ERC721(t *testing.T) {
	srv := fakeNode(t, map[string][]byte{
		selector(t, "name"):                               encodeOutput(t, "name", "Zen Name Service"),
		selector(t, "symbol"):                             encodeOutput(t, "symbol", "ZNS"),
		selector(t, "supportsInterface", interfaceERC721): encodeOutput(t, "supportsInterface", true),
	})
	defer srv.Close()
	svc := connectedService(t, srv)

	info, err := svc.GetTokenMetadata(context.Background(), "0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", info.Address)
	assert.Equal(t, "Zen Name Service", info.Name)
	assert.Equal(t, "ZNS", info.Symbol)
	assert.Equal(t, entity.StandardERC721, info.Type)
}

func TestGetTokenMetadata_ERC20Fallback(t *testing.T) {
	srv := fakeNode(t, map[string][]byte{
		selector(t, "symbol"):   encodeOutput(t, "symbol", "USDZ"),
		selector(t, "decimals"): encodeOutput(t, "decimals", uint8(6)),
	})
	defer srv.Close()
	svc := connectedService(t, srv)

	info, err := svc.GetTokenMetadata(context.Background(), "0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	assert.Equal(t, "", info.Name)
	assert.Equal(t, "USDZ", info.Symbol)
	assert.Equal(t, entity.StandardERC20, info.Type)
}

func TestGetReceiptLogs_NotFound(t *testing.T) {
	srv := fakeNode(t, nil)
	defer srv.Close()
	svc := connectedService(t, srv)

	logs, err := svc.GetReceiptLogs(context.Background(), "0x"+strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestEthereumService_NotConnected(t *testing.T) {
	svc := NewEthereumService(&config.RPCConfig{Enabled: false}, logger.NewNopLogger())
	require.NoError(t, svc.Connect(context.Background()))
	assert.False(t, svc.IsConnected())

	_, err := svc.GetReceiptLogs(context.Background(), "0x01")
	assert.ErrorIs(t, err, ErrNotConnected)

	info, err := svc.GetTokenMetadata(context.Background(), "0x2222222222222222222222222222222222222222")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, info.IsEmpty())
}

func TestHealthCheck(t *testing.T) {
	srv := fakeNode(t, nil)
	defer srv.Close()
	svc := connectedService(t, srv)

	assert.NoError(t, svc.HealthCheck(context.Background()))
}
