package classifier

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/domain/service"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/pkg/errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	subject  = "0x1111111111111111111111111111111111111111"
	other    = "0x2222222222222222222222222222222222222222"
	nftToken = "0x3333333333333333333333333333333333333333"
	txHash   = "0xabcdef"
)

// fakeEnrichment serves fixed logs and token records
type fakeEnrichment struct {
	mu       sync.Mutex
	logs     map[string][]entity.TxLog
	tokens   map[string]entity.TokenInfo
	err      error
	logCalls int
}

func (f *fakeEnrichment) FetchLogs(ctx context.Context, hash string) ([]entity.TxLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.logs[hash], nil
}

func (f *fakeEnrichment) FetchTokenInfo(ctx context.Context, address string) (entity.TokenInfo, error) {
	if f.err != nil {
		return entity.TokenInfo{}, f.err
	}
	return f.tokens[address], nil
}

func newTestClassifier(enrichment service.EnrichmentProvider) *Classifier {
	cfg := config.DefaultConfig().Classifier
	return NewClassifier(NewRuleSet(&cfg), enrichment, logger.NewNopLogger())
}

func addrTopic(addr string) string {
	return strings.ToLower(common.BytesToHash(common.HexToAddress(addr).Bytes()).Hex())
}

func uintTopic(v int64) string {
	return common.BigToHash(big.NewInt(v)).Hex()
}

func tx(from string, to *string, input, value string, status entity.TxStatus) *entity.CanonicalTransaction {
	return &entity.CanonicalTransaction{
		Hash:     txHash,
		From:     from,
		To:       to,
		Input:    input,
		ValueWei: value,
		Status:   status,
	}
}

func ptr(s string) *string {
	return &s
}

func TestClassify_FastPath(t *testing.T) {
	cfg := config.DefaultConfig().Classifier

	tests := []struct {
		name string
		tx   *entity.CanonicalTransaction
		want entity.Category
	}{
		{"failed outranks everything", tx(subject, ptr(cfg.StakingContract), "0x", "5", entity.StatusFailed), entity.CategoryFail},
		{"failed incoming", tx(other, ptr(subject), "0x", "5", entity.StatusFailed), entity.CategoryFail},
		{"contract creation nil to", tx(subject, nil, "0x6080", "0", entity.StatusSuccess), entity.CategoryCCDeploy},
		{"contract creation zero to", tx(subject, ptr("0x0000000000000000000000000000000000000000"), "0x6080", "0", entity.StatusSuccess), entity.CategoryCCDeploy},
		{"cco factory", tx(subject, ptr(cfg.CCOFactory), "0x12345678", "0", entity.StatusSuccess), entity.CategoryCCODeploy},
		{"gm contract", tx(subject, ptr(cfg.GMContracts[2]), "0x", "0", entity.StatusSuccess), entity.CategoryGM},
		{"staking precompile", tx(subject, ptr(cfg.StakingContract), "0x", "1000", entity.StatusSuccess), entity.CategoryStake},
		{"approve selector", tx(subject, ptr(other), "0x095ea7b3000000", "0", entity.StatusSuccess), entity.CategoryApprove},
		{"v2 swap selector", tx(subject, ptr(other), "0x38ed1739000000", "0", entity.StatusSuccess), entity.CategorySwap},
		{"v3 multicall", tx(subject, ptr(other), "0x5AE401DC000000", "0", entity.StatusSuccess), entity.CategorySwap},
		{"add liquidity eth", tx(subject, ptr(other), "0xf305d719000000", "10", entity.StatusSuccess), entity.CategoryAddLiquidity},
		{"remove liquidity", tx(subject, ptr(other), "0xbaa2abde000000", "0", entity.StatusSuccess), entity.CategoryRemoveLiquidity},
		{"native send", tx(subject, ptr(other), "0x", "1000000000000000000", entity.StatusSuccess), entity.CategoryNativeSend},
		{"zero value send is other", tx(subject, ptr(other), "0x", "0", entity.StatusSuccess), entity.CategoryOther},
		{"incoming never categorized", tx(other, ptr(subject), "0x", "1000", entity.StatusSuccess), entity.CategoryOther},
		{"self transfer is not outgoing", tx(subject, ptr(subject), "0x", "1000", entity.StatusSuccess), entity.CategoryOther},
	}

	c := newTestClassifier(&fakeEnrichment{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.tx, subject, service.ClassifyOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Category)
			assert.False(t, got.LogsChecked)
		})
	}
}

func TestClassify_RouterVariantSelectors(t *testing.T) {
	c := newTestClassifier(&fakeEnrichment{})
	sel := Selector("swapExactETHForTokensSupportingFeeOnTransferTokens(uint256,address[],address,uint256)")
	assert.Equal(t, "0xb6f9de95", sel)

	got, err := c.Classify(context.Background(), tx(subject, ptr(other), sel+"00", "1", entity.StatusSuccess), subject, service.ClassifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, entity.CategorySwap, got.Category)
}

func TestClassify_Direction(t *testing.T) {
	c := newTestClassifier(&fakeEnrichment{})

	got, err := c.Classify(context.Background(), tx(subject, ptr(other), "0x", "1500000000000000000", entity.StatusSuccess), "0x1111111111111111111111111111111111111111", service.ClassifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionOut, got.Direction)
	assert.Equal(t, "1.5", got.AmountNative)

	got, err = c.Classify(context.Background(), tx(other, ptr(subject), "0x", "0", entity.StatusSuccess), subject, service.ClassifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionIn, got.Direction)
	assert.Equal(t, "0", got.AmountNative)
}

func TestClassify_Idempotent(t *testing.T) {
	enrichment := &fakeEnrichment{}
	c := newTestClassifier(enrichment)
	in := tx(subject, ptr(other), "0xdeadbeef", "0", entity.StatusSuccess)

	first, err := c.Classify(context.Background(), in, subject, service.ClassifyOptions{AllowDeepInspection: true})
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), in, subject, service.ClassifyOptions{AllowDeepInspection: true})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "0xdeadbeef", in.Input)
}

func TestClassify_DeepInspection(t *testing.T) {
	zero := addrTopic("0x0000000000000000000000000000000000000000")
	to := addrTopic(subject)

	singleData, err := transferSingleData.Pack(big.NewInt(42), big.NewInt(1))
	require.NoError(t, err)

	tests := []struct {
		name      string
		logs      []entity.TxLog
		tokens    map[string]entity.TokenInfo
		want      entity.Category
		wantMints int
		wantID    string
	}{
		{
			name:      "erc721 domain mint",
			logs:      []entity.TxLog{{Address: nftToken, Topics: []string{TopicTransfer, zero, to, uintTopic(7)}}},
			tokens:    map[string]entity.TokenInfo{nftToken: {Name: "Zen Name Service", Symbol: "ZNS", Type: "ERC-721"}},
			want:      entity.CategoryDomainMint,
			wantMints: 1,
			wantID:    "7",
		},
		{
			name:      "erc721 plain mint",
			logs:      []entity.TxLog{{Address: nftToken, Topics: []string{TopicTransfer, zero, to, uintTopic(9)}}},
			tokens:    map[string]entity.TokenInfo{nftToken: {Name: "Pixel Apes", Symbol: "APE", Type: "ERC-721"}},
			want:      entity.CategoryNftMint,
			wantMints: 1,
			wantID:    "9",
		},
		{
			name:   "erc20 mint is not nft",
			logs:   []entity.TxLog{{Address: nftToken, Topics: []string{TopicTransfer, zero, to}, Data: "0x01"}},
			tokens: map[string]entity.TokenInfo{nftToken: {Name: "Pixel", Symbol: "PXL", Type: "ERC-20"}},
			want:   entity.CategoryOther,
		},
		{
			name:      "erc1155 single mint",
			logs:      []entity.TxLog{{Address: nftToken, Topics: []string{TopicTransferSingle, addrTopic(other), zero, to}, Data: hexutil.Encode(singleData)}},
			tokens:    map[string]entity.TokenInfo{nftToken: {Name: "Badges", Symbol: "BDG"}},
			want:      entity.CategoryNftMint,
			wantMints: 1,
			wantID:    "42",
		},
		{
			name: "swap event",
			logs: []entity.TxLog{{Address: other, Topics: []string{TopicSwapV2}}},
			want: entity.CategorySwap,
		},
		{
			name: "v3 swap event",
			logs: []entity.TxLog{{Address: other, Topics: []string{TopicSwapV3}}},
			want: entity.CategorySwap,
		},
		{
			name: "approval event",
			logs: []entity.TxLog{{Address: other, Topics: []string{TopicApproval}}},
			want: entity.CategoryApprove,
		},
		{
			name: "no logs",
			want: entity.CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enrichment := &fakeEnrichment{
				logs:   map[string][]entity.TxLog{txHash: tt.logs},
				tokens: tt.tokens,
			}
			c := newTestClassifier(enrichment)

			got, err := c.Classify(context.Background(), tx(subject, ptr(other), "0x12345678", "0", entity.StatusSuccess), subject, service.ClassifyOptions{AllowDeepInspection: true})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Category)
			assert.True(t, got.LogsChecked)
			require.Len(t, got.NftMints, tt.wantMints)
			if tt.wantMints > 0 {
				assert.Equal(t, tt.wantID, got.NftMints[0].TokenID)
				assert.Equal(t, nftToken, got.NftMints[0].TokenAddress)
			}
		})
	}
}

func TestClassify_DeepInspectionSkippedWhenNotAllowed(t *testing.T) {
	enrichment := &fakeEnrichment{
		logs: map[string][]entity.TxLog{txHash: {{Address: other, Topics: []string{TopicSwapV2}}}},
	}
	c := newTestClassifier(enrichment)

	got, err := c.Classify(context.Background(), tx(subject, ptr(other), "0x12345678", "0", entity.StatusSuccess), subject, service.ClassifyOptions{})
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryOther, got.Category)
	assert.False(t, got.LogsChecked)
	assert.Equal(t, 0, enrichment.logCalls)
}

func TestClassify_DeepInspectionSkipsIncoming(t *testing.T) {
	enrichment := &fakeEnrichment{}
	c := newTestClassifier(enrichment)

	got, err := c.Classify(context.Background(), tx(other, ptr(subject), "0x12345678", "0", entity.StatusSuccess), subject, service.ClassifyOptions{AllowDeepInspection: true})
	require.NoError(t, err)
	assert.Equal(t, entity.CategoryOther, got.Category)
	assert.Equal(t, 0, enrichment.logCalls)
}

func TestClassify_Cancelled(t *testing.T) {
	c := newTestClassifier(&fakeEnrichment{err: errors.NewCancelledError(context.Canceled)})

	_, err := c.Classify(context.Background(), tx(subject, ptr(other), "0x12345678", "0", entity.StatusSuccess), subject, service.ClassifyOptions{AllowDeepInspection: true})
	assert.True(t, errors.IsCancelled(err))
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", TopicTransfer)
	assert.Equal(t, "0xc3d58168c5ae7397731d063d5bbf3d657854427343f4c083240f7aacaa2d0f62", TopicTransferSingle)
	assert.Equal(t, "0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822", TopicSwapV2)
	assert.Equal(t, "0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925", TopicApproval)
}
