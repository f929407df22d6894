package classifier

import (
	"strings"

	"wallet-activity-stats/internal/infrastructure/config"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ApproveSelector is the ERC-20 approve(address,uint256) selector
const ApproveSelector = "0x095ea7b3"

// Event topics computed from their canonical signatures
var (
	TopicTransfer       = eventTopic("Transfer(address,address,uint256)")
	TopicTransferSingle = eventTopic("TransferSingle(address,address,address,uint256,uint256)")
	TopicTransferBatch  = eventTopic("TransferBatch(address,address,address,uint256[],uint256[])")
	TopicApproval       = eventTopic("Approval(address,address,uint256)")
	TopicSwapV2         = eventTopic("Swap(address,uint256,uint256,uint256,uint256,address)")
	TopicSwapV3         = eventTopic("Swap(address,address,int256,int256,uint160,uint128,int24)")
)

var (
	swapSelectors = selectorSet(
		[]string{
			"0x18cbafe5", // swapExactTokensForETH
			"0x7ff36ab5", // swapExactETHForTokens
			"0x38ed1739", // swapExactTokensForTokens
			"0xb858183f", // exactInput
			"0x414bf389", // exactInputSingle
			"0x09b81346", // exactOutput
			"0x5023b4df", // exactOutputSingle
			"0x5ae401dc", // multicall(uint256,bytes[])
		},
		"swapTokensForExactTokens(uint256,uint256,address[],address,uint256)",
		"swapTokensForExactETH(uint256,uint256,address[],address,uint256)",
		"swapETHForExactTokens(uint256,address[],address,uint256)",
		"swapExactTokensForTokensSupportingFeeOnTransferTokens(uint256,uint256,address[],address,uint256)",
		"swapExactETHForTokensSupportingFeeOnTransferTokens(uint256,address[],address,uint256)",
		"swapExactTokensForETHSupportingFeeOnTransferTokens(uint256,uint256,address[],address,uint256)",
	)

	addLiquiditySelectors = selectorSet(
		[]string{
			"0xe8e33700", // addLiquidity
			"0xf305d719", // addLiquidityETH
		},
	)

	removeLiquiditySelectors = selectorSet(
		[]string{
			"0xbaa2abde", // removeLiquidity
			"0x02751cec", // removeLiquidityETH
		},
		"removeLiquidityWithPermit(address,address,uint256,uint256,uint256,address,uint256,bool,uint8,bytes32,bytes32)",
		"removeLiquidityETHWithPermit(address,uint256,uint256,uint256,address,uint256,bool,uint8,bytes32,bytes32)",
		"removeLiquidityETHSupportingFeeOnTransferTokens(address,uint256,uint256,uint256,address,uint256)",
		"removeLiquidityETHWithPermitSupportingFeeOnTransferTokens(address,uint256,uint256,uint256,address,uint256,bool,uint8,bytes32,bytes32)",
	)
)

func eventTopic(signature string) string {
	return strings.ToLower(crypto.Keccak256Hash([]byte(signature)).Hex())
}

// Selector returns the 4-byte method id of a function signature
func Selector(signature string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(signature))[:4])
}

func selectorSet(literals []string, signatures ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(literals)+len(signatures))
	for _, s := range literals {
		set[s] = struct{}{}
	}
	for _, sig := range signatures {
		set[Selector(sig)] = struct{}{}
	}
	return set
}

// RuleSet holds the deployment-specific address tables used by the fast path
type RuleSet struct {
	StakingContract string
	CCOFactory      string
	GMContracts     map[string]struct{}
	DomainKeywords  []string
}

// NewRuleSet builds a RuleSet from configuration, lower-casing every address and keyword
func NewRuleSet(cfg *config.ClassifierConfig) *RuleSet {
	rs := &RuleSet{
		StakingContract: strings.ToLower(cfg.StakingContract),
		CCOFactory:      strings.ToLower(cfg.CCOFactory),
		GMContracts:     make(map[string]struct{}, len(cfg.GMContracts)),
	}
	for _, a := range cfg.GMContracts {
		rs.GMContracts[strings.ToLower(a)] = struct{}{}
	}
	for _, k := range cfg.DomainKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			rs.DomainKeywords = append(rs.DomainKeywords, k)
		}
	}
	return rs
}

// IsGM reports whether address is one of the GM contracts
func (r *RuleSet) IsGM(address string) bool {
	_, ok := r.GMContracts[address]
	return ok
}

// LooksLikeDomain reports whether a token name or symbol contains a domain keyword
func (r *RuleSet) LooksLikeDomain(name, symbol string) bool {
	s := strings.ToLower(name + " " + symbol)
	for _, k := range r.DomainKeywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func isSwapSelector(sel string) bool {
	_, ok := swapSelectors[sel]
	return ok
}

func isAddLiquiditySelector(sel string) bool {
	_, ok := addLiquiditySelectors[sel]
	return ok
}

func isRemoveLiquiditySelector(sel string) bool {
	_, ok := removeLiquiditySelectors[sel]
	return ok
}
