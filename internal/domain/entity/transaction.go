package entity

import "wallet-activity-stats/pkg/utils"

// TxStatus is the binary success flag reported upstream
type TxStatus int

const (
	StatusFailed  TxStatus = 0
	StatusSuccess TxStatus = 1
)

// Direction of a transaction relative to the subject address
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionSelf Direction = "self"
)

// CanonicalTransaction represents a normalized transaction row, independent of the provider it came from
type CanonicalTransaction struct {
	Hash        string   `json:"hash"`
	BlockNumber uint64   `json:"blockNumber"`
	TimeStamp   int64    `json:"timeStamp"` // ms
	From        string   `json:"from"`
	To          *string  `json:"to"` // nil for contract creation
	ValueWei    string   `json:"valueWei"`
	Input       string   `json:"input"`
	MethodID    string   `json:"methodId,omitempty"`
	Status      TxStatus `json:"status"`

	GasUsed         string `json:"gasUsed,omitempty"`
	GasPrice        string `json:"gasPrice,omitempty"`
	FeeWei          string `json:"feeWei,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

// ToAddress returns the recipient, or "" for contract creation
func (t *CanonicalTransaction) ToAddress() string {
	if t.To == nil {
		return ""
	}
	return *t.To
}

// IsFailed reports whether the upstream marked the transaction as reverted
func (t *CanonicalTransaction) IsFailed() bool {
	return t.Status == StatusFailed
}

// IsContractCreation reports whether the transaction has no usable recipient
func (t *CanonicalTransaction) IsContractCreation() bool {
	to := t.ToAddress()
	return to == "" || to == "0x" || to == utils.ZeroAddress
}

// Selector returns the method id, deriving it from input when the provider omitted it
func (t *CanonicalTransaction) Selector() string {
	if t.MethodID != "" {
		return t.MethodID
	}
	return utils.MethodID(t.Input)
}

// Richness counts populated optional fields; used to pick the better of two duplicate rows
func (t *CanonicalTransaction) Richness() int {
	n := 0
	for _, s := range []string{t.GasUsed, t.GasPrice, t.FeeWei, t.ContractAddress, t.MethodID} {
		if s != "" {
			n++
		}
	}
	if t.To != nil {
		n++
	}
	if t.BlockNumber > 0 {
		n++
	}
	if !utils.IsEmptyInput(t.Input) {
		n++
	}
	return n
}

// DirectionFor computes the direction of tx relative to subject (both lower-case)
func DirectionFor(tx *CanonicalTransaction, subject string) Direction {
	from := tx.From
	to := tx.ToAddress()
	if from == subject && to == subject {
		return DirectionSelf
	}
	if from == subject {
		return DirectionOut
	}
	return DirectionIn
}

// EnrichedTransaction is a CanonicalTransaction with its classification attached
type EnrichedTransaction struct {
	CanonicalTransaction
	Direction    Direction `json:"direction"`
	Category     Category  `json:"category"`
	AmountNative string    `json:"amountNative"`
	LogsChecked  bool      `json:"logsChecked"`
	NftMints     []NftMint `json:"nftMints,omitempty"`
}

// Token standards recognised in mint detection
const (
	StandardERC20   = "ERC-20"
	StandardERC721  = "ERC-721"
	StandardERC1155 = "ERC-1155"
)

// NftMint describes a token minted to the subject, as decoded from logs
type NftMint struct {
	TokenAddress  string `json:"tokenAddress"`
	TokenID       string `json:"tokenId,omitempty"`
	TokenStandard string `json:"tokenStandard"`
	IsDomain      bool   `json:"isDomain"`
}

// TxLog is one event log entry of a transaction receipt
type TxLog struct {
	Address string   `json:"address" bson:"address"`
	Topics  []string `json:"topics" bson:"topics"`
	Data    string   `json:"data" bson:"data"`
}

// Topic returns the i-th topic as reported upstream, or ""
func (l TxLog) Topic(i int) string {
	if i < 0 || i >= len(l.Topics) {
		return ""
	}
	return l.Topics[i]
}

// TokenInfo is best-effort token metadata
type TokenInfo struct {
	Address string `json:"address" bson:"address"`
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Symbol  string `json:"symbol,omitempty" bson:"symbol,omitempty"`
	Type    string `json:"type,omitempty" bson:"type,omitempty"`
}

// IsEmpty reports whether no metadata field is known
func (t TokenInfo) IsEmpty() bool {
	return t.Name == "" && t.Symbol == "" && t.Type == ""
}
