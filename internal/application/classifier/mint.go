package classifier

import (
	"context"
	"math/big"
	"strings"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/pkg/utils"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	uint256Type, _      = abi.NewType("uint256", "", nil)
	uint256SliceType, _ = abi.NewType("uint256[]", "", nil)

	transferSingleData = abi.Arguments{{Type: uint256Type}, {Type: uint256Type}}
	transferBatchData  = abi.Arguments{{Type: uint256SliceType}, {Type: uint256SliceType}}
)

// topicAddress extracts the address packed in the low 20 bytes of an indexed topic
func topicAddress(topic string) string {
	if len(topic) < 42 {
		return ""
	}
	return "0x" + strings.ToLower(topic[len(topic)-40:])
}

func topicUint(topic string) string {
	if topic == "" {
		return ""
	}
	return common.HexToHash(topic).Big().String()
}

func isMintTo(from, to, subject string) bool {
	return from == utils.ZeroAddress && to == subject
}

// detectMints finds ERC-721 and ERC-1155 tokens minted to subject in logs
func (c *Classifier) detectMints(ctx context.Context, subject string, logs []entity.TxLog) ([]entity.NftMint, error) {
	var mints []entity.NftMint

	for _, l := range logs {
		addr := strings.ToLower(l.Address)
		topic0 := strings.ToLower(l.Topic(0))
		if addr == "" || topic0 == "" {
			continue
		}

		switch topic0 {
		case TopicTransfer:
			if !isMintTo(topicAddress(l.Topic(1)), topicAddress(l.Topic(2)), subject) {
				continue
			}
			// ERC-20 shares the topic; only the token standard tells them apart
			info, err := c.enrichment.FetchTokenInfo(ctx, addr)
			if err != nil {
				return nil, err
			}
			if !strings.Contains(strings.ToUpper(info.Type), "721") {
				continue
			}
			mints = append(mints, entity.NftMint{
				TokenAddress:  addr,
				TokenID:       topicUint(l.Topic(3)),
				TokenStandard: entity.StandardERC721,
				IsDomain:      c.rules.LooksLikeDomain(info.Name, info.Symbol),
			})

		case TopicTransferSingle, TopicTransferBatch:
			if !isMintTo(topicAddress(l.Topic(2)), topicAddress(l.Topic(3)), subject) {
				continue
			}
			info, err := c.enrichment.FetchTokenInfo(ctx, addr)
			if err != nil {
				return nil, err
			}
			isDomain := c.rules.LooksLikeDomain(info.Name, info.Symbol)

			ids := decodeTokenIDs(topic0, l.Data)
			if len(ids) == 0 {
				ids = []string{""}
			}
			for _, id := range ids {
				mints = append(mints, entity.NftMint{
					TokenAddress:  addr,
					TokenID:       id,
					TokenStandard: entity.StandardERC1155,
					IsDomain:      isDomain,
				})
			}
		}
	}
	return mints, nil
}

// decodeTokenIDs reads the id field(s) of an ERC-1155 transfer event; nil when data is malformed
func decodeTokenIDs(topic0, data string) []string {
	raw, err := hexutil.Decode(data)
	if err != nil || len(raw) == 0 {
		return nil
	}

	if topic0 == TopicTransferSingle {
		vals, err := transferSingleData.Unpack(raw)
		if err != nil || len(vals) < 1 {
			return nil
		}
		id, ok := vals[0].(*big.Int)
		if !ok {
			return nil
		}
		return []string{id.String()}
	}

	vals, err := transferBatchData.Unpack(raw)
	if err != nil || len(vals) < 1 {
		return nil
	}
	ids, ok := vals[0].([]*big.Int)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
