package entity

// Category is the activity class assigned to a transaction
type Category string

const (
	CategoryStake           Category = "stake"
	CategoryNativeSend      Category = "native_send"
	CategoryNftMint         Category = "nft_mint"
	CategoryDomainMint      Category = "domain_mint"
	CategoryCCDeploy        Category = "cc_deploy"
	CategoryCCODeploy       Category = "cco_deploy"
	CategoryGM              Category = "gm"
	CategorySwap            Category = "swap"
	CategoryAddLiquidity    Category = "add_liquidity"
	CategoryRemoveLiquidity Category = "remove_liquidity"
	CategoryApprove         Category = "approve"
	CategoryFail            Category = "fail"
	CategoryOther           Category = "other"
)

// CategoryOrder is the fixed enumeration order used for iteration and zero back-fill
var CategoryOrder = []Category{
	CategoryStake,
	CategoryNativeSend,
	CategoryNftMint,
	CategoryDomainMint,
	CategoryCCDeploy,
	CategoryCCODeploy,
	CategoryGM,
	CategorySwap,
	CategoryAddLiquidity,
	CategoryRemoveLiquidity,
	CategoryApprove,
	CategoryFail,
	CategoryOther,
}

// CategoryCounts maps every category to a count
type CategoryCounts map[Category]int

// NewCategoryCounts returns a map with every category present at zero
func NewCategoryCounts() CategoryCounts {
	counts := make(CategoryCounts, len(CategoryOrder))
	for _, c := range CategoryOrder {
		counts[c] = 0
	}
	return counts
}

// CountOutgoing tallies outgoing transactions per category, back-filling absent categories with zero
func CountOutgoing(txs []EnrichedTransaction) CategoryCounts {
	counts := NewCategoryCounts()
	for i := range txs {
		if txs[i].Direction != DirectionOut {
			continue
		}
		counts[txs[i].Category]++
	}
	return counts
}
