package entity

// Thresholds holds minimum counts per bucket; zero disables a bucket
type Thresholds struct {
	MinTotalExternalOut int `json:"minTotalExternalOut"`
	MinStake            int `json:"minStake"`
	MinNative           int `json:"minNative"`
	MinNftMint          int `json:"minNftMint"`
	MinDomainMint       int `json:"minDomainMint"`
	MinGM               int `json:"minGM"`
	MinCC               int `json:"minCC"`
	MinSwap             int `json:"minSwap"`
	MinAddLiq           int `json:"minAddLiq"`
	MinRemoveLiq        int `json:"minRemoveLiq"`
}

// Participant is one wallet entered into a scoring round
type Participant struct {
	Discord string `json:"discord,omitempty"`
	Wallet  string `json:"wallet"`
}

// Scoring bucket keys, in allocation order
const (
	BucketStake  = "stake"
	BucketNative = "native"
	BucketNft    = "nft"
	BucketDomain = "domain"
	BucketGM     = "gm"
	BucketCC     = "cc"
	BucketSwap   = "swap"
	BucketAdd    = "add"
	BucketRemove = "remove"
)

// CountBucket groups category counts the way thresholds are expressed
type CountBucket struct {
	Stake  int `json:"stake"`
	Native int `json:"native"`
	Nft    int `json:"nft"`
	Domain int `json:"domain"`
	GM     int `json:"gm"`
	CC     int `json:"cc"` // cc_deploy + cco_deploy
	Swap   int `json:"swap"`
	Add    int `json:"add"`
	Remove int `json:"remove"`
}

// BucketFromCounts folds outgoing category counts into scoring buckets
func BucketFromCounts(c CategoryCounts) CountBucket {
	return CountBucket{
		Stake:  c[CategoryStake],
		Native: c[CategoryNativeSend],
		Nft:    c[CategoryNftMint],
		Domain: c[CategoryDomainMint],
		GM:     c[CategoryGM],
		CC:     c[CategoryCCDeploy] + c[CategoryCCODeploy],
		Swap:   c[CategorySwap],
		Add:    c[CategoryAddLiquidity],
		Remove: c[CategoryRemoveLiquidity],
	}
}

// Plus sums another bucket into b
func (b *CountBucket) Plus(o CountBucket) {
	b.Stake += o.Stake
	b.Native += o.Native
	b.Nft += o.Nft
	b.Domain += o.Domain
	b.GM += o.GM
	b.CC += o.CC
	b.Swap += o.Swap
	b.Add += o.Add
	b.Remove += o.Remove
}

// RowTotals is the per-row total relevant to scoring
type RowTotals struct {
	TxOut int `json:"txOut"`
}

// ScoreRow is the evaluation of one wallet or one discord group
type ScoreRow struct {
	Discord             string         `json:"discord,omitempty"`
	Wallet              string         `json:"wallet,omitempty"`
	Wallets             []string       `json:"wallets,omitempty"`
	Totals              RowTotals      `json:"totals"`
	Counts              CountBucket    `json:"counts"`
	Deficits            map[string]int `json:"deficits"`
	DeficitSum          int            `json:"deficitSum"`
	MetAll              bool           `json:"metAll"`
	MetWithLeniency     bool           `json:"metWithLeniency"`
	MissedAfterLeniency int            `json:"missedAfterLeniency"`
}

// Winners partitions rows into mutually exclusive buckets
type Winners struct {
	Completed    []ScoreRow `json:"completed"`
	WithLeniency []ScoreRow `json:"withLeniency"`
	Missed1      []ScoreRow `json:"missed1"`
	Missed2      []ScoreRow `json:"missed2"`
	Missed3      []ScoreRow `json:"missed3"`
}

// ScoreRequest is the input of a scoring round
type ScoreRequest struct {
	Participants   []Participant `json:"participants"`
	From           int64         `json:"from"`
	To             int64         `json:"to"`
	Thresholds     Thresholds    `json:"thresholds"`
	Leniency       int           `json:"leniency"`
	Concurrency    int           `json:"concurrency"`
	GroupByDiscord bool          `json:"groupByDiscord"`
}

// ScoreParams echoes the effective parameters of a round
type ScoreParams struct {
	From           int64      `json:"from"`
	To             int64      `json:"to"`
	Leniency       int        `json:"leniency"`
	Concurrency    int        `json:"concurrency"`
	Thresholds     Thresholds `json:"thresholds"`
	GroupByDiscord bool       `json:"groupByDiscord"`
}

// ScoreTotals counts accepted participants and evaluated rows
type ScoreTotals struct {
	Participants int `json:"participants"`
	Rows         int `json:"rows"`
}

// ScoreResult is the output of a scoring round
type ScoreResult struct {
	Params  ScoreParams `json:"params"`
	Totals  ScoreTotals `json:"totals"`
	Winners Winners     `json:"winners"`
}
