package scoring

import (
	"sort"
	"strings"

	"wallet-activity-stats/internal/domain/entity"
)

type bucketDeficit struct {
	key     string
	deficit int
}

// deficitsFor lists the shortfall of every bucket with a positive threshold, in bucket order
func deficitsFor(t entity.Thresholds, c entity.CountBucket) []bucketDeficit {
	rules := []struct {
		key  string
		need int
		have int
	}{
		{entity.BucketStake, t.MinStake, c.Stake},
		{entity.BucketNative, t.MinNative, c.Native},
		{entity.BucketNft, t.MinNftMint, c.Nft},
		{entity.BucketDomain, t.MinDomainMint, c.Domain},
		{entity.BucketGM, t.MinGM, c.GM},
		{entity.BucketCC, t.MinCC, c.CC},
		{entity.BucketSwap, t.MinSwap, c.Swap},
		{entity.BucketAdd, t.MinAddLiq, c.Add},
		{entity.BucketRemove, t.MinRemoveLiq, c.Remove},
	}

	out := make([]bucketDeficit, 0, len(rules))
	for _, r := range rules {
		if r.need <= 0 {
			continue
		}
		d := r.need - r.have
		if d < 0 {
			d = 0
		}
		out = append(out, bucketDeficit{key: r.key, deficit: d})
	}
	return out
}

// allocateLeniency spends up to leniency points on the positive deficits, largest first.
// Equal deficits keep bucket order. Returns the remaining deficits and unspent points.
func allocateLeniency(deficits []bucketDeficit, leniency int) ([]bucketDeficit, int) {
	after := make([]bucketDeficit, 0, len(deficits))
	for _, d := range deficits {
		if d.deficit > 0 {
			after = append(after, d)
		}
	}
	sort.SliceStable(after, func(i, j int) bool {
		return after[i].deficit > after[j].deficit
	})

	left := leniency
	for i := range after {
		if left <= 0 {
			break
		}
		use := after[i].deficit
		if use > left {
			use = left
		}
		after[i].deficit -= use
		left -= use
	}
	return after, left
}

// evaluate fills the deficit and status fields of row from its counts and totals
func evaluate(row *entity.ScoreRow, t entity.Thresholds, leniency int) {
	defs := deficitsFor(t, row.Counts)

	row.Deficits = make(map[string]int, len(defs))
	row.DeficitSum = 0
	for _, d := range defs {
		row.Deficits[d.key] = d.deficit
		row.DeficitSum += d.deficit
	}

	// the total-outgoing requirement is never covered by leniency
	meetsTotal := row.Totals.TxOut >= t.MinTotalExternalOut

	after, _ := allocateLeniency(defs, leniency)
	missed := 0
	for _, d := range after {
		if d.deficit > 0 {
			missed++
		}
	}

	row.MissedAfterLeniency = missed
	row.MetAll = meetsTotal && row.DeficitSum == 0
	row.MetWithLeniency = meetsTotal && row.DeficitSum > 0 && missed == 0
}

const noDiscordKey = "(no discord)"

// groupByDiscord sums wallet rows per lower-cased discord handle, keeping first-seen order,
// and re-evaluates every group on its sums
func groupByDiscord(rows []entity.ScoreRow, t entity.Thresholds, leniency int) []entity.ScoreRow {
	index := make(map[string]int)
	var groups []entity.ScoreRow

	for _, r := range rows {
		handle := r.Discord
		if handle == "" {
			handle = noDiscordKey
		}
		key := strings.ToLower(handle)

		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			g := entity.ScoreRow{
				Discord: r.Discord,
				Wallets: []string{},
				Totals:  r.Totals,
				Counts:  r.Counts,
			}
			if r.Wallet != "" {
				g.Wallets = append(g.Wallets, r.Wallet)
			}
			groups = append(groups, g)
			continue
		}

		g := &groups[i]
		if r.Wallet != "" {
			g.Wallets = append(g.Wallets, r.Wallet)
		}
		g.Totals.TxOut += r.Totals.TxOut
		g.Counts.Plus(r.Counts)
	}

	for i := range groups {
		evaluate(&groups[i], t, leniency)
	}
	return groups
}

// partition splits rows into the mutually exclusive winner buckets. Rows that only miss the
// total-outgoing requirement land in none of them.
func partition(rows []entity.ScoreRow) entity.Winners {
	w := entity.Winners{
		Completed:    []entity.ScoreRow{},
		WithLeniency: []entity.ScoreRow{},
		Missed1:      []entity.ScoreRow{},
		Missed2:      []entity.ScoreRow{},
		Missed3:      []entity.ScoreRow{},
	}
	for _, r := range rows {
		switch {
		case r.MetAll:
			w.Completed = append(w.Completed, r)
		case r.MetWithLeniency:
			w.WithLeniency = append(w.WithLeniency, r)
		case r.MissedAfterLeniency == 1:
			w.Missed1 = append(w.Missed1, r)
		case r.MissedAfterLeniency == 2:
			w.Missed2 = append(w.Missed2, r)
		case r.MissedAfterLeniency >= 3:
			w.Missed3 = append(w.Missed3, r)
		}
	}
	return w
}
