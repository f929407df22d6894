package entity

// Source tags which provider produced the rows of a result
type Source string

const (
	SourceCompat Source = "compat"
	SourceRestV2 Source = "restv2"
	SourceMixed  Source = "mixed"
)

// Diagnostic warnings reported in Debug.Warnings
const (
	WarningUpstreamTimeout   = "upstream_timeout"
	WarningBudgetExceeded    = "budget_exceeded"
	WarningProviderFailed    = "provider_failed"
	WarningDeepSampleCapped  = "deep_inspection_sample_capped"
	WarningDeepBudgetElapsed = "deep_inspection_budget_elapsed"
)

// TimeWindow bounds a query in ms since epoch; zero means unbounded on that side
type TimeWindow struct {
	FromMs int64 `json:"from"`
	ToMs   int64 `json:"to"`
}

// Contains reports whether ts falls inside the window
func (w TimeWindow) Contains(ts int64) bool {
	if w.FromMs > 0 && ts < w.FromMs {
		return false
	}
	if w.ToMs > 0 && ts > w.ToMs {
		return false
	}
	return true
}

// Totals summarizes a transaction set over all directions
type Totals struct {
	TxAll    int `json:"txAll"`
	TxOut    int `json:"txOut"`
	TxIn     int `json:"txIn"`
	TxFailed int `json:"txFailed"`
}

// ComputeTotals counts all, outgoing, non-outgoing and failed transactions
func ComputeTotals(txs []EnrichedTransaction) Totals {
	t := Totals{TxAll: len(txs)}
	for i := range txs {
		if txs[i].Direction == DirectionOut {
			t.TxOut++
		} else {
			t.TxIn++
		}
		if txs[i].Status == StatusFailed {
			t.TxFailed++
		}
	}
	return t
}

// Debug carries diagnostic flags for a stats result
type Debug struct {
	CompatTried  bool     `json:"compatTried"`
	RestTried    bool     `json:"restTried"`
	PagesFetched int      `json:"pagesFetched,omitempty"`
	LogsChecked  int      `json:"logsChecked,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// AddWarning appends a warning once
func (d *Debug) AddWarning(w string) {
	for _, x := range d.Warnings {
		if x == w {
			return
		}
	}
	d.Warnings = append(d.Warnings, w)
}

// AddressStats is the aggregation output for one subject address
type AddressStats struct {
	Address             string                `json:"address"`
	From                int64                 `json:"from"`
	To                  int64                 `json:"to"`
	Totals              Totals                `json:"totals"`
	CountsByCategoryOut CategoryCounts        `json:"countsByCategoryOut"`
	Transactions        []EnrichedTransaction `json:"transactions"`
	Source              Source                `json:"source"`
	Debug               Debug                 `json:"debug"`
}

// EmptyStats builds the well-formed all-zero placeholder substituted when the budget elapses
func EmptyStats(address string, window TimeWindow) *AddressStats {
	return &AddressStats{
		Address:             address,
		From:                window.FromMs,
		To:                  window.ToMs,
		CountsByCategoryOut: NewCategoryCounts(),
		Transactions:        []EnrichedTransaction{},
		Source:              SourceMixed,
		Debug: Debug{
			CompatTried: true,
			RestTried:   true,
			Warnings:    []string{WarningUpstreamTimeout},
		},
	}
}

// ProviderResult is the explicit outcome of one provider branch
type ProviderResult struct {
	Name  string
	OK    bool
	Rows  []CanonicalTransaction
	Pages int
	Err   error
}

// Usable reports whether the provider succeeded with at least one row
func (r ProviderResult) Usable() bool {
	return r.OK && len(r.Rows) > 0
}

// FetchResult is the Source Adapter output
type FetchResult struct {
	Source Source
	Rows   []CanonicalTransaction
	Debug  Debug
}
