package source

import (
	"strconv"
	"strings"
	"time"

	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/pkg/utils"
)

// NormalizeCompatRow maps a compat txlist row onto the canonical model
func NormalizeCompatRow(row entity.CompatTxRow) entity.CanonicalTransaction {
	hash := row.Hash.String()
	if hash == "" {
		hash = row.TxHash.String()
	}

	sec := firstNonZero(row.TimeStamp.Int64(), row.TimeStampSec.Int64(), row.Timestamp.Int64())
	if sec == 0 {
		sec = row.TimeStampMs.Int64() / 1000
	}

	input := defaultText(row.Input.String(), "0x")
	methodID := utils.MethodID(input)
	if methodID == "" && utils.IsEmptyInput(input) {
		methodID = utils.MethodID(row.MethodID.String())
	}

	tx := entity.CanonicalTransaction{
		Hash:            strings.ToLower(hash),
		BlockNumber:     parseUint(firstText(row.BlockNumber.String(), row.BlockNumberAlt.String())),
		TimeStamp:       sec * 1000,
		From:            strings.ToLower(row.From.String()),
		To:              optionalAddress(row.To.String()),
		ValueWei:        defaultText(row.Value.String(), "0"),
		Input:           input,
		MethodID:        methodID,
		Status:          compatStatus(row),
		GasUsed:         row.GasUsed.String(),
		GasPrice:        row.GasPrice.String(),
		ContractAddress: strings.ToLower(row.ContractAddress.String()),
	}
	tx.FeeWei = feeWei(tx.GasUsed, tx.GasPrice)
	return tx
}

// compatStatus treats any explicit failure signal as failure, then any success signal as success.
// A row carrying neither is counted as failed.
func compatStatus(row entity.CompatTxRow) entity.TxStatus {
	if row.IsError == "1" || row.TxReceiptStatus == "0" || row.Status == "0" || strings.EqualFold(row.Success.String(), "false") {
		return entity.StatusFailed
	}
	if row.TxReceiptStatus == "1" || row.IsError == "0" || row.Status == "1" || strings.EqualFold(row.Success.String(), "true") {
		return entity.StatusSuccess
	}
	return entity.StatusFailed
}

// NormalizeRestRow maps a REST v2 transaction item onto the canonical model
func NormalizeRestRow(row entity.RestTxRow) entity.CanonicalTransaction {
	block := row.Block
	if block == nil {
		block = &entity.RestBlock{}
	}

	input := defaultText(firstText(row.Input.String(), row.Data.String()), "0x")

	ts := parseTimestampMs(row.Timestamp.String())
	if ts == 0 {
		ts = parseTimestampMs(row.Time.String())
	}
	if ts == 0 {
		ts = parseTimestampMs(block.Timestamp.String())
	}

	tx := entity.CanonicalTransaction{
		Hash:        strings.ToLower(row.Hash.String()),
		BlockNumber: parseUint(firstText(row.BlockNumber.String(), row.BlockNumberAlt.String(), block.Number.String())),
		TimeStamp:   ts,
		From:        strings.ToLower(string(row.From)),
		To:          optionalAddress(string(row.To)),
		ValueWei:    defaultText(row.Value.String(), "0"),
		Input:       input,
		MethodID:    utils.MethodID(input),
		Status:      restStatus(row),
		GasUsed:     firstText(row.GasUsed.String(), row.GasUsedAlt.String()),
		GasPrice:    firstText(row.GasPrice.String(), row.GasPriceAlt.String()),
	}
	if row.CreatedContract != nil {
		tx.ContractAddress = strings.ToLower(string(*row.CreatedContract))
	}

	if fee := string(row.Fee); fee != "" {
		if _, ok := utils.ParseBigInt(fee); ok {
			tx.FeeWei = fee
		}
	}
	if tx.FeeWei == "" {
		tx.FeeWei = feeWei(tx.GasUsed, tx.GasPrice)
	}
	return tx
}

func restStatus(row entity.RestTxRow) entity.TxStatus {
	status := strings.ToLower(row.Status.String())
	switch {
	case status == "ok" || strings.HasPrefix(status, "ok:"):
		return entity.StatusSuccess
	case strings.EqualFold(row.Success.String(), "true"):
		return entity.StatusSuccess
	case strings.EqualFold(row.Result.String(), "success"):
		return entity.StatusSuccess
	}
	return entity.StatusFailed
}

// parseTimestampMs accepts unix seconds, unix milliseconds or an RFC 3339 string
func parseTimestampMs(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n <= 0 {
			return 0
		}
		if n >= 1e12 {
			return int64(n)
		}
		return int64(n) * 1000
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli()
	}
	return 0
}

func feeWei(gasUsed, gasPrice string) string {
	if gasUsed == "" || gasPrice == "" {
		return ""
	}
	return utils.MulDecimalStrings(gasUsed, gasPrice)
}

func optionalAddress(s string) *string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return &s
}

func parseUint(s string) uint64 {
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v
	}
	if strings.HasPrefix(s, "0x") {
		if v, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
			return v
		}
	}
	return 0
}

func firstNonZero(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstText(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func defaultText(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
