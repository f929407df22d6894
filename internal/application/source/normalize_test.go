package source

import (
	"encoding/json"
	"testing"

	"wallet-activity-stats/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCompatRow(t *testing.T) {
	var row entity.CompatTxRow
	require.NoError(t, json.Unmarshal([]byte(`{
		"hash": "0xABCDEF",
		"blockNumber": "1200",
		"timeStamp": "1700000000",
		"from": "0x1111111111111111111111111111111111111111",
		"to": "0x2222222222222222222222222222222222222222",
		"value": "1000000000000000000",
		"input": "0xA9059CBB000000",
		"txreceipt_status": "1",
		"isError": "0",
		"gasUsed": "21000",
		"gasPrice": "1000000000"
	}`), &row))

	tx := NormalizeCompatRow(row)

	assert.Equal(t, "0xabcdef", tx.Hash)
	assert.Equal(t, uint64(1200), tx.BlockNumber)
	assert.Equal(t, int64(1700000000000), tx.TimeStamp)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", tx.ToAddress())
	assert.Equal(t, "0xa9059cbb", tx.MethodID)
	assert.Equal(t, entity.StatusSuccess, tx.Status)
	assert.Equal(t, "21000000000000", tx.FeeWei)
}

func TestNormalizeCompatRow_Fallbacks(t *testing.T) {
	var row entity.CompatTxRow
	require.NoError(t, json.Unmarshal([]byte(`{
		"txhash": "0xFEED",
		"timeStampMs": 1700000000500,
		"from": "0x1111111111111111111111111111111111111111",
		"to": "",
		"status": 1
	}`), &row))

	tx := NormalizeCompatRow(row)

	assert.Equal(t, "0xfeed", tx.Hash)
	assert.Equal(t, int64(1700000000000), tx.TimeStamp)
	assert.Nil(t, tx.To)
	assert.Equal(t, "0x", tx.Input)
	assert.Equal(t, "", tx.MethodID)
	assert.Equal(t, "0", tx.ValueWei)
	assert.Equal(t, "", tx.FeeWei)
	assert.Equal(t, entity.StatusSuccess, tx.Status)
}

func TestCompatStatus(t *testing.T) {
	tests := []struct {
		name string
		row  entity.CompatTxRow
		want entity.TxStatus
	}{
		{"receipt ok", entity.CompatTxRow{TxReceiptStatus: "1"}, entity.StatusSuccess},
		{"no error flag", entity.CompatTxRow{IsError: "0"}, entity.StatusSuccess},
		{"status one", entity.CompatTxRow{Status: "1"}, entity.StatusSuccess},
		{"success bool", entity.CompatTxRow{Success: "true"}, entity.StatusSuccess},
		{"error flag wins", entity.CompatTxRow{TxReceiptStatus: "1", IsError: "1"}, entity.StatusFailed},
		{"receipt failed", entity.CompatTxRow{IsError: "0", TxReceiptStatus: "0"}, entity.StatusFailed},
		{"no signal", entity.CompatTxRow{}, entity.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compatStatus(tt.row))
		})
	}
}

func TestNormalizeRestRow(t *testing.T) {
	var row entity.RestTxRow
	require.NoError(t, json.Unmarshal([]byte(`{
		"hash": "0xAA",
		"block_number": 77,
		"timestamp": "2024-01-02T03:04:05.000000Z",
		"from": {"hash": "0x1111111111111111111111111111111111111111"},
		"to": null,
		"created_contract": {"hash": "0x3333333333333333333333333333333333333333"},
		"value": "0",
		"raw_input": "ignored",
		"data": "0x60806040",
		"status": "ok",
		"gas_used": "100",
		"gas_price": "7",
		"fee": {"type": "actual", "value": "650"}
	}`), &row))

	tx := NormalizeRestRow(row)

	assert.Equal(t, "0xaa", tx.Hash)
	assert.Equal(t, uint64(77), tx.BlockNumber)
	assert.Equal(t, int64(1704164645000), tx.TimeStamp)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", tx.From)
	assert.Nil(t, tx.To)
	assert.True(t, tx.IsContractCreation())
	assert.Equal(t, "0x60806040", tx.Input)
	assert.Equal(t, "0x3333333333333333333333333333333333333333", tx.ContractAddress)
	assert.Equal(t, entity.StatusSuccess, tx.Status)
	assert.Equal(t, "650", tx.FeeWei)
}

func TestNormalizeRestRow_StatusAndTime(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantStatus entity.TxStatus
		wantTs     int64
	}{
		{"confirmed", `{"status":"ok:confirmed","timestamp":1700000000}`, entity.StatusSuccess, 1700000000000},
		{"error", `{"status":"error","time":"1700000001"}`, entity.StatusFailed, 1700000001000},
		{"success flag", `{"success":true,"block":{"number":"5","timestamp":"1700000002"}}`, entity.StatusSuccess, 1700000002000},
		{"result success", `{"result":"success"}`, entity.StatusSuccess, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row entity.RestTxRow
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &row))
			tx := NormalizeRestRow(row)
			assert.Equal(t, tt.wantStatus, tx.Status)
			assert.Equal(t, tt.wantTs, tx.TimeStamp)
		})
	}
}

func TestParseTimestampMs(t *testing.T) {
	assert.Equal(t, int64(1700000000000), parseTimestampMs("1700000000"))
	assert.Equal(t, int64(1700000000123), parseTimestampMs("1700000000123"))
	assert.Equal(t, int64(0), parseTimestampMs("not a time"))
	assert.Equal(t, int64(0), parseTimestampMs(""))
}
