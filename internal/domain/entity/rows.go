package entity

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexString accepts a JSON string, number, bool or null and keeps its textual form.
// Explorer forks disagree on field types, this absorbs that at decode time.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		*f = ""
		return nil
	}
	// numbers and booleans keep their literal text
	*f = FlexString(b)
	return nil
}

// String returns the raw text
func (f FlexString) String() string {
	return string(f)
}

// Int64 parses the value as a base-10 integer, 0 on failure
func (f FlexString) Int64() int64 {
	if f == "" {
		return 0
	}
	v, err := strconv.ParseInt(string(f), 10, 64)
	if err == nil {
		return v
	}
	fl, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0
	}
	return int64(fl)
}

// AddressRef accepts either a bare address string or an object carrying it under hash/address_hash
type AddressRef string

// UnmarshalJSON implements json.Unmarshaler
func (a *AddressRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AddressRef(s)
		return nil
	}
	var obj struct {
		Hash        string `json:"hash"`
		AddressHash string `json:"address_hash"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Hash != "" {
		*a = AddressRef(obj.Hash)
	} else {
		*a = AddressRef(obj.AddressHash)
	}
	return nil
}

// AmountRef accepts a bare amount or an object carrying it under value
type AmountRef string

// UnmarshalJSON implements json.Unmarshaler
func (a *AmountRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			Value FlexString `json:"value"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*a = AmountRef(obj.Value)
		return nil
	}
	var f FlexString
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = AmountRef(f)
	return nil
}

// CompatTxRow is one row of the compat-style txlist response
type CompatTxRow struct {
	Hash            FlexString `json:"hash"`
	TxHash          FlexString `json:"txhash"`
	BlockNumber     FlexString `json:"blockNumber"`
	BlockNumberAlt  FlexString `json:"block_number"`
	TimeStamp       FlexString `json:"timeStamp"`
	TimeStampSec    FlexString `json:"timeStampSec"`
	TimeStampMs     FlexString `json:"timeStampMs"`
	Timestamp       FlexString `json:"timestamp"`
	From            FlexString `json:"from"`
	To              FlexString `json:"to"`
	Value           FlexString `json:"value"`
	Input           FlexString `json:"input"`
	MethodID        FlexString `json:"methodId"`
	TxReceiptStatus FlexString `json:"txreceipt_status"`
	IsError         FlexString `json:"isError"`
	Status          FlexString `json:"status"`
	Success         FlexString `json:"success"`
	GasUsed         FlexString `json:"gasUsed"`
	GasPrice        FlexString `json:"gasPrice"`
	ContractAddress FlexString `json:"contractAddress"`
}

// RestTxRow is one item of the REST v2 address transactions response
type RestTxRow struct {
	Hash            FlexString  `json:"hash"`
	BlockNumber     FlexString  `json:"block_number"`
	BlockNumberAlt  FlexString  `json:"blockNumber"`
	Block           *RestBlock  `json:"block"`
	Timestamp       FlexString  `json:"timestamp"`
	Time            FlexString  `json:"time"`
	From            AddressRef  `json:"from"`
	To              AddressRef  `json:"to"`
	Value           FlexString  `json:"value"`
	Input           FlexString  `json:"input"`
	Data            FlexString  `json:"data"`
	Status          FlexString  `json:"status"`
	Result          FlexString  `json:"result"`
	Success         FlexString  `json:"success"`
	GasUsed         FlexString  `json:"gas_used"`
	GasUsedAlt      FlexString  `json:"gasUsed"`
	GasPrice        FlexString  `json:"gas_price"`
	GasPriceAlt     FlexString  `json:"gasPrice"`
	Fee             AmountRef   `json:"fee"`
	CreatedContract *AddressRef `json:"created_contract"`
}

// RestBlock is the nested block object some REST v2 forks return
type RestBlock struct {
	Number    FlexString `json:"number"`
	Timestamp FlexString `json:"timestamp"`
}

// RestLogItem is one item of the REST v2 transaction logs response
type RestLogItem struct {
	Address AddressRef `json:"address"`
	Topics  []*string  `json:"topics"`
	Data    FlexString `json:"data"`
}

// RestTokenInfo is the REST v2 token record
type RestTokenInfo struct {
	Address     AddressRef `json:"address"`
	AddressHash AddressRef `json:"address_hash"`
	Name        FlexString `json:"name"`
	Symbol      FlexString `json:"symbol"`
	Type        FlexString `json:"type"`
}
