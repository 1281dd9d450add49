package hiero

import "time"

// TransactionRecord is the full consensus record of a transaction: its
// receipt plus submission hash, consensus timestamp and charged fee.
type TransactionRecord struct {
	Receipt            TransactionReceipt
	TransactionHash    []byte
	ConsensusTimestamp time.Time
	TransactionID      TransactionID
	Memo               string
	TransactionFee     uint64
}

// TransactionRecordFromBytes deserializes a record from its protobuf form.
func TransactionRecordFromBytes(data []byte) (record TransactionRecord, err error) {
	return parseRecord(data)
}
