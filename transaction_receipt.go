package hiero

// TransactionReceipt is the terminal consensus outcome of a transaction,
// plus any created-entity identifiers.
type TransactionReceipt struct {
	Status              Status
	AccountID           *AccountID
	TopicID             *AccountID
	TopicSequenceNumber uint64
	TopicRunningHash    []byte
}

// TransactionReceiptFromBytes deserializes a receipt from its protobuf form.
func TransactionReceiptFromBytes(data []byte) (receipt TransactionReceipt, err error) {
	return parseReceipt(data)
}
