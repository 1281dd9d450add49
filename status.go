package hiero

import "fmt"

// Status is a node response code, returned both from the synchronous
// precheck at submission time and from the terminal consensus receipt.
type Status uint32

const (
	StatusOK                            Status = 0
	StatusInvalidTransaction            Status = 1
	StatusPayerAccountNotFound          Status = 2
	StatusInvalidNodeAccount            Status = 3
	StatusTransactionExpired            Status = 4
	StatusInvalidTransactionStart       Status = 5
	StatusInvalidTransactionDuration    Status = 6
	StatusInvalidSignature              Status = 7
	StatusMemoTooLong                   Status = 8
	StatusInsufficientTxFee             Status = 9
	StatusInsufficientPayerBalance      Status = 10
	StatusDuplicateTransaction          Status = 11
	StatusBusy                          Status = 12
	StatusNotSupported                  Status = 13
	StatusInvalidFileID                 Status = 14
	StatusInvalidAccountID              Status = 15
	StatusInvalidContractID             Status = 16
	StatusInvalidTransactionID          Status = 17
	StatusReceiptNotFound               Status = 18
	StatusRecordNotFound                Status = 19
	StatusInvalidSolidityID             Status = 20
	StatusUnknown                       Status = 21
	StatusSuccess                       Status = 22
	StatusFailInvalid                   Status = 23
	StatusFailFee                       Status = 24
	StatusFailBalance                   Status = 25
	StatusPlatformTransactionNotCreated Status = 26
	StatusPlatformNotActive             Status = 27
	StatusInvalidTopicID                Status = 150
	StatusInvalidChunkNumber            Status = 156
	StatusInvalidChunkTransactionID     Status = 157
)

var statusNames = map[Status]string{
	StatusOK:                            "OK",
	StatusInvalidTransaction:            "INVALID_TRANSACTION",
	StatusPayerAccountNotFound:          "PAYER_ACCOUNT_NOT_FOUND",
	StatusInvalidNodeAccount:            "INVALID_NODE_ACCOUNT",
	StatusTransactionExpired:            "TRANSACTION_EXPIRED",
	StatusInvalidTransactionStart:       "INVALID_TRANSACTION_START",
	StatusInvalidTransactionDuration:    "INVALID_TRANSACTION_DURATION",
	StatusInvalidSignature:              "INVALID_SIGNATURE",
	StatusMemoTooLong:                   "MEMO_TOO_LONG",
	StatusInsufficientTxFee:             "INSUFFICIENT_TX_FEE",
	StatusInsufficientPayerBalance:      "INSUFFICIENT_PAYER_BALANCE",
	StatusDuplicateTransaction:          "DUPLICATE_TRANSACTION",
	StatusBusy:                          "BUSY",
	StatusNotSupported:                  "NOT_SUPPORTED",
	StatusInvalidFileID:                 "INVALID_FILE_ID",
	StatusInvalidAccountID:              "INVALID_ACCOUNT_ID",
	StatusInvalidContractID:             "INVALID_CONTRACT_ID",
	StatusInvalidTransactionID:          "INVALID_TRANSACTION_ID",
	StatusReceiptNotFound:               "RECEIPT_NOT_FOUND",
	StatusRecordNotFound:                "RECORD_NOT_FOUND",
	StatusInvalidSolidityID:             "INVALID_SOLIDITY_ID",
	StatusUnknown:                       "UNKNOWN",
	StatusSuccess:                       "SUCCESS",
	StatusFailInvalid:                   "FAIL_INVALID",
	StatusFailFee:                       "FAIL_FEE",
	StatusFailBalance:                   "FAIL_BALANCE",
	StatusPlatformTransactionNotCreated: "PLATFORM_TRANSACTION_NOT_CREATED",
	StatusPlatformNotActive:             "PLATFORM_NOT_ACTIVE",
	StatusInvalidTopicID:                "INVALID_TOPIC_ID",
	StatusInvalidChunkNumber:            "INVALID_CHUNK_NUMBER",
	StatusInvalidChunkTransactionID:     "INVALID_CHUNK_TRANSACTION_ID",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_%d", uint32(s))
}

// retryable statuses indicate the node could not take the transaction right
// now but another node (or the same node later) might.
func (s Status) retryable() bool {
	switch s {
	case StatusBusy, StatusPlatformTransactionNotCreated, StatusPlatformNotActive:
		return true
	}
	return false
}

// pending statuses mean consensus has not yet produced a terminal receipt.
func (s Status) pending() bool {
	switch s {
	case StatusOK, StatusUnknown, StatusReceiptNotFound, StatusRecordNotFound:
		return true
	}
	return false
}
