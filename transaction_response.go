package hiero

import (
	"time"
)

// TransactionResponse is the lightweight handle returned immediately after a
// successful submission. It does not hold the outcome, only enough identity
// to build receipt and record queries later; it is never mutated and may be
// consumed any number of times.
type TransactionResponse struct {
	TransactionID TransactionID
	NodeID        AccountID
	Hash          []byte

	// ValidateStatus makes GetReceipt fail with a status error when the
	// terminal receipt is anything but SUCCESS.
	ValidateStatus bool
}

// GetReceiptQuery builds the receipt query for this submission, scoped to
// the node that accepted it. Callers may customize it (additional node
// targets, for instance) before executing it themselves.
func (r TransactionResponse) GetReceiptQuery() *TransactionReceiptQuery {
	return NewTransactionReceiptQuery().
		SetTransactionID(r.TransactionID).
		SetNodeAccountIDs([]AccountID{r.NodeID})
}

// GetRecordQuery builds the record query for this submission.
func (r TransactionResponse) GetRecordQuery() *TransactionRecordQuery {
	return NewTransactionRecordQuery().
		SetTransactionID(r.TransactionID).
		SetNodeAccountIDs([]AccountID{r.NodeID})
}

// GetReceipt executes the receipt query, blocking until a terminal receipt
// or the client's request timeout.
func (r TransactionResponse) GetReceipt(client *Client) (receipt *TransactionReceipt, err error) {
	return r.GetReceiptWithTimeout(client, client.requestTimeout)
}

func (r TransactionResponse) GetReceiptWithTimeout(client *Client, timeout time.Duration) (receipt *TransactionReceipt, err error) {
	receipt, err = r.GetReceiptQuery().ExecuteWithTimeout(client, timeout)
	if err != nil {
		return
	}

	if r.ValidateStatus && receipt.Status != StatusSuccess {
		err = &StatusError{Status: receipt.Status, NodeID: &r.NodeID}
	}
	return
}

// GetRecord executes the record query, blocking until a terminal record or
// the client's request timeout.
func (r TransactionResponse) GetRecord(client *Client) (record *TransactionRecord, err error) {
	return r.GetRecordWithTimeout(client, client.requestTimeout)
}

func (r TransactionResponse) GetRecordWithTimeout(client *Client, timeout time.Duration) (record *TransactionRecord, err error) {
	record, err = r.GetRecordQuery().ExecuteWithTimeout(client, timeout)
	if err != nil {
		return
	}

	if r.ValidateStatus && record.Receipt.Status != StatusSuccess {
		err = &StatusError{Status: record.Receipt.Status, NodeID: &r.NodeID}
	}
	return
}
