package hiero

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// TransactionReceiptQuery fetches the receipt for a transaction id. Receipts
// are produced asynchronously by consensus, so execution is a bounded poll:
// pending statuses back off and retry until the deadline, never hanging.
type TransactionReceiptQuery struct {
	transactionID  TransactionID
	nodeAccountIDs []AccountID
}

func NewTransactionReceiptQuery() *TransactionReceiptQuery {
	return &TransactionReceiptQuery{}
}

func (q *TransactionReceiptQuery) SetTransactionID(id TransactionID) *TransactionReceiptQuery {
	q.transactionID = id
	return q
}

func (q *TransactionReceiptQuery) TransactionID() TransactionID {
	return q.transactionID
}

// SetNodeAccountIDs restricts the query to specific nodes, typically the
// node a transaction was submitted to.
func (q *TransactionReceiptQuery) SetNodeAccountIDs(ids []AccountID) *TransactionReceiptQuery {
	q.nodeAccountIDs = append([]AccountID{}, ids...)
	return q
}

func (q *TransactionReceiptQuery) NodeAccountIDs() []AccountID {
	return append([]AccountID{}, q.nodeAccountIDs...)
}

func (q *TransactionReceiptQuery) Execute(client *Client) (receipt *TransactionReceipt, err error) {
	return q.ExecuteWithTimeout(client, client.requestTimeout)
}

func (q *TransactionReceiptQuery) ExecuteWithTimeout(client *Client, timeout time.Duration) (receipt *TransactionReceipt, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	request := appendReceiptQuery(nil, q.transactionID)

	result, err := pollQuery(ctx, client, q.queryNodes(client), methodGetReceipt, request, func(response []byte) (done bool, out TransactionReceipt, err2 error) {
		precheck, receiptBytes, _, err2 := parseQueryResponse(response)
		if err2 != nil {
			return
		}

		if precheck.pending() {
			if len(receiptBytes) == 0 {
				return
			}
		} else if precheck != StatusSuccess {
			return false, out, &StatusError{Status: precheck}
		}

		out, err2 = parseReceipt(receiptBytes)
		if err2 != nil {
			return
		}

		// The receipt's own status may still be pending while consensus
		// settles; keep polling until it is terminal.
		done = !out.Status.pending()
		return
	})
	if err != nil {
		return
	}

	receipt = &result
	return
}

// TransactionRecordQuery fetches the full record for a transaction id, with
// the same bounded polling behavior as the receipt query.
type TransactionRecordQuery struct {
	transactionID  TransactionID
	nodeAccountIDs []AccountID
}

func NewTransactionRecordQuery() *TransactionRecordQuery {
	return &TransactionRecordQuery{}
}

func (q *TransactionRecordQuery) SetTransactionID(id TransactionID) *TransactionRecordQuery {
	q.transactionID = id
	return q
}

func (q *TransactionRecordQuery) TransactionID() TransactionID {
	return q.transactionID
}

func (q *TransactionRecordQuery) SetNodeAccountIDs(ids []AccountID) *TransactionRecordQuery {
	q.nodeAccountIDs = append([]AccountID{}, ids...)
	return q
}

func (q *TransactionRecordQuery) NodeAccountIDs() []AccountID {
	return append([]AccountID{}, q.nodeAccountIDs...)
}

func (q *TransactionRecordQuery) Execute(client *Client) (record *TransactionRecord, err error) {
	return q.ExecuteWithTimeout(client, client.requestTimeout)
}

func (q *TransactionRecordQuery) ExecuteWithTimeout(client *Client, timeout time.Duration) (record *TransactionRecord, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	request := appendRecordQuery(nil, q.transactionID)

	result, err := pollQuery(ctx, client, q.queryNodes(client), methodGetRecord, request, func(response []byte) (done bool, out TransactionRecord, err2 error) {
		precheck, _, recordBytes, err2 := parseQueryResponse(response)
		if err2 != nil {
			return
		}

		if precheck.pending() {
			if len(recordBytes) == 0 {
				return
			}
		} else if precheck != StatusSuccess {
			return false, out, &StatusError{Status: precheck}
		}

		out, err2 = parseRecord(recordBytes)
		if err2 != nil {
			return
		}

		done = !out.Receipt.Status.pending()
		return
	})
	if err != nil {
		return
	}

	record = &result
	return
}

func (q *TransactionReceiptQuery) queryNodes(client *Client) []AccountID {
	if len(q.nodeAccountIDs) > 0 {
		return q.nodeAccountIDs
	}
	return client.nodeAccountIDs()
}

func (q *TransactionRecordQuery) queryNodes(client *Client) []AccountID {
	if len(q.nodeAccountIDs) > 0 {
		return q.nodeAccountIDs
	}
	return client.nodeAccountIDs()
}

// pollQuery drives a query against the node set until the response is
// terminal, combining the engine's node-rotation retry with a poll loop for
// pending answers. It fails with a timeout error once the context deadline
// passes, never blocking indefinitely.
func pollQuery[T any](
	ctx context.Context,
	client *Client,
	nodeIDs []AccountID,
	method string,
	request []byte,
	interpret func(response []byte) (done bool, out T, err error),
) (out T, err error) {
	backoff := client.minBackoff

	for {
		var done bool

		err = client.executeWithRetry(ctx, nodeIDs, func(ctx context.Context, node *Node) (err2 error) {
			channel, err2 := node.GetChannel()
			if err2 != nil {
				return
			}

			response, err2 := channel.invoke(ctx, method, request)
			if err2 != nil {
				return
			}

			done, out, err2 = interpret(response)
			return
		})
		if err != nil || done {
			return
		}

		select {
		case <-ctx.Done():
			err = errors.Wrapf(ErrTimeout, "no terminal answer for %s before deadline", method)
			return
		case <-time.After(backoff):
		}

		if backoff *= 2; backoff > client.maxBackoff {
			backoff = client.maxBackoff
		}
	}
}
