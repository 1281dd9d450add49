package hiero

import (
	"context"
	"crypto/sha512"
	"time"

	"github.com/pkg/errors"
)

// retryDecision classifies a failed attempt: connectivity errors and
// BUSY-class node statuses rotate to the next node after a backoff, while
// everything else (lifecycle, format, trust, fatal prechecks) aborts
// immediately.
func retryable(err error) bool {
	if errors.Is(err, ErrConnectivity) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return false
}

// executeWithRetry runs attempt against nodes in rotation, starting from the
// client's round-robin cursor, with exponential backoff between attempts.
// The bound is both the client's max attempt count and the context deadline;
// a retryable failure never hits the same node twice without an intervening
// backoff.
func (c *Client) executeWithRetry(
	ctx context.Context,
	nodeIDs []AccountID,
	attempt func(ctx context.Context, node *Node) error,
) (err error) {
	if len(nodeIDs) == 0 {
		return errors.Wrap(ErrNoNodes, "nothing to execute against")
	}

	backoff := c.minBackoff
	start := c.advanceNodeCursor()

	for i := 0; i < c.maxAttempts; i++ {
		node, err2 := c.node(nodeIDs[(start+i)%len(nodeIDs)])
		if err2 != nil {
			return err2
		}

		err = attempt(ctx, node)
		if err == nil {
			return
		}

		if !retryable(err) {
			return
		}

		if i == c.maxAttempts-1 {
			break
		}

		c.log.Debug().Msgf("attempt %d against node %s failed, retrying: %v", i+1, node.AccountID(), err)

		select {
		case <-ctx.Done():
			return errors.Wrapf(ErrTimeout, "gave up after %d attempts: %v", i+1, err)
		case <-time.After(backoff):
		}

		if backoff *= 2; backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}

	return errors.Wrapf(ErrMaxAttempts, "gave up after %d attempts: %v", c.maxAttempts, err)
}

// Submit sends the frozen transaction to one of its nodes and returns the
// lightweight response handle without waiting for consensus. The operator's
// signature is added if it is not already present.
func (tx *Transaction) Submit(client *Client) (response *TransactionResponse, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), client.requestTimeout)
	defer cancel()

	return tx.submit(ctx, client)
}

// Execute submits the frozen transaction and blocks until a terminal receipt
// is obtained, returning the receipt.
func (tx *Transaction) Execute(client *Client) (receipt *TransactionReceipt, err error) {
	response, err := tx.Submit(client)
	if err != nil {
		return
	}
	return response.GetReceipt(client)
}

func (tx *Transaction) submit(ctx context.Context, client *Client) (response *TransactionResponse, err error) {
	if !tx.frozen {
		err = errors.Wrap(ErrInvalidState, "transaction must be frozen before execution")
		return
	}

	method, err := tx.submitMethod()
	if err != nil {
		return
	}

	if client.operator != nil {
		if err = tx.Sign(client.operator.PrivateKey); err != nil {
			return
		}
	}

	var submitted *TransactionResponse

	err = client.executeWithRetry(ctx, tx.nodeAccountIDs, func(ctx context.Context, node *Node) (err2 error) {
		envelope, err2 := tx.envelopeBytes(node.AccountID())
		if err2 != nil {
			return
		}

		channel, err2 := node.GetChannel()
		if err2 != nil {
			return
		}

		responseBytes, err2 := channel.invoke(ctx, method, envelope)
		if err2 != nil {
			return
		}

		precheck, err2 := parsePrecheck(responseBytes)
		if err2 != nil {
			return
		}

		if precheck != StatusOK && precheck != StatusSuccess {
			nodeID := node.AccountID()
			return &StatusError{Status: precheck, NodeID: &nodeID}
		}

		hash := sha512.Sum384(envelope)
		submitted = &TransactionResponse{
			TransactionID:  tx.transactionID,
			NodeID:         node.AccountID(),
			Hash:           hash[:],
			ValidateStatus: true,
		}
		return
	})
	if err != nil {
		return
	}

	response = submitted
	return
}
