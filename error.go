package hiero

import (
	"fmt"
)

var (
	ErrInvalidFormat    = fmt.Errorf("invalid format")
	ErrInvalidState     = fmt.Errorf("invalid transaction state")
	ErrCertificateTrust = fmt.Errorf("certificate not trusted")
	ErrConnectivity     = fmt.Errorf("node unreachable")
	ErrMirrorLookup     = fmt.Errorf("mirror lookup failed")
	ErrTimeout          = fmt.Errorf("timed out")
	ErrMaxAttempts      = fmt.Errorf("max attempts exceeded")
	ErrNoNodes          = fmt.Errorf("no node account ids available")
	ErrNoTransactionID  = fmt.Errorf("no transaction id available")
	ErrNoCertificate    = fmt.Errorf("no certificate available")
	ErrTooManyChunks    = fmt.Errorf("message exceeds maximum chunks")
)

// StatusError carries a non-success precheck or receipt status returned by
// a node, along with the node that returned it.
type StatusError struct {
	Status Status
	NodeID *AccountID
}

func (e *StatusError) Error() string {
	if e.NodeID != nil {
		return fmt.Sprintf("transaction failed with status %s (node %s)", e.Status, e.NodeID)
	}
	return fmt.Sprintf("transaction failed with status %s", e.Status)
}

// Retryable reports whether the engine may resubmit to another node. Trust
// and lifecycle failures never reach here; only node-level statuses do.
func (e *StatusError) Retryable() bool {
	return e.Status.retryable()
}
