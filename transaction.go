package hiero

import (
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	defaultMaxTransactionFee = 200_000_000 // tinybars
	defaultValidDuration     = time.Second * 120
)

// SignaturePair is one signature over a node-specific body, keyed by the
// signing public key.
type SignaturePair struct {
	PublicKey PublicKey
	Signature []byte
}

// Transaction is the shared freeze/sign/serialize/execute state machine
// behind every concrete transaction type.
//
// An unfrozen transaction is a mutable builder. Freezing resolves the
// transaction id and candidate node set, then encodes one canonical body per
// node, identical except for the node account id field. Once frozen the body
// map is fixed: re-freezing is rejected, signing appends to the signature
// map, and only nodes present in the body map may be targeted at execution.
type Transaction struct {
	transactionID  TransactionID
	nodeAccountIDs []AccountID
	memo           string
	maxFee         uint64
	validDuration  time.Duration

	frozen     bool
	bodies     map[string][]byte
	signatures map[string][]SignaturePair

	dataField protowire.Number
	dataBytes []byte

	// onFreeze is supplied by the concrete transaction type and produces the
	// encoded data message at freeze time. Deserialized transactions arrive
	// already frozen and carry dataField/dataBytes instead.
	onFreeze func() (protowire.Number, []byte, error)
}

func newTransaction() Transaction {
	return Transaction{
		maxFee:        defaultMaxTransactionFee,
		validDuration: defaultValidDuration,
		bodies:        map[string][]byte{},
		signatures:    map[string][]SignaturePair{},
	}
}

func (tx *Transaction) SetTransactionID(id TransactionID) error {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "transaction id cannot be changed once frozen")
	}
	tx.transactionID = id
	return nil
}

func (tx *Transaction) TransactionID() TransactionID {
	return tx.transactionID
}

func (tx *Transaction) SetNodeAccountIDs(ids []AccountID) error {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "node account ids cannot be changed once frozen")
	}
	tx.nodeAccountIDs = append([]AccountID{}, ids...)
	return nil
}

func (tx *Transaction) NodeAccountIDs() []AccountID {
	return append([]AccountID{}, tx.nodeAccountIDs...)
}

func (tx *Transaction) SetTransactionMemo(memo string) error {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "memo cannot be changed once frozen")
	}
	tx.memo = memo
	return nil
}

func (tx *Transaction) SetMaxTransactionFee(tinybars uint64) error {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "max fee cannot be changed once frozen")
	}
	tx.maxFee = tinybars
	return nil
}

func (tx *Transaction) IsFrozen() bool {
	return tx.frozen
}

// Freeze finalizes the per-node bodies without a client. The transaction id
// and node account ids must have been set explicitly.
func (tx *Transaction) Freeze() error {
	return tx.FreezeWith(nil)
}

// FreezeWith finalizes the per-node bodies, taking a missing transaction id
// from the client's operator and a missing node set from the client's
// network.
func (tx *Transaction) FreezeWith(client *Client) (err error) {
	if err = tx.resolveContext(client); err != nil {
		return
	}

	if tx.dataBytes == nil {
		if tx.onFreeze == nil {
			return errors.Wrap(ErrInvalidState, "transaction has no body to freeze")
		}
		tx.dataField, tx.dataBytes, err = tx.onFreeze()
		if err != nil {
			return
		}
	}

	tx.freezeBodies()
	return
}

// resolveContext fills a missing transaction id from the client's operator
// and a missing node set from the client's network, rejecting a second
// freeze.
func (tx *Transaction) resolveContext(client *Client) (err error) {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "transaction is already frozen")
	}

	if tx.transactionID.isZero() {
		if client == nil || client.operator == nil {
			return errors.Wrap(ErrNoTransactionID, "freeze requires a transaction id or a client with an operator")
		}
		tx.transactionID = NewTransactionID(client.operator.AccountID)
	}

	if len(tx.nodeAccountIDs) == 0 {
		if client == nil {
			return errors.Wrap(ErrNoNodes, "freeze requires node account ids or a client with a network")
		}
		tx.nodeAccountIDs = client.nodeAccountIDs()
		if len(tx.nodeAccountIDs) == 0 {
			return errors.Wrap(ErrNoNodes, "client network has no nodes")
		}
	}
	return
}

// freezeBodies encodes the canonical body for every node and fixes the body
// map. The transaction id, node set and data must already be resolved.
func (tx *Transaction) freezeBodies() {
	for _, nodeID := range tx.nodeAccountIDs {
		tx.bodies[nodeID.mapKey()] = appendTransactionBody(nil, bodySpec{
			transactionID: tx.transactionID,
			nodeAccountID: nodeID,
			fee:           tx.maxFee,
			validDuration: tx.validDuration,
			memo:          tx.memo,
			dataField:     tx.dataField,
			data:          tx.dataBytes,
		})
	}

	tx.frozen = true
}

// Sign appends a signature over every node-specific body using the given
// private key. Signing the same transaction twice with the same key is a
// no-op.
func (tx *Transaction) Sign(key PrivateKey) error {
	return tx.SignWith(key.PublicKey(), key.Sign)
}

// SignWith appends signatures produced by an external signer for the given
// public key.
func (tx *Transaction) SignWith(publicKey PublicKey, signer func(message []byte) []byte) (err error) {
	if !tx.frozen {
		return errors.Wrap(ErrInvalidState, "transaction must be frozen before signing")
	}

	if tx.signedBy(publicKey) {
		return
	}

	for _, nodeID := range tx.nodeAccountIDs {
		key := nodeID.mapKey()
		tx.signatures[key] = append(tx.signatures[key], SignaturePair{
			PublicKey: publicKey,
			Signature: signer(tx.bodies[key]),
		})
	}
	return
}

func (tx *Transaction) signedBy(publicKey PublicKey) bool {
	if len(tx.nodeAccountIDs) == 0 {
		return false
	}
	for _, pair := range tx.signatures[tx.nodeAccountIDs[0].mapKey()] {
		if pair.PublicKey.Equal(publicKey) {
			return true
		}
	}
	return false
}

// bodyBytes returns the frozen canonical body for a node present in the
// frozen map.
func (tx *Transaction) bodyBytes(nodeID AccountID) (body []byte, err error) {
	body, ok := tx.bodies[nodeID.mapKey()]
	if !ok {
		err = errors.Wrapf(ErrInvalidState, "node %s is not part of this transaction's frozen node set", nodeID)
	}
	return
}

// envelopeBytes builds the single-node wire envelope submitted to a node.
func (tx *Transaction) envelopeBytes(nodeID AccountID) (envelope []byte, err error) {
	body, err := tx.bodyBytes(nodeID)
	if err != nil {
		return
	}

	signed := appendSignedTransaction(nil, body, tx.signatures[nodeID.mapKey()])
	envelope = appendTransactionEnvelope(nil, signed)
	return
}

func (tx *Transaction) submitMethod() (method string, err error) {
	switch tx.dataField {
	case fieldBodyTransfer:
		method = methodCryptoTransfer
	case fieldBodySubmitMessage:
		method = methodSubmitMessage
	default:
		err = errors.Wrapf(ErrInvalidState, "transaction has no submittable body (field %d)", tx.dataField)
	}
	return
}

// ToBytes serializes the complete transaction state, including the per-node
// body map and any signatures, as a transaction-list envelope with one
// signed transaction per node in node order. Deserializing the result yields
// a behaviorally identical transaction.
func (tx *Transaction) ToBytes() (out []byte, err error) {
	if !tx.frozen {
		// An unfrozen transaction has no bodies yet; its envelope is empty
		// and deserializes back to an unfrozen transaction.
		out = []byte{}
		return
	}

	for _, nodeID := range tx.nodeAccountIDs {
		key := nodeID.mapKey()
		signed := appendSignedTransaction(nil, tx.bodies[key], tx.signatures[key])
		out = appendMessage(out, fieldListTransaction, appendTransactionEnvelope(nil, signed))
	}
	return
}

// TransactionFromBytes reconstructs a transaction from its serialized form,
// restoring frozen state, the node set, per-node bodies and signatures.
func TransactionFromBytes(data []byte) (tx *Transaction, err error) {
	base := newTransaction()
	tx = &base

	err = iterateFields(data, func(f wireField) (err2 error) {
		if f.num != fieldListTransaction {
			return
		}

		signedBytes, err2 := parseTransactionEnvelope(f.data)
		if err2 != nil {
			return
		}

		bodyBytes, pairs, err2 := parseSignedTransaction(signedBytes)
		if err2 != nil {
			return
		}

		body, err2 := parseTransactionBody(bodyBytes)
		if err2 != nil {
			return
		}

		key := body.nodeAccountID.mapKey()
		tx.nodeAccountIDs = append(tx.nodeAccountIDs, body.nodeAccountID)
		tx.bodies[key] = bodyBytes
		tx.signatures[key] = pairs

		tx.transactionID = body.transactionID
		tx.memo = body.memo
		tx.maxFee = body.fee
		tx.validDuration = body.validDuration
		tx.dataField = body.dataField
		tx.dataBytes = body.data
		return
	})
	if err != nil {
		return
	}

	tx.frozen = len(tx.bodies) > 0
	return
}
