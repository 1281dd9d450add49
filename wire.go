package hiero

import (
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Hand-written protobuf wire codec for the subset of the ledger protocol the
// SDK speaks. Field numbers follow the network's service protobufs; encoding
// is deterministic (fields in ascending number order, defaults omitted) so
// that two bodies for the same transaction differ only in the node account
// id field.

const (
	fieldAccountShard = 1
	fieldAccountRealm = 2
	fieldAccountNum   = 3
	fieldAccountAlias = 4

	fieldKeyEd25519 = 2

	fieldTimestampSeconds = 1
	fieldTimestampNanos   = 2

	fieldDurationSeconds = 1

	fieldTxIDValidStart = 1
	fieldTxIDAccountID  = 2
	fieldTxIDScheduled  = 3
	fieldTxIDNonce      = 4

	fieldBodyTransactionID = 1
	fieldBodyNodeAccountID = 2
	fieldBodyFee           = 3
	fieldBodyValidDuration = 4
	fieldBodyMemo          = 6
	fieldBodyTransfer      = 14
	fieldBodySubmitMessage = 27

	fieldTransferList     = 1
	fieldAmountAccountID  = 1
	fieldAmountAmount     = 2
	fieldSubmitTopicID    = 1
	fieldSubmitMessage    = 2
	fieldSubmitChunkInfo  = 3
	fieldChunkInitialTxID = 1
	fieldChunkTotal       = 2
	fieldChunkNumber      = 3

	fieldSigPairPrefix  = 1
	fieldSigPairEd25519 = 2
	fieldSigMapPair     = 1

	fieldSignedBodyBytes = 1
	fieldSignedSigMap    = 2

	fieldEnvelopeSignedBytes = 5
	fieldListTransaction     = 1

	fieldPrecheckCode = 1

	fieldQueryHeaderResponseType = 2
	fieldQueryHeader             = 1
	fieldQueryTransactionID      = 2
	fieldQueryGetReceipt         = 4
	fieldQueryGetRecord          = 5

	fieldResponseHeaderPrecheck = 1
	fieldResponseHeaderCost     = 3
	fieldResponseReceiptHeader  = 1
	fieldResponseReceipt        = 2
	fieldResponseRecordHeader   = 1
	fieldResponseRecord         = 2
	fieldResponseGetReceipt     = 4
	fieldResponseGetRecord      = 5

	fieldReceiptStatus        = 1
	fieldReceiptAccountID     = 2
	fieldReceiptTopicID       = 3
	fieldReceiptTopicSequence = 4
	fieldReceiptTopicHash     = 5
	fieldRecordReceipt        = 1
	fieldRecordHash           = 2
	fieldRecordConsensusTime  = 3
	fieldRecordTransactionID  = 4
	fieldRecordMemo           = 5
	fieldRecordTransactionFee = 6
)

// --- encoding ---

func appendMessage(b []byte, num protowire.Number, payload []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, payload)
}

func appendAccountID(b []byte, id AccountID) []byte {
	if id.Shard != 0 {
		b = protowire.AppendTag(b, fieldAccountShard, protowire.VarintType)
		b = protowire.AppendVarint(b, id.Shard)
	}
	if id.Realm != 0 {
		b = protowire.AppendTag(b, fieldAccountRealm, protowire.VarintType)
		b = protowire.AppendVarint(b, id.Realm)
	}
	switch {
	case id.AliasKey != nil:
		b = appendMessage(b, fieldAccountAlias, appendKey(nil, *id.AliasKey))
	case id.EvmAddress != nil:
		b = appendMessage(b, fieldAccountAlias, id.EvmAddress.Bytes())
	default:
		if id.Num != 0 {
			b = protowire.AppendTag(b, fieldAccountNum, protowire.VarintType)
			b = protowire.AppendVarint(b, id.Num)
		}
	}
	return b
}

func appendKey(b []byte, key PublicKey) []byte {
	return appendMessage(b, fieldKeyEd25519, key.Bytes())
}

func appendTimestamp(b []byte, t time.Time) []byte {
	if seconds := t.Unix(); seconds != 0 {
		b = protowire.AppendTag(b, fieldTimestampSeconds, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(seconds))
	}
	if nanos := t.Nanosecond(); nanos != 0 {
		b = protowire.AppendTag(b, fieldTimestampNanos, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(nanos))
	}
	return b
}

func appendDuration(b []byte, d time.Duration) []byte {
	if seconds := int64(d.Seconds()); seconds != 0 {
		b = protowire.AppendTag(b, fieldDurationSeconds, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(seconds))
	}
	return b
}

func appendTransactionID(b []byte, id TransactionID) []byte {
	b = appendMessage(b, fieldTxIDValidStart, appendTimestamp(nil, id.ValidStart))
	b = appendMessage(b, fieldTxIDAccountID, appendAccountID(nil, id.AccountID))
	if id.Scheduled {
		b = protowire.AppendTag(b, fieldTxIDScheduled, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	if id.Nonce != 0 {
		b = protowire.AppendTag(b, fieldTxIDNonce, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(id.Nonce))
	}
	return b
}

type bodySpec struct {
	transactionID TransactionID
	nodeAccountID AccountID
	fee           uint64
	validDuration time.Duration
	memo          string
	dataField     protowire.Number
	data          []byte
}

func appendTransactionBody(b []byte, spec bodySpec) []byte {
	b = appendMessage(b, fieldBodyTransactionID, appendTransactionID(nil, spec.transactionID))
	b = appendMessage(b, fieldBodyNodeAccountID, appendAccountID(nil, spec.nodeAccountID))
	if spec.fee != 0 {
		b = protowire.AppendTag(b, fieldBodyFee, protowire.VarintType)
		b = protowire.AppendVarint(b, spec.fee)
	}
	b = appendMessage(b, fieldBodyValidDuration, appendDuration(nil, spec.validDuration))
	if spec.memo != "" {
		b = protowire.AppendTag(b, fieldBodyMemo, protowire.BytesType)
		b = protowire.AppendString(b, spec.memo)
	}
	b = appendMessage(b, spec.dataField, spec.data)
	return b
}

func appendSignaturePair(b []byte, pair SignaturePair) []byte {
	b = appendMessage(b, fieldSigPairPrefix, pair.PublicKey.Bytes())
	b = appendMessage(b, fieldSigPairEd25519, pair.Signature)
	return b
}

func appendSignatureMap(b []byte, pairs []SignaturePair) []byte {
	for _, pair := range pairs {
		b = appendMessage(b, fieldSigMapPair, appendSignaturePair(nil, pair))
	}
	return b
}

func appendSignedTransaction(b []byte, bodyBytes []byte, pairs []SignaturePair) []byte {
	b = appendMessage(b, fieldSignedBodyBytes, bodyBytes)
	b = appendMessage(b, fieldSignedSigMap, appendSignatureMap(nil, pairs))
	return b
}

func appendTransactionEnvelope(b []byte, signedBytes []byte) []byte {
	return appendMessage(b, fieldEnvelopeSignedBytes, signedBytes)
}

func appendQueryHeader(b []byte) []byte {
	// Response type ANSWER_ONLY (0) and no payment; defaults are omitted so
	// the header is empty, kept as a function for when that changes.
	return b
}

func appendReceiptQuery(b []byte, id TransactionID) []byte {
	inner := appendMessage(nil, fieldQueryHeader, appendQueryHeader(nil))
	inner = appendMessage(inner, fieldQueryTransactionID, appendTransactionID(nil, id))
	return appendMessage(b, fieldQueryGetReceipt, inner)
}

func appendRecordQuery(b []byte, id TransactionID) []byte {
	inner := appendMessage(nil, fieldQueryHeader, appendQueryHeader(nil))
	inner = appendMessage(inner, fieldQueryTransactionID, appendTransactionID(nil, id))
	return appendMessage(b, fieldQueryGetRecord, inner)
}

// --- decoding ---

type wireField struct {
	num  protowire.Number
	typ  protowire.Type
	data []byte // bytes fields
	val  uint64 // varint fields
}

// iterateFields walks a message's top-level fields. Group and fixed types are
// not used by this protocol subset and are rejected.
func iterateFields(b []byte, cb func(f wireField) error) (err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errors.Wrap(ErrInvalidFormat, "malformed protobuf tag")
		}
		b = b[n:]

		field := wireField{num: num, typ: typ}

		switch typ {
		case protowire.VarintType:
			field.val, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			field.data, n = protowire.ConsumeBytes(b)
		default:
			return errors.Wrapf(ErrInvalidFormat, "unsupported protobuf wire type %d", typ)
		}
		if n < 0 {
			return errors.Wrap(ErrInvalidFormat, "malformed protobuf field")
		}
		b = b[n:]

		if err = cb(field); err != nil {
			return
		}
	}
	return
}

func parseAccountID(b []byte) (id AccountID, err error) {
	err = iterateFields(b, func(f wireField) error {
		switch f.num {
		case fieldAccountShard:
			id.Shard = f.val
		case fieldAccountRealm:
			id.Realm = f.val
		case fieldAccountNum:
			id.Num = f.val
		case fieldAccountAlias:
			if len(f.data) == EvmAddressLength {
				addr, err2 := EvmAddressFromBytes(f.data)
				if err2 != nil {
					return err2
				}
				id.EvmAddress = &addr
				return nil
			}
			key, err2 := parseKey(f.data)
			if err2 != nil {
				return err2
			}
			id.AliasKey = &key
		}
		return nil
	})
	return
}

func parseKey(b []byte) (key PublicKey, err error) {
	err = iterateFields(b, func(f wireField) error {
		if f.num == fieldKeyEd25519 {
			parsed, err2 := PublicKeyFromBytes(f.data)
			if err2 != nil {
				return err2
			}
			key = parsed
		}
		return nil
	})
	return
}

func parseTimestamp(b []byte) (t time.Time, err error) {
	var seconds, nanos int64
	err = iterateFields(b, func(f wireField) error {
		switch f.num {
		case fieldTimestampSeconds:
			seconds = int64(f.val)
		case fieldTimestampNanos:
			nanos = int64(f.val)
		}
		return nil
	})
	if err == nil {
		t = time.Unix(seconds, nanos)
	}
	return
}

func parseTransactionID(b []byte) (id TransactionID, err error) {
	err = iterateFields(b, func(f wireField) (err2 error) {
		switch f.num {
		case fieldTxIDValidStart:
			id.ValidStart, err2 = parseTimestamp(f.data)
		case fieldTxIDAccountID:
			id.AccountID, err2 = parseAccountID(f.data)
		case fieldTxIDScheduled:
			id.Scheduled = f.val != 0
		case fieldTxIDNonce:
			id.Nonce = int32(f.val)
		}
		return
	})
	return
}

// parsedBody is the decoded view of a frozen transaction body, enough to
// reconstruct engine state from serialized bytes.
type parsedBody struct {
	transactionID TransactionID
	nodeAccountID AccountID
	fee           uint64
	validDuration time.Duration
	memo          string
	dataField     protowire.Number
	data          []byte
}

func parseTransactionBody(b []byte) (body parsedBody, err error) {
	err = iterateFields(b, func(f wireField) (err2 error) {
		switch f.num {
		case fieldBodyTransactionID:
			body.transactionID, err2 = parseTransactionID(f.data)
		case fieldBodyNodeAccountID:
			body.nodeAccountID, err2 = parseAccountID(f.data)
		case fieldBodyFee:
			body.fee = f.val
		case fieldBodyValidDuration:
			var seconds int64
			err2 = iterateFields(f.data, func(df wireField) error {
				if df.num == fieldDurationSeconds {
					seconds = int64(df.val)
				}
				return nil
			})
			body.validDuration = time.Duration(seconds) * time.Second
		case fieldBodyMemo:
			body.memo = string(f.data)
		case fieldBodyTransfer, fieldBodySubmitMessage:
			body.dataField = f.num
			body.data = f.data
		}
		return
	})
	return
}

func parseSignatureMap(b []byte) (pairs []SignaturePair, err error) {
	err = iterateFields(b, func(f wireField) error {
		if f.num != fieldSigMapPair {
			return nil
		}
		var pair SignaturePair
		err2 := iterateFields(f.data, func(pf wireField) (err3 error) {
			switch pf.num {
			case fieldSigPairPrefix:
				pair.PublicKey, err3 = PublicKeyFromBytes(pf.data)
			case fieldSigPairEd25519:
				pair.Signature = pf.data
			}
			return
		})
		if err2 != nil {
			return err2
		}
		pairs = append(pairs, pair)
		return nil
	})
	return
}

func parseSignedTransaction(b []byte) (bodyBytes []byte, pairs []SignaturePair, err error) {
	err = iterateFields(b, func(f wireField) (err2 error) {
		switch f.num {
		case fieldSignedBodyBytes:
			bodyBytes = f.data
		case fieldSignedSigMap:
			pairs, err2 = parseSignatureMap(f.data)
		}
		return
	})
	return
}

func parseTransactionEnvelope(b []byte) (signedBytes []byte, err error) {
	err = iterateFields(b, func(f wireField) error {
		if f.num == fieldEnvelopeSignedBytes {
			signedBytes = f.data
		}
		return nil
	})
	return
}

func parsePrecheck(b []byte) (status Status, err error) {
	err = iterateFields(b, func(f wireField) error {
		if f.num == fieldPrecheckCode {
			status = Status(f.val)
		}
		return nil
	})
	return
}

func parseReceipt(b []byte) (receipt TransactionReceipt, err error) {
	err = iterateFields(b, func(f wireField) (err2 error) {
		switch f.num {
		case fieldReceiptStatus:
			receipt.Status = Status(f.val)
		case fieldReceiptAccountID:
			var id AccountID
			if id, err2 = parseAccountID(f.data); err2 == nil {
				receipt.AccountID = &id
			}
		case fieldReceiptTopicID:
			var id AccountID
			if id, err2 = parseAccountID(f.data); err2 == nil {
				receipt.TopicID = &id
			}
		case fieldReceiptTopicSequence:
			receipt.TopicSequenceNumber = f.val
		case fieldReceiptTopicHash:
			receipt.TopicRunningHash = f.data
		}
		return
	})
	return
}

func parseRecord(b []byte) (record TransactionRecord, err error) {
	err = iterateFields(b, func(f wireField) (err2 error) {
		switch f.num {
		case fieldRecordReceipt:
			record.Receipt, err2 = parseReceipt(f.data)
		case fieldRecordHash:
			record.TransactionHash = f.data
		case fieldRecordConsensusTime:
			record.ConsensusTimestamp, err2 = parseTimestamp(f.data)
		case fieldRecordTransactionID:
			record.TransactionID, err2 = parseTransactionID(f.data)
		case fieldRecordMemo:
			record.Memo = string(f.data)
		case fieldRecordTransactionFee:
			record.TransactionFee = f.val
		}
		return
	})
	return
}

// parseQueryResponse unwraps the outer query response and returns the header
// precheck code plus the payload of the receipt or record field.
func parseQueryResponse(b []byte) (precheck Status, receiptBytes, recordBytes []byte, err error) {
	err = iterateFields(b, func(f wireField) error {
		if f.num != fieldResponseGetReceipt && f.num != fieldResponseGetRecord {
			return nil
		}
		return iterateFields(f.data, func(inner wireField) (err2 error) {
			switch inner.num {
			case fieldResponseReceiptHeader:
				err2 = iterateFields(inner.data, func(hf wireField) error {
					if hf.num == fieldResponseHeaderPrecheck {
						precheck = Status(hf.val)
					}
					return nil
				})
			case fieldResponseReceipt:
				if f.num == fieldResponseGetReceipt {
					receiptBytes = inner.data
				} else {
					recordBytes = inner.data
				}
			}
			return
		})
	})
	return
}
