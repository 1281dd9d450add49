package hiero

import (
	"bytes"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func testTopicMessage(t *testing.T, size int) *TopicMessageSubmitTransaction {
	t.Helper()

	msg := make([]byte, size)
	for i := range msg {
		msg[i] = byte(i)
	}

	tx := NewTopicMessageSubmitTransaction()
	if err := tx.SetTopicID(AccountID{Num: 7777}); err != nil {
		t.Fatalf("set topic: %+v", err)
	}
	if err := tx.SetMessage(msg); err != nil {
		t.Fatalf("set message: %+v", err)
	}
	return tx
}

func TestChunk_SmallMessageStaysSingle(t *testing.T) {
	tx := testTopicMessage(t, 100)

	if got := tx.ChunkCount(); got != 1 {
		t.Fatalf("expected 1 chunk for a 100 byte message, got %d", got)
	}

	if err := tx.SetTransactionID(NewTransactionID(AccountID{Num: 2})); err != nil {
		t.Fatalf("set transaction id: %+v", err)
	}
	if err := tx.SetNodeAccountIDs([]AccountID{{Num: 3}}); err != nil {
		t.Fatalf("set nodes: %+v", err)
	}
	if err := tx.Freeze(); err != nil {
		t.Fatalf("freeze: %+v", err)
	}

	if len(tx.chunks) != 0 {
		t.Fatalf("single-chunk message must not spawn chunk transactions, got %d", len(tx.chunks))
	}
	if !tx.IsFrozen() {
		t.Fatalf("freeze did not take")
	}
}

func TestChunk_LargeMessageSplitsInOrder(t *testing.T) {
	tx := testTopicMessage(t, 14*1024)

	if got := tx.ChunkCount(); got != 14 {
		t.Fatalf("expected 14 chunks for a 14 KiB message, got %d", got)
	}

	id := NewTransactionID(AccountID{Num: 2})
	if err := tx.SetTransactionID(id); err != nil {
		t.Fatalf("set transaction id: %+v", err)
	}
	if err := tx.SetNodeAccountIDs([]AccountID{{Num: 3}}); err != nil {
		t.Fatalf("set nodes: %+v", err)
	}
	if err := tx.Freeze(); err != nil {
		t.Fatalf("freeze: %+v", err)
	}

	if len(tx.chunks) != 14 {
		t.Fatalf("expected 14 chunk transactions, got %d", len(tx.chunks))
	}

	var assembled []byte

	for i, chunk := range tx.chunks {
		// Each chunk id follows the initial id, one nanosecond apart.
		wantStart := id.ValidStart.Add(time.Duration(i) * time.Nanosecond)
		if !chunk.transactionID.AccountID.Equal(id.AccountID) || !chunk.transactionID.ValidStart.Equal(wantStart) {
			t.Fatalf("chunk %d has wrong transaction id: %s", i+1, chunk.transactionID)
		}

		body, err := parseTransactionBody(chunk.bodies[AccountID{Num: 3}.mapKey()])
		if err != nil {
			t.Fatalf("parse chunk %d body: %+v", i+1, err)
		}
		if body.dataField != fieldBodySubmitMessage {
			t.Fatalf("chunk %d carries the wrong body field: %d", i+1, body.dataField)
		}

		topicID, payload, info, err := parseSubmitMessageForTest(body.data)
		if err != nil {
			t.Fatalf("parse chunk %d data: %+v", i+1, err)
		}
		if !topicID.Equal(AccountID{Num: 7777}) {
			t.Fatalf("chunk %d topic mismatch: %s", i+1, topicID)
		}
		if info == nil {
			t.Fatalf("chunk %d is missing chunk info", i+1)
		}
		if info.total != 14 || info.number != int32(i+1) {
			t.Fatalf("chunk %d has wrong position: %d of %d", i+1, info.number, info.total)
		}
		if !info.initialTransactionID.Equal(id) {
			t.Fatalf("chunk %d has wrong group id: %s", i+1, info.initialTransactionID)
		}

		assembled = append(assembled, payload...)
	}

	if len(assembled) != 14*1024 {
		t.Fatalf("chunks reassemble to %d bytes, want %d", len(assembled), 14*1024)
	}
	for i, b := range assembled {
		if b != byte(i) {
			t.Fatalf("reassembled message diverges at offset %d", i)
		}
	}
}

func TestChunk_TooManyChunksFailsFreeze(t *testing.T) {
	tx := testTopicMessage(t, 21*1024) // 21 chunks at the default size

	if err := tx.SetTransactionID(NewTransactionID(AccountID{Num: 2})); err != nil {
		t.Fatalf("set transaction id: %+v", err)
	}
	if err := tx.SetNodeAccountIDs([]AccountID{{Num: 3}}); err != nil {
		t.Fatalf("set nodes: %+v", err)
	}

	if err := tx.Freeze(); !errors.Is(err, ErrTooManyChunks) {
		t.Fatalf("expected chunk limit error, got %+v", err)
	}

	// Raising the limit makes the same message freezable.
	if err := tx.SetMaxChunks(25); err != nil {
		t.Fatalf("raise max chunks: %+v", err)
	}
	if err := tx.Freeze(); err != nil {
		t.Fatalf("freeze after raising limit: %+v", err)
	}
}

func TestChunk_SignCoversEveryChunk(t *testing.T) {
	tx := testTopicMessage(t, 3*1024)

	if err := tx.SetTransactionID(NewTransactionID(AccountID{Num: 2})); err != nil {
		t.Fatalf("set transaction id: %+v", err)
	}
	if err := tx.SetNodeAccountIDs([]AccountID{{Num: 3}}); err != nil {
		t.Fatalf("set nodes: %+v", err)
	}
	if err := tx.Freeze(); err != nil {
		t.Fatalf("freeze: %+v", err)
	}

	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %+v", err)
	}
	if err = tx.Sign(key); err != nil {
		t.Fatalf("sign: %+v", err)
	}

	for i, chunk := range tx.chunks {
		mapKey := AccountID{Num: 3}.mapKey()
		pairs := chunk.signatures[mapKey]
		if len(pairs) != 1 {
			t.Fatalf("chunk %d has %d signatures, want 1", i+1, len(pairs))
		}
		if !key.PublicKey().Verify(chunk.bodies[mapKey], pairs[0].Signature) {
			t.Fatalf("chunk %d signature does not verify", i+1)
		}
	}
}

func TestChunk_SingleSubmitRejectedWhenChunked(t *testing.T) {
	node := newMockNode(t)
	client, _ := newTestClient(t, node)
	testOperator(t, client)

	tx := testTopicMessage(t, 3*1024)
	if err := tx.FreezeWith(client); err != nil {
		t.Fatalf("freeze: %+v", err)
	}

	if _, err := tx.Submit(client); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected state error submitting a chunked message, got %+v", err)
	}
	if _, err := tx.Execute(client); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected state error executing a chunked message, got %+v", err)
	}
	if node.submitCalls != 0 {
		t.Fatalf("rejected submission must not reach the node, saw %d calls", node.submitCalls)
	}
}

func TestChunk_ExecuteAllSubmitsInOrder(t *testing.T) {
	node := newMockNode(t)
	client, _ := newTestClient(t, node)
	testOperator(t, client)

	tx := testTopicMessage(t, 3*1024)
	if err := tx.FreezeWith(client); err != nil {
		t.Fatalf("freeze: %+v", err)
	}

	receipts, err := tx.ExecuteAll(client)
	if err != nil {
		t.Fatalf("execute all: %+v", err)
	}

	if len(receipts) != 3 {
		t.Fatalf("expected 3 receipts, got %d", len(receipts))
	}
	for i, receipt := range receipts {
		if receipt.Status != StatusSuccess {
			t.Fatalf("chunk %d receipt status: %s", i+1, receipt.Status)
		}
	}
	if node.submitCalls != 3 {
		t.Fatalf("expected 3 submissions, node saw %d", node.submitCalls)
	}
}

func TestChunk_FailedChunkStopsSubmission(t *testing.T) {
	node := newMockNode(t)
	node.submitPrechecks = []Status{StatusOK, StatusInvalidChunkNumber}

	client, _ := newTestClient(t, node)
	testOperator(t, client)

	tx := testTopicMessage(t, 3*1024)
	if err := tx.FreezeWith(client); err != nil {
		t.Fatalf("freeze: %+v", err)
	}

	_, err := tx.SubmitAll(client)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected the failing chunk's status error, got %+v", err)
	}
	if statusErr.Status != StatusInvalidChunkNumber {
		t.Fatalf("wrong status: %s", statusErr.Status)
	}
	if node.submitCalls != 2 {
		t.Fatalf("submission must stop at the failing chunk, node saw %d calls", node.submitCalls)
	}
}

func TestChunk_SerializeRejectsChunkedGroup(t *testing.T) {
	tx := testTopicMessage(t, 3*1024)

	if err := tx.SetTransactionID(NewTransactionID(AccountID{Num: 2})); err != nil {
		t.Fatalf("set transaction id: %+v", err)
	}
	if err := tx.SetNodeAccountIDs([]AccountID{{Num: 3}}); err != nil {
		t.Fatalf("set nodes: %+v", err)
	}
	if err := tx.Freeze(); err != nil {
		t.Fatalf("freeze: %+v", err)
	}

	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %+v", err)
	}
	if err = tx.Sign(key); err != nil {
		t.Fatalf("sign: %+v", err)
	}

	// A chunk group has no single envelope; serializing the group must fail
	// loudly rather than produce an empty-body envelope.
	if _, err = tx.ToBytes(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected state error serializing a chunked message, got %+v", err)
	}

	// Each chunk is an ordinary transaction and round-trips on its own.
	chunks := tx.Chunks()
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	mapKey := AccountID{Num: 3}.mapKey()
	for i, chunk := range chunks {
		serialized, err2 := chunk.ToBytes()
		if err2 != nil {
			t.Fatalf("chunk %d to bytes: %+v", i+1, err2)
		}

		restored, err2 := TransactionFromBytes(serialized)
		if err2 != nil {
			t.Fatalf("chunk %d from bytes: %+v", i+1, err2)
		}
		if !restored.IsFrozen() {
			t.Fatalf("chunk %d lost frozen state", i+1)
		}
		if !restored.TransactionID().Equal(chunk.TransactionID()) {
			t.Fatalf("chunk %d transaction id mismatch: %s", i+1, restored.TransactionID())
		}
		if !bytes.Equal(restored.bodies[mapKey], chunk.bodies[mapKey]) {
			t.Fatalf("chunk %d body bytes changed across round trip", i+1)
		}
		if len(restored.signatures[mapKey]) != 1 ||
			!key.PublicKey().Verify(restored.bodies[mapKey], restored.signatures[mapKey][0].Signature) {
			t.Fatalf("chunk %d signature lost across round trip", i+1)
		}
	}
}

func TestChunk_SingleChunkSerializeRoundTrip(t *testing.T) {
	tx := testTopicMessage(t, 100)

	if err := tx.SetTransactionID(NewTransactionID(AccountID{Num: 2})); err != nil {
		t.Fatalf("set transaction id: %+v", err)
	}
	if err := tx.SetNodeAccountIDs([]AccountID{{Num: 3}}); err != nil {
		t.Fatalf("set nodes: %+v", err)
	}
	if err := tx.Freeze(); err != nil {
		t.Fatalf("freeze: %+v", err)
	}

	serialized, err := tx.ToBytes()
	if err != nil {
		t.Fatalf("to bytes: %+v", err)
	}

	restored, err := TransactionFromBytes(serialized)
	if err != nil {
		t.Fatalf("from bytes: %+v", err)
	}

	mapKey := AccountID{Num: 3}.mapKey()
	if !restored.IsFrozen() || !bytes.Equal(restored.bodies[mapKey], tx.bodies[mapKey]) {
		t.Fatalf("single-chunk message did not round trip")
	}
}

// parseSubmitMessageForTest decodes the consensus submit-message body back
// into its parts.
func parseSubmitMessageForTest(data []byte) (topicID AccountID, payload []byte, info *chunkInfo, err error) {
	err = iterateFields(data, func(f wireField) (err2 error) {
		switch f.num {
		case fieldSubmitTopicID:
			topicID, err2 = parseAccountID(f.data)
		case fieldSubmitMessage:
			payload = f.data
		case fieldSubmitChunkInfo:
			decoded := &chunkInfo{}
			err2 = iterateFields(f.data, func(cf wireField) (err3 error) {
				switch cf.num {
				case fieldChunkInitialTxID:
					decoded.initialTransactionID, err3 = parseTransactionID(cf.data)
				case fieldChunkTotal:
					decoded.total = int32(cf.val)
				case fieldChunkNumber:
					decoded.number = int32(cf.val)
				}
				return
			})
			info = decoded
		}
		return
	})
	return
}

func TestChunk_DataRoundTrip(t *testing.T) {
	id := NewTransactionID(AccountID{Num: 2})
	msg := []byte("consensus says hello")

	data := encodeSubmitMessage(AccountID{Num: 42}, msg, &chunkInfo{
		initialTransactionID: id,
		total:                5,
		number:               2,
	})

	topicID, payload, info, err := parseSubmitMessageForTest(data)
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}
	if !topicID.Equal(AccountID{Num: 42}) {
		t.Fatalf("topic mismatch: %s", topicID)
	}
	if !bytes.Equal(payload, msg) {
		t.Fatalf("payload mismatch: %q", payload)
	}
	if info == nil || info.total != 5 || info.number != 2 || !info.initialTransactionID.Equal(id) {
		t.Fatalf("chunk info mismatch: %+v", info)
	}
}
