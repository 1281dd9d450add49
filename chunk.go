package hiero

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	defaultChunkSize = 1024
	defaultMaxChunks = 20
)

// chunkInfo links a chunk transaction back to its group: the transaction id
// of the first chunk plus this chunk's position.
type chunkInfo struct {
	initialTransactionID TransactionID
	total                int32
	number               int32
}

// TopicMessageSubmitTransaction submits a message to a consensus topic.
// Messages above the chunk size are split into an ordered sequence of chunk
// transactions, each independently frozen, signed and executed, sharing the
// initial transaction id as their group identifier. Chunk transaction ids
// follow the initial id with the valid-start advanced one nanosecond per
// chunk.
type TopicMessageSubmitTransaction struct {
	Transaction
	topicID   AccountID
	msg       []byte
	chunkSize int
	maxChunks int
	chunks    []*Transaction
}

func NewTopicMessageSubmitTransaction() (tx *TopicMessageSubmitTransaction) {
	tx = &TopicMessageSubmitTransaction{
		Transaction: newTransaction(),
		chunkSize:   defaultChunkSize,
		maxChunks:   defaultMaxChunks,
	}
	tx.onFreeze = tx.encodeData
	return
}

func (tx *TopicMessageSubmitTransaction) SetTopicID(id AccountID) error {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "topic id cannot be changed once frozen")
	}
	tx.topicID = id
	return nil
}

func (tx *TopicMessageSubmitTransaction) SetMessage(msg []byte) error {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "message cannot be changed once frozen")
	}
	tx.msg = append([]byte{}, msg...)
	return nil
}

func (tx *TopicMessageSubmitTransaction) SetChunkSize(size int) error {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "chunk size cannot be changed once frozen")
	}
	if size <= 0 {
		return errors.Wrap(ErrInvalidFormat, "chunk size must be positive")
	}
	tx.chunkSize = size
	return nil
}

func (tx *TopicMessageSubmitTransaction) SetMaxChunks(max int) error {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "max chunks cannot be changed once frozen")
	}
	tx.maxChunks = max
	return nil
}

func (tx *TopicMessageSubmitTransaction) ChunkCount() int {
	if len(tx.msg) == 0 {
		return 1
	}
	return (len(tx.msg) + tx.chunkSize - 1) / tx.chunkSize
}

// Freeze finalizes either the single body or, for oversized messages, the
// ordered chunk transactions.
func (tx *TopicMessageSubmitTransaction) Freeze() error {
	return tx.FreezeWith(nil)
}

func (tx *TopicMessageSubmitTransaction) FreezeWith(client *Client) (err error) {
	total := tx.ChunkCount()
	if total > tx.maxChunks {
		return errors.Wrapf(
			ErrTooManyChunks,
			"message of %d bytes requires %d chunks with a chunk size of %d, exceeding the maximum of %d",
			len(tx.msg), total, tx.chunkSize, tx.maxChunks,
		)
	}

	if total == 1 {
		return tx.Transaction.FreezeWith(client)
	}

	if err = tx.resolveContext(client); err != nil {
		return
	}

	for i := 0; i < total; i++ {
		first := i * tx.chunkSize
		last := min(first+tx.chunkSize, len(tx.msg))

		chunk := newTransaction()
		chunk.transactionID = TransactionID{
			AccountID:  tx.transactionID.AccountID,
			ValidStart: tx.transactionID.ValidStart.Add(time.Duration(i) * time.Nanosecond),
		}
		chunk.nodeAccountIDs = tx.nodeAccountIDs
		chunk.memo = tx.memo
		chunk.maxFee = tx.maxFee
		chunk.validDuration = tx.validDuration
		chunk.dataField = fieldBodySubmitMessage
		chunk.dataBytes = encodeSubmitMessage(tx.topicID, tx.msg[first:last], &chunkInfo{
			initialTransactionID: tx.transactionID,
			total:                int32(total),
			number:               int32(i + 1),
		})
		chunk.freezeBodies()

		tx.chunks = append(tx.chunks, &chunk)
	}

	tx.frozen = true
	return
}

// Sign signs every chunk (or the single body) with the given key.
func (tx *TopicMessageSubmitTransaction) Sign(key PrivateKey) error {
	return tx.SignWith(key.PublicKey(), key.Sign)
}

func (tx *TopicMessageSubmitTransaction) SignWith(publicKey PublicKey, signer func(message []byte) []byte) (err error) {
	if len(tx.chunks) == 0 {
		return tx.Transaction.SignWith(publicKey, signer)
	}

	for _, chunk := range tx.chunks {
		if err = chunk.SignWith(publicKey, signer); err != nil {
			return
		}
	}
	return
}

// Chunks returns the frozen chunk transactions in submission order, or nil
// when the message fits a single transaction.
func (tx *TopicMessageSubmitTransaction) Chunks() []*Transaction {
	return tx.chunks
}

// ToBytes serializes the single-chunk form. A chunked message is a group of
// transactions with no single canonical envelope; serialize each chunk from
// Chunks instead.
func (tx *TopicMessageSubmitTransaction) ToBytes() (out []byte, err error) {
	if len(tx.chunks) > 0 {
		err = errors.Wrapf(ErrInvalidState, "message requires %d chunks, serialize each chunk from Chunks instead", len(tx.chunks))
		return
	}
	return tx.Transaction.ToBytes()
}

// Submit sends a single-chunk message. Oversized messages must go through
// SubmitAll or ExecuteAll.
func (tx *TopicMessageSubmitTransaction) Submit(client *Client) (response *TransactionResponse, err error) {
	if len(tx.chunks) > 0 {
		err = errors.Wrapf(ErrInvalidState, "message requires %d chunks, use SubmitAll or ExecuteAll", len(tx.chunks))
		return
	}
	return tx.Transaction.Submit(client)
}

func (tx *TopicMessageSubmitTransaction) Execute(client *Client) (receipt *TransactionReceipt, err error) {
	if len(tx.chunks) > 0 {
		err = errors.Wrapf(ErrInvalidState, "message requires %d chunks, use SubmitAll or ExecuteAll", len(tx.chunks))
		return
	}
	return tx.Transaction.Execute(client)
}

// SubmitAll submits every chunk in order, returning one response per chunk
// in submission order.
func (tx *TopicMessageSubmitTransaction) SubmitAll(client *Client) (responses []*TransactionResponse, err error) {
	if !tx.frozen {
		err = errors.Wrap(ErrInvalidState, "transaction must be frozen before execution")
		return
	}

	if len(tx.chunks) == 0 {
		response, err2 := tx.Transaction.Submit(client)
		if err2 != nil {
			err = err2
			return
		}
		responses = []*TransactionResponse{response}
		return
	}

	p := message.NewPrinter(language.English)
	client.log.Info().Msg(p.Sprintf("submitting message of %d bytes as %d chunks", len(tx.msg), len(tx.chunks)))

	for _, chunk := range tx.chunks {
		response, err2 := chunk.Submit(client)
		if err2 != nil {
			err = errors.Wrapf(err2, "chunk %d of %d failed", len(responses)+1, len(tx.chunks))
			return
		}
		responses = append(responses, response)
	}
	return
}

// ExecuteAll submits every chunk in order and waits for each terminal
// receipt, returning receipts in submission order.
func (tx *TopicMessageSubmitTransaction) ExecuteAll(client *Client) (receipts []*TransactionReceipt, err error) {
	responses, err := tx.SubmitAll(client)
	if err != nil {
		return
	}

	for i, response := range responses {
		receipt, err2 := response.GetReceipt(client)
		if err2 != nil {
			err = errors.Wrapf(err2, "chunk %d of %d has no successful receipt", i+1, len(responses))
			return
		}
		receipts = append(receipts, receipt)
	}
	return
}

func (tx *TopicMessageSubmitTransaction) encodeData() (field protowire.Number, data []byte, err error) {
	field = fieldBodySubmitMessage
	data = encodeSubmitMessage(tx.topicID, tx.msg, nil)
	return
}

func encodeSubmitMessage(topicID AccountID, msg []byte, info *chunkInfo) (data []byte) {
	data = appendMessage(data, fieldSubmitTopicID, appendAccountID(nil, topicID))
	data = protowire.AppendTag(data, fieldSubmitMessage, protowire.BytesType)
	data = protowire.AppendBytes(data, msg)

	if info != nil {
		chunk := appendMessage(nil, fieldChunkInitialTxID, appendTransactionID(nil, info.initialTransactionID))
		chunk = protowire.AppendTag(chunk, fieldChunkTotal, protowire.VarintType)
		chunk = protowire.AppendVarint(chunk, uint64(info.total))
		chunk = protowire.AppendTag(chunk, fieldChunkNumber, protowire.VarintType)
		chunk = protowire.AppendVarint(chunk, uint64(info.number))
		data = appendMessage(data, fieldSubmitChunkInfo, chunk)
	}
	return
}
