package hiero

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

type accountAmount struct {
	accountID AccountID
	amount    int64
}

// TransferTransaction moves tinybars between accounts. Amounts must sum to
// zero across the transfer list.
type TransferTransaction struct {
	Transaction
	transfers []accountAmount
}

func NewTransferTransaction() (tx *TransferTransaction) {
	tx = &TransferTransaction{Transaction: newTransaction()}
	tx.onFreeze = tx.encodeData
	return
}

// AddHbarTransfer appends a debit (negative) or credit (positive) in
// tinybars for the given account.
func (tx *TransferTransaction) AddHbarTransfer(accountID AccountID, amount int64) error {
	if tx.frozen {
		return errors.Wrap(ErrInvalidState, "transfers cannot be changed once frozen")
	}
	tx.transfers = append(tx.transfers, accountAmount{accountID: accountID, amount: amount})
	return nil
}

func (tx *TransferTransaction) encodeData() (field protowire.Number, data []byte, err error) {
	if len(tx.transfers) == 0 {
		err = errors.Wrap(ErrInvalidState, "transfer transaction has no transfers")
		return
	}

	var sum int64
	var list []byte
	for _, transfer := range tx.transfers {
		sum += transfer.amount

		entry := appendMessage(nil, fieldAmountAccountID, appendAccountID(nil, transfer.accountID))
		entry = protowire.AppendTag(entry, fieldAmountAmount, protowire.VarintType)
		entry = protowire.AppendVarint(entry, protowire.EncodeZigZag(transfer.amount))

		list = appendMessage(list, fieldTransferList, entry)
	}

	if sum != 0 {
		err = errors.Wrapf(ErrInvalidFormat, "transfer amounts must sum to zero, got %d", sum)
		return
	}

	field = fieldBodyTransfer
	data = appendMessage(nil, fieldTransferList, list)
	return
}
