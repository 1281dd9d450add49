package hiero

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var transactionIDRegex = regexp.MustCompile(`^(.+)@(\d+)\.(\d+)$`)

// TransactionID uniquely identifies a transaction as the pair of the paying
// account and the transaction's valid-start timestamp. It is generated once
// per transaction and immutable afterwards.
type TransactionID struct {
	AccountID  AccountID
	ValidStart time.Time
	Nonce      int32
	Scheduled  bool
}

// NewTransactionID generates a transaction id for the given payer. The valid
// start is set slightly in the past so the transaction window is already open
// when it reaches a node, and jittered so two ids generated in the same
// nanosecond for the same account remain distinct.
func NewTransactionID(accountID AccountID) TransactionID {
	jitter := time.Duration(8*time.Second) + time.Duration(rand.Int63n(int64(5*time.Second)))
	return TransactionID{
		AccountID:  accountID,
		ValidStart: time.Now().Add(-jitter),
	}
}

// TransactionIDFromString parses the `shard.realm.num@seconds.nanos` form.
func TransactionIDFromString(s string) (id TransactionID, err error) {
	scheduled := strings.HasSuffix(s, "?scheduled")
	s = strings.TrimSuffix(s, "?scheduled")

	nonce := int32(0)
	if slash := strings.Index(s, "/"); slash != -1 {
		parsed, err2 := strconv.ParseInt(s[slash+1:], 10, 32)
		if err2 != nil {
			err = errors.Wrapf(ErrInvalidFormat, "invalid transaction id nonce in '%s'", s)
			return
		}
		nonce = int32(parsed)
		s = s[:slash]
	}

	match := transactionIDRegex.FindStringSubmatch(s)
	if match == nil {
		err = errors.Wrapf(ErrInvalidFormat, "invalid transaction id string '%s', expected 'shard.realm.num@seconds.nanos'", s)
		return
	}

	accountID, err := AccountIDFromString(match[1])
	if err != nil {
		return
	}

	seconds, _ := strconv.ParseInt(match[2], 10, 64)
	nanos, _ := strconv.ParseInt(match[3], 10, 64)

	id = TransactionID{
		AccountID:  accountID,
		ValidStart: time.Unix(seconds, nanos),
		Nonce:      nonce,
		Scheduled:  scheduled,
	}
	return
}

// TransactionIDFromBytes deserializes a transaction id from its protobuf form.
func TransactionIDFromBytes(data []byte) (id TransactionID, err error) {
	return parseTransactionID(data)
}

// ToBytes serializes the transaction id to its protobuf form.
func (id TransactionID) ToBytes() []byte {
	return appendTransactionID(nil, id)
}

func (id TransactionID) String() string {
	out := fmt.Sprintf("%s@%d.%d", id.AccountID, id.ValidStart.Unix(), id.ValidStart.Nanosecond())
	if id.Nonce != 0 {
		out += fmt.Sprintf("/%d", id.Nonce)
	}
	if id.Scheduled {
		out += "?scheduled"
	}
	return out
}

func (id TransactionID) Equal(other TransactionID) bool {
	return id.AccountID.Equal(other.AccountID) &&
		id.ValidStart.Equal(other.ValidStart) &&
		id.Nonce == other.Nonce &&
		id.Scheduled == other.Scheduled
}

func (id TransactionID) isZero() bool {
	return id.ValidStart.IsZero()
}
