package hiero

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestTransactionID_FromString(t *testing.T) {
	testCases := []struct {
		in        string
		account   AccountID
		seconds   int64
		nanos     int64
		nonce     int32
		scheduled bool
	}{
		{"0.0.123@1697012345.678", AccountID{Num: 123}, 1697012345, 678, 0, false},
		{"1.2.3@10.0", AccountID{Shard: 1, Realm: 2, Num: 3}, 10, 0, 0, false},
		{"0.0.123@1697012345.678/4", AccountID{Num: 123}, 1697012345, 678, 4, false},
		{"0.0.123@1697012345.678?scheduled", AccountID{Num: 123}, 1697012345, 678, 0, true},
		{"0.0.123@1697012345.678/4?scheduled", AccountID{Num: 123}, 1697012345, 678, 4, true},
	}

	for _, tc := range testCases {
		id, err := TransactionIDFromString(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %+v", tc.in, err)
		}
		if !id.AccountID.Equal(tc.account) {
			t.Fatalf("parse %q: account %s", tc.in, id.AccountID)
		}
		if !id.ValidStart.Equal(time.Unix(tc.seconds, tc.nanos)) {
			t.Fatalf("parse %q: valid start %s", tc.in, id.ValidStart)
		}
		if id.Nonce != tc.nonce || id.Scheduled != tc.scheduled {
			t.Fatalf("parse %q: nonce %d scheduled %v", tc.in, id.Nonce, id.Scheduled)
		}

		// String and re-parse give back the same id.
		reparsed, err := TransactionIDFromString(id.String())
		if err != nil {
			t.Fatalf("reparse %q: %+v", id.String(), err)
		}
		if !reparsed.Equal(id) {
			t.Fatalf("string round trip: %q became %q", tc.in, reparsed.String())
		}
	}
}

func TestTransactionID_FromStringRejectsMalformed(t *testing.T) {
	malformed := []string{
		"",
		"0.0.123",
		"@1.2",
		"0.0.123@",
		"0.0.123@12",
		"not-an-account@1.2",
		"0.0.123@1.2/x",
	}

	for _, in := range malformed {
		if _, err := TransactionIDFromString(in); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("parse %q: expected format error, got %+v", in, err)
		}
	}
}

func TestTransactionID_ValidStartWindow(t *testing.T) {
	before := time.Now()
	id := NewTransactionID(AccountID{Num: 2})

	// The valid start sits 8 to 13 seconds in the past so the transaction's
	// window is already open on arrival.
	age := before.Sub(id.ValidStart)
	if age < 8*time.Second || age > 13*time.Second+time.Second {
		t.Fatalf("valid start age out of window: %s", age)
	}
}
