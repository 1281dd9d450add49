package hiero

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
)

func newMirrorClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&ClientOptions{
		Network:       NetworkLocalNet,
		MirrorBaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("new client: %+v", err)
	}
	t.Cleanup(client.Close)

	return client
}

func TestMirror_PopulateAccountNum(t *testing.T) {
	const address = "0x1234567890abcdef1234567890abcdef12345678"

	client := newMirrorClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/1234567890abcdef1234567890abcdef12345678" {
			t.Errorf("unexpected mirror path %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"account": "0.0.1234", "evm_address": "%s"}`, address)
	}))

	id, err := AccountIDFromString(address)
	if err != nil {
		t.Fatalf("parse: %+v", err)
	}

	populated, err := id.PopulateAccountNum(client)
	if err != nil {
		t.Fatalf("populate: %+v", err)
	}

	if populated.Num != 1234 {
		t.Fatalf("populated num %d, want 1234", populated.Num)
	}
	if populated.EvmAddress == nil || populated.EvmAddress.String() != address {
		t.Fatalf("evm address lost during population: %v", populated.EvmAddress)
	}

	// The original id is untouched.
	if id.Num != 0 {
		t.Fatalf("population must not mutate the receiver")
	}
}

func TestMirror_PopulateEvmAddress(t *testing.T) {
	const address = "0x1234567890abcdef1234567890abcdef12345678"

	client := newMirrorClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts/1234" {
			t.Errorf("unexpected mirror path %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"account": "0.0.1234", "evm_address": "%s"}`, address)
	}))

	populated, err := AccountID{Num: 1234}.PopulateEvmAddress(client)
	if err != nil {
		t.Fatalf("populate: %+v", err)
	}

	if populated.Num != 1234 {
		t.Fatalf("num lost during population: %d", populated.Num)
	}
	if populated.EvmAddress == nil || populated.EvmAddress.String() != address {
		t.Fatalf("wrong evm address: %v", populated.EvmAddress)
	}
}

func TestMirror_PopulateRequiresAlias(t *testing.T) {
	client := newMirrorClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("mirror must not be contacted for invalid input")
	}))

	if _, err := (AccountID{Num: 1234}).PopulateAccountNum(client); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected format error without an evm address, got %+v", err)
	}
	if _, err := (AccountID{}).PopulateEvmAddress(client); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected format error without a num, got %+v", err)
	}
}

func TestMirror_MissingFieldFailsLookup(t *testing.T) {
	client := newMirrorClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"account": "0.0.1234"}`)
	}))

	_, err := AccountID{Num: 1234}.PopulateEvmAddress(client)
	if !errors.Is(err, ErrMirrorLookup) {
		t.Fatalf("expected mirror lookup error for a missing field, got %+v", err)
	}
}

func TestMirror_ErrorResponseFailsLookup(t *testing.T) {
	client := newMirrorClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"_status": {"messages": [{"message": "Not found"}]}}`, http.StatusNotFound)
	}))

	_, err := AccountID{Num: 1234}.PopulateEvmAddress(client)
	if !errors.Is(err, ErrMirrorLookup) {
		t.Fatalf("expected mirror lookup error for a 404, got %+v", err)
	}
}

func TestMirror_UnreachableFailsLookup(t *testing.T) {
	client, err := NewClient(&ClientOptions{
		Network:       NetworkLocalNet,
		MirrorBaseURL: "http://127.0.0.1:1", // nothing listens here
	})
	if err != nil {
		t.Fatalf("new client: %+v", err)
	}
	t.Cleanup(client.Close)

	_, err = AccountID{Num: 1234}.PopulateEvmAddress(client)
	if !errors.Is(err, ErrMirrorLookup) {
		t.Fatalf("expected mirror lookup error when unreachable, got %+v", err)
	}
}
