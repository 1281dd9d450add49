package hiero

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protowire"
)

// In-process node for execution tests: a gRPC server speaking the raw byte
// codec over bufconn, with scripted precheck and receipt behavior per
// method call.

func encodeReceiptForTest(status Status, accountID, topicID *AccountID, sequence uint64, runningHash []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldReceiptStatus, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(status))
	if accountID != nil {
		b = appendMessage(b, fieldReceiptAccountID, appendAccountID(nil, *accountID))
	}
	if topicID != nil {
		b = appendMessage(b, fieldReceiptTopicID, appendAccountID(nil, *topicID))
	}
	if sequence != 0 {
		b = protowire.AppendTag(b, fieldReceiptTopicSequence, protowire.VarintType)
		b = protowire.AppendVarint(b, sequence)
	}
	if len(runningHash) > 0 {
		b = appendMessage(b, fieldReceiptTopicHash, runningHash)
	}
	return b
}

func encodePrecheckForTest(status Status) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldPrecheckCode, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(status))
	return b
}

func encodeReceiptResponseForTest(precheck Status, receipt []byte) []byte {
	header := protowire.AppendTag(nil, fieldResponseHeaderPrecheck, protowire.VarintType)
	header = protowire.AppendVarint(header, uint64(precheck))

	inner := appendMessage(nil, fieldResponseReceiptHeader, header)
	if receipt != nil {
		inner = appendMessage(inner, fieldResponseReceipt, receipt)
	}
	return appendMessage(nil, fieldResponseGetReceipt, inner)
}

func encodeRecordResponseForTest(precheck Status, record []byte) []byte {
	header := protowire.AppendTag(nil, fieldResponseHeaderPrecheck, protowire.VarintType)
	header = protowire.AppendVarint(header, uint64(precheck))

	inner := appendMessage(nil, fieldResponseRecordHeader, header)
	if record != nil {
		inner = appendMessage(inner, fieldResponseRecord, record)
	}
	return appendMessage(nil, fieldResponseGetRecord, inner)
}

func encodeRecordForTest(receipt []byte, id TransactionID, hash []byte, memo string) []byte {
	b := appendMessage(nil, fieldRecordReceipt, receipt)
	if len(hash) > 0 {
		b = appendMessage(b, fieldRecordHash, hash)
	}
	b = appendMessage(b, fieldRecordTransactionID, appendTransactionID(nil, id))
	if memo != "" {
		b = protowire.AppendTag(b, fieldRecordMemo, protowire.BytesType)
		b = protowire.AppendString(b, memo)
	}
	return b
}

// mockNode scripts responses per method. Each invocation pops the next
// scripted response for its method; the last response repeats.
type mockNode struct {
	listener *bufconn.Listener
	server   *grpc.Server

	transferPrechecks []Status
	submitPrechecks   []Status
	receiptResponses  [][]byte
	recordResponses   [][]byte

	transferCalls int
	submitCalls   int
	receiptCalls  int
	recordCalls   int

	lastEnvelope []byte
}

func newMockNode(t *testing.T) *mockNode {
	t.Helper()

	node := &mockNode{
		listener: bufconn.Listen(1 << 20),
		server:   grpc.NewServer(grpc.ForceServerCodec(rawCodec{})),
	}

	node.server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "proto.CryptoService",
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "cryptoTransfer", Handler: node.handleTransfer},
			{MethodName: "getTransactionReceipts", Handler: node.handleReceipt},
			{MethodName: "getTxRecordByTxID", Handler: node.handleRecord},
		},
	}, node)

	node.server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "proto.ConsensusService",
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "submitMessage", Handler: node.handleSubmit},
		},
	}, node)

	go func() {
		_ = node.server.Serve(node.listener)
	}()
	t.Cleanup(node.server.Stop)

	return node
}

func scripted(responses []Status, call int) Status {
	if len(responses) == 0 {
		return StatusOK
	}
	if call >= len(responses) {
		return responses[len(responses)-1]
	}
	return responses[call]
}

func scriptedBytes(responses [][]byte, call int) []byte {
	if len(responses) == 0 {
		return nil
	}
	if call >= len(responses) {
		return responses[len(responses)-1]
	}
	return responses[call]
}

func (m *mockNode) handleTransfer(_ any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var request []byte
	if err := dec(&request); err != nil {
		return nil, err
	}
	m.lastEnvelope = request

	status := scripted(m.transferPrechecks, m.transferCalls)
	m.transferCalls++
	return encodePrecheckForTest(status), nil
}

func (m *mockNode) handleSubmit(_ any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var request []byte
	if err := dec(&request); err != nil {
		return nil, err
	}
	m.lastEnvelope = request

	status := scripted(m.submitPrechecks, m.submitCalls)
	m.submitCalls++
	return encodePrecheckForTest(status), nil
}

func (m *mockNode) handleReceipt(_ any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var request []byte
	if err := dec(&request); err != nil {
		return nil, err
	}

	response := scriptedBytes(m.receiptResponses, m.receiptCalls)
	m.receiptCalls++
	if response == nil {
		response = encodeReceiptResponseForTest(StatusOK, encodeReceiptForTest(StatusSuccess, nil, nil, 0, nil))
	}
	return response, nil
}

func (m *mockNode) handleRecord(_ any, _ context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var request []byte
	if err := dec(&request); err != nil {
		return nil, err
	}

	response := scriptedBytes(m.recordResponses, m.recordCalls)
	m.recordCalls++
	if response == nil {
		response = encodeRecordResponseForTest(StatusOK, encodeRecordForTest(
			encodeReceiptForTest(StatusSuccess, nil, nil, 0, nil), TransactionID{}, nil, ""))
	}
	return response, nil
}

// newTestClient wires a client whose nodes all dial the given in-process
// servers instead of the network.
func newTestClient(t *testing.T, mocks ...*mockNode) (client *Client, nodeIDs []AccountID) {
	t.Helper()

	client, err := NewClient(&ClientOptions{
		Network:    NetworkLocalNet,
		MaxBackoff: 1, // keep retry tests fast
		MinBackoff: 1,
	})
	if err != nil {
		t.Fatalf("new client: %+v", err)
	}
	t.Cleanup(client.Close)

	entries := make([]NodeAddress, 0, len(mocks))
	for i := range mocks {
		entries = append(entries, NodeAddress{
			AccountID: AccountID{Num: uint64(3 + i)},
			Address:   "localhost:50211",
		})
	}
	if err = client.SetNetworkNodes(entries); err != nil {
		t.Fatalf("set network nodes: %+v", err)
	}

	for i, mock := range mocks {
		listener := mock.listener
		node, err2 := client.node(entries[i].AccountID)
		if err2 != nil {
			t.Fatalf("node lookup: %+v", err2)
		}
		node.dialOptions = []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return listener.DialContext(ctx)
			}),
		}
		nodeIDs = append(nodeIDs, entries[i].AccountID)
	}
	return
}
