package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	hiero "github.com/alexdcox/hiero-go"
)

// Compliance-test server: a thin JSON-RPC 2.0 dispatcher over the SDK, so a
// language-independent test kit can drive the transaction lifecycle.

var log = hiero.Log()

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JsonRpc string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type tckServer struct {
	app    *fiber.App
	client *hiero.Client
}

func newTckServer() *tckServer {
	server := &tckServer{}

	server.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	server.app.Use(recover.New())
	server.app.Post("/", server.handle)

	return server
}

func (s *tckServer) handle(c *fiber.Ctx) error {
	body := c.Body()

	if !gjson.ValidBytes(body) {
		return c.JSON(rpcResponse{JsonRpc: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error"}})
	}

	parsed := gjson.ParseBytes(body)
	id := parsed.Get("id").Value()
	method := parsed.Get("method").String()
	params := parsed.Get("params")

	if parsed.Get("jsonrpc").String() != "2.0" || method == "" {
		return c.JSON(rpcResponse{JsonRpc: "2.0", ID: id, Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}})
	}

	result, err := s.dispatch(method, params)
	if err != nil {
		code := codeInternalError
		if errors.Is(err, hiero.ErrInvalidFormat) {
			code = codeInvalidParams
		}
		if errors.Is(err, errMethodNotFound) {
			code = codeMethodNotFound
		}
		return c.JSON(rpcResponse{JsonRpc: "2.0", ID: id, Error: &rpcError{Code: code, Message: err.Error()}})
	}

	return c.JSON(rpcResponse{JsonRpc: "2.0", ID: id, Result: result})
}

var errMethodNotFound = fmt.Errorf("method not found")

func (s *tckServer) dispatch(method string, params gjson.Result) (result any, err error) {
	switch method {
	case "setup":
		return s.setup(params)
	case "reset":
		return s.reset()
	case "generateKey":
		return s.generateKey()
	case "executeTransfer":
		return s.executeTransfer(params)
	case "submitTopicMessage":
		return s.submitTopicMessage(params)
	default:
		err = errors.Wrapf(errMethodNotFound, "%s", method)
	}
	return
}

func (s *tckServer) setup(params gjson.Result) (result any, err error) {
	operatorID, err := hiero.AccountIDFromString(params.Get("operatorAccountId").String())
	if err != nil {
		return
	}

	operatorKey, err := hiero.PrivateKeyFromString(params.Get("operatorPrivateKey").String())
	if err != nil {
		return
	}

	options := &hiero.ClientOptions{
		Operator: &hiero.Operator{AccountID: operatorID, PrivateKey: operatorKey},
	}

	if network := params.Get("network").String(); network != "" {
		options.Network = hiero.Network(network)
	}

	client, err := hiero.NewClient(options)
	if err != nil {
		return
	}

	if nodeIP := params.Get("nodeIp").String(); nodeIP != "" {
		nodeID, err2 := hiero.AccountIDFromString(params.Get("nodeAccountId").String())
		if err2 != nil {
			err = err2
			return
		}
		err = client.SetNetworkNodes([]hiero.NodeAddress{{AccountID: nodeID, Address: nodeIP}})
		if err != nil {
			return
		}
	}

	if s.client != nil {
		s.client.Close()
	}
	s.client = client

	result = map[string]string{"message": "Successfully setup custom client.", "status": "SUCCESS"}
	return
}

func (s *tckServer) reset() (result any, err error) {
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	result = map[string]string{"status": "SUCCESS"}
	return
}

func (s *tckServer) generateKey() (result any, err error) {
	key, err := hiero.GeneratePrivateKey()
	if err != nil {
		return
	}

	result = map[string]string{
		"privateKey": key.StringDer(),
		"publicKey":  key.PublicKey().StringDer(),
	}
	return
}

func (s *tckServer) executeTransfer(params gjson.Result) (result any, err error) {
	if s.client == nil {
		err = errors.New("client not set up")
		return
	}

	tx := hiero.NewTransferTransaction()

	var addErr error
	params.Get("transfers").ForEach(func(_, transfer gjson.Result) bool {
		accountID, err2 := hiero.AccountIDFromString(transfer.Get("accountId").String())
		if err2 != nil {
			addErr = err2
			return false
		}
		addErr = tx.AddHbarTransfer(accountID, transfer.Get("amount").Int())
		return addErr == nil
	})
	if addErr != nil {
		err = addErr
		return
	}

	if err = tx.FreezeWith(s.client); err != nil {
		return
	}

	receipt, err := tx.Execute(s.client)
	if err != nil {
		return
	}

	result = map[string]string{"status": receipt.Status.String()}
	return
}

func (s *tckServer) submitTopicMessage(params gjson.Result) (result any, err error) {
	if s.client == nil {
		err = errors.New("client not set up")
		return
	}

	topicID, err := hiero.AccountIDFromString(params.Get("topicId").String())
	if err != nil {
		return
	}

	tx := hiero.NewTopicMessageSubmitTransaction()
	if err = tx.SetTopicID(topicID); err != nil {
		return
	}
	if err = tx.SetMessage([]byte(params.Get("message").String())); err != nil {
		return
	}
	if chunkSize := params.Get("chunkSize").Int(); chunkSize > 0 {
		if err = tx.SetChunkSize(int(chunkSize)); err != nil {
			return
		}
	}

	if err = tx.FreezeWith(s.client); err != nil {
		return
	}

	receipts, err := tx.ExecuteAll(s.client)
	if err != nil {
		return
	}

	sequenceNumbers := make([]uint64, 0, len(receipts))
	for _, receipt := range receipts {
		sequenceNumbers = append(sequenceNumbers, receipt.TopicSequenceNumber)
	}

	result = map[string]any{
		"status":          receipts[len(receipts)-1].Status.String(),
		"sequenceNumbers": sequenceNumbers,
	}
	return
}

func main() {
	port := 8544
	if env := os.Getenv("TCK_PORT"); env != "" {
		parsed, err := strconv.Atoi(env)
		if err != nil || parsed < 1 || parsed > 65535 {
			log.Fatal().Msgf("TCK_PORT must be a port number, got '%s'", env)
		}
		port = parsed
	}

	server := newTckServer()

	log.Info().Msgf("tck server listening on :%d", port)
	if err := server.app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatal().Msgf("tck server failed: %+v", errors.WithStack(err))
	}
}
