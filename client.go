package hiero

import (
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Operator struct {
	AccountID  AccountID
	PrivateKey PrivateKey
}

type ClientOptions struct {
	Network        Network
	Operator       *Operator
	MirrorBaseURL  string
	RequestTimeout time.Duration
	MaxAttempts    int
	MinBackoff     time.Duration
	MaxBackoff     time.Duration
	HTTPClient     *http.Client

	// LogLevel is a pointer because zerolog's zero level is debug; nil
	// means the default info level, an explicit pointer wins.
	LogLevel *zerolog.Level
}

func (o *ClientOptions) setDefaults() {
	if o.Network == "" {
		o.Network = defaultClientOptions.Network
	}

	if o.RequestTimeout == 0 {
		o.RequestTimeout = defaultClientOptions.RequestTimeout
	}

	if o.MaxAttempts == 0 {
		o.MaxAttempts = defaultClientOptions.MaxAttempts
	}

	if o.MinBackoff == 0 {
		o.MinBackoff = defaultClientOptions.MinBackoff
	}

	if o.MaxBackoff == 0 {
		o.MaxBackoff = defaultClientOptions.MaxBackoff
	}

	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}

	if o.LogLevel == nil {
		o.LogLevel = defaultClientOptions.LogLevel
	}
}

var defaultLogLevel = zerolog.InfoLevel

var defaultClientOptions = &ClientOptions{
	Network:        NetworkTestNet,
	RequestTimeout: time.Minute * 2,
	MaxAttempts:    10,
	MinBackoff:     time.Millisecond * 250,
	MaxBackoff:     time.Second * 8,
	LogLevel:       &defaultLogLevel,
}

// Client is the execution context for transactions and queries: the operator
// paying for transactions, the set of nodes the network exposes, and the
// mirror collaborator for identity resolution. Nodes are owned by the client
// and shared across calls; channel invalidation is explicit, never hidden in
// process-wide state.
type Client struct {
	options        *ClientOptions
	params         *NetworkParams
	operator       *Operator
	mirrorBaseURL  string
	requestTimeout time.Duration
	maxAttempts    int
	minBackoff     time.Duration
	maxBackoff     time.Duration
	httpClient     *http.Client
	log            *zerolog.Logger

	mu         sync.Mutex
	nodes      map[string]*Node
	nodeOrder  []AccountID
	nodeCursor int
}

func NewClient(options *ClientOptions) (client *Client, err error) {
	if options == nil {
		options = &ClientOptions{}
	}
	options.setDefaults()

	params, err := options.Network.Params()
	if err != nil {
		return
	}

	mirrorBaseURL := options.MirrorBaseURL
	if mirrorBaseURL == "" {
		mirrorBaseURL = params.MirrorBaseURL
	}

	logger := Log().Level(*options.LogLevel)

	client = &Client{
		options:        options,
		params:         params,
		operator:       options.Operator,
		mirrorBaseURL:  mirrorBaseURL,
		requestTimeout: options.RequestTimeout,
		maxAttempts:    options.MaxAttempts,
		minBackoff:     options.MinBackoff,
		maxBackoff:     options.MaxBackoff,
		httpClient:     options.HTTPClient,
		log:            &logger,
	}

	err = client.SetNetworkNodes(params.Nodes)
	return
}

// SetOperator assigns the account paying for transactions and the key used
// to sign them.
func (c *Client) SetOperator(accountID AccountID, privateKey PrivateKey) {
	c.operator = &Operator{AccountID: accountID, PrivateKey: privateKey}
}

func (c *Client) Operator() *Operator {
	return c.operator
}

func (c *Client) Network() Network {
	return c.params.Name
}

// SetNetworkNodes replaces the client's node set from address-book entries,
// closing any channels owned by the previous set.
func (c *Client) SetNetworkNodes(entries []NodeAddress) (err error) {
	nodes := make(map[string]*Node, len(entries))
	order := make([]AccountID, 0, len(entries))

	for _, entry := range entries {
		node, err2 := NewNode(entry.AccountID, entry.Address, entry)
		if err2 != nil {
			return err2
		}
		nodes[entry.AccountID.mapKey()] = node
		order = append(order, entry.AccountID)
	}

	c.mu.Lock()
	previous := c.nodes
	c.nodes = nodes
	c.nodeOrder = order
	c.nodeCursor = 0
	c.mu.Unlock()

	for _, node := range previous {
		node.Close()
	}
	return
}

// Close releases every node channel owned by the client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, node := range c.nodes {
		node.Close()
	}
}

func (c *Client) node(id AccountID) (node *Node, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[id.mapKey()]
	if !ok {
		err = errors.Wrapf(ErrNoNodes, "node %s is not part of the client network", id)
	}
	return
}

func (c *Client) nodeAccountIDs() []AccountID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]AccountID{}, c.nodeOrder...)
}

// advanceNodeCursor returns the current round-robin offset and moves it on,
// spreading load across nodes between independent calls.
func (c *Client) advanceNodeCursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cursor := c.nodeCursor
	c.nodeCursor++
	return cursor
}
