package cdixfer

import (
	"context"
	"sync"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
	"github.com/bluenviron/cdixfer/pkg/pool"
	"github.com/bluenviron/cdixfer/pkg/protocol"
	"github.com/bluenviron/cdixfer/pkg/rxpacket"
	"github.com/bluenviron/cdixfer/pkg/rxpayload"
	"github.com/bluenviron/cdixfer/pkg/sgl"
	"github.com/bluenviron/cdixfer/pkg/txpacketizer"
)

// defaultEndpointID is the implicit endpoint used by TxPayload and by
// ReceivePacket when the connection was not created with MultiEndpoint.
const defaultEndpointID = ""

// endpointState is one destination within a connection (spec glossary
// "Endpoint"): its own transmit sequencing state and its own receive
// reassembly state, since both are scoped per endpoint per spec §4.6/§5.
type endpointState struct {
	id string

	txMu           sync.Mutex
	txAdapter      txpacketizer.Adapter
	txHeaderBufs   *txpacketizer.HeaderBuffers
	nextPayloadNum uint32

	rx *rxpayload.Endpoint

	metaMu  sync.Mutex
	pending map[uint32]seq0Meta

	// lastConfig tracks, per AVM stream identifier, a fingerprint of the
	// last baseline configuration delivered, so the RX callback only
	// receives a parsed CdiAvmConfig "when a config changed since
	// previous delivery for this stream_identifier" (spec §4.7).
	lastConfig map[uint16]string
}

// seq0Meta is the AVM-facade metadata carried only on packet_sequence_num
// == 0 (spec §3), bridged from the wire header across to the matching
// Delivery popped off the endpoint's output queue. rxpayload.Delivery
// itself stays transport-only and knows nothing about AVM configuration.
type seq0Meta struct {
	streamIdentifier uint16
	avmConfig        *GenericConfig
	payloadUserData  uint64
	originationPTP   protocol.PTPTimestamp
}

// Connection is a logical association between a transmitter and a
// receiver over an adapter (spec glossary "Connection"): the AVM facade
// handle applications hold, analogous to gortsplib's Client/Server.
type Connection struct {
	cfg Config

	statePool *pool.Pool
	runPool   *pool.Pool
	fragPool  *pool.Pool

	completions *txCompletionQueue

	mu        sync.Mutex
	endpoints map[string]*endpointState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewConnection allocates a Connection and, unless MultiEndpoint is set,
// its single implicit endpoint.
func NewConnection(cfg Config) (*Connection, error) {
	cfg.applyDefaults()

	if cfg.MaxPacketDataSize <= 0 {
		return nil, &liberrors.ErrInvalidParameter{Name: "MaxPacketDataSize", Reason: "must be positive"}
	}
	if !cfg.MultiEndpoint && cfg.Adapter == nil {
		return nil, &liberrors.ErrInvalidParameter{Name: "Adapter", Reason: "required unless MultiEndpoint is set"}
	}

	statePool, err := pool.New(pool.Config{
		Name:       "rx-payload-state",
		ItemCount:  int(cfg.RxArraySize),
		GrowCount:  int(cfg.RxArraySize),
		ThreadSafe: true,
		NewItem:    func() interface{} { return &rxpayload.PayloadState{} },
	})
	if err != nil {
		return nil, err
	}

	runPool, err := pool.New(pool.Config{
		Name:       "rx-run-list",
		ItemCount:  int(cfg.RxMaxPacketWindow),
		GrowCount:  int(cfg.RxMaxPacketWindow),
		ThreadSafe: true,
		NewItem:    func() interface{} { return &rxpacket.Run{} },
	})
	if err != nil {
		return nil, err
	}

	fragPool, err := pool.New(pool.Config{
		Name:       "rx-fragment",
		ItemCount:  int(cfg.RxMaxPacketWindow),
		GrowCount:  int(cfg.RxMaxPacketWindow),
		ThreadSafe: true,
		NewItem:    func() interface{} { return &sgl.Fragment{} },
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Connection{
		cfg:       cfg,
		statePool: statePool,
		runPool:   runPool,
		fragPool:  fragPool,
		endpoints: map[string]*endpointState{},
		ctx:       ctx,
		cancel:    cancel,
	}

	c.completions = newTxCompletionQueue(cfg.TxCompletionQueueSize, func(r *TxResult) {
		if c.cfg.OnTxDone != nil {
			c.cfg.OnTxDone(r)
		}
	})

	if !cfg.MultiEndpoint {
		if err := c.AddEndpoint(defaultEndpointID, cfg.Adapter); err != nil {
			cancel()
			return nil, err
		}
	}

	return c, nil
}

// AddEndpoint registers a transmit adapter for endpointID and allocates
// its receive reassembly state. Single-endpoint connections call this
// once internally with the implicit empty ID; multi-endpoint connections
// call it once per destination before using EndpointTxPayload or
// ReceivePacket with that ID.
func (c *Connection) AddEndpoint(endpointID string, adapter txpacketizer.Adapter) error {
	ep, err := c.newEndpointState(endpointID, adapter)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if _, exists := c.endpoints[endpointID]; exists {
		c.mu.Unlock()
		return &liberrors.ErrInvalidParameter{Name: "endpointID", Reason: "already registered"}
	}
	c.endpoints[endpointID] = ep
	c.mu.Unlock()

	c.startDeliveryLoop(ep)
	return nil
}

func (c *Connection) newEndpointState(endpointID string, adapter txpacketizer.Adapter) (*endpointState, error) {
	queue, err := rxpayload.NewQueue(c.cfg.RxQueueSize)
	if err != nil {
		return nil, err
	}

	rx, err := rxpayload.NewEndpoint(rxpayload.Config{
		ArraySize:       c.cfg.RxArraySize,
		WindowSize:      c.cfg.RxWindowSize,
		PayloadNumMax:   c.cfg.Version.PayloadNumMax(),
		MaxPacketWindow: c.cfg.RxMaxPacketWindow,
		StatePool:       c.statePool,
		RunPool:         c.runPool,
		FragPool:        c.fragPool,
		Output:          queue,
		Router:          c.cfg.Router,
	})
	if err != nil {
		return nil, err
	}

	return &endpointState{
		id:           endpointID,
		txAdapter:    adapter,
		txHeaderBufs: txpacketizer.NewHeaderBuffers(c.cfg.TxHeaderBufCount, uint64(headerScratchSize(c.cfg.Version))),
		rx:           rx,
		pending:      map[uint32]seq0Meta{},
		lastConfig:   map[uint16]string{},
	}, nil
}

// headerScratchSize bounds the wire header scratch buffer: the largest
// header this version ever writes is packet_sequence_num == 0 with the
// maximum extra_data the AVM facade will ever attach.
func headerScratchSize(v protocol.Version) int {
	const fixedSeq0 = 9 + 4 + 8 + 4 + 4 + 8 + 2 + 8 // v2 common + seq0 fixed fields, generous upper bound
	return fixedSeq0 + MaxURILength + MaxDataLength + 16
}

func (c *Connection) endpoint(endpointID string) (*endpointState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ep, ok := c.endpoints[endpointID]
	if !ok {
		return nil, &liberrors.ErrInvalidHandle{Reason: "unknown endpoint " + endpointID}
	}
	return ep, nil
}

// Stats is a point-in-time snapshot of one endpoint's receive counters
// (spec §5 "Other threads may only read statistics via a dedicated
// snapshot path").
type Stats struct {
	EndpointID string
	Rx         rxpayload.Stats
}

// StatsSnapshot returns the current receive counters for endpointID.
func (c *Connection) StatsSnapshot(endpointID string) (Stats, error) {
	ep, err := c.endpoint(endpointID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{EndpointID: endpointID, Rx: ep.rx.Stats()}, nil
}

// Close signals shutdown to every blocking wait in the core (spec §5
// "Cancellation"), releases in-flight payload state back to the pools,
// and waits for the TX completion and RX delivery goroutines to exit.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		eps := make([]*endpointState, 0, len(c.endpoints))
		for _, ep := range c.endpoints {
			eps = append(eps, ep)
		}
		c.mu.Unlock()

		for _, ep := range eps {
			ep.rx.Teardown(c.fragPool, c.runPool, c.statePool)
			ep.rx.CloseOutput()
		}

		c.wg.Wait()
		c.completions.close()
	})
}
