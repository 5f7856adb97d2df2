package cdixfer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
	"github.com/bluenviron/cdixfer/pkg/pool"
	"github.com/bluenviron/cdixfer/pkg/protocol"
	"github.com/bluenviron/cdixfer/pkg/rxpacket"
	"github.com/bluenviron/cdixfer/pkg/rxpayload"
	"github.com/bluenviron/cdixfer/pkg/sgl"
)

// RxDelivery is the receive delivery descriptor of spec §4.7: "the
// payload's SGL, the connection user parameter, the extracted core
// metadata, the avm_extra_data, and (only when a config changed since
// previous delivery for this stream_identifier) a pointer to the parsed
// CdiAvmConfig."
type RxDelivery struct {
	EndpointID  string
	PayloadNum  uint32
	State       rxpayload.State
	ErrorReason string

	// SGL is the assembled payload bytes, in order, or nil when State is
	// StateError (spec §7: "delivered to the application callback with a
	// non-null status and an empty SGL"). The caller must call Free once
	// it is done reading SGL.
	SGL *sgl.List

	StreamIdentifier uint16
	PayloadUserData  uint64
	OriginationPTP   protocol.PTPTimestamp

	// AVMPayloadType and AVMConfig describe packet 0's generic
	// configuration, when one was attached. AVMConfig is non-nil only
	// when the configuration differs from the previous one seen for
	// StreamIdentifier; unchanged configurations on later payloads leave
	// it nil (spec §4.7).
	AVMPayloadType AVMPayloadType
	AVMConfig      interface{}
	UnknownKeys    []string
	RawConfig      *GenericConfig

	runs     rxpacket.RunList
	fragPool *pool.Pool
	runPool  *pool.Pool
}

// Free returns SGL's fragment nodes and the reassembled run node to
// their pools (spec §4.7: "The receiver is responsible for calling
// rx_free_buffer(sgl) to return fragment nodes and adapter receive
// buffers to their pools"). It is a no-op if called more than once or on
// a zero-value RxDelivery.
func (d *RxDelivery) Free() {
	if d.fragPool == nil {
		return
	}
	rxpacket.Release(&d.runs, d.fragPool, d.runPool)
	d.SGL = nil
	d.fragPool = nil
	d.runPool = nil
}

// ReceivePacket decodes one raw wire packet received on endpointID and
// feeds it to that endpoint's reassembly state (spec §2's "Adapter (RX)
// -> Protocol Codec -> Receive Packet Reorderer -> Receive Payload
// Reorderer" flow). raw must be the adapter's receive buffer starting at
// the wire header; the returned fragment aliases raw[headerLen:] without
// copying, so raw must remain valid until the payload containing it is
// delivered and freed.
//
// Decode and pool-exhaustion failures here are wire-level errors (spec
// §7): they are absorbed and logged, never propagated as a connection
// failure, except when the fragment pool or the payload-state pool is
// exhausted, in which case the caller (the adapter's RX thread) is told
// so it can apply its own back-pressure.
func (c *Connection) ReceivePacket(endpointID string, raw []byte) error {
	ep, err := c.endpoint(endpointID)
	if err != nil {
		return err
	}

	hdr, n, err := protocol.DecodeHeader(c.cfg.Version, raw)
	if err != nil {
		c.cfg.Router.Warn(logrus.Fields{"endpoint": endpointID}, err)
		return nil
	}

	fragItem, err := c.fragPool.Get()
	if err != nil {
		wrapped := &liberrors.ErrNotEnoughMemory{Pool: "rx-fragment"}
		c.cfg.Router.Error(logrus.Fields{"endpoint": endpointID}, wrapped)
		return wrapped
	}
	frag := fragItem.(*sgl.Fragment)
	frag.Bytes = raw[n:]

	pkt := rxpayload.Packet{
		PayloadNum: hdr.PayloadNum,
		SeqNum:     hdr.PacketSequenceNum,
		Fragment:   frag,
	}

	if hdr.Seq0 != nil {
		pkt.IsSeq0 = true
		pkt.TotalPayloadSize = hdr.Seq0.TotalPayloadSize
		pkt.MaxLatencyMicrosecs = hdr.Seq0.MaxLatencyMicrosecs

		streamID, genCfg, decErr := decodeAVMExtraData(hdr.Seq0.ExtraData)
		if decErr != nil {
			c.cfg.Router.Warn(logrus.Fields{"endpoint": endpointID, "payload_num": hdr.PayloadNum}, decErr)
		} else {
			ep.metaMu.Lock()
			ep.pending[hdr.PayloadNum] = seq0Meta{
				streamIdentifier: streamID,
				avmConfig:        genCfg,
				payloadUserData:  hdr.Seq0.PayloadUserData,
				originationPTP:   hdr.Seq0.OriginationPTP,
			}
			ep.metaMu.Unlock()
		}
	}

	return ep.rx.Ingest(pkt)
}

// startDeliveryLoop launches the RX delivery goroutine for ep (spec §5's
// "RX delivery thread (pops the queue and invokes the application's RX
// callback)"), one per endpoint.
func (c *Connection) startDeliveryLoop(ep *endpointState) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		for {
			d, ok := ep.rx.PullDelivery(c.ctx)
			if !ok {
				return
			}
			c.dispatchDelivery(ep, d)
		}
	}()
}

func (c *Connection) dispatchDelivery(ep *endpointState, d *rxpayload.Delivery) {
	ep.metaMu.Lock()
	meta, hasMeta := ep.pending[d.PayloadNum]
	delete(ep.pending, d.PayloadNum)
	ep.metaMu.Unlock()

	out := &RxDelivery{
		EndpointID:  ep.id,
		PayloadNum:  d.PayloadNum,
		State:       d.State,
		ErrorReason: d.ErrorReason,
		runs:        d.Runs,
		fragPool:    c.fragPool,
		runPool:     c.runPool,
	}

	if d.State != rxpayload.StateError {
		if head := d.Runs.Head(); head != nil {
			out.SGL = &head.SGL
		} else {
			out.SGL = &sgl.List{}
		}
	}

	if hasMeta {
		out.StreamIdentifier = meta.streamIdentifier
		out.PayloadUserData = meta.payloadUserData
		out.OriginationPTP = meta.originationPTP
		out.RawConfig = meta.avmConfig

		payloadType, parsed, unknown := parseAVMConfig(meta.avmConfig)
		out.AVMPayloadType = payloadType
		out.UnknownKeys = unknown
		if len(unknown) > 0 {
			c.cfg.Router.Warn(logrus.Fields{"endpoint": ep.id, "payload_num": d.PayloadNum, "keys": unknown},
				fmt.Errorf("baseline profile configuration has unknown keys"))
		}

		if meta.avmConfig != nil {
			fingerprint := string(meta.avmConfig.Data)
			if ep.lastConfig[meta.streamIdentifier] != fingerprint {
				ep.lastConfig[meta.streamIdentifier] = fingerprint
				out.AVMConfig = parsed
			}
		}
	}

	if c.cfg.OnRxPayload != nil {
		c.cfg.OnRxPayload(out)
	} else {
		out.Free()
	}
}
