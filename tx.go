package cdixfer

import (
	"time"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
	"github.com/bluenviron/cdixfer/pkg/protocol"
	"github.com/bluenviron/cdixfer/pkg/sgl"
	"github.com/bluenviron/cdixfer/pkg/txpacketizer"
)

// TxPayloadConfig is one payload to transmit (spec §4.7's
// avm_tx_payload/endpoint_tx_payload parameters).
type TxPayloadConfig struct {
	// UnitSize is the payload's media-specific packetization quantum
	// (spec §4.4/§4.8), e.g. from baseline.VideoUnitSize.
	UnitSize int

	// PayloadType selects Sequential or DataOffset framing. It defaults
	// to protocol.PayloadTypeSequential.
	PayloadType protocol.PayloadType

	// StreamIdentifier addresses one AVM stream within the endpoint
	// (spec glossary "Endpoint").
	StreamIdentifier uint16

	// AVMConfig, when non-nil, is serialized into packet 0's extra_data
	// alongside StreamIdentifier (spec §4.7).
	AVMConfig *GenericConfig

	Data                *sgl.List
	MaxLatencyMicrosecs uint64
	PayloadUserData     uint64
	OriginationPTP      protocol.PTPTimestamp

	// UserCBParam is returned verbatim in the matching TxResult.
	UserCBParam interface{}
}

// TxPayload transmits payload_config on the connection's single implicit
// endpoint (spec §4.7 avm_tx_payload). It returns ErrInvalidHandle if the
// connection was created with MultiEndpoint (use EndpointTxPayload
// instead), or ErrQueueFull if the adapter's Submit fails (the packetizer
// reports every Submit failure as ErrQueueFull and does not keep the
// adapter's own error).
func (c *Connection) TxPayload(cfg TxPayloadConfig) error {
	if c.cfg.MultiEndpoint {
		return &liberrors.ErrInvalidHandle{Reason: "connection created in multi-endpoint mode: use EndpointTxPayload"}
	}
	return c.txPayload(defaultEndpointID, cfg)
}

// EndpointTxPayload transmits payload_config on the named endpoint (spec
// §4.7 endpoint_tx_payload), for connections created with MultiEndpoint.
func (c *Connection) EndpointTxPayload(endpointID string, cfg TxPayloadConfig) error {
	if !c.cfg.MultiEndpoint {
		return &liberrors.ErrInvalidHandle{Reason: "connection not created in multi-endpoint mode: use TxPayload"}
	}
	return c.txPayload(endpointID, cfg)
}

func (c *Connection) txPayload(endpointID string, cfg TxPayloadConfig) error {
	ep, err := c.endpoint(endpointID)
	if err != nil {
		return err
	}

	extraData, err := encodeAVMExtraData(cfg.StreamIdentifier, cfg.AVMConfig)
	if err != nil {
		return err
	}

	ep.txMu.Lock()
	payloadNum := ep.nextPayloadNum
	ep.nextPayloadNum = (ep.nextPayloadNum + 1) % (c.cfg.Version.PayloadNumMax() + 1)
	ep.txMu.Unlock()

	startTime := time.Now()
	txStartMicrosecs := uint64(startTime.UnixMicro())

	p := &txpacketizer.Payload{
		PayloadNum:           payloadNum,
		MaxLatencyMicrosecs:  cfg.MaxLatencyMicrosecs,
		OriginationPTP:       cfg.OriginationPTP,
		PayloadUserData:      cfg.PayloadUserData,
		ExtraData:            extraData,
		TxStartTimeMicrosecs: txStartMicrosecs,
		Data:                 cfg.Data,
	}

	pcfg := txpacketizer.Config{
		Version:           c.cfg.Version,
		PayloadType:       cfg.PayloadType,
		UnitSize:          cfg.UnitSize,
		MaxPacketDataSize: c.cfg.MaxPacketDataSize,
		HeaderBufs:        ep.txHeaderBufs,
	}

	submitErr := txpacketizer.Packetize(pcfg, ep.txAdapter, p)
	if submitErr != nil {
		return submitErr
	}

	status := TxStatusOK
	if cfg.MaxLatencyMicrosecs > 0 && time.Since(startTime) > time.Duration(cfg.MaxLatencyMicrosecs)*time.Microsecond {
		status = TxStatusLate
	}

	c.completions.push(&TxResult{
		UserCBParam:          cfg.UserCBParam,
		EndpointID:           endpointID,
		PayloadNum:           payloadNum,
		Status:               status,
		TxStartTimeMicrosecs: txStartMicrosecs,
	})

	return nil
}
