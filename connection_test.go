package cdixfer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/cdixfer/pkg/liberrors"
	"github.com/bluenviron/cdixfer/pkg/protocol"
)

func TestNewConnectionRequiresMaxPacketDataSize(t *testing.T) {
	_, err := NewConnection(Config{Adapter: &fakeAdapter{}})
	require.Error(t, err)
	require.IsType(t, &liberrors.ErrInvalidParameter{}, err)
}

func TestNewConnectionRequiresAdapterUnlessMultiEndpoint(t *testing.T) {
	_, err := NewConnection(Config{MaxPacketDataSize: 1000})
	require.Error(t, err)

	c, err := NewConnection(Config{MaxPacketDataSize: 1000, MultiEndpoint: true})
	require.NoError(t, err)
	defer c.Close()
}

func TestNewConnectionRegistersImplicitEndpoint(t *testing.T) {
	c, err := NewConnection(Config{MaxPacketDataSize: 1000, Adapter: &fakeAdapter{}})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.endpoint(defaultEndpointID)
	require.NoError(t, err)
}

func TestAddEndpointRejectsDuplicateID(t *testing.T) {
	c, err := NewConnection(Config{MaxPacketDataSize: 1000, MultiEndpoint: true})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.AddEndpoint("cam1", &fakeAdapter{}))
	err = c.AddEndpoint("cam1", &fakeAdapter{})
	require.Error(t, err)
	require.IsType(t, &liberrors.ErrInvalidParameter{}, err)
}

func TestStatsSnapshotUnknownEndpoint(t *testing.T) {
	c, err := NewConnection(Config{MaxPacketDataSize: 1000, Adapter: &fakeAdapter{}})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.StatsSnapshot("does-not-exist")
	require.Error(t, err)
	require.IsType(t, &liberrors.ErrInvalidHandle{}, err)
}

func TestCloseStopsDeliveryLoopsCleanly(t *testing.T) {
	c, err := NewConnection(Config{
		Version:           protocol.Version2,
		MaxPacketDataSize: 1000,
		Adapter:           &fakeAdapter{},
	})
	require.NoError(t, err)

	c.Close()
	c.Close() // idempotent: a second Close must not panic or hang
}
