package attgatt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nullgrid/attgatt"
)

// loopbackTransport wires a Client straight to a Server in-process,
// the same role a real ACL socket plays, so discovery/read/write/notify
// flows can be exercised without any radio.
type loopbackTransport struct {
	srv  *attgatt.Server
	conn attgatt.ConnHandle

	// client is set after construction, breaking the initialization
	// cycle between a Client and the transport it sends through.
	client *attgatt.Client
}

func (lt *loopbackTransport) Send(frame []byte) error {
	if resp := lt.srv.HandleRequest(lt.conn, frame); resp != nil {
		lt.client.Deliver(resp)
	}
	return nil
}

func newLoopback(t *testing.T) (*attgatt.Client, *attgatt.Server) {
	t.Helper()
	lt := &loopbackTransport{}
	srv := attgatt.NewServer("loopback-test", loopbackACL{lt: lt}, 64)

	battery := srv.AddService(attgatt.UUID16(0x180F))
	battery.AddCharacteristicReadOnly(
		attgatt.UUID16(0x2A19),
		attgatt.PropRead|attgatt.PropNotify,
		attgatt.NewFixedValue([]byte{77}),
	)
	battery.Build()
	srv.Build()

	conn := attgatt.ConnHandle(1)
	srv.Connected(conn)

	lt.srv, lt.conn = srv, conn
	client := attgatt.NewClient(lt)
	lt.client = client
	return client, srv
}

// loopbackACL is the server's outbound ACL queue in the loopback: it
// hands notification frames straight to the loopback's client.
type loopbackACL struct{ lt *loopbackTransport }

func (a loopbackACL) Send(_ attgatt.ConnHandle, frame []byte) error {
	a.lt.client.Deliver(frame)
	return nil
}

func TestClientServicesByUUID(t *testing.T) {
	client, _ := newLoopback(t)

	services, err := client.ServicesByUUID(attgatt.UUID16(0x180F))
	require.NoError(t, err)
	require.Len(t, services, 1)
	require.True(t, services[0].UUID.Equal(attgatt.UUID16(0x180F)))
	require.Less(t, services[0].Start, services[0].End)
}

func TestClientCharacteristicByUUIDAndRead(t *testing.T) {
	client, _ := newLoopback(t)

	services, err := client.ServicesByUUID(attgatt.UUID16(0x180F))
	require.NoError(t, err)
	require.Len(t, services, 1)

	ch, err := client.CharacteristicByUUID(services[0], attgatt.UUID16(0x2A19))
	require.NoError(t, err)
	require.True(t, ch.HasCCCD(), "Read|Notify characteristic should surface a CCCD handle")

	dest := make([]byte, 8)
	n, err := client.ReadCharacteristic(ch, dest)
	require.NoError(t, err)
	require.Equal(t, []byte{77}, dest[:n])
}

func TestClientSubscribeReceivesNotification(t *testing.T) {
	client, srv := newLoopback(t)

	services, err := client.ServicesByUUID(attgatt.UUID16(0x180F))
	require.NoError(t, err)
	ch, err := client.CharacteristicByUUID(services[0], attgatt.UUID16(0x2A19))
	require.NoError(t, err)

	listener, err := client.Subscribe(ch, false)
	require.NoError(t, err)
	defer listener.Close()

	charHandle := attgatt.Characteristic{Handle: ch.Handle, CCCDHandle: ch.CCCDHandle}
	require.NoError(t, srv.Notifier().Notify(1, charHandle, []byte{99}))

	value, ok := listener.Next()
	require.True(t, ok)
	require.Equal(t, []byte{99}, value)
}

func TestClientServicesByUUIDNotFound(t *testing.T) {
	client, _ := newLoopback(t)

	services, err := client.ServicesByUUID(attgatt.UUID16(0xDEAD))
	require.NoError(t, err, "AttributeNotFound during discovery is a normal termination, not a surfaced error")
	require.Empty(t, services)
}
