package attgatt

import "testing"

func TestServerExposesGenericAccess(t *testing.T) {
	srv := NewServer("my-device", noopSenderForServerTest{}, 32)
	srv.Build()

	table := srv.Table()
	table.Lock()
	defer table.Unlock()

	svc := table.At(1)
	if svc == nil || !svc.IsService() || !svc.serviceUUID.Equal(uuidGenericAccessService) {
		t.Fatalf("handle 1 should be the Generic Access service declaration")
	}

	nameAttr := table.At(3)
	if nameAttr == nil || nameAttr.kind != kindReadOnlyData {
		t.Fatalf("Device Name characteristic value missing")
	}
	out := make([]byte, 32)
	n, err := nameAttr.read(0, out)
	if err != nil {
		t.Fatalf("read Device Name: %v", err)
	}
	if string(out[:n]) != "my-device" {
		t.Errorf("Device Name = %q, want %q", out[:n], "my-device")
	}
}

func TestServerAddServiceAfterBuildPanics(t *testing.T) {
	srv := NewServer("x", noopSenderForServerTest{}, 16)
	srv.Build()

	defer func() {
		if recover() == nil {
			t.Error("AddService after Build should panic")
		}
	}()
	srv.AddService(UUID16(0x180F))
}

func TestServerMTUNegotiation(t *testing.T) {
	srv := NewServer("x", noopSenderForServerTest{}, 16)
	srv.Build()
	conn := ConnHandle(1)
	srv.Connected(conn)

	if got := srv.mtu(conn); got != DefaultMTU {
		t.Fatalf("mtu before negotiation = %d, want %d", got, DefaultMTU)
	}

	req := frameL2CAP([]byte{0x02, 0xF1, 0x00}) // requested MTU 241
	resp := srv.HandleRequest(conn, req)
	payload, ok := unframeL2CAP(resp)
	if !ok || len(payload) != 3 || payload[0] != 0x03 {
		t.Fatalf("Exchange MTU response malformed: % X", payload)
	}
	got := int(payload[1]) | int(payload[2])<<8
	if got != 241 {
		t.Errorf("negotiated MTU = %d, want 241", got)
	}
	if srv.mtu(conn) != 241 {
		t.Errorf("server's tracked MTU = %d, want 241", srv.mtu(conn))
	}
}

func TestServerMTUClampedToMax(t *testing.T) {
	srv := NewServer("x", noopSenderForServerTest{}, 16)
	srv.Build()
	conn := ConnHandle(1)
	srv.Connected(conn)

	req := frameL2CAP([]byte{0x02, 0xFF, 0xFF}) // requested 0xFFFF, far above MaxMTU
	resp := srv.HandleRequest(conn, req)
	payload, _ := unframeL2CAP(resp)
	got := int(payload[1]) | int(payload[2])<<8
	if got != MaxMTU {
		t.Errorf("negotiated MTU = %d, want clamp to MaxMTU=%d", got, MaxMTU)
	}
}

func TestServerDisconnectedClearsMTUAndSubscriptions(t *testing.T) {
	srv := NewServer("x", noopSenderForServerTest{}, 16)
	svc := srv.AddService(UUID16(0x180D))
	svc.AddCharacteristic(UUID16(0x2A37), PropRead|PropNotify, NewFixedValue([]byte{0, 0}))
	svc.Build()
	srv.Build()

	conn := ConnHandle(1)
	srv.Connected(conn)

	// Enable notifications on the Generic Access Device Name's
	// successor CCCD isn't available; use the custom characteristic's
	// CCCD, two handles past its declaration (decl, value, cccd).
	cccdHandle := uint16(0)
	srv.table.Lock()
	for _, a := range srv.table.Attrs() {
		if a.IsCCCD() {
			cccdHandle = a.Handle
		}
	}
	srv.table.Unlock()
	if cccdHandle == 0 {
		t.Fatal("fixture setup: no CCCD found")
	}

	writeReq := frameL2CAP(append([]byte{0x12, byte(cccdHandle), byte(cccdHandle >> 8)}, 0x01, 0x00))
	srv.HandleRequest(conn, writeReq)
	if !srv.subs.ShouldNotify(conn, cccdHandle) {
		t.Fatal("fixture setup: subscription did not take")
	}

	srv.Disconnected(conn)
	if srv.subs.ShouldNotify(conn, cccdHandle) {
		t.Error("Disconnected should clear subscriptions")
	}
	if srv.mtu(conn) != DefaultMTU {
		t.Error("Disconnected should reset MTU tracking to DefaultMTU")
	}
}

type noopSenderForServerTest struct{}

func (noopSenderForServerTest) Send(ConnHandle, []byte) error { return nil }
