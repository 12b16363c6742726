package attgatt

import "testing"

func TestSplitBridgeServeRead(t *testing.T) {
	bridge := NewSplitBridge()
	done := make(chan struct{})

	go func() {
		ev := <-bridge.Events()
		if !ev.IsRead() {
			t.Error("expected a read event")
		}
		if ev.Handle != 0x0012 || ev.Offset != 3 {
			t.Errorf("event = {handle:%#04x offset:%d}, want {0x0012 3}", ev.Handle, ev.Offset)
		}
		ev.Reply([]byte{0xAA, 0xBB})
		close(done)
	}()

	out := make([]byte, 4)
	n, err := bridge.ServeRead(UUID16(0x2A19), 0x0012, 3, out)
	<-done
	if err != nil {
		t.Fatalf("ServeRead: %v", err)
	}
	if n != 2 || out[0] != 0xAA || out[1] != 0xBB {
		t.Errorf("ServeRead wrote % X (n=%d), want [AA BB] (n=2)", out[:n], n)
	}
}

func TestSplitBridgeServeReadFail(t *testing.T) {
	bridge := NewSplitBridge()
	go func() {
		ev := <-bridge.Events()
		ev.Fail(ErrReadNotPermitted)
	}()

	_, err := bridge.ServeRead(UUID16(0x2A19), 0x0012, 0, make([]byte, 2))
	if err != ErrReadNotPermitted {
		t.Errorf("ServeRead: err = %v, want ErrReadNotPermitted", err)
	}
}

func TestSplitBridgeServeWrite(t *testing.T) {
	bridge := NewSplitBridge()
	var got []byte
	done := make(chan struct{})

	go func() {
		ev := <-bridge.Events()
		if !ev.IsWrite() {
			t.Error("expected a write event")
		}
		got = ev.Value()
		ev.Ack()
		close(done)
	}()

	err := bridge.ServeWrite(UUID16(0x2A19), 0x0012, 0, []byte{1, 2, 3})
	<-done
	if err != nil {
		t.Fatalf("ServeWrite: %v", err)
	}
	if string(got) != string([]byte{1, 2, 3}) {
		t.Errorf("write event value = % X, want [01 02 03]", got)
	}
}

func TestSplitBridgeWriteValueIsCopiedNotAliased(t *testing.T) {
	bridge := NewSplitBridge()
	var captured []byte
	done := make(chan struct{})
	go func() {
		ev := <-bridge.Events()
		captured = ev.Value()
		ev.Ack()
		close(done)
	}()

	data := []byte{9, 9, 9}
	go func() { _ = bridge.ServeWrite(UUID16(0x2A19), 1, 0, data) }()
	<-done
	data[0] = 0 // mutate the caller's buffer after the call
	if captured[0] != 9 {
		t.Error("SplitBridge.ServeWrite must copy data, not alias the caller's slice")
	}
}
