package attgatt

import "testing"

func TestUUID16Bytes(t *testing.T) {
	u := UUID16(0x180F)
	want := []byte{0x0F, 0x18}
	if got := u.Bytes(); string(got) != string(want) {
		t.Errorf("UUID16(0x180F).Bytes() = % X, want % X", got, want)
	}
	if u.Len() != 2 {
		t.Errorf("Len() = %d, want 2", u.Len())
	}
}

func TestUUID16String(t *testing.T) {
	if got, want := UUID16(0x2A19).String(), "2a19"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseUUID128RoundTrip(t *testing.T) {
	const s = "0000180f-0000-1000-8000-00805f9b34fb"
	u, err := ParseUUID(s)
	if err != nil {
		t.Fatalf("ParseUUID(%q) error: %v", s, err)
	}
	if u.Len() != 16 {
		t.Fatalf("Len() = %d, want 16", u.Len())
	}
	if got := u.String(); got != s {
		t.Errorf("round trip = %q, want %q", got, s)
	}
}

func TestParseUUIDInvalid(t *testing.T) {
	cases := []string{"", "zz", "00112233"}
	for _, s := range cases {
		if _, err := ParseUUID(s); err == nil {
			t.Errorf("ParseUUID(%q): want error, got nil", s)
		}
	}
}

func TestMustParseUUIDPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseUUID: want panic on invalid input, got none")
		}
	}()
	MustParseUUID("not-a-uuid")
}

func TestUUIDEqual(t *testing.T) {
	a := UUID16(0x2902)
	b := UUID16(0x2902)
	c := UUID16(0x2903)
	if !a.Equal(b) {
		t.Error("identical 16-bit UUIDs should be Equal")
	}
	if a.Equal(c) {
		t.Error("distinct UUIDs should not be Equal")
	}
	d := MustParseUUID("00002902-0000-1000-8000-00805f9b34fb")
	if a.Equal(d) {
		t.Error("16-bit and 128-bit UUIDs of different lengths should not be Equal, even if the alias matches")
	}
}

func TestUUIDIsZero(t *testing.T) {
	var u UUID
	if !u.IsZero() {
		t.Error("zero-value UUID should report IsZero")
	}
	if UUID16(0x1800).IsZero() {
		t.Error("non-empty UUID should not report IsZero")
	}
}
