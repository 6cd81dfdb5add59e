package ecgble

import "testing"

func TestUUID16(t *testing.T) {
	if want, got := (UUID{[]byte{0x18, 0x00}}), UUID16(0x1800); !got.Equal(want) {
		t.Errorf("UUID16: got %x, want %x", got, want)
	}
}

func TestParseUUID(t *testing.T) {
	cases := []struct {
		s       string
		want    string
		wantErr bool
	}{
		{s: "2902", want: "2902"},
		{s: "12345678-1234-1234-1234-123456789abc", want: "12345678-1234-1234-1234-123456789abc"},
		{s: "87654321-4321-4321-4321-CBA987654321", want: "87654321-4321-4321-4321-cba987654321"},
		{s: "123456781234123412341234567890ab", want: "12345678-1234-1234-1234-1234567890ab"},
		{s: "xyz", wantErr: true},
		{s: "29: 2", wantErr: true},
		{s: "", wantErr: true},
	}

	for _, tt := range cases {
		got, err := ParseUUID(tt.s)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseUUID(%q): want error, got %s", tt.s, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUUID(%q): %v", tt.s, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseUUID(%q): got %s want %s", tt.s, got, tt.want)
		}
	}
}

func TestUUIDCanonical(t *testing.T) {
	cases := []struct {
		u    UUID
		want string
	}{
		{u: UUID16(0x2902), want: "00002902-0000-1000-8000-00805f9b34fb"},
		{u: UUID16(0x180d), want: "0000180d-0000-1000-8000-00805f9b34fb"},
		{
			u:    MustParseUUID("12345678-1234-1234-1234-123456789abc"),
			want: "12345678-1234-1234-1234-123456789abc",
		},
	}

	for _, tt := range cases {
		if got := tt.u.Canonical(); got != tt.want {
			t.Errorf("Canonical(%s): got %s want %s", tt.u, got, tt.want)
		}
	}
}

func TestUUIDEqualExpansion(t *testing.T) {
	long := MustParseUUID("00002902-0000-1000-8000-00805f9b34fb")
	if !UUID16(0x2902).Equal(long) {
		t.Errorf("UUID16(0x2902) should equal its base-UUID expansion")
	}
	if UUID16(0x2901).Equal(long) {
		t.Errorf("UUID16(0x2901) should not equal the 0x2902 expansion")
	}
}
