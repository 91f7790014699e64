package bit

import "testing"

func TestCombine(t *testing.T) {
	tests := []struct {
		high, low uint8
		want      uint16
	}{
		{0x00, 0x00, 0x0000},
		{0x12, 0x34, 0x1234},
		{0xFF, 0x01, 0xFF01},
	}
	for _, tt := range tests {
		if got := Combine(tt.high, tt.low); got != tt.want {
			t.Errorf("Combine(0x%02X, 0x%02X) = 0x%04X; want 0x%04X", tt.high, tt.low, got, tt.want)
		}
	}
}

func TestHighLow(t *testing.T) {
	if got := High(0xABCD); got != 0xAB {
		t.Errorf("High(0xABCD) = 0x%02X; want 0xAB", got)
	}
	if got := Low(0xABCD); got != 0xCD {
		t.Errorf("Low(0xABCD) = 0x%02X; want 0xCD", got)
	}
}

func TestSetClear(t *testing.T) {
	var b uint8
	for i := uint8(0); i < 8; i++ {
		b = Set(i, b)
		if !IsSet(i, b) {
			t.Errorf("bit %d not set", i)
		}
	}
	if b != 0xFF {
		t.Errorf("all bits set = 0x%02X; want 0xFF", b)
	}
	for i := uint8(0); i < 8; i++ {
		b = Clear(i, b)
		if IsSet(i, b) {
			t.Errorf("bit %d still set", i)
		}
	}
	if b != 0x00 {
		t.Errorf("all bits cleared = 0x%02X; want 0x00", b)
	}
}

func TestValue(t *testing.T) {
	if got := Value(3, 0b00001000); got != 1 {
		t.Errorf("Value(3, 0b1000) = %d; want 1", got)
	}
	if got := Value(2, 0b00001000); got != 0 {
		t.Errorf("Value(2, 0b1000) = %d; want 0", got)
	}
}

func TestIsSet16(t *testing.T) {
	if !IsSet16(9, 1<<9) {
		t.Error("IsSet16(9) should be true")
	}
	if IsSet16(9, 1<<8) {
		t.Error("IsSet16(9) should be false")
	}
}
