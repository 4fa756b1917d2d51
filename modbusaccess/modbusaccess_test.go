package modbusaccess

import "testing"

func TestDecodeF32ByteOrders(t *testing.T) {
	// 1.0 as IEEE 754 single is 0x3F800000
	cases := []struct {
		order ByteOrder
		raw   []byte
	}{
		{ABCD, []byte{0x3F, 0x80, 0x00, 0x00}},
		{DCBA, []byte{0x00, 0x00, 0x80, 0x3F}},
		{CDAB, []byte{0x00, 0x00, 0x3F, 0x80}},
		{BADC, []byte{0x80, 0x3F, 0x00, 0x00}},
	}
	for _, tc := range cases {
		t.Run(string(tc.order), func(t *testing.T) {
			v, err := Decode(F32, tc.order, tc.raw)
			if err != nil {
				t.Fatal(err)
			}
			if v != 1.0 {
				t.Errorf("decoded %v, want 1.0", v)
			}
		})
	}
}

func TestDecodeU32ByteOrders(t *testing.T) {
	// 0x01020304 in each layout
	cases := []struct {
		order ByteOrder
		raw   []byte
	}{
		{ABCD, []byte{0x01, 0x02, 0x03, 0x04}},
		{DCBA, []byte{0x04, 0x03, 0x02, 0x01}},
		{CDAB, []byte{0x03, 0x04, 0x01, 0x02}},
		{BADC, []byte{0x02, 0x01, 0x04, 0x03}},
	}
	for _, tc := range cases {
		t.Run(string(tc.order), func(t *testing.T) {
			v, err := Decode(U32, tc.order, tc.raw)
			if err != nil {
				t.Fatal(err)
			}
			if v != float64(0x01020304) {
				t.Errorf("decoded %v, want %v", v, float64(0x01020304))
			}
		})
	}
}

func TestDecodeU64(t *testing.T) {
	raw := []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03, 0x04}
	v, err := Decode(U64, ABCD, raw)
	if err != nil {
		t.Fatal(err)
	}
	if v != float64(0x01020304) {
		t.Errorf("decoded %v", v)
	}

	// CDAB reverses the four words
	v, err = Decode(U64, CDAB, []byte{0x03, 0x04, 0x01, 0x02, 0x00, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	if v != float64(0x01020304) {
		t.Errorf("word-swapped decode %v", v)
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	raw := []byte{0x3F, 0x80, 0x00, 0x00, 0xDE, 0xAD}
	v, err := Decode(F32, ABCD, raw)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1.0 {
		t.Errorf("decoded %v, want 1.0", v)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name  string
		kind  DataKind
		order ByteOrder
		raw   []byte
	}{
		{"short buffer", F32, ABCD, []byte{0x3F, 0x80}},
		{"unknown kind", DataKind("S16"), ABCD, []byte{0x00, 0x01}},
		{"unknown order", F32, ByteOrder("ACBD"), []byte{0x3F, 0x80, 0x00, 0x00}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode(tc.kind, tc.order, tc.raw); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWords(t *testing.T) {
	if U32.Words() != 2 || F32.Words() != 2 || U64.Words() != 4 {
		t.Error("wrong register counts")
	}
	if DataKind("S16").Words() != 0 {
		t.Error("unknown kind must report zero words")
	}
}

func TestDecodeString(t *testing.T) {
	cases := []struct {
		raw  []byte
		want string
	}{
		{[]byte{'C', 'H', '3', '0'}, "CH30"},
		{[]byte{'C', 'H', '3', '0', 0x00, 0x00}, "CH30"},
		{[]byte{' ', 'C', 'H', '3', '0', ' '}, "CH30"},
		{[]byte{0x00, 0x00}, ""},
	}
	for _, tc := range cases {
		if got := DecodeString(tc.raw); got != tc.want {
			t.Errorf("DecodeString(%v) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
