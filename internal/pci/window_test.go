package pci

import "testing"

func TestIOWindow(t *testing.T) {
	tests := []struct {
		name  string
		base  uint8
		limit uint8
		want  Range
	}{
		{
			name: "typical window",
			base: 0x10, limit: 0x20,
			want: Range{Base: 0x1000, Limit: 0x2FFF},
		},
		{
			name: "single page",
			base: 0x10, limit: 0x10,
			want: Range{Base: 0x1000, Limit: 0x1FFF},
		},
		{
			name: "limit below base is disabled",
			base: 0x20, limit: 0x10,
			want: Range{},
		},
		{
			name: "raw fields compared, flag bits included",
			base: 0x11, limit: 0x10,
			want: Range{},
		},
		{
			name: "zero based window",
			base: 0x00, limit: 0x00,
			want: Range{Base: 0, Limit: 0xFFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IOWindow(tt.base, tt.limit); got != tt.want {
				t.Errorf("IOWindow(0x%02x, 0x%02x) = %v, want %v",
					tt.base, tt.limit, got, tt.want)
			}
		})
	}
}

func TestMemoryWindow(t *testing.T) {
	tests := []struct {
		name  string
		base  uint16
		limit uint16
		want  Range
	}{
		{
			name: "single megabyte",
			base: 0x10, limit: 0x10,
			want: Range{Base: 0x100000, Limit: 0x1FFFFF},
		},
		{
			name: "larger window",
			base: 0x10, limit: 0x30,
			want: Range{Base: 0x100000, Limit: 0x3FFFFF},
		},
		{
			name: "limit below base is disabled",
			base: 0x20, limit: 0x10,
			want: Range{},
		},
		{
			name: "top of 32-bit space",
			base: 0xFFF0, limit: 0xFFF0,
			want: Range{Base: 0xFFF00000, Limit: 0xFFFFFFFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MemoryWindow(tt.base, tt.limit); got != tt.want {
				t.Errorf("MemoryWindow(0x%04x, 0x%04x) = %v, want %v",
					tt.base, tt.limit, got, tt.want)
			}
		})
	}
}

func TestPrefetchWindow(t *testing.T) {
	tests := []struct {
		name       string
		base       uint16
		limit      uint16
		baseUpper  uint32
		limitUpper uint32
		want       Range
	}{
		{
			name: "64-bit window",
			base: 0x11, limit: 0x11, baseUpper: 0x1, limitUpper: 0x1,
			want: Range{Base: 0x100100000, Limit: 0x1001FFFFF},
		},
		{
			name: "32-bit window ignores upper registers",
			base: 0x10, limit: 0x10, baseUpper: 0xDEAD, limitUpper: 0xBEEF,
			want: Range{Base: 0x100000, Limit: 0x1FFFFF},
		},
		{
			name: "low halves compared before width decode",
			base: 0x11, limit: 0x10, baseUpper: 0x1, limitUpper: 0x2,
			want: Range{},
		},
		{
			name: "limit below base is disabled",
			base: 0x20, limit: 0x10, baseUpper: 0, limitUpper: 0,
			want: Range{},
		},
		{
			name: "64-bit spanning upper values",
			base: 0x0001, limit: 0xFFF1, baseUpper: 0x2, limitUpper: 0x2,
			want: Range{Base: 0x200000000, Limit: 0x2FFFFFFFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrefetchWindow(tt.base, tt.limit, tt.baseUpper, tt.limitUpper)
			if got != tt.want {
				t.Errorf("PrefetchWindow(0x%04x, 0x%04x, 0x%x, 0x%x) = %v, want %v",
					tt.base, tt.limit, tt.baseUpper, tt.limitUpper, got, tt.want)
			}
		})
	}
}

func TestWindowDecodeIsPure(t *testing.T) {
	// Repeated decodes of the same fields must agree bit for bit.
	for i := 0; i < 3; i++ {
		if got := IOWindow(0x10, 0x20); got != (Range{Base: 0x1000, Limit: 0x2FFF}) {
			t.Fatalf("IOWindow drifted on call %d: %v", i, got)
		}
		if got := PrefetchWindow(0x11, 0x11, 1, 1); got != (Range{Base: 0x100100000, Limit: 0x1001FFFFF}) {
			t.Fatalf("PrefetchWindow drifted on call %d: %v", i, got)
		}
	}
}

func TestRangeHelpers(t *testing.T) {
	empty := Range{}
	if !empty.IsEmpty() {
		t.Error("zero Range should be empty")
	}
	if empty.Size() != 0 {
		t.Errorf("empty Size() = %d, want 0", empty.Size())
	}

	r := Range{Base: 0x1000, Limit: 0x2FFF}
	if r.IsEmpty() {
		t.Error("nonzero Range should not be empty")
	}
	if r.Size() != 0x2000 {
		t.Errorf("Size() = %#x, want 0x2000", r.Size())
	}
	if got := r.String(); got != "[0x1000-0x2fff]" {
		t.Errorf("String() = %q, want %q", got, "[0x1000-0x2fff]")
	}
}
