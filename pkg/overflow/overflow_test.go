package overflow

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want uint64
		ok   bool
	}{
		{"zero", 0, 0, 0, true},
		{"small", 2, 3, 5, true},
		{"max plus zero", math.MaxUint64, 0, math.MaxUint64, true},
		{"max plus one", math.MaxUint64, 1, 0, false},
		{"max plus two", math.MaxUint64, 2, 0, false},
		{"both large", math.MaxUint64 / 2, math.MaxUint64/2 + 2, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Add(tt.a, tt.b)
			if ok != tt.ok {
				t.Errorf("Add(%d, %d) ok = %v, want %v", tt.a, tt.b, ok, tt.ok)
			}
			if tt.ok && got != tt.want {
				t.Errorf("Add(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMul(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want uint64
		ok   bool
	}{
		{"zero", 0, 0, 0, true},
		{"zero times max", 0, math.MaxUint64, 0, true},
		{"small", 2, 2, 4, true},
		{"max times one", math.MaxUint64, 1, math.MaxUint64, true},
		{"max times two", math.MaxUint64, 2, 0, false},
		{"large square", 1 << 32, 1 << 32, 0, false},
		{"just under", 1<<32 - 1, 1<<32 + 1, math.MaxUint64, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Mul(tt.a, tt.b)
			if ok != tt.ok {
				t.Errorf("Mul(%d, %d) ok = %v, want %v", tt.a, tt.b, ok, tt.ok)
			}
			if tt.ok && got != tt.want {
				t.Errorf("Mul(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
