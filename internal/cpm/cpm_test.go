package cpm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePower(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{
			name: "nil packet decodes to zero",
			data: nil,
			want: 0,
		},
		{
			name: "empty packet decodes to zero",
			data: []byte{},
			want: 0,
		},
		{
			name: "truncated packet decodes to zero",
			data: []byte{0x00, 0x00, 0x64},
			want: 0,
		},
		{
			name: "100 watts little-endian",
			data: []byte{0x00, 0x00, 0x64, 0x00},
			want: 100,
		},
		{
			name: "negative power is sign-extended",
			data: []byte{0x00, 0x00, 0xFF, 0xFF},
			want: -1,
		},
		{
			name: "flags bytes are ignored",
			data: []byte{0x34, 0x12, 0xF4, 0x01},
			want: 500,
		},
		{
			name: "trailing optional fields are ignored",
			data: []byte{0x20, 0x00, 0xC8, 0x00, 0xAA, 0xBB, 0xCC, 0xDD},
			want: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePower(tt.data))
		})
	}
}
