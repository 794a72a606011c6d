package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", "(empty)"},
		{"short key", "sk-proj-123", "****"},
		{"normal key", "sk-proj-api123456789abcdef", "sk-proj-...cdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskKey(tt.input))
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer   abc", "abc", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer ", "", false},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestMaskBearer(t *testing.T) {
	assert.Equal(t, "(none)", MaskBearer(""))
	assert.Equal(t, "Bearer eyJhbGci...wxyz", MaskBearer("Bearer eyJhbGciOiJIUzI1NiJ9.wxyz"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@city.gov", MaskEmail("jane@city.gov"))
	assert.Equal(t, "****", MaskEmail("not-an-email"))
	assert.Equal(t, "****", MaskEmail("@city.gov"))
}

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"q": "a < b & c"})
	assert.NoError(t, err)
	assert.Equal(t, `{"q":"a < b & c"}`, string(out))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...(truncated)", Truncate("abcdef", 2))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}
