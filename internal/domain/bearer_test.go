package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc.def": "abc.def",
		"Bearer   abc ":  "abc",
		"Bearer ":        "",
		"Bearer":         "",
		"Basic dXNlcjpw": "",
		"xBearer abc":    "",
		"":               "",
	}

	for header, want := range tests {
		assert.Equal(t, want, BearerToken(header), "header %q", header)
	}
}
