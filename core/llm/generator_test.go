package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"{\"a\":1}":                         "{\"a\":1}",
		"```json\n{\"a\":1}\n```":           "{\"a\":1}",
		"Here you go: {\"a\":{\"b\":2}} ok": "{\"a\":{\"b\":2}}",
		"no json here": "no json here",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractJSON(in), in)
	}
}

func TestFill(t *testing.T) {
	out := Fill("msg={{MESSAGE}} src={{SOURCE}}", map[string]string{"MESSAGE": "help", "SOURCE": "sms"})
	assert.Equal(t, "msg=help src=sms", out)
}
