package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObject(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{name: "plain object", content: `{"a":1}`, want: `{"a":1}`},
		{name: "surrounding whitespace", content: "\n  {\"a\":1}  \n", want: `{"a":1}`},
		{name: "json fence", content: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", content: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "leading prose", content: "Here is the analysis: {\"a\":\"}{\"} thanks", want: `{"a":"}{"}`},
		{name: "empty", content: "   ", wantErr: ErrEmptyResponse},
		{name: "array", content: `[1,2]`, wantErr: ErrInvalidJSON},
		{name: "prose", content: "no json here", wantErr: ErrInvalidJSON},
		{name: "truncated", content: `{"a":`, wantErr: ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObject(tt.content)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}
