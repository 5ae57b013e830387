package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want SubmitInput
	}{
		{
			name: "strings",
			body: `{"name":"Asha","email":"a@x.com","phone":"1","city":"Pune"}`,
			want: SubmitInput{Name: "Asha", Email: "a@x.com", Phone: "1", City: "Pune"},
		},
		{
			name: "large number keeps every digit",
			body: `{"phone":9876543210123456789}`,
			want: SubmitInput{Phone: "9876543210123456789"},
		},
		{
			name: "float and bool",
			body: `{"phone":1.50,"city":true}`,
			want: SubmitInput{Phone: "1.50", City: "true"},
		},
		{
			name: "null is empty",
			body: `{"name":null}`,
			want: SubmitInput{},
		},
		{
			name: "object and array are compacted",
			body: `{"name":{ "first" : "Asha" },"city":[ "Pune", 1 ]}`,
			want: SubmitInput{Name: `{"first":"Asha"}`, City: `["Pune",1]`},
		},
		{
			name: "escaped string",
			body: `{"name":"A&B \"co\""}`,
			want: SubmitInput{Name: `A&B "co"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SubmitInput
			require.NoError(t, json.Unmarshal([]byte(tt.body), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormValue_MalformedJSON(t *testing.T) {
	var got SubmitInput
	assert.Error(t, json.Unmarshal([]byte(`{"name":`), &got))
}
