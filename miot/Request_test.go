package miot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRequest_JSON(t *testing.T) {
	req := SetRequest{
		PropertyAddress: PropertyAddress{DeviceID: "42", ServiceID: 2, PropertyID: 4},
		Value:           3,
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"did":"42","siid":2,"piid":4,"value":3}`, string(data))

	get := GetRequest{PropertyAddress{DeviceID: "42", ServiceID: 2, PropertyID: 1}}
	data, err = json.Marshal(get)
	require.NoError(t, err)
	assert.JSONEq(t, `{"did":"42","siid":2,"piid":1}`, string(data))
}

func TestCheckOK(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode int
		wantOK   bool
	}{
		{"all zero codes", `[{"did":"1","siid":2,"piid":4,"code":0},{"did":"1","siid":2,"piid":1,"code":0}]`, 0, true},
		{"ok string", `"ok"`, 0, true},
		{"ok array", `["ok"]`, 0, true},
		{"unsupported value", `[{"did":"1","siid":2,"piid":4,"code":-5001}]`, CodeUnsupportedValue, false},
		{"second item fails", `[{"did":"1","siid":2,"piid":4,"code":0},{"did":"1","siid":2,"piid":1,"code":-4002}]`, CodePropertyNotWritable, false},
		{"empty array", `[]`, -1, false},
		{"error string", `"error"`, -1, false},
		{"null", `null`, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOK(json.RawMessage(tt.raw))
			if tt.wantOK {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			code, ok := ErrorCode(err)
			assert.True(t, ok)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestParseResults(t *testing.T) {
	results, err := ParseResults(json.RawMessage(`[{"did":"1","siid":3,"piid":4,"code":0,"value":12}]`))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Address{3, 4}, results[0].Address())
	assert.JSONEq(t, "12", string(results[0].Value))

	_, err = ParseResults(json.RawMessage(`{"code":0}`))
	assert.Error(t, err)
}

func TestPropertyName_JSON(t *testing.T) {
	data, err := json.Marshal(PropFavoriteRPM)
	require.NoError(t, err)
	assert.Equal(t, `"favorite_rpm"`, string(data))

	var p PropertyName
	require.NoError(t, json.Unmarshal([]byte(`"buzzer"`), &p))
	assert.Equal(t, PropBuzzer, p)

	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &p))
	_, err = json.Marshal(PropertyUnknown)
	assert.Error(t, err)
}
