package device

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/salamwaddah/mi-api/miot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var okResponse = json.RawMessage(`[{"did":"12345","siid":2,"piid":4,"code":0}]`)

func setParams(t *testing.T, c *mockCaller, i int) []miot.SetRequest {
	t.Helper()
	require.Greater(t, len(c.Calls), i)
	assert.Equal(t, miot.MethodSetProperties, c.Calls[i].Arguments.String(0))
	params, ok := c.Calls[i].Arguments.Get(1).([]miot.SetRequest)
	require.True(t, ok, "params should be []miot.SetRequest")
	return params
}

func TestChangePower(t *testing.T) {
	tests := []struct {
		name string
		on   bool
		want []miot.SetRequest
	}{
		{
			name: "off writes idle mode first",
			on:   false,
			want: []miot.SetRequest{
				{PropertyAddress: addr(2, 4), Value: 3},
				{PropertyAddress: addr(2, 1), Value: false},
			},
		},
		{
			name: "on writes power only",
			on:   true,
			want: []miot.SetRequest{
				{PropertyAddress: addr(2, 1), Value: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &mockCaller{}
			caller.On("Call", miot.MethodSetProperties, mock.Anything, mock.Anything).Return(okResponse, nil).Once()

			d := newTestPurifier(t, caller)
			require.NoError(t, d.ChangePower(context.Background(), tt.on))

			if diff := cmp.Diff(tt.want, setParams(t, caller, 0)); diff != "" {
				t.Errorf("set_properties params mismatch (-want +got):\n%s", diff)
			}
			opts := caller.Calls[0].Arguments.Get(2).(*miot.CallOptions)
			require.NotNil(t, opts.Refresh)
			assert.Equal(t, []string{"power", "mode"}, opts.Refresh.Properties)
			assert.Equal(t, DefaultRefreshDelay, opts.Refresh.Delay)
		})
	}
}

func TestChangeMode(t *testing.T) {
	tests := []struct {
		mode string
		want int
	}{
		{miot.ModeAuto, 0},
		{miot.ModeSilent, 1},
		{miot.ModeFavorite, 2},
		{miot.ModeIdle, 3},
		{"sleep", 1},
		{"unknown-mode", 0},
		{"idle:", 0},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			caller := &mockCaller{}
			caller.On("Call", miot.MethodSetProperties, mock.Anything, mock.Anything).Return(okResponse, nil).Once()

			d := newTestPurifier(t, caller)
			require.NoError(t, d.ChangeMode(context.Background(), tt.mode))

			want := []miot.SetRequest{{PropertyAddress: addr(2, 4), Value: tt.want}}
			if diff := cmp.Diff(want, setParams(t, caller, 0)); diff != "" {
				t.Errorf("set_properties params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChangeMode_Unsupported(t *testing.T) {
	caller := &mockCaller{}
	caller.On("Call", miot.MethodSetProperties, mock.Anything, mock.Anything).
		Return(json.RawMessage(`[{"did":"12345","siid":2,"piid":4,"code":-5001}]`), nil).Once()

	d := newTestPurifier(t, caller)
	err := d.ChangeMode(context.Background(), miot.ModeFavorite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "favorite")

	var notSupported *miot.ModeNotSupportedError
	require.ErrorAs(t, err, &notSupported)
	assert.Equal(t, miot.ModeFavorite, notSupported.Mode)
	code, ok := miot.ErrorCode(err)
	assert.True(t, ok)
	assert.Equal(t, miot.CodeUnsupportedValue, code)
}

func TestChangeMode_TransportErrorUnchanged(t *testing.T) {
	callErr := &miot.ProtocolError{Code: -5001, Message: "unsupported value"}
	caller := &mockCaller{}
	caller.On("Call", miot.MethodSetProperties, mock.Anything, mock.Anything).Return(nil, callErr).Once()

	d := newTestPurifier(t, caller)
	err := d.ChangeMode(context.Background(), miot.ModeSilent)
	var notSupported *miot.ModeNotSupportedError
	assert.ErrorAs(t, err, &notSupported, "-5001 from the transport is also translated")

	other := errors.New("timeout")
	caller = &mockCaller{}
	caller.On("Call", miot.MethodSetProperties, mock.Anything, mock.Anything).Return(nil, other).Once()

	d = newTestPurifier(t, caller)
	err = d.ChangeMode(context.Background(), miot.ModeSilent)
	assert.Same(t, other, err)
}

func TestChangeMode_OtherDeviceCode(t *testing.T) {
	caller := &mockCaller{}
	caller.On("Call", miot.MethodSetProperties, mock.Anything, mock.Anything).
		Return(json.RawMessage(`[{"did":"12345","siid":2,"piid":4,"code":-4002}]`), nil).Once()

	d := newTestPurifier(t, caller)
	err := d.ChangeMode(context.Background(), miot.ModeAuto)
	var protoErr *miot.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, miot.CodePropertyNotWritable, protoErr.Code)
	var notSupported *miot.ModeNotSupportedError
	assert.False(t, errors.As(err, &notSupported))
}

func TestSetFavoriteRPM(t *testing.T) {
	caller := &mockCaller{}
	caller.On("Call", miot.MethodSetProperties, mock.Anything, (*miot.CallOptions)(nil)).
		Return(json.RawMessage(`[{"did":"12345","siid":9,"piid":3,"code":-4002}]`), nil).Once()

	d := newTestPurifier(t, caller)
	// 応答のコードは検査しない
	assert.NoError(t, d.SetFavoriteRPM(context.Background(), 500))

	want := []miot.SetRequest{{PropertyAddress: addr(9, 3), Value: 500}}
	if diff := cmp.Diff(want, setParams(t, caller, 0)); diff != "" {
		t.Errorf("set_properties params mismatch (-want +got):\n%s", diff)
	}
}

func TestFavoriteRPM(t *testing.T) {
	caller := &mockCaller{}
	d := newTestPurifier(t, caller)

	_, err := d.FavoriteRPM(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotLoaded)

	caller.On("Call", miot.MethodGetProperties, mock.Anything, (*miot.CallOptions)(nil)).
		Return(json.RawMessage(`[{"did":"12345","siid":9,"piid":3,"code":0,"value":1500}]`), nil).Once()
	_, err = d.LoadProperties(context.Background(), []string{"favoriteRPM"})
	require.NoError(t, err)

	got, err := d.FavoriteRPM(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1500, got)

	caller.On("Call", miot.MethodSetProperties, mock.Anything, (*miot.CallOptions)(nil)).Return(okResponse, nil).Once()
	level := 700
	got, err = d.FavoriteRPM(context.Background(), &level)
	require.NoError(t, err)
	assert.Equal(t, 700, got)
	caller.AssertExpectations(t)
}

func TestChangeLEDBrightness(t *testing.T) {
	caller := &mockCaller{}
	caller.On("Call", miot.MethodSetProperties, mock.Anything, (*miot.CallOptions)(nil)).Return(okResponse, nil).Once()

	d := newTestPurifier(t, caller)
	require.NoError(t, d.ChangeLEDBrightness(context.Background(), miot.LEDOff))

	want := []miot.SetRequest{{PropertyAddress: addr(7, 2), Value: 2}}
	if diff := cmp.Diff(want, setParams(t, caller, 0)); diff != "" {
		t.Errorf("set_properties params mismatch (-want +got):\n%s", diff)
	}
}

func TestChangeLEDBrightness_Invalid(t *testing.T) {
	caller := &mockCaller{}
	d := newTestPurifier(t, caller)

	err := d.ChangeLEDBrightness(context.Background(), "ultra")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ultra")
	var validation *miot.ValidationError
	assert.ErrorAs(t, err, &validation)
	caller.AssertNotCalled(t, "Call", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeBuzzer(t *testing.T) {
	caller := &mockCaller{}
	caller.On("Call", miot.MethodSetProperties, mock.Anything, (*miot.CallOptions)(nil)).Return(okResponse, nil).Once()

	d := newTestPurifier(t, caller)
	require.NoError(t, d.ChangeBuzzer(context.Background(), false))

	want := []miot.SetRequest{{PropertyAddress: addr(6, 1), Value: false}}
	if diff := cmp.Diff(want, setParams(t, caller, 0)); diff != "" {
		t.Errorf("set_properties params mismatch (-want +got):\n%s", diff)
	}
}
