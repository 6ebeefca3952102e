package device

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/salamwaddah/mi-api/miot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCaller は呼び出しを記録し、get_properties には固定値を返す
type recordingCaller struct {
	mu      sync.Mutex
	methods []string
	gets    [][]miot.GetRequest
}

func (c *recordingCaller) Call(ctx context.Context, method string, params any, opts *miot.CallOptions) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods = append(c.methods, method)
	if method != miot.MethodGetProperties {
		return okResponse, nil
	}
	reqs := params.([]miot.GetRequest)
	c.gets = append(c.gets, reqs)
	results := make([]miot.PropertyResult, len(reqs))
	for i, r := range reqs {
		results[i] = miot.PropertyResult{PropertyAddress: r.PropertyAddress}
		switch r.Address() {
		case miot.Address{ServiceID: 2, PropertyID: 1}:
			results[i].Value = json.RawMessage(`false`)
		case miot.Address{ServiceID: 2, PropertyID: 4}:
			results[i].Value = json.RawMessage(`3`)
		}
	}
	return json.Marshal(results)
}

func (c *recordingCaller) getCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.gets)
}

func TestRefreshAfterChangePower(t *testing.T) {
	tp := NewMockTimeProvider()
	caller := &recordingCaller{}
	d := NewAirPurifier(context.Background(), testDeviceID, caller, WithTimeProvider(tp))
	defer d.Close()

	require.NoError(t, d.ChangePower(context.Background(), false))
	assert.Equal(t, 1, tp.Pending())

	// 待ち時間が過ぎるまでは再取得しない
	tp.Advance(DefaultRefreshDelay / 2)
	assert.Never(t, func() bool { return caller.getCount() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	tp.Advance(DefaultRefreshDelay)
	assert.Eventually(t, func() bool {
		mode, ok := d.Mode()
		return ok && mode == miot.ModeIdle
	}, time.Second, 5*time.Millisecond)

	caller.mu.Lock()
	defer caller.mu.Unlock()
	require.Len(t, caller.gets, 1)
	assert.Equal(t, miot.Address{ServiceID: 2, PropertyID: 1}, caller.gets[0][0].Address())
	assert.Equal(t, miot.Address{ServiceID: 2, PropertyID: 4}, caller.gets[0][1].Address())
	power, ok := d.Power()
	assert.True(t, ok)
	assert.False(t, power)
}

func TestRefreshCustomDelay(t *testing.T) {
	tp := NewMockTimeProvider()
	caller := &recordingCaller{}
	d := NewAirPurifier(context.Background(), testDeviceID, caller,
		WithTimeProvider(tp), WithRefreshDelay(time.Second))
	defer d.Close()

	require.NoError(t, d.ChangeMode(context.Background(), miot.ModeSilent))
	tp.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, tp.Pending())
	tp.Advance(500 * time.Millisecond)
	assert.Equal(t, 0, tp.Pending())
	assert.Eventually(t, func() bool { return caller.getCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestNoRefreshWithoutOptions(t *testing.T) {
	tp := NewMockTimeProvider()
	caller := &recordingCaller{}
	d := NewAirPurifier(context.Background(), testDeviceID, caller, WithTimeProvider(tp))
	defer d.Close()

	require.NoError(t, d.SetFavoriteRPM(context.Background(), 900))
	require.NoError(t, d.ChangeBuzzer(context.Background(), true))
	assert.Equal(t, 0, tp.Pending())
}

func TestWithoutRefresh(t *testing.T) {
	tp := NewMockTimeProvider()
	caller := &recordingCaller{}
	d := NewAirPurifier(context.Background(), testDeviceID, caller, WithTimeProvider(tp), WithoutRefresh())
	defer d.Close()

	require.NoError(t, d.ChangePower(context.Background(), true))
	assert.Equal(t, 0, tp.Pending())
}

func TestCloseCancelsPendingRefresh(t *testing.T) {
	tp := NewMockTimeProvider()
	caller := &recordingCaller{}
	d := NewAirPurifier(context.Background(), testDeviceID, caller, WithTimeProvider(tp))

	require.NoError(t, d.ChangePower(context.Background(), true))
	require.NoError(t, d.Close())

	tp.Advance(time.Hour)
	assert.Equal(t, 0, caller.getCount())

	// Close 後の書き込みは再取得を予約しない
	require.NoError(t, d.ChangePower(context.Background(), true))
	assert.Equal(t, 0, tp.Pending())
}

func TestMockTimeProvider(t *testing.T) {
	tp := NewMockTimeProvider()
	ch := tp.After(10 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("timer fired before Advance")
	default:
	}
	tp.Advance(10 * time.Millisecond)
	select {
	case <-ch:
	default:
		t.Fatal("timer did not fire after Advance")
	}
	assert.Equal(t, time.Unix(0, 0).Add(10*time.Millisecond), tp.Now())
	assert.Equal(t, 0, tp.Pending())

	immediate := tp.After(0)
	_, ok := <-immediate
	assert.True(t, ok)
}
