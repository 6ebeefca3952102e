package device

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/salamwaddah/mi-api/miot"
)

const (
	// DefaultRefreshDelay は書き込み後にプロパティを再取得するまでの待ち時間
	DefaultRefreshDelay = 200 * time.Millisecond
)

// ErrNotLoaded はプロパティがまだキャッシュに読み込まれていないことを表します。
var ErrNotLoaded = errors.New("property not loaded")

// AirPurifier は Mi Air Purifier 3C をプロパティの集合として扱うアダプタです。
//
// mode を idle にすると電源が切れ、それ以外のモードにすると電源が入ります。
type AirPurifier struct {
	did      string
	caller   miot.Caller
	services miot.ServiceMap
	defs     *miot.PropertyDefinitions
	modes    []string

	mu     sync.RWMutex
	values map[string]any // 表示名 -> デコード済みの値

	refreshEnabled bool
	refreshDelay   time.Duration
	timeProvider   TimeProvider
	ctx            context.Context
	cancel         context.CancelFunc
	refreshMu      sync.Mutex
	closed         bool
	wg             sync.WaitGroup
}

type Option func(*AirPurifier)

// WithTimeProvider は再取得の待ち時間に使う TimeProvider を指定します。
func WithTimeProvider(tp TimeProvider) Option {
	return func(d *AirPurifier) {
		d.timeProvider = tp
	}
}

// WithRefreshDelay は書き込み後の再取得までの待ち時間を変更します。
func WithRefreshDelay(delay time.Duration) Option {
	return func(d *AirPurifier) {
		d.refreshDelay = delay
	}
}

// WithoutRefresh は書き込み後の再取得を行わないようにします。
func WithoutRefresh() Option {
	return func(d *AirPurifier) {
		d.refreshEnabled = false
	}
}

// NewAirPurifier は id のデバイスを caller 経由で操作する AirPurifier を作成します。
func NewAirPurifier(ctx context.Context, id uint32, caller miot.Caller, opts ...Option) *AirPurifier {
	deviceCtx, cancel := context.WithCancel(ctx)
	d := &AirPurifier{
		did:            strconv.FormatUint(uint64(id), 10),
		caller:         caller,
		services:       miot.AirPurifierServiceMap(),
		defs:           miot.AirPurifierDefinitions(),
		modes:          miot.AirPurifierModes(),
		values:         make(map[string]any),
		refreshEnabled: true,
		refreshDelay:   DefaultRefreshDelay,
		timeProvider:   &RealTimeProvider{},
		ctx:            deviceCtx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Close は予定されている再取得をキャンセルし、その終了を待ちます。
func (d *AirPurifier) Close() error {
	d.refreshMu.Lock()
	d.closed = true
	d.refreshMu.Unlock()

	d.cancel()
	d.wg.Wait()
	return nil
}

func (d *AirPurifier) Type() string {
	return miot.AirPurifierType
}

// ID はリクエストの did に使う10進文字列を返します。
func (d *AirPurifier) ID() string {
	return d.did
}

// Modes はデバイスが公開するモードの一覧を返します。
func (d *AirPurifier) Modes() []string {
	return append([]string(nil), d.modes...)
}

// PropertyNames は取得可能なプロパティの表示名を返します。
func (d *AirPurifier) PropertyNames() []string {
	return d.defs.DisplayNames()
}

// LoadProperties は names のプロパティを1回の get_properties で取得します。
// 表示名はワイヤ名に書き換えられ、Service Map にない名前は黙って除外されます。
// 結果は表示名をキーにしたデコード済みの値で、キャッシュにも保存されます。
func (d *AirPurifier) LoadProperties(ctx context.Context, names []string) (map[string]any, error) {
	props := make([]miot.PropertyName, 0, len(names))
	requests := make([]miot.GetRequest, 0, len(names))
	for _, n := range names {
		name, ok := d.defs.Resolve(n)
		if !ok || !d.services.Has(name) {
			slog.Debug("Skipping unknown property", "device", d.did, "property", n)
			continue
		}
		addr, err := d.services.AddressOf(name, d.did)
		if err != nil {
			return nil, err
		}
		props = append(props, name)
		requests = append(requests, miot.GetRequest{PropertyAddress: addr})
	}

	result := make(map[string]any, len(props))
	if len(requests) == 0 {
		return result, nil
	}

	raw, err := d.caller.Call(ctx, miot.MethodGetProperties, requests, nil)
	if err != nil {
		return nil, err
	}
	items, err := miot.ParseResults(raw)
	if err != nil {
		return nil, err
	}
	if len(items) != len(props) {
		slog.Warn("get_properties response length mismatch", "device", d.did, "requested", len(props), "received", len(items))
	}

	// 応答の並びはリクエストの並びと一致する
	for i := 0; i < len(items) && i < len(props); i++ {
		name := props[i]
		key := d.defs.DisplayName(name)
		item := items[i]
		if item.Code != miot.CodeOK {
			slog.Debug("Property not available", "device", d.did, "property", name, "code", item.Code)
			result[key] = nil
			continue
		}
		def, _ := d.defs.Lookup(name)
		value, err := def.DecodeValue(item.Value)
		if err != nil {
			slog.Warn("Failed to decode property", "device", d.did, "property", name, "err", err)
			result[key] = nil
			continue
		}
		result[key] = value
	}

	d.storeValues(result)
	return result, nil
}

func (d *AirPurifier) storeValues(values map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, v := range values {
		if v == nil {
			delete(d.values, k)
			continue
		}
		d.values[k] = v
	}
}

// Property はキャッシュされたプロパティの値を表示名またはワイヤ名で返します。
func (d *AirPurifier) Property(name string) (any, bool) {
	if pn, ok := d.defs.Resolve(name); ok {
		name = d.defs.DisplayName(pn)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[name]
	return v, ok
}

// Properties はキャッシュのコピーを返します。
func (d *AirPurifier) Properties() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	result := make(map[string]any, len(d.values))
	for k, v := range d.values {
		result[k] = v
	}
	return result
}

func (d *AirPurifier) boolProperty(name miot.PropertyName) (bool, bool) {
	v, ok := d.Property(name.String())
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (d *AirPurifier) intProperty(name miot.PropertyName) (int, bool) {
	v, ok := d.Property(name.String())
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

func (d *AirPurifier) stringProperty(name miot.PropertyName) (string, bool) {
	v, ok := d.Property(name.String())
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (d *AirPurifier) Power() (bool, bool) {
	return d.boolProperty(miot.PropPower)
}

func (d *AirPurifier) Mode() (string, bool) {
	return d.stringProperty(miot.PropMode)
}

// AQI は PM2.5 (μg/m³) を返します。
func (d *AirPurifier) AQI() (int, bool) {
	return d.intProperty(miot.PropAQI)
}

func (d *AirPurifier) LEDBrightness() (string, bool) {
	return d.stringProperty(miot.PropLEDBrightnessLevel)
}

func (d *AirPurifier) Buzzer() (bool, bool) {
	return d.boolProperty(miot.PropBuzzer)
}

// FilterLifeRemaining はフィルター寿命の残り (%) を返します。
func (d *AirPurifier) FilterLifeRemaining() (int, bool) {
	return d.intProperty(miot.PropFilterLifeRemaining)
}

// FilterHoursUsed はフィルターの使用時間を返します。
func (d *AirPurifier) FilterHoursUsed() (int, bool) {
	return d.intProperty(miot.PropFilterHoursUsed)
}
