// Package simulator は Mi Air Purifier 3C の MIoT プロパティをメモリ上で再現します。
// 実機がなくても transport / server / console を動かすために使います。
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/salamwaddah/mi-api/miot"
	"github.com/salamwaddah/mi-api/protocol"
)

type property struct {
	name     miot.PropertyName
	kind     miot.ValueKind
	value    any
	readable bool
	writable bool
	validate func(v any) bool
}

// Simulator はメモリ上の空気清浄機です。protocol.Handler を実装します。
type Simulator struct {
	did      string
	services miot.ServiceMap

	mu               sync.Mutex
	props            map[miot.PropertyName]*property
	unsupportedModes map[int]bool
}

// New は did のデバイスを電源オフ (mode=idle) の状態で作成します。
// did が空ならどの did のリクエストにも応答します。
func New(did string) *Simulator {
	s := &Simulator{
		did:              did,
		services:         miot.AirPurifierServiceMap(),
		props:            make(map[miot.PropertyName]*property),
		unsupportedModes: make(map[int]bool),
	}
	idle, _ := miot.ModeValues.Encode(miot.ModeIdle)
	dim, _ := miot.LEDBrightnessValues.Encode(miot.LEDDim)

	s.define(miot.PropPower, miot.KindBool, false, true, isBool)
	s.define(miot.PropMode, miot.KindInt, idle, true, s.isSupportedMode)
	s.define(miot.PropAQI, miot.KindInt, 12, false, nil)
	s.define(miot.PropFavoriteRPM, miot.KindInt, 1000, true, inRange(miot.FavoriteRPMMin, miot.FavoriteRPMMax))
	s.define(miot.PropFilterLifeRemaining, miot.KindInt, 100, false, nil)
	s.define(miot.PropFilterHoursUsed, miot.KindInt, 0, false, nil)
	s.define(miot.PropLEDBrightnessLevel, miot.KindInt, dim, true, isLEDCode)
	s.define(miot.PropBuzzer, miot.KindBool, true, true, isBool)
	return s
}

func (s *Simulator) define(name miot.PropertyName, kind miot.ValueKind, initial any, writable bool, validate func(any) bool) {
	s.props[name] = &property{
		name:     name,
		kind:     kind,
		value:    initial,
		readable: true,
		writable: writable,
		validate: validate,
	}
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func inRange(lo, hi int) func(any) bool {
	return func(v any) bool {
		i, ok := v.(int)
		return ok && i >= lo && i <= hi
	}
}

func isLEDCode(v any) bool {
	i, ok := v.(int)
	if !ok {
		return false
	}
	_, ok = miot.LEDBrightnessValues.Decode(i)
	return ok
}

// isSupportedMode は s.mu を保持した状態で呼ばれる
func (s *Simulator) isSupportedMode(v any) bool {
	i, ok := v.(int)
	if !ok {
		return false
	}
	if _, ok := miot.ModeValues.Decode(i); !ok {
		return false
	}
	return !s.unsupportedModes[i]
}

// SetUnsupportedModes は書き込みを -5001 で拒否するモードを設定します。
func (s *Simulator) SetUnsupportedModes(modes ...string) error {
	codes := make(map[int]bool, len(modes))
	for _, m := range modes {
		code, ok := miot.ModeValues.Encode(m)
		if !ok {
			return &miot.ValidationError{Field: "mode", Value: m}
		}
		codes[code] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsupportedModes = codes
	return nil
}

// SetAQI はセンサーの PM2.5 の値を変更します。
func (s *Simulator) SetAQI(value int) {
	s.setValue(miot.PropAQI, value)
}

// SetReadable はプロパティの読み取り可否を変更します。
func (s *Simulator) SetReadable(name miot.PropertyName, readable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.lookupByName(name); p != nil {
		p.readable = readable
	}
}

func (s *Simulator) setValue(name miot.PropertyName, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.lookupByName(name); p != nil {
		p.value = value
	}
}

func (s *Simulator) lookupByName(name miot.PropertyName) *property {
	return s.props[name]
}

// Snapshot は現在のワイヤ上の値をワイヤ名をキーにして返します。
func (s *Simulator) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]any, len(s.props))
	for _, p := range s.props {
		result[p.name.String()] = p.value
	}
	return result
}

// Handle は get_properties と set_properties を処理します。
func (s *Simulator) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case miot.MethodGetProperties:
		var items []miot.GetRequest
		if err := json.Unmarshal(params, &items); err != nil {
			return nil, protocol.Errorf(protocol.ErrorCodeInvalidParams, "invalid get_properties params: %v", err)
		}
		return s.getProperties(items), nil
	case miot.MethodSetProperties:
		var items []setItem
		if err := json.Unmarshal(params, &items); err != nil {
			return nil, protocol.Errorf(protocol.ErrorCodeInvalidParams, "invalid set_properties params: %v", err)
		}
		return s.setProperties(items), nil
	default:
		return nil, protocol.Errorf(protocol.ErrorCodeMethodNotFound, "unknown method: %s", method)
	}
}

type setItem struct {
	miot.PropertyAddress
	Value json.RawMessage `json:"value"`
}

func (s *Simulator) find(addr miot.PropertyAddress) *property {
	if s.did != "" && addr.DeviceID != s.did {
		return nil
	}
	name, ok := s.services.NameOf(addr.Address())
	if !ok {
		return nil
	}
	return s.props[name]
}

func (s *Simulator) getProperties(items []miot.GetRequest) []miot.PropertyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]miot.PropertyResult, 0, len(items))
	for _, item := range items {
		result := miot.PropertyResult{PropertyAddress: item.PropertyAddress}
		p := s.find(item.PropertyAddress)
		switch {
		case p == nil:
			result.Code = miot.CodePropertyNotFound
		case !p.readable:
			result.Code = miot.CodePropertyNotReadable
		default:
			raw, err := json.Marshal(p.value)
			if err != nil {
				// 値はすべて bool か int なので起こらない
				panic(fmt.Sprintf("simulator: marshal %s: %v", p.name, err))
			}
			result.Value = raw
		}
		results = append(results, result)
	}
	return results
}

func (s *Simulator) setProperties(items []setItem) []miot.PropertyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]miot.PropertyResult, 0, len(items))
	for _, item := range items {
		result := miot.PropertyResult{PropertyAddress: item.PropertyAddress}
		result.Code = s.apply(item)
		if result.Code != miot.CodeOK {
			slog.Debug("Simulator rejected write", "property", item.Address(), "value", string(item.Value), "code", result.Code)
		}
		results = append(results, result)
	}
	return results
}

// apply は1項目の書き込みを行い、結果のコードを返します。s.mu を保持して呼ぶこと。
func (s *Simulator) apply(item setItem) int {
	p := s.find(item.PropertyAddress)
	if p == nil {
		return miot.CodePropertyNotFound
	}
	if !p.writable {
		return miot.CodePropertyNotWritable
	}
	v, err := p.kind.Parse(item.Value)
	if err != nil || v == nil {
		return miot.CodeUnsupportedValue
	}
	if p.validate != nil && !p.validate(v) {
		return miot.CodeUnsupportedValue
	}
	p.value = v

	idle, _ := miot.ModeValues.Encode(miot.ModeIdle)
	auto, _ := miot.ModeValues.Encode(miot.ModeAuto)
	switch p.name {
	case miot.PropMode:
		// idle は電源オフ、それ以外は電源オン
		s.lookupByName(miot.PropPower).value = v.(int) != idle
	case miot.PropPower:
		mode := s.lookupByName(miot.PropMode)
		if v.(bool) && mode.value == idle {
			mode.value = auto
		}
	}
	return miot.CodeOK
}
