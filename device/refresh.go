package device

import (
	"log/slog"

	"github.com/salamwaddah/mi-api/miot"
)

// scheduleRefresh は refresh.Delay 後に refresh.Properties を取得し直してキャッシュを更新します。
// 失敗はログに残すだけで呼び出し元には返しません。
func (d *AirPurifier) scheduleRefresh(refresh miot.RefreshSpec) {
	if !d.refreshEnabled || len(refresh.Properties) == 0 {
		return
	}
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()
	if d.closed {
		return
	}

	// タイマーは呼び出し時点で登録する
	timer := d.timeProvider.After(refresh.Delay)
	properties := append([]string(nil), refresh.Properties...)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case <-d.ctx.Done():
			return
		case <-timer:
		}
		if _, err := d.LoadProperties(d.ctx, properties); err != nil {
			slog.Warn("Failed to refresh properties", "device", d.did, "properties", properties, "err", err)
			return
		}
		slog.Debug("Properties refreshed", "device", d.did, "properties", properties)
	}()
}
