// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mtlab

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/mtlab/dto"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/spec"
)

type Runtime struct {
	// build-time 來源（只讀引用）
	lab *Lab // 方便取 catalog/engine registry 與共用一些 helper

	// data-plane：關鍵主池（每個套件一個 pool）
	pools map[spec.SID]*GenPool
	ids   []spec.SID // 固定順序，用於觀測/列舉（來自 cat.IDs()）

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	// runtime 行為設定（一期先簡單，之後可擴展）
	poolSize int // 每個套件的預設池大小（draw_setting.pool = 0 時採用）
}

func (rt *Runtime) Draw(ctx context.Context, req *dto.DrawRequest) (dto.DrawResult, error) {
	select {
	case <-ctx.Done():
		// 如果通知取消
		return dto.DrawResult{}, errs.NewWarn("draw canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		// done is the source of truth; keep a fast boolean for cheap reads/telemetry.
		rt.closed.Store(true)
		return dto.DrawResult{}, errs.NewFatal("draw runtime closed: " + rt.ClosedReason())
	default:
	}

	p, ok := rt.pools[req.SuiteId]
	if !ok {
		return dto.DrawResult{}, errs.NewWarn("suite id not found")
	}

	// pool 自己會處理 done / close / rebuild / metrics
	return p.Draw(ctx, req)
}

// IDs 回傳固定順序的套件編號列表（來自 catalog 凍結時的順序）。
func (rt *Runtime) IDs() []spec.SID {
	return rt.ids
}

// Metrics 依固定順序回傳每個套件池的觀測快照。
func (rt *Runtime) Metrics() []GenPoolMetrics {
	ms := make([]GenPoolMetrics, 0, len(rt.ids))
	for _, id := range rt.ids {
		if p, ok := rt.pools[id]; ok {
			ms = append(ms, p.Metrics())
		}
	}
	return ms
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *Runtime) Close() {
	rt.closeWithReason("closed")
}

// closeWithReason closes the runtime and records the reason (written once).
// All suite pools are closed as part of the transition.
func (rt *Runtime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		for _, p := range rt.pools {
			p.Close()
		}
		close(rt.done)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *Runtime) Closed() bool {
	return rt.closed.Load()
}

func (rt *Runtime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
