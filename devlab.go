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
	"github.com/zintix-labs/mtlab/corefmt"
	"github.com/zintix-labs/mtlab/dto"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/stats"
)

// DevLab
//
// 只提供給 Dev 模式使用的實驗台，單線(不併發)，重點在可審計、可重現
type DevLab struct {
	g        *Generator // 單機台，保持抽號可重現
	v        *Verifier  // 套件未開 verify 時為 nil
	seed     int64      // 出生 seed，單 seed 驗證也用它
	before   []byte     // 出生快照，Reset 用
	before64 string
}

type DevDrawReport struct {
	Before  string         `json:"start_b64u"`
	After   string         `json:"after_b64u"`
	Count   int            `json:"count"`
	Width   string         `json:"width"`
	Min     float64        `json:"min"`
	Max     float64        `json:"max"`
	Mean    float64        `json:"mean"`
	XorFold string         `json:"xorfold"`
	Result  dto.DrawResult `json:"result"`
}

func (d *DevLab) Draws(widthStr string, count int) (DevDrawReport, error) {
	// 限制檢查
	if count < 1 || count > 5000 {
		return DevDrawReport{}, errs.NewWarn("count must be between 1 and 5,000")
	}

	// draw
	req := &dto.DrawRequest{
		SuiteName: d.g.suiteName,
		SuiteId:   d.g.suiteId,
		Count:     count,
		Width:     widthStr,
	}
	result, err := d.g.Draw(req)
	if err != nil {
		return DevDrawReport{}, errs.Wrap(err, "draw error")
	}

	// 統計
	lo, hi, sum, n := 0.0, 0.0, 0.0, 0
	obs := func(v float64) {
		if n == 0 || v < lo {
			lo = v
		}
		if n == 0 || v > hi {
			hi = v
		}
		sum += v
		n++
	}
	for _, v := range result.U32s {
		obs(float64(v))
	}
	for _, v := range result.I31s {
		obs(float64(v))
	}
	for _, v := range result.F64s {
		obs(v)
	}

	de := DevDrawReport{
		Before:  result.State.StartCoreSnapB64U,
		After:   result.State.AfterCoreSnapB64U,
		Count:   result.Count,
		Width:   result.Width,
		Min:     lo,
		Max:     hi,
		Mean:    sum / float64(n),
		XorFold: result.XorFold,
		Result:  result,
	}
	return de, nil
}

func (d *DevLab) RestoreDraws(be64 string, widthStr string, count int) (DevDrawReport, error) {
	// 限制檢查
	if count < 1 || count > 5000 {
		return DevDrawReport{}, errs.NewWarn("count must be between 1 and 5,000")
	}
	// 解析seed
	be, err := corefmt.DecodeBase64URL(be64)
	if err != nil {
		return DevDrawReport{}, errs.NewWarn("decode snapshot failed" + err.Error())
	}
	// restore
	if err := d.g.RestoreCore(be); err != nil {
		return DevDrawReport{}, errs.NewWarn("generator restore failed")
	}
	return d.Draws(widthStr, count)
}

type DevVerifyReport struct {
	Seed  uint32              `json:"seed"`
	Draws int                 `json:"draws"`
	Stat  *stats.VerifyReport `json:"statistic"`
}

// Verify 以 devlab 的出生 seed 做單 seed 等價驗證（單工、不顯示進度）。
func (d *DevLab) Verify(draws int) (DevVerifyReport, error) {
	if d.v == nil {
		return DevVerifyReport{}, errs.NewWarn("verify is not enabled for this suite")
	}
	if draws < 1 || draws > 3_000_000 {
		return DevVerifyReport{}, errs.NewWarn("draws must be between 1 and 3,000,000")
	}

	seed := uint32(d.seed)
	stat, _, err := d.v.VerifySpan(seed, seed, draws, 1, false)
	if err != nil {
		return DevVerifyReport{}, errs.Wrap(err, "verify failed")
	}

	return DevVerifyReport{
		Seed:  seed,
		Draws: draws,
		Stat:  stat,
	}, nil
}

// Reset 把 generator 還原到出生快照（重跑同一段序列用）。
func (d *DevLab) Reset() error {
	if err := d.g.RestoreCore(d.before); err != nil {
		return errs.Wrap(err, "restore to birth snapshot failed")
	}
	return nil
}

// BirthSnapshot 回傳出生快照（base64url），可直接餵給 RestoreDraws。
func (d *DevLab) BirthSnapshot() string {
	return d.before64
}

// Inspect 解開快照給 dev 面板看內部狀態。
// be64 留空時取 generator 當下的快照。
func (d *DevLab) Inspect(be64 string) (dto.SnapInspect, error) {
	var (
		snap []byte
		err  error
	)
	if be64 == "" {
		snap, err = d.g.SnapshotCore()
		if err != nil {
			return dto.SnapInspect{}, errs.Wrap(err, "snapshot failed")
		}
	} else {
		snap, err = corefmt.DecodeBase64URL(be64)
		if err != nil {
			return dto.SnapInspect{}, errs.NewWarn("decode snapshot failed" + err.Error())
		}
	}
	return dto.NewSnapInspectDTO(d.g.setting.Engine, snap), nil
}
