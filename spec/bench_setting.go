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

package spec

import (
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/sdk/core"
)

type BenchSetting struct {
	PrimeMS  int            `yaml:"prime_ms" json:"prime_ms"`
	Batches  int            `yaml:"batches"  json:"batches"`
	Scales   []float64      `yaml:"scales"   json:"scales"`
	Baseline core.EngineKey `yaml:"baseline" json:"baseline"`
	initFlag bool
}

// Enabled reports whether the suite carries a throughput benchmark.
// PrimeMS is the calls/sec estimation window; 0 disables the benchmark.
func (bs *BenchSetting) Enabled() bool {
	return bs.PrimeMS > 0
}

// Init validates the BenchSetting configuration.
// Rules:
// 1) Batches must be positive when the benchmark is enabled.
// 2) Every scale must be positive; an empty scale list means "1.0 only"
//    and is filled in here so downstream code never branches on it.
func (bs *BenchSetting) Init() error {
	if bs.initFlag {
		return nil
	}
	if !bs.Enabled() {
		bs.initFlag = true
		return nil
	}

	if bs.Batches <= 0 {
		return errs.NewFatal("bench_setting: batches must be positive when prime_ms > 0")
	}
	if len(bs.Scales) == 0 {
		bs.Scales = []float64{1.0}
	}
	for _, sc := range bs.Scales {
		if sc <= 0 {
			return errs.Fatalf("bench_setting: invalid batch scale %v", sc)
		}
	}
	bs.initFlag = true
	return nil
}
