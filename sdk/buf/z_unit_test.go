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

package buf

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
)

func testSuiteSetting() *spec.SuiteSetting {
	return &spec.SuiteSetting{
		SuiteName: "demo",
		SuiteID:   7,
		Engine:    core.EngineMT19937,
		Reference: core.EngineMTRef,
		Draw: spec.DrawSetting{
			MaxDraws:        1024,
			Pool:            2,
			DefaultWidthStr: "u32",
		},
	}
}

func TestDrawResultAppendReset(t *testing.T) {
	ss := testSuiteSetting()
	if err := ss.Draw.Init(); err != nil {
		t.Fatalf("draw setting init error: %v", err)
	}
	dr := NewDrawResult(ss)
	if dr.SuiteName != ss.SuiteName || dr.SuiteId != ss.SuiteID || dr.Engine != ss.Engine {
		t.Fatalf("unexpected draw result metadata: %+v", dr)
	}
	if dr.Width != spec.WidthU32 {
		t.Fatalf("expected default width u32, got %v", dr.Width)
	}

	dr.AppendU32(0xAAAA0000)
	dr.AppendU32(0x0000BBBB)

	if dr.DrawCount != 2 || len(dr.U32s) != 2 {
		t.Fatalf("expected 2 draws, got %d (%d)", dr.DrawCount, len(dr.U32s))
	}
	if dr.XorFold != 0xAAAA0000^0x0000BBBB {
		t.Fatalf("unexpected xor fold: %08x", dr.XorFold)
	}

	dr.End()
	if !dr.IsBatchEnd {
		t.Fatalf("expected batch end flag")
	}

	dr.Reset()
	if dr.DrawCount != 0 || len(dr.U32s) != 0 || dr.XorFold != 0 || dr.IsBatchEnd {
		t.Fatalf("draw result not reset: %+v", dr)
	}
	if dr.State.StartCoreSnap != nil || dr.State.AfterCoreSnap != nil {
		t.Fatalf("snapshots not cleared on reset")
	}
}

func TestDrawResultAppendAfterEndPanics(t *testing.T) {
	ss := testSuiteSetting()
	if err := ss.Draw.Init(); err != nil {
		t.Fatalf("draw setting init error: %v", err)
	}
	dr := NewDrawResult(ss)
	dr.End()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic when appending after End")
		}
	}()
	dr.AppendU32(1)
}

func TestDrawResultF64Fold(t *testing.T) {
	ss := testSuiteSetting()
	if err := ss.Draw.Init(); err != nil {
		t.Fatalf("draw setting init error: %v", err)
	}
	dr := NewDrawResult(ss)
	dr.AppendF64(0.5)
	if dr.DrawCount != 1 || len(dr.F64s) != 1 {
		t.Fatalf("expected 1 draw, got %d (%d)", dr.DrawCount, len(dr.F64s))
	}
	bits := math.Float64bits(0.5)
	want := uint32(bits) ^ uint32(bits>>32)
	if dr.XorFold != want {
		t.Fatalf("unexpected f64 fold: got %08x want %08x", dr.XorFold, want)
	}
}

func TestDecodeDrawRequestGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/draw?uid=u1&suite=demo&sid=7&count=16&width=i31&session=3", nil)
	req, err := DecodeDrawRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.UID != "u1" || req.SuiteName != "demo" || req.SuiteId != 7 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Count != 16 || req.Session != 3 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.WidthStr != "i31" || req.Width != spec.WidthI31 {
		t.Fatalf("unexpected width: %q %v", req.WidthStr, req.Width)
	}
}

func TestDecodeDrawRequestPOST(t *testing.T) {
	payload := map[string]any{
		"uid":     "u2",
		"suite":   "demo",
		"sid":     9,
		"count":   32,
		"width":   "f64",
		"session": 2,
	}
	data, _ := json.Marshal(payload)
	r := httptest.NewRequest(http.MethodPost, "/draw", bytes.NewReader(data))
	req, err := DecodeDrawRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SuiteId != 9 || req.Count != 32 || req.Session != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Width != spec.WidthF64 {
		t.Fatalf("unexpected width: %v", req.Width)
	}
}

func TestDecodeDrawRequestRejectsUnknownFields(t *testing.T) {
	data := []byte(`{"sid":1,"suite":"demo","count":8,"unknown":true}`)
	r := httptest.NewRequest(http.MethodPost, "/draw", bytes.NewReader(data))
	if _, err := DecodeDrawRequest(r); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestDecodeDrawRequestRejectsBadWidth(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/draw?suite=demo&count=8&width=u128", nil)
	if _, err := DecodeDrawRequest(r); err == nil {
		t.Fatalf("expected error for unknown width")
	}
}
