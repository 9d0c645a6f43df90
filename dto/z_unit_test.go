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

package dto

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/mtlab/corefmt"
	"github.com/zintix-labs/mtlab/sdk/buf"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
)

func TestDecodeDrawRequestGET(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/draw?uid=u1&suite=demo&sid=7&count=16&width=u32&session=3", nil)
	req, err := DecodeDrawRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.UID != "u1" || req.SuiteName != "demo" || req.SuiteId != 7 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Count != 16 || req.Width != "u32" || req.Session != 3 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestDecodeDrawRequestPOST(t *testing.T) {
	payload := map[string]any{
		"uid":     "u2",
		"suite":   "demo",
		"sid":     9,
		"count":   8,
		"width":   "f64",
		"session": 2,
		"start_state": map[string]any{
			"start_b64u": corefmt.EncodeBase64URL([]byte{1, 2, 3, 4}),
		},
	}
	data, _ := json.Marshal(payload)
	r := httptest.NewRequest(http.MethodPost, "/draw", bytes.NewReader(data))
	req, err := DecodeDrawRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SuiteId != 9 || req.Count != 8 || req.Width != "f64" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !req.StartState.HasPayload() {
		t.Fatalf("expected start state payload")
	}
}

func TestDecodeDrawRequestRejectsUnknownFields(t *testing.T) {
	data := []byte(`{"sid":1,"suite":"demo","count":8,"unknown":true}`)
	r := httptest.NewRequest(http.MethodPost, "/draw", bytes.NewReader(data))
	if _, err := DecodeDrawRequest(r); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestDrawRequestParse(t *testing.T) {
	snap := []byte{9, 8, 7, 6, 5}
	wire := &DrawRequest{
		UID:       "u1",
		SuiteName: "demo",
		SuiteId:   7,
		Count:     32,
		Width:     "i31",
		Session:   1,
		StartState: &StartState{
			StartCoreSnapB64U: corefmt.EncodeBase64URL(snap),
		},
	}
	req, err := wire.Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SuiteName != "demo" || req.SuiteId != 7 || req.Count != 32 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Width != spec.WidthI31 {
		t.Fatalf("unexpected width: %v", req.Width)
	}
	if !bytes.Equal(req.StartState.StartCoreSnap, snap) {
		t.Fatalf("snapshot did not round-trip: %v", req.StartState.StartCoreSnap)
	}
}

func TestDrawRequestParseRejectsBadSnapshot(t *testing.T) {
	wire := &DrawRequest{
		SuiteName:  "demo",
		Count:      1,
		StartState: &StartState{StartCoreSnapB64U: "!!not-base64!!"},
	}
	if _, err := wire.Parse(); err == nil {
		t.Fatalf("expected error for invalid base64url snapshot")
	}
}

func TestNewDrawResultDTO(t *testing.T) {
	ss := &spec.SuiteSetting{
		SuiteName: "demo",
		SuiteID:   7,
		Engine:    core.EngineMT19937,
		Draw:      spec.DrawSetting{MaxDraws: 64},
	}
	if err := ss.Draw.Init(); err != nil {
		t.Fatalf("draw setting init error: %v", err)
	}
	dr := buf.NewDrawResult(ss)
	dr.Width = spec.WidthI31
	dr.AppendU32(0x12345678)
	dr.AppendU32(0x7FFFFFFF)
	dr.State.StartCoreSnap = []byte{1, 2}
	dr.State.AfterCoreSnap = []byte{3, 4}
	dr.End()

	dto, err := NewDrawResultDTO(dr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dto.SuiteName != "demo" || dto.SuiteID != 7 || dto.Count != 2 {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.Width != "i31" || len(dto.I31s) != 2 || len(dto.U32s) != 0 {
		t.Fatalf("expected i31 rendering, got %+v", dto)
	}
	if dto.I31s[0] != 0x12345678 || dto.I31s[1] != 0x7FFFFFFF {
		t.Fatalf("unexpected i31 values: %v", dto.I31s)
	}
	if dto.XorFold != "6dcba987" {
		t.Fatalf("unexpected xorfold: %s", dto.XorFold)
	}

	start, err := corefmt.DecodeBase64URL(dto.State.StartCoreSnapB64U)
	if err != nil || !bytes.Equal(start, []byte{1, 2}) {
		t.Fatalf("start snapshot did not round-trip: %v %v", start, err)
	}

	// DTO 必須與可重用 buffer 脫鉤
	dr.Reset()
	if len(dto.I31s) != 2 || dto.I31s[0] != 0x12345678 {
		t.Fatalf("dto aliases the reusable buffer")
	}
}

func TestSnapInspectDTO(t *testing.T) {
	RegisterSnapRender("demo_engine", func(snap []byte) any {
		return map[string]int{"bytes": len(snap)}
	})
	si := NewSnapInspectDTO("demo_engine", []byte{1, 2, 3})
	if si.Bytes != 3 || si.View == nil {
		t.Fatalf("unexpected snap inspect: %+v", si)
	}
	if si.SnapB64U == "" {
		t.Fatalf("expected base64url snapshot")
	}

	// 未註冊的引擎不渲染 View
	si = NewSnapInspectDTO("unknown_engine", []byte{1})
	if si.View != nil {
		t.Fatalf("expected nil view for unregistered engine")
	}
}
