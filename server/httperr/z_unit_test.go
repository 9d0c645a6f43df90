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

package httperr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/mtlab/errs"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, http.StatusRequestTimeout},
		{"warn", errs.NewWarn("seed range reversed"), http.StatusBadRequest},
		{"fatal", errs.NewFatal("snapshot length mismatch"), http.StatusInternalServerError},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusCode(tc.err); got != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestStatusCodeWrappedKeepsLevel(t *testing.T) {
	// Wrap 沿用原級別，映射結果必須跟著原級別走。
	warn := errs.Wrap(errs.NewWarn("bad width"), "decode draw request")
	if got := StatusCode(warn); got != http.StatusBadRequest {
		t.Fatalf("wrapped warn: status = %d, want 400", got)
	}
	fatal := errs.Wrap(errors.New("disk"), "load golden book")
	if got := StatusCode(fatal); got != http.StatusInternalServerError {
		t.Fatalf("wrapped third-party: status = %d, want 500", got)
	}
	// 即使被 wrap，context 錯誤仍優先於分級。
	dl := errs.Wrap(context.DeadlineExceeded, "draw timed out")
	if got := StatusCode(dl); got != http.StatusGatewayTimeout {
		t.Fatalf("wrapped deadline: status = %d, want 504", got)
	}
}

func TestErrsWritesStatusAndBody(t *testing.T) {
	w := httptest.NewRecorder()
	Errs(w, errs.NewWarn("sid is required"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Fatalf("expected error body")
	}

	w2 := httptest.NewRecorder()
	Errs(w2, nil)
	if w2.Code != http.StatusOK || w2.Body.Len() != 0 {
		t.Fatalf("nil error must not write anything, got code=%d body=%q", w2.Code, w2.Body.String())
	}
}
