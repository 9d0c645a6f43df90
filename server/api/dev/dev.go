// Package dev 提供 mtlab 的「內部 Dev Panel」HTTP endpoints。
//
// 目的（ explain the why ）：
//   - 給後端 / 驗證人員在開發期快速操作：指定套件、取值寬度、Seed / Snap，然後抽號或跑單 seed 等價檢定。
//   - 支援可回放（replay）：把 Snapshot（Snap）以字串形式在前端顯示，並可貼回後端做 Restore。
//
// 注意（ contract ）：
//   - 這不是 production API；它偏向 debug / tooling，行為允許更寬鬆，但仍需維持 deterministic concludes。
//   - 這裡的錯誤處理走 `httperr.Errs`（以 errs.Warn/errs.Fatal 對應 HTTP response）。
//   - Seed/Snap 的互斥與優先級由前端 + 後端共同保證（Snap takes precedence）。
package dev

import (
	"crypto/rand"
	"embed"
	"encoding/json"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/zintix-labs/mtlab"
	"github.com/zintix-labs/mtlab/catalog"
	"github.com/zintix-labs/mtlab/errs"
	"github.com/zintix-labs/mtlab/server/httperr"
	"github.com/zintix-labs/mtlab/server/netsvr"
	"github.com/zintix-labs/mtlab/server/svrcfg"
	"github.com/zintix-labs/mtlab/spec"
)

// devRequest 是 Dev Panel 的「輸入 payload」。
//
// 兼容性（backward compatibility）：
//   - `sid` 與 `suite` 兩者擇一即可；若兩者同時存在，後端會優先使用 sid 做解析。
//
// Seed / Snap：
//   - Seed（int64 string）用於 deterministic 起始；若為空字串則自動生成（crypto/rand）。
//   - Snap（base64url string）代表 core snapshot；若提供 Snap，則後端以 Snap Restore 為準（Snap precedence）。
//
// 注意：
//   - 這個 struct 是 API 邊界用的 DTO；不要把它滲透到亂數核心。
type devRequest struct {
	SID   int64  `json:"sid"`
	Suite string `json:"suite"`
	Width string `json:"width"`
	Count int    `json:"count"`
	Draws int    `json:"draws"`
	Seed  string `json:"seed"`
	Snap  string `json:"snap"`
}

// Register 註冊 Dev Panel 的 routes。
//
// Routes：
//   - GET  /dev          ：Dev Panel HTML（內嵌 JS）。
//   - GET  /dev/meta     ：回傳 Catalog summary（供前端下拉選單：Suite / Workloads）。
//   - POST /dev/draw     ：抽 N 筆並回傳逐筆取值（含 start_b64u/after_b64u）。
//   - POST /dev/verify   ：以出生 seed 跑單 seed 等價檢定並回傳統計報表。
//   - POST /dev/inspect  ：解開 snapshot 顯示內部狀態（cursor / state 摘要）。
//
// 依賴（dependency）：
//   - 需要 cfg.Lab 已被上層組裝完成並注入；否則會回 errs.Fatal。
func Register(svr netsvr.NetRouter, cfg *svrcfg.SvrCfg) {
	svr.Get("/dev", devPage)
	svr.Get("/favicon.svg", favicon)
	svr.Get("/dev/meta", devMeta(cfg))
	svr.Post("/dev/draw", devDraw(cfg))
	svr.Post("/dev/verify", devVerify(cfg))
	svr.Post("/dev/inspect", devInspect(cfg))
}

// devPageHTML 是內嵌的 Dev Panel UI。
//
// UI 行為（contract）：
//   - Suite：由 /dev/meta 動態載入。
//   - Seed/Snap 互斥：
//   - Snap 非空 → Seed 會被清空並 disable。
//   - Seed 非空 → Snap 會被清空並 disable。
//   - Snap takes precedence（後端也會以 Snap 為準）。
//   - Count / Draws：
//   - Draw：前端會 cap 在 5,000 以避免回傳 payload 過大。
//   - Verify：前端會 cap 在 3,000,000 以避免長時間阻塞（仍屬 dev tooling）。
//
// 回傳呈現：
//   - Draw：Summary 區顯示整體統計；Draw Results 展開後可逐筆查看 raw 值。
//   - Verify：僅顯示統計（statistic/stats/stat），不顯示逐筆比對。
const devPageHTML = `<!doctype html>
<html lang="zh-Hant">
<head>
  <meta charset="utf-8" />
  <link rel="icon" type="image/svg+xml" href="/favicon.svg" />
  <title>mtlab Dev</title>
  <style>
    body { font-family: -apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif; background:#0f172a; color:#e2e8f0; margin:0; }
    .wrap { max-width: 980px; margin: 24px auto; padding: 16px 20px; background:#111827; border:1px solid #1f2937; border-radius:12px; box-shadow:0 12px 50px rgba(0,0,0,0.35); }
    h1 { margin: 0 0 16px; font-size: 22px; letter-spacing: 0.3px; }
    .grid { display:grid; grid-template-columns: repeat(auto-fit, minmax(180px,1fr)); gap:12px; margin-bottom:12px; }
    label { display:flex; flex-direction:column; gap:6px; font-size: 13px; color:#cbd5e1; }
    input, select { background:#0b1224; color:#e2e8f0; border:1px solid #1f2738; border-radius:8px; padding:10px 12px; font-size:14px; }
    input:focus, select:focus { outline:1px solid #38bdf8; border-color:#38bdf8; }
    .actions { position:relative; display:flex; gap:10px; align-items:center; justify-content:flex-end; margin: 8px 0 14px; }
    button { cursor:pointer; border:none; border-radius:10px; padding:10px 14px; font-weight:600; letter-spacing:0.2px; }
    #btn-draw { background:#38bdf8; color:#0b1224; }
    #btn-verify { background:#22c55e; color:#0b1224; }
    #btn-inspect { background:#a78bfa; color:#0b1224; }
    #btn-clear { background:#1f2937; color:#e2e8f0; border:1px solid #334155; }
    button:disabled { opacity:0.6; cursor:not-allowed; }
    input:disabled, select:disabled {
      opacity: 0.55;
      cursor: not-allowed;
      filter: grayscale(0.25);
    }
    label.is-disabled { opacity: 0.55; }
    label.is-disabled input, label.is-disabled select { pointer-events: none; }
    .hint { font-size: 12px; color:#94a3b8; margin-top:4px; }
    .info { position:absolute; left:50%; transform:translateX(-50%); font-size:13px; color:#94a3b8; }
    .info.warn { color:#f87171; font-weight:600; }
    #summary { background:#0b1224; border:1px solid #1f2738; border-radius:12px; padding:14px; min-height:120px; overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; white-space:pre-wrap; margin-bottom:12px; }
    #drawBox { border:1px solid #1f2737; border-radius:12px; padding:10px; background:#0b1224; margin-bottom:12px; max-height: calc(60vh - 56px); overflow:auto; }
    #drawList { max-height: calc(60vh - 136px); overflow:auto; font-family: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace; }
    .draw-item { display:grid; grid-template-columns: minmax(3.5em, max-content) max-content max-content; align-items:center; column-gap:12px; padding:4px 10px; border-left: 4px solid transparent; }
    .draw-item:hover { background:#1f2937; border-left-color:#38bdf8; }
    .draw-index { color:#94a3b8; text-align:right; justify-self:end; min-width:3.5em; font-variant-numeric: tabular-nums; }
    .draw-hex { color:#38bdf8; }
    .draw-dec { text-align:right; justify-self:end; font-variant-numeric: tabular-nums; }
    .note { font-size:12px; color:#94a3b8; margin-top:4px; }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>mtlab Dev Panel</h1>
    <div class="grid">
      <label>Suite
        <select id="suite"></select>
      </label>
      <label>Width
        <select id="width">
          <option value="u32">u32</option>
          <option value="i31">i31</option>
          <option value="f64">f64</option>
        </select>
      </label>
      <label>Seed (int64)
   <input id="seed" type="text" inputmode="numeric" placeholder="Empty = auto" />
      </label>
      <label>Snap(base64url)
        <input id="snap" type="text" placeholder="Paste snap (base64url)" />
      </label>
      <label>Count / Draws
        <input id="count" type="number" min="1" max="3000000" value="10" />
      </label>
    </div>
    <div class="actions">
      <button id="btn-draw">Draw</button>
      <button id="btn-verify">Verify</button>
      <button id="btn-inspect">Inspect</button>
      <button id="btn-clear">Clear</button>
      <span class="info" id="info"></span>
    </div>

    <pre id="summary"></pre>

    <details id="drawBox" style="display:none;">
      <summary>Draw Results</summary>
      <div id="drawList"></div>
    </details>
  </div>
<script>
const state = { meta: null };
const suiteSel = document.getElementById('suite');
const widthSel = document.getElementById('width');
const seedInput = document.getElementById('seed');
const snapInput = document.getElementById('snap');
const countInput = document.getElementById('count');
const summary = document.getElementById('summary');
const drawBox = document.getElementById('drawBox');
const drawList = document.getElementById('drawList');
const infoEl = document.getElementById('info');
const btnDraw = document.getElementById('btn-draw');
const btnVerify = document.getElementById('btn-verify');
const btnInspect = document.getElementById('btn-inspect');
const btnClear = document.getElementById('btn-clear');

function setDisabled(el, disabled) {
  el.disabled = disabled;
  const label = el.closest('label');
  if (label) label.classList.toggle('is-disabled', disabled);
}

function syncInputLocks() {
  const seedValue = seedInput.value.trim();
  const snapValue = snapInput.value.trim();

  if (snapValue !== '') {
    seedInput.value = '';
    setDisabled(seedInput, true);
    setDisabled(snapInput, false);
    return;
  }
  if (seedValue !== '') {
    snapInput.value = '';
    setDisabled(snapInput, true);
    setDisabled(seedInput, false);
    return;
  }
  setDisabled(seedInput, false);
  setDisabled(snapInput, false);
}

async function loadMeta() {
  try {
    const res = await fetch('/dev/meta');
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    const suites = Array.isArray(data) ? data : (data.suites || data.summary || []);
    state.meta = { suites };
    suiteSel.innerHTML = '';
    state.meta.suites.forEach((s) => {
      const opt = document.createElement('option');
      const sid = s.sid ?? s.id ?? s.SID;
      opt.value = sid != null ? String(sid) : (s.name || '');
      opt.textContent = (s.name || String(opt.value)) + ' [' + (s.engine || '?') + ']';
      opt.dataset.name = s.name || '';
      suiteSel.appendChild(opt);
    });
    summary.textContent = '';
    drawBox.style.display = 'none';
    setInfo('', false);
  } catch (err) {
    summary.textContent = 'Failed to load meta: ' + err.message;
  }
}

function setInfo(text, isWarn) {
  infoEl.textContent = text;
  if (isWarn) {
    infoEl.classList.add('warn');
  } else {
    infoEl.classList.remove('warn');
  }
}

function setLoading(isLoading) {
  btnDraw.disabled = isLoading;
  btnVerify.disabled = isLoading;
  btnInspect.disabled = isLoading;
  if (isLoading) {
    setInfo('Running…', false);
  }
}

function clearOutput() {
  summary.textContent = '';
  drawBox.style.display = 'none';
  drawList.innerHTML = '';
}

function basePayload() {
  const payload = {};
  const sid = Number(suiteSel.value);
  if (Number.isFinite(sid)) {
    payload.sid = sid;
  }
  const selected = state.meta && state.meta.suites
    ? state.meta.suites.find((s) => String(s.sid ?? s.id ?? s.SID) === suiteSel.value)
    : null;
  if (selected && selected.name) {
    payload.suite = selected.name;
  }
  const snap = snapInput.value.trim();
  const seed = seedInput.value.trim();
  if (snap) {
    payload.snap = snap;
  } else if (seed) {
    payload.seed = seed;
  }
  return payload;
}

function renderDraws(values, hex) {
  drawList.innerHTML = '';
  values.forEach((v, idx) => {
    const row = document.createElement('div');
    row.className = 'draw-item';
    const idxSpan = document.createElement('span');
    idxSpan.className = 'draw-index';
    idxSpan.textContent = '#' + (idx + 1);
    const hexSpan = document.createElement('span');
    hexSpan.className = 'draw-hex';
    hexSpan.textContent = hex ? ('0x' + (v >>> 0).toString(16).padStart(8, '0')) : '';
    const decSpan = document.createElement('span');
    decSpan.className = 'draw-dec';
    decSpan.textContent = String(v);
    row.appendChild(idxSpan);
    row.appendChild(hexSpan);
    row.appendChild(decSpan);
    drawList.appendChild(row);
  });
  drawBox.style.display = values.length > 0 ? 'block' : 'none';
}

async function runDraw() {
  setLoading(true);
  clearOutput();
  const inputCount = Number(countInput.value) || 1;
  const payload = basePayload();
  payload.width = widthSel.value;
  payload.count = Math.min(inputCount, 5000);
  try {
    const res = await fetch('/dev/draw', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();

    const summaryObj = { ...data };
    delete summaryObj.result;
    summary.textContent = JSON.stringify(summaryObj, null, 2);

    if (inputCount > 5000) {
      setInfo('Draw results are capped at 5,000.', true);
    } else {
      setInfo('', false);
    }

    const result = data.result || {};
    if (Array.isArray(result.u32s) && result.u32s.length > 0) {
      renderDraws(result.u32s, true);
    } else if (Array.isArray(result.i31s) && result.i31s.length > 0) {
      renderDraws(result.i31s, true);
    } else if (Array.isArray(result.f64s) && result.f64s.length > 0) {
      renderDraws(result.f64s, false);
    } else {
      drawBox.style.display = 'none';
    }
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

async function runVerify() {
  setLoading(true);
  clearOutput();
  const inputDraws = Number(countInput.value) || 1;
  const payload = basePayload();
  payload.draws = Math.min(inputDraws, 3000000);
  try {
    const res = await fetch('/dev/verify', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    const summaryObj = data.statistic || data.stats || data.stat || data;
    summary.textContent = JSON.stringify(summaryObj, null, 2);
    if (inputDraws > 3000000) {
      setInfo('Verify statistics are capped at 3,000,000 draws.', true);
    } else {
      setInfo('', false);
    }
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

async function runInspect() {
  setLoading(true);
  clearOutput();
  const payload = basePayload();
  try {
    const res = await fetch('/dev/inspect', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify(payload),
    });
    if (!res.ok) throw new Error(await res.text());
    const data = await res.json();
    summary.textContent = JSON.stringify(data, null, 2);
    setInfo('', false);
  } catch (err) {
    summary.textContent = 'Request failed: ' + err.message;
    setInfo('', false);
  } finally {
    setLoading(false);
  }
}

btnDraw.addEventListener('click', runDraw);
btnVerify.addEventListener('click', runVerify);
btnInspect.addEventListener('click', runInspect);
btnClear.addEventListener('click', () => {
  clearOutput();
  setInfo('', false);
});
seedInput.addEventListener('input', syncInputLocks);
snapInput.addEventListener('input', syncInputLocks);

syncInputLocks();
loadMeta();
</script>
</body>
</html>`

// devPage 回傳內嵌 HTML（single page）。這裡不做 templating，降低 dev tool 維護成本。
func devPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(devPageHTML))
}

// favicon 提供 Dev Panel 的 favicon.svg。
func favicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write([]byte(faviconSVG))
}

// devMeta 回傳 Catalog summary（JSON）。
//
// 前端依賴欄位：
//   - sid / id / SID
//   - name
//   - engine / reference / workloads
func devMeta(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		lab, ok := getLab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("mtlab is required"))
			return
		}
		sum, err := lab.Summary()
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sum)
	}
}

// devDraw 執行「可回放」的抽號。
//
// 流程（high level）：
//  1. decode devRequest（JSON body）
//  2. resolve suite（sid/name）→ catalog.Summary
//  3. resolve seed（empty = auto）
//  4. 建立 DevLab → Draws() 或 RestoreDraws()
//
// Snap precedence：若 snap 非空，會走 RestoreDraws(snap, ...)。
func devDraw(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(devRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
		lab, ok := getLab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("mtlab is required"))
			return
		}
		sum, err := resolveSummary(lab, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		if req.Count < 1 {
			httperr.Errs(w, errs.NewWarn("count is required"))
			return
		}
		width := strings.TrimSpace(req.Width)
		if width == "" {
			width = spec.WidthU32.String()
		}
		snap := strings.TrimSpace(req.Snap)
		seed, err := resolveSeed(req.Seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		dl, err := lab.NewDevLab(sum.SID, seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		var report mtlab.DevDrawReport
		if snap != "" {
			report, err = dl.RestoreDraws(snap, width, req.Count)
		} else {
			report, err = dl.Draws(width, req.Count)
		}
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}

// devVerify 執行單 seed 等價檢定。
//
// 和 devDraw 的差異：
//   - devVerify 不回逐筆取值（降低 response size），僅回 DevVerifyReport（statistic）。
//   - snap 在這裡沒有意義（檢定從出生 seed 起跑），提供 snap 會回 Warn。
func devVerify(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(devRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
		lab, ok := getLab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("mtlab is required"))
			return
		}
		sum, err := resolveSummary(lab, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		draws := req.Draws
		if draws < 1 {
			draws = req.Count
		}
		if draws < 1 {
			httperr.Errs(w, errs.NewWarn("draws is required"))
			return
		}
		if strings.TrimSpace(req.Snap) != "" {
			httperr.Errs(w, errs.NewWarn("verify starts from the birth seed; snap is not supported"))
			return
		}
		seed, err := resolveSeed(req.Seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		dl, err := lab.NewDevLab(sum.SID, seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		report, err := dl.Verify(draws)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(report)
	}
}

// devInspect 解開 snapshot 顯示內部狀態。
//
// snap 留空時回傳出生快照的內部狀態（等同 Inspect("")）。
func devInspect(cfg *svrcfg.SvrCfg) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(devRequest)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			httperr.Errs(w, errs.NewWarn("invalid json:"+err.Error()))
			return
		}
		lab, ok := getLab(cfg)
		if !ok {
			httperr.Errs(w, errs.NewFatal("mtlab is required"))
			return
		}
		sum, err := resolveSummary(lab, req)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		seed, err := resolveSeed(req.Seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		dl, err := lab.NewDevLab(sum.SID, seed)
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		inspect, err := dl.Inspect(strings.TrimSpace(req.Snap))
		if err != nil {
			httperr.Errs(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(inspect)
	}
}

// getLab 從 server config 取得已組裝的 Lab instance。
// Dev routes 不負責組裝（assembler），只負責使用（runtime entry）。
func getLab(cfg *svrcfg.SvrCfg) (*mtlab.Lab, bool) {
	if cfg == nil || cfg.Lab == nil {
		return nil, false
	}
	return cfg.Lab, true
}

// resolveSummary 解析使用者指定的套件：
//   - 若 sid > 0：以 sid 精準匹配（fast path）。
//   - 否則若 suite(name) 非空：先做 case-insensitive name 匹配；也允許把 suite 當作數字字串解析成 sid。
//
// 回傳 catalog.Summary 作為後續操作的依據。
func resolveSummary(lab *mtlab.Lab, req *devRequest) (catalog.Summary, error) {
	sums, err := lab.Summary()
	if err != nil {
		return catalog.Summary{}, err
	}
	if req.SID > 0 {
		sid := spec.SID(req.SID)
		for _, s := range sums {
			if s.SID == sid {
				return s, nil
			}
		}
		return catalog.Summary{}, errs.NewWarn("sid not found")
	}
	name := strings.TrimSpace(req.Suite)
	if name != "" {
		for _, s := range sums {
			if strings.EqualFold(s.Name, name) {
				return s, nil
			}
		}
		if sid, err := strconv.ParseUint(name, 10, 64); err == nil {
			ss := spec.SID(sid)
			for _, s := range sums {
				if s.SID == ss {
					return s, nil
				}
			}
		}
		return catalog.Summary{}, errs.NewWarn("suite not found")
	}
	return catalog.Summary{}, errs.NewWarn("suite is required")
}

// resolveSeed 解析 seed（int64 string）。
//   - 空字串：自動生成 seed（crypto/rand），方便快速測試。
//   - 非空：必須為合法 int64。
func resolveSeed(seed string) (int64, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return randomSeed()
	}
	v, err := strconv.ParseInt(seed, 10, 64)
	if err != nil {
		return 0, errs.NewWarn("seed must be int64")
	}
	return v, nil
}

// randomSeed 使用 crypto/rand 產生 [0, MaxInt64) 的種子。
// 目的：避免 math/rand 的 deterministic 來源造成 seed 品質偏差（dev tool 也要可依賴）。
func randomSeed() (int64, error) {
	rnd, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0, errs.NewWarn("seed generate failed")
	}
	return rnd.Int64(), nil
}

//go:embed favicon.svg
var faviconSVG string

// keep embed imported even if only used for directives
var _ embed.FS
