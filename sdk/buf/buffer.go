package buf

import (
	"math"

	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
)

const capDrawGrow int = 4096

// DrawResult 保存一次完整 Draw 批次的結果。
//
// Buffer 語意：
//   - DrawResult 會被重用（避免 GC），每次 Draw 會覆寫內容；
//     需要保留結果時請在離開臨界區前轉成 DTO（或自行 copy 欄位）。
//   - U32s 同時承載 u32 與 i31 兩種寬度；i31 存的是遮罩後的值（最高位必為 0）。
//   - XorFold 是整批輸出的 XOR 摺疊，作為輕量審計摘要；
//     浮點輸出以 IEEE 754 位元模式摺疊（高低 32 位互斥或）。
type DrawResult struct {
	SuiteName  string         // 套件名稱
	SuiteId    spec.SID       // 套件編號
	Engine     core.EngineKey // 產出本批的引擎
	Width      spec.DrawWidth // 本批輸出形態
	Session    int            // 第幾段會話（由請求帶入，原樣回傳）
	DrawCount  int            // 已累積筆數
	U32s       []uint32       // 32 位元輸出（WidthU32 / WidthI31）
	F64s       []float64      // 浮點輸出（WidthF64）
	XorFold    uint32         // 全批 XOR 摺疊
	State      *DrawState     // 批次前後的引擎快照
	IsBatchEnd bool           // 批次結束旗標
}

// DrawState 保存一批抽號前後的引擎快照。
//
// 這裡存 raw bytes；對外輸出時由 dto 層轉成 Base64URL 字串。
type DrawState struct {
	StartCoreSnap []byte // 本批起點快照（新批為引擎當下狀態；續抽為請求帶入的快照）
	AfterCoreSnap []byte // 本批終點快照（下一段續抽的 start）
}

// NewDrawResult 建立指定套件的 DrawResult 實體，並預先配置基本容量。
func NewDrawResult(ss *spec.SuiteSetting) *DrawResult {
	capHint := capDrawGrow
	if ss.Draw.MaxDraws > 0 && ss.Draw.MaxDraws < capHint {
		capHint = ss.Draw.MaxDraws
	}
	dr := &DrawResult{
		SuiteName:  ss.SuiteName,
		SuiteId:    ss.SuiteID,
		Engine:     ss.Engine,
		Width:      ss.Draw.DefaultWidth,
		Session:    0,
		DrawCount:  0,
		U32s:       make([]uint32, 0, capHint),
		F64s:       make([]float64, 0, capHint),
		XorFold:    0,
		State:      &DrawState{},
		IsBatchEnd: false,
	}
	return dr
}

// AppendU32 將單筆 32 位元輸出累積到 DrawResult（u32 與 i31 寬度共用）。
func (d *DrawResult) AppendU32(v uint32) {
	if d.IsBatchEnd {
		panic("draw batch is already end, but still send new draws")
	}
	d.U32s = append(d.U32s, v)
	d.XorFold ^= v
	d.DrawCount++
}

// AppendF64 將單筆浮點輸出累積到 DrawResult。
func (d *DrawResult) AppendF64(v float64) {
	if d.IsBatchEnd {
		panic("draw batch is already end, but still send new draws")
	}
	d.F64s = append(d.F64s, v)
	bits := math.Float64bits(v)
	d.XorFold ^= uint32(bits) ^ uint32(bits>>32)
	d.DrawCount++
}

// End : 結束本批
func (d *DrawResult) End() {
	d.IsBatchEnd = true
}

// Reset 重置累積資料，保留已配置的內部切片容量。
func (d *DrawResult) Reset() {
	d.DrawCount = 0
	d.Session = 0
	d.U32s = d.U32s[:0]
	d.F64s = d.F64s[:0]
	d.XorFold = 0
	d.State.StartCoreSnap = nil
	d.State.AfterCoreSnap = nil
	d.IsBatchEnd = false
}
