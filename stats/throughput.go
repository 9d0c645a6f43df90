package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"
)

// BenchReport 吞吐量統計報告
type BenchReport struct {
	SuiteName string         `json:"SuiteName"`
	SuiteId   spec.SID       `json:"SuiteId"`
	Engine    core.EngineKey `json:"Engine"`
	Baseline  core.EngineKey `json:"Baseline,omitzero"`
	PrimeMS   int            `json:"PrimeMS"`
	Scales    []*ScaleReport `json:"Scales"`
	isDone    bool
}

// ScaleReport 單一批量規模的吞吐結果
//
// Rates 單位為 draws/sec。紀錄時只收各批次原始速率，
// 紀錄完成後Done()會將摘要統計填入
type ScaleReport struct {
	Scale         float64   `json:"Scale"`
	DrawsPerBatch int       `json:"DrawsPerBatch"`
	Batches       int       `json:"Batches"`
	Rates         []float64 `json:"Rates"`
	Mean          float64   `json:"Mean"`
	Std           float64   `json:"Std"`
	Median        PointStat `json:"Median"`
	Best          float64   `json:"Best"`
	Worst         float64   `json:"Worst"`
	BaselineMean  float64   `json:"BaselineMean,omitzero"`
	Speedup       float64   `json:"Speedup,omitzero"`
	XorFold       uint32    `json:"XorFold"`
	XorFoldHex    string    `json:"XorFoldHex"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將各規模的原始批次速率整理為摘要統計並鎖定 isDone 標記。
func (b *BenchReport) Done() {
	if b.isDone {
		return
	}
	for _, sc := range b.Scales {
		sc.fill()
	}
	b.isDone = true
}

func (b *BenchReport) WriteWith(w io.Writer, rep BenchReportRender) error {
	b.Done()
	return rep.Write(w, b)
}

func (b *BenchReport) StdOut(ut time.Duration) {
	total := int64(0)
	for _, sc := range b.Scales {
		total += int64(sc.DrawsPerBatch) * int64(sc.Batches)
	}
	formatDuration(ut, total)
	for _, sc := range b.Scales {
		sk, sm := sc.fmtBasic(b)
		str := fmtTable(fmt.Sprintf("%s x%g", b.SuiteName, sc.Scale), sk, sm)
		fmt.Println(str)
	}
}

// ============================================================
// ** 內部方法 **
// ============================================================

func (sc *ScaleReport) fill() {
	sc.XorFoldHex = fmt.Sprintf("%08x", sc.XorFold)
	if len(sc.Rates) == 0 {
		return
	}

	mean, std := stat.MeanStdDev(sc.Rates, nil)
	if len(sc.Rates) < 2 {
		std = 0
	}
	sc.Mean = mean
	sc.Std = std

	best := sc.Rates[0]
	worst := sc.Rates[0]
	for _, r := range sc.Rates[1:] {
		if r > best {
			best = r
		}
		if r < worst {
			worst = r
		}
	}
	sc.Best = best
	sc.Worst = worst

	lo, hi := quantileCI(sc.Rates, 0.5, 0.95)
	sc.Median = PointStat{
		Hat: quantilePoint(sc.Rates, 0.5),
		CI:  CI{Lo: lo, Hi: hi},
	}

	if sc.BaselineMean > 0 {
		sc.Speedup = sc.Mean / sc.BaselineMean
	}
}

func (sc *ScaleReport) fmtBasic(b *BenchReport) ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Engine":        string(b.Engine),
		"Draws / Batch": p.Sprintf("%d", sc.DrawsPerBatch),
		"Batches":       p.Sprintf("%d", sc.Batches),
		"Mean":          fmtRate(sc.Mean),
		"Median":        fmtRate(sc.Median.Hat),
		"Best":          fmtRate(sc.Best),
		"Worst":         fmtRate(sc.Worst),
		"Std":           fmtRate(sc.Std),
		"Xor Fold":      sc.XorFoldHex,
	}
	keys := []string{"Engine", "Draws / Batch", "Batches", "Mean", "Median", "Best", "Worst", "Std", "Xor Fold"}
	if sc.BaselineMean > 0 {
		basic["Baseline"] = fmt.Sprintf("%s (%s)", fmtRate(sc.BaselineMean), b.Baseline)
		basic["Speedup"] = fmt.Sprintf("%.2fx", sc.Speedup)
		keys = append(keys, "Baseline", "Speedup")
	}
	return keys, basic
}

// fmtRate 短級距速率標記 (k/m/b draws/sec)
func fmtRate(r float64) string {
	switch {
	case r >= 1e9:
		return fmt.Sprintf("%.2fb draws/sec", r/1e9)
	case r >= 1e6:
		return fmt.Sprintf("%.2fm draws/sec", r/1e6)
	case r >= 1e3:
		return fmt.Sprintf("%.2fk draws/sec", r/1e3)
	default:
		return fmt.Sprintf("%.0f draws/sec", r)
	}
}
