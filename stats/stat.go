package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// VerifyReport 驗證統計報告
type VerifyReport struct {
	Summary *SummaryReport `json:"Summary"`
	Bits    *BitReport     `json:"Bits"`
	Dist    *DistReport    `json:"Dist"`
	Capture *CaptureReport `json:"Capture,omitzero"`
	isDone  bool
}

type SummaryReport struct {
	SuiteName     string         `json:"SuiteName"`
	SuiteId       spec.SID       `json:"SuiteId"`
	Engine        core.EngineKey `json:"Engine"`
	Reference     core.EngineKey `json:"Reference"`
	SeedLo        uint32         `json:"SeedLo"`
	SeedHi        uint32         `json:"SeedHi"`
	Seeds         int            `json:"Seeds"`
	DrawsPerSeed  int            `json:"DrawsPerSeed"`
	DrawsCompared int64          `json:"DrawsCompared"`
	I31Draws      int64          `json:"I31Draws"`
	Mismatches    int64          `json:"Mismatches"`
	MatchRate     float64        `json:"MatchRate"`
	MatchCI       CI             `json:"MatchCI"`
	XorFold       uint32         `json:"XorFold"`
	XorFoldHex    string         `json:"XorFoldHex"`
	Passed        bool           `json:"Passed"`
}

// BitReport 位元落點統計
//
// 紀錄時只累積set計數，避免轉型成本。紀錄完成後Done()會將比例整理填入
type BitReport struct {
	Draws         int64     `json:"Draws"`
	BitOnes       []int64   `json:"BitOnes"`
	BitRatio      []float64 `json:"BitRatio"`
	WorstBit      int       `json:"WorstBit"`
	WorstBitRatio float64   `json:"WorstBitRatio"`
	MaxBitBias    float64   `json:"MaxBitBias"`
}

// DistReport 值域區間落點統計
type DistReport struct {
	ValueBucket  []string  `json:"ValueBucket"`
	ValueCollect []int64   `json:"ValueCollect"`
	ValueDist    []float64 `json:"ValueDist"`
	MinDraw      uint32    `json:"MinDraw"`
	MaxDraw      uint32    `json:"MaxDraw"`
}

// CaptureReport 不一致樣本收集
//
// 需設定 capture 上限才會收集
type CaptureReport struct {
	Limit int        `json:"Limit"`
	Items []Mismatch `json:"Items"`
}

// Mismatch 單筆不一致紀錄
//
// Kind 標記失配發生在哪種取值 ("u32" / "i31")
type Mismatch struct {
	Seed  uint32 `json:"Seed"`
	Index int    `json:"Index"`
	Got   uint32 `json:"Got"`
	Want  uint32 `json:"Want"`
	Kind  string `json:"Kind"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 所有比對過程因為性能原因只處理整數計數，所以比對完成後
//
// 請使用 Done 來通知報告累積已經完成，可以一次性計算統計結果
func (s *VerifyReport) Done() {
	if s.isDone {
		return
	}
	// Summary
	s.Summary.MatchRate = s.MatchRate()
	s.Summary.MatchCI = s.Ci()
	s.Summary.XorFoldHex = fmt.Sprintf("%08x", s.Summary.XorFold)
	s.Summary.Passed = s.Summary.DrawsCompared > 0 && s.Summary.Mismatches == 0

	// Bits
	s.Bits.BitRatio = s.BitRatios()
	s.Bits.WorstBit, s.Bits.WorstBitRatio = s.WorstBit()
	s.Bits.MaxBitBias = math.Abs(s.Bits.WorstBitRatio - 0.5)

	s.isDone = true
}

// MatchRate 回傳整體一致率（一致比對數 / 總比對數）
func (s *VerifyReport) MatchRate() float64 {
	if s.Summary.DrawsCompared == 0 {
		return 0
	}
	return 1.0 - (float64(s.Summary.Mismatches) / float64(s.Summary.DrawsCompared))
}

// Ci 回傳(95% 一致率)信賴區間
func (s *VerifyReport) Ci() CI {
	p := s.MatchRate()
	pSe := float64(0)
	if s.Summary.DrawsCompared > 1 {
		pSe = math.Sqrt(p * (1 - p) / float64(s.Summary.DrawsCompared))
	}
	ci := CI{
		Lo: max(p-1.96*pSe, 0.0),
		Hi: min(p+1.96*pSe, 1.0),
	}
	return ci
}

// BitRatios 回傳每個位元位置的set比例
func (s *VerifyReport) BitRatios() []float64 {
	ratios := make([]float64, len(s.Bits.BitOnes))
	if s.Bits.Draws == 0 {
		return ratios
	}
	draws := float64(s.Bits.Draws)
	for i, ones := range s.Bits.BitOnes {
		ratios[i] = float64(ones) / draws
	}
	return ratios
}

// WorstBit 回傳偏離0.5最遠的位元位置與其set比例
func (s *VerifyReport) WorstBit() (int, float64) {
	worst := 0
	worstRatio := 0.0
	maxBias := -1.0
	for i, r := range s.BitRatios() {
		if bias := math.Abs(r - 0.5); bias > maxBias {
			maxBias = bias
			worst = i
			worstRatio = r
		}
	}
	return worst, worstRatio
}

func (s *VerifyReport) WriteWith(w io.Writer, rep VerifyReportRender) error {
	s.Done()
	return rep.Write(w, s)
}

func (s *VerifyReport) StdOut(ut time.Duration) {
	formatDuration(ut, s.Summary.DrawsCompared)
	sk, sm := s.fmtBasic()
	str := fmtTable(s.Summary.SuiteName, sk, sm)
	fmt.Println(str)
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, draws int64) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	dps := int64(float64(draws) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\ndps : %d draws/sec\n", sec, dps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		s = s % 60
		p.Printf("used: %dm %ds\ndps : %d draws/sec\n", m, s, dps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\ndps : %d draws/sec\n", h, m, s, dps)
}

// StdOut

func (s *VerifyReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	result := "FAIL"
	if s.Summary.Passed {
		result = "PASS"
	}
	basic := map[string]string{
		"Suite Name":     p.Sprintf("%s", s.Summary.SuiteName),
		"Suite ID":       fmt.Sprintf("%d", s.Summary.SuiteId),
		"Engine":         fmt.Sprintf("%s vs %s", s.Summary.Engine, s.Summary.Reference),
		"Seed Range":     fmt.Sprintf("[%d,%d]", s.Summary.SeedLo, s.Summary.SeedHi),
		"Seeds":          p.Sprintf("%d", s.Summary.Seeds),
		"Draws / Seed":   p.Sprintf("%d", s.Summary.DrawsPerSeed),
		"Draws Compared": p.Sprintf("%d", s.Summary.DrawsCompared),
		"I31 Draws":      p.Sprintf("%d", s.Summary.I31Draws),
		"Mismatches":     p.Sprintf("%d", s.Summary.Mismatches),
		"Match Rate":     p.Sprintf("%.4f %%", 100.0*s.Summary.MatchRate),
		"Match 95% CI":   p.Sprintf("[%.4f%%,%.4f%%]", 100.0*s.Summary.MatchCI.Lo, 100.0*s.Summary.MatchCI.Hi),
		"Worst Bit":      p.Sprintf("#%d @ %.4f", s.Bits.WorstBit, s.Bits.WorstBitRatio),
		"Xor Fold":       s.Summary.XorFoldHex,
		"Result":         result,
	}
	keys := []string{"Suite Name", "Suite ID", "Engine", "Seed Range", "Seeds", "Draws / Seed", "Draws Compared", "I31 Draws", "Mismatches", "Match Rate", "Match 95% CI", "Worst Bit", "Xor Fold", "Result"}
	return keys, basic
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
