package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zintix-labs/mtlab"
	"github.com/zintix-labs/mtlab/dto"
	"github.com/zintix-labs/mtlab/sdk/core"
	"github.com/zintix-labs/mtlab/spec"
	"github.com/zintix-labs/mtlab/stats"
	"github.com/zintix-labs/mtlab/suites/golden"
	"github.com/zintix-labs/mtlab/suites/suite_configs"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	mode      string
	name      string
	id        spec.SID
	suiteFile string
	seedLo    int64
	seedHi    int64
	draws     int
	mp        int
	count     int
	seed      int64
	pprofmode string
}

type sidFlag struct{ p *spec.SID }

func (f sidFlag) String() string { return fmt.Sprint(uint(*f.p)) }
func (f sidFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return err
	}
	*f.p = spec.SID(uint(u))
	return nil
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.StringVar(&cfg.mode, "mode", "verify", "workload: verify, bench, run")
	flag.Var(sidFlag{&cfg.id}, "suite", "target suite id")
	flag.StringVar(&cfg.suiteFile, "cfg", "", "load suite configs from this yaml's directory instead of the embedded set")
	flag.Int64Var(&cfg.seedLo, "lo", -1, "override seed range low (verify)")
	flag.Int64Var(&cfg.seedHi, "hi", -1, "override seed range high (verify)")
	flag.IntVar(&cfg.draws, "draws", 0, "override draws per seed (verify)")
	flag.IntVar(&cfg.mp, "mp", 0, "number of workers, 0 = suite setting")
	flag.IntVar(&cfg.count, "n", 10000000, "u32 draws to pull (run)")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// given seed illeagel -> default seed
	if cfg.seed < 1 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

// 這裡解析並分支要執行的工作負載
func executeLab() {
	cfg.valid() // 基本檢查

	lab, err := buildLab()
	if err != nil {
		log.Fatal(err)
	}
	ent, ok := lab.EntryById(cfg.id)
	if !ok {
		log.Fatalf("suite not found: %d", uint(cfg.id))
	}
	cfg.name = ent.Name
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	switch cfg.mode {
	case "verify":
		v, err := lab.NewVerifier(cfg.id)
		if err != nil {
			log.Fatal(err)
		}
		var (
			st   *stats.VerifyReport
			used time.Duration
		)
		if cfg.seedLo >= 0 || cfg.draws > 0 {
			ss, err := lab.SuiteSettingById(cfg.id)
			if err != nil {
				log.Fatal(err)
			}
			lo, hi := ss.Verify.SeedLo, ss.Verify.SeedHi
			if cfg.seedLo >= 0 {
				lo, hi = uint32(cfg.seedLo), uint32(cfg.seedHi)
			}
			draws := ss.Verify.Draws
			if cfg.draws > 0 {
				draws = cfg.draws
			}
			p.Printf("%s[SUITE:%s] [SEEDS:%d-%d] [DRAWS/SEED:%d]%s\n", green, cfg.name, lo, hi, draws, reset)
			st, used, err = v.VerifySpan(lo, hi, draws, cfg.mp, true)
			if err != nil {
				log.Fatal(err)
			}
		} else {
			p.Printf("%s[SUITE:%s] [WORKERS:%d]%s\n", green, cfg.name, cfg.mp, reset)
			st, used, err = v.VerifyMP(cfg.mp, true)
			if err != nil {
				log.Fatal(err)
			}
		}
		st.StdOut(used)
		stats.EstimatorDrawQuality(st).Out()

	case "bench":
		b, err := lab.NewBencherWithSeed(cfg.id, cfg.seed)
		if err != nil {
			log.Fatal(err)
		}
		p.Printf("%s[SUITE:%s] [SEED:%d]%s\n", green, cfg.name, cfg.seed, reset)
		rep, used, err := b.Bench(true)
		if err != nil {
			log.Fatal(err)
		}
		rep.StdOut(used)

	case "run":
		g, err := lab.NewGeneratorWithSeed(cfg.id, cfg.seed)
		if err != nil {
			log.Fatal(err)
		}
		p.Printf("%s[SUITE:%s] [SEED:%d] [DRAWS:%d]%s\n", green, cfg.name, cfg.seed, cfg.count, reset)
		runDraws(g, p)
	}
}

// runDraws 以固定批次抽滿 cfg.count 筆 u32 並輸出吞吐。
func runDraws(g *mtlab.Generator, p *message.Printer) {
	const batch = 4096
	req := &dto.DrawRequest{
		SuiteName: cfg.name,
		SuiteId:   cfg.id,
		Width:     spec.WidthU32.String(),
	}
	var (
		fold  uint32
		total int
	)
	start := time.Now()
	for total < cfg.count {
		req.Count = min(batch, cfg.count-total)
		res, err := g.Draw(req)
		if err != nil {
			log.Fatal(err)
		}
		for _, u := range res.U32s {
			fold ^= u
		}
		total += req.Count
		req.Session++
	}
	used := time.Since(start)
	sec := used.Seconds()
	p.Printf("draws   : %d\n", total)
	p.Printf("elapsed : %.3fs\n", sec)
	p.Printf("rate    : %.0f draws/s\n", float64(total)/sec)
	p.Printf("xorfold : %08x\n", fold)
}

// buildLab 組裝 Lab：預設走內建套件；-cfg 指向 yaml 時改讀該檔所在目錄。
func buildLab() (*mtlab.Lab, error) {
	if cfg.suiteFile == "" {
		return mtlab.NewAuto(
			mtlab.Engines(core.BuiltinEngines()),
			mtlab.Configs(suite_configs.FS),
			golden.FS,
		)
	}
	if _, err := os.Stat(cfg.suiteFile); err != nil {
		return nil, err
	}
	dir := filepath.Dir(cfg.suiteFile)
	return mtlab.NewAuto(
		mtlab.Engines(core.BuiltinEngines()),
		mtlab.Configs(os.DirFS(dir)),
		golden.FS,
	)
}

func (cfg *config) valid() {
	// 工作負載檢查
	switch cfg.mode {
	case "verify", "bench", "run":
	default:
		log.Fatalf("value err : unknown mode %q (want verify, bench or run)", cfg.mode)
	}

	// 工作協程檢查(併發數)
	if cfg.mp < 0 {
		log.Fatal("value err : workers must >= 0")
	}

	// 種子範圍覆蓋必須成對且合法
	if (cfg.seedLo >= 0) != (cfg.seedHi >= 0) {
		log.Fatal("value err : -lo and -hi must be provided together")
	}
	if cfg.seedLo >= 0 {
		if cfg.seedLo > math.MaxUint32 || cfg.seedHi > math.MaxUint32 {
			log.Fatal("value err : seed range must fit in uint32")
		}
		if cfg.seedHi < cfg.seedLo {
			log.Fatal("value err : -hi must >= -lo")
		}
	}
	if cfg.draws < 0 {
		log.Fatal("value err : draws must >= 0")
	}

	// run 模式抽取筆數檢查
	if cfg.mode == "run" && cfg.count < 1 {
		log.Fatal("value err : draws to pull must > 0")
	}
}
