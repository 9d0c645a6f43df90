package main

import "github.com/zintix-labs/mtlab/sdk/perf"

// makefile runner
func main() {
	bindVar()
	perf.RunPProf(executeLab, cfg.pprofmode)
}
