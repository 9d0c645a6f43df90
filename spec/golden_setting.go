package spec

import (
	"github.com/zintix-labs/mtlab/errs"
)

type GoldenSetting struct {
	SelfCheck bool     `yaml:"self_check" json:"self_check"`
	Vectors   []string `yaml:"vectors"    json:"vectors"`
}

// valid validates the GoldenSetting configuration.
// Rules:
// 1) If SelfCheck is true, vectors must be non-empty (there is nothing
//    to replay against otherwise).
// 2) Vector entries must be non-empty file names.
func (s GoldenSetting) valid() error {
	if !s.SelfCheck {
		return nil
	}

	if len(s.Vectors) == 0 {
		return errs.NewFatal("golden_setting: vectors must not be empty when self_check=true")
	}
	for _, v := range s.Vectors {
		if v == "" {
			return errs.NewFatal("golden_setting: empty vector file name")
		}
	}
	return nil
}
