//go:build !withcv

package motion

func newSubtractor(cfg Config) Subtractor {
	return NewBackgroundModel(cfg.History, cfg.VarThreshold, cfg.DetectShadows)
}
