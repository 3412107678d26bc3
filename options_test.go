package yavc

import (
	"testing"

	"github.com/pkg/errors"
)

func TestDefaultOptions_Valid(t *testing.T) {
	if err := validateConfig(DefaultOptions()); err != nil {
		t.Errorf("DefaultOptions invalid: %v", err)
	}
}

func TestResolveOptions(t *testing.T) {
	opts := DefaultOptions()
	if got := resolveErrorThreshold(opts.ErrorThreshold); got != DefaultErrorThreshold {
		t.Errorf("error threshold = %v, want %v", got, DefaultErrorThreshold)
	}
	if got := resolveSearchWindow(opts.SearchWindow); got != DefaultSearchWindow {
		t.Errorf("search window = %d, want %d", got, DefaultSearchWindow)
	}
	if got := resolveThreshold(opts.ResidualThresholdY, DefaultResidualThresholdY); got != DefaultResidualThresholdY {
		t.Errorf("residual Y = %v, want %v", got, DefaultResidualThresholdY)
	}
	if got := resolveThreshold(0, DefaultResidualThresholdUV); got != 0 {
		t.Errorf("residual UV 0 = %v, want 0", got)
	}
	if got := resolveCompressionLevel(opts.CompressionLevel); got != DefaultCompressionLevel {
		t.Errorf("compression = %d, want %d", got, DefaultCompressionLevel)
	}
	if resolveLogger(nil) == nil {
		t.Error("resolveLogger(nil) = nil")
	}
}

func TestResolveDeblockStrength(t *testing.T) {
	tests := []struct {
		v        int
		disabled bool
		want     int
	}{
		{-1, false, DefaultDeblockStrength},
		{0, false, 0},
		{30, false, 30},
		{30, true, -1},
		{-1, true, -1},
	}
	for _, tt := range tests {
		if got := resolveDeblockStrength(tt.v, tt.disabled); got != tt.want {
			t.Errorf("resolveDeblockStrength(%d, %v) = %d, want %d", tt.v, tt.disabled, got, tt.want)
		}
	}
}

func TestValidateConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*EncoderOptions)
	}{
		{"search window", func(o *EncoderOptions) { o.SearchWindow = maxSearchWindow + 1 }},
		{"deblock", func(o *EncoderOptions) { o.DeblockStrength = maxDeblock + 1 }},
		{"compression", func(o *EncoderOptions) { o.CompressionLevel = maxCompression + 1 }},
		{"residual", func(o *EncoderOptions) { o.ResidualThresholdY = 256 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(opts)
			err := validateConfig(opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if _, ok := err.(interface{ StackTrace() errors.StackTrace }); !ok {
				t.Errorf("err %v carries no stack trace", err)
			}
		})
	}
	if _, ok := validateDimensions(30, 32).(interface{ StackTrace() errors.StackTrace }); !ok {
		t.Error("validateDimensions(30, 32): error carries no stack trace")
	}
}
