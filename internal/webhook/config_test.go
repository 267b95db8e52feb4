package webhook

import (
	"testing"

	"github.com/mattjoyce/slackagent/internal/config"
)

func TestParseMaxBodySize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "", want: DefaultMaxBodySize},
		{in: "1048576", want: 1048576},
		{in: "64KB", want: 64 * 1024},
		{in: "2mb", want: 2 * 1024 * 1024},
		{in: " 1 GB ", want: 1024 * 1024 * 1024},
		{in: "0", wantErr: true},
		{in: "-5KB", wantErr: true},
		{in: "lots", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMaxBodySize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMaxBodySize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseMaxBodySize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromSlackConfig(t *testing.T) {
	if _, err := FromSlackConfig(config.SlackConfig{Listen: ":3000"}); err == nil {
		t.Error("expected error without signing secret")
	}

	cfg, err := FromSlackConfig(config.SlackConfig{Listen: ":3000", SigningSecret: "s", MaxBodySize: "64KB"})
	if err != nil {
		t.Fatalf("FromSlackConfig() error = %v", err)
	}
	if cfg.Listen != ":3000" || cfg.SigningSecret != "s" || cfg.MaxBodySize != 64*1024 {
		t.Errorf("FromSlackConfig() = %+v", cfg)
	}
}
