package options

import (
	"testing"

	"github.com/autopeer-io/canbridge/pkg/options"
)

func TestAgentOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(o *AgentOptions)
		wantErr bool
	}{
		{name: "defaults", modify: func(o *AgentOptions) {}},
		{
			name:    "bad mmi id",
			modify:  func(o *AgentOptions) { o.MMIOptions.ID = "0x900" },
			wantErr: true,
		},
		{
			name:   "disabled module is not checked",
			modify: func(o *AgentOptions) { o.MFSWOptions.ID = "zz" },
		},
		{
			name: "unused driver is not checked",
			modify: func(o *AgentOptions) {
				o.PubSubOptions.Driver = options.PubSubDriverRedis
				o.MqttOptions.Broker = ""
			},
		},
		{
			name: "selected driver is checked",
			modify: func(o *AgentOptions) {
				o.PubSubOptions.Driver = options.PubSubDriverRedis
				o.RedisOptions.Addr = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewAgentOptions()
			tt.modify(o)
			if err := o.Complete(); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			err := o.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAgentOptionsConfig(t *testing.T) {
	o := NewAgentOptions()
	o.Log.Level = "warn"
	cfg := o.Config()
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.MMI != o.MMIOptions || cfg.Actions != o.ActionOptions {
		t.Error("Config() does not share the option groups")
	}
}
