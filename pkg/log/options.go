// Copyright 2025 The Autopeer Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
)

// Options configure the process logger. They live under the "log" key.
type Options struct {
	// Name is added to every entry, e.g. "cbr-gateway".
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Level is one of debug, info, warn or error. The agent reapplies it on reload.
	Level string `json:"level,omitempty" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format,omitempty" mapstructure:"format"`

	EnableColor   bool `json:"enable-color,omitempty" mapstructure:"enable-color"`
	DisableCaller bool `json:"disable-caller,omitempty" mapstructure:"disable-caller"`

	// CallerSkip accounts for the package level wrappers.
	CallerSkip int `json:"caller-skip,omitempty" mapstructure:"caller-skip"`

	OutputPaths []string `json:"output-paths,omitempty" mapstructure:"output-paths"`
}

func NewOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "console",
		EnableColor: true,
		CallerSkip:  2,
		OutputPaths: []string{"stdout"},
	}
}

func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(o.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is not a log level", o.Level))
	}
	if o.Format != "json" && o.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", o.Format))
	}
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Name, "log.name", o.Name, "Logger name added to every entry.")
	fs.StringVar(&o.Level, "log.level", o.Level, "Minimum level: debug, info, warn or error.")
	fs.StringVar(&o.Format, "log.format", o.Format, "Output format: json or console.")
	fs.BoolVar(&o.EnableColor, "log.enable-color", o.EnableColor, "Colorize levels in console output.")
	fs.BoolVar(&o.DisableCaller, "log.disable-caller", o.DisableCaller, "Omit the calling file and line.")
	fs.IntVar(&o.CallerSkip, "log.caller-skip", o.CallerSkip, "Caller frames to skip.")
	fs.StringSliceVar(&o.OutputPaths, "log.output-paths", o.OutputPaths, "Log destinations, e.g. stdout or /var/log/canbridge.log.")
}
