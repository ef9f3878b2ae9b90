package press

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/options"
)

var (
	_ options.IOptions = (*ThresholdOptions)(nil)
	_ options.IOptions = (*MMIOptions)(nil)
	_ options.IOptions = (*MFSWOptions)(nil)
)

// ThresholdOptions configure the classifiers of every control surface.
type ThresholdOptions struct {
	Cooldown           time.Duration `json:"cooldown" mapstructure:"cooldown"`
	ScrollCooldown     time.Duration `json:"scroll-cooldown" mapstructure:"scroll-cooldown"`
	LongPressCount     int           `json:"long-press-count" mapstructure:"long-press-count"`
	ExtendedPressCount int           `json:"extended-press-count" mapstructure:"extended-press-count"`
}

func NewThresholdOptions() *ThresholdOptions {
	th := DefaultThresholds()
	return &ThresholdOptions{
		Cooldown:           th.Cooldown,
		ScrollCooldown:     th.ScrollCooldown,
		LongPressCount:     th.Long,
		ExtendedPressCount: th.Extended,
	}
}

func (o *ThresholdOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	if o.Cooldown < 0 || o.ScrollCooldown < 0 {
		errs = append(errs, fmt.Errorf("press.cooldown and press.scroll-cooldown must not be negative"))
	}
	if o.LongPressCount < 1 {
		errs = append(errs, fmt.Errorf("press.long-press-count must be at least 1"))
	}
	if o.ExtendedPressCount <= o.LongPressCount {
		errs = append(errs, fmt.Errorf("press.extended-press-count must be greater than press.long-press-count"))
	}
	return errs
}

func (o *ThresholdOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.Cooldown, "press.cooldown", o.Cooldown, "Minimum gap between two short, long or extended actions.")
	fs.DurationVar(&o.ScrollCooldown, "press.scroll-cooldown", o.ScrollCooldown, "Minimum gap between two scroll actions.")
	fs.IntVar(&o.LongPressCount, "press.long-press-count", o.LongPressCount, "Press frames of one hold that make it a long press.")
	fs.IntVar(&o.ExtendedPressCount, "press.extended-press-count", o.ExtendedPressCount, "Press frames of one hold that make it an extended press.")
}

func (o *ThresholdOptions) Thresholds() Thresholds {
	return Thresholds{
		Long:           o.LongPressCount,
		Extended:       o.ExtendedPressCount,
		Cooldown:       o.Cooldown,
		ScrollCooldown: o.ScrollCooldown,
	}
}

// MappingOptions map command codes to action names per tier. An action of
// "none" removes a default entry.
type MappingOptions struct {
	Scroll   map[string]string `json:"scroll" mapstructure:"scroll"`
	Short    map[string]string `json:"short" mapstructure:"short"`
	Long     map[string]string `json:"long" mapstructure:"long"`
	Extended map[string]string `json:"extended" mapstructure:"extended"`
}

func (o *MappingOptions) table(t Tier) map[string]string {
	switch t {
	case TierScroll:
		return o.Scroll
	case TierShort:
		return o.Short
	case TierLong:
		return o.Long
	}
	return o.Extended
}

func (o *MappingOptions) resolve(prefix string) (Mapping, []error) {
	m := Mapping{
		Scroll:   map[Code]core.Action{},
		Short:    map[Code]core.Action{},
		Long:     map[Code]core.Action{},
		Extended: map[Code]core.Action{},
	}

	errs := []error{}
	for _, t := range Tiers {
		for k, v := range o.table(t) {
			code, err := ParseCode(k)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", prefix, t, err))
				continue
			}
			a, err := core.ParseAction(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s.%s.%s: %w", prefix, t, code, err))
				continue
			}
			if a == core.None {
				continue
			}
			m.Table(t)[code] = a
		}
	}

	for code := range m.Scroll {
		for _, t := range Tiers[1:] {
			if _, ok := m.Table(t)[code]; ok {
				errs = append(errs, fmt.Errorf("%s: code %s is mapped both as scroll and as %s", prefix, code, t))
			}
		}
	}
	return m, errs
}

func (o *MappingOptions) addFlags(fs *pflag.FlagSet, prefix string) {
	fs.StringToStringVar(&o.Scroll, prefix+".scroll", o.Scroll, "Scroll command codes and their actions.")
	fs.StringToStringVar(&o.Short, prefix+".short", o.Short, "Short press command codes and their actions.")
	fs.StringToStringVar(&o.Long, prefix+".long", o.Long, "Long press command codes and their actions.")
	fs.StringToStringVar(&o.Extended, prefix+".extended", o.Extended, "Extended press command codes and their actions.")
}

// MMIOptions configure the infotainment control panel.
type MMIOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	ID      string `json:"id" mapstructure:"id"`

	MappingOptions `mapstructure:",squash"`
}

func NewMMIOptions() *MMIOptions {
	return &MMIOptions{
		Enabled: true,
		ID:      "0x461",
		MappingOptions: MappingOptions{
			Scroll: map[string]string{"0020": "2", "0040": "1"},
			Short: map[string]string{
				"0100": "v", "0200": "n", "4000": "up", "8000": "down",
				"0010": "enter", "0002": "escape", "0001": "h",
			},
			Long:     map[string]string{"0010": "play_pause", "0002": "home", "0001": "m", "4000": "p"},
			Extended: map[string]string{"0002": "restart_frontend"},
		},
	}
}

func (o *MMIOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errs := []error{}
	if _, err := can.ParseID(o.ID); err != nil {
		errs = append(errs, fmt.Errorf("mmi.id: %w", err))
	}
	_, merrs := o.resolve("mmi")
	return append(errs, merrs...)
}

func (o *MMIOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "mmi.enabled", o.Enabled, "Translate MMI control panel presses into actions.")
	fs.StringVar(&o.ID, "mmi.id", o.ID, "Frame identifier of the MMI control panel.")
	o.addFlags(fs, "mmi")
}

// Mapping returns the resolved code tables.
func (o *MMIOptions) Mapping() (Mapping, error) {
	m, errs := o.resolve("mmi")
	return m, utilerrors.NewAggregate(errs)
}

// MFSWOptions configure the multi-function steering wheel.
type MFSWOptions struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	ID      string `json:"id" mapstructure:"id"`

	// ReleaseCodes end every hold in progress.
	ReleaseCodes []string `json:"release-codes" mapstructure:"release-codes"`

	MappingOptions `mapstructure:",squash"`
}

func NewMFSWOptions() *MFSWOptions {
	return &MFSWOptions{
		Enabled:      false,
		ID:           "0x5C3",
		ReleaseCodes: []string{"3900", "3A00"},
		MappingOptions: MappingOptions{
			Scroll:   map[string]string{"3904": "up", "3905": "down"},
			Short:    map[string]string{"3908": "enter"},
			Long:     map[string]string{"3908": "escape"},
			Extended: map[string]string{},
		},
	}
}

func (o *MFSWOptions) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	errs := []error{}
	if _, err := can.ParseID(o.ID); err != nil {
		errs = append(errs, fmt.Errorf("mfsw.id: %w", err))
	}
	m, merrs := o.resolve("mfsw")
	errs = append(errs, merrs...)
	if len(o.ReleaseCodes) == 0 {
		errs = append(errs, fmt.Errorf("mfsw.release-codes must not be empty"))
	}
	for _, s := range o.ReleaseCodes {
		code, err := ParseCode(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("mfsw.release-codes: %w", err))
			continue
		}
		if m.mapped(code) {
			errs = append(errs, fmt.Errorf("mfsw.release-codes: %s is also mapped to an action", code))
		}
	}
	return errs
}

func (o *MFSWOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "mfsw.enabled", o.Enabled, "Translate steering wheel presses into actions.")
	fs.StringVar(&o.ID, "mfsw.id", o.ID, "Frame identifier of the steering wheel controls.")
	fs.StringSliceVar(&o.ReleaseCodes, "mfsw.release-codes", o.ReleaseCodes, "Command codes that release every held control.")
	o.addFlags(fs, "mfsw")
}

func (o *MFSWOptions) Mapping() (Mapping, error) {
	m, errs := o.resolve("mfsw")
	return m, utilerrors.NewAggregate(errs)
}

func (o *MFSWOptions) releaseCodes() (map[Code]struct{}, error) {
	out := make(map[Code]struct{}, len(o.ReleaseCodes))
	for _, s := range o.ReleaseCodes {
		code, err := ParseCode(s)
		if err != nil {
			return nil, err
		}
		out[code] = struct{}{}
	}
	return out, nil
}
