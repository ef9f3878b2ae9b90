package source

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/can"
	"github.com/autopeer-io/canbridge/pkg/options"
)

const (
	MatchSignature = "signature"
	MatchByte      = "byte"
)

var _ options.IOptions = (*Options)(nil)

type Options struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	ID      string `json:"id" mapstructure:"id"`

	// Match selects how the active source is recognised: a full payload
	// signature or one designated byte.
	Match      string   `json:"match" mapstructure:"match"`
	Signatures []string `json:"signatures" mapstructure:"signatures"`
	ByteIndex  int      `json:"byte-index" mapstructure:"byte-index"`
	ByteValue  string   `json:"byte-value" mapstructure:"byte-value"`

	PlayAction  string `json:"play-action" mapstructure:"play-action"`
	PauseAction string `json:"pause-action" mapstructure:"pause-action"`
}

func NewOptions() *Options {
	return &Options{
		Enabled:     true,
		ID:          "0x661",
		Match:       MatchSignature,
		Signatures:  []string{"8101123700000000", "8301123700000000"},
		ByteIndex:   0,
		ByteValue:   "0x81",
		PlayAction:  string(core.PlayPause),
		PauseAction: string(core.PlayPause),
	}
}

func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}
	_, errs := o.resolve()
	return errs
}

func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "source.enabled", o.Enabled, "Play and pause when the head unit switches to and from this source.")
	fs.StringVar(&o.ID, "source.id", o.ID, "Frame identifier of the source status.")
	fs.StringVar(&o.Match, "source.match", o.Match, "How the active source is recognised: 'signature' or 'byte'.")
	fs.StringSliceVar(&o.Signatures, "source.signatures", o.Signatures, "Hex payloads that mean the source is active.")
	fs.IntVar(&o.ByteIndex, "source.byte-index", o.ByteIndex, "Payload byte compared in byte mode.")
	fs.StringVar(&o.ByteValue, "source.byte-value", o.ByteValue, "Hex value of the designated byte that means the source is active.")
	fs.StringVar(&o.PlayAction, "source.play-action", o.PlayAction, "Action fired when the source becomes active.")
	fs.StringVar(&o.PauseAction, "source.pause-action", o.PauseAction, "Action fired when the source becomes inactive.")
}

type resolved struct {
	id      uint32
	matcher Matcher
	play    core.Action
	pause   core.Action
}

func (o *Options) resolve() (resolved, []error) {
	var r resolved
	errs := []error{}

	id, err := can.ParseID(o.ID)
	if err != nil {
		errs = append(errs, fmt.Errorf("source.id: %w", err))
	}
	r.id = id

	switch o.Match {
	case MatchSignature:
		sigs := make([][]byte, 0, len(o.Signatures))
		for _, s := range o.Signatures {
			b, err := hex.DecodeString(strings.TrimSpace(s))
			if err != nil || len(b) == 0 || len(b) > can.MaxDataLen {
				errs = append(errs, fmt.Errorf("source.signatures: invalid payload %q", s))
				continue
			}
			sigs = append(sigs, b)
		}
		if len(o.Signatures) == 0 {
			errs = append(errs, fmt.Errorf("source.signatures must not be empty"))
		}
		r.matcher = SignatureMatcher(sigs)
	case MatchByte:
		if o.ByteIndex < 0 || o.ByteIndex >= can.MaxDataLen {
			errs = append(errs, fmt.Errorf("source.byte-index must be in [0, %d]", can.MaxDataLen-1))
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(o.ByteValue, "0x"), "0X"), 16, 8)
		if err != nil {
			errs = append(errs, fmt.Errorf("source.byte-value: %w", err))
		}
		r.matcher = ByteMatcher{Index: o.ByteIndex, Value: byte(v)}
	default:
		errs = append(errs, fmt.Errorf("source.match %q is not one of signature, byte", o.Match))
	}

	if r.play, err = core.ParseAction(o.PlayAction); err != nil {
		errs = append(errs, fmt.Errorf("source.play-action: %w", err))
	}
	if r.pause, err = core.ParseAction(o.PauseAction); err != nil {
		errs = append(errs, fmt.Errorf("source.pause-action: %w", err))
	}
	return r, errs
}
