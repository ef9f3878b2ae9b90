package topic

import "testing"

func TestBuilder(t *testing.T) {
	tests := []struct {
		root  string
		frame string
		tx    string
	}{
		{"canbridge/v1", "canbridge/v1/frames/CAN_461", "canbridge/v1/tx"},
		{"canbridge/v1/", "canbridge/v1/frames/CAN_461", "canbridge/v1/tx"},
		{"", "frames/CAN_461", "tx"},
	}
	for _, tt := range tests {
		b := NewBuilder(tt.root)
		if got := b.Frame(0x461); got != tt.frame {
			t.Errorf("root %q: Frame = %q, want %q", tt.root, got, tt.frame)
		}
		if got := b.Tx(); got != tt.tx {
			t.Errorf("root %q: Tx = %q, want %q", tt.root, got, tt.tx)
		}
	}

	if got := NewBuilder("canbridge/v1").FrameWildcard(); got != "canbridge/v1/frames/+" {
		t.Errorf("FrameWildcard = %q", got)
	}
}
