package dispatch

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/internal/pkg/pubsub"
	"github.com/autopeer-io/canbridge/pkg/can"
)

type recordingModule struct {
	name string
	ids  []uint32
	seen *[]string
}

func (m *recordingModule) Name() string { return m.name }

func (m *recordingModule) Routes() map[uint32]core.HandlerFunc {
	routes := make(map[uint32]core.HandlerFunc)
	for _, id := range m.ids {
		routes[id] = func(_ context.Context, f can.Frame, _ time.Time) {
			*m.seen = append(*m.seen, m.name+":"+f.String())
		}
	}
	return routes
}

func message(t *testing.T, id uint32, data ...byte) *pubsub.Message {
	t.Helper()
	payload, err := can.Encode(can.Frame{ID: id, Data: data, Timestamp: time.Unix(1700000000, 0)})
	if err != nil {
		t.Fatal(err)
	}
	return &pubsub.Message{Topic: can.Topic(id), Payload: payload}
}

func TestTopics(t *testing.T) {
	var seen []string
	d := New(
		&recordingModule{name: "a", ids: []uint32{0x661, 0x461}, seen: &seen},
		&recordingModule{name: "b", ids: []uint32{0x461}, seen: &seen},
		&recordingModule{name: "c", seen: &seen},
	)
	want := []string{"CAN_461", "CAN_661"}
	if got := d.Topics(); !reflect.DeepEqual(got, want) {
		t.Errorf("Topics = %v, want %v", got, want)
	}
	if got := New().Topics(); len(got) != 0 {
		t.Errorf("empty Topics = %v", got)
	}
}

func TestDispatchOrder(t *testing.T) {
	var seen []string
	d := New(
		&recordingModule{name: "a", ids: []uint32{0x461}, seen: &seen},
		&recordingModule{name: "b", ids: []uint32{0x461, 0x623}, seen: &seen},
	)

	ctx := context.Background()
	d.Dispatch(ctx, message(t, 0x461, 0x37, 0x30, 0x01), time.Now())
	d.Dispatch(ctx, message(t, 0x623, 0x00), time.Now())
	d.Dispatch(ctx, message(t, 0x2C3, 0x03), time.Now())

	want := []string{"a:461#373001", "b:461#373001", "b:623#00"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}

func TestDispatchDropsMalformed(t *testing.T) {
	var seen []string
	d := New(&recordingModule{name: "a", ids: []uint32{0x461}, seen: &seen})

	for _, payload := range []string{
		`not json`,
		`{"timestamp":1,"arbitration_id":1121,"dlc":2,"data_hex":"zz"}`,
		`{"timestamp":1,"arbitration_id":1121,"dlc":3,"data_hex":"0102"}`,
	} {
		d.Dispatch(context.Background(), &pubsub.Message{Topic: "CAN_461", Payload: []byte(payload)}, time.Now())
	}
	if len(seen) != 0 {
		t.Errorf("malformed messages reached handlers: %v", seen)
	}
}
