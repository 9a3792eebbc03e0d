package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/nabekah/farmkonnect-production-sub012/internal/event"
)

type fakeTaskAcker struct {
	calls []struct{ taskID, userID int64 }
	err   error
}

func (f *fakeTaskAcker) AcknowledgeTask(ctx context.Context, taskID, userID int64) error {
	f.calls = append(f.calls, struct{ taskID, userID int64 }{taskID, userID})
	return f.err
}

func newRouterFixture(tasks *fakeTaskAcker) (*Registry, *Router) {
	reg := NewRegistry(nil)
	b := NewBroadcaster(reg, nil)
	if tasks == nil {
		return reg, NewRouter(b, nil, nil)
	}
	return reg, NewRouter(b, tasks, nil)
}

func TestRouterPingAnsweredToSenderOnly(t *testing.T) {
	reg, r := newRouterFixture(nil)
	sender, _ := testSession("c1", 1, 7)
	peer, _ := testSession("c2", 2, 7)
	reg.Register(sender)
	reg.Register(peer)

	sender.probe() // clear liveness so the ping's refresh is observable
	r.HandleInbound(context.Background(), sender, []byte(`{"type":"ping"}`))

	env := drainOne(t, sender)
	if env.Type != event.TypePong {
		t.Errorf("reply type = %q, want pong", env.Type)
	}
	if queuedCount(peer) != 0 {
		t.Error("pong leaked to another session")
	}
	if !sender.probe() {
		t.Error("inbound ping did not refresh liveness")
	}
}

func TestRouterDropsMalformedFrames(t *testing.T) {
	reg, r := newRouterFixture(nil)
	s, ft := testSession("c1", 1, 7)
	reg.Register(s)

	for _, raw := range []string{
		`not json`,
		`{"data":{}}`,
		`{"type":"no_such_event"}`,
		`{"type":"task_assigned"}`, // server-to-client type arriving inbound
	} {
		r.HandleInbound(context.Background(), s, []byte(raw))
	}

	if queuedCount(s) != 0 {
		t.Error("dropped frame produced a reply")
	}
	if ft.isClosed() {
		t.Error("malformed frame closed the connection")
	}
}

func TestRouterAcknowledgeTask(t *testing.T) {
	tasks := &fakeTaskAcker{}
	reg, r := newRouterFixture(tasks)
	s, _ := testSession("c1", 42, 7)
	reg.Register(s)

	r.HandleInbound(context.Background(), s, []byte(`{"type":"acknowledge_task","data":{"taskId":99}}`))

	if len(tasks.calls) != 1 {
		t.Fatalf("AcknowledgeTask calls = %d, want 1", len(tasks.calls))
	}
	if c := tasks.calls[0]; c.taskID != 99 || c.userID != 42 {
		t.Errorf("call = %+v, want taskID=99 userID=42", c)
	}
}

func TestRouterAcknowledgeTaskStoreErrorDoesNotClose(t *testing.T) {
	tasks := &fakeTaskAcker{err: errors.New("db down")}
	reg, r := newRouterFixture(tasks)
	s, ft := testSession("c1", 1, 7)
	reg.Register(s)

	r.HandleInbound(context.Background(), s, []byte(`{"type":"acknowledge_task","data":{"taskId":5}}`))

	if ft.isClosed() {
		t.Error("store error closed the connection")
	}
}

func TestRouterRebroadcastsActivityUpdate(t *testing.T) {
	reg, r := newRouterFixture(nil)
	sender, _ := testSession("c1", 42, 7)
	sameFarm, _ := testSession("c2", 2, 7)
	otherFarm, _ := testSession("c3", 3, 8)
	reg.Register(sender)
	reg.Register(sameFarm)
	reg.Register(otherFarm)

	r.HandleInbound(context.Background(), sender,
		[]byte(`{"type":"activity_update","data":{"activityId":12,"status":"completed"}}`))

	env := drainOne(t, sameFarm)
	if env.Type != event.TypeActivityUpdate {
		t.Fatalf("frame type = %q, want activity_update", env.Type)
	}
	payload, err := event.Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	upd := payload.(*event.ActivityUpdate)
	if upd.UserID != 42 {
		t.Errorf("rebroadcast userId = %d, want the sender's 42", upd.UserID)
	}
	if upd.ActivityID != 12 || upd.Status != "completed" {
		t.Errorf("payload = %+v", upd)
	}
	if queuedCount(otherFarm) != 0 {
		t.Error("update leaked outside the farm")
	}
}
