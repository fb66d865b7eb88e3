package component

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"mvukit/internal/channel"
	"mvukit/internal/command"
	"mvukit/internal/report"
	"mvukit/internal/state"
	"mvukit/internal/theme"
	"mvukit/internal/view"
)

func TestCounter_AppliesMessagesInOrder(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchCounter(rt, 0)

	reg.Emit(inc)
	reg.Emit(inc)
	reg.Emit(dec)

	eventually(t, "three updates", func() bool {
		info, _ := rt.Registry().Get(reg.ID())
		return info.Updates == 3
	})
	if got := countOf(reg); got != 1 {
		t.Errorf("Expected count 1, got %d", got)
	}
	var seen []counterIn
	reg.Inspect(func(m any) { seen = m.(*counter).seen })
	if diff := cmp.Diff([]counterIn{inc, inc, dec}, seen); diff != "" {
		t.Errorf("Update order mismatch (-want +got):\n%s", diff)
	}
}

func TestEmit_PreservesPerSenderOrder(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchRecorder(rt, &recorder{})

	var want []string
	for i := 0; i < 200; i++ {
		msg := fmt.Sprint(i)
		want = append(want, msg)
		reg.Emit(msg)
	}

	eventually(t, "all messages", func() bool { return len(seenOf(reg)) == len(want) })
	if diff := cmp.Diff(want, seenOf(reg)); diff != "" {
		t.Errorf("Message order mismatch (-want +got):\n%s", diff)
	}
}

func TestContextEmit_RunsBeforeQueuedInput(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchRecorder(rt, &recorder{
		onMsg: func(msg string, cx *Context[string, string]) command.Cmd[string] {
			if msg == "start" {
				cx.Emit("a")
				cx.Emit("b")
				return command.Message("c")
			}
			return command.None[string]()
		},
	})

	reg.Emit("start")
	reg.Emit("x")

	eventually(t, "five messages", func() bool { return len(seenOf(reg)) == 5 })
	if diff := cmp.Diff([]string{"start", "a", "b", "c", "x"}, seenOf(reg)); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}
}

func TestImmediateBatch_DeliveredOnceInOnePass(t *testing.T) {
	rt, _ := newTestRuntime(t)
	renders := &atomic.Int32{}
	reg := launchRecorder(rt, &recorder{
		renders: renders,
		onMsg: func(msg string, _ *Context[string, string]) command.Cmd[string] {
			if msg == "go" {
				return command.Batch(command.Message("A"), command.Message("B"))
			}
			return command.None[string]()
		},
	})
	eventually(t, "initial view", func() bool { return reg.Widget().Version() == 1 })

	reg.Emit("go")

	eventually(t, "second view", func() bool { return reg.Widget().Version() >= 2 })
	time.Sleep(20 * time.Millisecond)

	if diff := cmp.Diff([]string{"go", "A", "B"}, seenOf(reg)); diff != "" {
		t.Errorf("Delivered messages mismatch (-want +got):\n%s", diff)
	}
	if v := reg.Widget().Version(); v != 2 {
		t.Errorf("Expected one view refresh for the whole pass, got version %d", v)
	}
	if diff := cmp.Diff(view.Node(view.Text{Content: "go,A,B"}), reg.Widget().Load()); diff != "" {
		t.Errorf("View mismatch (-want +got):\n%s", diff)
	}
}

func TestInitCommand_RunsAfterInit(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchRecorder(rt, &recorder{
		onInit: func(*Context[string, string]) command.Cmd[string] {
			return command.Batch(
				command.Message("ready"),
				command.Perform("load", func(context.Context) string { return "loaded" }),
			)
		},
	})

	eventually(t, "init messages", func() bool { return len(seenOf(reg)) == 2 })
	if diff := cmp.Diff([]string{"ready", "loaded"}, seenOf(reg)); diff != "" {
		t.Errorf("Init messages mismatch (-want +got):\n%s", diff)
	}
}

func TestForward_TransformsInOrder(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchCounter(rt, 0)

	sink := newCollector[string]()
	Forward(reg, sink, func(o counterOut) string { return fmt.Sprintf("f(%d)", o.Count) })

	reg.Emit(inc)
	reg.Emit(inc)

	eventually(t, "two forwarded", func() bool { return sink.len() == 2 })
	if diff := cmp.Diff([]string{"f(1)", "f(2)"}, sink.items()); diff != "" {
		t.Errorf("Forwarded mismatch (-want +got):\n%s", diff)
	}
}

func TestForward_FirstSubscriberGetsEarlyOutputs(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchRecorder(rt, &recorder{
		onInit: func(cx *Context[string, string]) command.Cmd[string] {
			cx.Output("hello")
			return command.None[string]()
		},
	})
	eventually(t, "init", func() bool { return reg.Status() == Idle })

	sub := Subscribe(reg)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := sub.Receive(ctx)
	if err != nil || got != "hello" {
		t.Errorf("Expected buffered hello, got %q (err %v)", got, err)
	}
}

func TestForward_EverySubscriberSeesEverything(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchCounter(rt, 10)

	a, b := newCollector[int](), newCollector[int]()
	Forward(reg, a, func(o counterOut) int { return o.Count })
	Forward(reg, b, func(o counterOut) int { return -o.Count })

	reg.Emit(inc)
	reg.Emit(dec)

	eventually(t, "both subscribers", func() bool { return a.len() == 2 && b.len() == 2 })
	if diff := cmp.Diff([]int{11, 10}, a.items()); diff != "" {
		t.Errorf("Subscriber a mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{-11, -10}, b.items()); diff != "" {
		t.Errorf("Subscriber b mismatch (-want +got):\n%s", diff)
	}
}

func TestTryForward_FailuresAreDroppedAndReported(t *testing.T) {
	rt, rec := newTestRuntime(t)
	reg := launchCounter(rt, 0)

	sink := newCollector[int]()
	TryForward(reg, sink, func(o counterOut) (int, error) {
		switch o.Count {
		case 1:
			return 0, errors.New("odd one out")
		case 2:
			panic("two")
		case 3:
			return 0, command.ErrSkip
		}
		return o.Count, nil
	})

	for i := 0; i < 4; i++ {
		reg.Emit(inc)
	}

	eventually(t, "forwarded 4", func() bool { return sink.len() == 1 })
	if diff := cmp.Diff([]int{4}, sink.items()); diff != "" {
		t.Errorf("Forwarded mismatch (-want +got):\n%s", diff)
	}
	if n := rec.Count(report.TransformFailed); n != 2 {
		t.Errorf("Expected 2 transform failures, got %d", n)
	}
}

func TestHandleOutputs_RunsCallback(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchCounter(rt, 0)

	var total atomic.Int64
	HandleOutputs(reg, func(o counterOut) { total.Add(int64(o.Count)) })

	reg.Emit(inc)
	reg.Emit(inc)
	eventually(t, "callbacks", func() bool { return total.Load() == 3 })
}

func TestIgnore_DropsUnobservedOutputs(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchCounter(rt, 0)
	Ignore(reg)

	reg.Emit(inc)
	eventually(t, "update", func() bool { return countOf(reg) == 1 })

	sub := Subscribe(reg)
	reg.Emit(inc)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := sub.Receive(ctx)
	if err != nil || got.Count != 2 {
		t.Errorf("Expected only the output published after subscribing, got %+v (err %v)", got, err)
	}
}

func TestSpawnOutput_PublishesResult(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchRecorder(rt, &recorder{
		onMsg: func(msg string, cx *Context[string, string]) command.Cmd[string] {
			cx.SpawnOutput(command.Perform("shout", func(context.Context) string { return msg + "!" }))
			return command.None[string]()
		},
	})
	sub := Subscribe(reg)

	reg.Emit("hey")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := sub.Receive(ctx)
	if err != nil || got != "hey!" {
		t.Errorf("Expected hey!, got %q (err %v)", got, err)
	}
}

func TestClose_CancelsOutstandingCommands(t *testing.T) {
	rt, rec := newTestRuntime(t)
	release := make(chan struct{})
	reg := launchRecorder(rt, &recorder{
		onMsg: func(msg string, _ *Context[string, string]) command.Cmd[string] {
			if msg != "fetch" {
				return command.None[string]()
			}
			return command.Perform("fetch", func(context.Context) string {
				<-release
				return "fetched"
			})
		},
	})

	reg.Emit("fetch")
	eventually(t, "fetch applied", func() bool { return len(seenOf(reg)) == 1 })

	reg.Close()
	close(release)
	waitDone(t, reg.Handle)
	time.Sleep(20 * time.Millisecond)

	if diff := cmp.Diff([]string{"fetch"}, seenOf(reg)); diff != "" {
		t.Errorf("Expected no update after Close (-want +got):\n%s", diff)
	}
	if reg.Status() != Terminated {
		t.Errorf("Expected Terminated, got %v", reg.Status())
	}
	if reg.Err() != nil {
		t.Errorf("Expected graceful termination, got %v", reg.Err())
	}
	if rec.Count(report.ComponentTerminated) != 1 {
		t.Errorf("Expected one termination event, got %d", rec.Count(report.ComponentTerminated))
	}
	if err := reg.Send(context.Background(), "late"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if !reg.Widget().IsDestroyed() {
		t.Error("Expected root view to be destroyed")
	}
}

func TestClose_CancelsOutstandingOutputCommands(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchRecorder(rt, &recorder{
		onMsg: func(msg string, cx *Context[string, string]) command.Cmd[string] {
			cx.SpawnOutput(command.Perform("late", func(context.Context) string {
				time.Sleep(30 * time.Millisecond)
				return "late"
			}))
			time.Sleep(150 * time.Millisecond)
			return command.None[string]()
		},
	})
	sub := Subscribe(reg)

	reg.Emit("go")
	eventually(t, "update running", func() bool { return reg.Status() == Updating })
	reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := sub.Receive(ctx)
	if !errors.Is(err, channel.ErrClosed) {
		t.Errorf("Expected the output stream to close without output, got %q (err %v)", got, err)
	}
}

func TestSender_ReleasingLastTerminatesAfterDraining(t *testing.T) {
	rt, rec := newTestRuntime(t)
	reg := launchRecorder(rt, &recorder{})

	a := reg.Sender()
	b := a.Clone()
	if err := a.Send(context.Background(), "a"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	a.Release()
	if err := b.Send(context.Background(), "b"); err != nil {
		t.Fatalf("Send after releasing another sender failed: %v", err)
	}
	b.Release()
	waitDone(t, reg.Handle)

	if diff := cmp.Diff([]string{"a", "b"}, seenOf(reg)); diff != "" {
		t.Errorf("Expected queued messages to be processed (-want +got):\n%s", diff)
	}
	if reg.Err() != nil {
		t.Errorf("Expected graceful termination, got %v", reg.Err())
	}
	if rec.Count(report.ComponentTerminated) != 1 {
		t.Errorf("Expected one termination event, got %d", rec.Count(report.ComponentTerminated))
	}
}

func TestView_IsIdempotent(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchCounter(rt, 5)
	eventually(t, "initial view", func() bool { return reg.Widget().Version() >= 1 })

	m := &counter{count: 5}
	w := counterWidgets{}
	th := theme.Default()
	ignoreCallbacks := cmpopts.IgnoreFields(view.Button{}, "OnPress")

	first, second := m.View(&w, th), m.View(&w, th)
	if diff := cmp.Diff(first, second, ignoreCallbacks); diff != "" {
		t.Errorf("View not idempotent (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, reg.Widget().Load(), ignoreCallbacks); diff != "" {
		t.Errorf("Published view mismatch (-want +got):\n%s", diff)
	}
}

func TestButtonPress_EmitsToOwner(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchCounter(rt, 0)
	eventually(t, "initial view", func() bool { return reg.Widget().Version() >= 1 })

	p, ok := view.Find(reg.Widget().Load(), "inc")
	if !ok {
		t.Fatal("Expected an inc button")
	}
	p.Press()
	p.Press()

	eventually(t, "presses", func() bool { return countOf(reg) == 2 })
}

func TestPanicInUpdate_IsIsolated(t *testing.T) {
	rt, rec := newTestRuntime(t)
	crasher := launchRecorder(rt, &recorder{
		onMsg: func(msg string, _ *Context[string, string]) command.Cmd[string] {
			if msg == "boom" {
				panic("kaboom")
			}
			return command.None[string]()
		},
	}, WithName("crasher"))
	sibling := launchCounter(rt, 0)
	sub := Subscribe(crasher)

	crasher.Emit("boom")
	waitDone(t, crasher.Handle)

	var fe *FatalError
	if !errors.As(crasher.Err(), &fe) {
		t.Fatalf("Expected *FatalError, got %v", crasher.Err())
	}
	if fe.Phase != "update" || fe.Component != "crasher" {
		t.Errorf("Unexpected fatal error %+v", fe)
	}
	var pe *command.PanicError
	if !errors.As(crasher.Err(), &pe) || pe.Value != "kaboom" {
		t.Errorf("Expected wrapped panic, got %v", crasher.Err())
	}
	if rec.Count(report.ComponentFailed) != 1 {
		t.Errorf("Expected one failure event, got %d", rec.Count(report.ComponentFailed))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := sub.Receive(ctx); err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected output stream to be closed, got %v", err)
	}

	sibling.Emit(inc)
	eventually(t, "sibling update", func() bool { return countOf(sibling) == 1 })
}

type badView struct{ recorder }

func (b *badView) View(*noWidgets, *theme.Theme) view.Node { panic("no view") }

func TestPanicInView_IsFatal(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := Launch[struct{}, noWidgets, string, string](rt, &badView{}, struct{}{})
	waitDone(t, reg.Handle)

	var fe *FatalError
	if !errors.As(reg.Err(), &fe) || fe.Phase != "view" {
		t.Errorf("Expected view FatalError, got %v", reg.Err())
	}
	if !IsFatal(reg.Err()) {
		t.Error("Expected IsFatal to be true")
	}
}

func TestExclusivityViolation_IsFatal(t *testing.T) {
	rt, _ := newTestRuntime(t)
	r := newRunner[struct{}, noWidgets, string, string](rt, &recorder{})

	held, release := make(chan struct{}), make(chan struct{})
	go func() {
		_ = r.cell.Exclusive(func(*Component[struct{}, noWidgets, string, string], *noWidgets) {
			close(held)
			<-release
		})
	}()
	<-held
	defer close(release)

	r.start(struct{}{})
	waitDone(t, r.handle)

	if !errors.Is(r.handle.Err(), state.ErrExclusivityViolation) {
		t.Errorf("Expected ErrExclusivityViolation, got %v", r.handle.Err())
	}
}

func TestDestroyingRoot_TerminatesComponent(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchCounter(rt, 0)

	reg.Widget().Destroy()
	waitDone(t, reg.Handle)
	if reg.Err() != nil {
		t.Errorf("Expected graceful termination, got %v", reg.Err())
	}
}

func TestRedraws_AreCoalesced(t *testing.T) {
	rt, _ := newTestRuntime(t)
	reg := launchCounter(rt, 0)
	for i := 0; i < 10; i++ {
		reg.Emit(inc)
	}
	eventually(t, "final view", func() bool { return hasText(reg.Widget().Load(), "count: 10") })

	<-rt.Redraws()
	select {
	case <-rt.Redraws():
		t.Error("Expected a single coalesced redraw")
	default:
	}
}

func TestOverflow_DropNewestReportsDrops(t *testing.T) {
	rt, rec := newTestRuntime(t)
	block := make(chan struct{})
	reg := launchRecorder(rt, &recorder{
		onMsg: func(msg string, _ *Context[string, string]) command.Cmd[string] {
			if msg == "wait" {
				<-block
			}
			return command.None[string]()
		},
	}, WithInput(1, channel.DropNewest))

	reg.Emit("wait")
	eventually(t, "blocked update", func() bool { return reg.Status() == Updating })
	reg.Emit("kept")
	reg.Emit("dropped")
	close(block)

	eventually(t, "kept", func() bool { return len(seenOf(reg)) == 2 })
	if diff := cmp.Diff([]string{"wait", "kept"}, seenOf(reg)); diff != "" {
		t.Errorf("Delivered mismatch (-want +got):\n%s", diff)
	}
	if rec.Count(report.MessageDropped) != 1 {
		t.Errorf("Expected one dropped message, got %d", rec.Count(report.MessageDropped))
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{Initializing, "initializing"},
		{Idle, "idle"},
		{Updating, "updating"},
		{Terminating, "terminating"},
		{Terminated, "terminated"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
	if Terminating.Alive() || !Idle.Alive() {
		t.Error("Unexpected Alive result")
	}
}
