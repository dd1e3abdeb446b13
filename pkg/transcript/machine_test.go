package transcript_test

import (
	"sync"
	"testing"

	"github.com/MrWong99/listenkit/pkg/recognizer"
	"github.com/MrWong99/listenkit/pkg/transcript"
)

func finalBatch(text string) recognizer.ResultEvent {
	return recognizer.ResultEvent{Results: []recognizer.Result{result(true, text)}}
}

func interimBatch(text string) recognizer.ResultEvent {
	return recognizer.ResultEvent{Results: []recognizer.Result{result(false, text)}}
}

func TestMachine_AccumulatesFinalAndReplacesInterim(t *testing.T) {
	t.Parallel()

	m := transcript.NewMachine()

	m.Apply("", "hello")
	snap := m.Apply("wor", "")
	if snap.Interim != "wor" || snap.Final != "hello" {
		t.Fatalf("after interim: got %+v", snap)
	}

	snap = m.Apply("", "world")
	if snap.Interim != "" {
		t.Errorf("Interim = %q, want empty", snap.Interim)
	}
	if snap.Final != "hello world" {
		t.Errorf("Final = %q, want %q", snap.Final, "hello world")
	}
	if got := snap.Transcript(); got != "hello world" {
		t.Errorf("Transcript() = %q, want %q", got, "hello world")
	}
}

func TestMachine_FinalNeverShrinks(t *testing.T) {
	t.Parallel()

	m := transcript.NewMachine()
	m.Apply("", "one two")
	snap := m.Apply("three", "   ")
	if snap.Final != "one two" {
		t.Errorf("Final = %q, want %q", snap.Final, "one two")
	}
	if got := snap.Transcript(); got != "one two three" {
		t.Errorf("Transcript() = %q, want %q", got, "one two three")
	}
}

func TestMachine_SuppressesDuplicateFinalOnlyBatch(t *testing.T) {
	t.Parallel()

	m := transcript.NewMachine()
	emitted := 0

	for range 2 {
		if _, changed := m.Update(finalBatch("lights off")); changed {
			emitted++
		}
	}
	if emitted != 1 {
		t.Fatalf("emitted %d notifications for two identical final-only batches, want 1", emitted)
	}
	if got := m.Snapshot().Final; got != "lights off" {
		t.Errorf("Final = %q, want %q", got, "lights off")
	}
}

func TestMachine_InterimBreaksDuplicateChain(t *testing.T) {
	t.Parallel()

	m := transcript.NewMachine()

	if _, changed := m.Update(finalBatch("one")); !changed {
		t.Fatal("first final-only batch was suppressed")
	}
	if _, changed := m.Update(interimBatch("two")); !changed {
		t.Fatal("interim batch was suppressed")
	}
	snap, changed := m.Update(finalBatch("two"))
	if !changed {
		t.Fatal("final-only batch following an interim batch was suppressed")
	}
	if snap.Final != "one two" {
		t.Errorf("Final = %q, want %q", snap.Final, "one two")
	}
}

func TestMachine_MultiResultBatchIsNotDuplicate(t *testing.T) {
	t.Parallel()

	m := transcript.NewMachine()
	m.Update(finalBatch("first"))

	ev := recognizer.ResultEvent{Results: []recognizer.Result{result(true, "second"), result(true, "third")}}
	snap, changed := m.Update(ev)
	if !changed {
		t.Fatal("two-result batch was treated as a duplicate")
	}
	if snap.Final != "first second third" {
		t.Errorf("Final = %q, want %q", snap.Final, "first second third")
	}
}

func TestMachine_ClearResetsDuplicateMemory(t *testing.T) {
	t.Parallel()

	m := transcript.NewMachine()
	m.Update(finalBatch("clear"))
	m.Clear()

	if snap := m.Snapshot(); !snap.Empty() {
		t.Fatalf("after Clear: got %+v, want empty", snap)
	}
	if _, changed := m.Update(finalBatch("clear")); !changed {
		t.Error("final-only batch after Clear was suppressed")
	}
}

func TestMachine_DiscardInterim(t *testing.T) {
	t.Parallel()

	m := transcript.NewMachine()
	if m.DiscardInterim() {
		t.Error("DiscardInterim on empty machine reported true")
	}
	m.Apply("maybe", "sure")
	if !m.DiscardInterim() {
		t.Error("DiscardInterim with interim text reported false")
	}
	snap := m.Snapshot()
	if snap.Interim != "" || snap.Final != "sure" {
		t.Errorf("after DiscardInterim: got %+v", snap)
	}
}

func TestMachine_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	m := transcript.NewMachine()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				m.Update(interimBatch("word"))
				_ = m.Snapshot()
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().Interim; got != "word" {
		t.Errorf("Interim = %q, want %q", got, "word")
	}
}
