package workerpool

import (
	"errors"
	"testing"
)

func TestPool_SpawnAwait(t *testing.T) {
	p := New(4)
	defer p.Close()

	h := p.Spawn(func() (interface{}, error) { return 42, nil })
	res, err := h.Await()
	if err != nil {
		t.Fatal(err)
	}
	if res.(int) != 42 {
		t.Fatalf("got %v, want 42", res)
	}
}

func TestPool_SpawnAll_PreservesOrderAndErrors(t *testing.T) {
	p := New(3)
	defer p.Close()

	boom := errors.New("boom")
	tasks := []Task{
		func() (interface{}, error) { return 1, nil },
		func() (interface{}, error) { return nil, boom },
		func() (interface{}, error) { return 3, nil },
	}
	results, errs := p.SpawnAll(tasks)
	if results[0].(int) != 1 || results[2].(int) != 3 {
		t.Fatalf("unexpected results: %+v", results)
	}
	if errs[1] != boom {
		t.Fatalf("expected boom at index 1, got %v", errs[1])
	}
	if errs[0] != nil || errs[2] != nil {
		t.Fatalf("unexpected errors: %+v", errs)
	}
}

func TestBatchSize_LCMOfPreferences(t *testing.T) {
	got := BatchSize([]uint32{4, 6})
	if got != 12 {
		t.Fatalf("LCM(4,6) = %d, want 12", got)
	}
}

func TestBatchSize_EmptyDefaultsToOne(t *testing.T) {
	if got := BatchSize(nil); got != 1 {
		t.Fatalf("BatchSize(nil) = %d, want 1", got)
	}
}

func TestBatchSize_SinglePreference(t *testing.T) {
	if got := BatchSize([]uint32{7}); got != 7 {
		t.Fatalf("BatchSize([7]) = %d, want 7", got)
	}
}
