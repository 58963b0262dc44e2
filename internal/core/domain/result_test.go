package domain

import (
	"net/http"
	"testing"
)

func TestResultBranches(t *testing.T) {
	ok := Created("v")
	if !ok.IsOk() || ok.Value() != "v" || ok.Status() != http.StatusCreated {
		t.Fatalf("unexpected ok result: %+v", ok)
	}
	if _, failed := ok.Failure(); failed {
		t.Fatalf("ok result reported failure")
	}

	bad := Fail[string](KindConflict, "duplicate")
	f, failed := bad.Failure()
	if !failed || bad.IsOk() {
		t.Fatalf("expected failure")
	}
	if f.Status != http.StatusConflict || bad.Status() != http.StatusConflict || f.Message != "duplicate" {
		t.Fatalf("unexpected failure %+v", f)
	}
}

func TestFailWithDefaultsKind(t *testing.T) {
	f, _ := FailWith[int](Failure{Message: "boom"}).Failure()
	if f.Kind != KindInternal || f.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected defaults %+v", f)
	}
}

func TestMatchAndMap(t *testing.T) {
	doubled := MapResult(Ok(21), func(v int) int { return v * 2 })
	got := Match(doubled,
		func(v int) string { return "ok" },
		func(Failure) string { return "fail" },
	)
	if got != "ok" || doubled.Value() != 42 {
		t.Fatalf("unexpected match %q value %d", got, doubled.Value())
	}

	failed := MapResult(Fail[int](KindNotFound, "missing"), func(v int) int { return v })
	if f, _ := failed.Failure(); f.Kind != KindNotFound {
		t.Fatalf("failure not forwarded: %+v", f)
	}
}
