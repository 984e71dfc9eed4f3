package retrieval

import (
	"errors"
	"testing"

	"github.com/skalibog/bfpv/internal/predictions"
	"github.com/skalibog/bfpv/pkg/models"
)

func readyResult() *predictions.Result {
	return &predictions.Result{
		Series:         models.NewPredictionSeries([]models.PredictionPoint{{Date: "2024-01-01", Price: 42000.5}}),
		ChartSourceURL: "http://localhost:5000/plot.png",
	}
}

func TestReduce_Transitions(t *testing.T) {
	next := Reduce(Loading{}, FetchSucceeded{Result: readyResult()})
	ready, ok := next.(Ready)
	if !ok {
		t.Fatalf("expected Ready, got %T", next)
	}
	if ready.Series.Len() != 1 || ready.ChartSourceURL != "http://localhost:5000/plot.png" {
		t.Errorf("unexpected ready state: %+v", ready)
	}

	next = Reduce(Loading{}, FetchFailed{Err: &predictions.FetchError{Kind: predictions.ServerReported, Detail: "model not trained"}})
	if f, ok := next.(Failed); !ok || f.Reason != "model not trained" {
		t.Fatalf("expected Failed with backend message, got %#v", next)
	}

	if _, ok := Reduce(Failed{Reason: "x"}, RetryRequested{}).(Loading); !ok {
		t.Error("expected Failed + RetryRequested -> Loading")
	}
}

func TestReduce_TerminalStatesIgnoreEvents(t *testing.T) {
	ready := Ready{Series: readyResult().Series}
	events := []Event{
		FetchSucceeded{Result: readyResult()},
		FetchFailed{Err: errors.New("late")},
		RetryRequested{},
	}
	for _, ev := range events {
		if _, ok := Reduce(ready, ev).(Ready); !ok {
			t.Errorf("Ready changed on %T", ev)
		}
	}

	failed := Failed{Reason: "boom"}
	for _, ev := range events[:2] {
		if f, ok := Reduce(failed, ev).(Failed); !ok || f.Reason != "boom" {
			t.Errorf("Failed changed on %T", ev)
		}
	}

	if _, ok := Reduce(Loading{}, RetryRequested{}).(Loading); !ok {
		t.Error("expected Loading to ignore retry")
	}
}

func TestReduce_NilResult(t *testing.T) {
	if _, ok := Reduce(Loading{}, FetchSucceeded{}).(Failed); !ok {
		t.Fatal("expected Failed for empty success")
	}
}

func TestReasonFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &predictions.FetchError{Kind: predictions.ServerReported, Detail: "model not trained"}, "model not trained"},
		{"server without detail", &predictions.FetchError{Kind: predictions.ServerReported}, ConnectionErrorMessage},
		{"transport", &predictions.FetchError{Kind: predictions.Transport, Detail: "dial tcp: refused"}, ConnectionErrorMessage},
		{"plain error", errors.New("network down"), ConnectionErrorMessage},
		{"nil", nil, ConnectionErrorMessage},
	}
	for _, c := range cases {
		if got := ReasonFor(c.err); got != c.want {
			t.Errorf("%s: expected %q, got %q", c.name, c.want, got)
		}
	}
}
