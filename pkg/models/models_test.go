package models

import "testing"

func TestPredictionPointTime(t *testing.T) {
	cases := []struct {
		date string
		want string
	}{
		{"2024-01-01", "2024-01-01"},
		{"2024-03-05T10:00:00", "2024-03-05"},
		{"2024-03-05 10:00:00", "2024-03-05"},
		{"Mon, 01 Jan 2024 00:00:00 GMT", "2024-01-01"},
		{"2024-02-29T12:00:00Z", "2024-02-29"},
	}
	for _, c := range cases {
		got, err := PredictionPoint{Date: c.date}.Time()
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", c.date, err)
		}
		if got.Format("2006-01-02") != c.want {
			t.Errorf("%q: expected %s, got %s", c.date, c.want, got.Format("2006-01-02"))
		}
	}

	if _, err := (PredictionPoint{Date: "tomorrow"}).Time(); err == nil {
		t.Error("expected error for unparsable date")
	}
}

func TestPredictionSeriesIsolatedFromInput(t *testing.T) {
	in := []PredictionPoint{{Date: "2024-01-01", Price: 1}, {Date: "2024-01-02", Price: 2}}
	s := NewPredictionSeries(in)
	in[0].Price = 100

	if s.At(0).Price != 1 {
		t.Fatalf("series changed after input mutation: %v", s.At(0).Price)
	}

	pts := s.Points()
	pts[1].Price = 200
	if s.At(1).Price != 2 {
		t.Fatalf("series changed after Points mutation: %v", s.At(1).Price)
	}
}

func TestPredictionSeriesSlice(t *testing.T) {
	s := NewPredictionSeries([]PredictionPoint{{Date: "a"}, {Date: "b"}, {Date: "c"}})

	if got := s.Slice(1, 10); len(got) != 2 || got[0].Date != "b" {
		t.Errorf("unexpected slice: %+v", got)
	}
	if got := s.Slice(2, 1); len(got) != 0 {
		t.Errorf("expected empty slice, got %+v", got)
	}
	if got := (PredictionSeries{}).Points(); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice for empty series, got %#v", got)
	}
}
