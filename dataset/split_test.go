package dataset

import (
	"testing"

	"github.com/rushteam/reclab/core"
)

// sampleLog: 用户 1 三条、用户 2 两条、用户 3 一条。
func sampleLog() Log {
	return Log{
		{User: "1", Item: "a", Feedback: 4, Timestamp: 10},
		{User: "1", Item: "b", Feedback: 5, Timestamp: 30},
		{User: "2", Item: "a", Feedback: 3, Timestamp: 5},
		{User: "1", Item: "c", Feedback: 2, Timestamp: 20},
		{User: "2", Item: "c", Feedback: 1, Timestamp: 7},
		{User: "3", Item: "b", Feedback: 5, Timestamp: 1},
	}
}

func TestSplitHoldout_LeaveLastOutWarm(t *testing.T) {
	h, err := SplitHoldout(sampleLog(), HoldoutOptions{Strategy: LeaveLastOut, WarmStart: true})
	if err != nil {
		t.Fatal(err)
	}
	want := Log{
		{User: "1", Item: "b", Feedback: 5, Timestamp: 30},
		{User: "2", Item: "c", Feedback: 1, Timestamp: 7},
	}
	if len(h.Holdout) != len(want) {
		t.Fatalf("Holdout = %+v, want %+v", h.Holdout, want)
	}
	for i := range want {
		if h.Holdout[i] != want[i] {
			t.Errorf("Holdout[%d] = %+v, want %+v", i, h.Holdout[i], want[i])
		}
	}
	// 用户 3 只有一条事件，不参与测试但保留在训练集中
	if len(h.Train) != 4 || len(h.Test) != 3 {
		t.Errorf("Train = %d events, Test = %d events; want 4 and 3", len(h.Train), len(h.Test))
	}
	for _, e := range h.Train {
		if e.Timestamp == 30 || e.Timestamp == 7 {
			t.Errorf("holdout event %+v leaked into training", e)
		}
	}
}

func TestSplitHoldout_StrongGeneralization(t *testing.T) {
	h, err := SplitHoldout(sampleLog(), HoldoutOptions{
		Strategy:     LeaveLastOut,
		TestFraction: 0.5,
		Seed:         3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Holdout) != 1 {
		t.Fatalf("Holdout = %+v, want one test user", h.Holdout)
	}
	testUser := h.Holdout[0].User
	for _, e := range h.Train {
		if e.User == testUser {
			t.Errorf("test user %s still in training: %+v", testUser, e)
		}
	}
	for _, e := range h.Test {
		if e.User != testUser {
			t.Errorf("unexpected test history %+v", e)
		}
	}
}

func TestSplitHoldout_LeaveOneOutDeterministic(t *testing.T) {
	opts := HoldoutOptions{Strategy: LeaveOneOut, WarmStart: true, Seed: 11}
	a, err := SplitHoldout(sampleLog(), opts)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := SplitHoldout(sampleLog(), opts)
	for i := range a.Holdout {
		if a.Holdout[i] != b.Holdout[i] {
			t.Errorf("same seed picked different holdout: %+v vs %+v", a.Holdout[i], b.Holdout[i])
		}
	}
}

func TestSplitHoldout_Errors(t *testing.T) {
	tests := []struct {
		name string
		log  Log
		opts HoldoutOptions
	}{
		{name: "unknown strategy", log: sampleLog(), opts: HoldoutOptions{Strategy: "random"}},
		{name: "fraction above one", log: sampleLog(), opts: HoldoutOptions{TestFraction: 1.5}},
		{name: "strong without training users", log: sampleLog()[:5], opts: HoldoutOptions{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := SplitHoldout(tt.log, tt.opts); !core.IsInvalidConfig(err) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}

	if _, err := SplitHoldout(Log{{User: "1", Item: "a"}}, HoldoutOptions{WarmStart: true}); !core.IsInvalidInput(err) {
		t.Errorf("single event err = %v, want INVALID_INPUT", err)
	}
}
