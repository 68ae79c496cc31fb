package rerank

import (
	"math/rand/v2"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/filter"
	"github.com/rushteam/reclab/matrix"
)

func TestTopN(t *testing.T) {
	c := core.NewCandidates(mat.NewDense(2, 4, []float64{
		0.1, 0.7, 0.3, 0.9,
		5, 5, 1, 6,
	}))

	tests := []struct {
		name    string
		n       int
		want    [][]int
		wantErr bool
	}{
		{name: "top 2", n: 2, want: [][]int{{3, 1}, {3, 0}}},
		{name: "ties by lower index", n: 3, want: [][]int{{3, 1, 2}, {3, 0, 1}}},
		{name: "all items", n: 4, want: [][]int{{3, 1, 2, 0}, {3, 0, 1, 2}}},
		{name: "zero", n: 0, wantErr: true},
		{name: "more than items", n: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := TopN(c, tt.n)
			if tt.wantErr {
				if !core.IsInvalidInput(err) {
					t.Errorf("err = %v, want INVALID_INPUT", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if r, n := recs.Dims(); r != 2 || n != tt.n {
				t.Fatalf("Dims() = (%d, %d), want (2, %d)", r, n, tt.n)
			}
			for i, want := range tt.want {
				if got := recs.Row(i); !slices.Equal(got, want) {
					t.Errorf("row %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestTopN_NeverRecommendsSeen(t *testing.T) {
	const users, items, n = 20, 30, 10
	rng := rand.New(rand.NewPCG(5, 6))

	data := make([]float64, users*items)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	var r, cols []int
	var v []float64
	for i := 0; i < users; i++ {
		for j := 0; j < items; j++ {
			if rng.IntN(4) == 0 {
				r, cols, v = append(r, i), append(cols, j), append(v, 1)
			}
		}
	}
	seen, err := matrix.FromTriplets(users, items, r, cols, v)
	if err != nil {
		t.Fatal(err)
	}

	scores := mat.NewDense(users, items, data)
	c, err := filter.DownvoteSeen(core.NewScores(mat.DenseCopyOf(scores)), seen)
	if err != nil {
		t.Fatal(err)
	}
	recs, err := TopN(c, n)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < users; i++ {
		row := recs.Row(i)
		for k, j := range row {
			if j < 0 || j >= items {
				t.Fatalf("row %d: item %d out of range", i, j)
			}
			// 每行未见物品数量足够，已见物品不可能进入 Top-N
			if seen.At(i, j) != 0 {
				t.Errorf("row %d recommends seen item %d", i, j)
			}
			if k > 0 && c.At(i, row[k-1]) < c.At(i, j) {
				t.Errorf("row %d not sorted descending at %d", i, k)
			}
		}
	}
}
