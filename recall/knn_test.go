package recall

import (
	"context"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/reclab/core"
	"github.com/rushteam/reclab/matrix"
	"github.com/rushteam/reclab/similarity"
)

type fixture struct {
	train *matrix.CSR
	test  *matrix.CSR
	desc  *core.DataDescription
}

// newFixture 构造 4 个用户 × 5 个物品的训练集，测试用户为 0 和 2（warm-start）。
// 用户 3 没有任何交互，物品 4 没有任何用户。
func newFixture(t *testing.T, warm bool) fixture {
	t.Helper()
	train, err := matrix.FromTriplets(4, 5,
		[]int{0, 0, 1, 1, 2, 2, 2},
		[]int{0, 1, 0, 2, 1, 2, 3},
		[]float64{5, 3, 4, 2, 1, 5, 4},
	)
	if err != nil {
		t.Fatal(err)
	}
	users := []int{0, 2}
	test, err := train.SelectRows(users)
	if err != nil {
		t.Fatal(err)
	}
	descUsers := users
	if !warm {
		// 强泛化时测试用户使用独立的编码空间
		descUsers = []int{0, 1}
	}
	desc, err := core.NewDataDescription(core.DefaultFieldNames(), 4, 5, descUsers, warm)
	if err != nil {
		t.Fatal(err)
	}
	return fixture{train: train, test: test, desc: desc}
}

func assertClose(t *testing.T, got mat.Matrix, want mat.Matrix) {
	t.Helper()
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Errorf("scores =\n%v\nwant\n%v", mat.Formatted(got), mat.Formatted(want))
	}
	r, c := got.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := got.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("non-finite score at (%d, %d)", i, j)
			}
		}
	}
}

func guardedInverse(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		if x != 0 {
			out[i] = 1 / x
		}
	}
	return out
}

func guardedDivide(num, den *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(i, j int, v float64) float64 {
		if d := den.At(i, j); d != 0 {
			return v / d
		}
		return 0
	}, num)
	return &out
}

func scoreMatrix(t *testing.T, s *core.Scores) mat.Matrix {
	t.Helper()
	v, err := s.View()
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestItemKNN_Weightings(t *testing.T) {
	f := newFixture(t, true)
	const k = 2

	sim, err := similarity.Cosine(f.train.Transpose())
	if err != nil {
		t.Fatal(err)
	}
	sim, err = similarity.Truncate(sim, k)
	if err != nil {
		t.Fatal(err)
	}
	s := sim.ToDense()
	x := f.test.ToDense()
	b := f.test.Pattern().ToDense()
	w := mat.NewDiagDense(5, guardedInverse(sim.RowSums()))

	var none, support, rowwise, xw, colwise mat.Dense
	none.Mul(x, s.T())
	support.Mul(b, s.T())
	rowwise.Mul(&none, w)
	xw.Mul(x, w)
	colwise.Mul(&xw, s.T())

	tests := []struct {
		name      string
		weighting Weighting
		want      mat.Matrix
	}{
		{name: "none", weighting: WeightingNone, want: &none},
		{name: "element-wise", weighting: WeightingElementwise, want: guardedDivide(&none, &support)},
		{name: "row-wise", weighting: WeightingRowwise, want: &rowwise},
		{name: "column-wise", weighting: WeightingColumnwise, want: &colwise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewItemKNN(k, tt.weighting)
			if err != nil {
				t.Fatal(err)
			}
			if err := m.Fit(context.Background(), f.train, f.desc); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			scores, err := m.Score(context.Background(), f.test, f.desc)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			assertClose(t, scoreMatrix(t, scores), tt.want)
		})
	}
}

func TestItemKNN_HandComputed(t *testing.T) {
	// 物品 0 = (1, 1)，物品 1 = (1, 0)，cos = 1/√2
	train, _ := matrix.FromTriplets(2, 2, []int{0, 0, 1}, []int{0, 1, 0}, []float64{1, 1, 1})
	test, _ := train.SelectRows([]int{1})
	desc, _ := core.NewDataDescription(core.DefaultFieldNames(), 2, 2, []int{1}, true)

	m, _ := NewItemKNN(10, WeightingNone)
	if err := m.Fit(context.Background(), train, desc); err != nil {
		t.Fatal(err)
	}
	scores, err := m.Score(context.Background(), test, desc)
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(1, 2, []float64{0, 1 / math.Sqrt2})
	assertClose(t, scoreMatrix(t, scores), want)
}

func TestItemKNN_StrongGeneralization(t *testing.T) {
	f := newFixture(t, false)
	// 测试用户不在训练集中，只提供历史交互
	test, _ := matrix.FromTriplets(1, 5, []int{0}, []int{2}, []float64{3})
	desc, _ := core.NewDataDescription(core.DefaultFieldNames(), 4, 5, []int{0}, false)

	m, _ := NewItemKNN(3, WeightingRowwise)
	if err := m.Fit(context.Background(), f.train, desc); err != nil {
		t.Fatal(err)
	}
	scores, err := m.Score(context.Background(), test, desc)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := scores.Dims(); r != 1 || c != 5 {
		t.Errorf("Dims() = (%d, %d), want (1, 5)", r, c)
	}
}

func TestUserKNN_Weightings(t *testing.T) {
	f := newFixture(t, true)
	const k = 2

	sim, err := similarity.Cosine(f.train)
	if err != nil {
		t.Fatal(err)
	}
	sim, err = similarity.Truncate(sim, k)
	if err != nil {
		t.Fatal(err)
	}
	users := f.desc.TestUsers()
	stCSR, _ := sim.SelectRows(users)
	st := stCSR.ToDense()
	r := f.train.ToDense()
	b := f.train.Pattern().ToDense()
	inv := guardedInverse(sim.RowSums())
	wt := make([]float64, len(users))
	for i, u := range users {
		wt[i] = inv[u]
	}

	var none, support, rowwise, colwise, stw mat.Dense
	none.Mul(st, r)
	support.Mul(st, b)
	rowwise.Mul(mat.NewDiagDense(len(wt), wt), &none)
	stw.Mul(st, mat.NewDiagDense(len(inv), inv))
	colwise.Mul(&stw, r)

	tests := []struct {
		name      string
		weighting Weighting
		want      mat.Matrix
	}{
		{name: "none", weighting: WeightingNone, want: &none},
		{name: "element-wise", weighting: WeightingElementwise, want: guardedDivide(&none, &support)},
		{name: "row-wise", weighting: WeightingRowwise, want: &rowwise},
		{name: "column-wise", weighting: WeightingColumnwise, want: &colwise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewUserKNN(k, tt.weighting)
			if err != nil {
				t.Fatal(err)
			}
			if err := m.Fit(context.Background(), f.train, f.desc); err != nil {
				t.Fatalf("Fit: %v", err)
			}
			scores, err := m.Score(context.Background(), f.test, f.desc)
			if err != nil {
				t.Fatalf("Score: %v", err)
			}
			assertClose(t, scoreMatrix(t, scores), tt.want)
		})
	}
}

func TestUserKNN_RequiresWarmStart(t *testing.T) {
	f := newFixture(t, false)
	m, _ := NewUserKNN(2, WeightingNone)
	if err := m.Fit(context.Background(), f.train, f.desc); !core.IsNotSupported(err) {
		t.Errorf("Fit err = %v, want NOT_SUPPORTED", err)
	}
}

func TestKNN_Errors(t *testing.T) {
	f := newFixture(t, true)

	if _, err := NewItemKNN(0, WeightingNone); !core.IsInvalidConfig(err) {
		t.Errorf("NewItemKNN(K=0) err = %v, want INVALID_CONFIG", err)
	}
	if _, err := NewUserKNN(5, Weighting(42)); !core.IsInvalidConfig(err) {
		t.Errorf("NewUserKNN(bad weighting) err = %v, want INVALID_CONFIG", err)
	}

	m, _ := NewItemKNN(2, WeightingNone)
	if _, err := m.Score(context.Background(), f.test, f.desc); !core.IsInvalidInput(err) {
		t.Errorf("Score before Fit err = %v, want INVALID_INPUT", err)
	}
	if err := m.Fit(context.Background(), f.test, f.desc); !core.IsShapeMismatch(err) {
		t.Errorf("Fit with wrong shape err = %v, want SHAPE_MISMATCH", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Fit(ctx, f.train, f.desc); err == nil {
		t.Error("Fit with cancelled context succeeded")
	}
}
