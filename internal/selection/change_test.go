package selection

import (
	"testing"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/random"
)

func testSource(t *testing.T) random.Source {
	t.Helper()
	rnd, err := random.New(random.Config{Seed: "selection-change-test-seed"})
	if err != nil {
		t.Fatalf("random.New: %v", err)
	}
	return rnd.Casual
}

func TestNewLogTriangularRejectsMeanOutsideRange(t *testing.T) {
	if _, err := NewLogTriangular(100, 1000, 1100); err == nil {
		t.Fatalf("expected impossible-mean error for mean above max")
	}
	if _, err := NewLogTriangular(100, 1000, 50); err == nil {
		t.Fatalf("expected impossible-mean error for mean below min")
	}
	if _, err := NewLogTriangular(1000, 100, 500); err == nil {
		t.Fatalf("expected impossible-mean error for max < min")
	}
}

func TestNewLogTriangularErrorKind(t *testing.T) {
	_, err := NewLogTriangular(100, 1000, 1100)
	if k, ok := cosmoserr.KindOf(err); !ok || k != cosmoserr.ImpossibleMean {
		t.Fatalf("expected ImpossibleMean kind, got %v ok=%v", k, ok)
	}
}

func TestLogTriangularSamplesWithinBounds(t *testing.T) {
	dist, err := NewLogTriangular(500, 50000, 5000)
	if err != nil {
		t.Fatalf("NewLogTriangular: %v", err)
	}
	r := testSource(t)
	for i := 0; i < 200; i++ {
		v := dist.Sample(r)
		if v < 500 || v > 50000 {
			t.Fatalf("sample %d out of bounds [500,50000]", v)
		}
	}
}

func TestComposeChangeSumsToBudget(t *testing.T) {
	dist, err := NewLogTriangular(500, 50000, 5000)
	if err != nil {
		t.Fatalf("NewLogTriangular: %v", err)
	}
	r := testSource(t)
	budget := int64(123456)
	outputs := ComposeChange(budget, dist, 500, r)

	var sum int64
	for _, v := range outputs {
		if v < 500 {
			t.Fatalf("output %d below minOutput 500", v)
		}
		sum += v
	}
	if sum != budget {
		t.Fatalf("expected outputs to sum to budget %d, got %d", budget, sum)
	}
}

func TestComposeChangeBelowMinimumYieldsNothing(t *testing.T) {
	dist, err := NewLogTriangular(500, 50000, 5000)
	if err != nil {
		t.Fatalf("NewLogTriangular: %v", err)
	}
	r := testSource(t)
	outputs := ComposeChange(100, dist, 500, r)
	if outputs != nil {
		t.Fatalf("expected no outputs when budget is below the minimum, got %v", outputs)
	}
}
