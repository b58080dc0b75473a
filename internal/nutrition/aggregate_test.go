package nutrition_test

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

func TestAggregateRecomputesCaloriesFromMacros(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})

	got := e.AggregateFromLinks([]nutrition.Vector{
		{Calories: 100, CarbsG: 10, ProteinG: 5, FatG: 2},
		{Calories: 200, CarbsG: 20, ProteinG: 10, FatG: 4},
	})
	want := nutrition.Vector{Calories: 234, CarbsG: 30, ProteinG: 15, FatG: 6}
	if !got.Equal(want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestAggregateOfNoLinksIsExactZero(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})

	got := e.AggregateFromLinks(nil)
	if got.Calories != 0 || got.CarbsG != 0 || got.ProteinG != 0 || got.FatG != 0 || !got.IsZero() {
		t.Fatalf("expected exact zero vector, got %+v", got)
	}
}

func TestApplyDeltaRemovingLastLinkIsExactZero(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})

	a := nutrition.Vector{Calories: 71, CarbsG: 0.3, ProteinG: 0.7, FatG: 7.4, SugarG: nutrition.Float(0.1)}
	b := nutrition.Vector{Calories: 33, CarbsG: 0.1, ProteinG: 0.2, FatG: 3.6}
	agg := e.ApplyDelta(nutrition.Zero(), nutrition.Zero(), a)
	agg = e.ApplyDelta(agg, nutrition.Zero(), b)
	agg = e.ApplyDelta(agg, a, nutrition.Zero())
	agg = e.ApplyDelta(agg, b, nutrition.Zero())

	if agg.Calories != 0 || agg.CarbsG != 0 || agg.ProteinG != 0 || agg.FatG != 0 || agg.Sugar() != 0 {
		t.Fatalf("expected exact zero after removing every link, got %+v", agg)
	}
}

func TestApplyDeltaMatchesFullResum(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})
	rng := rand.New(rand.NewSource(42))

	base := []nutrition.Vector{
		{Calories: 389, CarbsG: 66.3, ProteinG: 16.9, FatG: 6.9},
		{Calories: 165, CarbsG: 0, ProteinG: 31, FatG: 3.6},
		{Calories: 52, CarbsG: 13.8, ProteinG: 0.3, FatG: 0.2, SugarG: nutrition.Float(10.4)},
		{Calories: 884, CarbsG: 0, ProteinG: 0, FatG: 100},
	}
	links := map[int]nutrition.Vector{}
	agg := e.AggregateFromLinks(nil)
	nextID := 1

	for step := 0; step < 400; step++ {
		op := rng.Intn(3)
		switch {
		case op == 0 || len(links) == 0:
			v, err := e.Scale(base[rng.Intn(len(base))], 100, float64(1+rng.Intn(300)))
			if err != nil {
				t.Fatalf("scale new link: %v", err)
			}
			links[nextID] = v
			nextID++
			agg = e.ApplyDelta(agg, nutrition.Zero(), v)
		case op == 1:
			id := anyKey(rng, links)
			v, err := e.Scale(base[rng.Intn(len(base))], 100, float64(1+rng.Intn(300)))
			if err != nil {
				t.Fatalf("scale edited link: %v", err)
			}
			agg = e.ApplyDelta(agg, links[id], v)
			links[id] = v
		default:
			id := anyKey(rng, links)
			agg = e.ApplyDelta(agg, links[id], nutrition.Zero())
			delete(links, id)
		}

		all := make([]nutrition.Vector, 0, len(links))
		for _, v := range links {
			all = append(all, v)
		}
		full := e.AggregateFromLinks(all)
		if math.Abs(full.CarbsG-agg.CarbsG) > 1e-9 || math.Abs(full.ProteinG-agg.ProteinG) > 1e-9 ||
			math.Abs(full.FatG-agg.FatG) > 1e-9 || math.Abs(full.Sugar()-agg.Sugar()) > 1e-9 {
			t.Fatalf("step %d: delta aggregate %+v diverged from resum %+v", step, agg, full)
		}
		if agg.Calories != full.Calories {
			t.Fatalf("step %d: delta calories %v, resum calories %v", step, agg.Calories, full.Calories)
		}
		if agg.Calories != nutrition.RoundHalfUp(agg.CarbsG*4+agg.ProteinG*4+agg.FatG*9, 0) {
			t.Fatalf("step %d: calorie invariant broken on %+v", step, agg)
		}
	}
}

func TestAggregateClampsNegativeNoise(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})

	got := e.ApplyDelta(
		nutrition.Vector{CarbsG: 1, ProteinG: 1, FatG: 1},
		nutrition.Vector{CarbsG: 1.2, ProteinG: 1, FatG: 1},
		nutrition.Zero(),
	)
	if got.CarbsG != 0 || got.Calories != 0 {
		t.Fatalf("expected negative carbs clamped to zero, got %+v", got)
	}
}

func TestAggregateCacheReusesUntilContentChanges(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})
	cache := nutrition.NewAggregateCache(e)

	links := []nutrition.CacheLink{
		{ID: 1, QuantityG: 100, Macros: nutrition.Vector{Calories: 100, CarbsG: 10, ProteinG: 5, FatG: 2}},
		{ID: 2, QuantityG: 200, Macros: nutrition.Vector{Calories: 200, CarbsG: 20, ProteinG: 10, FatG: 4}},
	}
	first := cache.Aggregate("daily_plan:1", links)
	second := cache.Aggregate("daily_plan:1", links)
	if !first.Equal(second) || first.Calories != 234 {
		t.Fatalf("unexpected cached aggregates %+v %+v", first, second)
	}
	if hits, misses := cache.Stats(); hits != 1 || misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}

	links[1].QuantityG = 150
	links[1].Macros = nutrition.Vector{Calories: 150, CarbsG: 15, ProteinG: 7.5, FatG: 3}
	changed := cache.Aggregate("daily_plan:1", links)
	if changed.CarbsG != 25 {
		t.Fatalf("expected recomputed aggregate after edit, got %+v", changed)
	}

	cache.Invalidate("daily_plan:1")
	_ = cache.Aggregate("daily_plan:1", links)
	if hits, misses := cache.Stats(); hits != 1 || misses != 3 {
		t.Fatalf("expected 1 hit and 3 misses, got %d/%d", hits, misses)
	}

	cache.Reset()
	if hits, misses := cache.Stats(); hits != 0 || misses != 0 {
		t.Fatalf("expected reset stats, got %d/%d", hits, misses)
	}
}

func anyKey(rng *rand.Rand, m map[int]nutrition.Vector) int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys[rng.Intn(len(keys))]
}
