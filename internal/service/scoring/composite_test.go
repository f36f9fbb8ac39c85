package scoring

import (
	"testing"

	"github.com/kadeface/valueaddforteacher/internal/model"
)

func TestRankComposite_MinTies(t *testing.T) {
	t.Parallel()

	entities := entitiesOf("a", "b", "c", "d", "e")
	totals := map[model.EntityKey]float64{
		key("a"): 3.5,
		key("b"): 5.1,
		key("c"): 3.5,
		key("d"): 1.0,
		key("e"): 3.5,
	}

	ranks := RankComposite(entities, totals)
	want := map[string]int{"b": 1, "a": 2, "c": 2, "e": 2, "d": 5}
	for code, r := range want {
		if ranks[key(code)] != r {
			t.Fatalf("%s rank=%d want=%d", code, ranks[key(code)], r)
		}
	}
}

func TestRankComposite_AllZero(t *testing.T) {
	t.Parallel()

	entities := entitiesOf("a", "b", "c")
	ranks := RankComposite(entities, map[model.EntityKey]float64{})
	for _, e := range entities {
		if ranks[e.Key] != 1 {
			t.Fatalf("%s rank=%d want=1", e.Key, ranks[e.Key])
		}
	}
}
