package decode

import (
	"reflect"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name"`
	Count   int           `yaml:"count"`
	Wait    time.Duration `yaml:"wait"`
	Hosts   []string      `yaml:"hosts"`
	Periods []int         `yaml:"periods"`
	Nested  struct {
		On bool `yaml:"on"`
	} `yaml:"nested"`
}

func TestInto(t *testing.T) {
	out := sample{Name: "default", Count: 7}
	err := Into(map[string]any{
		"count":   float64(3),
		"wait":    "1m30s",
		"hosts":   "a:1,b:2",
		"periods": []any{1, "3", 5.0},
		"nested":  map[string]any{"on": "true"},
	}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if out.Name != "default" {
		t.Fatalf("default overwritten: %q", out.Name)
	}
	if out.Count != 3 || out.Wait != 90*time.Second || !out.Nested.On {
		t.Fatalf("out = %+v", out)
	}
	if !reflect.DeepEqual(out.Hosts, []string{"a:1", "b:2"}) || !reflect.DeepEqual(out.Periods, []int{1, 3, 5}) {
		t.Fatalf("slices = %v %v", out.Hosts, out.Periods)
	}
}

func TestErrorUnused(t *testing.T) {
	opts := DefaultOptions()
	opts.ErrorUnused = true
	if _, err := Map[sample](map[string]any{"nope": 1}, opts); err == nil {
		t.Fatal("want error")
	}
	if _, err := Map[sample](map[string]any{"name": "x"}); err != nil {
		t.Fatal(err)
	}
}

func TestSliceReplaced(t *testing.T) {
	out := sample{Periods: []int{1, 3, 5}}
	if err := Into(map[string]any{"periods": []any{2, 4}}, &out); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out.Periods, []int{2, 4}) {
		t.Fatalf("periods = %v", out.Periods)
	}
	if err := Into(map[string]any{"periods": []any{}}, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Periods) != 0 {
		t.Fatalf("periods = %v", out.Periods)
	}
}
