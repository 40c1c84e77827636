package checksum

import (
	"sync"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	h1 := Hash("hello world")
	h2 := Hash("hello world")
	if h1 != h2 {
		t.Errorf("Hash not deterministic: %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
	if h1 == Hash("different") {
		t.Errorf("Hash collision for different input")
	}
}

func TestIsChanged(t *testing.T) {
	c := New()

	if !c.IsChanged("de", "greeting", "Hello") {
		t.Error("new entry should be changed")
	}

	c.Update("de", "greeting", "Hello")
	if c.IsChanged("de", "greeting", "Hello") {
		t.Error("unchanged entry should not be changed")
	}
	if !c.IsChanged("de", "greeting", "Hello!") {
		t.Error("modified entry should be changed")
	}
	if !c.IsChanged("fr", "greeting", "Hello") {
		t.Error("different target should be changed")
	}
}

func TestSeedAndHashesRoundTrip(t *testing.T) {
	c := New()
	c.Update("de", "greeting", "Hello")
	c.Update("de", "farewell", "Bye")

	persisted := c.Hashes("de")
	persisted["mutated"] = "x"
	if _, ok := c.Hashes("de")["mutated"]; ok {
		t.Fatal("Hashes must return a copy")
	}
	delete(persisted, "mutated")

	restored := New()
	restored.Seed("de", persisted)
	if restored.IsChanged("de", "greeting", "Hello") {
		t.Error("seeded entry should not be changed")
	}
	if !restored.IsChanged("de", "farewell", "Goodbye") {
		t.Error("seeded entry with new content should be changed")
	}

	restored.Seed("fr", nil)
	if targets, _ := restored.Stats(); targets != 1 {
		t.Errorf("empty seed must not create a target, got %d targets", targets)
	}
}

func TestClean(t *testing.T) {
	c := New()
	c.Update("de", "a", "A")
	c.Update("de", "b", "B")
	c.Update("de", "gone", "Gone")

	c.Clean("de", []string{"a", "b"})

	if c.IsChanged("de", "a", "A") {
		t.Error("a should still be tracked")
	}
	if !c.IsChanged("de", "gone", "Gone") {
		t.Error("gone should be removed by Clean")
	}
	c.Clean("missing", []string{"a"})
}

func TestTargetsAndStats(t *testing.T) {
	c := New()
	c.Update("ru", "k", "v")
	c.Update("ar", "k", "v")
	c.Update("de", "k", "v")

	got := c.Targets()
	want := []string{"ar", "de", "ru"}
	if len(got) != len(want) {
		t.Fatalf("targets len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("targets[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	c.Update("de", "k2", "v2")
	if targets, keys := c.Stats(); targets != 3 || keys != 4 {
		t.Errorf("Stats() = %d, %d, want 3, 4", targets, keys)
	}
}

func TestSummary(t *testing.T) {
	c := New()
	if s := c.Summary(); s != "empty" {
		t.Errorf("Summary() = %q, want empty", s)
	}
	c.Update("de", "a", "A")
	c.Update("de", "b", "B")
	c.Update("fr", "a", "A")
	if s, want := c.Summary(), "2 targets, 3 keys (de: 2 keys, fr: 1 keys)"; s != want {
		t.Errorf("Summary() = %q, want %q", s, want)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			c.Update("de", key, key)
			c.IsChanged("de", key, key)
		}(i)
	}
	wg.Wait()
	if _, keys := c.Stats(); keys != 20 {
		t.Errorf("keys = %d, want 20", keys)
	}
}
