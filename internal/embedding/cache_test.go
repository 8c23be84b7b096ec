package embedding

import (
	"context"
	"reflect"
	"testing"
)

func TestCache_LRU(t *testing.T) {
	c := NewCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Put("a", []float32{1, 2, 3})
	c.Put("b", []float32{4, 5})
	if _, ok := c.Get("a"); !ok { // a is now most recent
		t.Fatal("expected a")
	}
	c.Put("c", []float32{6}) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %s to remain", k)
		}
	}
	if hits, misses := c.Stats(); hits != 3 || misses != 2 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := NewCache(1)
	src := []float32{1, 2}
	c.Put("a", src)
	src[0] = 9
	got, _ := c.Get("a")
	got[1] = 9
	again, _ := c.Get("a")
	if !reflect.DeepEqual(again, []float32{1, 2}) {
		t.Errorf("cached vector was mutated: %v", again)
	}
}

func TestCache_Disabled(t *testing.T) {
	c := NewCache(0)
	c.Put("a", []float32{1})
	if c.Len() != 0 {
		t.Errorf("disabled cache stored %d entries", c.Len())
	}
}

// countingEmbedder counts texts passed to the wrapped embedder.
type countingEmbedder struct {
	*HashingEmbedder
	embedded int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedded++
	return c.HashingEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.embedded += len(texts)
	return c.HashingEmbedder.EmbedBatch(ctx, texts)
}

func TestWithCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{HashingEmbedder: NewHashingEmbedder(32)}
	e := WithCache(inner, 10)

	first, err := e.EmbedBatch(ctx, []string{"baggage", "sorter"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.EmbedBatch(ctx, []string{"sorter", "tote", "baggage"})
	if err != nil {
		t.Fatal(err)
	}
	if inner.embedded != 3 {
		t.Errorf("inner embedder saw %d texts, want 3", inner.embedded)
	}
	if !reflect.DeepEqual(first[0], second[2]) || !reflect.DeepEqual(first[1], second[0]) {
		t.Error("cached batch results out of order")
	}
	if _, err := e.Embed(ctx, "tote"); err != nil || inner.embedded != 3 {
		t.Errorf("Embed of cached text reached inner embedder (err=%v)", err)
	}
	if e.Dimensions() != 32 || e.ModelID() != inner.ModelID() {
		t.Error("wrapper should expose the inner embedder's metadata")
	}
	if WithCache(inner, 0) != Embedder(inner) {
		t.Error("capacity 0 should return the embedder unchanged")
	}
}
