package ws

import (
	"fmt"
	"testing"
)

func TestPoolAddRemove(t *testing.T) {
	p := NewPool(0)

	c1 := &Client{ID: "c1"}
	c2 := &Client{ID: "c2"}

	if err := p.Add(c1); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := p.Add(c2); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if p.Count() != 2 {
		t.Errorf("Count() = %d, want 2", p.Count())
	}

	got, ok := p.Get("c1")
	if !ok || got != c1 {
		t.Errorf("Get(c1) = %v, %v", got, ok)
	}

	p.Remove("c1")
	if _, ok := p.Get("c1"); ok {
		t.Error("Get(c1) should miss after Remove")
	}
	if p.Count() != 1 {
		t.Errorf("Count() = %d, want 1", p.Count())
	}

	// 重复移除不影响计数
	p.Remove("c1")
	if p.Count() != 1 {
		t.Errorf("Count() after duplicate Remove = %d, want 1", p.Count())
	}
}

func TestPoolMaxConnections(t *testing.T) {
	p := NewPool(2)

	for i := 0; i < 2; i++ {
		if err := p.Add(&Client{ID: fmt.Sprintf("c%d", i)}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := p.Add(&Client{ID: "overflow"}); err != ErrMaxConnections {
		t.Errorf("Add() error = %v, want ErrMaxConnections", err)
	}

	// 释放后可以继续接入
	p.Remove("c0")
	if err := p.Add(&Client{ID: "c3"}); err != nil {
		t.Errorf("Add() after Remove error = %v", err)
	}
}

func TestPoolAll(t *testing.T) {
	p := NewPool(0)
	for i := 0; i < 3; i++ {
		_ = p.Add(&Client{ID: fmt.Sprintf("c%d", i)})
	}

	all := p.All()
	if len(all) != 3 {
		t.Errorf("All() len = %d, want 3", len(all))
	}

	var visited int
	p.Range(func(c *Client) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("Range() visited = %d, want 2 (提前终止)", visited)
	}
}
