package book

import (
	"testing"
)

func TestLadderSetReplacesAtSamePrice(t *testing.T) {
	l := NewLadder()
	l.Set(dec(t, "100.5"), dec(t, "1"))
	l.Set(dec(t, "100.5"), dec(t, "7"))

	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
	got, ok := l.Get(dec(t, "100.5"))
	if !ok || !got.Size.Equal(dec(t, "7")) {
		t.Errorf("Get(100.5) = %s, want 7", got.Size)
	}
}

func TestLadderRemoveAbsentIsNoop(t *testing.T) {
	l := NewLadder()
	l.Set(dec(t, "1"), dec(t, "1"))
	l.Remove(dec(t, "2"))

	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestLadderMinMax(t *testing.T) {
	l := NewLadder()
	if _, ok := l.Min(); ok {
		t.Error("Min() present on empty ladder")
	}
	if _, ok := l.Max(); ok {
		t.Error("Max() present on empty ladder")
	}

	for _, p := range []string{"5", "1", "9", "3"} {
		l.Set(dec(t, p), dec(t, "1"))
	}
	min, _ := l.Min()
	if !min.Price.Equal(dec(t, "1")) {
		t.Errorf("Min() = %s, want 1", min.Price)
	}
	max, _ := l.Max()
	if !max.Price.Equal(dec(t, "9")) {
		t.Errorf("Max() = %s, want 9", max.Price)
	}
}

func TestLadderIterationOrder(t *testing.T) {
	l := NewLadder()
	for _, p := range []string{"2.2", "1.1", "3.3"} {
		l.Set(dec(t, p), dec(t, "1"))
	}

	var asc []string
	l.Ascend(func(lv Level) bool {
		asc = append(asc, lv.Price.String())
		return true
	})
	if asc[0] != "1.1" || asc[1] != "2.2" || asc[2] != "3.3" {
		t.Errorf("Ascend order = %v", asc)
	}

	var desc []string
	l.Descend(func(lv Level) bool {
		desc = append(desc, lv.Price.String())
		return true
	})
	if desc[0] != "3.3" || desc[1] != "2.2" || desc[2] != "1.1" {
		t.Errorf("Descend order = %v", desc)
	}
}

func TestLadderIterationStopsEarly(t *testing.T) {
	l := NewLadder()
	for _, p := range []string{"1", "2", "3", "4", "5"} {
		l.Set(dec(t, p), dec(t, "1"))
	}

	visited := 0
	l.Ascend(func(Level) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("visited %d levels, want 2", visited)
	}
}

func TestLadderCloneIsIndependent(t *testing.T) {
	l := NewLadder()
	l.Set(dec(t, "1"), dec(t, "1"))
	c := l.Clone()

	l.Set(dec(t, "2"), dec(t, "2"))
	c.Remove(dec(t, "1"))

	if l.Len() != 2 {
		t.Errorf("original Len() = %d, want 2", l.Len())
	}
	if c.Len() != 0 {
		t.Errorf("clone Len() = %d, want 0", c.Len())
	}
}
