package session

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"torrentcore/internal/domain"
)

func addThree(t *testing.T, s *Session, dir string) (domain.TorrentID, domain.TorrentID, domain.TorrentID) {
	t.Helper()
	ctx := context.Background()
	a, err := s.Add(ctx, magnetFor(hashA, "alpha"), dir)
	if err != nil {
		t.Fatalf("add alpha: %v", err)
	}
	b, err := s.Add(ctx, magnetFor(hashB, "beta"), dir)
	if err != nil {
		t.Fatalf("add beta: %v", err)
	}
	c, err := s.Add(ctx, magnetFor(hashC, "gamma"), dir)
	if err != nil {
		t.Fatalf("add gamma: %v", err)
	}
	return a, b, c
}

func TestNameAtBeforeSnapshot(t *testing.T) {
	s, _, dir := newTestSession(t)
	addThree(t, s, dir)

	_, err := s.NameAt(0)
	if !errors.Is(err, domain.ErrNoSnapshot) {
		t.Fatalf("err = %v", err)
	}
}

func TestSnapshotInsertionOrder(t *testing.T) {
	s, _, dir := newTestSession(t)
	a, b, c := addThree(t, s, dir)

	items, err := s.TakeSnapshot(-1)
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d", len(items))
	}
	if items[0].ID != a || items[1].ID != b || items[2].ID != c {
		t.Fatalf("order = %v, %v, %v", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestSnapshotTruncatesTail(t *testing.T) {
	s, _, dir := newTestSession(t)
	a, b, _ := addThree(t, s, dir)

	items, err := s.TakeSnapshot(2)
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if len(items) != 2 || items[0].ID != a || items[1].ID != b {
		t.Fatalf("items = %+v", items)
	}
}

func TestSnapshotMaxBeyondCount(t *testing.T) {
	s, _, dir := newTestSession(t)
	addThree(t, s, dir)

	items, err := s.TakeSnapshot(10)
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d", len(items))
	}
}

func TestSnapshotZeroHoldsEmptyView(t *testing.T) {
	s, _, dir := newTestSession(t)
	addThree(t, s, dir)

	items, err := s.TakeSnapshot(0)
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("len = %d", len(items))
	}
	// The empty view replaced whatever was held before: index 0 is now out
	// of range, not un-snapshotted.
	if _, err := s.NameAt(0); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
}

func TestSnapshotIdempotentWhenQuiet(t *testing.T) {
	s, _, dir := newTestSession(t)
	addThree(t, s, dir)

	first, err := s.TakeSnapshot(-1)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := s.TakeSnapshot(-1)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshots differ:\n%+v\n%+v", first, second)
	}
}

func TestNameAtAnswersFromHeldView(t *testing.T) {
	s, _, dir := newTestSession(t)
	addThree(t, s, dir)

	if _, err := s.TakeSnapshot(-1); err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	for i, want := range []string{"alpha", "beta", "gamma"} {
		got, err := s.NameAt(i)
		if err != nil {
			t.Fatalf("NameAt(%d): %v", i, err)
		}
		if got != want {
			t.Fatalf("NameAt(%d) = %q, want %q", i, got, want)
		}
	}

	for _, idx := range []int{-1, 3, 100} {
		if _, err := s.NameAt(idx); !errors.Is(err, domain.ErrIndexOutOfRange) {
			t.Fatalf("NameAt(%d) err = %v", idx, err)
		}
	}
}

func TestHeldViewFrozenAgainstLiveChanges(t *testing.T) {
	s, _, dir := newTestSession(t)
	a, _, _ := addThree(t, s, dir)

	if _, err := s.TakeSnapshot(-1); err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	s.dispatch(domain.Event{Type: domain.EventMetadata, ID: a, Name: "alpha-renamed"})

	got, err := s.NameAt(0)
	if err != nil {
		t.Fatalf("NameAt: %v", err)
	}
	if got != "alpha" {
		t.Fatalf("NameAt(0) = %q", got)
	}

	// A fresh snapshot picks the rename up.
	if _, err := s.TakeSnapshot(-1); err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	got, _ = s.NameAt(0)
	if got != "alpha-renamed" {
		t.Fatalf("NameAt(0) = %q", got)
	}
}

func TestTakeSnapshotReplacesHeldView(t *testing.T) {
	s, _, dir := newTestSession(t)
	addThree(t, s, dir)

	if _, err := s.TakeSnapshot(-1); err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if _, err := s.NameAt(2); err != nil {
		t.Fatalf("NameAt(2): %v", err)
	}

	if _, err := s.TakeSnapshot(1); err != nil {
		t.Fatalf("TakeSnapshot(1): %v", err)
	}
	if _, err := s.NameAt(2); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	got, err := s.NameAt(0)
	if err != nil {
		t.Fatalf("NameAt(0): %v", err)
	}
	if got != "alpha" {
		t.Fatalf("NameAt(0) = %q", got)
	}
}

func TestCallerSliceDoesNotAliasHeldView(t *testing.T) {
	s, _, dir := newTestSession(t)
	addThree(t, s, dir)

	items, err := s.TakeSnapshot(-1)
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	items[0].Name = "scribbled"

	got, err := s.NameAt(0)
	if err != nil {
		t.Fatalf("NameAt: %v", err)
	}
	if got != "alpha" {
		t.Fatalf("NameAt(0) = %q", got)
	}
}

func TestStatusesDoesNotReplaceHeldView(t *testing.T) {
	s, _, dir := newTestSession(t)
	addThree(t, s, dir)

	if _, err := s.TakeSnapshot(1); err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}

	all := s.Statuses()
	if len(all) != 3 {
		t.Fatalf("len = %d", len(all))
	}
	// The held view is still the one-item snapshot.
	if _, err := s.NameAt(1); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoveShiftsSnapshotIndexes(t *testing.T) {
	s, _, dir := newTestSession(t)
	a, b, c := addThree(t, s, dir)
	_ = a

	if err := s.Remove(context.Background(), b); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	items, err := s.TakeSnapshot(-1)
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if len(items) != 2 || items[1].ID != c {
		t.Fatalf("items = %+v", items)
	}
	got, _ := s.NameAt(1)
	if got != "gamma" {
		t.Fatalf("NameAt(1) = %q", got)
	}
}
