package session

import (
	"testing"

	"photogram/internal/model"
)

func TestBuildThreads_GroupsRepliesUnderRoots(t *testing.T) {
	flat := []model.Comment{
		topLevel("c1"),
		reply("r1", "c1"),
		topLevel("c2"),
		reply("r2", "c1"),
		reply("r3", "c2"),
	}

	threads := BuildThreads(flat)

	if len(threads) != 2 {
		t.Fatalf("threads = %d, want 2", len(threads))
	}
	if threads[0].ID != "c1" || threads[1].ID != "c2" {
		t.Errorf("roots = [%s %s], want flat order preserved", threads[0].ID, threads[1].ID)
	}
	if got := commentIDs(threads[0].Replies); len(got) != 2 || got[0] != "r1" || got[1] != "r2" {
		t.Errorf("c1 replies = %v, want [r1 r2]", got)
	}
	if got := commentIDs(threads[1].Replies); len(got) != 1 || got[0] != "r3" {
		t.Errorf("c2 replies = %v, want [r3]", got)
	}
}

func TestBuildThreads_DropsOrphanReplies(t *testing.T) {
	flat := []model.Comment{
		topLevel("c1"),
		reply("r1", "gone"), // parent deleted between snapshots
	}

	threads := BuildThreads(flat)

	if len(threads) != 1 || threads[0].ID != "c1" {
		t.Fatalf("threads = %+v, want only c1", threads)
	}
	if len(threads[0].Replies) != 0 {
		t.Errorf("c1 replies = %v, want none", commentIDs(threads[0].Replies))
	}
}

func TestBuildThreads_Empty(t *testing.T) {
	if threads := BuildThreads(nil); len(threads) != 0 {
		t.Errorf("threads = %v, want empty", threads)
	}
}
