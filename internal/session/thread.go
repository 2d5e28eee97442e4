package session

import "photogram/internal/model"

// ThreadedComment is a top-level comment carrying its replies for display.
type ThreadedComment struct {
	model.Comment
	Replies []model.Comment
}

// BuildThreads groups a flat comment list into top-level entries with their
// replies attached, preserving the flat list's order in both tiers. A reply
// whose parent is missing (a cascade landed between snapshots) is dropped
// rather than promoted.
func BuildThreads(comments []model.Comment) []ThreadedComment {
	threads := make([]ThreadedComment, 0, len(comments))
	index := make(map[string]int, len(comments))

	for _, c := range comments {
		if c.IsTopLevel() {
			index[c.ID] = len(threads)
			threads = append(threads, ThreadedComment{Comment: c})
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		if i, ok := index[*c.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, c)
		}
	}
	return threads
}
