// Package reconcile keeps a client-side list of a post's comments consistent with the
// server by combining one initial fetch with the live change feed.
package reconcile

import (
	"inkwell/internal/models"
)

// Collection is an ordered list of comments with unique ids. The zero value is empty
// and ready to use. It is not safe for concurrent use.
type Collection struct {
	postID string
	items  []models.Comment
}

// NewCollection returns an empty collection for postID. Change events for rows of
// other posts are ignored; an empty postID accepts every row.
func NewCollection(postID string) *Collection {
	return &Collection{postID: postID}
}

// Reset replaces the contents with comments, keeping the first occurrence of each id.
func (c *Collection) Reset(comments []models.Comment) {
	c.items = make([]models.Comment, 0, len(comments))
	seen := make(map[string]struct{}, len(comments))
	for _, cm := range comments {
		if _, dup := seen[cm.ID]; dup {
			continue
		}
		seen[cm.ID] = struct{}{}
		c.items = append(c.items, cm)
	}
}

// Items returns a copy of the current list.
func (c *Collection) Items() []models.Comment {
	out := make([]models.Comment, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection) Len() int { return len(c.items) }

func (c *Collection) index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Insert appends cm unless a comment with the same id is already present.
func (c *Collection) Insert(cm models.Comment) bool {
	if c.index(cm.ID) >= 0 {
		return false
	}
	c.items = append(c.items, cm)
	return true
}

// Replace swaps in cm at the position of the comment with the same id. Absent ids are
// a no-op.
func (c *Collection) Replace(cm models.Comment) bool {
	i := c.index(cm.ID)
	if i < 0 {
		return false
	}
	c.items[i] = cm
	return true
}

// Remove drops the comment with id. Absent ids are a no-op.
func (c *Collection) Remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// Apply folds one change event into the list and reports whether it changed.
// Re-applying an event already reflected in the list changes nothing.
func (c *Collection) Apply(ev models.ChangeEvent) bool {
	if ev.Table != models.TableComments {
		return false
	}

	var row models.Comment
	if err := ev.DecodeRow(&row); err != nil || row.ID == "" {
		return false
	}
	if c.postID != "" && row.PostID != "" && row.PostID != c.postID {
		return false
	}

	switch ev.EventType {
	case models.EventInsert:
		return c.Insert(row)
	case models.EventUpdate:
		return c.Replace(row)
	case models.EventDelete:
		return c.Remove(row.ID)
	}
	return false
}
