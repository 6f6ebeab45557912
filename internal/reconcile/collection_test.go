package reconcile

import (
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func comment(id, postID, content string) models.Comment {
	return models.Comment{ID: id, PostID: postID, Content: content, UserID: "u1"}
}

func event(t *testing.T, et models.EventType, cm models.Comment) models.ChangeEvent {
	t.Helper()
	var newRow, oldRow any
	switch et {
	case models.EventDelete:
		oldRow = cm
	default:
		newRow = cm
	}
	ev, err := models.NewChangeEvent(models.TableComments, et, newRow, oldRow)
	require.NoError(t, err)
	return ev
}

func ids(comments []models.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.ID)
	}
	return out
}

func TestCollection_ResetDedupes(t *testing.T) {
	c := NewCollection("p1")
	c.Reset([]models.Comment{comment("1", "p1", "a"), comment("2", "p1", "b"), comment("1", "p1", "dup")})

	assert.Equal(t, []string{"1", "2"}, ids(c.Items()))
	assert.Equal(t, "a", c.Items()[0].Content)
}

func TestCollection_InsertExistingIsNoop(t *testing.T) {
	c := NewCollection("p1")
	c.Reset([]models.Comment{comment("1", "p1", "hi")})

	changed := c.Apply(event(t, models.EventInsert, comment("1", "p1", "echo")))

	assert.False(t, changed)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "hi", c.Items()[0].Content)
}

func TestCollection_AbsentIDsAreNoops(t *testing.T) {
	c := NewCollection("p1")
	c.Reset([]models.Comment{comment("1", "p1", "hi")})
	before := c.Items()

	assert.False(t, c.Apply(event(t, models.EventUpdate, comment("9", "p1", "x"))))
	assert.False(t, c.Apply(event(t, models.EventDelete, comment("9", "p1", ""))))
	assert.Equal(t, before, c.Items())
}

func TestCollection_DeleteTwiceEqualsOnce(t *testing.T) {
	seed := []models.Comment{comment("1", "p1", "a"), comment("2", "p1", "b"), comment("3", "p1", "c")}
	del := event(t, models.EventDelete, comment("2", "p1", "b"))

	once := NewCollection("p1")
	once.Reset(seed)
	once.Apply(del)

	twice := NewCollection("p1")
	twice.Reset(seed)
	twice.Apply(del)
	twice.Apply(del)

	assert.Equal(t, once.Items(), twice.Items())
	assert.Equal(t, []string{"1", "3"}, ids(twice.Items()))
}

func TestCollection_UpdateKeepsPosition(t *testing.T) {
	c := NewCollection("p1")
	c.Reset([]models.Comment{comment("1", "p1", "a"), comment("2", "p1", "b")})

	require.True(t, c.Apply(event(t, models.EventUpdate, comment("1", "p1", "edited"))))
	assert.Equal(t, []string{"1", "2"}, ids(c.Items()))
	assert.Equal(t, "edited", c.Items()[0].Content)
}

func TestCollection_DeleteFallsBackToNewRow(t *testing.T) {
	c := NewCollection("p1")
	c.Reset([]models.Comment{comment("1", "p1", "a")})

	ev, err := models.NewChangeEvent(models.TableComments, models.EventDelete, comment("1", "p1", "a"), nil)
	require.NoError(t, err)

	assert.True(t, c.Apply(ev))
	assert.Zero(t, c.Len())
}

func TestCollection_IgnoresForeignRows(t *testing.T) {
	c := NewCollection("p1")

	assert.False(t, c.Apply(event(t, models.EventInsert, comment("1", "p2", "other post"))))

	postEv, err := models.NewChangeEvent(models.TablePosts, models.EventInsert, models.Post{ID: "x"}, nil)
	require.NoError(t, err)
	assert.False(t, c.Apply(postEv))

	assert.False(t, c.Apply(models.ChangeEvent{Table: models.TableComments, EventType: models.EventInsert}))
	assert.Zero(t, c.Len())
}

func TestCollection_ItemsIsACopy(t *testing.T) {
	c := NewCollection("")
	c.Insert(comment("1", "p1", "a"))

	items := c.Items()
	items[0].Content = "mutated"

	assert.Equal(t, "a", c.Items()[0].Content)
}
