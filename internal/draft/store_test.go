package draft

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lifecycle(t *testing.T) {
	s := NewStore(time.Hour)
	d := s.Create("alice", "Quiz")
	require.NotEmpty(t, d.ID)
	require.Len(t, d.Groups, 1)

	got, err := s.Get(d.ID, "alice")
	require.NoError(t, err)
	assert.Same(t, d, got)

	_, err = s.Get(d.ID, "bob")
	assert.ErrorIs(t, err, ErrNotOwner)

	next, err := s.Apply(d.ID, "alice", AddExercise{Exercise: exercise("E1")})
	require.NoError(t, err)
	assert.Equal(t, []string{"E1"}, next.Groups[0].ExerciseIDs)

	_, err = s.Apply(d.ID, "alice", RemoveGroup{GroupPosition: 3})
	assert.ErrorIs(t, err, ErrInvalidPosition)
	got, err = s.Get(d.ID, "alice")
	require.NoError(t, err)
	assert.Same(t, next, got, "a failed dispatch keeps the stored draft")

	assert.Len(t, s.ListByOwner("alice"), 1)
	assert.Empty(t, s.ListByOwner("bob"))

	require.NoError(t, s.Delete(d.ID, "alice"))
	_, err = s.Get(d.ID, "alice")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(10 * time.Minute)
	s.now = func() time.Time { return now }

	kept := s.Create("alice", "")
	expired := s.Create("alice", "")

	now = now.Add(6 * time.Minute)
	_, err := s.Get(kept.ID, "alice")
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	_, err = s.Get(expired.ID, "alice")
	assert.ErrorIs(t, err, ErrDraftNotFound)

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}

func TestStore_ListByOwnerOrder(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Hour)
	s.now = func() time.Time { return now }

	first := s.Create("alice", "first")
	now = now.Add(time.Minute)
	second := s.Create("alice", "second")
	now = now.Add(time.Minute)
	third := s.Create("alice", "third")
	s.Create("bob", "other")

	titles := func() []string {
		var out []string
		for _, d := range s.ListByOwner("alice") {
			out = append(out, d.Title)
		}
		return out
	}

	tests := []struct {
		name  string
		touch func()
		want  []string
	}{
		{
			name:  "newest first",
			touch: func() {},
			want:  []string{"third", "second", "first"},
		},
		{
			name: "an edit moves the draft up",
			touch: func() {
				now = now.Add(time.Minute)
				_, err := s.Apply(first.ID, "alice", AddExercise{Exercise: exercise("E1")})
				require.NoError(t, err)
			},
			want: []string{"first", "third", "second"},
		},
		{
			name: "reading does not reorder",
			touch: func() {
				now = now.Add(time.Minute)
				_, err := s.Get(second.ID, "alice")
				require.NoError(t, err)
			},
			want: []string{"first", "third", "second"},
		},
		{
			name: "a failed edit does not reorder",
			touch: func() {
				now = now.Add(time.Minute)
				_, err := s.Apply(third.ID, "alice", RemoveGroup{GroupPosition: 3})
				require.Error(t, err)
			},
			want: []string{"first", "third", "second"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.touch()
			for i := 0; i < 5; i++ {
				assert.Equal(t, tt.want, titles())
			}
		})
	}
}

func TestStore_ConcurrentApply(t *testing.T) {
	s := NewStore(time.Hour)
	d := s.Create("alice", "")

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := s.Apply(d.ID, "alice", AddExercise{ExercisePosition: 1 << 20, Exercise: exercise(string(rune('a' + i)))})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.Get(d.ID, "alice")
	require.NoError(t, err)
	assert.Len(t, got.Groups[0].ExerciseIDs, writers)
}

func TestStore_ApplyRequest(t *testing.T) {
	s := NewStore(time.Hour)
	d := s.Create("alice", "")

	got, err := s.ApplyRequest(d.ID, "alice", Request{Type: "add_exercise"}, exercise("e1"))
	require.NoError(t, err)
	got, err = s.ApplyRequest(d.ID, "alice", Request{Type: KindAddExercise}, exercise("e2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, got.Groups[0].ExerciseIDs, "defaults follow the insertion point")

	_, err = s.ApplyRequest(d.ID, "alice", Request{Type: "SHUFFLE"}, nil)
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = s.ApplyRequest(d.ID, "bob", Request{Type: KindSetTitle, Title: "x"}, nil)
	assert.ErrorIs(t, err, ErrNotOwner)

	stored, err := s.Get(d.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ExerciseCount())
}
