// Package draft holds the in-memory test a specialist is assembling and the
// dispatcher that is the only way to change it.
package draft

import (
	"time"

	"github.com/chalk-edu/chalk/internal/models"
)

// Group is an ordered list of exercise references. A Group reachable from a
// Draft is never modified; dispatch replaces it instead.
type Group struct {
	Title       string
	ExerciseIDs []string
}

// Draft is an arena+index view of a test being authored. Groups hold exercise
// IDs, resolved through Exercises. The insertion point is
// (GroupPosition, ExercisePosition).
type Draft struct {
	ID      string
	OwnerID string
	Title   string

	Groups    []*Group
	Exercises map[string]*models.Exercise

	GroupPosition    int
	ExercisePosition int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns an empty draft with a single empty group
func New(id, ownerID, title string) *Draft {
	now := time.Now()
	return &Draft{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		Groups:    []*Group{{}},
		Exercises: map[string]*models.Exercise{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// clone copies the draft shell. Groups and arena entries are shared.
func (d *Draft) clone() *Draft {
	next := *d
	next.Groups = make([]*Group, len(d.Groups))
	copy(next.Groups, d.Groups)
	next.UpdatedAt = time.Now()
	return &next
}

// cloneArena gives next its own exercise map so it can add or drop entries
func (d *Draft) cloneArena() {
	arena := make(map[string]*models.Exercise, len(d.Exercises)+1)
	for id, e := range d.Exercises {
		arena[id] = e
	}
	d.Exercises = arena
}

// Exercise resolves an exercise reference
func (d *Draft) Exercise(id string) (*models.Exercise, bool) {
	e, ok := d.Exercises[id]
	return e, ok
}

// GroupExercises resolves the exercises of group g in order
func (d *Draft) GroupExercises(g int) []*models.Exercise {
	if g < 0 || g >= len(d.Groups) {
		return nil
	}
	out := make([]*models.Exercise, 0, len(d.Groups[g].ExerciseIDs))
	for _, id := range d.Groups[g].ExerciseIDs {
		if e, ok := d.Exercises[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// ExerciseCount is the number of references across all groups
func (d *Draft) ExerciseCount() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.ExerciseIDs)
	}
	return n
}

func (d *Draft) referenced(id string) bool {
	for _, g := range d.Groups {
		for _, ref := range g.ExerciseIDs {
			if ref == id {
				return true
			}
		}
	}
	return false
}

// TestGroups converts the draft layout to the persisted test layout
func (d *Draft) TestGroups() []models.TestGroup {
	groups := make([]models.TestGroup, 0, len(d.Groups))
	for _, g := range d.Groups {
		ids := make([]string, len(g.ExerciseIDs))
		copy(ids, g.ExerciseIDs)
		groups = append(groups, models.TestGroup{Title: g.Title, ExerciseIDs: ids})
	}
	return groups
}

// View is the JSON form of a draft with references resolved
type View struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Groups           []GroupView `json:"groups"`
	GroupPosition    int         `json:"group_position"`
	ExercisePosition int         `json:"exercise_position"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type GroupView struct {
	Title     string             `json:"title"`
	Exercises []*models.Exercise `json:"exercises"`
}

func (d *Draft) View() View {
	v := View{
		ID:               d.ID,
		Title:            d.Title,
		Groups:           make([]GroupView, 0, len(d.Groups)),
		GroupPosition:    d.GroupPosition,
		ExercisePosition: d.ExercisePosition,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	for i, g := range d.Groups {
		v.Groups = append(v.Groups, GroupView{Title: g.Title, Exercises: d.GroupExercises(i)})
	}
	return v
}
