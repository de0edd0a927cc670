package draft

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPosition = errors.New("invalid draft position")
	ErrUnknownAction   = errors.New("unknown draft action")
	ErrInvalidExercise = errors.New("exercise must be a fetched exercise")
	ErrLastGroup       = errors.New("a draft keeps at least one group")
)

// Dispatch applies a to d and returns the resulting draft. d is left as is.
// Group indices must address an existing group; exercise indices past the
// end of a group append.
func Dispatch(d *Draft, a Action) (*Draft, error) {
	if d == nil {
		return nil, errors.New("nil draft")
	}

	switch act := a.(type) {
	case AddExercise:
		return addExercise(d, act)
	case RemoveExercise:
		return removeExercise(d, act)
	case MoveExercise:
		return moveExercise(d, act)
	case AddGroup:
		return addGroup(d, act)
	case RemoveGroup:
		return removeGroup(d, act)
	case SetPosition:
		return setPosition(d, act)
	case SetGroupTitle:
		return setGroupTitle(d, act)
	case SetTitle:
		next := d.clone()
		next.Title = strings.TrimSpace(act.Title)
		return next, nil
	case nil:
		return nil, fmt.Errorf("%w: nil action", ErrUnknownAction)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, a.Kind())
	}
}

func checkGroup(d *Draft, g int) error {
	if g < 0 || g >= len(d.Groups) {
		return fmt.Errorf("%w: group %d of %d", ErrInvalidPosition, g, len(d.Groups))
	}
	return nil
}

// clampExercise bounds an insertion index to [0, n]; negatives are rejected
func clampExercise(e, n int) (int, error) {
	if e < 0 {
		return 0, fmt.Errorf("%w: exercise %d", ErrInvalidPosition, e)
	}
	if e > n {
		return n, nil
	}
	return e, nil
}

// checkExercise requires e to address an existing slot of a group of size n
func checkExercise(e, n int) error {
	if e < 0 || e >= n {
		return fmt.Errorf("%w: exercise %d of %d", ErrInvalidPosition, e, n)
	}
	return nil
}

func insertID(ids []string, at int, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:at]...)
	out = append(out, id)
	return append(out, ids[at:]...)
}

func removeID(ids []string, at int) []string {
	out := make([]string, 0, len(ids)-1)
	out = append(out, ids[:at]...)
	return append(out, ids[at+1:]...)
}

func addExercise(d *Draft, a AddExercise) (*Draft, error) {
	if a.Exercise == nil || a.Exercise.ID == "" {
		return nil, ErrInvalidExercise
	}
	if err := checkGroup(d, a.GroupPosition); err != nil {
		return nil, err
	}
	old := d.Groups[a.GroupPosition]
	at, err := clampExercise(a.ExercisePosition, len(old.ExerciseIDs))
	if err != nil {
		return nil, err
	}

	next := d.clone()
	next.cloneArena()
	next.Exercises[a.Exercise.ID] = a.Exercise
	next.Groups[a.GroupPosition] = &Group{Title: old.Title, ExerciseIDs: insertID(old.ExerciseIDs, at, a.Exercise.ID)}
	next.GroupPosition = a.GroupPosition
	next.ExercisePosition = at + 1
	return next, nil
}

func removeExercise(d *Draft, a RemoveExercise) (*Draft, error) {
	if err := checkGroup(d, a.GroupPosition); err != nil {
		return nil, err
	}
	old := d.Groups[a.GroupPosition]
	if err := checkExercise(a.ExercisePosition, len(old.ExerciseIDs)); err != nil {
		return nil, err
	}
	removed := old.ExerciseIDs[a.ExercisePosition]

	next := d.clone()
	next.Groups[a.GroupPosition] = &Group{Title: old.Title, ExerciseIDs: removeID(old.ExerciseIDs, a.ExercisePosition)}
	if !next.referenced(removed) {
		next.cloneArena()
		delete(next.Exercises, removed)
	}
	if next.GroupPosition == a.GroupPosition && next.ExercisePosition > a.ExercisePosition {
		next.ExercisePosition--
	}
	return next, nil
}

func moveExercise(d *Draft, a MoveExercise) (*Draft, error) {
	if err := checkGroup(d, a.From.Group); err != nil {
		return nil, err
	}
	if err := checkGroup(d, a.To.Group); err != nil {
		return nil, err
	}
	src := d.Groups[a.From.Group]
	if err := checkExercise(a.From.Exercise, len(src.ExerciseIDs)); err != nil {
		return nil, err
	}
	id := src.ExerciseIDs[a.From.Exercise]

	next := d.clone()
	next.Groups[a.From.Group] = &Group{Title: src.Title, ExerciseIDs: removeID(src.ExerciseIDs, a.From.Exercise)}

	dst := next.Groups[a.To.Group]
	at, err := clampExercise(a.To.Exercise, len(dst.ExerciseIDs))
	if err != nil {
		return nil, err
	}
	next.Groups[a.To.Group] = &Group{Title: dst.Title, ExerciseIDs: insertID(dst.ExerciseIDs, at, id)}
	next.GroupPosition = a.To.Group
	next.ExercisePosition = at + 1
	return next, nil
}

func addGroup(d *Draft, a AddGroup) (*Draft, error) {
	if a.GroupPosition < 0 {
		return nil, fmt.Errorf("%w: group %d", ErrInvalidPosition, a.GroupPosition)
	}
	at := a.GroupPosition
	if at > len(d.Groups) {
		at = len(d.Groups)
	}

	next := d.clone()
	groups := make([]*Group, 0, len(d.Groups)+1)
	groups = append(groups, d.Groups[:at]...)
	groups = append(groups, &Group{Title: strings.TrimSpace(a.Title)})
	next.Groups = append(groups, d.Groups[at:]...)
	next.GroupPosition = at
	next.ExercisePosition = 0
	return next, nil
}

func removeGroup(d *Draft, a RemoveGroup) (*Draft, error) {
	if err := checkGroup(d, a.GroupPosition); err != nil {
		return nil, err
	}
	if len(d.Groups) == 1 {
		return nil, ErrLastGroup
	}

	next := d.clone()
	next.Groups = append(next.Groups[:a.GroupPosition], next.Groups[a.GroupPosition+1:]...)

	dropped := d.Groups[a.GroupPosition].ExerciseIDs
	if len(dropped) > 0 {
		next.cloneArena()
		for _, id := range dropped {
			if !next.referenced(id) {
				delete(next.Exercises, id)
			}
		}
	}

	switch {
	case next.GroupPosition > a.GroupPosition:
		next.GroupPosition--
	case next.GroupPosition == a.GroupPosition:
		if next.GroupPosition >= len(next.Groups) {
			next.GroupPosition = len(next.Groups) - 1
		}
		next.ExercisePosition = len(next.Groups[next.GroupPosition].ExerciseIDs)
	}
	return next, nil
}

func setPosition(d *Draft, a SetPosition) (*Draft, error) {
	if err := checkGroup(d, a.GroupPosition); err != nil {
		return nil, err
	}
	at, err := clampExercise(a.ExercisePosition, len(d.Groups[a.GroupPosition].ExerciseIDs))
	if err != nil {
		return nil, err
	}
	next := d.clone()
	next.GroupPosition = a.GroupPosition
	next.ExercisePosition = at
	return next, nil
}

func setGroupTitle(d *Draft, a SetGroupTitle) (*Draft, error) {
	if err := checkGroup(d, a.GroupPosition); err != nil {
		return nil, err
	}
	old := d.Groups[a.GroupPosition]
	next := d.clone()
	next.Groups[a.GroupPosition] = &Group{Title: strings.TrimSpace(a.Title), ExerciseIDs: old.ExerciseIDs}
	return next, nil
}
