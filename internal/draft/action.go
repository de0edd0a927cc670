package draft

import (
	"fmt"
	"strings"

	"github.com/chalk-edu/chalk/internal/models"
)

type Kind string

const (
	KindAddExercise    Kind = "ADD_EXERCISE"
	KindRemoveExercise Kind = "REMOVE_EXERCISE"
	KindMoveExercise   Kind = "MOVE_EXERCISE"
	KindAddGroup       Kind = "ADD_GROUP"
	KindRemoveGroup    Kind = "REMOVE_GROUP"
	KindSetPosition    Kind = "SET_POSITION"
	KindSetGroupTitle  Kind = "SET_GROUP_TITLE"
	KindSetTitle       Kind = "SET_TITLE"
)

// Action is one of the closed set of draft mutations below
type Action interface {
	Kind() Kind
}

// Position addresses one exercise slot
type Position struct {
	Group    int `json:"group"`
	Exercise int `json:"exercise"`
}

type AddExercise struct {
	GroupPosition    int
	ExercisePosition int
	Exercise         *models.Exercise
}

type RemoveExercise struct {
	GroupPosition    int
	ExercisePosition int
}

type MoveExercise struct {
	From Position
	To   Position
}

type AddGroup struct {
	GroupPosition int
	Title         string
}

type RemoveGroup struct {
	GroupPosition int
}

type SetPosition struct {
	GroupPosition    int
	ExercisePosition int
}

type SetGroupTitle struct {
	GroupPosition int
	Title         string
}

type SetTitle struct {
	Title string
}

func (AddExercise) Kind() Kind    { return KindAddExercise }
func (RemoveExercise) Kind() Kind { return KindRemoveExercise }
func (MoveExercise) Kind() Kind   { return KindMoveExercise }
func (AddGroup) Kind() Kind       { return KindAddGroup }
func (RemoveGroup) Kind() Kind    { return KindRemoveGroup }
func (SetPosition) Kind() Kind    { return KindSetPosition }
func (SetGroupTitle) Kind() Kind  { return KindSetGroupTitle }
func (SetTitle) Kind() Kind       { return KindSetTitle }

// Request is the wire form of an action. Omitted positions default to the
// draft's current insertion point.
type Request struct {
	Type             Kind      `json:"type" binding:"required"`
	GroupPosition    *int      `json:"group_position"`
	ExercisePosition *int      `json:"exercise_position"`
	ExerciseID       string    `json:"exercise_id"`
	From             *Position `json:"from"`
	To               *Position `json:"to"`
	Title            string    `json:"title"`
}

// NormalizedType returns the request kind in canonical upper case
func (r Request) NormalizedType() Kind {
	return Kind(strings.ToUpper(strings.TrimSpace(string(r.Type))))
}

// ToAction builds the typed action for r against d. exercise is only used by
// ADD_EXERCISE and must be the fetched exercise named by r.ExerciseID.
func (r Request) ToAction(d *Draft, exercise *models.Exercise) (Action, error) {
	group := d.GroupPosition
	if r.GroupPosition != nil {
		group = *r.GroupPosition
	}
	pos := d.ExercisePosition
	if r.ExercisePosition != nil {
		pos = *r.ExercisePosition
	}

	switch r.NormalizedType() {
	case KindAddExercise:
		return AddExercise{GroupPosition: group, ExercisePosition: pos, Exercise: exercise}, nil
	case KindRemoveExercise:
		return RemoveExercise{GroupPosition: group, ExercisePosition: pos}, nil
	case KindMoveExercise:
		if r.From == nil || r.To == nil {
			return nil, fmt.Errorf("%w: move needs from and to", ErrInvalidPosition)
		}
		return MoveExercise{From: *r.From, To: *r.To}, nil
	case KindAddGroup:
		if r.GroupPosition == nil {
			group = len(d.Groups)
		}
		return AddGroup{GroupPosition: group, Title: r.Title}, nil
	case KindRemoveGroup:
		return RemoveGroup{GroupPosition: group}, nil
	case KindSetPosition:
		return SetPosition{GroupPosition: group, ExercisePosition: pos}, nil
	case KindSetGroupTitle:
		return SetGroupTitle{GroupPosition: group, Title: r.Title}, nil
	case KindSetTitle:
		return SetTitle{Title: r.Title}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, r.Type)
	}
}
