package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chalk-edu/chalk/internal/models"
)

// BusinessValidator handles struct tags plus Chalk's domain rules
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates struct tags for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateExerciseCreate checks the request, its type-specific content and
// its rubric
func (bv *BusinessValidator) ValidateExerciseCreate(req *models.ExerciseCreateRequest) ValidationErrors {
	errs := bv.Validate(req)
	if len(errs) > 0 {
		// content cannot be decoded without a valid type
		return errs
	}

	content, err := models.DecodeContent(req.Type, req.Content)
	if err != nil {
		errs = append(errs, ValidationError{Field: "content", Message: err.Error(), Rule: "exercise_content"})
	} else if err := content.Validate(); err != nil {
		errs = append(errs, ValidationError{Field: "content", Message: err.Error(), Rule: "exercise_content"})
	}

	if req.Rubric != nil {
		errs = append(errs, bv.ValidateRubric(req.Rubric)...)
	}

	if req.Visibility == models.VisibilityCourse && req.CourseID == nil {
		errs = append(errs, ValidationError{Field: "course_id", Message: "is required for course visibility", Rule: "business_logic"})
	}

	seen := make(map[string]bool, len(req.Tags))
	for i, tag := range req.Tags {
		key := strings.ToLower(strings.TrimSpace(tag))
		if seen[key] {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("tags[%d]", i), Message: "duplicate tag", Value: tag, Rule: "unique"})
		}
		seen[key] = true
	}
	return errs
}

// ValidateRubric reports rubric defects as field errors under "rubric."
func (bv *BusinessValidator) ValidateRubric(r *models.Rubric) ValidationErrors {
	var errs ValidationErrors
	for _, p := range r.Problems() {
		errs = append(errs, ValidationError{Field: "rubric." + p.Field, Message: p.Message, Rule: "rubric"})
	}
	return errs
}

// ValidateTestCreate checks the request and the group layout
func (bv *BusinessValidator) ValidateTestCreate(req *models.TestCreateRequest) ValidationErrors {
	errs := bv.Validate(req)

	seen := make(map[string]bool)
	total := 0
	for i, g := range req.Groups {
		if g.Points < 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("groups[%d].points", i), Message: "cannot be negative", Value: g.Points, Rule: "min"})
		}
		for j, id := range g.ExerciseIDs {
			if seen[id] {
				errs = append(errs, ValidationError{Field: fmt.Sprintf("groups[%d].exercise_ids[%d]", i, j), Message: "exercise already used in this test", Value: id, Rule: "unique"})
			}
			seen[id] = true
			total++
		}
	}
	if len(req.Groups) > 0 && total == 0 {
		errs = append(errs, ValidationError{Field: "groups", Message: "must reference at least one exercise", Rule: "business_logic"})
	}
	if req.Visibility == models.VisibilityCourse && req.CourseID == nil {
		errs = append(errs, ValidationError{Field: "course_id", Message: "is required for course visibility", Rule: "business_logic"})
	}
	return errs
}

// ValidateResolution checks group indices against the test layout
func (bv *BusinessValidator) ValidateResolution(req *models.ResolutionCreateRequest, groupCount int) ValidationErrors {
	errs := bv.Validate(req)

	seen := make(map[int]bool, len(req.Groups))
	for i, g := range req.Groups {
		field := fmt.Sprintf("groups[%d].group_index", i)
		if g.GroupIndex < 0 || g.GroupIndex >= groupCount {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("must be between 0 and %d", groupCount-1), Value: g.GroupIndex, Rule: "range"})
		}
		if seen[g.GroupIndex] {
			errs = append(errs, ValidationError{Field: field, Message: "duplicate group", Value: g.GroupIndex, Rule: "unique"})
		}
		seen[g.GroupIndex] = true
		if g.Points != nil && *g.Points < 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("groups[%d].points", i), Message: "cannot be negative", Value: *g.Points, Rule: "min"})
		}
	}
	return errs
}

// registerBusinessRules registers the domain enum tags
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("exercise_type", func(fl validator.FieldLevel) bool {
		return models.ExerciseType(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
		return models.Visibility(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	bv.validate.RegisterValidation("standard_level", func(fl validator.FieldLevel) bool {
		return models.StandardLevel(fl.Field().String()).IsValid()
	})
}
