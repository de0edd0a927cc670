package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/session"
	"github.com/chalk-edu/chalk/internal/validator"
)

const (
	RubricSheet   = "Rubric"
	ExerciseSheet = "Exercises"

	defaultSheet = "Sheet1"
)

var (
	RubricHeader   = []string{"Criteria", "Points", "Level", "Description", "Percentage"}
	ExerciseHeader = []string{"Title", "Statement", "Type", "Visibility", "Tags"}

	// optional trailing column of the exercise sheet, JSON encoded
	exerciseContentColumn = "Content"
)

var ErrInvalidWorkbook = errors.New("invalid workbook")

type importExportService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewImportExportService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ImportExportService {
	return &importExportService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ExportRubric writes the rubric as one row per standard. Criteria title and
// points are repeated on each of their rows.
func (s *importExportService) ExportRubric(ctx context.Context, rubric *models.Rubric) ([]byte, error) {
	if rubric == nil {
		return nil, invalid(errors.New("rubric is required"))
	}
	if errs := s.validator.GetBusinessValidator().ValidateRubric(rubric); len(errs) > 0 {
		return nil, errs
	}

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(RubricSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	header := make([]interface{}, len(RubricHeader))
	for i, h := range RubricHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(RubricSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	for _, c := range rubric.Criteria {
		for _, std := range c.Standards {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			values := []interface{}{c.Title, c.Points, std.Title.Name(), std.Description, std.Percentage}
			if err := f.SetSheetRow(RubricSheet, cell, &values); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	s.logger.Debug("Rubric exported", "criteria", len(rubric.Criteria), "rows", row-2)
	return buf.Bytes(), nil
}

// ImportRubric reads a workbook produced by ExportRubric. A criteria ends
// when the title or points change or a level repeats.
func (s *importExportService) ImportRubric(ctx context.Context, r io.Reader) (*models.Rubric, error) {
	rows, err := readSheet(r, RubricSheet, RubricHeader)
	if err != nil {
		return nil, err
	}

	rubric := &models.Rubric{Criteria: []models.Criteria{}}
	var (
		current *models.Criteria
		seen    map[models.StandardLevel]bool
		errs    ValidationErrors
	)
	for _, row := range rows {
		line := row.line
		title := row.cell(0)
		points, err := parseNumber(row.cell(1))
		if err != nil {
			errs = append(errs, rowError(line, "points", err, row.cell(1)))
			continue
		}
		level, err := models.ParseStandardLevel(row.cell(2))
		if err != nil {
			errs = append(errs, rowError(line, "level", err, row.cell(2)))
			continue
		}
		percentage, err := parseNumber(row.cell(4))
		if err != nil {
			errs = append(errs, rowError(line, "percentage", err, row.cell(4)))
			continue
		}

		if current == nil || current.Title != title || current.Points != points || seen[level] {
			rubric.Criteria = append(rubric.Criteria, models.Criteria{Title: title, Points: points})
			current = &rubric.Criteria[len(rubric.Criteria)-1]
			seen = make(map[models.StandardLevel]bool)
		}
		seen[level] = true
		current.Standards = append(current.Standards, models.Standard{
			Title:       level,
			Description: row.cell(3),
			Percentage:  percentage,
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if errs := s.validator.GetBusinessValidator().ValidateRubric(rubric); len(errs) > 0 {
		return nil, errs
	}
	return rubric, nil
}

// ImportExercises creates one exercise per row of the Exercises sheet. Tags
// are comma separated.
func (s *importExportService) ImportExercises(ctx context.Context, sess *session.Session, r io.Reader) ([]*models.Exercise, error) {
	if err := requireRole(sess, "exercise", "import", models.RoleSpecialist); err != nil {
		return nil, err
	}

	rows, err := readSheet(r, ExerciseSheet, ExerciseHeader)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ValidationErrors{*NewValidationError("rows", "the sheet has no exercises", nil)}
	}

	exercises := make([]*models.Exercise, 0, len(rows))
	var errs ValidationErrors
	for _, row := range rows {
		req := &models.ExerciseCreateRequest{
			Title:      row.cell(0),
			Statement:  row.cell(1),
			Type:       models.ExerciseType(strings.TrimSpace(row.cell(2))),
			Visibility: models.Visibility(strings.TrimSpace(row.cell(3))),
			Tags:       splitTags(row.cell(4)),
		}
		if raw := strings.TrimSpace(row.cell(5)); raw != "" {
			req.Content = json.RawMessage(raw)
		}

		exercise, err := buildExercise(s.validator, sess, req)
		if err != nil {
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				return nil, err
			}
			for _, ve := range verrs {
				ve.Field = fmt.Sprintf("rows[%d].%s", row.line, ve.Field)
				errs = append(errs, ve)
			}
			continue
		}
		exercises = append(exercises, exercise)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	s.logger.Info("Importing exercises", "specialist_id", sess.UserID(), "count", len(exercises))
	if err := s.repo.Exercise().CreateBatch(ctx, nil, exercises); err != nil {
		return nil, fmt.Errorf("failed to import exercises: %w", err)
	}
	for _, e := range exercises {
		publishOrLog(ctx, s.publisher, s.logger, exerciseEvent(events.ExerciseCreated, e))
	}
	s.logger.Info("Exercises imported successfully", "count", len(exercises))
	return exercises, nil
}

// sheetRow is a data row with its 1-based line number in the sheet
type sheetRow struct {
	line  int
	cells []string
}

func (r sheetRow) cell(i int) string { return cellAt(r.cells, i) }

// readSheet opens the workbook and returns the data rows of sheet after
// checking its header. Blank rows are dropped but keep their line numbers.
func readSheet(r io.Reader, sheet string, header []string) ([]sheetRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalid(fmt.Errorf("%w: %v", ErrInvalidWorkbook, err))
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, invalid(fmt.Errorf("%w: sheet %q: %v", ErrInvalidWorkbook, sheet, err))
	}
	if len(rows) == 0 {
		return nil, invalid(fmt.Errorf("%w: sheet %q is empty", ErrInvalidWorkbook, sheet))
	}
	for i, want := range header {
		if !strings.EqualFold(strings.TrimSpace(cellAt(rows[0], i)), want) {
			return nil, invalid(fmt.Errorf("%w: column %d of sheet %q must be %q", ErrInvalidWorkbook, i+1, sheet, want))
		}
	}

	data := make([]sheetRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		data = append(data, sheetRow{line: i + 2, cells: row})
	}
	return data, nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseNumber(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func rowError(line int, column string, err error, value string) ValidationError {
	return ValidationError{
		Field:   fmt.Sprintf("rows[%d].%s", line, column),
		Message: err.Error(),
		Value:   value,
		Rule:    "xlsx",
	}
}
