package postgres

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/chalk-edu/chalk/internal/models"
	"github.com/chalk-edu/chalk/internal/repositories"
)

// SharedHelpers contains query building shared by the repositories
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyReader keeps rows the reader may list: their own, public and
// institutional ones, and course rows of courses they belong to. Not-listed
// rows are reachable by ID only.
func (h *SharedHelpers) ApplyReader(query *gorm.DB, reader *repositories.Reader) *gorm.DB {
	if reader == nil {
		return query
	}

	open := []models.Visibility{models.VisibilityPublic}
	if reader.UserID != "" {
		open = append(open, models.VisibilityInstitutional)
	}

	if len(reader.CourseIDs) == 0 {
		return query.Where("(specialist_id = ? OR visibility IN ?)", reader.UserID, open)
	}
	return query.Where("(specialist_id = ? OR visibility IN ? OR (visibility = ? AND course_id IN ?))",
		reader.UserID, open, models.VisibilityCourse, reader.CourseIDs)
}

// ApplyTags requires every tag to be present in the jsonb tags column
func (h *SharedHelpers) ApplyTags(query *gorm.DB, tags []string) *gorm.DB {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		query = query.Where("tags::text ILIKE ?", "%\""+tag+"\"%")
	}
	return query
}

// ApplyTitleSearch matches term case-insensitively against the given columns
func (h *SharedHelpers) ApplyTitleSearch(query *gorm.DB, term string, columns ...string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return query
	}
	like := "%" + strings.ToLower(term) + "%"
	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		conds[i] = fmt.Sprintf("LOWER(%s) LIKE ?", col)
		args[i] = like
	}
	return query.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// ApplyPaginationAndSort applies pagination and a whitelisted sort
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	allowedSortColumns := map[string]bool{
		"created_at":    true,
		"updated_at":    true,
		"creation_date": true,
		"publish_date":  true,
		"id":            true,
		"title":         true,
		"type":          true,
		"visibility":    true,
		"submission_nr": true,
	}

	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	if strings.EqualFold(sortOrder, "asc") {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
