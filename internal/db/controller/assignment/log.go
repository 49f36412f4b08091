package assignment

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/makrcave/makrcave-access/internal/db/models"
)

// LogFilter narrows ledger queries. Zero values mean "no constraint".
type LogFilter struct {
	MemberID uint64
	RoleID   uint
	Action   models.AssignmentAction
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// ListLog retrieves ledger entries matching the filter, newest first, with
// the total count before pagination.
func ListLog(db *gorm.DB, filter LogFilter) ([]models.RoleAssignmentLog, int64, error) {
	if db == nil {
		return nil, 0, ErrDBNil
	}

	var (
		entries []models.RoleAssignmentLog
		total   int64
		tx      = db.Model(&models.RoleAssignmentLog{})
	)

	if filter.MemberID != 0 {
		tx = tx.Where("member_id = ?", filter.MemberID)
	}

	if filter.RoleID != 0 {
		tx = tx.Where("role_id = ?", filter.RoleID)
	}

	if filter.Action != "" {
		tx = tx.Where("action = ?", filter.Action)
	}

	if filter.From != nil {
		tx = tx.Where("created_at >= ?", *filter.From)
	}

	if filter.To != nil {
		tx = tx.Where("created_at <= ?", *filter.To)
	}

	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit).Offset(filter.Offset)
	}

	if err := tx.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// csvHeader is the column layout of ledger CSV exports.
var csvHeader = []string{ //nolint:gochecknoglobals
	"id", "created_at", "action", "member_id", "role_id", "modified_by",
	"reason", "previous_permissions", "new_permissions",
	"effective_date", "expiry_date",
}

// WriteCSV streams ledger entries matching the filter as CSV. Permission
// snapshots are joined with ";" inside their cells so each entry stays one
// row.
func WriteCSV(db *gorm.DB, w io.Writer, filter LogFilter) error {
	if db == nil {
		return ErrDBNil
	}

	entries, _, err := ListLog(db, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, entry := range entries {
		record := []string{
			strconv.FormatUint(entry.ID, 10),
			entry.CreatedAt.UTC().Format(time.RFC3339),
			string(entry.Action),
			strconv.FormatUint(entry.MemberID, 10),
			strconv.FormatUint(uint64(entry.RoleID), 10),
			strconv.FormatUint(entry.ModifiedBy, 10),
			entry.Reason,
			strings.Join(entry.PreviousPermissions, ";"),
			strings.Join(entry.NewPermissions, ";"),
			formatOptionalTime(entry.EffectiveDate),
			formatOptionalTime(entry.ExpiryDate),
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}
