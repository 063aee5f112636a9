package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lendhub/internal/domain"
	"lendhub/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const exportBatchSize = 500

// Exporter writes booking listings to Excel files.
type Exporter struct {
	store  domain.BookingStore
	items  domain.ItemDirectory
	users  domain.UserDirectory
	path   string
	logger *zerolog.Logger
}

func NewExporter(store domain.BookingStore, items domain.ItemDirectory, users domain.UserDirectory, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		store:  store,
		items:  items,
		users:  users,
		path:   path,
		logger: logger,
	}
}

// ExportOwnerBookings writes every booking against the owner's items into an
// xlsx file and returns its path.
func (e *Exporter) ExportOwnerBookings(ctx context.Context, ownerID int64, now time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	bookings, err := e.collectOwnerBookings(ctx, ownerID, now)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Item", "Booker", "Start", "End", "Status", "Created At"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	itemNames := make(map[int64]string)
	bookerNames := make(map[int64]string)

	for i, booking := range bookings {
		row := i + 2
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), booking.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), e.itemName(ctx, itemNames, booking.ItemID))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), e.bookerName(ctx, bookerNames, booking.BookerID))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), booking.Start.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), booking.End.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), string(booking.Status))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), booking.CreatedAt.Format("02.01.2006 15:04"))

		styleID, err := e.statusStyle(f, booking.Status)
		if err == nil {
			_ = f.SetCellStyle(sheetName, fmt.Sprintf("F%d", row), fmt.Sprintf("F%d", row), styleID)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "C", 25)
	_ = f.SetColWidth(sheetName, "D", "E", 18)
	_ = f.SetColWidth(sheetName, "F", "F", 12)
	_ = f.SetColWidth(sheetName, "G", "G", 18)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_owner_%d_%s.xlsx", ownerID, now.Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("bookings export created")
	return filePath, nil
}

func (e *Exporter) collectOwnerBookings(ctx context.Context, ownerID int64, now time.Time) ([]*models.Booking, error) {
	var all []*models.Booking
	for offset := 0; ; offset += exportBatchSize {
		page, err := e.store.ListByOwner(ctx, ownerID, models.StateAll, now, exportBatchSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportBatchSize {
			return all, nil
		}
	}
}

func (e *Exporter) itemName(ctx context.Context, cache map[int64]string, itemID int64) string {
	if name, ok := cache[itemID]; ok {
		return name
	}
	name := fmt.Sprintf("item #%d", itemID)
	if item, err := e.items.GetItem(ctx, itemID); err == nil {
		name = item.Name
	}
	cache[itemID] = name
	return name
}

func (e *Exporter) bookerName(ctx context.Context, cache map[int64]string, bookerID int64) string {
	if name, ok := cache[bookerID]; ok {
		return name
	}
	name := fmt.Sprintf("user #%d", bookerID)
	if user, err := e.users.GetUser(ctx, bookerID); err == nil {
		name = user.Name
	}
	cache[bookerID] = name
	return name
}

func (e *Exporter) statusStyle(f *excelize.File, status models.BookingStatus) (int, error) {
	var color string
	switch status {
	case models.StatusApproved:
		color = "#C6EFCE"
	case models.StatusWaiting:
		color = "#FFEB9C"
	case models.StatusRejected:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}
