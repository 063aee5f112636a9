package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"lendhub/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	bookingsSheet = "Bookings"
	timeLayout    = "2006-01-02 15:04:05"
)

// ErrRowNotFound is returned when no sheet row matches a booking id.
var ErrRowNotFound = errors.New("booking row not found")

// SheetsService mirrors booking rows into a Google spreadsheet.
// Column layout: A=ID B=ItemID C=BookerID D=Start E=End F=Status G=CreatedAt H=UpdatedAt.
type SheetsService struct {
	service  *sheets.Service
	sheetID  string
	rowCache map[int64]int
	cacheMu  sync.RWMutex
}

func NewSheetsService(credentialsFile, bookingsSpreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	service := &SheetsService{
		service:  srv,
		sheetID:  bookingsSpreadsheetID,
		rowCache: make(map[int64]int),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		service.WarmUpCache(ctx)
	}()

	return service, nil
}

// TestConnection reads the header cell to verify credentials and sharing.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.sheetID, bookingsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail returns the service account email from the credentials file.
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.sheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		var id int64
		switch v := row[0].(type) {
		case float64:
			id = int64(v)
		case string:
			fmt.Sscanf(v, "%d", &id)
		}
		if id > 0 {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// AppendBooking adds a new booking row.
func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.Booking) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.sheetID, bookingsSheet+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()

	return err
}

// UpsertBooking updates an existing booking row or appends a new one if not found.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	rowIdx, err := s.FindBookingRow(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return s.AppendBooking(ctx, booking)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:H%d", bookingsSheet, rowIdx, rowIdx)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}

	_, err = s.service.Spreadsheets.Values.Update(s.sheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// UpdateBookingStatus updates status and UpdatedAt for a booking row.
func (s *SheetsService) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	rowIdx, err := s.FindBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(timeLayout)

	statusRange := fmt.Sprintf("%s!F%d:F%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.sheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := fmt.Sprintf("%s!H%d:H%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.sheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{now}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindBookingRow locates the row index (1-based) for a booking id in column A.
func (s *SheetsService) FindBookingRow(ctx context.Context, bookingID int64) (int, error) {
	if bookingID == 0 {
		return 0, fmt.Errorf("booking id is required")
	}

	if row, ok := s.getCachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.sheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		switch v := row[0].(type) {
		case float64:
			if int64(v) == bookingID {
				rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
				s.setCachedRow(bookingID, rowIdx)
				return rowIdx, nil
			}
		case string:
			if v == fmt.Sprintf("%d", bookingID) {
				rowIdx := i + 1
				s.setCachedRow(bookingID, rowIdx)
				return rowIdx, nil
			}
		}
	}

	return 0, ErrRowNotFound
}

// ReplaceBookingsSheet rewrites the whole sheet from scratch, headers included.
func (s *SheetsService) ReplaceBookingsSheet(ctx context.Context, bookings []*models.Booking) error {
	clearRange := bookingsSheet + "!A:Z"
	_, err := s.service.Spreadsheets.Values.Clear(s.sheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear bookings sheet: %v", err)
	}

	values := [][]interface{}{
		{"ID", "Item ID", "Booker ID", "Start", "End", "Status", "Created At", "Updated At"},
	}
	for _, booking := range bookings {
		values = append(values, bookingRowValues(booking))
	}

	valueRange := &sheets.ValueRange{Values: values}

	_, err = s.service.Spreadsheets.Values.Update(s.sheetID, bookingsSheet+"!A1", valueRange).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update bookings sheet: %v", err)
	}

	s.cacheMu.Lock()
	s.rowCache = make(map[int64]int)
	for i, b := range bookings {
		s.rowCache[b.ID] = i + 2 // +2 because data starts at row 2
	}
	s.cacheMu.Unlock()

	return nil
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func bookingRowValues(booking *models.Booking) []interface{} {
	return []interface{}{
		booking.ID,
		booking.ItemID,
		booking.BookerID,
		booking.Start.UTC().Format(timeLayout),
		booking.End.UTC().Format(timeLayout),
		string(booking.Status),
		booking.CreatedAt.UTC().Format(timeLayout),
		booking.UpdatedAt.UTC().Format(timeLayout),
	}
}
