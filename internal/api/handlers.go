package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lendhub/internal/models"
	"lendhub/internal/service"
)

func actingUser(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get(userIDHeader))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// listingParams reads state/from/size with defaults; range validation is the
// service's job.
func (s *HTTPServer) listingParams(r *http.Request) (state string, from, size int) {
	state = strings.TrimSpace(r.URL.Query().Get("state"))
	if state == "" {
		state = "ALL"
	}
	from = 0
	size = s.cfg.HTTP.DefaultSize
	if raw := r.URL.Query().Get("from"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			from = v
		} else {
			from = -1
		}
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			size = v
		} else {
			size = 0
		}
	}
	return state, from, size
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *HTTPServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	user, err := s.users.Create(r.Context(), &models.User{Name: body.Name, Email: body.Email})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.GetAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *HTTPServer) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}

	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Available   *bool  `json:"available"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if body.Available == nil {
		writeError(w, http.StatusBadRequest, "available is required")
		return
	}

	item := &models.Item{Name: body.Name, Description: body.Description, Available: *body.Available}
	created, err := s.items.Add(r.Context(), userID, item)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}
	itemID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Available   *bool   `json:"available"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	update := service.ItemUpdate{Name: body.Name, Description: body.Description, Available: body.Available}
	item, err := s.items.Update(r.Context(), userID, itemID, update)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *HTTPServer) handleGetItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}
	itemID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	details, err := s.items.Get(r.Context(), itemID, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *HTTPServer) handleListItems(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}
	_, from, size := s.listingParams(r)

	details, err := s.items.ListForOwner(r.Context(), userID, from, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": details})
}

func (s *HTTPServer) handleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}
	itemID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var body struct {
		Text string `json:"text"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	comment, err := s.items.AddComment(r.Context(), userID, itemID, body.Text)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}

	var body struct {
		ItemID int64     `json:"item_id"`
		Start  time.Time `json:"start"`
		End    time.Time `json:"end"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ItemID <= 0 {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}
	if body.Start.IsZero() || body.End.IsZero() {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	booking, err := s.bookings.Create(r.Context(), body.ItemID, userID, body.Start, body.End)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleDecideBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}
	bookingID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	approvedRaw := strings.TrimSpace(r.URL.Query().Get("approved"))
	approved, err := strconv.ParseBool(approvedRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "approved query parameter must be true or false")
		return
	}

	booking, err := s.bookings.Decide(r.Context(), bookingID, userID, approved)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}
	bookingID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.bookings.Get(r.Context(), userID, bookingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleListBookerBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}
	state, from, size := s.listingParams(r)

	bookings, err := s.bookings.ListForBooker(r.Context(), userID, state, from, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleListOwnerBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}
	state, from, size := s.listingParams(r)

	bookings, err := s.bookings.ListForOwner(r.Context(), userID, state, from, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	userID, ok := actingUser(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-Id header is required")
		return
	}

	path, err := s.exporter.ExportOwnerBookings(r.Context(), userID, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file_path": path})
}
