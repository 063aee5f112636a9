package service

import (
	"context"
	"strings"
	"time"

	"lendhub/internal/domain"
	"lendhub/internal/models"

	"github.com/rs/zerolog"
)

// ItemUpdate carries the fields an owner may change; nil means keep.
type ItemUpdate struct {
	Name        *string
	Description *string
	Available   *bool
}

// ItemDetails is an item with its derived state: comments for everyone,
// last/next booking only when the viewer owns the item. The annotation is a
// separate value, never written back onto a shared Item.
type ItemDetails struct {
	Item     *models.Item        `json:"item"`
	Bookings models.ItemBookings `json:"bookings"`
	Comments []*models.Comment   `json:"comments"`
}

type ItemService struct {
	items    domain.ItemDirectory
	users    domain.UserDirectory
	store    domain.BookingStore
	comments domain.CommentStore
	cache    domain.AnnotationCache
	clock    domain.Clock
	logger   *zerolog.Logger
}

func NewItemService(
	items domain.ItemDirectory,
	users domain.UserDirectory,
	store domain.BookingStore,
	comments domain.CommentStore,
	cache domain.AnnotationCache,
	clock domain.Clock,
	logger *zerolog.Logger,
) *ItemService {
	if clock == nil {
		clock = SystemClock()
	}
	return &ItemService{
		items:    items,
		users:    users,
		store:    store,
		comments: comments,
		cache:    cache,
		clock:    clock,
		logger:   logger,
	}
}

func (s *ItemService) Add(ctx context.Context, ownerID int64, item *models.Item) (*models.Item, error) {
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}
	item.OwnerID = ownerID
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) Update(ctx context.Context, userID, itemID int64, update ItemUpdate) (*models.Item, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != userID {
		return nil, domain.WithID(domain.ErrNotAuthorized, userID)
	}
	if update.Name != nil {
		item.Name = *update.Name
	}
	if update.Description != nil {
		item.Description = *update.Description
	}
	if update.Available != nil {
		item.Available = *update.Available
	}
	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Get returns item details. Last/next bookings are derived only for the
// owner; other viewers see the item and comments.
func (s *ItemService) Get(ctx context.Context, itemID, viewerID int64) (*ItemDetails, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	details := &ItemDetails{Item: item}
	if details.Comments, err = s.comments.ListCommentsForItem(ctx, itemID); err != nil {
		return nil, err
	}

	if viewerID == item.OwnerID {
		ann, err := s.annotationFor(ctx, itemID, s.clock.Now())
		if err != nil {
			return nil, err
		}
		details.Bookings = ann
	}
	return details, nil
}

// ListForOwner returns the owner's items with annotations, ordered by id.
func (s *ItemService) ListForOwner(ctx context.Context, ownerID int64, from, size int) ([]*ItemDetails, error) {
	if from < 0 || size < 1 {
		return nil, domain.ErrInvalidPagination
	}
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	items, err := s.items.ListItemsByOwner(ctx, ownerID, size, (from/size)*size)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	details := make([]*ItemDetails, 0, len(items))
	for _, item := range items {
		d := &ItemDetails{Item: item}
		if d.Comments, err = s.comments.ListCommentsForItem(ctx, item.ID); err != nil {
			return nil, err
		}
		if d.Bookings, err = s.annotationFor(ctx, item.ID, now); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// AddComment records feedback from a user whose approved booking of the item
// has already started.
func (s *ItemService) AddComment(ctx context.Context, userID, itemID int64, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyComment
	}
	if _, err := s.items.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	used, err := s.store.FindApprovedForUserAndItemStartingBefore(ctx, userID, itemID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if len(used) == 0 {
		return nil, domain.WithID(domain.ErrCommentDenied, userID)
	}

	comment := &models.Comment{ItemID: itemID, AuthorID: userID, Text: text}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// annotationFor computes last/next for one item at now, via the cache when
// one is wired. A stale cached annotation is acceptable; cache failures only
// cost the recompute.
func (s *ItemService) annotationFor(ctx context.Context, itemID int64, now time.Time) (models.ItemBookings, error) {
	if s.cache != nil {
		if ann, err := s.cache.GetAnnotation(ctx, itemID); err != nil {
			s.logger.Warn().Err(err).Int64("item_id", itemID).Msg("annotation cache read error")
		} else if ann != nil {
			return *ann, nil
		}
	}

	bookings, err := s.store.FindForItemExcludingStatus(ctx, itemID, models.StatusRejected)
	if err != nil {
		return models.ItemBookings{}, err
	}
	ann := models.Annotate(bookings, now)

	if s.cache != nil {
		if err := s.cache.SetAnnotation(ctx, itemID, &ann); err != nil {
			s.logger.Warn().Err(err).Int64("item_id", itemID).Msg("annotation cache write error")
		}
	}
	return ann, nil
}
