package services

import (
	"context"
	"log"
	"strings"

	"biblio/internal/apperrors"
	"biblio/internal/gbooks"
	"biblio/internal/models"
	"biblio/internal/repositories"

	"biblio/pkg/events"
)

// BooksService answers catalog queries: provider searches and local lookups.
type BooksService struct {
	uowFactory repositories.UnitOfWorkFactory
	catalog    gbooks.Client
}

// NewBooksService creates a new BooksService over the injected metadata
// client.
func NewBooksService(uowFactory repositories.UnitOfWorkFactory, catalog gbooks.Client) *BooksService {
	return &BooksService{uowFactory: uowFactory, catalog: catalog}
}

// Search delegates a validated query to the metadata provider. Results are
// never persisted. A direct gb_id lookup and the filtered-query mode are
// mutually exclusive, and at least one field is required.
func (s *BooksService) Search(ctx context.Context, q gbooks.SearchQuery) ([]models.BookImport, error) {
	hasFilters := q.Query != "" || q.InTitle != "" || q.InAuthor != "" || q.ISBN != "" || len(q.Categories) > 0
	if q.GBID == "" && !hasFilters {
		return nil, apperrors.Validation("at least one search parameter is required")
	}
	if q.GBID != "" && hasFilters {
		return nil, apperrors.Validation("if gb_id is passed, the remaining fields must be empty")
	}
	return s.catalog.Search(ctx, q)
}

// GetByISBN looks a book up locally. A book whose categories intersect the
// actor's excluded set is invisible to that actor: the result is absent, not
// an error.
func (s *BooksService) GetByISBN(ctx context.Context, actor *models.UserDTO, isbn string) (*models.BookDTO, error) {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	book, err := uow.Books().GetByISBN(isbn)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	if book == nil {
		return nil, apperrors.ErrNotFound
	}
	for _, category := range strings.Split(book.Categories, ", ") {
		for _, excluded := range actor.ExcludedCategories {
			if category == excluded {
				return nil, nil
			}
		}
	}
	return book, nil
}

// LibraryService manages the per-user book collection, importing provider
// records into the local catalog on first reference.
type LibraryService struct {
	uowFactory repositories.UnitOfWorkFactory
	catalog    gbooks.Client
	publisher  EventPublisher
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(uowFactory repositories.UnitOfWorkFactory, catalog gbooks.Client, publisher EventPublisher) *LibraryService {
	return &LibraryService{uowFactory: uowFactory, catalog: catalog, publisher: publisher}
}

// GetUserLibrary returns all books associated with the actor.
func (s *LibraryService) GetUserLibrary(ctx context.Context, actor *models.UserDTO) ([]models.BookDTO, error) {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Close()

	books, err := uow.Books().GetUserLibrary(actor.ID)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return books, nil
}

// AddToLibrary associates a book with the actor, resolving it by local id or
// provider id. A gb_id not yet cached is fetched from the provider and
// inserted first. Adding a book already in the library is a conflict, not a
// no-op.
func (s *LibraryService) AddToLibrary(ctx context.Context, actor *models.UserDTO, id, gbID string) error {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	bookID, err := s.resolveBookID(ctx, uow, id, gbID)
	if err != nil {
		return err
	}

	existing, err := uow.Library().GetAssociation(bookID, actor.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.Conflict("this book is already in the user's library")
	}
	if err := uow.Library().AddAssociation(bookID, actor.ID); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.publish(events.BookAdded, map[string]any{"user_id": actor.ID, "book_id": bookID})
	return nil
}

// RemoveFromLibrary removes the association, resolving the book the same way
// as AddToLibrary. Removing an absent association is not specially reported.
func (s *LibraryService) RemoveFromLibrary(ctx context.Context, actor *models.UserDTO, id, gbID string) error {
	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Close()

	bookID, err := s.resolveBookID(ctx, uow, id, gbID)
	if err != nil {
		return err
	}
	if err := uow.Library().DelAssociation(bookID, actor.ID); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.publish(events.BookRemoved, map[string]any{"user_id": actor.ID, "book_id": bookID})
	return nil
}

// resolveBookID maps an id/gb_id reference onto a local row. Exactly one of
// the two must be supplied. A local id must already exist; a provider id that
// misses the cache triggers a provider fetch and a lazy insert. Two requests
// importing the same gb_id concurrently both pass the cache check; the unique
// index rejects the second insert and the row is re-read instead.
func (s *LibraryService) resolveBookID(ctx context.Context, uow repositories.UnitOfWork, id, gbID string) (string, error) {
	if id == "" && gbID == "" {
		return "", apperrors.Validation("one of the parameters id or gb_id is required")
	}
	if id != "" && gbID != "" {
		return "", apperrors.Validation("parameters id and gb_id are mutually exclusive")
	}

	if id != "" {
		book, err := uow.Books().GetByID(id)
		if err != nil {
			return "", err
		}
		if book == nil {
			return "", apperrors.NotFoundf("book with id=%s not found, try by gb_id", id)
		}
		return book.ID, nil
	}

	book, err := uow.Books().GetByGBID(gbID)
	if err != nil {
		return "", err
	}
	if book != nil {
		return book.ID, nil
	}

	imported, err := s.catalog.GetByID(ctx, gbID)
	if err != nil {
		return "", err
	}
	bookID, err := uow.Books().Create(imported.ToBook())
	if err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			cached, getErr := uow.Books().GetByGBID(gbID)
			if getErr != nil {
				return "", getErr
			}
			if cached != nil {
				return cached.ID, nil
			}
		}
		return "", err
	}
	return bookID, nil
}

func (s *LibraryService) publish(routingKey string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(routingKey, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", routingKey, err)
	}
}
