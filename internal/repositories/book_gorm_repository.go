package repositories

import (
	"errors"
	"fmt"

	"biblio/internal/apperrors"
	"biblio/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMBookRepository is a GORM implementation of BookRepository.
type GORMBookRepository struct {
	db *gorm.DB
}

// NewGORMBookRepository creates a new instance of GORMBookRepository bound to
// the given transaction.
func NewGORMBookRepository(db *gorm.DB) *GORMBookRepository {
	return &GORMBookRepository{db: db}
}

// Create inserts a book and returns the generated identifier. A second insert
// with the same provider ID surfaces as a CONFLICT-coded error, which callers
// use to recover from the concurrent first-import race.
func (r *GORMBookRepository) Create(book *models.Book) (string, error) {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	if err := r.db.Create(book).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", apperrors.Conflict(fmt.Sprintf("book with gb_id %s already cached", book.GBID))
		}
		return "", fmt.Errorf("failed to create book: %w", err)
	}
	return book.ID, nil
}

// GetByID retrieves a book by local ID, or nil when absent.
func (r *GORMBookRepository) GetByID(id string) (*models.BookDTO, error) {
	return takeOneBook(r.db, "id = ?", id)
}

// GetByGBID retrieves a book by provider ID, or nil when absent.
func (r *GORMBookRepository) GetByGBID(gbID string) (*models.BookDTO, error) {
	return takeOneBook(r.db, "gb_id = ?", gbID)
}

// GetByISBN retrieves a book by ISBN, or nil when absent.
func (r *GORMBookRepository) GetByISBN(isbn string) (*models.BookDTO, error) {
	return takeOneBook(r.db, "isbn = ?", isbn)
}

// GetUserLibrary returns all books associated with the user.
func (r *GORMBookRepository) GetUserLibrary(userID string) ([]models.BookDTO, error) {
	var books []models.Book
	err := r.db.
		Joins("JOIN library_entries ON library_entries.book_id = books.id").
		Where("library_entries.user_id = ?", userID).
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load library for user %s: %w", userID, err)
	}
	dtos := make([]models.BookDTO, 0, len(books))
	for i := range books {
		dtos = append(dtos, *books[i].ToDTO())
	}
	return dtos, nil
}

func takeOneBook(db *gorm.DB, query string, args ...any) (*models.BookDTO, error) {
	var books []models.Book
	if err := db.Where(query, args...).Limit(2).Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to query book: %w", err)
	}
	switch len(books) {
	case 0:
		return nil, nil
	case 1:
		return books[0].ToDTO(), nil
	default:
		return nil, apperrors.Internal("multiple books matched a unique filter", nil)
	}
}

// GORMLibraryRepository is a GORM implementation of LibraryRepository over the
// join table.
type GORMLibraryRepository struct {
	db *gorm.DB
}

// NewGORMLibraryRepository creates a new instance of GORMLibraryRepository
// bound to the given transaction.
func NewGORMLibraryRepository(db *gorm.DB) *GORMLibraryRepository {
	return &GORMLibraryRepository{db: db}
}

// GetAssociation returns the join row for the pair, or nil when absent.
func (r *GORMLibraryRepository) GetAssociation(bookID, userID string) (*models.LibraryEntry, error) {
	var entries []models.LibraryEntry
	err := r.db.Where("book_id = ? AND user_id = ?", bookID, userID).Limit(1).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query library entry: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// AddAssociation inserts the join row. A duplicate pair surfaces as a
// CONFLICT-coded error via the composite primary key.
func (r *GORMLibraryRepository) AddAssociation(bookID, userID string) error {
	entry := models.LibraryEntry{BookID: bookID, UserID: userID}
	if err := r.db.Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("this book is already in the user's library")
		}
		return fmt.Errorf("failed to add library entry: %w", err)
	}
	return nil
}

// DelAssociation removes the join row. Removing an absent pair is not an
// error.
func (r *GORMLibraryRepository) DelAssociation(bookID, userID string) error {
	err := r.db.Where("book_id = ? AND user_id = ?", bookID, userID).Delete(&models.LibraryEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete library entry: %w", err)
	}
	return nil
}
