package repositories

import "biblio/internal/models"

// BookRepository defines the interface for the local book catalog. Lookups
// return a nil DTO when no row matches.
type BookRepository interface {
	Create(book *models.Book) (string, error)
	GetByID(id string) (*models.BookDTO, error)
	GetByGBID(gbID string) (*models.BookDTO, error)
	GetByISBN(isbn string) (*models.BookDTO, error)
	GetUserLibrary(userID string) ([]models.BookDTO, error)
}

// LibraryRepository manages the many-to-many association between books and
// users. Uniqueness of a (book, user) pair is enforced by the storage layer.
type LibraryRepository interface {
	GetAssociation(bookID, userID string) (*models.LibraryEntry, error)
	AddAssociation(bookID, userID string) error
	DelAssociation(bookID, userID string) error
}
