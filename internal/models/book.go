package models

import "gorm.io/gorm"

// Book is the local mirror of a record from the external metadata provider.
// Rows are created lazily the first time a library add references a GBID that
// is not yet cached; they are never deleted.
type Book struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	GBID        string `json:"gb_id" gorm:"uniqueIndex;type:varchar(16)" validate:"required"`
	ISBN        string `json:"isbn" gorm:"type:varchar(16)"`
	Title       string `json:"title" gorm:"type:varchar(256)"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	Language    string `json:"language" gorm:"type:varchar(2)"`
	PubDate     string `json:"pub_date"`
	Categories  string `json:"categories"` // comma-joined
	Authors     string `json:"authors"`    // comma-joined

	Users []User `json:"-" gorm:"many2many:library_entries;"`

	gorm.Model
}

// BookDTO is an immutable snapshot of a locally cached book.
type BookDTO struct {
	ID          string `json:"id"`
	GBID        string `json:"gb_id"`
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	Language    string `json:"language"`
	PubDate     string `json:"pub_date"`
	Categories  string `json:"categories"`
	Authors     string `json:"authors"`
}

// ToDTO converts the storage row to a snapshot.
func (b *Book) ToDTO() *BookDTO {
	return &BookDTO{
		ID:          b.ID,
		GBID:        b.GBID,
		ISBN:        b.ISBN,
		Title:       b.Title,
		Subtitle:    b.Subtitle,
		Description: b.Description,
		Language:    b.Language,
		PubDate:     b.PubDate,
		Categories:  b.Categories,
		Authors:     b.Authors,
	}
}

// BookImport is a provider record mapped into the local schema, as returned
// by search and by-ID lookups. It has no local ID until cached.
type BookImport struct {
	GBID        string `json:"gb_id"`
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	Language    string `json:"language"`
	PubDate     string `json:"pub_date"`
	Categories  string `json:"categories"`
	Authors     string `json:"authors"`
}

// ToBook converts an imported record into a storage row ready for insertion.
func (b *BookImport) ToBook() *Book {
	return &Book{
		GBID:        b.GBID,
		ISBN:        b.ISBN,
		Title:       b.Title,
		Subtitle:    b.Subtitle,
		Description: b.Description,
		Language:    b.Language,
		PubDate:     b.PubDate,
		Categories:  b.Categories,
		Authors:     b.Authors,
	}
}

// LibraryEntry is the join row linking a book to an owning user. The
// composite primary key enforces at most one association per pair.
type LibraryEntry struct {
	BookID string `json:"book_id" gorm:"primaryKey;type:varchar(36)"`
	UserID string `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
}

// TableName keeps the join table shared with the many2many relations above.
func (LibraryEntry) TableName() string { return "library_entries" }
