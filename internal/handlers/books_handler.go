package handlers

import (
	"strings"

	"biblio/internal/gbooks"
	"biblio/internal/middleware"
	"biblio/internal/services"

	"github.com/gofiber/fiber/v2"
)

// BooksHandler handles HTTP requests for catalog search and the per-user
// library. Search is public; everything else is API-key-authenticated.
type BooksHandler struct {
	booksService   *services.BooksService
	libraryService *services.LibraryService
}

// NewBooksHandler creates a new BooksHandler.
func NewBooksHandler(booksService *services.BooksService, libraryService *services.LibraryService) *BooksHandler {
	return &BooksHandler{
		booksService:   booksService,
		libraryService: libraryService,
	}
}

// RegisterSearchRoute registers the public search route; the caller wraps it
// with the response cache middleware.
func (h *BooksHandler) RegisterSearchRoute(router fiber.Router) {
	router.Get("/books/search", h.HandleSearch)
}

// RegisterRoutes registers the API-key-protected library routes with the
// Fiber app.
func (h *BooksHandler) RegisterRoutes(router fiber.Router) {
	bookRoutes := router.Group("/books")
	bookRoutes.Get("/isbn", h.HandleGetByISBN)
	bookRoutes.Get("/", h.HandleGetLibrary)
	bookRoutes.Post("/", h.HandleAddToLibrary)
	bookRoutes.Delete("/", h.HandleRemoveFromLibrary)
}

// HandleSearch runs a provider search from the query parameters. Either gb_id
// alone or any combination of the other filters may be supplied.
func (h *BooksHandler) HandleSearch(c *fiber.Ctx) error {
	q := gbooks.SearchQuery{
		GBID:     c.Query("gb_id"),
		Query:    c.Query("query"),
		InTitle:  c.Query("intitle"),
		InAuthor: c.Query("inauthor"),
		ISBN:     c.Query("isbn"),
	}
	if categories := c.Query("categories"); categories != "" {
		q.Categories = strings.Split(categories, ",")
	}

	results, err := h.booksService.Search(c.UserContext(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(results)
}

// HandleGetByISBN looks a book up locally by the isbn query parameter. A book
// hidden by the caller's excluded categories yields a null body, not an error.
func (h *BooksHandler) HandleGetByISBN(c *fiber.Ctx) error {
	isbn := c.Query("isbn")
	if isbn == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "VALIDATION",
			"message": "isbn query parameter is required",
		})
	}

	book, err := h.booksService.GetByISBN(c.UserContext(), middleware.CurrentUser(c), isbn)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(book)
}

// HandleGetLibrary returns the caller's library.
func (h *BooksHandler) HandleGetLibrary(c *fiber.Ctx) error {
	books, err := h.libraryService.GetUserLibrary(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(books)
}

// HandleAddToLibrary adds the book referenced by exactly one of the id/gb_id
// query parameters to the caller's library.
func (h *BooksHandler) HandleAddToLibrary(c *fiber.Ctx) error {
	err := h.libraryService.AddToLibrary(c.UserContext(), middleware.CurrentUser(c), c.Query("id"), c.Query("gb_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Successfully created"})
}

// HandleRemoveFromLibrary removes the referenced book from the caller's
// library.
func (h *BooksHandler) HandleRemoveFromLibrary(c *fiber.Ctx) error {
	err := h.libraryService.RemoveFromLibrary(c.UserContext(), middleware.CurrentUser(c), c.Query("id"), c.Query("gb_id"))
	if err != nil {
		return respondError(c, err)
	}
	return objectDeleted(c)
}
