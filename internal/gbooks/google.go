package gbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"biblio/internal/apperrors"
	"biblio/internal/models"
)

// Field masks keep provider responses down to the subset of fields consumed.
const (
	volumeFields  = "id,volumeInfo(title,subtitle,authors,publishedDate,description,industryIdentifiers,categories,language)"
	volumesFields = "items(" + volumeFields + ")"
)

// GoogleBooksClient is the HTTP implementation of Client against the Google
// Books volumes API.
type GoogleBooksClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGoogleBooksClient creates a client for the given API base URL, e.g.
// "https://www.googleapis.com/books/v1".
func NewGoogleBooksClient(baseURL string) *GoogleBooksClient {
	return &GoogleBooksClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// volume mirrors the provider's response shape for one record.
type volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Subtitle            string   `json:"subtitle"`
		Authors             []string `json:"authors"`
		PublishedDate       string   `json:"publishedDate"`
		Description         string   `json:"description"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		Categories []string `json:"categories"`
		Language   string   `json:"language"`
	} `json:"volumeInfo"`
}

func (v *volume) toImport() models.BookImport {
	imp := models.BookImport{
		GBID:        v.ID,
		Title:       v.VolumeInfo.Title,
		Subtitle:    v.VolumeInfo.Subtitle,
		Description: v.VolumeInfo.Description,
		Language:    v.VolumeInfo.Language,
		PubDate:     v.VolumeInfo.PublishedDate,
		Categories:  strings.Join(v.VolumeInfo.Categories, ", "),
		Authors:     strings.Join(v.VolumeInfo.Authors, ", "),
	}
	// Only the first ISBN-10-typed identifier is consumed.
	for _, ident := range v.VolumeInfo.IndustryIdentifiers {
		if ident.Type == "ISBN_10" {
			imp.ISBN = ident.Identifier
			break
		}
	}
	return imp
}

// GetByID fetches a single record by provider ID.
func (c *GoogleBooksClient) GetByID(ctx context.Context, gbID string) (*models.BookImport, error) {
	params := url.Values{"fields": {volumeFields}}
	var vol volume
	status, err := c.getJSON(ctx, "/volumes/"+url.PathEscape(gbID), params, &vol)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, apperrors.NotFoundf("book with gb_id %s not found in the external catalog", gbID)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("metadata provider returned status %d", status)
	}
	imp := vol.toImport()
	return &imp, nil
}

// Search runs a filtered catalog search using the provider's query grammar.
func (c *GoogleBooksClient) Search(ctx context.Context, q SearchQuery) ([]models.BookImport, error) {
	query := q.Query
	if q.GBID != "" {
		query = q.GBID
	}
	if q.InTitle != "" {
		query += "+intitle:" + q.InTitle
	}
	if q.InAuthor != "" {
		query += "+inauthor:" + q.InAuthor
	}
	if q.ISBN != "" {
		query += "+isbn:" + q.ISBN
	}
	if len(q.Categories) > 0 {
		query += "+subject:" + strings.Join(q.Categories, ",")
	}

	params := url.Values{
		"fields": {volumesFields},
		"q":      {query},
	}
	var res struct {
		Items []volume `json:"items"`
	}
	status, err := c.getJSON(ctx, "/volumes", params, &res)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("metadata provider returned status %d", status)
	}
	imports := make([]models.BookImport, 0, len(res.Items))
	for i := range res.Items {
		imports = append(imports, res.Items[i].toImport())
	}
	return imports, nil
}

func (c *GoogleBooksClient) getJSON(ctx context.Context, path string, params url.Values, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build metadata request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode metadata response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
