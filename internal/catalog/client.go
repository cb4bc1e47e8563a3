// Package catalog is a Plex Media Server client covering the section,
// episode, and collection operations the reconciliation pipeline needs.
package catalog

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when a section, item, episode, or collection does
// not exist in the library.
var ErrNotFound = errors.New("catalog: not found")

// Item is a handle to a show, episode, or movie record in the library.
// Identity is the rating key.
type Item struct {
	RatingKey string
	Title     string
	Type      string // movie, show, episode
	// ReleaseDate is originallyAvailableAt; nil when Plex has no date.
	ReleaseDate *time.Time
}

// Collection is a handle to a named collection within a section.
type Collection struct {
	RatingKey string
	Title     string
}

// Client talks to the Plex HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	machineID string // cached server machine identifier
}

// NewClient creates a Plex client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type mediaContainer struct {
	XMLName           xml.Name  `xml:"MediaContainer"`
	MachineIdentifier string    `xml:"machineIdentifier,attr"`
	Videos            []itemXML `xml:"Video"`
	Directories       []itemXML `xml:"Directory"`
}

type itemXML struct {
	RatingKey             string `xml:"ratingKey,attr"`
	Key                   string `xml:"key,attr"`
	Title                 string `xml:"title,attr"`
	Type                  string `xml:"type,attr"`
	Index                 int    `xml:"index,attr"`
	ParentIndex           int    `xml:"parentIndex,attr"`
	OriginallyAvailableAt string `xml:"originallyAvailableAt,attr"`
}

type sections struct {
	Key   string `xml:"key,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type sectionsResponse struct {
	XMLName  xml.Name   `xml:"MediaContainer"`
	Sections []sections `xml:"Directory"`
}

// get performs a GET request and decodes the MediaContainer response.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do performs a mutating request with no response body of interest.
func (c *Client) do(ctx context.Context, method, path string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// sectionKey resolves a section name to its key (case-insensitive).
func (c *Client) sectionKey(ctx context.Context, name string) (string, error) {
	var result sectionsResponse
	if err := c.get(ctx, "/library/sections", &result); err != nil {
		return "", fmt.Errorf("get sections: %w", err)
	}
	for _, sec := range result.Sections {
		if strings.EqualFold(sec.Title, name) {
			return sec.Key, nil
		}
	}
	return "", fmt.Errorf("section %q: %w", name, ErrNotFound)
}

// machineIdentifier returns the server's machine identifier, cached after
// the first call. Collection mutations embed it in item URIs.
func (c *Client) machineIdentifier(ctx context.Context) (string, error) {
	if c.machineID != "" {
		return c.machineID, nil
	}
	var result mediaContainer
	if err := c.get(ctx, "/", &result); err != nil {
		return "", fmt.Errorf("get identity: %w", err)
	}
	if result.MachineIdentifier == "" {
		return "", fmt.Errorf("server reported no machine identifier")
	}
	c.machineID = result.MachineIdentifier
	return c.machineID, nil
}

func toItem(x itemXML) Item {
	item := Item{
		RatingKey: x.RatingKey,
		Title:     x.Title,
		Type:      x.Type,
	}
	if x.OriginallyAvailableAt != "" {
		if t, err := time.Parse("2006-01-02", x.OriginallyAvailableAt); err == nil {
			item.ReleaseDate = &t
		}
	}
	return item
}

func toItems(container mediaContainer) []Item {
	items := make([]Item, 0, len(container.Videos)+len(container.Directories))
	for _, v := range container.Videos {
		items = append(items, toItem(v))
	}
	for _, d := range container.Directories {
		items = append(items, toItem(d))
	}
	return items
}

// SectionItems lists every item in the named section.
func (c *Client) SectionItems(ctx context.Context, section string) ([]Item, error) {
	key, err := c.sectionKey(ctx, section)
	if err != nil {
		return nil, err
	}
	var result mediaContainer
	if err := c.get(ctx, "/library/sections/"+key+"/all", &result); err != nil {
		return nil, fmt.Errorf("list section items: %w", err)
	}
	return toItems(result), nil
}

// FindByTitle looks up an item in the section by exact title
// (case-insensitive). Returns ErrNotFound when no title matches.
func (c *Client) FindByTitle(ctx context.Context, section, title string) (*Item, error) {
	items, err := c.SectionItems(ctx, section)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if strings.EqualFold(item.Title, title) {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("item %q: %w", title, ErrNotFound)
}

// Episodes lists every episode of the show identified by showKey.
func (c *Client) Episodes(ctx context.Context, showKey string) ([]Episode, error) {
	var result mediaContainer
	if err := c.get(ctx, "/library/metadata/"+showKey+"/allLeaves", &result); err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	episodes := make([]Episode, 0, len(result.Videos))
	for _, v := range result.Videos {
		episodes = append(episodes, Episode{
			Item:          toItem(v),
			SeasonNumber:  v.ParentIndex,
			EpisodeNumber: v.Index,
		})
	}
	return episodes, nil
}

// Episode is an episode item together with its season/episode numbers.
type Episode struct {
	Item
	SeasonNumber  int
	EpisodeNumber int
}

// FindEpisode looks up an episode of the given show by season and episode
// number.
func (c *Client) FindEpisode(ctx context.Context, showKey string, season, episode int) (*Item, error) {
	episodes, err := c.Episodes(ctx, showKey)
	if err != nil {
		return nil, err
	}
	for _, ep := range episodes {
		if ep.SeasonNumber == season && ep.EpisodeNumber == episode {
			item := ep.Item
			return &item, nil
		}
	}
	return nil, fmt.Errorf("s%02de%02d: %w", season, episode, ErrNotFound)
}

// Collections lists the collections in the named section.
func (c *Client) Collections(ctx context.Context, section string) ([]Collection, error) {
	key, err := c.sectionKey(ctx, section)
	if err != nil {
		return nil, err
	}
	var result mediaContainer
	if err := c.get(ctx, "/library/sections/"+key+"/collections", &result); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	cols := make([]Collection, 0, len(result.Directories))
	for _, d := range result.Directories {
		cols = append(cols, Collection{RatingKey: d.RatingKey, Title: d.Title})
	}
	return cols, nil
}

// CollectionItems lists the members of a collection in their current order.
func (c *Client) CollectionItems(ctx context.Context, col Collection) ([]Item, error) {
	var result mediaContainer
	if err := c.get(ctx, "/library/collections/"+col.RatingKey+"/children", &result); err != nil {
		return nil, fmt.Errorf("list collection items: %w", err)
	}
	return toItems(result), nil
}

// CreateCollection creates a collection in the section containing exactly
// the given item.
func (c *Client) CreateCollection(ctx context.Context, section, name string, item Item) (*Collection, error) {
	key, err := c.sectionKey(ctx, section)
	if err != nil {
		return nil, err
	}
	machine, err := c.machineIdentifier(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("title", name)
	params.Set("smart", "0")
	params.Set("sectionId", key)
	params.Set("uri", itemURI(machine, item.RatingKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/library/collections?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("create collection failed with status: %d", resp.StatusCode)
	}

	var result mediaContainer
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Directories) == 0 {
		return nil, fmt.Errorf("create collection returned no collection")
	}
	return &Collection{
		RatingKey: result.Directories[0].RatingKey,
		Title:     result.Directories[0].Title,
	}, nil
}

// AddToCollection adds the item to the collection.
func (c *Client) AddToCollection(ctx context.Context, col Collection, item Item) error {
	machine, err := c.machineIdentifier(ctx)
	if err != nil {
		return err
	}
	params := url.Values{}
	params.Set("uri", itemURI(machine, item.RatingKey))
	if err := c.do(ctx, http.MethodPut, "/library/collections/"+col.RatingKey+"/items?"+params.Encode()); err != nil {
		return fmt.Errorf("add to collection: %w", err)
	}
	return nil
}

// MoveToFront repositions the item at the front of the collection's custom
// order.
func (c *Client) MoveToFront(ctx context.Context, col Collection, item Item) error {
	path := "/library/collections/" + col.RatingKey + "/items/" + item.RatingKey + "/move"
	if err := c.do(ctx, http.MethodPut, path); err != nil {
		return fmt.Errorf("move to front: %w", err)
	}
	return nil
}

// RemoveFromCollection removes the given items from the collection.
func (c *Client) RemoveFromCollection(ctx context.Context, col Collection, items []Item) error {
	for _, item := range items {
		path := "/library/collections/" + col.RatingKey + "/items/" + item.RatingKey
		if err := c.do(ctx, http.MethodDelete, path); err != nil {
			return fmt.Errorf("remove %q from collection: %w", item.Title, err)
		}
	}
	return nil
}

// SetCustomSort fixes the collection's sort mode to manual/custom order so
// front-insertion is meaningful.
func (c *Client) SetCustomSort(ctx context.Context, col Collection) error {
	params := url.Values{}
	params.Set("collectionSort", "2") // 2 = custom order
	if err := c.do(ctx, http.MethodPut, "/library/collections/"+col.RatingKey+"/prefs?"+params.Encode()); err != nil {
		return fmt.Errorf("set custom sort: %w", err)
	}
	return nil
}

func itemURI(machine, ratingKey string) string {
	return fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s", machine, ratingKey)
}
