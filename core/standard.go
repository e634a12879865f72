package core

import (
	"fmt"
	"log"
	"sort"
	"time"
)

// Entry types in the content store.
const (
	TypeStandard         = "standard"
	TypeStage            = "stage"
	TypeStandardHistory  = "standardHistory"
	TypePerson           = "person"
	TypeCategory         = "category"
	TypeSubCategory      = "subCategory"
	TypeApprovedProduct  = "approvedProducts"
	TypeToleratedProduct = "toleratedProducts"
	TypeException        = "exceptions"
)

// A Standard is a snapshot of one standard entry, decoded for callers. Link
// fields carry ids only; use People, GetProduct etc. to expand them.
type Standard struct {
	ID                string
	Number            int
	Title             string
	Summary           string
	Purpose           string
	Guidance          string
	Considerations    string
	Templates         string
	RelatedGuidance   string
	Slug              string
	Version           float64
	PreviousVersion   float64
	Stage             StageCode
	StageID           string
	Creator           string
	Owners            []string
	TechnicalContacts []string
	Categories        []string
	SubCategories     []string
	ApprovedProducts  []string
	ToleratedProducts []string
	Exceptions        []string
	DraftCreatedAt    time.Time
	DraftCreatedBy    string
	Published         bool
}

type Person struct {
	ID    string
	Name  string
	Email string
}

type Product struct {
	ID      string
	Name    string
	Vendor  string
	Version string
	UseCase string
}

type Exception struct {
	ID      string
	Title   string
	Details string
	Active  bool
}

type Category struct {
	ID          string
	Title       string
	Number      int
	Description string
	Slug        string
	Active      bool
}

type SubCategory struct {
	ID         string
	Title      string
	CategoryID string
}

func (c *CoreDB) decodeStandard(e *Entry) (*Standard, error) {
	std := &Standard{
		ID:                e.ID,
		Number:            e.Int("number"),
		Title:             e.String("title"),
		Summary:           e.String("summary"),
		Purpose:           e.String("purpose"),
		Guidance:          e.String("guidance"),
		Considerations:    e.String("considerations"),
		Templates:         e.String("templates"),
		RelatedGuidance:   e.String("relatedGuidance"),
		Slug:              e.String("slug"),
		Version:           e.Float("version"),
		PreviousVersion:   e.Float("previousVersion"),
		StageID:           e.Link("stage"),
		Creator:           e.String("creator"),
		Owners:            e.LinkIDs("owners"),
		TechnicalContacts: e.LinkIDs("technicalContacts"),
		Categories:        e.LinkIDs("category"),
		SubCategories:     e.LinkIDs("subCategory"),
		ApprovedProducts:  e.LinkIDs("approvedProducts"),
		ToleratedProducts: e.LinkIDs("toleratedProducts"),
		Exceptions:        e.LinkIDs("exceptions"),
		DraftCreatedAt:    e.Time("draftCreatedAt"),
		DraftCreatedBy:    e.String("draftCreatedBy"),
		Published:         e.Published,
	}
	if std.StageID != "" {
		code, err := c.Stages.CodeOf(std.StageID)
		if err != nil {
			return nil, err
		}
		std.Stage = code
	}
	return std, nil
}

// GetStandard loads one standard by id.
func (c *CoreDB) GetStandard(id string) (*Standard, error) {
	entry, err := c.Store.GetEntry(id)
	if err != nil {
		return nil, fmt.Errorf("standard %s: %w", id, err)
	}
	return c.decodeStandard(entry)
}

// AllStandards returns every standard, ordered by number.
func (c *CoreDB) AllStandards() ([]*Standard, error) {
	entries, err := c.Store.QueryEntries(Query{Type: TypeStandard, Order: "number"})
	if err != nil {
		return nil, err
	}
	var all []*Standard
	for _, e := range entries {
		std, err := c.decodeStandard(e)
		if err != nil {
			return nil, err
		}
		all = append(all, std)
	}
	return all, nil
}

// PublishedStandards returns the standards visible on the public site.
func (c *CoreDB) PublishedStandards() ([]*Standard, error) {
	all, err := c.AllStandards()
	if err != nil {
		return nil, err
	}
	var published []*Standard
	for _, std := range all {
		if std.Stage == StagePublished {
			published = append(published, std)
		}
	}
	return published, nil
}

// DraftsBy returns the draft-stage standards created by the given email.
func (c *CoreDB) DraftsBy(creator string) ([]*Standard, error) {

	draftStageID, err := c.Stages.ResolveStage(StageDraft)
	if err != nil {
		return nil, err
	}

	entries, err := c.Store.QueryEntries(Query{
		Type: TypeStandard,
		Fields: map[string]interface{}{
			"stage":   Link{ID: draftStageID},
			"creator": creator,
		},
		Order: "-createdAt",
	})
	if err != nil {
		return nil, err
	}

	var drafts []*Standard
	for _, e := range entries {
		std, err := c.decodeStandard(e)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, std)
	}
	return drafts, nil
}

// InvolvedStandards filters all standards to those the given email created,
// owns or is a technical contact of. A person link that cannot be resolved is
// skipped, one broken record must not take down the whole dashboard.
func (c *CoreDB) InvolvedStandards(email string) ([]*Standard, error) {
	all, err := c.AllStandards()
	if err != nil {
		return nil, err
	}
	var involved []*Standard
	for _, std := range all {
		if std.Creator == email {
			involved = append(involved, std)
			continue
		}
		ids := append(append([]string{}, std.Owners...), std.TechnicalContacts...)
		for _, id := range ids {
			p, err := c.GetPerson(id)
			if err != nil {
				log.Printf("resolving person %s of %s: %v", id, std.ID, err)
				continue
			}
			if p.Email == email {
				involved = append(involved, std)
				break
			}
		}
	}
	return involved, nil
}

// CountByStage counts standards per stage title.
func CountByStage(stds []*Standard) map[string]int {
	counts := make(map[string]int)
	for _, std := range stds {
		counts[std.Stage.Title()]++
	}
	return counts
}

func decodePerson(e *Entry) *Person {
	return &Person{
		ID:    e.ID,
		Name:  e.String("name"),
		Email: e.String("emailAddress"),
	}
}

func (c *CoreDB) GetPerson(id string) (*Person, error) {
	entry, err := c.Store.GetEntry(id)
	if err != nil {
		return nil, fmt.Errorf("person %s: %w", id, err)
	}
	return decodePerson(entry), nil
}

// People loads several persons by id, preserving order.
func (c *CoreDB) People(ids []string) ([]*Person, error) {
	people := make([]*Person, 0, len(ids))
	for _, id := range ids {
		p, err := c.GetPerson(id)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, nil
}

// AllPeople returns every person, ordered by name.
func (c *CoreDB) AllPeople() ([]*Person, error) {
	entries, err := c.Store.QueryEntries(Query{Type: TypePerson, Order: "name"})
	if err != nil {
		return nil, err
	}
	people := make([]*Person, len(entries))
	for i, e := range entries {
		people[i] = decodePerson(e)
	}
	return people, nil
}

// UpsertPerson returns the person with the given email, creating them if no
// entry with that email exists yet.
func (c *CoreDB) UpsertPerson(name, email string) (*Person, error) {

	existing, err := c.Store.QueryEntries(Query{
		Type:   TypePerson,
		Fields: map[string]interface{}{"emailAddress": email},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return decodePerson(existing[0]), nil
	}

	entry, err := c.Store.CreateEntry(TypePerson, map[string]interface{}{
		"name":         name,
		"emailAddress": email,
	})
	if err != nil {
		return nil, err
	}
	return decodePerson(entry), nil
}

// PersonByEmail finds an existing person by email.
func (c *CoreDB) PersonByEmail(email string) (*Person, error) {
	entries, err := c.Store.QueryEntries(Query{
		Type:   TypePerson,
		Fields: map[string]interface{}{"emailAddress": email},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("person %s: %w", email, ErrNotFound)
	}
	return decodePerson(entries[0]), nil
}

func decodeProduct(e *Entry) *Product {
	return &Product{
		ID:      e.ID,
		Name:    e.String("product"),
		Vendor:  e.String("vendor"),
		Version: e.String("version"),
		UseCase: e.String("useCase"),
	}
}

func (c *CoreDB) GetProduct(id string) (*Product, error) {
	entry, err := c.Store.GetEntry(id)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return decodeProduct(entry), nil
}

func (c *CoreDB) Products(ids []string) ([]*Product, error) {
	products := make([]*Product, 0, len(ids))
	for _, id := range ids {
		p, err := c.GetProduct(id)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func decodeException(e *Entry) *Exception {
	return &Exception{
		ID:      e.ID,
		Title:   e.String("title"),
		Details: e.String("details"),
		Active:  e.Bool("active"),
	}
}

func (c *CoreDB) GetException(id string) (*Exception, error) {
	entry, err := c.Store.GetEntry(id)
	if err != nil {
		return nil, fmt.Errorf("exception %s: %w", id, err)
	}
	return decodeException(entry), nil
}

func (c *CoreDB) Exceptions(ids []string) ([]*Exception, error) {
	exceptions := make([]*Exception, 0, len(ids))
	for _, id := range ids {
		e, err := c.GetException(id)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, e)
	}
	return exceptions, nil
}

func decodeCategory(e *Entry) *Category {
	return &Category{
		ID:          e.ID,
		Title:       e.String("title"),
		Number:      e.Int("number"),
		Description: e.String("description"),
		Slug:        e.String("slug"),
		Active:      e.Bool("active"),
	}
}

// ActiveCategories returns the selectable categories, ordered by title.
func (c *CoreDB) ActiveCategories() ([]*Category, error) {
	entries, err := c.Store.QueryEntries(Query{
		Type:   TypeCategory,
		Fields: map[string]interface{}{"active": true},
		Order:  "title",
	})
	if err != nil {
		return nil, err
	}
	categories := make([]*Category, len(entries))
	for i, e := range entries {
		categories[i] = decodeCategory(e)
	}
	return categories, nil
}

func (c *CoreDB) CategoryBySlug(slug string) (*Category, error) {
	entries, err := c.Store.QueryEntries(Query{
		Type:   TypeCategory,
		Fields: map[string]interface{}{"slug": slug},
		Limit:  1,
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("category %s: %w", slug, ErrNotFound)
	}
	return decodeCategory(entries[0]), nil
}

// AllSubCategories returns every sub-category, ordered by title.
func (c *CoreDB) AllSubCategories() ([]*SubCategory, error) {
	entries, err := c.Store.QueryEntries(Query{Type: TypeSubCategory, Order: "title"})
	if err != nil {
		return nil, err
	}
	subs := make([]*SubCategory, len(entries))
	for i, e := range entries {
		subs[i] = &SubCategory{
			ID:         e.ID,
			Title:      e.String("title"),
			CategoryID: e.Link("category"),
		}
	}
	return subs, nil
}

// CategoryStandardCounts counts standards per category id.
func CategoryStandardCounts(stds []*Standard) map[string]int {
	counts := make(map[string]int)
	for _, std := range stds {
		for _, catID := range std.Categories {
			counts[catID]++
		}
	}
	return counts
}

// SortByNumber sorts standards by their assigned number.
func SortByNumber(stds []*Standard) {
	sort.Slice(stds, func(i, j int) bool {
		return stds[i].Number < stds[j].Number
	})
}
