package core

import (
	"fmt"

	"github.com/standardsmanual/standards/util"
)

// Contact roles as the wizard's contact step submits them.
const (
	RoleOwner            = "Owner"
	RoleTechnicalContact = "General contact"
)

// A DraftBinding remembers which draft an authoring session is working on.
// The web layer backs this with the http session; tests use a plain variable.
type DraftBinding interface {
	BindDraft(id string)
	DraftID() string
	ClearDraft()
}

// An AuthoringSession is the multi-request wizard that builds up one draft.
// Every step loads the draft through the binding, so the wizard survives page
// reloads and the back button.
type AuthoringSession struct {
	db      *CoreDB
	binding DraftBinding
	actor   Actor
}

func NewAuthoringSession(db *CoreDB, binding DraftBinding, actor Actor) *AuthoringSession {
	return &AuthoringSession{
		db:      db,
		binding: binding,
		actor:   actor,
	}
}

// Begin creates a new draft and binds it to the session.
func (s *AuthoringSession) Begin(title, summary string) (*Standard, error) {
	std, err := s.db.CreateStandard(title, summary, s.actor)
	if std != nil {
		s.binding.BindDraft(std.ID)
	}
	return std, err
}

// Current returns the bound draft, or ErrNoActiveDraft.
func (s *AuthoringSession) Current() (*Standard, error) {
	id := s.binding.DraftID()
	if id == "" {
		return nil, ErrNoActiveDraft
	}
	return s.db.GetStandard(id)
}

// Resume binds an existing draft to the session. Only the creator can pick up
// their own draft, and only while it is still in the draft stage.
func (s *AuthoringSession) Resume(id string) (*Standard, error) {

	std, err := s.db.GetStandard(id)
	if err != nil {
		return nil, err
	}
	if std.Stage != StageDraft {
		return nil, TransitionError{From: std.Stage, Action: "edit"}
	}
	if std.Creator != s.actor.Email {
		return nil, fmt.Errorf("draft %s belongs to someone else: %w", id, ErrNotFound)
	}

	s.binding.BindDraft(std.ID)
	return std, nil
}

// Clear drops the binding. The draft itself stays in the store.
func (s *AuthoringSession) Clear() {
	s.binding.ClearDraft()
}

func (s *AuthoringSession) set(delta map[string]interface{}) error {
	std, err := s.Current()
	if err != nil {
		return err
	}
	_, err = s.db.UpdateEntryFields(std.ID, delta)
	return err
}

// SetTitle renames the draft. The slug follows the title until it is set
// explicitly with SetSlug.
func (s *AuthoringSession) SetTitle(title string) error {
	if title == "" {
		return ValidationError{Field: "title", Message: "Enter a title"}
	}
	return s.set(map[string]interface{}{"title": title, "slug": util.Slugify(title)})
}

func (s *AuthoringSession) SetSummary(summary string) error {
	if summary == "" {
		return ValidationError{Field: "summary", Message: "Enter a summary"}
	}
	return s.set(map[string]interface{}{"summary": summary})
}

func (s *AuthoringSession) SetPurpose(purpose string) error {
	if purpose == "" {
		return ValidationError{Field: "purpose", Message: "Enter the purpose of the standard"}
	}
	return s.set(map[string]interface{}{"purpose": purpose})
}

func (s *AuthoringSession) SetGuidance(guidance string) error {
	if guidance == "" {
		return ValidationError{Field: "guidance", Message: "Enter the guidance"}
	}
	return s.set(map[string]interface{}{"guidance": guidance})
}

// The remaining prose fields are optional.

func (s *AuthoringSession) SetConsiderations(text string) error {
	return s.set(map[string]interface{}{"considerations": text})
}

func (s *AuthoringSession) SetTemplates(text string) error {
	return s.set(map[string]interface{}{"templates": text})
}

func (s *AuthoringSession) SetRelatedGuidance(text string) error {
	return s.set(map[string]interface{}{"relatedGuidance": text})
}

func (s *AuthoringSession) SetSlug(slug string) error {
	return s.set(map[string]interface{}{"slug": slug})
}

// SetCategories replaces the draft's categories. Duplicates in the submitted
// form values are collapsed.
func (s *AuthoringSession) SetCategories(ids []string) error {
	if len(ids) == 0 {
		return ValidationError{Field: "category", Message: "Select at least one category"}
	}
	return s.set(map[string]interface{}{"category": MakeLinks(dedupe(ids))})
}

func (s *AuthoringSession) SetSubCategories(ids []string) error {
	return s.set(map[string]interface{}{"subCategory": MakeLinks(dedupe(ids))})
}

func dedupe(ids []string) []string {
	seen := make(map[string]interface{})
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (s *AuthoringSession) addChild(entryType, linkField string, fields map[string]interface{}) (string, error) {

	std, err := s.Current()
	if err != nil {
		return "", err
	}

	entry, err := s.db.Store.CreateEntry(entryType, fields)
	if err != nil {
		return "", err
	}

	if err := s.db.AppendLink(std.ID, linkField, entry.ID); err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (s *AuthoringSession) AddApprovedProduct(name, vendor, version, useCase string) (string, error) {
	if name == "" {
		return "", ValidationError{Field: "product", Message: "Enter a product name"}
	}
	return s.addChild(TypeApprovedProduct, "approvedProducts", map[string]interface{}{
		"product": name,
		"vendor":  vendor,
		"version": version,
		"useCase": useCase,
	})
}

func (s *AuthoringSession) AddToleratedProduct(name, vendor, version, useCase string) (string, error) {
	if name == "" {
		return "", ValidationError{Field: "product", Message: "Enter a product name"}
	}
	return s.addChild(TypeToleratedProduct, "toleratedProducts", map[string]interface{}{
		"product": name,
		"vendor":  vendor,
		"version": version,
		"useCase": useCase,
	})
}

func (s *AuthoringSession) AddException(title, details string) (string, error) {
	if title == "" {
		return "", ValidationError{Field: "title", Message: "Enter a title for the exception"}
	}
	return s.addChild(TypeException, "exceptions", map[string]interface{}{
		"title":   title,
		"details": details,
		"active":  true,
	})
}

// AddContact attaches a person to the draft under the given role. The person
// record is shared across standards and found or created by email.
func (s *AuthoringSession) AddContact(name, email, role string) (*Person, error) {

	if name == "" {
		return nil, ValidationError{Field: "name", Message: "Enter a name"}
	}
	if email == "" {
		return nil, ValidationError{Field: "email", Message: "Enter an email address"}
	}

	std, err := s.Current()
	if err != nil {
		return nil, err
	}

	person, err := s.db.UpsertPerson(name, email)
	if err != nil {
		return nil, err
	}

	if err := s.db.AppendLink(std.ID, contactField(role), person.ID); err != nil {
		return nil, err
	}
	return person, nil
}

// RemoveContact detaches a person from the draft. previousRole says which
// link field the person was added under; the person record itself stays.
func (s *AuthoringSession) RemoveContact(personID, previousRole string) error {
	std, err := s.Current()
	if err != nil {
		return err
	}
	return s.db.RemoveLink(std.ID, contactField(previousRole), personID)
}

func contactField(role string) string {
	if role == RoleOwner {
		return "owners"
	}
	return "technicalContacts"
}

func (s *AuthoringSession) removeChild(linkField, childID string) error {

	std, err := s.Current()
	if err != nil {
		return err
	}

	if err := s.db.RemoveLink(std.ID, linkField, childID); err != nil {
		return err
	}
	if err := s.db.Store.DeleteEntry(childID); err != nil {
		return fmt.Errorf("removing %s: %w", childID, err)
	}
	return nil
}

func (s *AuthoringSession) RemoveApprovedProduct(id string) error {
	return s.removeChild("approvedProducts", id)
}

func (s *AuthoringSession) RemoveToleratedProduct(id string) error {
	return s.removeChild("toleratedProducts", id)
}

func (s *AuthoringSession) RemoveException(id string) error {
	return s.removeChild("exceptions", id)
}

func (s *AuthoringSession) UpdateApprovedProduct(id, name, vendor, version, useCase string) error {
	if name == "" {
		return ValidationError{Field: "product", Message: "Enter a product name"}
	}
	_, err := s.db.UpdateEntryFields(id, map[string]interface{}{
		"product": name,
		"vendor":  vendor,
		"version": version,
		"useCase": useCase,
	})
	return err
}

func (s *AuthoringSession) UpdateException(id, title, details string, active bool) error {
	if title == "" {
		return ValidationError{Field: "title", Message: "Enter a title for the exception"}
	}
	_, err := s.db.UpdateEntryFields(id, map[string]interface{}{
		"title":   title,
		"details": details,
		"active":  active,
	})
	return err
}

// Submit hands the bound draft to the lifecycle engine and, on success,
// releases the binding.
func (s *AuthoringSession) Submit() error {
	std, err := s.Current()
	if err != nil {
		return err
	}
	if err := s.db.Submit(std.ID, s.actor); err != nil && !isPartialWrite(err) {
		return err
	}
	s.binding.ClearDraft()
	return nil
}
