package core

import (
	"log"
)

// A Notifier delivers one message rendered from a named template. Delivery is
// best-effort, a failed Send must not affect the transition that triggered it.
type Notifier interface {
	Send(templateKey string, recipient string, params map[string]string) error
}

// NotifyTemplates holds the template keys the lifecycle engine sends with.
// Keys the deployment leaves empty suppress the corresponding messages.
type NotifyTemplates struct {
	Submitted          string // to creator and owners
	SubmittedAwareness string // to technical contacts
	SubmittedApprovers string // to the approvers group: a standard awaits review
	Approved           string
	Rejected           string
	Published          string
	PublishedAwareness string // to technical contacts
}

// Recipients are the addresses a lifecycle event fans out to. Primary
// recipients acted on or own the standard; awareness recipients are informed
// only.
type Recipients struct {
	Primary   []string
	Awareness []string
}

// recipients computes the fan-out set for a standard: the creator and all
// owners (deduped) as primary, the technical contacts as awareness. A person
// record that cannot be loaded is skipped, notification targets are not worth
// failing a transition over.
func (c *CoreDB) recipients(std *Standard) Recipients {

	var r Recipients
	seen := make(map[string]interface{})

	add := func(email string) {
		if email == "" {
			return
		}
		if _, ok := seen[email]; ok {
			return
		}
		seen[email] = struct{}{}
		r.Primary = append(r.Primary, email)
	}

	add(std.Creator)
	for _, id := range std.Owners {
		p, err := c.GetPerson(id)
		if err != nil {
			log.Printf("resolving owner %s of %s: %v", id, std.ID, err)
			continue
		}
		add(p.Email)
	}

	for _, id := range std.TechnicalContacts {
		p, err := c.GetPerson(id)
		if err != nil {
			log.Printf("resolving contact %s of %s: %v", id, std.ID, err)
			continue
		}
		if p.Email == "" {
			continue
		}
		if _, ok := seen[p.Email]; ok {
			continue
		}
		seen[p.Email] = struct{}{}
		r.Awareness = append(r.Awareness, p.Email)
	}

	return r
}

// dispatch sends one template to every recipient. Failures are logged per
// recipient and never returned, the transition already happened.
func (c *CoreDB) dispatch(templateKey string, recipients []string, params map[string]string) {
	if c.Notifier == nil || templateKey == "" {
		return
	}
	for _, recipient := range recipients {
		if err := c.Notifier.Send(templateKey, recipient, params); err != nil {
			log.Printf("notifying %s with %s: %v", recipient, templateKey, err)
		}
	}
}
