package model

import "strings"

// EmailSeparator joins a record's addresses when a flat form is required
// (CSV cells, markdown tables, text reports).
const EmailSeparator = ", "

// EmailAddress is a classified address attached to a business record.
type EmailAddress struct {
	// Address is the address as it was found on the page.
	Address string `json:"address" yaml:"address"`

	// IsBusinessLike reports whether the address looks like a role or
	// department mailbox rather than a named person.
	IsBusinessLike bool `json:"is_business_like" yaml:"isBusinessLike"`
}

// BusinessRecord is one business produced by a source and enriched by a
// crawl session.
//
// Emails is attached exactly once, by the crawl step. Skipped records were
// excluded from crawling and keep an empty email list.
type BusinessRecord struct {
	Name    string `json:"name" yaml:"name"`
	Website string `json:"website,omitempty" yaml:"website,omitempty"`
	Phone   string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// Emails is the ordered, case-insensitively unique address list.
	Emails []EmailAddress `json:"emails" yaml:"emails,omitempty"`

	// Skipped is true when the website was not crawled, e.g. because the
	// crawl history already contains it.
	Skipped bool `json:"skipped" yaml:"skipped,omitempty"`
}

// HasWebsite reports whether the record carries a crawlable website.
func (b *BusinessRecord) HasWebsite() bool {
	return strings.TrimSpace(b.Website) != ""
}

// EmailList returns the bare addresses in order.
func (b *BusinessRecord) EmailList() []string {
	list := make([]string, 0, len(b.Emails))
	for _, e := range b.Emails {
		list = append(list, e.Address)
	}
	return list
}

// JoinedEmails returns the addresses as a single delimited string.
func (b *BusinessRecord) JoinedEmails() string {
	return strings.Join(b.EmailList(), EmailSeparator)
}

// BusinessEmailCount returns how many attached addresses are business-like.
func (b *BusinessRecord) BusinessEmailCount() int {
	n := 0
	for _, e := range b.Emails {
		if e.IsBusinessLike {
			n++
		}
	}
	return n
}
