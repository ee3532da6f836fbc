package seo

import (
	"errors"
	"fmt"

	"github.com/piprate/json-gold/ld"
)

var ErrInvalidStructuredData = errors.New("invalid structured data document")

const schemaContext = "https://schema.org"

// inlineContext keeps compaction offline; the published document still
// carries the canonical schema.org context string.
var inlineContext = map[string]any{"@vocab": "http://schema.org/"}

// Organization describes the practice for structured data embedding.
type Organization struct {
	Name      string
	URL       string
	LogoURL   string
	Telephone string
	Street    string
	Locality  string
	Region    string
	PostCode  string
}

// OrganizationDocument builds a schema.org MedicalOrganization document and
// normalizes it through a JSON-LD compaction pass, so malformed structures
// fail here instead of shipping broken markup to every page.
func OrganizationDocument(org Organization) (map[string]any, error) {
	doc := map[string]any{
		"@context": inlineContext,
		"@type":    "MedicalOrganization",
		"name":     org.Name,
		"url":      org.URL,
	}
	if org.LogoURL != "" {
		doc["logo"] = org.LogoURL
	}
	if org.Telephone != "" {
		doc["telephone"] = org.Telephone
	}
	if org.Street != "" || org.Locality != "" {
		doc["address"] = map[string]any{
			"@type":           "PostalAddress",
			"streetAddress":   org.Street,
			"addressLocality": org.Locality,
			"addressRegion":   org.Region,
			"postalCode":      org.PostCode,
		}
	}
	return compact(doc)
}

// Article describes a blog post for structured data embedding.
type Article struct {
	Headline      string
	Description   string
	URL           string
	ImageURL      string
	AuthorName    string
	PublisherName string
	Published     string // RFC 3339
	Modified      string // RFC 3339
}

// ArticleDocument builds a schema.org MedicalWebPage article document.
func ArticleDocument(article Article) (map[string]any, error) {
	doc := map[string]any{
		"@context":      inlineContext,
		"@type":         "Article",
		"headline":      article.Headline,
		"url":           article.URL,
		"datePublished": article.Published,
	}
	if article.Description != "" {
		doc["description"] = article.Description
	}
	if article.ImageURL != "" {
		doc["image"] = article.ImageURL
	}
	if article.AuthorName != "" {
		doc["author"] = map[string]any{"@type": "Person", "name": article.AuthorName}
	}
	if article.PublisherName != "" {
		doc["publisher"] = map[string]any{"@type": "Organization", "name": article.PublisherName}
	}
	if article.Modified != "" {
		doc["dateModified"] = article.Modified
	}
	return compact(doc)
}

func compact(doc map[string]any) (map[string]any, error) {
	processor := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.CompactArrays = true

	result, err := processor.Compact(doc, map[string]any{"@context": inlineContext}, opts)
	if err != nil {
		return nil, fmt.Errorf("compact structured data: %w", err)
	}
	compacted, ok := any(result).(map[string]any)
	if !ok {
		return nil, ErrInvalidStructuredData
	}
	compacted["@context"] = schemaContext
	return compacted, nil
}
