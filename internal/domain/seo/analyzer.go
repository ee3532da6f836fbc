package seo

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	descriptionMinLength = 50
	descriptionMaxLength = 160
	titleMaxLength       = 60
	thinContentWords     = 300
)

// Analysis is the result of inspecting a rendered page for common SEO
// problems. Findings are ordered roughly by severity.
type Analysis struct {
	Title            string   `json:"title"`
	TitleLength      int      `json:"title_length"`
	MetaDescription  string   `json:"meta_description"`
	H1Count          int      `json:"h1_count"`
	WordCount        int      `json:"word_count"`
	ImagesMissingAlt int      `json:"images_missing_alt"`
	InternalLinks    int      `json:"internal_links"`
	ExternalLinks    int      `json:"external_links"`
	Findings         []string `json:"findings"`
}

// AnalyzeHTML inspects a page document and reports structural SEO issues:
// heading usage, description length, alt text coverage, and content volume.
func AnalyzeHTML(html string) (Analysis, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Analysis{}, fmt.Errorf("parse document: %w", err)
	}

	analysis := Analysis{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	analysis.TitleLength = len(analysis.Title)
	analysis.MetaDescription, _ = doc.Find(`meta[name="description"]`).Attr("content")
	analysis.MetaDescription = strings.TrimSpace(analysis.MetaDescription)
	analysis.H1Count = doc.Find("h1").Length()

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		alt, exists := sel.Attr("alt")
		if !exists || strings.TrimSpace(alt) == "" {
			analysis.ImagesMissingAlt++
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			analysis.ExternalLinks++
		} else {
			analysis.InternalLinks++
		}
	})

	analysis.WordCount = len(strings.Fields(doc.Find("body").Text()))
	analysis.Findings = collectFindings(analysis)
	return analysis, nil
}

func collectFindings(a Analysis) []string {
	var findings []string

	switch {
	case a.Title == "":
		findings = append(findings, "page has no <title>")
	case a.TitleLength > titleMaxLength:
		findings = append(findings, fmt.Sprintf("title is %d characters, over the %d character guideline", a.TitleLength, titleMaxLength))
	}

	switch {
	case a.MetaDescription == "":
		findings = append(findings, "page has no meta description")
	case len(a.MetaDescription) < descriptionMinLength:
		findings = append(findings, fmt.Sprintf("meta description is %d characters, under the %d character guideline", len(a.MetaDescription), descriptionMinLength))
	case len(a.MetaDescription) > descriptionMaxLength:
		findings = append(findings, fmt.Sprintf("meta description is %d characters, over the %d character guideline", len(a.MetaDescription), descriptionMaxLength))
	}

	switch a.H1Count {
	case 0:
		findings = append(findings, "page has no <h1>")
	case 1:
		// exactly one, as it should be
	default:
		findings = append(findings, fmt.Sprintf("page has %d <h1> elements", a.H1Count))
	}

	if a.ImagesMissingAlt > 0 {
		findings = append(findings, fmt.Sprintf("%d image(s) missing alt text", a.ImagesMissingAlt))
	}
	if a.WordCount < thinContentWords {
		findings = append(findings, fmt.Sprintf("page body has %d words, under the %d word guideline", a.WordCount, thinContentWords))
	}
	return findings
}
