// internal/scraper/extractor.go

package scraper

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/TenderScrapexter/internal/utils"
)

// SelectorConfig holds the CSS selectors the extractor probes on a detail
// page. Zero values fall back to the tender portal's markup.
type SelectorConfig struct {
	DetailSection  string `yaml:"detail_section" json:"detail_section"`
	DetailLabel    string `yaml:"detail_label" json:"detail_label"`
	DetailValue    string `yaml:"detail_value" json:"detail_value"`
	PostedDate     string `yaml:"posted_date" json:"posted_date"`
	AttachmentLink string `yaml:"attachment_link" json:"attachment_link"`
}

// DefaultSelectorConfig returns the portal's detail-page selectors.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		DetailSection:  "div.tender-detail-outer",
		DetailLabel:    "div.tender-detail-label",
		DetailValue:    "div.tender-detail-value",
		PostedDate:     "div.post-date.tender-detail-value",
		AttachmentLink: "a.btn[href]",
	}
}

// applyDefaults fills empty selectors from the portal defaults.
func (c *SelectorConfig) applyDefaults() {
	defaults := DefaultSelectorConfig()
	if c.DetailSection == "" {
		c.DetailSection = defaults.DetailSection
	}
	if c.DetailLabel == "" {
		c.DetailLabel = defaults.DetailLabel
	}
	if c.DetailValue == "" {
		c.DetailValue = defaults.DetailValue
	}
	if c.PostedDate == "" {
		c.PostedDate = defaults.PostedDate
	}
	if c.AttachmentLink == "" {
		c.AttachmentLink = defaults.AttachmentLink
	}
}

// Extractor turns one detail page into a TenderRecord. Every lookup is
// defensive: missing elements produce sentinel values, never an error. Errors
// come only from the fetch itself or from unparseable HTML.
type Extractor struct {
	session   *Session
	selectors SelectorConfig
	logger    utils.Logger
}

// NewExtractor creates an extractor over the given session.
func NewExtractor(session *Session, selectors SelectorConfig, logger utils.Logger) *Extractor {
	if logger == nil {
		logger = utils.NewLogger()
	}
	selectors.applyDefaults()

	return &Extractor{
		session:   session,
		selectors: selectors,
		logger:    logger.WithField("component", "extractor"),
	}
}

// Extract fetches ref and builds its record. A non-2xx answer yields a
// FetchError and no record; a record is never partially populated.
func (e *Extractor) Extract(ctx context.Context, ref TenderReference) (*TenderRecord, error) {
	resp, err := e.session.Get(ctx, ref.String())
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &FetchError{URL: ref.String(), StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &ParseError{URL: resp.URL, Missing: "parseable HTML body"}
	}

	return e.buildRecord(doc, ref.String()), nil
}

// buildRecord assembles the record from a parsed document. sourceURL is the
// normalized reference and doubles as the base for absolutizing hrefs.
func (e *Extractor) buildRecord(doc *goquery.Document, sourceURL string) *TenderRecord {
	record := &TenderRecord{
		Title:       e.extractTitle(doc),
		CoreDetails: NewOrderedMap(),
		SourceURL:   sourceURL,
	}

	e.extractCoreDetails(doc, record.CoreDetails)
	record.CoreDetails.Set(PostedDateKey, e.extractPostedDate(doc))
	record.CoreDetails.Set(AttachmentKey, e.extractAttachment(doc, sourceURL))
	record.Paragraphs = extractParagraphs(doc)
	record.Tables = extractTables(doc)

	return record
}

// extractTitle returns the page title, or the sentinel when absent.
func (e *Extractor) extractTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return NoTitleFound
	}
	return title
}

// extractCoreDetails walks the labeled detail sections in page order. Labels
// are whatever the page uses; a section without a value sub-node records the
// NoValue sentinel. Region-style labels wrapping their value in a link use
// the link's trimmed text, which strips the container's surrounding markup.
func (e *Extractor) extractCoreDetails(doc *goquery.Document, details *OrderedMap) {
	doc.Find(e.selectors.DetailSection).Each(func(_ int, section *goquery.Selection) {
		label := strings.TrimSpace(section.Find(e.selectors.DetailLabel).First().Text())
		if label == "" {
			return
		}

		valueNode := section.Find(e.selectors.DetailValue).First()
		value := NoValue
		if valueNode.Length() > 0 {
			value = strings.TrimSpace(valueNode.Text())
			if strings.Contains(label, "Region") {
				if link := valueNode.Find("a").First(); link.Length() > 0 {
					value = strings.TrimSpace(link.Text())
				}
			}
		}

		details.Set(label, value)
	})
}

// extractPostedDate probes the posted date, which the portal renders with a
// distinct class rather than the generic label/value pair.
func (e *Extractor) extractPostedDate(doc *goquery.Document) string {
	node := doc.Find(e.selectors.PostedDate).First()
	if node.Length() == 0 {
		return NoValue
	}
	return strings.TrimSpace(node.Text())
}

// extractAttachment returns the absolute href of the attachment anchor, or
// the NotAttached sentinel. The key is always present in the record.
func (e *Extractor) extractAttachment(doc *goquery.Document, base string) string {
	href, exists := doc.Find(e.selectors.AttachmentLink).First().Attr("href")
	if !exists || strings.TrimSpace(href) == "" {
		return NotAttached
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(parsed).String()
}

// extractParagraphs collects the text of every paragraph whose ancestor
// chain contains no table; table cell text belongs to the table extraction.
func extractParagraphs(doc *goquery.Document) []string {
	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if p.ParentsFiltered("table").Length() > 0 {
			return
		}
		text := strings.TrimSpace(p.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}

// extractTables collects every table in page order. Rows with zero cells are
// dropped. A table with no th cells promotes its first row to headers.
func extractTables(doc *goquery.Document) []Table {
	var tables []Table
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		var table Table

		t.Find("th").Each(func(_ int, th *goquery.Selection) {
			table.Headers = append(table.Headers, strings.TrimSpace(th.Text()))
		})

		t.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("td").Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(td.Text()))
			})
			if len(cells) > 0 {
				table.Rows = append(table.Rows, cells)
			}
		})

		if len(table.Headers) == 0 && len(table.Rows) > 0 {
			table.Headers = table.Rows[0]
			table.Rows = table.Rows[1:]
		}

		tables = append(tables, table)
	})
	return tables
}
