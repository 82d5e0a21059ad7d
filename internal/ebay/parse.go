package ebay

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/guarzo/ebaytracker/internal/model"
)

// eBay has shipped two result-card markup generations. Newer pages use
// li.s-card; older ones li.s-item. A page is parsed with whichever
// selector yields cards, trying the newer one first; new pages can carry
// stray s-item fragments as noise, so "which tag exists" is not a reliable
// signal, only "which selector returns cards" is.
const (
	cardSelector       = "li.s-card"
	legacyCardSelector = "li.s-item"

	placeholderTitle = "shop on ebay"
)

var (
	itemIDPattern = regexp.MustCompile(`/itm/(\d+)`)
	soldPrefix    = regexp.MustCompile(`(?i)^(sold|vendido)\s+`)
	nonPriceChars = regexp.MustCompile(`[^\d.]`)
)

const soldDateLayout = "Jan 2, 2006"

// ParseListings extracts normalized listings from a search results page.
// Unparsable optional fields degrade to defaults; a card missing its title
// or item id is skipped without failing the batch. A document matching
// neither generation yields no listings, same as an empty results page.
func ParseListings(html string, searchID int64) ([]model.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	cards := doc.Find(cardSelector)
	if cards.Length() > 0 {
		return collectListings(cards, searchID, parseCard), nil
	}

	return collectListings(doc.Find(legacyCardSelector), searchID, parseLegacyCard), nil
}

func collectListings(cards *goquery.Selection, searchID int64, extract func(*goquery.Selection) (model.Listing, bool)) []model.Listing {
	var listings []model.Listing
	cards.Each(func(_ int, card *goquery.Selection) {
		listing, ok := extract(card)
		if !ok {
			return
		}
		listing.SearchID = searchID
		listings = append(listings, listing)
	})
	return listings
}

// parseCard extracts one listing from a current-generation card.
func parseCard(card *goquery.Selection) (model.Listing, bool) {
	title := strings.TrimSpace(card.Find(".s-card__title").First().Text())
	if title == "" || strings.EqualFold(title, placeholderTitle) {
		return model.Listing{}, false
	}

	itemURL := cardURL(card)

	itemID, _ := card.Attr("data-listingid")
	itemID = strings.TrimSpace(itemID)
	if itemID == "" && itemURL != nil {
		itemID = ExtractItemID(*itemURL)
	}
	if itemID == "" {
		return model.Listing{}, false
	}

	price := ParsePrice(card.Find(".s-card__price").First().Text())

	// Newer cards omit the shipping row entirely for free shipping.
	shipping := 0.0
	if el := card.Find(".s-card__shipping").First(); el.Length() > 0 {
		shipping = ParseShipping(el.Text())
	}

	var condition *string
	if el := card.Find(".s-card__subtitle").First(); el.Length() > 0 {
		if text := strings.TrimSpace(el.Text()); text != "" {
			condition = &text
		}
	}

	return model.Listing{
		EbayItemID: itemID,
		Title:      title,
		Price:      price,
		Shipping:   &shipping,
		Condition:  condition,
		SoldDate:   findSoldDate(card),
		URL:        itemURL,
	}, true
}

// parseLegacyCard extracts one listing from an older-generation card.
func parseLegacyCard(card *goquery.Selection) (model.Listing, bool) {
	title := strings.TrimSpace(card.Find(".s-item__title").First().Text())
	if title == "" || strings.EqualFold(title, placeholderTitle) {
		return model.Listing{}, false
	}

	var itemURL *string
	if href, ok := card.Find("a.s-item__link").First().Attr("href"); ok {
		itemURL = &href
	}

	var itemID string
	if itemURL != nil {
		itemID = ExtractItemID(*itemURL)
	}
	if itemID == "" {
		return model.Listing{}, false
	}

	price := ParsePrice(card.Find(".s-item__price").First().Text())

	// A missing shipping element on the old layout means free shipping.
	shippingText := "Free shipping"
	if el := card.Find(".s-item__shipping, .s-item__logisticsCost").First(); el.Length() > 0 {
		shippingText = el.Text()
	}
	shipping := ParseShipping(shippingText)

	var condition *string
	if el := card.Find(".SECONDARY_INFO").First(); el.Length() > 0 {
		if text := strings.TrimSpace(el.Text()); text != "" {
			condition = &text
		}
	}

	var soldDate *time.Time
	if el := card.Find(".POSITIVE").First(); el.Length() > 0 {
		soldDate = ParseSoldDate(el.Text())
	}

	return model.Listing{
		EbayItemID: itemID,
		Title:      title,
		Price:      price,
		Shipping:   &shipping,
		Condition:  condition,
		SoldDate:   soldDate,
		URL:        itemURL,
	}, true
}

func cardURL(card *goquery.Selection) *string {
	var found *string
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, "/itm/") {
			found = &href
			return false
		}
		return true
	})
	return found
}

// findSoldDate scans a current-generation card for the sold marker. The
// positive styling class is reused for unrelated badges ("Free returns"),
// so the text itself must mention sold (or vendido on es/pt pages).
func findSoldDate(card *goquery.Selection) *time.Time {
	var soldDate *time.Time
	card.Find(".positive").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := strings.ToLower(el.Text())
		if !strings.Contains(text, "sold") && !strings.Contains(text, "vendido") {
			return true
		}
		soldDate = ParseSoldDate(el.Text())
		return false
	})
	return soldDate
}

// ExtractItemID pulls the numeric item id out of a detail-page URL.
// Returns "" when the URL has no /itm/<digits> segment.
func ExtractItemID(url string) string {
	match := itemIDPattern.FindStringSubmatch(url)
	if match == nil {
		return ""
	}
	return match[1]
}

// ParsePrice strips everything but digits and the decimal point and parses
// the rest. Unparsable text yields 0.0; a visible price is the common
// case and a bad one should not drop an otherwise valid row.
func ParsePrice(text string) float64 {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0.0
	}
	return price
}

// ParseShipping treats any text mentioning "free" as zero cost, otherwise
// applies the price parse.
func ParseShipping(text string) float64 {
	if strings.Contains(strings.ToLower(text), "free") {
		return 0.0
	}
	return ParsePrice(text)
}

// ParseSoldDate parses text like "Sold  Jan 10, 2025". Anything that does
// not match the month-abbreviation format yields nil rather than an error.
func ParseSoldDate(text string) *time.Time {
	cleaned := strings.TrimSpace(soldPrefix.ReplaceAllString(strings.TrimSpace(text), ""))
	parsed, err := time.Parse(soldDateLayout, cleaned)
	if err != nil {
		return nil
	}
	return &parsed
}
