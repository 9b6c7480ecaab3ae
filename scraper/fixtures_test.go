package scraper

import (
	"fmt"
	"strings"

	"github.com/jarcoal/httpmock"
)

// detailPage describes a synthetic book detail document. Empty mandatory
// fields drop the corresponding element from the markup.
type detailPage struct {
	Title         string
	Price         string
	Rating        string
	Availability  string
	Description   string
	UPC           string
	NoAvailRow    bool
	NoReviewsRow  bool
	NoDescription bool
}

func sampleDetailPage(title string) detailPage {
	return detailPage{
		Title:        title,
		Price:        "&pound;51.77",
		Rating:       "Three",
		Availability: "In stock (22 available)",
		Description:  "It's hard to imagine a world without " + title + ".",
		UPC:          "a897fe39b1053632",
	}
}

func buildDetailPage(p detailPage) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"content\">")
	b.WriteString("<div class=\"product_main\">")
	if p.Title != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>", p.Title)
	}
	if p.Price != "" {
		fmt.Fprintf(&b, "<p class=\"price_color\">%s</p>", p.Price)
	}
	if p.Availability != "" {
		fmt.Fprintf(&b, "<p class=\"instock availability\"><i class=\"icon-ok\"></i>\n    %s\n</p>", p.Availability)
	}
	if p.Rating != "" {
		fmt.Fprintf(&b, "<p class=\"star-rating %s\"></p>", p.Rating)
	}
	b.WriteString("</div>")

	if !p.NoDescription {
		b.WriteString("<div id=\"product_description\" class=\"sub-header\"><h2>Product Description</h2></div>")
		fmt.Fprintf(&b, "<p>%s</p>", p.Description)
	}

	b.WriteString("<table class=\"table table-striped\">")
	fmt.Fprintf(&b, "<tr><th>UPC</th><td>%s</td></tr>", p.UPC)
	b.WriteString("<tr><th>Product Type</th><td>Books</td></tr>")
	b.WriteString("<tr><th>Price (excl. tax)</th><td>&pound;51.77</td></tr>")
	b.WriteString("<tr><th>Price (incl. tax)</th><td>&pound;51.77</td></tr>")
	b.WriteString("<tr><th>Tax</th><td>&pound;0.00</td></tr>")
	if !p.NoAvailRow {
		b.WriteString("<tr><th>Availability</th><td>In stock (22 available)</td></tr>")
	}
	if !p.NoReviewsRow {
		b.WriteString("<tr><th>Number of reviews</th><td>0</td></tr>")
	}
	b.WriteString("</table>")

	b.WriteString("</div></body></html>")
	return b.String()
}

// buildListingPage renders one catalog listing page. Page 1 lives at the
// root index, later pages under /catalogue/, so link prefixes differ the
// same way they do on the live site.
func buildListingPage(page, perPage int, hasNext bool) string {
	var b strings.Builder
	b.WriteString("<html><body><section>")

	prefix := "catalogue/"
	if page > 1 {
		prefix = ""
	}
	for i := 1; i <= perPage; i++ {
		id := (page-1)*perPage + i
		fmt.Fprintf(&b, "<article class=\"product_pod\">")
		fmt.Fprintf(&b, "<h3><a href=\"%sbook-%d/index.html\" title=\"Book %d\">Book %d</a></h3>", prefix, id, id, id)
		fmt.Fprintf(&b, "<p class=\"price_color\">&pound;%d.00</p>", id)
		b.WriteString("</article>")
	}

	if hasNext {
		next := fmt.Sprintf("page-%d.html", page+1)
		if page == 1 {
			next = "catalogue/" + next
		}
		fmt.Fprintf(&b, "<ul class=\"pager\"><li class=\"next\"><a href=\"%s\">next</a></li></ul>", next)
	}

	b.WriteString("</section></body></html>")
	return b.String()
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

const testBase = "http://example.test"

func listingURL(page int) string {
	if page <= 1 {
		return testBase + "/index.html"
	}
	return fmt.Sprintf("%s/catalogue/page-%d.html", testBase, page)
}

func detailURL(id int) string {
	return fmt.Sprintf("%s/catalogue/book-%d/index.html", testBase, id)
}

// registerCatalog wires a full synthetic catalog into the transport.
func registerCatalog(transport *httpmock.MockTransport, pages, perPage int) {
	for page := 1; page <= pages; page++ {
		transport.RegisterResponder("GET", listingURL(page),
			htmlResponder(buildListingPage(page, perPage, page < pages)))
	}
	for id := 1; id <= pages*perPage; id++ {
		transport.RegisterResponder("GET", detailURL(id),
			htmlResponder(buildDetailPage(sampleDetailPage(fmt.Sprintf("Book %d", id)))))
	}
}
