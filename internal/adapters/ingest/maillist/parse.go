package maillist

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"sentinel/internal/core/attr"
)

var (
	// listRE bounds the message list between the list container and the footer
	listRE = regexp.MustCompile(`(?is)<div[^>]*?class\s*=\s*["']?messages-list["']?[^>]*>(?P<messages>.*?)<div[^>]*?class\s*=\s*["']?foot["']?`)

	// dateBlockRE splits the list into one block per day
	dateBlockRE = regexp.MustCompile(`(?is)<li>.*?<dfn>(?P<date>.+?)</dfn>\s*<ul>(?P<mails>.+?)</ul>.*?</li>`)

	// entryRE matches one message: link, subject and author in a single pass
	entryRE = regexp.MustCompile(`(?is)href\s*=\s*["'](?P<url>[^"']+)["'].*?>(?P<subject>[^<]+).*?<em.*?>(?P<author>[^<]+)`)

	// detailRE matches the sender and the body container of a message page
	detailRE = regexp.MustCompile(`(?is)<dfn>From</dfn>:\s*(?P<author>.*?)\s*&lt;[^>]*>(?P<email>.*?)</a\s*>.*?<pre[^>]*id\s*=\s*["']?body["']?[^>]*>(?P<message>.*?)</pre\s*>`)
)

// entry is one message listed on a month index page
type entry struct {
	URL     string
	Subject string
	Author  string
	Date    time.Time
}

// indexStats counts what a month page yielded
type indexStats struct {
	Blocks      int
	BadDates    int
	Entries     int
	BadURLs     int
	MissingList bool
}

// parseIndex extracts every entry of a month index page in page order.
// Blocks whose date does not parse are skipped, hrefs are resolved against base
func parseIndex(base *url.URL, page string) ([]entry, indexStats) {
	var st indexStats
	m := listRE.FindStringSubmatch(page)
	if m == nil {
		st.MissingList = true
		return nil, st
	}
	list := m[listRE.SubexpIndex("messages")]

	var out []entry
	for _, b := range dateBlockRE.FindAllStringSubmatch(list, -1) {
		st.Blocks++
		raw := strings.TrimSpace(html.UnescapeString(b[dateBlockRE.SubexpIndex("date")]))
		day, ok := attr.ParseDateTime(raw, time.Time{})
		if !ok {
			st.BadDates++
			continue
		}
		for _, e := range entryRE.FindAllStringSubmatch(b[dateBlockRE.SubexpIndex("mails")], -1) {
			href := html.UnescapeString(strings.TrimSpace(e[entryRE.SubexpIndex("url")]))
			ref, err := url.Parse(href)
			if err != nil {
				st.BadURLs++
				continue
			}
			st.Entries++
			out = append(out, entry{
				URL:     base.ResolveReference(ref).String(),
				Subject: strings.TrimSpace(html.UnescapeString(e[entryRE.SubexpIndex("subject")])),
				Author:  strings.TrimSpace(html.UnescapeString(e[entryRE.SubexpIndex("author")])),
				Date:    day.UTC(),
			})
		}
	}
	return out, st
}

// detail is what a message page contributes
type detail struct {
	Author string
	Email  string
	Body   string
}

// parseDetail extracts sender and body text; ok is false when the page has no match
func parseDetail(page string) (detail, bool) {
	m := detailRE.FindStringSubmatch(page)
	if m == nil {
		return detail{}, false
	}
	return detail{
		Author: strings.TrimSpace(html.UnescapeString(m[detailRE.SubexpIndex("author")])),
		Email:  strings.ToLower(strings.TrimSpace(html.UnescapeString(m[detailRE.SubexpIndex("email")]))),
		Body:   bodyText(m[detailRE.SubexpIndex("message")]),
	}, true
}
