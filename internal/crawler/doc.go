// Package crawler visits a business website and collects its contact
// email addresses.
//
// # Architecture
//
// A crawl session starts at the homepage (the seed), asks the Frontier
// which linked pages are worth a visit and fetches them one after another
// through a fetch session, so the visited set and politeness rules of the
// fetch package apply to every request.
//
// # Components
//
//   - Parser: HTML anchor parser built on golang.org/x/net/html
//   - Frontier: bounded selection of contact, about and secondary pages
//   - Crawler: runs one session per website and merges the results
//
// # Bounds
//
// A session fetches at most the seed, five contact pages and three
// secondary pages. Addresses found in mailto links are attached without
// any further fetch.
//
// # Usage
//
//	c, err := crawler.New(crawler.PolicySessions(policy))
//	emails := c.Crawl(ctx, "https://firm.pk")
package crawler
