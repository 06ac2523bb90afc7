// Package main provides the entry point for the contactscan CLI.
//
// contactscan finds the contact email addresses that businesses publish on
// their own websites. Businesses come from a listing file, saved listing
// pages, websites given on the command line, or a simulated source.
//
// Usage:
//
//	contactscan crawl "software houses in lahore" --source-file businesses.yaml
//	contactscan crawl --site https://www.example.com
//	contactscan crawl --simulate
//
// See --help for all available options.
package main

// main is the entry point for contactscan.
func main() {
	Execute()
}
