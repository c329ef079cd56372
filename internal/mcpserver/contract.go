package mcpserver

// SearchSyntaxGuide describes the supported search parameters and how the
// offline cache affects results. Served to LLM consumers as a resource.
const SearchSyntaxGuide = `# Fedscout Search Syntax Guide

Fedscout searches federal job postings through the USAJOBS API with a
local offline cache.

## Parameters

` + "```" + `
keyword    free-text keyword, matched against title and description
           (e.g. "software engineer", "GS-2210")
location   location name as USAJOBS expects it (e.g. "Denver, CO",
           "Washington, DC")
remote     true to restrict to remote-eligible postings
fulltime   true to restrict to full-time schedules
` + "```" + `

At least one of keyword or location is required.

## Rules

1. **Keyword matching is server-side.** USAJOBS applies its own relevance
   ranking; do not try to emulate boolean operators.
2. **Location names must be spelled out.** Use "Denver, CO" not "denver"
   or a ZIP code.
3. **Results are paginated.** The default page size is 25; ask for more
   pages rather than a larger page.

## Offline behavior

- When online, searches hit the network and the result is cached locally.
- When offline, the most recent cached result for the exact same
  parameters is returned. The result carries a "source" field:
  "network", "cache", or "stale".
- A search that was never run while online cannot be answered offline.

## Saved searches and alerts

- ` + "`" + `save_search` + "`" + ` persists a named set of parameters.
- With alerts enabled, the background checker re-runs the search and
  reports postings newer than the last check.
- ` + "`" + `check_alerts` + "`" + ` forces an immediate check for one saved search.
`
