package mcpserver

// FeedGuide explains how wiki pages become ranked cards, so LLM consumers can
// interpret timeline output without reading the code.
const FeedGuide = `# wikifeed Card Guide

Every top-level ` + "`" + `*.md` + "`" + ` page in the wiki becomes one card.

## Card fields

- **title**: first ` + "`" + `# ` + "`" + ` heading, else the filename stem in title case.
- **type**: one of ` + "`" + `permissions_matrix` + "`" + `, ` + "`" + `account_management` + "`" + `, ` + "`" + `user_system` + "`" + `,
  ` + "`" + `welcome` + "`" + `, ` + "`" + `api_documentation` + "`" + `, ` + "`" + `general_documentation` + "`" + `.
- **engagement_score**: 0 to 100, from word count, tables, code blocks, links and features.
- **priority**: ` + "`" + `high` + "`" + ` for permission and account pages or at score 75 or more,
  ` + "`" + `medium` + "`" + ` at 50 or more, else ` + "`" + `low` + "`" + `.
- **status**: ` + "`" + `success` + "`" + `, or ` + "`" + `error` + "`" + ` for pages that could not be read.

## Timeline order

Cards are sorted by a rank, highest first:

` + "```" + `
rank = 0.4 * engagement
     + 0.3 * max(0, 100 - hours since last edit)
     + 0.3 * priority weight * type weight
` + "```" + `

Priority weights: high 3, medium 2, low 1.
Type weights: permissions_matrix 10, account_management 8, user_system 6,
api_documentation 4, general_documentation 3, welcome 2.

Error cards never appear in the timeline. Ask for them directly with ` + "`" + `get_card` + "`" + `.

## Sync

` + "`" + `sync_wiki` + "`" + ` runs ` + "`" + `git pull` + "`" + ` in the wiki repository. Cards for every changed page are
rebuilt on the next read and the search index is refreshed.
`
