package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/themeschema/internal/category"
	"github.com/starford/themeschema/internal/models"
)

const queryTips = `## Querying

1. **Paths** are dotted. Properties under a visual use the canonical form
   ` + "`visualStyles.*.<property>`" + `; ` + "`get_property`" + ` also accepts the concrete
   form ` + "`visualStyles.card.<property>`" + `.
2. **Filters** combine with AND across dimensions and with OR inside one
   dimension: ` + "`categories: [Color, Border]`" + ` matches either category.
3. **Text** search is fuzzy and tolerates small typos (` + "`backgrond`" + `).
4. **Natural language** requests go to ` + "`query_schema`" + `. Mention the visual
   ("card", "column chart") or pass ` + "`currentVisual`" + ` to narrow the answer.
5. Ask ` + "`property_examples`" + ` before writing values you are unsure about.
`

// CategoryGuide renders the ordered categorisation rules and query tips as
// markdown. The first matching rule wins; the path is tested before the name.
func CategoryGuide() string {
	var b strings.Builder
	b.WriteString("# Theme Property Categories\n\n")
	b.WriteString("Every property belongs to exactly one category. Rules are tested in order ")
	b.WriteString("against the property path and then its name; the first match wins.\n\n")
	b.WriteString("| # | Category | Keywords |\n|---|----------|----------|\n")
	for i, r := range category.Rules() {
		keywords := strings.ReplaceAll(r.Pattern, "|", ", ")
		fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, r.Category, keywords)
	}
	fmt.Fprintf(&b, "| - | %s | anything else |\n\n", models.CategoryOther)
	b.WriteString(queryTips)
	return b.String()
}
