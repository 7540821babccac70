// Package filter parses DuckDB Airport extension filter pushdown JSON and
// renders it as document store query fragments.
//
// # Basic Usage
//
// Parse the filter JSON received with a scan and translate it:
//
//	fp, err := filter.Parse(data)
//	if err != nil {
//	    return err // Malformed JSON
//	}
//
//	t := filter.NewSolrEncoder(nil).Translate(fp)
//	// t.FilterQuery goes to fq, t.Query to q.
//
// # Column Mapping
//
// Map DuckDB column names to store field names:
//
//	enc := filter.NewSolrEncoder(&filter.EncoderOptions{
//	    ColumnMapping: map[string]string{
//	        "author": "author_s",
//	    },
//	})
//
// # Unsupported Expression Handling
//
// The encoder drops what it cannot render:
//   - For AND: Skips unsupported children, keeps others
//   - For OR: If any child is unsupported, skips entire OR expression
//   - Returns empty fragments if all expressions are unsupported
//
// This produces the widest possible filter, which is safe because the
// DuckDB client applies filters client-side as a fallback.
//
// # Query Syntax
//
//	a = 1                 a:1
//	a <> 'x'              (*:* -a:"x")
//	a > 1                 a:{1 TO *}
//	a BETWEEN 1 AND 5     a:[1 TO 5]
//	a IN (1, 2)           a:(1 OR 2)
//	a IS NULL             (*:* -a:[* TO *])
//	a LIKE 'x%'           a:x*
//
// Dates and timestamps are rendered as quoted UTC instants.
package filter
