// Package client provides a Go client for a running storegate gateway.
//
// Client mirrors the methods of storegate.Service, so code written against
// one works with the other:
//
//	c, err := client.New("http://localhost:5708")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	grant, err := c.IssueGrant(ctx, "uploads", "report.pdf")
//	if err != nil {
//		log.Fatal(err)
//	}
//	etag, err := c.UploadWithGrant(ctx, grant.URI, file)
//
// Errors returned by the gateway are *APIError values that unwrap to the
// matching storegate sentinel:
//
//	if errors.Is(err, storegate.ErrInsertConflict) { ... }
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := client.NewFormatter(jsonOutput, quiet)
//	formatter.FormatGrant(os.Stdout, grant)
package client
