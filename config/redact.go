package config

import "slices"

const redacted = "********"

// Redacted returns a copy of c with credentials masked, suitable for printing.
func (c Config) Redacted() Config {
	out := c

	mask(&out.ObjectStore.Azure.ConnectionString)
	mask(&out.ObjectStore.S3.SecretAccessKey)
	mask(&out.EntityStore.AzTables.ConnectionString)
	mask(&out.EntityStore.DynamoDB.SecretAccessKey)
	mask(&out.EntityStore.Postgres.DSN)

	out.ObjectStore.Filesystem.Keys.Inline = slices.Clone(c.ObjectStore.Filesystem.Keys.Inline)
	for i := range out.ObjectStore.Filesystem.Keys.Inline {
		mask(&out.ObjectStore.Filesystem.Keys.Inline[i].SecretKey)
	}

	return out
}

func mask(s *string) {
	if *s != "" {
		*s = redacted
	}
}
