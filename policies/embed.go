// Package policies ships the default support-policy corpus.
package policies

import "embed"

// FS holds catalog.yaml and the policy text files it references.
//
//go:embed catalog.yaml *.txt
var FS embed.FS

// CatalogFile is the catalog path inside FS.
const CatalogFile = "catalog.yaml"
