package rdf

import "github.com/twinfer/ontocloud/ttl"

// Context returns the JSON-LD context for doc: its own namespace and the
// standard rdf, rdfs and xsd prefixes.
func Context(doc *ttl.Document) map[string]any {
	ctx := map[string]any{
		ttl.PrefixRDF:  ttl.NamespaceRDF,
		ttl.PrefixRDFS: ttl.NamespaceRDFS,
		ttl.PrefixXSD:  ttl.NamespaceXSD,
	}
	// A JSON-LD term cannot be empty, and the standard prefixes are fixed.
	switch doc.Namespace {
	case "", ttl.PrefixRDF, ttl.PrefixRDFS, ttl.PrefixXSD:
	default:
		ctx[doc.Namespace] = doc.BaseURI
	}
	return ctx
}
