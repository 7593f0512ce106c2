// Package opensearch creates an OpenSearch client and checks it when a hookflow
// application becomes ready.
package opensearch
