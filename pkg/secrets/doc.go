// Package secrets separates credentials from connector configurations and
// puts them back.
//
// A connector configuration is a JSON document described by a JSON-Schema in
// which secret fields carry "airbyte_secret": true. The package offers three
// groups of operations over the decoded JSON (the any values produced by
// encoding/json):
//
//   - MaskSecrets and CopySecrets walk a value alongside its schema, hiding
//     secrets for display and restoring them when an edited configuration
//     comes back with masked fields.
//   - Split and SplitUpdate replace secrets with coordinate references and
//     return the payloads to store. SplitUpdate reuses coordinates whose
//     value did not change and bumps the version of those that did.
//   - Combine and the Hydrator implementations resolve references through a
//     secretstore.Reader to rebuild the full configuration.
//
// None of these functions modify their arguments and none of them write to a
// store. Payloads are never included in errors.
package secrets
