// Package template defines the declarative description of how one tabular
// source is read, cleaned, and reshaped. A template is a sidecar file next
// to the data it describes (`<stem>.df-template.{json,yaml,yml}`), loaded
// through Load or LoadFor and validated on the way in.
package template
