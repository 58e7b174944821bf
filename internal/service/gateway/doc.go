// Package gateway answers update checks by combining release resolution,
// version comparison, asset matching and manifest composition.
package gateway
